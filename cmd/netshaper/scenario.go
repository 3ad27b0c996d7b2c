package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/abrlab/netshaper/internal/humanize"
	"github.com/abrlab/netshaper/internal/model"
	"github.com/abrlab/netshaper/internal/netemu"
	"github.com/abrlab/netshaper/internal/scenario"
	"github.com/abrlab/netshaper/internal/shaping"
	"github.com/apex/log"
	"github.com/fatih/color"
	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"
)

// errMissingURL indicates that the user did not provide --url.
var errMissingURL = errors.New("scenario: missing --url")

// scenarioOptions contains the options of the scenario command.
type scenarioOptions struct {
	count   int
	noBar   bool
	shaping shapingFlags
	URL     string
}

func newScenarioCommand() *cobra.Command {
	opts := &scenarioOptions{}
	cmd := &cobra.Command{
		Use:   "scenario",
		Short: "Fetch a segment repeatedly through the emulator and summarize",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return scenarioMain(ctx, cmd, opts)
		},
	}
	flags := cmd.Flags()
	flags.IntVarP(&opts.count, "count", "n", 100, "Number of sequential requests")
	flags.BoolVar(&opts.noBar, "no-progress", false, "Do not show the progress bar")
	flags.StringVar(&opts.URL, "url", "", "URL of the segment to fetch")
	opts.shaping.register(cmd, "3g")
	return cmd
}

func scenarioMain(ctx context.Context, cmd *cobra.Command, opts *scenarioOptions) error {
	if opts.URL == "" {
		return errMissingURL
	}
	params := shaping.NewDefaultParams()
	if err := opts.shaping.apply(cmd, params); err != nil {
		return err
	}
	emu := netemu.New(log.Log, params, http.DefaultTransport.(*http.Transport).Clone())
	defer emu.CloseIdleConnections()

	w := cmd.OutOrStdout()
	runner := scenario.NewRunner(log.Log, emu)
	if !opts.noBar {
		bar := progressbar.NewOptions(
			opts.count,
			progressbar.OptionSetWriter(cmd.ErrOrStderr()),
			progressbar.OptionSetDescription("fetching"),
			progressbar.OptionShowCount(),
			progressbar.OptionClearOnFinish(),
		)
		defer bar.Finish()
		runner.OnProgress = func(done, total int) {
			bar.Set(done)
		}
	}

	log.Infof("scenario: %d requests for %s with %s", opts.count, opts.URL, params.Snapshot())
	result, err := runner.Run(ctx, opts.URL, opts.count)
	if err != nil {
		return err
	}
	printResult(w, params.Snapshot(), result)
	return nil
}

func printResult(w io.Writer, sp model.ShapingParameters, result *scenario.Result) {
	bold := color.New(color.Bold)
	bold.Fprintf(w, "\nScenario summary (%s)\n", sp)
	fmt.Fprintf(w, "  requests:            %d\n", result.Requests)
	fmt.Fprintf(w, "  succeeded:           %d\n", result.Succeeded)
	failures := color.New(color.FgGreen)
	if result.SimulatedFailures > 0 {
		failures = color.New(color.FgYellow)
	}
	failures.Fprintf(w, "  simulated failures:  %d (%.1f%%)\n", result.SimulatedFailures, result.FailureRate()*100)
	others := color.New(color.FgGreen)
	if result.TransportFailures+result.StatusFailures > 0 {
		others = color.New(color.FgRed)
	}
	others.Fprintf(w, "  transport failures:  %d\n", result.TransportFailures)
	others.Fprintf(w, "  status failures:     %d\n", result.StatusFailures)
	fmt.Fprintf(w, "  bytes received:      %s\n", humanize.Bytes(result.BytesReceived))
	fmt.Fprintf(w, "  throughput:          %s\n", humanize.Bitrate(result.BytesReceived, result.TransferTime))
	fmt.Fprintf(w, "  latency min:         %s\n", result.LatencyMin)
	fmt.Fprintf(w, "  latency median:      %s\n", result.LatencyMedian)
	fmt.Fprintf(w, "  latency p95:         %s\n", result.LatencyP95)
	fmt.Fprintf(w, "  elapsed:             %s\n", result.Elapsed)
}
