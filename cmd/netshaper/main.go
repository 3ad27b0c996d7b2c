// Command netshaper emulates degraded networks for adaptive-bitrate
// video playback testing.
package main

import (
	"fmt"
	"io"
	"os"

	"github.com/abrlab/netshaper/internal/log/handlers/cli"
	"github.com/abrlab/netshaper/internal/model"
	"github.com/abrlab/netshaper/internal/shaping"
	"github.com/apex/log"
	"github.com/spf13/cobra"
)

func main() {
	log.SetHandler(cli.Default)
	if err := newRootCommand(os.Stdout).Execute(); err != nil {
		log.WithError(err).Fatal("netshaper failed")
	}
}

// newRootCommand creates the command tree writing output to w.
func newRootCommand(w io.Writer) *cobra.Command {
	var verbose bool
	root := &cobra.Command{
		Use:           "netshaper",
		Short:         "Network condition emulator for ABR video playback testing",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			logmap := map[bool]log.Level{
				true:  log.DebugLevel,
				false: log.InfoLevel,
			}
			log.SetLevel(logmap[verbose])
		},
	}
	root.SetOut(w)
	root.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Toggle debug logging")
	root.AddCommand(newServeCommand())
	root.AddCommand(newScenarioCommand())
	root.AddCommand(newPresetsCommand())
	return root
}

// shapingFlags contains the command line overrides of the shaping parameters.
type shapingFlags struct {
	bandwidth float64
	latency   int64
	loss      float64
	preset    string
}

func (sf *shapingFlags) register(cmd *cobra.Command, defaultPreset string) {
	flags := cmd.Flags()
	flags.StringVar(&sf.preset, "preset", defaultPreset, "Name of the preset to start from")
	flags.Float64Var(&sf.bandwidth, "bandwidth", 0, "Bandwidth in kbit/s")
	flags.Int64Var(&sf.latency, "latency", 0, "Latency in milliseconds")
	flags.Float64Var(&sf.loss, "loss", 0, "Request loss in percent")
}

// apply applies the flags the user has set to params.
func (sf *shapingFlags) apply(cmd *cobra.Command, params *shaping.Params) error {
	flags := cmd.Flags()
	if sf.preset != "" {
		if err := params.ApplyPreset(sf.preset); err != nil {
			return err
		}
	}
	var change shaping.Change
	if flags.Changed("bandwidth") {
		change.BandwidthKbps = &sf.bandwidth
	}
	if flags.Changed("latency") {
		change.LatencyMs = &sf.latency
	}
	if flags.Changed("loss") {
		change.PacketLossPercent = &sf.loss
	}
	return params.Apply(change)
}

func newPresetsCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "presets",
		Short: "Print the built-in presets",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			printPresets(cmd.OutOrStdout())
			return nil
		},
	}
}

func printPresets(w io.Writer) {
	fmt.Fprintf(w, "%-10s %12s %10s %8s\n", "NAME", "BANDWIDTH", "LATENCY", "LOSS")
	for _, preset := range shaping.Presets() {
		p := preset.Parameters
		bandwidth := fmt.Sprintf("%gkbps", p.BandwidthKbps)
		if p.BandwidthKbps >= model.UnlimitedBandwidthKbps {
			bandwidth = "unlimited"
		}
		fmt.Fprintf(w, "%-10s %12s %8dms %7g%%\n", preset.Name, bandwidth, p.LatencyMs, p.PacketLossPercent())
	}
}
