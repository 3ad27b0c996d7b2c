package main

import (
	"context"
	"errors"
	"net"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/abrlab/netshaper/internal/config"
	"github.com/abrlab/netshaper/internal/control"
	"github.com/abrlab/netshaper/internal/model"
	"github.com/abrlab/netshaper/internal/monitor"
	"github.com/abrlab/netshaper/internal/netemu"
	"github.com/abrlab/netshaper/internal/proxy"
	"github.com/abrlab/netshaper/internal/shaping"
	"github.com/apex/log"
	"github.com/spf13/cobra"
	"golang.org/x/net/netutil"
)

// serveOptions contains the options of the serve command.
type serveOptions struct {
	configFile     string
	controlListen  string
	listen         string
	maxConnections int
	origin         string
	shaping        shapingFlags

	// onListening is the OPTIONAL function called with the proxy
	// and control endpoints once both are listening.
	onListening func(proxyAddr, controlAddr string)
}

func newServeCommand() *cobra.Command {
	opts := &serveOptions{}
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the shaping reverse proxy and the control API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			cfg, err := opts.config(cmd)
			if err != nil {
				return err
			}
			onListening := opts.onListening
			if onListening == nil {
				onListening = func(proxyAddr, controlAddr string) {
					log.WithFields(log.Fields{
						"type":    "table",
						"origin":  cfg.Origin,
						"proxy":   "http://" + proxyAddr + "/",
						"control": "http://" + controlAddr + "/api/",
						"metrics": "http://" + controlAddr + "/metrics",
					}).Info("netshaper")
				}
			}
			return serveMain(ctx, log.Log, cfg, func(params *shaping.Params) error {
				return opts.shaping.apply(cmd, params)
			}, onListening)
		},
	}
	flags := cmd.Flags()
	flags.StringVarP(&opts.configFile, "config", "c", "", "Path of the JSON-with-comments configuration file")
	flags.StringVar(&opts.controlListen, "control-listen", config.DefaultControlListen, "Control API endpoint")
	flags.StringVar(&opts.listen, "listen", config.DefaultListen, "Shaping proxy endpoint")
	flags.StringVar(&opts.origin, "origin", "", "URL of the origin serving the stream")
	flags.IntVar(&opts.maxConnections, "max-connections", 0, "Maximum concurrent proxy connections (0 means unlimited)")
	opts.shaping.register(cmd, "")
	return cmd
}

// config loads the configuration file, if any, and applies the flags.
func (opts *serveOptions) config(cmd *cobra.Command) (*config.Config, error) {
	cfg := config.New()
	if opts.configFile != "" {
		var err error
		if cfg, err = config.ReadConfig(opts.configFile); err != nil {
			return nil, err
		}
	}
	flags := cmd.Flags()
	if flags.Changed("listen") {
		cfg.Listen = opts.listen
	}
	if flags.Changed("control-listen") {
		cfg.ControlListen = opts.controlListen
	}
	if flags.Changed("origin") {
		cfg.Origin = opts.origin
	}
	if flags.Changed("max-connections") {
		cfg.MaxConnections = opts.maxConnections
	}
	return cfg, nil
}

// serveMain runs the servers described by cfg until ctx is done.
func serveMain(ctx context.Context, logger model.Logger, cfg *config.Config,
	override func(params *shaping.Params) error, onListening func(proxyAddr, controlAddr string)) error {
	origin, err := proxy.ParseOrigin(cfg.Origin)
	if err != nil {
		return err
	}
	initial, err := cfg.Parameters()
	if err != nil {
		return err
	}
	params, err := shaping.NewParams(initial)
	if err != nil {
		return err
	}
	if err := override(params); err != nil {
		return err
	}

	store := monitor.NewStore(cfg.MaxLogEntries)
	emu := netemu.New(logger, params, http.DefaultTransport.(*http.Transport).Clone())
	emu.Observer = store
	if len(cfg.MediaExtensions) > 0 {
		emu.MediaExtensions = cfg.MediaExtensions
	}
	defer emu.CloseIdleConnections()

	proxySrv := &http.Server{
		Handler:           proxy.New(logger, origin, emu),
		ReadHeaderTimeout: 10 * time.Second,
	}
	proxyListener, err := net.Listen("tcp", cfg.Listen)
	if err != nil {
		return err
	}
	if cfg.MaxConnections > 0 {
		proxyListener = netutil.LimitListener(proxyListener, cfg.MaxConnections)
	}
	controlSrv := &http.Server{
		Handler:           control.NewAPI(logger, params, store).Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	controlListener, err := net.Listen("tcp", cfg.ControlListen)
	if err != nil {
		proxyListener.Close()
		return err
	}

	logger.Infof("shaping %s at http://%s/ with %s", origin, proxyListener.Addr(), params.Snapshot())
	logger.Infof("serving the control API at http://%s/api/", controlListener.Addr())
	go serve(logger, proxySrv, proxyListener)
	go serve(logger, controlSrv, controlListener)
	if onListening != nil {
		onListening(proxyListener.Addr().String(), controlListener.Addr().String())
	}

	<-ctx.Done()
	logger.Infof("waiting for pending requests to complete")
	wg := &sync.WaitGroup{}
	wg.Add(2)
	go shutdown(proxySrv, wg)
	go shutdown(controlSrv, wg)
	wg.Wait()
	return nil
}

func serve(logger model.Logger, srv *http.Server, listener net.Listener) {
	if err := srv.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Warnf("serve: %s", err.Error())
	}
}

// shutdown calls srv.Shutdown with a reasonably long timeout and then
// decrements the given wait group counter.
func shutdown(srv *http.Server, wg *sync.WaitGroup) {
	defer wg.Done()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	srv.Shutdown(ctx)
}
