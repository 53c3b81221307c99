package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"syscall"
	"time"

	"github.com/oklog/run"
	"github.com/spf13/cobra"

	"github.com/yairfalse/autoshutdown/internal/app"
	"github.com/yairfalse/autoshutdown/internal/trigger"
)

var (
	serveAddr       string
	servePrometheus bool
)

// serveCmd represents the serve command
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the shutdown workflow over HTTP",
	Long: `Start an HTTP server that runs the shutdown workflow on demand.

Endpoints:
  POST /v1/runs   run once; X-Request-Id becomes the execution id
  GET  /healthz   liveness
  GET  /metrics   Prometheus metrics (when enabled)

SIGINT or SIGTERM drains in-flight runs and exits.`,
	Example: `  autoshutdown serve
  autoshutdown serve --addr :9090
  curl -X POST -H 'X-Request-Id: nightly-0412' localhost:8080/v1/runs`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "Listen address (default: server.address / SERVER_ADDRESS)")
	serveCmd.Flags().BoolVar(&servePrometheus, "prometheus", true, "Expose Prometheus metrics on /metrics")
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if serveAddr != "" {
		cfg.Server.Address = serveAddr
	}
	if servePrometheus {
		cfg.OTEL.Metrics.Prometheus = true
	}

	a, err := app.New(cmd.Context(), cfg, app.Options{LogOutput: cmd.ErrOrStderr()})
	if err != nil {
		return fmt.Errorf("initialize: %w", err)
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = a.Close(ctx)
	}()

	ln, err := net.Listen("tcp", cfg.Server.Address)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", cfg.Server.Address, err)
	}

	srv := &http.Server{
		Handler:           trigger.NewHTTPHandler(a.Workflow, a.Telemetry.MetricsHandler(), a.Logger),
		ReadHeaderTimeout: 10 * time.Second,
	}

	var g run.Group
	g.Add(func() error {
		a.Logger.Info().Str("address", ln.Addr().String()).Msg("http trigger listening")
		if err := srv.Serve(ln); !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	}, func(error) {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := srv.Shutdown(ctx); err != nil {
			a.Logger.Warn().Err(err).Msg("http trigger shutdown")
		}
	})
	g.Add(run.SignalHandler(cmd.Context(), syscall.SIGINT, syscall.SIGTERM))

	err = g.Run()
	var sig run.SignalError
	if errors.As(err, &sig) {
		a.Logger.Info().Str("signal", sig.Signal.String()).Msg("shutting down")
		return nil
	}
	return err
}
