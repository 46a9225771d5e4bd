package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"

	"featureboard/internal/core"
	"featureboard/internal/httpapi"
)

func newServeCmd(configPath *string) *cobra.Command {
	var addr string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			a, err := openApp(ctx, *configPath, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			defer func() { _ = a.Close() }()
			if addr != "" {
				a.cfg.Server.Addr = addr
			}
			srv, err := buildServer(ctx, a)
			if err != nil {
				return err
			}
			return runServer(ctx, srv, a)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "listen address (overrides server.addr)")
	return cmd
}

// buildServer wires the service, observability and router for a.
func buildServer(ctx context.Context, a *app) (*http.Server, error) {
	if a.cfg.Seed {
		n, err := core.SeedDefaults(ctx, a.store)
		if err != nil {
			return nil, err
		}
		if n > 0 {
			a.logger.Info("seeded default feature requests", "count", n)
		}
	}

	opts := []core.ServiceOption{core.WithLogger(a.logger.With("component", "service"))}
	var gatherer prometheus.Gatherer
	if a.cfg.Server.Metrics {
		reg := prometheus.NewRegistry()
		reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
		metrics, err := core.NewPrometheusMetricsRecorder(reg)
		if err != nil {
			return nil, err
		}
		opts = append(opts, core.WithMetricsRecorder(metrics))
		gatherer = reg
	}
	tracer, err := a.tracer()
	if err != nil {
		return nil, err
	}
	if tracer != nil {
		opts = append(opts, core.WithTracer(tracer))
	}

	gin.SetMode(gin.ReleaseMode)
	router := httpapi.NewRouter(core.NewService(a.store, opts...), httpapi.Options{
		Logger:      a.logger.With("component", "http"),
		CORSOrigins: a.cfg.Server.CORSOrigins,
		Gatherer:    gatherer,
	})
	return &http.Server{
		Addr:              a.cfg.Server.Addr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       60 * time.Second,
	}, nil
}

func runServer(ctx context.Context, srv *http.Server, a *app) error {
	errCh := make(chan error, 1)
	go func() {
		a.logger.Info("listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	a.logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), a.cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	return <-errCh
}
