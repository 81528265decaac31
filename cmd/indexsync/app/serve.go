package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	chiTransport "github.com/kailas-cloud/indexsync/internal/transport/chi"
	"github.com/kailas-cloud/indexsync/internal/version"
)

func (c *cli) serveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the admin HTTP API",
		Long: `Serve health, metrics, schema preview and collection maintenance over HTTP.
Writes made through the repository while serving are mirrored into the index
when auto_update is enabled.`,
		Args: withUsage(cobra.NoArgs),
		RunE: func(cmd *cobra.Command, _ []string) error {
			return c.withDeps(cmd, func(ctx context.Context, d *deps) error {
				return serve(ctx, d, c.v.GetInt("port"))
			})
		},
	}
	cmd.Flags().Int("port", 0, "Listen port (overrides http.port)")
	if err := c.v.BindPFlag("port", cmd.Flags().Lookup("port")); err != nil {
		panic(err)
	}
	return cmd
}

func serve(ctx context.Context, d *deps, portOverride int) error {
	port := d.cfg.HTTP.Port
	if portOverride > 0 {
		port = portOverride
	}
	logger := d.logger

	server := chiTransport.NewServer(d.syncer, d.schemas, d.health, d.synonyms, logger.Named("http"))
	addr := fmt.Sprintf(":%d", port)
	srv := &http.Server{
		Addr:              addr,
		Handler:           chiTransport.NewRouter(server, d.cfg.APIKey, logger.Named("http")),
		ReadTimeout:       time.Duration(d.cfg.HTTP.ReadTimeoutSec) * time.Second,
		ReadHeaderTimeout: time.Duration(d.cfg.HTTP.ReadTimeoutSec) * time.Second,
		WriteTimeout:      time.Duration(d.cfg.HTTP.WriteTimeoutSec) * time.Second,
	}

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		logger.Info("Starting HTTP server",
			zap.String("addr", addr),
			zap.String("version", version.Version),
			zap.String("engine", d.cfg.Engine.Driver),
			zap.Bool("auto_update", d.listener.Enabled()),
		)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err, ok := <-errCh:
		if ok {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	case <-ctx.Done():
		logger.Info("Received shutdown signal")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Duration(d.cfg.HTTP.ShutdownSec)*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Error during shutdown", zap.Error(err))
		return fmt.Errorf("shutdown: %w", err)
	}
	logger.Info("Server stopped gracefully")
	return nil
}
