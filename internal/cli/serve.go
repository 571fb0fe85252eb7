package cli

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/kailas-cloud/firerest"
	logpkg "github.com/kailas-cloud/firerest/internal/logger"
	chiTransport "github.com/kailas-cloud/firerest/internal/transport/chi"
	"github.com/kailas-cloud/firerest/internal/version"
)

// ServeOptions holds flags for the serve command.
type ServeOptions struct {
	*RootOptions
	Addr string
}

// NewServeCommand creates the serve command.
func NewServeCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ServeOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve documents over HTTP",
		Long: `Start the HTTP gateway:

  GET    /v1/documents/{path}[?where=expr...]
  PATCH  /v1/documents/{document}   {"data":{...},"merge":true,"mergeFields":[...]}
  POST   /v1/documents/{collection} {"data":{...}}
  DELETE /v1/documents/{document}
  GET    /health, /metrics

The server stops gracefully on SIGINT or SIGTERM.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServe(cmd.Context(), opts)
		},
	}

	cmd.Flags().StringVar(&opts.Addr, "addr", "", "listen address (default \":<http.port>\")")

	return cmd
}

func runServe(ctx context.Context, opts *ServeOptions) error {
	cfg, err := opts.loadConfig()
	if err != nil {
		return err
	}

	level := cfg.Logging.Level
	if opts.Verbose {
		level = "debug"
	}
	logger, err := logpkg.NewLogger(opts.Env, level)
	if err != nil {
		return WrapExitError(ExitUsage, "create logger", err)
	}
	defer func() { _ = logger.Sync() }()

	addr := opts.Addr
	if addr == "" {
		addr = fmt.Sprintf(":%d", cfg.HTTP.Port)
	}

	logger.Info("Starting firerest gateway",
		zap.String("version", version.Version),
		zap.String("commit", version.Commit),
		zap.String("env", opts.Env),
		zap.String("project", cfg.Project),
		zap.String("backend", cfg.Backend.Driver),
		zap.String("addr", addr),
	)

	client, err := firerest.New(ctx, append(ClientOptions(cfg, logger),
		firerest.WithPrometheus(prometheus.DefaultRegisterer))...)
	if err != nil {
		return err
	}
	defer client.Close()

	handler := chiTransport.NewRouter(chiTransport.NewServer(client, logger), cfg.Auth.APIKeys, logger)
	srv := &http.Server{
		Handler:      handler,
		ReadTimeout:  time.Duration(cfg.HTTP.ReadTimeoutSec) * time.Second,
		WriteTimeout: time.Duration(cfg.HTTP.WriteTimeoutSec) * time.Second,
	}

	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", addr, err)
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		logger.Info("Starting HTTP server", zap.String("addr", ln.Addr().String()))
		errCh <- srv.Serve(ln)
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	case <-ctx.Done():
	}
	logger.Info("Received shutdown signal")

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), time.Duration(cfg.HTTP.ShutdownSec)*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Error during shutdown", zap.Error(err))
		return fmt.Errorf("shutdown: %w", err)
	}

	logger.Info("Server stopped gracefully")
	return nil
}
