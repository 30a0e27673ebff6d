package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/querybridge/querybridge/internal/api"
	"github.com/querybridge/querybridge/internal/lock"
	"github.com/querybridge/querybridge/internal/ws"
)

var (
	servePort    int
	serveHost    string
	serveDevMode bool
	serveTimeout time.Duration
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP tool server",
	Long: `Serve query, execute, resource and translate tools over HTTP for every
configured connection. Activity streams to WebSocket clients on /api/ws
and Prometheus metrics are exposed on /metrics.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := openSession()
		if err != nil {
			return err
		}
		defer s.close()
		logger := s.logger

		port := s.cfg.Server.Port
		if cmd.Flags().Changed("port") {
			port = servePort
		}
		host := s.cfg.Server.Host
		if cmd.Flags().Changed("host") {
			host = serveHost
		}

		lockPath := lock.PathFor("", port)
		if err := lock.Acquire(lockPath); err != nil {
			return err
		}
		defer func() {
			if err := lock.Release(lockPath); err != nil {
				logger.Warn("releasing lock", "path", lockPath, "error", err)
			}
		}()

		// Graceful shutdown on signals
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		hub := ws.NewHub(logger)
		go hub.Run(ctx)

		srv := api.New(s.registry, logger, port,
			api.WithHub(hub),
			api.WithHost(host),
			api.WithDevMode(serveDevMode),
			api.WithRequestTimeout(serveTimeout),
		)

		errCh := make(chan error, 1)
		go func() {
			errCh <- srv.Start()
		}()

		display := host
		if display == "" {
			display = "localhost"
		}
		fmt.Fprintf(os.Stderr, "QueryBridge tools: http://%s:%d/api (%d connections)\n", display, port, len(s.registry.Names()))

		select {
		case err := <-errCh:
			if err != nil && !errors.Is(err, http.ErrServerClosed) {
				return err
			}
		case <-ctx.Done():
			logger.Info("shutting down server")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := srv.Shutdown(shutdownCtx); err != nil {
				return fmt.Errorf("server shutdown: %w", err)
			}
		}

		return nil
	},
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 8230, "port for the tool server (default: server.port from config)")
	serveCmd.Flags().StringVar(&serveHost, "host", "", "interface to bind (default: server.host from config)")
	serveCmd.Flags().BoolVar(&serveDevMode, "dev", false, "enable CORS for development mode")
	serveCmd.Flags().DurationVar(&serveTimeout, "timeout", 30*time.Second, "time limit per tool call")
	rootCmd.AddCommand(serveCmd)
}
