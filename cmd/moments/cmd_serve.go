package main

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

	"github.com/d60-Lab/moments/internal/api"
	"github.com/d60-Lab/moments/internal/api/handler"
	"github.com/d60-Lab/moments/internal/service"
	"github.com/d60-Lab/moments/pkg/logger"
)

func (a *app) serveCmd() *cobra.Command {
	var port int
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the local JSON API and Swagger UI",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if port == 0 {
				port = a.cfg.Server.Port
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			if err := a.svc.Reload(ctx); err != nil && !errors.Is(err, service.ErrNotAuthenticated) {
				logger.Warn("initial load failed", zap.Error(err))
			}

			router := api.NewRouter(handler.NewHandler(a.svc), api.RouterOptions{
				Mode:        a.cfg.Server.Mode,
				RateLimit:   a.cfg.Server.RateLimit,
				RateBurst:   a.cfg.Server.RateBurst,
				ServiceName: a.cfg.Tracing.ServiceName,
				Tracing:     a.cfg.Tracing.Enabled,
				Sentry:      a.sentry,
			})
			srv := &http.Server{
				Addr:              fmt.Sprintf(":%d", port),
				Handler:           router,
				ReadHeaderTimeout: 10 * time.Second,
			}

			errCh := make(chan error, 1)
			go func() {
				logger.Info("listening", zap.String("addr", srv.Addr))
				errCh <- srv.ListenAndServe()
			}()

			select {
			case err := <-errCh:
				if !errors.Is(err, http.ErrServerClosed) {
					return err
				}
				return nil
			case <-ctx.Done():
			}

			logger.Info("shutting down")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		},
	}
	cmd.Flags().IntVarP(&port, "port", "p", 0, "listen port (default: server.port)")
	return cmd
}
