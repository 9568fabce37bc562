package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"abi_resolver/internal/infrastructure/restapi"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		a, err := newApp(ctx)
		if err != nil {
			return err
		}
		defer a.Close()

		if a.cfg.Logging.Level != "debug" {
			gin.SetMode(gin.ReleaseMode)
		}
		router := restapi.SetupRouter(
			restapi.NewNetworkHandler(a.registry, a.clients, a.log),
			restapi.NewAbiHandler(a.resolver, a.log),
			a.zap,
			restapi.RouterOptions{Metrics: a.cfg.Metrics.Enabled, Pprof: a.cfg.Server.EnablePprof},
		)

		srv := &http.Server{
			Addr:         ":" + a.cfg.Server.Port,
			Handler:      router,
			ReadTimeout:  time.Duration(a.cfg.Server.ReadTimeout) * time.Second,
			WriteTimeout: time.Duration(a.cfg.Server.WriteTimeout) * time.Second,
			IdleTimeout:  time.Duration(a.cfg.Server.IdleTimeout) * time.Second,
		}

		errCh := make(chan error, 1)
		go func() {
			a.zap.Info("Server starting", zap.String("addr", srv.Addr))
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				errCh <- err
			}
			close(errCh)
		}()

		select {
		case err := <-errCh:
			if err != nil {
				a.zap.Error("Failed to start server", zap.Error(err))
				return err
			}
		case <-ctx.Done():
		}
		a.zap.Info("Shutting down server...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			a.zap.Error("Server forced to shutdown", zap.Error(err))
			return err
		}
		a.zap.Info("Server exiting")
		return nil
	},
}
