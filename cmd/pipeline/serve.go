package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"model-pipeline/internal/adapters/primary/http/handlers"
	"model-pipeline/internal/adapters/primary/http/middleware"
)

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Serve the registry API and alias-resolved predictions",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			a, err := newApp(ctx, cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			if a.cfg.Logger.Level != "debug" {
				gin.SetMode(gin.ReleaseMode)
			}

			engine := gin.New()
			engine.Use(middleware.RequestID(), middleware.Logging(), gin.Recovery())

			engine.GET("/healthz", func(c *gin.Context) {
				if err := a.pool.Ping(c.Request.Context()); err != nil {
					c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unhealthy"})
					return
				}
				c.JSON(http.StatusOK, gin.H{"status": "ok"})
			})
			engine.GET("/metrics", gin.WrapH(promhttp.Handler()))

			h := handlers.New(a.registry, a.promotion, a.artifacts)
			h.RegisterRoutes(engine.Group("/api/v1"))

			srv := &http.Server{
				Addr:              fmt.Sprintf("%s:%d", a.cfg.Server.Host, a.cfg.Server.Port),
				Handler:           engine,
				ReadHeaderTimeout: 10 * time.Second,
			}

			errCh := make(chan error, 1)
			go func() {
				log.WithField("addr", srv.Addr).Info("serving")
				if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
					errCh <- err
				}
			}()

			select {
			case err := <-errCh:
				return err
			case <-ctx.Done():
			}

			log.Info("shutting down")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		},
	}
}
