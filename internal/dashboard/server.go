// Package dashboard serves the campaign engine over HTTP for the themed
// front-ends: JSON reads and mutations plus an SSE change stream.
package dashboard

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/zulandar/campaignyard/internal/campaign"
	"go.uber.org/zap"
)

// LoopRunner runs a loop on demand. *scheduler.Scheduler satisfies it.
type LoopRunner interface {
	RunLoop(ctx context.Context, id string) (campaign.LoopEvent, error)
}

// StartOpts holds configuration for the dashboard server.
type StartOpts struct {
	Engine *campaign.Engine
	Port   int
	Logger *zap.Logger
	// Runner enables POST /api/loops/:id/run when set.
	Runner LoopRunner
}

// Start launches the dashboard HTTP server. It blocks until ctx is cancelled,
// then shuts down gracefully.
func Start(ctx context.Context, opts StartOpts) error {
	if opts.Engine == nil {
		return fmt.Errorf("dashboard: engine is required")
	}
	if opts.Port <= 0 {
		opts.Port = 8080
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}

	gin.SetMode(gin.ReleaseMode)
	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", opts.Port),
		Handler: newRouter(opts),
	}

	// Graceful shutdown on context cancellation.
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		srv.Shutdown(shutdownCtx)
	}()

	opts.Logger.Info("dashboard running", zap.String("url", fmt.Sprintf("http://localhost:%d", opts.Port)))

	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("dashboard: %w", err)
	}
	return nil
}

// newRouter builds the gin engine with every route registered.
func newRouter(opts StartOpts) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery(), requestLogger(opts.Logger))
	registerRoutes(router, &handlers{
		engine: opts.Engine,
		runner: opts.Runner,
		log:    opts.Logger,
	})
	return router
}

// requestLogger logs each request at debug level.
func requestLogger(log *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		log.Debug("http request",
			zap.String("method", c.Request.Method),
			zap.String("path", c.FullPath()),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("elapsed", time.Since(start)),
		)
	}
}
