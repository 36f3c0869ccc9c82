// Package api exposes the training HTTP interface.
package api

import (
	"context"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/audionhq/timbre/internal/registry"
	"github.com/audionhq/timbre/internal/trainer"
)

// StartOpts holds configuration for the API server.
type StartOpts struct {
	Registry   *registry.Registry
	Trainer    *trainer.Trainer
	AuthSecret string
	Addr       string
}

// Start launches the API server. It blocks until ctx is cancelled, then
// shuts down gracefully.
func Start(ctx context.Context, opts StartOpts) error {
	if opts.Registry == nil {
		return fmt.Errorf("api: registry is required")
	}
	if opts.Trainer == nil {
		return fmt.Errorf("api: trainer is required")
	}
	if opts.AuthSecret == "" {
		return fmt.Errorf("api: auth secret is required")
	}
	if opts.Addr == "" {
		opts.Addr = ":8081"
	}

	gin.SetMode(gin.ReleaseMode)
	router := NewRouter(opts)

	srv := &http.Server{
		Addr:    opts.Addr,
		Handler: router,
	}

	// Graceful shutdown on context cancellation.
	go func() {
		<-ctx.Done()
		srv.Shutdown(context.Background())
	}()

	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("api: %w", err)
	}
	return nil
}

// NewRouter builds the gin router with all routes registered. Split out
// from Start for handler tests.
func NewRouter(opts StartOpts) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	registerRoutes(router, opts)
	return router
}
