package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"

	"folio-analytics/internal/config"
	"folio-analytics/internal/container"
	"folio-analytics/internal/handler"
	"folio-analytics/internal/middleware"
	"folio-analytics/internal/ws"
	"folio-analytics/pkg/logger"
)

// Resources holds all resources that need cleanup
type Resources struct {
	container   *container.Container
	hub         *ws.Hub
	broadcaster *ws.Broadcaster
	server      *http.Server
	log         *logger.Logger
	mu          sync.Mutex
	closed      bool
}

// Cleanup gracefully closes all resources
func (r *Resources) Cleanup(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return nil
	}
	r.closed = true

	var errs []error

	r.log.Info("Starting graceful shutdown...")

	// Shutdown HTTP server first to stop accepting new requests
	if r.server != nil {
		if err := r.server.Shutdown(ctx); err != nil {
			r.log.WithError(err).Error("Failed to shutdown HTTP server")
			errs = append(errs, fmt.Errorf("HTTP server shutdown: %w", err))
		}
	}

	if r.broadcaster != nil {
		r.broadcaster.Stop()
	}
	if r.hub != nil {
		r.hub.Stop()
	}

	// Stop the reaper after the server so in-flight requests still see it.
	if err := r.container.Services.Reaper.Stop(ctx); err != nil {
		r.log.WithError(err).Error("Failed to stop session reaper")
		errs = append(errs, fmt.Errorf("reaper shutdown: %w", err))
	}

	// One last sweep so sessions idle at shutdown are not left open in the
	// store across restarts.
	sweepCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	if _, err := r.container.Services.Reaper.SweepOnce(sweepCtx); err != nil {
		r.log.WithError(err).Warn("Final session sweep failed")
	}
	cancel()

	if r.container.RedisClient != nil {
		if err := r.container.RedisClient.Close(); err != nil {
			r.log.WithError(err).Error("Failed to close Redis connection")
			errs = append(errs, fmt.Errorf("redis close: %w", err))
		}
	}

	if err := r.container.DB.Close(); err != nil {
		r.log.WithError(err).Error("Failed to close database")
		errs = append(errs, fmt.Errorf("database close: %w", err))
	}

	if len(errs) > 0 {
		return fmt.Errorf("cleanup completed with %d errors: %v", len(errs), errs)
	}

	r.log.Info("Graceful shutdown completed successfully")
	return nil
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Printf("Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	log, err := logger.New(cfg.LogLevel)
	if err != nil {
		fmt.Printf("Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}

	log.WithFields(map[string]interface{}{
		"port":        cfg.Port,
		"log_level":   cfg.LogLevel,
		"environment": cfg.Environment,
	}).Info("Starting folio-analytics server")

	ctx := context.Background()
	c, err := container.New(ctx, cfg, log)
	if err != nil {
		log.WithError(err).Fatal("Failed to create container")
	}

	if err := c.Services.Reaper.Start(ctx); err != nil {
		log.WithError(err).Fatal("Failed to start session reaper")
	}

	hub := ws.NewHub(log)
	hub.Start()

	broadcaster := ws.NewBroadcaster(hub, c.Services.Stats, log, cfg.BroadcastInterval)
	broadcaster.Start()

	router := setupRouter(c, hub)

	server := &http.Server{
		Addr:           ":" + cfg.Port,
		Handler:        router,
		ReadTimeout:    10 * time.Second,
		WriteTimeout:   60 * time.Second,
		IdleTimeout:    120 * time.Second,
		MaxHeaderBytes: 1 << 20,
	}

	resources := &Resources{
		container:   c,
		hub:         hub,
		broadcaster: broadcaster,
		server:      server,
		log:         log,
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM, os.Interrupt)

	defer func() {
		cleanupCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := resources.Cleanup(cleanupCtx); err != nil {
			log.WithError(err).Error("Cleanup completed with errors")
		}
	}()

	serverErrChan := make(chan error, 1)
	go func() {
		log.Info("Server starting on port " + cfg.Port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverErrChan <- err
		}
	}()

	select {
	case sig := <-quit:
		log.WithField("signal", sig.String()).Info("Received shutdown signal")
	case err := <-serverErrChan:
		log.WithError(err).Error("Server failed, initiating shutdown")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 25*time.Second)
	defer cancel()

	if err := resources.Cleanup(shutdownCtx); err != nil {
		log.WithError(err).Error("Graceful shutdown completed with errors")
		os.Exit(1)
	}

	log.Info("Application shutdown complete")
}

// setupRouter configures and returns the HTTP router
func setupRouter(c *container.Container, hub *ws.Hub) *chi.Mux {
	cfg := c.GetConfig()
	log := c.GetLogger()

	r := chi.NewRouter()

	corsConfig := middleware.DefaultCORSConfig()
	corsConfig.AllowedOrigins = cfg.AllowedOrigins

	r.Use(middleware.CORS(corsConfig, log))
	r.Use(middleware.RequestID())
	r.Use(chiMiddleware.RealIP)
	r.Use(chiMiddleware.Recoverer)
	r.Use(chiMiddleware.Compress(5))
	r.Use(chiMiddleware.Timeout(60 * time.Second))

	trackingHandler := handler.NewTrackingHandler(c.Services.Visit, c.Services.Engagement, log)
	statsHandler := handler.NewStatsHandler(c.Services.Stats, log)
	adminHandler := handler.NewAdminHandler(c.Services.Stats, c.DB, cfg, log)
	healthHandler := handler.NewHealthHandler(c.DB, c.RedisClient, log)
	wsHandler := handler.NewWSHandler(hub, cfg.AllowedOrigins, log)

	// Health check (no auth required)
	r.Get("/health", healthHandler.Check)

	r.Route("/api", func(r chi.Router) {
		trackingHandler.RegisterRoutes(r)
		statsHandler.RegisterRoutes(r)

		r.Get("/live", wsHandler.Live)

		adminHandler.RegisterRoutes(r, r.With(middleware.Auth(cfg.JWTSecret, log)))
	})

	// 404 handler
	r.NotFound(func(w http.ResponseWriter, req *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"success":false,"error":{"type":"not_found","message":"Endpoint not found"}}`))
	})

	log.Info("Router configured successfully")
	return r
}
