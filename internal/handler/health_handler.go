package handler

import (
	"net/http"
	"time"

	"folio-analytics/pkg/database"
	"folio-analytics/pkg/logger"
	"folio-analytics/pkg/redis"
)

// HealthHandler reports liveness of the store and optional cache.
type HealthHandler struct {
	db     *database.DB
	cache  *redis.Client
	logger *logger.Logger
}

// NewHealthHandler creates a new health handler. cache may be nil.
func NewHealthHandler(db *database.DB, cache *redis.Client, logger *logger.Logger) *HealthHandler {
	return &HealthHandler{
		db:     db,
		cache:  cache,
		logger: logger,
	}
}

// Check handles GET /health
func (h *HealthHandler) Check(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	healthy := true

	checks := map[string]string{}
	if err := h.db.Health(ctx); err != nil {
		h.logger.WithError(err).Error("Database health check failed")
		checks["database"] = "unhealthy"
		healthy = false
	} else {
		checks["database"] = "healthy"
	}

	if h.cache != nil {
		if err := h.cache.Health(ctx); err != nil {
			h.logger.WithError(err).Warn("Redis health check failed")
			checks["redis"] = "unhealthy"
		} else {
			checks["redis"] = "healthy"
		}
	}

	statusCode := http.StatusOK
	status := "healthy"
	if !healthy {
		statusCode = http.StatusServiceUnavailable
		status = "unhealthy"
	}

	writeJSON(w, statusCode, map[string]interface{}{
		"status":    status,
		"checks":    checks,
		"timestamp": time.Now().UTC(),
	}, h.logger)
}
