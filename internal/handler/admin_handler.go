package handler

import (
	"crypto/subtle"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/golang-jwt/jwt/v5"

	"folio-analytics/internal/config"
	"folio-analytics/internal/service"
	"folio-analytics/pkg/database"
	"folio-analytics/pkg/errors"
	"folio-analytics/pkg/logger"
)

const tokenLifetime = 12 * time.Hour

// AdminHandler serves the password-gated admin surface: login, ad-hoc
// read-only queries and the destructive data reset.
type AdminHandler struct {
	statsService service.StatsService
	db           *database.DB
	config       *config.Config
	logger       *logger.Logger
}

// NewAdminHandler creates a new admin handler
func NewAdminHandler(statsService service.StatsService, db *database.DB, cfg *config.Config, logger *logger.Logger) *AdminHandler {
	return &AdminHandler{
		statsService: statsService,
		db:           db,
		config:       cfg,
		logger:       logger,
	}
}

// LoginRequest carries the admin password.
type LoginRequest struct {
	Password string `json:"password"`
}

// QueryRequest carries one ad-hoc SQL statement.
type QueryRequest struct {
	Query string `json:"query"`
}

// Login handles POST /api/auth/login
func (h *AdminHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, errors.NewValidationError("Invalid request body", nil), h.logger)
		return
	}

	if h.config.AdminPassword == "" {
		writeError(w, errors.NewAuthError("Admin access is not configured"), h.logger)
		return
	}
	if subtle.ConstantTimeCompare([]byte(req.Password), []byte(h.config.AdminPassword)) != 1 {
		h.logger.Warn("Failed admin login attempt")
		writeError(w, errors.NewAuthError("Invalid password"), h.logger)
		return
	}

	now := time.Now()
	claims := jwt.RegisteredClaims{
		Subject:   "admin",
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(tokenLifetime)),
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(h.config.JWTSecret))
	if err != nil {
		writeError(w, errors.NewInternalError("Failed to issue token", err), h.logger)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"token":      token,
		"expires_at": claims.ExpiresAt.Time,
	}, h.logger)
}

// Query handles POST /api/admin/query
func (h *AdminHandler) Query(w http.ResponseWriter, r *http.Request) {
	var req QueryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, errors.NewValidationError("Invalid request body", nil), h.logger)
		return
	}

	result, err := h.statsService.ExecuteReadOnlyQuery(r.Context(), req.Query)
	if err != nil {
		writeError(w, err, h.logger)
		return
	}
	writeJSON(w, http.StatusOK, result, h.logger)
}

// Reset handles POST /api/admin/reset. It deletes all collected data while
// leaving the schema in place.
func (h *AdminHandler) Reset(w http.ResponseWriter, r *http.Request) {
	if err := h.db.Reset(r.Context()); err != nil {
		writeError(w, errors.NewInternalError("Failed to reset data", err), h.logger)
		return
	}

	h.logger.Warn("All analytics data reset by admin")
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"reset_at": time.Now().UTC(),
	}, h.logger)
}

// RegisterRoutes registers admin routes. The auth middleware is applied by
// the caller so login stays public while query/reset are gated.
func (h *AdminHandler) RegisterRoutes(public chi.Router, protected chi.Router) {
	public.Post("/auth/login", h.Login)
	protected.Post("/admin/query", h.Query)
	protected.Post("/admin/reset", h.Reset)
}
