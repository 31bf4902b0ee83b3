package handler

import (
	"encoding/json"
	"net"
	"net/http"
	"strings"

	"folio-analytics/pkg/errors"
	"folio-analytics/pkg/logger"
)

// ErrorResponse represents an error response
type ErrorResponse struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

// APIResponse is the shared success/error envelope.
type APIResponse struct {
	Success bool           `json:"success"`
	Data    interface{}    `json:"data,omitempty"`
	Error   *ErrorResponse `json:"error,omitempty"`
}

// writeJSON writes a success envelope
func writeJSON(w http.ResponseWriter, statusCode int, data interface{}, log *logger.Logger) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	response := APIResponse{Success: true, Data: data}
	if err := json.NewEncoder(w).Encode(response); err != nil {
		log.WithError(err).Error("Failed to encode response")
	}
}

// writeError writes an error envelope, mapping structured errors to their
// status code and anything else to a 500.
func writeError(w http.ResponseWriter, err error, log *logger.Logger) {
	statusCode := http.StatusInternalServerError
	errType := "internal"
	message := "Internal server error"

	var appErr *errors.AppError
	if e, ok := err.(*errors.AppError); ok {
		appErr = e
		statusCode = appErr.StatusCode
		errType = string(appErr.Type)
		message = appErr.Message
	} else {
		log.WithError(err).Error("Unhandled request error")
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	response := APIResponse{
		Success: false,
		Error:   &ErrorResponse{Type: errType, Message: message},
	}
	if encErr := json.NewEncoder(w).Encode(response); encErr != nil {
		log.WithError(encErr).Error("Failed to encode error response")
	}
}

// getRealIPAddress extracts the real client address from the request
func getRealIPAddress(r *http.Request) string {
	// Check for IP in various headers (in order of preference)
	headers := []string{
		"CF-Connecting-IP", // Cloudflare
		"X-Forwarded-For",  // Standard proxy header
		"X-Real-IP",        // Nginx proxy
	}

	for _, header := range headers {
		if ip := r.Header.Get(header); ip != "" {
			// X-Forwarded-For can contain multiple IPs, take the first one
			if idx := strings.IndexAny(ip, ", "); idx > 0 {
				return ip[:idx]
			}
			return ip
		}
	}

	// Fall back to RemoteAddr
	ip, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return ip
}
