package handler

import (
	"net/http"

	"github.com/gorilla/websocket"

	"folio-analytics/internal/ws"
	"folio-analytics/pkg/logger"
)

// WSHandler upgrades dashboard connections onto the live broadcast hub.
type WSHandler struct {
	hub      *ws.Hub
	upgrader websocket.Upgrader
	logger   *logger.Logger
}

// NewWSHandler creates a new websocket handler
func NewWSHandler(hub *ws.Hub, allowedOrigins []string, logger *logger.Logger) *WSHandler {
	allowed := make(map[string]bool)
	for _, origin := range allowedOrigins {
		allowed[origin] = true
	}

	return &WSHandler{
		hub: hub,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				origin := r.Header.Get("Origin")
				if origin == "" {
					return true
				}
				return len(allowed) == 0 || allowed["*"] || allowed[origin]
			},
		},
		logger: logger,
	}
}

// Live handles GET /api/live
func (h *WSHandler) Live(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.WithError(err).Warn("Websocket upgrade failed")
		return
	}

	client := ws.NewClient(h.hub, conn, h.logger)
	h.hub.Register(client)
	client.Start()
}
