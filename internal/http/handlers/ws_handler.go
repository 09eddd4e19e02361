package handlers

import (
	"context"
	"net/http"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"stationsync/internal/auth"
	"stationsync/internal/ws"
)

// WSHandler upgrades dashboard clients onto the event hub. Browsers cannot
// set an Authorization header on a websocket, so the token rides in the
// query string.
type WSHandler struct {
	hub      *ws.Hub
	auth     *auth.Service
	upgrader websocket.Upgrader
	logger   *zap.Logger
}

// NewWSHandler returns the handler.
func NewWSHandler(hub *ws.Hub, authSvc *auth.Service, logger *zap.Logger) *WSHandler {
	return &WSHandler{
		hub:  hub,
		auth: authSvc,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
		logger: logger,
	}
}

// Serve handles GET /ws?token=...
func (h *WSHandler) Serve(w http.ResponseWriter, r *http.Request) {
	token := r.URL.Query().Get("token")
	if _, err := h.auth.ValidateToken(token); err != nil {
		writeError(w, http.StatusUnauthorized, "invalid token")
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", zap.Error(err))
		return
	}

	// The request context dies when this handler returns; the connection
	// lives until the client goes away.
	c := h.hub.Register(conn)
	go c.Start(context.Background())
}
