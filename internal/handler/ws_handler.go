package handler

import (
	"net/http"

	"barsync/internal/broadcast"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
)

// ViewerRegistry tracks connected viewer sessions.
type ViewerRegistry interface {
	Register(s broadcast.Session)
	Unregister(s broadcast.Session)
}

// WebSocketHandler upgrades viewers to WebSocket sessions on the hub.
type WebSocketHandler struct {
	viewers  ViewerRegistry
	upgrader websocket.Upgrader
	logger   zerolog.Logger
}

// NewWebSocketHandler creates a new WebSocket handler. Any origin may
// connect.
func NewWebSocketHandler(viewers ViewerRegistry, logger zerolog.Logger) *WebSocketHandler {
	return &WebSocketHandler{
		viewers: viewers,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
		logger: logger.With().Str("handler", "websocket").Logger(),
	}
}

// Serve handles GET /ws requests. It blocks until the viewer disconnects.
func (h *WebSocketHandler) Serve(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade has already replied with an HTTP error.
		h.logger.Warn().Err(err).Str("remote_addr", r.RemoteAddr).Msg("websocket upgrade failed")
		return
	}

	session := broadcast.NewWebSocketSession(conn, h.logger)
	h.viewers.Register(session)
	h.logger.Info().Str("session_id", session.ID()).Msg("viewer connected")

	defer func() {
		h.viewers.Unregister(session)
		_ = session.Close()
		h.logger.Info().Str("session_id", session.ID()).Msg("viewer disconnected")
	}()

	if err := session.ReadLoop(); err != nil {
		h.logger.Debug().Err(err).Str("session_id", session.ID()).Msg("viewer connection ended")
	}
}
