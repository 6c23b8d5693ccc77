package broadcast

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
)

const (
	defaultWriteWait = 5 * time.Second
	closeWait        = time.Second
	maxClientMessage = 4096
)

// WebSocketSession is a browser viewer connected over a WebSocket. Send is
// only ever called from the hub's delivery goroutine for this session, which
// keeps gorilla's single-writer rule.
type WebSocketSession struct {
	id     string
	conn   *websocket.Conn
	logger zerolog.Logger

	closeOnce sync.Once
	closeErr  error
}

// NewWebSocketSession wraps an upgraded connection.
func NewWebSocketSession(conn *websocket.Conn, logger zerolog.Logger) *WebSocketSession {
	id := uuid.NewString()
	return &WebSocketSession{
		id:   id,
		conn: conn,
		logger: logger.With().
			Str("component", "websocket-session").
			Str("session_id", id).
			Str("remote_addr", conn.RemoteAddr().String()).
			Logger(),
	}
}

// ID returns the session identifier.
func (s *WebSocketSession) ID() string {
	return s.id
}

// Send writes one text frame before the context deadline.
func (s *WebSocketSession) Send(ctx context.Context, payload []byte) error {
	deadline, ok := ctx.Deadline()
	if !ok {
		deadline = time.Now().Add(defaultWriteWait)
	}
	if err := s.conn.SetWriteDeadline(deadline); err != nil {
		return err
	}
	return s.conn.WriteMessage(websocket.TextMessage, payload)
}

// ReadLoop consumes client frames until the connection fails or closes.
// Client messages carry no meaning and are only logged. It returns nil on a
// normal close.
func (s *WebSocketSession) ReadLoop() error {
	s.conn.SetReadLimit(maxClientMessage)
	for {
		_, msg, err := s.conn.ReadMessage()
		if err != nil {
			if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				return nil
			}
			return err
		}
		s.logger.Debug().Bytes("message", msg).Msg("received client message")
	}
}

// Close sends a close frame and closes the connection. Safe to call more than
// once and concurrently with Send.
func (s *WebSocketSession) Close() error {
	s.closeOnce.Do(func() {
		msg := websocket.FormatCloseMessage(websocket.CloseGoingAway, "")
		err := s.conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(closeWait))
		if err != nil && !errors.Is(err, websocket.ErrCloseSent) {
			s.logger.Debug().Err(err).Msg("failed to send close frame")
		}
		s.closeErr = s.conn.Close()
	})
	return s.closeErr
}
