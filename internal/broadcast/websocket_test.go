package broadcast

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"barsync/internal/model"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// wsServer upgrades every request, registers the session with hub and runs
// its read loop until the client goes away.
func wsServer(t *testing.T, hub *Hub) *httptest.Server {
	upgrader := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		session := NewWebSocketSession(conn, zerolog.Nop())
		hub.Register(session)
		defer func() {
			hub.Unregister(session)
			_ = session.Close()
		}()
		_ = session.ReadLoop()
	}))
	t.Cleanup(srv.Close)
	return srv
}

func dial(t *testing.T, srv *httptest.Server) *websocket.Conn {
	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func TestWebSocketSession_ReceivesPublishedEvents(t *testing.T) {
	hub := newTestHub(t, DefaultOptions())
	srv := wsServer(t, hub)

	conn := dial(t, srv)
	require.Eventually(t, func() bool { return hub.Len() == 1 }, waitFor, 5*time.Millisecond)

	// Client chatter is tolerated.
	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte("hello")))

	hub.Publish(model.ChangeEvent{
		Type:  model.EventOrderCreated,
		ID:    "order1",
		Order: &model.Order{ID: "order1", Status: model.StatusPending},
	})

	var ev model.ChangeEvent
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(waitFor)))
	require.NoError(t, conn.ReadJSON(&ev))
	assert.Equal(t, model.EventOrderCreated, ev.Type)
	require.NotNil(t, ev.Order)
	assert.Equal(t, model.StatusPending, ev.Order.Status)
}

func TestWebSocketSession_DisconnectUnregisters(t *testing.T) {
	hub := newTestHub(t, DefaultOptions())
	srv := wsServer(t, hub)

	conn := dial(t, srv)
	require.Eventually(t, func() bool { return hub.Len() == 1 }, waitFor, 5*time.Millisecond)

	msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
	require.NoError(t, conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(time.Second)))

	require.Eventually(t, func() bool { return hub.Len() == 0 }, waitFor, 5*time.Millisecond)
}

func TestWebSocketSession_CloseIsIdempotent(t *testing.T) {
	var session *WebSocketSession
	ready := make(chan struct{})

	upgrader := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		session = NewWebSocketSession(conn, zerolog.Nop())
		close(ready)
		_ = session.ReadLoop()
	}))
	defer srv.Close()

	dial(t, srv)
	<-ready

	first := session.Close()
	second := session.Close()
	assert.Equal(t, first, second)
	assert.NotEmpty(t, session.ID())
}
