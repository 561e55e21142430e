package websocket

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

// newTestConn establishes a real WebSocket connection and returns both halves
func newTestConn(t *testing.T) (server, client *websocket.Conn, cleanup func()) {
	t.Helper()

	serverConns := make(chan *websocket.Conn, 1)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		serverConns <- conn
	}))

	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	clientConn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	serverConn := <-serverConns

	return serverConn, clientConn, func() {
		clientConn.Close()
		serverConn.Close()
		srv.Close()
	}
}

func readMessage(t *testing.T, conn *websocket.Conn) string {
	t.Helper()

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, payload, err := conn.ReadMessage()
	require.NoError(t, err)
	return string(payload)
}

func TestRegisterAndBroadcast(t *testing.T) {
	m := NewManager(zerolog.Nop())
	go m.Run()

	serverConn, clientConn, cleanup := newTestConn(t)
	defer cleanup()

	m.RegisterClient(&Client{
		ID:    "client-1",
		Topic: "auction:1",
		Conn:  serverConn,
		Send:  make(chan []byte, 256),
	})

	require.Eventually(t, func() bool {
		return m.GetSubscriberCount("auction:1") == 1
	}, 2*time.Second, 10*time.Millisecond)

	m.Broadcast("auction:1", []byte(`{"kind":"bid_placed"}`))
	require.JSONEq(t, `{"kind":"bid_placed"}`, readMessage(t, clientConn))

	// unrelated topics stay silent
	require.Equal(t, 0, m.GetSubscriberCount("auction:2"))
}

// A subscriber whose send buffer is full must be dropped without stalling the
// manager loop; the remaining clients keep receiving.
func TestBroadcastDropsSlowClientWithoutBlocking(t *testing.T) {
	m := NewManager(zerolog.Nop())
	go m.Run()

	slowConn, _, cleanupSlow := newTestConn(t)
	defer cleanupSlow()

	slow := &Client{
		ID:    "slow",
		Topic: "auction:1",
		Conn:  slowConn,
		Send:  make(chan []byte, 1),
	}
	slow.Send <- []byte("backlog") // buffer full, nothing draining it

	// seed the subscriber set directly so no write pump drains the channel
	subscribers := &sync.Map{}
	subscribers.Store(slow, true)
	m.subscribers.Store(slow.Topic, subscribers)

	m.Broadcast("auction:1", []byte(`{"kind":"bid_placed"}`))

	// the manager must still be processing registrations afterwards
	healthyServer, healthyClient, cleanupHealthy := newTestConn(t)
	defer cleanupHealthy()

	registered := make(chan struct{})
	go func() {
		m.RegisterClient(&Client{
			ID:    "healthy",
			Topic: "auction:1",
			Conn:  healthyServer,
			Send:  make(chan []byte, 256),
		})
		close(registered)
	}()

	select {
	case <-registered:
	case <-time.After(2 * time.Second):
		t.Fatal("manager stopped accepting clients after broadcasting to a slow client")
	}

	// the slow client was dropped, the healthy one remains and keeps receiving
	require.Eventually(t, func() bool {
		return m.GetSubscriberCount("auction:1") == 1
	}, 2*time.Second, 10*time.Millisecond)

	m.Broadcast("auction:1", []byte(`{"kind":"auction_claimed"}`))
	require.JSONEq(t, `{"kind":"auction_claimed"}`, readMessage(t, healthyClient))
}
