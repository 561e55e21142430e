package websocket

import (
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
)

// Manager manages all WebSocket connections
type Manager struct {
	// Map of topic ("{itemKind}:{itemID}") -> set of connections watching it
	subscribers sync.Map // map[string]*sync.Map of *Client -> bool

	register   chan *Client
	unregister chan *Client
	broadcast  chan *BroadcastMessage

	log zerolog.Logger
}

// Client represents a WebSocket client connection
type Client struct {
	ID    string
	Topic string
	Conn  *websocket.Conn
	Send  chan []byte
}

// BroadcastMessage represents a message to broadcast to all clients watching a topic
type BroadcastMessage struct {
	Topic   string
	Payload []byte
}

// NewManager creates a new WebSocket manager
func NewManager(log zerolog.Logger) *Manager {
	return &Manager{
		register:   make(chan *Client),
		unregister: make(chan *Client),
		broadcast:  make(chan *BroadcastMessage, 256),
		log:        log,
	}
}

// Run starts the manager's main loop. This should run in a goroutine.
func (m *Manager) Run() {
	for {
		select {
		case client := <-m.register:
			m.registerClient(client)

		case client := <-m.unregister:
			m.unregisterClient(client)

		case message := <-m.broadcast:
			m.broadcastToTopic(message.Topic, message.Payload)
		}
	}
}

// RegisterClient adds a client to the manager
func (m *Manager) RegisterClient(client *Client) {
	m.register <- client
}

// UnregisterClient removes a client from the manager
func (m *Manager) UnregisterClient(client *Client) {
	m.unregister <- client
}

// Broadcast sends a message to all clients watching a topic
func (m *Manager) Broadcast(topic string, payload []byte) {
	m.broadcast <- &BroadcastMessage{
		Topic:   topic,
		Payload: payload,
	}
}

func (m *Manager) registerClient(client *Client) {
	subscribers, _ := m.subscribers.LoadOrStore(client.Topic, &sync.Map{})
	subscriberMap := subscribers.(*sync.Map)
	subscriberMap.Store(client, true)

	m.log.Info().Str("client", client.ID).Str("topic", client.Topic).Msg("client subscribed")

	go client.writePump()
}

func (m *Manager) unregisterClient(client *Client) {
	if subscribers, ok := m.subscribers.Load(client.Topic); ok {
		subscriberMap := subscribers.(*sync.Map)
		subscriberMap.Delete(client)
	}

	close(client.Send)
	client.Conn.Close()

	m.log.Info().Str("client", client.ID).Str("topic", client.Topic).Msg("client unsubscribed")
}

func (m *Manager) broadcastToTopic(topic string, payload []byte) {
	if subscribers, ok := m.subscribers.Load(topic); ok {
		subscriberMap := subscribers.(*sync.Map)

		count := 0
		subscriberMap.Range(func(key, value interface{}) bool {
			client := key.(*Client)
			select {
			case client.Send <- payload:
				count++
			default:
				// Client's send channel is full, disconnect them.
				// This prevents one slow client from blocking others.
				// Already on the manager goroutine, so drop the client
				// directly; sending on m.unregister here would block the
				// only receiver.
				m.unregisterClient(client)
			}
			return true
		})

		m.log.Debug().Int("clients", count).Str("topic", topic).Msg("broadcasted")
	}
}

// GetSubscriberCount returns the number of clients watching a topic
func (m *Manager) GetSubscriberCount(topic string) int {
	if subscribers, ok := m.subscribers.Load(topic); ok {
		subscriberMap := subscribers.(*sync.Map)
		count := 0
		subscriberMap.Range(func(_, _ interface{}) bool {
			count++
			return true
		})
		return count
	}
	return 0
}

// writePump pumps messages from the Send channel to the websocket connection
func (c *Client) writePump() {
	ticker := time.NewTicker(54 * time.Second)
	defer func() {
		ticker.Stop()
		c.Conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.Send:
			c.Conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if !ok {
				// Channel closed
				c.Conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			if err := c.Conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}

		case <-ticker.C:
			// Send ping to keep connection alive
			c.Conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if err := c.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// readPump pumps messages from the websocket connection to handle client input
func (c *Client) readPump(unregister chan *Client, log zerolog.Logger) {
	defer func() {
		unregister <- c
	}()

	c.Conn.SetReadDeadline(time.Now().Add(60 * time.Second))
	c.Conn.SetPongHandler(func(string) error {
		c.Conn.SetReadDeadline(time.Now().Add(60 * time.Second))
		return nil
	})

	for {
		_, message, err := c.Conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Warn().Err(err).Str("client", c.ID).Msg("websocket error")
			}
			break
		}

		log.Debug().Str("client", c.ID).Bytes("message", message).Msg("client message")
	}
}

// StartReadPump starts the read pump for this client
func (c *Client) StartReadPump(unregister chan *Client, log zerolog.Logger) {
	go c.readPump(unregister, log)
}
