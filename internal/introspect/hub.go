// Package introspect exposes a small HTTP+WebSocket admin surface for
// an irrecvd daemon: listing attached receivers, dumping the current
// NFA/DFA as graphviz dot text, listing the compiled decoders cached in
// internal/cache, and streaming live decode events and log lines to
// connected operator consoles.
package introspect

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/gofiber/websocket/v2"
	"github.com/google/uuid"
)

// MessageType tags the kind of payload a Hub message carries.
type MessageType string

const (
	MessageTypeDecodeEvent MessageType = "decode_event"
	MessageTypeLog         MessageType = "log"
	MessageTypeReceiver    MessageType = "receiver_status"
)

// Message is one WebSocket frame sent to operator consoles.
type Message struct {
	Type      MessageType            `json:"type"`
	Timestamp time.Time              `json:"timestamp"`
	Data      map[string]interface{} `json:"data"`
}

// Client is one connected WebSocket operator console.
type Client struct {
	ID   string
	Conn *websocket.Conn
	Send chan Message
	Hub  *Hub
}

// Hub maintains the set of connected operator consoles and
// broadcasts messages to all of them.
type Hub struct {
	clients    map[string]*Client
	broadcast  chan Message
	register   chan *Client
	unregister chan *Client
	mu         sync.RWMutex
}

// NewHub creates an empty Hub. Call Run in a goroutine before use.
func NewHub() *Hub {
	return &Hub{
		clients:    make(map[string]*Client),
		broadcast:  make(chan Message, 256),
		register:   make(chan *Client),
		unregister: make(chan *Client),
	}
}

// Run processes register/unregister/broadcast events until stopped
// (it has no stop signal of its own; the caller cancels by exiting
// the process or abandoning the goroutine, matching the teacher's
// own hub's lifecycle).
func (h *Hub) Run() {
	for {
		select {
		case client := <-h.register:
			h.registerClient(client)
		case client := <-h.unregister:
			h.unregisterClient(client)
		case message := <-h.broadcast:
			h.broadcastMessage(message)
		}
	}
}

func (h *Hub) registerClient(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.clients[client.ID] = client
}

func (h *Hub) unregisterClient(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.clients[client.ID]; ok {
		delete(h.clients, client.ID)
		close(client.Send)
	}
}

func (h *Hub) broadcastMessage(message Message) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, client := range h.clients {
		select {
		case client.Send <- message:
		default:
		}
	}
}

// Broadcast queues a message for delivery to every connected client.
func (h *Hub) Broadcast(messageType MessageType, data map[string]interface{}) {
	h.broadcast <- Message{Type: messageType, Timestamp: time.Now(), Data: data}
}

// BroadcastLog adapts logger.BroadcastFunc's signature, so
// logger.SetBroadcaster(hub.BroadcastLog) wires the log bridge core
// straight into this hub.
func (h *Hub) BroadcastLog(level, message, source string, fields map[string]interface{}) {
	data := map[string]interface{}{"level": level, "message": message, "source": source}
	for k, v := range fields {
		data[k] = v
	}
	h.Broadcast(MessageTypeLog, data)
}

// ClientCount returns the number of connected operator consoles.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// HandleWebSocket registers c as a new client and pumps messages
// until the connection closes.
func (h *Hub) HandleWebSocket(c *websocket.Conn) {
	client := &Client{
		ID:   uuid.NewString(),
		Conn: c,
		Send: make(chan Message, 256),
		Hub:  h,
	}
	h.register <- client

	go client.writePump()
	client.readPump()
}

func (c *Client) readPump() {
	defer func() {
		c.Hub.unregister <- c
		c.Conn.Close()
	}()
	for {
		if _, _, err := c.Conn.ReadMessage(); err != nil {
			break
		}
	}
}

func (c *Client) writePump() {
	ticker := time.NewTicker(30 * time.Second)
	defer func() {
		ticker.Stop()
		c.Conn.Close()
	}()
	for {
		select {
		case message, ok := <-c.Send:
			if !ok {
				c.Conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			data, err := json.Marshal(message)
			if err != nil {
				continue
			}
			if err := c.Conn.WriteMessage(websocket.TextMessage, data); err != nil {
				return
			}
		case <-ticker.C:
			if err := c.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
