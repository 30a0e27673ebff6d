package ws

import (
	"context"
	"log/slog"
	"sync"
)

// historySize is how many recent activities a new client receives.
const historySize = 50

// Hub manages WebSocket connections and broadcasts activity to all clients.
type Hub struct {
	clients    map[*Client]bool
	broadcast  chan []byte
	register   chan *Client
	unregister chan *Client
	direct     chan directMessage
	logger     *slog.Logger
	mu         sync.RWMutex

	histMu  sync.Mutex
	history []Activity
}

// directMessage is a reply meant for one client only.
type directMessage struct {
	client  *Client
	message []byte
}

// Client represents a single WebSocket connection.
type Client struct {
	hub  *Hub
	send chan []byte
	conn wsConn
}

// NewHub creates a new WebSocket hub.
func NewHub(logger *slog.Logger) *Hub {
	if logger == nil {
		logger = slog.Default()
	}
	return &Hub{
		clients:    make(map[*Client]bool),
		broadcast:  make(chan []byte, 256),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		direct:     make(chan directMessage),
		logger:     logger,
	}
}

// Run starts the hub's event loop and returns when ctx is done.
func (h *Hub) Run(ctx context.Context) {
	for {
		select {
		case client := <-h.register:
			h.mu.Lock()
			h.clients[client] = true
			h.mu.Unlock()
			h.logger.Debug("websocket client connected")

		case client := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				close(client.send)
			}
			h.mu.Unlock()
			h.logger.Debug("websocket client disconnected")

		case d := <-h.direct:
			h.mu.RLock()
			if h.clients[d.client] {
				select {
				case d.client.send <- d.message:
				default:
				}
			}
			h.mu.RUnlock()

		case message := <-h.broadcast:
			h.mu.Lock()
			for client := range h.clients {
				select {
				case client.send <- message:
				default:
					close(client.send)
					delete(h.clients, client)
				}
			}
			h.mu.Unlock()

		case <-ctx.Done():
			h.mu.Lock()
			for client := range h.clients {
				close(client.send)
				delete(h.clients, client)
			}
			h.mu.Unlock()
			return
		}
	}
}

// Broadcast queues a message for all connected clients. When the queue is
// full the message is dropped rather than blocking the caller.
func (h *Hub) Broadcast(message []byte) {
	select {
	case h.broadcast <- message:
	default:
		h.logger.Warn("websocket broadcast queue full, dropping message")
	}
}

// Publish records an activity and broadcasts it.
func (h *Hub) Publish(a Activity) {
	h.histMu.Lock()
	h.history = append(h.history, a)
	if len(h.history) > historySize {
		h.history = h.history[len(h.history)-historySize:]
	}
	h.histMu.Unlock()

	msg, err := NewMessage(MsgActivity, a)
	if err != nil {
		h.logger.Error("failed to create activity message", "error", err)
		return
	}
	h.Broadcast(msg)
}

// BroadcastError broadcasts an error to all clients.
func (h *Hub) BroadcastError(errMsg string) {
	msg, err := NewMessage(MsgError, map[string]string{"message": errMsg})
	if err != nil {
		return
	}
	h.Broadcast(msg)
}

// History returns the most recent activities, oldest first.
func (h *Hub) History() []Activity {
	h.histMu.Lock()
	defer h.histMu.Unlock()
	return append([]Activity(nil), h.history...)
}

// ClientCount returns the number of connected clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

func (h *Hub) historyMessage() []byte {
	msg, err := NewMessage(MsgHistory, h.History())
	if err != nil {
		h.logger.Error("failed to create history message", "error", err)
		return nil
	}
	return msg
}
