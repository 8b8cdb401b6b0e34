package web

import (
	"encoding/json"
	"sync"

	"github.com/gorilla/websocket"

	"github.com/codefionn/werkbote/internal/logger"
)

// StreamEvent is one message pushed to connected stream clients.
type StreamEvent struct {
	Kind    string      `json:"kind"` // "audit" or "scheduled"
	Payload interface{} `json:"payload"`
}

// Hub fans out stream events to all connected websocket clients.
type Hub struct {
	mu        sync.Mutex
	clients   map[*websocket.Conn]chan []byte
	broadcast chan []byte
	quit      chan struct{}
	closeOnce sync.Once
}

func NewHub() *Hub {
	return &Hub{
		clients:   make(map[*websocket.Conn]chan []byte),
		broadcast: make(chan []byte, 256),
		quit:      make(chan struct{}),
	}
}

// Run pumps broadcast messages to clients until Stop is called.
func (h *Hub) Run() {
	for {
		select {
		case <-h.quit:
			return
		case message := <-h.broadcast:
			h.mu.Lock()
			for conn, send := range h.clients {
				select {
				case send <- message:
				default:
					// Slow client; drop it rather than stalling the hub.
					delete(h.clients, conn)
					close(send)
				}
			}
			h.mu.Unlock()
		}
	}
}

// Stop shuts the hub down and releases every client's write pump.
func (h *Hub) Stop() {
	h.closeOnce.Do(func() {
		close(h.quit)

		h.mu.Lock()
		for conn, send := range h.clients {
			delete(h.clients, conn)
			close(send)
		}
		h.mu.Unlock()
	})
}

// Broadcast queues an event for all clients. Never blocks; events are
// dropped when the queue is full.
func (h *Hub) Broadcast(event *StreamEvent) {
	data, err := json.Marshal(event)
	if err != nil {
		logger.Error("web: failed to encode stream event: %v", err)
		return
	}

	select {
	case h.broadcast <- data:
	default:
		logger.Warn("web: stream backlog full, dropped %s event", event.Kind)
	}
}

// attach registers a connection and starts its write pump. Connections
// arriving after Stop are closed immediately.
func (h *Hub) attach(conn *websocket.Conn) {
	send := make(chan []byte, 64)

	h.mu.Lock()
	select {
	case <-h.quit:
		h.mu.Unlock()
		conn.Close()
		return
	default:
	}
	h.clients[conn] = send
	h.mu.Unlock()

	go func() {
		defer conn.Close()
		for message := range send {
			if err := conn.WriteMessage(websocket.TextMessage, message); err != nil {
				h.detach(conn)
				return
			}
		}
	}()
}

func (h *Hub) detach(conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if send, ok := h.clients[conn]; ok {
		delete(h.clients, conn)
		close(send)
	}
}
