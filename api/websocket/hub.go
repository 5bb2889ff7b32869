package websocket

import (
	"sync"

	"github.com/energydatahub/energyhub/internal/logger"
	"github.com/energydatahub/energyhub/pkg/config"
)

const defaultBroadcastBuffer = 256

type broadcastMessage struct {
	collector string
	payload   []byte
}

// Hub fans collection events out to connected WebSocket clients. A
// client may filter on one collector; events without a collector
// (run-level events) reach everyone.
type Hub struct {
	clients    map[*Client]bool
	broadcast  chan broadcastMessage
	register   chan *Client
	unregister chan *Client
	mu         sync.RWMutex
	settings   Settings
}

func NewHub(cfg config.WSConfig) *Hub {
	settings := newSettings(cfg)

	broadcastBuffer := defaultBroadcastBuffer
	if cfg.BroadcastBuffer > 0 {
		broadcastBuffer = cfg.BroadcastBuffer
	}

	return &Hub{
		clients:    make(map[*Client]bool),
		broadcast:  make(chan broadcastMessage, broadcastBuffer),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		settings:   settings,
	}
}

func (h *Hub) Run() {
	for {
		select {
		case client := <-h.register:
			h.mu.Lock()
			h.clients[client] = true
			h.mu.Unlock()
			logger.Infof("WebSocket client connected (total: %d)", h.ClientCount())

		case client := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				close(client.send)
			}
			h.mu.Unlock()
			logger.Infof("WebSocket client disconnected (total: %d)", h.ClientCount())

		case msg := <-h.broadcast:
			h.deliver(msg)
		}
	}
}

func (h *Hub) deliver(msg broadcastMessage) {
	var stale []*Client

	h.mu.RLock()
	for client := range h.clients {
		if !client.wants(msg.collector) {
			continue
		}
		select {
		case client.send <- msg.payload:
		default:
			stale = append(stale, client)
		}
	}
	h.mu.RUnlock()

	if len(stale) == 0 {
		return
	}

	h.mu.Lock()
	for _, client := range stale {
		if _, ok := h.clients[client]; ok {
			delete(h.clients, client)
			close(client.send)
		}
	}
	h.mu.Unlock()
}

// Broadcast queues a message for clients interested in the given
// collector. An empty collector reaches all clients.
func (h *Hub) Broadcast(collector string, payload []byte) {
	select {
	case h.broadcast <- broadcastMessage{collector: collector, payload: payload}:
	default:
		logger.Warn("Broadcast channel full, dropping message")
	}
}

func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

func (h *Hub) Register(client *Client) {
	h.register <- client
}

func (h *Hub) Unregister(client *Client) {
	h.unregister <- client
}
