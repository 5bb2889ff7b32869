package websocket

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"github.com/energydatahub/energyhub/internal/logger"
	"github.com/energydatahub/energyhub/pkg/config"
)

// Settings holds connection timing limits, derived from the
// api.websocket config section.
type Settings struct {
	WriteWait      time.Duration
	PongWait       time.Duration
	PingPeriod     time.Duration
	MaxMessageSize int64
	ClientBuffer   int
}

func newSettings(cfg config.WSConfig) Settings {
	s := Settings{
		WriteWait:      10 * time.Second,
		PongWait:       60 * time.Second,
		MaxMessageSize: 512,
		ClientBuffer:   256,
	}
	if cfg.WriteTimeout > 0 {
		s.WriteWait = cfg.WriteTimeout
	}
	if cfg.PongTimeout > 0 {
		s.PongWait = cfg.PongTimeout
	}
	if cfg.MaxMessageSize > 0 {
		s.MaxMessageSize = cfg.MaxMessageSize
	}
	if cfg.ClientBuffer > 0 {
		s.ClientBuffer = cfg.ClientBuffer
	}
	s.PingPeriod = (s.PongWait * 9) / 10
	if cfg.PingInterval > 0 && cfg.PingInterval < s.PongWait {
		s.PingPeriod = cfg.PingInterval
	}
	return s
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true // Allow all origins in dev
	},
}

type Client struct {
	hub  *Hub
	conn *websocket.Conn
	send chan []byte

	// collector filters delivery; empty means every event.
	mu        sync.RWMutex
	collector string
}

type IncomingMessage struct {
	Type      string `json:"type"`
	Collector string `json:"collector,omitempty"`
}

func NewClient(hub *Hub, conn *websocket.Conn, collector string) *Client {
	return &Client{
		hub:       hub,
		conn:      conn,
		send:      make(chan []byte, hub.settings.ClientBuffer),
		collector: collector,
	}
}

func (c *Client) wants(collector string) bool {
	if collector == "" {
		return true
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.collector == "" || c.collector == collector
}

func (c *Client) ReadPump() {
	defer func() {
		c.hub.Unregister(c)
		c.conn.Close()
	}()

	settings := c.hub.settings
	c.conn.SetReadLimit(settings.MaxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(settings.PongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(settings.PongWait))
		return nil
	})

	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				logger.Errorf("WebSocket error: %v", err)
			}
			break
		}

		var msg IncomingMessage
		if err := json.Unmarshal(message, &msg); err == nil {
			c.handleMessage(&msg)
		}
	}
}

func (c *Client) WritePump() {
	settings := c.hub.settings
	ticker := time.NewTicker(settings.PingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(settings.WriteWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			w, err := c.conn.NextWriter(websocket.TextMessage)
			if err != nil {
				return
			}
			w.Write(message)

			// Add queued messages to current websocket frame
			n := len(c.send)
			for i := 0; i < n; i++ {
				w.Write([]byte{'\n'})
				w.Write(<-c.send)
			}

			if err := w.Close(); err != nil {
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(settings.WriteWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (c *Client) handleMessage(msg *IncomingMessage) {
	switch msg.Type {
	case "subscribe":
		c.mu.Lock()
		c.collector = msg.Collector
		c.mu.Unlock()
	case "unsubscribe":
		c.mu.Lock()
		c.collector = ""
		c.mu.Unlock()
	}
}

// ServeWebSocket upgrades the connection and starts the client pumps.
// An optional ?collector= query parameter pre-filters the stream.
func ServeWebSocket(hub *Hub) gin.HandlerFunc {
	return func(c *gin.Context) {
		conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
		if err != nil {
			logger.Errorf("WebSocket upgrade failed: %v", err)
			return
		}

		client := NewClient(hub, conn, c.Query("collector"))
		hub.Register(client)

		go client.WritePump()
		go client.ReadPump()
	}
}
