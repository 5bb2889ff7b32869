package websocket

import (
	"context"
	"encoding/json"
	"time"

	"github.com/energydatahub/energyhub/internal/logger"
	"github.com/energydatahub/energyhub/pkg/models"
)

// EventBridge forwards bus events to WebSocket clients
type EventBridge struct {
	hub        *Hub
	eventsChan <-chan *models.Event
	ctx        context.Context
	cancel     context.CancelFunc
}

func NewEventBridge(hub *Hub, eventsChan <-chan *models.Event) *EventBridge {
	ctx, cancel := context.WithCancel(context.Background())
	return &EventBridge{
		hub:        hub,
		eventsChan: eventsChan,
		ctx:        ctx,
		cancel:     cancel,
	}
}

func (b *EventBridge) Start() {
	go b.run()
	logger.Info("WebSocket event bridge started")
}

func (b *EventBridge) Stop() {
	b.cancel()
	logger.Info("WebSocket event bridge stopped")
}

func (b *EventBridge) run() {
	for {
		select {
		case <-b.ctx.Done():
			return
		case event, ok := <-b.eventsChan:
			if !ok {
				logger.Info("Event channel closed, stopping bridge")
				return
			}
			b.forwardEvent(event)
		}
	}
}

// StreamMessage is the message format sent to WebSocket clients
type StreamMessage struct {
	Type      string      `json:"type"`
	Collector string      `json:"collector,omitempty"`
	Timestamp time.Time   `json:"timestamp"`
	Severity  string      `json:"severity,omitempty"`
	Message   string      `json:"message,omitempty"`
	Data      interface{} `json:"data,omitempty"`
}

func (b *EventBridge) forwardEvent(event *models.Event) {
	msg := StreamMessage{
		Type:      string(event.Type),
		Collector: event.Collector,
		Timestamp: event.Timestamp,
		Severity:  string(event.Severity),
		Message:   event.Message,
		Data:      event.Data,
	}

	payload, err := json.Marshal(msg)
	if err != nil {
		logger.Errorf("Failed to marshal WebSocket message: %v", err)
		return
	}

	b.hub.Broadcast(event.Collector, payload)
}
