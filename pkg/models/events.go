package models

import "time"

type EventType string

const (
	EventTypeCollectionStarted  EventType = "collection_started"
	EventTypeCollectionComplete EventType = "collection_complete"
	EventTypeCollectionPartial  EventType = "collection_partial"
	EventTypeCollectionFailed   EventType = "collection_failed"
	EventTypeBreakerStateChange EventType = "breaker_state_change"
	EventTypeRunStarted         EventType = "run_started"
	EventTypeRunComplete        EventType = "run_complete"
	EventTypeError              EventType = "error"
)

type EventSeverity string

const (
	SeverityInfo     EventSeverity = "info"
	SeverityWarning  EventSeverity = "warning"
	SeverityCritical EventSeverity = "critical"
)

// Event represents an internal system event
type Event struct {
	ID        string        `json:"id"`
	Type      EventType     `json:"type"`
	Severity  EventSeverity `json:"severity"`
	Collector string        `json:"collector,omitempty"`
	Timestamp time.Time     `json:"timestamp"`
	Message   string        `json:"message"`
	Data      interface{}   `json:"data,omitempty"`
	TraceID   string        `json:"trace_id,omitempty"`
}

func NewEvent(eventType EventType, collector, message string) *Event {
	return &Event{
		ID:        NewUUID(),
		Type:      eventType,
		Severity:  SeverityInfo,
		Collector: collector,
		Timestamp: time.Now(),
		Message:   message,
	}
}

func (e *Event) WithSeverity(severity EventSeverity) *Event {
	e.Severity = severity
	return e
}

func (e *Event) WithData(data interface{}) *Event {
	e.Data = data
	return e
}

func (e *Event) WithTraceID(traceID string) *Event {
	e.TraceID = traceID
	return e
}

// AllEventTypes lists every event type, used by subscribers that want the
// full stream.
func AllEventTypes() []EventType {
	return []EventType{
		EventTypeCollectionStarted,
		EventTypeCollectionComplete,
		EventTypeCollectionPartial,
		EventTypeCollectionFailed,
		EventTypeBreakerStateChange,
		EventTypeRunStarted,
		EventTypeRunComplete,
		EventTypeError,
	}
}
