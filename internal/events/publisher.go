package events

import (
	"fmt"

	"github.com/energydatahub/energyhub/pkg/models"
)

// Publisher is the write-side handle handed to collectors and the run
// orchestrator.
type Publisher struct {
	bus     *EventBus
	traceID string
}

func NewPublisher(bus *EventBus) *Publisher {
	return &Publisher{bus: bus}
}

func (p *Publisher) WithTraceID(traceID string) *Publisher {
	return &Publisher{
		bus:     p.bus,
		traceID: traceID,
	}
}

// Publish forwards an already-built event to the bus. This is the method
// collectors use through the EventSink interface.
func (p *Publisher) Publish(event *models.Event) {
	if p.traceID != "" && event.TraceID == "" {
		event.TraceID = p.traceID
	}
	p.bus.Publish(event)
}

func (p *Publisher) RunStarted(runID string, sourceCount int) {
	p.Publish(models.NewEvent(models.EventTypeRunStarted, "",
		fmt.Sprintf("collection run started for %d sources", sourceCount)).
		WithData(map[string]interface{}{"run_id": runID, "source_count": sourceCount}))
}

func (p *Publisher) RunComplete(summary *models.RunSummary) {
	event := models.NewEvent(models.EventTypeRunComplete, "",
		fmt.Sprintf("collection run complete: %d succeeded, %d partial, %d failed",
			summary.Succeeded, summary.Partial, summary.Failed)).
		WithData(summary)

	if summary.Failed > 0 {
		event.WithSeverity(models.SeverityWarning)
	}
	p.Publish(event)
}

func (p *Publisher) Error(collector string, message string, err error) {
	p.Publish(models.NewEvent(models.EventTypeError, collector, message).
		WithSeverity(models.SeverityCritical).
		WithData(map[string]interface{}{
			"error": err.Error(),
		}))
}
