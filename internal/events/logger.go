package events

import (
	"context"
	"time"

	"github.com/energydatahub/energyhub/internal/logger"
	"github.com/energydatahub/energyhub/pkg/database/queries"
	"github.com/energydatahub/energyhub/pkg/models"
)

const insertTimeout = 5 * time.Second

// EventLogger drains the bus and persists every event for dashboards.
// Runs on its own goroutine; a nil repository degrades to log-only mode.
type EventLogger struct {
	repo      *queries.EventRepository
	eventChan <-chan *models.Event
	ctx       context.Context
	cancel    context.CancelFunc
	done      chan struct{}
}

func NewEventLogger(repo *queries.EventRepository, eventChan <-chan *models.Event) *EventLogger {
	ctx, cancel := context.WithCancel(context.Background())
	return &EventLogger{
		repo:      repo,
		eventChan: eventChan,
		ctx:       ctx,
		cancel:    cancel,
		done:      make(chan struct{}),
	}
}

func (l *EventLogger) Start() {
	go l.run()
}

func (l *EventLogger) Stop() {
	l.cancel()
	<-l.done
}

func (l *EventLogger) run() {
	defer close(l.done)
	for {
		select {
		case <-l.ctx.Done():
			return
		case event, ok := <-l.eventChan:
			if !ok {
				return
			}
			l.persist(event)
		}
	}
}

func (l *EventLogger) persist(event *models.Event) {
	if l.repo == nil {
		logger.WithField("event_type", event.Type).Debugf("Event: %s", event.Message)
		return
	}

	ctx, cancel := context.WithTimeout(l.ctx, insertTimeout)
	defer cancel()

	if err := l.repo.Insert(ctx, event); err != nil {
		logger.Errorf("Failed to persist %s event: %v", event.Type, err)
	}
}
