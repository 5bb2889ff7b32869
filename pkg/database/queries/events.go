package queries

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/energydatahub/energyhub/pkg/models"
)

type EventRepository struct {
	db *sql.DB
}

func NewEventRepository(db *sql.DB) *EventRepository {
	return &EventRepository{db: db}
}

func (r *EventRepository) Insert(ctx context.Context, e *models.Event) error {
	var data []byte
	if e.Data != nil {
		var err error
		data, err = json.Marshal(e.Data)
		if err != nil {
			return fmt.Errorf("failed to marshal event data: %w", err)
		}
	}

	query := `
		INSERT INTO events (id, type, severity, collector, occurred_at, message, data, trace_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (id) DO NOTHING`

	_, err := r.db.ExecContext(ctx, query,
		e.ID, string(e.Type), string(e.Severity), e.Collector, e.Timestamp, e.Message, data, e.TraceID,
	)
	if err != nil {
		return fmt.Errorf("failed to insert event: %w", err)
	}
	return nil
}

func (r *EventRepository) Recent(ctx context.Context, limit int) ([]models.Event, error) {
	if limit <= 0 {
		limit = 50
	}

	query := `
		SELECT id, type, severity, collector, occurred_at, message, data, trace_id
		FROM events
		ORDER BY occurred_at DESC
		LIMIT $1`

	rows, err := r.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query events: %w", err)
	}
	defer rows.Close()

	var events []models.Event
	for rows.Next() {
		var e models.Event
		var eventType, severity string
		var data []byte
		var collector, traceID sql.NullString

		err := rows.Scan(&e.ID, &eventType, &severity, &collector, &e.Timestamp, &e.Message, &data, &traceID)
		if err != nil {
			return nil, fmt.Errorf("failed to scan event: %w", err)
		}

		e.Type = models.EventType(eventType)
		e.Severity = models.EventSeverity(severity)
		e.Collector = collector.String
		e.TraceID = traceID.String
		if len(data) > 0 {
			var v interface{}
			if err := json.Unmarshal(data, &v); err == nil {
				e.Data = v
			}
		}
		events = append(events, e)
	}

	return events, rows.Err()
}
