package queries

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/lib/pq"

	"github.com/energydatahub/energyhub/pkg/models"
)

type MetricRepository struct {
	db *sql.DB
}

func NewMetricRepository(db *sql.DB) *MetricRepository {
	return &MetricRepository{db: db}
}

func (r *MetricRepository) Insert(ctx context.Context, m *models.CollectionMetric) error {
	query := `
		INSERT INTO collection_metrics
			(id, collector_name, range_start, range_end, started_at, ended_at,
			 duration_ms, outcome, reason, attempt_count, point_count, errors, warnings)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		ON CONFLICT (id) DO NOTHING`

	_, err := r.db.ExecContext(ctx, query,
		m.ID, m.CollectorName, m.RangeStart, m.RangeEnd, m.StartedAt, m.EndedAt,
		m.Duration.Milliseconds(), string(m.Outcome), string(m.Reason),
		m.AttemptCount, m.PointCount, pq.Array(m.Errors), pq.Array(m.Warnings),
	)
	if err != nil {
		return fmt.Errorf("failed to insert collection metric: %w", err)
	}
	return nil
}

// Recent returns up to limit metrics for one collector, newest first. An
// empty collector name returns metrics across all collectors.
func (r *MetricRepository) Recent(ctx context.Context, collectorName string, limit int) ([]models.CollectionMetric, error) {
	if limit <= 0 {
		limit = 20
	}

	query := `
		SELECT id, collector_name, range_start, range_end, started_at, ended_at,
		       duration_ms, outcome, reason, attempt_count, point_count, errors, warnings
		FROM collection_metrics
		WHERE ($1 = '' OR collector_name = $1)
		ORDER BY started_at DESC
		LIMIT $2`

	rows, err := r.db.QueryContext(ctx, query, collectorName, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query collection metrics: %w", err)
	}
	defer rows.Close()

	var metrics []models.CollectionMetric
	for rows.Next() {
		var m models.CollectionMetric
		var durationMs int64
		var outcome, reason string

		err := rows.Scan(
			&m.ID, &m.CollectorName, &m.RangeStart, &m.RangeEnd, &m.StartedAt, &m.EndedAt,
			&durationMs, &outcome, &reason, &m.AttemptCount, &m.PointCount,
			pq.Array(&m.Errors), pq.Array(&m.Warnings),
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan collection metric: %w", err)
		}

		m.Duration = time.Duration(durationMs) * time.Millisecond
		m.Outcome = models.Outcome(outcome)
		m.Reason = models.FailureReason(reason)
		metrics = append(metrics, m)
	}

	return metrics, rows.Err()
}
