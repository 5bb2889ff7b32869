package queries

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/energydatahub/energyhub/pkg/models"
)

type RunRepository struct {
	db *sql.DB
}

func NewRunRepository(db *sql.DB) *RunRepository {
	return &RunRepository{db: db}
}

func (r *RunRepository) Insert(ctx context.Context, s *models.RunSummary) error {
	query := `
		INSERT INTO run_summaries
			(id, started_at, ended_at, duration_ms, source_count, succeeded, partial, failed, total_points)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (id) DO NOTHING`

	_, err := r.db.ExecContext(ctx, query,
		s.ID, s.StartedAt, s.EndedAt, s.Duration.Milliseconds(),
		s.SourceCount, s.Succeeded, s.Partial, s.Failed, s.TotalPoints,
	)
	if err != nil {
		return fmt.Errorf("failed to insert run summary: %w", err)
	}
	return nil
}

func (r *RunRepository) Recent(ctx context.Context, limit int) ([]models.RunSummary, error) {
	if limit <= 0 {
		limit = 20
	}

	query := `
		SELECT id, started_at, ended_at, duration_ms, source_count, succeeded, partial, failed, total_points
		FROM run_summaries
		ORDER BY started_at DESC
		LIMIT $1`

	rows, err := r.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query run summaries: %w", err)
	}
	defer rows.Close()

	var summaries []models.RunSummary
	for rows.Next() {
		var s models.RunSummary
		var durationMs int64

		err := rows.Scan(
			&s.ID, &s.StartedAt, &s.EndedAt, &durationMs,
			&s.SourceCount, &s.Succeeded, &s.Partial, &s.Failed, &s.TotalPoints,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan run summary: %w", err)
		}

		s.Duration = time.Duration(durationMs) * time.Millisecond
		summaries = append(summaries, s)
	}

	return summaries, rows.Err()
}
