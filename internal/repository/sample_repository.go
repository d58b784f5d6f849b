package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"AlcoMonitorAPI/internal/models"
)

type SampleRepository struct {
	db *sql.DB
}

func NewSampleRepository(db *sql.DB) *SampleRepository {
	return &SampleRepository{db: db}
}

func (r *SampleRepository) Insert(ctx context.Context, sample models.ChannelSample) error {
	query := `INSERT INTO samples (channel, timestamp, value) VALUES ($1, $2, $3)`

	if _, err := r.db.ExecContext(ctx, query, sample.Channel, sample.Timestamp, sample.Value); err != nil {
		return fmt.Errorf("failed to insert sample: %w", err)
	}
	return nil
}

// Range returns a channel's samples with from <= timestamp < to, oldest first.
func (r *SampleRepository) Range(ctx context.Context, channel models.Channel, from, to time.Time) ([]models.Sample, error) {
	query := `
		SELECT timestamp, value
		FROM samples
		WHERE channel = $1 AND timestamp >= $2 AND timestamp < $3
		ORDER BY timestamp ASC
	`

	rows, err := r.db.QueryContext(ctx, query, channel, from, to)
	if err != nil {
		return nil, fmt.Errorf("failed to query samples: %w", err)
	}
	defer rows.Close()

	samples := []models.Sample{}
	for rows.Next() {
		var s models.Sample
		if err := rows.Scan(&s.Timestamp, &s.Value); err != nil {
			return nil, fmt.Errorf("failed to scan sample: %w", err)
		}
		samples = append(samples, s)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate samples: %w", err)
	}

	return samples, nil
}

func (r *SampleRepository) DeleteOlderThan(ctx context.Context, before time.Time) (int64, error) {
	result, err := r.db.ExecContext(ctx, `DELETE FROM samples WHERE timestamp < $1`, before)
	if err != nil {
		return 0, fmt.Errorf("failed to delete old samples: %w", err)
	}
	return result.RowsAffected()
}
