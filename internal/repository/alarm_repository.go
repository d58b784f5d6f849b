package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"AlcoMonitorAPI/internal/models"
)

type AlarmRepository struct {
	db *sql.DB
}

func NewAlarmRepository(db *sql.DB) *AlarmRepository {
	return &AlarmRepository{db: db}
}

func (r *AlarmRepository) Create(ctx context.Context, alarm *models.Alarm) error {
	query := `
		INSERT INTO alarms (id, signal, message, value, threshold, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`

	_, err := r.db.ExecContext(
		ctx, query,
		alarm.ID,
		alarm.Signal,
		alarm.Message,
		alarm.Value,
		alarm.Threshold,
		alarm.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create alarm: %w", err)
	}

	return nil
}

// List returns alarms newest first.
func (r *AlarmRepository) List(ctx context.Context, limit, offset int) ([]models.Alarm, error) {
	query := `
		SELECT id, signal, message, value, threshold, created_at
		FROM alarms
		ORDER BY created_at DESC
		LIMIT $1 OFFSET $2
	`

	rows, err := r.db.QueryContext(ctx, query, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to query alarms: %w", err)
	}
	defer rows.Close()

	alarms := []models.Alarm{}
	for rows.Next() {
		var a models.Alarm
		if err := rows.Scan(&a.ID, &a.Signal, &a.Message, &a.Value, &a.Threshold, &a.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan alarm: %w", err)
		}
		alarms = append(alarms, a)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate alarms: %w", err)
	}

	return alarms, nil
}

func (r *AlarmRepository) DeleteOlderThan(ctx context.Context, before time.Time) (int64, error) {
	result, err := r.db.ExecContext(ctx, `DELETE FROM alarms WHERE created_at < $1`, before)
	if err != nil {
		return 0, fmt.Errorf("failed to delete old alarms: %w", err)
	}
	return result.RowsAffected()
}
