package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"AlcoMonitorAPI/internal/models"
)

type CommandRepository struct {
	db *sql.DB
}

func NewCommandRepository(db *sql.DB) *CommandRepository {
	return &CommandRepository{db: db}
}

func (r *CommandRepository) Create(ctx context.Context, cmd *models.Command) error {
	query := `
		INSERT INTO commands (id, topic, payload, status, issued_at)
		VALUES ($1, $2, $3, $4, $5)
	`

	_, err := r.db.ExecContext(ctx, query, cmd.ID, cmd.Topic, cmd.Payload, cmd.Status, cmd.IssuedAt)
	if err != nil {
		return fmt.Errorf("failed to create command: %w", err)
	}

	return nil
}

func (r *CommandRepository) UpdateStatus(ctx context.Context, id, status, errMsg string, sentAt *time.Time) error {
	query := `
		UPDATE commands
		SET status = $1, error = $2, sent_at = $3
		WHERE id = $4
	`

	result, err := r.db.ExecContext(ctx, query, status, errMsg, sentAt, id)
	if err != nil {
		return fmt.Errorf("failed to update command status: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("command not found: %s", id)
	}

	return nil
}

func (r *CommandRepository) ListRecent(ctx context.Context, limit int) ([]models.Command, error) {
	query := `
		SELECT id, topic, payload, status, error, issued_at, sent_at
		FROM commands
		ORDER BY issued_at DESC
		LIMIT $1
	`

	rows, err := r.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query commands: %w", err)
	}
	defer rows.Close()

	commands := []models.Command{}
	for rows.Next() {
		var c models.Command
		if err := rows.Scan(&c.ID, &c.Topic, &c.Payload, &c.Status, &c.Error, &c.IssuedAt, &c.SentAt); err != nil {
			return nil, fmt.Errorf("failed to scan command: %w", err)
		}
		commands = append(commands, c)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate commands: %w", err)
	}

	return commands, nil
}
