package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/campuspulse/attendance-api/internal/models"
	appErrors "github.com/campuspulse/attendance-api/pkg/errors"
)

// CheckpointRepository persists checkpoint schedules.
type CheckpointRepository struct {
	db *sqlx.DB
}

// NewCheckpointRepository constructs the repository.
func NewCheckpointRepository(db *sqlx.DB) *CheckpointRepository {
	return &CheckpointRepository{db: db}
}

const checkpointColumns = `id, event_id, name, type, start_time, end_time, weight, mandatory, non_exclusive, position, created_at, updated_at`

// ListByEvent returns the event's checkpoints ordered by start time.
func (r *CheckpointRepository) ListByEvent(ctx context.Context, eventID string) ([]models.CheckpointDefinition, error) {
	query := fmt.Sprintf(`SELECT %s FROM checkpoints WHERE event_id = $1 ORDER BY start_time ASC, position ASC`, checkpointColumns)
	var checkpoints []models.CheckpointDefinition
	if err := r.db.SelectContext(ctx, &checkpoints, query, eventID); err != nil {
		return nil, fmt.Errorf("list checkpoints: %w", err)
	}
	return checkpoints, nil
}

// GetByID fetches one checkpoint.
func (r *CheckpointRepository) GetByID(ctx context.Context, checkpointID string) (*models.CheckpointDefinition, error) {
	query := fmt.Sprintf(`SELECT %s FROM checkpoints WHERE id = $1 LIMIT 1`, checkpointColumns)
	var cp models.CheckpointDefinition
	if err := r.db.GetContext(ctx, &cp, query, checkpointID); err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "checkpoint not found")
		}
		return nil, fmt.Errorf("get checkpoint: %w", err)
	}
	return &cp, nil
}

// ReplaceForEvent swaps the event's schedule in one transaction. Caller is
// responsible for validating the new schedule first.
func (r *CheckpointRepository) ReplaceForEvent(ctx context.Context, eventID string, checkpoints []models.CheckpointDefinition) ([]models.CheckpointDefinition, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin replace schedule: %w", err)
	}
	commit := false
	defer func() {
		if !commit {
			tx.Rollback()
		}
	}()

	if _, err := tx.ExecContext(ctx, `DELETE FROM checkpoints WHERE event_id = $1`, eventID); err != nil {
		return nil, fmt.Errorf("clear schedule: %w", err)
	}

	now := time.Now().UTC()
	insert := fmt.Sprintf(`INSERT INTO checkpoints (%s)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`, checkpointColumns)
	stored := make([]models.CheckpointDefinition, len(checkpoints))
	for i := range checkpoints {
		cp := checkpoints[i]
		if cp.ID == "" {
			cp.ID = uuid.NewString()
		}
		cp.EventID = eventID
		cp.Position = i
		if cp.CreatedAt.IsZero() {
			cp.CreatedAt = now
		}
		cp.UpdatedAt = now
		if _, err := tx.ExecContext(ctx, insert,
			cp.ID, cp.EventID, cp.Name, cp.Type, cp.StartTime, cp.EndTime,
			cp.Weight, cp.Mandatory, cp.NonExclusive, cp.Position, cp.CreatedAt, cp.UpdatedAt); err != nil {
			return nil, fmt.Errorf("insert checkpoint %s: %w", cp.Name, err)
		}
		stored[i] = cp
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit schedule: %w", err)
	}
	commit = true
	return stored, nil
}
