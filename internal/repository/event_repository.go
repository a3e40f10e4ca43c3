package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/campuspulse/attendance-api/internal/models"
	appErrors "github.com/campuspulse/attendance-api/pkg/errors"
)

// EventRepository reads the event metadata slice the engine needs. The
// event CRUD layer owns writes to this table.
type EventRepository struct {
	db *sqlx.DB
}

// NewEventRepository constructs the repository.
func NewEventRepository(db *sqlx.DB) *EventRepository {
	return &EventRepository{db: db}
}

// GetMeta fetches the engine-relevant event metadata.
func (r *EventRepository) GetMeta(ctx context.Context, eventID string) (*models.EventMeta, error) {
	query := `SELECT id, title, declared_type, description, venue, team_mode, team_size, start_time, end_time, presence_policy
FROM events WHERE id = $1 LIMIT 1`
	var meta models.EventMeta
	if err := r.db.GetContext(ctx, &meta, query, eventID); err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "event not found")
		}
		return nil, fmt.Errorf("get event meta: %w", err)
	}
	return &meta, nil
}
