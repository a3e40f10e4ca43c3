package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/campuspulse/attendance-api/internal/models"
)

// RegistrationRepository answers registration questions for the
// verification gateway. The registration CRUD layer owns writes.
type RegistrationRepository struct {
	db *sqlx.DB
}

// NewRegistrationRepository constructs the repository.
func NewRegistrationRepository(db *sqlx.DB) *RegistrationRepository {
	return &RegistrationRepository{db: db}
}

// IsRegistered reports whether the participant is registered for the event.
func (r *RegistrationRepository) IsRegistered(ctx context.Context, participantID, eventID string) (bool, error) {
	query := `SELECT EXISTS (SELECT 1 FROM registrations WHERE participant_id = $1 AND event_id = $2)`
	var registered bool
	if err := r.db.GetContext(ctx, &registered, query, participantID, eventID); err != nil {
		return false, fmt.Errorf("check registration: %w", err)
	}
	return registered, nil
}

// ListParticipants returns the registered participants of an event,
// ordered by name, for completion stats and sign-in sheets.
func (r *RegistrationRepository) ListParticipants(ctx context.Context, eventID string) ([]models.Participant, error) {
	query := `SELECT p.id, p.full_name, p.email
FROM registrations reg
JOIN participants p ON p.id = reg.participant_id
WHERE reg.event_id = $1
ORDER BY p.full_name ASC`
	var participants []models.Participant
	if err := r.db.SelectContext(ctx, &participants, query, eventID); err != nil {
		return nil, fmt.Errorf("list participants: %w", err)
	}
	return participants, nil
}
