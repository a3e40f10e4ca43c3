package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/campuspulse/attendance-api/internal/models"
)

// MarkRepository persists participation marks. One row exists per
// (participant, checkpoint, layer); the concurrency contract lives in the
// SQL: virtual marks are last-writer-wins upserts, physical marks insert
// with ON CONFLICT DO NOTHING so a racing second writer observes the
// winner's row instead of overwriting it.
type MarkRepository struct {
	db *sqlx.DB
}

// NewMarkRepository constructs the repository.
func NewMarkRepository(db *sqlx.DB) *MarkRepository {
	return &MarkRepository{db: db}
}

const markColumns = `id, event_id, checkpoint_id, participant_id, layer, marked, marked_at, method, actor_id, actor_role, device_fingerprint, token_id, disputed, created_at, updated_at`

// UpsertVirtual inserts or overwrites the virtual-layer mark.
// Self-correction is allowed on this layer.
func (r *MarkRepository) UpsertVirtual(ctx context.Context, mark *models.ParticipationMark) (*models.ParticipationMark, error) {
	now := time.Now().UTC()
	if mark.ID == "" {
		mark.ID = uuid.NewString()
	}
	query := fmt.Sprintf(`INSERT INTO participation_marks (%s)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
ON CONFLICT (participant_id, checkpoint_id, layer)
DO UPDATE SET marked = EXCLUDED.marked, marked_at = EXCLUDED.marked_at, method = EXCLUDED.method,
    actor_id = EXCLUDED.actor_id, actor_role = EXCLUDED.actor_role, updated_at = EXCLUDED.updated_at
RETURNING %s`, markColumns, markColumns)
	var stored models.ParticipationMark
	err := r.db.GetContext(ctx, &stored, query,
		mark.ID, mark.EventID, mark.CheckpointID, mark.ParticipantID, models.LayerVirtual,
		mark.Marked, mark.MarkedAt, mark.Method, mark.ActorID, mark.ActorRole,
		nil, nil, false, now, now)
	if err != nil {
		return nil, fmt.Errorf("upsert virtual mark: %w", err)
	}
	return &stored, nil
}

// InsertPhysical inserts the physical-layer mark. When a row already
// exists the insert is a no-op and the existing row is returned with
// inserted=false; the caller decides whether that is an idempotent retry
// or a device conflict.
func (r *MarkRepository) InsertPhysical(ctx context.Context, mark *models.ParticipationMark) (*models.ParticipationMark, bool, error) {
	now := time.Now().UTC()
	if mark.ID == "" {
		mark.ID = uuid.NewString()
	}
	query := fmt.Sprintf(`INSERT INTO participation_marks (%s)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
ON CONFLICT (participant_id, checkpoint_id, layer) DO NOTHING
RETURNING %s`, markColumns, markColumns)
	var stored models.ParticipationMark
	err := r.db.GetContext(ctx, &stored, query,
		mark.ID, mark.EventID, mark.CheckpointID, mark.ParticipantID, models.LayerPhysical,
		mark.Marked, mark.MarkedAt, mark.Method, mark.ActorID, mark.ActorRole,
		mark.DeviceFingerprint, mark.TokenID, false, now, now)
	if err == nil {
		return &stored, true, nil
	}
	if err != sql.ErrNoRows {
		return nil, false, fmt.Errorf("insert physical mark: %w", err)
	}

	existing, err := r.Find(ctx, mark.ParticipantID, mark.CheckpointID, models.LayerPhysical)
	if err != nil {
		return nil, false, err
	}
	return existing, false, nil
}

// Find returns the mark for a (participant, checkpoint, layer) tuple.
func (r *MarkRepository) Find(ctx context.Context, participantID, checkpointID string, layer models.MarkLayer) (*models.ParticipationMark, error) {
	query := fmt.Sprintf(`SELECT %s FROM participation_marks
WHERE participant_id = $1 AND checkpoint_id = $2 AND layer = $3 LIMIT 1`, markColumns)
	var mark models.ParticipationMark
	if err := r.db.GetContext(ctx, &mark, query, participantID, checkpointID, layer); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("find mark: %w", err)
	}
	return &mark, nil
}

// ListByParticipant returns all marks a participant holds for an event.
func (r *MarkRepository) ListByParticipant(ctx context.Context, participantID, eventID string) ([]models.ParticipationMark, error) {
	query := fmt.Sprintf(`SELECT %s FROM participation_marks
WHERE participant_id = $1 AND event_id = $2
ORDER BY marked_at ASC`, markColumns)
	var marks []models.ParticipationMark
	if err := r.db.SelectContext(ctx, &marks, query, participantID, eventID); err != nil {
		return nil, fmt.Errorf("list marks by participant: %w", err)
	}
	return marks, nil
}

// ListByEvent returns every mark recorded for an event.
func (r *MarkRepository) ListByEvent(ctx context.Context, eventID string) ([]models.ParticipationMark, error) {
	query := fmt.Sprintf(`SELECT %s FROM participation_marks
WHERE event_id = $1
ORDER BY participant_id, marked_at ASC`, markColumns)
	var marks []models.ParticipationMark
	if err := r.db.SelectContext(ctx, &marks, query, eventID); err != nil {
		return nil, fmt.Errorf("list marks by event: %w", err)
	}
	return marks, nil
}

// ListByCheckpoint returns a checkpoint's marks joined with participant
// names for operator review.
func (r *MarkRepository) ListByCheckpoint(ctx context.Context, checkpointID string) ([]models.CheckpointMarkRecord, error) {
	query := `SELECT pm.id, pm.event_id, pm.checkpoint_id, pm.participant_id, pm.layer, pm.marked, pm.marked_at,
        pm.method, pm.actor_id, pm.actor_role, pm.device_fingerprint, pm.token_id, pm.disputed, pm.created_at, pm.updated_at,
        p.full_name AS participant_name
FROM participation_marks pm
JOIN participants p ON p.id = pm.participant_id
WHERE pm.checkpoint_id = $1
ORDER BY pm.marked_at ASC`
	var records []models.CheckpointMarkRecord
	if err := r.db.SelectContext(ctx, &records, query, checkpointID); err != nil {
		return nil, fmt.Errorf("list marks by checkpoint: %w", err)
	}
	return records, nil
}

// SetDisputed flags a stored mark as disputed. Used when a second
// physical attempt arrives from a different device; the mark then reads
// as physical_only until an operator resolves the conflict.
func (r *MarkRepository) SetDisputed(ctx context.Context, markID string) error {
	query := `UPDATE participation_marks SET disputed = TRUE, updated_at = $2 WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, markID, time.Now().UTC()); err != nil {
		return fmt.Errorf("set mark disputed: %w", err)
	}
	return nil
}

// FingerprintUsedByOther reports whether the device fingerprint already
// marked a different participant present within the same event. This is
// the primary anti-proxy signal.
func (r *MarkRepository) FingerprintUsedByOther(ctx context.Context, eventID, fingerprint, participantID string) (bool, error) {
	query := `SELECT EXISTS (
SELECT 1 FROM participation_marks
WHERE event_id = $1 AND device_fingerprint = $2 AND participant_id <> $3 AND layer = $4 AND marked = TRUE)`
	var used bool
	if err := r.db.GetContext(ctx, &used, query, eventID, fingerprint, participantID, models.LayerPhysical); err != nil {
		return false, fmt.Errorf("check fingerprint reuse: %w", err)
	}
	return used, nil
}
