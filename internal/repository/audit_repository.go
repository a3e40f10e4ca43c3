package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/campuspulse/attendance-api/internal/models"
)

// AuditRepository stores the append-only verification audit trail,
// separate from participation marks so rejected attempts remain visible.
type AuditRepository struct {
	db *sqlx.DB
}

// NewAuditRepository constructs the repository.
func NewAuditRepository(db *sqlx.DB) *AuditRepository {
	return &AuditRepository{db: db}
}

const auditColumns = `id, event_id, checkpoint_id, participant_id, actor_id, actor_role, outcome, reason, device_fingerprint, token_id, ip_address, created_at`

// Insert appends one audit row.
func (r *AuditRepository) Insert(ctx context.Context, entry *models.VerificationAudit) error {
	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}
	query := fmt.Sprintf(`INSERT INTO verification_audit (%s)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`, auditColumns)
	if _, err := r.db.ExecContext(ctx, query,
		entry.ID, entry.EventID, entry.CheckpointID, entry.ParticipantID,
		entry.ActorID, entry.ActorRole, entry.Outcome, entry.Reason,
		entry.DeviceFingerprint, entry.TokenID, entry.IPAddress, entry.CreatedAt); err != nil {
		return fmt.Errorf("insert audit entry: %w", err)
	}
	return nil
}

// ListByEvent returns the event's audit trail, newest first, paginated.
func (r *AuditRepository) ListByEvent(ctx context.Context, eventID string, page, pageSize int) ([]models.VerificationAudit, int, error) {
	if page < 1 {
		page = 1
	}
	if pageSize <= 0 || pageSize > 200 {
		pageSize = 50
	}
	offset := (page - 1) * pageSize

	query := fmt.Sprintf(`SELECT %s FROM verification_audit
WHERE event_id = $1
ORDER BY created_at DESC
LIMIT %d OFFSET %d`, auditColumns, pageSize, offset)
	var entries []models.VerificationAudit
	if err := r.db.SelectContext(ctx, &entries, query, eventID); err != nil {
		return nil, 0, fmt.Errorf("list audit entries: %w", err)
	}

	var total int
	if err := r.db.GetContext(ctx, &total, `SELECT COUNT(*) FROM verification_audit WHERE event_id = $1`, eventID); err != nil {
		return nil, 0, fmt.Errorf("count audit entries: %w", err)
	}
	return entries, total, nil
}
