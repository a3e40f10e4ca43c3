package models

import "time"

// Audit outcomes for verification attempts. Every attempt is recorded,
// accepted or not, so disputes can be reconstructed later.
const (
	AuditOutcomeAccepted         = "ACCEPTED"
	AuditOutcomeRejected         = "REJECTED"
	AuditOutcomeOverrideAccepted = "OVERRIDE_ACCEPTED"
)

// VerificationAudit is one append-only audit trail row, kept separate from
// the participation record.
type VerificationAudit struct {
	ID                string    `db:"id" json:"id"`
	EventID           string    `db:"event_id" json:"event_id"`
	CheckpointID      *string   `db:"checkpoint_id" json:"checkpoint_id,omitempty"`
	ParticipantID     string    `db:"participant_id" json:"participant_id"`
	ActorID           string    `db:"actor_id" json:"actor_id"`
	ActorRole         string    `db:"actor_role" json:"actor_role"`
	Outcome           string    `db:"outcome" json:"outcome"`
	Reason            string    `db:"reason" json:"reason"`
	DeviceFingerprint *string   `db:"device_fingerprint" json:"device_fingerprint,omitempty"`
	TokenID           *string   `db:"token_id" json:"token_id,omitempty"`
	IPAddress         string    `db:"ip_address" json:"ip_address"`
	CreatedAt         time.Time `db:"created_at" json:"created_at"`
}
