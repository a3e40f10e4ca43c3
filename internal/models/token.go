package models

import "time"

// TokenScope distinguishes the two verification token kinds.
type TokenScope string

const (
	// ScopeSessionQR binds a token to one checkpoint's time window.
	ScopeSessionQR TokenScope = "session_qr"
	// ScopeRotatingCode admits an operator to run the scanner for an event.
	ScopeRotatingCode TokenScope = "rotating_access_code"
)

// VerificationToken is a short-lived credential issued by the verification
// gateway. Rotating codes are superseded, never deleted, so late scans
// against a stale code fail closed.
type VerificationToken struct {
	ID           string     `db:"id" json:"id"`
	Scope        TokenScope `db:"scope" json:"scope"`
	EventID      string     `db:"event_id" json:"event_id"`
	CheckpointID *string    `db:"checkpoint_id" json:"checkpoint_id,omitempty"`
	CodeHash     *string    `db:"code_hash" json:"-"`
	IssuedAt     time.Time  `db:"issued_at" json:"issued_at"`
	ExpiresAt    time.Time  `db:"expires_at" json:"expires_at"`
	SupersededAt *time.Time `db:"superseded_at" json:"superseded_at,omitempty"`
	MaxUses      *int       `db:"max_uses" json:"max_uses,omitempty"`
	UseCount     int        `db:"use_count" json:"use_count"`
	IssuedBy     string     `db:"issued_by" json:"issued_by"`
}

// Usable reports whether the token is still valid at the given instant.
// A superseded rotating code stays usable until its recorded expiry.
func (t VerificationToken) Usable(now time.Time) bool {
	if now.After(t.ExpiresAt) {
		return false
	}
	if t.MaxUses != nil && t.UseCount >= *t.MaxUses {
		return false
	}
	return true
}
