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

// TokenRepository persists verification tokens. Rotating codes are
// append-only: refresh supersedes the previous code instead of deleting
// it, so an unexpired code stays valid until its recorded expiry.
type TokenRepository struct {
	db *sqlx.DB
}

// NewTokenRepository constructs the repository.
func NewTokenRepository(db *sqlx.DB) *TokenRepository {
	return &TokenRepository{db: db}
}

const tokenColumns = `id, scope, event_id, checkpoint_id, code_hash, issued_at, expires_at, superseded_at, max_uses, use_count, issued_by`

// Insert stores a new token.
func (r *TokenRepository) Insert(ctx context.Context, token *models.VerificationToken) (*models.VerificationToken, error) {
	if token.ID == "" {
		token.ID = uuid.NewString()
	}
	query := fmt.Sprintf(`INSERT INTO verification_tokens (%s)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
RETURNING %s`, tokenColumns, tokenColumns)
	var stored models.VerificationToken
	err := r.db.GetContext(ctx, &stored, query,
		token.ID, token.Scope, token.EventID, token.CheckpointID, token.CodeHash,
		token.IssuedAt, token.ExpiresAt, token.SupersededAt, token.MaxUses, token.UseCount, token.IssuedBy)
	if err != nil {
		return nil, fmt.Errorf("insert verification token: %w", err)
	}
	return &stored, nil
}

// GetByID fetches a token regardless of validity.
func (r *TokenRepository) GetByID(ctx context.Context, tokenID string) (*models.VerificationToken, error) {
	query := fmt.Sprintf(`SELECT %s FROM verification_tokens WHERE id = $1 LIMIT 1`, tokenColumns)
	var token models.VerificationToken
	if err := r.db.GetContext(ctx, &token, query, tokenID); err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "token not found")
		}
		return nil, fmt.Errorf("get verification token: %w", err)
	}
	return &token, nil
}

// ConsumeUse atomically increments the token's use count when the token is
// still within its expiry and use budget. Implemented as a single
// conditional UPDATE so two concurrent scans cannot both consume the last
// use. When the guard fails the token is re-read to classify the
// rejection as expired versus exhausted.
func (r *TokenRepository) ConsumeUse(ctx context.Context, tokenID string, now time.Time) (*models.VerificationToken, error) {
	query := fmt.Sprintf(`UPDATE verification_tokens
SET use_count = use_count + 1
WHERE id = $1 AND expires_at > $2 AND (max_uses IS NULL OR use_count < max_uses)
RETURNING %s`, tokenColumns)
	var token models.VerificationToken
	err := r.db.GetContext(ctx, &token, query, tokenID, now)
	if err == nil {
		return &token, nil
	}
	if err != sql.ErrNoRows {
		return nil, fmt.Errorf("consume token use: %w", err)
	}

	stale, err := r.GetByID(ctx, tokenID)
	if err != nil {
		return nil, err
	}
	if now.After(stale.ExpiresAt) {
		return nil, appErrors.ErrTokenExpired
	}
	return nil, appErrors.ErrTokenExhausted
}

// UpdateMaxUses replaces a token's use limit. Applied when an operator
// re-issues a checkpoint's active QR token with a new limit.
func (r *TokenRepository) UpdateMaxUses(ctx context.Context, tokenID string, maxUses *int) (*models.VerificationToken, error) {
	query := fmt.Sprintf(`UPDATE verification_tokens SET max_uses = $2 WHERE id = $1 RETURNING %s`, tokenColumns)
	var token models.VerificationToken
	if err := r.db.GetContext(ctx, &token, query, tokenID, maxUses); err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "token not found")
		}
		return nil, fmt.Errorf("update token max uses: %w", err)
	}
	return &token, nil
}

// SupersedeActiveCodes marks all unexpired rotating codes for the event as
// superseded without deleting them.
func (r *TokenRepository) SupersedeActiveCodes(ctx context.Context, eventID string, now time.Time) error {
	query := `UPDATE verification_tokens
SET superseded_at = $2
WHERE event_id = $1 AND scope = $3 AND superseded_at IS NULL AND expires_at > $2`
	if _, err := r.db.ExecContext(ctx, query, eventID, now, models.ScopeRotatingCode); err != nil {
		return fmt.Errorf("supersede rotating codes: %w", err)
	}
	return nil
}

// ActiveCodes returns unexpired rotating codes for an event, newest first.
// Superseded codes are included while unexpired; they remain valid until
// their recorded expiry.
func (r *TokenRepository) ActiveCodes(ctx context.Context, eventID string, now time.Time) ([]models.VerificationToken, error) {
	query := fmt.Sprintf(`SELECT %s FROM verification_tokens
WHERE event_id = $1 AND scope = $2 AND expires_at > $3
ORDER BY issued_at DESC`, tokenColumns)
	var tokens []models.VerificationToken
	if err := r.db.SelectContext(ctx, &tokens, query, eventID, models.ScopeRotatingCode, now); err != nil {
		return nil, fmt.Errorf("list active rotating codes: %w", err)
	}
	return tokens, nil
}

// ActiveSessionToken returns the unexpired QR token for a checkpoint, if any.
func (r *TokenRepository) ActiveSessionToken(ctx context.Context, checkpointID string, now time.Time) (*models.VerificationToken, error) {
	query := fmt.Sprintf(`SELECT %s FROM verification_tokens
WHERE checkpoint_id = $1 AND scope = $2 AND expires_at > $3
ORDER BY issued_at DESC LIMIT 1`, tokenColumns)
	var token models.VerificationToken
	if err := r.db.GetContext(ctx, &token, query, checkpointID, models.ScopeSessionQR, now); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("get active session token: %w", err)
	}
	return &token, nil
}

// DeleteExpired removes tokens whose validity lapsed before the cutoff.
// Used by the periodic expiry sweep; rotating-code history within the
// retention window is preserved by passing an older cutoff.
func (r *TokenRepository) DeleteExpired(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM verification_tokens WHERE expires_at < $1`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("delete expired tokens: %w", err)
	}
	n, _ := res.RowsAffected()
	return n, nil
}
