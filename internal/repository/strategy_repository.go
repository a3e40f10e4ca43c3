package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/campuspulse/attendance-api/internal/models"
	appErrors "github.com/campuspulse/attendance-api/pkg/errors"
)

// StrategyRepository persists strategy decisions. One row per event; an
// override updates dedicated columns so the original decision survives
// for audit.
type StrategyRepository struct {
	db *sqlx.DB
}

// NewStrategyRepository constructs the repository.
func NewStrategyRepository(db *sqlx.DB) *StrategyRepository {
	return &StrategyRepository{db: db}
}

type strategyRow struct {
	ID             string          `db:"id"`
	EventID        string          `db:"event_id"`
	Strategy       models.Strategy `db:"strategy"`
	Confidence     float64         `db:"confidence"`
	Rationale      []byte          `db:"rationale"`
	ScoreBreakdown []byte          `db:"score_breakdown"`
	Override       *string         `db:"override_strategy"`
	OverriddenBy   *string         `db:"overridden_by"`
	DecidedAt      time.Time       `db:"decided_at"`
	UpdatedAt      time.Time       `db:"updated_at"`
}

func (row strategyRow) toModel() (*models.StrategyDecision, error) {
	decision := &models.StrategyDecision{
		ID:           row.ID,
		EventID:      row.EventID,
		Strategy:     row.Strategy,
		Confidence:   row.Confidence,
		OverriddenBy: row.OverriddenBy,
		DecidedAt:    row.DecidedAt,
		UpdatedAt:    row.UpdatedAt,
	}
	if row.Override != nil {
		s := models.Strategy(*row.Override)
		decision.Override = &s
	}
	if len(row.Rationale) > 0 {
		if err := json.Unmarshal(row.Rationale, &decision.Rationale); err != nil {
			return nil, fmt.Errorf("decode rationale: %w", err)
		}
	}
	if len(row.ScoreBreakdown) > 0 {
		if err := json.Unmarshal(row.ScoreBreakdown, &decision.ScoreBreakdown); err != nil {
			return nil, fmt.Errorf("decode score breakdown: %w", err)
		}
	}
	return decision, nil
}

const strategyColumns = `id, event_id, strategy, confidence, rationale, score_breakdown, override_strategy, overridden_by, decided_at, updated_at`

// Upsert stores a fresh classifier decision for the event. Re-running the
// classifier replaces the decision but clears any override so the new
// decision takes effect until overridden again.
func (r *StrategyRepository) Upsert(ctx context.Context, decision *models.StrategyDecision) (*models.StrategyDecision, error) {
	now := time.Now().UTC()
	if decision.ID == "" {
		decision.ID = uuid.NewString()
	}
	if decision.DecidedAt.IsZero() {
		decision.DecidedAt = now
	}
	rationale, err := json.Marshal(decision.Rationale)
	if err != nil {
		return nil, fmt.Errorf("encode rationale: %w", err)
	}
	scores, err := json.Marshal(decision.ScoreBreakdown)
	if err != nil {
		return nil, fmt.Errorf("encode score breakdown: %w", err)
	}
	query := fmt.Sprintf(`INSERT INTO strategy_decisions (%s)
VALUES ($1, $2, $3, $4, $5, $6, NULL, NULL, $7, $8)
ON CONFLICT (event_id)
DO UPDATE SET strategy = EXCLUDED.strategy, confidence = EXCLUDED.confidence, rationale = EXCLUDED.rationale,
    score_breakdown = EXCLUDED.score_breakdown, override_strategy = NULL, overridden_by = NULL,
    decided_at = EXCLUDED.decided_at, updated_at = EXCLUDED.updated_at
RETURNING %s`, strategyColumns, strategyColumns)
	var row strategyRow
	if err := r.db.GetContext(ctx, &row, query,
		decision.ID, decision.EventID, decision.Strategy, decision.Confidence,
		rationale, scores, decision.DecidedAt, now); err != nil {
		return nil, fmt.Errorf("upsert strategy decision: %w", err)
	}
	return row.toModel()
}

// Get returns the event's decision.
func (r *StrategyRepository) Get(ctx context.Context, eventID string) (*models.StrategyDecision, error) {
	query := fmt.Sprintf(`SELECT %s FROM strategy_decisions WHERE event_id = $1 LIMIT 1`, strategyColumns)
	var row strategyRow
	if err := r.db.GetContext(ctx, &row, query, eventID); err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "no strategy decision for event")
		}
		return nil, fmt.Errorf("get strategy decision: %w", err)
	}
	return row.toModel()
}

// SetOverride records an organizer override, keeping the original decision.
func (r *StrategyRepository) SetOverride(ctx context.Context, eventID string, strategy models.Strategy, actorID string) (*models.StrategyDecision, error) {
	query := fmt.Sprintf(`UPDATE strategy_decisions
SET override_strategy = $2, overridden_by = $3, updated_at = $4
WHERE event_id = $1
RETURNING %s`, strategyColumns)
	var row strategyRow
	if err := r.db.GetContext(ctx, &row, query, eventID, strategy, actorID, time.Now().UTC()); err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "no strategy decision for event")
		}
		return nil, fmt.Errorf("set strategy override: %w", err)
	}
	return row.toModel()
}
