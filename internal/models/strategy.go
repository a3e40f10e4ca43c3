package models

import "time"

// Strategy enumerates the attendance-tracking strategies.
type Strategy string

const (
	StrategySingleMark   Strategy = "SINGLE_MARK"
	StrategyDayBased     Strategy = "DAY_BASED"
	StrategySessionBased Strategy = "SESSION_BASED"
	StrategyMilestone    Strategy = "MILESTONE_BASED"
	StrategyContinuous   Strategy = "CONTINUOUS"
)

// Valid reports whether the strategy is a supported value.
func (s Strategy) Valid() bool {
	switch s {
	case StrategySingleMark, StrategyDayBased, StrategySessionBased, StrategyMilestone, StrategyContinuous:
		return true
	default:
		return false
	}
}

// TiePriority returns the fixed tie-break rank; lower wins. Session-based
// is preferred as the over-observation default.
func (s Strategy) TiePriority() int {
	switch s {
	case StrategySessionBased:
		return 0
	case StrategyDayBased:
		return 1
	case StrategyMilestone:
		return 2
	case StrategySingleMark:
		return 3
	case StrategyContinuous:
		return 4
	default:
		return 5
	}
}

// PassThreshold returns the default completion percentage required for an
// overall "present". MILESTONE_BASED uses the all-mandatory rule instead,
// the returned value only applies to its percentage band.
func (s Strategy) PassThreshold() float64 {
	switch s {
	case StrategySingleMark:
		return 100
	case StrategyDayBased, StrategySessionBased:
		return 75
	case StrategyContinuous:
		return 80
	default:
		return 75
	}
}

// StrategyDecision is the classifier output persisted per event. A manual
// override takes precedence but never replaces the original decision.
type StrategyDecision struct {
	ID             string               `db:"id" json:"id"`
	EventID        string               `db:"event_id" json:"event_id"`
	Strategy       Strategy             `db:"strategy" json:"strategy"`
	Confidence     float64              `db:"confidence" json:"confidence"`
	Rationale      []string             `db:"-" json:"rationale"`
	ScoreBreakdown map[Strategy]float64 `db:"-" json:"score_breakdown"`
	Override       *Strategy            `db:"override_strategy" json:"override_strategy,omitempty"`
	OverriddenBy   *string              `db:"overridden_by" json:"overridden_by,omitempty"`
	DecidedAt      time.Time            `db:"decided_at" json:"decided_at"`
	UpdatedAt      time.Time            `db:"updated_at" json:"updated_at"`
}

// Effective returns the strategy in force, honoring an override.
func (d StrategyDecision) Effective() Strategy {
	if d.Override != nil && d.Override.Valid() {
		return *d.Override
	}
	return d.Strategy
}
