package models

import "time"

// CheckpointType mirrors the strategy that produced a checkpoint.
type CheckpointType string

const (
	CheckpointSingle     CheckpointType = "single"
	CheckpointDay        CheckpointType = "day"
	CheckpointSession    CheckpointType = "session"
	CheckpointMilestone  CheckpointType = "milestone"
	CheckpointContinuous CheckpointType = "continuous_check"
)

// Valid reports whether the checkpoint type is supported.
func (t CheckpointType) Valid() bool {
	switch t {
	case CheckpointSingle, CheckpointDay, CheckpointSession, CheckpointMilestone, CheckpointContinuous:
		return true
	default:
		return false
	}
}

const (
	// CheckpointWeightMin and CheckpointWeightMax bound per-checkpoint weights.
	CheckpointWeightMin = 0.1
	CheckpointWeightMax = 2.0
)

// CheckpointDefinition is one attendance-observable time window. Weights do
// not need to sum to 1 across an event; the completion calculator normalizes.
type CheckpointDefinition struct {
	ID           string         `db:"id" json:"id"`
	EventID      string         `db:"event_id" json:"event_id"`
	Name         string         `db:"name" json:"name"`
	Type         CheckpointType `db:"type" json:"type"`
	StartTime    time.Time      `db:"start_time" json:"start_time"`
	EndTime      time.Time      `db:"end_time" json:"end_time"`
	Weight       float64        `db:"weight" json:"weight"`
	Mandatory    bool           `db:"mandatory" json:"mandatory"`
	NonExclusive bool           `db:"non_exclusive" json:"non_exclusive"`
	Position     int            `db:"position" json:"position"`
	CreatedAt    time.Time      `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time      `db:"updated_at" json:"updated_at"`
}

// Overlaps reports whether two checkpoint windows intersect.
func (c CheckpointDefinition) Overlaps(other CheckpointDefinition) bool {
	return c.StartTime.Before(other.EndTime) && other.StartTime.Before(c.EndTime)
}
