package models

import "time"

// MarkLayer distinguishes the two independently verified attendance layers.
type MarkLayer string

const (
	LayerVirtual  MarkLayer = "virtual"
	LayerPhysical MarkLayer = "physical"
)

// Valid reports whether the layer is supported.
func (l MarkLayer) Valid() bool {
	return l == LayerVirtual || l == LayerPhysical
}

// MarkMethod records how a mark was captured.
type MarkMethod string

const (
	MethodSelfReport   MarkMethod = "self_report"
	MethodOperatorScan MarkMethod = "operator_scan"
	MethodBulkImport   MarkMethod = "bulk_import"
)

// Valid reports whether the method is supported.
func (m MarkMethod) Valid() bool {
	switch m {
	case MethodSelfReport, MethodOperatorScan, MethodBulkImport:
		return true
	default:
		return false
	}
}

// ParticipationMark is one stored mark for a (participant, checkpoint, layer)
// tuple. At most one row exists per tuple: the virtual layer is
// last-writer-wins, the physical layer is conflict-checked on fingerprint.
type ParticipationMark struct {
	ID                string     `db:"id" json:"id"`
	EventID           string     `db:"event_id" json:"event_id"`
	CheckpointID      string     `db:"checkpoint_id" json:"checkpoint_id"`
	ParticipantID     string     `db:"participant_id" json:"participant_id"`
	Layer             MarkLayer  `db:"layer" json:"layer"`
	Marked            bool       `db:"marked" json:"marked"`
	MarkedAt          time.Time  `db:"marked_at" json:"marked_at"`
	Method            MarkMethod `db:"method" json:"method"`
	ActorID           string     `db:"actor_id" json:"actor_id"`
	ActorRole         string     `db:"actor_role" json:"actor_role"`
	DeviceFingerprint *string    `db:"device_fingerprint" json:"device_fingerprint,omitempty"`
	TokenID           *string    `db:"token_id" json:"token_id,omitempty"`
	// Disputed is set when a second physical attempt arrived from a
	// different device. A disputed mark stays physical_only until an
	// operator resolves it.
	Disputed  bool      `db:"disputed" json:"disputed"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// CheckpointMarkRecord extends a mark with participant metadata for
// operator review listings.
type CheckpointMarkRecord struct {
	ParticipationMark
	ParticipantName string `db:"participant_name" json:"participant_name"`
}

// CheckpointStatus is the derived per-checkpoint attendance state.
type CheckpointStatus string

const (
	StatusAbsent       CheckpointStatus = "absent"
	StatusVirtualOnly  CheckpointStatus = "virtual_only"
	StatusPhysicalOnly CheckpointStatus = "physical_only"
	StatusPresent      CheckpointStatus = "present"
)

// OverallStatus is the derived whole-event attendance state.
type OverallStatus string

const (
	OverallAbsent  OverallStatus = "absent"
	OverallPartial OverallStatus = "partial"
	OverallPresent OverallStatus = "present"
)

// CheckpointCompletion is one checkpoint's contribution to a completion result.
type CheckpointCompletion struct {
	CheckpointID string           `json:"checkpoint_id"`
	Name         string           `json:"name"`
	Weight       float64          `json:"weight"`
	Mandatory    bool             `json:"mandatory"`
	Status       CheckpointStatus `json:"status"`
}

// CompletionResult is the calculator output. It is derived on every read
// and intentionally carries no timestamps so identical mark sets yield
// identical results.
type CompletionResult struct {
	ParticipantID string                 `json:"participant_id"`
	EventID       string                 `json:"event_id"`
	Strategy      Strategy               `json:"strategy"`
	Percentage    float64                `json:"percentage"`
	Threshold     float64                `json:"threshold"`
	PerCheckpoint []CheckpointCompletion `json:"per_checkpoint"`
	OverallStatus OverallStatus          `json:"overall_status"`
}
