package service

import (
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/campuspulse/attendance-api/internal/models"
	appErrors "github.com/campuspulse/attendance-api/pkg/errors"
)

// SynthesizerOptions tunes schedule generation. Zero values fall back to
// the documented defaults.
type SynthesizerOptions struct {
	// MaxSessions caps SESSION_BASED segmentation (default 6).
	MaxSessions int
	// SessionHours is the target segment length used to derive the
	// session count from duration (default 4h).
	SessionHours float64
}

func (o SynthesizerOptions) withDefaults() SynthesizerOptions {
	if o.MaxSessions <= 0 {
		o.MaxSessions = 6
	}
	if o.SessionHours <= 0 {
		o.SessionHours = 4
	}
	return o
}

// closingSessionWeight reflects the higher evaluative importance of the
// final segment of a session-based event.
const closingSessionWeight = 1.5

// Synthesize generates the starting checkpoint schedule for an event.
// Output is ordered by start time and non-overlapping; organizers may edit
// it afterwards subject to ValidateSchedule.
func Synthesize(strategy models.Strategy, signals models.EventSignals, event models.EventMeta, opts SynthesizerOptions) ([]models.CheckpointDefinition, error) {
	if !event.StartTime.Before(event.EndTime) {
		return nil, appErrors.Clone(appErrors.ErrValidation, "event window is empty")
	}
	opts = opts.withDefaults()

	var checkpoints []models.CheckpointDefinition
	switch strategy {
	case models.StrategySingleMark:
		checkpoints = synthesizeSingle(event)
	case models.StrategyDayBased:
		checkpoints = synthesizeDays(event)
	case models.StrategySessionBased:
		checkpoints = synthesizeSessions(event, signals, opts)
	case models.StrategyMilestone:
		checkpoints = synthesizeMilestones(event)
	case models.StrategyContinuous:
		checkpoints = synthesizeWeekly(event)
	default:
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unknown strategy %q", strategy))
	}

	for i := range checkpoints {
		checkpoints[i].ID = uuid.NewString()
		checkpoints[i].EventID = event.ID
		checkpoints[i].Position = i
	}
	if err := ValidateSchedule(event, checkpoints); err != nil {
		return nil, err
	}
	return checkpoints, nil
}

func synthesizeSingle(event models.EventMeta) []models.CheckpointDefinition {
	return []models.CheckpointDefinition{{
		Name:      "Attendance",
		Type:      models.CheckpointSingle,
		StartTime: event.StartTime,
		EndTime:   event.EndTime,
		Weight:    1.0,
		Mandatory: true,
	}}
}

func synthesizeDays(event models.EventMeta) []models.CheckpointDefinition {
	var checkpoints []models.CheckpointDefinition
	dayStart := event.StartTime
	for i := 0; dayStart.Before(event.EndTime); i++ {
		dayEnd := midnight(dayStart).Add(24 * time.Hour)
		if dayEnd.After(event.EndTime) {
			dayEnd = event.EndTime
		}
		checkpoints = append(checkpoints, models.CheckpointDefinition{
			Name:      fmt.Sprintf("Day %d", i+1),
			Type:      models.CheckpointDay,
			StartTime: dayStart,
			EndTime:   dayEnd,
			Weight:    1.0,
			Mandatory: true,
		})
		dayStart = dayEnd
	}
	return checkpoints
}

func synthesizeSessions(event models.EventMeta, signals models.EventSignals, opts SynthesizerOptions) []models.CheckpointDefinition {
	count := int(math.Ceil(signals.DurationHours / opts.SessionHours))
	if count < 2 {
		count = 2
	}
	if count > opts.MaxSessions {
		count = opts.MaxSessions
	}

	total := event.EndTime.Sub(event.StartTime)
	segment := total / time.Duration(count)
	checkpoints := make([]models.CheckpointDefinition, count)
	for i := 0; i < count; i++ {
		start := event.StartTime.Add(time.Duration(i) * segment)
		end := start.Add(segment)
		if i == count-1 {
			end = event.EndTime
		}
		cp := models.CheckpointDefinition{
			Name:      fmt.Sprintf("Session %d", i+1),
			Type:      models.CheckpointSession,
			StartTime: start,
			EndTime:   end,
			Weight:    1.0,
			Mandatory: i == 0 || i == count-1,
		}
		if i == count-1 {
			cp.Name = fmt.Sprintf("Session %d (Closing)", i+1)
			cp.Weight = closingSessionWeight
		}
		checkpoints[i] = cp
	}
	return checkpoints
}

// milestonePhases is the canonical phase skeleton mapped proportionally
// onto the event window. Milestones are point-in-time observations, gaps
// between them are acceptable.
var milestonePhases = []struct {
	name      string
	fraction  float64
	weight    float64
	mandatory bool
}{
	{"Registration & Setup", 0.15, 1.0, false},
	{"Main Activity", 0.55, 1.5, true},
	{"Evaluation & Judging", 0.20, 1.0, false},
	{"Closing", 0.10, 1.0, true},
}

func synthesizeMilestones(event models.EventMeta) []models.CheckpointDefinition {
	total := event.EndTime.Sub(event.StartTime)
	checkpoints := make([]models.CheckpointDefinition, 0, len(milestonePhases))
	cursor := event.StartTime
	for i, phase := range milestonePhases {
		end := cursor.Add(time.Duration(phase.fraction * float64(total)))
		if i == len(milestonePhases)-1 {
			end = event.EndTime
		}
		checkpoints = append(checkpoints, models.CheckpointDefinition{
			Name:      phase.name,
			Type:      models.CheckpointMilestone,
			StartTime: cursor,
			EndTime:   end,
			Weight:    phase.weight,
			Mandatory: phase.mandatory,
		})
		cursor = end
	}
	return checkpoints
}

func synthesizeWeekly(event models.EventMeta) []models.CheckpointDefinition {
	var checkpoints []models.CheckpointDefinition
	weekStart := event.StartTime
	for i := 0; weekStart.Before(event.EndTime); i++ {
		weekEnd := weekStart.Add(7 * 24 * time.Hour)
		if weekEnd.After(event.EndTime) {
			weekEnd = event.EndTime
		}
		checkpoints = append(checkpoints, models.CheckpointDefinition{
			Name:      fmt.Sprintf("Week %d", i+1),
			Type:      models.CheckpointContinuous,
			StartTime: weekStart,
			EndTime:   weekEnd,
			Weight:    1.0,
			Mandatory: true,
		})
		weekStart = weekEnd
	}
	return checkpoints
}

// ValidateSchedule enforces the schedule invariants: each checkpoint well
// formed, ordered by start time, and pairwise non-overlapping for
// exclusive day/session checkpoints. Violations are rejected, never
// auto-corrected, with the offending checkpoints named.
func ValidateSchedule(event models.EventMeta, checkpoints []models.CheckpointDefinition) error {
	if len(checkpoints) == 0 {
		return appErrors.Clone(appErrors.ErrValidation, "schedule requires at least one checkpoint")
	}
	for _, cp := range checkpoints {
		if !cp.Type.Valid() {
			return appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("checkpoint %q has unknown type %q", cp.Name, cp.Type))
		}
		if !cp.StartTime.Before(cp.EndTime) {
			return appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("checkpoint %q must start before it ends", cp.Name))
		}
		if cp.Weight < models.CheckpointWeightMin || cp.Weight > models.CheckpointWeightMax {
			return appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("checkpoint %q weight %.2f outside [%.1f, %.1f]", cp.Name, cp.Weight, models.CheckpointWeightMin, models.CheckpointWeightMax))
		}
		if cp.StartTime.Before(event.StartTime) || cp.EndTime.After(event.EndTime) {
			return appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("checkpoint %q extends outside the event window", cp.Name))
		}
	}
	ordered := sort.SliceIsSorted(checkpoints, func(i, j int) bool {
		return checkpoints[i].StartTime.Before(checkpoints[j].StartTime)
	})
	if !ordered {
		return appErrors.Clone(appErrors.ErrValidation, "checkpoints must be ordered by start time")
	}
	for i := 0; i < len(checkpoints); i++ {
		for j := i + 1; j < len(checkpoints); j++ {
			a, b := checkpoints[i], checkpoints[j]
			if a.NonExclusive || b.NonExclusive {
				continue
			}
			if !exclusiveType(a.Type) || !exclusiveType(b.Type) {
				continue
			}
			if a.Overlaps(b) {
				return appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("checkpoints %q and %q overlap", a.Name, b.Name))
			}
		}
	}
	return nil
}

func exclusiveType(t models.CheckpointType) bool {
	return t == models.CheckpointDay || t == models.CheckpointSession
}
