package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/campuspulse/attendance-api/internal/models"
)

func sessionCheckpoints(weights ...float64) []models.CheckpointDefinition {
	checkpoints := make([]models.CheckpointDefinition, len(weights))
	for i, w := range weights {
		checkpoints[i] = models.CheckpointDefinition{
			ID:     string(rune('a' + i)),
			Name:   "Session",
			Type:   models.CheckpointSession,
			Weight: w,
		}
	}
	return checkpoints
}

func virtualMark(checkpointID string) models.ParticipationMark {
	return models.ParticipationMark{
		CheckpointID: checkpointID,
		Layer:        models.LayerVirtual,
		Marked:       true,
	}
}

func physicalMark(checkpointID string) models.ParticipationMark {
	return models.ParticipationMark{
		CheckpointID: checkpointID,
		Layer:        models.LayerPhysical,
		Marked:       true,
	}
}

func TestComputeCompletionThreeOfFourSessions(t *testing.T) {
	checkpoints := sessionCheckpoints(1, 1, 1, 1)
	marks := []models.ParticipationMark{
		physicalMark("a"), physicalMark("b"), physicalMark("c"),
	}

	result := ComputeCompletion(models.StrategySessionBased, models.PresenceEither, checkpoints, marks)

	assert.Equal(t, 75.0, result.Percentage)
	assert.Equal(t, 75.0, result.Threshold)
	assert.Equal(t, models.OverallPresent, result.OverallStatus)
}

func TestComputeCompletionTwoOfFourIsPartial(t *testing.T) {
	checkpoints := sessionCheckpoints(1, 1, 1, 1)
	marks := []models.ParticipationMark{physicalMark("a"), physicalMark("c")}

	result := ComputeCompletion(models.StrategySessionBased, models.PresenceEither, checkpoints, marks)

	assert.Equal(t, 50.0, result.Percentage)
	assert.Equal(t, models.OverallPartial, result.OverallStatus)
}

func TestComputeCompletionNoMarksIsAbsent(t *testing.T) {
	result := ComputeCompletion(models.StrategySessionBased, models.PresenceEither, sessionCheckpoints(1, 1), nil)

	assert.Equal(t, 0.0, result.Percentage)
	assert.Equal(t, models.OverallAbsent, result.OverallStatus)
	for _, cp := range result.PerCheckpoint {
		assert.Equal(t, models.StatusAbsent, cp.Status)
	}
}

func TestComputeCompletionWeightedClosing(t *testing.T) {
	// Only the 1.5-weighted closing session attended: 1.5/4.5 = 33.3%.
	checkpoints := sessionCheckpoints(1, 1, 1, 1.5)
	marks := []models.ParticipationMark{physicalMark("d")}

	result := ComputeCompletion(models.StrategySessionBased, models.PresenceEither, checkpoints, marks)

	assert.Equal(t, 33.3, result.Percentage)
	assert.Equal(t, models.OverallPartial, result.OverallStatus)
}

func TestComputeCompletionBothPolicyLayerStatuses(t *testing.T) {
	checkpoints := sessionCheckpoints(1, 1, 1)
	marks := []models.ParticipationMark{
		virtualMark("a"),
		physicalMark("b"),
		virtualMark("c"), physicalMark("c"),
	}

	result := ComputeCompletion(models.StrategySessionBased, models.PresenceBoth, checkpoints, marks)

	require.Len(t, result.PerCheckpoint, 3)
	assert.Equal(t, models.StatusVirtualOnly, result.PerCheckpoint[0].Status)
	assert.Equal(t, models.StatusPhysicalOnly, result.PerCheckpoint[1].Status)
	assert.Equal(t, models.StatusPresent, result.PerCheckpoint[2].Status)
	// Single-layer checkpoints still count towards the percentage.
	assert.Equal(t, 100.0, result.Percentage)
}

func TestComputeCompletionEitherPolicySingleLayerIsPresent(t *testing.T) {
	checkpoints := sessionCheckpoints(1)
	marks := []models.ParticipationMark{virtualMark("a")}

	result := ComputeCompletion(models.StrategySessionBased, models.PresenceEither, checkpoints, marks)

	assert.Equal(t, models.StatusPresent, result.PerCheckpoint[0].Status)
}

func TestComputeCompletionMilestoneMandatoryRule(t *testing.T) {
	checkpoints := []models.CheckpointDefinition{
		{ID: "reg", Name: "Registration & Setup", Type: models.CheckpointMilestone, Weight: 1.0},
		{ID: "main", Name: "Main Activity", Type: models.CheckpointMilestone, Weight: 1.5, Mandatory: true},
		{ID: "eval", Name: "Evaluation & Judging", Type: models.CheckpointMilestone, Weight: 1.0},
		{ID: "close", Name: "Closing", Type: models.CheckpointMilestone, Weight: 1.0, Mandatory: true},
	}

	// Both mandatory phases attended passes despite a low percentage.
	marks := []models.ParticipationMark{physicalMark("main"), physicalMark("close")}
	result := ComputeCompletion(models.StrategyMilestone, models.PresenceEither, checkpoints, marks)
	assert.Equal(t, models.OverallPresent, result.OverallStatus)

	// A missed mandatory phase caps the result at partial even with a
	// high percentage.
	marks = []models.ParticipationMark{physicalMark("reg"), physicalMark("main"), physicalMark("eval")}
	result = ComputeCompletion(models.StrategyMilestone, models.PresenceEither, checkpoints, marks)
	assert.Equal(t, models.OverallPartial, result.OverallStatus)
}

func TestComputeCompletionSingleMarkRequiresFull(t *testing.T) {
	checkpoints := []models.CheckpointDefinition{
		{ID: "a", Name: "Attendance", Type: models.CheckpointSingle, Weight: 1.0, Mandatory: true},
	}

	present := ComputeCompletion(models.StrategySingleMark, models.PresenceEither, checkpoints, []models.ParticipationMark{physicalMark("a")})
	assert.Equal(t, models.OverallPresent, present.OverallStatus)
	assert.Equal(t, 100.0, present.Threshold)

	absent := ComputeCompletion(models.StrategySingleMark, models.PresenceEither, checkpoints, nil)
	assert.Equal(t, models.OverallAbsent, absent.OverallStatus)
}

func TestComputeCompletionRoundsToOneDecimal(t *testing.T) {
	checkpoints := sessionCheckpoints(1, 1, 1)
	marks := []models.ParticipationMark{physicalMark("a")}

	result := ComputeCompletion(models.StrategySessionBased, models.PresenceEither, checkpoints, marks)

	assert.Equal(t, 33.3, result.Percentage)
}

func TestComputeCompletionIgnoresUnmarkedRows(t *testing.T) {
	checkpoints := sessionCheckpoints(1, 1)
	marks := []models.ParticipationMark{
		{CheckpointID: "a", Layer: models.LayerPhysical, Marked: false},
	}

	result := ComputeCompletion(models.StrategySessionBased, models.PresenceEither, checkpoints, marks)

	assert.Equal(t, models.OverallAbsent, result.OverallStatus)
}

func TestComputeCompletionDeterministic(t *testing.T) {
	checkpoints := sessionCheckpoints(1, 1, 1, 1.5)
	marks := []models.ParticipationMark{
		virtualMark("a"), physicalMark("a"), physicalMark("d"),
	}

	first := ComputeCompletion(models.StrategySessionBased, models.PresenceEither, checkpoints, marks)
	second := ComputeCompletion(models.StrategySessionBased, models.PresenceEither, checkpoints, marks)

	assert.Equal(t, first, second)
}

func TestComputeCompletionDisputedPhysicalHeldAtPhysicalOnly(t *testing.T) {
	checkpoints := sessionCheckpoints(1, 1)
	disputed := physicalMark("a")
	disputed.Disputed = true
	marks := []models.ParticipationMark{disputed, physicalMark("b")}

	result := ComputeCompletion(models.StrategySessionBased, models.PresenceEither, checkpoints, marks)

	// The disputed mark stays physical_only pending review even under the
	// either policy; the clean mark is unaffected.
	assert.Equal(t, models.StatusPhysicalOnly, result.PerCheckpoint[0].Status)
	assert.Equal(t, models.StatusPresent, result.PerCheckpoint[1].Status)
}

func TestComputeCompletionDisputedOverridesVirtualLayer(t *testing.T) {
	checkpoints := sessionCheckpoints(1)
	checkpoints[0].Mandatory = true
	disputed := physicalMark("a")
	disputed.Disputed = true
	marks := []models.ParticipationMark{virtualMark("a"), disputed}

	result := ComputeCompletion(models.StrategyMilestone, models.PresenceEither, checkpoints, marks)

	// A dispute blocks present on a mandatory checkpoint, so the milestone
	// rule downgrades the overall result.
	require.Equal(t, models.StatusPhysicalOnly, result.PerCheckpoint[0].Status)
	assert.Equal(t, models.OverallPartial, result.OverallStatus)
}
