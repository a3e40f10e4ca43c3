package service

import (
	"math"

	"github.com/campuspulse/attendance-api/internal/models"
)

// ComputeCompletion derives a participant's completion result from the
// stored checkpoints and marks. Pure and idempotent: identical inputs
// yield identical results regardless of invocation time or order, so the
// status page may call it on every load.
func ComputeCompletion(strategy models.Strategy, policy models.PresencePolicy, checkpoints []models.CheckpointDefinition, marks []models.ParticipationMark) models.CompletionResult {
	if !policy.Valid() {
		policy = models.PresenceEither
	}

	marked := make(map[string]layerMarks, len(marks))
	for _, mark := range marks {
		if !mark.Marked {
			continue
		}
		l := marked[mark.CheckpointID]
		switch mark.Layer {
		case models.LayerVirtual:
			l.virtual = true
		case models.LayerPhysical:
			l.physical = true
			l.disputed = mark.Disputed
		}
		marked[mark.CheckpointID] = l
	}

	var totalWeight, attendedWeight float64
	allMandatoryPresent := true
	perCheckpoint := make([]models.CheckpointCompletion, len(checkpoints))
	for i, cp := range checkpoints {
		status := checkpointStatus(marked[cp.ID], policy)
		perCheckpoint[i] = models.CheckpointCompletion{
			CheckpointID: cp.ID,
			Name:         cp.Name,
			Weight:       cp.Weight,
			Mandatory:    cp.Mandatory,
			Status:       status,
		}
		totalWeight += cp.Weight
		if status != models.StatusAbsent {
			attendedWeight += cp.Weight
		}
		if cp.Mandatory && status != models.StatusPresent {
			allMandatoryPresent = false
		}
	}

	percentage := 0.0
	if totalWeight > 0 {
		percentage = math.Round(attendedWeight/totalWeight*1000) / 10
	}

	threshold := strategy.PassThreshold()
	var overall models.OverallStatus
	switch {
	case percentage == 0:
		overall = models.OverallAbsent
	case strategy == models.StrategyMilestone:
		// Milestone events pass on mandatory phases, not raw percentage.
		if allMandatoryPresent {
			overall = models.OverallPresent
		} else {
			overall = models.OverallPartial
		}
	case percentage >= threshold:
		overall = models.OverallPresent
	default:
		overall = models.OverallPartial
	}

	return models.CompletionResult{
		Strategy:      strategy,
		Percentage:    percentage,
		Threshold:     threshold,
		PerCheckpoint: perCheckpoint,
		OverallStatus: overall,
	}
}

type layerMarks struct {
	virtual  bool
	physical bool
	disputed bool
}

func checkpointStatus(l layerMarks, policy models.PresencePolicy) models.CheckpointStatus {
	switch {
	case l.physical && l.disputed:
		// A device-mismatch dispute holds the checkpoint at physical_only
		// under any policy until an operator resolves it.
		return models.StatusPhysicalOnly
	case l.virtual && l.physical:
		return models.StatusPresent
	case l.physical:
		if policy == models.PresenceBoth {
			return models.StatusPhysicalOnly
		}
		return models.StatusPresent
	case l.virtual:
		if policy == models.PresenceBoth {
			return models.StatusVirtualOnly
		}
		return models.StatusPresent
	default:
		return models.StatusAbsent
	}
}
