package service

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/campuspulse/attendance-api/internal/models"
)

func TestClassifyShortSeminar(t *testing.T) {
	meta := eventWindow(time.Date(2026, 3, 10, 14, 0, 0, 0, time.UTC), 3)
	meta.Title = "Guest Lecture: Distributed Systems"
	meta.DeclaredType = "seminar"

	decision := Classify(ExtractSignals(meta))

	assert.Equal(t, models.StrategySingleMark, decision.Strategy)
	assert.NotEmpty(t, decision.Rationale)
	assert.Greater(t, decision.Confidence, 0.5)
}

func TestClassifyHackathonWithRounds(t *testing.T) {
	meta := eventWindow(time.Date(2026, 3, 14, 10, 0, 0, 0, time.UTC), 24)
	meta.Title = "CodeStorm Hackathon"
	meta.DeclaredType = "hackathon"
	meta.Description = "Qualifier round at noon, final round at night"
	meta.TeamMode = models.TeamModeTeam

	decision := Classify(ExtractSignals(meta))

	assert.Equal(t, models.StrategySessionBased, decision.Strategy)
	assert.Greater(t, decision.Confidence, 0.5)
}

func TestClassifyShortEventWithCompetitionKeywords(t *testing.T) {
	// Competition keywords outrank the short-duration default.
	meta := eventWindow(time.Date(2026, 3, 14, 10, 0, 0, 0, time.UTC), 6)
	meta.Title = "Speed Coding Contest"

	decision := Classify(ExtractSignals(meta))

	assert.Equal(t, models.StrategySessionBased, decision.Strategy)
}

func TestClassifyThreeDayWorkshop(t *testing.T) {
	meta := models.EventMeta{
		ID:           "evt-ws",
		Title:        "Cloud Native Workshop",
		DeclaredType: "workshop",
		StartTime:    time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC),
		EndTime:      time.Date(2026, 3, 12, 17, 0, 0, 0, time.UTC),
	}

	decision := Classify(ExtractSignals(meta))

	assert.Equal(t, models.StrategyDayBased, decision.Strategy)
	assert.InDelta(t, 1.0, decision.Confidence, 0.001)
}

func TestClassifyTechFest(t *testing.T) {
	meta := models.EventMeta{
		Title:     "Annual Tech Fest",
		StartTime: time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC),
		EndTime:   time.Date(2026, 3, 12, 21, 0, 0, 0, time.UTC),
	}

	decision := Classify(ExtractSignals(meta))

	assert.Equal(t, models.StrategyMilestone, decision.Strategy)
}

func TestClassifySemesterInternship(t *testing.T) {
	meta := models.EventMeta{
		Title:     "Summer Internship Cohort",
		StartTime: time.Date(2026, 6, 1, 9, 0, 0, 0, time.UTC),
		EndTime:   time.Date(2026, 7, 24, 18, 0, 0, 0, time.UTC),
	}

	decision := Classify(ExtractSignals(meta))

	assert.Equal(t, models.StrategyContinuous, decision.Strategy)
	assert.InDelta(t, 1.0, decision.Confidence, 0.001)
}

func TestClassifyFallback(t *testing.T) {
	// Long bucket with no keywords and no declared type fires no rule.
	signals := models.EventSignals{
		DurationHours: 30,
		DurationDays:  2,
		Bucket:        models.DurationLong,
		TeamMode:      models.TeamModeIndividual,
		VenueClass:    models.VenueUnknown,
	}

	decision := Classify(signals)

	assert.Equal(t, models.StrategySessionBased, decision.Strategy)
	assert.Equal(t, 1.0, decision.Confidence)
	require.Len(t, decision.Rationale, 1)
	assert.Equal(t, fallbackRationale, decision.Rationale[0])
}

func TestClassifyTieBreaksOnPriority(t *testing.T) {
	// declared_training gives DAY_BASED 1 point, medium duration gives
	// SESSION_BASED 1 point; the tie resolves to SESSION_BASED.
	signals := models.EventSignals{
		DurationHours: 10,
		DurationDays:  1,
		Bucket:        models.DurationMedium,
		DeclaredType:  "workshop",
		TeamMode:      models.TeamModeIndividual,
	}

	decision := Classify(signals)

	require.Equal(t, decision.ScoreBreakdown[models.StrategyDayBased], decision.ScoreBreakdown[models.StrategySessionBased])
	assert.Equal(t, models.StrategySessionBased, decision.Strategy)
}

func TestClassifyConfidenceIsWinShare(t *testing.T) {
	meta := eventWindow(time.Date(2026, 3, 10, 14, 0, 0, 0, time.UTC), 3)
	meta.Title = "Department Seminar"

	decision := Classify(ExtractSignals(meta))

	var total float64
	for _, score := range decision.ScoreBreakdown {
		total += score
	}
	require.Greater(t, total, 0.0)
	assert.InDelta(t, decision.ScoreBreakdown[decision.Strategy]/total, decision.Confidence, 0.0001)
	assert.LessOrEqual(t, decision.Confidence, 1.0)
}

func TestClassifyDeterministic(t *testing.T) {
	meta := eventWindow(time.Date(2026, 3, 14, 10, 0, 0, 0, time.UTC), 24)
	meta.Title = "CodeStorm Hackathon"
	signals := ExtractSignals(meta)

	first := Classify(signals)
	second := Classify(signals)

	assert.Equal(t, first, second)
}
