package service

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/campuspulse/attendance-api/internal/models"
)

func eventWindow(start time.Time, hours float64) models.EventMeta {
	return models.EventMeta{
		ID:        "evt-1",
		StartTime: start,
		EndTime:   start.Add(time.Duration(hours * float64(time.Hour))),
	}
}

func TestExtractSignalsDurationBuckets(t *testing.T) {
	start := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)

	tests := []struct {
		name   string
		hours  float64
		bucket models.DurationBucket
	}{
		{"three hour seminar", 3, models.DurationShort},
		{"exactly eight hours", 8, models.DurationShort},
		{"twelve hour event", 12, models.DurationMedium},
		{"exactly twenty four hours", 24, models.DurationMedium},
		{"thirty hours one boundary", 30, models.DurationLong},
		{"three day span", 56, models.DurationMultiDay},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			signals := ExtractSignals(eventWindow(start, tt.hours))
			assert.Equal(t, tt.bucket, signals.Bucket)
			assert.InDelta(t, tt.hours, signals.DurationHours, 0.001)
		})
	}
}

func TestExtractSignalsCalendarDays(t *testing.T) {
	// 23:00 to 01:00 next day crosses one boundary in two hours.
	meta := models.EventMeta{
		StartTime: time.Date(2026, 3, 10, 23, 0, 0, 0, time.UTC),
		EndTime:   time.Date(2026, 3, 11, 1, 0, 0, 0, time.UTC),
	}
	signals := ExtractSignals(meta)
	assert.Equal(t, 2, signals.DurationDays)
	assert.Equal(t, models.DurationShort, signals.Bucket)
}

func TestExtractSignalsKeywords(t *testing.T) {
	meta := eventWindow(time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC), 24)
	meta.Title = "Spring Hackathon 2026"
	meta.Description = "Qualifier round followed by the final showcase"
	signals := ExtractSignals(meta)

	assert.True(t, signals.HasKeyword("hackathon"))
	assert.True(t, signals.HasKeyword("round"))
	assert.True(t, signals.HasKeyword("qualifier"))
	assert.True(t, signals.HasKeyword("showcase"))
	assert.False(t, signals.HasKeyword("internship"))
}

func TestExtractSignalsVenueClass(t *testing.T) {
	tests := []struct {
		venue string
		class models.VenueClass
	}{
		{"Main Auditorium, Block C", models.VenuePhysical},
		{"Zoom (link shared on Discord)", models.VenueOnline},
		{"Seminar Hall + Zoom stream", models.VenueHybrid},
		{"TBD", models.VenueUnknown},
		{"", models.VenueUnknown},
	}
	for _, tt := range tests {
		meta := eventWindow(time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC), 4)
		meta.Venue = tt.venue
		assert.Equal(t, tt.class, ExtractSignals(meta).VenueClass, "venue %q", tt.venue)
	}
}

func TestExtractSignalsDefaultsTeamMode(t *testing.T) {
	signals := ExtractSignals(eventWindow(time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC), 4))
	assert.Equal(t, models.TeamModeIndividual, signals.TeamMode)
}
