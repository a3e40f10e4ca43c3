package service

import (
	"math"
	"strings"
	"time"

	"github.com/campuspulse/attendance-api/internal/models"
)

// Curated keyword sets. Matching is case-insensitive substring search over
// the event title, declared type and description.
var (
	competitionKeywords = []string{"hackathon", "round", "qualifier", "contest", "competition", "knockout", "heat", "elimination"}
	singleMarkKeywords  = []string{"visit", "defense", "viva", "seminar", "guest lecture", "orientation", "talk"}
	dayKeywords         = []string{"workshop", "training", "bootcamp", "course"}
	milestoneKeywords   = []string{"fest", "exhibition", "ceremony", "expo", "showcase"}
	continuousKeywords  = []string{"internship", "fellowship", "mentorship", "cohort"}
)

var physicalVenueWords = []string{"hall", "auditorium", "room", "lab", "campus", "block", "ground", "arena", "theatre", "centre", "center"}
var onlineVenueWords = []string{"online", "zoom", "meet", "teams", "webinar", "virtual", "discord", "remote", "http"}

// ExtractSignals normalizes raw event metadata into classifier inputs.
// Pure function: no I/O, deterministic for identical input.
func ExtractSignals(meta models.EventMeta) models.EventSignals {
	hours := meta.DurationHours()
	days := calendarDays(meta)

	signals := models.EventSignals{
		DurationHours: hours,
		DurationDays:  days,
		Bucket:        durationBucket(hours, days),
		DeclaredType:  strings.ToLower(strings.TrimSpace(meta.DeclaredType)),
		KeywordHits:   extractKeywords(meta),
		TeamMode:      meta.TeamMode,
		VenueClass:    classifyVenue(meta.Venue),
	}
	if signals.TeamMode == "" {
		signals.TeamMode = models.TeamModeIndividual
	}
	return signals
}

func durationBucket(hours float64, days int) models.DurationBucket {
	switch {
	case hours <= 8:
		return models.DurationShort
	case hours <= 24:
		return models.DurationMedium
	case days <= 2:
		// over a day long but crossing at most one day boundary
		return models.DurationLong
	default:
		return models.DurationMultiDay
	}
}

// calendarDays counts distinct calendar dates the event window touches.
func calendarDays(meta models.EventMeta) int {
	start := meta.StartTime
	end := meta.EndTime
	if !start.Before(end) {
		return 1
	}
	startDay := midnight(start)
	endDay := midnight(end)
	days := int(math.Round(endDay.Sub(startDay).Hours()/24)) + 1
	if days < 1 {
		days = 1
	}
	return days
}

func midnight(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

func extractKeywords(meta models.EventMeta) []string {
	haystack := strings.ToLower(meta.Title + " " + meta.DeclaredType + " " + meta.Description)
	var hits []string
	for _, set := range [][]string{competitionKeywords, singleMarkKeywords, dayKeywords, milestoneKeywords, continuousKeywords} {
		for _, kw := range set {
			if strings.Contains(haystack, kw) {
				hits = append(hits, kw)
			}
		}
	}
	return hits
}

func classifyVenue(venue string) models.VenueClass {
	v := strings.ToLower(strings.TrimSpace(venue))
	if v == "" {
		return models.VenueUnknown
	}
	physical := containsAny(v, physicalVenueWords)
	online := containsAny(v, onlineVenueWords)
	switch {
	case physical && online:
		return models.VenueHybrid
	case physical:
		return models.VenuePhysical
	case online:
		return models.VenueOnline
	default:
		return models.VenueUnknown
	}
}

func containsAny(haystack string, words []string) bool {
	for _, w := range words {
		if strings.Contains(haystack, w) {
			return true
		}
	}
	return false
}
