package models

// DurationBucket groups event duration into classification-relevant ranges.
type DurationBucket string

const (
	DurationShort    DurationBucket = "short"     // <= 8h
	DurationMedium   DurationBucket = "medium"    // 8h < d <= 24h
	DurationLong     DurationBucket = "long"      // > 24h, within one day boundary
	DurationMultiDay DurationBucket = "multi_day" // spans more than one calendar day
)

// EventSignals are the normalized inputs to the strategy classifier.
// Computed once per classification request and never persisted.
type EventSignals struct {
	DurationHours float64        `json:"duration_hours"`
	DurationDays  int            `json:"duration_days"`
	Bucket        DurationBucket `json:"duration_bucket"`
	DeclaredType  string         `json:"declared_type"`
	KeywordHits   []string       `json:"keyword_hits"`
	TeamMode      TeamMode       `json:"team_mode"`
	VenueClass    VenueClass     `json:"venue_class"`
}

// HasKeyword reports whether the given keyword was extracted.
func (s EventSignals) HasKeyword(kw string) bool {
	for _, hit := range s.KeywordHits {
		if hit == kw {
			return true
		}
	}
	return false
}

// HasAnyKeyword reports whether any of the given keywords was extracted.
func (s EventSignals) HasAnyKeyword(kws ...string) bool {
	for _, kw := range kws {
		if s.HasKeyword(kw) {
			return true
		}
	}
	return false
}
