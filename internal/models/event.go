package models

import "time"

// TeamMode indicates whether participants attend individually or as teams.
type TeamMode string

const (
	TeamModeIndividual TeamMode = "individual"
	TeamModeTeam       TeamMode = "team"
)

// VenueClass classifies where an event takes place.
type VenueClass string

const (
	VenuePhysical VenueClass = "physical"
	VenueOnline   VenueClass = "online"
	VenueHybrid   VenueClass = "hybrid"
	VenueUnknown  VenueClass = "unknown"
)

// PresencePolicy controls how the two mark layers combine into "present".
type PresencePolicy string

const (
	// PresenceEither counts a checkpoint present when any layer is marked.
	PresenceEither PresencePolicy = "either"
	// PresenceBoth requires both the virtual and physical layer.
	PresenceBoth PresencePolicy = "both"
)

// Valid reports whether the policy is a supported value.
func (p PresencePolicy) Valid() bool {
	return p == PresenceEither || p == PresenceBoth
}

// EventMeta is the slice of event metadata the engine consumes. The event
// CRUD layer owns the full record; the engine only reads these fields.
type EventMeta struct {
	ID             string         `db:"id" json:"id"`
	Title          string         `db:"title" json:"title"`
	DeclaredType   string         `db:"declared_type" json:"declared_type"`
	Description    string         `db:"description" json:"description"`
	Venue          string         `db:"venue" json:"venue"`
	TeamMode       TeamMode       `db:"team_mode" json:"team_mode"`
	TeamSize       int            `db:"team_size" json:"team_size"`
	StartTime      time.Time      `db:"start_time" json:"start_time"`
	EndTime        time.Time      `db:"end_time" json:"end_time"`
	PresencePolicy PresencePolicy `db:"presence_policy" json:"presence_policy"`
}

// DurationHours returns the event span in hours.
func (e EventMeta) DurationHours() float64 {
	return e.EndTime.Sub(e.StartTime).Hours()
}

// Finished reports whether the event window has closed.
func (e EventMeta) Finished(now time.Time) bool {
	return now.After(e.EndTime)
}
