package models

import "time"

// Participant is the minimal identity slice the engine reads from the
// registration store.
type Participant struct {
	ID       string `db:"id" json:"id"`
	FullName string `db:"full_name" json:"full_name"`
	Email    string `db:"email" json:"email"`
}

// Registration links a participant to an event. Owned by the excluded
// registration CRUD layer; the engine only reads.
type Registration struct {
	ID            string    `db:"id" json:"id"`
	EventID       string    `db:"event_id" json:"event_id"`
	ParticipantID string    `db:"participant_id" json:"participant_id"`
	RegisteredAt  time.Time `db:"registered_at" json:"registered_at"`
}
