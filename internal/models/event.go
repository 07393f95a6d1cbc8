package models

import "time"

// Event represents an event as seen by this engine. Events are created and
// managed by the administration subsystem; the engine only reads them, mainly
// for the fallback ticket validity window.
type Event struct {
	ID        int       `json:"id" db:"id"`
	Title     string    `json:"title" db:"title"`
	StartsAt  time.Time `json:"starts_at" db:"starts_at"`
	EndsAt    time.Time `json:"ends_at" db:"ends_at"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

// HasEnded returns true if the event is over at the given time.
func (e *Event) HasEnded(now time.Time) bool {
	return now.After(e.EndsAt)
}
