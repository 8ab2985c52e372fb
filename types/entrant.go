package types

import "time"

// Entrant is one student occupying a slot in a room's waiting line. All fields
// are immutable after admission; being served or dropped removes the entrant
// from the queue, it never mutates it.
type Entrant struct {
	Id          string `json:"id" gorm:"primaryKey"`
	DisplayName string `json:"display_name"` // generated pseudonym, decoupled from any personal identifier
	// Fingerprint is the keyed one-way hash of the raw contact, used only for
	// duplicate-membership checks. Never sent to clients.
	Fingerprint string `json:"-" gorm:"index"`
	// RawContact is kept verbatim so a notification can actually be delivered.
	// Never sent to clients.
	RawContact    string    `json:"-"`
	Topic         string    `json:"topic,omitempty"`
	NotifyConsent bool      `json:"notify_consent"`
	JoinedAt      time.Time `json:"joined_at"`
}

// QueueEntry pairs an entrant with its derived 1-based position. Position is
// computed from the current order at read time, it is not authoritative state.
type QueueEntry struct {
	Entrant  *Entrant `json:"entrant"`
	Position int      `json:"position"`
}
