// Package identity reconciles the many spellings of a person's name seen in
// meeting notes and calendar attendee lists into one canonical Participant.
package identity

import "github.com/google/uuid"

// UnknownID is the participant that unlabeled speech is attributed to.
const UnknownID = "unknown"

// UnknownName is the display name of the unknown placeholder.
const UnknownName = "Unknown speaker"

// namespace seeds the deterministic participant IDs.
var namespace = uuid.MustParse("6f1d0c2e-4b8a-5e7f-9c3d-2a1b0e9f8d7c")

// Participant is one canonical identity.
type Participant struct {
	ID           string   `json:"id" yaml:"id"`
	DisplayName  string   `json:"display_name" yaml:"display_name"`
	Aliases      []string `json:"aliases" yaml:"aliases"`
	FromCalendar bool     `json:"from_calendar" yaml:"from_calendar"`
}

// IsUnknown reports whether p is the unknown placeholder.
func (p *Participant) IsUnknown() bool { return p != nil && p.ID == UnknownID }

// participantID derives the ID from the first normalized key. Two people
// sharing a name get a numbered key, see Registry.create.
func participantID(key string) string {
	return uuid.NewSHA1(namespace, []byte(key)).String()
}
