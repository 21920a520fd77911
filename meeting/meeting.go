// Package meeting builds the canonical per-meeting record the metrics are
// computed from: a calendar event joined with its parsed notes, every name
// resolved to a participant ID.
package meeting

import (
	"fmt"
	"time"
)

// Status describes how much of a meeting could be analysed.
type Status string

const (
	StatusOK              Status = "ok"
	StatusNoNotes         Status = "no_notes"
	StatusNoDialogue      Status = "no_dialogue"
	StatusRetrievalFailed Status = "retrieval_failed"
)

// Utterance is one attributed turn. Speaker and Addressees are participant
// IDs.
type Utterance struct {
	Speaker    string     `json:"speaker"`
	Seq        int        `json:"seq"`
	Addressees []string   `json:"addressees,omitempty"`
	Text       string     `json:"text"`
	Words      int        `json:"words"`
	Chars      int        `json:"chars"`
	At         *time.Time `json:"at,omitempty"`
}

type Meeting struct {
	ID         string      `json:"id"`
	Title      string      `json:"title"`
	Start      time.Time   `json:"start"`
	End        time.Time   `json:"end"`
	Attendees  []string    `json:"attendees"`
	Utterances []Utterance `json:"utterances"`
	Timed      bool        `json:"timed"`
	Status     Status      `json:"status"`
	NotesTitle string      `json:"notes_title,omitempty"`
}

// Speakers returns the participant IDs that spoke, in order of first turn.
func (m *Meeting) Speakers() []string {
	seen := make(map[string]bool)
	var out []string
	for _, u := range m.Utterances {
		if !seen[u.Speaker] {
			seen[u.Speaker] = true
			out = append(out, u.Speaker)
		}
	}
	return out
}

// Date is the meeting's start date as YYYY-MM-DD.
func (m *Meeting) Date() string { return m.Start.Format(time.DateOnly) }

// WarningKind classifies a non-fatal problem found while building meetings.
type WarningKind string

const (
	WarnInvalidEvent    WarningKind = "invalid_event"
	WarnRetrievalFailed WarningKind = "retrieval_failed"
	WarnNoNotes         WarningKind = "no_notes"
	WarnNoDialogue      WarningKind = "no_dialogue"
	WarnUntimed         WarningKind = "untimed"
	WarnAmbiguousName   WarningKind = "ambiguous_name"
	WarnDateMismatch    WarningKind = "date_mismatch"
	WarnDuplicateEvent  WarningKind = "duplicate_event"
)

type Warning struct {
	MeetingID string      `json:"meeting_id"`
	Title     string      `json:"title"`
	Kind      WarningKind `json:"kind"`
	Message   string      `json:"message"`
}

func (w Warning) String() string {
	return fmt.Sprintf("%s [%s]: %s", w.Title, w.Kind, w.Message)
}
