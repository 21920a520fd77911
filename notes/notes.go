// Package notes turns the free text of AI-generated meeting notes into an
// ordered sequence of speaker turns.
//
// Notes formatting varies by source, so everything here is structural:
// headings split the text into sections, a section counts as dialogue only
// when most of its lines carry speaker labels, and non-dialogue sections
// (summaries, details, action items) never contribute turns.
package notes

import (
	"context"
	"regexp"
	"time"

	"github.com/hugogrimmett/meeting-analyser/calendar"
)

// SectionKind classifies a section of the notes.
type SectionKind string

const (
	SectionDialogue SectionKind = "dialogue"
	SectionOther    SectionKind = "other"
)

// Section is a heading-delimited block of lines.
type Section struct {
	Heading   string      `json:"heading,omitempty"`
	Kind      SectionKind `json:"kind"`
	StartLine int         `json:"start_line"` // 1-based, inclusive
	EndLine   int         `json:"end_line"`   // 1-based, inclusive
	Labeled   int         `json:"labeled"`
	Content   int         `json:"content"`
	Stamped   int         `json:"stamped"` // lines carrying a timestamp
}

// Turn is one attributed stretch of speech as it appears in the notes.
// Speaker is the raw label; an empty Speaker is unlabeled speech.
type Turn struct {
	Speaker    string        `json:"speaker"`
	Text       string        `json:"text"`
	Addressees []string      `json:"addressees,omitempty"`
	Offset     time.Duration `json:"offset,omitempty"`
	HasOffset  bool          `json:"has_offset,omitempty"`
	Line       int           `json:"line"`
}

// Words returns the participation weight of the turn.
func (t Turn) Words() int { return CountWords(t.Text) }

// Notes is the parsed form of one meeting's notes.
type Notes struct {
	Date     time.Time `json:"date,omitempty"`
	Title    string    `json:"title,omitempty"`
	Sections []Section `json:"sections"`
	Turns    []Turn    `json:"turns"`
}

// Speakers returns the distinct raw speaker labels in order of first turn.
func (n *Notes) Speakers() []string {
	seen := make(map[string]bool)
	var out []string
	for _, t := range n.Turns {
		if !seen[t.Speaker] {
			seen[t.Speaker] = true
			out = append(out, t.Speaker)
		}
	}
	return out
}

// Source supplies the raw notes text attached to a calendar event. A missing
// document is reported as found == false with a nil error.
type Source interface {
	Fetch(ctx context.Context, ev calendar.Event) (text string, found bool, err error)
}

var wordPattern = regexp.MustCompile(`[\p{L}\p{N}_]+`)

// CountWords counts word tokens; "didn't" is two.
func CountWords(s string) int {
	return len(wordPattern.FindAllStringIndex(s, -1))
}
