// Package calendar holds the calendar event model and the sources that
// produce events for a date range.
package calendar

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"sort"
	"time"
)

// ErrInvalidRange is returned when a range does not end after it starts.
var ErrInvalidRange = errors.New("calendar: end must be after start")

// StatusCancelled is the iCalendar/Google status of a cancelled event.
const StatusCancelled = "cancelled"

type Attendee struct {
	Name      string `json:"name,omitempty" yaml:"name,omitempty"`
	Email     string `json:"email,omitempty" yaml:"email,omitempty"`
	Organizer bool   `json:"organizer,omitempty" yaml:"organizer,omitempty"`
}

// Attachment is a file linked to an event, such as a notes document.
type Attachment struct {
	Title    string `json:"title" yaml:"title"`
	FileID   string `json:"file_id,omitempty" yaml:"file_id,omitempty"`
	MimeType string `json:"mime_type,omitempty" yaml:"mime_type,omitempty"`
	URL      string `json:"url,omitempty" yaml:"url,omitempty"`
}

type Event struct {
	ID          string       `json:"id" yaml:"id"`
	Title       string       `json:"title" yaml:"title"`
	Start       time.Time    `json:"start" yaml:"start"`
	End         time.Time    `json:"end" yaml:"end"`
	Status      string       `json:"status,omitempty" yaml:"status,omitempty"`
	Attendees   []Attendee   `json:"attendees,omitempty" yaml:"attendees,omitempty"`
	Attachments []Attachment `json:"attachments,omitempty" yaml:"attachments,omitempty"`
}

// Source lists the events that start in [from, to).
type Source interface {
	Events(ctx context.Context, from, to time.Time) ([]Event, error)
}

// ValidateRange checks that to is after from.
func ValidateRange(from, to time.Time) error {
	if !to.After(from) {
		return fmt.Errorf("%w: %s .. %s", ErrInvalidRange,
			from.Format(time.DateOnly), to.Format(time.DateOnly))
	}
	return nil
}

// Sort orders events chronologically; equal starts are ordered by ID.
func Sort(events []Event) {
	sort.SliceStable(events, func(i, j int) bool {
		if !events[i].Start.Equal(events[j].Start) {
			return events[i].Start.Before(events[j].Start)
		}
		return events[i].ID < events[j].ID
	})
}

var docIDPattern = regexp.MustCompile(`/d/([A-Za-z0-9_-]{10,})`)

// FileIDFromURL extracts a Drive file ID from a Docs/Drive URL.
func FileIDFromURL(u string) string {
	if m := docIDPattern.FindStringSubmatch(u); m != nil {
		return m[1]
	}
	return ""
}
