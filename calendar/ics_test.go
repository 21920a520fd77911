package calendar

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var icsLines = []string{
	"BEGIN:VCALENDAR",
	"VERSION:2.0",
	"PRODID:-//meeting-analyser//test//EN",
	"BEGIN:VEVENT",
	"UID:sync-1",
	"DTSTAMP:20250701T000000Z",
	"SUMMARY:Weekly sync",
	"DTSTART:20250703T100000Z",
	"DTEND:20250703T103000Z",
	"ORGANIZER:mailto:alice@example.com",
	"ATTENDEE;CN=Alice Jones:mailto:alice@example.com",
	"ATTENDEE;CN=Bob Smith:mailto:Bob@Example.com",
	"ATTACH;FILENAME=Notes by Gemini;FMTTYPE=application/vnd.google-apps.document:https://docs.google.com/document/d/1AbCdEfGhIjKlMn/edit",
	"END:VEVENT",
	"BEGIN:VEVENT",
	"UID:cancelled-1",
	"DTSTAMP:20250701T000000Z",
	"SUMMARY:Cancelled",
	"STATUS:CANCELLED",
	"DTSTART:20250704T100000Z",
	"DTEND:20250704T110000Z",
	"END:VEVENT",
	"BEGIN:VEVENT",
	"UID:holiday-1",
	"DTSTAMP:20250701T000000Z",
	"SUMMARY:Holiday",
	"DTSTART;VALUE=DATE:20250704",
	"DTEND;VALUE=DATE:20250705",
	"END:VEVENT",
	"BEGIN:VEVENT",
	"UID:later-1",
	"DTSTAMP:20250701T000000Z",
	"SUMMARY:Next month",
	"DTSTART:20250803T100000Z",
	"DTEND:20250803T110000Z",
	"END:VEVENT",
	"BEGIN:VEVENT",
	"UID:standup",
	"DTSTAMP:20250601T000000Z",
	"SUMMARY:Standup",
	"DTSTART:20250630T090000Z",
	"DTEND:20250630T091500Z",
	"RRULE:FREQ=WEEKLY;COUNT=3",
	"END:VEVENT",
	"END:VCALENDAR",
	"",
}

func writeICS(t *testing.T) string {
	t.Helper()
	return writeICSLines(t, icsLines)
}

func writeICSLines(t *testing.T, lines []string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "calendar.ics")
	require.NoError(t, os.WriteFile(path, []byte(strings.Join(lines, "\r\n")), 0o644))
	return path
}

func TestICSFile_Events(t *testing.T) {
	src := &ICSFile{Path: writeICS(t), Location: time.UTC}
	from := time.Date(2025, 7, 1, 0, 0, 0, 0, time.UTC)
	to := time.Date(2025, 7, 10, 0, 0, 0, 0, time.UTC)

	events, err := src.Events(context.Background(), from, to)
	require.NoError(t, err)
	Sort(events)

	require.Len(t, events, 2)

	sync := events[0]
	assert.Equal(t, "sync-1", sync.ID)
	assert.Equal(t, "Weekly sync", sync.Title)
	assert.Equal(t, time.Date(2025, 7, 3, 10, 0, 0, 0, time.UTC), sync.Start.UTC())
	assert.Equal(t, 30*time.Minute, sync.End.Sub(sync.Start))
	require.Len(t, sync.Attendees, 2)
	assert.Equal(t, Attendee{Name: "Alice Jones", Email: "alice@example.com", Organizer: true}, sync.Attendees[0])
	assert.Equal(t, "bob@example.com", sync.Attendees[1].Email)
	require.Len(t, sync.Attachments, 1)
	assert.Equal(t, "Notes by Gemini", sync.Attachments[0].Title)
	assert.Equal(t, "1AbCdEfGhIjKlMn", sync.Attachments[0].FileID)
	assert.Equal(t, "application/vnd.google-apps.document", sync.Attachments[0].MimeType)

	standup := events[1]
	assert.Equal(t, "standup_20250707T090000Z", standup.ID)
	assert.Equal(t, time.Date(2025, 7, 7, 9, 0, 0, 0, time.UTC), standup.Start.UTC())
	assert.Equal(t, 15*time.Minute, standup.End.Sub(standup.Start))
}

func TestICSFile_RecurrenceOverrides(t *testing.T) {
	path := writeICSLines(t, []string{
		"BEGIN:VCALENDAR",
		"VERSION:2.0",
		"PRODID:-//meeting-analyser//test//EN",
		"BEGIN:VEVENT",
		"UID:standup",
		"DTSTAMP:20250701T000000Z",
		"RECURRENCE-ID:20250708T090000Z",
		"SUMMARY:Standup (moved)",
		"DTSTART:20250708T110000Z",
		"DTEND:20250708T111500Z",
		"END:VEVENT",
		"BEGIN:VEVENT",
		"UID:standup",
		"DTSTAMP:20250701T000000Z",
		"RECURRENCE-ID:20250709T090000Z",
		"SUMMARY:Standup",
		"STATUS:CANCELLED",
		"DTSTART:20250709T090000Z",
		"DTEND:20250709T091500Z",
		"END:VEVENT",
		"BEGIN:VEVENT",
		"UID:standup",
		"DTSTAMP:20250601T000000Z",
		"SUMMARY:Standup",
		"DTSTART:20250707T090000Z",
		"DTEND:20250707T091500Z",
		"RRULE:FREQ=DAILY;COUNT=3",
		"END:VEVENT",
		"END:VCALENDAR",
		"",
	})
	src := &ICSFile{Path: path, Location: time.UTC}
	from := time.Date(2025, 7, 7, 0, 0, 0, 0, time.UTC)
	to := time.Date(2025, 7, 14, 0, 0, 0, 0, time.UTC)

	events, err := src.Events(context.Background(), from, to)
	require.NoError(t, err)
	Sort(events)

	require.Len(t, events, 2)
	assert.Equal(t, "standup_20250707T090000Z", events[0].ID)
	assert.Equal(t, "Standup", events[0].Title)

	moved := events[1]
	assert.Equal(t, "standup_20250708T090000Z", moved.ID)
	assert.Equal(t, "Standup (moved)", moved.Title)
	assert.Equal(t, time.Date(2025, 7, 8, 11, 0, 0, 0, time.UTC), moved.Start.UTC())
	assert.Equal(t, 15*time.Minute, moved.End.Sub(moved.Start))
}

func TestICSFile_InvalidRange(t *testing.T) {
	src := &ICSFile{Path: writeICS(t)}
	day := time.Date(2025, 7, 1, 0, 0, 0, 0, time.UTC)

	_, err := src.Events(context.Background(), day, day)
	assert.True(t, errors.Is(err, ErrInvalidRange))
}

func TestICSFile_MissingFile(t *testing.T) {
	src := &ICSFile{Path: filepath.Join(t.TempDir(), "nope.ics")}
	_, err := src.Events(context.Background(), time.Now(), time.Now().Add(time.Hour))
	assert.Error(t, err)
}

func TestSort(t *testing.T) {
	t0 := time.Date(2025, 7, 1, 9, 0, 0, 0, time.UTC)
	events := []Event{
		{ID: "c", Start: t0.Add(time.Hour)},
		{ID: "b", Start: t0},
		{ID: "a", Start: t0},
	}
	Sort(events)
	assert.Equal(t, "a", events[0].ID)
	assert.Equal(t, "b", events[1].ID)
	assert.Equal(t, "c", events[2].ID)
}

func TestFileIDFromURL(t *testing.T) {
	assert.Equal(t, "1AbCdEfGhIjKlMn", FileIDFromURL("https://docs.google.com/document/d/1AbCdEfGhIjKlMn/edit?usp=meet"))
	assert.Equal(t, "", FileIDFromURL("https://example.com/notes"))
}
