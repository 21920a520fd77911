package export

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"
	"time"

	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hugogrimmett/meeting-analyser/calendar"
	"github.com/hugogrimmett/meeting-analyser/identity"
	"github.com/hugogrimmett/meeting-analyser/meeting"
	"github.com/hugogrimmett/meeting-analyser/metrics"
	"github.com/hugogrimmett/meeting-analyser/notes"
)

func sampleRun(t *testing.T) Run {
	t.Helper()
	log, _ := test.NewNullLogger()
	n := meeting.NewNormalizer(log)
	reg := identity.NewRegistry()
	start := time.Date(2025, 7, 3, 10, 0, 0, 0, time.UTC)
	attendees := []calendar.Attendee{
		{Name: "Alice Jones", Email: "alice@example.com"},
		{Name: "Bob Smith", Email: "bob@example.com"},
	}

	sync, _ := n.Normalize(calendar.Event{
		ID: "sync-1", Title: "Weekly sync", Start: start, End: start.Add(time.Hour), Attendees: attendees,
	}, notes.Parse("Alice: Hi Bob. Bob: Hi Alice, how are you?"), reg)
	quiet, _ := n.Normalize(calendar.Event{
		ID: "quiet-1", Title: "Quiet", Start: start.Add(24 * time.Hour), End: start.Add(25 * time.Hour), Attendees: attendees,
	}, nil, reg)
	require.NotNil(t, sync)
	require.NotNil(t, quiet)

	meetings := []*meeting.Meeting{sync, quiet}
	per := []metrics.MeetingMetrics{metrics.ComputeMeeting(sync), metrics.ComputeMeeting(quiet)}
	return Run{
		ID:           "run-1",
		From:         start.Add(-24 * time.Hour),
		To:           start.Add(6 * 24 * time.Hour),
		GeneratedAt:  start.Add(7 * 24 * time.Hour),
		Participants: reg.Participants(),
		Meetings:     meetings,
		Metrics:      per,
		Aggregate:    metrics.ComputeAggregate(per, meetings),
	}
}

func count(t *testing.T, db *sql.DB, query string, args ...any) int {
	t.Helper()
	var n int
	require.NoError(t, db.QueryRow(query, args...).Scan(&n))
	return n
}

func TestWrite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "run.sqlite")
	run := sampleRun(t)
	require.NoError(t, Write(context.Background(), path, run))

	db, err := sql.Open("sqlite", path)
	require.NoError(t, err)
	defer db.Close()

	assert.Equal(t, 1, count(t, db, "SELECT COUNT(*) FROM runs"))
	assert.Equal(t, 2, count(t, db, "SELECT COUNT(*) FROM participants"))
	assert.Equal(t, 2, count(t, db, "SELECT COUNT(*) FROM meetings"))
	assert.Equal(t, 4, count(t, db, "SELECT COUNT(*) FROM attendees"))
	assert.Equal(t, 2, count(t, db, "SELECT COUNT(*) FROM utterances"))
	assert.Equal(t, 7, count(t, db, "SELECT total_words FROM runs WHERE id = ?", "run-1"))

	var status string
	require.NoError(t, db.QueryRow("SELECT status FROM meetings WHERE id = ?", "quiet-1").Scan(&status))
	assert.Equal(t, "no_notes", status)

	// Shares of a meeting without words are undefined and stored as NULL.
	assert.Equal(t, 2, count(t, db, "SELECT COUNT(*) FROM participation WHERE meeting_id = ? AND share IS NULL", "quiet-1"))

	var share float64
	require.NoError(t, db.QueryRow(
		`SELECT p.share FROM participation p JOIN participants x ON x.id = p.participant_id
		 WHERE p.meeting_id = ? AND x.display_name = ?`, "sync-1", "Bob Smith").Scan(&share))
	assert.InDelta(t, 71.43, share, 0.01)

	assert.Equal(t, 1, count(t, db, "SELECT COUNT(*) FROM edges WHERE meeting_id = ?", "sync-1"))
	assert.Equal(t, 1, count(t, db, "SELECT COUNT(*) FROM edges WHERE meeting_id IS NULL"))
	assert.Equal(t, 0, count(t, db, "SELECT COUNT(*) FROM edges WHERE source_id = target_id"))
}

func TestWrite_ExistingFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "run.sqlite")
	run := sampleRun(t)
	require.NoError(t, Write(context.Background(), path, run))

	err := Write(context.Background(), path, run)
	assert.ErrorContains(t, err, "failed to create schema")
}
