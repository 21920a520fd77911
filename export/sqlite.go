// Package export writes the analysis of one run into a SQLite file so it
// can be queried after the run. Each run gets its own file.
package export

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"github.com/hugogrimmett/meeting-analyser/identity"
	"github.com/hugogrimmett/meeting-analyser/meeting"
	"github.com/hugogrimmett/meeting-analyser/metrics"
)

const schema = `
CREATE TABLE runs (
    id TEXT PRIMARY KEY,
    range_start TEXT NOT NULL,
    range_end TEXT NOT NULL,
    generated_at TEXT NOT NULL,
    total_words INTEGER NOT NULL
);

CREATE TABLE participants (
    id TEXT PRIMARY KEY,
    display_name TEXT NOT NULL,
    from_calendar INTEGER NOT NULL,
    words INTEGER NOT NULL DEFAULT 0,
    utterances INTEGER NOT NULL DEFAULT 0,
    meetings_attended INTEGER NOT NULL DEFAULT 0,
    meetings_spoken INTEGER NOT NULL DEFAULT 0,
    pooled_share REAL,
    attended_share REAL
);

CREATE TABLE aliases (
    alias TEXT NOT NULL,
    participant_id TEXT NOT NULL,
    PRIMARY KEY (alias, participant_id),
    FOREIGN KEY (participant_id) REFERENCES participants(id)
);

CREATE TABLE meetings (
    id TEXT PRIMARY KEY,
    title TEXT NOT NULL,
    start_at TEXT NOT NULL,
    end_at TEXT NOT NULL,
    status TEXT NOT NULL CHECK(status IN ('ok', 'no_notes', 'no_dialogue', 'retrieval_failed')),
    timed INTEGER NOT NULL,
    notes_title TEXT,
    total_words INTEGER NOT NULL
);

CREATE TABLE attendees (
    meeting_id TEXT NOT NULL,
    participant_id TEXT NOT NULL,
    position INTEGER NOT NULL,
    PRIMARY KEY (meeting_id, participant_id),
    FOREIGN KEY (meeting_id) REFERENCES meetings(id),
    FOREIGN KEY (participant_id) REFERENCES participants(id)
);

CREATE TABLE utterances (
    meeting_id TEXT NOT NULL,
    seq INTEGER NOT NULL,
    speaker_id TEXT NOT NULL,
    text TEXT NOT NULL,
    words INTEGER NOT NULL,
    chars INTEGER NOT NULL,
    at TEXT,
    PRIMARY KEY (meeting_id, seq),
    FOREIGN KEY (meeting_id) REFERENCES meetings(id),
    FOREIGN KEY (speaker_id) REFERENCES participants(id)
);

CREATE TABLE participation (
    meeting_id TEXT NOT NULL,
    participant_id TEXT NOT NULL,
    utterances INTEGER NOT NULL,
    words INTEGER NOT NULL,
    share REAL,
    PRIMARY KEY (meeting_id, participant_id),
    FOREIGN KEY (meeting_id) REFERENCES meetings(id)
);

-- meeting_id is NULL for run-wide edges.
CREATE TABLE edges (
    meeting_id TEXT,
    source_id TEXT NOT NULL,
    target_id TEXT NOT NULL,
    provenance TEXT NOT NULL CHECK(provenance IN ('explicit', 'adjacency-proxy')),
    directed INTEGER NOT NULL,
    weight REAL NOT NULL,
    meetings INTEGER NOT NULL
);
CREATE INDEX idx_edges_meeting ON edges(meeting_id);
`

// Run is everything a snapshot records.
type Run struct {
	ID           string
	From, To     time.Time
	GeneratedAt  time.Time
	Participants []*identity.Participant
	Meetings     []*meeting.Meeting
	Metrics      []metrics.MeetingMetrics
	Aggregate    metrics.AggregateMetrics
}

// Write creates the SQLite file at path and stores run in it.
func Write(ctx context.Context, path string, run Run) error {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()

	if _, err := db.ExecContext(ctx, "PRAGMA foreign_keys = ON"); err != nil {
		return fmt.Errorf("failed to enable foreign keys: %w", err)
	}
	if _, err := db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	if err := write(ctx, tx, run); err != nil {
		tx.Rollback()
		return err
	}
	return tx.Commit()
}

func write(ctx context.Context, tx *sql.Tx, run Run) error {
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO runs (id, range_start, range_end, generated_at, total_words) VALUES (?, ?, ?, ?, ?)`,
		run.ID, stamp(run.From), stamp(run.To), stamp(run.GeneratedAt), run.Aggregate.TotalWords,
	); err != nil {
		return fmt.Errorf("insert run: %w", err)
	}

	totals := make(map[string]metrics.ParticipantTotals, len(run.Aggregate.Participants))
	for _, p := range run.Aggregate.Participants {
		totals[p.ID] = p
	}
	for _, p := range run.Participants {
		t := totals[p.ID]
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO participants (id, display_name, from_calendar, words, utterances, meetings_attended, meetings_spoken, pooled_share, attended_share)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			p.ID, p.DisplayName, p.FromCalendar, t.Words, t.Utterances, t.MeetingsAttended, t.MeetingsSpoken,
			nullable(t.PooledShare), nullable(t.AttendedShare),
		); err != nil {
			return fmt.Errorf("insert participant %s: %w", p.ID, err)
		}
		for _, a := range p.Aliases {
			if _, err := tx.ExecContext(ctx, `INSERT INTO aliases (alias, participant_id) VALUES (?, ?)`, a, p.ID); err != nil {
				return fmt.Errorf("insert alias %q: %w", a, err)
			}
		}
	}

	words := make(map[string]int, len(run.Metrics))
	for _, mm := range run.Metrics {
		words[mm.MeetingID] = mm.TotalWords
	}
	for _, m := range run.Meetings {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO meetings (id, title, start_at, end_at, status, timed, notes_title, total_words) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			m.ID, m.Title, stamp(m.Start), stamp(m.End), string(m.Status), m.Timed, m.NotesTitle, words[m.ID],
		); err != nil {
			return fmt.Errorf("insert meeting %s: %w", m.ID, err)
		}
		for i, id := range m.Attendees {
			if _, err := tx.ExecContext(ctx,
				`INSERT INTO attendees (meeting_id, participant_id, position) VALUES (?, ?, ?)`, m.ID, id, i,
			); err != nil {
				return fmt.Errorf("insert attendee: %w", err)
			}
		}
		for _, u := range m.Utterances {
			var at any
			if u.At != nil {
				at = stamp(*u.At)
			}
			if _, err := tx.ExecContext(ctx,
				`INSERT INTO utterances (meeting_id, seq, speaker_id, text, words, chars, at) VALUES (?, ?, ?, ?, ?, ?, ?)`,
				m.ID, u.Seq, u.Speaker, u.Text, u.Words, u.Chars, at,
			); err != nil {
				return fmt.Errorf("insert utterance %s/%d: %w", m.ID, u.Seq, err)
			}
		}
	}

	for _, mm := range run.Metrics {
		for _, p := range mm.Participants {
			if _, err := tx.ExecContext(ctx,
				`INSERT INTO participation (meeting_id, participant_id, utterances, words, share) VALUES (?, ?, ?, ?, ?)`,
				mm.MeetingID, p.ID, p.Utterances, p.Words, nullable(p.Share),
			); err != nil {
				return fmt.Errorf("insert participation: %w", err)
			}
		}
		if err := insertEdges(ctx, tx, mm.MeetingID, mm.Edges); err != nil {
			return err
		}
	}
	return insertEdges(ctx, tx, "", run.Aggregate.Edges)
}

func insertEdges(ctx context.Context, tx *sql.Tx, meetingID string, edges []metrics.Edge) error {
	var mid any
	if meetingID != "" {
		mid = meetingID
	}
	for _, e := range edges {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO edges (meeting_id, source_id, target_id, provenance, directed, weight, meetings) VALUES (?, ?, ?, ?, ?, ?, ?)`,
			mid, e.Source, e.Target, string(e.Provenance), e.Directed, e.Weight, e.Meetings,
		); err != nil {
			return fmt.Errorf("insert edge: %w", err)
		}
	}
	return nil
}

func stamp(t time.Time) string { return t.UTC().Format(time.RFC3339) }

func nullable(p metrics.Percent) any {
	if !p.Valid {
		return nil
	}
	return p.Value
}
