package orchestrator

import (
	"context"
	"os"
	"path/filepath"
	"time"

	"github.com/hugogrimmett/meeting-analyser/export"
	"github.com/hugogrimmett/meeting-analyser/identity"
	"github.com/hugogrimmett/meeting-analyser/local"
	"github.com/hugogrimmett/meeting-analyser/meeting"
	"github.com/hugogrimmett/meeting-analyser/metrics"
)

// Files written into a session directory.
const (
	MeetingsFile     = "meetings.json"
	MetricsFile      = "metrics.json"
	AggregateFile    = "aggregate.json"
	ParticipantsFile = "participants.json"
	WarningsFile     = "warnings.json"
	RunFile          = "run.json"
	SnapshotFile     = "analysis.sqlite"
	PromFile         = "metrics.prom"
	PresentationFile = "presentation.json"
)

type PersistBundle struct {
	RunID       string                 `json:"run_id"`
	SessionID   string                 `json:"session_id"`
	From        time.Time              `json:"from"`
	To          time.Time              `json:"to"`
	GeneratedAt time.Time              `json:"generated_at"`
	ConfigFile  string                 `json:"config_file,omitempty"`
	Meetings    int                    `json:"meetings"`
	Statuses    map[meeting.Status]int `json:"statuses"`
	Warnings    int                    `json:"warnings"`
}

func mkSessionDir(outputsRoot, runID string, now time.Time) (string, string, error) {
	short := runID
	if len(short) > 8 {
		short = short[:8]
	}
	sid := "session_" + now.Format("20060102-150405") + "_" + short
	dir := filepath.Join(outputsRoot, sid)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", "", err
	}
	return sid, dir, nil
}

// persist writes the analysis of a run as JSON files plus the SQLite
// snapshot.
func persist(ctx context.Context, dir string, bundle PersistBundle, reg *identity.Registry,
	ms []*meeting.Meeting, per []metrics.MeetingMetrics, agg metrics.AggregateMetrics, warns []meeting.Warning) error {
	if warns == nil {
		warns = []meeting.Warning{}
	}
	files := []struct {
		name string
		v    any
	}{
		{MeetingsFile, ms},
		{MetricsFile, per},
		{AggregateFile, agg},
		{ParticipantsFile, reg.Participants()},
		{WarningsFile, warns},
		{RunFile, bundle},
	}
	for _, f := range files {
		if err := local.WriteJSON(filepath.Join(dir, f.name), f.v); err != nil {
			return err
		}
	}

	return export.Write(ctx, filepath.Join(dir, SnapshotFile), export.Run{
		ID:           bundle.RunID,
		From:         bundle.From,
		To:           bundle.To,
		GeneratedAt:  bundle.GeneratedAt,
		Participants: reg.Participants(),
		Meetings:     ms,
		Metrics:      per,
		Aggregate:    agg,
	})
}
