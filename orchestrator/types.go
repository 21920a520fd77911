package orchestrator

import (
	"errors"
	"time"

	"github.com/hugogrimmett/meeting-analyser/calendar"
	"github.com/hugogrimmett/meeting-analyser/meeting"
	"github.com/hugogrimmett/meeting-analyser/metrics"
	"github.com/hugogrimmett/meeting-analyser/notes"
	"github.com/hugogrimmett/meeting-analyser/presentation"
)

// ErrSetup marks failures that stop a run before any meeting is analysed.
var ErrSetup = errors.New("setup failed")

// Deps are the collaborators of a run. A nil Renderer or Slides is replaced
// by the local writers, placed in the run's session directory.
type Deps struct {
	Events   calendar.Source
	Notes    notes.Source
	Renderer presentation.Renderer
	Slides   presentation.SlideGenerator
}

// Report is the outcome of a run.
type Report struct {
	RunID      string                   `json:"run_id"`
	SessionID  string                   `json:"session_id"`
	SessionDir string                   `json:"session_dir"`
	From       time.Time                `json:"from"`
	To         time.Time                `json:"to"`
	Meetings   []*meeting.Meeting       `json:"-"`
	Metrics    []metrics.MeetingMetrics `json:"-"`
	Aggregate  metrics.AggregateMetrics `json:"-"`
	Warnings   []meeting.Warning        `json:"warnings"`
	Result     presentation.Result      `json:"result"`
}

// Counts returns how many meetings ended in each status.
func (r *Report) Counts() map[meeting.Status]int {
	out := make(map[meeting.Status]int)
	for _, m := range r.Meetings {
		out[m.Status]++
	}
	return out
}
