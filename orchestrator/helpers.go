package orchestrator

import (
	"fmt"
	"sort"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/hugogrimmett/meeting-analyser/calendar"
	"github.com/hugogrimmett/meeting-analyser/identity"
	"github.com/hugogrimmett/meeting-analyser/meeting"
)

// displayNames maps participant IDs to the names shown on charts.
func displayNames(reg *identity.Registry) map[string]string {
	out := make(map[string]string)
	for _, p := range reg.Participants() {
		out[p.ID] = p.DisplayName
	}
	return out
}

// dedupe keeps the first event of each ID. Every later copy is dropped with
// a warning.
func dedupe(log logrus.FieldLogger, events []calendar.Event) ([]calendar.Event, []meeting.Warning) {
	ws := []meeting.Warning{}
	seen := make(map[string]bool, len(events))
	out := make([]calendar.Event, 0, len(events))
	for _, ev := range events {
		if !seen[ev.ID] {
			seen[ev.ID] = true
			out = append(out, ev)
			continue
		}
		w := meeting.Warning{
			MeetingID: ev.ID,
			Title:     ev.Title,
			Kind:      meeting.WarnDuplicateEvent,
			Message:   fmt.Sprintf("event listed more than once; copy starting %s skipped", ev.Start.Format(time.RFC3339)),
		}
		log.WithFields(logrus.Fields{"meeting": ev.ID, "kind": w.Kind}).Warn(w.Message)
		ws = append(ws, w)
	}
	return out, ws
}

// subtitle describes the date range; to is exclusive, so the last day shown
// is the one before it.
func subtitle(from, to time.Time) string {
	last := to.Add(-time.Nanosecond)
	if last.Format(time.DateOnly) == from.Format(time.DateOnly) {
		return from.Format(time.DateOnly)
	}
	return from.Format(time.DateOnly) + " to " + last.Format(time.DateOnly)
}

// summarize logs the warning counts per kind, in kind order.
func summarize(log logrus.FieldLogger, ws []meeting.Warning) {
	if len(ws) == 0 {
		log.Info("no warnings")
		return
	}
	counts := make(map[meeting.WarningKind]int)
	for _, w := range ws {
		counts[w.Kind]++
	}
	kinds := make([]string, 0, len(counts))
	for k := range counts {
		kinds = append(kinds, string(k))
	}
	sort.Strings(kinds)

	fields := logrus.Fields{"warnings": len(ws)}
	for _, k := range kinds {
		fields[k] = counts[meeting.WarningKind(k)]
	}
	log.WithFields(fields).Warn("run finished with warnings")
	for _, w := range ws {
		log.Info("  " + w.String())
	}
}
