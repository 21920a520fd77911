package meeting

import (
	"fmt"
	"time"
	"unicode/utf8"

	"github.com/sirupsen/logrus"

	"github.com/hugogrimmett/meeting-analyser/calendar"
	"github.com/hugogrimmett/meeting-analyser/identity"
	"github.com/hugogrimmett/meeting-analyser/notes"
)

// Normalizer joins events and notes into Meetings.
type Normalizer struct {
	Log logrus.FieldLogger
}

func NewNormalizer(log logrus.FieldLogger) *Normalizer {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Normalizer{Log: log}
}

// Normalize builds the Meeting for ev. Attendees are resolved first so
// speaker labels can match them; nil notes and notes without turns yield a
// meeting without utterances plus a warning. An event that does not end
// after it starts yields no meeting.
func (n *Normalizer) Normalize(ev calendar.Event, nt *notes.Notes, reg *identity.Registry) (*Meeting, []Warning) {
	b := &builder{log: n.Log, ev: ev}
	m, names := b.start(reg)
	if m == nil {
		return nil, b.warns
	}

	if nt == nil {
		m.Status = StatusNoNotes
		b.warn(WarnNoNotes, "no notes document found")
		return m, b.warns
	}
	m.NotesTitle = nt.Title
	if !nt.Date.IsZero() && nt.Date.Format(time.DateOnly) != ev.Start.Format(time.DateOnly) {
		b.warn(WarnDateMismatch, "notes are dated %s", nt.Date.Format(time.DateOnly))
	}
	if len(nt.Turns) == 0 {
		m.Status = StatusNoDialogue
		b.warn(WarnNoDialogue, "notes contain no recognisable dialogue")
		return m, b.warns
	}

	var stamped, outside int
	speaking := make(map[string]bool)
	for i, t := range nt.Turns {
		res := reg.ResolveSpeaker(t.Speaker, names, speaking)
		if res.Kind == identity.MatchTied {
			b.warn(WarnAmbiguousName, "speaker %q matches several people equally well; kept apart", t.Speaker)
		}
		speaker := res.Participant
		if !speaker.IsUnknown() {
			speaking[speaker.ID] = true
		}

		u := Utterance{
			Speaker: speaker.ID,
			Seq:     i,
			Text:    t.Text,
			Words:   notes.CountWords(t.Text),
			Chars:   utf8.RuneCountInString(t.Text),
		}
		seen := make(map[string]bool)
		for _, raw := range t.Addressees {
			to := reg.Resolve(raw, names)
			if to.IsUnknown() || to.ID == speaker.ID || seen[to.ID] {
				continue
			}
			seen[to.ID] = true
			u.Addressees = append(u.Addressees, to.ID)
		}
		if t.HasOffset {
			at := ev.Start.Add(t.Offset)
			u.At = &at
			stamped++
			if at.After(ev.End) {
				outside++
			}
		}
		m.Utterances = append(m.Utterances, u)
	}

	m.Timed = stamped > 0 && outside == 0
	if outside > 0 {
		b.warn(WarnUntimed, "%d of %d turn timestamps fall outside the meeting; timestamps dropped", outside, stamped)
		for i := range m.Utterances {
			m.Utterances[i].At = nil
		}
	}
	m.Status = StatusOK
	return m, b.warns
}

// Failed records an event whose notes could not be retrieved: the meeting
// keeps its attendees and has no utterances.
func (n *Normalizer) Failed(ev calendar.Event, reg *identity.Registry, err error) (*Meeting, []Warning) {
	b := &builder{log: n.Log, ev: ev}
	m, _ := b.start(reg)
	if m == nil {
		return nil, b.warns
	}
	m.Status = StatusRetrievalFailed
	b.warn(WarnRetrievalFailed, "notes retrieval failed: %v", err)
	return m, b.warns
}

type builder struct {
	log   logrus.FieldLogger
	ev    calendar.Event
	warns []Warning
}

func (b *builder) warn(kind WarningKind, format string, args ...any) {
	w := Warning{MeetingID: b.ev.ID, Title: b.ev.Title, Kind: kind, Message: fmt.Sprintf(format, args...)}
	if b.log == nil {
		b.log = logrus.StandardLogger()
	}
	b.log.WithFields(logrus.Fields{"meeting": b.ev.ID, "kind": kind}).Warn(w.Message)
	b.warns = append(b.warns, w)
}

// start validates the event and resolves its attendees. It returns the
// attendee strings used as resolution context for the notes.
func (b *builder) start(reg *identity.Registry) (*Meeting, []string) {
	ev := b.ev
	if !ev.Start.Before(ev.End) {
		b.warn(WarnInvalidEvent, "event starts at %s but ends at %s",
			ev.Start.Format(time.RFC3339), ev.End.Format(time.RFC3339))
		return nil, nil
	}

	m := &Meeting{
		ID:         ev.ID,
		Title:      ev.Title,
		Start:      ev.Start,
		End:        ev.End,
		Attendees:  []string{},
		Utterances: []Utterance{},
	}
	atts := make([]identity.Attendee, 0, len(ev.Attendees))
	names := make([]string, 0, len(ev.Attendees))
	for _, a := range ev.Attendees {
		ia := identity.Attendee{Name: a.Name, Email: a.Email}
		atts = append(atts, ia)
		names = append(names, ia.Raw())
	}
	for _, p := range reg.ResolveAttendees(atts) {
		m.Attendees = append(m.Attendees, p.ID)
	}
	return m, names
}
