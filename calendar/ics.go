package calendar

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/emersion/go-ical"
	"github.com/sirupsen/logrus"
)

// ICSFile reads events from an exported iCalendar file. Recurring events
// are expanded into their occurrences inside the requested range.
type ICSFile struct {
	Path     string
	Location *time.Location // floating times; time.Local when nil
	Log      logrus.FieldLogger
}

func (f *ICSFile) Events(ctx context.Context, from, to time.Time) ([]Event, error) {
	if err := ValidateRange(from, to); err != nil {
		return nil, err
	}
	fh, err := os.Open(f.Path)
	if err != nil {
		return nil, fmt.Errorf("ics open: %w", err)
	}
	defer fh.Close()
	return f.decode(ctx, fh, from, to)
}

func (f *ICSFile) decode(ctx context.Context, r io.Reader, from, to time.Time) ([]Event, error) {
	log := f.Log
	if log == nil {
		log = logrus.StandardLogger()
	}
	loc := f.Location
	if loc == nil {
		loc = time.Local
	}

	var masters, overrides []*ical.Component
	dec := ical.NewDecoder(r)
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		cal, err := dec.Decode()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("ics decode: %w", err)
		}
		for _, comp := range cal.Children {
			if comp.Name != ical.CompEvent {
				continue
			}
			if comp.Props.Get(ical.PropRecurrenceID) != nil {
				overrides = append(overrides, comp)
			} else {
				masters = append(masters, comp)
			}
		}
	}

	// Instances moved or cancelled by an override, by UID.
	moved := make(map[string]map[string]bool)
	var out []Event
	var cancelled, allDay, outside int
	for _, comp := range overrides {
		ev, ok, err := parseEvent(comp, loc)
		if err != nil {
			log.WithError(err).WithField("uid", ev.ID).Warn("skipping unreadable event")
			continue
		}
		rid, err := recurrenceID(comp, loc)
		if err != nil {
			log.WithError(err).WithField("uid", ev.ID).Warn("skipping override with unreadable RECURRENCE-ID")
			continue
		}
		if moved[ev.ID] == nil {
			moved[ev.ID] = make(map[string]bool)
		}
		moved[ev.ID][rid] = true
		ev.ID = occurrenceID(ev.ID, rid)

		switch {
		case !ok:
			allDay++
		case strings.EqualFold(ev.Status, StatusCancelled):
			cancelled++
		case !inRange(ev.Start, from, to):
			outside++
		default:
			out = append(out, ev)
		}
	}

	for _, comp := range masters {
		ev, ok, err := parseEvent(comp, loc)
		if err != nil {
			log.WithError(err).WithField("uid", ev.ID).Warn("skipping unreadable event")
			continue
		}
		if !ok {
			allDay++
			continue
		}
		if strings.EqualFold(ev.Status, StatusCancelled) {
			cancelled++
			continue
		}

		occurrences, err := expand(comp, ev, loc, from, to, moved[ev.ID])
		if err != nil {
			log.WithError(err).WithField("uid", ev.ID).Warn("cannot expand recurrence")
			continue
		}
		if len(occurrences) == 0 {
			outside++
		}
		out = append(out, occurrences...)
	}

	log.WithFields(logrus.Fields{
		"file":      f.Path,
		"included":  len(out),
		"cancelled": cancelled,
		"all_day":   allDay,
		"outside":   outside,
	}).Debug("ics events read")
	return out, nil
}

// parseEvent reads one VEVENT. ok is false for all-day events.
func parseEvent(comp *ical.Component, loc *time.Location) (ev Event, ok bool, err error) {
	if p := comp.Props.Get(ical.PropUID); p != nil {
		ev.ID = p.Value
	}
	if p := comp.Props.Get(ical.PropSummary); p != nil {
		ev.Title = p.Value
	}
	if p := comp.Props.Get(ical.PropStatus); p != nil {
		ev.Status = strings.ToLower(p.Value)
	}

	start := comp.Props.Get(ical.PropDateTimeStart)
	if start == nil {
		return ev, false, fmt.Errorf("missing DTSTART")
	}
	if start.ValueType() == ical.ValueDate {
		return ev, false, nil
	}
	if ev.Start, err = start.DateTime(loc); err != nil {
		return ev, false, fmt.Errorf("DTSTART: %w", err)
	}

	switch {
	case comp.Props.Get(ical.PropDateTimeEnd) != nil:
		if ev.End, err = comp.Props.Get(ical.PropDateTimeEnd).DateTime(loc); err != nil {
			return ev, false, fmt.Errorf("DTEND: %w", err)
		}
	case comp.Props.Get(ical.PropDuration) != nil:
		d, err := comp.Props.Get(ical.PropDuration).Duration()
		if err != nil {
			return ev, false, fmt.Errorf("DURATION: %w", err)
		}
		ev.End = ev.Start.Add(d)
	default:
		ev.End = ev.Start
	}

	var organizer string
	if p := comp.Props.Get(ical.PropOrganizer); p != nil {
		organizer = mailAddress(p.Value)
	}
	for _, p := range comp.Props.Values(ical.PropAttendee) {
		a := Attendee{Name: p.Params.Get(ical.ParamCommonName), Email: mailAddress(p.Value)}
		a.Organizer = a.Email != "" && strings.EqualFold(a.Email, organizer)
		if a.Name == a.Email {
			a.Name = ""
		}
		ev.Attendees = append(ev.Attendees, a)
	}
	for _, p := range comp.Props.Values(ical.PropAttach) {
		title := p.Params.Get("FILENAME")
		if title == "" {
			title = p.Params.Get("X-FILENAME")
		}
		ev.Attachments = append(ev.Attachments, Attachment{
			Title:    title,
			URL:      p.Value,
			FileID:   FileIDFromURL(p.Value),
			MimeType: p.Params.Get(ical.ParamFormatType),
		})
	}
	return ev, true, nil
}

// occurrenceLayout formats an instant in occurrence IDs.
const occurrenceLayout = "20060102T150405Z"

// occurrenceID names one instance of a recurring series. An override shares
// the ID of the instance it replaces.
func occurrenceID(uid, instant string) string {
	return uid + "_" + instant
}

// recurrenceID reads the original start of the instance an override replaces,
// formatted with occurrenceLayout.
func recurrenceID(comp *ical.Component, loc *time.Location) (string, error) {
	t, err := comp.Props.Get(ical.PropRecurrenceID).DateTime(loc)
	if err != nil {
		return "", err
	}
	return t.UTC().Format(occurrenceLayout), nil
}

// expand returns the occurrences of ev starting in [from, to), leaving out
// the instances listed in skip.
func expand(comp *ical.Component, ev Event, loc *time.Location, from, to time.Time, skip map[string]bool) ([]Event, error) {
	set, err := comp.RecurrenceSet(loc)
	if err != nil {
		return nil, err
	}
	if set == nil {
		if inRange(ev.Start, from, to) {
			return []Event{ev}, nil
		}
		return nil, nil
	}

	length := ev.End.Sub(ev.Start)
	var out []Event
	for _, start := range set.Between(from, to, true) {
		instant := start.UTC().Format(occurrenceLayout)
		if !inRange(start, from, to) || skip[instant] {
			continue
		}
		occ := ev
		occ.ID = occurrenceID(ev.ID, instant)
		occ.Start = start
		occ.End = start.Add(length)
		out = append(out, occ)
	}
	return out, nil
}

func inRange(t, from, to time.Time) bool {
	return !t.Before(from) && t.Before(to)
}

func mailAddress(v string) string {
	if len(v) >= 7 && strings.EqualFold(v[:7], "mailto:") {
		v = v[7:]
	}
	return strings.ToLower(strings.TrimSpace(v))
}
