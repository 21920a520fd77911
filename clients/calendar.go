package clients

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	gcal "google.golang.org/api/calendar/v3"

	"github.com/hugogrimmett/meeting-analyser/calendar"
)

// pageSize is the number of events asked for per page.
const pageSize = 250

// Calendar lists events of one Google calendar.
type Calendar struct {
	svc        *gcal.Service
	calendarID string
}

// NewCalendar builds the client on hc, the OAuth2 client of the run. An
// empty endpoint means the public API.
func NewCalendar(ctx context.Context, hc *http.Client, endpoint, calendarID string) (*Calendar, error) {
	svc, err := gcal.NewService(ctx, serviceOptions(hc, endpoint)...)
	if err != nil {
		return nil, fmt.Errorf("calendar service: %w", err)
	}
	if calendarID == "" {
		calendarID = "primary"
	}
	return &Calendar{svc: svc, calendarID: calendarID}, nil
}

// Events lists the timed, non-cancelled events starting in [from, to),
// following pagination.
func (c *Calendar) Events(ctx context.Context, from, to time.Time) ([]calendar.Event, error) {
	if err := calendar.ValidateRange(from, to); err != nil {
		return nil, err
	}

	var out []calendar.Event
	call := c.svc.Events.List(c.calendarID).
		TimeMin(from.Format(time.RFC3339)).
		TimeMax(to.Format(time.RFC3339)).
		SingleEvents(true).
		OrderBy("startTime").
		MaxResults(pageSize)
	err := call.Pages(ctx, func(page *gcal.Events) error {
		for _, it := range page.Items {
			if ev, ok := convertEvent(it); ok && !ev.Start.Before(from) && ev.Start.Before(to) {
				out = append(out, ev)
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("calendar events: %w", err)
	}
	return out, nil
}

// convertEvent drops cancelled and all-day events.
func convertEvent(it *gcal.Event) (calendar.Event, bool) {
	if it == nil || strings.EqualFold(it.Status, calendar.StatusCancelled) {
		return calendar.Event{}, false
	}
	if it.Start == nil || it.End == nil || it.Start.DateTime == "" {
		return calendar.Event{}, false
	}
	start, err := time.Parse(time.RFC3339, it.Start.DateTime)
	if err != nil {
		return calendar.Event{}, false
	}
	end, err := time.Parse(time.RFC3339, it.End.DateTime)
	if err != nil {
		return calendar.Event{}, false
	}

	ev := calendar.Event{ID: it.Id, Title: it.Summary, Start: start, End: end, Status: it.Status}
	for _, a := range it.Attendees {
		if a.Resource {
			continue
		}
		ev.Attendees = append(ev.Attendees, calendar.Attendee{
			Name:      a.DisplayName,
			Email:     strings.ToLower(a.Email),
			Organizer: a.Organizer,
		})
	}
	for _, a := range it.Attachments {
		id := a.FileId
		if id == "" {
			id = calendar.FileIDFromURL(a.FileUrl)
		}
		ev.Attachments = append(ev.Attachments, calendar.Attachment{
			Title: a.Title, FileID: id, MimeType: a.MimeType, URL: a.FileUrl,
		})
	}
	return ev, true
}
