package clients

import (
	"context"
	"encoding/json"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hugogrimmett/meeting-analyser/calendar"
	"github.com/hugogrimmett/meeting-analyser/presentation"
)

func TestCalendar_EventsPaginates(t *testing.T) {
	var pages []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/calendars/primary/events", r.URL.Path)
		assert.Equal(t, "true", r.URL.Query().Get("singleEvents"))
		assert.Equal(t, "startTime", r.URL.Query().Get("orderBy"))
		pages = append(pages, r.URL.Query().Get("pageToken"))

		if r.URL.Query().Get("pageToken") == "" {
			io.WriteString(w, `{"items":[
				{"id":"e1","summary":"Weekly sync","status":"confirmed",
				 "start":{"dateTime":"2025-07-03T10:00:00Z"},"end":{"dateTime":"2025-07-03T10:30:00Z"},
				 "attendees":[{"email":"Alice@Example.com","displayName":"Alice Jones","organizer":true},
				              {"email":"room@resource.example.com","resource":true}],
				 "attachments":[{"fileUrl":"https://docs.google.com/document/d/1AbCdEfGhIjKlMn/edit","title":"Notes by Gemini","mimeType":"application/vnd.google-apps.document"}]},
				{"id":"e2","summary":"Holiday","start":{"date":"2025-07-04"},"end":{"date":"2025-07-05"}}
			],"nextPageToken":"p2"}`)
			return
		}
		io.WriteString(w, `{"items":[
			{"id":"e3","summary":"Cancelled","status":"cancelled","start":{"dateTime":"2025-07-04T10:00:00Z"},"end":{"dateTime":"2025-07-04T11:00:00Z"}},
			{"id":"e4","summary":"Retro","status":"confirmed","start":{"dateTime":"2025-07-05T09:00:00+02:00"},"end":{"dateTime":"2025-07-05T10:00:00+02:00"}}
		]}`)
	}))
	defer srv.Close()

	c, err := NewCalendar(context.Background(), srv.Client(), srv.URL, "")
	require.NoError(t, err)
	from := time.Date(2025, 7, 1, 0, 0, 0, 0, time.UTC)
	events, err := c.Events(context.Background(), from, from.AddDate(0, 0, 7))

	require.NoError(t, err)
	assert.Equal(t, []string{"", "p2"}, pages)
	require.Len(t, events, 2)
	assert.Equal(t, "e1", events[0].ID)
	assert.Equal(t, []calendar.Attendee{{Name: "Alice Jones", Email: "alice@example.com", Organizer: true}}, events[0].Attendees)
	assert.Equal(t, "1AbCdEfGhIjKlMn", events[0].Attachments[0].FileID)
	assert.Equal(t, "e4", events[1].ID)
}

func TestCalendar_ErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "quota", http.StatusForbidden)
	}))
	defer srv.Close()

	c, err := NewCalendar(context.Background(), srv.Client(), srv.URL, "team")
	require.NoError(t, err)
	_, err = c.Events(context.Background(), time.Now(), time.Now().Add(time.Hour))

	require.Error(t, err)
	assert.Contains(t, err.Error(), "403")
	assert.Contains(t, err.Error(), "quota")
}

func notesEvent(fileID string) calendar.Event {
	return calendar.Event{ID: "e1", Attachments: []calendar.Attachment{
		{Title: "Slides", FileID: "other", MimeType: "application/vnd.google-apps.presentation"},
		{Title: "Notes by Gemini", FileID: fileID, MimeType: GoogleDocMimeType},
	}}
}

func TestDrive_Fetch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/files/doc1/export":
			assert.Equal(t, "text/plain", r.URL.Query().Get("mimeType"))
			io.WriteString(w, "\ufeffAlice: Hi Bob.")
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()
	d, err := NewDrive(context.Background(), srv.Client(), srv.URL, "")
	require.NoError(t, err)

	text, found, err := d.Fetch(context.Background(), notesEvent("doc1"))
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, "Alice: Hi Bob.", text)

	_, found, err = d.Fetch(context.Background(), notesEvent("gone"))
	require.NoError(t, err)
	assert.False(t, found)

	_, found, err = d.Fetch(context.Background(), calendar.Event{ID: "e2"})
	require.NoError(t, err)
	assert.False(t, found)
}

func TestDrive_FetchServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()
	d, err := NewDrive(context.Background(), srv.Client(), srv.URL, "gemini")
	require.NoError(t, err)

	_, _, err = d.Fetch(context.Background(), notesEvent("doc1"))
	assert.Error(t, err)
}

// fakeGoogle serves the Drive upload/permission and Slides endpoints.
type fakeGoogle struct {
	mu       sync.Mutex
	uploads  []string
	shared   []string
	requests []map[string]any
}

func (f *fakeGoogle) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()
	switch {
	case strings.HasSuffix(r.URL.Path, "/upload/drive/v3/files") && r.URL.Query().Get("uploadType") == "multipart":
		mt, params, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
		if err != nil || mt != "multipart/related" {
			http.Error(w, "bad content type", http.StatusBadRequest)
			return
		}
		mr := multipart.NewReader(r.Body, params["boundary"])
		metaPart, _ := mr.NextPart()
		var meta map[string]string
		_ = json.NewDecoder(metaPart).Decode(&meta)
		f.uploads = append(f.uploads, meta["name"])
		json.NewEncoder(w).Encode(map[string]string{"id": "img-" + meta["name"], "name": meta["name"]})
	case strings.HasSuffix(r.URL.Path, "/permissions"):
		f.shared = append(f.shared, strings.Split(r.URL.Path, "/")[2])
		io.WriteString(w, `{"id":"anyoneWithLink"}`)
	case r.URL.Path == "/v1/presentations":
		io.WriteString(w, `{"presentationId":"deck42"}`)
	case r.URL.Path == "/v1/presentations/deck42:batchUpdate":
		var body struct {
			Requests []map[string]any `json:"requests"`
		}
		_ = json.NewDecoder(r.Body).Decode(&body)
		f.requests = body.Requests
		io.WriteString(w, `{}`)
	default:
		http.NotFound(w, r)
	}
}

func TestSlides_Generate(t *testing.T) {
	fake := &fakeGoogle{}
	srv := httptest.NewServer(fake)
	defer srv.Close()

	dir := t.TempDir()
	chart := filepath.Join(dir, "m1-words.png")
	require.NoError(t, os.WriteFile(chart, []byte("\x89PNG"), 0o644))

	ctx := context.Background()
	log, _ := test.NewNullLogger()
	d, err := NewDrive(ctx, srv.Client(), srv.URL, "")
	require.NoError(t, err)
	s, err := NewSlides(ctx, srv.Client(), srv.URL, d, log)
	require.NoError(t, err)

	ref, err := s.Generate(ctx, presentation.Deck{
		Title: presentation.DefaultTitle,
		Slides: []presentation.Slide{
			{Kind: presentation.SlideKindTitle, Title: presentation.DefaultTitle},
			{Kind: presentation.SlideKindMeeting, Title: "2025-07-03 – Weekly sync", Images: []presentation.FileRef{
				{RequestID: "m1-words", Path: chart},
				{RequestID: "m1-cumulative", URL: "https://charts.example.com/m1-cumulative.png"},
			}},
		},
	})

	require.NoError(t, err)
	assert.Equal(t, "deck42", ref.ID)
	assert.Equal(t, "https://docs.google.com/presentation/d/deck42/edit", ref.URL)
	assert.Equal(t, []string{"m1-words.png"}, fake.uploads)
	assert.Equal(t, []string{"img-m1-words.png"}, fake.shared)

	var kinds []string
	for _, r := range fake.requests {
		for k := range r {
			kinds = append(kinds, k)
		}
	}
	assert.Equal(t, []string{"createSlide", "insertText", "createSlide", "insertText", "createImage", "createImage"}, kinds)
}

func TestNewHTTP_CopiesClient(t *testing.T) {
	shared := &http.Client{}

	h := NewHTTP(shared)

	assert.Zero(t, shared.Timeout)
	assert.Equal(t, DefaultTimeout, h.c.Timeout)
	assert.NotSame(t, shared, h.c)

	custom := NewHTTP(&http.Client{Timeout: time.Second})
	assert.Equal(t, time.Second, custom.c.Timeout)
}

func TestVisualization_Render(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/render", r.URL.Path)
		var req RenderReq
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, presentation.KindWordsBar, req.Kind)
		assert.Equal(t, "2025-07-03 – Weekly sync", req.Subtitle)
		assert.Equal(t, "/tmp/charts", req.OutputDir)
		json.NewEncoder(w).Encode(RenderResp{Status: "ok", Path: "/tmp/charts/m1-words.png"})
	}))
	defer srv.Close()

	v := NewVisualization(NewHTTP(srv.Client()), srv.URL+"/", "/tmp/charts")
	ref, err := v.Render(context.Background(), presentation.ArtifactRequest{
		ID: "m1-words", Kind: presentation.KindWordsBar, MeetingID: "m1",
		Date: "2025-07-03", Meeting: "Weekly sync", Data: presentation.BarData{},
	})

	require.NoError(t, err)
	assert.Equal(t, "m1-words", ref.RequestID)
	assert.Equal(t, "/tmp/charts/m1-words.png", ref.Path)
	assert.Equal(t, "image/png", ref.MimeType)
}

func TestVisualization_RenderError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "matplotlib exploded", http.StatusInternalServerError)
	}))
	defer srv.Close()

	v := NewVisualization(NewHTTP(srv.Client()), srv.URL, "")
	_, err := v.Render(context.Background(), presentation.ArtifactRequest{ID: "x"})

	require.Error(t, err)
	assert.Contains(t, err.Error(), "viz render 500")
}
