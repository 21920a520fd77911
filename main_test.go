package main

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hugogrimmett/meeting-analyser/auth"
	"github.com/hugogrimmett/meeting-analyser/calendar"
	"github.com/hugogrimmett/meeting-analyser/clients"
	"github.com/hugogrimmett/meeting-analyser/config"
	"github.com/hugogrimmett/meeting-analyser/local"
	"github.com/hugogrimmett/meeting-analyser/presentation"
)

var today = time.Date(2025, 7, 15, 13, 30, 0, 0, time.UTC)

func day(s string) time.Time {
	d, _ := time.Parse(time.DateOnly, s)
	return d
}

func TestResolveRange(t *testing.T) {
	tests := []struct {
		name       string
		start, end string
		prompt     bool
		input      string
		from, to   string
		wantErr    string
	}{
		{name: "defaults", from: "2025-07-08", to: "2025-07-15"},
		{name: "start only", start: "2025-07-01", from: "2025-07-01", to: "2025-07-08"},
		{name: "both", start: "2025-07-01", end: "2025-07-03", from: "2025-07-01", to: "2025-07-03"},
		{name: "prompt accepts defaults", prompt: true, input: "\n\n", from: "2025-07-08", to: "2025-07-15"},
		{name: "prompt reads dates", prompt: true, input: "2025-06-01\n2025-06-10\n", from: "2025-06-01", to: "2025-06-10"},
		{name: "prompt retries", prompt: true, input: "june\n2025-06-01\n\n", from: "2025-06-01", to: "2025-06-08"},
		{name: "prompt skipped for flags", start: "2025-07-01", end: "2025-07-02", prompt: true, from: "2025-07-01", to: "2025-07-02"},
		{name: "bad flag", start: "07/01/2025", wantErr: "--start"},
		{name: "end before start", start: "2025-07-05", end: "2025-07-05", wantErr: "end date must be after start date"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var out bytes.Buffer
			from, to, err := resolveRange(tt.start, tt.end, dateInput{
				in:     strings.NewReader(tt.input),
				out:    &out,
				prompt: tt.prompt,
				today:  today,
			})
			if tt.wantErr != "" {
				assert.ErrorContains(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, day(tt.from), from)
			assert.Equal(t, day(tt.to), to)
			if tt.prompt && tt.start == "" {
				assert.Contains(t, out.String(), "Enter start date")
			}
		})
	}
}

func TestResolveRange_InvalidRangeIsTyped(t *testing.T) {
	_, _, err := resolveRange("2025-07-05", "2025-07-01", dateInput{today: today})
	assert.True(t, errors.Is(err, calendar.ErrInvalidRange))
}

func TestVersionCommand(t *testing.T) {
	code := exitOK
	cmd := newRootCmd(&code)
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"version"})

	require.NoError(t, cmd.Execute())
	assert.Equal(t, "meeting-analyser dev\n", out.String())
}

func TestRootCommand_LocalRun(t *testing.T) {
	dir := t.TempDir()
	notesDir := filepath.Join(dir, "notes")
	require.NoError(t, os.MkdirAll(notesDir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(notesDir, "sync-1.txt"),
		[]byte("Alice: Hi Bob. Bob: Hi Alice, how are you?"), 0o644))
	ics := strings.Join([]string{
		"BEGIN:VCALENDAR",
		"VERSION:2.0",
		"PRODID:-//test//EN",
		"BEGIN:VEVENT",
		"UID:sync-1",
		"DTSTAMP:20250701T000000Z",
		"DTSTART:20250703T100000Z",
		"DTEND:20250703T103000Z",
		"SUMMARY:Weekly sync",
		"ATTENDEE;CN=Alice Jones:mailto:alice@example.com",
		"ATTENDEE;CN=Bob Smith:mailto:bob@example.com",
		"END:VEVENT",
		"END:VCALENDAR",
		"",
	}, "\r\n")
	require.NoError(t, os.WriteFile(filepath.Join(dir, "calendar.ics"), []byte(ics), 0o644))
	cfgPath := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(cfgPath, []byte(`
source: local
pipeline:
  log_level: error
notes:
  dir: `+notesDir+`
paths:
  ics: `+filepath.Join(dir, "calendar.ics")+`
  outputs: `+filepath.Join(dir, "outputs")+`
`), 0o644))

	code := exitOK
	cmd := newRootCmd(&code)
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetIn(strings.NewReader(""))
	cmd.SetArgs([]string{"--config", cfgPath, "--start", "2025-07-01", "--end", "2025-07-08"})

	require.NoError(t, cmd.Execute())
	assert.Equal(t, exitOK, code)
	assert.Contains(t, out.String(), "Analysis written to "+filepath.Join(dir, "outputs", "session_"))

	matches, err := filepath.Glob(filepath.Join(dir, "outputs", "session_*", "deck.md"))
	require.NoError(t, err)
	require.Len(t, matches, 1)
	deck, err := os.ReadFile(matches[0])
	require.NoError(t, err)
	assert.Contains(t, string(deck), "2025-07-03 – Weekly sync")
}

func TestExecute_SetupFailureExitCode(t *testing.T) {
	cfgPath := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(cfgPath, []byte("source: nowhere\n"), 0o644))

	assert.Equal(t, exitSetup, execute([]string{"--config", cfgPath, "--start", "2025-07-01"}))
}

func TestBuildDeps(t *testing.T) {
	log, _ := test.NewNullLogger()
	dir := t.TempDir()

	conf := &config.Root{Source: config.SourceLocal}
	conf.Notes.Dir = "notes"
	conf.Paths.ICS = "calendar.ics"
	deps, err := buildDeps(context.Background(), conf, log, nil)
	require.NoError(t, err)
	assert.IsType(t, &calendar.ICSFile{}, deps.Events)
	assert.IsType(t, &local.NotesDir{}, deps.Notes)
	assert.Nil(t, deps.Renderer)
	assert.Nil(t, deps.Slides)

	conf.Services.Visualization.URL = "http://viz:8005"
	deps, err = buildDeps(context.Background(), conf, log, nil)
	require.NoError(t, err)
	assert.IsType(t, &clients.Visualization{}, deps.Renderer)

	google := &config.Root{Source: config.SourceGoogle}
	google.Auth.Credentials = filepath.Join(dir, "credentials.json")
	_, err = buildDeps(context.Background(), google, log, nil)
	assert.True(t, errors.Is(err, auth.ErrMissingCredentials))
}

func TestTokenCache(t *testing.T) {
	assert.IsType(t, &auth.FileCache{}, tokenCache(config.Auth{Store: config.StoreFile, Token: "token.json"}))
	assert.IsType(t, &auth.KeyringCache{}, tokenCache(config.Auth{Store: config.StoreKeyring}))
}

func TestAnnounce(t *testing.T) {
	log, hook := test.NewNullLogger()
	var opened []string
	open := func(u string) error {
		opened = append(opened, u)
		return errors.New("no display")
	}

	var out bytes.Buffer
	announce(&out, log, presentation.PresentationRef{URL: "https://docs.google.com/presentation/d/deck42/edit"}, open)
	assert.Equal(t, "Presentation: https://docs.google.com/presentation/d/deck42/edit\n", out.String())
	assert.Equal(t, []string{"https://docs.google.com/presentation/d/deck42/edit"}, opened)
	require.NotNil(t, hook.LastEntry())
	assert.Equal(t, "could not open the presentation in a browser", hook.LastEntry().Message)

	out.Reset()
	announce(&out, log, presentation.PresentationRef{Path: "/tmp/deck.md"}, open)
	assert.Equal(t, "Presentation: /tmp/deck.md\n", out.String())
	assert.Len(t, opened, 1, "local decks are not opened")

	out.Reset()
	announce(&out, log, presentation.PresentationRef{URL: "https://example.com/d"}, nil)
	assert.Len(t, opened, 1)
}
