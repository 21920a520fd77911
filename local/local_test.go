package local

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/hugogrimmett/meeting-analyser/calendar"
	"github.com/hugogrimmett/meeting-analyser/presentation"
)

func TestNotesDir_Fetch(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "sync-1.txt"), []byte("Alice: hi"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "2025-07-04_design-review.md"), []byte("Bob: hello"), 0o644))
	n := &NotesDir{Dir: dir}
	ctx := context.Background()

	text, found, err := n.Fetch(ctx, calendar.Event{ID: "sync-1"})
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, "Alice: hi", text)

	text, found, err = n.Fetch(ctx, calendar.Event{
		ID: "evt/../../etc", Title: "Design Review!", Start: time.Date(2025, 7, 4, 9, 0, 0, 0, time.UTC),
	})
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, "Bob: hello", text)

	_, found, err = n.Fetch(ctx, calendar.Event{ID: "nothing", Title: "Other"})
	require.NoError(t, err)
	assert.False(t, found)
}

func TestDataRenderer(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "charts")
	r := &DataRenderer{Dir: dir}

	ref, err := r.Render(context.Background(), presentation.ArtifactRequest{
		ID:   "m1-words",
		Kind: presentation.KindWordsBar,
		Data: presentation.BarData{Labels: []string{"Alice"}, Values: []float64{2}, Unit: "words"},
	})
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "m1-words.json"), ref.Path)
	assert.Equal(t, "m1-words", ref.RequestID)

	b, err := os.ReadFile(ref.Path)
	require.NoError(t, err)
	var got map[string]any
	require.NoError(t, json.Unmarshal(b, &got))
	assert.Equal(t, "words_bar", got["kind"])
}

func TestDeckWriter(t *testing.T) {
	dir := t.TempDir()
	w := &DeckWriter{Dir: dir}
	deck := presentation.Deck{
		Title: "Summary",
		Slides: []presentation.Slide{
			{Kind: presentation.SlideKindTitle, Title: "Summary", Subtitle: "2025-07-01 to 2025-07-08"},
			{Kind: presentation.SlideKindMeeting, Title: "2025-07-03 – Weekly sync", Images: []presentation.FileRef{
				{RequestID: "m1-words", Path: filepath.Join(dir, "charts", "m1-words.json")},
			}},
		},
	}

	ref, err := w.Generate(context.Background(), deck)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "deck.md"), ref.Path)

	md, err := os.ReadFile(ref.Path)
	require.NoError(t, err)
	assert.Contains(t, string(md), "# Summary\n")
	assert.Contains(t, string(md), "## 2025-07-03 – Weekly sync\n")
	assert.Contains(t, string(md), "![m1-words](charts/m1-words.json)")

	raw, err := os.ReadFile(filepath.Join(dir, "deck.yaml"))
	require.NoError(t, err)
	var back presentation.Deck
	require.NoError(t, yaml.Unmarshal(raw, &back))
	assert.Equal(t, deck, back)
}
