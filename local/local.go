// Package local provides the offline collaborators of a run: notes read
// from a directory, chart data written as JSON files and the deck written
// as Markdown with a YAML manifest.
package local

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/hugogrimmett/meeting-analyser/calendar"
	"github.com/hugogrimmett/meeting-analyser/presentation"
)

// NotesDir reads notes saved as text files named after the event:
// <id>.txt, or <YYYY-MM-DD>_<title-slug>.txt (.md is accepted as well).
type NotesDir struct {
	Dir string
}

func (n *NotesDir) Fetch(ctx context.Context, ev calendar.Event) (string, bool, error) {
	if err := ctx.Err(); err != nil {
		return "", false, err
	}
	for _, name := range n.candidates(ev) {
		b, err := os.ReadFile(filepath.Join(n.Dir, name))
		if errors.Is(err, os.ErrNotExist) {
			continue
		}
		if err != nil {
			return "", false, fmt.Errorf("notes %s: %w", name, err)
		}
		return string(b), true, nil
	}
	return "", false, nil
}

func (n *NotesDir) candidates(ev calendar.Event) []string {
	var stems []string
	if id := filepath.Base(ev.ID); ev.ID != "" && id == ev.ID {
		stems = append(stems, id)
	}
	if ev.ID != "" {
		stems = append(stems, presentation.Slug(ev.ID))
	}
	stems = append(stems, ev.Start.Format(time.DateOnly)+"_"+presentation.Slug(ev.Title))

	var out []string
	for _, s := range stems {
		out = append(out, s+".txt", s+".md")
	}
	return out
}

// DataRenderer writes each artifact request as a JSON file, for charts drawn
// by another tool.
type DataRenderer struct {
	Dir string
}

func (d *DataRenderer) Render(ctx context.Context, req presentation.ArtifactRequest) (presentation.FileRef, error) {
	if err := ctx.Err(); err != nil {
		return presentation.FileRef{}, err
	}
	if err := os.MkdirAll(d.Dir, 0o755); err != nil {
		return presentation.FileRef{}, err
	}
	path := filepath.Join(d.Dir, presentation.Slug(req.ID)+".json")
	if err := WriteJSON(path, req); err != nil {
		return presentation.FileRef{}, fmt.Errorf("render %s: %w", req.ID, err)
	}
	return presentation.FileRef{RequestID: req.ID, Path: path, MimeType: "application/json"}, nil
}

// DeckWriter writes the deck as deck.md and deck.yaml.
type DeckWriter struct {
	Dir string
}

func (w *DeckWriter) Generate(ctx context.Context, deck presentation.Deck) (presentation.PresentationRef, error) {
	if err := ctx.Err(); err != nil {
		return presentation.PresentationRef{}, err
	}
	if err := os.MkdirAll(w.Dir, 0o755); err != nil {
		return presentation.PresentationRef{}, err
	}

	manifest, err := yaml.Marshal(deck)
	if err != nil {
		return presentation.PresentationRef{}, fmt.Errorf("deck manifest: %w", err)
	}
	if err := os.WriteFile(filepath.Join(w.Dir, "deck.yaml"), manifest, 0o644); err != nil {
		return presentation.PresentationRef{}, err
	}

	md := filepath.Join(w.Dir, "deck.md")
	if err := os.WriteFile(md, []byte(w.markdown(deck)), 0o644); err != nil {
		return presentation.PresentationRef{}, err
	}
	return presentation.PresentationRef{Path: md}, nil
}

func (w *DeckWriter) markdown(deck presentation.Deck) string {
	var b strings.Builder
	for i, s := range deck.Slides {
		if i > 0 {
			b.WriteString("\n---\n\n")
		}
		if s.Kind == presentation.SlideKindTitle {
			fmt.Fprintf(&b, "# %s\n", s.Title)
		} else {
			fmt.Fprintf(&b, "## %s\n", s.Title)
		}
		if s.Subtitle != "" {
			fmt.Fprintf(&b, "\n%s\n", s.Subtitle)
		}
		for _, img := range s.Images {
			fmt.Fprintf(&b, "\n![%s](%s)\n", img.RequestID, w.link(img))
		}
	}
	return b.String()
}

func (w *DeckWriter) link(img presentation.FileRef) string {
	if img.URL != "" {
		return img.URL
	}
	if rel, err := filepath.Rel(w.Dir, img.Path); err == nil {
		return filepath.ToSlash(rel)
	}
	return img.Path
}

// WriteJSON writes v as indented JSON.
func WriteJSON(path string, v any) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
