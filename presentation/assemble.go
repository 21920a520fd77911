package presentation

import (
	"context"
	"errors"
	"fmt"
)

// FileRef points at a rendered artifact.
type FileRef struct {
	RequestID string `json:"request_id" yaml:"request_id"`
	Path      string `json:"path,omitempty" yaml:"path,omitempty"`
	URL       string `json:"url,omitempty" yaml:"url,omitempty"`
	MimeType  string `json:"mime_type,omitempty" yaml:"mime_type,omitempty"`
}

// PresentationRef points at a generated deck.
type PresentationRef struct {
	ID   string `json:"id,omitempty" yaml:"id,omitempty"`
	URL  string `json:"url,omitempty" yaml:"url,omitempty"`
	Path string `json:"path,omitempty" yaml:"path,omitempty"`
}

type Renderer interface {
	Render(ctx context.Context, req ArtifactRequest) (FileRef, error)
}

type SlideGenerator interface {
	Generate(ctx context.Context, deck Deck) (PresentationRef, error)
}

type SlideKind string

const (
	SlideKindTitle     SlideKind = "title"
	SlideKindAggregate SlideKind = "aggregate"
	SlideKindMeeting   SlideKind = "meeting"
)

type Slide struct {
	Kind     SlideKind `json:"kind" yaml:"kind"`
	Title    string    `json:"title" yaml:"title"`
	Subtitle string    `json:"subtitle,omitempty" yaml:"subtitle,omitempty"`
	Images   []FileRef `json:"images,omitempty" yaml:"images,omitempty"`
}

type Deck struct {
	Title    string  `json:"title" yaml:"title"`
	Subtitle string  `json:"subtitle,omitempty" yaml:"subtitle,omitempty"`
	Slides   []Slide `json:"slides" yaml:"slides"`
}

// Result is what Assemble produced.
type Result struct {
	Files        []FileRef       `json:"files"`
	Deck         Deck            `json:"deck"`
	Presentation PresentationRef `json:"presentation"`
}

// Info titles the deck.
type Info struct {
	Title    string
	Subtitle string
}

// DefaultTitle is the deck title when Info.Title is empty.
const DefaultTitle = "Automated Meeting Analysis Summary"

// MaxImagesPerSlide is how many charts a meeting slide shows side by side.
const MaxImagesPerSlide = 2

// Assemble renders every request in plan order, lays the files out as a
// deck and hands it to g. Every request is attempted; if any fails the deck
// is not generated and the joined errors are returned with the files that
// did render.
func Assemble(ctx context.Context, info Info, plan []ArtifactRequest, r Renderer, g SlideGenerator) (Result, error) {
	var res Result
	var errs []error
	rendered := make([]FileRef, len(plan))
	for i, req := range plan {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		ref, err := r.Render(ctx, req)
		if err != nil {
			errs = append(errs, fmt.Errorf("render %s: %w", req.ID, err))
			continue
		}
		ref.RequestID = req.ID
		rendered[i] = ref
		res.Files = append(res.Files, ref)
	}
	if len(errs) > 0 {
		return res, errors.Join(errs...)
	}

	res.Deck = Layout(info, plan, rendered)
	pres, err := g.Generate(ctx, res.Deck)
	if err != nil {
		return res, fmt.Errorf("generate slides: %w", err)
	}
	res.Presentation = pres
	return res, nil
}

// Layout groups rendered files into slides: a title slide, one slide per
// run-wide artifact, and for each meeting slides of up to
// MaxImagesPerSlide charts. files[i] is the rendering of plan[i].
func Layout(info Info, plan []ArtifactRequest, files []FileRef) Deck {
	if info.Title == "" {
		info.Title = DefaultTitle
	}
	deck := Deck{Title: info.Title, Subtitle: info.Subtitle}
	deck.Slides = append(deck.Slides, Slide{Kind: SlideKindTitle, Title: info.Title, Subtitle: info.Subtitle})

	cur, curMeeting := -1, ""
	for i, req := range plan {
		if req.Aggregate() {
			cur = -1
			deck.Slides = append(deck.Slides, Slide{Kind: SlideKindAggregate, Title: req.Title, Images: []FileRef{files[i]}})
			continue
		}
		if cur < 0 || curMeeting != req.MeetingID || len(deck.Slides[cur].Images) == MaxImagesPerSlide {
			deck.Slides = append(deck.Slides, Slide{Kind: SlideKindMeeting, Title: SlideTitle(req.Date, req.Meeting)})
			cur, curMeeting = len(deck.Slides)-1, req.MeetingID
		}
		deck.Slides[cur].Images = append(deck.Slides[cur].Images, files[i])
	}
	return deck
}
