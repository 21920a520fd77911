package clients

import (
	"context"
	"fmt"
	"mime"
	"net/http"
	"path/filepath"

	"github.com/sirupsen/logrus"
	gslides "google.golang.org/api/slides/v1"

	"github.com/hugogrimmett/meeting-analyser/presentation"
)

// Slide geometry in points for the default 16:9 page.
const (
	emuPerPt     = 12700
	pageWidthPt  = 720
	imageTopPt   = 90
	imageAreaPt  = 290
	imageGutter  = 20
	imageMarginX = 30
)

// Slides builds a Google Slides deck, uploading chart images to Drive.
type Slides struct {
	svc   *gslides.Service
	drive *Drive
	log   logrus.FieldLogger
}

// NewSlides builds the client on hc. An empty endpoint means the public API.
func NewSlides(ctx context.Context, hc *http.Client, endpoint string, drive *Drive, log logrus.FieldLogger) (*Slides, error) {
	svc, err := gslides.NewService(ctx, serviceOptions(hc, endpoint)...)
	if err != nil {
		return nil, fmt.Errorf("slides service: %w", err)
	}
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Slides{svc: svc, drive: drive, log: log}, nil
}

// Generate creates the presentation and fills it one slide per deck entry.
func (s *Slides) Generate(ctx context.Context, deck presentation.Deck) (presentation.PresentationRef, error) {
	created, err := s.svc.Presentations.Create(&gslides.Presentation{Title: deck.Title}).Context(ctx).Do()
	if err != nil {
		return presentation.PresentationRef{}, fmt.Errorf("slides create: %w", err)
	}
	ref := presentation.PresentationRef{
		ID:  created.PresentationId,
		URL: "https://docs.google.com/presentation/d/" + created.PresentationId + "/edit",
	}

	var requests []*gslides.Request
	for i, slide := range deck.Slides {
		reqs, err := s.slideRequests(ctx, i, slide)
		if err != nil {
			return ref, err
		}
		requests = append(requests, reqs...)
	}

	_, err = s.svc.Presentations.BatchUpdate(created.PresentationId, &gslides.BatchUpdatePresentationRequest{
		Requests: requests,
	}).Context(ctx).Do()
	if err != nil {
		return ref, fmt.Errorf("slides batchUpdate: %w", err)
	}
	s.log.WithFields(logrus.Fields{"presentation": ref.ID, "slides": len(deck.Slides)}).Info("slides generated")
	return ref, nil
}

func (s *Slides) slideRequests(ctx context.Context, i int, slide presentation.Slide) ([]*gslides.Request, error) {
	pageID := fmt.Sprintf("slide_%03d", i)
	titleID := pageID + "_title"

	layout, placeholder := "TITLE_ONLY", "TITLE"
	if slide.Kind == presentation.SlideKindTitle {
		layout, placeholder = "TITLE", "CENTERED_TITLE"
	}
	reqs := []*gslides.Request{
		{CreateSlide: &gslides.CreateSlideRequest{
			ObjectId:             pageID,
			InsertionIndex:       int64(i),
			SlideLayoutReference: &gslides.LayoutReference{PredefinedLayout: layout},
			PlaceholderIdMappings: []*gslides.LayoutPlaceholderIdMapping{{
				LayoutPlaceholder: &gslides.Placeholder{Type: placeholder},
				ObjectId:          titleID,
			}},
			ForceSendFields: []string{"InsertionIndex"},
		}},
		{InsertText: &gslides.InsertTextRequest{ObjectId: titleID, Text: slide.Title}},
	}

	n := len(slide.Images)
	if n == 0 {
		return reqs, nil
	}
	width := (pageWidthPt - 2*imageMarginX - (n-1)*imageGutter) / n
	for j, img := range slide.Images {
		link, err := s.publish(ctx, img)
		if err != nil {
			return nil, err
		}
		x := imageMarginX + j*(width+imageGutter)
		reqs = append(reqs, &gslides.Request{CreateImage: &gslides.CreateImageRequest{
			Url: link,
			ElementProperties: &gslides.PageElementProperties{
				PageObjectId: pageID,
				Size: &gslides.Size{
					Width:  &gslides.Dimension{Magnitude: float64(width * emuPerPt), Unit: "EMU"},
					Height: &gslides.Dimension{Magnitude: float64(imageAreaPt * emuPerPt), Unit: "EMU"},
				},
				Transform: &gslides.AffineTransform{
					ScaleX:     1,
					ScaleY:     1,
					TranslateX: float64(x * emuPerPt),
					TranslateY: float64(imageTopPt * emuPerPt),
					Unit:       "EMU",
				},
			},
		}})
	}
	return reqs, nil
}

// publish makes an image reachable by the Slides API: files already online
// are used as they are, local files are uploaded and shared.
func (s *Slides) publish(ctx context.Context, img presentation.FileRef) (string, error) {
	if img.URL != "" {
		return img.URL, nil
	}
	if s.drive == nil {
		return "", fmt.Errorf("slides: %s has no URL and no drive to upload to", img.RequestID)
	}
	mt := img.MimeType
	if mt == "" {
		mt = mime.TypeByExtension(filepath.Ext(img.Path))
	}
	f, err := s.drive.Upload(ctx, img.Path, mt)
	if err != nil {
		return "", err
	}
	if err := s.drive.ShareWithAnyone(ctx, f.ID); err != nil {
		return "", err
	}
	return f.PublicURL(), nil
}
