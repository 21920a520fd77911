package clients

import (
	"context"
	"strings"

	"github.com/hugogrimmett/meeting-analyser/presentation"
)

// Visualization renders charts through the chart service.
type Visualization struct {
	http      *HTTP
	baseURL   string
	outputDir string
}

func NewVisualization(h *HTTP, baseURL, outputDir string) *Visualization {
	return &Visualization{http: h, baseURL: strings.TrimRight(baseURL, "/"), outputDir: outputDir}
}

type RenderReq struct {
	ID        string            `json:"id"`
	Kind      presentation.Kind `json:"kind"`
	Title     string            `json:"title"`
	Subtitle  string            `json:"subtitle,omitempty"`
	Data      any               `json:"data"`
	OutputDir string            `json:"output_dir,omitempty"`
}

type RenderResp struct {
	Status   string `json:"status"`
	Path     string `json:"path"`
	URL      string `json:"url,omitempty"`
	MimeType string `json:"mime_type,omitempty"`
}

func (v *Visualization) Render(ctx context.Context, req presentation.ArtifactRequest) (presentation.FileRef, error) {
	body := RenderReq{
		ID:        req.ID,
		Kind:      req.Kind,
		Title:     req.Title,
		Data:      req.Data,
		OutputDir: v.outputDir,
	}
	if !req.Aggregate() {
		body.Subtitle = presentation.SlideTitle(req.Date, req.Meeting)
	}

	var out RenderResp
	if err := v.http.postJSON(ctx, v.baseURL+"/render", "viz render", body, &out); err != nil {
		return presentation.FileRef{}, err
	}
	mt := out.MimeType
	if mt == "" {
		mt = "image/png"
	}
	return presentation.FileRef{RequestID: req.ID, Path: out.Path, URL: out.URL, MimeType: mt}, nil
}
