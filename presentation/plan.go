// Package presentation turns metrics into an ordered list of chart and
// table requests, has them rendered, and lays the results out as a slide
// deck.
package presentation

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/hugogrimmett/meeting-analyser/metrics"
)

type Kind string

const (
	KindParticipationBar   Kind = "participation_bar"
	KindCommunicationGraph Kind = "communication_graph"
	KindSummaryTable       Kind = "summary_table"
	KindWordsBar           Kind = "words_bar"
	KindCumulativeLine     Kind = "cumulative_line"
	KindResponseNetwork    Kind = "response_network"
)

// ArtifactRequest asks a Renderer for one chart or table. MeetingID is
// empty for run-wide artifacts.
type ArtifactRequest struct {
	ID         string             `json:"id"`
	Kind       Kind               `json:"kind"`
	Title      string             `json:"title"`
	MeetingID  string             `json:"meeting_id,omitempty"`
	Date       string             `json:"date,omitempty"`
	Meeting    string             `json:"meeting,omitempty"`
	Provenance metrics.Provenance `json:"provenance,omitempty"`
	Data       any                `json:"data"`
}

// Aggregate reports whether the request covers the whole run.
func (r ArtifactRequest) Aggregate() bool { return r.MeetingID == "" }

type BarData struct {
	Labels []string  `json:"labels"`
	Values []float64 `json:"values"`
	Unit   string    `json:"unit"`
}

type LineSeries struct {
	Label  string `json:"label"`
	Values []int  `json:"values"`
}

type LineData struct {
	XLabel string       `json:"x_label"`
	YLabel string       `json:"y_label"`
	Series []LineSeries `json:"series"`
}

type Node struct {
	ID    string  `json:"id"`
	Label string  `json:"label"`
	Size  float64 `json:"size"`
}

type GraphEdge struct {
	Source string  `json:"source"`
	Target string  `json:"target"`
	Weight float64 `json:"weight"`
}

type GraphData struct {
	Directed bool        `json:"directed"`
	Nodes    []Node      `json:"nodes"`
	Edges    []GraphEdge `json:"edges"`
}

type TableData struct {
	Columns []string   `json:"columns"`
	Rows    [][]string `json:"rows"`
}

// Plan lists the artifacts for a run in their fixed order: the aggregate
// participation chart, one communication graph per edge provenance present,
// the per-meeting summary table, then words, cumulative-words and response
// network charts for every meeting that has utterances. names maps
// participant IDs to display names.
func Plan(agg metrics.AggregateMetrics, per []metrics.MeetingMetrics, names map[string]string) []ArtifactRequest {
	name := func(id string) string {
		if n, ok := names[id]; ok && n != "" {
			return n
		}
		return id
	}

	var out []ArtifactRequest
	if agg.TotalWords > 0 {
		bar := BarData{Unit: "%"}
		for _, p := range agg.Participants {
			if p.Words == 0 {
				continue
			}
			bar.Labels = append(bar.Labels, name(p.ID))
			bar.Values = append(bar.Values, p.PooledShare.Value)
		}
		out = append(out, ArtifactRequest{
			ID:    "aggregate-participation",
			Kind:  KindParticipationBar,
			Title: "Share of words spoken across all meetings",
			Data:  bar,
		})
	}

	for _, prov := range agg.Provenances() {
		edges := agg.EdgesOf(prov)
		out = append(out, ArtifactRequest{
			ID:         "aggregate-graph-" + string(prov),
			Kind:       KindCommunicationGraph,
			Title:      graphTitle(prov),
			Provenance: prov,
			Data:       graph(edges, prov == metrics.ProvenanceExplicit, agg, name),
		})
	}

	out = append(out, ArtifactRequest{
		ID:    "summary-table",
		Kind:  KindSummaryTable,
		Title: "Meetings analysed",
		Data:  table(agg.Rows, name),
	})

	for _, mm := range per {
		if mm.TotalUtterances == 0 {
			continue
		}
		base := ArtifactRequest{MeetingID: mm.MeetingID, Date: mm.Date, Meeting: mm.Title}
		slug := Slug(mm.MeetingID)

		words := base
		words.ID, words.Kind, words.Title = slug+"-words", KindWordsBar, "Total words spoken"
		bar := BarData{Unit: "words"}
		for _, p := range mm.Speakers() {
			bar.Labels = append(bar.Labels, name(p.ID))
			bar.Values = append(bar.Values, float64(p.Words))
		}
		words.Data = bar

		cum := base
		cum.ID, cum.Kind, cum.Title = slug+"-cumulative", KindCumulativeLine, "Cumulative words per turn"
		line := LineData{XLabel: "Turn", YLabel: "Cumulative words"}
		for _, s := range mm.Cumulative {
			if p, _ := mm.Participant(s.Participant); p.Utterances == 0 {
				continue
			}
			line.Series = append(line.Series, LineSeries{Label: name(s.Participant), Values: s.Values})
		}
		cum.Data = line

		net := base
		net.ID, net.Kind, net.Title = slug+"-network", KindResponseNetwork, "Speaker response network"
		g := GraphData{Directed: true, Nodes: []Node{}, Edges: []GraphEdge{}}
		for _, p := range mm.Speakers() {
			g.Nodes = append(g.Nodes, Node{ID: p.ID, Label: name(p.ID), Size: float64(p.Words)})
		}
		for _, t := range mm.Transitions {
			g.Edges = append(g.Edges, GraphEdge{Source: t.From, Target: t.To, Weight: float64(t.Count)})
		}
		net.Data = g

		out = append(out, words, cum, net)
	}
	return out
}

func graphTitle(p metrics.Provenance) string {
	if p == metrics.ProvenanceExplicit {
		return "Who addressed whom"
	}
	return "Who spoke after whom"
}

func graph(edges []metrics.Edge, directed bool, agg metrics.AggregateMetrics, name func(string) string) GraphData {
	words := make(map[string]int, len(agg.Participants))
	for _, p := range agg.Participants {
		words[p.ID] = p.Words
	}
	g := GraphData{Directed: directed, Nodes: []Node{}, Edges: []GraphEdge{}}
	seen := make(map[string]bool)
	node := func(id string) {
		if !seen[id] {
			seen[id] = true
			g.Nodes = append(g.Nodes, Node{ID: id, Label: name(id), Size: float64(words[id])})
		}
	}
	for _, e := range edges {
		node(e.Source)
		node(e.Target)
		g.Edges = append(g.Edges, GraphEdge{Source: e.Source, Target: e.Target, Weight: e.Weight})
	}
	return g
}

func table(rows []metrics.MeetingRow, name func(string) string) TableData {
	t := TableData{
		Columns: []string{"Date", "Meeting", "Status", "Attendees", "Speakers", "Turns", "Words", "Top speaker", "Edges"},
		Rows:    [][]string{},
	}
	for _, r := range rows {
		top := ""
		if r.TopSpeaker != "" {
			top = name(r.TopSpeaker)
		}
		prov := make([]string, len(r.Provenance))
		for i, p := range r.Provenance {
			prov[i] = string(p)
		}
		t.Rows = append(t.Rows, []string{
			r.Date,
			r.Title,
			string(r.Status),
			strconv.Itoa(r.Attendees),
			strconv.Itoa(r.Speakers),
			strconv.Itoa(r.Utterances),
			strconv.Itoa(r.Words),
			top,
			strings.Join(prov, ", "),
		})
	}
	return t
}

var slugUnsafe = regexp.MustCompile(`[^a-z0-9]+`)

// Slug makes s safe for file names.
func Slug(s string) string {
	out := strings.Trim(slugUnsafe.ReplaceAllString(strings.ToLower(s), "-"), "-")
	if out == "" {
		return "untitled"
	}
	return out
}

// SlideTitle is the title of a meeting slide.
func SlideTitle(date, title string) string {
	return fmt.Sprintf("%s – %s", date, title)
}
