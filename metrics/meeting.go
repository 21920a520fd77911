// Package metrics computes participation and communication statistics for
// single meetings and for a whole run.
//
// Participation weight is the word count of an utterance. Communication
// edges carry their provenance: explicit edges come from addressees written
// in the notes, adjacency-proxy edges from who spoke after whom. The two are
// never merged, and the unknown speaker never takes part in an edge.
package metrics

import (
	"sort"

	"github.com/hugogrimmett/meeting-analyser/identity"
	"github.com/hugogrimmett/meeting-analyser/meeting"
)

type Provenance string

const (
	ProvenanceExplicit  Provenance = "explicit"
	ProvenanceAdjacency Provenance = "adjacency-proxy"
)

// Edge is a weighted communication link. Explicit edges are directed;
// adjacency edges are undirected and stored with Source < Target.
type Edge struct {
	Source     string     `json:"source" yaml:"source"`
	Target     string     `json:"target" yaml:"target"`
	Weight     float64    `json:"weight" yaml:"weight"`
	Provenance Provenance `json:"provenance" yaml:"provenance"`
	Directed   bool       `json:"directed" yaml:"directed"`
	Meetings   int        `json:"meetings" yaml:"meetings"`
}

type edgeKey struct {
	source, target string
	provenance     Provenance
	directed       bool
}

func (e Edge) key() edgeKey { return edgeKey{e.Source, e.Target, e.Provenance, e.Directed} }

type ParticipantStats struct {
	ID         string  `json:"id" yaml:"id"`
	Utterances int     `json:"utterances" yaml:"utterances"`
	Words      int     `json:"words" yaml:"words"`
	Share      Percent `json:"share" yaml:"share"`
}

// Transition counts how often To spoke directly after From.
type Transition struct {
	From  string `json:"from" yaml:"from"`
	To    string `json:"to" yaml:"to"`
	Count int    `json:"count" yaml:"count"`
}

// Series holds a participant's running word total after each turn.
type Series struct {
	Participant string `json:"participant" yaml:"participant"`
	Values      []int  `json:"values" yaml:"values"`
}

type MeetingMetrics struct {
	MeetingID       string             `json:"meeting_id" yaml:"meeting_id"`
	Title           string             `json:"title" yaml:"title"`
	Date            string             `json:"date" yaml:"date"`
	Status          meeting.Status     `json:"status" yaml:"status"`
	TotalWords      int                `json:"total_words" yaml:"total_words"`
	TotalUtterances int                `json:"total_utterances" yaml:"total_utterances"`
	Participants    []ParticipantStats `json:"participants" yaml:"participants"`
	Transitions     []Transition       `json:"transitions" yaml:"transitions"`
	Cumulative      []Series           `json:"cumulative" yaml:"cumulative"`
	Edges           []Edge             `json:"edges" yaml:"edges"`
}

// Participant returns the stats of one participant.
func (mm *MeetingMetrics) Participant(id string) (ParticipantStats, bool) {
	for _, p := range mm.Participants {
		if p.ID == id {
			return p, true
		}
	}
	return ParticipantStats{}, false
}

// Speakers returns the participants with at least one utterance.
func (mm *MeetingMetrics) Speakers() []ParticipantStats {
	var out []ParticipantStats
	for _, p := range mm.Participants {
		if p.Utterances > 0 {
			out = append(out, p)
		}
	}
	return out
}

// ComputeMeeting derives the metrics of one meeting. Participants are the
// attendees in calendar order followed by other speakers in order of first
// turn; attendees who never spoke have zero words.
func ComputeMeeting(m *meeting.Meeting) MeetingMetrics {
	mm := MeetingMetrics{
		MeetingID:       m.ID,
		Title:           m.Title,
		Date:            m.Date(),
		Status:          m.Status,
		TotalUtterances: len(m.Utterances),
		Participants:    []ParticipantStats{},
		Transitions:     []Transition{},
		Cumulative:      []Series{},
		Edges:           []Edge{},
	}

	index := make(map[string]int)
	add := func(id string) int {
		if i, ok := index[id]; ok {
			return i
		}
		index[id] = len(mm.Participants)
		mm.Participants = append(mm.Participants, ParticipantStats{ID: id})
		return index[id]
	}
	for _, id := range m.Attendees {
		add(id)
	}
	for _, u := range m.Utterances {
		p := &mm.Participants[add(u.Speaker)]
		p.Utterances++
		p.Words += u.Words
		mm.TotalWords += u.Words
	}
	for i := range mm.Participants {
		mm.Participants[i].Share = Share(mm.Participants[i].Words, mm.TotalWords)
	}

	mm.Cumulative = cumulative(m.Utterances, mm.Participants)
	mm.Transitions = transitions(m.Utterances)
	mm.Edges = edges(m.Utterances)
	return mm
}

func cumulative(utts []meeting.Utterance, parts []ParticipantStats) []Series {
	out := make([]Series, len(parts))
	pos := make(map[string]int, len(parts))
	for i, p := range parts {
		out[i] = Series{Participant: p.ID, Values: make([]int, len(utts))}
		pos[p.ID] = i
	}
	running := make([]int, len(parts))
	for t, u := range utts {
		running[pos[u.Speaker]] += u.Words
		for i := range out {
			out[i].Values[t] = running[i]
		}
	}
	return out
}

func transitions(utts []meeting.Utterance) []Transition {
	counts := make(map[[2]string]int)
	var order [][2]string
	for i := 1; i < len(utts); i++ {
		prev, cur := utts[i-1].Speaker, utts[i].Speaker
		if prev == cur || prev == identity.UnknownID || cur == identity.UnknownID {
			continue
		}
		k := [2]string{prev, cur}
		if counts[k] == 0 {
			order = append(order, k)
		}
		counts[k]++
	}
	out := make([]Transition, 0, len(order))
	for _, k := range order {
		out = append(out, Transition{From: k[0], To: k[1], Count: counts[k]})
	}
	return out
}

// edges builds the explicit and adjacency-proxy edge sets of one meeting.
// An utterance with addressees contributes explicit edges and suppresses
// the adjacency edge to the previous speaker.
func edges(utts []meeting.Utterance) []Edge {
	acc := newEdgeSet()
	for i, u := range utts {
		if u.Speaker == identity.UnknownID {
			continue
		}
		if len(u.Addressees) > 0 {
			for _, to := range u.Addressees {
				if to == u.Speaker || to == identity.UnknownID {
					continue
				}
				acc.add(Edge{Source: u.Speaker, Target: to, Weight: 1, Provenance: ProvenanceExplicit, Directed: true})
			}
			continue
		}
		if i == 0 {
			continue
		}
		prev := utts[i-1].Speaker
		if prev == u.Speaker || prev == identity.UnknownID {
			continue
		}
		a, b := prev, u.Speaker
		if b < a {
			a, b = b, a
		}
		acc.add(Edge{Source: a, Target: b, Weight: 1, Provenance: ProvenanceAdjacency})
	}
	out := acc.list()
	for i := range out {
		out[i].Meetings = 1
	}
	return out
}

type edgeSet struct {
	byKey map[edgeKey]*Edge
}

func newEdgeSet() *edgeSet { return &edgeSet{byKey: make(map[edgeKey]*Edge)} }

func (s *edgeSet) add(e Edge) {
	if cur, ok := s.byKey[e.key()]; ok {
		cur.Weight += e.Weight
		cur.Meetings += e.Meetings
		return
	}
	s.byKey[e.key()] = &e
}

// list returns the edges ordered by provenance, then source and target.
func (s *edgeSet) list() []Edge {
	out := make([]Edge, 0, len(s.byKey))
	for _, e := range s.byKey {
		out = append(out, *e)
	}
	sort.Slice(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if a.Provenance != b.Provenance {
			return a.Provenance < b.Provenance
		}
		if a.Source != b.Source {
			return a.Source < b.Source
		}
		return a.Target < b.Target
	})
	return out
}
