package metrics

import (
	"sort"

	"github.com/hugogrimmett/meeting-analyser/identity"
	"github.com/hugogrimmett/meeting-analyser/meeting"
)

// ParticipantTotals are one participant's figures over a run.
//
// PooledShare is the participant's words over all words of the run.
// AttendedShare is the participant's words over the words of the meetings
// they spoke in. Both weight meetings by their word count; per-meeting
// percentages are never averaged.
type ParticipantTotals struct {
	ID               string  `json:"id" yaml:"id"`
	Utterances       int     `json:"utterances" yaml:"utterances"`
	Words            int     `json:"words" yaml:"words"`
	MeetingsAttended int     `json:"meetings_attended" yaml:"meetings_attended"`
	MeetingsSpoken   int     `json:"meetings_spoken" yaml:"meetings_spoken"`
	PooledShare      Percent `json:"pooled_share" yaml:"pooled_share"`
	AttendedShare    Percent `json:"attended_share" yaml:"attended_share"`
}

// MeetingRow is one line of the per-meeting summary table.
type MeetingRow struct {
	MeetingID  string         `json:"meeting_id" yaml:"meeting_id"`
	Date       string         `json:"date" yaml:"date"`
	Title      string         `json:"title" yaml:"title"`
	Status     meeting.Status `json:"status" yaml:"status"`
	Attendees  int            `json:"attendees" yaml:"attendees"`
	Speakers   int            `json:"speakers" yaml:"speakers"`
	Utterances int            `json:"utterances" yaml:"utterances"`
	Words      int            `json:"words" yaml:"words"`
	TopSpeaker string         `json:"top_speaker,omitempty" yaml:"top_speaker,omitempty"`
	Provenance []Provenance   `json:"provenance" yaml:"provenance"`
}

type AggregateMetrics struct {
	Meetings     int                 `json:"meetings" yaml:"meetings"`
	Analysed     int                 `json:"analysed" yaml:"analysed"`
	TotalWords   int                 `json:"total_words" yaml:"total_words"`
	Participants []ParticipantTotals `json:"participants" yaml:"participants"`
	Edges        []Edge              `json:"edges" yaml:"edges"`
	Rows         []MeetingRow        `json:"rows" yaml:"rows"`
}

// Provenances returns the edge provenances present, in a fixed order.
func (a *AggregateMetrics) Provenances() []Provenance {
	return provenancesOf(a.Edges)
}

// EdgesOf returns the edges of one provenance.
func (a *AggregateMetrics) EdgesOf(p Provenance) []Edge {
	var out []Edge
	for _, e := range a.Edges {
		if e.Provenance == p {
			out = append(out, e)
		}
	}
	return out
}

// ComputeAggregate combines per-meeting metrics. meetings supplies the
// attendee lists and is matched to ms by meeting ID.
func ComputeAggregate(ms []MeetingMetrics, meetings []*meeting.Meeting) AggregateMetrics {
	agg := AggregateMetrics{
		Meetings:     len(ms),
		Participants: []ParticipantTotals{},
		Rows:         []MeetingRow{},
	}
	byID := make(map[string]*meeting.Meeting, len(meetings))
	for _, m := range meetings {
		byID[m.ID] = m
	}

	totals := make(map[string]*ParticipantTotals)
	spokenWords := make(map[string]int)
	get := func(id string) *ParticipantTotals {
		t, ok := totals[id]
		if !ok {
			t = &ParticipantTotals{ID: id}
			totals[id] = t
		}
		return t
	}

	acc := newEdgeSet()
	for _, mm := range ms {
		agg.TotalWords += mm.TotalWords
		if mm.TotalUtterances > 0 {
			agg.Analysed++
		}

		attendees := 0
		if m, ok := byID[mm.MeetingID]; ok {
			attendees = len(m.Attendees)
			for _, id := range m.Attendees {
				get(id).MeetingsAttended++
			}
		}
		for _, p := range mm.Participants {
			if p.Utterances == 0 {
				continue
			}
			t := get(p.ID)
			t.Utterances += p.Utterances
			t.Words += p.Words
			t.MeetingsSpoken++
			spokenWords[p.ID] += mm.TotalWords
		}
		for _, e := range mm.Edges {
			acc.add(e)
		}

		agg.Rows = append(agg.Rows, MeetingRow{
			MeetingID:  mm.MeetingID,
			Date:       mm.Date,
			Title:      mm.Title,
			Status:     mm.Status,
			Attendees:  attendees,
			Speakers:   len(mm.Speakers()),
			Utterances: mm.TotalUtterances,
			Words:      mm.TotalWords,
			TopSpeaker: topSpeaker(mm.Participants),
			Provenance: provenancesOf(mm.Edges),
		})
	}

	for id, t := range totals {
		t.PooledShare = Share(t.Words, agg.TotalWords)
		t.AttendedShare = Share(t.Words, spokenWords[id])
		agg.Participants = append(agg.Participants, *t)
	}
	sort.Slice(agg.Participants, func(i, j int) bool {
		a, b := agg.Participants[i], agg.Participants[j]
		if a.Words != b.Words {
			return a.Words > b.Words
		}
		return a.ID < b.ID
	})
	agg.Edges = acc.list()
	return agg
}

// topSpeaker is the known participant with the most words; the earliest
// listed wins a tie.
func topSpeaker(parts []ParticipantStats) string {
	best, words := "", 0
	for _, p := range parts {
		if p.ID == identity.UnknownID {
			continue
		}
		if p.Words > words {
			best, words = p.ID, p.Words
		}
	}
	return best
}

func provenancesOf(edges []Edge) []Provenance {
	var hasExplicit, hasAdjacency bool
	for _, e := range edges {
		switch e.Provenance {
		case ProvenanceExplicit:
			hasExplicit = true
		case ProvenanceAdjacency:
			hasAdjacency = true
		}
	}
	out := []Provenance{}
	if hasExplicit {
		out = append(out, ProvenanceExplicit)
	}
	if hasAdjacency {
		out = append(out, ProvenanceAdjacency)
	}
	return out
}
