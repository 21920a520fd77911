// Package observability records what a run did: Prometheus counters kept in
// a per-run registry and written out as a textfile, and OpenTelemetry spans
// around the pipeline stages.
package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/hugogrimmett/meeting-analyser/identity"
	"github.com/hugogrimmett/meeting-analyser/meeting"
	"github.com/hugogrimmett/meeting-analyser/presentation"
)

// RunMetrics holds the Prometheus metrics of one run.
type RunMetrics struct {
	reg *prometheus.Registry

	MeetingsTotal    *prometheus.CounterVec
	UtterancesTotal  prometheus.Counter
	WordsTotal       prometheus.Counter
	WarningsTotal    *prometheus.CounterVec
	ResolutionsTotal *prometheus.CounterVec
	ArtifactsTotal   *prometheus.CounterVec
	Participants     prometheus.Gauge
	StageSeconds     *prometheus.HistogramVec
}

// NewRunMetrics creates the metrics in a fresh registry.
func NewRunMetrics() *RunMetrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &RunMetrics{
		reg: reg,
		MeetingsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "meeting_analyser_meetings_total",
				Help: "Meetings processed, by outcome",
			},
			[]string{"status"},
		),
		UtterancesTotal: factory.NewCounter(prometheus.CounterOpts{
			Name: "meeting_analyser_utterances_total",
			Help: "Utterances extracted from notes",
		}),
		WordsTotal: factory.NewCounter(prometheus.CounterOpts{
			Name: "meeting_analyser_words_total",
			Help: "Words spoken across all analysed meetings",
		}),
		WarningsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "meeting_analyser_warnings_total",
				Help: "Warnings raised during the run",
			},
			[]string{"kind"},
		),
		ResolutionsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "meeting_analyser_name_resolutions_total",
				Help: "Name resolutions by how the name was matched",
			},
			[]string{"match"},
		),
		ArtifactsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "meeting_analyser_artifacts_total",
				Help: "Chart artifacts requested, by kind",
			},
			[]string{"kind"},
		),
		Participants: factory.NewGauge(prometheus.GaugeOpts{
			Name: "meeting_analyser_participants",
			Help: "Distinct participants known at the end of the run",
		}),
		StageSeconds: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "meeting_analyser_stage_seconds",
				Help:    "Duration of each pipeline stage",
				Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 2, 5, 10, 30, 60},
			},
			[]string{"stage"},
		),
	}
}

// Registry exposes the underlying registry, for tests and custom exporters.
func (m *RunMetrics) Registry() *prometheus.Registry { return m.reg }

// ObserveMeeting counts one meeting and its utterances.
func (m *RunMetrics) ObserveMeeting(mt *meeting.Meeting) {
	m.MeetingsTotal.WithLabelValues(string(mt.Status)).Inc()
	m.UtterancesTotal.Add(float64(len(mt.Utterances)))
	words := 0
	for _, u := range mt.Utterances {
		words += u.Words
	}
	m.WordsTotal.Add(float64(words))
}

func (m *RunMetrics) ObserveWarnings(ws []meeting.Warning) {
	for _, w := range ws {
		m.WarningsTotal.WithLabelValues(string(w.Kind)).Inc()
	}
}

// ObserveRegistry copies the resolver's counters and participant count.
func (m *RunMetrics) ObserveRegistry(reg *identity.Registry) {
	for kind, n := range reg.Stats() {
		m.ResolutionsTotal.WithLabelValues(string(kind)).Add(float64(n))
	}
	m.Participants.Set(float64(len(reg.Participants())))
}

func (m *RunMetrics) ObservePlan(plan []presentation.ArtifactRequest) {
	for _, r := range plan {
		m.ArtifactsTotal.WithLabelValues(string(r.Kind)).Inc()
	}
}

// StageTimer starts timing one pipeline stage. ObserveDuration on the
// returned timer records it.
func (m *RunMetrics) StageTimer(stage string) *prometheus.Timer {
	return prometheus.NewTimer(m.StageSeconds.WithLabelValues(stage))
}

// WriteTextfile writes the metrics in the text exposition format, for the
// node exporter textfile collector or for reading by hand.
func (m *RunMetrics) WriteTextfile(path string) error {
	return prometheus.WriteToTextfile(path, m.reg)
}
