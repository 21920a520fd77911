// Package orchestrator runs one analysis: it reads the events of a date
// range, pairs them with their notes, computes the metrics, writes the run's
// artifacts and assembles the presentation.
package orchestrator

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/attribute"

	"github.com/hugogrimmett/meeting-analyser/calendar"
	cfg "github.com/hugogrimmett/meeting-analyser/config"
	"github.com/hugogrimmett/meeting-analyser/identity"
	"github.com/hugogrimmett/meeting-analyser/local"
	"github.com/hugogrimmett/meeting-analyser/meeting"
	"github.com/hugogrimmett/meeting-analyser/metrics"
	"github.com/hugogrimmett/meeting-analyser/notes"
	"github.com/hugogrimmett/meeting-analyser/observability"
	"github.com/hugogrimmett/meeting-analyser/presentation"
)

type Pipeline struct {
	cfg    *cfg.Root
	deps   Deps
	log    logrus.FieldLogger
	tracer *observability.Tracer

	now   func() time.Time
	newID func() string
}

func NewPipeline(c *cfg.Root, deps Deps, log logrus.FieldLogger) *Pipeline {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Pipeline{
		cfg:    c,
		deps:   deps,
		log:    log,
		tracer: observability.NewTracer(),
		now:    time.Now,
		newID:  uuid.NewString,
	}
}

// Run analyses the meetings starting in [from, to). Failures to read the
// calendar or to write the run's local artifacts end the run; a meeting
// whose notes cannot be read is recorded and skipped. A rendering failure is
// returned together with the report, after every local artifact is written.
func (p *Pipeline) Run(ctx context.Context, from, to time.Time) (*Report, error) {
	if err := calendar.ValidateRange(from, to); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrSetup, err)
	}
	rep := &Report{
		RunID:    p.newID(),
		From:     from,
		To:       to,
		Meetings: []*meeting.Meeting{},
		Metrics:  []metrics.MeetingMetrics{},
		Warnings: []meeting.Warning{},
	}
	log := p.log.WithField("run", rep.RunID)
	rm := observability.NewRunMetrics()

	ctx, span := p.tracer.StartRun(ctx, rep.RunID, from.Format(time.DateOnly), to.Format(time.DateOnly))
	var err error
	defer func() { observability.End(span, err) }()

	var events []calendar.Event
	timer := rm.StageTimer(observability.StageEvents)
	events, err = p.events(ctx, from, to)
	timer.ObserveDuration()
	if err != nil {
		err = fmt.Errorf("%w: %w", ErrSetup, err)
		return nil, err
	}
	log.WithField("events", len(events)).Info("fetched calendar events")
	events, rep.Warnings = dedupe(log, events)

	reg := identity.NewRegistry(identity.WithThreshold(p.cfg.Identity.Threshold))
	norm := meeting.NewNormalizer(log)
	for _, ev := range events {
		if err = ctx.Err(); err != nil {
			return nil, err
		}
		timer := rm.StageTimer(observability.StageMeeting)
		m, warns := p.meeting(ctx, norm, reg, ev)
		timer.ObserveDuration()
		rep.Warnings = append(rep.Warnings, warns...)
		if m == nil {
			continue
		}
		rep.Meetings = append(rep.Meetings, m)
		rm.ObserveMeeting(m)
	}
	rm.ObserveWarnings(rep.Warnings)
	rm.ObserveRegistry(reg)

	timer = rm.StageTimer(observability.StageMetrics)
	_, mspan := p.tracer.StartStage(ctx, observability.StageMetrics)
	for _, m := range rep.Meetings {
		rep.Metrics = append(rep.Metrics, metrics.ComputeMeeting(m))
	}
	rep.Aggregate = metrics.ComputeAggregate(rep.Metrics, rep.Meetings)
	observability.End(mspan, nil)
	timer.ObserveDuration()
	log.WithFields(logrus.Fields{
		"meetings": rep.Aggregate.Meetings,
		"analysed": rep.Aggregate.Analysed,
		"words":    rep.Aggregate.TotalWords,
	}).Info("computed metrics")

	started := p.now()
	var dir string
	if rep.SessionID, dir, err = mkSessionDir(p.cfg.Paths.Outputs, rep.RunID, started); err != nil {
		err = fmt.Errorf("session dir: %w", err)
		return nil, err
	}
	rep.SessionDir = dir
	log = log.WithField("session", rep.SessionID)

	timer = rm.StageTimer(observability.StagePersist)
	pctx, pspan := p.tracer.StartStage(ctx, observability.StagePersist)
	bundle := PersistBundle{
		RunID:       rep.RunID,
		SessionID:   rep.SessionID,
		From:        from,
		To:          to,
		GeneratedAt: started,
		ConfigFile:  p.cfg.File,
		Meetings:    len(rep.Meetings),
		Statuses:    rep.Counts(),
		Warnings:    len(rep.Warnings),
	}
	err = persist(pctx, dir, bundle, reg, rep.Meetings, rep.Metrics, rep.Aggregate, rep.Warnings)
	observability.End(pspan, err)
	timer.ObserveDuration()
	if err != nil {
		err = fmt.Errorf("persist: %w", err)
		return rep, err
	}
	log.WithField("dir", dir).Info("wrote analysis")

	plan := presentation.Plan(rep.Aggregate, rep.Metrics, displayNames(reg))
	rm.ObservePlan(plan)
	timer = rm.StageTimer(observability.StageAssemble)
	actx, aspan := p.tracer.StartStage(ctx, observability.StageAssemble, attribute.Int(observability.AttrCount, len(plan)))
	renderer, slides := p.outputs(dir)
	rep.Result, err = presentation.Assemble(actx, presentation.Info{
		Title:    p.cfg.Presentation.Title,
		Subtitle: subtitle(from, to),
	}, plan, renderer, slides)
	observability.End(aspan, err)
	timer.ObserveDuration()

	if werr := local.WriteJSON(filepath.Join(dir, PresentationFile), rep.Result); werr != nil {
		log.WithError(werr).Warn("could not write presentation record")
	}
	if werr := rm.WriteTextfile(filepath.Join(dir, PromFile)); werr != nil {
		log.WithError(werr).Warn("could not write run metrics")
	}
	summarize(log, rep.Warnings)

	if err != nil {
		err = fmt.Errorf("assemble: %w", err)
		return rep, err
	}
	log.WithFields(logrus.Fields{
		"files":        len(rep.Result.Files),
		"slides":       len(rep.Result.Deck.Slides),
		"presentation": presentationLink(rep.Result.Presentation),
	}).Info("presentation ready")
	return rep, nil
}

func (p *Pipeline) events(ctx context.Context, from, to time.Time) ([]calendar.Event, error) {
	ctx, span := p.tracer.StartStage(ctx, observability.StageEvents)
	evs, err := p.deps.Events.Events(ctx, from, to)
	if err == nil {
		calendar.Sort(evs)
		span.SetAttributes(attribute.Int(observability.AttrCount, len(evs)))
	}
	observability.End(span, err)
	return evs, err
}

// meeting fetches and parses the notes of ev and normalizes the pair.
func (p *Pipeline) meeting(ctx context.Context, norm *meeting.Normalizer, reg *identity.Registry, ev calendar.Event) (*meeting.Meeting, []meeting.Warning) {
	ctx, span := p.tracer.StartStage(ctx, observability.StageMeeting,
		attribute.String(observability.AttrMeetingID, ev.ID))
	defer span.End()

	text, found, err := p.deps.Notes.Fetch(ctx, ev)
	if err != nil {
		span.RecordError(err)
		return norm.Failed(ev, reg, err)
	}
	var nt *notes.Notes
	if found {
		nt = notes.Parse(text)
	}
	m, warns := norm.Normalize(ev, nt, reg)
	if m != nil {
		span.SetAttributes(attribute.String(observability.AttrStatus, string(m.Status)))
		p.log.WithFields(logrus.Fields{
			"meeting":    ev.ID,
			"status":     m.Status,
			"utterances": len(m.Utterances),
		}).Debug("normalized meeting")
	}
	return m, warns
}

func (p *Pipeline) outputs(dir string) (presentation.Renderer, presentation.SlideGenerator) {
	r, g := p.deps.Renderer, p.deps.Slides
	if r == nil {
		r = &local.DataRenderer{Dir: filepath.Join(dir, "charts")}
	}
	if g == nil {
		g = &local.DeckWriter{Dir: dir}
	}
	return r, g
}

func presentationLink(ref presentation.PresentationRef) string {
	if ref.URL != "" {
		return ref.URL
	}
	return ref.Path
}
