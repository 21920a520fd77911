package identity

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// DefaultThreshold is the minimum Similarity a fuzzy candidate needs.
//
// 0.80 accepts a first name against a full name (TokenSubsetScore),
// shortened first names ("rob" / "robert", TokenPrefixScore) and single
// character typos in names of five or more letters, while rejecting pairs of
// different short first names such as "jon" / "john" (0.75).
const DefaultThreshold = 0.80

// tieEpsilon is the score distance under which candidates count as tied.
const tieEpsilon = 1e-9

// MatchKind records how a raw string was resolved.
type MatchKind string

const (
	MatchExact   MatchKind = "exact"      // raw string seen before
	MatchAlias   MatchKind = "normalized" // normalized key seen before
	MatchFuzzy   MatchKind = "fuzzy"      // similarity above threshold
	MatchNew     MatchKind = "new"        // no candidate, new participant
	MatchTied    MatchKind = "ambiguous"  // unresolved tie, new participant
	MatchUnknown MatchKind = "unknown"    // no usable name
)

// Resolution is the outcome of one resolve call.
type Resolution struct {
	Participant *Participant
	Kind        MatchKind
	Score       float64
}

// Stats counts resolutions by kind.
type Stats map[MatchKind]int

// Attendee is a calendar attendee as the resolver sees it.
type Attendee struct {
	Name  string
	Email string
}

// Raw returns the string the attendee is resolved by.
func (a Attendee) Raw() string {
	if strings.TrimSpace(a.Name) != "" {
		return a.Name
	}
	return a.Email
}

// Option configures a Registry.
type Option func(*Registry)

// WithThreshold overrides DefaultThreshold. Values outside (0, 1] are ignored.
func WithThreshold(t float64) Option {
	return func(r *Registry) {
		if t > 0 && t <= 1 {
			r.threshold = t
		}
	}
}

// Registry owns the canonical participants of one run. It is not safe for
// concurrent use; a run resolves meetings one at a time in chronological
// order, and earlier meetings shape what later ones match.
type Registry struct {
	threshold float64

	order  []*Participant
	byID   map[string]*Participant
	byRaw  map[string]*Participant
	byKey  map[string]*Participant
	keys   map[string][]string // participant ID -> claimed keys
	emails map[string][]string // participant ID -> calendar e-mails

	stats Stats
}

// NewRegistry returns an empty registry.
func NewRegistry(opts ...Option) *Registry {
	r := &Registry{
		threshold: DefaultThreshold,
		byID:      make(map[string]*Participant),
		byRaw:     make(map[string]*Participant),
		byKey:     make(map[string]*Participant),
		keys:      make(map[string][]string),
		emails:    make(map[string][]string),
		stats:     make(Stats),
	}
	for _, o := range opts {
		o(r)
	}
	return r
}

// Threshold returns the fuzzy acceptance threshold in use.
func (r *Registry) Threshold() float64 { return r.threshold }

// Resolve maps a raw speaker string to its participant, using the current
// meeting's attendee strings as context for fuzzy matching.
func (r *Registry) Resolve(raw string, attendees []string) *Participant {
	return r.ResolveDetailed(raw, attendees).Participant
}

// ResolveDetailed is Resolve with the match kind and score.
func (r *Registry) ResolveDetailed(raw string, attendees []string) Resolution {
	res := r.resolve(raw, resolveCtx{attendees: attendees})
	r.stats[res.Kind]++
	return res
}

// ResolveSpeaker resolves a speaker label of a meeting in progress. speaking
// holds the IDs of participants already heard in that meeting under other
// labels; the label never fuzzy-matches one of them.
func (r *Registry) ResolveSpeaker(raw string, attendees []string, speaking map[string]bool) Resolution {
	res := r.resolve(raw, resolveCtx{attendees: attendees, speaking: speaking})
	r.stats[res.Kind]++
	return res
}

// ResolveAttendees resolves a meeting's attendee list in order. Distinct
// attendees of one meeting never merge into each other, and two calendar
// identities with different e-mail addresses never merge fuzzily.
func (r *Registry) ResolveAttendees(atts []Attendee) []*Participant {
	names := make([]string, 0, len(atts))
	for _, a := range atts {
		names = append(names, a.Raw())
	}

	claimed := make(map[string]bool, len(atts))
	out := make([]*Participant, 0, len(atts))
	for _, a := range atts {
		var res Resolution
		if p, ok := r.byRaw[normalizeEmail(a.Email)]; ok && a.Email != "" {
			res = Resolution{Participant: p, Kind: MatchExact, Score: 1}
		} else {
			res = r.resolve(a.Raw(), resolveCtx{
				attendees: names,
				exclude:   claimed,
				email:     normalizeEmail(a.Email),
				calendar:  true,
			})
		}
		r.stats[res.Kind]++

		p := res.Participant
		if p.IsUnknown() {
			continue
		}
		if a.Email != "" {
			r.addEmail(p, normalizeEmail(a.Email))
		}
		if !p.FromCalendar {
			p.DisplayName = DisplayForm(a.Raw())
			p.FromCalendar = true
		}
		if claimed[p.ID] {
			continue
		}
		for _, other := range out {
			if other.DisplayName == p.DisplayName && a.Email != "" {
				p.DisplayName = fmt.Sprintf("%s <%s>", p.DisplayName, normalizeEmail(a.Email))
				break
			}
		}
		claimed[p.ID] = true
		out = append(out, p)
	}
	return out
}

// Lookup returns the participant a raw string is an alias of, without
// resolving anything new.
func (r *Registry) Lookup(raw string) (*Participant, bool) {
	p, ok := r.byRaw[raw]
	return p, ok
}

// Get returns a participant by ID.
func (r *Registry) Get(id string) (*Participant, bool) {
	p, ok := r.byID[id]
	return p, ok
}

// Participants returns every participant in registration order.
func (r *Registry) Participants() []*Participant {
	out := make([]*Participant, len(r.order))
	copy(out, r.order)
	return out
}

// Stats returns a copy of the resolution counters.
func (r *Registry) Stats() Stats {
	out := make(Stats, len(r.stats))
	for k, v := range r.stats {
		out[k] = v
	}
	return out
}

// AddAlias registers raw as an alias of p. It returns false when raw already
// belongs to another participant.
func (r *Registry) AddAlias(p *Participant, raw string) bool {
	if owner, ok := r.byRaw[raw]; ok {
		return owner.ID == p.ID
	}
	r.byRaw[raw] = p
	p.Aliases = append(p.Aliases, raw)
	if key := Normalize(raw); key != "" {
		r.claimKey(p, key)
	}
	return true
}

type resolveCtx struct {
	attendees []string
	exclude   map[string]bool
	speaking  map[string]bool // excluded from fuzzy candidates only
	email     string
	calendar  bool
}

type candidate struct {
	p       *Participant
	pending string // unregistered attendee string
	score   float64
	present bool
}

func (r *Registry) resolve(raw string, rc resolveCtx) Resolution {
	if p, ok := r.byRaw[raw]; ok && !rc.exclude[p.ID] {
		return Resolution{Participant: p, Kind: MatchExact, Score: 1}
	}

	key := Normalize(raw)
	if key == "" {
		p := r.unknown()
		if strings.TrimSpace(raw) != "" {
			r.AddAlias(p, raw)
		}
		return Resolution{Participant: p, Kind: MatchUnknown}
	}

	if p, ok := r.byKey[key]; ok && !rc.exclude[p.ID] {
		r.AddAlias(p, raw)
		return Resolution{Participant: p, Kind: MatchAlias, Score: 1}
	}

	cands := r.candidates(key, raw, rc)
	chosen, tied := pick(cands)
	switch {
	case chosen != nil && chosen.p != nil:
		r.AddAlias(chosen.p, raw)
		return Resolution{Participant: chosen.p, Kind: MatchFuzzy, Score: chosen.score}
	case chosen != nil:
		// Matched an attendee that has no participant yet: the attendee
		// form becomes the canonical one.
		p := r.create(chosen.pending, true)
		r.AddAlias(p, raw)
		return Resolution{Participant: p, Kind: MatchFuzzy, Score: chosen.score}
	case tied:
		p := r.create(raw, rc.calendar)
		return Resolution{Participant: p, Kind: MatchTied}
	default:
		p := r.create(raw, rc.calendar)
		return Resolution{Participant: p, Kind: MatchNew}
	}
}

func (r *Registry) candidates(key, raw string, rc resolveCtx) []candidate {
	present := make(map[string]bool)
	var pending []string
	for _, a := range rc.attendees {
		if a == raw {
			continue
		}
		if p := r.peek(a); p != nil {
			present[p.ID] = true
			continue
		}
		if !rc.calendar {
			pending = append(pending, a)
		}
	}

	var out []candidate
	for _, p := range r.order {
		if p.IsUnknown() || rc.exclude[p.ID] || rc.speaking[p.ID] {
			continue
		}
		if rc.email != "" && r.conflictingEmail(p, rc.email) {
			continue
		}
		best := 0.0
		for _, k := range r.keys[p.ID] {
			if s := Similarity(key, k); s > best {
				best = s
			}
		}
		if best >= r.threshold {
			out = append(out, candidate{p: p, score: best, present: present[p.ID]})
		}
	}

	seen := make(map[string]bool)
	for _, a := range pending {
		k := Normalize(a)
		if k == "" || seen[k] {
			continue
		}
		seen[k] = true
		if s := Similarity(key, k); s >= r.threshold {
			out = append(out, candidate{pending: a, score: s, present: true})
		}
	}
	return out
}

// pick applies the tie-break: highest score wins; among equal scores the
// candidates present in the meeting's attendee list win; anything still tied
// is unresolved.
func pick(cands []candidate) (*candidate, bool) {
	if len(cands) == 0 {
		return nil, false
	}
	best := math.Inf(-1)
	for _, c := range cands {
		if c.score > best {
			best = c.score
		}
	}
	var top []int
	for i, c := range cands {
		if best-c.score <= tieEpsilon {
			top = append(top, i)
		}
	}
	if len(top) == 1 {
		return &cands[top[0]], false
	}
	var inMeeting []int
	for _, i := range top {
		if cands[i].present {
			inMeeting = append(inMeeting, i)
		}
	}
	if len(inMeeting) == 1 {
		return &cands[inMeeting[0]], false
	}
	return nil, true
}

// peek resolves raw without registering anything.
func (r *Registry) peek(raw string) *Participant {
	if p, ok := r.byRaw[raw]; ok {
		return p
	}
	if k := Normalize(raw); k != "" {
		return r.byKey[k]
	}
	return nil
}

func (r *Registry) create(raw string, fromCalendar bool) *Participant {
	key := Normalize(raw)
	id := participantID(key)
	for n := 2; r.byID[id] != nil; n++ {
		// Same name, different person (co-attendees sharing a name).
		id = participantID(key + "#" + strconv.Itoa(n))
	}
	p := &Participant{
		ID:           id,
		DisplayName:  DisplayForm(raw),
		FromCalendar: fromCalendar,
	}
	r.order = append(r.order, p)
	r.byID[p.ID] = p
	r.AddAlias(p, raw)
	return p
}

func (r *Registry) unknown() *Participant {
	if p, ok := r.byID[UnknownID]; ok {
		return p
	}
	p := &Participant{ID: UnknownID, DisplayName: UnknownName}
	r.order = append(r.order, p)
	r.byID[p.ID] = p
	return p
}

func (r *Registry) claimKey(p *Participant, key string) {
	if _, taken := r.byKey[key]; taken {
		return
	}
	r.byKey[key] = p
	r.keys[p.ID] = append(r.keys[p.ID], key)
}

func (r *Registry) addEmail(p *Participant, email string) {
	for _, e := range r.emails[p.ID] {
		if e == email {
			return
		}
	}
	r.emails[p.ID] = append(r.emails[p.ID], email)
	if _, ok := r.byRaw[email]; !ok {
		r.byRaw[email] = p
		p.Aliases = append(p.Aliases, email)
	}
}

func (r *Registry) conflictingEmail(p *Participant, email string) bool {
	known := r.emails[p.ID]
	if len(known) == 0 {
		return false
	}
	for _, e := range known {
		if e == email {
			return false
		}
	}
	return true
}

func normalizeEmail(s string) string {
	return strings.ToLower(strings.TrimPrefix(strings.TrimSpace(s), "mailto:"))
}
