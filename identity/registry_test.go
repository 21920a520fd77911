package identity

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolve_Idempotent(t *testing.T) {
	reg := NewRegistry()

	first := reg.Resolve("Alice", nil)
	second := reg.Resolve("Alice", nil)

	require.NotNil(t, first)
	assert.Same(t, first, second)
	assert.Equal(t, []string{"Alice"}, first.Aliases)
	assert.Equal(t, 1, reg.Stats()[MatchNew])
	assert.Equal(t, 1, reg.Stats()[MatchExact])
}

func TestResolve_NormalizedVariant(t *testing.T) {
	reg := NewRegistry()

	a := reg.Resolve("Bob Smith", nil)
	b := reg.Resolve("  bob   SMITH ", nil)
	c := reg.Resolve("Dr. Bob Smith (he/him)", nil)

	assert.Same(t, a, b)
	assert.Same(t, a, c)
	assert.Equal(t, "Bob Smith", a.DisplayName)
	assert.Len(t, a.Aliases, 3)
}

func TestResolve_FuzzyPrefersAttendeeForm(t *testing.T) {
	reg := NewRegistry()
	attendees := []string{"Bob Smith", "Alice Jones"}

	bob := reg.Resolve("bob", attendees)

	assert.Equal(t, "Bob Smith", bob.DisplayName)
	assert.True(t, bob.FromCalendar)
	assert.ElementsMatch(t, []string{"Bob Smith", "bob"}, bob.Aliases)

	again := reg.Resolve("Bob Smith", attendees)
	assert.Same(t, bob, again)
	assert.Len(t, reg.Participants(), 1)
}

func TestResolve_TieBrokenByAttendance(t *testing.T) {
	reg := NewRegistry()
	jones := reg.Resolve("Bob Jones", nil)
	smith := reg.Resolve("Bob Smith", nil)
	require.NotSame(t, jones, smith)

	got := reg.Resolve("Bob", []string{"Bob Smith"})

	assert.Same(t, smith, got)
	assert.Equal(t, 1, reg.Stats()[MatchFuzzy])
}

func TestResolve_UnresolvedTieCreatesParticipant(t *testing.T) {
	reg := NewRegistry()
	jones := reg.Resolve("Bob Jones", nil)
	smith := reg.Resolve("Bob Smith", nil)

	got := reg.Resolve("Bob", []string{"Bob Jones", "Bob Smith"})

	assert.NotSame(t, jones, got)
	assert.NotSame(t, smith, got)
	assert.Equal(t, 1, reg.Stats()[MatchTied])

	// The new identity is stable from now on.
	assert.Same(t, got, reg.Resolve("Bob", nil))
}

func TestResolve_NoMatchCreates(t *testing.T) {
	reg := NewRegistry()
	a := reg.Resolve("Alice", nil)
	b := reg.Resolve("Bob", nil)
	assert.NotEqual(t, a.ID, b.ID)
	assert.Len(t, reg.Participants(), 2)
}

func TestResolve_Unknown(t *testing.T) {
	reg := NewRegistry()
	a := reg.Resolve("", nil)
	b := reg.Resolve("(she/her)", nil)

	assert.True(t, a.IsUnknown())
	assert.Same(t, a, b)
	assert.Equal(t, UnknownName, a.DisplayName)
}

func TestResolve_Threshold(t *testing.T) {
	strict := NewRegistry(WithThreshold(0.95))
	p := strict.Resolve("Bob Smith", nil)
	q := strict.Resolve("Bob", nil)
	assert.NotSame(t, p, q)

	ignored := NewRegistry(WithThreshold(3))
	assert.Equal(t, DefaultThreshold, ignored.Threshold())
}

func TestResolve_LookalikeNamesStayApart(t *testing.T) {
	reg := NewRegistry()

	one := reg.Resolve("Speaker 1", nil)
	two := reg.Resolve("Speaker 2", nil)
	dan := reg.Resolve("Dan Lee", nil)
	jan := reg.Resolve("Jan Lee", nil)

	assert.NotEqual(t, one.ID, two.ID)
	assert.NotEqual(t, dan.ID, jan.ID)
	assert.Equal(t, []string{"Speaker 1"}, one.Aliases)
	assert.Len(t, reg.Participants(), 4)
	assert.Zero(t, reg.Stats()[MatchFuzzy])
}

func TestResolveSpeaker(t *testing.T) {
	reg := NewRegistry()
	robert := reg.Resolve("Robert Smith", nil)

	// Heard already under another label: no fuzzy merge.
	rob := reg.ResolveSpeaker("Rob Smith", nil, map[string]bool{robert.ID: true})
	assert.NotSame(t, robert, rob.Participant)
	assert.Equal(t, MatchNew, rob.Kind)

	// Exact and normalized hits still resolve to a speaking participant.
	again := reg.ResolveSpeaker("robert  smith", nil, map[string]bool{robert.ID: true})
	assert.Same(t, robert, again.Participant)
	assert.Equal(t, MatchAlias, again.Kind)

	other := NewRegistry()
	bob := other.Resolve("Robert Smith", nil)
	res := other.ResolveSpeaker("Rob Smith", nil, nil)
	assert.Same(t, bob, res.Participant)
	assert.Equal(t, MatchFuzzy, res.Kind)
}

func TestResolve_StableIDs(t *testing.T) {
	a := NewRegistry().Resolve("Alice Jones", nil)
	b := NewRegistry().Resolve("alice jones", nil)
	assert.Equal(t, a.ID, b.ID)
}

func TestPartitionInvariant(t *testing.T) {
	reg := NewRegistry()
	meetings := [][]string{
		{"Alice Jones", "Bob Smith", "alice", "Bob", "Carol"},
		{"Bob Smith", "bob", "Carol White", "carol", "Dave"},
		{"Alice", "A. Jones", "Dave Brown", "dave", ""},
	}
	for _, names := range meetings {
		for _, n := range names {
			reg.Resolve(n, names)
		}
	}

	owner := make(map[string]string)
	for _, p := range reg.Participants() {
		for _, alias := range p.Aliases {
			prev, dup := owner[alias]
			assert.False(t, dup, "alias %q owned by %s and %s", alias, prev, p.ID)
			owner[alias] = p.ID
		}
	}
	for _, names := range meetings {
		for _, n := range names {
			if n == "" {
				continue
			}
			p, ok := reg.Lookup(n)
			require.True(t, ok, n)
			assert.Equal(t, owner[n], p.ID)
		}
	}
}

func TestResolveAttendees(t *testing.T) {
	reg := NewRegistry()

	got := reg.ResolveAttendees([]Attendee{
		{Name: "Bob Smith", Email: "bob@example.com"},
		{Email: "alice.jones@example.com"},
	})

	require.Len(t, got, 2)
	assert.Equal(t, "Bob Smith", got[0].DisplayName)
	assert.Equal(t, "Alice Jones", got[1].DisplayName)
	assert.Contains(t, got[0].Aliases, "bob@example.com")

	// Notes spelling of an attendee lands on the calendar identity.
	assert.Same(t, got[1], reg.Resolve("Alice", []string{"Bob Smith", "alice.jones@example.com"}))
}

func TestResolveAttendees_UpgradesNotesIdentity(t *testing.T) {
	reg := NewRegistry()
	fromNotes := reg.Resolve("bob", nil)
	assert.False(t, fromNotes.FromCalendar)

	got := reg.ResolveAttendees([]Attendee{{Name: "Bob Smith", Email: "bob@example.com"}})

	require.Len(t, got, 1)
	assert.Same(t, fromNotes, got[0])
	assert.Equal(t, "Bob Smith", fromNotes.DisplayName)
	assert.True(t, fromNotes.FromCalendar)
}

func TestResolveAttendees_CoAttendeesStayDistinct(t *testing.T) {
	reg := NewRegistry()

	got := reg.ResolveAttendees([]Attendee{
		{Name: "Alex Kim", Email: "alex.kim@example.com"},
		{Name: "Alex Kim", Email: "akim@partner.org"},
		{Name: "Alex Kimm", Email: "kimm@example.com"},
	})

	require.Len(t, got, 3)
	assert.NotEqual(t, got[0].ID, got[1].ID)
	assert.NotEqual(t, got[0].ID, got[2].ID)
	assert.Equal(t, "Alex Kim <akim@partner.org>", got[1].DisplayName)

	// The e-mail keeps identifying the second person in later meetings.
	again := reg.ResolveAttendees([]Attendee{{Name: "Alex Kim", Email: "akim@partner.org"}})
	assert.Same(t, got[1], again[0])
}

func TestAddAlias_Conflict(t *testing.T) {
	reg := NewRegistry()
	a := reg.Resolve("Alice", nil)
	b := reg.Resolve("Bob", nil)

	assert.False(t, reg.AddAlias(b, "Alice"))
	assert.True(t, reg.AddAlias(a, "Alice"))
	assert.True(t, reg.AddAlias(a, "Ali"))

	p, ok := reg.Lookup("Ali")
	require.True(t, ok)
	assert.Same(t, a, p)
}
