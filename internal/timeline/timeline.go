// Package timeline merges normalized matches from every source into one
// deterministic chronological order, globally and per player.
package timeline

import (
	"fmt"
	"iter"
	"sort"
	"time"

	"github.com/pable/fgc-elo/internal/model"
)

// Timeline is the immutable ordered view over one match set. Every iterator
// it hands out can be consumed any number of times.
type Timeline struct {
	ordered  []model.Match
	byPlayer map[string][]int // indices into ordered
	players  []string         // sorted
	events   []model.Event    // consistent events, in chronological order
	eventIdx map[string]int
	excluded map[string]bool // event ids flagged inconsistent
	named    map[string]bool // every player named by an input match, valid or not
	report   model.Report
}

// Build validates, consolidates and orders matches. Roster rows take part in
// the event consistency check so that a roster disagreeing with the match
// feed about an event's date or tier is caught too.
//
// Self-referential and incomplete matches are dropped and reported. Events
// whose date or tier conflict across rows are excluded from the ordering
// entirely, together with their roster.
func Build(matches []model.Match, roster []model.RosterEntry) *Timeline {
	t := &Timeline{
		byPlayer: make(map[string][]int),
		eventIdx: make(map[string]int),
		excluded: make(map[string]bool),
		named:    make(map[string]bool),
	}

	// ---- Pass 1: structural checks on each record. ----

	valid := make([]model.Match, 0, len(matches))
	for _, m := range matches {
		for _, p := range []string{m.PlayerA, m.PlayerB} {
			if p != "" {
				t.named[p] = true
			}
		}
		if reason := structuralProblem(m); reason != "" {
			t.report.Add(&model.MalformedMatchError{Match: m, Reason: reason})
			continue
		}
		valid = append(valid, m)
	}

	// ---- Pass 2: consolidate events from both feeds and flag conflicts. ----

	type eventAccum struct {
		dates   map[string]time.Time
		tiers   map[model.Tier]struct{}
		sources map[model.Source]struct{}
		roster  map[string]model.RosterEntry
		matches int
	}
	accums := make(map[string]*eventAccum)
	get := func(id string) *eventAccum {
		a, ok := accums[id]
		if !ok {
			a = &eventAccum{
				dates:   make(map[string]time.Time),
				tiers:   make(map[model.Tier]struct{}),
				sources: make(map[model.Source]struct{}),
				roster:  make(map[string]model.RosterEntry),
			}
			accums[id] = a
		}
		return a
	}
	for _, m := range valid {
		a := get(m.EventID)
		a.dates[m.EventDate.Format(model.DateLayout)] = m.EventDate
		if m.Tier != "" {
			a.tiers[m.Tier] = struct{}{}
		}
		a.sources[m.Source] = struct{}{}
		a.matches++
	}
	for _, r := range roster {
		if r.EventID == "" || r.PlayerID == "" {
			continue
		}
		a := get(r.EventID)
		if !r.EventDate.IsZero() {
			a.dates[r.EventDate.Format(model.DateLayout)] = r.EventDate
		}
		if r.Tier != "" {
			a.tiers[r.Tier] = struct{}{}
		}
		a.roster[r.PlayerID] = mergeEntry(a.roster[r.PlayerID], r)
	}

	ids := make([]string, 0, len(accums))
	for id := range accums {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	for _, id := range ids {
		a := accums[id]
		bad := false
		if len(a.dates) > 1 {
			t.report.Add(&model.InconsistentEventError{EventID: id, Field: "date", Values: sortedKeys(a.dates)})
			bad = true
		}
		if len(a.tiers) > 1 {
			tiers := make(map[string]struct{}, len(a.tiers))
			for tr := range a.tiers {
				tiers[string(tr)] = struct{}{}
			}
			t.report.Add(&model.InconsistentEventError{EventID: id, Field: "tier", Values: sortedKeys(tiers)})
			bad = true
		}
		if len(a.dates) == 0 {
			// Roster-only event without any date: nowhere to place it.
			t.report.Add(&model.InconsistentEventError{EventID: id, Field: "date", Values: []string{"<missing>"}})
			bad = true
		}
		if bad {
			t.excluded[id] = true
			continue
		}

		ev := model.Event{ID: id, Matches: a.matches}
		for _, d := range a.dates {
			ev.Date = d
		}
		for tr := range a.tiers {
			ev.Tier = tr
		}
		for s := range a.sources {
			ev.Sources = append(ev.Sources, s)
		}
		sort.Slice(ev.Sources, func(i, j int) bool { return ev.Sources[i] < ev.Sources[j] })
		for _, r := range a.roster {
			ev.Roster = append(ev.Roster, r)
		}
		sort.Slice(ev.Roster, func(i, j int) bool { return ev.Roster[i].PlayerID < ev.Roster[j].PlayerID })
		t.events = append(t.events, ev)
	}

	sort.SliceStable(t.events, func(i, j int) bool {
		a, b := t.events[i], t.events[j]
		if !a.Date.Equal(b.Date) {
			return a.Date.Before(b.Date)
		}
		return a.ID < b.ID
	})
	for i, ev := range t.events {
		t.eventIdx[ev.ID] = i
	}

	// ---- Pass 3: global order over matches of consistent events. ----

	type keyed struct {
		m   model.Match
		ord int
	}
	keys := make([]keyed, 0, len(valid))
	for _, m := range valid {
		if t.excluded[m.EventID] {
			continue
		}
		// Canonical event date wins over the row's own timestamp.
		m.EventDate = t.events[t.eventIdx[m.EventID]].Date
		keys = append(keys, keyed{m: m, ord: RoundOrdinal(m.RoundLabel)})
	}
	sort.SliceStable(keys, func(i, j int) bool {
		return less(keys[i].m, keys[j].m, keys[i].ord, keys[j].ord)
	})
	t.ordered = make([]model.Match, len(keys))
	for i, k := range keys {
		t.ordered[i] = k.m
	}

	for i, m := range t.ordered {
		t.byPlayer[m.PlayerA] = append(t.byPlayer[m.PlayerA], i)
		t.byPlayer[m.PlayerB] = append(t.byPlayer[m.PlayerB], i)
	}
	t.players = make([]string, 0, len(t.byPlayer))
	for id := range t.byPlayer {
		t.players = append(t.players, id)
	}
	sort.Strings(t.players)
	return t
}

// Before is the total order used by the timeline: event date, round ordinal,
// event id, source, feed file, then feed index.
func Before(a, b model.Match) bool {
	return less(a, b, RoundOrdinal(a.RoundLabel), RoundOrdinal(b.RoundLabel))
}

func less(a, b model.Match, oa, ob int) bool {
	if !a.EventDate.Equal(b.EventDate) {
		return a.EventDate.Before(b.EventDate)
	}
	if oa != ob {
		return oa < ob
	}
	if a.EventID != b.EventID {
		return a.EventID < b.EventID
	}
	if a.Source != b.Source {
		return a.Source < b.Source
	}
	if a.Feed != b.Feed {
		return a.Feed < b.Feed
	}
	return a.Index < b.Index
}

// mergeEntry folds one source's roster row for a player into the rows seen
// so far. The best reported placement wins; the result does not depend on
// input order.
func mergeEntry(prev, r model.RosterEntry) model.RosterEntry {
	if prev.PlayerID == "" {
		return r
	}
	switch {
	case prev.FinalPlacement == 0:
	case r.FinalPlacement == 0, prev.FinalPlacement < r.FinalPlacement:
		r.FinalPlacement = prev.FinalPlacement
	}
	if r.Source == "" || (prev.Source != "" && prev.Source < r.Source) {
		r.Source = prev.Source
	}
	if r.EventDate.IsZero() {
		r.EventDate = prev.EventDate
	}
	if r.Tier == "" {
		r.Tier = prev.Tier
	}
	return r
}

func structuralProblem(m model.Match) string {
	switch {
	case m.PlayerA == "" || m.PlayerB == "":
		return "missing participant"
	case m.PlayerA == m.PlayerB:
		return "self-referential match"
	case m.EventID == "":
		return "missing event id"
	case m.EventDate.IsZero():
		return "missing event date"
	}
	return ""
}

func sortedKeys[V any](m map[string]V) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// Len returns the number of ordered matches.
func (t *Timeline) Len() int { return len(t.ordered) }

// Matches yields every ordered match in global chronological order.
func (t *Timeline) Matches() iter.Seq[model.Match] {
	return func(yield func(model.Match) bool) {
		for _, m := range t.ordered {
			if !yield(m) {
				return
			}
		}
	}
}

// Players yields (player, ordered matches) pairs sorted by player id. Each
// yielded slice is a fresh copy.
func (t *Timeline) Players() iter.Seq2[string, []model.Match] {
	return func(yield func(string, []model.Match) bool) {
		for _, id := range t.players {
			if !yield(id, t.Player(id)) {
				return
			}
		}
	}
}

// Player returns id's matches in order. Unknown players get an empty slice.
func (t *Timeline) Player(id string) []model.Match {
	idx := t.byPlayer[id]
	out := make([]model.Match, len(idx))
	for i, j := range idx {
		out[i] = t.ordered[j]
	}
	return out
}

// Named reports whether any input match names id, including matches that
// were rejected or belong to excluded events.
func (t *Timeline) Named(id string) bool { return t.named[id] }

// HasPlayer reports whether id appears in any ordered match.
func (t *Timeline) HasPlayer(id string) bool {
	_, ok := t.byPlayer[id]
	return ok
}

// Events returns the consistent events in chronological order.
func (t *Timeline) Events() []model.Event {
	out := make([]model.Event, len(t.events))
	copy(out, t.events)
	return out
}

// Event looks up a consistent event by id.
func (t *Timeline) Event(id string) (model.Event, bool) {
	i, ok := t.eventIdx[id]
	if !ok {
		return model.Event{}, false
	}
	return t.events[i], true
}

// Excluded reports whether the event was flagged inconsistent.
func (t *Timeline) Excluded(eventID string) bool { return t.excluded[eventID] }

// ExcludedEvents lists the flagged event ids, sorted.
func (t *Timeline) ExcludedEvents() []string {
	out := make([]string, 0, len(t.excluded))
	for id := range t.excluded {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

// Report returns the errors found while building.
func (t *Timeline) Report() *model.Report {
	r := &model.Report{}
	r.Merge(&t.report)
	return r
}

// String is a compact description for logs.
func (t *Timeline) String() string {
	return fmt.Sprintf("timeline{matches=%d players=%d events=%d excluded=%d}",
		len(t.ordered), len(t.players), len(t.events), len(t.excluded))
}
