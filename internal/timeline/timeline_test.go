package timeline

import (
	"errors"
	"testing"
	"time"

	"github.com/pable/fgc-elo/internal/model"
)

func day(s string) time.Time {
	t, err := time.Parse(model.DateLayout, s)
	if err != nil {
		panic(err)
	}
	return t
}

// win builds a decided match at an event; index doubles as the feed row.
func win(src model.Source, event, date, round string, index int, a, b string) model.Match {
	return model.Match{
		Source: src, EventID: event, EventDate: day(date), Tier: "1", RoundLabel: round, Index: index,
		PlayerA: a, PlayerB: b, Outcome: model.OutcomeWin, Winner: a,
	}
}

func refs(tl *Timeline) []string {
	var out []string
	for m := range tl.Matches() {
		out = append(out, m.Ref())
	}
	return out
}

func equalStrings(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// ---- Round ordinals ----

func TestRoundOrdinalOrdering(t *testing.T) {
	// Each label must rank strictly before the next.
	labels := []string{
		"Pools Round 1",
		"Pools Round 2",
		"Winners Round 1",
		"Losers Round 1",
		"Winners Round 2",
		"Winners Quarter-Final",
		"Upper Bracket Semi-Final",
		"Lower Bracket Semi-Final",
		"Winners Final",
		"Losers Final",
		"Grand Final",
		"Grand Final Reset",
	}
	for i := 1; i < len(labels); i++ {
		a, b := RoundOrdinal(labels[i-1]), RoundOrdinal(labels[i])
		if a >= b {
			t.Errorf("%q (%d) should rank before %q (%d)", labels[i-1], a, labels[i], b)
		}
	}
}

func TestRoundOrdinalNormalisation(t *testing.T) {
	if RoundOrdinal("winners_round_3") != RoundOrdinal("Winners Round 3") {
		t.Error("underscores and case should not change the ordinal")
	}
	if RoundOrdinal("") != RoundOrdinal("something unknown") {
		t.Error("unrecognised labels should share the default bracket rank")
	}
	if RoundOrdinal("Winners Round 250") != RoundOrdinal("Winners Round 99") {
		t.Error("numbered rounds should be capped below named rounds")
	}
}

// ---- Global ordering ----

func TestBuildOrdersAcrossSourcesAndEvents(t *testing.T) {
	matches := []model.Match{
		win(model.SourceWiki, "E2", "2024-02-01", "Round 1", 1, "P1", "P3"),
		win(model.SourceAPI, "E1", "2024-01-10", "Grand Final", 3, "P1", "P2"),
		win(model.SourceAPI, "E1", "2024-01-10", "Winners Round 1", 2, "P2", "P3"),
		win(model.SourceAPI, "E1", "2024-01-10", "Winners Round 1", 1, "P1", "P4"),
		win(model.SourceWiki, "E0", "2024-01-10", "Winners Round 1", 1, "P5", "P6"),
	}
	tl := Build(matches, nil)

	want := []string{
		"liquipedia/E0#1", // same day and round as E1's first matches; event id breaks the tie
		"startgg/E1#1",
		"startgg/E1#2",
		"startgg/E1#3",
		"liquipedia/E2#1",
	}
	if got := refs(tl); !equalStrings(got, want) {
		t.Errorf("order = %v, want %v", got, want)
	}
	if tl.Report().Len() != 0 {
		t.Errorf("expected clean report, got %v", tl.Report().Err())
	}
}

func TestBuildIsDeterministicUnderInputPermutation(t *testing.T) {
	matches := []model.Match{
		win(model.SourceAPI, "E1", "2024-01-10", "Winners Round 1", 1, "P1", "P2"),
		win(model.SourceWiki, "E1", "2024-01-10", "Winners Round 1", 1, "P3", "P4"),
		win(model.SourceAPI, "E1", "2024-01-10", "Winners Round 1", 2, "P5", "P6"),
		win(model.SourceAPI, "E2", "2024-01-10", "Winners Round 1", 1, "P1", "P3"),
	}
	base := refs(Build(matches, nil))

	reversed := make([]model.Match, len(matches))
	for i, m := range matches {
		reversed[len(matches)-1-i] = m
	}
	if got := refs(Build(reversed, nil)); !equalStrings(got, base) {
		t.Errorf("reversed input gave %v, want %v", got, base)
	}
}

func TestMatchesIteratorIsRestartable(t *testing.T) {
	tl := Build([]model.Match{
		win(model.SourceAPI, "E1", "2024-01-10", "", 1, "P1", "P2"),
		win(model.SourceAPI, "E1", "2024-01-10", "", 2, "P1", "P3"),
	}, nil)

	first := refs(tl)
	second := refs(tl)
	if !equalStrings(first, second) || len(first) != 2 {
		t.Errorf("iterations differ: %v vs %v", first, second)
	}

	// Early break must not disturb later iterations.
	for range tl.Matches() {
		break
	}
	if got := refs(tl); !equalStrings(got, first) {
		t.Errorf("after early break got %v", got)
	}
}

// ---- Per-player view ----

func TestPlayerViewsAreOrderedCopies(t *testing.T) {
	tl := Build([]model.Match{
		win(model.SourceAPI, "E2", "2024-02-01", "", 1, "P1", "P3"),
		win(model.SourceAPI, "E1", "2024-01-10", "", 1, "P1", "P2"),
	}, nil)

	p1 := tl.Player("P1")
	if len(p1) != 2 || p1[0].EventID != "E1" || p1[1].EventID != "E2" {
		t.Fatalf("unexpected P1 view: %+v", p1)
	}
	p1[0].EventID = "mutated"
	if tl.Player("P1")[0].EventID != "E1" {
		t.Error("mutating a returned slice leaked into the timeline")
	}

	if got := tl.Player("nobody"); got == nil || len(got) != 0 {
		t.Errorf("unknown player should get an empty slice, got %v", got)
	}
	if tl.HasPlayer("nobody") || !tl.HasPlayer("P3") {
		t.Error("HasPlayer mismatch")
	}

	var ids []string
	for id, ms := range tl.Players() {
		ids = append(ids, id)
		if len(ms) == 0 {
			t.Errorf("player %s yielded no matches", id)
		}
	}
	if !equalStrings(ids, []string{"P1", "P2", "P3"}) {
		t.Errorf("players = %v", ids)
	}
}

// ---- Validation ----

func TestSelfReferentialMatchRejected(t *testing.T) {
	bad := win(model.SourceAPI, "E1", "2024-01-10", "", 1, "P1", "P1")
	good := win(model.SourceAPI, "E1", "2024-01-10", "", 2, "P1", "P2")
	tl := Build([]model.Match{bad, good}, nil)

	if tl.Len() != 1 {
		t.Fatalf("expected 1 ordered match, got %d", tl.Len())
	}
	r := tl.Report()
	if r.Count(model.ErrMalformedMatch) != 1 {
		t.Fatalf("expected one malformed match, got %v", r.Err())
	}
	var mm *model.MalformedMatchError
	if !errors.As(r.Errors()[0], &mm) || mm.Match.Index != 1 {
		t.Errorf("report should carry the offending record, got %v", r.Errors()[0])
	}
}

func TestIncompleteMatchesRejected(t *testing.T) {
	noDate := win(model.SourceAPI, "E1", "2024-01-10", "", 1, "P1", "P2")
	noDate.EventDate = time.Time{}
	noEvent := win(model.SourceAPI, "", "2024-01-10", "", 2, "P1", "P2")
	noPlayer := win(model.SourceAPI, "E1", "2024-01-10", "", 3, "P1", "")

	tl := Build([]model.Match{noDate, noEvent, noPlayer}, nil)
	if tl.Len() != 0 {
		t.Errorf("expected nothing ordered, got %d", tl.Len())
	}
	if n := tl.Report().Count(model.ErrMalformedMatch); n != 3 {
		t.Errorf("expected 3 malformed matches, got %d", n)
	}
}

func TestInconsistentEventExcluded(t *testing.T) {
	a := win(model.SourceAPI, "E1", "2024-01-10", "", 1, "P1", "P2")
	b := win(model.SourceWiki, "E1", "2024-01-11", "", 1, "P1", "P3")
	c := win(model.SourceAPI, "E2", "2024-01-12", "", 1, "P2", "P3")
	roster := []model.RosterEntry{
		{EventID: "E1", EventDate: day("2024-01-10"), Tier: "1", PlayerID: "P1"},
		{EventID: "E2", EventDate: day("2024-01-12"), Tier: "1", PlayerID: "P2"},
	}
	tl := Build([]model.Match{a, b, c}, roster)

	if !tl.Excluded("E1") || tl.Excluded("E2") {
		t.Errorf("excluded = %v", tl.ExcludedEvents())
	}
	if got := refs(tl); !equalStrings(got, []string{"startgg/E2#1"}) {
		t.Errorf("order = %v", got)
	}
	if _, ok := tl.Event("E1"); ok {
		t.Error("excluded event should not be listed")
	}
	var ie *model.InconsistentEventError
	errs := tl.Report().Errors()
	if len(errs) != 1 || !errors.As(errs[0], &ie) || ie.Field != "date" {
		t.Fatalf("expected one date conflict, got %v", errs)
	}
	if !equalStrings(ie.Values, []string{"2024-01-10", "2024-01-11"}) {
		t.Errorf("conflict values = %v", ie.Values)
	}
}

func TestRosterTierConflictExcludesEvent(t *testing.T) {
	m := win(model.SourceAPI, "E1", "2024-01-10", "", 1, "P1", "P2")
	roster := []model.RosterEntry{
		{EventID: "E1", EventDate: day("2024-01-10"), Tier: "2", PlayerID: "P1"},
	}
	tl := Build([]model.Match{m}, roster)
	if !tl.Excluded("E1") {
		t.Fatal("roster disagreeing on tier should exclude the event")
	}
	if tl.Report().Count(model.ErrInconsistentEvent) != 1 {
		t.Errorf("report = %v", tl.Report().Err())
	}
}

func TestCanonicalEventDateApplied(t *testing.T) {
	// Both sources report E1; it is consolidated into one event.
	m1 := win(model.SourceAPI, "E1", "2024-01-10", "", 1, "P1", "P2")
	m2 := win(model.SourceWiki, "E1", "2024-01-10", "", 1, "P1", "P3")
	tl := Build([]model.Match{m1, m2}, nil)
	ev, ok := tl.Event("E1")
	if !ok {
		t.Fatal("event missing")
	}
	if len(ev.Sources) != 2 || ev.Matches != 2 {
		t.Errorf("unexpected event %+v", ev)
	}
}

// ---- Events ----

func TestEventsIncludeRosterOnlyAndSortedRoster(t *testing.T) {
	m := win(model.SourceAPI, "E1", "2024-01-10", "", 1, "P1", "P2")
	roster := []model.RosterEntry{
		{EventID: "E1", PlayerID: "P2", FinalPlacement: 2},
		{EventID: "E1", PlayerID: "P1", FinalPlacement: 1},
		{EventID: "E0", EventDate: day("2023-12-01"), PlayerID: "X"},
		{EventID: "E9", PlayerID: "Y"}, // no date anywhere
	}
	tl := Build([]model.Match{m}, roster)

	evs := tl.Events()
	if len(evs) != 2 || evs[0].ID != "E0" || evs[1].ID != "E1" {
		t.Fatalf("events = %+v", evs)
	}
	if evs[0].Matches != 0 {
		t.Errorf("roster-only event should have no matches")
	}
	e1 := evs[1]
	if e1.Roster[0].PlayerID != "P1" || e1.Placement("P2") != 2 || e1.Placement("P9") != 0 {
		t.Errorf("unexpected E1 roster %+v", e1.Roster)
	}
	if !tl.Excluded("E9") {
		t.Error("dateless roster-only event should be excluded")
	}
}

func TestEmptyInput(t *testing.T) {
	tl := Build(nil, nil)
	if tl.Len() != 0 || len(tl.Events()) != 0 || tl.Report().Len() != 0 {
		t.Errorf("unexpected %s", tl)
	}
	for range tl.Players() {
		t.Error("no players expected")
	}
}

func TestSameSourceFilesOrderedByFeed(t *testing.T) {
	a := win(model.SourceWiki, "E1", "2024-01-10", "Pools", 1, "P1", "P2")
	a.Feed = "/data/wiki-b.csv"
	b := win(model.SourceWiki, "E1", "2024-01-10", "Pools", 1, "P3", "P4")
	b.Feed = "/data/wiki-a.csv"

	for _, in := range [][]model.Match{{a, b}, {b, a}} {
		tl := Build(in, nil)
		if tl.Len() != 2 {
			t.Fatalf("rows sharing source, event and index must both survive, got %d", tl.Len())
		}
		var feeds []string
		for m := range tl.Matches() {
			feeds = append(feeds, m.Feed)
		}
		if !equalStrings(feeds, []string{"/data/wiki-a.csv", "/data/wiki-b.csv"}) {
			t.Errorf("feeds = %v", feeds)
		}
	}
}

func TestRosterRowsFromBothSourcesMerge(t *testing.T) {
	m := win(model.SourceAPI, "E1", "2024-01-10", "", 1, "P1", "P2")
	api := model.RosterEntry{EventID: "E1", EventDate: day("2024-01-10"), Tier: "1", PlayerID: "P1", Source: model.SourceAPI}
	wiki := api
	wiki.Source, wiki.FinalPlacement = model.SourceWiki, 3

	for _, roster := range [][]model.RosterEntry{{api, wiki}, {wiki, api}} {
		tl := Build([]model.Match{m}, roster)
		ev, ok := tl.Event("E1")
		if !ok {
			t.Fatal("event missing")
		}
		if len(ev.Roster) != 1 || ev.Roster[0].FinalPlacement != 3 || ev.Roster[0].Source != model.SourceWiki {
			t.Errorf("merged roster = %+v", ev.Roster)
		}
	}
}

func TestRosterSourcesDisagreeingOnDate(t *testing.T) {
	api := model.RosterEntry{EventID: "E1", EventDate: day("2024-01-10"), Tier: "1", PlayerID: "P1", Source: model.SourceAPI}
	wiki := api
	wiki.Source, wiki.EventDate = model.SourceWiki, day("2024-01-11")

	tl := Build(nil, []model.RosterEntry{api, wiki})
	if !tl.Excluded("E1") || tl.Report().Count(model.ErrInconsistentEvent) != 1 {
		t.Errorf("conflict not surfaced: %v", tl.Report().Err())
	}
}

func TestNamedCoversRejectedAndExcludedMatches(t *testing.T) {
	self := win(model.SourceAPI, "E1", "2024-01-10", "", 1, "P9", "P9")
	x := win(model.SourceAPI, "E2", "2024-01-10", "", 1, "P1", "P2")
	y := win(model.SourceWiki, "E2", "2024-01-12", "", 1, "P1", "P3")
	tl := Build([]model.Match{self, x, y}, nil)

	for _, id := range []string{"P1", "P2", "P3", "P9"} {
		if !tl.Named(id) {
			t.Errorf("%s should be named", id)
		}
		if tl.HasPlayer(id) {
			t.Errorf("%s has no ordered match", id)
		}
	}
	if tl.Named("P7") {
		t.Error("P7 never appears")
	}
}
