package model

import (
	"errors"
	"strings"
	"testing"
)

func TestParseSource(t *testing.T) {
	for in, want := range map[string]Source{"startgg": SourceAPI, " API ": SourceAPI, "Wiki": SourceWiki, "liquipedia": SourceWiki} {
		got, err := ParseSource(in)
		if err != nil || got != want {
			t.Errorf("ParseSource(%q) = %q, %v", in, got, err)
		}
	}
	if _, err := ParseSource("challonge"); err == nil {
		t.Error("expected error for unknown source")
	}
}

func TestMatchHelpers(t *testing.T) {
	m := Match{Source: SourceWiki, EventID: "E3", Index: 12, PlayerA: "a", PlayerB: "b"}
	if m.Ref() != "liquipedia/E3#12" {
		t.Errorf("Ref = %s", m.Ref())
	}
	if !m.Involves("b") || m.Involves("c") {
		t.Error("Involves mismatch")
	}
	if m.Opponent("a") != "b" || m.Opponent("c") != "" {
		t.Error("Opponent mismatch")
	}
}

func TestPlacementPct(t *testing.T) {
	cases := []struct {
		placement, entrants int
		want                float64
	}{
		{1, 8, 1},
		{8, 8, 0},
		{3, 5, 0.5},
		{0, 8, 0},
		{1, 1, 0},
		{9, 8, 0},
	}
	for _, c := range cases {
		s := RatingSnapshot{FinalPlacement: c.placement, Entrants: c.entrants}
		if got := s.PlacementPct(); got != c.want {
			t.Errorf("PlacementPct(%d/%d) = %v, want %v", c.placement, c.entrants, got, c.want)
		}
	}
}

func TestReportClassifiesIssues(t *testing.T) {
	var r Report
	if r.Err() != nil || r.Len() != 0 {
		t.Fatal("zero report should be clean")
	}
	r.Add(nil)
	r.Add(&MalformedMatchError{Match: Match{EventID: "E1", PlayerA: "a", PlayerB: "b"}, Reason: "winner not a participant"})
	r.Add(&InconsistentEventError{EventID: "E2", Field: "tier", Values: []string{"1", "2"}})

	var other Report
	other.Add(&UnknownPlayerReferenceError{EventID: "E3", PlayerID: "ghost"})
	other.Add(errors.New("disk on fire"))
	r.Merge(&other)
	r.Merge(nil)

	if r.Len() != 4 {
		t.Fatalf("Len = %d, want 4", r.Len())
	}
	if r.Count(ErrMalformedMatch) != 1 || r.Count(ErrUnknownPlayer) != 1 || r.Count(ErrInconsistentEvent) != 1 {
		t.Error("Count by kind mismatch")
	}
	if !errors.Is(r.Err(), ErrInconsistentEvent) {
		t.Error("joined error should match every kind")
	}

	issues := r.Issues()
	kinds := []IssueKind{IssueMalformedMatch, IssueInconsistentEvent, IssueUnknownPlayer, IssueOther}
	for i, want := range kinds {
		if issues[i].Kind != want {
			t.Errorf("issue %d kind = %s, want %s", i, issues[i].Kind, want)
		}
	}
	if issues[0].PlayerID != "a,b" || issues[2].PlayerID != "ghost" || issues[1].EventID != "E2" {
		t.Errorf("issue fields: %+v", issues)
	}
	if !strings.Contains(issues[1].Detail, "conflicting tier values: 1, 2") {
		t.Errorf("detail = %s", issues[1].Detail)
	}

	errs := r.Errors()
	errs[0] = nil
	if r.Errors()[0] == nil {
		t.Error("Errors should return a copy")
	}
}
