package storage

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/pable/fgc-elo/internal/feed"
	"github.com/pable/fgc-elo/internal/model"
	"github.com/pable/fgc-elo/internal/timeline"
)

func openMemDB(t *testing.T) *DB {
	t.Helper()
	db, err := Open(":memory:")
	if err != nil {
		t.Fatalf("open in-memory db: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func day(s string) time.Time {
	t, err := time.Parse(model.DateLayout, s)
	if err != nil {
		panic(err)
	}
	return t
}

func sampleMatches() []model.Match {
	return []model.Match{
		{Source: model.SourceAPI, EventID: "E1", EventDate: day("2024-01-10"), Tier: "1", RoundLabel: "Winners Round 1", Index: 1,
			PlayerA: "P1", PlayerB: "P2", Outcome: model.OutcomeWin, Winner: "P1"},
		{Source: model.SourceAPI, EventID: "E1", EventDate: day("2024-01-10"), Tier: "1", RoundLabel: "Grand Final", Index: 2,
			PlayerA: "P1", PlayerB: "P3", Outcome: model.OutcomeDraw},
		{Source: model.SourceWiki, EventID: "E2", EventDate: day("2024-02-01"), Tier: "2", Index: 1,
			PlayerA: "P2", PlayerB: "P3", Outcome: model.OutcomeNoContest},
	}
}

func TestMatchesRoundTrip(t *testing.T) {
	db := openMemDB(t)

	in := sampleMatches()
	if err := db.InsertMatches(in); err != nil {
		t.Fatalf("InsertMatches: %v", err)
	}
	out, err := db.LoadMatches()
	if err != nil {
		t.Fatalf("LoadMatches: %v", err)
	}
	if len(out) != len(in) {
		t.Fatalf("expected %d matches, got %d", len(in), len(out))
	}
	for i := range in {
		if out[i] != in[i] {
			t.Errorf("match %d: got %+v, want %+v", i, out[i], in[i])
		}
	}
}

func TestInsertIdempotency(t *testing.T) {
	db := openMemDB(t)

	for i := 0; i < 2; i++ {
		if err := db.InsertMatches(sampleMatches()); err != nil {
			t.Fatalf("InsertMatches pass %d: %v", i, err)
		}
	}
	out, _ := db.LoadMatches()
	if len(out) != 3 {
		t.Errorf("expected 3 matches after double insert, got %d", len(out))
	}
}

func TestRosterAndEvents(t *testing.T) {
	db := openMemDB(t)

	if err := db.InsertMatches(sampleMatches()); err != nil {
		t.Fatalf("InsertMatches: %v", err)
	}
	roster := []model.RosterEntry{
		{EventID: "E1", EventDate: day("2024-01-10"), Tier: "1", PlayerID: "P1", FinalPlacement: 1},
		{EventID: "E1", EventDate: day("2024-01-10"), Tier: "1", PlayerID: "P2", FinalPlacement: 3},
		{EventID: "E3", EventDate: day("2024-03-01"), Tier: "1", PlayerID: "P9"},
	}
	if err := db.InsertRoster(roster); err != nil {
		t.Fatalf("InsertRoster: %v", err)
	}

	got, err := db.LoadRoster()
	if err != nil {
		t.Fatalf("LoadRoster: %v", err)
	}
	if len(got) != 3 || got[0] != roster[0] {
		t.Errorf("unexpected roster: %+v", got)
	}

	events, err := db.ListEvents()
	if err != nil {
		t.Fatalf("ListEvents: %v", err)
	}
	if len(events) != 3 {
		t.Fatalf("expected 3 events, got %d", len(events))
	}
	// Newest first: E3 is roster-only.
	if events[0].EventID != "E3" || events[0].Matches != 0 || events[0].Entrants != 1 {
		t.Errorf("unexpected first event: %+v", events[0])
	}
	if events[2].EventID != "E1" || events[2].Matches != 2 || events[2].Entrants != 2 {
		t.Errorf("unexpected E1 row: %+v", events[2])
	}

	n, err := db.DeleteEvent("E1")
	if err != nil {
		t.Fatalf("DeleteEvent: %v", err)
	}
	if n != 4 {
		t.Errorf("expected 4 rows deleted, got %d", n)
	}
}

func sampleRun() Run {
	return Run{
		Summary: model.RunSummary{MatchesApplied: 2, MatchesSkipped: 1, ConfigJSON: `{"default_k":16}`},
		Snapshots: []model.RatingSnapshot{
			{PlayerID: "P1", EventID: "E1", EventDate: day("2024-01-10"), Tier: "1", RatingBeforeEvent: 1500, IsProvisional: true, FinalPlacement: 1, Entrants: 2},
			{PlayerID: "P2", EventID: "E1", EventDate: day("2024-01-10"), Tier: "1", RatingBeforeEvent: 1500, IsProvisional: true, FinalPlacement: 2, Entrants: 2},
			{PlayerID: "P1", EventID: "E2", EventDate: day("2024-02-01"), Tier: "2", RatingBeforeEvent: 1516, MatchesPlayedToDate: 1, EventsEnteredToDate: 1, IsProvisional: true},
		},
		History: []model.HistoryEntry{
			{Seq: 0, EventID: "E1", EventDate: day("2024-01-10"), PlayerID: "P1", OpponentID: "P2", Result: "W", RatingBefore: 1500, RatingAfter: 1516, K: 32, MatchesPlayed: 1, Provisional: true},
			{Seq: 0, EventID: "E1", EventDate: day("2024-01-10"), PlayerID: "P2", OpponentID: "P1", Result: "L", RatingBefore: 1500, RatingAfter: 1484, K: 32, MatchesPlayed: 1, Provisional: true},
		},
		Ratings: []model.PlayerRating{
			{PlayerID: "P1", Rating: 1516, MatchesPlayed: 1, Provisional: true},
			{PlayerID: "P2", Rating: 1484, MatchesPlayed: 1, Provisional: true},
			{PlayerID: "P3", Rating: 1600, MatchesPlayed: 20},
		},
		Issues: []model.Issue{
			{Kind: model.IssueUnknownPlayer, EventID: "E1", PlayerID: "P9", Detail: "roster of event E1 references player P9 absent from all match data"},
		},
	}
}

func TestSaveRunRoundTrip(t *testing.T) {
	db := openMemDB(t)

	runID, err := db.SaveRun(sampleRun())
	if err != nil {
		t.Fatalf("SaveRun: %v", err)
	}
	if len(runID) != 36 {
		t.Errorf("expected a UUID run id, got %q", runID)
	}

	latest, err := db.GetRun("")
	if err != nil || latest == nil {
		t.Fatalf("GetRun latest: %v %v", latest, err)
	}
	if latest.RunID != runID || latest.Snapshots != 3 || latest.Issues != 1 || latest.MatchesApplied != 2 {
		t.Errorf("unexpected run summary: %+v", latest)
	}
	byPrefix, _ := db.GetRun(runID[:8])
	if byPrefix == nil || byPrefix.RunID != runID {
		t.Errorf("prefix lookup failed: %+v", byPrefix)
	}
	if missing, _ := db.GetRun("zzzz"); missing != nil {
		t.Errorf("expected nil for unknown prefix, got %+v", missing)
	}

	snaps, err := db.GetSnapshots(runID, SnapshotFilter{})
	if err != nil {
		t.Fatalf("GetSnapshots: %v", err)
	}
	want := sampleRun().Snapshots
	if len(snaps) != len(want) {
		t.Fatalf("expected %d snapshots, got %d", len(want), len(snaps))
	}
	for i := range want {
		if snaps[i] != want[i] {
			t.Errorf("snapshot %d: got %+v, want %+v", i, snaps[i], want[i])
		}
	}

	p1, _ := db.GetSnapshots(runID, SnapshotFilter{PlayerIDs: []string{"P1"}})
	if len(p1) != 2 {
		t.Errorf("expected 2 P1 snapshots, got %d", len(p1))
	}
	e1, _ := db.GetSnapshots(runID, SnapshotFilter{EventIDs: []string{"E1"}, Tier: "1"})
	if len(e1) != 2 {
		t.Errorf("expected 2 E1 snapshots, got %d", len(e1))
	}

	hist, err := db.GetPlayerHistory(runID, "P2")
	if err != nil {
		t.Fatalf("GetPlayerHistory: %v", err)
	}
	if len(hist) != 1 || hist[0].Result != "L" || hist[0].Delta() != -16 {
		t.Errorf("unexpected history: %+v", hist)
	}

	issues, _ := db.GetIssues(runID)
	if len(issues) != 1 || issues[0].Kind != model.IssueUnknownPlayer || issues[0].PlayerID != "P9" {
		t.Errorf("unexpected issues: %+v", issues)
	}
}

func TestGetRatings(t *testing.T) {
	db := openMemDB(t)
	runID, err := db.SaveRun(sampleRun())
	if err != nil {
		t.Fatalf("SaveRun: %v", err)
	}

	all, err := db.GetRatings(runID, 0, false)
	if err != nil {
		t.Fatalf("GetRatings: %v", err)
	}
	if len(all) != 3 || all[0].PlayerID != "P3" {
		t.Errorf("expected P3 first of 3, got %+v", all)
	}
	top, _ := db.GetRatings(runID, 2, false)
	if len(top) != 2 {
		t.Errorf("expected limit 2, got %d", len(top))
	}
	est, _ := db.GetRatings(runID, 0, true)
	if len(est) != 1 || est[0].Provisional {
		t.Errorf("expected only established P3, got %+v", est)
	}
}

func TestParticipationAndDeleteRun(t *testing.T) {
	db := openMemDB(t)
	runID, err := db.SaveRun(sampleRun())
	if err != nil {
		t.Fatalf("SaveRun: %v", err)
	}

	parts, err := db.GetParticipation(runID)
	if err != nil {
		t.Fatalf("GetParticipation: %v", err)
	}
	if len(parts) != 2 {
		t.Fatalf("expected 2 tiers, got %d", len(parts))
	}
	if parts[0].Tier != "1" || parts[0].Events != 1 || parts[0].Entrants != 2 || parts[0].Players != 2 {
		t.Errorf("unexpected tier 1 participation: %+v", parts[0])
	}

	if err := db.DeleteRun(runID); err != nil {
		t.Fatalf("DeleteRun: %v", err)
	}
	snaps, _ := db.GetSnapshots(runID, SnapshotFilter{})
	if len(snaps) != 0 {
		t.Errorf("expected cascade delete of snapshots, got %d", len(snaps))
	}
	if err := db.DeleteRun(runID); err == nil {
		t.Error("expected error deleting a missing run")
	}
}

func TestQueryRawAndOverview(t *testing.T) {
	db := openMemDB(t)
	if err := db.InsertMatches(sampleMatches()); err != nil {
		t.Fatalf("InsertMatches: %v", err)
	}

	cols, rows, err := db.QueryRaw("SELECT event_id, COUNT(1) AS n, NULL AS x FROM matches GROUP BY event_id ORDER BY event_id")
	if err != nil {
		t.Fatalf("QueryRaw: %v", err)
	}
	if len(cols) != 3 || cols[1] != "n" {
		t.Errorf("unexpected columns: %v", cols)
	}
	if len(rows) != 2 || rows[0][0] != "E1" || rows[0][1] != "2" || rows[0][2] != "NULL" {
		t.Errorf("unexpected rows: %v", rows)
	}

	o, err := db.GetOverview()
	if err != nil {
		t.Fatalf("GetOverview: %v", err)
	}
	if o.Matches != 3 || o.Events != 2 || o.Players != 3 || o.FirstDay != "2024-01-10" || o.LastDay != "2024-02-01" {
		t.Errorf("unexpected overview: %+v", o)
	}

	if placeholders(3) != "?,?,?" || placeholders(0) != "" {
		t.Errorf("placeholders: got %q / %q", placeholders(3), placeholders(0))
	}
}

// ---- Feed files through the store ----

const matchHeader = "source,event_id,event_date,tier,round_label,player_a_id,player_b_id,winner_id\n"

func writeFeed(t *testing.T, dir, name, body string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return path
}

func orderedRefs(tl *timeline.Timeline) []string {
	var out []string
	for m := range tl.Matches() {
		out = append(out, m.Feed+"|"+m.Ref())
	}
	return out
}

func TestSameSourceFilesKeepAllMatches(t *testing.T) {
	dir := t.TempDir()
	first := writeFeed(t, dir, "startgg-part1.csv", matchHeader+"startgg,E1,2024-01-10,1,Winners Round 1,P1,P2,P1\n")
	second := writeFeed(t, dir, "startgg-part2.csv", matchHeader+"startgg,E1,2024-01-10,1,Winners Round 1,P3,P4,P4\n")

	b, err := feed.Load(context.Background(), feed.Paths{MatchFiles: []string{first, second}})
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	db := openMemDB(t)
	for i := 0; i < 2; i++ {
		if err := db.InsertMatches(b.Matches); err != nil {
			t.Fatalf("InsertMatches pass %d: %v", i, err)
		}
	}
	out, err := db.LoadMatches()
	if err != nil {
		t.Fatalf("LoadMatches: %v", err)
	}
	if len(out) != 2 {
		t.Fatalf("read 2 matches, stored %d", len(out))
	}
	if out[0].Feed == out[1].Feed || out[0].Index != out[1].Index {
		t.Errorf("rows should differ only by feed: %+v", out)
	}
}

func TestRosterSourceConflictSurvivesStore(t *testing.T) {
	db := openMemDB(t)
	api := model.RosterEntry{EventID: "E1", EventDate: day("2024-01-10"), Tier: "1", PlayerID: "P1", FinalPlacement: 1, Source: model.SourceAPI}
	wiki := api
	wiki.EventDate, wiki.Source = day("2024-01-11"), model.SourceWiki
	in := []model.RosterEntry{api, wiki}

	if err := db.InsertRoster(in); err != nil {
		t.Fatalf("InsertRoster: %v", err)
	}
	got, err := db.LoadRoster()
	if err != nil {
		t.Fatalf("LoadRoster: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected both sources' rows, got %+v", got)
	}

	mem := timeline.Build(nil, in).Report().Count(model.ErrInconsistentEvent)
	stored := timeline.Build(nil, got).Report().Count(model.ErrInconsistentEvent)
	if mem != 1 || stored != 1 {
		t.Errorf("inconsistent-event issues: in memory=%d, after store=%d", mem, stored)
	}

	events, err := db.ListEvents()
	if err != nil {
		t.Fatalf("ListEvents: %v", err)
	}
	if len(events) != 1 || events[0].Entrants != 1 || events[0].Dates != "2024-01-10,2024-01-11" && events[0].Dates != "2024-01-11,2024-01-10" {
		t.Errorf("events = %+v", events)
	}
}

func TestFeedFilesRoundTripThroughStore(t *testing.T) {
	dir := t.TempDir()
	paths := feed.Paths{
		MatchFiles: []string{
			writeFeed(t, dir, "api-jan.csv", matchHeader+
				"startgg,E1,2024-01-10,1,Winners Round 1,1001,1002,1001\n"+
				"startgg,E1,2024-01-10,1,Grand Final,1001,1003,1003\n"),
			writeFeed(t, dir, "api-feb.csv", matchHeader+
				"startgg,E2,2024-02-01,2,Winners Round 1,1002,1003,1002\n"+
				"startgg,E1,2024-01-10,1,Losers Round 1,1002,1004,1002\n"),
			writeFeed(t, dir, "wiki.csv", matchHeader+
				"liquipedia,E3,2024-03-01,1,Pools Round 1,Daigo,Tokido,Tokido\n"),
		},
		RosterFiles: []string{
			writeFeed(t, dir, "roster-api.csv", "event_id,event_date,tier,player_id,final_placement,source\n"+
				"E1,2024-01-10,1,1001,2,startgg\n"+
				"E2,2024-02-01,2,1002,1,startgg\n"),
			writeFeed(t, dir, "roster-wiki.csv", "event_id,event_date,tier,player_id,final_placement,source\n"+
				"E1,2024-01-10,1,Daigo,,liquipedia\n"+
				"E2,2024-02-01,1,Tokido,2,liquipedia\n"), // tier disagrees with the API
		},
		IdentityMap: writeFeed(t, dir, "ids.csv", "source,source_player_id,player_id\n"+
			"startgg,1001,daigo\nstartgg,1002,tokido\nliquipedia,Daigo,daigo\nliquipedia,Tokido,tokido\n"),
	}

	b, err := feed.Load(context.Background(), paths)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	db := openMemDB(t)
	if err := db.InsertMatches(b.Matches); err != nil {
		t.Fatalf("InsertMatches: %v", err)
	}
	if err := db.InsertRoster(b.Roster); err != nil {
		t.Fatalf("InsertRoster: %v", err)
	}
	matches, err := db.LoadMatches()
	if err != nil {
		t.Fatalf("LoadMatches: %v", err)
	}
	roster, err := db.LoadRoster()
	if err != nil {
		t.Fatalf("LoadRoster: %v", err)
	}
	if len(matches) != 5 || len(roster) != 4 {
		t.Fatalf("stored %d matches and %d roster rows, want 5 and 4", len(matches), len(roster))
	}

	mem := timeline.Build(b.Matches, b.Roster)
	stored := timeline.Build(matches, roster)
	if got, want := orderedRefs(stored), orderedRefs(mem); len(got) != 4 || !equalOrder(got, want) {
		t.Errorf("stored order %v, in-memory order %v", got, want)
	}
	if !stored.Excluded("E2") || stored.Report().Count(model.ErrInconsistentEvent) != 1 {
		t.Errorf("E2 tier conflict lost: %v", stored.Report().Err())
	}
	if stored.Report().Len() != mem.Report().Len() {
		t.Errorf("report sizes differ: stored %d, in memory %d", stored.Report().Len(), mem.Report().Len())
	}
	ev, ok := stored.Event("E1")
	if !ok || len(ev.Roster) != 1 || ev.Roster[0].PlayerID != "daigo" || ev.Roster[0].FinalPlacement != 2 {
		t.Errorf("E1 roster after store: %+v", ev)
	}
}

func equalOrder(a, b []string) bool {
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
