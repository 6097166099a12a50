package report

import (
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/fatih/color"
	"github.com/olekukonko/tablewriter"
	"github.com/olekukonko/tablewriter/tw"

	"github.com/pable/fgc-elo/internal/model"
)

func newTable(w io.Writer) *tablewriter.Table {
	return tablewriter.NewTable(w, tablewriter.WithConfig(tablewriter.Config{
		Row: tw.CellConfig{
			Alignment: tw.CellAlignment{Global: tw.AlignRight},
		},
		Header: tw.CellConfig{
			Alignment: tw.CellAlignment{Global: tw.AlignCenter},
		},
	}))
}

// PrintRunSummary prints a one-line header for a stored pass.
func PrintRunSummary(w io.Writer, s model.RunSummary) {
	fmt.Fprintf(w, "\nRun: %s  |  %s  |  applied %d  |  skipped %d  |  snapshots %d  |  issues %d\n\n",
		shortID(s.RunID), s.CreatedAt.Local().Format(time.DateTime),
		s.MatchesApplied, s.MatchesSkipped, s.Snapshots, s.Issues)
}

// PrintRunTable lists stored passes, newest first.
func PrintRunTable(w io.Writer, runs []model.RunSummary) {
	table := newTable(w)
	table.Header("RUN", "CREATED", "APPLIED", "SKIPPED", "SNAPSHOTS", "ISSUES")
	for _, r := range runs {
		table.Append(
			shortID(r.RunID),
			r.CreatedAt.Local().Format(time.DateTime),
			strconv.Itoa(r.MatchesApplied),
			strconv.Itoa(r.MatchesSkipped),
			strconv.Itoa(r.Snapshots),
			strconv.Itoa(r.Issues),
		)
	}
	table.Render()
}

// PrintSnapshotTable prints pre-event snapshots. When focus is set, that
// player's rows are marked with ">".
func PrintSnapshotTable(w io.Writer, snaps []model.RatingSnapshot, focus string) {
	table := newTable(w)
	table.Header(" ", "EVENT", "DATE", "TIER", "PLAYER", "RATING", "MATCHES", "EVENTS", "PROV", "PLACE", "PCT")
	for _, s := range snaps {
		marker := " "
		if focus != "" && s.PlayerID == focus {
			marker = ">"
		}
		place, pct := "-", "-"
		if s.FinalPlacement > 0 {
			place = fmt.Sprintf("%d/%d", s.FinalPlacement, s.Entrants)
			pct = fmt.Sprintf("%.0f%%", 100*s.PlacementPct())
		}
		table.Append(
			marker,
			s.EventID,
			s.EventDate.Format(model.DateLayout),
			tierStr(s.Tier),
			s.PlayerID,
			fmt.Sprintf("%.1f", s.RatingBeforeEvent),
			strconv.Itoa(s.MatchesPlayedToDate),
			strconv.Itoa(s.EventsEnteredToDate),
			provStr(s.IsProvisional),
			place,
			pct,
		)
	}
	table.Render()
}

// PrintHistoryTable prints a player's match-by-match rating trajectory.
func PrintHistoryTable(w io.Writer, hist []model.HistoryEntry) {
	table := newTable(w)
	table.Header("#", "DATE", "EVENT", "OPPONENT", "RES", "BEFORE", "DELTA", "AFTER", "K", "PROV")
	for _, h := range hist {
		table.Append(
			strconv.Itoa(h.Seq),
			h.EventDate.Format(model.DateLayout),
			h.EventID,
			h.OpponentID,
			h.Result,
			fmt.Sprintf("%.1f", h.RatingBefore),
			fmt.Sprintf("%+.1f", h.Delta()),
			fmt.Sprintf("%.1f", h.RatingAfter),
			fmt.Sprintf("%g", h.K),
			provStr(h.Provisional),
		)
	}
	table.Render()
}

// PrintTrajectorySummary prints peak, low and net change of a history.
func PrintTrajectorySummary(w io.Writer, hist []model.HistoryEntry) {
	if len(hist) == 0 {
		return
	}
	peak, low := hist[0].RatingBefore, hist[0].RatingBefore
	var wins, losses, draws int
	for _, h := range hist {
		peak = max(peak, h.RatingAfter)
		low = min(low, h.RatingAfter)
		switch h.Result {
		case "W":
			wins++
		case "L":
			losses++
		case "D":
			draws++
		}
	}
	last := hist[len(hist)-1]
	fmt.Fprintf(w, "\nRecord %d-%d-%d  |  current %.1f  |  peak %.1f  |  low %.1f  |  net %+.1f\n",
		wins, losses, draws, last.RatingAfter, peak, low, last.RatingAfter-hist[0].RatingBefore)
}

// PrintRatingsTable prints final ratings with their rank.
func PrintRatingsTable(w io.Writer, ratings []model.PlayerRating) {
	table := newTable(w)
	table.Header("RANK", "PLAYER", "RATING", "MATCHES", "PROV")
	for i, r := range ratings {
		table.Append(
			strconv.Itoa(i+1),
			r.PlayerID,
			fmt.Sprintf("%.1f", r.Rating),
			strconv.Itoa(r.MatchesPlayed),
			provStr(r.Provisional),
		)
	}
	table.Render()
}

// PrintParticipationTable prints event and entrant counts per tier.
func PrintParticipationTable(w io.Writer, parts []model.TierParticipation) {
	table := newTable(w)
	table.Header("TIER", "EVENTS", "ENTRANTS", "PLAYERS", "AVG FIELD")
	var events, entrants int
	for _, p := range parts {
		avg := "-"
		if p.Events > 0 {
			avg = fmt.Sprintf("%.1f", float64(p.Entrants)/float64(p.Events))
		}
		table.Append(tierStr(p.Tier), strconv.Itoa(p.Events), strconv.Itoa(p.Entrants), strconv.Itoa(p.Players), avg)
		events += p.Events
		entrants += p.Entrants
	}
	table.Append("TOTAL", strconv.Itoa(events), strconv.Itoa(entrants), "", "")
	table.Render()
}

// PrintRawTable prints string rows under the given column names.
func PrintRawTable(w io.Writer, cols []string, rows [][]string) {
	table := newTable(w)
	header := make([]any, len(cols))
	for i, c := range cols {
		header[i] = c
	}
	table.Header(header...)
	for _, row := range rows {
		cells := make([]any, len(cols))
		for i := range cells {
			cells[i] = ""
			if i < len(row) {
				cells[i] = row[i]
			}
		}
		table.Append(cells...)
	}
	table.Render()
}

// PrintIssues prints up to limit issues (all when limit <= 0), colored by
// kind, followed by per-kind counts.
func PrintIssues(w io.Writer, issues []model.Issue, limit int) {
	if len(issues) == 0 {
		color.New(color.FgGreen).Fprintln(w, "No data issues.")
		return
	}
	counts := make(map[model.IssueKind]int)
	for i, is := range issues {
		counts[is.Kind]++
		if limit > 0 && i >= limit {
			continue
		}
		kindColor(is.Kind).Fprintf(w, "%-19s", is.Kind)
		fmt.Fprintf(w, " %s\n", is.Detail)
	}
	if limit > 0 && len(issues) > limit {
		fmt.Fprintf(w, "... %d more\n", len(issues)-limit)
	}
	fmt.Fprintln(w)
	for _, k := range []model.IssueKind{model.IssueMalformedMatch, model.IssueInconsistentEvent, model.IssueUnknownPlayer, model.IssueOther} {
		if counts[k] > 0 {
			kindColor(k).Fprintf(w, "%s", k)
			fmt.Fprintf(w, ": %d\n", counts[k])
		}
	}
}

func kindColor(k model.IssueKind) *color.Color {
	switch k {
	case model.IssueMalformedMatch:
		return color.New(color.FgRed, color.Bold)
	case model.IssueInconsistentEvent:
		return color.New(color.FgYellow, color.Bold)
	case model.IssueUnknownPlayer:
		return color.New(color.FgCyan)
	default:
		return color.New(color.FgWhite)
	}
}

func provStr(p bool) string {
	if p {
		return "yes"
	}
	return ""
}

func tierStr(t model.Tier) string {
	if t == "" {
		return "-"
	}
	return string(t)
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
