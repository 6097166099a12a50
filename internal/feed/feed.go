// Package feed reads and writes the tabular interface between the collection
// scripts and the rating engine: the match feed, the event-roster feed, the
// identity and event lookup tables, and the snapshot export.
package feed

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/pable/fgc-elo/internal/model"
)

// Column names of the match feed.
var MatchColumns = []string{
	"source", "event_id", "event_date", "tier", "round_label",
	"player_a_id", "player_b_id", "winner_id",
}

// Column names of the roster feed. final_placement may be empty.
var RosterColumns = []string{"event_id", "event_date", "tier", "player_id", "final_placement"}

// header maps column names to positions and checks that required ones exist.
type header map[string]int

func readHeader(r *csv.Reader, required []string) (header, error) {
	row, err := r.Read()
	if err == io.EOF {
		return nil, errors.New("empty feed: missing header row")
	}
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}
	h := make(header, len(row))
	for i, name := range row {
		h[strings.ToLower(strings.TrimSpace(strings.TrimPrefix(name, "\ufeff")))] = i
	}
	var missing []string
	for _, col := range required {
		if _, ok := h[col]; !ok {
			missing = append(missing, col)
		}
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("missing columns: %s", strings.Join(missing, ", "))
	}
	return h, nil
}

// get returns the trimmed value of col, or "" if the column is absent.
func (h header) get(row []string, col string) string {
	i, ok := h[col]
	if !ok || i >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[i])
}

func newReader(r io.Reader) *csv.Reader {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.ReuseRecord = false
	return cr
}

// ReadMatches parses a match feed. Index is the 1-based data row number and
// serves as the stable tie-break for matches of the same round.
func ReadMatches(r io.Reader) ([]model.Match, error) {
	cr := newReader(r)
	h, err := readHeader(cr, MatchColumns)
	if err != nil {
		return nil, err
	}

	var out []model.Match
	for line := 1; ; line++ {
		row, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", line, err)
		}
		m, err := parseMatch(h, row)
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", line, err)
		}
		m.Index = line
		out = append(out, m)
	}
	return out, nil
}

func parseMatch(h header, row []string) (model.Match, error) {
	src, err := model.ParseSource(h.get(row, "source"))
	if err != nil {
		return model.Match{}, err
	}
	date, err := ParseDate(h.get(row, "event_date"))
	if err != nil {
		return model.Match{}, fmt.Errorf("event_date: %w", err)
	}
	m := model.Match{
		Source:     src,
		EventID:    h.get(row, "event_id"),
		EventDate:  date,
		Tier:       model.Tier(h.get(row, "tier")),
		RoundLabel: h.get(row, "round_label"),
		PlayerA:    h.get(row, "player_a_id"),
		PlayerB:    h.get(row, "player_b_id"),
	}
	m.Outcome, m.Winner = ParseWinner(h.get(row, "winner_id"))
	return m, nil
}

// ParseWinner maps the winner_id cell to an outcome. Empty cells and the
// usual no-result markers are no-contests; "draw" is a draw; anything else
// names the winner.
func ParseWinner(s string) (model.Outcome, string) {
	switch strings.ToLower(s) {
	case "", "nc", "no-contest", "no_contest", "none", "null", "nan", "dq":
		return model.OutcomeNoContest, ""
	case "draw", "tie":
		return model.OutcomeDraw, ""
	default:
		return model.OutcomeWin, s
	}
}

// FormatWinner is the inverse of ParseWinner.
func FormatWinner(o model.Outcome, winner string) string {
	switch o {
	case model.OutcomeWin:
		return winner
	case model.OutcomeDraw:
		return "draw"
	default:
		return ""
	}
}

// dateLayouts are tried in order. The second and third cover what the
// platform export writes after converting its unix start times.
var dateLayouts = []string{
	model.DateLayout,
	time.RFC3339,
	"2006-01-02 15:04:05-07:00",
	"2006-01-02 15:04:05",
	"01/02/2006",
}

// ParseDate accepts calendar dates, timestamps and unix seconds, and returns
// the UTC calendar day.
func ParseDate(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, errors.New("empty date")
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return day(t), nil
		}
	}
	if secs, err := strconv.ParseInt(s, 10, 64); err == nil {
		return day(time.Unix(secs, 0)), nil
	}
	return time.Time{}, fmt.Errorf("unrecognised date %q", s)
}

func day(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// ReadRoster parses a roster feed. An optional "source" column is kept for
// identity resolution and for telling the sources' rows apart in storage.
func ReadRoster(r io.Reader) ([]model.RosterEntry, error) {
	cr := newReader(r)
	h, err := readHeader(cr, []string{"event_id", "player_id"})
	if err != nil {
		return nil, err
	}

	var out []model.RosterEntry
	for line := 1; ; line++ {
		row, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", line, err)
		}
		var rr model.RosterEntry
		rr.EventID = h.get(row, "event_id")
		rr.PlayerID = h.get(row, "player_id")
		rr.Tier = model.Tier(h.get(row, "tier"))
		if s := h.get(row, "event_date"); s != "" {
			if rr.EventDate, err = ParseDate(s); err != nil {
				return nil, fmt.Errorf("row %d: event_date: %w", line, err)
			}
		}
		if s := h.get(row, "final_placement"); s != "" && !isNull(s) {
			f, err := strconv.ParseFloat(s, 64)
			if err != nil || f < 1 {
				return nil, fmt.Errorf("row %d: bad final_placement %q", line, s)
			}
			rr.FinalPlacement = int(f)
		}
		if s := h.get(row, "source"); s != "" {
			if rr.Source, err = model.ParseSource(s); err != nil {
				return nil, fmt.Errorf("row %d: %w", line, err)
			}
		}
		out = append(out, rr)
	}
	return out, nil
}

func isNull(s string) bool {
	switch strings.ToLower(s) {
	case "null", "nan", "none", "-":
		return true
	}
	return false
}
