package storage

import (
	"fmt"
	"time"

	"github.com/pable/fgc-elo/internal/model"
)

// InsertMatches bulk-inserts canonical matches in a transaction.
// Rows are keyed by (feed, source, event, row index), so reloading a file is
// idempotent while different files never replace each other's rows.
func (db *DB) InsertMatches(matches []model.Match) error {
	tx, err := db.conn.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(`
		INSERT OR REPLACE INTO matches(
			feed, source, event_id, row_index, event_date, tier, round_label,
			player_a_id, player_b_id, winner_id, outcome
		) VALUES (?,?,?,?,?,?,?,?,?,?,?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, m := range matches {
		_, err = stmt.Exec(
			m.Feed, string(m.Source), m.EventID, m.Index, formatDate(m.EventDate), string(m.Tier), m.RoundLabel,
			m.PlayerA, m.PlayerB, m.Winner, m.Outcome.String(),
		)
		if err != nil {
			return fmt.Errorf("insert match %s: %w", m.Ref(), err)
		}
	}
	return tx.Commit()
}

// InsertRoster bulk-inserts roster entries in a transaction. Rows are keyed
// by (event, player, source): the sources' views of one entrant are all kept
// so a date or tier disagreement between them still reaches the timeline.
func (db *DB) InsertRoster(entries []model.RosterEntry) error {
	tx, err := db.conn.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(`
		INSERT OR REPLACE INTO roster(event_id, player_id, event_date, tier, final_placement, source)
		VALUES (?,?,?,?,?,?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, r := range entries {
		if _, err = stmt.Exec(r.EventID, r.PlayerID, formatDate(r.EventDate), string(r.Tier), r.FinalPlacement, string(r.Source)); err != nil {
			return fmt.Errorf("insert roster %s/%s: %w", r.EventID, r.PlayerID, err)
		}
	}
	return tx.Commit()
}

// LoadMatches returns every stored match. Order is irrelevant to the
// timeline, which sorts on its own key.
func (db *DB) LoadMatches() ([]model.Match, error) {
	rows, err := db.conn.Query(`
		SELECT feed, source, event_id, row_index, event_date, tier, round_label,
		       player_a_id, player_b_id, winner_id, outcome
		FROM matches ORDER BY event_date, event_id, source, feed, row_index`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.Match
	for rows.Next() {
		var m model.Match
		var source, date, tier, outcome string
		if err := rows.Scan(&m.Feed, &source, &m.EventID, &m.Index, &date, &tier, &m.RoundLabel,
			&m.PlayerA, &m.PlayerB, &m.Winner, &outcome); err != nil {
			return nil, err
		}
		m.Source = model.Source(source)
		m.Tier = model.Tier(tier)
		m.EventDate = parseDate(date)
		m.Outcome = parseOutcome(outcome)
		out = append(out, m)
	}
	return out, rows.Err()
}

// LoadRoster returns every stored roster entry.
func (db *DB) LoadRoster() ([]model.RosterEntry, error) {
	rows, err := db.conn.Query(`
		SELECT event_id, player_id, event_date, tier, final_placement, source
		FROM roster ORDER BY event_id, player_id, source`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.RosterEntry
	for rows.Next() {
		var r model.RosterEntry
		var date, tier, source string
		if err := rows.Scan(&r.EventID, &r.PlayerID, &date, &tier, &r.FinalPlacement, &source); err != nil {
			return nil, err
		}
		r.EventDate = parseDate(date)
		r.Tier = model.Tier(tier)
		r.Source = model.Source(source)
		out = append(out, r)
	}
	return out, rows.Err()
}

// EventRow is one stored event as seen by the feeds, before consolidation.
type EventRow struct {
	EventID  string
	Dates    string // comma-joined distinct dates; more than one means a conflict
	Tiers    string
	Sources  string
	Matches  int
	Entrants int // distinct roster players
}

// ListEvents summarizes the stored feeds per event id, latest first.
func (db *DB) ListEvents() ([]EventRow, error) {
	rows, err := db.conn.Query(`
		WITH ev AS (
			SELECT event_id, event_date, tier, source, NULL AS player_id FROM matches
			UNION ALL
			SELECT event_id, event_date, tier, NULL, player_id FROM roster
		)
		SELECT event_id,
		       COALESCE(group_concat(DISTINCT NULLIF(event_date, '')), ''),
		       COALESCE(group_concat(DISTINCT NULLIF(tier, '')), ''),
		       COALESCE(group_concat(DISTINCT source), ''),
		       COUNT(source),
		       COUNT(DISTINCT player_id)
		FROM ev
		GROUP BY event_id
		ORDER BY MAX(event_date) DESC, event_id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []EventRow
	for rows.Next() {
		var e EventRow
		if err := rows.Scan(&e.EventID, &e.Dates, &e.Tiers, &e.Sources, &e.Matches, &e.Entrants); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// DeleteEvent removes an event's matches and roster rows. Stored runs keep
// their snapshots; re-rate to drop the event from them.
func (db *DB) DeleteEvent(eventID string) (int64, error) {
	tx, err := db.conn.Begin()
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()

	var n int64
	for _, q := range []string{
		"DELETE FROM matches WHERE event_id = ?",
		"DELETE FROM roster WHERE event_id = ?",
	} {
		res, err := tx.Exec(q, eventID)
		if err != nil {
			return 0, err
		}
		c, _ := res.RowsAffected()
		n += c
	}
	return n, tx.Commit()
}

func formatDate(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(model.DateLayout)
}

func parseDate(s string) time.Time {
	if s == "" {
		return time.Time{}
	}
	t, err := time.Parse(model.DateLayout, s)
	if err != nil {
		return time.Time{}
	}
	return t
}

func parseOutcome(s string) model.Outcome {
	switch s {
	case "draw":
		return model.OutcomeDraw
	case "no-contest":
		return model.OutcomeNoContest
	default:
		return model.OutcomeWin
	}
}
