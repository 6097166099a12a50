package storage

import (
	"database/sql"
	"fmt"
	"strings"

	"github.com/pable/fgc-elo/internal/model"
)

// SnapshotFilter narrows GetSnapshots. Empty fields match everything.
type SnapshotFilter struct {
	EventIDs  []string
	PlayerIDs []string
	Tier      model.Tier
}

// GetSnapshots returns a run's snapshots grouped by event in timeline order,
// then by player id.
func (db *DB) GetSnapshots(runID string, f SnapshotFilter) ([]model.RatingSnapshot, error) {
	q := `
		SELECT player_id, event_id, event_date, tier, rating_before_event,
		       matches_played_to_date, events_entered_to_date, is_provisional,
		       final_placement, entrants
		FROM snapshots WHERE run_id = ?`
	args := []any{runID}
	if len(f.EventIDs) > 0 {
		q += " AND event_id IN (" + placeholders(len(f.EventIDs)) + ")"
		for _, id := range f.EventIDs {
			args = append(args, id)
		}
	}
	if len(f.PlayerIDs) > 0 {
		q += " AND player_id IN (" + placeholders(len(f.PlayerIDs)) + ")"
		for _, id := range f.PlayerIDs {
			args = append(args, id)
		}
	}
	if f.Tier != "" {
		q += " AND tier = ?"
		args = append(args, string(f.Tier))
	}
	q += " ORDER BY seq"

	rows, err := db.conn.Query(q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.RatingSnapshot
	for rows.Next() {
		var s model.RatingSnapshot
		var date, tier string
		var prov int
		if err := rows.Scan(&s.PlayerID, &s.EventID, &date, &tier, &s.RatingBeforeEvent,
			&s.MatchesPlayedToDate, &s.EventsEnteredToDate, &prov,
			&s.FinalPlacement, &s.Entrants); err != nil {
			return nil, err
		}
		s.EventDate = parseDate(date)
		s.Tier = model.Tier(tier)
		s.IsProvisional = prov != 0
		out = append(out, s)
	}
	return out, rows.Err()
}

// GetPlayerHistory returns one player's side of every applied match, in
// chronological order.
func (db *DB) GetPlayerHistory(runID, playerID string) ([]model.HistoryEntry, error) {
	rows, err := db.conn.Query(`
		SELECT seq, event_id, event_date, player_id, opponent_id, result,
		       rating_before, rating_after, k, matches_played, is_provisional
		FROM rating_history
		WHERE run_id = ? AND player_id = ?
		ORDER BY seq`, runID, playerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.HistoryEntry
	for rows.Next() {
		var h model.HistoryEntry
		var date string
		var prov int
		if err := rows.Scan(&h.Seq, &h.EventID, &date, &h.PlayerID, &h.OpponentID, &h.Result,
			&h.RatingBefore, &h.RatingAfter, &h.K, &h.MatchesPlayed, &prov); err != nil {
			return nil, err
		}
		h.EventDate = parseDate(date)
		h.Provisional = prov != 0
		out = append(out, h)
	}
	return out, rows.Err()
}

// GetRatings returns a run's final ratings, highest first. limit <= 0 means all.
// When established is set, provisional players are left out.
func (db *DB) GetRatings(runID string, limit int, established bool) ([]model.PlayerRating, error) {
	q := `
		SELECT player_id, rating, matches_played, is_provisional
		FROM player_ratings WHERE run_id = ?`
	if established {
		q += " AND is_provisional = 0"
	}
	q += " ORDER BY rating DESC, player_id"
	args := []any{runID}
	if limit > 0 {
		q += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := db.conn.Query(q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.PlayerRating
	for rows.Next() {
		var r model.PlayerRating
		var prov int
		if err := rows.Scan(&r.PlayerID, &r.Rating, &r.MatchesPlayed, &prov); err != nil {
			return nil, err
		}
		r.Provisional = prov != 0
		out = append(out, r)
	}
	return out, rows.Err()
}

// GetParticipation counts snapshotted events, entrants and distinct players
// per tier for a run.
func (db *DB) GetParticipation(runID string) ([]model.TierParticipation, error) {
	rows, err := db.conn.Query(`
		SELECT tier, COUNT(DISTINCT event_id), COUNT(1), COUNT(DISTINCT player_id)
		FROM snapshots WHERE run_id = ?
		GROUP BY tier ORDER BY tier`, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.TierParticipation
	for rows.Next() {
		var p model.TierParticipation
		var tier string
		if err := rows.Scan(&tier, &p.Events, &p.Entrants, &p.Players); err != nil {
			return nil, err
		}
		p.Tier = model.Tier(tier)
		out = append(out, p)
	}
	return out, rows.Err()
}

// Overview holds row counts across the store.
type Overview struct {
	Matches  int
	Roster   int
	Events   int
	Players  int
	Runs     int
	FirstDay string
	LastDay  string
}

// GetOverview returns high-level counts for the summary command.
func (db *DB) GetOverview() (Overview, error) {
	var o Overview
	err := db.conn.QueryRow(`
		SELECT
			(SELECT COUNT(1) FROM matches),
			(SELECT COUNT(1) FROM roster),
			(SELECT COUNT(DISTINCT event_id) FROM (SELECT event_id FROM matches UNION SELECT event_id FROM roster)),
			(SELECT COUNT(DISTINCT p) FROM (
				SELECT player_a_id AS p FROM matches
				UNION SELECT player_b_id FROM matches
				UNION SELECT player_id FROM roster)),
			(SELECT COUNT(1) FROM runs),
			COALESCE((SELECT MIN(event_date) FROM matches WHERE event_date != ''), ''),
			COALESCE((SELECT MAX(event_date) FROM matches WHERE event_date != ''), '')`).
		Scan(&o.Matches, &o.Roster, &o.Events, &o.Players, &o.Runs, &o.FirstDay, &o.LastDay)
	return o, err
}

// QueryRaw runs an arbitrary read query and returns column names plus rows
// rendered as strings. NULLs render as "NULL".
func (db *DB) QueryRaw(query string) ([]string, [][]string, error) {
	rows, err := db.conn.Query(query)
	if err != nil {
		return nil, nil, fmt.Errorf("query: %w", err)
	}
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return nil, nil, err
	}
	var out [][]string
	for rows.Next() {
		vals := make([]sql.NullString, len(cols))
		ptrs := make([]any, len(cols))
		for i := range vals {
			ptrs[i] = &vals[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, nil, err
		}
		row := make([]string, len(cols))
		for i, v := range vals {
			if v.Valid {
				row[i] = v.String
			} else {
				row[i] = "NULL"
			}
		}
		out = append(out, row)
	}
	return cols, out, rows.Err()
}

// placeholders returns "?,?,?" for n parameters.
func placeholders(n int) string {
	if n <= 0 {
		return ""
	}
	return strings.Repeat("?,", n-1) + "?"
}
