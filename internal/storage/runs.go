package storage

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/pable/fgc-elo/internal/model"
)

// Run bundles everything one rating pass persists.
type Run struct {
	Summary   model.RunSummary
	Snapshots []model.RatingSnapshot
	History   []model.HistoryEntry
	Ratings   []model.PlayerRating
	Issues    []model.Issue
}

// SaveRun stores a pass in a single transaction and returns its run id.
// A fresh UUID is assigned when Summary.RunID is empty.
func (db *DB) SaveRun(run Run) (string, error) {
	s := run.Summary
	if s.RunID == "" {
		s.RunID = uuid.NewString()
	}
	if s.CreatedAt.IsZero() {
		s.CreatedAt = time.Now().UTC()
	}

	tx, err := db.conn.Begin()
	if err != nil {
		return "", err
	}
	defer tx.Rollback()

	_, err = tx.Exec(`
		INSERT INTO runs(run_id, created_at, matches_applied, matches_skipped, snapshots, issues, config_json)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		s.RunID, s.CreatedAt.Format(time.RFC3339), s.MatchesApplied, s.MatchesSkipped,
		len(run.Snapshots), len(run.Issues), s.ConfigJSON,
	)
	if err != nil {
		return "", fmt.Errorf("insert run: %w", err)
	}

	if err := insertSnapshots(tx, s.RunID, run.Snapshots); err != nil {
		return "", err
	}
	if err := insertHistory(tx, s.RunID, run.History); err != nil {
		return "", err
	}
	if err := insertRatings(tx, s.RunID, run.Ratings); err != nil {
		return "", err
	}
	if err := insertIssues(tx, s.RunID, run.Issues); err != nil {
		return "", err
	}
	return s.RunID, tx.Commit()
}

func insertSnapshots(tx *sql.Tx, runID string, snaps []model.RatingSnapshot) error {
	stmt, err := tx.Prepare(`
		INSERT OR REPLACE INTO snapshots(
			run_id, player_id, event_id, event_date, tier,
			rating_before_event, matches_played_to_date, events_entered_to_date,
			is_provisional, final_placement, entrants, seq
		) VALUES (?,?,?,?,?,?,?,?,?,?,?,?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for i, s := range snaps {
		_, err = stmt.Exec(
			runID, s.PlayerID, s.EventID, formatDate(s.EventDate), string(s.Tier),
			s.RatingBeforeEvent, s.MatchesPlayedToDate, s.EventsEnteredToDate,
			boolInt(s.IsProvisional), s.FinalPlacement, s.Entrants, i,
		)
		if err != nil {
			return fmt.Errorf("insert snapshot %s/%s: %w", s.EventID, s.PlayerID, err)
		}
	}
	return nil
}

func insertHistory(tx *sql.Tx, runID string, hist []model.HistoryEntry) error {
	stmt, err := tx.Prepare(`
		INSERT OR REPLACE INTO rating_history(
			run_id, seq, player_id, opponent_id, event_id, event_date, result,
			rating_before, rating_after, k, matches_played, is_provisional
		) VALUES (?,?,?,?,?,?,?,?,?,?,?,?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, h := range hist {
		_, err = stmt.Exec(
			runID, h.Seq, h.PlayerID, h.OpponentID, h.EventID, formatDate(h.EventDate), h.Result,
			h.RatingBefore, h.RatingAfter, h.K, h.MatchesPlayed, boolInt(h.Provisional),
		)
		if err != nil {
			return fmt.Errorf("insert rating_history: %w", err)
		}
	}
	return nil
}

func insertRatings(tx *sql.Tx, runID string, ratings []model.PlayerRating) error {
	stmt, err := tx.Prepare(`
		INSERT OR REPLACE INTO player_ratings(run_id, player_id, rating, matches_played, is_provisional)
		VALUES (?,?,?,?,?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, r := range ratings {
		if _, err = stmt.Exec(runID, r.PlayerID, r.Rating, r.MatchesPlayed, boolInt(r.Provisional)); err != nil {
			return fmt.Errorf("insert player_rating %s: %w", r.PlayerID, err)
		}
	}
	return nil
}

func insertIssues(tx *sql.Tx, runID string, issues []model.Issue) error {
	stmt, err := tx.Prepare(`
		INSERT OR REPLACE INTO issues(run_id, seq, kind, event_id, player_id, detail)
		VALUES (?,?,?,?,?,?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for i, is := range issues {
		if _, err = stmt.Exec(runID, i, string(is.Kind), is.EventID, is.PlayerID, is.Detail); err != nil {
			return fmt.Errorf("insert issue: %w", err)
		}
	}
	return nil
}

// ListRuns returns stored runs, newest first.
func (db *DB) ListRuns() ([]model.RunSummary, error) {
	rows, err := db.conn.Query(`
		SELECT run_id, created_at, matches_applied, matches_skipped, snapshots, issues, config_json
		FROM runs ORDER BY created_at DESC, run_id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.RunSummary
	for rows.Next() {
		s, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *s)
	}
	return out, rows.Err()
}

// GetRun resolves a run by id prefix, or the latest run when ref is empty.
// Returns nil, nil when nothing matches.
func (db *DB) GetRun(ref string) (*model.RunSummary, error) {
	const cols = `SELECT run_id, created_at, matches_applied, matches_skipped, snapshots, issues, config_json FROM runs`
	var row *sql.Row
	if ref == "" {
		row = db.conn.QueryRow(cols + ` ORDER BY created_at DESC, run_id LIMIT 1`)
	} else {
		row = db.conn.QueryRow(cols+` WHERE run_id LIKE ? ORDER BY created_at DESC LIMIT 1`, ref+"%")
	}
	s, err := scanRun(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return s, nil
}

// DeleteRun removes a run and, by cascade, everything it stored.
func (db *DB) DeleteRun(runID string) error {
	res, err := db.conn.Exec("DELETE FROM runs WHERE run_id = ?", runID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("run %s not found", runID)
	}
	return nil
}

// GetIssues returns the issues recorded by a run, in report order.
func (db *DB) GetIssues(runID string) ([]model.Issue, error) {
	rows, err := db.conn.Query(`
		SELECT kind, event_id, player_id, detail
		FROM issues WHERE run_id = ? ORDER BY seq`, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.Issue
	for rows.Next() {
		var is model.Issue
		var kind string
		if err := rows.Scan(&kind, &is.EventID, &is.PlayerID, &is.Detail); err != nil {
			return nil, err
		}
		is.Kind = model.IssueKind(kind)
		out = append(out, is)
	}
	return out, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRun(sc scanner) (*model.RunSummary, error) {
	var s model.RunSummary
	var created string
	if err := sc.Scan(&s.RunID, &created, &s.MatchesApplied, &s.MatchesSkipped,
		&s.Snapshots, &s.Issues, &s.ConfigJSON); err != nil {
		return nil, err
	}
	s.CreatedAt, _ = time.Parse(time.RFC3339, created)
	return &s, nil
}
