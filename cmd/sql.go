package cmd

import (
	"encoding/csv"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/pable/fgc-elo/internal/report"
	"github.com/pable/fgc-elo/internal/storage"
)

var sqlCSV bool

var sqlCmd = &cobra.Command{
	Use:   "sql <query>",
	Short: "Run a raw SQL query against the ratings database",
	Long: `Run an arbitrary SQL query against the ratings database and print results as a table.

Schema overview:
  matches(feed, source, event_id, row_index, event_date, tier, round_label,
    player_a_id, player_b_id, winner_id, outcome)
  roster(event_id, player_id, event_date, tier, final_placement, source)
  runs(run_id, created_at, matches_applied, matches_skipped, snapshots, issues, config_json)
  snapshots(run_id, player_id, event_id, event_date, tier, rating_before_event,
    matches_played_to_date, events_entered_to_date, is_provisional,
    final_placement, entrants, seq)
  rating_history(run_id, seq, player_id, opponent_id, event_id, event_date, result,
    rating_before, rating_after, k, matches_played, is_provisional)
  player_ratings(run_id, player_id, rating, matches_played, is_provisional)
  issues(run_id, seq, kind, event_id, player_id, detail)

Dates are stored as YYYY-MM-DD text; booleans as 0/1.
Example: fgcelo sql "SELECT player_id, rating FROM player_ratings ORDER BY rating DESC LIMIT 5"`,
	Args: cobra.MinimumNArgs(1),
	RunE: runSQL,
}

func init() {
	sqlCmd.Flags().BoolVar(&sqlCSV, "csv", false, "print rows as CSV instead of a table")
}

func runSQL(cmd *cobra.Command, args []string) error {
	db, err := storage.Open(dbPath)
	if err != nil {
		return fmt.Errorf("open db: %w", err)
	}
	defer db.Close()

	cols, rows, err := db.QueryRaw(strings.Join(args, " "))
	if err != nil {
		return err
	}
	if sqlCSV {
		cw := csv.NewWriter(os.Stdout)
		cw.Write(cols)
		cw.WriteAll(rows)
		return cw.Error()
	}
	if len(rows) == 0 {
		fmt.Println("(no rows)")
		return nil
	}
	report.PrintRawTable(os.Stdout, cols, rows)
	fmt.Fprintf(os.Stdout, "\n(%d rows)\n", len(rows))
	return nil
}
