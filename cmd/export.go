package cmd

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/pable/fgc-elo/internal/feed"
	"github.com/pable/fgc-elo/internal/model"
	"github.com/pable/fgc-elo/internal/storage"
)

var (
	exportOut     string
	exportRatings bool
	exportTier    string
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export the player x event snapshot table as CSV",
	Long: `Write a run's pre-event snapshots as one CSV row per (player, event) pair,
the input of the downstream placement model. The first five columns are
player_id, event_id, rating_before_event, matches_played_to_date and
is_provisional; the remaining ones are extra features.

With --ratings the run's final ratings are written instead.

The output is compressed when --out ends in .gz or .zst.

Example:
  fgcelo export --out snapshots.csv.zst
  fgcelo export --ratings --out current_ratings.csv`,
	Args: cobra.NoArgs,
	RunE: runExport,
}

func init() {
	addRunFlag(exportCmd)
	exportCmd.Flags().StringVarP(&exportOut, "out", "o", "", "output file (default stdout)")
	exportCmd.Flags().BoolVar(&exportRatings, "ratings", false, "export final ratings instead of snapshots")
	exportCmd.Flags().StringVar(&exportTier, "tier", "", "only export snapshots of this tier")
}

func runExport(cmd *cobra.Command, args []string) error {
	db, err := storage.Open(dbPath)
	if err != nil {
		return fmt.Errorf("open storage: %w", err)
	}
	defer db.Close()

	run, err := resolveRun(db)
	if err != nil {
		return err
	}

	if exportOut == "" {
		return writeExport(db, run.RunID, os.Stdout)
	}
	wc, err := feed.Create(exportOut)
	if err != nil {
		return fmt.Errorf("create %s: %w", exportOut, err)
	}
	if err := writeExport(db, run.RunID, wc); err != nil {
		wc.Close()
		return err
	}
	if err := wc.Close(); err != nil {
		return fmt.Errorf("close %s: %w", exportOut, err)
	}
	fmt.Fprintf(os.Stderr, "Wrote %s (run %s)\n", exportOut, run.RunID)
	return nil
}

func writeExport(db *storage.DB, runID string, w io.Writer) error {
	if exportRatings {
		ratings, err := db.GetRatings(runID, 0, false)
		if err != nil {
			return fmt.Errorf("get ratings: %w", err)
		}
		return feed.WriteRatings(w, ratings)
	}
	snaps, err := db.GetSnapshots(runID, storage.SnapshotFilter{Tier: model.Tier(exportTier)})
	if err != nil {
		return fmt.Errorf("get snapshots: %w", err)
	}
	return feed.WriteSnapshots(w, snaps)
}
