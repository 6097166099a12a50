package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/pable/fgc-elo/internal/model"
	"github.com/pable/fgc-elo/internal/report"
	"github.com/pable/fgc-elo/internal/storage"
)

var (
	snapEvents  []string
	snapPlayers []string
	snapTier    string
	snapIssues  bool
)

var snapshotsCmd = &cobra.Command{
	Use:   "snapshots",
	Short: "Show pre-event rating snapshots of a run",
	Long: `Show the rating each entrant carried into an event, as recorded by a
stored run. Rows are grouped by event in chronological order.

Example:
  fgcelo snapshots --event evo-2024 --event cem-2024
  fgcelo snapshots --player p-4412 --run 3f2a`,
	Args: cobra.NoArgs,
	RunE: runSnapshots,
}

func init() {
	addRunFlag(snapshotsCmd)
	snapshotsCmd.Flags().StringSliceVar(&snapEvents, "event", nil, "filter by event id (repeatable)")
	snapshotsCmd.Flags().StringSliceVar(&snapPlayers, "player", nil, "filter by player id (repeatable)")
	snapshotsCmd.Flags().StringVar(&snapTier, "tier", "", "filter by tier")
	snapshotsCmd.Flags().BoolVar(&snapIssues, "issues", false, "also list the run's data issues")
}

func runSnapshots(cmd *cobra.Command, args []string) error {
	db, err := storage.Open(dbPath)
	if err != nil {
		return fmt.Errorf("open storage: %w", err)
	}
	defer db.Close()

	run, err := resolveRun(db)
	if err != nil {
		return err
	}
	snaps, err := db.GetSnapshots(run.RunID, storage.SnapshotFilter{
		EventIDs:  snapEvents,
		PlayerIDs: snapPlayers,
		Tier:      model.Tier(snapTier),
	})
	if err != nil {
		return fmt.Errorf("get snapshots: %w", err)
	}

	report.PrintRunSummary(os.Stdout, *run)
	if len(snaps) == 0 {
		fmt.Fprintln(os.Stdout, "No snapshots match.")
	} else {
		focus := ""
		if len(snapPlayers) == 1 {
			focus = snapPlayers[0]
		}
		report.PrintSnapshotTable(os.Stdout, snaps, focus)
		fmt.Fprintf(os.Stdout, "\n(%d snapshots)\n", len(snaps))
	}

	if snapIssues {
		issues, err := db.GetIssues(run.RunID)
		if err != nil {
			return fmt.Errorf("get issues: %w", err)
		}
		fmt.Fprintln(os.Stdout)
		report.PrintIssues(os.Stdout, issues, 0)
	}
	return nil
}
