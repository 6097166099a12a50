package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/pable/fgc-elo/internal/storage"
)

var (
	dropForce bool
	dropRun   string
	dropEvent string
)

// dropCmd deletes the ratings database file, or one run or event inside it.
var dropCmd = &cobra.Command{
	Use:   "drop",
	Short: "Delete the ratings database, a stored run or an event",
	Long: `Permanently delete the SQLite ratings database. All stored feeds and runs
will be lost; reload the feeds afterwards to rebuild.

With --run only that run (snapshots, history, ratings, issues) is removed.
With --event only that event's matches and roster rows are removed.`,
	Args: cobra.NoArgs,
	RunE: runDrop,
}

func init() {
	dropCmd.Flags().BoolVarP(&dropForce, "force", "f", false, "skip confirmation prompt")
	dropCmd.Flags().StringVar(&dropRun, "run", "", "delete only this run (id or prefix)")
	dropCmd.Flags().StringVar(&dropEvent, "event", "", "delete only this event's feed rows")
}

func runDrop(cmd *cobra.Command, args []string) error {
	if dropRun != "" || dropEvent != "" {
		return dropPart()
	}
	if !dropForce {
		fmt.Fprintf(os.Stderr, "This will permanently delete: %s\n", dbPath)
		fmt.Fprintf(os.Stderr, "Re-run with --force to confirm.\n")
		return nil
	}
	if err := os.Remove(dbPath); err != nil {
		if os.IsNotExist(err) {
			fmt.Fprintln(os.Stdout, "Database does not exist, nothing to drop.")
			return nil
		}
		return fmt.Errorf("remove database: %w", err)
	}
	fmt.Fprintf(os.Stdout, "Deleted: %s\n", dbPath)
	return nil
}

func dropPart() error {
	db, err := storage.Open(dbPath)
	if err != nil {
		return fmt.Errorf("open storage: %w", err)
	}
	defer db.Close()

	if dropRun != "" {
		run, err := db.GetRun(dropRun)
		if err != nil {
			return fmt.Errorf("query run: %w", err)
		}
		if run == nil {
			return fmt.Errorf("no run found with id prefix %q", dropRun)
		}
		if !dropForce {
			fmt.Fprintf(os.Stderr, "This will permanently delete run %s.\nRe-run with --force to confirm.\n", run.RunID)
			return nil
		}
		if err := db.DeleteRun(run.RunID); err != nil {
			return fmt.Errorf("delete run: %w", err)
		}
		fmt.Fprintf(os.Stdout, "Deleted run: %s\n", run.RunID)
	}
	if dropEvent != "" {
		if !dropForce {
			fmt.Fprintf(os.Stderr, "This will permanently delete the feed rows of event %s.\nRe-run with --force to confirm.\n", dropEvent)
			return nil
		}
		n, err := db.DeleteEvent(dropEvent)
		if err != nil {
			return fmt.Errorf("delete event: %w", err)
		}
		fmt.Fprintf(os.Stdout, "Deleted %d rows of event %s\n", n, dropEvent)
	}
	return nil
}
