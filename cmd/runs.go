package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/pable/fgc-elo/internal/model"
	"github.com/pable/fgc-elo/internal/report"
	"github.com/pable/fgc-elo/internal/storage"
)

// runRef selects a stored run by id prefix; empty means the latest.
var runRef string

var runsCmd = &cobra.Command{
	Use:   "runs",
	Short: "List stored rating runs",
	Args:  cobra.NoArgs,
	RunE:  runRuns,
}

func runRuns(cmd *cobra.Command, args []string) error {
	db, err := storage.Open(dbPath)
	if err != nil {
		return fmt.Errorf("open storage: %w", err)
	}
	defer db.Close()

	runs, err := db.ListRuns()
	if err != nil {
		return fmt.Errorf("list runs: %w", err)
	}
	if len(runs) == 0 {
		fmt.Fprintln(os.Stdout, "No runs stored yet. Run 'fgcelo rate' to create one.")
		return nil
	}
	report.PrintRunTable(os.Stdout, runs)
	return nil
}

func addRunFlag(c *cobra.Command) {
	c.Flags().StringVar(&runRef, "run", "", "run id or prefix (default: latest)")
}

// resolveRun returns the run selected by --run, or an error when none matches.
func resolveRun(db *storage.DB) (*model.RunSummary, error) {
	run, err := db.GetRun(runRef)
	if err != nil {
		return nil, fmt.Errorf("query run: %w", err)
	}
	if run == nil {
		if runRef == "" {
			return nil, fmt.Errorf("no runs stored yet; run 'fgcelo rate' first")
		}
		return nil, fmt.Errorf("no run found with id prefix %q", runRef)
	}
	return run, nil
}
