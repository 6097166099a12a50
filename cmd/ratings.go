package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/pable/fgc-elo/internal/report"
	"github.com/pable/fgc-elo/internal/storage"
)

var (
	ratingsTop         int
	ratingsEstablished bool
)

var ratingsCmd = &cobra.Command{
	Use:   "ratings",
	Short: "Show final ratings of a run, highest first",
	Args:  cobra.NoArgs,
	RunE:  runRatings,
}

func init() {
	addRunFlag(ratingsCmd)
	ratingsCmd.Flags().IntVarP(&ratingsTop, "top", "n", 50, "number of players to show (0 = all)")
	ratingsCmd.Flags().BoolVar(&ratingsEstablished, "established", false, "hide provisional players")
}

func runRatings(cmd *cobra.Command, args []string) error {
	db, err := storage.Open(dbPath)
	if err != nil {
		return fmt.Errorf("open storage: %w", err)
	}
	defer db.Close()

	run, err := resolveRun(db)
	if err != nil {
		return err
	}
	ratings, err := db.GetRatings(run.RunID, ratingsTop, ratingsEstablished)
	if err != nil {
		return fmt.Errorf("get ratings: %w", err)
	}
	report.PrintRunSummary(os.Stdout, *run)
	report.PrintRatingsTable(os.Stdout, ratings)
	return nil
}
