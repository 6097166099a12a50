package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/pable/fgc-elo/internal/aggregator"
	"github.com/pable/fgc-elo/internal/metrics"
	"github.com/pable/fgc-elo/internal/model"
	"github.com/pable/fgc-elo/internal/report"
	"github.com/pable/fgc-elo/internal/storage"
)

var (
	rateStrict     bool
	rateMetricsOut string
	rateIssueLimit int
	rateDryRun     bool
	rateFailOnData bool
)

var rateCmd = &cobra.Command{
	Use:   "rate",
	Short: "Replay all stored matches and record pre-event rating snapshots",
	Long: `Build the chronological timeline from every stored match and roster row,
run a single Elo pass over it and store the result as a new run: one snapshot
per (player, event) pair taken before the event's first match, the
match-by-match rating history, and the final ratings.

Data problems (malformed matches, events with conflicting dates or tiers,
roster players missing from the match data) do not stop the pass; they are
listed afterwards and stored with the run. Use --fail-on-issues to exit
non-zero when any were found.`,
	Args: cobra.NoArgs,
	RunE: runRate,
}

func init() {
	rateCmd.Flags().BoolVar(&rateStrict, "strict-roster", false, "drop roster rows of players absent from all match data (overrides roster.strict)")
	rateCmd.Flags().StringVar(&rateMetricsOut, "metrics-out", "", "write pass metrics in Prometheus text format to this file")
	rateCmd.Flags().IntVar(&rateIssueLimit, "issues", 20, "max issues to list (0 = all)")
	rateCmd.Flags().BoolVar(&rateDryRun, "dry-run", false, "compute and print without storing the run")
	rateCmd.Flags().BoolVar(&rateFailOnData, "fail-on-issues", false, "exit non-zero when data issues were found")
}

func runRate(cmd *cobra.Command, args []string) error {
	db, err := storage.Open(dbPath)
	if err != nil {
		return fmt.Errorf("open storage: %w", err)
	}
	defer db.Close()

	matches, err := db.LoadMatches()
	if err != nil {
		return fmt.Errorf("load matches: %w", err)
	}
	roster, err := db.LoadRoster()
	if err != nil {
		return fmt.Errorf("load roster: %w", err)
	}
	if len(matches) == 0 && len(roster) == 0 {
		fmt.Fprintln(os.Stdout, "No feeds stored yet. Run 'fgcelo load --matches <file>' first.")
		return nil
	}

	strict := cfg.Roster.Strict
	if cmd.Flags().Changed("strict-roster") {
		strict = rateStrict
	}
	m := metrics.NewPass()
	res, err := aggregator.Run(matches, roster, cfg.Policy(),
		aggregator.WithStrictRoster(strict),
		aggregator.WithLogger(logger),
		aggregator.WithObserver(m),
	)
	if err != nil {
		return err
	}
	issues := res.Report.Issues()
	now := time.Now().UTC()

	summary := model.RunSummary{
		CreatedAt:      now,
		MatchesApplied: res.Applied,
		MatchesSkipped: len(res.Skipped),
		Snapshots:      len(res.Snapshots),
		Issues:         len(issues),
	}
	if b, err := json.Marshal(cfg.Rating); err == nil {
		summary.ConfigJSON = string(b)
	}

	if !rateDryRun {
		runID, err := db.SaveRun(storage.Run{
			Summary:   summary,
			Snapshots: res.Snapshots,
			History:   res.History,
			Ratings:   res.Final,
			Issues:    issues,
		})
		if err != nil {
			return fmt.Errorf("store run: %w", err)
		}
		summary.RunID = runID
		logger.Info("run stored", zap.String("run", runID))
	}

	report.PrintRunSummary(os.Stdout, summary)
	report.PrintParticipationTable(os.Stdout, res.Participation)
	fmt.Fprintln(os.Stdout)
	report.PrintIssues(os.Stdout, issues, rateIssueLimit)
	if n := len(res.Withheld); n > 0 {
		fmt.Fprintf(os.Stdout, "%d roster entries got no snapshot.\n", n)
	}

	if rateMetricsOut != "" {
		m.Finish(issues, len(res.Final), now)
		if err := m.WriteTextfile(rateMetricsOut); err != nil {
			return fmt.Errorf("write metrics: %w", err)
		}
	}

	if rateFailOnData && res.Report.Len() > 0 {
		return fmt.Errorf("%d data issues: %w", res.Report.Len(), res.Report.Err())
	}
	return nil
}
