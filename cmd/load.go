package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/pable/fgc-elo/internal/feed"
	"github.com/pable/fgc-elo/internal/storage"
)

var (
	loadMatchFiles  []string
	loadRosterFiles []string
	loadIdentityMap string
	loadEventMap    string
)

var loadCmd = &cobra.Command{
	Use:   "load",
	Short: "Load match and roster feeds into the database",
	Long: `Read one or more match feeds (one per source) and roster feeds, resolve
source-specific player and event identifiers through the optional identity
and event maps, and store the canonical records.

Any file may be an http(s) URL. Files ending in .gz, .bz2 or .zst are
decompressed on the fly.

Matches are keyed by file, source, event and row, so loading the same file
again replaces its rows and several files of one source never overwrite each
other. Roster rows are keyed by event, player and source.

Match feed columns:  source, event_id, event_date, tier, round_label,
                     player_a_id, player_b_id, winner_id
Roster feed columns: event_id, event_date, tier, player_id[, final_placement, source]

Example:
  fgcelo load --matches api_matches.csv.zst --matches wiki_matches.csv \
    --roster rosters.csv --identity-map players.csv --event-map events.csv`,
	Args: cobra.NoArgs,
	RunE: runLoad,
}

func init() {
	loadCmd.Flags().StringArrayVar(&loadMatchFiles, "matches", nil, "match feed CSV (repeatable)")
	loadCmd.Flags().StringArrayVar(&loadRosterFiles, "roster", nil, "roster feed CSV (repeatable)")
	loadCmd.Flags().StringVar(&loadIdentityMap, "identity-map", "", "CSV mapping source player ids to canonical ids")
	loadCmd.Flags().StringVar(&loadEventMap, "event-map", "", "CSV mapping source event ids to canonical ids")
	loadCmd.MarkFlagRequired("matches")
}

func runLoad(cmd *cobra.Command, args []string) error {
	if err := ensureDBDir(); err != nil {
		return err
	}
	db, err := storage.Open(dbPath)
	if err != nil {
		return fmt.Errorf("open storage: %w", err)
	}
	defer db.Close()

	bundle, err := feed.Load(cmd.Context(), feed.Paths{
		MatchFiles:  loadMatchFiles,
		RosterFiles: loadRosterFiles,
		IdentityMap: loadIdentityMap,
		EventMap:    loadEventMap,
	})
	if err != nil {
		return fmt.Errorf("read feeds: %w", err)
	}
	logger.Info("feeds read",
		zap.Int("matches", len(bundle.Matches)),
		zap.Int("roster", len(bundle.Roster)),
		zap.Int("identity_map", bundle.Players.Len()),
		zap.Int("event_map", bundle.Events.Len()))

	if err := db.InsertMatches(bundle.Matches); err != nil {
		return fmt.Errorf("store matches: %w", err)
	}
	if err := db.InsertRoster(bundle.Roster); err != nil {
		return fmt.Errorf("store roster: %w", err)
	}

	fmt.Fprintf(os.Stdout, "Stored %d matches and %d roster rows in %s\n", len(bundle.Matches), len(bundle.Roster), dbPath)
	fmt.Fprintln(os.Stdout, "Run 'fgcelo rate' to compute ratings.")
	return nil
}
