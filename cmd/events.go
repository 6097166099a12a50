package cmd

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/pable/fgc-elo/internal/storage"
)

var eventsConflictsOnly bool

var eventsCmd = &cobra.Command{
	Use:   "events",
	Short: "List stored events with their sources, dates and tiers",
	Long: `List every event identifier found in the stored feeds. An event whose
rows disagree on date or tier is highlighted; the rating pass excludes such
events entirely.`,
	Args: cobra.NoArgs,
	RunE: runEvents,
}

func init() {
	eventsCmd.Flags().BoolVar(&eventsConflictsOnly, "conflicts", false, "only show events with conflicting dates or tiers")
}

func runEvents(cmd *cobra.Command, args []string) error {
	db, err := storage.Open(dbPath)
	if err != nil {
		return fmt.Errorf("open storage: %w", err)
	}
	defer db.Close()

	events, err := db.ListEvents()
	if err != nil {
		return fmt.Errorf("list events: %w", err)
	}
	if len(events) == 0 {
		fmt.Fprintln(os.Stdout, "No events stored yet. Run 'fgcelo load --matches <file>' to add some.")
		return nil
	}

	warn := color.New(color.FgYellow, color.Bold)
	fmt.Fprintf(os.Stdout, "%-24s  %-23s  %-8s  %-20s  %7s  %8s\n",
		"EVENT", "DATE", "TIER", "SOURCES", "MATCHES", "ENTRANTS")
	shown := 0
	for _, e := range events {
		conflict := strings.Contains(e.Dates, ",") || strings.Contains(e.Tiers, ",")
		if eventsConflictsOnly && !conflict {
			continue
		}
		line := fmt.Sprintf("%-24s  %-23s  %-8s  %-20s  %7s  %8s",
			e.EventID, e.Dates, e.Tiers, e.Sources, strconv.Itoa(e.Matches), strconv.Itoa(e.Entrants))
		if conflict {
			warn.Fprintln(os.Stdout, line)
		} else {
			fmt.Fprintln(os.Stdout, line)
		}
		shown++
	}
	fmt.Fprintf(os.Stdout, "\n(%d events)\n", shown)
	return nil
}
