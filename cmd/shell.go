package cmd

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/pable/fgc-elo/internal/model"
	"github.com/pable/fgc-elo/internal/report"
	"github.com/pable/fgc-elo/internal/storage"
)

var (
	cPrompt   = color.New(color.FgCyan, color.Bold)
	cMuted    = color.New(color.Faint)
	cError    = color.New(color.FgRed, color.Bold)
	cWarn     = color.New(color.FgYellow)
	cCmd      = color.New(color.FgYellow, color.Bold)
	cGreeting = color.New(color.Bold)
)

var shellCmd = &cobra.Command{
	Use:   "shell",
	Short: "Start an interactive session over a stored run",
	Long:  "Open a persistent session against the database, bound to the latest run (or --run). Type 'help' for available commands.",
	Args:  cobra.NoArgs,
	RunE:  runShell,
}

func init() {
	addRunFlag(shellCmd)
}

// shellSession is the state carried between REPL lines.
type shellSession struct {
	db  *storage.DB
	run *model.RunSummary
}

func runShell(_ *cobra.Command, _ []string) error {
	db, err := storage.Open(dbPath)
	if err != nil {
		return fmt.Errorf("open storage: %w", err)
	}
	defer db.Close()

	s := &shellSession{db: db}
	if run, err := db.GetRun(runRef); err == nil && run != nil {
		s.run = run
	}

	cGreeting.Println("fgcelo shell")
	if s.run != nil {
		cMuted.Printf("bound to run %s; type 'help' or 'exit'\n", s.run.RunID)
	} else {
		cMuted.Println("no run stored yet; type 'help' or 'exit'")
	}
	fmt.Println()

	scanner := bufio.NewScanner(os.Stdin)
	for {
		cPrompt.Print("fgcelo")
		cMuted.Print("> ")
		if !scanner.Scan() {
			fmt.Println()
			break
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		tokens := strings.Fields(line)
		verb, args := tokens[0], tokens[1:]

		switch verb {
		case "exit", "quit":
			return nil
		case "help":
			shellHelp()
		case "runs":
			s.runs()
		case "use":
			if len(args) != 1 {
				cError.Fprintln(os.Stderr, "usage: use <run-prefix>")
				continue
			}
			s.use(args[0])
		case "ratings":
			n := 20
			if len(args) > 0 {
				if v, err := strconv.Atoi(args[0]); err == nil {
					n = v
				}
			}
			s.ratings(n)
		case "player":
			if len(args) == 0 {
				cError.Fprintln(os.Stderr, "usage: player <player_id> [...]")
				continue
			}
			for _, id := range args {
				s.player(id)
			}
		case "event":
			if len(args) == 0 {
				cError.Fprintln(os.Stderr, "usage: event <event_id> [...]")
				continue
			}
			s.event(args)
		case "issues":
			s.issues()
		case "sql":
			s.sql(strings.TrimSpace(strings.TrimPrefix(line, verb)))
		default:
			cWarn.Fprintf(os.Stderr, "unknown command %q, type 'help'\n", verb)
		}
	}
	return nil
}

func shellHelp() {
	fmt.Println()
	type entry struct{ cmd, desc string }
	rows := []entry{
		{"runs", "list stored runs"},
		{"use <run-prefix>", "switch to another run"},
		{"ratings [n]", "top n final ratings (default 20)"},
		{"player <id> [...]", "rating trajectory and snapshots of one or more players"},
		{"event <id> [...]", "pre-event snapshots of one or more events"},
		{"issues", "data issues recorded by the run"},
		{"sql <query>", "raw SQL against the database"},
		{"help", "show this message"},
		{"exit / quit", "close the session"},
	}
	for _, r := range rows {
		fmt.Print("  ")
		cCmd.Printf("%-24s", r.cmd)
		fmt.Println(r.desc)
	}
	fmt.Println()
}

func (s *shellSession) needRun() bool {
	if s.run == nil {
		cWarn.Fprintln(os.Stderr, "no run selected; run 'fgcelo rate' first")
		return false
	}
	return true
}

func (s *shellSession) runs() {
	runs, err := s.db.ListRuns()
	if err != nil {
		cError.Fprintf(os.Stderr, "error: %v\n", err)
		return
	}
	if len(runs) == 0 {
		cMuted.Println("No runs stored yet.")
		return
	}
	report.PrintRunTable(os.Stdout, runs)
}

func (s *shellSession) use(prefix string) {
	run, err := s.db.GetRun(prefix)
	if err != nil {
		cError.Fprintf(os.Stderr, "error: %v\n", err)
		return
	}
	if run == nil {
		cWarn.Fprintf(os.Stderr, "no run found with prefix %q\n", prefix)
		return
	}
	s.run = run
	report.PrintRunSummary(os.Stdout, *run)
}

func (s *shellSession) ratings(n int) {
	if !s.needRun() {
		return
	}
	ratings, err := s.db.GetRatings(s.run.RunID, n, false)
	if err != nil {
		cError.Fprintf(os.Stderr, "error: %v\n", err)
		return
	}
	report.PrintRatingsTable(os.Stdout, ratings)
}

func (s *shellSession) player(id string) {
	if !s.needRun() {
		return
	}
	hist, err := s.db.GetPlayerHistory(s.run.RunID, id)
	if err != nil {
		cError.Fprintf(os.Stderr, "error: %v\n", err)
		return
	}
	snaps, err := s.db.GetSnapshots(s.run.RunID, storage.SnapshotFilter{PlayerIDs: []string{id}})
	if err != nil {
		cError.Fprintf(os.Stderr, "error: %v\n", err)
		return
	}
	if len(hist) == 0 && len(snaps) == 0 {
		cWarn.Fprintf(os.Stderr, "no data for player %q\n", id)
		return
	}
	cGreeting.Printf("\n%s\n", id)
	report.PrintTrajectorySummary(os.Stdout, hist)
	if len(snaps) > 0 {
		fmt.Println()
		report.PrintSnapshotTable(os.Stdout, snaps, "")
	}
}

func (s *shellSession) event(ids []string) {
	if !s.needRun() {
		return
	}
	snaps, err := s.db.GetSnapshots(s.run.RunID, storage.SnapshotFilter{EventIDs: ids})
	if err != nil {
		cError.Fprintf(os.Stderr, "error: %v\n", err)
		return
	}
	if len(snaps) == 0 {
		cMuted.Println("No snapshots for those events.")
		return
	}
	report.PrintSnapshotTable(os.Stdout, snaps, "")
}

func (s *shellSession) issues() {
	if !s.needRun() {
		return
	}
	issues, err := s.db.GetIssues(s.run.RunID)
	if err != nil {
		cError.Fprintf(os.Stderr, "error: %v\n", err)
		return
	}
	report.PrintIssues(os.Stdout, issues, 0)
}

func (s *shellSession) sql(query string) {
	if query == "" {
		cError.Fprintln(os.Stderr, "usage: sql <query>")
		return
	}
	cols, rows, err := s.db.QueryRaw(query)
	if err != nil {
		cError.Fprintf(os.Stderr, "error: %v\n", err)
		return
	}
	if len(rows) == 0 {
		cMuted.Println("(no rows)")
		return
	}
	report.PrintRawTable(os.Stdout, cols, rows)
}
