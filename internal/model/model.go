package model

import (
	"fmt"
	"strings"
	"time"
)

// DateLayout is the calendar-date format used by the feeds, the store and exports.
const DateLayout = "2006-01-02"

// Source identifies which upstream collector produced a record.
type Source string

const (
	SourceAPI  Source = "startgg"    // tournament platform API
	SourceWiki Source = "liquipedia" // scraped wiki brackets
)

// ParseSource accepts the canonical names plus the loose aliases used by the
// collation scripts ("api", "wiki", ...).
func ParseSource(s string) (Source, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "startgg", "start.gg", "api", "platform":
		return SourceAPI, nil
	case "liquipedia", "wiki", "scraped", "scraped-wiki":
		return SourceWiki, nil
	default:
		return "", fmt.Errorf("unknown source %q", s)
	}
}

// Tier is an event's competitive-weight label (e.g. "1", "S", "major").
type Tier string

// Outcome classifies how a match ended.
type Outcome int

const (
	OutcomeWin       Outcome = iota // Winner holds one of the two participants
	OutcomeDraw                     // both score 0.5
	OutcomeNoContest                // no result; rating formula skipped
)

func (o Outcome) String() string {
	switch o {
	case OutcomeWin:
		return "win"
	case OutcomeDraw:
		return "draw"
	case OutcomeNoContest:
		return "no-contest"
	default:
		return "?"
	}
}

// Match is the canonical normalized match record consumed by the timeline.
type Match struct {
	Source     Source
	EventID    string
	EventDate  time.Time
	Tier       Tier
	RoundLabel string
	Index      int    // row position in the feed; stable tie-break for same-round matches
	Feed       string // file or URL the row was read from; "" when not loaded from a file

	PlayerA, PlayerB string
	Outcome          Outcome
	Winner           string // set only for OutcomeWin
}

// Involves reports whether id is one of the two participants.
func (m Match) Involves(id string) bool {
	return m.PlayerA == id || m.PlayerB == id
}

// Opponent returns the other participant, or "" if id did not play.
func (m Match) Opponent(id string) string {
	switch id {
	case m.PlayerA:
		return m.PlayerB
	case m.PlayerB:
		return m.PlayerA
	default:
		return ""
	}
}

// Ref is a short human-readable reference used in error messages and logs.
func (m Match) Ref() string {
	return fmt.Sprintf("%s/%s#%d", m.Source, m.EventID, m.Index)
}

// RosterEntry is one row of the event-roster feed.
type RosterEntry struct {
	EventID        string
	EventDate      time.Time
	Tier           Tier
	PlayerID       string
	FinalPlacement int    // 0 when unknown
	Source         Source // "" when the feed has no source column
}

// Event is a consolidated event: one identifier, one date, one tier.
type Event struct {
	ID      string
	Date    time.Time
	Tier    Tier
	Sources []Source
	Roster  []RosterEntry // sorted by player id
	Matches int
}

// Placement returns the final standing of player, or 0 if not recorded.
func (e *Event) Placement(player string) int {
	for _, r := range e.Roster {
		if r.PlayerID == player {
			return r.FinalPlacement
		}
	}
	return 0
}

// PlayerRating is the evolving rating state of one player during a pass.
type PlayerRating struct {
	PlayerID      string
	Rating        float64
	MatchesPlayed int
	Provisional   bool
}

// RatingSnapshot is a player's pre-event state. Immutable once emitted.
type RatingSnapshot struct {
	PlayerID            string
	EventID             string
	EventDate           time.Time
	Tier                Tier
	RatingBeforeEvent   float64
	MatchesPlayedToDate int
	EventsEnteredToDate int
	IsProvisional       bool
	FinalPlacement      int // 0 when unknown
	Entrants            int
}

// PlacementPct maps the final placement to [0,1], 1 being the winner.
// Returns 0 when the placement or field size is unknown.
func (s *RatingSnapshot) PlacementPct() float64 {
	if s.FinalPlacement <= 0 || s.Entrants <= 1 {
		return 0
	}
	p := 1 - float64(s.FinalPlacement-1)/float64(s.Entrants-1)
	if p < 0 {
		return 0
	}
	return p
}

// HistoryEntry is one player's side of one applied match.
type HistoryEntry struct {
	Seq           int // position in the global chronological order
	EventID       string
	EventDate     time.Time
	PlayerID      string
	OpponentID    string
	Result        string // "W", "L", "D" or "NC"
	RatingBefore  float64
	RatingAfter   float64
	K             float64
	MatchesPlayed int // after the match
	Provisional   bool
}

// Delta is the rating change applied by this match.
func (h *HistoryEntry) Delta() float64 {
	return h.RatingAfter - h.RatingBefore
}

// TierParticipation counts events and entrants for one tier.
type TierParticipation struct {
	Tier     Tier
	Events   int
	Entrants int // roster rows
	Players  int // distinct players
}

// RunSummary describes one stored rating pass.
type RunSummary struct {
	RunID          string
	CreatedAt      time.Time
	MatchesApplied int
	MatchesSkipped int
	Snapshots      int
	Issues         int
	ConfigJSON     string
}
