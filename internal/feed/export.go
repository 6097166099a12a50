package feed

import (
	"encoding/csv"
	"io"
	"strconv"

	"github.com/pable/fgc-elo/internal/model"
)

// SnapshotColumns is the header of the player x event export. The first five
// columns are the contract with the model-training stage; the rest are extra
// features.
var SnapshotColumns = []string{
	"player_id", "event_id", "rating_before_event", "matches_played_to_date", "is_provisional",
	"event_date", "tier", "events_entered_to_date", "final_placement", "entrants", "placement_pct",
}

// WriteSnapshots writes snaps as CSV. Ratings use the shortest exact float
// representation so a re-read reproduces them bit for bit.
func WriteSnapshots(w io.Writer, snaps []model.RatingSnapshot) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(SnapshotColumns); err != nil {
		return err
	}
	for _, s := range snaps {
		placement := ""
		if s.FinalPlacement > 0 {
			placement = strconv.Itoa(s.FinalPlacement)
		}
		row := []string{
			s.PlayerID,
			s.EventID,
			strconv.FormatFloat(s.RatingBeforeEvent, 'g', -1, 64),
			strconv.Itoa(s.MatchesPlayedToDate),
			strconv.FormatBool(s.IsProvisional),
			s.EventDate.Format(model.DateLayout),
			string(s.Tier),
			strconv.Itoa(s.EventsEnteredToDate),
			placement,
			strconv.Itoa(s.Entrants),
			strconv.FormatFloat(s.PlacementPct(), 'f', 4, 64),
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteRatings writes final ratings as CSV (player_id, rating, matches_played, is_provisional).
func WriteRatings(w io.Writer, ratings []model.PlayerRating) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"player_id", "rating", "matches_played", "is_provisional"}); err != nil {
		return err
	}
	for _, r := range ratings {
		if err := cw.Write([]string{
			r.PlayerID,
			strconv.FormatFloat(r.Rating, 'g', -1, 64),
			strconv.Itoa(r.MatchesPlayed),
			strconv.FormatBool(r.Provisional),
		}); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}
