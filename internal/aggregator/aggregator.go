// Package aggregator drives one rating pass over a timeline and taps it to
// produce pre-event participation snapshots, the per-match rating history
// and final ratings.
package aggregator

import (
	"errors"
	"fmt"
	"sort"
	"time"

	"go.uber.org/zap"

	"github.com/pable/fgc-elo/internal/model"
	"github.com/pable/fgc-elo/internal/rating"
	"github.com/pable/fgc-elo/internal/timeline"
)

// Observer is notified as the pass streams. Implementations must not block.
type Observer interface {
	MatchApplied(u rating.Update)
	MatchSkipped(m model.Match, err error)
	SnapshotEmitted(s model.RatingSnapshot)
}

// SkippedMatch is a match that never reached the update rule.
type SkippedMatch struct {
	Match model.Match
	Cause error
}

// WithheldSnapshot is a roster pair that got no snapshot.
type WithheldSnapshot struct {
	PlayerID string
	EventID  string
	Cause    error
}

// Result is the immutable output of one pass.
type Result struct {
	// Snapshots are grouped by event (chronological) then player id.
	Snapshots     []model.RatingSnapshot
	History       []model.HistoryEntry
	Final         []model.PlayerRating
	Participation []model.TierParticipation
	Skipped       []SkippedMatch
	Withheld      []WithheldSnapshot
	Applied       int
	Report        *model.Report
}

type options struct {
	strictRoster bool
	logger       *zap.Logger
	observers    []Observer
}

// Option configures Aggregate and Run.
type Option func(*options)

// WithStrictRoster drops roster rows of players absent from all match data
// instead of giving them a seeded snapshot.
func WithStrictRoster(strict bool) Option {
	return func(o *options) { o.strictRoster = strict }
}

// WithLogger sets the logger; the default discards everything.
func WithLogger(l *zap.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.logger = l
		}
	}
}

// WithObserver registers an observer for the streaming pass.
func WithObserver(obs Observer) Option {
	return func(o *options) {
		if obs != nil {
			o.observers = append(o.observers, obs)
		}
	}
}

// Run builds the timeline from raw feeds and aggregates it.
func Run(matches []model.Match, roster []model.RosterEntry, policy rating.Policy, opts ...Option) (*Result, error) {
	return Aggregate(timeline.Build(matches, roster), policy, opts...)
}

// Aggregate performs a single chronological pass over tl. The returned error
// is non-nil only for an unusable policy; data problems land in
// Result.Report so the caller can choose between partial output and halting.
func Aggregate(tl *timeline.Timeline, policy rating.Policy, opts ...Option) (*Result, error) {
	if err := policy.Validate(); err != nil {
		return nil, fmt.Errorf("rating policy: %w", err)
	}
	o := options{logger: zap.NewNop()}
	for _, opt := range opts {
		opt(&o)
	}
	log := o.logger.Named("aggregator")

	res := &Result{Report: tl.Report()}
	pass := rating.NewPass(policy)
	events := tl.Events()

	entered := make(map[string]int) // events entered so far, per player
	flushed := make(map[string]bool)

	flush := func(ev model.Event) {
		if flushed[ev.ID] {
			return
		}
		flushed[ev.ID] = true
		for _, r := range ev.Roster {
			if !tl.Named(r.PlayerID) {
				res.Report.Add(&model.UnknownPlayerReferenceError{EventID: ev.ID, PlayerID: r.PlayerID})
				if o.strictRoster {
					res.Withheld = append(res.Withheld, WithheldSnapshot{PlayerID: r.PlayerID, EventID: ev.ID, Cause: model.ErrUnknownPlayer})
					continue
				}
			}
			if cause := pass.Halted(r.PlayerID); cause != nil {
				res.Withheld = append(res.Withheld, WithheldSnapshot{PlayerID: r.PlayerID, EventID: ev.ID, Cause: cause})
				continue
			}
			st := pass.Rating(r.PlayerID)
			snap := model.RatingSnapshot{
				PlayerID:            r.PlayerID,
				EventID:             ev.ID,
				EventDate:           ev.Date,
				Tier:                ev.Tier,
				RatingBeforeEvent:   st.Rating,
				MatchesPlayedToDate: st.MatchesPlayed,
				EventsEnteredToDate: entered[r.PlayerID],
				IsProvisional:       st.Provisional,
				FinalPlacement:      r.FinalPlacement,
				Entrants:            len(ev.Roster),
			}
			entered[r.PlayerID]++
			res.Snapshots = append(res.Snapshots, snap)
			for _, obs := range o.observers {
				obs.SnapshotEmitted(snap)
			}
		}
		log.Debug("event snapshot taken",
			zap.String("event", ev.ID),
			zap.String("date", ev.Date.Format(model.DateLayout)),
			zap.Int("roster", len(ev.Roster)),
			zap.Int("applied_so_far", pass.Applied()))
	}

	next := 0
	var today time.Time
	for m := range tl.Matches() {
		// Events dated strictly earlier are over; take their snapshots
		// (roster-only events have no match to trigger them).
		for next < len(events) && events[next].Date.Before(m.EventDate) {
			flush(events[next])
			next++
		}
		// Roster-only events of this date go before the day's first match.
		if !m.EventDate.Equal(today) {
			today = m.EventDate
			for j := next; j < len(events) && events[j].Date.Equal(today); j++ {
				if events[j].Matches == 0 {
					flush(events[j])
				}
			}
		}
		if !flushed[m.EventID] {
			if ev, ok := tl.Event(m.EventID); ok {
				flush(ev)
			}
		}

		u, err := pass.Apply(m)
		if err != nil {
			if errors.Is(err, rating.ErrStreamHalted) {
				res.Skipped = append(res.Skipped, SkippedMatch{Match: m, Cause: err})
			} else {
				res.Report.Add(err)
				res.Skipped = append(res.Skipped, SkippedMatch{Match: m, Cause: err})
				log.Warn("match rejected", zap.String("match", m.Ref()), zap.Error(err))
			}
			for _, obs := range o.observers {
				obs.MatchSkipped(m, err)
			}
			continue
		}
		res.Applied++
		res.History = append(res.History, historyEntry(u, m.PlayerA), historyEntry(u, m.PlayerB))
		for _, obs := range o.observers {
			obs.MatchApplied(u)
		}
	}
	for ; next < len(events); next++ {
		flush(events[next])
	}

	res.Final = pass.Final()
	res.Participation = participation(events)

	log.Info("rating pass complete",
		zap.Int("matches_applied", res.Applied),
		zap.Int("matches_skipped", len(res.Skipped)),
		zap.Int("snapshots", len(res.Snapshots)),
		zap.Int("players", len(res.Final)),
		zap.Int("issues", res.Report.Len()))
	return res, nil
}

func historyEntry(u rating.Update, player string) model.HistoryEntry {
	side := u.Side(player)
	return model.HistoryEntry{
		Seq:           u.Seq,
		EventID:       u.Match.EventID,
		EventDate:     u.Match.EventDate,
		PlayerID:      player,
		OpponentID:    u.Match.Opponent(player),
		Result:        u.Result(player),
		RatingBefore:  side.Before.Rating,
		RatingAfter:   side.After.Rating,
		K:             side.K,
		MatchesPlayed: side.After.MatchesPlayed,
		Provisional:   side.After.Provisional,
	}
}

// participation counts events, roster rows and distinct players per tier.
func participation(events []model.Event) []model.TierParticipation {
	type accum struct {
		events, entrants int
		players          map[string]struct{}
	}
	byTier := make(map[model.Tier]*accum)
	for _, ev := range events {
		a := byTier[ev.Tier]
		if a == nil {
			a = &accum{players: make(map[string]struct{})}
			byTier[ev.Tier] = a
		}
		a.events++
		a.entrants += len(ev.Roster)
		for _, r := range ev.Roster {
			a.players[r.PlayerID] = struct{}{}
		}
	}
	out := make([]model.TierParticipation, 0, len(byTier))
	for tier, a := range byTier {
		out = append(out, model.TierParticipation{
			Tier:     tier,
			Events:   a.events,
			Entrants: a.entrants,
			Players:  len(a.players),
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Tier < out[j].Tier })
	return out
}
