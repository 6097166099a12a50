package rating

import (
	"errors"
	"fmt"
	"iter"
	"sort"

	"github.com/pable/fgc-elo/internal/model"
)

// ErrStreamHalted is returned for matches involving a player whose stream was
// halted by an earlier malformed match.
var ErrStreamHalted = errors.New("player stream halted")

// Side is one participant's view of an applied match.
type Side struct {
	Before model.PlayerRating
	After  model.PlayerRating
	K      float64
	Score  float64 // actual score; meaningless when the formula was skipped
}

// Update is the outcome of applying one match.
type Update struct {
	Seq   int
	Match model.Match
	A, B  Side

	// Rated is false for no-contests: ratings are untouched.
	Rated bool
	// Counted is false when a no-contest left MatchesPlayed alone too.
	Counted bool
}

// Result returns the history code for player ("W", "L", "D" or "NC").
func (u Update) Result(player string) string {
	if !u.Rated {
		return "NC"
	}
	s := u.A.Score
	if player == u.Match.PlayerB {
		s = u.B.Score
	}
	switch s {
	case 1:
		return "W"
	case 0:
		return "L"
	default:
		return "D"
	}
}

// Side returns player's side of the update.
func (u Update) Side(player string) Side {
	if player == u.Match.PlayerB {
		return u.B
	}
	return u.A
}

// Pass is the rating state of one chronological fold. It is the only owner
// of mutable rating state; callers read it through copies.
type Pass struct {
	policy  Policy
	players map[string]model.PlayerRating
	halted  map[string]error
	seq     int
}

// NewPass starts an empty fold under policy.
func NewPass(policy Policy) *Pass {
	return &Pass{
		policy:  policy,
		players: make(map[string]model.PlayerRating),
		halted:  make(map[string]error),
	}
}

// Policy returns the policy the pass runs under.
func (p *Pass) Policy() Policy { return p.policy }

// Rating returns id's current state, or the seeded default for a player the
// pass has not seen yet.
func (p *Pass) Rating(id string) model.PlayerRating {
	if r, ok := p.players[id]; ok {
		return r
	}
	return p.policy.Seed(id)
}

// Known reports whether id has taken part in at least one applied match.
func (p *Pass) Known(id string) bool {
	_, ok := p.players[id]
	return ok
}

// Halted returns the error that halted id's stream, or nil.
func (p *Pass) Halted(id string) error { return p.halted[id] }

// Applied returns how many matches have been applied so far.
func (p *Pass) Applied() int { return p.seq }

// Apply folds one match into the state. A malformed match halts the streams
// of both named participants and returns a *model.MalformedMatchError; later
// matches touching a halted player return ErrStreamHalted and change nothing.
func (p *Pass) Apply(m model.Match) (Update, error) {
	if m.PlayerA == "" || m.PlayerB == "" || m.PlayerA == m.PlayerB {
		return Update{}, &model.MalformedMatchError{Match: m, Reason: "match must reference two distinct players"}
	}
	for _, id := range []string{m.PlayerA, m.PlayerB} {
		if cause := p.halted[id]; cause != nil {
			return Update{}, fmt.Errorf("%w: %s (%s)", ErrStreamHalted, id, m.Ref())
		}
	}

	var sa float64
	switch m.Outcome {
	case model.OutcomeWin:
		switch m.Winner {
		case m.PlayerA:
			sa = 1
		case m.PlayerB:
			sa = 0
		default:
			err := &model.MalformedMatchError{Match: m, Reason: "winner is not one of the participants"}
			p.halted[m.PlayerA] = err
			p.halted[m.PlayerB] = err
			return Update{}, err
		}
	case model.OutcomeDraw:
		sa = 0.5
	case model.OutcomeNoContest:
		return p.applyNoContest(m), nil
	default:
		return Update{}, &model.MalformedMatchError{Match: m, Reason: fmt.Sprintf("unknown outcome %d", m.Outcome)}
	}

	a, b := p.Rating(m.PlayerA), p.Rating(m.PlayerB)
	ka := p.policy.K(m.Tier, a.Provisional)
	kb := p.policy.K(m.Tier, b.Provisional)
	da, db := Delta(a.Rating, b.Rating, ka, kb, sa)

	u := Update{
		Seq:     p.seq,
		Match:   m,
		A:       Side{Before: a, K: ka, Score: sa},
		B:       Side{Before: b, K: kb, Score: 1 - sa},
		Rated:   true,
		Counted: true,
	}
	u.A.After = p.advance(a, a.Rating+da)
	u.B.After = p.advance(b, b.Rating+db)
	p.players[m.PlayerA] = u.A.After
	p.players[m.PlayerB] = u.B.After
	p.seq++
	return u, nil
}

func (p *Pass) applyNoContest(m model.Match) Update {
	a, b := p.Rating(m.PlayerA), p.Rating(m.PlayerB)
	u := Update{
		Seq:     p.seq,
		Match:   m,
		A:       Side{Before: a, After: a},
		B:       Side{Before: b, After: b},
		Counted: p.policy.CountNoContests,
	}
	if u.Counted {
		u.A.After = p.advance(a, a.Rating)
		u.B.After = p.advance(b, b.Rating)
	}
	p.players[m.PlayerA] = u.A.After
	p.players[m.PlayerB] = u.B.After
	p.seq++
	return u
}

// advance counts one more match. Provisional status only ever clears.
func (p *Pass) advance(r model.PlayerRating, rating float64) model.PlayerRating {
	r.Rating = rating
	r.MatchesPlayed++
	if r.Provisional && r.MatchesPlayed >= p.policy.ProvisionalThreshold {
		r.Provisional = false
	}
	return r
}

// Final returns every known player's state sorted by player id.
func (p *Pass) Final() []model.PlayerRating {
	out := make([]model.PlayerRating, 0, len(p.players))
	for _, r := range p.players {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].PlayerID < out[j].PlayerID })
	return out
}

// Clone copies the pass so a caller can continue from this point without
// disturbing the original.
func (p *Pass) Clone() *Pass {
	c := NewPass(p.policy)
	for id, r := range p.players {
		c.players[id] = r
	}
	for id, err := range p.halted {
		c.halted[id] = err
	}
	c.seq = p.seq
	return c
}

// Fold applies every match of seq in order and returns the updates together
// with the errors met on the way. Halted-stream skips are reported as errors
// too; callers separate them with errors.Is(err, ErrStreamHalted).
func (p *Pass) Fold(seq iter.Seq[model.Match]) ([]Update, []error) {
	var (
		updates []Update
		errs    []error
	)
	for m := range seq {
		u, err := p.Apply(m)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		updates = append(updates, u)
	}
	return updates, errs
}
