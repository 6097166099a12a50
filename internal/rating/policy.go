package rating

import (
	"fmt"
	"sort"

	"github.com/pable/fgc-elo/internal/model"
)

// Combine selects how the tier K and the provisional boost compose.
type Combine string

const (
	CombineMultiplicative Combine = "multiplicative" // K = tierK * ProvisionalMultiplier
	CombineAdditive       Combine = "additive"       // K = tierK + ProvisionalBonus
)

// Policy holds every tunable of the update rule. Values come from config;
// nothing here is hard-coded in the engine.
type Policy struct {
	InitialRating float64

	// DefaultK applies to tiers missing from TierK.
	DefaultK float64
	TierK    map[model.Tier]float64

	// A player is provisional while MatchesPlayed < ProvisionalThreshold.
	ProvisionalThreshold  int
	ProvisionalMultiplier float64
	ProvisionalBonus      float64
	Combine               Combine

	// CountNoContests makes no-result matches count towards MatchesPlayed.
	CountNoContests bool
}

// DefaultPolicy returns the stock tuning: 1500 seed, K 16 established and
// 32 provisional for the first 10 matches, every tier weighted equally.
func DefaultPolicy() Policy {
	return Policy{
		InitialRating:         1500,
		DefaultK:              16,
		TierK:                 map[model.Tier]float64{},
		ProvisionalThreshold:  10,
		ProvisionalMultiplier: 2,
		ProvisionalBonus:      16,
		Combine:               CombineMultiplicative,
		CountNoContests:       true,
	}
}

// K returns the step size for a player at the given tier.
func (p Policy) K(tier model.Tier, provisional bool) float64 {
	k, ok := p.TierK[tier]
	if !ok {
		k = p.DefaultK
	}
	if !provisional {
		return k
	}
	if p.Combine == CombineAdditive {
		return k + p.ProvisionalBonus
	}
	return k * p.ProvisionalMultiplier
}

// Seed is the state of a player before their first match.
func (p Policy) Seed(id string) model.PlayerRating {
	return model.PlayerRating{
		PlayerID:    id,
		Rating:      p.InitialRating,
		Provisional: p.ProvisionalThreshold > 0,
	}
}

// Validate rejects policies that would make the update rule meaningless.
func (p Policy) Validate() error {
	if p.DefaultK <= 0 {
		return fmt.Errorf("default K must be positive, got %v", p.DefaultK)
	}
	tiers := make([]string, 0, len(p.TierK))
	for t := range p.TierK {
		tiers = append(tiers, string(t))
	}
	sort.Strings(tiers)
	for _, t := range tiers {
		if k := p.TierK[model.Tier(t)]; k <= 0 {
			return fmt.Errorf("K for tier %q must be positive, got %v", t, k)
		}
	}
	if p.ProvisionalThreshold < 0 {
		return fmt.Errorf("provisional threshold must not be negative, got %d", p.ProvisionalThreshold)
	}
	switch p.Combine {
	case CombineMultiplicative:
		if p.ProvisionalMultiplier <= 0 {
			return fmt.Errorf("provisional multiplier must be positive, got %v", p.ProvisionalMultiplier)
		}
	case CombineAdditive:
		if p.ProvisionalBonus < 0 {
			return fmt.Errorf("provisional bonus must not be negative, got %v", p.ProvisionalBonus)
		}
	default:
		return fmt.Errorf("unknown combine mode %q", p.Combine)
	}
	return nil
}
