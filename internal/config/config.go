// Package config defines fgcelo's configuration and how it is loaded.
package config

import (
	"fmt"
	"strings"

	"github.com/pable/fgc-elo/internal/model"
	"github.com/pable/fgc-elo/internal/rating"
)

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	Rating RatingConfig `koanf:"rating"`
	Roster RosterConfig `koanf:"roster"`
}

// RatingConfig is the tunable part of the update rule.
type RatingConfig struct {
	InitialRating float64 `koanf:"initial_rating" json:"initial_rating"`

	// DefaultK is used for tiers missing from TierK.
	DefaultK float64            `koanf:"default_k" json:"default_k"`
	TierK    map[string]float64 `koanf:"tier_k" json:"tier_k"`

	ProvisionalThreshold  int     `koanf:"provisional_threshold" json:"provisional_threshold"`
	ProvisionalMultiplier float64 `koanf:"provisional_multiplier" json:"provisional_multiplier"`
	ProvisionalBonus      float64 `koanf:"provisional_bonus" json:"provisional_bonus"`

	// Combine is "multiplicative" or "additive".
	Combine string `koanf:"combine" json:"combine"`

	CountNoContests bool `koanf:"count_no_contests" json:"count_no_contests"`
}

// RosterConfig controls how roster rows without match data are treated.
type RosterConfig struct {
	// Strict drops roster rows of players absent from all match data.
	Strict bool `koanf:"strict"`
}

// New returns a Config holding the defaults.
func New() *Config {
	p := rating.DefaultPolicy()
	return &Config{
		LogLevel: "info",
		Rating: RatingConfig{
			InitialRating:         p.InitialRating,
			DefaultK:              p.DefaultK,
			TierK:                 map[string]float64{},
			ProvisionalThreshold:  p.ProvisionalThreshold,
			ProvisionalMultiplier: p.ProvisionalMultiplier,
			ProvisionalBonus:      p.ProvisionalBonus,
			Combine:               string(p.Combine),
			CountNoContests:       p.CountNoContests,
		},
	}
}

// Policy converts the rating section into the engine's policy.
func (c *Config) Policy() rating.Policy {
	tiers := make(map[model.Tier]float64, len(c.Rating.TierK))
	for t, k := range c.Rating.TierK {
		tiers[model.Tier(t)] = k
	}
	return rating.Policy{
		InitialRating:         c.Rating.InitialRating,
		DefaultK:              c.Rating.DefaultK,
		TierK:                 tiers,
		ProvisionalThreshold:  c.Rating.ProvisionalThreshold,
		ProvisionalMultiplier: c.Rating.ProvisionalMultiplier,
		ProvisionalBonus:      c.Rating.ProvisionalBonus,
		Combine:               rating.Combine(strings.ToLower(c.Rating.Combine)),
		CountNoContests:       c.Rating.CountNoContests,
	}
}

// Validate checks the log level and the rating policy.
func (c *Config) Validate() error {
	switch strings.ToLower(c.LogLevel) {
	case "debug", "info", "warn", "warning", "error":
	default:
		return fmt.Errorf("%w: unknown log level %q", ErrInvalidConfig, c.LogLevel)
	}
	if err := c.Policy().Validate(); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	return nil
}
