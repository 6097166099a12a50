// Package rating implements the Elo update rule and the single sequential
// pass that folds an ordered match stream into per-player rating state.
package rating

import "math"

// Spread is the rating difference at which the stronger player is expected
// to win ten times as often as the weaker one.
const Spread = 400.0

// Expected returns A's expected score against B.
func Expected(ra, rb float64) float64 {
	return 1 / (1 + math.Pow(10, (rb-ra)/Spread))
}

// Delta returns the rating changes for A and B given A's actual score sa
// (1 win, 0.5 draw, 0 loss). B's change is computed from the same residual
// with the sign flipped, so equal K values give exactly opposite deltas.
func Delta(ra, rb, ka, kb, sa float64) (da, db float64) {
	residual := sa - Expected(ra, rb)
	return ka * residual, -kb * residual
}
