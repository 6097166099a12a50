package timeline

import (
	"regexp"
	"strconv"
	"strings"
)

// Phase ranks within one event. Pools run before the bracket, the bracket
// before grand finals, and a bracket reset last.
const (
	phasePools = iota
	phaseBracket
	phaseGrandFinal
	phaseReset
)

// Named bracket rounds sort after any numbered round of the same side.
const (
	roundQuarter = 100 + iota
	roundSemi
	roundFinal
	maxNumberedRound = 99
)

var roundNumberRe = regexp.MustCompile(`\d+`)

// RoundOrdinal derives the intra-event ordering rank of a round/stage label
// as written by either collector ("Winners Round 2", "Upper Bracket
// Semi-Final", "Pools Round 1", "Grand Final Reset", ...). Unrecognised
// labels rank as bracket round 0; the caller's tie-break keeps them stable.
func RoundOrdinal(label string) int {
	l := strings.ToLower(strings.TrimSpace(label))
	l = strings.NewReplacer("-", " ", "_", " ").Replace(l)

	phase := phaseBracket
	switch {
	case strings.Contains(l, "grand") && strings.Contains(l, "reset"):
		return phaseReset * 10000
	case strings.Contains(l, "grand"):
		return phaseGrandFinal * 10000
	case strings.Contains(l, "pool"), strings.Contains(l, "group"), strings.Contains(l, "qualif"):
		phase = phasePools
	}

	side := 0
	if strings.Contains(l, "loser") || strings.Contains(l, "lower") {
		side = 1
	}

	round := 0
	switch {
	case strings.Contains(l, "quarter"):
		round = roundQuarter
	case strings.Contains(l, "semi"):
		round = roundSemi
	case strings.Contains(l, "final"):
		round = roundFinal
	default:
		if m := roundNumberRe.FindString(l); m != "" {
			n, err := strconv.Atoi(m)
			if err == nil {
				round = min(n, maxNumberedRound)
			}
		}
	}
	return phase*10000 + round*10 + side
}
