package feed

import (
	"fmt"
	"io"

	"github.com/pable/fgc-elo/internal/model"
)

type lookupKey struct {
	source model.Source // "" matches any source
	id     string
}

// Lookup maps a source-local identifier to its canonical one. It is a pure
// table produced upstream; nothing here guesses at fuzzy matches.
type Lookup struct {
	m map[lookupKey]string
}

// Len returns the number of mappings.
func (l *Lookup) Len() int {
	if l == nil {
		return 0
	}
	return len(l.m)
}

// Resolve returns the canonical id for (source, id): an exact source match
// first, then a source-less row, else id unchanged.
func (l *Lookup) Resolve(source model.Source, id string) string {
	if l == nil || id == "" {
		return id
	}
	if v, ok := l.m[lookupKey{source, id}]; ok {
		return v
	}
	if v, ok := l.m[lookupKey{"", id}]; ok {
		return v
	}
	return id
}

// ReadIdentityMap parses "source, source_player_id, player_id" rows.
func ReadIdentityMap(r io.Reader) (*Lookup, error) {
	return readLookup(r, "source_player_id", "player_id")
}

// ReadEventMap parses "source, source_event_id, event_id" rows.
func ReadEventMap(r io.Reader) (*Lookup, error) {
	return readLookup(r, "source_event_id", "event_id")
}

func readLookup(r io.Reader, fromCol, toCol string) (*Lookup, error) {
	cr := newReader(r)
	h, err := readHeader(cr, []string{fromCol, toCol})
	if err != nil {
		return nil, err
	}
	l := &Lookup{m: make(map[lookupKey]string)}
	for line := 1; ; line++ {
		row, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", line, err)
		}
		var src model.Source
		if s := h.get(row, "source"); s != "" {
			if src, err = model.ParseSource(s); err != nil {
				return nil, fmt.Errorf("row %d: %w", line, err)
			}
		}
		from, to := h.get(row, fromCol), h.get(row, toCol)
		if from == "" || to == "" {
			return nil, fmt.Errorf("row %d: empty %s or %s", line, fromCol, toCol)
		}
		key := lookupKey{src, from}
		if prev, dup := l.m[key]; dup && prev != to {
			return nil, fmt.Errorf("row %d: %s %q mapped to both %q and %q", line, fromCol, from, prev, to)
		}
		l.m[key] = to
	}
	return l, nil
}

// Canonicalize rewrites player and event identifiers of both feeds in place.
// Either lookup may be nil.
func Canonicalize(matches []model.Match, roster []model.RosterEntry, players, events *Lookup) {
	for i := range matches {
		m := &matches[i]
		m.EventID = events.Resolve(m.Source, m.EventID)
		m.PlayerA = players.Resolve(m.Source, m.PlayerA)
		m.PlayerB = players.Resolve(m.Source, m.PlayerB)
		if m.Outcome == model.OutcomeWin {
			m.Winner = players.Resolve(m.Source, m.Winner)
		}
	}
	for i := range roster {
		r := &roster[i]
		r.EventID = events.Resolve(r.Source, r.EventID)
		r.PlayerID = players.Resolve(r.Source, r.PlayerID)
	}
}
