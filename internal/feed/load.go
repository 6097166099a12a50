package feed

import (
	"context"
	"fmt"
	"io"
	"path/filepath"

	"golang.org/x/sync/errgroup"

	"github.com/pable/fgc-elo/internal/model"
)

// Paths names the files of one load. Only MatchFiles is required; several
// match files (one per source) are concatenated in the given order.
type Paths struct {
	MatchFiles  []string
	RosterFiles []string
	IdentityMap string
	EventMap    string
}

// Bundle is a fully read and canonicalized feed set.
type Bundle struct {
	Matches []model.Match
	Roster  []model.RosterEntry
	Players *Lookup
	Events  *Lookup
}

// Load reads every file of p concurrently, then applies the lookup tables.
// Reading is the only parallel stage; the result is plain immutable data.
func Load(ctx context.Context, p Paths) (*Bundle, error) {
	if len(p.MatchFiles) == 0 {
		return nil, fmt.Errorf("no match feed given")
	}

	matchParts := make([][]model.Match, len(p.MatchFiles))
	rosterParts := make([][]model.RosterEntry, len(p.RosterFiles))
	var players, events *Lookup

	g, ctx := errgroup.WithContext(ctx)
	for i, path := range p.MatchFiles {
		g.Go(func() error {
			ms, err := readFile(ctx, path, ReadMatches)
			if err != nil {
				return err
			}
			name := FeedName(path)
			for j := range ms {
				ms[j].Feed = name
			}
			matchParts[i] = ms
			return nil
		})
	}
	for i, path := range p.RosterFiles {
		g.Go(func() error {
			rs, err := readFile(ctx, path, ReadRoster)
			if err != nil {
				return err
			}
			rosterParts[i] = rs
			return nil
		})
	}
	if p.IdentityMap != "" {
		g.Go(func() error {
			l, err := readFile(ctx, p.IdentityMap, ReadIdentityMap)
			players = l
			return err
		})
	}
	if p.EventMap != "" {
		g.Go(func() error {
			l, err := readFile(ctx, p.EventMap, ReadEventMap)
			events = l
			return err
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	b := &Bundle{Players: players, Events: events}
	for _, part := range matchParts {
		b.Matches = append(b.Matches, part...)
	}
	for _, part := range rosterParts {
		b.Roster = append(b.Roster, part...)
	}
	Canonicalize(b.Matches, b.Roster, players, events)
	return b, nil
}

// FeedName identifies a match file in storage: the absolute path for local
// files, the URL as given otherwise. Row indexes restart in every file, so
// two files never share stored rows.
func FeedName(path string) string {
	if isURL(path) {
		return path
	}
	if abs, err := filepath.Abs(path); err == nil {
		return abs
	}
	return path
}

func readFile[T any](ctx context.Context, path string, parse func(io.Reader) (T, error)) (T, error) {
	var zero T
	if err := ctx.Err(); err != nil {
		return zero, err
	}
	rc, err := OpenContext(ctx, path)
	if err != nil {
		return zero, fmt.Errorf("open %s: %w", path, err)
	}
	defer rc.Close()
	v, err := parse(rc)
	if err != nil {
		return zero, fmt.Errorf("%s: %w", path, err)
	}
	return v, nil
}
