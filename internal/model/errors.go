package model

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinel kinds, matched with errors.Is against the typed errors below.
var (
	ErrMalformedMatch    = errors.New("malformed match")
	ErrInconsistentEvent = errors.New("inconsistent event")
	ErrUnknownPlayer     = errors.New("unknown player reference")
)

// IssueKind is the stable label under which an error is stored and counted.
type IssueKind string

const (
	IssueMalformedMatch    IssueKind = "malformed_match"
	IssueInconsistentEvent IssueKind = "inconsistent_event"
	IssueUnknownPlayer     IssueKind = "unknown_player"
	IssueOther             IssueKind = "other"
)

// MalformedMatchError rejects a record that cannot be a valid two-player match.
type MalformedMatchError struct {
	Match  Match
	Reason string
}

func (e *MalformedMatchError) Error() string {
	return fmt.Sprintf("malformed match %s (%s vs %s, winner %q): %s",
		e.Match.Ref(), e.Match.PlayerA, e.Match.PlayerB, e.Match.Winner, e.Reason)
}

func (e *MalformedMatchError) Unwrap() error { return ErrMalformedMatch }

// InconsistentEventError reports one event identifier carrying conflicting
// values for Field across rows or sources.
type InconsistentEventError struct {
	EventID string
	Field   string // "date" or "tier"
	Values  []string
}

func (e *InconsistentEventError) Error() string {
	return fmt.Sprintf("event %s has conflicting %s values: %s",
		e.EventID, e.Field, strings.Join(e.Values, ", "))
}

func (e *InconsistentEventError) Unwrap() error { return ErrInconsistentEvent }

// UnknownPlayerReferenceError reports a roster row whose player never appears
// in the match feed.
type UnknownPlayerReferenceError struct {
	EventID  string
	PlayerID string
}

func (e *UnknownPlayerReferenceError) Error() string {
	return fmt.Sprintf("roster of event %s references player %s absent from all match data",
		e.EventID, e.PlayerID)
}

func (e *UnknownPlayerReferenceError) Unwrap() error { return ErrUnknownPlayer }

// Issue is the flattened, storable form of a collected error.
type Issue struct {
	Kind     IssueKind
	EventID  string
	PlayerID string
	Detail   string
}

// Report collects data-validation errors in the order they were found.
// The zero value is ready to use.
type Report struct {
	errs []error
}

// Add appends err; nil is ignored.
func (r *Report) Add(err error) {
	if err != nil {
		r.errs = append(r.errs, err)
	}
}

// Merge appends all errors of other.
func (r *Report) Merge(other *Report) {
	if other != nil {
		r.errs = append(r.errs, other.errs...)
	}
}

// Len returns the number of collected errors.
func (r *Report) Len() int { return len(r.errs) }

// Errors returns a copy of the collected errors.
func (r *Report) Errors() []error {
	out := make([]error, len(r.errs))
	copy(out, r.errs)
	return out
}

// Err joins all collected errors, or returns nil when the report is clean.
func (r *Report) Err() error {
	return errors.Join(r.errs...)
}

// Count returns how many collected errors match target via errors.Is.
func (r *Report) Count(target error) int {
	n := 0
	for _, err := range r.errs {
		if errors.Is(err, target) {
			n++
		}
	}
	return n
}

// Issues flattens the report for storage and display.
func (r *Report) Issues() []Issue {
	out := make([]Issue, 0, len(r.errs))
	for _, err := range r.errs {
		out = append(out, IssueOf(err))
	}
	return out
}

// IssueOf classifies a single error.
func IssueOf(err error) Issue {
	var (
		mm *MalformedMatchError
		ie *InconsistentEventError
		up *UnknownPlayerReferenceError
	)
	switch {
	case errors.As(err, &mm):
		player := mm.Match.PlayerA
		if mm.Match.PlayerB != "" && mm.Match.PlayerB != player {
			player += "," + mm.Match.PlayerB
		}
		return Issue{Kind: IssueMalformedMatch, EventID: mm.Match.EventID, PlayerID: player, Detail: err.Error()}
	case errors.As(err, &ie):
		return Issue{Kind: IssueInconsistentEvent, EventID: ie.EventID, Detail: err.Error()}
	case errors.As(err, &up):
		return Issue{Kind: IssueUnknownPlayer, EventID: up.EventID, PlayerID: up.PlayerID, Detail: err.Error()}
	default:
		return Issue{Kind: IssueOther, Detail: err.Error()}
	}
}
