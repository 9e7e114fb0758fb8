package verify

import (
	"encoding/json"
	"fmt"

	"github.com/jakerosado/preflight/internal/cache"
	"github.com/jakerosado/preflight/internal/queryset"
)

// State is a verification state. Every query starts Pending, routes
// through CacheHit or NeedsIntrospection, and ends in exactly one of
// Verified, Mismatched, or Failed.
type State int

const (
	StatePending State = iota
	StateCacheHit
	StateNeedsIntrospection
	StateVerified
	StateMismatched
	StateFailed
)

var stateNames = [...]string{
	StatePending:            "pending",
	StateCacheHit:           "cache-hit",
	StateNeedsIntrospection: "needs-introspection",
	StateVerified:           "verified",
	StateMismatched:         "mismatched",
	StateFailed:             "failed",
}

func (s State) String() string {
	if s < 0 || int(s) >= len(stateNames) {
		return fmt.Sprintf("State(%d)", int(s))
	}
	return stateNames[s]
}

// MarshalJSON renders the state name.
func (s State) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.String())
}

// Terminal reports whether the state is an end state.
func (s State) Terminal() bool {
	return s == StateVerified || s == StateMismatched || s == StateFailed
}

// DiffField names the aspect of the shape a diff is about.
type DiffField string

const (
	DiffParamArity  DiffField = "parameter-arity"
	DiffParamType   DiffField = "parameter-type"
	DiffColumnArity DiffField = "column-arity"
	DiffColumnName  DiffField = "column-name"
	DiffColumnType  DiffField = "column-type"
	DiffNullability DiffField = "nullability"
)

// Diff is one concrete disagreement between an expected shape and the
// actual one. Ordinal is the zero-based parameter or column position,
// -1 for arity diffs.
type Diff struct {
	Field    DiffField `json:"field"`
	Ordinal  int       `json:"ordinal"`
	Expected string    `json:"expected"`
	Actual   string    `json:"actual"`
}

func (d Diff) String() string {
	switch d.Field {
	case DiffParamArity:
		return fmt.Sprintf("parameters: expected %s, actual %s", d.Expected, d.Actual)
	case DiffColumnArity:
		return fmt.Sprintf("columns: expected %s, actual %s", d.Expected, d.Actual)
	default:
		return fmt.Sprintf("%s %d: expected %s, actual %s", d.Field, d.Ordinal, d.Expected, d.Actual)
	}
}

// Outcome is the final result for one query site. Via records which route
// the query took: StateCacheHit when the stored record answered, or
// StateNeedsIntrospection when the database was asked.
type Outcome struct {
	Query queryset.Query
	Hash  string
	State State
	Via   State
	Diffs []Diff
	Err   error
}

// RunResult is everything one verifier run produced, in queryset order.
type RunResult struct {
	RunID    string
	Engine   string
	Mode     Mode
	Outcomes []Outcome
	Stale    []string
	Issues   []cache.LoadIssue
}

// AllVerified reports whether every query ended Verified.
func (r *RunResult) AllVerified() bool {
	for _, o := range r.Outcomes {
		if o.State != StateVerified {
			return false
		}
	}
	return true
}

// Counts tallies outcomes by final state.
func (r *RunResult) Counts() (verified, mismatched, failed int) {
	for _, o := range r.Outcomes {
		switch o.State {
		case StateVerified:
			verified++
		case StateMismatched:
			mismatched++
		case StateFailed:
			failed++
		}
	}
	return verified, mismatched, failed
}
