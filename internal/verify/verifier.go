// Package verify drives the per-query state machine: hash the source
// text, consult the cache snapshot, ask the database only when the cache
// cannot answer, and reconcile declared expectations against the actual
// shape. Queries fail independently; one broken query never hides the
// verdict on the rest.
package verify

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/jakerosado/preflight/internal/cache"
	"github.com/jakerosado/preflight/internal/introspect"
	"github.com/jakerosado/preflight/internal/query"
	"github.com/jakerosado/preflight/internal/queryset"
)

// Mode selects how the verifier treats the cache and the database.
type Mode int

const (
	// ModeCheck verifies offline against the cache alone. A missing
	// record fails with a message naming the fix.
	ModeCheck Mode = iota
	// ModeRefresh introspects cache misses and writes fresh records.
	ModeRefresh
	// ModeRevalidate introspects every query, hit or not, and reports
	// drift between stored records and the live schema.
	ModeRevalidate
)

var modeNames = [...]string{
	ModeCheck:      "check",
	ModeRefresh:    "refresh",
	ModeRevalidate: "revalidate",
}

func (m Mode) String() string {
	if m < 0 || int(m) >= len(modeNames) {
		return fmt.Sprintf("Mode(%d)", int(m))
	}
	return modeNames[m]
}

// NeedsDatabase reports whether the mode requires a live connection.
func (m Mode) NeedsDatabase() bool {
	return m != ModeCheck
}

// Defaults for Options fields left zero.
const (
	DefaultWorkers        = 4
	DefaultRetryAttempts  = 2
	DefaultRetryBaseDelay = 500 * time.Millisecond
)

// Options tune a verifier run.
type Options struct {
	// Engine is the target engine name. Defaults to the describer's own
	// when one is present.
	Engine string

	// Mode is the run mode.
	Mode Mode

	// Workers bounds concurrent verification. Match it to the database
	// connection limit.
	Workers int

	// RetryAttempts and RetryBaseDelay shape the reconnect policy for
	// lost connections during describe.
	RetryAttempts  int
	RetryBaseDelay time.Duration
}

// Verifier verifies one queryset against one cache directory.
type Verifier struct {
	store *cache.Store
	db    introspect.Describer
	opts  Options
}

// New builds a verifier. db may be nil only for ModeCheck.
func New(store *cache.Store, db introspect.Describer, opts Options) (*Verifier, error) {
	if opts.Engine == "" && db != nil {
		opts.Engine = db.Engine()
	}
	if !query.KnownEngine(opts.Engine) {
		return nil, fmt.Errorf("unknown engine %q", opts.Engine)
	}
	if opts.Mode.NeedsDatabase() && db == nil {
		return nil, fmt.Errorf("%s mode requires a database connection", opts.Mode)
	}
	if opts.Workers <= 0 {
		opts.Workers = DefaultWorkers
	}
	if opts.RetryAttempts <= 0 {
		opts.RetryAttempts = DefaultRetryAttempts
	}
	if opts.RetryBaseDelay <= 0 {
		opts.RetryBaseDelay = DefaultRetryBaseDelay
	}
	return &Verifier{store: store, db: db, opts: opts}, nil
}

// Run verifies every query in the set. The cache is snapshotted once up
// front, so a run always judges against one consistent cache state.
// Distinct hashes verify concurrently under the worker bound; duplicate
// sites share one verdict and outcomes come back in queryset order.
// Per-query problems land in the outcomes; the returned error is reserved
// for infrastructure failures and cancellation.
func (v *Verifier) Run(ctx context.Context, set *queryset.Set) (*RunResult, error) {
	records, issues, err := v.store.LoadAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("loading cache: %w", err)
	}
	slog.Info("cache loaded",
		"dir", v.store.Dir(),
		"records", len(records),
		"issues", len(issues))

	// one unit of work per distinct hash
	type unit struct {
		hash  string
		query queryset.Query
		sites []int
	}
	var units []unit
	byHash := map[string]int{}
	live := map[string]bool{}
	for i, q := range set.Queries {
		hash := q.Hash(v.opts.Engine)
		live[hash] = true
		if j, ok := byHash[hash]; ok {
			units[j].sites = append(units[j].sites, i)
			continue
		}
		byHash[hash] = len(units)
		units = append(units, unit{hash: hash, query: q, sites: []int{i}})
	}

	verdicts := make([]Outcome, len(units))
	jobs := make(chan int)
	var wg sync.WaitGroup
	for w := 0; w < v.opts.Workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for idx := range jobs {
				verdicts[idx] = v.verifyOne(ctx, units[idx].hash, units[idx].query, records)
			}
		}()
	}

dispatch:
	for i := range units {
		select {
		case jobs <- i:
		case <-ctx.Done():
			break dispatch
		}
	}
	close(jobs)
	wg.Wait()

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	stale, err := v.store.Stale(live)
	if err != nil {
		return nil, fmt.Errorf("listing stale records: %w", err)
	}

	outcomes := make([]Outcome, len(set.Queries))
	for u := range units {
		for _, site := range units[u].sites {
			o := verdicts[u]
			o.Query = set.Queries[site]
			outcomes[site] = o
		}
	}

	res := &RunResult{
		RunID:    uuid.NewString(),
		Engine:   v.opts.Engine,
		Mode:     v.opts.Mode,
		Outcomes: outcomes,
		Stale:    stale,
		Issues:   issues,
	}
	verified, mismatched, failed := res.Counts()
	slog.Info("verification finished",
		"mode", v.opts.Mode.String(),
		"queries", len(outcomes),
		"verified", verified,
		"mismatched", mismatched,
		"failed", failed,
		"stale", len(stale))
	return res, nil
}

// verifyOne runs the state machine for a single hash. A cache hit never
// touches the database outside revalidate mode; the stored record stands
// in as the actual shape and the declared expectations are checked
// against it offline.
func (v *Verifier) verifyOne(ctx context.Context, hash string, q queryset.Query, records map[string]query.CacheRecord) Outcome {
	out := Outcome{Query: q, Hash: hash, State: StatePending}

	rec, hit := records[hash]
	if hit && v.opts.Mode != ModeRevalidate {
		out.Via = StateCacheHit
		out.Diffs = diffDeclared(q, rec.Parameters, rec.Columns)
		if len(out.Diffs) > 0 {
			out.State = StateMismatched
		} else {
			out.State = StateVerified
		}
		slog.Debug("cache hit",
			"hash", query.ShortHash(hash),
			"state", out.State.String())
		return out
	}

	out.Via = StateNeedsIntrospection
	if v.opts.Mode == ModeCheck {
		out.State = StateFailed
		out.Err = &MissingRecordError{Hash: hash}
		return out
	}

	bound := -1
	if q.DeclaresParams() {
		bound = len(q.Params)
	}
	var desc introspect.Description
	err := introspect.Retry(ctx, v.opts.RetryAttempts, v.opts.RetryBaseDelay, introspect.IsConnectionLost,
		func(ctx context.Context) error {
			var derr error
			desc, derr = v.db.Describe(ctx, q.SQL, bound)
			return derr
		})
	if err != nil {
		out.State = StateFailed
		out.Err = err
		slog.Debug("describe failed",
			"hash", query.ShortHash(hash),
			"error", err)
		return out
	}

	out.Diffs = diffDeclared(q, desc.Parameters, desc.Columns)
	if hit {
		out.Diffs = append(out.Diffs, diffDrift(rec, desc)...)
	}
	if len(out.Diffs) > 0 {
		out.State = StateMismatched
		return out
	}

	if err := v.store.Put(query.NewRecord(v.opts.Engine, q.SQL, desc.Parameters, desc.Columns)); err != nil {
		out.State = StateFailed
		out.Err = err
		return out
	}
	out.State = StateVerified
	slog.Debug("record written", "hash", query.ShortHash(hash))
	return out
}
