// Package testutil provides shared test doubles.
package testutil

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/jakerosado/preflight/internal/introspect"
	"github.com/jakerosado/preflight/internal/query"
)

// CountingDescriber is a scripted introspect.Describer. It answers from a
// fixed table keyed by exact SQL text and counts every Describe call, so
// tests can prove the cache short-circuit (zero calls) and the worker
// bound (max in flight).
type CountingDescriber struct {
	// EngineName defaults to postgres.
	EngineName string

	// Results maps SQL text to the canned description.
	Results map[string]introspect.Description

	// Errs maps SQL text to a canned error, taking precedence over
	// Results.
	Errs map[string]error

	// Delay is held inside each Describe call, for concurrency tests.
	Delay time.Duration

	mu          sync.Mutex
	calls       int
	inFlight    int
	maxInFlight int
	closed      bool
}

// Describe implements introspect.Describer.
func (d *CountingDescriber) Describe(ctx context.Context, sql string, paramBound int) (introspect.Description, error) {
	d.mu.Lock()
	d.calls++
	d.inFlight++
	if d.inFlight > d.maxInFlight {
		d.maxInFlight = d.inFlight
	}
	d.mu.Unlock()

	defer func() {
		d.mu.Lock()
		d.inFlight--
		d.mu.Unlock()
	}()

	if d.Delay > 0 {
		select {
		case <-ctx.Done():
			return introspect.Description{}, ctx.Err()
		case <-time.After(d.Delay):
		}
	}
	if err := ctx.Err(); err != nil {
		return introspect.Description{}, err
	}

	if err, ok := d.Errs[sql]; ok {
		return introspect.Description{}, err
	}
	if desc, ok := d.Results[sql]; ok {
		return desc, nil
	}
	return introspect.Description{}, fmt.Errorf("no scripted description for %q", sql)
}

// Engine implements introspect.Describer.
func (d *CountingDescriber) Engine() string {
	if d.EngineName == "" {
		return query.EnginePostgres
	}
	return d.EngineName
}

// Close implements introspect.Describer.
func (d *CountingDescriber) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.closed = true
	return nil
}

// Calls returns how many times Describe ran.
func (d *CountingDescriber) Calls() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.calls
}

// MaxInFlight returns the highest number of concurrent Describe calls
// observed.
func (d *CountingDescriber) MaxInFlight() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.maxInFlight
}

// Closed reports whether Close was called.
func (d *CountingDescriber) Closed() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.closed
}
