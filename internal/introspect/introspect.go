package introspect

import (
	"context"
	"fmt"

	"github.com/jakerosado/preflight/internal/query"
)

// Description is the database's answer for one query.
type Description struct {
	Parameters []query.TypeTag
	Columns    []query.Column
}

// Describer produces descriptions for query text against one database.
// Implementations are safe for concurrent use by multiple verifier
// workers.
type Describer interface {
	// Describe prepares sql and reports its parameter and column shape
	// without executing it. paramBound is the caller's expected parameter
	// count, used only by engines that cannot count placeholders
	// themselves; pass a negative bound when there is no expectation.
	Describe(ctx context.Context, sql string, paramBound int) (Description, error)

	// Engine returns the engine name, one of query.EnginePostgres or
	// query.EngineSQLite.
	Engine() string

	// Close releases the underlying connections.
	Close() error
}

// Open connects a Describer for engine. target is a connection URL for
// postgres and a database path for sqlite. maxConns bounds concurrent
// describes; sqlite always runs on a single connection.
func Open(ctx context.Context, engine, target string, maxConns int) (Describer, error) {
	switch engine {
	case query.EnginePostgres:
		return NewPostgresDescriber(ctx, target, maxConns)
	case query.EngineSQLite:
		return NewSQLiteDescriber(ctx, target)
	default:
		return nil, fmt.Errorf("unknown engine %q", engine)
	}
}
