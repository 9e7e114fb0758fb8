package introspect

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/jakerosado/preflight/internal/query"
)

// PostgresDescriber describes queries through the extended protocol's
// prepare/describe round trip. Nothing is executed; the statement is
// prepared under a unique name, its shape read, and deallocated.
type PostgresDescriber struct {
	pool *pgxpool.Pool
}

// NewPostgresDescriber connects a pool to url. maxConns should match the
// verifier's worker count so describes never queue behind each other.
func NewPostgresDescriber(ctx context.Context, url string, maxConns int) (*PostgresDescriber, error) {
	cfg, err := pgxpool.ParseConfig(url)
	if err != nil {
		return nil, fmt.Errorf("parsing database url: %w", err)
	}
	if maxConns > 0 {
		cfg.MaxConns = int32(maxConns)
	}

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, classifyPostgres("connecting", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, classifyPostgres("connecting", err)
	}
	return &PostgresDescriber{pool: pool}, nil
}

// Engine returns query.EnginePostgres.
func (d *PostgresDescriber) Engine() string {
	return query.EnginePostgres
}

// Close releases the pool.
func (d *PostgresDescriber) Close() error {
	d.pool.Close()
	return nil
}

// Describe prepares sql and maps the engine's statement description into
// the catalog. Postgres counts placeholders itself, so paramBound is not
// consulted.
func (d *PostgresDescriber) Describe(ctx context.Context, sql string, paramBound int) (Description, error) {
	poolConn, err := d.pool.Acquire(ctx)
	if err != nil {
		return Description{}, classifyPostgres("acquiring connection", err)
	}
	defer poolConn.Release()
	conn := poolConn.Conn()

	name := "preflight_" + uuid.NewString()
	sd, err := conn.Prepare(ctx, name, sql)
	if err != nil {
		return Description{}, classifyPostgres("describing query", err)
	}
	defer conn.Deallocate(ctx, name)

	params := make([]query.TypeTag, len(sd.ParamOIDs))
	for i, oid := range sd.ParamOIDs {
		kind, ok := kindForOID(oid)
		if !ok {
			return Description{}, NewUnknownTypeError(
				fmt.Sprintf("parameter %d", i+1), d.typeName(ctx, conn, oid))
		}
		params[i] = query.Tag(kind)
	}

	outerJoin := query.HasOuterJoin(sql)
	memo := map[attrKey]query.Nullability{}
	cols := make([]query.Column, len(sd.Fields))
	for i, f := range sd.Fields {
		kind, ok := kindForOID(f.DataTypeOID)
		if !ok {
			return Description{}, NewUnknownTypeError(
				fmt.Sprintf("column %d (%s)", i, f.Name), d.typeName(ctx, conn, f.DataTypeOID))
		}
		nullable, err := d.columnNullability(ctx, conn, f, outerJoin, memo)
		if err != nil {
			return Description{}, err
		}
		cols[i] = query.Column{
			Ordinal:  i,
			Name:     f.Name,
			Type:     query.Tag(kind),
			Nullable: nullable,
		}
	}
	return Description{Parameters: params, Columns: cols}, nil
}

type attrKey struct {
	rel uint32
	num uint16
}

// columnNullability resolves the tri-state for one result column.
// Expression columns have no base table and stay unknown. Table columns
// consult pg_attribute.attnotnull; a NOT NULL column still downgrades to
// unknown when the query contains an outer join, because the inner side
// of such a join produces NULLs the constraint cannot prevent.
func (d *PostgresDescriber) columnNullability(ctx context.Context, conn *pgx.Conn, f pgconn.FieldDescription, outerJoin bool, memo map[attrKey]query.Nullability) (query.Nullability, error) {
	if f.TableOID == 0 {
		return query.NullUnknown, nil
	}
	key := attrKey{rel: f.TableOID, num: f.TableAttributeNumber}
	if n, ok := memo[key]; ok {
		return n, nil
	}

	var notNull bool
	err := conn.QueryRow(ctx,
		"SELECT attnotnull FROM pg_attribute WHERE attrelid = $1 AND attnum = $2",
		f.TableOID, int16(f.TableAttributeNumber),
	).Scan(&notNull)
	switch {
	case errors.Is(err, pgx.ErrNoRows):
		memo[key] = query.NullUnknown
		return query.NullUnknown, nil
	case err != nil:
		return query.NullUnknown, classifyPostgres("reading column constraints", err)
	}

	n := query.NullPossible
	if notNull {
		if outerJoin {
			n = query.NullUnknown
		} else {
			n = query.NullNever
		}
	}
	memo[key] = n
	return n, nil
}

// typeName looks up a friendly name for an OID so unknown-type errors can
// name the type instead of a bare number.
func (d *PostgresDescriber) typeName(ctx context.Context, conn *pgx.Conn, oid uint32) string {
	var name string
	err := conn.QueryRow(ctx, "SELECT typname FROM pg_type WHERE oid = $1", oid).Scan(&name)
	if err != nil {
		return fmt.Sprintf("oid %d", oid)
	}
	return name
}

// classifyPostgres maps driver failures onto the DBError taxonomy.
// Context cancellation passes through untouched so the verifier can tell
// a stopped run from a broken database.
func classifyPostgres(stage string, err error) error {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		class := errClass(pgErr.Code)
		switch {
		case pgErr.Code == "42501" || class == "28":
			return NewPermissionDeniedError(pgErr.Message, err)
		case class == "42":
			return NewSyntaxError(pgErr.Message, int(pgErr.Position), err)
		case class == "08" || class == "53" || class == "57" || class == "3D":
			return NewConnectionLostError(fmt.Sprintf("%s: %s", stage, pgErr.Message), err)
		default:
			// remaining engine complaints are about the query, not the wire
			return NewSyntaxError(pgErr.Message, int(pgErr.Position), err)
		}
	}

	// everything else that is not an engine complaint is wire trouble:
	// dial failures, resets, closed pools, truncated reads
	return NewConnectionLostError(stage, err)
}

func errClass(code string) string {
	if len(code) < 2 {
		return code
	}
	return code[:2]
}
