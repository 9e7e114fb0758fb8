package introspect

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"fmt"
	"strings"

	"github.com/mattn/go-sqlite3"

	"github.com/jakerosado/preflight/internal/query"
)

// SQLiteDescriber describes queries by preparing them on a raw driver
// connection. SQLite exposes column names and declared types right after
// prepare, so no row is ever stepped.
type SQLiteDescriber struct {
	db *sql.DB
}

// NewSQLiteDescriber opens the database at path. The pool is pinned to a
// single connection; SQLite allows one writer and the describer never
// needs more.
func NewSQLiteDescriber(ctx context.Context, path string) (*SQLiteDescriber, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, classifySQLite("connecting", err)
	}
	return &SQLiteDescriber{db: db}, nil
}

// Engine returns query.EngineSQLite.
func (d *SQLiteDescriber) Engine() string {
	return query.EngineSQLite
}

// Close releases the connection.
func (d *SQLiteDescriber) Close() error {
	return d.db.Close()
}

// Describe prepares sql and reads its shape from the driver. SQLite is
// dynamically typed: parameters carry no declared type and columns report
// their declared type's affinity, so every parameter is Any and every
// column's nullability is unknown. paramBound covers the rare statement
// whose placeholder count the driver reports as unknowable.
func (d *SQLiteDescriber) Describe(ctx context.Context, sqlText string, paramBound int) (Description, error) {
	conn, err := d.db.Conn(ctx)
	if err != nil {
		return Description{}, classifySQLite("acquiring connection", err)
	}
	defer conn.Close()

	var desc Description
	rawErr := conn.Raw(func(driverConn any) error {
		sc, ok := driverConn.(*sqlite3.SQLiteConn)
		if !ok {
			return fmt.Errorf("unexpected driver connection type %T", driverConn)
		}

		stmt, err := sc.Prepare(sqlText)
		if err != nil {
			return classifySQLite("describing query", err)
		}
		defer stmt.Close()

		argc := stmt.NumInput()
		if argc < 0 {
			if paramBound < 0 {
				paramBound = 0
			}
			argc = paramBound
		}
		params := make([]query.TypeTag, argc)
		for i := range params {
			params[i] = query.Tag(query.KindAny)
		}

		// binding all NULLs and asking for the row shape; the first step
		// only happens on Next, which is never called
		rows, err := stmt.Query(make([]driver.Value, argc))
		if err != nil {
			return classifySQLite("describing query", err)
		}
		defer rows.Close()

		names := rows.Columns()
		liteRows, ok := rows.(*sqlite3.SQLiteRows)
		if !ok {
			return fmt.Errorf("unexpected driver rows type %T", rows)
		}
		declTypes := liteRows.DeclTypes()

		cols := make([]query.Column, len(names))
		for i, name := range names {
			decl := ""
			if i < len(declTypes) {
				decl = declTypes[i]
			}
			cols[i] = query.Column{
				Ordinal:  i,
				Name:     name,
				Type:     query.Tag(affinityKind(decl)),
				Nullable: query.NullUnknown,
			}
		}
		desc = Description{Parameters: params, Columns: cols}
		return nil
	})
	if rawErr != nil {
		return Description{}, rawErr
	}
	return desc, nil
}

// affinityKind maps a declared column type to the catalog through
// SQLite's affinity rules: the first matching substring wins, in the
// order the engine itself checks them. An empty declared type is an
// expression column, which is dynamically typed.
func affinityKind(decl string) query.TypeKind {
	d := strings.ToUpper(decl)
	switch {
	case d == "":
		return query.KindAny
	case strings.Contains(d, "INT"):
		return query.KindInt8
	case strings.Contains(d, "CHAR"), strings.Contains(d, "CLOB"), strings.Contains(d, "TEXT"):
		return query.KindText
	case strings.Contains(d, "BLOB"):
		return query.KindBytea
	case strings.Contains(d, "REAL"), strings.Contains(d, "FLOA"), strings.Contains(d, "DOUB"):
		return query.KindFloat8
	default:
		return query.KindNumeric
	}
}

// classifySQLite maps driver failures onto the DBError taxonomy. Context
// cancellation passes through untouched.
func classifySQLite(stage string, err error) error {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}

	var liteErr sqlite3.Error
	if errors.As(err, &liteErr) {
		switch liteErr.Code {
		case sqlite3.ErrPerm, sqlite3.ErrAuth:
			return NewPermissionDeniedError(liteErr.Error(), err)
		case sqlite3.ErrCantOpen, sqlite3.ErrNotADB, sqlite3.ErrBusy, sqlite3.ErrLocked:
			return NewConnectionLostError(fmt.Sprintf("%s: %s", stage, liteErr.Error()), err)
		default:
			// ErrError and friends: the engine rejected the statement
			return NewSyntaxError(liteErr.Error(), 0, err)
		}
	}
	return NewConnectionLostError(stage, err)
}
