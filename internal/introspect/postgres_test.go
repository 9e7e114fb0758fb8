package introspect

import (
	"context"
	"errors"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jakerosado/preflight/internal/query"
)

func TestKindForOID(t *testing.T) {
	tests := []struct {
		name string
		oid  uint32
		kind query.TypeKind
	}{
		{"int8", pgtype.Int8OID, query.KindInt8},
		{"text", pgtype.TextOID, query.KindText},
		{"timestamptz", pgtype.TimestamptzOID, query.KindTimestamptz},
		{"uuid", pgtype.UUIDOID, query.KindUUID},
		{"jsonb", pgtype.JSONBOID, query.KindJSONB},
		{"text array", pgtype.TextArrayOID, query.KindTextArray},
		{"int8 array", pgtype.Int8ArrayOID, query.KindInt8Array},
		{"untyped literal", pgtype.UnknownOID, query.KindAny},
		{"engine declined to infer", 0, query.KindAny},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			kind, ok := kindForOID(tt.oid)
			require.True(t, ok)
			assert.Equal(t, tt.kind, kind)
		})
	}
}

func TestKindForOIDRejectsUnmapped(t *testing.T) {
	// tsvector
	_, ok := kindForOID(3614)
	assert.False(t, ok, "OIDs outside the catalog must not be guessed at")
}

func TestClassifyPostgresErrorCodes(t *testing.T) {
	tests := []struct {
		name  string
		code  string
		check func(error) bool
	}{
		{"undefined column is a query problem", "42703", IsSyntaxError},
		{"syntax error proper", "42601", IsSyntaxError},
		{"undefined function", "42883", IsSyntaxError},
		{"insufficient privilege", "42501", IsPermissionDenied},
		{"invalid password", "28P01", IsPermissionDenied},
		{"connection failure class", "08006", IsConnectionLost},
		{"too many connections", "53300", IsConnectionLost},
		{"shutdown in progress", "57P01", IsConnectionLost},
		{"unknown database", "3D000", IsConnectionLost},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := classifyPostgres("describing query", &pgconn.PgError{Code: tt.code, Message: "engine says no"})
			assert.True(t, tt.check(err), "code %s misclassified: %v", tt.code, err)
		})
	}
}

func TestClassifyPostgresKeepsPosition(t *testing.T) {
	pgErr := &pgconn.PgError{Code: "42601", Message: `syntax error at or near "FORM"`, Position: 11}

	err := classifyPostgres("describing query", pgErr)
	var de *DBError
	require.ErrorAs(t, err, &de)
	assert.Equal(t, 11, de.Position)
	assert.Contains(t, de.Error(), "position 11")
}

func TestClassifyPostgresPassesThroughCancellation(t *testing.T) {
	assert.ErrorIs(t, classifyPostgres("x", context.Canceled), context.Canceled)
	assert.ErrorIs(t, classifyPostgres("x", context.DeadlineExceeded), context.DeadlineExceeded)
}

func TestClassifyPostgresWireFailures(t *testing.T) {
	err := classifyPostgres("acquiring connection", errors.New("dial tcp 127.0.0.1:5432: connect: connection refused"))
	assert.True(t, IsConnectionLost(err))
}
