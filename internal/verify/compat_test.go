package verify

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jakerosado/preflight/internal/introspect"
	"github.com/jakerosado/preflight/internal/query"
	"github.com/jakerosado/preflight/internal/queryset"
)

// declCol shortens declared-column construction in the diff tests.
type declCol struct {
	name     string
	kind     query.TypeKind
	nullable query.Nullability
}

func siteQuery(sql string, params []query.TypeTag, cols []declCol) queryset.Query {
	q := queryset.Query{File: "internal/users/store.go", Line: 42, SQL: sql, Params: params}
	if cols != nil {
		q.Columns = []queryset.DeclaredColumn{}
		for _, c := range cols {
			q.Columns = append(q.Columns, queryset.DeclaredColumn{
				Name:     c.name,
				Type:     query.Tag(c.kind),
				Nullable: c.nullable,
			})
		}
	}
	return q
}

func TestCompatibleSameKind(t *testing.T) {
	for kind := query.KindBool; kind <= query.KindAny; kind++ {
		assert.True(t, Compatible(query.Tag(kind), query.Tag(kind)), "kind %s with itself", kind)
	}
}

func TestCompatibleWidening(t *testing.T) {
	tests := []struct {
		declared, actual query.TypeKind
	}{
		{query.KindInt2, query.KindInt4},
		{query.KindInt2, query.KindInt8},
		{query.KindInt4, query.KindInt8},
		{query.KindFloat4, query.KindFloat8},
		{query.KindVarchar, query.KindText},
		{query.KindBpchar, query.KindText},
		{query.KindInt2Array, query.KindInt4Array},
		{query.KindInt2Array, query.KindInt8Array},
		{query.KindInt4Array, query.KindInt8Array},
		{query.KindFloat4Array, query.KindFloat8Array},
		{query.KindVarcharArray, query.KindTextArray},
	}
	for _, tt := range tests {
		assert.True(t, Compatible(query.Tag(tt.declared), query.Tag(tt.actual)),
			"%s should widen to %s", tt.declared, tt.actual)
		assert.False(t, Compatible(query.Tag(tt.actual), query.Tag(tt.declared)),
			"widening is directional: %s must not narrow to %s", tt.actual, tt.declared)
	}
}

func TestCompatibleAnyActual(t *testing.T) {
	// a dynamically typed actual satisfies every declaration
	for kind := query.KindBool; kind <= query.KindAny; kind++ {
		assert.True(t, Compatible(query.Tag(kind), query.Tag(query.KindAny)), "declared %s vs actual Any", kind)
	}
}

func TestCompatibleUnrelatedKinds(t *testing.T) {
	assert.False(t, Compatible(query.Tag(query.KindText), query.Tag(query.KindInt8)))
	assert.False(t, Compatible(query.Tag(query.KindUUID), query.Tag(query.KindText)))
	assert.False(t, Compatible(query.Tag(query.KindInt8), query.Tag(query.KindInt8Array)))
	assert.False(t, Compatible(query.Tag(query.KindTimestamp), query.Tag(query.KindTimestamptz)))
}

func TestCompatibleUnsupportedComparesRawName(t *testing.T) {
	assert.True(t, Compatible(query.UnsupportedTag("citext"), query.UnsupportedTag("citext")))
	assert.False(t, Compatible(query.UnsupportedTag("citext"), query.UnsupportedTag("hstore")))
	assert.False(t, Compatible(query.UnsupportedTag("citext"), query.Tag(query.KindText)))
}

func TestDiffDeclaredParamArity(t *testing.T) {
	q := siteQuery("SELECT id FROM users WHERE id = $1 AND org = $2",
		[]query.TypeTag{query.Tag(query.KindInt8), query.Tag(query.KindInt8)}, nil)

	diffs := diffDeclared(q, []query.TypeTag{query.Tag(query.KindInt8)}, nil)
	require.Len(t, diffs, 1)
	assert.Equal(t, DiffParamArity, diffs[0].Field)
	assert.Equal(t, -1, diffs[0].Ordinal)
	assert.Equal(t, "2", diffs[0].Expected)
	assert.Equal(t, "1", diffs[0].Actual)
}

func TestDiffDeclaredParamType(t *testing.T) {
	q := siteQuery("SELECT id FROM users WHERE id = $1",
		[]query.TypeTag{query.Tag(query.KindUUID)}, nil)

	diffs := diffDeclared(q, []query.TypeTag{query.Tag(query.KindInt8)}, nil)
	require.Len(t, diffs, 1)
	assert.Equal(t, DiffParamType, diffs[0].Field)
	assert.Equal(t, 0, diffs[0].Ordinal)
	assert.Equal(t, "Uuid", diffs[0].Expected)
	assert.Equal(t, "Int8", diffs[0].Actual)
}

func TestDiffDeclaredColumnArityShortCircuits(t *testing.T) {
	q := siteQuery("SELECT id, name, email FROM users", nil, []declCol{
		{"id", query.KindInt8, query.NullNever},
		{"name", query.KindText, query.NullPossible},
		{"email", query.KindText, query.NullPossible},
	})

	actual := []query.Column{
		{Ordinal: 0, Name: "id", Type: query.Tag(query.KindInt8), Nullable: query.NullNever},
	}
	diffs := diffDeclared(q, nil, actual)
	require.Len(t, diffs, 1, "arity mismatch suppresses per-column noise")
	assert.Equal(t, DiffColumnArity, diffs[0].Field)
	assert.Equal(t, "3", diffs[0].Expected)
	assert.Equal(t, "1", diffs[0].Actual)
}

func TestDiffDeclaredColumnFields(t *testing.T) {
	q := siteQuery("SELECT id, name FROM users", nil, []declCol{
		{"id", query.KindInt8, query.NullNever},
		{"name", query.KindText, query.NullNever},
	})

	actual := []query.Column{
		{Ordinal: 0, Name: "user_id", Type: query.Tag(query.KindInt4), Nullable: query.NullNever},
		{Ordinal: 1, Name: "name", Type: query.Tag(query.KindText), Nullable: query.NullPossible},
	}
	diffs := diffDeclared(q, nil, actual)
	require.Len(t, diffs, 3)

	assert.Equal(t, DiffColumnName, diffs[0].Field)
	assert.Equal(t, 0, diffs[0].Ordinal)
	assert.Equal(t, "id", diffs[0].Expected)
	assert.Equal(t, "user_id", diffs[0].Actual)

	assert.Equal(t, DiffColumnType, diffs[1].Field)
	assert.Equal(t, 0, diffs[1].Ordinal)
	assert.Equal(t, "Int8", diffs[1].Expected)
	assert.Equal(t, "Int4", diffs[1].Actual)

	assert.Equal(t, DiffNullability, diffs[2].Field)
	assert.Equal(t, 1, diffs[2].Ordinal)
	assert.Equal(t, "not null", diffs[2].Expected)
	assert.Equal(t, "nullable", diffs[2].Actual)
}

func TestDiffDeclaredNullabilityPolicy(t *testing.T) {
	actualFor := func(n query.Nullability) []query.Column {
		return []query.Column{{Ordinal: 0, Name: "c", Type: query.Tag(query.KindText), Nullable: n}}
	}
	declaredFor := func(n query.Nullability) queryset.Query {
		return siteQuery("SELECT c FROM t", nil, []declCol{{"c", query.KindText, n}})
	}

	// declared non-null against proven nullable is the only failure
	assert.NotEmpty(t, diffDeclared(declaredFor(query.NullNever), nil, actualFor(query.NullPossible)))

	assert.Empty(t, diffDeclared(declaredFor(query.NullNever), nil, actualFor(query.NullNever)))
	assert.Empty(t, diffDeclared(declaredFor(query.NullNever), nil, actualFor(query.NullUnknown)),
		"unknown never fails a check by itself")
	assert.Empty(t, diffDeclared(declaredFor(query.NullPossible), nil, actualFor(query.NullNever)),
		"opting into nullable handling tolerates a non-null column")
	assert.Empty(t, diffDeclared(declaredFor(query.NullPossible), nil, actualFor(query.NullPossible)))
	assert.Empty(t, diffDeclared(declaredFor(query.NullUnknown), nil, actualFor(query.NullPossible)),
		"a site with no claim accepts anything")
}

func TestDiffDeclaredNFCNames(t *testing.T) {
	// "café" spelled composed in source, decomposed by the database
	q := siteQuery("SELECT café FROM menu", nil, []declCol{
		{"café", query.KindText, query.NullUnknown},
	})
	actual := []query.Column{
		{Ordinal: 0, Name: "café", Type: query.Tag(query.KindText), Nullable: query.NullUnknown},
	}

	assert.Empty(t, diffDeclared(q, nil, actual),
		"NFC-equal identifiers are the same name")
}

func TestDiffDeclaredSkipsUndeclaredSides(t *testing.T) {
	q := siteQuery("SELECT id FROM users WHERE id = $1", nil, nil)

	actual := []query.Column{
		{Ordinal: 0, Name: "id", Type: query.Tag(query.KindInt8), Nullable: query.NullNever},
	}
	assert.Empty(t, diffDeclared(q, []query.TypeTag{query.Tag(query.KindInt8)}, actual),
		"a site that declares nothing cannot mismatch")
}

func TestDiffDriftDetectsDefiniteFlips(t *testing.T) {
	stored := query.NewRecord(query.EnginePostgres, "SELECT id, name FROM users WHERE id = $1",
		[]query.TypeTag{query.Tag(query.KindInt8)},
		[]query.Column{
			{Ordinal: 0, Name: "id", Type: query.Tag(query.KindInt8), Nullable: query.NullNever},
			{Ordinal: 1, Name: "name", Type: query.Tag(query.KindText), Nullable: query.NullPossible},
		})

	fresh := introspect.Description{
		Parameters: []query.TypeTag{query.Tag(query.KindInt8)},
		Columns: []query.Column{
			{Ordinal: 0, Name: "id", Type: query.Tag(query.KindInt8), Nullable: query.NullPossible},
			{Ordinal: 1, Name: "name", Type: query.Tag(query.KindText), Nullable: query.NullNever},
		},
	}

	diffs := diffDrift(stored, fresh)
	require.Len(t, diffs, 2, "flips in both directions are drift")
	assert.Equal(t, DiffNullability, diffs[0].Field)
	assert.Equal(t, 0, diffs[0].Ordinal)
	assert.Equal(t, DiffNullability, diffs[1].Field)
	assert.Equal(t, 1, diffs[1].Ordinal)
}

func TestDiffDriftUnknownIsNotDrift(t *testing.T) {
	stored := query.NewRecord(query.EnginePostgres, "SELECT total FROM orders",
		nil,
		[]query.Column{
			{Ordinal: 0, Name: "total", Type: query.Tag(query.KindNumeric), Nullable: query.NullUnknown},
		})

	fresh := introspect.Description{
		Columns: []query.Column{
			{Ordinal: 0, Name: "total", Type: query.Tag(query.KindNumeric), Nullable: query.NullNever},
		},
	}

	assert.Empty(t, diffDrift(stored, fresh),
		"unknown gaining a proof is refinement, not drift")
}

func TestDiffDriftExactTypesNoWidening(t *testing.T) {
	stored := query.NewRecord(query.EnginePostgres, "SELECT id FROM users",
		nil,
		[]query.Column{
			{Ordinal: 0, Name: "id", Type: query.Tag(query.KindInt4), Nullable: query.NullNever},
		})

	fresh := introspect.Description{
		Columns: []query.Column{
			{Ordinal: 0, Name: "id", Type: query.Tag(query.KindInt8), Nullable: query.NullNever},
		},
	}

	diffs := diffDrift(stored, fresh)
	require.Len(t, diffs, 1, "the same hash must describe identically; widening is for declarations")
	assert.Equal(t, DiffColumnType, diffs[0].Field)
}

func TestDiffDriftParamAndArity(t *testing.T) {
	stored := query.NewRecord(query.EnginePostgres, "SELECT id FROM users WHERE id = $1",
		[]query.TypeTag{query.Tag(query.KindInt8)},
		[]query.Column{
			{Ordinal: 0, Name: "id", Type: query.Tag(query.KindInt8), Nullable: query.NullNever},
		})

	fresh := introspect.Description{
		Parameters: []query.TypeTag{query.Tag(query.KindUUID)},
		Columns:    []query.Column{},
	}

	diffs := diffDrift(stored, fresh)
	require.Len(t, diffs, 2)
	assert.Equal(t, DiffParamType, diffs[0].Field)
	assert.Equal(t, DiffColumnArity, diffs[1].Field)
}
