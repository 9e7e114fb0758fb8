package verify

import (
	"fmt"

	"golang.org/x/text/unicode/norm"

	"github.com/jakerosado/preflight/internal/introspect"
	"github.com/jakerosado/preflight/internal/query"
	"github.com/jakerosado/preflight/internal/queryset"
)

// widenings maps a declared kind to the actual kinds it widens to without
// loss. The relation is directional: source code holding an Int2 value
// can bind an Int8 parameter, never the reverse.
var widenings = map[query.TypeKind][]query.TypeKind{
	query.KindInt2:         {query.KindInt4, query.KindInt8},
	query.KindInt4:         {query.KindInt8},
	query.KindFloat4:       {query.KindFloat8},
	query.KindVarchar:      {query.KindText},
	query.KindBpchar:       {query.KindText},
	query.KindInt2Array:    {query.KindInt4Array, query.KindInt8Array},
	query.KindInt4Array:    {query.KindInt8Array},
	query.KindFloat4Array:  {query.KindFloat8Array},
	query.KindVarcharArray: {query.KindTextArray},
}

// Compatible reports whether a declared tag is satisfied by the actual
// tag: same kind, a dynamically typed actual, or a lossless widening.
func Compatible(declared, actual query.TypeTag) bool {
	if actual.Kind == query.KindAny {
		return true
	}
	if declared.Kind == actual.Kind {
		if declared.Kind == query.KindUnsupported {
			return declared.Raw == actual.Raw
		}
		return true
	}
	for _, k := range widenings[declared.Kind] {
		if k == actual.Kind {
			return true
		}
	}
	return false
}

// sameName compares column names NFC-normalized and case-sensitively, so
// two Unicode spellings of one identifier never produce a spurious
// mismatch.
func sameName(declared, actual string) bool {
	return norm.NFC.String(declared) == norm.NFC.String(actual)
}

// diffDeclared checks a site's declared expectations against the actual
// shape, which comes from either the stored record or a fresh
// description. Sides the site does not declare are skipped entirely.
func diffDeclared(q queryset.Query, params []query.TypeTag, cols []query.Column) []Diff {
	var diffs []Diff

	if q.DeclaresParams() {
		if len(q.Params) != len(params) {
			diffs = append(diffs, Diff{
				Field:    DiffParamArity,
				Ordinal:  -1,
				Expected: fmt.Sprintf("%d", len(q.Params)),
				Actual:   fmt.Sprintf("%d", len(params)),
			})
		} else {
			for i, declared := range q.Params {
				if !Compatible(declared, params[i]) {
					diffs = append(diffs, Diff{
						Field:    DiffParamType,
						Ordinal:  i,
						Expected: declared.String(),
						Actual:   params[i].String(),
					})
				}
			}
		}
	}

	if q.DeclaresColumns() {
		if len(q.Columns) != len(cols) {
			diffs = append(diffs, Diff{
				Field:    DiffColumnArity,
				Ordinal:  -1,
				Expected: fmt.Sprintf("%d", len(q.Columns)),
				Actual:   fmt.Sprintf("%d", len(cols)),
			})
			return diffs
		}
		for i, declared := range q.Columns {
			actual := cols[i]
			if !sameName(declared.Name, actual.Name) {
				diffs = append(diffs, Diff{
					Field:    DiffColumnName,
					Ordinal:  i,
					Expected: declared.Name,
					Actual:   actual.Name,
				})
			}
			if !Compatible(declared.Type, actual.Type) {
				diffs = append(diffs, Diff{
					Field:    DiffColumnType,
					Ordinal:  i,
					Expected: declared.Type.String(),
					Actual:   actual.Type.String(),
				})
			}
			// the only nullability failure: source assumes non-null, the
			// database says NULL can happen; unknown never fails alone
			if declared.Nullable == query.NullNever && actual.Nullable == query.NullPossible {
				diffs = append(diffs, Diff{
					Field:    DiffNullability,
					Ordinal:  i,
					Expected: declared.Nullable.String(),
					Actual:   actual.Nullable.String(),
				})
			}
		}
	}
	return diffs
}

// diffDrift compares a stored record against a fresh description of the
// same hash. The query text did not change, so any disagreement is the
// database schema moving underneath the cache: type changes, shape
// changes, or a definite nullability flip. Unknown on either side is
// absence of proof and never drift.
func diffDrift(stored query.CacheRecord, fresh introspect.Description) []Diff {
	var diffs []Diff

	if len(stored.Parameters) != len(fresh.Parameters) {
		diffs = append(diffs, Diff{
			Field:    DiffParamArity,
			Ordinal:  -1,
			Expected: fmt.Sprintf("%d", len(stored.Parameters)),
			Actual:   fmt.Sprintf("%d", len(fresh.Parameters)),
		})
	} else {
		for i, was := range stored.Parameters {
			if was != fresh.Parameters[i] {
				diffs = append(diffs, Diff{
					Field:    DiffParamType,
					Ordinal:  i,
					Expected: was.String(),
					Actual:   fresh.Parameters[i].String(),
				})
			}
		}
	}

	if len(stored.Columns) != len(fresh.Columns) {
		diffs = append(diffs, Diff{
			Field:    DiffColumnArity,
			Ordinal:  -1,
			Expected: fmt.Sprintf("%d", len(stored.Columns)),
			Actual:   fmt.Sprintf("%d", len(fresh.Columns)),
		})
		return diffs
	}
	for i, was := range stored.Columns {
		now := fresh.Columns[i]
		if !sameName(was.Name, now.Name) {
			diffs = append(diffs, Diff{
				Field:    DiffColumnName,
				Ordinal:  i,
				Expected: was.Name,
				Actual:   now.Name,
			})
		}
		if was.Type != now.Type {
			diffs = append(diffs, Diff{
				Field:    DiffColumnType,
				Ordinal:  i,
				Expected: was.Type.String(),
				Actual:   now.Type.String(),
			})
		}
		flipped := (was.Nullable == query.NullNever && now.Nullable == query.NullPossible) ||
			(was.Nullable == query.NullPossible && now.Nullable == query.NullNever)
		if flipped {
			diffs = append(diffs, Diff{
				Field:    DiffNullability,
				Ordinal:  i,
				Expected: was.Nullable.String(),
				Actual:   now.Nullable.String(),
			})
		}
	}
	return diffs
}
