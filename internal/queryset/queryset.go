// Package queryset reads the query listing produced by the source scanner:
// every literal query found in the codebase with its location and the
// types the source declares for parameters and columns. The listing is the
// input contract; preflight never scans source itself.
package queryset

import (
	"fmt"

	"github.com/jakerosado/preflight/internal/query"
)

// SetVersion is the queryset document version this build reads.
const SetVersion = 1

// Set is a parsed queryset document.
type Set struct {
	Version int     `json:"version"`
	Queries []Query `json:"queries"`
}

// Query is one discovered query site. Params and Columns are the
// expectations the source declares; a nil slice means the site declares
// nothing on that side and only the introspected shape is cached, while an
// empty non-nil slice is a declaration of zero.
type Query struct {
	File    string           `json:"file"`
	Line    int              `json:"line"`
	SQL     string           `json:"sql"`
	Params  []query.TypeTag  `json:"params,omitempty"`
	Columns []DeclaredColumn `json:"columns,omitempty"`
}

// DeclaredColumn is a source-declared column expectation. Nullable false
// means the source assumes non-null; true means it opts into nullable
// handling; null in the document means it makes no claim.
type DeclaredColumn struct {
	Name     string            `json:"name"`
	Type     query.TypeTag     `json:"type"`
	Nullable query.Nullability `json:"nullable"`
}

// Hash returns the content hash of the query against engine.
func (q Query) Hash(engine string) string {
	return query.HashQuery(engine, q.SQL)
}

// Location renders the source site as file:line, or empty when the scanner
// did not record one.
func (q Query) Location() string {
	if q.File == "" {
		return ""
	}
	return fmt.Sprintf("%s:%d", q.File, q.Line)
}

// DeclaresParams reports whether the site declares parameter types.
func (q Query) DeclaresParams() bool {
	return q.Params != nil
}

// DeclaresColumns reports whether the site declares column expectations.
func (q Query) DeclaresColumns() bool {
	return q.Columns != nil
}
