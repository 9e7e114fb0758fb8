package queryset

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"

	"github.com/jakerosado/preflight/internal/query"
)

// LoadError reports a problem with the queryset document or one of its
// entries. Site carries the offending query's file:line when the problem
// is entry-level.
type LoadError struct {
	Code    string
	Message string
	Site    string
}

func (e *LoadError) Error() string {
	if e.Site != "" {
		return fmt.Sprintf("%s: %s: %s", e.Site, e.Code, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Load error codes.
const (
	ErrCodeNotFound    = "QUERYSET_NOT_FOUND"
	ErrCodeInvalidJSON = "QUERYSET_INVALID_JSON"
	ErrCodeVersion     = "QUERYSET_VERSION"
	ErrCodeBadQuery    = "QUERYSET_BAD_QUERY"
)

// Load reads and validates a queryset document. Entry-level problems are
// collected across the whole document rather than stopping at the first,
// so the scanner author sees every disagreement at once. The returned set
// is only meaningful when the error slice is empty.
func Load(path string) (*Set, []error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, []error{&LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("queryset not found: %s", path)}}
		}
		return nil, []error{&LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("reading queryset %s: %v", path, err)}}
	}
	return Parse(data)
}

// Parse decodes and validates a queryset document from raw bytes.
func Parse(data []byte) (*Set, []error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()

	var set Set
	if err := dec.Decode(&set); err != nil {
		return nil, []error{&LoadError{Code: ErrCodeInvalidJSON, Message: fmt.Sprintf("decoding queryset: %v", err)}}
	}
	if set.Version != SetVersion {
		return nil, []error{&LoadError{
			Code:    ErrCodeVersion,
			Message: fmt.Sprintf("queryset version %d, this build reads version %d", set.Version, SetVersion),
		}}
	}

	var errs []error
	for i := range set.Queries {
		errs = append(errs, validateQuery(i, set.Queries[i])...)
	}
	if len(errs) > 0 {
		return &set, errs
	}
	return &set, nil
}

// validateQuery checks one entry. The type vocabulary is closed between
// the scanner and preflight: a declared name outside the catalog is the
// scanner disagreeing with this build, which is a load error, never a
// silent Unsupported.
func validateQuery(idx int, q Query) []error {
	site := q.Location()
	if site == "" {
		site = fmt.Sprintf("queries[%d]", idx)
	}

	var errs []error
	bad := func(format string, args ...any) {
		errs = append(errs, &LoadError{Code: ErrCodeBadQuery, Message: fmt.Sprintf(format, args...), Site: site})
	}

	if q.SQL == "" {
		bad("empty sql")
	}
	if q.Line < 0 {
		bad("negative line %d", q.Line)
	}
	for i, tag := range q.Params {
		if tag.Kind == query.KindUnsupported {
			bad("param %d declares unknown type %q", i, tag.Raw)
		}
	}
	for i, col := range q.Columns {
		if col.Name == "" {
			bad("column %d has empty name", i)
		}
		if col.Type.Kind == query.KindUnsupported {
			bad("column %d (%s) declares unknown type %q", i, col.Name, col.Type.Raw)
		}
	}
	return errs
}
