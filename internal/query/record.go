package query

import "fmt"

// RecordSchemaVersion is the schema version written to new records.
// Loading a record with a greater version fails with a version mismatch;
// older versions are upgraded transparently as long as they decode.
const RecordSchemaVersion = 1

// CacheRecord is one verified query: the exact source text, the typed
// parameter and column shape as described by the database, and the content
// hash that names the record on disk. Records are immutable; a changed
// query produces a new hash and therefore a new record.
type CacheRecord struct {
	SchemaVersion int       `json:"schema_version"`
	Engine        string    `json:"db"`
	QueryText     string    `json:"query_text"`
	Parameters    []TypeTag `json:"parameters"`
	Columns       []Column  `json:"columns"`
	ContentHash   string    `json:"content_hash"`
}

// NewRecord builds a record for sql against engine, computing the content
// hash from the normalized text. Nil parameter and column slices become
// empty slices so the JSON encoding is [] rather than null.
func NewRecord(engine, sql string, params []TypeTag, cols []Column) CacheRecord {
	if params == nil {
		params = []TypeTag{}
	}
	if cols == nil {
		cols = []Column{}
	}
	return CacheRecord{
		SchemaVersion: RecordSchemaVersion,
		Engine:        engine,
		QueryText:     sql,
		Parameters:    params,
		Columns:       cols,
		ContentHash:   HashQuery(engine, sql),
	}
}

// Validate checks the record's structural invariants: a known engine,
// non-empty query text, dense in-order column ordinals, and a content hash
// that matches the stored text. A record whose hash disagrees with its own
// text is corrupt, not stale; staleness is only ever judged against source.
func (r CacheRecord) Validate() error {
	if r.SchemaVersion < 1 {
		return NewCorruptError(fmt.Sprintf("schema_version %d is not positive", r.SchemaVersion), nil)
	}
	if r.SchemaVersion > RecordSchemaVersion {
		return NewVersionMismatchError(r.SchemaVersion)
	}
	if !KnownEngine(r.Engine) {
		return NewCorruptError(fmt.Sprintf("unknown engine %q", r.Engine), nil)
	}
	if r.QueryText == "" {
		return NewCorruptError("empty query_text", nil)
	}
	if !ValidHash(r.ContentHash) {
		return NewCorruptError(fmt.Sprintf("malformed content_hash %q", r.ContentHash), nil)
	}
	if want := HashQuery(r.Engine, r.QueryText); r.ContentHash != want {
		return NewCorruptError(fmt.Sprintf("content_hash %s does not match query text (want %s)", ShortHash(r.ContentHash), ShortHash(want)), nil)
	}
	for i, col := range r.Columns {
		if col.Ordinal != i {
			return NewCorruptError(fmt.Sprintf("column %d has ordinal %d, want %d", i, col.Ordinal, i), nil)
		}
		if col.Name == "" {
			return NewCorruptError(fmt.Sprintf("column %d has empty name", i), nil)
		}
	}
	return nil
}

// Filename returns the cache file name for the record, query-<hash>.json.
func (r CacheRecord) Filename() string {
	return RecordFilename(r.ContentHash)
}

// RecordFilename returns the cache file name for a content hash.
func RecordFilename(hash string) string {
	return "query-" + hash + ".json"
}

// HashFromFilename extracts the content hash from a cache file name.
// Returns false for names that are not well-formed record files, including
// the temporary names the store writes before renaming.
func HashFromFilename(name string) (string, bool) {
	const prefix, suffix = "query-", ".json"
	if len(name) != len(prefix)+64+len(suffix) {
		return "", false
	}
	if name[:len(prefix)] != prefix || name[len(name)-len(suffix):] != suffix {
		return "", false
	}
	hash := name[len(prefix) : len(name)-len(suffix)]
	if !ValidHash(hash) {
		return "", false
	}
	return hash, true
}
