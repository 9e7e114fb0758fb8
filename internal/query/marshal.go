package query

import (
	"bytes"
	"encoding/json"
)

// Marshal renders the record as its on-disk JSON document: two-space
// indent, HTML escaping off, trailing newline. The encoding is byte-stable
// for identical records so cache files diff cleanly under version control.
func (r CacheRecord) Marshal() ([]byte, error) {
	if err := r.Validate(); err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(r); err != nil {
		return nil, NewCorruptError("encode record", err)
	}
	return buf.Bytes(), nil
}

// UnmarshalRecord parses and validates an on-disk record. The schema
// version is probed before full decoding so a record from a newer preflight
// reports a version mismatch rather than a spurious corruption.
func UnmarshalRecord(data []byte) (CacheRecord, error) {
	var probe struct {
		SchemaVersion *int `json:"schema_version"`
	}
	if err := json.Unmarshal(data, &probe); err != nil {
		return CacheRecord{}, NewCorruptError("record is not valid JSON", err)
	}
	if probe.SchemaVersion == nil {
		return CacheRecord{}, NewCorruptError("missing schema_version", nil)
	}
	if *probe.SchemaVersion > RecordSchemaVersion {
		return CacheRecord{}, NewVersionMismatchError(*probe.SchemaVersion)
	}

	var r CacheRecord
	if err := json.Unmarshal(data, &r); err != nil {
		return CacheRecord{}, NewCorruptError("decode record", err)
	}
	// empty slices, not nil, match what Marshal writes
	if r.Parameters == nil {
		r.Parameters = []TypeTag{}
	}
	if r.Columns == nil {
		r.Columns = []Column{}
	}
	if err := r.Validate(); err != nil {
		return CacheRecord{}, err
	}
	return r, nil
}
