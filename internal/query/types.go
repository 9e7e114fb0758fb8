package query

import (
	"encoding/json"
	"fmt"
)

// TypeKind identifies a database type in the closed catalog the verifier
// understands. Engine-specific names are mapped into this catalog at
// introspection time; anything outside it becomes KindUnsupported with the
// raw engine name preserved on the tag.
type TypeKind int

const (
	// KindUnsupported is any engine type outside the catalog. It is the
	// zero value so an uninitialized tag never claims a real type.
	KindUnsupported TypeKind = iota
	KindBool
	KindInt2
	KindInt4
	KindInt8
	KindFloat4
	KindFloat8
	KindNumeric
	KindText
	KindVarchar
	KindBpchar
	KindBytea
	KindDate
	KindTime
	KindTimestamp
	KindTimestamptz
	KindInterval
	KindUUID
	KindJSON
	KindJSONB
	KindOID
	KindBoolArray
	KindInt2Array
	KindInt4Array
	KindInt8Array
	KindFloat4Array
	KindFloat8Array
	KindNumericArray
	KindTextArray
	KindVarcharArray
	KindByteaArray
	KindUUIDArray
	// KindAny is a dynamically typed value. SQLite columns without a
	// declared type and expression columns land here; Any is compatible
	// with every declared tag.
	KindAny
)

// kindNames are the canonical wire names. Postgres spellings are kept for
// the catalog so records read naturally next to the engine's own output.
var kindNames = [...]string{
	KindUnsupported:  "Unsupported",
	KindBool:         "Bool",
	KindInt2:         "Int2",
	KindInt4:         "Int4",
	KindInt8:         "Int8",
	KindFloat4:       "Float4",
	KindFloat8:       "Float8",
	KindNumeric:      "Numeric",
	KindText:         "Text",
	KindVarchar:      "Varchar",
	KindBpchar:       "Bpchar",
	KindBytea:        "Bytea",
	KindDate:         "Date",
	KindTime:         "Time",
	KindTimestamp:    "Timestamp",
	KindTimestamptz:  "Timestamptz",
	KindInterval:     "Interval",
	KindUUID:         "Uuid",
	KindJSON:         "Json",
	KindJSONB:        "Jsonb",
	KindOID:          "Oid",
	KindBoolArray:    "BoolArray",
	KindInt2Array:    "Int2Array",
	KindInt4Array:    "Int4Array",
	KindInt8Array:    "Int8Array",
	KindFloat4Array:  "Float4Array",
	KindFloat8Array:  "Float8Array",
	KindNumericArray: "NumericArray",
	KindTextArray:    "TextArray",
	KindVarcharArray: "VarcharArray",
	KindByteaArray:   "ByteaArray",
	KindUUIDArray:    "UuidArray",
	KindAny:          "Any",
}

// kindByName is the reverse of kindNames, excluding Unsupported so unknown
// wire names always carry their raw spelling.
var kindByName = func() map[string]TypeKind {
	m := make(map[string]TypeKind, len(kindNames))
	for k, name := range kindNames {
		if TypeKind(k) == KindUnsupported {
			continue
		}
		m[name] = TypeKind(k)
	}
	return m
}()

func (k TypeKind) String() string {
	if k < 0 || int(k) >= len(kindNames) {
		return fmt.Sprintf("TypeKind(%d)", int(k))
	}
	return kindNames[k]
}

// TypeTag is a catalog type reference. Raw is populated only for
// KindUnsupported and carries the engine's own type name.
type TypeTag struct {
	Kind TypeKind
	Raw  string
}

// Tag returns the tag for a catalog kind.
func Tag(kind TypeKind) TypeTag {
	return TypeTag{Kind: kind}
}

// UnsupportedTag returns a tag for an engine type outside the catalog,
// preserving the raw engine name.
func UnsupportedTag(raw string) TypeTag {
	return TypeTag{Kind: KindUnsupported, Raw: raw}
}

// ParseTag maps a wire name to its tag. Unknown names become Unsupported
// with the raw name preserved, so the catalog stays closed in code and open
// on the wire.
func ParseTag(name string) TypeTag {
	if k, ok := kindByName[name]; ok {
		return TypeTag{Kind: k}
	}
	return TypeTag{Kind: KindUnsupported, Raw: name}
}

func (t TypeTag) String() string {
	if t.Kind == KindUnsupported && t.Raw != "" {
		return t.Raw
	}
	return t.Kind.String()
}

// MarshalJSON renders the tag as its wire name string.
func (t TypeTag) MarshalJSON() ([]byte, error) {
	return json.Marshal(t.String())
}

// UnmarshalJSON parses a wire name string via ParseTag.
func (t *TypeTag) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("type tag must be a string: %w", err)
	}
	*t = ParseTag(s)
	return nil
}

// Nullability is the tri-state answer to "can this column be NULL".
type Nullability int

const (
	// NullUnknown means the engine could not prove either way. It is the
	// zero value: absence of proof, never a claim.
	NullUnknown Nullability = iota
	// NullNever means the column is proven non-null.
	NullNever
	// NullPossible means the column may hold NULL.
	NullPossible
)

func (n Nullability) String() string {
	switch n {
	case NullNever:
		return "not null"
	case NullPossible:
		return "nullable"
	default:
		return "unknown"
	}
}

// MarshalJSON encodes the tri-state as JSON false, true, or null.
func (n Nullability) MarshalJSON() ([]byte, error) {
	switch n {
	case NullNever:
		return []byte("false"), nil
	case NullPossible:
		return []byte("true"), nil
	default:
		return []byte("null"), nil
	}
}

// UnmarshalJSON decodes JSON false, true, or null back to the tri-state.
func (n *Nullability) UnmarshalJSON(data []byte) error {
	var b *bool
	if err := json.Unmarshal(data, &b); err != nil {
		return fmt.Errorf("nullable must be true, false, or null: %w", err)
	}
	switch {
	case b == nil:
		*n = NullUnknown
	case *b:
		*n = NullPossible
	default:
		*n = NullNever
	}
	return nil
}

// Column is one result column as the database describes it. Ordinal is the
// zero-based position in the result set; duplicate names across a join are
// legal and disambiguated by position only.
type Column struct {
	Ordinal  int         `json:"ordinal"`
	Name     string      `json:"name"`
	Type     TypeTag     `json:"type"`
	Nullable Nullability `json:"nullable"`
}
