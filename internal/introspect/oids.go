package introspect

import (
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/jakerosado/preflight/internal/query"
)

// oidKinds maps Postgres type OIDs to catalog kinds. The catalog is
// closed: an OID missing here is reported as an unknown type, never
// guessed at.
var oidKinds = map[uint32]query.TypeKind{
	pgtype.BoolOID:         query.KindBool,
	pgtype.ByteaOID:        query.KindBytea,
	pgtype.Int2OID:         query.KindInt2,
	pgtype.Int4OID:         query.KindInt4,
	pgtype.Int8OID:         query.KindInt8,
	pgtype.Float4OID:       query.KindFloat4,
	pgtype.Float8OID:       query.KindFloat8,
	pgtype.NumericOID:      query.KindNumeric,
	pgtype.TextOID:         query.KindText,
	pgtype.VarcharOID:      query.KindVarchar,
	pgtype.BPCharOID:       query.KindBpchar,
	pgtype.DateOID:         query.KindDate,
	pgtype.TimeOID:         query.KindTime,
	pgtype.TimestampOID:    query.KindTimestamp,
	pgtype.TimestamptzOID:  query.KindTimestamptz,
	pgtype.IntervalOID:     query.KindInterval,
	pgtype.UUIDOID:         query.KindUUID,
	pgtype.JSONOID:         query.KindJSON,
	pgtype.JSONBOID:        query.KindJSONB,
	pgtype.OIDOID:          query.KindOID,
	pgtype.BoolArrayOID:    query.KindBoolArray,
	pgtype.ByteaArrayOID:   query.KindByteaArray,
	pgtype.Int2ArrayOID:    query.KindInt2Array,
	pgtype.Int4ArrayOID:    query.KindInt4Array,
	pgtype.Int8ArrayOID:    query.KindInt8Array,
	pgtype.Float4ArrayOID:  query.KindFloat4Array,
	pgtype.Float8ArrayOID:  query.KindFloat8Array,
	pgtype.NumericArrayOID: query.KindNumericArray,
	pgtype.TextArrayOID:    query.KindTextArray,
	pgtype.VarcharArrayOID: query.KindVarcharArray,
	pgtype.UUIDArrayOID:    query.KindUUIDArray,
}

// kindForOID resolves a Postgres OID to a catalog kind. OID 0 (engine
// declined to infer) and the pseudo-type "unknown" both map to Any.
func kindForOID(oid uint32) (query.TypeKind, bool) {
	if oid == 0 || oid == pgtype.UnknownOID {
		return query.KindAny, true
	}
	k, ok := oidKinds[oid]
	return k, ok
}
