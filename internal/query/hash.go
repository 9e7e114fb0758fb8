package query

import (
	"crypto/sha256"
	"encoding/hex"
	"regexp"
)

// Engine names accepted throughout preflight. The engine is part of the
// hash domain: identical query text against different engines must never
// share a cache record.
const (
	EnginePostgres = "postgres"
	EngineSQLite   = "sqlite"
)

// KnownEngine reports whether name is an engine preflight can verify.
func KnownEngine(name string) bool {
	return name == EnginePostgres || name == EngineSQLite
}

// hashDomain builds the domain prefix for content hashing.
// The version suffix enables future algorithm migration.
func hashDomain(engine string) string {
	return "preflight/" + engine + "/v1"
}

// HashQuery normalizes sql and computes the content hash that names its
// cache record. Two spellings of the same query that differ only in
// whitespace or comments share a hash; a change inside a literal does not.
func HashQuery(engine, sql string) string {
	return hashWithDomain(hashDomain(engine), []byte(Normalize(sql)))
}

// hashWithDomain computes a SHA-256 hash with domain separation.
// Format: SHA256(domain + 0x00 + data), hex encoded.
// The null byte separator prevents domain/data boundary ambiguity.
func hashWithDomain(domain string, data []byte) string {
	h := sha256.New()
	h.Write([]byte(domain))
	h.Write([]byte{0x00})
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil))
}

var hashShape = regexp.MustCompile(`^[0-9a-f]{64}$`)

// ValidHash reports whether s has the shape of a content hash.
func ValidHash(s string) bool {
	return hashShape.MatchString(s)
}

// ShortHash returns the display prefix of a content hash, the full string
// if it is shorter than 12 characters.
func ShortHash(hash string) string {
	if len(hash) <= 12 {
		return hash
	}
	return hash[:12]
}
