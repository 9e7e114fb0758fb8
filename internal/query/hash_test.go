package query

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHashQueryDeterminism(t *testing.T) {
	sql := "SELECT id, name FROM users WHERE id = $1"

	h1 := HashQuery(EnginePostgres, sql)
	h2 := HashQuery(EnginePostgres, sql)

	assert.Equal(t, h1, h2, "HashQuery must be deterministic")
	assert.Len(t, h1, 64, "SHA-256 hex is 64 characters")
	assert.True(t, ValidHash(h1))
}

func TestHashQueryIgnoresWhitespaceAndComments(t *testing.T) {
	base := HashQuery(EnginePostgres, "SELECT id, name FROM users WHERE id = $1")

	variants := []string{
		"SELECT   id,  name FROM users WHERE id = $1",
		"SELECT id, name\nFROM users\nWHERE id = $1",
		"SELECT id, name FROM users WHERE id = $1 -- by pk\n",
		"SELECT /* cols */ id, name FROM users WHERE id = $1",
	}
	for _, v := range variants {
		assert.Equal(t, base, HashQuery(EnginePostgres, v), "variant %q should share the hash", v)
	}
}

func TestHashQuerySensitivity(t *testing.T) {
	base := HashQuery(EnginePostgres, "SELECT name FROM users WHERE tag = 'a b'")

	changedLiteral := HashQuery(EnginePostgres, "SELECT name FROM users WHERE tag = 'a  b'")
	assert.NotEqual(t, base, changedLiteral, "whitespace inside a literal is significant")

	changedText := HashQuery(EnginePostgres, "SELECT name FROM users WHERE tag = 'a c'")
	assert.NotEqual(t, base, changedText)
}

func TestHashQuerySeparatesEngines(t *testing.T) {
	sql := "SELECT 1"

	pg := HashQuery(EnginePostgres, sql)
	lite := HashQuery(EngineSQLite, sql)

	assert.NotEqual(t, pg, lite, "same text against different engines must not collide")
}

func TestValidHash(t *testing.T) {
	assert.True(t, ValidHash(HashQuery(EngineSQLite, "SELECT 1")))
	assert.False(t, ValidHash("abc"))
	assert.False(t, ValidHash(""))
	upper := "ABCDEF0123456789ABCDEF0123456789ABCDEF0123456789ABCDEF0123456789"
	assert.False(t, ValidHash(upper), "hashes are lowercase hex")
}

func TestShortHash(t *testing.T) {
	h := HashQuery(EnginePostgres, "SELECT 1")
	assert.Equal(t, h[:12], ShortHash(h))
	assert.Equal(t, "abc", ShortHash("abc"))
}

func TestKnownEngine(t *testing.T) {
	assert.True(t, KnownEngine(EnginePostgres))
	assert.True(t, KnownEngine(EngineSQLite))
	assert.False(t, KnownEngine("oracle"))
	assert.False(t, KnownEngine(""))
}
