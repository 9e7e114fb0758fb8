package cli

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/require"

	"github.com/jakerosado/preflight/internal/cache"
	"github.com/jakerosado/preflight/internal/query"
	"github.com/jakerosado/preflight/internal/queryset"
)

const fixtureSQL = "SELECT id, name FROM users WHERE id = $1"

// projectFixture is a throwaway project directory: config file, queryset,
// and cache directory, all under one temp root.
type projectFixture struct {
	dir          string
	configPath   string
	cacheDir     string
	querysetPath string
}

// writeProject lays out a project in a temp directory. Paths inside the
// config are absolute so commands work from any working directory.
func writeProject(t *testing.T, engine string, set *queryset.Set) projectFixture {
	t.Helper()
	dir := t.TempDir()
	fx := projectFixture{
		dir:          dir,
		configPath:   filepath.Join(dir, "preflight.yaml"),
		cacheDir:     filepath.Join(dir, ".preflight"),
		querysetPath: filepath.Join(dir, "queryset.json"),
	}

	cfg := fmt.Sprintf("version: 1\nengine: %s\ncache_dir: %s\nqueryset: %s\n",
		engine, fx.cacheDir, fx.querysetPath)
	require.NoError(t, os.WriteFile(fx.configPath, []byte(cfg), 0o644))

	data, err := json.Marshal(set)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(fx.querysetPath, data, 0o644))
	return fx
}

// seed puts a record into the fixture's cache directory.
func (f projectFixture) seed(t *testing.T, rec query.CacheRecord) {
	t.Helper()
	require.NoError(t, cache.New(f.cacheDir).Put(rec))
}

func fixtureSet(queries ...queryset.Query) *queryset.Set {
	return &queryset.Set{Version: queryset.SetVersion, Queries: queries}
}

func fixtureQuery() queryset.Query {
	return queryset.Query{
		File:   "internal/users/store.go",
		Line:   42,
		SQL:    fixtureSQL,
		Params: []query.TypeTag{query.Tag(query.KindInt8)},
		Columns: []queryset.DeclaredColumn{
			{Name: "id", Type: query.Tag(query.KindInt8), Nullable: query.NullNever},
			{Name: "name", Type: query.Tag(query.KindText), Nullable: query.NullPossible},
		},
	}
}

func fixtureRecord() query.CacheRecord {
	return query.NewRecord(query.EnginePostgres, fixtureSQL,
		[]query.TypeTag{query.Tag(query.KindInt8)},
		[]query.Column{
			{Ordinal: 0, Name: "id", Type: query.Tag(query.KindInt8), Nullable: query.NullNever},
			{Ordinal: 1, Name: "name", Type: query.Tag(query.KindText), Nullable: query.NullPossible},
		})
}

// execute runs a command with its output captured.
func execute(t *testing.T, cmd *cobra.Command, args ...string) (string, error) {
	t.Helper()
	buf := &bytes.Buffer{}
	cmd.SetOut(buf)
	cmd.SetErr(buf)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return buf.String(), err
}
