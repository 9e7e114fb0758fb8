package verify

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStateStrings(t *testing.T) {
	assert.Equal(t, "pending", StatePending.String())
	assert.Equal(t, "cache-hit", StateCacheHit.String())
	assert.Equal(t, "needs-introspection", StateNeedsIntrospection.String())
	assert.Equal(t, "verified", StateVerified.String())
	assert.Equal(t, "mismatched", StateMismatched.String())
	assert.Equal(t, "failed", StateFailed.String())
	assert.Equal(t, "State(99)", State(99).String())
}

func TestStateTerminal(t *testing.T) {
	for _, s := range []State{StateVerified, StateMismatched, StateFailed} {
		assert.True(t, s.Terminal(), s.String())
	}
	for _, s := range []State{StatePending, StateCacheHit, StateNeedsIntrospection} {
		assert.False(t, s.Terminal(), s.String())
	}
}

func TestStateMarshalJSON(t *testing.T) {
	data, err := json.Marshal(StateVerified)
	require.NoError(t, err)
	assert.Equal(t, `"verified"`, string(data))
}

func TestDiffStrings(t *testing.T) {
	arity := Diff{Field: DiffParamArity, Ordinal: -1, Expected: "2", Actual: "1"}
	assert.Equal(t, "parameters: expected 2, actual 1", arity.String())

	cols := Diff{Field: DiffColumnArity, Ordinal: -1, Expected: "3", Actual: "2"}
	assert.Equal(t, "columns: expected 3, actual 2", cols.String())

	typ := Diff{Field: DiffColumnType, Ordinal: 2, Expected: "Int8", Actual: "Text"}
	assert.Equal(t, "column-type 2: expected Int8, actual Text", typ.String())
}

func TestCounts(t *testing.T) {
	res := &RunResult{Outcomes: []Outcome{
		{State: StateVerified},
		{State: StateVerified},
		{State: StateMismatched},
		{State: StateFailed},
	}}
	verified, mismatched, failed := res.Counts()
	assert.Equal(t, 2, verified)
	assert.Equal(t, 1, mismatched)
	assert.Equal(t, 1, failed)
	assert.False(t, res.AllVerified())

	all := &RunResult{Outcomes: []Outcome{{State: StateVerified}}}
	assert.True(t, all.AllVerified())
}
