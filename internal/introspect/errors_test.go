package introspect

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDBErrorHelpers(t *testing.T) {
	tests := []struct {
		name  string
		err   error
		check func(error) bool
	}{
		{"syntax", NewSyntaxError("unexpected token", 7, nil), IsSyntaxError},
		{"unknown type", NewUnknownTypeError("column 0 (doc)", "tsvector"), IsUnknownType},
		{"connection lost", NewConnectionLostError("dial", errors.New("refused")), IsConnectionLost},
		{"permission denied", NewPermissionDeniedError("relation users", nil), IsPermissionDenied},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.True(t, tt.check(tt.err))
			wrapped := fmt.Errorf("describing: %w", tt.err)
			assert.True(t, tt.check(wrapped), "helpers must see through wrapping")
		})
	}
}

func TestDBErrorHelpersRejectOtherCodes(t *testing.T) {
	err := NewSyntaxError("bad", 0, nil)

	assert.False(t, IsConnectionLost(err))
	assert.False(t, IsPermissionDenied(err))
	assert.False(t, IsUnknownType(err))
	assert.False(t, IsSyntaxError(errors.New("plain")))
}

func TestDBErrorMessageIncludesPosition(t *testing.T) {
	err := NewSyntaxError(`column "nam" does not exist`, 8, nil)
	assert.Contains(t, err.Error(), "position 8")
	assert.Contains(t, err.Error(), "SYNTAX_ERROR")
}

func TestUnknownTypeErrorNamesTheType(t *testing.T) {
	err := NewUnknownTypeError("parameter 2", "hstore")
	assert.Contains(t, err.Error(), "hstore")
	assert.Contains(t, err.Error(), "parameter 2")
}

func TestDBErrorUnwrap(t *testing.T) {
	cause := errors.New("broken pipe")
	err := NewConnectionLostError("read", cause)
	assert.ErrorIs(t, err, cause)
}
