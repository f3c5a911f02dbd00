package errors

import (
	"errors"
	"fmt"
	"io/fs"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAppError_IsMatchesByType(t *testing.T) {
	err := fmt.Errorf("reconcile: %w", NewEmptyJoinError(3, 4))

	assert.True(t, errors.Is(err, ErrEmptyJoin))
	assert.False(t, errors.Is(err, ErrSchemaMismatch))
	assert.Equal(t, ErrTypeEmptyJoin, TypeOf(err))
}

func TestAppError_UnwrapsCause(t *testing.T) {
	err := NewMissingInputError("plan", "plan.xlsx", fs.ErrNotExist)

	assert.True(t, errors.Is(err, fs.ErrNotExist))
	assert.True(t, errors.Is(err, ErrMissingInput))
	assert.Equal(t, "plan.xlsx", err.Context["path"])
	assert.Contains(t, err.Error(), "[MISSING_INPUT]")
}

func TestTypeOf_PlainError(t *testing.T) {
	assert.Equal(t, ErrorType(""), TypeOf(errors.New("boom")))
}
