package database

import (
	"errors"
	"fmt"
	"testing"

	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewLoadError(t *testing.T) {
	base := errors.New("connection reset")

	err := NewLoadError(StageDerived, base)
	var le *LoadError
	require.ErrorAs(t, err, &le)
	assert.Equal(t, StageDerived, le.Stage)
	assert.ErrorIs(t, err, base)
	assert.Equal(t, "load failed at derived_load: connection reset", err.Error())

	// An inner stage is kept when the error is wrapped again further out
	wrapped := NewLoadError(StageCommit, fmt.Errorf("tx: %w", err))
	require.ErrorAs(t, wrapped, &le)
	assert.Equal(t, StageDerived, le.Stage)

	assert.NoError(t, NewLoadError(StageCommit, nil))
}

func TestNotFoundError(t *testing.T) {
	err := NewNotFoundErrorWithID("symbol", "ZZZZ")
	assert.True(t, IsNotFound(err))
	assert.True(t, IsNotFound(fmt.Errorf("lookup: %w", err)))
	assert.False(t, IsNotFound(errors.New("other")))
	assert.Equal(t, "symbol not found: ZZZZ", err.Error())
	assert.Equal(t, "pipeline run not found", (&NotFoundError{Resource: "pipeline run"}).Error())
}

func TestPQCode(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		unique   bool
		conflict bool
	}{
		{"unique", WrapDBError("Insert", &pq.Error{Code: "23505"}), true, false},
		{"serialization", &pq.Error{Code: "40001"}, false, true},
		{"foreign key", fmt.Errorf("x: %w", &pq.Error{Code: "23503"}), false, true},
		{"plain", errors.New("boom"), false, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.unique, IsUniqueViolation(tt.err))
			assert.Equal(t, tt.conflict, IsConflict(tt.err))
		})
	}
}
