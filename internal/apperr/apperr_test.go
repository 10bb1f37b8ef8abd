package apperr

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

var errNotFound = errors.New("thing not found")

func TestPersistence(t *testing.T) {
	assert.NoError(t, Persistence("noop", nil))

	cause := errors.New("connection reset")
	err := Persistence("insert appointment", cause)
	assert.True(t, IsPersistence(err))
	assert.ErrorIs(t, err, cause)
	assert.Equal(t, "persistence: insert appointment: connection reset", err.Error())

	// already wrapped errors are not double wrapped
	again := Persistence("outer", fmt.Errorf("ctx: %w", err))
	var pe *PersistenceError
	assert.True(t, errors.As(again, &pe))
	assert.Equal(t, "insert appointment", pe.Op)

	kept := Persistence("load", fmt.Errorf("load: %w", errNotFound), errNotFound)
	assert.False(t, IsPersistence(kept))
	assert.ErrorIs(t, kept, errNotFound)
}

func TestValidationError(t *testing.T) {
	err := Invalid("end_time", "must be after start_time")
	assert.True(t, IsValidation(err))
	assert.Equal(t, "validation failed: end_time must be after start_time", err.Error())
	assert.False(t, IsValidation(ErrUnauthenticated))

	bare := &ValidationError{Reason: "empty body"}
	assert.Equal(t, "validation failed: empty body", bare.Error())
}
