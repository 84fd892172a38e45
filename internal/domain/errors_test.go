package domain

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDomainError_Is(t *testing.T) {
	t.Run("matches wrapped error by code", func(t *testing.T) {
		wrapped := NewDomainErrorWithCause(ErrCodeRetrievalUnavailable, "knowledge index unavailable", errors.New("dial tcp: connection refused"))

		assert.True(t, errors.Is(wrapped, ErrRetrievalUnavailable))
		assert.False(t, errors.Is(wrapped, ErrGenerationStart))
	})

	t.Run("matches through fmt wrapping", func(t *testing.T) {
		err := fmt.Errorf("session failed: %w", ErrGenerationStream)

		assert.True(t, errors.Is(err, ErrGenerationStream))
	})

	t.Run("does not match plain errors", func(t *testing.T) {
		assert.False(t, errors.Is(errors.New("boom"), ErrRetrievalUnavailable))
	})
}

func TestDomainError_Error(t *testing.T) {
	err := NewDomainErrorWithCause(ErrCodeGenerationStart, "generation failed to start", errors.New("upstream 503"))
	assert.Equal(t, "[GENERATION_START_FAILED] generation failed to start: upstream 503", err.Error())

	bare := NewDomainError(ErrCodeValidation, "question is required")
	assert.Equal(t, "[VALIDATION_ERROR] question is required", bare.Error())
}
