package domain

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

// TestErrors_Existence tests that all error variables exist and are distinct
func TestErrors_Existence(t *testing.T) {
	all := []error{
		ErrNotFound,
		ErrInvalidInput,
		ErrNotImplemented,
		ErrUnsupportedType,
		ErrIngestInProgress,
		ErrIndexNotBuilt,
		ErrDimensionMismatch,
		ErrEmbeddingUnavailable,
		ErrCorruptIndex,
		ErrIndexClosed,
	}

	for i, a := range all {
		assert.NotNil(t, a)
		assert.NotEmpty(t, a.Error())
		for j, b := range all {
			if i != j {
				assert.False(t, errors.Is(a, b), "%v should not match %v", a, b)
			}
		}
	}
}

// TestErrors_Wrapping tests errors.Is through %w wrapping
func TestErrors_Wrapping(t *testing.T) {
	wrapped := fmt.Errorf("append delta: %w", fmt.Errorf("vector 3: %w", ErrDimensionMismatch))

	assert.True(t, errors.Is(wrapped, ErrDimensionMismatch))
	assert.False(t, errors.Is(wrapped, ErrIndexNotBuilt))
}
