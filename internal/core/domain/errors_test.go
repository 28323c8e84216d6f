package domain

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

// TestErrors_Existence tests that all error variables exist and are not nil
func TestErrors_Existence(t *testing.T) {
	tests := []struct {
		name string
		err  error
	}{
		{"ErrNotFound", ErrNotFound},
		{"ErrInvalidInput", ErrInvalidInput},
		{"ErrInvalidFilter", ErrInvalidFilter},
		{"ErrRejected", ErrRejected},
		{"ErrAccessorUnavailable", ErrAccessorUnavailable},
		{"ErrNotImplemented", ErrNotImplemented},
		{"ErrIngestInProgress", ErrIngestInProgress},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.NotNil(t, tt.err)
			assert.NotEmpty(t, tt.err.Error())
		})
	}
}

func TestErrNotFound(t *testing.T) {
	assert.Equal(t, "not found", ErrNotFound.Error())
	assert.False(t, errors.Is(ErrNotFound, ErrInvalidInput))
}

func TestErrors_Wrapped(t *testing.T) {
	err := fmt.Errorf("load %q: %w", "a/b.rpm", ErrAccessorUnavailable)
	assert.True(t, errors.Is(err, ErrAccessorUnavailable))
	assert.False(t, errors.Is(err, ErrNotFound))
}

// TestErrors_Uniqueness tests that all errors are distinct
func TestErrors_Uniqueness(t *testing.T) {
	allErrors := []error{
		ErrNotFound,
		ErrInvalidInput,
		ErrInvalidFilter,
		ErrRejected,
		ErrAccessorUnavailable,
		ErrNotImplemented,
		ErrIngestInProgress,
	}

	for i, err1 := range allErrors {
		for j, err2 := range allErrors {
			if i != j {
				assert.False(t, errors.Is(err1, err2),
					"Error %v should not match error %v", err1, err2)
			}
		}
	}
}
