package config

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestConfigErrorError(t *testing.T) {
	tests := []struct {
		name     string
		err      *ConfigError
		expected string
	}{
		{
			name: "complete error with all fields",
			err: &ConfigError{
				Category: CategoryMissing,
				Field:    "client.token",
				Message:  "required",
				Action:   "set SMASH_TOKEN env var",
				Details:  []string{"detail1", "detail2"},
			},
			expected: "config_missing: client.token required set SMASH_TOKEN env var detail1; detail2",
		},
		{
			name: "error without category",
			err: &ConfigError{
				Field:   "client.region",
				Message: "required",
			},
			expected: "client.region required",
		},
		{
			name: "error without field",
			err: &ConfigError{
				Category: CategoryInvalid,
				Message:  "configuration error",
			},
			expected: "config_invalid: configuration error",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.err.Error())
		})
	}
}

func TestNewMissingFieldError(t *testing.T) {
	err := NewMissingFieldError("client.token", EnvToken, "client.token")
	assert.Equal(t, CategoryMissing, err.Category)
	assert.Equal(t, "client.token", err.Field)
	assert.Contains(t, err.Error(), "set SMASH_TOKEN env var")
}

func TestNewInvalidFieldError(t *testing.T) {
	err := NewInvalidFieldError("log.level", "unsupported value", []string{"debug", "info"})
	assert.Equal(t, "must be one of: debug, info", err.Action)

	withoutOptions := NewInvalidFieldError("log.level", "unsupported value", nil)
	assert.Empty(t, withoutOptions.Action)
}

func TestIsNotConfigured(t *testing.T) {
	assert.False(t, IsNotConfigured(nil))
	assert.True(t, IsNotConfigured(ErrNotConfigured))
	assert.True(t, IsNotConfigured(fmt.Errorf("wrapped: %w", ErrNotConfigured)))
	assert.True(t, IsNotConfigured(NewNotConfiguredError("observability", "SMASH_OBSERVABILITY_ENABLED", "observability.enabled")))
	assert.False(t, IsNotConfigured(NewValidationError("client", "broken")))
	assert.False(t, IsNotConfigured(errors.New("plain")))
}

func TestIsInvalidRegion(t *testing.T) {
	err := NewInvalidRegionError("transfer", RegionUSWest1, []Region{RegionEUWest1})
	assert.True(t, IsInvalidRegion(err))
	assert.True(t, IsInvalidRegion(fmt.Errorf("build client: %w", err)))
	assert.False(t, IsInvalidRegion(NewValidationError("client.region", "nope")))
	assert.False(t, IsInvalidRegion(errors.New("invalid region")))
}
