package classify

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWrapTransientIsTransient(t *testing.T) {
	err := WrapTransient(ErrConnectionLost, "Board", "Start", "open transport")
	require.Error(t, err)
	assert.True(t, IsTransient(err))
	assert.False(t, IsFatal(err))
	assert.Equal(t, Transient, Classify(err))
}

func TestWrapInvalidClassification(t *testing.T) {
	err := WrapInvalid(ErrInvalidConfig, "Config", "Validate", "missing directory")
	assert.True(t, IsInvalid(err))
	assert.Equal(t, Invalid, Classify(err))
}

func TestClassifyDefaultsTransientForUnknown(t *testing.T) {
	assert.Equal(t, Transient, Classify(errors.New("unrecognised device reply")))
}

func TestRetryConfigConversion(t *testing.T) {
	rc := DefaultRetryConfig()
	cfg := rc.ToRetryConfig()
	assert.Equal(t, rc.MaxRetries+1, cfg.MaxAttempts)
	assert.True(t, cfg.AddJitter)
}
