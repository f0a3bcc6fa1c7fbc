package logger

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestNew_Level(t *testing.T) {
	log, err := New(Config{Level: "warn"})
	require.NoError(t, err)
	assert.False(t, log.Core().Enabled(zap.InfoLevel))
	assert.True(t, log.Core().Enabled(zap.WarnLevel))
}

func TestNew_Development(t *testing.T) {
	log, err := New(Config{Development: true})
	require.NoError(t, err)
	assert.True(t, log.Core().Enabled(zap.DebugLevel))
}

func TestNew_InvalidLevel(t *testing.T) {
	_, err := New(Config{Level: "loud"})
	assert.Error(t, err)
	assert.Panics(t, func() { Must(Config{Level: "loud"}) })
}
