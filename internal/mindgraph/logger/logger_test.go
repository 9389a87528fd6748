package logger

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestDefaultLoggerIsNoop(t *testing.T) {
	SetLogger(nil)
	_, ok := DefaultLogger.(*NoopLogger)
	assert.True(t, ok)

	// must not panic
	Log("hello %s", "world")
	Warn("careful %d", 1)
}

func TestZapLoggerRoutesLevels(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	SetLogger(WrapZap(zap.New(core)))
	defer SetLogger(nil)

	Log("built graph with %d nodes", 3)
	Warn("snapshot %s corrupt", "graph")

	entries := logs.AllUntimed()
	require.Len(t, entries, 2)
	assert.Equal(t, "built graph with 3 nodes", entries[0].Message)
	assert.Equal(t, zap.InfoLevel, entries[0].Level)
	assert.Equal(t, "snapshot graph corrupt", entries[1].Message)
	assert.Equal(t, zap.WarnLevel, entries[1].Level)
}

func TestNewZapRejectsUnknownLevel(t *testing.T) {
	_, err := NewZap("loud", false)
	assert.Error(t, err)

	l, err := NewZap("debug", true)
	require.NoError(t, err)
	assert.NotNil(t, l.Zap())
}
