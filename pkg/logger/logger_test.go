package logger

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/d60-Lab/moments/config"
)

func TestInit(t *testing.T) {
	prev := L()
	t.Cleanup(func() { Set(prev) })

	require.NoError(t, Init(config.LogConfig{Level: "debug", Format: "json"}))
	assert.True(t, L().Core().Enabled(zapcore.DebugLevel))

	require.NoError(t, Init(config.LogConfig{Level: "bogus", Format: "console"}))
	assert.False(t, L().Core().Enabled(zapcore.DebugLevel))
	assert.True(t, L().Core().Enabled(zapcore.InfoLevel))
}

func TestWarnUsesGlobal(t *testing.T) {
	prev := L()
	t.Cleanup(func() { Set(prev) })

	core, logs := observer.New(zapcore.DebugLevel)
	Set(zap.New(core))

	Warn("comment load failed", zap.String("moment", "m1"))
	entries := logs.FilterMessage("comment load failed").All()
	require.Len(t, entries, 1)
	assert.Equal(t, "m1", entries[0].ContextMap()["moment"])
}
