package logger

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		level       string
		development bool
		want        zapcore.Level
	}{
		{"development", false, zapcore.DebugLevel},
		{"production", false, zapcore.InfoLevel},
		{"production", true, zapcore.DebugLevel},
		{"warn", false, zapcore.WarnLevel},
		{"error", false, zapcore.ErrorLevel},
		{"nonsense", false, zapcore.InfoLevel},
	}

	for _, tt := range tests {
		t.Run(tt.level, func(t *testing.T) {
			assert.Equal(t, tt.want, parseLevel(tt.level, tt.development))
		})
	}
}

func TestInit_SetsGlobalLogger(t *testing.T) {
	t.Setenv("LOG_LEVEL", "")
	require.NoError(t, Init(&Config{Level: "production", ServiceName: "ticket-service"}))
	assert.NotNil(t, Get())
	assert.True(t, Get().Core().Enabled(zapcore.InfoLevel))
	assert.False(t, Get().Core().Enabled(zapcore.DebugLevel))
}

func TestSet_HelpersWriteToInstalledLogger(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	Set(zap.New(core))
	defer Set(nil)

	Info("ticket redeemed", zap.String("code", "ABCD1234"))
	Warn("cache disabled")

	entries := logs.All()
	require.Len(t, entries, 2)
	assert.Equal(t, "ticket redeemed", entries[0].Message)
	assert.Equal(t, "ABCD1234", entries[0].ContextMap()["code"])
	assert.Equal(t, zapcore.WarnLevel, entries[1].Level)
}
