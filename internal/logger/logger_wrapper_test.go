package logger

import (
	"errors"
	"testing"

	"github.com/leandrodaf/midimanager/sdk/contracts"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestZapLogger_WritesStructuredFields(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	log := NewFromZap(zap.New(core))

	log.Info("connected input port",
		log.Field().Int32("id", -7),
		log.Field().String("name", "Mock"),
		log.Field().Error("error", errors.New("boom")),
	)

	require.Equal(t, 1, logs.Len())
	entry := logs.All()[0]
	assert.Equal(t, "connected input port", entry.Message)
	assert.Equal(t, zapcore.InfoLevel, entry.Level)

	ctx := entry.ContextMap()
	assert.Equal(t, int32(-7), ctx["id"])
	assert.Equal(t, "Mock", ctx["name"])
	assert.Equal(t, "boom", ctx["error"])
}

func TestZapLogger_SetLevelFilters(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	log := NewFromZap(zap.New(core))

	log.SetLevel(contracts.WarnLevel)
	log.Debug("dropped")
	log.Info("dropped too")
	log.Warn("kept")
	log.Error("kept as well")

	require.Equal(t, 2, logs.Len())
	assert.Equal(t, "kept", logs.All()[0].Message)
	assert.Equal(t, zapcore.ErrorLevel, logs.All()[1].Level)
}

func TestZapLogger_NilErrorFieldIsSkipped(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	log := NewFromZap(zap.New(core))

	log.Warn("no error", log.Field().Error("error", nil))

	require.Equal(t, 1, logs.Len())
	assert.Empty(t, logs.All()[0].ContextMap())
}

func TestParseLogLevel(t *testing.T) {
	assert.Equal(t, contracts.DebugLevel, contracts.ParseLogLevel("debug"))
	assert.Equal(t, contracts.WarnLevel, contracts.ParseLogLevel("warning"))
	assert.Equal(t, contracts.InfoLevel, contracts.ParseLogLevel("nonsense"))
}
