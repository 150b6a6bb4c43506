package obslog

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap/zapcore"
)

func TestLevelZapLevelMapping(t *testing.T) {
	assert.Equal(t, zapcore.DebugLevel, LevelDebug.zapLevel())
	assert.Equal(t, zapcore.InfoLevel, LevelInfo.zapLevel())
	assert.Equal(t, zapcore.WarnLevel, LevelWarn.zapLevel())
	assert.Equal(t, zapcore.ErrorLevel, LevelError.zapLevel())
}

func TestNewProducesUsableLogger(t *testing.T) {
	logger := New(LevelInfo)
	assert.NotNil(t, logger)
	child := Component(logger, "ipc")
	assert.NotNil(t, child)
	child.Info("test message")
}
