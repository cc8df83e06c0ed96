package logger

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap/zapcore"
)

func TestParseLevel(t *testing.T) {
	assert.Equal(t, zapcore.DebugLevel, parseLevel("debug"))
	assert.Equal(t, zapcore.WarnLevel, parseLevel("warn"))
	// 非法输入退回 info
	assert.Equal(t, zapcore.InfoLevel, parseLevel("loud"))
	assert.Equal(t, zapcore.InfoLevel, parseLevel(""))
}

func TestInitAndSetLevel(t *testing.T) {
	err := Init(&Config{Level: "info", Format: "json", ServiceName: "test"})
	assert.NoError(t, err)
	assert.NotNil(t, L())
	assert.NotNil(t, S())
	assert.False(t, level.Enabled(zapcore.DebugLevel))

	SetLevel("debug")
	assert.True(t, level.Enabled(zapcore.DebugLevel))

	// 非法级别不改变当前设置
	SetLevel("loud")
	assert.True(t, level.Enabled(zapcore.DebugLevel))
}
