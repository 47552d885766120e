package logger

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGetLevelFromEnv(t *testing.T) {
	t.Setenv("CACHE_LOG_LEVEL", "trace")
	assert.Equal(t, LevelTrace, GetLevelFromEnv())
	t.Setenv("CACHE_LOG_LEVEL", "WARN")
	assert.Equal(t, LevelWarn, GetLevelFromEnv())
	t.Setenv("CACHE_LOG_LEVEL", "bogus")
	assert.Equal(t, LevelInfo, GetLevelFromEnv())
}

func TestColorCodesStartWithEscape(t *testing.T) {
	for _, code := range []string{Reset, Red, Green, Magenta, BlueBold,
		MagentaBold, RedBold, YellowBold, WhiteBold, CyanBold, Gray, Purple} {
		assert.Equal(t, byte(0x1b), code[0])
	}
}

func TestConsoleLoggerLevelGate(t *testing.T) {
	l := NewConsoleLogger(LevelWarn)
	assert.False(t, l.IsLevelEnabled(LevelDebug))
	assert.True(t, l.IsLevelEnabled(LevelWarn))
	assert.True(t, l.IsLevelEnabled(LevelError))
}

func TestConsoleLoggerWithPrefixDedup(t *testing.T) {
	l := NewConsoleLogger(LevelInfo).WithPrefix("cache").WithPrefix("cache")
	c := l.(*consoleLogger)
	assert.Equal(t, []string{"cache"}, c.prefixes)
}

func TestJSONLogger(t *testing.T) {
	var buf bytes.Buffer
	l := NewJSONLoggerWithWriter(&buf, LevelDebug)
	l = l.With(map[string]interface{}{"component": "engine", "strategy": "lru"})
	l.Debug("hello %s", "world")
	l.Trace("should be dropped")

	var entry JSONLogEntry
	assert.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "hello world", entry.Message)
	assert.Equal(t, "DEBUG", entry.Severity)
	assert.Equal(t, "engine", entry.Component)
	assert.Equal(t, "lru", entry.Metadata["strategy"])
}

func TestTestLoggerCaptures(t *testing.T) {
	l := NewTestLogger()
	l.Warn("callback failed: %v", "boom")
	l.Debug("hit: %s", "k1")
	assert.Len(t, l.Entries(), 2)
	assert.Equal(t, []string{"callback failed: boom"}, l.Messages("WARNING"))
}
