package logger

import (
	"fmt"
	"sync"
)

type TestLogEntry struct {
	Severity  string
	Message   string
	Arguments []interface{}
}

// TestLogger captures log entries in memory so tests can assert on them.
// It is safe for concurrent use since caches log from background goroutines.
type TestLogger struct {
	mu       sync.Mutex
	metadata map[string]interface{}
	logs     []TestLogEntry
	logLevel LogLevel
}

var _ Logger = (*TestLogger)(nil)

func (c *TestLogger) WithPrefix(prefix string) Logger {
	return c
}

func (c *TestLogger) With(metadata map[string]interface{}) Logger {
	c.mu.Lock()
	defer c.mu.Unlock()
	kv := make(map[string]interface{})
	for k, v := range c.metadata {
		kv[k] = v
	}
	for k, v := range metadata {
		kv[k] = v
	}
	c.metadata = kv
	return c
}

func (c *TestLogger) IsLevelEnabled(level LogLevel) bool {
	return level >= c.logLevel
}

func (c *TestLogger) record(severity string, msg string, args ...interface{}) {
	c.mu.Lock()
	c.logs = append(c.logs, TestLogEntry{severity, msg, args})
	c.mu.Unlock()
}

func (c *TestLogger) Trace(msg string, args ...interface{}) {
	c.record("TRACE", msg, args...)
}

func (c *TestLogger) Debug(msg string, args ...interface{}) {
	c.record("DEBUG", msg, args...)
}

func (c *TestLogger) Info(msg string, args ...interface{}) {
	c.record("INFO", msg, args...)
}

func (c *TestLogger) Warn(msg string, args ...interface{}) {
	c.record("WARNING", msg, args...)
}

func (c *TestLogger) Error(msg string, args ...interface{}) {
	c.record("ERROR", msg, args...)
}

// Entries returns a copy of all captured entries.
func (c *TestLogger) Entries() []TestLogEntry {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]TestLogEntry, len(c.logs))
	copy(out, c.logs)
	return out
}

// Messages returns all captured messages rendered with their arguments.
func (c *TestLogger) Messages(severity string) []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	var out []string
	for _, e := range c.logs {
		if severity == "" || e.Severity == severity {
			out = append(out, fmt.Sprintf(e.Message, e.Arguments...))
		}
	}
	return out
}

// NewTestLogger returns a new Logger instance useful for testing
func NewTestLogger() *TestLogger {
	return &TestLogger{logLevel: LevelTrace}
}
