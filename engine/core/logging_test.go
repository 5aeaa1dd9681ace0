package core

import (
	"bytes"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
)

func captureLog(t *testing.T) *bytes.Buffer {
	t.Helper()
	buf := &bytes.Buffer{}
	SetLogOutput(buf)
	SetLogLevel(LogLevelDebug)
	t.Cleanup(func() {
		SetLogOutput(os.Stderr)
		SetLogLevel(LogLevelInfo)
	})
	return buf
}

func TestLogHelpersReportTheirCaller(t *testing.T) {
	buf := captureLog(t)
	LogInfo("scene %s", "loaded")
	assert.Contains(t, buf.String(), "scene loaded")
	assert.Contains(t, buf.String(), "logging_test.go")
	assert.NotContains(t, buf.String(), "logging.go:")
}

func TestLogWithReportsItsCaller(t *testing.T) {
	buf := captureLog(t)
	LogWith("node", "Box").Warn("texture skipped")
	out := buf.String()
	assert.Contains(t, out, "texture skipped")
	assert.Contains(t, out, "Box")
	assert.Contains(t, out, "logging_test.go")
}

func TestParseLogLevel(t *testing.T) {
	level, ok := ParseLogLevel("WARNING")
	assert.True(t, ok)
	assert.Equal(t, LogLevelWarn, level)

	_, ok = ParseLogLevel("verbose")
	assert.False(t, ok)
}
