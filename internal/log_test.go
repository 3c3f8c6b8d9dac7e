package internal

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseLogLevel(t *testing.T) {
	assert.Equal(t, LogLevelError, ParseLogLevel("error"))
	assert.Equal(t, LogLevelTrace, ParseLogLevel(" TRACE "))
	assert.Equal(t, LogLevelInfo, ParseLogLevel(""))
	assert.Equal(t, LogLevelInfo, ParseLogLevel("verbose"))
}

func TestLoggerFiltersByLevel(t *testing.T) {
	var buf bytes.Buffer
	logger := NewWriterLogger(LogLevelInfo, &buf).WithComponent("Builder")

	logger.Info("lag %d expanded", 3)
	logger.Debug("hidden")

	out := buf.String()
	assert.Contains(t, out, "[INFO] [Builder] lag 3 expanded")
	assert.False(t, strings.Contains(out, "hidden"))
}
