package logging

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sqlscout/sqlscout/internal/config"
)

func newBufferLogger(level, format string) (*Logger, *bytes.Buffer) {
	buf := &bytes.Buffer{}

	logger := &Logger{
		level:  parseLogLevel(level),
		format: format,
		output: buf,
		fields: make(map[string]interface{}),
	}

	return logger, buf
}

func TestParseLogLevel(t *testing.T) {
	assert.Equal(t, DebugLevel, parseLogLevel("debug"))
	assert.Equal(t, InfoLevel, parseLogLevel("info"))
	assert.Equal(t, WarnLevel, parseLogLevel("WARN"))
	assert.Equal(t, WarnLevel, parseLogLevel("warning"))
	assert.Equal(t, ErrorLevel, parseLogLevel("error"))

	// Unknown levels default to info.
	assert.Equal(t, InfoLevel, parseLogLevel("loud"))
}

func TestLevelFiltering(t *testing.T) {
	logger, buf := newBufferLogger("warn", "text")

	logger.Debug("not shown")
	logger.Info("not shown either")
	logger.Warn("shown")
	logger.Error("also shown")

	output := buf.String()

	assert.NotContains(t, output, "not shown")
	assert.Contains(t, output, "shown")
	assert.Contains(t, output, "also shown")
}

func TestTextFormat(t *testing.T) {
	logger, buf := newBufferLogger("debug", "text")

	logger.WithField("db", "sales").Infof("linked %d columns", 7)

	output := buf.String()

	assert.Contains(t, output, "INFO")
	assert.Contains(t, output, "linked 7 columns")
	assert.Contains(t, output, "db=sales")
}

func TestJSONFormat(t *testing.T) {
	logger, buf := newBufferLogger("debug", "json")

	logger.WithField("step", 3).Warn("no feedback action")

	var entry LogEntry
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))

	assert.Equal(t, "WARN", entry.Level)
	assert.Equal(t, "no feedback action", entry.Message)
	assert.Equal(t, float64(3), entry.Fields["step"])
}

func TestErrorWithErr(t *testing.T) {
	logger, buf := newBufferLogger("debug", "text")

	logger.ErrorWithErr("probe failed", fmt.Errorf("timeout"))

	assert.Contains(t, buf.String(), "error=timeout")
}

func TestWithFieldsDoesNotMutateParent(t *testing.T) {
	logger, buf := newBufferLogger("debug", "text")

	child := logger.WithFields(map[string]interface{}{"query": "q1"})

	logger.Info("parent line")
	child.Info("child line")

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 2)

	assert.NotContains(t, lines[0], "query=q1")
	assert.Contains(t, lines[1], "query=q1")
}

func TestNewLoggerFileOutput(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "app.log")

	logger, err := NewLogger(config.LoggingConfig{
		Level:  "info",
		Format: "text",
		Output: "file",
		File:   path,
	})
	require.NoError(t, err)

	logger.Info("written to file")
	require.NoError(t, logger.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	assert.Contains(t, string(data), "written to file")
}

func TestNewLoggerInvalidOutput(t *testing.T) {
	_, err := NewLogger(config.LoggingConfig{Level: "info", Format: "text", Output: "syslog"})
	assert.Error(t, err)

	_, err = NewLogger(config.LoggingConfig{Level: "info", Format: "text", Output: "file"})
	assert.Error(t, err)
}
