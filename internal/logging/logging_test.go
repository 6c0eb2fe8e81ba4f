package logging

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// reset restores the default global logger after a test that re-inits it.
func reset(t *testing.T) {
	t.Helper()
	t.Cleanup(func() {
		Close()
		Init(DefaultConfig())
	})
}

func TestParseLevel(t *testing.T) {
	cases := []struct {
		in   string
		want Level
	}{
		{"DEBUG", DebugLevel},
		{"debug", DebugLevel},
		{" info ", InfoLevel},
		{"WARN", WarnLevel},
		{"WARNING", WarnLevel},
		{"error", ErrorLevel},
		{"FATAL", FatalLevel},
		{"", InfoLevel},
		{"nonsense", InfoLevel},
	}
	for _, c := range cases {
		assert.Equal(t, c.want, ParseLevel(c.in), "ParseLevel(%q)", c.in)
	}
}

func TestInitFiltersBelowConfiguredLevel(t *testing.T) {
	reset(t)
	var buf bytes.Buffer
	Init(Config{Level: WarnLevel, Output: &buf})

	log := For("test")
	log.Debug().Msg("dropped-debug")
	log.Info().Msg("dropped-info")
	log.Warn().Msg("kept-warn")
	log.Error().Msg("kept-error")

	out := buf.String()
	assert.NotContains(t, out, "dropped-debug")
	assert.NotContains(t, out, "dropped-info")
	assert.Contains(t, out, "kept-warn")
	assert.Contains(t, out, "kept-error")
}

func TestInitEmitsJSONWithTimestamp(t *testing.T) {
	reset(t)
	var buf bytes.Buffer
	Init(Config{Level: InfoLevel, Output: &buf})

	For("diff").Info().Str("file", "a.go").Msg("applied")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "applied", entry["message"])
	assert.Equal(t, "diff", entry["component"])
	assert.Equal(t, "a.go", entry["file"])
	assert.NotEmpty(t, entry["time"])
}

func TestComponentTagsEveryLine(t *testing.T) {
	reset(t)
	var buf bytes.Buffer
	Init(Config{Level: InfoLevel, Output: &buf})

	For("lsp").Info().Msg("spawned")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "lsp", entry["component"])
}

func TestWithBuildsChildLogger(t *testing.T) {
	reset(t)
	var buf bytes.Buffer
	Init(Config{Level: InfoLevel, Output: &buf})

	child := For("question").With().Str("session", "s1").Logger()
	child.Info().Msg("hello")

	assert.Contains(t, buf.String(), `"session":"s1"`)
	assert.Contains(t, buf.String(), `"component":"question"`)
}

func TestLogToFileWritesTimestampedFile(t *testing.T) {
	reset(t)
	dir := t.TempDir()
	var buf bytes.Buffer
	Init(Config{Level: InfoLevel, Output: &buf, LogToFile: true, LogDir: dir})

	path := GetLogFilePath()
	require.NotEmpty(t, path)
	assert.Equal(t, dir, filepath.Dir(path))
	assert.True(t, strings.HasPrefix(filepath.Base(path), "opencode-engine-"))

	For("test").Info().Msg("to-file")
	Close()

	content, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(content), "to-file")
	// Console writer got the same line.
	assert.Contains(t, buf.String(), "to-file")
}

func TestReinitReplacesFileSink(t *testing.T) {
	reset(t)
	dirA := t.TempDir()
	dirB := t.TempDir()

	Init(Config{Level: InfoLevel, Output: &bytes.Buffer{}, LogToFile: true, LogDir: dirA})
	first := GetLogFilePath()
	require.NotEmpty(t, first)

	Init(Config{Level: InfoLevel, Output: &bytes.Buffer{}, LogToFile: true, LogDir: dirB})
	second := GetLogFilePath()
	require.NotEmpty(t, second)
	require.NotEqual(t, first, second)

	For("test").Info().Msg("after-reinit")
	Close()

	firstContent, err := os.ReadFile(first)
	require.NoError(t, err)
	assert.NotContains(t, string(firstContent), "after-reinit")

	secondContent, err := os.ReadFile(second)
	require.NoError(t, err)
	assert.Contains(t, string(secondContent), "after-reinit")
}

func TestGetLogFilePathEmptyWithoutFileSink(t *testing.T) {
	reset(t)
	Init(Config{Level: InfoLevel, Output: &bytes.Buffer{}})
	assert.Empty(t, GetLogFilePath())
}
