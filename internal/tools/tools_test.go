package tools

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

func TestNewToolResultJSON(t *testing.T) {
	result, err := NewToolResultJSON(map[string]any{"name": "btn"})
	require.NoError(t, err)
	require.Len(t, result.Content, 1)

	text, ok := result.Content[0].(mcp.TextContent)
	require.True(t, ok)
	assert.JSONEq(t, `{"name":"btn"}`, text.Text)
	assert.Contains(t, text.Text, "\n  ", "output is indented")

	_, err = NewToolResultJSON(map[string]any{"bad": make(chan int)})
	assert.Error(t, err)
}

func TestNewToolResultJSON_KeepsMarkup(t *testing.T) {
	result, err := NewToolResultJSON(map[string]any{"code": "<View>{a && b}</View>"})
	require.NoError(t, err)

	text := result.Content[0].(mcp.TextContent).Text
	assert.Contains(t, text, `"<View>{a && b}</View>"`)
	assert.NotContains(t, text, `\u003c`)
	assert.NotContains(t, text, `\u0026`)
	assert.False(t, strings.HasSuffix(text, "\n"), "no trailing newline")
}

func TestArgs(t *testing.T) {
	args := map[string]any{
		"action": "  list ",
		"limit":  float64(7),
		"big":    float64(500),
		"neg":    float64(-1),
		"cli":    int64(3),
		"wrong":  true,
	}

	assert.Equal(t, "list", StringArg(args, "action"))
	assert.Equal(t, "", StringArg(args, "wrong"))

	_, err := RequiredStringArg(args, "slug", "post")
	assert.EqualError(t, err, "slug parameter is required for post action")
	_, err = RequiredStringArg(args, "slug", "")
	assert.EqualError(t, err, "missing or invalid required parameter: slug")

	assert.Equal(t, 7, IntArg(args, "limit", 10, 50))
	assert.Equal(t, 50, IntArg(args, "big", 10, 50))
	assert.Equal(t, 10, IntArg(args, "neg", 10, 50))
	assert.Equal(t, 3, IntArg(args, "cli", 10, 50))
	assert.Equal(t, 10, IntArg(args, "missing", 10, 50))
}

func TestSessionID_OutsideSession(t *testing.T) {
	assert.Equal(t, LocalSessionID, SessionID(context.Background()))
}

func TestIsToolEnabled(t *testing.T) {
	tests := []struct {
		env  string
		tool string
		want bool
	}{
		{"", "store_fetch", false},
		{"store-fetch", "store_fetch", true},
		{" Store_Fetch , other", "store-fetch", true},
		{"all", "anything", true},
		{"other", "store_fetch", false},
	}

	for _, tt := range tests {
		t.Run(tt.env+"/"+tt.tool, func(t *testing.T) {
			t.Setenv("ENABLE_ADDITIONAL_TOOLS", tt.env)
			assert.Equal(t, tt.want, IsToolEnabled(tt.tool))
		})
	}
}

func readEntries(t *testing.T, path string) []ToolErrorLogEntry {
	t.Helper()
	f, err := os.Open(path)
	require.NoError(t, err)
	defer func() { _ = f.Close() }()

	var entries []ToolErrorLogEntry
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		var e ToolErrorLogEntry
		require.NoError(t, json.Unmarshal(scanner.Bytes(), &e))
		entries = append(entries, e)
	}
	require.NoError(t, scanner.Err())
	return entries
}

func TestToolErrorLogger_WritesEntries(t *testing.T) {
	dir := t.TempDir()
	l, err := OpenToolErrorLogger(dir, DefaultLogRetentionDays, testLogger())
	require.NoError(t, err)
	defer func() { _ = l.Close() }()

	assert.True(t, l.IsEnabled())
	assert.Equal(t, filepath.Join(dir, "tool-errors.log"), l.GetLogFilePath())

	l.LogToolError("components", "s1", map[string]any{"action": "code"}, errors.New("boom"), "stdio")
	l.LogToolError("components", "s1", nil, nil, "stdio")

	entries := readEntries(t, l.GetLogFilePath())
	require.Len(t, entries, 1)
	assert.Equal(t, "components", entries[0].ToolName)
	assert.Equal(t, "s1", entries[0].SessionID)
	assert.Equal(t, "boom", entries[0].Error)
	assert.Equal(t, "code", entries[0].Arguments["action"])
}

func TestToolErrorLogger_RotateOldLogs(t *testing.T) {
	dir := t.TempDir()
	l, err := OpenToolErrorLogger(dir, 1, testLogger())
	require.NoError(t, err)
	defer func() { _ = l.Close() }()

	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	l.now = func() time.Time { return now.Add(-48 * time.Hour) }
	l.LogToolError("old", "", nil, errors.New("stale"), "")
	l.now = func() time.Time { return now }
	l.LogToolError("new", "", nil, errors.New("fresh"), "")

	require.NoError(t, l.RotateOldLogs())

	entries := readEntries(t, l.GetLogFilePath())
	require.Len(t, entries, 1)
	assert.Equal(t, "new", entries[0].ToolName)

	l.LogToolError("after", "", nil, errors.New("still writable"), "")
	assert.Len(t, readEntries(t, l.GetLogFilePath()), 2)
}

func TestToolErrorLogger_Disabled(t *testing.T) {
	l := GetGlobalErrorLogger()
	assert.False(t, l.IsEnabled())
	l.LogToolError("x", "", nil, errors.New("dropped"), "")
	assert.NoError(t, l.Close())
	assert.NoError(t, l.RotateOldLogs())
}
