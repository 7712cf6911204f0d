package testutils

import (
	"context"
	"encoding/json"
	"io"
	"testing"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/nativeui-dev/catalog-mcp/internal/cache"
	"github.com/nativeui-dev/catalog-mcp/internal/remotestore/remotestoretest"
	"github.com/sirupsen/logrus"
)

// CreateTestLogger creates a logger suitable for testing
func CreateTestLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	logger.SetLevel(logrus.ErrorLevel)
	return logger
}

// CreateTestCache creates a cache suitable for testing
func CreateTestCache() *cache.Cache {
	return cache.NewCache(time.Hour)
}

// CreateTestContext creates a context suitable for testing
func CreateTestContext() context.Context {
	return context.Background()
}

// NewCatalogStore returns an in-memory store holding a component list and the
// given extra files, keyed by repository path.
func NewCatalogStore(list string, files map[string]string) *remotestoretest.MemStore {
	store := remotestoretest.NewMemStore().SetFile("components-list.json", list)
	for path, text := range files {
		store.SetFile(path, text)
	}
	return store
}

// WithEnv sets environment variables for the duration of the test.
func WithEnv(t *testing.T, env map[string]string) {
	t.Helper()
	for k, v := range env {
		t.Setenv(k, v)
	}
}

// ResultText returns the text of the first content item of a tool result.
func ResultText(t *testing.T, result *mcp.CallToolResult) string {
	t.Helper()

	if result == nil {
		t.Fatal("Expected tool result, got nil")
	}
	if len(result.Content) == 0 {
		t.Fatal("Expected content in tool result")
	}

	textContent, ok := result.Content[0].(mcp.TextContent)
	if !ok {
		t.Fatalf("Expected TextContent, got %T", result.Content[0])
	}
	return textContent.Text
}

// DecodeResult unmarshals the JSON text of a tool result into out.
func DecodeResult(t *testing.T, result *mcp.CallToolResult, out any) {
	t.Helper()

	if result.IsError {
		t.Fatalf("Expected successful tool result, got error: %s", ResultText(t, result))
	}
	if err := json.Unmarshal([]byte(ResultText(t, result)), out); err != nil {
		t.Fatalf("Failed to parse tool result JSON: %v", err)
	}
}
