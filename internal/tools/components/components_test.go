package components

import (
	"context"
	"fmt"
	"testing"

	"github.com/nativeui-dev/catalog-mcp/internal/catalog"
	"github.com/nativeui-dev/catalog-mcp/internal/remotestore"
	"github.com/nativeui-dev/catalog-mcp/internal/remotestore/remotestoretest"
	"github.com/nativeui-dev/catalog-mcp/tests/testutils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testList = `[
	{"name":"btn","path":"reactnative/btn"},
	{"name":"card","path":"flutter/card"},
	{"name":"slider","path":"reactnative/slider"}
]`

func newTool(files map[string]string) (*ComponentsTool, *remotestoretest.MemStore) {
	store := testutils.NewCatalogStore(testList, files)
	return New(catalog.NewAssembler(store, testutils.CreateTestLogger(), 2)), store
}

func TestDefinition(t *testing.T) {
	tool, _ := newTool(nil)
	def := tool.Definition()
	assert.Equal(t, ToolName, def.Name)
	assert.Contains(t, def.InputSchema.Required, "action")
	assert.Contains(t, def.InputSchema.Properties, "framework")
	assert.NotNil(t, tool.ProvideExtendedInfo())
}

func TestExecute_List(t *testing.T) {
	tool, _ := newTool(map[string]string{
		"reactnative/btn/metadata.json": `{"title":"Button","category":"inputs"}`,
	})

	result, err := tool.Execute(context.Background(), testutils.CreateTestLogger(), testutils.CreateTestCache(),
		map[string]any{"action": "list"})
	require.NoError(t, err)

	var resp struct {
		Count      int              `json:"count"`
		Components []map[string]any `json:"components"`
	}
	testutils.DecodeResult(t, result, &resp)
	require.Equal(t, 3, resp.Count)
	assert.Equal(t, "Button", resp.Components[0]["title"])
	assert.Equal(t, "card", resp.Components[1]["name"])
	assert.NotContains(t, resp.Components[1], "title")
}

func TestExecute_ListFiltered(t *testing.T) {
	tool, _ := newTool(nil)

	result, err := tool.Execute(context.Background(), testutils.CreateTestLogger(), testutils.CreateTestCache(),
		map[string]any{"action": "list", "framework": "flutter"})
	require.NoError(t, err)

	var resp listResponse
	testutils.DecodeResult(t, result, &resp)
	assert.Equal(t, catalog.Flutter, resp.Framework)
	require.Len(t, resp.Components, 1)
	assert.Equal(t, "card", resp.Components[0].Name)
}

func TestExecute_ListMalformedCatalog(t *testing.T) {
	store := testutils.NewCatalogStore(`{"not":"a list"}`, nil)
	tool := New(catalog.NewAssembler(store, testutils.CreateTestLogger(), 0))

	_, err := tool.Execute(context.Background(), testutils.CreateTestLogger(), testutils.CreateTestCache(),
		map[string]any{"action": "list"})
	assert.Error(t, err)
}

func TestExecute_Search(t *testing.T) {
	tool, _ := newTool(map[string]string{
		"reactnative/slider/metadata.json": `{"title":"Range Slider","description":"drag to pick a value"}`,
	})

	result, err := tool.Execute(context.Background(), testutils.CreateTestLogger(), testutils.CreateTestCache(),
		map[string]any{"action": "search", "query": "range"})
	require.NoError(t, err)

	var resp listResponse
	testutils.DecodeResult(t, result, &resp)
	require.NotEmpty(t, resp.Components)
	assert.Equal(t, "slider", resp.Components[0].Name)

	_, err = tool.Execute(context.Background(), testutils.CreateTestLogger(), testutils.CreateTestCache(),
		map[string]any{"action": "search"})
	assert.ErrorContains(t, err, "query parameter is required")
}

func TestExecute_Find(t *testing.T) {
	tool, _ := newTool(map[string]string{
		"reactnative/btn/metadata.json": `{"title":"Animated Button"}`,
	})
	logger, views := testutils.CreateTestLogger(), testutils.CreateTestCache()

	result, err := tool.Execute(context.Background(), logger, views,
		map[string]any{"action": "find", "slug": "animated-button"})
	require.NoError(t, err)

	var found map[string]any
	testutils.DecodeResult(t, result, &found)
	assert.Equal(t, "btn", found["name"])

	result, err = tool.Execute(context.Background(), logger, views,
		map[string]any{"action": "find", "slug": "nope"})
	require.NoError(t, err)
	assert.True(t, result.IsError)
	assert.Contains(t, testutils.ResultText(t, result), "not found")
}

func TestExecute_Code(t *testing.T) {
	tool, _ := newTool(map[string]string{
		"reactnative/btn/btn.tsx": "export const Btn = () => null;",
		"flutter/btn/btn.dart":    "class Btn {}",
	})
	logger, views := testutils.CreateTestLogger(), testutils.CreateTestCache()

	result, err := tool.Execute(context.Background(), logger, views,
		map[string]any{"action": "code", "component": "reactnative/btn"})
	require.NoError(t, err)

	var code catalog.ComponentCode
	testutils.DecodeResult(t, result, &code)
	assert.Equal(t, catalog.ReactNative, code.Framework)
	assert.Equal(t, "tsx", code.Language)
	assert.Equal(t, "export const Btn = () => null;", code.Code)

	result, err = tool.Execute(context.Background(), logger, views,
		map[string]any{"action": "code", "component": "btn", "framework": "flutter"})
	require.NoError(t, err)
	testutils.DecodeResult(t, result, &code)
	assert.Equal(t, "flutter/btn/btn.dart", code.Path)

	assert.Equal(t, 1, views.Len(), "one view per session and component")
}

func TestExecute_CodeMissingFile(t *testing.T) {
	tool, _ := newTool(nil)

	result, err := tool.Execute(context.Background(), testutils.CreateTestLogger(), testutils.CreateTestCache(),
		map[string]any{"action": "code", "component": "card", "framework": "flutter"})
	require.NoError(t, err)
	assert.True(t, result.IsError)
	assert.Contains(t, testutils.ResultText(t, result), "content unavailable")
}

func TestExecute_CodeNetworkFailure(t *testing.T) {
	tool, store := newTool(nil)
	store.FailWith("flutter/card/card.dart", fmt.Errorf("%w: reset", remotestore.ErrNetwork))

	_, err := tool.Execute(context.Background(), testutils.CreateTestLogger(), testutils.CreateTestCache(),
		map[string]any{"action": "code", "component": "card", "framework": "flutter"})
	assert.ErrorIs(t, err, remotestore.ErrNetwork)
}

func TestExecute_CodeFrameworkSwitchSupersedes(t *testing.T) {
	started := make(chan struct{})
	tool, store := newTool(map[string]string{
		"reactnative/btn/btn.tsx": "rn",
		"flutter/btn/btn.dart":    "dart",
	})
	store.OnRead("reactnative/btn/btn.tsx", func(ctx context.Context) error {
		close(started)
		<-ctx.Done()
		return ctx.Err()
	})
	logger, views := testutils.CreateTestLogger(), testutils.CreateTestCache()

	type outcome struct {
		text    string
		isError bool
		err     error
	}
	first := make(chan outcome, 1)
	go func() {
		result, err := tool.Execute(context.Background(), logger, views,
			map[string]any{"action": "code", "component": "btn", "framework": "react-native"})
		if err != nil {
			first <- outcome{err: err}
			return
		}
		first <- outcome{text: testutils.ResultText(t, result), isError: result.IsError}
	}()
	<-started

	result, err := tool.Execute(context.Background(), logger, views,
		map[string]any{"action": "code", "component": "btn", "framework": "flutter"})
	require.NoError(t, err)
	var code catalog.ComponentCode
	testutils.DecodeResult(t, result, &code)
	assert.Equal(t, "dart", code.Code)

	stale := <-first
	require.NoError(t, stale.err)
	assert.True(t, stale.isError)
	assert.Contains(t, stale.text, "superseded")
}

func TestExecute_Docs(t *testing.T) {
	tool, _ := newTool(map[string]string{
		"reactnative/btn/btn.md": "# Button\n\nPress **me**.",
	})
	logger, views := testutils.CreateTestLogger(), testutils.CreateTestCache()

	result, err := tool.Execute(context.Background(), logger, views,
		map[string]any{"action": "docs", "component": "btn"})
	require.NoError(t, err)
	var docs docsResponse
	testutils.DecodeResult(t, result, &docs)
	assert.Equal(t, "html", docs.Format)
	assert.Contains(t, docs.Content, "<strong>me</strong>")

	result, err = tool.Execute(context.Background(), logger, views,
		map[string]any{"action": "docs", "component": "btn", "format": "markdown"})
	require.NoError(t, err)
	testutils.DecodeResult(t, result, &docs)
	assert.Equal(t, "# Button\n\nPress **me**.", docs.Content)

	result, err = tool.Execute(context.Background(), logger, views,
		map[string]any{"action": "docs", "component": "btn", "framework": "flutter"})
	require.NoError(t, err)
	assert.True(t, result.IsError)
	assert.Contains(t, testutils.ResultText(t, result), "content unavailable")
}

func TestExecute_InvalidArguments(t *testing.T) {
	tool, _ := newTool(nil)
	logger, views := testutils.CreateTestLogger(), testutils.CreateTestCache()

	tests := []struct {
		name string
		args map[string]any
		want string
	}{
		{"missing action", map[string]any{}, "action"},
		{"unknown action", map[string]any{"action": "delete"}, "invalid action"},
		{"unknown framework", map[string]any{"action": "code", "component": "btn", "framework": "swiftui"}, "unknown framework"},
		{"missing component", map[string]any{"action": "docs"}, "component parameter is required"},
		{"bad format", map[string]any{"action": "docs", "component": "btn", "format": "pdf"}, "invalid format"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := tool.Execute(context.Background(), logger, views, tt.args)
			assert.ErrorContains(t, err, tt.want)
		})
	}
}
