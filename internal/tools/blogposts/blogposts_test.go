package blogposts

import (
	"context"
	"fmt"
	"testing"

	"github.com/nativeui-dev/catalog-mcp/internal/blog"
	"github.com/nativeui-dev/catalog-mcp/internal/remotestore"
	"github.com/nativeui-dev/catalog-mcp/internal/remotestore/remotestoretest"
	"github.com/nativeui-dev/catalog-mcp/tests/testutils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const gistID = "gist"

func newTool(files map[string]string) (*BlogTool, *remotestoretest.MemStore) {
	store := remotestoretest.NewMemStore().SetSnippet(gistID, files)
	return New(blog.NewResolver(store, gistID, testutils.CreateTestLogger())), store
}

func execute(t *testing.T, tool *BlogTool, args map[string]any) (map[string]any, bool) {
	t.Helper()
	result, err := tool.Execute(context.Background(), testutils.CreateTestLogger(), testutils.CreateTestCache(), args)
	require.NoError(t, err)
	if result.IsError {
		return map[string]any{"error": testutils.ResultText(t, result)}, true
	}
	var out map[string]any
	testutils.DecodeResult(t, result, &out)
	return out, false
}

func TestExecute_List(t *testing.T) {
	tool, _ := newTool(map[string]string{
		blog.CollectionFile: `[
			{"slug":"a","title":"A","author":"Ada","excerpt":"first"},
			{"slug":"b","title":"B","author":{"name":"Bo","avatar":"bo.png"},"content":"<p>Body text.</p>"}
		]`,
	})

	out, isErr := execute(t, tool, map[string]any{"action": "list"})
	require.False(t, isErr)
	assert.EqualValues(t, 2, out["count"])

	posts := out["posts"].([]any)
	first := posts[0].(map[string]any)
	assert.Equal(t, "Ada", first["author"])
	assert.NotContains(t, first, "content")

	second := posts[1].(map[string]any)
	assert.Equal(t, "Body text.", second["excerpt"])
	assert.Equal(t, map[string]any{"name": "Bo", "avatar": "bo.png"}, second["author"])
}

func TestExecute_PostHTMLAndMarkdown(t *testing.T) {
	tool, _ := newTool(map[string]string{
		blog.CollectionFile: `[{"slug":"hello","title":"Hello"}]`,
		"hello.md":          "## Intro\n\nSome **bold** text.",
	})

	out, isErr := execute(t, tool, map[string]any{"action": "post", "slug": "hello"})
	require.False(t, isErr)
	assert.Equal(t, "html", out["format"])
	assert.Contains(t, out["content"], "<strong>bold</strong>")

	out, isErr = execute(t, tool, map[string]any{"action": "post", "slug": "hello", "format": "markdown"})
	require.False(t, isErr)
	assert.Equal(t, "markdown", out["format"])
	assert.Contains(t, out["content"], "**bold**")
	assert.Contains(t, out["content"], "## Intro")
}

func TestExecute_PostNotFound(t *testing.T) {
	tool, _ := newTool(map[string]string{
		blog.CollectionFile: `[{"slug":"hello","title":"Hello"}]`,
	})

	out, isErr := execute(t, tool, map[string]any{"action": "post", "slug": "Hello"})
	require.True(t, isErr)
	assert.Contains(t, out["error"], "not found")
}

func TestExecute_NetworkFailure(t *testing.T) {
	tool, store := newTool(nil)
	store.FailWith(gistID, fmt.Errorf("%w: timeout", remotestore.ErrNetwork))

	_, err := tool.Execute(context.Background(), testutils.CreateTestLogger(), testutils.CreateTestCache(),
		map[string]any{"action": "post", "slug": "x"})
	assert.ErrorIs(t, err, remotestore.ErrNetwork)

	_, err = tool.Execute(context.Background(), testutils.CreateTestLogger(), testutils.CreateTestCache(),
		map[string]any{"action": "list"})
	assert.ErrorIs(t, err, remotestore.ErrNetwork)
}

func TestExecute_Search(t *testing.T) {
	tool, _ := newTool(map[string]string{
		blog.CollectionFile: `[
			{"slug":"a","title":"Flutter animations"},
			{"slug":"b","title":"Dark mode in React Native"}
		]`,
	})

	out, isErr := execute(t, tool, map[string]any{"action": "search", "query": "dark"})
	require.False(t, isErr)
	posts := out["posts"].([]any)
	require.NotEmpty(t, posts)
	assert.Equal(t, "b", posts[0].(map[string]any)["slug"])
}

func TestExecute_InvalidArguments(t *testing.T) {
	tool, _ := newTool(nil)

	tests := []struct {
		name string
		args map[string]any
		want string
	}{
		{"missing action", map[string]any{}, "action"},
		{"unknown action", map[string]any{"action": "publish"}, "invalid action"},
		{"missing slug", map[string]any{"action": "post"}, "slug parameter is required"},
		{"missing query", map[string]any{"action": "search"}, "query parameter is required"},
		{"bad format", map[string]any{"action": "post", "slug": "x", "format": "rtf"}, "invalid format"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := tool.Execute(context.Background(), testutils.CreateTestLogger(), testutils.CreateTestCache(), tt.args)
			assert.ErrorContains(t, err, tt.want)
		})
	}
}
