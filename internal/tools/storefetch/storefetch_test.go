package storefetch

import (
	"context"
	"fmt"
	"testing"

	"github.com/nativeui-dev/catalog-mcp/internal/remotestore"
	"github.com/nativeui-dev/catalog-mcp/internal/remotestore/remotestoretest"
	"github.com/nativeui-dev/catalog-mcp/tests/testutils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTool() (*StoreFetchTool, *remotestoretest.MemStore) {
	store := remotestoretest.NewMemStore().
		SetFile("components-list.json", `[{"name":"btn","path":"reactnative/btn"}]`).
		SetSnippet("blog", map[string]string{"blog_posts.json": "[]", "a.md": "# A"})
	return New(store, "blog"), store
}

func decode(t *testing.T, tool *StoreFetchTool, args map[string]any) fileResponse {
	t.Helper()
	result, err := tool.Execute(context.Background(), testutils.CreateTestLogger(), testutils.CreateTestCache(), args)
	require.NoError(t, err)
	var resp fileResponse
	testutils.DecodeResult(t, result, &resp)
	return resp
}

func TestExecute_RepoFile(t *testing.T) {
	tool, _ := newTool()

	resp := decode(t, tool, map[string]any{"source": "repo", "path": "/components-list.json"})
	assert.Equal(t, "components-list.json", resp.Path)
	assert.Equal(t, `[{"name":"btn","path":"reactnative/btn"}]`, resp.Content)
	assert.False(t, resp.Truncated)
}

func TestExecute_Truncates(t *testing.T) {
	tool, _ := newTool()

	resp := decode(t, tool, map[string]any{"source": "repo", "path": "components-list.json", "max_chars": float64(5)})
	assert.Equal(t, `[{"na`, resp.Content)
	assert.True(t, resp.Truncated)
}

func TestExecute_Gist(t *testing.T) {
	tool, _ := newTool()

	resp := decode(t, tool, map[string]any{"source": "gist"})
	assert.Equal(t, []string{"a.md", "blog_posts.json"}, resp.Files)
	assert.Equal(t, 2, resp.Size)

	resp = decode(t, tool, map[string]any{"source": "gist", "snippet_id": "blog", "file": "a.md"})
	assert.Equal(t, "# A", resp.Content)
}

func TestExecute_NotFoundIsToolError(t *testing.T) {
	tool, _ := newTool()

	for _, args := range []map[string]any{
		{"source": "repo", "path": "missing.json"},
		{"source": "gist", "file": "missing.md"},
		{"source": "gist", "snippet_id": "other"},
	} {
		result, err := tool.Execute(context.Background(), testutils.CreateTestLogger(), testutils.CreateTestCache(), args)
		require.NoError(t, err)
		assert.True(t, result.IsError)
		assert.Contains(t, testutils.ResultText(t, result), "not found")
	}
}

func TestExecute_Errors(t *testing.T) {
	tool, store := newTool()
	store.FailWith("components-list.json", fmt.Errorf("%w: 502", remotestore.ErrNetwork))

	_, err := tool.Execute(context.Background(), testutils.CreateTestLogger(), testutils.CreateTestCache(),
		map[string]any{"source": "repo", "path": "components-list.json"})
	assert.ErrorIs(t, err, remotestore.ErrNetwork)

	_, err = tool.Execute(context.Background(), testutils.CreateTestLogger(), testutils.CreateTestCache(),
		map[string]any{"source": "ftp"})
	assert.ErrorContains(t, err, "invalid source")

	_, err = tool.Execute(context.Background(), testutils.CreateTestLogger(), testutils.CreateTestCache(),
		map[string]any{"source": "repo"})
	assert.ErrorContains(t, err, "path parameter is required")
}

func TestTruncate(t *testing.T) {
	s, cut := truncate("héllo", 2)
	assert.Equal(t, "hé", s)
	assert.True(t, cut)

	s, cut = truncate("hi", 2)
	assert.Equal(t, "hi", s)
	assert.False(t, cut)
}
