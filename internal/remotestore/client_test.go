package remotestore

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

func newTestClient(t *testing.T, handler http.Handler, token string) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	client, err := NewClient(context.Background(), Options{
		Owner:              "acme",
		Repo:               "ui",
		Token:              token,
		BaseURL:            srv.URL,
		RateLimitPerMinute: 600000,
		MaxRetries:         3,
		RetryDelay:         time.Millisecond,
	}, testLogger())
	require.NoError(t, err)
	return client
}

func writeJSON(t *testing.T, w http.ResponseWriter, v any) {
	t.Helper()
	w.Header().Set("Content-Type", "application/json")
	require.NoError(t, json.NewEncoder(w).Encode(v))
}

func TestGetRepoFile_ReturnsBase64Payload(t *testing.T) {
	encoded := base64.StdEncoding.EncodeToString([]byte(`[{"name":"btn","path":"reactnative/btn"}]`))

	mux := http.NewServeMux()
	mux.HandleFunc("/repos/acme/ui/contents/components-list.json", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(t, w, map[string]any{
			"type":     "file",
			"path":     "components-list.json",
			"sha":      "abc123",
			"size":     42,
			"encoding": "base64",
			"content":  encoded,
		})
	})

	client := newTestClient(t, mux, "")
	file, err := client.GetRepoFile(context.Background(), "/components-list.json")
	require.NoError(t, err)

	assert.Equal(t, "components-list.json", file.Path)
	assert.Equal(t, "abc123", file.SHA)
	assert.Equal(t, "base64", file.Encoding)
	assert.Equal(t, encoded, string(file.Raw))
}

func TestGetRepoFile_SendsBearerToken(t *testing.T) {
	var auth atomic.Value
	mux := http.NewServeMux()
	mux.HandleFunc("/repos/acme/ui/contents/a.md", func(w http.ResponseWriter, r *http.Request) {
		auth.Store(r.Header.Get("Authorization"))
		writeJSON(t, w, map[string]any{"type": "file", "path": "a.md", "encoding": "base64", "content": ""})
	})

	client := newTestClient(t, mux, "secret-token")
	assert.True(t, client.Authenticated())

	_, err := client.GetRepoFile(context.Background(), "a.md")
	require.NoError(t, err)
	assert.Equal(t, "Bearer secret-token", auth.Load())
}

func TestGetRepoFile_AnonymousWithoutToken(t *testing.T) {
	var auth atomic.Value
	mux := http.NewServeMux()
	mux.HandleFunc("/repos/acme/ui/contents/a.md", func(w http.ResponseWriter, r *http.Request) {
		auth.Store(r.Header.Get("Authorization"))
		writeJSON(t, w, map[string]any{"type": "file", "path": "a.md", "encoding": "base64", "content": ""})
	})

	client := newTestClient(t, mux, "")
	assert.False(t, client.Authenticated())

	_, err := client.GetRepoFile(context.Background(), "a.md")
	require.NoError(t, err)
	assert.Equal(t, "", auth.Load())
}

func TestGetRepoFile_NotFound(t *testing.T) {
	var calls atomic.Int32
	mux := http.NewServeMux()
	mux.HandleFunc("/repos/acme/ui/contents/", func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"message":"Not Found"}`))
	})

	client := newTestClient(t, mux, "")
	_, err := client.GetRepoFile(context.Background(), "flutter/btn/btn.dart")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.NotErrorIs(t, err, ErrNetwork)
	assert.Equal(t, int32(1), calls.Load(), "not found must not be retried")
}

func TestGetRepoFile_DirectoryIsNotFound(t *testing.T) {
	var calls atomic.Int32
	mux := http.NewServeMux()
	mux.HandleFunc("/repos/acme/ui/contents/reactnative", func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		writeJSON(t, w, []map[string]any{{"type": "file", "path": "reactnative/a.tsx"}})
	})

	client := newTestClient(t, mux, "")
	_, err := client.GetRepoFile(context.Background(), "reactnative")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.NotErrorIs(t, err, ErrNetwork)
	assert.Equal(t, int32(1), calls.Load(), "not found is never retried")
}

func TestClassifyError_StoreNotFound(t *testing.T) {
	err := fmt.Errorf("reactnative is a directory: %w", ErrNotFound)

	classified, retryable := classifyError(context.Background(), "get reactnative", err)
	assert.False(t, retryable)
	assert.ErrorIs(t, classified, ErrNotFound)
	assert.NotErrorIs(t, classified, ErrNetwork)
}

func TestGetRepoFile_RetriesServerErrors(t *testing.T) {
	var calls atomic.Int32
	mux := http.NewServeMux()
	mux.HandleFunc("/repos/acme/ui/contents/a.md", func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		writeJSON(t, w, map[string]any{"type": "file", "path": "a.md", "encoding": "base64", "content": "aGk="})
	})

	client := newTestClient(t, mux, "")
	file, err := client.GetRepoFile(context.Background(), "a.md")
	require.NoError(t, err)
	assert.Equal(t, "aGk=", string(file.Raw))
	assert.Equal(t, int32(3), calls.Load())
}

func TestGetRepoFile_ServerErrorExhaustsRetries(t *testing.T) {
	var calls atomic.Int32
	mux := http.NewServeMux()
	mux.HandleFunc("/repos/acme/ui/contents/a.md", func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusServiceUnavailable)
	})

	client := newTestClient(t, mux, "")
	_, err := client.GetRepoFile(context.Background(), "a.md")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrNetwork)
	assert.Equal(t, int32(3), calls.Load())
}

func TestGetRepoFile_ClientErrorIsNetworkFailure(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/repos/acme/ui/contents/a.md", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"message":"Bad credentials"}`))
	})

	client := newTestClient(t, mux, "bad")
	_, err := client.GetRepoFile(context.Background(), "a.md")
	assert.ErrorIs(t, err, ErrNetwork)
	assert.Contains(t, err.Error(), "401")
}

func TestGetRepoFile_CancelledContext(t *testing.T) {
	mux := http.NewServeMux()
	client := newTestClient(t, mux, "")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := client.GetRepoFile(ctx, "a.md")
	require.Error(t, err)
	assert.True(t, errors.Is(err, context.Canceled))
	assert.NotErrorIs(t, err, ErrNetwork)
}

func TestGetRepoFile_Validation(t *testing.T) {
	client := newTestClient(t, http.NewServeMux(), "")
	_, err := client.GetRepoFile(context.Background(), "/")
	assert.Error(t, err)

	gistOnly, err := NewClient(context.Background(), Options{}, testLogger())
	require.NoError(t, err)
	_, err = gistOnly.GetRepoFile(context.Background(), "a.md")
	assert.ErrorContains(t, err, "no repository configured")
}

func TestGetSnippetFiles(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/gists/abc", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(t, w, map[string]any{
			"id": "abc",
			"files": map[string]any{
				"blog_posts.json": map[string]any{"filename": "blog_posts.json", "content": `[{"slug":"a"}]`},
				"a.md":            map[string]any{"filename": "a.md", "content": "# A"},
			},
		})
	})

	client := newTestClient(t, mux, "")
	files, err := client.GetSnippetFiles(context.Background(), "abc")
	require.NoError(t, err)
	assert.Equal(t, map[string]string{
		"blog_posts.json": `[{"slug":"a"}]`,
		"a.md":            "# A",
	}, files)
}

func TestGetSnippetFiles_FollowsRawURLForTruncatedFiles(t *testing.T) {
	mux := http.NewServeMux()
	var rawURL string
	mux.HandleFunc("/gists/big", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(t, w, map[string]any{
			"id": "big",
			"files": map[string]any{
				"long.md": map[string]any{"filename": "long.md", "raw_url": rawURL},
			},
		})
	})
	mux.HandleFunc("/raw/long.md", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("# Long post"))
	})

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	rawURL = srv.URL + "/raw/long.md"

	client, err := NewClient(context.Background(), Options{
		BaseURL:            srv.URL,
		RateLimitPerMinute: 600000,
		RetryDelay:         time.Millisecond,
	}, testLogger())
	require.NoError(t, err)

	files, err := client.GetSnippetFiles(context.Background(), "big")
	require.NoError(t, err)
	assert.Equal(t, "# Long post", files["long.md"])
}

func TestGetSnippetFiles_NotFound(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/gists/missing", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})

	client := newTestClient(t, mux, "")
	_, err := client.GetSnippetFiles(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = client.GetSnippetFiles(context.Background(), "")
	assert.Error(t, err)
}
