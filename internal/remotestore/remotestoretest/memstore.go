// Package remotestoretest provides an in-memory remotestore.Store for tests.
package remotestoretest

import (
	"context"
	"encoding/base64"
	"fmt"
	"maps"
	"sync"

	"github.com/nativeui-dev/catalog-mcp/internal/remotestore"
)

// MemStore serves repository files and gists from memory. Files are stored as
// text and returned base64 encoded, the way the contents API delivers them.
type MemStore struct {
	mu       sync.Mutex
	files    map[string]string
	snippets map[string]map[string]string
	errs     map[string]error
	hooks    map[string]func(ctx context.Context) error
	calls    map[string]int
}

// NewMemStore creates an empty store.
func NewMemStore() *MemStore {
	return &MemStore{
		files:    make(map[string]string),
		snippets: make(map[string]map[string]string),
		errs:     make(map[string]error),
		hooks:    make(map[string]func(ctx context.Context) error),
		calls:    make(map[string]int),
	}
}

// SetFile stores a repository file.
func (m *MemStore) SetFile(path, text string) *MemStore {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.files[path] = text
	return m
}

// SetSnippet stores a gist.
func (m *MemStore) SetSnippet(id string, files map[string]string) *MemStore {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.snippets[id] = maps.Clone(files)
	return m
}

// FailWith makes reads of key (a path or snippet id) return err.
func (m *MemStore) FailWith(key string, err error) *MemStore {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.errs[key] = err
	return m
}

// OnRead runs hook before key is served. A non-nil hook error is returned
// to the caller instead of the content.
func (m *MemStore) OnRead(key string, hook func(ctx context.Context) error) *MemStore {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.hooks[key] = hook
	return m
}

// Calls returns how many times key was read.
func (m *MemStore) Calls(key string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls[key]
}

func (m *MemStore) before(ctx context.Context, key string) error {
	m.mu.Lock()
	m.calls[key]++
	hook := m.hooks[key]
	err := m.errs[key]
	m.mu.Unlock()

	if hook != nil {
		if hookErr := hook(ctx); hookErr != nil {
			return hookErr
		}
	}
	if err != nil {
		return err
	}
	return ctx.Err()
}

func (m *MemStore) GetRepoFile(ctx context.Context, path string) (*remotestore.RepoFile, error) {
	if err := m.before(ctx, path); err != nil {
		return nil, err
	}

	m.mu.Lock()
	text, ok := m.files[path]
	m.mu.Unlock()
	if !ok {
		return nil, fmt.Errorf("get %s: %w", path, remotestore.ErrNotFound)
	}

	return &remotestore.RepoFile{
		Path:     path,
		Size:     len(text),
		Encoding: "base64",
		Raw:      []byte(base64.StdEncoding.EncodeToString([]byte(text))),
	}, nil
}

func (m *MemStore) GetSnippetFiles(ctx context.Context, snippetID string) (map[string]string, error) {
	if err := m.before(ctx, snippetID); err != nil {
		return nil, err
	}

	m.mu.Lock()
	files, ok := m.snippets[snippetID]
	m.mu.Unlock()
	if !ok {
		return nil, fmt.Errorf("get gist %s: %w", snippetID, remotestore.ErrNotFound)
	}
	return maps.Clone(files), nil
}

var _ remotestore.Store = (*MemStore)(nil)
