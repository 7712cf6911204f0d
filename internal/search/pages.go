package search

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"
)

// Page is one navigable page of the site.
type Page struct {
	Title    string   `yaml:"title" json:"title"`
	Path     string   `yaml:"path" json:"path"`
	Keywords []string `yaml:"keywords,omitempty" json:"keywords,omitempty"`
}

// DefaultPages is the built-in page table.
var DefaultPages = []Page{
	{Title: "Home", Path: "/"},
	{Title: "Components", Path: "/components"},
	{Title: "Templates", Path: "/templates"},
	{Title: "Blog", Path: "/blog"},
	{Title: "Documentation", Path: "/docs"},
	{Title: "Getting Started", Path: "/docs/getting-started"},
	{Title: "Installation", Path: "/docs/installation"},
	{Title: "Components API", Path: "/docs/components-api"},
	{Title: "Styling Guide", Path: "/docs/styling"},
	{Title: "Best Practices", Path: "/docs/best-practices"},
}

// PageIndex is a concurrency safe, replaceable page table.
type PageIndex struct {
	mu    sync.RWMutex
	pages []Page
}

// NewPageIndex creates an index over pages, or over DefaultPages when pages
// is empty.
func NewPageIndex(pages []Page) *PageIndex {
	if len(pages) == 0 {
		pages = DefaultPages
	}
	return &PageIndex{pages: slices.Clone(pages)}
}

// Pages returns a copy of the current table.
func (p *PageIndex) Pages() []Page {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return slices.Clone(p.pages)
}

// Replace swaps the page table.
func (p *PageIndex) Replace(pages []Page) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.pages = slices.Clone(pages)
}

// Search returns pages ranked against query.
func (p *PageIndex) Search(query string, limit int) []Page {
	pages := p.Pages()

	targets := make([]string, len(pages))
	for i, page := range pages {
		targets[i] = strings.TrimSpace(page.Title + " " + strings.Join(page.Keywords, " "))
	}

	matches := Rank(query, targets, limit)
	results := make([]Page, len(matches))
	for i, m := range matches {
		results[i] = pages[m.Index]
	}
	return results
}

// LoadPagesFile reads a page table from YAML. The file holds either a list of
// pages or a mapping with a "pages" key.
func LoadPagesFile(path string) ([]Page, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read pages file: %w", err)
	}

	var pages []Page
	if err := yaml.Unmarshal(data, &pages); err != nil {
		var wrapped struct {
			Pages []Page `yaml:"pages"`
		}
		if wrappedErr := yaml.Unmarshal(data, &wrapped); wrappedErr != nil {
			return nil, fmt.Errorf("failed to parse pages file: %w", err)
		}
		pages = wrapped.Pages
	}

	if len(pages) == 0 {
		return nil, fmt.Errorf("pages file %s defines no pages", path)
	}
	for i, page := range pages {
		if page.Title == "" || page.Path == "" {
			return nil, fmt.Errorf("page %d in %s needs both title and path", i, path)
		}
	}
	return pages, nil
}

// Watch reloads the index from path whenever the file changes, until ctx is
// done. A reload that fails keeps the previous table. The parent directory is
// watched so editors that replace the file on save are handled.
func (p *PageIndex) Watch(ctx context.Context, path string, logger *logrus.Logger) error {
	path = filepath.Clean(path)

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create file watcher: %w", err)
	}

	done := make(chan error, 1)
	go func() {
		done <- watcher.Add(filepath.Dir(path))
	}()

	select {
	case err := <-done:
		if err != nil {
			if closeErr := watcher.Close(); closeErr != nil {
				logger.WithError(closeErr).Warn("Failed to close watcher after add error")
			}
			return fmt.Errorf("failed to watch pages file: %w", err)
		}
	case <-time.After(5 * time.Second):
		if closeErr := watcher.Close(); closeErr != nil {
			logger.WithError(closeErr).Warn("Failed to close watcher after timeout")
		}
		return fmt.Errorf("timeout adding pages file to watcher")
	}

	go func() {
		defer func() {
			if closeErr := watcher.Close(); closeErr != nil {
				logger.WithError(closeErr).Debug("Failed to close pages watcher")
			}
		}()
		for {
			select {
			case <-ctx.Done():
				return
			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				if filepath.Clean(event.Name) != path {
					continue
				}
				if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
					continue
				}
				pages, err := LoadPagesFile(path)
				if err != nil {
					logger.WithError(err).Warn("Failed to reload pages file, keeping previous table")
					continue
				}
				p.Replace(pages)
				logger.WithField("pages", len(pages)).Debug("Pages file reloaded")
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				logger.WithError(err).Error("Pages file watcher error")
			}
		}
	}()

	return nil
}
