package catalog

import (
	"context"
	"errors"
	"fmt"
	"path"
	"strings"

	"github.com/nativeui-dev/catalog-mcp/internal/content"
	"github.com/nativeui-dev/catalog-mcp/internal/remotestore"
	"github.com/nativeui-dev/catalog-mcp/internal/search"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

const (
	// ListFile is the store path of the component list.
	ListFile = "components-list.json"
	// MetadataFile is the per-component metadata file name.
	MetadataFile = "metadata.json"

	DefaultMetadataConcurrency = 8
)

var (
	// ErrMissingFile is returned when a requested code or docs file does not
	// exist. It is the store's not found error.
	ErrMissingFile = remotestore.ErrNotFound
	// ErrComponentNotFound is returned when no component matches a slug.
	ErrComponentNotFound = errors.New("component not found")
)

// Assembler builds the component catalog and resolves per-component content
// from a remote store.
type Assembler struct {
	store       remotestore.Store
	logger      *logrus.Logger
	concurrency int
}

// NewAssembler creates an Assembler. A concurrency below one uses the default.
func NewAssembler(store remotestore.Store, logger *logrus.Logger, concurrency int) *Assembler {
	if concurrency < 1 {
		concurrency = DefaultMetadataConcurrency
	}
	return &Assembler{
		store:       store,
		logger:      logger,
		concurrency: concurrency,
	}
}

// ListComponents fetches the component list and merges each entry with its
// metadata. Only a failure to obtain the list fails the call; a metadata
// failure leaves that one entry bare. The result keeps list order.
func (a *Assembler) ListComponents(ctx context.Context) ([]Component, error) {
	entries, err := a.fetchList(ctx)
	if err != nil {
		return nil, err
	}

	components := make([]Component, len(entries))

	var g errgroup.Group
	g.SetLimit(a.concurrency)
	for i, entry := range entries {
		g.Go(func() error {
			components[i] = a.assemble(ctx, entry)
			return nil
		})
	}
	_ = g.Wait()

	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("listing components: %w", err)
	}

	a.logger.WithField("components", len(components)).Debug("Assembled component catalog")
	return components, nil
}

func (a *Assembler) fetchList(ctx context.Context) ([]content.ComponentListEntry, error) {
	file, err := a.store.GetRepoFile(ctx, ListFile)
	if err != nil {
		if errors.Is(err, remotestore.ErrNotFound) {
			return nil, fmt.Errorf("%w: %s is missing", content.ErrMalformedCatalog, ListFile)
		}
		return nil, fmt.Errorf("failed to fetch component list: %w", err)
	}

	text, err := content.FileText(file)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", content.ErrMalformedCatalog, err)
	}
	return content.ParseComponentList(text)
}

// assemble never fails: metadata problems are logged and the bare entry is
// returned.
func (a *Assembler) assemble(ctx context.Context, entry content.ComponentListEntry) Component {
	component := newComponent(entry)

	dir := entry.FrameworkSegment()
	if dir == "" || entry.Name == "" {
		a.logger.WithFields(logrus.Fields{
			"name": entry.Name,
			"path": entry.Path,
		}).Warn("Component list entry has no framework path, skipping metadata")
		return component
	}

	metaPath := path.Join(dir, entry.Name, MetadataFile)
	logger := a.logger.WithFields(logrus.Fields{
		"component": entry.Name,
		"path":      metaPath,
	})

	file, err := a.store.GetRepoFile(ctx, metaPath)
	if err != nil {
		switch {
		case ctx.Err() != nil:
			logger.WithError(err).Debug("Metadata fetch cancelled")
		case errors.Is(err, remotestore.ErrNotFound):
			logger.Debug("Component has no metadata")
		default:
			logger.WithError(err).Warn("Failed to fetch component metadata, using bare entry")
		}
		return component
	}

	text, err := content.FileText(file)
	if err != nil {
		logger.WithError(err).Warn("Failed to decode component metadata, using bare entry")
		return component
	}

	meta, err := content.ParseMetadata(text)
	if err != nil {
		logger.WithError(err).Warn("Failed to parse component metadata, using bare entry")
		return component
	}

	component.merge(meta)
	return component
}

// ComponentName reduces a list path such as "reactnative/btn" to its name.
// A bare name is returned unchanged.
func ComponentName(pathOrName string) string {
	trimmed := strings.Trim(strings.TrimSpace(pathOrName), "/")
	if i := strings.LastIndex(trimmed, "/"); i >= 0 {
		return trimmed[i+1:]
	}
	return trimmed
}

func componentFilePath(name string, framework Framework, ext string) string {
	return path.Join(framework.Dir(), name, name+ext)
}

// GetComponentCode fetches the source of a component for a framework.
func (a *Assembler) GetComponentCode(ctx context.Context, pathOrName string, framework Framework) (*ComponentCode, error) {
	name := ComponentName(pathOrName)
	if name == "" {
		return nil, fmt.Errorf("component name is required")
	}

	filePath := componentFilePath(name, framework, framework.Ext())
	text, err := a.readFile(ctx, filePath)
	if err != nil {
		return nil, fmt.Errorf("%s code for %s: %w", framework.Label(), name, err)
	}

	return &ComponentCode{
		Name:      name,
		Framework: framework,
		Path:      filePath,
		Language:  framework.Language(),
		Code:      text,
	}, nil
}

// GetComponentDocs fetches a component's markdown docs for a framework and
// renders them to HTML.
func (a *Assembler) GetComponentDocs(ctx context.Context, pathOrName string, framework Framework) (*ComponentDocs, error) {
	name := ComponentName(pathOrName)
	if name == "" {
		return nil, fmt.Errorf("component name is required")
	}

	filePath := componentFilePath(name, framework, ".md")
	text, err := a.readFile(ctx, filePath)
	if err != nil {
		return nil, fmt.Errorf("%s docs for %s: %w", framework.Label(), name, err)
	}

	html, err := content.RenderMarkdown(text)
	if err != nil {
		return nil, err
	}

	return &ComponentDocs{
		Name:      name,
		Framework: framework,
		Path:      filePath,
		HTML:      html,
		Source:    text,
	}, nil
}

func (a *Assembler) readFile(ctx context.Context, filePath string) (string, error) {
	file, err := a.store.GetRepoFile(ctx, filePath)
	if err != nil {
		return "", err
	}
	return content.FileText(file)
}

// FindComponent resolves a component by the slug of its display name, falling
// back to an exact name match.
func (a *Assembler) FindComponent(ctx context.Context, slug string) (*Component, error) {
	components, err := a.ListComponents(ctx)
	if err != nil {
		return nil, err
	}

	for i := range components {
		if components[i].Slug() == slug {
			return &components[i], nil
		}
	}
	for i := range components {
		if components[i].Name == slug {
			return &components[i], nil
		}
	}
	return nil, fmt.Errorf("%w: %s", ErrComponentNotFound, slug)
}

// Filter returns the components stored under the framework's directory.
func Filter(components []Component, framework Framework) []Component {
	var out []Component
	for _, c := range components {
		if f, ok := c.StoreFramework(); ok && f == framework {
			out = append(out, c)
		}
	}
	return out
}

// Search ranks components by display name, category and description.
func Search(components []Component, query string, limit int) []Component {
	targets := make([]string, len(components))
	for i, c := range components {
		targets[i] = c.searchText()
	}

	matches := search.Rank(query, targets, limit)
	out := make([]Component, len(matches))
	for i, m := range matches {
		out[i] = components[m.Index]
	}
	return out
}
