package catalog

import (
	"encoding/json"
	"maps"
	"strings"

	"github.com/nativeui-dev/catalog-mcp/internal/content"
)

// previewKeys are the metadata spellings used for a component's preview link,
// in order of preference.
var previewKeys = []string{"preview", "previewUrl", "preview_url", "previewLink"}

// Component is a catalog record: the list entry plus whatever metadata the
// store holds for it. Every metadata field is optional.
type Component struct {
	Name        string
	Path        string
	Title       string
	Description string
	Framework   string
	Category    string
	Preview     string
	Tags        []string

	// Extra holds metadata keys without a dedicated field.
	Extra map[string]any
}

// DisplayName returns the title when set, otherwise the name.
func (c Component) DisplayName() string {
	if c.Title != "" {
		return c.Title
	}
	return c.Name
}

// Slug is the URL key of the component, derived from its display name.
func (c Component) Slug() string {
	return content.Slugify(c.DisplayName())
}

// FrameworkDir is the first segment of the list path, the directory the
// component is stored under.
func (c Component) FrameworkDir() string {
	return content.ComponentListEntry{Name: c.Name, Path: c.Path}.FrameworkSegment()
}

// StoreFramework is the framework of the directory the component is stored
// under. It is false for paths outside the known framework directories.
func (c Component) StoreFramework() (Framework, bool) {
	return FrameworkFromDir(c.FrameworkDir())
}

// MarshalJSON flattens Extra alongside the named fields.
func (c Component) MarshalJSON() ([]byte, error) {
	out := make(map[string]any, len(c.Extra)+8)
	maps.Copy(out, c.Extra)

	out["name"] = c.Name
	out["path"] = c.Path
	setIf(out, "title", c.Title)
	setIf(out, "description", c.Description)
	setIf(out, "framework", c.Framework)
	setIf(out, "category", c.Category)
	setIf(out, "preview", c.Preview)
	if len(c.Tags) > 0 {
		out["tags"] = c.Tags
	}
	return json.Marshal(out)
}

func setIf(m map[string]any, key, value string) {
	if value != "" {
		m[key] = value
	}
}

// newComponent builds the bare record for a list entry.
func newComponent(entry content.ComponentListEntry) Component {
	return Component{Name: entry.Name, Path: entry.Path}
}

// merge applies metadata onto the component. Metadata wins on key collision.
// Values of an unexpected type are kept in Extra rather than dropped.
func (c *Component) merge(meta map[string]any) {
	for key, value := range meta {
		if c.mergeKnown(key, value) {
			continue
		}
		if c.Extra == nil {
			c.Extra = make(map[string]any)
		}
		c.Extra[key] = value
	}

	for _, key := range previewKeys {
		if s, ok := meta[key].(string); ok && s != "" {
			c.Preview = s
			break
		}
	}
}

func (c *Component) mergeKnown(key string, value any) bool {
	if key == "tags" {
		tags, ok := stringSlice(value)
		if ok {
			c.Tags = tags
		}
		return ok
	}

	s, ok := value.(string)
	if !ok {
		return false
	}

	switch key {
	case "name":
		// an empty value never blanks the list entry's identity
		if s != "" {
			c.Name = s
		}
	case "path":
		if s != "" {
			c.Path = s
		}
	case "title":
		c.Title = s
	case "description":
		c.Description = s
	case "framework":
		c.Framework = s
	case "category":
		c.Category = s
	default:
		for _, pk := range previewKeys {
			if key == pk {
				return true
			}
		}
		return false
	}
	return true
}

func stringSlice(value any) ([]string, bool) {
	items, ok := value.([]any)
	if !ok {
		return nil, false
	}
	out := make([]string, 0, len(items))
	for _, item := range items {
		s, ok := item.(string)
		if !ok {
			return nil, false
		}
		out = append(out, s)
	}
	return out, true
}

// searchText is what fuzzy search matches a component against.
func (c Component) searchText() string {
	parts := []string{c.DisplayName()}
	if c.Category != "" {
		parts = append(parts, c.Category)
	}
	if c.Description != "" {
		parts = append(parts, c.Description)
	}
	return strings.Join(parts, " ")
}

// ComponentCode is the source of one component for one framework.
type ComponentCode struct {
	Name      string    `json:"name"`
	Framework Framework `json:"framework"`
	Path      string    `json:"path"`
	Language  string    `json:"language"`
	Code      string    `json:"code"`
}

// ComponentDocs is a component's documentation rendered to HTML. Source keeps
// the markdown it was rendered from.
type ComponentDocs struct {
	Name      string    `json:"name"`
	Framework Framework `json:"framework"`
	Path      string    `json:"path"`
	HTML      string    `json:"html"`
	Source    string    `json:"-"`
}
