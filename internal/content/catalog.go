package content

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// ErrMalformedCatalog is returned when the component list is not a JSON array
// of entries.
var ErrMalformedCatalog = errors.New("malformed component catalog")

// ComponentListEntry identifies where a component lives in the store. Path
// starts with the framework directory, e.g. "reactnative/button".
type ComponentListEntry struct {
	Name string `json:"name"`
	Path string `json:"path"`
}

// FrameworkSegment returns the first "/" delimited segment of the entry path.
func (e ComponentListEntry) FrameworkSegment() string {
	segment, _, _ := strings.Cut(e.Path, "/")
	return segment
}

// ParseComponentList parses the components-list.json payload. Anything other
// than a JSON array of objects is a malformed catalog.
func ParseComponentList(text string) ([]ComponentListEntry, error) {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return nil, fmt.Errorf("%w: empty payload", ErrMalformedCatalog)
	}
	if trimmed[0] != '[' {
		return nil, fmt.Errorf("%w: top-level value is not an array", ErrMalformedCatalog)
	}

	var entries []ComponentListEntry
	if err := json.Unmarshal([]byte(trimmed), &entries); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedCatalog, err)
	}
	return entries, nil
}

// ParseMetadata parses a per-component metadata.json document into a generic
// key-value map. Non-object payloads are rejected.
func ParseMetadata(text string) (map[string]any, error) {
	var meta map[string]any
	if err := json.Unmarshal([]byte(text), &meta); err != nil {
		return nil, fmt.Errorf("invalid metadata: %w", err)
	}
	if meta == nil {
		return nil, fmt.Errorf("invalid metadata: not an object")
	}
	return meta, nil
}
