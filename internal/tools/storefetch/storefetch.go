package storefetch

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"unicode/utf8"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/nativeui-dev/catalog-mcp/internal/cache"
	"github.com/nativeui-dev/catalog-mcp/internal/content"
	"github.com/nativeui-dev/catalog-mcp/internal/remotestore"
	"github.com/nativeui-dev/catalog-mcp/internal/tools"
	"github.com/sirupsen/logrus"
)

const (
	ToolName = "store_fetch"

	// DefaultMaxChars caps returned file text.
	DefaultMaxChars = 100000
	maxMaxChars     = 1000000
)

// StoreFetchTool reads raw files from the component repository or a gist. It
// is a diagnostic tool and must be enabled explicitly.
type StoreFetchTool struct {
	store     remotestore.Store
	snippetID string
}

// New creates the tool. snippetID is the gist used when none is given.
func New(store remotestore.Store, snippetID string) *StoreFetchTool {
	return &StoreFetchTool{store: store, snippetID: snippetID}
}

type fileResponse struct {
	Source    string   `json:"source"`
	Path      string   `json:"path,omitempty"`
	SnippetID string   `json:"snippet_id,omitempty"`
	File      string   `json:"file,omitempty"`
	SHA       string   `json:"sha,omitempty"`
	Size      int      `json:"size"`
	Truncated bool     `json:"truncated,omitempty"`
	Content   string   `json:"content,omitempty"`
	Files     []string `json:"files,omitempty"`
}

// Definition returns the tool's definition for MCP registration
func (t *StoreFetchTool) Definition() mcp.Tool {
	return mcp.NewTool(
		ToolName,
		mcp.WithDescription(`Fetch raw content from the catalog's remote store for diagnostics.

Sources:
- repo: a file from the component repository, decoded from the contents API
- gist: the file names of a gist, or one file's text when file is given`),
		mcp.WithString("source",
			mcp.Required(),
			mcp.Enum("repo", "gist"),
			mcp.Description("Where to read from"),
		),
		mcp.WithString("path",
			mcp.Description("Repository path, e.g. components-list.json (repo)"),
		),
		mcp.WithString("snippet_id",
			mcp.Description("Gist ID (gist). Defaults to the blog gist"),
		),
		mcp.WithString("file",
			mcp.Description("File inside the gist (gist)"),
		),
		mcp.WithNumber("max_chars",
			mcp.Description("Maximum characters of content to return (default 100000)"),
			mcp.DefaultNumber(DefaultMaxChars),
		),
		mcp.WithReadOnlyHintAnnotation(true),
		mcp.WithOpenWorldHintAnnotation(true),
	)
}

// Execute executes the store fetch tool
func (t *StoreFetchTool) Execute(ctx context.Context, logger *logrus.Logger, _ *cache.Cache, args map[string]any) (*mcp.CallToolResult, error) {
	source, err := tools.RequiredStringArg(args, "source", "")
	if err != nil {
		return nil, err
	}
	maxChars := tools.IntArg(args, "max_chars", DefaultMaxChars, maxMaxChars)

	logger.WithField("source", source).Debug("Executing store fetch tool")

	var resp *fileResponse
	switch source {
	case "repo":
		resp, err = t.fetchRepoFile(ctx, args)
	case "gist":
		resp, err = t.fetchSnippet(ctx, args)
	default:
		return nil, fmt.Errorf("invalid source: %s. Must be one of: repo, gist", source)
	}
	if errors.Is(err, remotestore.ErrNotFound) {
		return mcp.NewToolResultError(fmt.Sprintf("not found: %v", err)), nil
	}
	if err != nil {
		return nil, err
	}

	resp.Content, resp.Truncated = truncate(resp.Content, maxChars)
	return tools.NewToolResultJSON(resp)
}

func (t *StoreFetchTool) fetchRepoFile(ctx context.Context, args map[string]any) (*fileResponse, error) {
	path, err := tools.RequiredStringArg(args, "path", "repo")
	if err != nil {
		return nil, err
	}
	path = remotestore.CleanPath(path)

	file, err := t.store.GetRepoFile(ctx, path)
	if err != nil {
		return nil, err
	}
	text, err := content.FileText(file)
	if err != nil {
		return nil, fmt.Errorf("failed to decode %s: %w", path, err)
	}

	return &fileResponse{
		Source:  "repo",
		Path:    file.Path,
		SHA:     file.SHA,
		Size:    file.Size,
		Content: text,
	}, nil
}

func (t *StoreFetchTool) fetchSnippet(ctx context.Context, args map[string]any) (*fileResponse, error) {
	snippetID := tools.StringArg(args, "snippet_id")
	if snippetID == "" {
		snippetID = t.snippetID
	}
	if snippetID == "" {
		return nil, fmt.Errorf("snippet_id parameter is required for gist source")
	}

	files, err := t.store.GetSnippetFiles(ctx, snippetID)
	if err != nil {
		return nil, err
	}

	name := tools.StringArg(args, "file")
	if name == "" {
		names := make([]string, 0, len(files))
		for n := range files {
			names = append(names, n)
		}
		slices.Sort(names)
		return &fileResponse{Source: "gist", SnippetID: snippetID, Size: len(files), Files: names}, nil
	}

	text, ok := files[name]
	if !ok {
		return nil, fmt.Errorf("%w: file %s in gist %s", remotestore.ErrNotFound, name, snippetID)
	}
	return &fileResponse{Source: "gist", SnippetID: snippetID, File: name, Size: len(text), Content: text}, nil
}

// truncate cuts s to at most maxChars runes.
func truncate(s string, maxChars int) (string, bool) {
	if utf8.RuneCountInString(s) <= maxChars {
		return s, false
	}
	runes := []rune(s)
	return string(runes[:maxChars]), true
}

// ProvideExtendedInfo provides detailed usage information for the store fetch tool
func (t *StoreFetchTool) ProvideExtendedInfo() *tools.ExtendedHelp {
	return &tools.ExtendedHelp{
		Examples: []tools.ToolExample{
			{
				Description: "Inspect the raw component list",
				Arguments:   map[string]any{"source": "repo", "path": "components-list.json"},
			},
			{
				Description:    "List the blog gist's files",
				Arguments:      map[string]any{"source": "gist"},
				ExpectedResult: "Sorted file names such as blog_posts.json and per-post markdown files",
			},
		},
		WhenToUse:    "When a components or blog result looks wrong and you need the stored payload",
		WhenNotToUse: "For normal browsing; the components and blog tools normalise and render content",
	}
}
