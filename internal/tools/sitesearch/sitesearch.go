package sitesearch

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/nativeui-dev/catalog-mcp/internal/cache"
	"github.com/nativeui-dev/catalog-mcp/internal/catalog"
	"github.com/nativeui-dev/catalog-mcp/internal/content"
	"github.com/nativeui-dev/catalog-mcp/internal/search"
	"github.com/nativeui-dev/catalog-mcp/internal/tools"
	"github.com/sirupsen/logrus"
)

const (
	ToolName = "site_search"

	defaultLimit = 8
	maxLimit     = 50
)

var allScopes = []string{"pages", "components", "blog"}

// ComponentLister lists the component catalog.
type ComponentLister interface {
	ListComponents(ctx context.Context) ([]catalog.Component, error)
}

// BlogSearcher ranks blog posts.
type BlogSearcher interface {
	Search(ctx context.Context, query string, limit int) ([]content.BlogPost, error)
}

// SiteSearchTool is the site's command menu: it matches a query against the
// page table and, when configured, the component catalog and blog.
type SiteSearchTool struct {
	pages      *search.PageIndex
	components ComponentLister
	blog       BlogSearcher
}

// New creates the tool. components and blog may be nil, in which case those
// scopes return nothing.
func New(pages *search.PageIndex, components ComponentLister, blog BlogSearcher) *SiteSearchTool {
	return &SiteSearchTool{pages: pages, components: components, blog: blog}
}

// Hit is one search result.
type Hit struct {
	Kind  string `json:"kind"`
	Title string `json:"title"`
	Path  string `json:"path"`
}

type response struct {
	Query    string            `json:"query"`
	Hits     []Hit             `json:"hits"`
	Warnings map[string]string `json:"warnings,omitempty"`
}

// Definition returns the tool's definition for MCP registration
func (t *SiteSearchTool) Definition() mcp.Tool {
	return mcp.NewTool(
		ToolName,
		mcp.WithDescription(`Search the NativeUI site the way its command menu does: pages, components and blog posts.

Results are grouped by kind (pages first) and each carries the site path to open.`),
		mcp.WithString("query",
			mcp.Required(),
			mcp.Description("Search text. Prefix and substring matches rank above fuzzy matches"),
		),
		mcp.WithArray("scopes",
			mcp.Description("Limit the search to these kinds (default: all)"),
			mcp.Items(map[string]any{"type": "string", "enum": allScopes}),
		),
		mcp.WithNumber("limit",
			mcp.Description("Maximum results per kind (default 8, max 50)"),
		),
		mcp.WithReadOnlyHintAnnotation(true),
	)
}

// Execute executes the site search tool
func (t *SiteSearchTool) Execute(ctx context.Context, logger *logrus.Logger, _ *cache.Cache, args map[string]any) (*mcp.CallToolResult, error) {
	query, err := tools.RequiredStringArg(args, "query", "")
	if err != nil {
		return nil, err
	}
	scopes, err := parseScopes(args["scopes"])
	if err != nil {
		return nil, err
	}
	limit := tools.IntArg(args, "limit", defaultLimit, maxLimit)

	resp := response{Query: query, Hits: []Hit{}}
	warn := func(scope string, err error) {
		logger.WithError(err).WithField("scope", scope).Warn("Site search scope failed")
		if resp.Warnings == nil {
			resp.Warnings = make(map[string]string)
		}
		resp.Warnings[scope] = err.Error()
	}

	if slices.Contains(scopes, "pages") {
		for _, page := range t.pages.Search(query, limit) {
			resp.Hits = append(resp.Hits, Hit{Kind: "page", Title: page.Title, Path: page.Path})
		}
	}

	if slices.Contains(scopes, "components") && t.components != nil {
		components, err := t.components.ListComponents(ctx)
		if err != nil {
			warn("components", err)
		} else {
			for _, c := range catalog.Search(components, query, limit) {
				resp.Hits = append(resp.Hits, Hit{Kind: "component", Title: c.DisplayName(), Path: "/components/" + c.Slug()})
			}
		}
	}

	if slices.Contains(scopes, "blog") && t.blog != nil {
		posts, err := t.blog.Search(ctx, query, limit)
		if err != nil {
			warn("blog", err)
		} else {
			for _, p := range posts {
				resp.Hits = append(resp.Hits, Hit{Kind: "blog", Title: p.Title, Path: "/blog/" + p.Slug})
			}
		}
	}

	return tools.NewToolResultJSON(resp)
}

func parseScopes(raw any) ([]string, error) {
	if raw == nil {
		return allScopes, nil
	}

	var values []string
	switch v := raw.(type) {
	case []any:
		for _, item := range v {
			s, ok := item.(string)
			if !ok {
				return nil, fmt.Errorf("scopes must be strings, got %T", item)
			}
			values = append(values, s)
		}
	case []string:
		values = v
	case string:
		values = strings.Split(v, ",")
	default:
		return nil, fmt.Errorf("invalid scopes type: %T", raw)
	}

	var scopes []string
	for _, s := range values {
		s = strings.ToLower(strings.TrimSpace(s))
		if s == "" {
			continue
		}
		if !slices.Contains(allScopes, s) {
			return nil, fmt.Errorf("invalid scope: %s. Must be one of: %s", s, strings.Join(allScopes, ", "))
		}
		scopes = append(scopes, s)
	}
	if len(scopes) == 0 {
		return allScopes, nil
	}
	return scopes, nil
}

// ProvideExtendedInfo provides detailed usage information for the site search tool
func (t *SiteSearchTool) ProvideExtendedInfo() *tools.ExtendedHelp {
	return &tools.ExtendedHelp{
		Examples: []tools.ToolExample{
			{
				Description:    "Find the installation guide",
				Arguments:      map[string]any{"query": "install"},
				ExpectedResult: `A page hit {"kind":"page","title":"Installation","path":"/docs/installation"}`,
			},
			{
				Description: "Search only components",
				Arguments:   map[string]any{"query": "button", "scopes": []string{"components"}},
			},
		},
		Troubleshooting: []tools.TroubleshootingTip{
			{
				Problem:  "warnings.components or warnings.blog is set",
				Solution: "That source could not be fetched; page results are still returned",
			},
		},
		ParameterDetails: map[string]string{
			"scopes": "Any of pages, components, blog",
		},
		WhenToUse: "When you need the site path of a page, component or post from a loose description",
	}
}
