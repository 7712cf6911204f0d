package components

import (
	"context"
	"errors"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/nativeui-dev/catalog-mcp/internal/cache"
	"github.com/nativeui-dev/catalog-mcp/internal/catalog"
	"github.com/nativeui-dev/catalog-mcp/internal/tools"
	"github.com/sirupsen/logrus"
)

const (
	ToolName = "components"

	defaultSearchLimit = 20
	maxSearchLimit     = 100
	viewKeyPrefix      = "codeview:"
)

// Catalog is the component catalog the tool reads from. catalog.Assembler
// satisfies it.
type Catalog interface {
	catalog.CodeLoader
	ListComponents(ctx context.Context) ([]catalog.Component, error)
	GetComponentDocs(ctx context.Context, pathOrName string, framework catalog.Framework) (*catalog.ComponentDocs, error)
	FindComponent(ctx context.Context, slug string) (*catalog.Component, error)
}

// ComponentsTool exposes the component catalog: listing, search, lookup by
// slug and per-framework code and docs.
type ComponentsTool struct {
	catalog Catalog
}

// New creates the components tool.
func New(c Catalog) *ComponentsTool {
	return &ComponentsTool{catalog: c}
}

type listResponse struct {
	Framework  catalog.Framework   `json:"framework,omitempty"`
	Count      int                 `json:"count"`
	Components []catalog.Component `json:"components"`
}

type docsResponse struct {
	Name      string            `json:"name"`
	Framework catalog.Framework `json:"framework"`
	Path      string            `json:"path"`
	Format    string            `json:"format"`
	Content   string            `json:"content"`
}

// Definition returns the tool's definition for MCP registration
func (t *ComponentsTool) Definition() mcp.Tool {
	return mcp.NewTool(
		ToolName,
		mcp.WithDescription(`Browse the NativeUI component catalog for React Native and Flutter.

Actions:
- list: All components with their metadata, optionally filtered by framework
- search: Rank components by name, category and description
- find: Resolve one component by its slug (e.g. "animated-button")
- code: Source code of a component for a framework
- docs: Documentation of a component for a framework

Switching framework for the same component within a session always returns the newest request's code.`),
		mcp.WithString("action",
			mcp.Required(),
			mcp.Description("Action to perform"),
			mcp.Enum("list", "search", "find", "code", "docs"),
		),
		mcp.WithString("component",
			mcp.Description("Component name or catalog path, e.g. 'button' or 'reactnative/button' (code, docs)"),
		),
		mcp.WithString("slug",
			mcp.Description("Component slug (find)"),
		),
		mcp.WithString("query",
			mcp.Description("Search query (search)"),
		),
		mcp.WithString("framework",
			mcp.Description("Target framework. Defaults to react-native for code and docs"),
			mcp.Enum(catalog.FrameworkNames()...),
		),
		mcp.WithString("format",
			mcp.Description("Docs output format"),
			mcp.Enum("html", "markdown"),
			mcp.DefaultString("html"),
		),
		mcp.WithNumber("limit",
			mcp.Description("Maximum search results (default 20, max 100)"),
		),
		mcp.WithReadOnlyHintAnnotation(true),
		mcp.WithOpenWorldHintAnnotation(true),
	)
}

// Execute executes the components tool
func (t *ComponentsTool) Execute(ctx context.Context, logger *logrus.Logger, cache *cache.Cache, args map[string]any) (*mcp.CallToolResult, error) {
	action, err := tools.RequiredStringArg(args, "action", "")
	if err != nil {
		return nil, err
	}

	logger.WithField("action", action).Debug("Executing components tool")

	switch action {
	case "list":
		return t.executeList(ctx, args)
	case "search":
		return t.executeSearch(ctx, args)
	case "find":
		return t.executeFind(ctx, args)
	case "code":
		return t.executeCode(ctx, logger, cache, args)
	case "docs":
		return t.executeDocs(ctx, args)
	default:
		return nil, fmt.Errorf("invalid action: %s. Must be one of: list, search, find, code, docs", action)
	}
}

// SessionViewPrefix is the cache key prefix of every code view held for a
// session.
func SessionViewPrefix(sessionID string) string {
	return viewKeyPrefix + sessionID + ":"
}

// frameworkArg parses the framework argument. An absent framework is "" when
// optional, react-native otherwise.
func frameworkArg(args map[string]any, optional bool) (catalog.Framework, error) {
	raw := tools.StringArg(args, "framework")
	if raw == "" && optional {
		return "", nil
	}
	return catalog.ParseFramework(raw)
}

func (t *ComponentsTool) executeList(ctx context.Context, args map[string]any) (*mcp.CallToolResult, error) {
	framework, err := frameworkArg(args, true)
	if err != nil {
		return nil, err
	}

	components, err := t.catalog.ListComponents(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list components: %w", err)
	}
	if framework != "" {
		components = catalog.Filter(components, framework)
	}
	if components == nil {
		components = []catalog.Component{}
	}

	return tools.NewToolResultJSON(listResponse{
		Framework:  framework,
		Count:      len(components),
		Components: components,
	})
}

func (t *ComponentsTool) executeSearch(ctx context.Context, args map[string]any) (*mcp.CallToolResult, error) {
	query, err := tools.RequiredStringArg(args, "query", "search")
	if err != nil {
		return nil, err
	}
	framework, err := frameworkArg(args, true)
	if err != nil {
		return nil, err
	}
	limit := tools.IntArg(args, "limit", defaultSearchLimit, maxSearchLimit)

	components, err := t.catalog.ListComponents(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list components for search: %w", err)
	}
	if framework != "" {
		components = catalog.Filter(components, framework)
	}

	matches := catalog.Search(components, query, limit)
	return tools.NewToolResultJSON(listResponse{
		Framework:  framework,
		Count:      len(matches),
		Components: matches,
	})
}

func (t *ComponentsTool) executeFind(ctx context.Context, args map[string]any) (*mcp.CallToolResult, error) {
	slug, err := tools.RequiredStringArg(args, "slug", "find")
	if err != nil {
		return nil, err
	}

	component, err := t.catalog.FindComponent(ctx, slug)
	if errors.Is(err, catalog.ErrComponentNotFound) {
		return mcp.NewToolResultError(fmt.Sprintf("not found: no component with slug %q", slug)), nil
	}
	if err != nil {
		return nil, err
	}
	return tools.NewToolResultJSON(component)
}

func (t *ComponentsTool) executeCode(ctx context.Context, logger *logrus.Logger, views *cache.Cache, args map[string]any) (*mcp.CallToolResult, error) {
	component, err := tools.RequiredStringArg(args, "component", "code")
	if err != nil {
		return nil, err
	}
	framework, err := frameworkArg(args, false)
	if err != nil {
		return nil, err
	}

	name := catalog.ComponentName(component)
	key := SessionViewPrefix(tools.SessionID(ctx)) + name
	view, ok := views.GetOrCreate(key, func() any {
		return catalog.NewCodeView(t.catalog, name)
	}).(*catalog.CodeView)
	if !ok {
		return nil, fmt.Errorf("cache entry %s is not a code view", key)
	}

	code, err := view.Load(ctx, framework)
	switch {
	case errors.Is(err, catalog.ErrSuperseded):
		logger.WithField("component", name).Debug("Code request superseded by a newer framework switch")
		return mcp.NewToolResultError("superseded: a newer code request for this component replaced this one"), nil
	case errors.Is(err, catalog.ErrMissingFile):
		return mcp.NewToolResultError(fmt.Sprintf("content unavailable: %v", err)), nil
	case err != nil:
		return nil, err
	}
	return tools.NewToolResultJSON(code)
}

func (t *ComponentsTool) executeDocs(ctx context.Context, args map[string]any) (*mcp.CallToolResult, error) {
	component, err := tools.RequiredStringArg(args, "component", "docs")
	if err != nil {
		return nil, err
	}
	framework, err := frameworkArg(args, false)
	if err != nil {
		return nil, err
	}
	format := tools.StringArg(args, "format")
	if format == "" {
		format = "html"
	}
	if format != "html" && format != "markdown" {
		return nil, fmt.Errorf("invalid format: %s. Must be one of: html, markdown", format)
	}

	docs, err := t.catalog.GetComponentDocs(ctx, component, framework)
	if errors.Is(err, catalog.ErrMissingFile) {
		return mcp.NewToolResultError(fmt.Sprintf("content unavailable: %v", err)), nil
	}
	if err != nil {
		return nil, err
	}

	resp := docsResponse{
		Name:      docs.Name,
		Framework: docs.Framework,
		Path:      docs.Path,
		Format:    format,
		Content:   docs.HTML,
	}
	if format == "markdown" {
		resp.Content = docs.Source
	}
	return tools.NewToolResultJSON(resp)
}

// ProvideExtendedInfo provides detailed usage information for the components tool
func (t *ComponentsTool) ProvideExtendedInfo() *tools.ExtendedHelp {
	return &tools.ExtendedHelp{
		Examples: []tools.ToolExample{
			{
				Description: "List every Flutter component",
				Arguments:   map[string]any{"action": "list", "framework": "flutter"},
				ExpectedResult: "Components stored under the flutter directory, in catalog order, " +
					"each with its name, path and any metadata fields",
			},
			{
				Description:    "Get React Native source for a button",
				Arguments:      map[string]any{"action": "code", "component": "button", "framework": "react-native"},
				ExpectedResult: "The contents of reactnative/button/button.tsx with language tsx",
			},
			{
				Description:    "Switch the same component to Flutter",
				Arguments:      map[string]any{"action": "code", "component": "button", "framework": "flutter"},
				ExpectedResult: "flutter/button/button.dart; any earlier request still in flight for this component is cancelled",
			},
			{
				Description:    "Read docs as markdown",
				Arguments:      map[string]any{"action": "docs", "component": "card", "format": "markdown"},
				ExpectedResult: "The raw markdown of reactnative/card/card.md",
			},
		},
		CommonPatterns: []string{
			"Use search or list first, then pass the component name or path to code and docs",
			"Use find with a slug from a site URL such as /components/animated-button",
		},
		Troubleshooting: []tools.TroubleshootingTip{
			{
				Problem:  "content unavailable",
				Solution: "The component has no file for that framework. Try the other framework or check the catalog path",
			},
			{
				Problem:  "malformed component catalog",
				Solution: "components-list.json is missing or not a JSON array in the configured repository",
			},
			{
				Problem:  "superseded",
				Solution: "A newer code request for the same component was made in this session; use its result",
			},
		},
		ParameterDetails: map[string]string{
			"component": "Bare name ('button') or catalog path ('reactnative/button'); only the last segment is used",
			"framework": "react-native (aliases: reactnative, rn) or flutter (alias: dart)",
			"format":    "html renders markdown with GitHub flavoured extensions; markdown returns the source",
		},
		WhenToUse:    "When you need component source, docs or metadata from the NativeUI catalog",
		WhenNotToUse: "For blog content use the blog tool; for site navigation use site_search",
	}
}
