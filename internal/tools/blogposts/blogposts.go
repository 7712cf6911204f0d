package blogposts

import (
	"context"
	"errors"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/nativeui-dev/catalog-mcp/internal/blog"
	"github.com/nativeui-dev/catalog-mcp/internal/cache"
	"github.com/nativeui-dev/catalog-mcp/internal/content"
	"github.com/nativeui-dev/catalog-mcp/internal/tools"
	"github.com/sirupsen/logrus"
)

const (
	ToolName = "blog"

	defaultSearchLimit = 10
	maxSearchLimit     = 50
)

// Blog is the blog collection the tool reads from. blog.Resolver satisfies it.
type Blog interface {
	ListBlogPosts(ctx context.Context) ([]content.BlogPost, error)
	GetBlogPost(ctx context.Context, slug string) (*content.BlogPost, error)
	Search(ctx context.Context, query string, limit int) ([]content.BlogPost, error)
}

// BlogTool lists, searches and reads blog posts.
type BlogTool struct {
	blog Blog
}

// New creates the blog tool.
func New(b Blog) *BlogTool {
	return &BlogTool{blog: b}
}

// postSummary is a listing row; bodies are only returned by the post action.
type postSummary struct {
	Slug       string         `json:"slug"`
	Title      string         `json:"title"`
	Date       string         `json:"date,omitempty"`
	Author     content.Author `json:"author"`
	Excerpt    string         `json:"excerpt,omitempty"`
	CoverImage string         `json:"coverImage,omitempty"`
	Tags       []string       `json:"tags,omitempty"`
}

type listResponse struct {
	Count int           `json:"count"`
	Posts []postSummary `json:"posts"`
}

type postResponse struct {
	content.BlogPost
	Format string `json:"format"`
}

func summarise(posts []content.BlogPost) listResponse {
	out := make([]postSummary, len(posts))
	for i, p := range posts {
		out[i] = postSummary{
			Slug:       p.Slug,
			Title:      p.Title,
			Date:       p.Date,
			Author:     p.Author,
			Excerpt:    p.Excerpt,
			CoverImage: p.CoverImage,
			Tags:       p.Tags,
		}
	}
	return listResponse{Count: len(out), Posts: out}
}

// Definition returns the tool's definition for MCP registration
func (t *BlogTool) Definition() mcp.Tool {
	return mcp.NewTool(
		ToolName,
		mcp.WithDescription(`Read the NativeUI blog.

Actions:
- list: All posts with title, date, author and excerpt
- search: Rank posts by title and excerpt
- post: One post by slug with its full content

Post content is always present: inline content, then a markdown file from the blog gist, then the excerpt, then a placeholder.`),
		mcp.WithString("action",
			mcp.Required(),
			mcp.Description("Action to perform"),
			mcp.Enum("list", "search", "post"),
		),
		mcp.WithString("slug",
			mcp.Description("Post slug, matched exactly and case-sensitively (post)"),
		),
		mcp.WithString("query",
			mcp.Description("Search query (search)"),
		),
		mcp.WithString("format",
			mcp.Description("Post content format"),
			mcp.Enum("html", "markdown"),
			mcp.DefaultString("html"),
		),
		mcp.WithNumber("limit",
			mcp.Description("Maximum search results (default 10, max 50)"),
		),
		mcp.WithReadOnlyHintAnnotation(true),
		mcp.WithOpenWorldHintAnnotation(true),
	)
}

// Execute executes the blog tool
func (t *BlogTool) Execute(ctx context.Context, logger *logrus.Logger, _ *cache.Cache, args map[string]any) (*mcp.CallToolResult, error) {
	action, err := tools.RequiredStringArg(args, "action", "")
	if err != nil {
		return nil, err
	}

	logger.WithField("action", action).Debug("Executing blog tool")

	switch action {
	case "list":
		posts, err := t.blog.ListBlogPosts(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to list blog posts: %w", err)
		}
		return tools.NewToolResultJSON(summarise(posts))
	case "search":
		query, err := tools.RequiredStringArg(args, "query", "search")
		if err != nil {
			return nil, err
		}
		posts, err := t.blog.Search(ctx, query, tools.IntArg(args, "limit", defaultSearchLimit, maxSearchLimit))
		if err != nil {
			return nil, fmt.Errorf("failed to search blog posts: %w", err)
		}
		return tools.NewToolResultJSON(summarise(posts))
	case "post":
		return t.executePost(ctx, logger, args)
	default:
		return nil, fmt.Errorf("invalid action: %s. Must be one of: list, search, post", action)
	}
}

func (t *BlogTool) executePost(ctx context.Context, logger *logrus.Logger, args map[string]any) (*mcp.CallToolResult, error) {
	slug, err := tools.RequiredStringArg(args, "slug", "post")
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

	post, err := t.blog.GetBlogPost(ctx, slug)
	if errors.Is(err, blog.ErrPostNotFound) {
		return mcp.NewToolResultError(fmt.Sprintf("not found: no blog post with slug %q", slug)), nil
	}
	if err != nil {
		return nil, err
	}

	resp := postResponse{BlogPost: *post, Format: format}
	if format == "markdown" {
		md, err := content.HTMLToMarkdown(post.Content)
		if err != nil {
			logger.WithError(err).WithField("slug", slug).Warn("Failed to convert post to markdown, returning HTML")
			resp.Format = "html"
		} else {
			resp.Content = md
		}
	}
	return tools.NewToolResultJSON(resp)
}

// ProvideExtendedInfo provides detailed usage information for the blog tool
func (t *BlogTool) ProvideExtendedInfo() *tools.ExtendedHelp {
	return &tools.ExtendedHelp{
		Examples: []tools.ToolExample{
			{
				Description:    "List posts",
				Arguments:      map[string]any{"action": "list"},
				ExpectedResult: "Posts in collection order; posts without an excerpt get one derived from their content",
			},
			{
				Description:    "Read a post as markdown",
				Arguments:      map[string]any{"action": "post", "slug": "theming-react-native", "format": "markdown"},
				ExpectedResult: "The post with its content converted from HTML to markdown",
			},
		},
		Troubleshooting: []tools.TroubleshootingTip{
			{
				Problem:  "not found for a post that appears in the listing",
				Solution: "Slugs are case-sensitive; copy the slug exactly from the list action",
			},
			{
				Problem:  "Empty listing",
				Solution: "The blog gist is missing, has no blog_posts.json or it is not valid JSON; the server log has a warning",
			},
		},
		ParameterDetails: map[string]string{
			"slug":   "Exact slug from the listing",
			"format": "html (default) or markdown",
		},
		WhenToUse:    "When you need NativeUI blog posts or announcements",
		WhenNotToUse: "For component source or docs use the components tool",
	}
}
