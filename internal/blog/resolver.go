package blog

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/adrg/frontmatter"
	"github.com/nativeui-dev/catalog-mcp/internal/content"
	"github.com/nativeui-dev/catalog-mcp/internal/remotestore"
	"github.com/nativeui-dev/catalog-mcp/internal/search"
	"github.com/sirupsen/logrus"
)

const (
	// DefaultSnippetID is the gist holding the blog.
	DefaultSnippetID = "f4f43f025ea36db122c7fc0ca47e8059"
	// CollectionFile is the gist file holding the post list.
	CollectionFile = "blog_posts.json"
	// Placeholder is the body of a post with no content, file or excerpt.
	Placeholder = "Content coming soon..."

	listingExcerptLength = 160
)

// ErrPostNotFound is returned when no post has the requested slug.
var ErrPostNotFound = errors.New("post not found")

// Resolver reads the blog collection from a gist and resolves post bodies.
type Resolver struct {
	store     remotestore.Store
	snippetID string
	logger    *logrus.Logger
}

// NewResolver creates a Resolver. An empty snippetID uses DefaultSnippetID.
func NewResolver(store remotestore.Store, snippetID string, logger *logrus.Logger) *Resolver {
	if snippetID == "" {
		snippetID = DefaultSnippetID
	}
	return &Resolver{store: store, snippetID: snippetID, logger: logger}
}

// fetch returns the gist files and the parsed collection. Only network
// failures are returned as errors; a missing gist, missing collection file or
// corrupt collection yields an empty collection.
func (r *Resolver) fetch(ctx context.Context) (map[string]string, []content.BlogPost, error) {
	files, err := r.store.GetSnippetFiles(ctx, r.snippetID)
	if err != nil {
		if errors.Is(err, remotestore.ErrNotFound) {
			r.logger.WithField("snippet", r.snippetID).Warn("Blog gist not found, treating as empty")
			return map[string]string{}, []content.BlogPost{}, nil
		}
		return nil, nil, fmt.Errorf("failed to fetch blog collection: %w", err)
	}

	raw, ok := files[CollectionFile]
	if !ok {
		r.logger.WithField("file", CollectionFile).Warn("Blog collection file missing from gist")
		return files, []content.BlogPost{}, nil
	}

	posts := content.ParseBlogPosts(raw)
	if len(posts) == 0 && strings.TrimSpace(raw) != "" {
		r.logger.WithField("file", CollectionFile).Warn("Blog collection could not be parsed, treating as empty")
	}
	return files, posts, nil
}

// ListBlogPosts returns the collection in gist order. Posts without an
// excerpt get one derived from their inline content.
func (r *Resolver) ListBlogPosts(ctx context.Context) ([]content.BlogPost, error) {
	_, posts, err := r.fetch(ctx)
	if err != nil {
		return nil, err
	}

	for i := range posts {
		if posts[i].Excerpt == "" && posts[i].HasContent() {
			posts[i].Excerpt = content.Summary(posts[i].Content, listingExcerptLength)
		}
	}
	return posts, nil
}

// GetBlogPost finds a post by exact, case-sensitive slug and guarantees its
// Content is populated: inline content is returned unchanged, otherwise the
// first matching markdown file in the gist is rendered, otherwise the excerpt,
// otherwise Placeholder.
func (r *Resolver) GetBlogPost(ctx context.Context, slug string) (*content.BlogPost, error) {
	files, posts, err := r.fetch(ctx)
	if err != nil {
		return nil, err
	}

	var post *content.BlogPost
	for i := range posts {
		if posts[i].Slug == slug {
			post = &posts[i]
			break
		}
	}
	if post == nil {
		return nil, fmt.Errorf("%w: %s", ErrPostNotFound, slug)
	}

	if post.HasContent() {
		return post, nil
	}

	logger := r.logger.WithField("slug", slug)

	for _, name := range CandidateFiles(post) {
		text, ok := files[name]
		if !ok {
			continue
		}
		html, err := r.renderCandidate(post, text)
		if err != nil {
			logger.WithError(err).WithField("file", name).Warn("Failed to render blog post file")
			continue
		}
		if strings.TrimSpace(html) == "" {
			continue
		}
		logger.WithField("file", name).Debug("Resolved blog post content from file")
		post.Content = html
		return post, nil
	}

	source := post.Excerpt
	if strings.TrimSpace(source) == "" {
		source = Placeholder
	}
	html, err := content.RenderMarkdown(source)
	if err != nil || strings.TrimSpace(html) == "" {
		html = "<p>" + Placeholder + "</p>\n"
	}
	post.Content = html
	return post, nil
}

// CandidateFiles lists the gist file names probed for a post body, in
// priority order.
func CandidateFiles(post *content.BlogPost) []string {
	candidates := []string{
		post.Slug + ".md",
		"blog_" + post.Slug + ".md",
		"posts/" + post.Slug + ".md",
	}
	if post.Title != "" {
		candidates = append(candidates, content.Slugify(post.Title)+".md")
	}
	return candidates
}

// postFrontMatter is the optional header of a post markdown file. It only
// fills fields the collection entry left empty.
type postFrontMatter struct {
	Title      string   `yaml:"title" toml:"title" json:"title"`
	Date       string   `yaml:"date" toml:"date" json:"date"`
	Author     string   `yaml:"author" toml:"author" json:"author"`
	Excerpt    string   `yaml:"excerpt" toml:"excerpt" json:"excerpt"`
	CoverImage string   `yaml:"coverImage" toml:"coverImage" json:"coverImage"`
	Tags       []string `yaml:"tags" toml:"tags" json:"tags"`
}

func (r *Resolver) renderCandidate(post *content.BlogPost, text string) (string, error) {
	var fm postFrontMatter
	body, err := frontmatter.Parse(strings.NewReader(text), &fm)
	if err != nil {
		r.logger.WithError(err).Debug("Could not parse front matter, treating as plain markdown")
		body = []byte(text)
	} else {
		applyFrontMatter(post, fm)
	}
	return content.RenderMarkdown(string(body))
}

func applyFrontMatter(post *content.BlogPost, fm postFrontMatter) {
	if post.Title == "" {
		post.Title = fm.Title
	}
	if post.Date == "" {
		post.Date = fm.Date
	}
	if post.Author.Name == "" {
		post.Author.Name = fm.Author
	}
	if post.Excerpt == "" {
		post.Excerpt = fm.Excerpt
	}
	if post.CoverImage == "" {
		post.CoverImage = fm.CoverImage
	}
	if len(post.Tags) == 0 {
		post.Tags = fm.Tags
	}
}

// Search ranks posts by title and excerpt.
func (r *Resolver) Search(ctx context.Context, query string, limit int) ([]content.BlogPost, error) {
	posts, err := r.ListBlogPosts(ctx)
	if err != nil {
		return nil, err
	}

	targets := make([]string, len(posts))
	for i, p := range posts {
		targets[i] = strings.TrimSpace(p.Title + " " + p.Excerpt)
	}

	matches := search.Rank(query, targets, limit)
	out := make([]content.BlogPost, len(matches))
	for i, m := range matches {
		out[i] = posts[m.Index]
	}
	return out, nil
}
