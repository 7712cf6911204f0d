package remotestore

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/google/go-github/v76/github"
	"github.com/nativeui-dev/catalog-mcp/internal/telemetry"
	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"
)

const (
	// DefaultCoreAPIRateLimit is requests per minute, under the 5000/hour
	// authenticated limit.
	DefaultCoreAPIRateLimit = 80
	DefaultMaxRetries       = 3
	DefaultRetryDelay       = 250 * time.Millisecond
	DefaultTimeout          = 30 * time.Second
)

// Store is the read-only view of the remote content the rest of the service
// depends on. Client is the production implementation.
type Store interface {
	// GetRepoFile fetches one file by exact path. A missing path returns an
	// error matching ErrNotFound.
	GetRepoFile(ctx context.Context, path string) (*RepoFile, error)
	// GetSnippetFiles returns filename to plain text content for one gist.
	GetSnippetFiles(ctx context.Context, snippetID string) (map[string]string, error)
}

// RepoFile is a repository file as delivered by the contents API. Raw holds
// the transport payload, base64 encoded when Encoding is "base64".
type RepoFile struct {
	Path     string `json:"path"`
	SHA      string `json:"sha,omitempty"`
	Size     int    `json:"size"`
	Encoding string `json:"encoding,omitempty"`
	Raw      []byte `json:"-"`
}

// Options configures a Client.
type Options struct {
	Owner string
	Repo  string
	Ref   string

	Token   string
	BaseURL string
	Timeout time.Duration

	RateLimitPerMinute int
	MaxRetries         int
	RetryDelay         time.Duration
}

// Client reads repository files and gists through the GitHub REST API.
type Client struct {
	gh         *github.Client
	owner      string
	repo       string
	ref        string
	authMethod string
	logger     *logrus.Logger

	limiter    *rate.Limiter
	mu         sync.Mutex
	maxRetries int
	retryDelay time.Duration
}

// NewClient constructs a Client. Owner and Repo may be empty when only gists
// are read.
func NewClient(ctx context.Context, opts Options, logger *logrus.Logger) (*Client, error) {
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}
	if opts.RateLimitPerMinute <= 0 {
		opts.RateLimitPerMinute = DefaultCoreAPIRateLimit
	}
	if opts.MaxRetries <= 0 {
		opts.MaxRetries = DefaultMaxRetries
	}
	if opts.RetryDelay <= 0 {
		opts.RetryDelay = DefaultRetryDelay
	}

	authConfig := GetAuthConfig(opts.Token)
	if authConfig.Method == "none" {
		logger.Warn("No GitHub token configured, using anonymous access with lower rate limits")
	}

	gh, err := NewGitHubClient(ctx, authConfig, opts.BaseURL, opts.Timeout, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create GitHub client: %w", err)
	}

	return &Client{
		gh:         gh,
		owner:      opts.Owner,
		repo:       opts.Repo,
		ref:        opts.Ref,
		authMethod: authConfig.Method,
		logger:     logger,
		limiter:    rate.NewLimiter(rate.Limit(opts.RateLimitPerMinute)/60, 1), // per-minute to per-second
		maxRetries: opts.MaxRetries,
		retryDelay: opts.RetryDelay,
	}, nil
}

// Repository returns the owner/repo the client reads from.
func (c *Client) Repository() string {
	return c.owner + "/" + c.repo
}

// Authenticated reports whether requests carry a bearer token.
func (c *Client) Authenticated() bool {
	return c.authMethod == "token"
}

// GetRepoFile fetches a file from the configured repository by exact path.
func (c *Client) GetRepoFile(ctx context.Context, path string) (*RepoFile, error) {
	path = CleanPath(path)
	if path == "" {
		return nil, fmt.Errorf("path cannot be empty")
	}
	if c.owner == "" || c.repo == "" {
		return nil, fmt.Errorf("no repository configured")
	}

	ctx, span := telemetry.StartStoreSpan(ctx, telemetry.SurfaceRepo, path)
	start := time.Now()

	var file *RepoFile
	err := c.withRetry(ctx, "get "+path, func() error {
		var opErr error
		file, opErr = c.getContents(ctx, path)
		return opErr
	})

	outcome := outcomeOf(err)
	telemetry.RecordStoreFetch(ctx, telemetry.SurfaceRepo, outcome, float64(time.Since(start).Milliseconds()))
	telemetry.EndStoreSpan(span, outcome, err)

	if err != nil {
		return nil, err
	}
	return file, nil
}

func (c *Client) getContents(ctx context.Context, path string) (*RepoFile, error) {
	opts := &github.RepositoryContentGetOptions{Ref: c.ref}

	fileContent, dirContent, _, err := c.gh.Repositories.GetContents(ctx, c.owner, c.repo, path, opts)
	if err != nil {
		return nil, err
	}
	if fileContent == nil {
		if dirContent != nil {
			return nil, fmt.Errorf("%s is a directory: %w", path, ErrNotFound)
		}
		return nil, fmt.Errorf("%s: empty response: %w", path, ErrNotFound)
	}

	file := &RepoFile{
		Path:     fileContent.GetPath(),
		SHA:      fileContent.GetSHA(),
		Size:     fileContent.GetSize(),
		Encoding: fileContent.GetEncoding(),
	}
	if fileContent.Content != nil {
		file.Raw = []byte(*fileContent.Content)
	}

	// files over 1MB come back with encoding "none" and no inline content
	if file.Encoding == "none" || (len(file.Raw) == 0 && file.Size > 0) {
		rc, _, err := c.gh.Repositories.DownloadContents(ctx, c.owner, c.repo, path, opts)
		if err != nil {
			return nil, err
		}
		defer func() {
			if closeErr := rc.Close(); closeErr != nil {
				c.logger.WithError(closeErr).Warn("Failed to close download body")
			}
		}()
		raw, err := io.ReadAll(rc)
		if err != nil {
			return nil, err
		}
		file.Raw = raw
		file.Encoding = ""
	}

	return file, nil
}

// GetSnippetFiles fetches every file of a gist as plain text.
func (c *Client) GetSnippetFiles(ctx context.Context, snippetID string) (map[string]string, error) {
	if snippetID == "" {
		return nil, fmt.Errorf("snippet id cannot be empty")
	}

	ctx, span := telemetry.StartStoreSpan(ctx, telemetry.SurfaceSnippet, snippetID)
	start := time.Now()

	var files map[string]string
	err := c.withRetry(ctx, "get gist "+snippetID, func() error {
		var opErr error
		files, opErr = c.getGist(ctx, snippetID)
		return opErr
	})

	outcome := outcomeOf(err)
	telemetry.RecordStoreFetch(ctx, telemetry.SurfaceSnippet, outcome, float64(time.Since(start).Milliseconds()))
	telemetry.EndStoreSpan(span, outcome, err)

	if err != nil {
		return nil, err
	}
	return files, nil
}

func (c *Client) getGist(ctx context.Context, snippetID string) (map[string]string, error) {
	gist, _, err := c.gh.Gists.Get(ctx, snippetID)
	if err != nil {
		return nil, err
	}

	files := make(map[string]string, len(gist.Files))
	for name, f := range gist.Files {
		filename := string(name)
		if f.Filename != nil {
			filename = f.GetFilename()
		}

		if f.Content != nil {
			files[filename] = f.GetContent()
			continue
		}
		// truncated gist files carry only a raw URL
		if f.GetRawURL() == "" {
			files[filename] = ""
			continue
		}
		text, err := c.getRaw(ctx, f.GetRawURL())
		if err != nil {
			return nil, err
		}
		files[filename] = text
	}
	return files, nil
}

func (c *Client) getRaw(ctx context.Context, rawURL string) (string, error) {
	req, err := c.gh.NewRequest("GET", rawURL, nil)
	if err != nil {
		return "", err
	}
	var buf bytes.Buffer
	if _, err := c.gh.Do(ctx, req, &buf); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// withRetry runs op under the rate limiter, retrying transient failures with
// a linearly increasing delay.
func (c *Client) withRetry(ctx context.Context, what string, op func() error) error {
	var lastErr error

	for attempt := range c.maxRetries {
		select {
		case <-ctx.Done():
			return fmt.Errorf("%s: request canceled: %w", what, ctx.Err())
		default:
		}

		if err := c.waitForCoreAPIRateLimit(ctx); err != nil {
			return fmt.Errorf("%s: rate limit wait failed: %w", what, err)
		}

		err := op()
		if err == nil {
			return nil
		}

		classified, retryable := classifyError(ctx, what, err)
		if !retryable {
			return classified
		}
		lastErr = classified

		c.logger.WithFields(logrus.Fields{
			"attempt": attempt + 1,
			"what":    what,
			"error":   err.Error(),
		}).Warn("Remote store request failed")

		if attempt < c.maxRetries-1 {
			delay := time.Duration(attempt+1) * c.retryDelay
			c.logger.WithField("delay", delay).Debug("Retrying request after delay")

			select {
			case <-ctx.Done():
				return fmt.Errorf("%s: request canceled during retry: %w", what, ctx.Err())
			case <-time.After(delay):
			}
		}
	}

	return fmt.Errorf("failed after %d attempts: %w", c.maxRetries, lastErr)
}

// waitForCoreAPIRateLimit waits for core API rate limit before making a request
func (c *Client) waitForCoreAPIRateLimit(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.limiter.Wait(ctx)
}
