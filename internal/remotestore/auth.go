package remotestore

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/go-github/v76/github"
	"github.com/nativeui-dev/catalog-mcp/internal/utils/httpclient"
	"github.com/sirupsen/logrus"
	"golang.org/x/oauth2"
)

// AuthConfig selects how the store authenticates against the API.
type AuthConfig struct {
	Method string // "token" or "none"
	Token  string
}

// GetAuthConfig determines the authentication method from a bearer token.
// An empty token degrades to anonymous access.
func GetAuthConfig(token string) *AuthConfig {
	token = strings.TrimSpace(token)
	if token == "" {
		return &AuthConfig{Method: "none"}
	}
	return &AuthConfig{Method: "token", Token: token}
}

// NewGitHubClient creates a go-github client with the configured authentication.
// A non-empty baseURL points the client at a different API host, such as an
// enterprise install or a test server.
func NewGitHubClient(ctx context.Context, config *AuthConfig, baseURL string, timeout time.Duration, logger *logrus.Logger) (*github.Client, error) {
	var hc *http.Client

	switch config.Method {
	case "token":
		if config.Token == "" {
			return nil, fmt.Errorf("GitHub token is required for token authentication")
		}
		base := httpclient.NewHTTPClientWithProxyAndLogger(timeout, logger)
		ctx = context.WithValue(ctx, oauth2.HTTPClient, base)
		hc = oauth2.NewClient(ctx, oauth2.StaticTokenSource(&oauth2.Token{AccessToken: config.Token}))
		hc.Timeout = timeout

	case "none":
		// public repositories and gists only, at the anonymous rate limit
		hc = httpclient.NewHTTPClientWithProxyAndLogger(timeout, logger)

	default:
		return nil, fmt.Errorf("unsupported authentication method: %s", config.Method)
	}

	client := github.NewClient(hc)
	if baseURL != "" {
		u, err := url.Parse(baseURL)
		if err != nil {
			return nil, fmt.Errorf("invalid API base URL %q: %w", baseURL, err)
		}
		if !strings.HasSuffix(u.Path, "/") {
			u.Path += "/"
		}
		client.BaseURL = u
	}
	return client, nil
}

// ValidateRepository parses and validates a repository identifier.
// Supports formats:
// - owner/repo
// - https://github.com/owner/repo
// - https://github.com/owner/repo.git
// - https://github.com/owner/repo/tree/main/...
func ValidateRepository(repository string) (owner, repo string, err error) {
	repository = strings.TrimSpace(repository)
	if repository == "" {
		return "", "", fmt.Errorf("repository cannot be empty")
	}

	path := repository
	isURL := false
	if rest, ok := strings.CutPrefix(repository, "https://github.com/"); ok {
		path = rest
		isURL = true
	}

	var parts []string
	for part := range strings.SplitSeq(path, "/") {
		if part != "" {
			parts = append(parts, part)
		}
	}
	if len(parts) < 2 {
		if isURL {
			return "", "", fmt.Errorf("invalid GitHub URL format: %s", repository)
		}
		return "", "", fmt.Errorf("invalid repository format: %s (expected owner/repo or GitHub URL)", repository)
	}

	return parts[0], strings.TrimSuffix(parts[1], ".git"), nil
}

// CleanPath strips leading and trailing slashes from a repository path.
func CleanPath(path string) string {
	return strings.Trim(path, "/")
}
