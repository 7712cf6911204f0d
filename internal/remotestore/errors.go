package remotestore

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/google/go-github/v76/github"
)

var (
	// ErrNotFound reports that the requested path or snippet does not exist.
	ErrNotFound = errors.New("not found")
	// ErrNetwork covers transport failures, timeouts and any non-2xx status
	// other than 404.
	ErrNetwork = errors.New("network failure")
)

// classifyError maps a go-github error onto the store's error taxonomy. The
// returned bool reports whether the failure is worth retrying.
func classifyError(ctx context.Context, what string, err error) (error, bool) {
	if err == nil {
		return nil, false
	}

	if ctxErr := ctx.Err(); ctxErr != nil {
		return fmt.Errorf("%s: %w", what, ctxErr), false
	}

	if errors.Is(err, ErrNotFound) {
		return fmt.Errorf("%s: %w", what, err), false
	}

	var rateErr *github.RateLimitError
	if errors.As(err, &rateErr) {
		return fmt.Errorf("%w: %s: rate limit exceeded, resets at %s", ErrNetwork, what, rateErr.Rate.Reset.Format("15:04:05")), false
	}

	var abuseErr *github.AbuseRateLimitError
	if errors.As(err, &abuseErr) {
		return fmt.Errorf("%w: %s: secondary rate limit hit", ErrNetwork, what), false
	}

	var respErr *github.ErrorResponse
	if errors.As(err, &respErr) && respErr.Response != nil {
		status := respErr.Response.StatusCode
		switch {
		case status == http.StatusNotFound:
			return fmt.Errorf("%s: %w", what, ErrNotFound), false
		case status >= http.StatusInternalServerError:
			return fmt.Errorf("%w: %s: server returned %d", ErrNetwork, what, status), true
		default:
			return fmt.Errorf("%w: %s: server returned %d: %s", ErrNetwork, what, status, respErr.Message), false
		}
	}

	return fmt.Errorf("%w: %s: %v", ErrNetwork, what, err), true
}

func outcomeOf(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, ErrNotFound):
		return "not_found"
	case errors.Is(err, context.Canceled):
		return "cancelled"
	default:
		return "error"
	}
}
