package collector

import (
	"context"
	"net/http"
	"time"

	"github.com/google/go-github/v84/github"
	"github.com/grokify/gogithub/auth"
	"github.com/grokify/mogo/net/http/retryhttp"

	"github.com/grokify/forwardport/internal/cache"
)

// ClientConfig configures the HTTP clients used by the collectors.
type ClientConfig struct {
	// Token is the GitHub token. Empty makes unauthenticated requests.
	Token string

	// MaxRetries enables retries of rate-limited and failed requests.
	MaxRetries int

	// InitialBackoff is the initial backoff duration for retries.
	InitialBackoff time.Duration

	// Cache is an optional cache for GET responses.
	Cache *cache.Cache
}

// NewHTTPClient creates an HTTP client with the configured retry and
// cache transports.
func NewHTTPClient(cfg ClientConfig) *http.Client {
	var rt http.RoundTripper = http.DefaultTransport

	if cfg.MaxRetries > 0 {
		retryOpts := []retryhttp.Option{retryhttp.WithMaxRetries(cfg.MaxRetries)}
		if cfg.InitialBackoff > 0 {
			retryOpts = append(retryOpts, retryhttp.WithInitialBackoff(cfg.InitialBackoff))
		}
		rt = retryhttp.NewWithOptions(retryOpts...)
	}

	if cfg.Cache != nil {
		rt = cache.NewTransport(cfg.Cache, rt)
	}

	return &http.Client{Transport: rt}
}

// NewGitHubClient creates a GitHub API client.
func NewGitHubClient(ctx context.Context, cfg ClientConfig) *github.Client {
	if cfg.MaxRetries <= 0 && cfg.Cache == nil {
		if cfg.Token == "" {
			return github.NewClient(nil)
		}
		return auth.NewGitHubClient(ctx, cfg.Token)
	}

	client := github.NewClient(NewHTTPClient(cfg))
	if cfg.Token != "" {
		client = client.WithAuthToken(cfg.Token)
	}
	return client
}
