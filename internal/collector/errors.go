package collector

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/google/go-github/v84/github"
)

var (
	ErrNotFound     = errors.New("resource not found")
	ErrForbidden    = errors.New("access forbidden")
	ErrUnauthorized = errors.New("unauthorized")
	ErrHTTPStatus   = errors.New("unexpected HTTP status")

	// ErrInvalidArgument is returned for an unknown archive component or pocket.
	ErrInvalidArgument = errors.New("invalid argument")
)

// statusError describes a failed request to url with the given status.
// Requests to the GitHub API get hints about the token.
func statusError(code int, url string, isGitHub bool) error {
	switch code {
	case http.StatusOK:
		return nil
	case http.StatusNotFound:
		return fmt.Errorf("%w at %q", ErrNotFound, url)
	case http.StatusForbidden:
		if isGitHub {
			return fmt.Errorf("%w: rate limit exceeded for %q, are you using the GITHUB_TOKEN?", ErrForbidden, url)
		}
		return fmt.Errorf("%w to %q", ErrForbidden, url)
	case http.StatusUnauthorized:
		if isGitHub {
			return fmt.Errorf("%w access to %q, maybe bad credentials? check GITHUB_TOKEN", ErrUnauthorized, url)
		}
		return fmt.Errorf("%w access to %q", ErrUnauthorized, url)
	default:
		return fmt.Errorf("%w: failed to fetch %q, HTTP status code %d", ErrHTTPStatus, url, code)
	}
}

// apiError classifies an error returned by the GitHub client.
func apiError(err error) error {
	if err == nil {
		return nil
	}

	var rateErr *github.RateLimitError
	if errors.As(err, &rateErr) {
		return fmt.Errorf("%w: rate limit exceeded, are you using the GITHUB_TOKEN?: %w", ErrForbidden, err)
	}

	var respErr *github.ErrorResponse
	if errors.As(err, &respErr) && respErr.Response != nil {
		url := ""
		if respErr.Response.Request != nil {
			url = respErr.Response.Request.URL.String()
		}
		return statusError(respErr.Response.StatusCode, url, true)
	}

	return err
}
