package cache

import (
	"bufio"
	"bytes"
	"net/http"
	"net/http/httputil"

	"go.uber.org/zap"

	"github.com/grokify/forwardport/internal/logfields"
)

// Transport is an http.RoundTripper that serves successful GET responses
// from a Cache. Other requests and responses pass through untouched.
type Transport struct {
	Cache *Cache

	// Base is the underlying transport. Nil means http.DefaultTransport.
	Base http.RoundTripper
}

// NewTransport wraps base with a response cache.
func NewTransport(c *Cache, base http.RoundTripper) *Transport {
	return &Transport{Cache: c, Base: base}
}

func (t *Transport) base() http.RoundTripper {
	if t.Base != nil {
		return t.Base
	}
	return http.DefaultTransport
}

// RoundTrip implements http.RoundTripper.
func (t *Transport) RoundTrip(req *http.Request) (*http.Response, error) {
	if req.Method != http.MethodGet || t.Cache == nil {
		return t.base().RoundTrip(req)
	}

	log := zap.L().Named("cache")
	key := cacheKey(req)

	if raw, ok := t.Cache.Get(req.Context(), key); ok {
		resp, err := http.ReadResponse(bufio.NewReader(bytes.NewReader(raw)), req)
		if err == nil {
			log.Debug("serving cached response", logfields.URL(req.URL.String()))
			return resp, nil
		}
		log.Debug("discarding unreadable cached response", logfields.URL(req.URL.String()), zap.Error(err))
		_ = t.Cache.Delete(req.Context(), key)
	}

	resp, err := t.base().RoundTrip(req)
	if err != nil || resp.StatusCode != http.StatusOK {
		return resp, err
	}

	// DumpResponse buffers the body and leaves resp readable.
	raw, err := httputil.DumpResponse(resp, true)
	if err != nil {
		return nil, err
	}
	if err := t.Cache.Set(req.Context(), key, raw); err != nil {
		log.Warn("failed to cache response", logfields.URL(req.URL.String()), zap.Error(err))
	}

	return resp, nil
}

// cacheKey identifies a request by its URL and the headers that change
// the representation.
func cacheKey(req *http.Request) string {
	return req.URL.String() + "|" + req.Header.Get("Accept") + "|" + req.Header.Get("Authorization")
}
