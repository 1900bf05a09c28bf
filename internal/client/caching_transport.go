package client

import (
	"net/http"

	"github.com/gregjones/httpcache"
	"github.com/gregjones/httpcache/diskcache"
)

// NewCachingTransport returns a RoundTripper that honours Cache-Control on GET
// responses (e.g. the duration presets served with max-age). With an empty
// cacheDir the cache lives in memory only.
func NewCachingTransport(cacheDir string) http.RoundTripper {
	if cacheDir == "" {
		return httpcache.NewTransport(httpcache.NewMemoryCache())
	}

	// Use disk-based cache for persistence across CLI invocations
	return httpcache.NewTransport(diskcache.New(cacheDir))
}

// NewInMemoryCachingHTTPClient creates an HTTP client with in-memory caching only.
// Suitable for testing or when disk caching is not desired.
func NewInMemoryCachingHTTPClient() *http.Client {
	return &http.Client{
		Transport: NewCachingTransport(""),
	}
}
