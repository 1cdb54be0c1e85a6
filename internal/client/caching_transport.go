package client

import (
	"net/http"

	"github.com/gregjones/httpcache"
	"github.com/gregjones/httpcache/diskcache"
)

// newCachingTransport wraps next with an HTTP cache for anonymous requests.
// The cache is keyed by URL only, so requests carrying a credential always
// go straight to next.
func newCachingTransport(cacheDir string, next http.RoundTripper) http.RoundTripper {
	var cache httpcache.Cache
	if cacheDir == "" {
		cache = httpcache.NewMemoryCache()
	} else {
		// Use disk-based cache for persistence across invocations
		cache = diskcache.New(cacheDir)
	}

	transport := httpcache.NewTransport(cache)
	transport.Transport = next

	return &publicOnlyTransport{cached: transport, direct: next}
}

// publicOnlyTransport routes credentialed requests around the cache.
type publicOnlyTransport struct {
	cached http.RoundTripper
	direct http.RoundTripper
}

func (t *publicOnlyTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	if req.Header.Get("Authorization") != "" {
		return t.direct.RoundTrip(req)
	}
	return t.cached.RoundTrip(req)
}
