// Package fetcher issues rate-limited, cached, retried HTTP requests and
// drives page-based upstream APIs. It is the single point of concurrency
// control for outbound HTTP: workers call in concurrently and suspend on
// the shared inter-request gate.
package fetcher

import (
	"context"
	"time"
)

// ResponseCache is the TTL cache consulted before hitting the network.
// Implemented by internal/cache.
type ResponseCache interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, data []byte, ttl time.Duration) error
}

// FetchOptions tunes a single request.
type FetchOptions struct {
	// Params are query parameters, also part of the cache key.
	Params map[string]string

	// UseCache enables the TTL cache for this request. Paginated pulls
	// leave this off: pages are transient and numerous.
	UseCache bool

	// TTL overrides the default cache TTL when positive.
	TTL time.Duration

	// Timeout overrides the client timeout when positive.
	Timeout time.Duration

	// Headers are added to the request verbatim.
	Headers map[string]string

	// APIKey, when set, is sent in the upstream's key header.
	APIKey string

	// BrowserProfile sends a browser-like header set. Some bulk-download
	// hosts reject default HTTP client user agents.
	BrowserProfile bool

	// ReuseTTL, when positive, makes DownloadToFile reuse an existing
	// destination file younger than the TTL instead of re-downloading.
	ReuseTTL time.Duration
}

// Fetcher is the request surface used by sources and upstream clients.
type Fetcher interface {
	// Fetch performs a GET and returns the response body.
	Fetch(ctx context.Context, url string, opt FetchOptions) ([]byte, error)

	// FetchJSON performs a GET and unmarshals the JSON response into v.
	FetchJSON(ctx context.Context, url string, opt FetchOptions, v any) error

	// DownloadToFile streams the response body to path. The response
	// cache is never consulted; a fresh-enough file at path is reused
	// when ReuseTTL is set.
	DownloadToFile(ctx context.Context, url string, path string, opt FetchOptions) (int64, error)

	// Paginate walks a page-based endpoint and returns every item.
	Paginate(ctx context.Context, endpoint string, opt PaginateOptions) ([]map[string]any, error)
}
