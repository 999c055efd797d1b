package fetcher

import (
	"context"
	"io"
	"math"
	"math/rand/v2"
	"net/http"
	"os"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/antoniotavarescjr/kritikos-sub000/internal/cache"
	"github.com/antoniotavarescjr/kritikos-sub000/internal/resilience"
)

// Options configures the HTTP client.
type Options struct {
	UserAgent string
	Timeout   time.Duration
	// MinInterval is the enforced delay between any two outbound requests,
	// regardless of caller concurrency.
	MinInterval time.Duration
	MaxRetries  int
	// RateLimitCooloff is the fixed sleep after an HTTP 429 before the
	// single retry of the same request.
	RateLimitCooloff time.Duration
	DefaultTTL       time.Duration
}

// Client implements Fetcher over net/http with a shared inter-request gate,
// retry with backoff and jitter, and a TTL response cache.
type Client struct {
	client *http.Client
	gate   *rate.Limiter
	cache  ResponseCache
	opts   Options
}

var _ Fetcher = (*Client)(nil)

// New creates a Client. respCache may be nil to disable caching entirely.
func New(opts Options, respCache ResponseCache) *Client {
	if opts.Timeout == 0 {
		opts.Timeout = 30 * time.Second
	}
	if opts.MaxRetries == 0 {
		opts.MaxRetries = 3
	}
	if opts.MinInterval == 0 {
		opts.MinInterval = 300 * time.Millisecond
	}
	if opts.RateLimitCooloff == 0 {
		opts.RateLimitCooloff = 5 * time.Second
	}
	if opts.DefaultTTL == 0 {
		opts.DefaultTTL = 2 * time.Hour
	}
	if opts.UserAgent == "" {
		opts.UserAgent = "kritikos-etl/1.0"
	}

	transport := &http.Transport{
		MaxIdleConnsPerHost: 10,
		MaxConnsPerHost:     20,
		IdleConnTimeout:     90 * time.Second,
	}
	return &Client{
		client: &http.Client{
			Timeout:   opts.Timeout,
			Transport: transport,
		},
		gate:  rate.NewLimiter(rate.Every(opts.MinInterval), 1),
		cache: respCache,
		opts:  opts,
	}
}

// browserHeaders mimics a desktop browser. The transparency portal serves
// HTML error pages to unrecognized clients.
var browserHeaders = map[string]string{
	"User-Agent":      "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0 Safari/537.36",
	"Accept":          "text/html,application/xhtml+xml,application/zip,application/octet-stream,*/*;q=0.8",
	"Accept-Language": "pt-BR,pt;q=0.8,en-US;q=0.5,en;q=0.3",
	"Connection":      "keep-alive",
}

func (c *Client) buildRequest(ctx context.Context, rawURL string, opt FetchOptions) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, eris.Wrap(err, "fetcher: create request")
	}

	if len(opt.Params) > 0 {
		q := req.URL.Query()
		for k, v := range opt.Params {
			q.Set(k, v)
		}
		req.URL.RawQuery = q.Encode()
	}

	if opt.BrowserProfile {
		for k, v := range browserHeaders {
			req.Header.Set(k, v)
		}
	} else {
		req.Header.Set("User-Agent", c.opts.UserAgent)
		req.Header.Set("Accept", "application/json")
	}
	for k, v := range opt.Headers {
		req.Header.Set(k, v)
	}
	if opt.APIKey != "" {
		req.Header.Set("chave-api-dados", opt.APIKey)
	}

	return req, nil
}

// do executes one request through the shared gate with retry semantics:
// 429 sleeps the fixed cooloff and retries once; network errors and 5xx
// retry up to MaxRetries with exponential backoff plus jitter; other 4xx
// fail immediately.
func (c *Client) do(ctx context.Context, req *http.Request) (*http.Response, error) {
	var lastErr error
	rateLimitRetried := false

	for attempt := 0; attempt < c.opts.MaxRetries; attempt++ {
		if err := c.gate.Wait(ctx); err != nil {
			return nil, eris.Wrap(err, "fetcher: rate gate")
		}

		cloned := req.Clone(ctx)
		resp, err := c.client.Do(cloned)
		if err != nil {
			lastErr = resilience.NewTransientError(err, 0)
			zap.L().Warn("http request failed, retrying",
				zap.String("url", req.URL.String()),
				zap.Int("attempt", attempt+1),
				zap.Error(err),
			)
			c.backoff(ctx, attempt)
			continue
		}

		switch {
		case resp.StatusCode == http.StatusTooManyRequests:
			_ = resp.Body.Close()
			lastErr = &resilience.RateLimitedError{Err: eris.Errorf("http 429 from %s", req.URL.String())}
			if rateLimitRetried {
				return nil, lastErr
			}
			rateLimitRetried = true
			zap.L().Warn("rate limited (429), cooling off",
				zap.String("url", req.URL.String()),
				zap.Duration("cooloff", c.opts.RateLimitCooloff),
			)
			if !sleepCtx(ctx, c.opts.RateLimitCooloff) {
				return nil, lastErr
			}
			continue

		case resp.StatusCode >= 500:
			_ = resp.Body.Close()
			lastErr = resilience.NewTransientError(
				eris.Errorf("http %d from %s", resp.StatusCode, req.URL.String()),
				resp.StatusCode,
			)
			zap.L().Warn("server error, retrying",
				zap.String("url", req.URL.String()),
				zap.Int("status", resp.StatusCode),
				zap.Int("attempt", attempt+1),
			)
			c.backoff(ctx, attempt)
			continue

		case resp.StatusCode >= 400:
			_ = resp.Body.Close()
			return nil, eris.Errorf("fetcher: http %d from %s", resp.StatusCode, req.URL.String())
		}

		return resp, nil
	}

	return nil, eris.Wrap(lastErr, "fetcher: all retries exhausted")
}

func (c *Client) backoff(ctx context.Context, attempt int) {
	base := time.Second
	maxBackoff := 30 * time.Second
	d := time.Duration(float64(base) * math.Pow(2, float64(attempt)))
	if d > maxBackoff {
		d = maxBackoff
	}
	d += time.Duration(rand.Int64N(int64(d) / 2))
	sleepCtx(ctx, d)
}

func sleepCtx(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}

// Fetch implements Fetcher.
func (c *Client) Fetch(ctx context.Context, rawURL string, opt FetchOptions) ([]byte, error) {
	var key string
	if opt.UseCache && c.cache != nil {
		key = cache.Key(rawURL, opt.Params)
		data, ok, err := c.cache.Get(ctx, key)
		if err != nil {
			zap.L().Warn("cache read failed, falling through to network", zap.Error(err))
		} else if ok {
			zap.L().Debug("cache hit", zap.String("url", rawURL))
			return data, nil
		}
	}

	req, err := c.buildRequest(ctx, rawURL, opt)
	if err != nil {
		return nil, err
	}
	if opt.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, opt.Timeout)
		defer cancel()
		req = req.WithContext(ctx)
	}

	resp, err := c.do(ctx, req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close() //nolint:errcheck

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, eris.Wrap(err, "fetcher: read body")
	}

	if opt.UseCache && c.cache != nil {
		ttl := opt.TTL
		if ttl <= 0 {
			ttl = c.opts.DefaultTTL
		}
		if err := c.cache.Set(ctx, key, data, ttl); err != nil {
			zap.L().Warn("cache write failed", zap.String("url", rawURL), zap.Error(err))
		}
	}

	return data, nil
}

// FetchJSON implements Fetcher.
func (c *Client) FetchJSON(ctx context.Context, rawURL string, opt FetchOptions, v any) error {
	data, err := c.Fetch(ctx, rawURL, opt)
	if err != nil {
		return err
	}
	if err := unmarshalJSON(data, v); err != nil {
		return &resilience.MalformedDataError{Err: eris.Wrapf(err, "fetcher: decode json from %s", rawURL)}
	}
	return nil
}

// DownloadToFile implements Fetcher. The body is streamed past the
// response cache; bulk files are cached as the destination file itself,
// keyed by its name and modification time.
func (c *Client) DownloadToFile(ctx context.Context, rawURL string, path string, opt FetchOptions) (int64, error) {
	if opt.ReuseTTL > 0 {
		if st, err := os.Stat(path); err == nil && time.Since(st.ModTime()) < opt.ReuseTTL {
			zap.L().Debug("reusing downloaded file",
				zap.String("path", path),
				zap.Time("modified", st.ModTime()),
			)
			return st.Size(), nil
		}
	}

	req, err := c.buildRequest(ctx, rawURL, opt)
	if err != nil {
		return 0, err
	}

	resp, err := c.do(ctx, req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close() //nolint:errcheck

	file, err := os.Create(path)
	if err != nil {
		return 0, eris.Wrap(err, "fetcher: create file")
	}
	defer file.Close() //nolint:errcheck

	n, err := io.Copy(file, resp.Body)
	if err != nil {
		return n, eris.Wrap(err, "fetcher: write file")
	}
	return n, nil
}
