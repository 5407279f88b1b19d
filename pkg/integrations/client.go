package integrations

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/matzehuels/steamfam/pkg/cache"
	"github.com/matzehuels/steamfam/pkg/httputil"
	"github.com/matzehuels/steamfam/pkg/observability"
)

// maxBodyBytes caps how much of a response body is read. Store pages are
// a few hundred KB; anything far beyond that is not a page we can parse.
const maxBodyBytes = 16 << 20

// Transport bundles the resources every upstream client shares for one run:
// the HTTP connection pool, the per-host throttle, the retry policy and the
// optional response cache.
type Transport struct {
	HTTP     *http.Client
	Throttle *httputil.Throttle
	Retry    httputil.Policy
	Cache    cache.Cache
	CacheTTL time.Duration
}

// NewTransport returns a Transport with the browser-like HTTP client, safe
// throttle delays, [DefaultRetry] and no response cache.
func NewTransport() *Transport {
	return &Transport{
		HTTP:     NewHTTPClient(DefaultTimeout),
		Throttle: httputil.NewThrottle(httputil.SafeDelays, httputil.SafeJitter),
		Retry:    DefaultRetry,
		Cache:    cache.NewNullCache(),
		CacheTTL: cache.DefaultTTL,
	}
}

// Client provides shared HTTP functionality for one upstream host class.
// Every request waits on the throttle bucket of its host class, is retried
// according to the transport's policy, and successful bodies are cached when
// a cache is configured.
//
// All methods are safe for concurrent use.
type Client struct {
	http     *http.Client
	throttle *httputil.Throttle
	retry    httputil.Policy
	cache    cache.Cache
	ttl      time.Duration
	host     httputil.HostClass
	headers  map[string]string
}

// NewClient creates a Client bound to host. A nil t uses [NewTransport].
// headers are applied on top of the default browser headers.
func NewClient(t *Transport, host httputil.HostClass, headers map[string]string) *Client {
	if t == nil {
		t = NewTransport()
	}
	c := &Client{
		http:     t.HTTP,
		throttle: t.Throttle,
		retry:    t.Retry,
		cache:    t.Cache,
		ttl:      t.CacheTTL,
		host:     host,
		headers:  headers,
	}
	if c.http == nil {
		c.http = NewHTTPClient(DefaultTimeout)
	}
	if c.cache == nil {
		c.cache = cache.NewNullCache()
	}
	return c
}

// Host returns the host class the client is throttled under.
func (c *Client) Host() httputil.HostClass { return c.host }

// Get performs a GET request and JSON-decodes the response body into v.
func (c *Client) Get(ctx context.Context, rawURL string, v any) error {
	body, err := c.GetBytes(ctx, rawURL)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(body, v); err != nil {
		return fmt.Errorf("%w: %v", ErrDecode, err)
	}
	return nil
}

// GetText performs a GET request and returns the body as a string.
func (c *Client) GetText(ctx context.Context, rawURL string) (string, error) {
	body, err := c.GetBytes(ctx, rawURL)
	return string(body), err
}

// GetBytes performs a GET request with the client's retry policy and
// returns the raw body.
func (c *Client) GetBytes(ctx context.Context, rawURL string) ([]byte, error) {
	return c.Cached(ctx, rawURL, func() ([]byte, error) {
		var body []byte
		attempt := 0
		err := httputil.Retry(ctx, c.retry, func() error {
			attempt++
			b, err := c.do(ctx, rawURL)
			if err != nil && httputil.IsRetryable(err) && attempt < max(c.retry.Attempts, 1) {
				u, _ := url.Parse(rawURL)
				observability.HTTP().OnRetry(ctx, hostOf(u), pathOf(u), attempt, err)
			}
			body = b
			return err
		})
		return body, err
	})
}

// GetOnce performs a single throttled GET request without retries or
// caching. Callers that run their own retry loop use it.
func (c *Client) GetOnce(ctx context.Context, rawURL string) ([]byte, error) {
	return c.do(ctx, rawURL)
}

// Cached returns the cached body for rawURL or calls fetch and stores its
// result. Only successful fetches are cached.
func (c *Client) Cached(ctx context.Context, rawURL string, fetch func() ([]byte, error)) ([]byte, error) {
	key := cache.HTTPKey(string(c.host), rawURL)
	if data, ok, _ := c.cache.Get(ctx, key); ok {
		observability.Cache().OnCacheHit(ctx, string(c.host))
		return data, nil
	}
	observability.Cache().OnCacheMiss(ctx, string(c.host))

	data, err := fetch()
	if err != nil {
		return nil, err
	}
	if err := c.cache.Set(ctx, key, data, c.ttl); err == nil {
		observability.Cache().OnCacheSet(ctx, string(c.host), len(data))
	}
	return data, nil
}

func (c *Client) do(ctx context.Context, rawURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, err
	}
	for k, v := range DefaultHeaders {
		req.Header.Set(k, v)
	}
	for k, v := range c.headers {
		req.Header.Set(k, v)
	}

	if c.throttle != nil {
		if err := c.throttle.Wait(ctx, c.host); err != nil {
			return nil, err
		}
	}

	host, path := hostOf(req.URL), pathOf(req.URL)
	hooks := observability.HTTP()
	hooks.OnRequest(ctx, req.Method, host, path)
	start := time.Now()

	resp, err := c.http.Do(req)
	if err != nil {
		hooks.OnError(ctx, req.Method, host, path, err)
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, httputil.Retryable(fmt.Errorf("%w: %v", ErrNetwork, err))
	}
	defer resp.Body.Close()
	hooks.OnResponse(ctx, req.Method, host, path, resp.StatusCode, time.Since(start))

	if err := checkStatus(resp); err != nil {
		io.Copy(io.Discard, io.LimitReader(resp.Body, 64<<10))
		return nil, err
	}

	var buf bytes.Buffer
	if _, err := io.Copy(&buf, io.LimitReader(resp.Body, maxBodyBytes)); err != nil {
		return nil, httputil.Retryable(fmt.Errorf("%w: read body: %v", ErrNetwork, err))
	}
	return buf.Bytes(), nil
}

func checkStatus(resp *http.Response) error {
	code := resp.StatusCode
	switch {
	case code == http.StatusOK:
		return nil
	case code == http.StatusNotFound:
		return ErrNotFound
	case code == http.StatusTooManyRequests || code == http.StatusServiceUnavailable:
		return httputil.Retryable(&StatusError{
			Code:       code,
			RetryAfter: retryAfter(resp.Header.Get("Retry-After")),
			Err:        ErrRateLimited,
		})
	case code >= 500:
		return httputil.Retryable(&StatusError{Code: code, Err: ErrNetwork})
	default:
		return &StatusError{Code: code, Err: ErrNetwork}
	}
}

func retryAfter(v string) int {
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		return 0
	}
	return n
}

func hostOf(u *url.URL) string {
	if u == nil {
		return ""
	}
	return u.Host
}

func pathOf(u *url.URL) string {
	if u == nil {
		return ""
	}
	return u.Path
}
