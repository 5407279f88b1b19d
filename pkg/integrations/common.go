package integrations

import (
	"errors"
	"fmt"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"time"

	"github.com/matzehuels/steamfam/pkg/httputil"
)

// DefaultTimeout bounds every upstream request, including reading the body.
const DefaultTimeout = 25 * time.Second

// DefaultRetry retries transport failures, 429, 503 and other 5xx responses
// three times with exponential backoff starting at 500ms.
var DefaultRetry = httputil.Policy{Attempts: 4, Base: 500 * time.Millisecond, Jitter: 100 * time.Millisecond}

var (
	// ErrNotFound is returned for 404 responses.
	ErrNotFound = errors.New("resource not found")

	// ErrNetwork is returned for transport failures and unexpected statuses.
	ErrNetwork = errors.New("network error")

	// ErrRateLimited is returned for 429 and 503 responses.
	ErrRateLimited = errors.New("rate limited")

	// ErrDecode is returned when a JSON body cannot be decoded.
	ErrDecode = errors.New("decode error")
)

// StatusError reports a non-200 response.
type StatusError struct {
	Code       int
	RetryAfter int // seconds, from the Retry-After header
	Err        error
}

func (e *StatusError) Error() string { return fmt.Sprintf("%v: status %d", e.Err, e.Code) }
func (e *StatusError) Unwrap() error { return e.Err }

// StatusCode returns the HTTP status carried by err, or 0.
func StatusCode(err error) int {
	var se *StatusError
	if errors.As(err, &se) {
		return se.Code
	}
	return 0
}

// UserAgent is a desktop Chrome user agent. The community and store pages
// serve a reduced page to unknown clients.
const UserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0.0.0 Safari/537.36"

// DefaultHeaders are sent with every request.
var DefaultHeaders = map[string]string{
	"User-Agent":      UserAgent,
	"Accept":          "text/html,application/xhtml+xml,application/xml;q=0.9,application/json;q=0.8,*/*;q=0.7",
	"Accept-Language": "en-US,en;q=0.9",
	"Referer":         "https://store.steampowered.com/",
	"DNT":             "1",
}

// StoreURL is the store origin the age-gate cookies are scoped to.
const StoreURL = "https://store.steampowered.com/"

// AgeGateCookies skip the store's mature-content and birth-date prompts.
func AgeGateCookies() []*http.Cookie {
	return []*http.Cookie{
		{Name: "birthtime", Value: "0", Path: "/"},
		{Name: "lastagecheckage", Value: "1-January-1970", Path: "/"},
		{Name: "mature_content", Value: "1", Path: "/"},
		{Name: "wants_mature_content", Value: "1", Path: "/"},
	}
}

// NewHTTPClient creates an HTTP client with the given per-request timeout
// and a cookie jar preloaded with [AgeGateCookies] for the store.
func NewHTTPClient(timeout time.Duration) *http.Client {
	jar, _ := cookiejar.New(nil)
	if u, err := url.Parse(StoreURL); err == nil {
		jar.SetCookies(u, AgeGateCookies())
	}
	tr := http.DefaultTransport.(*http.Transport).Clone()
	tr.MaxIdleConns = 50
	tr.MaxIdleConnsPerHost = 50
	return &http.Client{Timeout: timeout, Jar: jar, Transport: tr}
}
