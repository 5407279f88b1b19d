package store

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/matzehuels/steamfam/pkg/httputil"
	"github.com/matzehuels/steamfam/pkg/integrations"
)

func newTestClient(t *testing.T, h http.HandlerFunc) *Client {
	t.Helper()
	server := httptest.NewServer(h)
	t.Cleanup(server.Close)
	tr := &integrations.Transport{
		HTTP:  server.Client(),
		Retry: httputil.Policy{Attempts: 2, Base: time.Millisecond},
	}
	return NewClient(tr).WithBaseURL(server.URL)
}

func TestURLs(t *testing.T) {
	c := NewClient(nil)
	tests := []struct {
		name string
		got  string
		want string
	}{
		{"appdetails", c.AppDetailsURL("10"), "https://store.steampowered.com/api/appdetails?appids=10&cc=us&l=en&filters=type,release_date,pc_requirements"},
		{"page", c.AppPageURL("10"), "https://store.steampowered.com/app/10/?l=english&cc=US"},
		{"recent", c.ReviewsURL("10", 30), "https://store.steampowered.com/appreviews/10?json=1&language=all&purchase_type=all&filter=recent&day_range=30&num_per_page=0"},
		{"overall", c.ReviewsURL("10", 0), "https://store.steampowered.com/appreviews/10?json=1&language=all&purchase_type=all&num_per_page=0"},
	}
	for _, tt := range tests {
		if tt.got != tt.want {
			t.Errorf("%s = %q, want %q", tt.name, tt.got, tt.want)
		}
	}
}

func TestAppDetails(t *testing.T) {
	tests := []struct {
		name        string
		body        string
		wantSuccess bool
		wantType    string
		wantMinimum string
	}{
		{
			name:        "object requirements",
			body:        `{"10":{"success":true,"data":{"type":"game","release_date":{"coming_soon":false,"date":"1 Nov, 2000"},"pc_requirements":{"minimum":"<strong>Storage:</strong> 1 GB","recommended":""}}}}`,
			wantSuccess: true,
			wantType:    "game",
			wantMinimum: "<strong>Storage:</strong> 1 GB",
		},
		{
			name:        "array requirements",
			body:        `{"10":{"success":true,"data":{"type":"dlc","release_date":{"coming_soon":true,"date":"Coming soon"},"pc_requirements":[]}}}`,
			wantSuccess: true,
			wantType:    "dlc",
		},
		{
			name: "unsuccessful",
			body: `{"10":{"success":false}}`,
		},
		{
			name: "missing entry",
			body: `{"20":{"success":true,"data":{"type":"game"}}}`,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				if r.URL.Path != "/api/appdetails" || r.URL.Query().Get("appids") != "10" {
					t.Errorf("unexpected request %s", r.URL)
				}
				w.Write([]byte(tt.body))
			})
			d, err := c.AppDetails(context.Background(), "10")
			if err != nil {
				t.Fatalf("AppDetails() error: %v", err)
			}
			if d.Success != tt.wantSuccess {
				t.Errorf("Success = %v, want %v", d.Success, tt.wantSuccess)
			}
			if d.Type != tt.wantType {
				t.Errorf("Type = %q, want %q", d.Type, tt.wantType)
			}
			if d.PCRequirements.Minimum != tt.wantMinimum {
				t.Errorf("Minimum = %q, want %q", d.PCRequirements.Minimum, tt.wantMinimum)
			}
		})
	}
}

func TestAppDetailsForbidden(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	})
	if _, err := c.AppDetails(context.Background(), "10"); !errors.Is(err, integrations.ErrNetwork) {
		t.Errorf("error = %v, want ErrNetwork", err)
	}
}

func TestAppPage(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/app/10/" || r.URL.Query().Get("l") != "english" {
			t.Errorf("unexpected request %s", r.URL)
		}
		w.Write([]byte("<html>page</html>"))
	})
	html, err := c.AppPage(context.Background(), "10")
	if err != nil || !strings.Contains(html, "page") {
		t.Errorf("AppPage() = %q, %v", html, err)
	}
}

func TestReviewSummary(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("filter") == "recent" {
			w.Write([]byte(`{"success":1,"query_summary":{"num_reviews":0,"review_score_desc":"Very Positive","total_positive":90,"total_negative":10,"total_reviews":100}}`))
			return
		}
		w.Write([]byte(`{"success":1,"query_summary":{"total_reviews":0}}`))
	})

	q, err := c.ReviewSummary(context.Background(), "10", 30)
	if err != nil {
		t.Fatalf("ReviewSummary() error: %v", err)
	}
	if q.TotalReviews != 100 || q.TotalPositive != 90 || q.ReviewScoreDesc != "Very Positive" {
		t.Errorf("recent = %+v", q)
	}

	q, err = c.ReviewSummary(context.Background(), "10", 0)
	if err != nil {
		t.Fatalf("ReviewSummary() error: %v", err)
	}
	if q.TotalReviews != 0 {
		t.Errorf("overall total = %d, want 0", q.TotalReviews)
	}
}

func TestReviewSummaryOnceSingleAttempt(t *testing.T) {
	var calls atomic.Int32
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusTooManyRequests)
	})
	_, err := c.ReviewSummaryOnce(context.Background(), "10", 30)
	if !errors.Is(err, integrations.ErrRateLimited) {
		t.Errorf("error = %v, want ErrRateLimited", err)
	}
	if calls.Load() != 1 {
		t.Errorf("calls = %d, want 1", calls.Load())
	}
}
