// Package store reads item metadata and review summaries from
// store.steampowered.com.
package store

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/matzehuels/steamfam/pkg/httputil"
	"github.com/matzehuels/steamfam/pkg/integrations"
)

// DefaultBaseURL is the store origin.
const DefaultBaseURL = "https://store.steampowered.com"

// Requirements holds the HTML fragments of one platform's system
// requirements.
type Requirements struct {
	Minimum     string `json:"minimum"`
	Recommended string `json:"recommended"`
}

// UnmarshalJSON accepts the object form and the empty array the endpoint
// sends for items without requirements.
func (r *Requirements) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || b[0] != '{' {
		*r = Requirements{}
		return nil
	}
	type plain Requirements
	var p plain
	if err := json.Unmarshal(b, &p); err != nil {
		return err
	}
	*r = Requirements(p)
	return nil
}

// ReleaseDate is the free-text release date block.
type ReleaseDate struct {
	ComingSoon bool   `json:"coming_soon"`
	Date       string `json:"date"`
}

// AppDetails is the subset of the appdetails payload the enricher reads.
//
// Success is false when the store refused to describe the item (region
// lock, removed item, or an id that was never a store item).
type AppDetails struct {
	Success        bool
	Type           string
	ReleaseDate    ReleaseDate
	PCRequirements Requirements
}

type appDetailsEntry struct {
	Success bool `json:"success"`
	Data    struct {
		Type           string       `json:"type"`
		ReleaseDate    ReleaseDate  `json:"release_date"`
		PCRequirements Requirements `json:"pc_requirements"`
	} `json:"data"`
}

// QuerySummary is the aggregate block of an appreviews response.
type QuerySummary struct {
	NumReviews      int    `json:"num_reviews"`
	ReviewScore     int    `json:"review_score"`
	ReviewScoreDesc string `json:"review_score_desc"`
	TotalPositive   int    `json:"total_positive"`
	TotalNegative   int    `json:"total_negative"`
	TotalReviews    int    `json:"total_reviews"`
}

type reviewsResponse struct {
	Success      int          `json:"success"`
	QuerySummary QuerySummary `json:"query_summary"`
}

// Client provides access to the store.
// All methods are safe for concurrent use.
type Client struct {
	*integrations.Client
	baseURL string
}

// NewClient creates a store client. Requests are paced under
// [httputil.HostStore].
func NewClient(t *integrations.Transport) *Client {
	return &Client{
		Client:  integrations.NewClient(t, httputil.HostStore, nil),
		baseURL: DefaultBaseURL,
	}
}

// WithBaseURL returns a copy of c that talks to baseURL.
func (c *Client) WithBaseURL(baseURL string) *Client {
	cp := *c
	cp.baseURL = strings.TrimRight(baseURL, "/")
	return &cp
}

// AppDetailsURL returns the appdetails URL restricted to kind, release date
// and PC requirements.
func (c *Client) AppDetailsURL(id string) string {
	return fmt.Sprintf("%s/api/appdetails?appids=%s&cc=us&l=en&filters=type,release_date,pc_requirements",
		c.baseURL, url.QueryEscape(id))
}

// AppPageURL returns the English US store page URL for id.
func (c *Client) AppPageURL(id string) string {
	return fmt.Sprintf("%s/app/%s/?l=english&cc=US", c.baseURL, url.PathEscape(id))
}

// ReviewsURL returns the review summary URL. A positive dayRange asks for
// the recent window; zero or less asks for all-time reviews.
func (c *Client) ReviewsURL(id string, dayRange int) string {
	u := fmt.Sprintf("%s/appreviews/%s?json=1&language=all&purchase_type=all", c.baseURL, url.PathEscape(id))
	if dayRange > 0 {
		u += "&filter=recent&day_range=" + strconv.Itoa(dayRange)
	}
	return u + "&num_per_page=0"
}

// AppDetails fetches the structured details for id. A response without an
// entry for id is reported as unsuccessful, not as an error.
func (c *Client) AppDetails(ctx context.Context, id string) (*AppDetails, error) {
	var resp map[string]appDetailsEntry
	if err := c.Get(ctx, c.AppDetailsURL(id), &resp); err != nil {
		return nil, err
	}
	e, ok := resp[id]
	if !ok || !e.Success {
		return &AppDetails{}, nil
	}
	return &AppDetails{
		Success:        true,
		Type:           e.Data.Type,
		ReleaseDate:    e.Data.ReleaseDate,
		PCRequirements: e.Data.PCRequirements,
	}, nil
}

// AppPage fetches the store page HTML for id.
func (c *Client) AppPage(ctx context.Context, id string) (string, error) {
	return c.GetText(ctx, c.AppPageURL(id))
}

// ReviewSummary fetches the review summary for id. See [Client.ReviewsURL]
// for dayRange.
func (c *Client) ReviewSummary(ctx context.Context, id string, dayRange int) (*QuerySummary, error) {
	body, err := c.GetBytes(ctx, c.ReviewsURL(id, dayRange))
	if err != nil {
		return nil, err
	}
	return decodeReviews(body)
}

// ReviewSummaryOnce is [Client.ReviewSummary] without the transport's
// retries or cache, for callers that apply their own retry policy.
func (c *Client) ReviewSummaryOnce(ctx context.Context, id string, dayRange int) (*QuerySummary, error) {
	body, err := c.GetOnce(ctx, c.ReviewsURL(id, dayRange))
	if err != nil {
		return nil, err
	}
	return decodeReviews(body)
}

func decodeReviews(body []byte) (*QuerySummary, error) {
	var resp reviewsResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("%w: %v", integrations.ErrDecode, err)
	}
	return &resp.QuerySummary, nil
}
