// Package news reads item news feeds from api.steampowered.com.
package news

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/matzehuels/steamfam/pkg/httputil"
	"github.com/matzehuels/steamfam/pkg/integrations"
)

// DefaultBaseURL is the Web API origin.
const DefaultBaseURL = "https://api.steampowered.com"

// DefaultCount is how many news entries are requested per item.
const DefaultCount = 60

// Item is one news entry. Date is a Unix timestamp in seconds.
type Item struct {
	GID      string   `json:"gid"`
	Title    string   `json:"title"`
	URL      string   `json:"url"`
	Author   string   `json:"author"`
	Contents string   `json:"contents"`
	FeedName string   `json:"feedname"`
	Date     int64    `json:"date"`
	Tags     []string `json:"tags"`
}

type newsResponse struct {
	AppNews struct {
		AppID     int    `json:"appid"`
		NewsItems []Item `json:"newsitems"`
	} `json:"appnews"`
}

// Client provides access to the news feed.
// All methods are safe for concurrent use.
type Client struct {
	*integrations.Client
	baseURL string
	count   int
}

// NewClient creates a news client. Requests are paced under
// [httputil.HostAPI].
func NewClient(t *integrations.Transport) *Client {
	return &Client{
		Client:  integrations.NewClient(t, httputil.HostAPI, nil),
		baseURL: DefaultBaseURL,
		count:   DefaultCount,
	}
}

// WithBaseURL returns a copy of c that talks to baseURL.
func (c *Client) WithBaseURL(baseURL string) *Client {
	cp := *c
	cp.baseURL = strings.TrimRight(baseURL, "/")
	return &cp
}

// NewsURL returns the feed URL for id.
func (c *Client) NewsURL(id string) string {
	return fmt.Sprintf("%s/ISteamNews/GetNewsForApp/v2/?appid=%s&count=%d", c.baseURL, url.QueryEscape(id), c.count)
}

// News fetches up to [DefaultCount] news entries for id, newest first as
// returned by the API.
func (c *Client) News(ctx context.Context, id string) ([]Item, error) {
	var resp newsResponse
	if err := c.Get(ctx, c.NewsURL(id), &resp); err != nil {
		return nil, err
	}
	return resp.AppNews.NewsItems, nil
}
