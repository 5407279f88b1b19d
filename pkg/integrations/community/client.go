// Package community reads account data from steamcommunity.com.
//
// Three endpoints are used: the self-describing profile XML (vanity name to
// SteamID64), the owned-games XML feed and the owned-games HTML page. The
// feed and page are returned raw; interpreting them is the library
// package's job.
package community

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/beevik/etree"

	"github.com/matzehuels/steamfam/pkg/httputil"
	"github.com/matzehuels/steamfam/pkg/integrations"
)

// DefaultBaseURL is the community site origin.
const DefaultBaseURL = "https://steamcommunity.com"

// ErrNoSteamID is returned when a profile document lacks a steamID64 element.
var ErrNoSteamID = errors.New("profile has no steamID64")

// Client provides access to steamcommunity.com.
// All methods are safe for concurrent use.
type Client struct {
	*integrations.Client
	baseURL string
}

// NewClient creates a community client sharing t's connection pool, throttle
// and cache. Requests are paced under [httputil.HostCommunity].
func NewClient(t *integrations.Transport) *Client {
	return &Client{
		Client:  integrations.NewClient(t, httputil.HostCommunity, nil),
		baseURL: DefaultBaseURL,
	}
}

// WithBaseURL returns a copy of c that talks to baseURL instead of the
// public site.
func (c *Client) WithBaseURL(baseURL string) *Client {
	cp := *c
	cp.baseURL = strings.TrimRight(baseURL, "/")
	return &cp
}

// BaseURL returns the origin requests are sent to.
func (c *Client) BaseURL() string { return c.baseURL }

// ProfileURL returns the numeric profile URL for id.
func (c *Client) ProfileURL(id string) string {
	return fmt.Sprintf("%s/profiles/%s", c.baseURL, url.PathEscape(id))
}

// GamesFeedURL returns the owned-games XML feed URL for id.
func (c *Client) GamesFeedURL(id string) string {
	return c.ProfileURL(id) + "/games?tab=all&xml=1"
}

// GamesPageURL returns the owned-games HTML page URL for id.
func (c *Client) GamesPageURL(id string) string {
	return c.ProfileURL(id) + "/games/?tab=all"
}

// ResolveVanity looks up the SteamID64 behind a custom profile name.
func (c *Client) ResolveVanity(ctx context.Context, vanity string) (string, error) {
	u := fmt.Sprintf("%s/id/%s/?xml=1", c.baseURL, url.PathEscape(vanity))
	body, err := c.GetBytes(ctx, u)
	if err != nil {
		return "", fmt.Errorf("resolve %q: %w", vanity, err)
	}
	return ParseSteamID64(body)
}

// ParseSteamID64 extracts the steamID64 element from a profile XML document.
func ParseSteamID64(body []byte) (string, error) {
	doc := etree.NewDocument()
	doc.ReadSettings.Permissive = true
	if err := doc.ReadFromBytes(body); err != nil {
		return "", fmt.Errorf("parse profile xml: %w", err)
	}
	el := doc.FindElement(".//steamID64")
	if el == nil {
		return "", ErrNoSteamID
	}
	id := strings.TrimSpace(el.Text())
	if id == "" {
		return "", ErrNoSteamID
	}
	return id, nil
}

// GamesFeed fetches the owned-games XML feed for id.
func (c *Client) GamesFeed(ctx context.Context, id string) ([]byte, error) {
	return c.GetBytes(ctx, c.GamesFeedURL(id))
}

// GamesPage fetches the owned-games HTML page for id.
func (c *Client) GamesPage(ctx context.Context, id string) (string, error) {
	return c.GetText(ctx, c.GamesPageURL(id))
}
