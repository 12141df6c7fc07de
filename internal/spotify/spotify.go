// Package spotify resolves podcast episodes on Spotify so posts can link
// to a playable, timestamped episode.
package spotify

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"sync"
	"time"
)

const (
	defaultTokenURL = "https://accounts.spotify.com/api/token"
	defaultAPIURL   = "https://api.spotify.com/v1"

	// tokenSlack renews the access token slightly before it expires so an
	// in-flight request never carries a stale one.
	tokenSlack = 30 * time.Second

	episodePageSize = 50
)

var showIDPattern = regexp.MustCompile(`/show/([A-Za-z0-9]+)`)

// ParseShowID extracts the show id from an open.spotify.com show URL.
// Returns "" if the URL has no show segment.
func ParseShowID(showURL string) string {
	m := showIDPattern.FindStringSubmatch(showURL)
	if m == nil {
		return ""
	}
	return m[1]
}

// EpisodeLink builds a best-effort timestamped link into an episode.
func EpisodeLink(episodeID string, offset time.Duration) string {
	if offset <= 0 {
		return fmt.Sprintf("https://open.spotify.com/episode/%s", episodeID)
	}
	return fmt.Sprintf("https://open.spotify.com/episode/%s?t=%d", episodeID, int(offset/time.Second))
}

// HTTPClient is the interface for performing HTTP requests.
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// Episode is the subset of episode metadata the worker needs.
type Episode struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Client talks to the Spotify Web API using client-credentials auth.
type Client struct {
	httpClient   HTTPClient
	clientID     string
	clientSecret string
	tokenURL     string
	apiURL       string

	mu       sync.Mutex
	token    string
	tokenExp time.Time
}

// NewClient creates a Client with the given credentials.
func NewClient(httpClient HTTPClient, clientID, clientSecret string) *Client {
	return &Client{
		httpClient:   httpClient,
		clientID:     clientID,
		clientSecret: clientSecret,
		tokenURL:     defaultTokenURL,
		apiURL:       defaultAPIURL,
	}
}

// EpisodeForTitle finds a recent episode of a show whose name matches the
// given title. Matching is case-insensitive with punctuation stripped, and
// falls back to containment in either direction. Returns nil when nothing
// matches; that is an answer, not an error.
func (c *Client) EpisodeForTitle(ctx context.Context, showID, title string) (*Episode, error) {
	episodes, err := c.recentEpisodes(ctx, showID)
	if err != nil {
		return nil, err
	}

	want := normalizeTitle(title)
	for _, ep := range episodes {
		got := normalizeTitle(ep.Name)
		if got == want || (want != "" && strings.Contains(got, want)) || (got != "" && strings.Contains(want, got)) {
			found := ep
			return &found, nil
		}
	}
	return nil, nil
}

func (c *Client) recentEpisodes(ctx context.Context, showID string) ([]Episode, error) {
	token, err := c.accessToken(ctx)
	if err != nil {
		return nil, err
	}

	u := fmt.Sprintf("%s/shows/%s/episodes?limit=%d&market=US", c.apiURL, showID, episodePageSize)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch episodes: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch episodes: unexpected status %d", resp.StatusCode)
	}

	var body struct {
		Items []Episode `json:"items"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("decode episodes: %w", err)
	}
	return body.Items, nil
}

// accessToken returns a cached client-credentials token, refreshing it when
// close to expiry.
func (c *Client) accessToken(ctx context.Context) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.token != "" && time.Now().Before(c.tokenExp.Add(-tokenSlack)) {
		return c.token, nil
	}

	form := url.Values{"grant_type": {"client_credentials"}}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.tokenURL, strings.NewReader(form.Encode()))
	if err != nil {
		return "", fmt.Errorf("create token request: %w", err)
	}
	req.SetBasicAuth(c.clientID, c.clientSecret)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("fetch token: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return "", fmt.Errorf("fetch token: unexpected status %d: %s", resp.StatusCode, body)
	}

	var body struct {
		AccessToken string `json:"access_token"`
		ExpiresIn   int    `json:"expires_in"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return "", fmt.Errorf("decode token: %w", err)
	}

	c.token = body.AccessToken
	c.tokenExp = time.Now().Add(time.Duration(body.ExpiresIn) * time.Second)
	return c.token, nil
}

var nonAlnum = regexp.MustCompile(`[^a-z0-9 ]`)

func normalizeTitle(s string) string {
	return strings.TrimSpace(nonAlnum.ReplaceAllString(strings.ToLower(s), ""))
}
