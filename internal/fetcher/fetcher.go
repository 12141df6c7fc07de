// Package fetcher handles feed downloading, parsing, and item normalization.
package fetcher

import (
	"context"
	"crypto/sha256"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/mmcdole/gofeed"

	"topicbot/internal/model"
)

// HTTPClient is the interface for performing HTTP requests.
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// Fetcher downloads and parses media feeds.
type Fetcher struct {
	client HTTPClient
	now    func() time.Time
}

// New creates a Fetcher with the given HTTP client.
func New(client HTTPClient) *Fetcher {
	return &Fetcher{
		client: client,
		now:    time.Now,
	}
}

// Fetch downloads a feed and normalizes its entries into items.
// The returned slice carries no ordering guarantee; the selector sorts.
func (f *Fetcher) Fetch(ctx context.Context, feedURL string) ([]model.Item, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, feedURL, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", "topicbot/1.0")

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("http get: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 5*1024*1024))
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}

	parser := gofeed.NewParser()
	feed, err := parser.ParseString(string(body))
	if err != nil {
		return nil, fmt.Errorf("parse feed: %w", err)
	}
	return f.normalize(feed), nil
}

func (f *Fetcher) normalize(feed *gofeed.Feed) []model.Item {
	items := make([]model.Item, 0, len(feed.Items))
	for _, entry := range feed.Items {
		items = append(items, model.Item{
			GUID:         ItemGUID(entry),
			Title:        strings.TrimSpace(entry.Title),
			PublishedAt:  f.publishTime(entry),
			EnclosureURL: audioEnclosure(entry),
			VideoID:      videoID(entry),
		})
	}
	return items
}

// publishTime returns the entry's publish timestamp in UTC. Entries without
// a parsable date default to now. This is a deliberate fallback so such
// items are still picked up, at the cost of always looking newest.
func (f *Fetcher) publishTime(entry *gofeed.Item) time.Time {
	if entry.PublishedParsed != nil {
		return entry.PublishedParsed.UTC()
	}
	if entry.UpdatedParsed != nil {
		return entry.UpdatedParsed.UTC()
	}
	return f.now().UTC()
}

// ItemGUID returns the stable identity for a feed entry: guid, then link,
// then a SHA-256 hash of title+link as a last resort.
func ItemGUID(entry *gofeed.Item) string {
	if entry.GUID != "" {
		return entry.GUID
	}
	if entry.Link != "" {
		return entry.Link
	}
	h := sha256.Sum256([]byte(entry.Title + "|" + entry.Link))
	return fmt.Sprintf("sha256:%x", h[:16])
}

// audioEnclosure returns the audio enclosure URL for an entry, preferring
// explicitly audio-typed enclosures, then falling back to the first one.
func audioEnclosure(entry *gofeed.Item) string {
	for _, enc := range entry.Enclosures {
		if strings.HasPrefix(enc.Type, "audio") && enc.URL != "" {
			return enc.URL
		}
	}
	if len(entry.Enclosures) > 0 {
		return entry.Enclosures[0].URL
	}
	return ""
}

// videoID extracts the YouTube video id from a channel-feed entry, via the
// yt namespace extension or the watch link.
func videoID(entry *gofeed.Item) string {
	if yt, ok := entry.Extensions["yt"]; ok {
		if exts, ok := yt["videoId"]; ok && len(exts) > 0 {
			return exts[0].Value
		}
	}
	if u, err := url.Parse(entry.Link); err == nil && strings.Contains(u.Host, "youtube.com") {
		if v := u.Query().Get("v"); v != "" {
			return v
		}
	}
	return ""
}
