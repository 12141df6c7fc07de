// Command prefill augments the feeds config with YouTube channel ids, so
// channel feeds can be added without hunting ids down by hand. It reads
// each feed's RSS title and searches YouTube for the matching channel.
//
// Usage: prefill -config config/feeds.yaml > config/feeds.youtube.yaml
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"regexp"
	"strings"
	"time"

	"github.com/mmcdole/gofeed"
	"google.golang.org/api/option"
	"google.golang.org/api/youtube/v3"
	"gopkg.in/yaml.v3"

	"topicbot/internal/config"
)

type outEntry struct {
	RSS              string `yaml:"rss"`
	SpotifyShow      string `yaml:"spotify_show,omitempty"`
	YouTubeSearch    string `yaml:"youtube_search,omitempty"`
	YouTubeChannelID string `yaml:"youtube_channel_id,omitempty"`
}

type outFile struct {
	PollIntervalSeconds int        `yaml:"poll_interval_seconds"`
	PostCharLimit       int        `yaml:"post_char_limit"`
	Topic               string     `yaml:"topic,omitempty"`
	KeywordsPositive    []string   `yaml:"keywords_positive"`
	ExcludeNote         string     `yaml:"exclude_note,omitempty"`
	StrictFeeds         []outEntry `yaml:"strict_feeds"`
	BroadFeeds          []outEntry `yaml:"broad_feeds"`
}

func main() {
	configPath := flag.String("config", "./config/feeds.yaml", "path to feeds config")
	flag.Parse()

	feeds, err := config.LoadFeeds(*configPath)
	if err != nil {
		log.Fatalf("load feeds config: %v", err)
	}

	ctx := context.Background()
	var yt *youtube.Service
	if key := os.Getenv("YOUTUBE_API_KEY"); key != "" {
		yt, err = youtube.NewService(ctx, option.WithAPIKey(key))
		if err != nil {
			log.Fatalf("create youtube service: %v", err)
		}
	} else {
		log.Print("YOUTUBE_API_KEY not set, emitting search terms only")
	}

	out := outFile{
		PollIntervalSeconds: feeds.PollIntervalSeconds,
		PostCharLimit:       feeds.PostCharLimit,
		Topic:               feeds.Topic,
		KeywordsPositive:    feeds.KeywordsPositive,
		ExcludeNote:         feeds.ExcludeNote,
		StrictFeeds:         convert(ctx, yt, feeds.StrictFeeds),
		BroadFeeds:          convert(ctx, yt, feeds.BroadFeeds),
	}

	if err := yaml.NewEncoder(os.Stdout).Encode(out); err != nil {
		log.Fatalf("encode output: %v", err)
	}
}

func convert(ctx context.Context, yt *youtube.Service, entries []config.FeedEntry) []outEntry {
	out := make([]outEntry, 0, len(entries))
	for _, entry := range entries {
		oe := outEntry{RSS: entry.RSS, SpotifyShow: entry.SpotifyShow}

		title := rssTitle(ctx, entry.RSS)
		if title == "" {
			oe.YouTubeSearch = entry.RSS
		} else {
			oe.YouTubeSearch = title
		}

		if yt != nil && title != "" {
			id, channelTitle, err := searchChannel(yt, title)
			if err != nil {
				log.Printf("youtube search for %q: %v", title, err)
			} else if id != "" {
				oe.YouTubeChannelID = id
				log.Printf("matched %q to channel %q", title, channelTitle)
			}
			// Stay friendly to the quota.
			time.Sleep(200 * time.Millisecond)
		}
		out = append(out, oe)
	}
	return out
}

func rssTitle(ctx context.Context, feedURL string) string {
	ctx, cancel := context.WithTimeout(ctx, 20*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, feedURL, nil)
	if err != nil {
		return ""
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return ""
	}
	defer func() { _ = resp.Body.Close() }()

	feed, err := gofeed.NewParser().Parse(resp.Body)
	if err != nil {
		return ""
	}
	return strings.TrimSpace(feed.Title)
}

// searchChannel returns the id and title of the channel best matching the
// query: an exact or containment match on the normalized title wins,
// otherwise the top search result.
func searchChannel(yt *youtube.Service, query string) (string, string, error) {
	resp, err := yt.Search.List([]string{"snippet"}).
		Q(query).
		Type("channel").
		MaxResults(3).
		Do()
	if err != nil {
		return "", "", fmt.Errorf("search: %w", err)
	}
	if len(resp.Items) == 0 {
		return "", "", nil
	}

	want := normalize(query)
	for _, item := range resp.Items {
		got := normalize(item.Snippet.ChannelTitle)
		if want != "" && got != "" && (strings.Contains(got, want) || strings.Contains(want, got)) {
			return item.Id.ChannelId, item.Snippet.ChannelTitle, nil
		}
	}
	return resp.Items[0].Id.ChannelId, resp.Items[0].Snippet.ChannelTitle, nil
}

var nonWord = regexp.MustCompile(`\W+`)

func normalize(s string) string {
	return nonWord.ReplaceAllString(strings.ToLower(s), "")
}
