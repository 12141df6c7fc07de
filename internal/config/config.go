// Package config handles application configuration: environment variables
// for credentials and endpoints, plus a YAML file defining the feed set.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"topicbot/internal/model"
	"topicbot/internal/spotify"
)

// Config holds the environment-driven application configuration.
type Config struct {
	DatabasePath        string
	WebBaseURL          string
	InternalToken       string
	SpotifyClientID     string
	SpotifyClientSecret string
	OpenAIKey           string
	OpenAIBaseURL       string
	FeedsPath           string
	LogLevel            string
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	cfg := &Config{
		DatabasePath:        envOrDefault("DATABASE_PATH", "./data/topicbot.db"),
		WebBaseURL:          os.Getenv("WEB_BASE_URL"),
		InternalToken:       os.Getenv("INTERNAL_API_TOKEN"),
		SpotifyClientID:     os.Getenv("SPOTIFY_CLIENT_ID"),
		SpotifyClientSecret: os.Getenv("SPOTIFY_CLIENT_SECRET"),
		OpenAIKey:           os.Getenv("OPENAI_API_KEY"),
		OpenAIBaseURL:       os.Getenv("OPENAI_BASE_URL"),
		FeedsPath:           envOrDefault("FEEDS_CONFIG", "./config/feeds.yaml"),
		LogLevel:            envOrDefault("LOG_LEVEL", "info"),
	}

	for name, v := range map[string]string{
		"WEB_BASE_URL":          cfg.WebBaseURL,
		"INTERNAL_API_TOKEN":    cfg.InternalToken,
		"SPOTIFY_CLIENT_ID":     cfg.SpotifyClientID,
		"SPOTIFY_CLIENT_SECRET": cfg.SpotifyClientSecret,
		"OPENAI_API_KEY":        cfg.OpenAIKey,
	} {
		if v == "" {
			return nil, fmt.Errorf("%s is required", name)
		}
	}
	return cfg, nil
}

func envOrDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

// FeedEntry is one feed definition in the YAML file.
type FeedEntry struct {
	RSS         string `yaml:"rss"`
	SpotifyShow string `yaml:"spotify_show"`
}

// Feeds is the parsed feed-set configuration.
type Feeds struct {
	PollIntervalSeconds int         `yaml:"poll_interval_seconds"`
	PostCharLimit       int         `yaml:"post_char_limit"`
	Topic               string      `yaml:"topic"`
	KeywordsPositive    []string    `yaml:"keywords_positive"`
	ExcludeNote         string      `yaml:"exclude_note"`
	StrictFeeds         []FeedEntry `yaml:"strict_feeds"`
	BroadFeeds          []FeedEntry `yaml:"broad_feeds"`
}

// LoadFeeds reads and validates the feed-set YAML file.
func LoadFeeds(path string) (*Feeds, error) {
	data, err := os.ReadFile(path) //nolint:gosec // path comes from our own config
	if err != nil {
		return nil, fmt.Errorf("read feeds config: %w", err)
	}
	return parseFeeds(data)
}

func parseFeeds(data []byte) (*Feeds, error) {
	var f Feeds
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse feeds config: %w", err)
	}

	if f.PollIntervalSeconds == 0 {
		f.PollIntervalSeconds = 600
	}
	if f.PollIntervalSeconds < 0 {
		return nil, fmt.Errorf("poll_interval_seconds must be positive")
	}
	if f.PostCharLimit == 0 {
		f.PostCharLimit = 300
	}
	if f.PostCharLimit < 0 {
		return nil, fmt.Errorf("post_char_limit must be positive")
	}

	for i := range f.KeywordsPositive {
		f.KeywordsPositive[i] = strings.ToLower(strings.TrimSpace(f.KeywordsPositive[i]))
	}
	if f.Topic == "" {
		f.Topic = strings.Join(f.KeywordsPositive, ", ")
	}

	if len(f.StrictFeeds)+len(f.BroadFeeds) == 0 {
		return nil, fmt.Errorf("at least one feed is required")
	}
	if len(f.StrictFeeds) > 0 && len(f.KeywordsPositive) == 0 {
		return nil, fmt.Errorf("keywords_positive is required when strict feeds are configured")
	}
	for _, entry := range append(append([]FeedEntry{}, f.StrictFeeds...), f.BroadFeeds...) {
		if entry.RSS == "" {
			return nil, fmt.Errorf("every feed needs an rss url")
		}
	}
	return &f, nil
}

// PollInterval returns the poll interval as a duration.
func (f *Feeds) PollInterval() time.Duration {
	return time.Duration(f.PollIntervalSeconds) * time.Second
}

// FeedSet converts the YAML entries into domain feeds, resolving each
// feed's Spotify show id up front.
func (f *Feeds) FeedSet() []model.Feed {
	feeds := make([]model.Feed, 0, len(f.StrictFeeds)+len(f.BroadFeeds))
	for _, entry := range f.StrictFeeds {
		feeds = append(feeds, model.Feed{
			URL:    entry.RSS,
			Mode:   model.ModeStrict,
			ShowID: spotify.ParseShowID(entry.SpotifyShow),
		})
	}
	for _, entry := range f.BroadFeeds {
		feeds = append(feeds, model.Feed{
			URL:    entry.RSS,
			Mode:   model.ModeBroad,
			ShowID: spotify.ParseShowID(entry.SpotifyShow),
		})
	}
	return feeds
}
