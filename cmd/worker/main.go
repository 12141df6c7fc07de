package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/sashabaranov/go-openai"

	"topicbot/internal/classify"
	"topicbot/internal/config"
	"topicbot/internal/fetcher"
	"topicbot/internal/media"
	"topicbot/internal/pipeline"
	"topicbot/internal/publisher"
	"topicbot/internal/scheduler"
	"topicbot/internal/spotify"
	"topicbot/internal/storage"
	"topicbot/internal/transcribe"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("load config", "error", err)
		os.Exit(1)
	}

	log := newLogger(cfg.LogLevel)

	feeds, err := config.LoadFeeds(cfg.FeedsPath)
	if err != nil {
		log.Error("load feeds config", "path", cfg.FeedsPath, "error", err)
		os.Exit(1)
	}

	if dir := filepath.Dir(cfg.DatabasePath); dir != "." {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			log.Error("create data directory", "path", dir, "error", err)
			os.Exit(1)
		}
	}

	store, err := storage.NewSQLite(cfg.DatabasePath)
	if err != nil {
		log.Error("open database", "path", cfg.DatabasePath, "error", err)
		os.Exit(1)
	}
	defer func() { _ = store.Close() }()

	aiCfg := openai.DefaultConfig(cfg.OpenAIKey)
	if cfg.OpenAIBaseURL != "" {
		aiCfg.BaseURL = cfg.OpenAIBaseURL
	}
	aiClient := openai.NewClientWithConfig(aiCfg)

	pipe := pipeline.New(store, pipeline.Collaborators{
		Content:    media.NewDownloader(http.DefaultClient, log),
		Transcribe: transcribe.New(aiClient, ""),
		Classify:   classify.New(aiClient, "", feeds.Topic, feeds.PostCharLimit, feeds.ExcludeNote),
		Episodes:   spotify.NewClient(http.DefaultClient, cfg.SpotifyClientID, cfg.SpotifyClientSecret),
		Publish:    publisher.New(http.DefaultClient, cfg.WebBaseURL, cfg.InternalToken),
	}, feeds.KeywordsPositive, feeds.Topic, feeds.PostCharLimit, log)

	sched := scheduler.New(store, fetcher.New(http.DefaultClient), pipe, feeds.FeedSet(), feeds.PollInterval(), log)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	log.Info("starting worker", "feeds", len(feeds.FeedSet()), "interval", feeds.PollInterval())

	sched.Run(ctx)

	log.Info("worker stopped")
}

func newLogger(level string) *slog.Logger {
	var lvl slog.Level
	switch strings.ToLower(level) {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: lvl}))
}
