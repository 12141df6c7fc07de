// Package pipeline drives one feed item from discovery to a terminal
// state: posted, permanently skipped, or deferred for the next cycle.
//
// Every path that ends in posted or skipped writes a ledger row, and every
// path checks the ledger before doing anything externally visible. Deferred
// paths write nothing, so the item is picked up again while it stays above
// the feed's watermark.
package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"path"

	"topicbot/internal/fault"
	"topicbot/internal/keyword"
	"topicbot/internal/model"
	"topicbot/internal/spotify"
	"topicbot/internal/storage"
)

// ContentFetcher acquires episode audio.
type ContentFetcher interface {
	Fetch(ctx context.Context, url string) ([]byte, error)
}

// Transcriber turns audio into text with timed segments.
type Transcriber interface {
	Transcribe(ctx context.Context, audio []byte, filename string) (string, []model.Segment, error)
}

// Classifier makes the relevance decision and writes summaries.
type Classifier interface {
	Classify(ctx context.Context, window string) (model.Classification, error)
	Summarize(ctx context.Context, transcript string) (string, error)
}

// EpisodeResolver finds the platform episode matching an item title.
type EpisodeResolver interface {
	EpisodeForTitle(ctx context.Context, showID, title string) (*spotify.Episode, error)
}

// ThreadPublisher posts the finished two-part thread.
type ThreadPublisher interface {
	PostThread(ctx context.Context, first, second string) error
}

// Collaborators bundles the external services the pipeline orchestrates.
type Collaborators struct {
	Content    ContentFetcher
	Transcribe Transcriber
	Classify   Classifier
	Episodes   EpisodeResolver
	Publish    ThreadPublisher
}

// Pipeline processes selected feed items one at a time.
type Pipeline struct {
	store     storage.Storage
	collab    Collaborators
	keywords  []string
	topic     string
	charLimit int
	log       *slog.Logger
}

// New creates a Pipeline.
func New(store storage.Storage, collab Collaborators, keywords []string, topic string, charLimit int, log *slog.Logger) *Pipeline {
	return &Pipeline{
		store:     store,
		collab:    collab,
		keywords:  keywords,
		topic:     topic,
		charLimit: charLimit,
		log:       log,
	}
}

// Process runs one item to a terminal state. The returned error carries the
// cause when the outcome is deferred, or a storage failure; it never means
// the item should be retried within this cycle.
func (p *Pipeline) Process(ctx context.Context, feed model.Feed, item model.Item) (model.Outcome, error) {
	seen, err := p.store.IsSeen(ctx, feed.URL, item.GUID, "")
	if err != nil {
		return model.OutcomeDeferred, fmt.Errorf("check seen: %w", err)
	}
	if seen {
		return model.OutcomeSkipped, nil
	}

	if item.EnclosureURL == "" {
		// No audio to transcribe, and there never will be.
		p.log.Info("item has no audio enclosure", "feed", feed.URL, "guid", item.GUID)
		return p.skip(ctx, feed, item, "")
	}

	audio, err := p.collab.Content.Fetch(ctx, item.EnclosureURL)
	if err != nil {
		if fault.IsPermanent(err) {
			p.log.Info("audio permanently unavailable", "feed", feed.URL, "guid", item.GUID, "error", err)
			return p.skip(ctx, feed, item, "")
		}
		return model.OutcomeDeferred, fmt.Errorf("fetch audio: %w", err)
	}

	fullText, segments, err := p.collab.Transcribe.Transcribe(ctx, audio, path.Base(item.EnclosureURL))
	if err != nil {
		if fault.IsPermanent(err) {
			p.log.Info("transcription permanently unavailable", "feed", feed.URL, "guid", item.GUID, "error", err)
			return p.skip(ctx, feed, item, "")
		}
		return model.OutcomeDeferred, fmt.Errorf("transcribe: %w", err)
	}

	switch feed.Mode {
	case model.ModeBroad:
		return p.processBroad(ctx, feed, item, fullText)
	default:
		return p.processStrict(ctx, feed, item, segments)
	}
}

// processStrict posts only when a keyword window exists and the classifier
// confirms the mention.
func (p *Pipeline) processStrict(ctx context.Context, feed model.Feed, item model.Item, segments []model.Segment) (model.Outcome, error) {
	window, ok := keyword.Find(segments, p.keywords)
	if !ok {
		p.log.Debug("no keyword hit", "feed", feed.URL, "guid", item.GUID)
		return p.skip(ctx, feed, item, "")
	}

	cls, err := p.collab.Classify.Classify(ctx, window.Snippet)
	if err != nil {
		// A classifier failure reads the same as a negative decision: no
		// post, item recorded. Logged so the misses are at least visible.
		p.log.Warn("classifier failed, treating as not relevant", "feed", feed.URL, "guid", item.GUID, "error", err)
		return p.skip(ctx, feed, item, "")
	}
	if !cls.Relevant {
		p.log.Debug("classifier declined", "feed", feed.URL, "guid", item.GUID)
		return p.skip(ctx, feed, item, "")
	}

	episode, err := p.collab.Episodes.EpisodeForTitle(ctx, feed.ShowID, item.Title)
	if err != nil {
		return model.OutcomeDeferred, fmt.Errorf("resolve episode: %w", err)
	}
	if episode == nil {
		p.log.Info("no matching episode found", "feed", feed.URL, "guid", item.GUID, "title", item.Title)
		return p.skip(ctx, feed, item, "")
	}

	topic := cls.Topic
	if topic == "" {
		topic = p.topic
	}
	link := spotify.EpisodeLink(episode.ID, window.Start)
	first := p.clamp(fmt.Sprintf("%s — %s %s %s", item.Title, keyword.FormatOffset(window.Start), topic, link))
	second := p.clamp(cls.Summary)

	return p.publish(ctx, feed, item, episode.ID, first, second)
}

// processBroad summarizes every episode and posts without keyword gating.
func (p *Pipeline) processBroad(ctx context.Context, feed model.Feed, item model.Item, fullText string) (model.Outcome, error) {
	summary, err := p.collab.Classify.Summarize(ctx, fullText)
	if err != nil {
		p.log.Warn("summarizer failed, skipping item", "feed", feed.URL, "guid", item.GUID, "error", err)
		return p.skip(ctx, feed, item, "")
	}

	episode, err := p.collab.Episodes.EpisodeForTitle(ctx, feed.ShowID, item.Title)
	if err != nil {
		return model.OutcomeDeferred, fmt.Errorf("resolve episode: %w", err)
	}
	if episode == nil {
		p.log.Info("no matching episode found", "feed", feed.URL, "guid", item.GUID, "title", item.Title)
		return p.skip(ctx, feed, item, "")
	}

	first := p.clamp(fmt.Sprintf("%s %s", item.Title, spotify.EpisodeLink(episode.ID, 0)))
	second := p.clamp(summary)

	return p.publish(ctx, feed, item, episode.ID, first, second)
}

// publish posts the thread and records the item. A publish failure is
// logged but the ledger row is still written: retrying against a failing
// downstream would risk repost storms, so a missed post needs manual
// intervention instead.
func (p *Pipeline) publish(ctx context.Context, feed model.Feed, item model.Item, secondaryID, first, second string) (model.Outcome, error) {
	postErr := p.collab.Publish.PostThread(ctx, first, second)
	if postErr != nil {
		p.log.Error("post thread failed", "feed", feed.URL, "guid", item.GUID, "error", postErr)
	}

	if err := p.store.MarkSeen(ctx, feed.URL, item.GUID, secondaryID, item.PublishedAt); err != nil {
		return model.OutcomeDeferred, fmt.Errorf("mark seen: %w", err)
	}
	if postErr != nil {
		return model.OutcomeSkipped, nil
	}
	p.log.Info("posted thread", "feed", feed.URL, "guid", item.GUID, "episode", secondaryID)
	return model.OutcomePosted, nil
}

// skip records the item as permanently handled without posting.
func (p *Pipeline) skip(ctx context.Context, feed model.Feed, item model.Item, secondaryID string) (model.Outcome, error) {
	if err := p.store.MarkSeen(ctx, feed.URL, item.GUID, secondaryID, item.PublishedAt); err != nil {
		return model.OutcomeDeferred, fmt.Errorf("mark seen: %w", err)
	}
	return model.OutcomeSkipped, nil
}

// clamp truncates s to the configured character limit, ending truncated
// text with an ellipsis so the result is exactly limit runes long.
func (p *Pipeline) clamp(s string) string {
	return clamp(s, p.charLimit)
}

func clamp(s string, limit int) string {
	if limit <= 0 {
		return s
	}
	runes := []rune(s)
	if len(runes) <= limit {
		return string(runes)
	}
	return string(runes[:limit-1]) + "…"
}
