// Package scheduler drives the poll cycle across the configured feed set.
package scheduler

import (
	"context"
	"log/slog"
	"time"

	"topicbot/internal/model"
	"topicbot/internal/selector"
	"topicbot/internal/storage"
)

// FeedSource fetches and normalizes one feed.
type FeedSource interface {
	Fetch(ctx context.Context, feedURL string) ([]model.Item, error)
}

// ItemProcessor runs one selected item to a terminal state.
type ItemProcessor interface {
	Process(ctx context.Context, feed model.Feed, item model.Item) (model.Outcome, error)
}

// Scheduler polls every configured feed on a fixed interval. Feeds are
// processed one at a time; a failure in one feed is contained at the feed
// boundary and never affects its siblings or the next cycle.
type Scheduler struct {
	store       storage.Storage
	source      FeedSource
	processor   ItemProcessor
	feeds       []model.Feed
	interval    time.Duration
	maxPerCycle int
	log         *slog.Logger
}

// New creates a Scheduler for a static feed set.
func New(store storage.Storage, source FeedSource, processor ItemProcessor, feeds []model.Feed, interval time.Duration, log *slog.Logger) *Scheduler {
	return &Scheduler{
		store:       store,
		source:      source,
		processor:   processor,
		feeds:       feeds,
		interval:    interval,
		maxPerCycle: selector.DefaultMaxPerCycle,
		log:         log,
	}
}

// Run starts the poll loop, blocking until ctx is cancelled. The first
// cycle runs immediately.
func (s *Scheduler) Run(ctx context.Context) {
	s.PollAll(ctx)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.PollAll(ctx)
		}
	}
}

// PollAll runs one cycle over every configured feed.
func (s *Scheduler) PollAll(ctx context.Context) {
	s.log.Info("polling feeds", "count", len(s.feeds))
	for _, feed := range s.feeds {
		if ctx.Err() != nil {
			return
		}
		s.pollFeed(ctx, feed)
	}
}

// pollFeed runs one feed through fetch, selection, and processing, then
// commits the watermark. Errors are logged and contained here: the feed's
// durable state is left untouched so the whole cycle retries next tick.
func (s *Scheduler) pollFeed(ctx context.Context, feed model.Feed) {
	items, err := s.source.Fetch(ctx, feed.URL)
	if err != nil {
		s.log.Error("fetch feed", "feed", feed.URL, "error", err)
		return
	}
	if len(items) == 0 {
		return
	}

	watermark, haveWatermark, err := s.store.GetWatermark(ctx, feed.URL)
	if err != nil {
		s.log.Error("get watermark", "feed", feed.URL, "error", err)
		return
	}

	sel := selector.Select(items, watermark, haveWatermark, s.maxPerCycle)
	if sel.Bootstrap {
		s.log.Info("bootstrapping feed", "feed", feed.URL, "items", len(items))
	}

	deferred := false
	for _, item := range sel.Items {
		if ctx.Err() != nil {
			// Shutting down mid-cycle: leave the watermark unmoved so the
			// remaining items are selected again next start.
			return
		}
		outcome, err := s.processor.Process(ctx, feed, item)
		if outcome == model.OutcomeDeferred {
			deferred = true
		}
		if err != nil {
			s.log.Warn("process item", "feed", feed.URL, "guid", item.GUID, "outcome", outcome.String(), "error", err)
			continue
		}
		s.log.Debug("processed item", "feed", feed.URL, "guid", item.GUID, "outcome", outcome.String())
	}

	// The watermark moves forward once per feed per cycle, only after every
	// selected item has reached a terminal state. A deferral holds it back:
	// the deferred item wrote no ledger row, so advancing past it would
	// lose it for good, while re-running the terminal items next cycle is a
	// no-op through the ledger.
	if deferred {
		s.log.Info("holding watermark after deferral", "feed", feed.URL)
		return
	}
	if !sel.Watermark.IsZero() && (!haveWatermark || sel.Watermark.After(watermark)) {
		if err := s.store.SetWatermark(ctx, feed.URL, sel.Watermark); err != nil {
			s.log.Error("set watermark", "feed", feed.URL, "error", err)
		}
	}
}
