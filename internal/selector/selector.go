// Package selector decides which feed items are new on a given poll cycle.
//
// Per feed, a durable watermark records the newest publish timestamp ever
// observed. A cycle selects the items published strictly after that
// watermark and reports the watermark value to persist once every selected
// item has reached a terminal state. The watermark never moves backward.
package selector

import (
	"sort"
	"time"

	"topicbot/internal/model"
)

// DefaultMaxPerCycle caps how many items one feed may contribute to a
// single cycle, bounding the damage from a replayed or bulk-imported feed.
const DefaultMaxPerCycle = 10

// Selection is the result of one incremental-selection pass for one feed.
type Selection struct {
	// Items to process this cycle, in processing order (oldest first on
	// steady-state cycles, so posts appear chronologically).
	Items []model.Item
	// Watermark to persist once every item has been handled this cycle.
	// The caller holds it back when an item is deferred.
	Watermark time.Time
	// Bootstrap is true on a feed's first-ever successful poll.
	Bootstrap bool
}

// Select computes the per-cycle selection for one feed.
//
// With no stored watermark the feed is bootstrapping: only the single
// newest item is selected, and the watermark becomes its timestamp. This
// avoids a flood of historical posts the first time a long-running feed is
// added.
//
// Otherwise every item published strictly after the watermark is selected,
// ordered ascending and capped at maxPerCycle. The new watermark is
// max(stored, newest publish time in this fetch) regardless of whether any
// item is selected, so an unchanged feed is never re-scanned.
func Select(items []model.Item, watermark time.Time, haveWatermark bool, maxPerCycle int) Selection {
	if maxPerCycle <= 0 {
		maxPerCycle = DefaultMaxPerCycle
	}
	if len(items) == 0 {
		return Selection{Watermark: watermark, Bootstrap: !haveWatermark}
	}

	sorted := make([]model.Item, len(items))
	copy(sorted, items)
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].PublishedAt.After(sorted[j].PublishedAt)
	})
	newest := sorted[0]

	if !haveWatermark {
		return Selection{
			Items:     []model.Item{newest},
			Watermark: newest.PublishedAt,
			Bootstrap: true,
		}
	}

	var fresh []model.Item
	for _, item := range sorted {
		if item.PublishedAt.After(watermark) {
			fresh = append(fresh, item)
		}
	}
	sort.Slice(fresh, func(i, j int) bool {
		return fresh[i].PublishedAt.Before(fresh[j].PublishedAt)
	})
	if len(fresh) > maxPerCycle {
		fresh = fresh[:maxPerCycle]
	}

	next := watermark
	if newest.PublishedAt.After(next) {
		next = newest.PublishedAt
	}
	return Selection{Items: fresh, Watermark: next}
}
