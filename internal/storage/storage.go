// Package storage defines the persistence interface and its implementations.
//
// Two pieces of state survive restarts: the per-feed watermark (newest
// publish timestamp ever observed) and the seen-item ledger. The ledger is
// the actual at-most-once-posting guard; the watermark is only a cursor so
// each poll does not re-scan full feed history.
package storage

import (
	"context"
	"time"
)

// Storage is the interface for all persistence operations.
type Storage interface {
	// GetWatermark returns the stored watermark for a feed, or ok=false if
	// the feed has never been polled successfully.
	GetWatermark(ctx context.Context, feedURL string) (ts time.Time, ok bool, err error)
	// SetWatermark upserts the watermark. The store does not enforce
	// monotonicity; callers only pass values they have confirmed are not
	// older than the prior watermark.
	SetWatermark(ctx context.Context, feedURL string, ts time.Time) error

	// MarkSeen records an item as fully handled. Inserting a duplicate
	// (feed, guid, secondary) triple is a no-op, not an error.
	MarkSeen(ctx context.Context, feedURL, guid, secondaryID string, publishedAt time.Time) error
	// IsSeen reports whether an item with this exact (guid, secondary)
	// pair was already handled. Absent identities are passed as "".
	IsSeen(ctx context.Context, feedURL, guid, secondaryID string) (bool, error)

	Close() error
}
