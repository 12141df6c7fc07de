package storage

import (
	"context"
	"testing"
	"time"
)

func newTestDB(t *testing.T) *SQLite {
	t.Helper()
	s, err := NewSQLite(":memory:")
	if err != nil {
		t.Fatalf("new sqlite: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestWatermark(t *testing.T) {
	ctx := context.Background()
	s := newTestDB(t)

	const feed = "https://example.com/podcast.rss"

	_, ok, err := s.GetWatermark(ctx, feed)
	if err != nil {
		t.Fatalf("get watermark: %v", err)
	}
	if ok {
		t.Fatal("expected no watermark for a fresh feed")
	}

	first := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	if err := s.SetWatermark(ctx, feed, first); err != nil {
		t.Fatalf("set watermark: %v", err)
	}

	got, ok, err := s.GetWatermark(ctx, feed)
	if err != nil {
		t.Fatalf("get watermark: %v", err)
	}
	if !ok {
		t.Fatal("expected a watermark after set")
	}
	if !got.Equal(first) {
		t.Errorf("watermark = %v, want %v", got, first)
	}

	// Upsert replaces the value.
	second := first.Add(48 * time.Hour)
	if err := s.SetWatermark(ctx, feed, second); err != nil {
		t.Fatalf("set watermark: %v", err)
	}
	got, _, err = s.GetWatermark(ctx, feed)
	if err != nil {
		t.Fatalf("get watermark: %v", err)
	}
	if !got.Equal(second) {
		t.Errorf("watermark = %v, want %v", got, second)
	}
}

func TestWatermarkPerFeed(t *testing.T) {
	ctx := context.Background()
	s := newTestDB(t)

	ts := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	if err := s.SetWatermark(ctx, "https://a.example.com/rss", ts); err != nil {
		t.Fatalf("set watermark: %v", err)
	}

	_, ok, err := s.GetWatermark(ctx, "https://b.example.com/rss")
	if err != nil {
		t.Fatalf("get watermark: %v", err)
	}
	if ok {
		t.Error("watermark for one feed must not leak to another")
	}
}

func TestSeenLedger(t *testing.T) {
	ctx := context.Background()
	s := newTestDB(t)

	const feed = "https://example.com/podcast.rss"
	pub := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

	seen, err := s.IsSeen(ctx, feed, "guid-1", "")
	if err != nil {
		t.Fatalf("is seen: %v", err)
	}
	if seen {
		t.Fatal("fresh item should not be seen")
	}

	if err := s.MarkSeen(ctx, feed, "guid-1", "", pub); err != nil {
		t.Fatalf("mark seen: %v", err)
	}
	seen, err = s.IsSeen(ctx, feed, "guid-1", "")
	if err != nil {
		t.Fatalf("is seen: %v", err)
	}
	if !seen {
		t.Fatal("item should be seen after mark")
	}

	// Duplicate insert is a silent no-op.
	if err := s.MarkSeen(ctx, feed, "guid-1", "", pub); err != nil {
		t.Fatalf("duplicate mark seen: %v", err)
	}

	// A populated secondary id is a distinct ledger row.
	seen, err = s.IsSeen(ctx, feed, "guid-1", "ep-42")
	if err != nil {
		t.Fatalf("is seen: %v", err)
	}
	if seen {
		t.Error("empty secondary id must not match a populated one")
	}
	if err := s.MarkSeen(ctx, feed, "guid-1", "ep-42", pub); err != nil {
		t.Fatalf("mark seen with secondary: %v", err)
	}
	seen, err = s.IsSeen(ctx, feed, "guid-1", "ep-42")
	if err != nil {
		t.Fatalf("is seen: %v", err)
	}
	if !seen {
		t.Error("populated secondary id should match its own row")
	}

	// Ledger rows are scoped per feed.
	seen, err = s.IsSeen(ctx, "https://other.example.com/rss", "guid-1", "")
	if err != nil {
		t.Fatalf("is seen: %v", err)
	}
	if seen {
		t.Error("seen rows must not leak across feeds")
	}
}

func TestMarkSeenZeroPublishTime(t *testing.T) {
	ctx := context.Background()
	s := newTestDB(t)

	if err := s.MarkSeen(ctx, "https://example.com/rss", "guid-1", "", time.Time{}); err != nil {
		t.Fatalf("mark seen without publish time: %v", err)
	}
	seen, err := s.IsSeen(ctx, "https://example.com/rss", "guid-1", "")
	if err != nil {
		t.Fatalf("is seen: %v", err)
	}
	if !seen {
		t.Error("item should be seen even without a publish time")
	}
}
