package storage

import (
	"context"
	"crypto/sha1"
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite" // SQLite driver registration.

	"topicbot/migrations"
)

const timeLayout = time.RFC3339

// SQLite implements Storage backed by a SQLite database.
type SQLite struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at dsn and runs pending migrations.
func NewSQLite(dsn string) (*SQLite, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("set WAL mode: %w", err)
	}

	if err := migrations.Run(db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLite{db: db}, nil
}

// Close closes the underlying database connection.
func (s *SQLite) Close() error {
	return s.db.Close()
}

// watermarkKey hashes the feed URL so state keys stay bounded regardless of
// how long the URL is.
func watermarkKey(feedURL string) string {
	return fmt.Sprintf("feed_baseline:%x", sha1.Sum([]byte(feedURL)))
}

// GetWatermark returns the stored watermark for a feed.
func (s *SQLite) GetWatermark(ctx context.Context, feedURL string) (time.Time, bool, error) {
	var value string
	err := s.db.QueryRowContext(ctx,
		`SELECT value FROM state WHERE key = ?`, watermarkKey(feedURL),
	).Scan(&value)
	if err == sql.ErrNoRows {
		return time.Time{}, false, nil
	}
	if err != nil {
		return time.Time{}, false, fmt.Errorf("query watermark: %w", err)
	}
	ts, err := time.Parse(timeLayout, value)
	if err != nil {
		// Unreadable value behaves like an absent watermark; the feed
		// re-bootstraps rather than wedging the whole poll loop.
		return time.Time{}, false, nil
	}
	return ts, true, nil
}

// SetWatermark upserts the watermark for a feed.
func (s *SQLite) SetWatermark(ctx context.Context, feedURL string, ts time.Time) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO state (key, value) VALUES (?, ?)
		 ON CONFLICT (key) DO UPDATE SET value = excluded.value`,
		watermarkKey(feedURL), ts.UTC().Format(timeLayout),
	)
	if err != nil {
		return fmt.Errorf("set watermark: %w", err)
	}
	return nil
}

// MarkSeen records an item as handled. Duplicate inserts are ignored.
func (s *SQLite) MarkSeen(ctx context.Context, feedURL, guid, secondaryID string, publishedAt time.Time) error {
	var published *string
	if !publishedAt.IsZero() {
		v := publishedAt.UTC().Format(timeLayout)
		published = &v
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT OR IGNORE INTO seen_items (feed_url, item_guid, secondary_id, published_at, first_seen_at)
		 VALUES (?, ?, ?, ?, ?)`,
		feedURL, guid, secondaryID, published, time.Now().UTC().Format(timeLayout),
	)
	if err != nil {
		return fmt.Errorf("mark seen: %w", err)
	}
	return nil
}

// IsSeen checks whether an item has already been handled. The identity
// columns are stored as empty strings when absent, so equality here gives
// the coalesced semantics: two absent secondary ids match each other but
// not a populated one.
func (s *SQLite) IsSeen(ctx context.Context, feedURL, guid, secondaryID string) (bool, error) {
	var count int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM seen_items WHERE feed_url = ? AND item_guid = ? AND secondary_id = ?`,
		feedURL, guid, secondaryID,
	).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("check seen: %w", err)
	}
	return count > 0, nil
}
