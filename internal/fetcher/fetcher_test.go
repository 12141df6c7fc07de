package fetcher

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"os"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/mmcdole/gofeed"

	"topicbot/internal/model"
)

type mockTransport struct {
	body       string
	statusCode int
	err        error
}

func (m *mockTransport) Do(_ *http.Request) (*http.Response, error) {
	if m.err != nil {
		return nil, m.err
	}
	return &http.Response{
		StatusCode: m.statusCode,
		Body:       io.NopCloser(bytes.NewBufferString(m.body)),
	}, nil
}

func loadFixture(t *testing.T, path string) string {
	t.Helper()
	data, err := os.ReadFile(path) //nolint:gosec // test-only fixture loading
	if err != nil {
		t.Fatalf("read fixture %s: %v", path, err)
	}
	return string(data)
}

func TestFetchPodcast(t *testing.T) {
	xml := loadFixture(t, "../../testdata/podcast.xml")
	fixedNow := time.Date(2024, 3, 5, 0, 0, 0, 0, time.UTC)

	f := New(&mockTransport{body: xml, statusCode: 200})
	f.now = func() time.Time { return fixedNow }

	items, err := f.Fetch(context.Background(), "https://example.com/hoops/rss")
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}

	want := []model.Item{
		{
			GUID:         "hoops-104",
			Title:        "Ep 104: Trade deadline fallout",
			PublishedAt:  time.Date(2024, 3, 4, 6, 0, 0, 0, time.UTC),
			EnclosureURL: "https://cdn.example.com/hoops/104.mp3",
		},
		{
			GUID:         "hoops-103",
			Title:        "Ep 103: Western playoff race",
			PublishedAt:  time.Date(2024, 3, 3, 6, 0, 0, 0, time.UTC),
			EnclosureURL: "https://cdn.example.com/hoops/103.mp3",
		},
		{
			// Missing guid falls back to the link.
			GUID:         "https://example.com/hoops/102",
			Title:        "Ep 102: All-star weekend recap",
			PublishedAt:  time.Date(2024, 3, 2, 6, 0, 0, 0, time.UTC),
			EnclosureURL: "https://cdn.example.com/hoops/102.mp3",
		},
		{
			// Unparseable pubDate falls back to now.
			GUID:         "hoops-bonus-7",
			Title:        "Bonus: mailbag answers",
			PublishedAt:  fixedNow,
			EnclosureURL: "https://cdn.example.com/hoops/bonus-7.mp3",
		},
		{
			// No enclosure at all.
			GUID:        "hoops-note-1",
			Title:       "Programming note",
			PublishedAt: time.Date(2024, 3, 1, 6, 0, 0, 0, time.UTC),
		},
	}

	if diff := cmp.Diff(want, items); diff != "" {
		t.Errorf("items mismatch (-want +got):\n%s", diff)
	}
}

func TestFetchYouTube(t *testing.T) {
	xml := loadFixture(t, "../../testdata/youtube.xml")

	f := New(&mockTransport{body: xml, statusCode: 200})
	items, err := f.Fetch(context.Background(), "https://www.youtube.com/feeds/videos.xml?channel_id=UCabc123")
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}

	if len(items) != 2 {
		t.Fatalf("got %d items, want 2", len(items))
	}
	if items[0].VideoID != "dQw4w9WgXcQ" {
		t.Errorf("video id = %q, want dQw4w9WgXcQ", items[0].VideoID)
	}
	if items[0].GUID != "yt:video:dQw4w9WgXcQ" {
		t.Errorf("guid = %q, want yt:video:dQw4w9WgXcQ", items[0].GUID)
	}
	wantPub := time.Date(2024, 3, 4, 18, 30, 0, 0, time.UTC)
	if !items[0].PublishedAt.Equal(wantPub) {
		t.Errorf("published = %v, want %v", items[0].PublishedAt, wantPub)
	}
}

func TestFetchErrors(t *testing.T) {
	tests := []struct {
		name      string
		transport *mockTransport
	}{
		{
			name:      "http error status",
			transport: &mockTransport{body: "not found", statusCode: 404},
		},
		{
			name:      "network error",
			transport: &mockTransport{err: io.ErrUnexpectedEOF},
		},
		{
			name:      "invalid xml",
			transport: &mockTransport{body: "not xml at all", statusCode: 200},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := New(tt.transport)
			if _, err := f.Fetch(context.Background(), "https://example.com/rss"); err == nil {
				t.Error("expected an error")
			}
		})
	}
}

func TestItemGUIDFallback(t *testing.T) {
	entry := &gofeed.Item{Title: "untitled"}
	got := ItemGUID(entry)
	if got == "" {
		t.Fatal("guid must never be empty")
	}
	if got != ItemGUID(entry) {
		t.Error("fallback guid must be stable")
	}
}
