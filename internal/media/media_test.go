package media

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"testing"

	"topicbot/internal/fault"
)

type scriptedTransport struct {
	responses []response
	calls     int
}

type response struct {
	status int
	body   string
	err    error
}

func (s *scriptedTransport) Do(_ *http.Request) (*http.Response, error) {
	r := s.responses[s.calls]
	if s.calls < len(s.responses)-1 {
		s.calls++
	}
	if r.err != nil {
		return nil, r.err
	}
	return &http.Response{
		StatusCode: r.status,
		Body:       io.NopCloser(bytes.NewBufferString(r.body)),
	}, nil
}

func discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestDownloader(t *testing.T, transport *scriptedTransport) *Downloader {
	t.Helper()
	d := NewDownloader(transport, discard())
	d.maxRetries = 1
	return d
}

func TestFetchSuccess(t *testing.T) {
	d := newTestDownloader(t, &scriptedTransport{responses: []response{{status: 200, body: "audio-bytes"}}})
	got, err := d.Fetch(context.Background(), "https://cdn.example.com/ep.mp3")
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if string(got) != "audio-bytes" {
		t.Errorf("body = %q", got)
	}
}

func TestFetchRetriesTransient(t *testing.T) {
	transport := &scriptedTransport{responses: []response{
		{status: 503, body: "busy"},
		{status: 200, body: "audio-bytes"},
	}}
	d := newTestDownloader(t, transport)

	got, err := d.Fetch(context.Background(), "https://cdn.example.com/ep.mp3")
	if err != nil {
		t.Fatalf("fetch after retry: %v", err)
	}
	if string(got) != "audio-bytes" {
		t.Errorf("body = %q", got)
	}
	if transport.calls != 1 {
		t.Errorf("transport called %d extra times, want 1 retry", transport.calls)
	}
}

func TestFetchFailureTagging(t *testing.T) {
	tests := []struct {
		name          string
		responses     []response
		wantTransient bool
	}{
		{
			name:          "persistent 5xx stays transient",
			responses:     []response{{status: 502, body: "bad gateway"}},
			wantTransient: true,
		},
		{
			name:          "rate limit is transient",
			responses:     []response{{status: 429, body: "slow down"}},
			wantTransient: true,
		},
		{
			name:          "network error is transient",
			responses:     []response{{err: io.ErrUnexpectedEOF}},
			wantTransient: true,
		},
		{
			name:      "404 is permanent",
			responses: []response{{status: 404, body: "gone"}},
		},
		{
			name:      "410 is permanent",
			responses: []response{{status: 410, body: "gone"}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := newTestDownloader(t, &scriptedTransport{responses: tt.responses})
			_, err := d.Fetch(context.Background(), "https://cdn.example.com/ep.mp3")
			if err == nil {
				t.Fatal("expected an error")
			}
			if got := fault.IsTransient(err); got != tt.wantTransient {
				t.Errorf("IsTransient = %v, want %v (err: %v)", got, tt.wantTransient, err)
			}
		})
	}
}

func TestFetchSizeLimit(t *testing.T) {
	d := newTestDownloader(t, &scriptedTransport{responses: []response{
		{status: 200, body: strings.Repeat("x", 64)},
	}})
	d.maxBytes = 32

	_, err := d.Fetch(context.Background(), "https://cdn.example.com/ep.mp3")
	if err == nil {
		t.Fatal("expected an error for oversized content")
	}
	if !fault.IsPermanent(err) {
		t.Errorf("oversized content should be permanent, got %v", err)
	}
}
