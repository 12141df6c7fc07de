// Package media acquires episode audio over HTTP.
package media

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/sethvargo/go-retry"

	"topicbot/internal/fault"
)

// Default download bounds. Podcast episodes run tens of megabytes; anything
// past maxBytes is rejected rather than silently truncated.
const (
	defaultMaxBytes   = 256 * 1024 * 1024
	defaultMaxRetries = 2
	retryBase         = 2 * time.Second
)

// HTTPClient is the interface for performing HTTP requests.
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// Downloader fetches audio enclosures with bounded in-cycle retries for
// transient failures. Failures that survive the retries are tagged with the
// fault package so the pipeline can defer or skip accordingly.
type Downloader struct {
	client     HTTPClient
	maxBytes   int64
	maxRetries uint64
	log        *slog.Logger
}

// NewDownloader creates a Downloader with the given HTTP client.
func NewDownloader(client HTTPClient, log *slog.Logger) *Downloader {
	return &Downloader{
		client:     client,
		maxBytes:   defaultMaxBytes,
		maxRetries: defaultMaxRetries,
		log:        log,
	}
}

// Fetch downloads the content at url.
func (d *Downloader) Fetch(ctx context.Context, url string) ([]byte, error) {
	var body []byte

	backoff := retry.WithMaxRetries(d.maxRetries, retry.NewExponential(retryBase))
	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		var attemptErr error
		body, attemptErr = d.fetchOnce(ctx, url)
		if attemptErr != nil && fault.IsTransient(attemptErr) {
			d.log.Debug("retrying download", "url", url, "error", attemptErr)
			return retry.RetryableError(attemptErr)
		}
		return attemptErr
	})
	if err != nil {
		return nil, err
	}
	return body, nil
}

func (d *Downloader) fetchOnce(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fault.Permanent(fmt.Errorf("create request: %w", err))
	}

	resp, err := d.client.Do(req)
	if err != nil {
		return nil, fault.Transient(fmt.Errorf("http get: %w", err))
	}
	defer func() { _ = resp.Body.Close() }()

	switch {
	case resp.StatusCode == http.StatusOK:
	case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500:
		return nil, fault.Transientf("unexpected status %d", resp.StatusCode)
	default:
		return nil, fault.Permanentf("unexpected status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, d.maxBytes+1))
	if err != nil {
		return nil, fault.Transient(fmt.Errorf("read body: %w", err))
	}
	if int64(len(body)) > d.maxBytes {
		return nil, fault.Permanentf("content exceeds %d byte limit", d.maxBytes)
	}
	return body, nil
}
