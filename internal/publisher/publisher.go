// Package publisher posts finished threads to the internal web endpoint.
package publisher

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
)

// HTTPClient is the interface for performing HTTP requests.
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// Thread is the two-part post payload: a headline with the listen link and
// a separate summary.
type Thread struct {
	FirstText  string `json:"firstText"`
	SecondText string `json:"secondText"`
}

// Publisher posts threads to the web service's internal endpoint.
type Publisher struct {
	client  HTTPClient
	baseURL string
	token   string
}

// New creates a Publisher for the given base URL and internal token.
func New(client HTTPClient, baseURL, token string) *Publisher {
	return &Publisher{
		client:  client,
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   token,
	}
}

// PostThread publishes a thread. A non-200 response is an error; the
// caller decides whether that blocks anything (it does not: the pipeline
// logs it and still records the item as handled).
func (p *Publisher) PostThread(ctx context.Context, first, second string) error {
	payload, err := json.Marshal(Thread{FirstText: first, SecondText: second})
	if err != nil {
		return fmt.Errorf("encode thread: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+"/post-thread", bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Internal-Token", p.token)

	resp, err := p.client.Do(req)
	if err != nil {
		return fmt.Errorf("post thread: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return fmt.Errorf("post thread: unexpected status %d: %s", resp.StatusCode, body)
	}
	return nil
}
