// Package transcribe turns episode audio into timed transcript segments
// using a Whisper-compatible transcription API.
package transcribe

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/sashabaranov/go-openai"

	"topicbot/internal/fault"
	"topicbot/internal/model"
)

type apiClient interface {
	CreateTranscription(ctx context.Context, request openai.AudioRequest) (openai.AudioResponse, error)
}

// Whisper transcribes audio through the OpenAI audio endpoint. Pointing the
// client at a different base URL covers self-hosted whisper servers that
// speak the same API.
type Whisper struct {
	client apiClient
	model  string
}

// New creates a Whisper transcriber.
func New(client *openai.Client, model string) *Whisper {
	if model == "" {
		model = openai.Whisper1
	}
	return &Whisper{client: client, model: model}
}

// Transcribe sends audio for transcription and returns the full text plus
// ordered timed segments. Errors are fault-tagged: rate limits and server
// errors are transient, everything the API rejects outright is permanent.
func (w *Whisper) Transcribe(ctx context.Context, audio []byte, filename string) (string, []model.Segment, error) {
	resp, err := w.client.CreateTranscription(ctx, openai.AudioRequest{
		Model:    w.model,
		Reader:   bytes.NewReader(audio),
		FilePath: filename,
		Format:   openai.AudioResponseFormatVerboseJSON,
	})
	if err != nil {
		return "", nil, classifyAPIError(fmt.Errorf("create transcription: %w", err))
	}

	segments := make([]model.Segment, 0, len(resp.Segments))
	for _, seg := range resp.Segments {
		segments = append(segments, model.Segment{
			Start: secondsToDuration(seg.Start),
			End:   secondsToDuration(seg.End),
			Text:  seg.Text,
		})
	}
	return resp.Text, segments, nil
}

// classifyAPIError maps an OpenAI client error onto the retry taxonomy.
func classifyAPIError(err error) error {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		if apiErr.HTTPStatusCode == http.StatusTooManyRequests || apiErr.HTTPStatusCode >= 500 {
			return fault.Transient(err)
		}
		return fault.Permanent(err)
	}
	// No structured API error means the request never got a response.
	return fault.Transient(err)
}

func secondsToDuration(s float64) time.Duration {
	return time.Duration(s * float64(time.Second)).Round(time.Millisecond)
}
