package transcribe

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/sashabaranov/go-openai"

	"topicbot/internal/fault"
	"topicbot/internal/model"
)

type mockAPI struct {
	resp openai.AudioResponse
	err  error
	got  openai.AudioRequest
}

func (m *mockAPI) CreateTranscription(_ context.Context, req openai.AudioRequest) (openai.AudioResponse, error) {
	m.got = req
	return m.resp, m.err
}

func TestTranscribe(t *testing.T) {
	var resp openai.AudioResponse
	raw := `{
		"text": "hello world again",
		"segments": [
			{"start": 0, "end": 2.5, "text": "hello world"},
			{"start": 2.5, "end": 4.25, "text": "again"}
		]
	}`
	if err := json.Unmarshal([]byte(raw), &resp); err != nil {
		t.Fatalf("build response: %v", err)
	}
	api := &mockAPI{resp: resp}
	w := &Whisper{client: api, model: openai.Whisper1}

	text, segments, err := w.Transcribe(context.Background(), []byte("audio"), "ep.mp3")
	if err != nil {
		t.Fatalf("transcribe: %v", err)
	}
	if text != "hello world again" {
		t.Errorf("text = %q", text)
	}

	want := []model.Segment{
		{Start: 0, End: 2500 * time.Millisecond, Text: "hello world"},
		{Start: 2500 * time.Millisecond, End: 4250 * time.Millisecond, Text: "again"},
	}
	if diff := cmp.Diff(want, segments); diff != "" {
		t.Errorf("segments mismatch (-want +got):\n%s", diff)
	}

	if api.got.Format != openai.AudioResponseFormatVerboseJSON {
		t.Errorf("request format = %q, want verbose json", api.got.Format)
	}
	if api.got.FilePath != "ep.mp3" {
		t.Errorf("request file path = %q", api.got.FilePath)
	}
}

func TestTranscribeErrorTagging(t *testing.T) {
	tests := []struct {
		name          string
		err           error
		wantTransient bool
	}{
		{
			name:          "rate limited",
			err:           &openai.APIError{HTTPStatusCode: 429, Message: "rate limit"},
			wantTransient: true,
		},
		{
			name:          "server error",
			err:           &openai.APIError{HTTPStatusCode: 500, Message: "boom"},
			wantTransient: true,
		},
		{
			name: "bad request is permanent",
			err:  &openai.APIError{HTTPStatusCode: 400, Message: "unsupported audio"},
		},
		{
			name:          "transport failure",
			err:           context.DeadlineExceeded,
			wantTransient: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := &Whisper{client: &mockAPI{err: tt.err}, model: openai.Whisper1}
			_, _, err := w.Transcribe(context.Background(), []byte("audio"), "ep.mp3")
			if err == nil {
				t.Fatal("expected an error")
			}
			if got := fault.IsTransient(err); got != tt.wantTransient {
				t.Errorf("IsTransient = %v, want %v", got, tt.wantTransient)
			}
		})
	}
}
