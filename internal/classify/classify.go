// Package classify asks a chat-completion model whether a transcript
// window is about the configured topic, and produces post summaries.
package classify

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/sashabaranov/go-openai"

	"topicbot/internal/model"
)

// broadPrefixLimit bounds how much transcript is sent for a broad-mode
// summary. Full game broadcasts can run past an hour of speech.
const broadPrefixLimit = 50000

const classifyPrompt = `Decide if the following podcast snippet is about the configured topic: %s.
Respond with JSON fields: relevant (boolean), topic (short label), summary (neutral, at most %d characters).
Only mark relevant true if the snippet clearly refers to the topic.`

const summarizePrompt = `Summarize the following episode transcript in a neutral tone, at most %d characters. Respond with the summary text only.`

type apiClient interface {
	CreateChatCompletion(ctx context.Context, request openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error)
}

// Classifier wraps the chat-completion collaborator. It is treated as a
// pure function by the pipeline: no retries, and a failed call reads as a
// negative decision upstream.
type Classifier struct {
	client      apiClient
	model       string
	topic       string
	charLimit   int
	excludeNote string
}

// New creates a Classifier for the given topic. excludeNote, when set, is
// appended to prompts to steer the model away from known false positives.
func New(client *openai.Client, chatModel, topic string, charLimit int, excludeNote string) *Classifier {
	if chatModel == "" {
		chatModel = openai.GPT4oMini
	}
	return &Classifier{
		client:      client,
		model:       chatModel,
		topic:       topic,
		charLimit:   charLimit,
		excludeNote: excludeNote,
	}
}

// Classify decides whether a transcript window is about the topic.
func (c *Classifier) Classify(ctx context.Context, window string) (model.Classification, error) {
	prompt := fmt.Sprintf(classifyPrompt, c.topic, c.charLimit)
	if c.excludeNote != "" {
		prompt += "\nNote: " + c.excludeNote
	}

	resp, err := c.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: c.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: prompt},
			{Role: openai.ChatMessageRoleUser, Content: window},
		},
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
	})
	if err != nil {
		return model.Classification{}, fmt.Errorf("classify: %w", err)
	}
	if len(resp.Choices) == 0 {
		return model.Classification{}, fmt.Errorf("classify: empty response")
	}

	var out model.Classification
	if err := json.Unmarshal([]byte(resp.Choices[0].Message.Content), &out); err != nil {
		return model.Classification{}, fmt.Errorf("classify: decode response: %w", err)
	}
	out.Topic = strings.TrimSpace(out.Topic)
	out.Summary = strings.TrimSpace(out.Summary)
	return out, nil
}

// Summarize produces a plain summary of a transcript for broad-mode feeds.
// Only a bounded prefix of the transcript is sent.
func (c *Classifier) Summarize(ctx context.Context, transcript string) (string, error) {
	transcript = prefix(transcript, broadPrefixLimit)

	resp, err := c.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: c.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: fmt.Sprintf(summarizePrompt, c.charLimit)},
			{Role: openai.ChatMessageRoleUser, Content: transcript},
		},
	})
	if err != nil {
		return "", fmt.Errorf("summarize: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("summarize: empty response")
	}
	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}

// prefix truncates s to at most n bytes without splitting a multi-byte
// character, so the result is always valid UTF-8.
func prefix(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n]
}
