// Package keyword locates the earliest transcript window that mentions any
// configured keyword.
package keyword

import (
	"fmt"
	"strings"
	"time"

	"topicbot/internal/model"
)

const (
	// leadIn is rewound before the first matching segment so the window
	// catches the start of the sentence.
	leadIn = 10 * time.Second
	// followSegments bounds the window after the first hit, roughly two to
	// three minutes of speech.
	followSegments = 30
)

// Window is a contiguous transcript span around the earliest keyword hit.
type Window struct {
	Start   time.Duration
	End     time.Duration
	Snippet string
}

// Find returns the earliest window whose text contains any keyword,
// case-insensitively. Returns ok=false when no segment matches.
func Find(segments []model.Segment, keywords []string) (Window, bool) {
	if len(segments) == 0 || len(keywords) == 0 {
		return Window{}, false
	}

	first := -1
	for i, seg := range segments {
		if matches(seg.Text, keywords) {
			first = i
			break
		}
	}
	if first < 0 {
		return Window{}, false
	}

	start := segments[first].Start - leadIn
	if start < 0 {
		start = 0
	}
	start = start.Truncate(time.Second)

	last := first + followSegments
	if last >= len(segments) {
		last = len(segments) - 1
	}
	end := segments[last].End.Truncate(time.Second)

	var parts []string
	for _, seg := range segments {
		if seg.Start >= start && seg.End <= end {
			parts = append(parts, seg.Text)
		}
	}

	return Window{Start: start, End: end, Snippet: strings.Join(parts, " ")}, true
}

func matches(text string, keywords []string) bool {
	low := strings.ToLower(text)
	for _, k := range keywords {
		if k != "" && strings.Contains(low, strings.ToLower(k)) {
			return true
		}
	}
	return false
}

// FormatOffset renders a transcript offset as mm:ss for post headlines.
func FormatOffset(d time.Duration) string {
	total := int(d / time.Second)
	return fmt.Sprintf("%02d:%02d", total/60, total%60)
}
