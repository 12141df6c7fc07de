// Package model defines the domain types used across the application.
package model

import (
	"fmt"
	"time"
)

// Mode selects the downstream policy for a feed.
type Mode int

// Supported feed modes.
//
// ModeStrict only posts when a keyword hit is found in the transcript and
// the classifier confirms relevance. ModeBroad summarizes every new episode
// without keyword gating.
const (
	ModeStrict Mode = iota
	ModeBroad
)

func (m Mode) String() string {
	switch m {
	case ModeStrict:
		return "strict"
	case ModeBroad:
		return "broad"
	}
	return fmt.Sprintf("Mode(%d)", int(m))
}

// ParseMode converts a config string into a Mode.
func ParseMode(s string) (Mode, error) {
	switch s {
	case "strict":
		return ModeStrict, nil
	case "broad":
		return ModeBroad, nil
	}
	return 0, fmt.Errorf("unknown mode %q", s)
}

// Feed is one configured media feed. Feeds come from static configuration
// and are never created or mutated at runtime.
type Feed struct {
	URL    string
	Mode   Mode
	ShowID string // external show identifier used by the episode resolver
}

// Item is one unit of content from a feed, rebuilt on every poll and never
// persisted directly.
type Item struct {
	GUID         string
	Title        string
	PublishedAt  time.Time
	EnclosureURL string // audio locator, empty if the item has none
	VideoID      string // YouTube video id, empty for podcast items
}

// Segment is one timed span of a transcript.
type Segment struct {
	Start time.Duration
	End   time.Duration
	Text  string
}

// Classification is the AI relevance decision for a transcript window.
type Classification struct {
	Relevant bool   `json:"relevant"`
	Topic    string `json:"topic"`
	Summary  string `json:"summary"`
}

// Outcome is the terminal state of processing one item.
type Outcome int

const (
	// OutcomePosted means a thread was published and the item recorded.
	OutcomePosted Outcome = iota
	// OutcomeSkipped means the item was permanently handled without a post.
	OutcomeSkipped
	// OutcomeDeferred means a transient failure occurred; the item was not
	// recorded and will be retried on a later cycle.
	OutcomeDeferred
)

func (o Outcome) String() string {
	switch o {
	case OutcomePosted:
		return "posted"
	case OutcomeSkipped:
		return "skipped"
	case OutcomeDeferred:
		return "deferred"
	}
	return fmt.Sprintf("Outcome(%d)", int(o))
}
