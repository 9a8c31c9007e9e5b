// Package extraction turns raw conversation turns into typed memory
// drafts.
//
// The classification heuristic is pluggable through the Capability
// interface; the package ships an LLM-backed extractor and a rule-based
// fallback. The Batcher owns the batching boundary and the deterministic
// draft-id contract, so a retried batch never duplicates records.
package extraction

import (
	"context"
	"strings"
	"time"

	"github.com/companionlabs/cortexmem-go/pkg/storage"
)

// Turn is one raw conversation turn handed to an extractor.
type Turn struct {
	// Role is "user" or "assistant".
	Role string `json:"role"`

	// Content is the turn text.
	Content string `json:"content"`

	// Timestamp is when the turn happened.
	Timestamp time.Time `json:"timestamp"`
}

// IsUser reports whether the user authored the turn.
func (t Turn) IsUser() bool {
	return t.Role == "user"
}

// Capability classifies a batch of turns into memory drafts.
//
// Implementations return drafts without ids; the Batcher stamps
// deterministic ids, the owner, and the source conversation. The
// startingOffset identifies where the batch sits in the overall
// transcript, for implementations that want positional context.
type Capability interface {
	Extract(ctx context.Context, turns []Turn, startingOffset int) ([]*storage.Memory, error)
}

// Draft importance assigned per extracted category.
const (
	importanceFact         = 0.7
	importancePreference   = 0.8
	importanceEmotion      = 0.6
	importanceGoal         = 0.9
	importanceQuestion     = 0.5
	importanceRelationship = 0.9
)

// DetectSentiment derives coarse polarity from emotional wording.
func DetectSentiment(text string) storage.Sentiment {
	lower := strings.ToLower(text)
	positiveWords := []string{"happy", "excited", "love", "great", "wonderful", "amazing"}
	negativeWords := []string{"sad", "angry", "hate", "terrible", "awful", "scared"}

	positive, negative := 0, 0
	for _, w := range positiveWords {
		if strings.Contains(lower, w) {
			positive++
		}
	}
	for _, w := range negativeWords {
		if strings.Contains(lower, w) {
			negative++
		}
	}

	switch {
	case positive > negative:
		return storage.SentimentPositive
	case negative > positive:
		return storage.SentimentNegative
	case positive > 0 && negative > 0:
		return storage.SentimentMixed
	default:
		return storage.SentimentNeutral
	}
}

// batchTimestamp picks the draft timestamp for a batch: the first turn's
// timestamp, or now when turns carry none.
func batchTimestamp(turns []Turn, now time.Time) time.Time {
	for _, t := range turns {
		if !t.Timestamp.IsZero() {
			return t.Timestamp
		}
	}
	return now
}
