package extraction

import (
	"context"
	"strings"
	"time"
	"unicode"

	"github.com/companionlabs/cortexmem-go/pkg/storage"
)

var (
	preferencePhrases = []string{"i like", "i love", "i prefer"}
	goalPhrases       = []string{"i want to", "i need to", "i hope to"}

	emotionKeywords = []string{"sad", "happy", "angry", "excited", "scared", "worried", "frustrated"}

	relationshipPhrases = []string{"my mom", "my dad", "my sister", "my brother", "my friend"}

	// commonTopics are the only topics the rule extractor can tag.
	commonTopics = []string{
		"dinosaurs", "space", "animals", "music", "art", "reading", "games",
		"school", "friends", "family", "sports", "food", "nature",
	}
)

// Rule-path preference and goal drafts carry less importance than their
// model-extracted counterparts: a phrase hit is weaker evidence than an
// extracted statement.
const (
	ruleImportancePreference = 0.7
	ruleImportanceGoal       = 0.8
)

// RuleExtractor is a deterministic fallback capability that needs no
// network. It catches the high-signal phrasings (preferences, emotions,
// goals, relationships) and misses everything subtler, which is the
// accepted tradeoff when the model is unreachable.
type RuleExtractor struct{}

// NewRuleExtractor creates the rule-based capability.
func NewRuleExtractor() *RuleExtractor {
	return &RuleExtractor{}
}

// Extract scans each user turn for known phrasings and emits one draft
// per matched category per turn. It never fails.
func (e *RuleExtractor) Extract(ctx context.Context, turns []Turn, startingOffset int) ([]*storage.Memory, error) {
	now := time.Now()
	var drafts []*storage.Memory

	for _, turn := range turns {
		if !turn.IsUser() || strings.TrimSpace(turn.Content) == "" {
			continue
		}
		lower := strings.ToLower(turn.Content)
		created := turn.Timestamp
		if created.IsZero() {
			created = now
		}

		if containsAny(lower, preferencePhrases) {
			drafts = append(drafts, &storage.Memory{
				Content:    turn.Content,
				Type:       storage.TypePreference,
				Importance: ruleImportancePreference,
				CreatedAt:  created,
				Topics:     matchTopics(lower),
			})
		}

		for _, kw := range emotionKeywords {
			if strings.Contains(lower, kw) {
				drafts = append(drafts, &storage.Memory{
					Content:    turn.Content,
					Type:       storage.TypeEmotion,
					Importance: importanceEmotion,
					CreatedAt:  created,
					Sentiment:  keywordSentiment(kw),
				})
				break
			}
		}

		if containsAny(lower, goalPhrases) {
			drafts = append(drafts, &storage.Memory{
				Content:    turn.Content,
				Type:       storage.TypeGoal,
				Importance: ruleImportanceGoal,
				CreatedAt:  created,
			})
		}

		if containsAny(lower, relationshipPhrases) {
			drafts = append(drafts, &storage.Memory{
				Content:    turn.Content,
				Type:       storage.TypeRelationship,
				Importance: importanceRelationship,
				CreatedAt:  created,
				Entities:   extractNames(turn.Content),
			})
		}
	}

	return drafts, nil
}

func containsAny(text string, phrases []string) bool {
	for _, p := range phrases {
		if strings.Contains(text, p) {
			return true
		}
	}
	return false
}

func keywordSentiment(keyword string) storage.Sentiment {
	switch keyword {
	case "happy", "excited":
		return storage.SentimentPositive
	case "sad", "angry", "scared", "worried", "frustrated":
		return storage.SentimentNegative
	default:
		return storage.SentimentNeutral
	}
}

func matchTopics(lower string) []string {
	var topics []string
	for _, t := range commonTopics {
		if strings.Contains(lower, t) {
			topics = append(topics, t)
		}
	}
	return topics
}

// extractNames picks capitalized words as candidate names.
func extractNames(text string) []string {
	var names []string
	for _, w := range strings.Fields(text) {
		runes := []rune(w)
		if len(runes) > 1 && unicode.IsUpper(runes[0]) {
			names = append(names, strings.Trim(w, ".,!?;:'\""))
		}
	}
	return names
}
