// Package storage provides interfaces and types for memory storage backends.
//
// It defines the Store interface that all storage implementations must satisfy,
// along with the persisted record types (Memory, FrontalCortex) and the
// retention policy that governs eviction.
package storage

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
)

// SchemaVersion is the current version written to persisted records.
//
// Loaders skip records carrying a newer version instead of failing the
// read path, so a rollback never corrupts the conversation flow.
const SchemaVersion = 1

// MemoryType classifies what kind of knowledge a memory holds.
type MemoryType string

const (
	// TypeFact is factual information ("User lives in Denver").
	TypeFact MemoryType = "fact"

	// TypePersonal is a personal detail about the user.
	TypePersonal MemoryType = "personal"

	// TypePreference is an expressed preference ("prefers happy endings").
	TypePreference MemoryType = "preference"

	// TypeExperience is a past experience ("went to the park").
	TypeExperience MemoryType = "experience"

	// TypeGoal is a goal or aspiration ("wants to learn piano").
	TypeGoal MemoryType = "goal"

	// TypeRelationship is information about a relationship ("has a sister named Sarah").
	TypeRelationship MemoryType = "relationship"

	// TypeInterest is an interest or hobby.
	TypeInterest MemoryType = "interest"

	// TypeLearning is something the user is currently learning.
	TypeLearning MemoryType = "learning"

	// TypeEmotion is an emotional state or reaction.
	TypeEmotion MemoryType = "emotion"

	// TypeStory is a story or narrative told by or to the user.
	TypeStory MemoryType = "story"

	// TypeAchievement is an accomplishment.
	TypeAchievement MemoryType = "achievement"

	// TypeProblem is a problem or challenge the user mentioned.
	TypeProblem MemoryType = "problem"

	// TypeQuestion is a question the user asked.
	TypeQuestion MemoryType = "question"

	// TypeSkill is a known ability ("can draw well").
	TypeSkill MemoryType = "skill"
)

// MemoryTypes lists every memory type in declaration order.
var MemoryTypes = []MemoryType{
	TypeFact, TypePersonal, TypePreference, TypeExperience, TypeGoal,
	TypeRelationship, TypeInterest, TypeLearning, TypeEmotion, TypeStory,
	TypeAchievement, TypeProblem, TypeQuestion, TypeSkill,
}

// Sentiment is the coarse emotional polarity attached to a memory.
type Sentiment string

const (
	SentimentPositive Sentiment = "positive"
	SentimentNegative Sentiment = "negative"
	SentimentNeutral  Sentiment = "neutral"
	SentimentMixed    Sentiment = "mixed"
)

// EmotionalContext captures the emotional signal attached to a memory.
type EmotionalContext struct {
	// Dominant is the strongest emotion detected (e.g. "joy", "fear").
	Dominant string `json:"dominant,omitempty"`

	// Intensity is how strongly the emotion was expressed (0.0-1.0).
	Intensity float64 `json:"intensity,omitempty"`

	// Scores holds per-emotion scores (0.0-1.0 each).
	Scores map[string]float64 `json:"scores,omitempty"`
}

// Memory is a single typed, timestamped observation distilled from
// conversation.
//
// This type is defined in the storage package so that the extraction and
// cortex packages can share it without depending on core (which would
// create an import cycle).
type Memory struct {
	// ID is the unique identifier of the memory.
	ID string `json:"id"`

	// OwnerID identifies the user the memory belongs to.
	OwnerID string `json:"owner_id"`

	// Content is the text content of the memory.
	Content string `json:"content"`

	// Type classifies the memory (fact, preference, goal, ...).
	Type MemoryType `json:"type"`

	// Importance is how important the memory is (0.0-1.0).
	Importance float64 `json:"importance"`

	// CreatedAt is when the memory was created.
	CreatedAt time.Time `json:"created_at"`

	// LastAccessedAt is when the memory last contributed to a prompt
	// context (nil if never accessed).
	LastAccessedAt *time.Time `json:"last_accessed_at,omitempty"`

	// AccessCount counts how many times the memory was retrieved.
	AccessCount int `json:"access_count"`

	// Topics are the main topics the memory relates to.
	Topics []string `json:"topics,omitempty"`

	// Entities are people, places, and things mentioned, in order.
	Entities []string `json:"entities,omitempty"`

	// RelatedIDs links to other memories about the same subject.
	RelatedIDs []string `json:"related_ids,omitempty"`

	// SourceConversationID identifies the conversation the memory was
	// extracted from.
	SourceConversationID string `json:"source_conversation_id,omitempty"`

	// Sentiment is the coarse polarity of the memory.
	Sentiment Sentiment `json:"sentiment,omitempty"`

	// Emotional holds the detailed emotional context.
	Emotional EmotionalContext `json:"emotional_context,omitempty"`

	// Pinned memories are exempt from automatic eviction.
	Pinned bool `json:"pinned,omitempty"`

	// ExpiresAt is the derived expiry instant (nil = never expires).
	ExpiresAt *time.Time `json:"expires_at,omitempty"`

	// Version is the schema version the record was written with.
	Version int `json:"schema_version"`
}

// Clamp forces importance and all emotion scores into [0,1].
//
// Stores call this before persisting so the range invariant holds
// regardless of what an extraction capability produced.
func (m *Memory) Clamp() {
	m.Importance = clamp01(m.Importance)
	m.Emotional.Intensity = clamp01(m.Emotional.Intensity)
	for k, v := range m.Emotional.Scores {
		m.Emotional.Scores[k] = clamp01(v)
	}
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

// Age returns how old the memory is at the given instant.
func (m *Memory) Age(now time.Time) time.Duration {
	return now.Sub(m.CreatedAt)
}

// FrontalCortex is the consolidated long-term profile derived from all of
// an owner's memories.
//
// It is fully replaced on every rebuild; it is never merged incrementally,
// so it can always be regenerated from the memory set.
type FrontalCortex struct {
	// OwnerID identifies the user the profile describes.
	OwnerID string `json:"owner_id"`

	// CoreFacts maps memory id to a fact about the user.
	CoreFacts map[string]string `json:"core_facts"`

	// Preferences maps memory id to an expressed preference.
	Preferences map[string]string `json:"preferences"`

	// Relationships maps an entity name to what is known about the
	// relationship. Later memories overwrite earlier ones.
	Relationships map[string]string `json:"relationships"`

	// Goals lists the user's stated goals.
	Goals []string `json:"goals"`

	// Skills lists the user's known abilities.
	Skills []string `json:"skills"`

	// Interests lists topics seen at least twice, most frequent first.
	Interests []string `json:"interests"`

	// EmotionalProfile summarizes the user's emotional patterns.
	EmotionalProfile EmotionalProfile `json:"emotional_profile"`

	// ConversationPatterns summarizes how the user converses.
	ConversationPatterns ConversationPatterns `json:"conversation_patterns"`

	// LastUpdated is when the profile was last rebuilt.
	LastUpdated time.Time `json:"last_updated"`

	// Version is the schema version the record was written with.
	Version int `json:"schema_version"`
}

// EmotionalProfile tracks dominant emotions and what triggers them.
type EmotionalProfile struct {
	// DominantEmotions is ordered by frequency, most common first.
	DominantEmotions []Sentiment `json:"dominant_emotions"`

	// EmotionalTriggers maps a topic to the sentiment it provoked.
	EmotionalTriggers map[string]Sentiment `json:"emotional_triggers"`
}

// ConversationPatterns summarizes conversational habits.
type ConversationPatterns struct {
	// CommonTopics maps a topic to how often it appeared.
	CommonTopics map[string]int `json:"common_topics"`

	// AverageConversationLength is memories per distinct conversation.
	AverageConversationLength int `json:"average_conversation_length"`

	// QuestionTypes lists the interrogatives the user reaches for
	// (why, how, what, when, where, who).
	QuestionTypes []string `json:"question_types"`
}

// Store defines the interface for memory storage backends.
//
// All storage implementations (SQLite, PostgreSQL, MySQL) must implement
// this interface. Writers for the same owner are expected to be
// serialized by the caller; the store itself is last-write-wins.
type Store interface {
	// Save persists the given memories, assigning ids to records that
	// lack one. Saving a record whose id already exists replaces it, so
	// re-running an extraction batch never duplicates memories.
	Save(ctx context.Context, memories []*Memory) error

	// Load returns all memories for an owner. Individual records that
	// fail to decode (or carry a newer schema version) are skipped; an
	// error is returned only when the backend itself fails.
	Load(ctx context.Context, ownerID string) ([]*Memory, error)

	// Cleanup applies the retention policy to an owner's memories and
	// returns how many were evicted.
	Cleanup(ctx context.Context, ownerID string, policy *RetentionPolicy) (int, error)

	// RankedContext returns up to limit memories matching the keywords,
	// rendered as a deterministic text block for prompt injection.
	RankedContext(ctx context.Context, ownerID string, keywords []string, limit int) (string, error)

	// SaveCortex fully overwrites the owner's consolidated profile.
	SaveCortex(ctx context.Context, cortex *FrontalCortex) error

	// LoadCortex returns the owner's profile, or nil if none exists or
	// the stored record cannot be decoded.
	LoadCortex(ctx context.Context, ownerID string) (*FrontalCortex, error)

	// Close closes the store and releases resources.
	Close() error
}

// EnsureIDs assigns a generated id to every memory that lacks one.
func EnsureIDs(node *snowflake.Node, memories []*Memory) {
	for _, m := range memories {
		if m.ID == "" {
			m.ID = node.Generate().String()
		}
	}
}
