package core

import (
	"time"

	"github.com/companionlabs/cortexmem-go/pkg/storage"
)

// Memory is the engine's public view of one remembered observation.
//
// It mirrors storage.Memory so callers never import the storage package
// directly; convert.go translates between the two.
type Memory struct {
	// ID is the unique identifier of the memory.
	ID string `json:"id"`

	// OwnerID identifies the user the memory belongs to.
	OwnerID string `json:"owner_id"`

	// Content is the text content of the memory.
	Content string `json:"content"`

	// Type classifies the memory (fact, preference, goal, ...).
	Type storage.MemoryType `json:"type"`

	// Importance is how important the memory is (0.0-1.0).
	Importance float64 `json:"importance"`

	// CreatedAt is when the memory was created.
	CreatedAt time.Time `json:"created_at"`

	// Topics are the main topics the memory relates to.
	Topics []string `json:"topics,omitempty"`

	// Entities are people, places, and things mentioned.
	Entities []string `json:"entities,omitempty"`

	// Sentiment is the coarse polarity of the memory.
	Sentiment storage.Sentiment `json:"sentiment,omitempty"`

	// SourceConversationID identifies the originating conversation.
	SourceConversationID string `json:"source_conversation_id,omitempty"`

	// Pinned memories are exempt from automatic eviction.
	Pinned bool `json:"pinned,omitempty"`
}
