package core

import "github.com/companionlabs/cortexmem-go/pkg/storage"

// toCoreMemory converts a storage record to the public Memory type.
func toCoreMemory(m *storage.Memory) *Memory {
	return &Memory{
		ID:                   m.ID,
		OwnerID:              m.OwnerID,
		Content:              m.Content,
		Type:                 m.Type,
		Importance:           m.Importance,
		CreatedAt:            m.CreatedAt,
		Topics:               m.Topics,
		Entities:             m.Entities,
		Sentiment:            m.Sentiment,
		SourceConversationID: m.SourceConversationID,
		Pinned:               m.Pinned,
	}
}

// toCoreMemories converts a slice of storage records.
func toCoreMemories(memories []*storage.Memory) []*Memory {
	out := make([]*Memory, len(memories))
	for i, m := range memories {
		out[i] = toCoreMemory(m)
	}
	return out
}
