// Package cortex consolidates an owner's memories into a long-term
// profile.
//
// Build is a pure function over the full memory set: the profile is
// rebuilt from scratch after every extraction run and never merged
// incrementally, so it can always be regenerated and needs no migration
// logic of its own.
package cortex

import (
	"sort"
	"strings"
	"time"

	"github.com/companionlabs/cortexmem-go/pkg/storage"
)

// questionVocabulary is the fixed set of interrogatives scanned for in
// question memories.
var questionVocabulary = []string{"why", "how", "what", "when", "where", "who"}

// Build consolidates memories into a fresh FrontalCortex.
//
// Fold semantics, all deterministic:
//   - core facts: fact memories whose content mentions "user", keyed by
//     memory id, with the leading subject phrase stripped
//   - preferences: every preference memory, keyed by memory id
//   - relationships: first entity of each relationship memory mapped to
//     its content; later memories overwrite earlier ones
//   - goals, skills: contents of goal and skill memories in input order
//   - interests: topics seen at least twice, most frequent first
//   - emotional profile: sentiment histogram over emotion memories and a
//     topic-to-sentiment trigger map, later entries winning
//   - conversation patterns: topic tally over all memories, average
//     memories per distinct conversation, interrogatives used
//
// Frequency ties break alphabetically so rebuilds are stable.
func Build(ownerID string, memories []*storage.Memory, now time.Time) *storage.FrontalCortex {
	cortex := &storage.FrontalCortex{
		OwnerID:       ownerID,
		CoreFacts:     make(map[string]string),
		Preferences:   make(map[string]string),
		Relationships: make(map[string]string),
		Goals:         []string{},
		Skills:        []string{},
		Interests:     []string{},
		EmotionalProfile: storage.EmotionalProfile{
			DominantEmotions:  []storage.Sentiment{},
			EmotionalTriggers: make(map[string]storage.Sentiment),
		},
		ConversationPatterns: storage.ConversationPatterns{
			CommonTopics:  make(map[string]int),
			QuestionTypes: []string{},
		},
		LastUpdated: now,
		Version:     storage.SchemaVersion,
	}

	topicCounts := make(map[string]int)
	sentimentCounts := make(map[storage.Sentiment]int)
	conversations := make(map[string]bool)
	questionTypes := make(map[string]bool)

	for _, m := range memories {
		for _, topic := range m.Topics {
			topicCounts[topic]++
		}
		if m.SourceConversationID != "" {
			conversations[m.SourceConversationID] = true
		}

		switch m.Type {
		case storage.TypeFact:
			if strings.Contains(strings.ToLower(m.Content), "user") {
				cortex.CoreFacts[m.ID] = stripSubject(m.Content)
			}
		case storage.TypePreference:
			cortex.Preferences[m.ID] = m.Content
		case storage.TypeRelationship:
			if len(m.Entities) > 0 {
				cortex.Relationships[m.Entities[0]] = m.Content
			}
		case storage.TypeGoal:
			cortex.Goals = append(cortex.Goals, m.Content)
		case storage.TypeSkill:
			cortex.Skills = append(cortex.Skills, m.Content)
		case storage.TypeEmotion:
			sentiment := m.Sentiment
			if sentiment == "" {
				sentiment = storage.SentimentNeutral
			}
			sentimentCounts[sentiment]++
			for _, topic := range m.Topics {
				cortex.EmotionalProfile.EmotionalTriggers[topic] = sentiment
			}
		case storage.TypeQuestion:
			lower := strings.ToLower(m.Content)
			for _, q := range questionVocabulary {
				if strings.Contains(lower, q) {
					questionTypes[q] = true
				}
			}
		}
	}

	cortex.Interests = frequentTopics(topicCounts, 2)
	cortex.EmotionalProfile.DominantEmotions = rankedSentiments(sentimentCounts)
	cortex.ConversationPatterns.CommonTopics = topicCounts
	if len(conversations) > 0 {
		cortex.ConversationPatterns.AverageConversationLength = len(memories) / len(conversations)
	}
	for _, q := range questionVocabulary {
		if questionTypes[q] {
			cortex.ConversationPatterns.QuestionTypes = append(cortex.ConversationPatterns.QuestionTypes, q)
		}
	}

	return cortex
}

// stripSubject drops the leading "User " subject phrase from a fact.
func stripSubject(content string) string {
	trimmed := strings.TrimPrefix(content, "User ")
	trimmed = strings.TrimPrefix(trimmed, "user ")
	return trimmed
}

// frequentTopics returns topics with at least minCount occurrences,
// most frequent first, ties alphabetical.
func frequentTopics(counts map[string]int, minCount int) []string {
	topics := []string{}
	for topic, count := range counts {
		if count >= minCount {
			topics = append(topics, topic)
		}
	}
	sort.Slice(topics, func(i, j int) bool {
		if counts[topics[i]] != counts[topics[j]] {
			return counts[topics[i]] > counts[topics[j]]
		}
		return topics[i] < topics[j]
	})
	return topics
}

// rankedSentiments orders sentiments by frequency descending, ties
// alphabetical.
func rankedSentiments(counts map[storage.Sentiment]int) []storage.Sentiment {
	sentiments := []storage.Sentiment{}
	for s := range counts {
		sentiments = append(sentiments, s)
	}
	sort.Slice(sentiments, func(i, j int) bool {
		if counts[sentiments[i]] != counts[sentiments[j]] {
			return counts[sentiments[i]] > counts[sentiments[j]]
		}
		return sentiments[i] < sentiments[j]
	})
	return sentiments
}
