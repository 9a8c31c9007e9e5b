package extraction

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/companionlabs/cortexmem-go/pkg/storage"
)

func userTurn(content string) Turn {
	return Turn{Role: "user", Content: content, Timestamp: time.Now()}
}

func TestRuleExtractorPreference(t *testing.T) {
	e := NewRuleExtractor()

	drafts, err := e.Extract(context.Background(), []Turn{
		userTurn("I love dinosaurs and space"),
	}, 0)
	require.NoError(t, err)
	require.Len(t, drafts, 1)

	assert.Equal(t, storage.TypePreference, drafts[0].Type)
	assert.Equal(t, "I love dinosaurs and space", drafts[0].Content)
	assert.ElementsMatch(t, []string{"dinosaurs", "space"}, drafts[0].Topics)
	assert.Equal(t, 0.7, drafts[0].Importance)
}

func TestRuleExtractorEmotion(t *testing.T) {
	e := NewRuleExtractor()

	drafts, err := e.Extract(context.Background(), []Turn{
		userTurn("that made me really sad"),
	}, 0)
	require.NoError(t, err)
	require.Len(t, drafts, 1)

	assert.Equal(t, storage.TypeEmotion, drafts[0].Type)
	assert.Equal(t, storage.SentimentNegative, drafts[0].Sentiment)
}

func TestRuleExtractorGoal(t *testing.T) {
	e := NewRuleExtractor()

	drafts, err := e.Extract(context.Background(), []Turn{
		userTurn("i want to be an astronaut"),
	}, 0)
	require.NoError(t, err)
	require.Len(t, drafts, 1)

	assert.Equal(t, storage.TypeGoal, drafts[0].Type)
	assert.Equal(t, 0.8, drafts[0].Importance)
}

func TestRuleExtractorRelationship(t *testing.T) {
	e := NewRuleExtractor()

	drafts, err := e.Extract(context.Background(), []Turn{
		userTurn("my friend Sarah plays with me"),
	}, 0)
	require.NoError(t, err)
	require.Len(t, drafts, 1)

	assert.Equal(t, storage.TypeRelationship, drafts[0].Type)
	assert.Contains(t, drafts[0].Entities, "Sarah")
	assert.Equal(t, 0.9, drafts[0].Importance)
}

func TestRuleExtractorMultipleCategoriesPerTurn(t *testing.T) {
	e := NewRuleExtractor()

	drafts, err := e.Extract(context.Background(), []Turn{
		userTurn("I like my friend Leo but i was sad today"),
	}, 0)
	require.NoError(t, err)

	types := make(map[storage.MemoryType]bool)
	for _, d := range drafts {
		types[d.Type] = true
	}
	assert.True(t, types[storage.TypePreference])
	assert.True(t, types[storage.TypeEmotion])
	assert.True(t, types[storage.TypeRelationship])
}

func TestRuleExtractorIgnoresAssistantTurns(t *testing.T) {
	e := NewRuleExtractor()

	drafts, err := e.Extract(context.Background(), []Turn{
		{Role: "assistant", Content: "I love stories!", Timestamp: time.Now()},
	}, 0)
	require.NoError(t, err)
	assert.Empty(t, drafts)
}

func TestDetectSentiment(t *testing.T) {
	tests := []struct {
		text string
		want storage.Sentiment
	}{
		{"so happy and excited", storage.SentimentPositive},
		{"terrible and scared", storage.SentimentNegative},
		{"happy but also sad", storage.SentimentMixed},
		{"just a tuesday", storage.SentimentNeutral},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, DetectSentiment(tt.text), tt.text)
	}
}
