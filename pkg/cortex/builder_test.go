package cortex

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/companionlabs/cortexmem-go/pkg/storage"
)

var buildNow = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func typed(id string, typ storage.MemoryType, content string) *storage.Memory {
	return &storage.Memory{
		ID:        id,
		OwnerID:   "owner-1",
		Content:   content,
		Type:      typ,
		CreatedAt: buildNow,
	}
}

func TestBuildEmpty(t *testing.T) {
	c := Build("owner-1", nil, buildNow)

	assert.Equal(t, "owner-1", c.OwnerID)
	assert.Empty(t, c.CoreFacts)
	assert.Empty(t, c.Interests)
	assert.Zero(t, c.ConversationPatterns.AverageConversationLength)
	assert.Equal(t, storage.SchemaVersion, c.Version)
}

func TestBuildCoreFactsStripSubject(t *testing.T) {
	memories := []*storage.Memory{
		typed("m1", storage.TypeFact, "User lives in Denver"),
		typed("m2", storage.TypeFact, "The sky is blue"),
	}
	c := Build("owner-1", memories, buildNow)

	require.Len(t, c.CoreFacts, 1, "facts not about the user are dropped")
	assert.Equal(t, "lives in Denver", c.CoreFacts["m1"])
}

func TestBuildPreferencesKeyedByID(t *testing.T) {
	memories := []*storage.Memory{
		typed("m1", storage.TypePreference, "prefers happy endings"),
		typed("m2", storage.TypePreference, "prefers happy endings"),
	}
	c := Build("owner-1", memories, buildNow)

	// No content dedup: one entry per memory.
	assert.Len(t, c.Preferences, 2)
	assert.Equal(t, "prefers happy endings", c.Preferences["m1"])
}

func TestBuildRelationshipsLastWriteWins(t *testing.T) {
	first := typed("m1", storage.TypeRelationship, "Sarah is my sister")
	first.Entities = []string{"Sarah"}
	second := typed("m2", storage.TypeRelationship, "Sarah moved to Denver")
	second.Entities = []string{"Sarah"}
	noEntity := typed("m3", storage.TypeRelationship, "someone I met")

	c := Build("owner-1", []*storage.Memory{first, second, noEntity}, buildNow)

	require.Len(t, c.Relationships, 1)
	assert.Equal(t, "Sarah moved to Denver", c.Relationships["Sarah"])
}

func TestBuildGoalsAndSkills(t *testing.T) {
	memories := []*storage.Memory{
		typed("m1", storage.TypeGoal, "wants to learn piano"),
		typed("m2", storage.TypeSkill, "can draw well"),
		typed("m3", storage.TypeGoal, "wants to be an astronaut"),
	}
	c := Build("owner-1", memories, buildNow)

	assert.Equal(t, []string{"wants to learn piano", "wants to be an astronaut"}, c.Goals)
	assert.Equal(t, []string{"can draw well"}, c.Skills)
}

func TestBuildInterestsNeedTwoMentions(t *testing.T) {
	a := typed("m1", storage.TypeFact, "User saw a T-Rex")
	a.Topics = []string{"dinosaurs", "museums"}
	b := typed("m2", storage.TypeStory, "told a dino story")
	b.Topics = []string{"dinosaurs"}
	d := typed("m3", storage.TypeExperience, "went swimming")
	d.Topics = []string{"swimming", "dinosaurs"}

	c := Build("owner-1", []*storage.Memory{a, b, d}, buildNow)

	assert.Equal(t, []string{"dinosaurs"}, c.Interests)
	assert.Equal(t, 3, c.ConversationPatterns.CommonTopics["dinosaurs"])
	assert.Equal(t, 1, c.ConversationPatterns.CommonTopics["museums"])
}

func TestBuildEmotionalProfile(t *testing.T) {
	sad := typed("m1", storage.TypeEmotion, "was sad about bedtime")
	sad.Sentiment = storage.SentimentNegative
	sad.Topics = []string{"bedtime"}
	happy := typed("m2", storage.TypeEmotion, "happy about the park")
	happy.Sentiment = storage.SentimentPositive
	happy.Topics = []string{"park"}
	alsoSad := typed("m3", storage.TypeEmotion, "sad again")
	alsoSad.Sentiment = storage.SentimentNegative

	c := Build("owner-1", []*storage.Memory{sad, happy, alsoSad}, buildNow)

	require.NotEmpty(t, c.EmotionalProfile.DominantEmotions)
	assert.Equal(t, storage.SentimentNegative, c.EmotionalProfile.DominantEmotions[0])
	assert.Equal(t, storage.SentimentNegative, c.EmotionalProfile.EmotionalTriggers["bedtime"])
	assert.Equal(t, storage.SentimentPositive, c.EmotionalProfile.EmotionalTriggers["park"])
}

func TestBuildQuestionTypes(t *testing.T) {
	memories := []*storage.Memory{
		typed("m1", storage.TypeQuestion, "why is the sky blue"),
		typed("m2", storage.TypeQuestion, "how do planes fly and where do they land"),
	}
	c := Build("owner-1", memories, buildNow)

	assert.Equal(t, []string{"why", "how", "where"}, c.ConversationPatterns.QuestionTypes)
}

func TestBuildAverageConversationLength(t *testing.T) {
	a := typed("m1", storage.TypeFact, "User has a dog")
	a.SourceConversationID = "conv-1"
	b := typed("m2", storage.TypeFact, "User has a cat")
	b.SourceConversationID = "conv-1"
	d := typed("m3", storage.TypeFact, "User has a fish")
	d.SourceConversationID = "conv-2"

	c := Build("owner-1", []*storage.Memory{a, b, d}, buildNow)
	assert.Equal(t, 1, c.ConversationPatterns.AverageConversationLength)

	// No conversation ids at all: guarded division.
	c = Build("owner-1", []*storage.Memory{typed("m4", storage.TypeFact, "User is here")}, buildNow)
	assert.Zero(t, c.ConversationPatterns.AverageConversationLength)
}

func TestBuildIsIdempotent(t *testing.T) {
	a := typed("m1", storage.TypeFact, "User saw a T-Rex")
	a.Topics = []string{"dinosaurs"}
	b := typed("m2", storage.TypePreference, "loves dino nuggets")
	b.Topics = []string{"dinosaurs"}

	first := Build("owner-1", []*storage.Memory{a, b}, buildNow)
	second := Build("owner-1", []*storage.Memory{a, b}, buildNow)
	assert.Equal(t, first, second)
}

func TestContextForAIRendering(t *testing.T) {
	c := Build("owner-1", []*storage.Memory{
		typed("m1", storage.TypeFact, "User lives in Denver"),
		typed("m2", storage.TypeGoal, "wants to learn piano"),
	}, buildNow)

	block := ContextForAI(c)
	assert.Contains(t, block, "## User Profile")
	assert.Contains(t, block, "**Core Facts:**\n- lives in Denver")
	assert.Contains(t, block, "**Goals:**\n- wants to learn piano")
}

func TestContextForAIEmpty(t *testing.T) {
	assert.Equal(t, "", ContextForAI(nil))
	assert.Equal(t, "", ContextForAI(Build("owner-1", nil, buildNow)))
}
