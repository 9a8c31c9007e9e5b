package extraction

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/companionlabs/cortexmem-go/pkg/llm"
	"github.com/companionlabs/cortexmem-go/pkg/storage"
)

type fakeProvider struct {
	response string
	err      error
}

func (f *fakeProvider) Generate(ctx context.Context, prompt string, opts ...llm.GenerateOption) (string, error) {
	return f.response, f.err
}

func (f *fakeProvider) GenerateWithMessages(ctx context.Context, messages []llm.Message, opts ...llm.GenerateOption) (string, error) {
	return f.response, f.err
}

func (f *fakeProvider) Close() error { return nil }

const sampleResponse = `{
	"facts": ["User lives in Denver"],
	"preferences": ["User loves dinosaurs"],
	"emotions": ["happy about the museum trip"],
	"topics": ["dinosaurs", "museums"],
	"entities": ["Denver"],
	"questions": ["why did dinosaurs go extinct"],
	"goals": ["wants to be a paleontologist"]
}`

func TestLLMExtractorParsesResponse(t *testing.T) {
	e := NewLLMExtractor(&fakeProvider{response: sampleResponse})

	drafts, err := e.Extract(context.Background(), []Turn{userTurn("hi")}, 0)
	require.NoError(t, err)
	require.Len(t, drafts, 5)

	byType := make(map[storage.MemoryType]*storage.Memory)
	for _, d := range drafts {
		byType[d.Type] = d
	}

	assert.Equal(t, "User lives in Denver", byType[storage.TypeFact].Content)
	assert.Equal(t, 0.7, byType[storage.TypeFact].Importance)
	assert.Equal(t, 0.8, byType[storage.TypePreference].Importance)
	assert.Equal(t, 0.9, byType[storage.TypeGoal].Importance)
	assert.Equal(t, 0.5, byType[storage.TypeQuestion].Importance)
	assert.Equal(t, storage.SentimentPositive, byType[storage.TypeEmotion].Sentiment)

	// Topics and entities attach to every draft.
	for _, d := range drafts {
		assert.Equal(t, []string{"dinosaurs", "museums"}, d.Topics)
		assert.Equal(t, []string{"Denver"}, d.Entities)
	}
}

func TestLLMExtractorStripsCodeFences(t *testing.T) {
	e := NewLLMExtractor(&fakeProvider{response: "```json\n" + sampleResponse + "\n```"})

	drafts, err := e.Extract(context.Background(), []Turn{userTurn("hi")}, 0)
	require.NoError(t, err)
	assert.Len(t, drafts, 5)
}

func TestLLMExtractorProviderError(t *testing.T) {
	e := NewLLMExtractor(&fakeProvider{err: errors.New("rate limited")})

	_, err := e.Extract(context.Background(), []Turn{userTurn("hi")}, 0)
	assert.ErrorContains(t, err, "rate limited")
}

func TestLLMExtractorMalformedResponse(t *testing.T) {
	e := NewLLMExtractor(&fakeProvider{response: "sorry, I cannot help with that"})

	_, err := e.Extract(context.Background(), []Turn{userTurn("hi")}, 0)
	assert.Error(t, err)
}

func TestLLMExtractorEmptyBatch(t *testing.T) {
	e := NewLLMExtractor(&fakeProvider{response: sampleResponse})

	drafts, err := e.Extract(context.Background(), nil, 0)
	require.NoError(t, err)
	assert.Empty(t, drafts)
}
