package extraction

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/companionlabs/cortexmem-go/pkg/llm"
	"github.com/companionlabs/cortexmem-go/pkg/storage"
)

// extractionSystemPrompt instructs the model to return structured JSON
// and nothing else.
const extractionSystemPrompt = `You analyze conversations between a user and a companion and extract key information about the user.

Extract the following information in JSON format:
{
  "facts": ["User stated facts about themselves"],
  "preferences": ["User expressed preferences"],
  "emotions": ["User expressed emotions"],
  "topics": ["Main topics discussed"],
  "entities": ["People, places, things mentioned"],
  "questions": ["Questions the user asked"],
  "goals": ["Goals or aspirations mentioned"]
}

Only include information that is clearly stated. Return ONLY the JSON, nothing else.`

// extractionPayload mirrors the JSON shape the model is asked for.
type extractionPayload struct {
	Facts       []string `json:"facts"`
	Preferences []string `json:"preferences"`
	Emotions    []string `json:"emotions"`
	Topics      []string `json:"topics"`
	Entities    []string `json:"entities"`
	Questions   []string `json:"questions"`
	Goals       []string `json:"goals"`
}

// LLMExtractor classifies turns by prompting a language model.
type LLMExtractor struct {
	provider llm.Provider
}

// NewLLMExtractor creates an extractor backed by the given provider.
func NewLLMExtractor(provider llm.Provider) *LLMExtractor {
	return &LLMExtractor{provider: provider}
}

// Extract prompts the model with the batch transcript and converts the
// structured reply into typed memory drafts. Topics and entities from
// the reply are attached to every draft from the batch.
func (e *LLMExtractor) Extract(ctx context.Context, turns []Turn, startingOffset int) ([]*storage.Memory, error) {
	if len(turns) == 0 {
		return nil, nil
	}

	response, err := e.provider.GenerateWithMessages(ctx, []llm.Message{
		{Role: "system", Content: extractionSystemPrompt},
		{Role: "user", Content: renderTranscript(turns)},
	})
	if err != nil {
		return nil, fmt.Errorf("llm extract: %w", err)
	}

	var payload extractionPayload
	if err := json.Unmarshal([]byte(stripCodeFences(response)), &payload); err != nil {
		return nil, fmt.Errorf("llm extract: parse response: %w", err)
	}

	created := batchTimestamp(turns, time.Now())
	var drafts []*storage.Memory

	add := func(content string, typ storage.MemoryType, importance float64, sentiment storage.Sentiment) {
		content = strings.TrimSpace(content)
		if content == "" {
			return
		}
		drafts = append(drafts, &storage.Memory{
			Content:    content,
			Type:       typ,
			Importance: importance,
			CreatedAt:  created,
			Topics:     payload.Topics,
			Entities:   payload.Entities,
			Sentiment:  sentiment,
		})
	}

	for _, fact := range payload.Facts {
		add(fact, storage.TypeFact, importanceFact, "")
	}
	for _, pref := range payload.Preferences {
		add(pref, storage.TypePreference, importancePreference, "")
	}
	for _, emotion := range payload.Emotions {
		add(emotion, storage.TypeEmotion, importanceEmotion, DetectSentiment(emotion))
	}
	for _, goal := range payload.Goals {
		add(goal, storage.TypeGoal, importanceGoal, "")
	}
	for _, question := range payload.Questions {
		add(question, storage.TypeQuestion, importanceQuestion, "")
	}

	return drafts, nil
}

// renderTranscript formats turns as the exchange block the prompt expects.
func renderTranscript(turns []Turn) string {
	var b strings.Builder
	b.WriteString("Analyze this conversation and extract key information:\n\n")
	for _, t := range turns {
		if t.IsUser() {
			b.WriteString("User: ")
		} else {
			b.WriteString("Companion: ")
		}
		b.WriteString(t.Content)
		b.WriteString("\n")
	}
	return b.String()
}

// stripCodeFences removes a surrounding markdown code fence, which some
// models add despite being told not to.
func stripCodeFences(s string) string {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "```") {
		s = strings.TrimPrefix(s, "```json")
		s = strings.TrimPrefix(s, "```")
		s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	}
	return strings.TrimSpace(s)
}
