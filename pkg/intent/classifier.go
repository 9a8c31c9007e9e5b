// Package intent classifies what a user is trying to do in a conversation
// and tracks when that purpose drifts mid-session.
//
// Classification is keyword-based and fully deterministic: the same window
// of messages always yields the same intent and confidence. The Tracker
// wraps the classifier with per-session state and periodic rechecks.
package intent

import "strings"

// Intent is a conversational purpose category.
type Intent string

const (
	IntentPlay         Intent = "play"
	IntentLearn        Intent = "learn"
	IntentComfort      Intent = "comfort"
	IntentExplore      Intent = "explore"
	IntentSocializing  Intent = "socializing"
	IntentStorytelling Intent = "storytelling"
	IntentUnknown      Intent = "unknown"
)

// DisplayName returns a human-readable name for the intent, suitable for
// redirection suggestions.
func (i Intent) DisplayName() string {
	switch i {
	case IntentPlay:
		return "playing"
	case IntentLearn:
		return "learning"
	case IntentComfort:
		return "comfort"
	case IntentExplore:
		return "exploring"
	case IntentSocializing:
		return "chatting"
	case IntentStorytelling:
		return "storytelling"
	default:
		return "something new"
	}
}

// Message is a single conversation turn as seen by the classifier.
type Message struct {
	// Content is the message text.
	Content string

	// IsUser reports whether the user (not the assistant) authored it.
	IsUser bool
}

// Classification is the result of classifying a message window.
type Classification struct {
	// Intent is the detected purpose, IntentUnknown when the signal is
	// too weak.
	Intent Intent

	// Subject is the detected learning subject ("math", "science", ...),
	// set only for IntentLearn and only when a subject stands out.
	Subject string

	// Confidence is the winning score clamped to [0,1]. Always 0 for
	// IntentUnknown.
	Confidence float64
}

// ClassifierConfig carries the keyword sets the classifier scores with.
// Hosts can replace them wholesale, e.g. with localized sets.
type ClassifierConfig struct {
	// Keywords maps each scorable intent to its keyword list. Multi-word
	// entries match as substrings, single words match whole words.
	Keywords map[Intent][]string

	// Subjects maps a learning subject name to its keyword list, checked
	// in SubjectOrder.
	Subjects map[string][]string

	// SubjectOrder fixes the evaluation order of Subjects.
	SubjectOrder []string
}

// intentOrder fixes tie-breaking: when several intents share the maximum
// score, the earliest in this order wins.
var intentOrder = []Intent{
	IntentPlay, IntentLearn, IntentComfort, IntentExplore,
	IntentSocializing, IntentStorytelling,
}

// DefaultClassifierConfig returns the stock English keyword sets.
func DefaultClassifierConfig() *ClassifierConfig {
	return &ClassifierConfig{
		Keywords: map[Intent][]string{
			IntentPlay: {
				"play", "game", "fun", "silly", "joke", "laugh", "pretend", "imagine",
				"let's play", "wanna play", "can we play",
			},
			IntentLearn: {
				"learn", "teach", "show me", "how to", "what is", "why", "explain",
				"help me understand", "i want to know", "can you teach", "homework",
				"study", "practice", "lesson",
			},
			IntentComfort: {
				"sad", "scared", "worried", "upset", "lonely", "miss", "hurt", "cry",
				"afraid", "nervous", "anxious", "feel bad", "not good", "help me feel",
				"i need", "comfort me",
			},
			IntentExplore: {
				"what if", "curious", "wonder", "explore", "discover", "find out",
				"show me around", "let's look", "i wonder", "tell me about",
			},
			IntentSocializing: {
				"hi", "hello", "how are you", "what's up", "tell me about you",
				"let's talk", "chat", "friend", "buddy", "wanna hang out",
			},
			IntentStorytelling: {
				"story", "tell me a story", "once upon", "adventure", "tale",
				"read me", "storytime", "bedtime story", "make up a story",
			},
		},
		Subjects: map[string][]string{
			"math":    {"math", "addition", "subtraction", "numbers", "counting", "multiply", "divide"},
			"science": {"science", "experiment", "animals", "plants", "space", "earth", "nature"},
			"reading": {"reading", "letters", "words", "alphabet", "spelling", "book"},
			"art":     {"art", "drawing", "painting", "colors", "creative", "craft"},
			"social":  {"feelings", "emotions", "friends", "sharing", "kindness", "manners"},
		},
		SubjectOrder: []string{"math", "science", "reading", "art", "social"},
	}
}

// Classifier scores message windows against keyword sets.
type Classifier struct {
	cfg *ClassifierConfig
}

// NewClassifier creates a classifier. A nil config uses the defaults.
func NewClassifier(cfg *ClassifierConfig) *Classifier {
	if cfg == nil {
		cfg = DefaultClassifierConfig()
	}
	return &Classifier{cfg: cfg}
}

// Classify determines the dominant intent of a message window.
//
// Only user-authored messages are scored. Each intent scores 0.3 per
// distinct matched keyword (a keyword counts once no matter how often it
// occurs); comfort's score is weighted by 1.2 so emotional-safety signals
// win over superficially similar wording. If the best score is below 0.3
// the result is (Unknown, 0.0). Ties resolve in the fixed order Play,
// Learn, Comfort, Explore, Socializing, Storytelling.
//
// Classify never fails; empty input yields (Unknown, 0.0).
func (c *Classifier) Classify(messages []Message) Classification {
	var parts []string
	for _, m := range messages {
		if m.IsUser {
			parts = append(parts, strings.ToLower(m.Content))
		}
	}
	text := strings.Join(parts, " ")
	if strings.TrimSpace(text) == "" {
		return Classification{Intent: IntentUnknown}
	}

	words := wordSet(text)

	best := IntentUnknown
	bestScore := 0.0
	for _, in := range intentOrder {
		score := 0.3 * float64(countMatches(text, words, c.cfg.Keywords[in]))
		if in == IntentComfort {
			score *= 1.2
		}
		if score > bestScore {
			best = in
			bestScore = score
		}
	}

	if bestScore < 0.3 {
		return Classification{Intent: IntentUnknown}
	}

	result := Classification{Intent: best, Confidence: min1(bestScore)}
	if best == IntentLearn {
		result.Subject = c.detectSubject(text, words)
	}
	return result
}

// detectSubject returns the first subject with at least two distinct
// keyword matches, or "".
func (c *Classifier) detectSubject(text string, words map[string]bool) string {
	for _, subject := range c.cfg.SubjectOrder {
		if countMatches(text, words, c.cfg.Subjects[subject]) >= 2 {
			return subject
		}
	}
	return ""
}

// countMatches counts distinct matched keywords. Single words must appear
// as whole words; multi-word phrases match as substrings.
func countMatches(text string, words map[string]bool, keywords []string) int {
	matches := 0
	for _, kw := range keywords {
		if strings.ContainsRune(kw, ' ') {
			if strings.Contains(text, kw) {
				matches++
			}
		} else if words[kw] {
			matches++
		}
	}
	return matches
}

func wordSet(text string) map[string]bool {
	set := make(map[string]bool)
	for _, w := range strings.Fields(text) {
		set[strings.Trim(w, ".,!?;:'\"")] = true
	}
	return set
}

func min1(v float64) float64 {
	if v > 1 {
		return 1
	}
	return v
}
