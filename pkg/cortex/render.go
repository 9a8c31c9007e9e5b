package cortex

import (
	"sort"
	"strings"

	"github.com/companionlabs/cortexmem-go/pkg/storage"
)

// Caps keeping the rendered profile bounded regardless of how many
// memories back it.
const (
	maxRenderedFacts       = 10
	maxRenderedGoals       = 5
	maxRenderedPeople      = 10
	maxRenderedPreferences = 10
	maxRenderedInterests   = 10
)

// ContextForAI renders the profile as a compact deterministic text block
// for prompt injection. Returns "" for a nil or empty profile.
func ContextForAI(cortex *storage.FrontalCortex) string {
	if cortex == nil {
		return ""
	}

	var b strings.Builder

	if len(cortex.CoreFacts) > 0 {
		b.WriteString("**Core Facts:**\n")
		for _, fact := range cappedValues(cortex.CoreFacts, maxRenderedFacts) {
			b.WriteString("- " + fact + "\n")
		}
		b.WriteString("\n")
	}

	if len(cortex.Interests) > 0 {
		interests := cortex.Interests
		if len(interests) > maxRenderedInterests {
			interests = interests[:maxRenderedInterests]
		}
		b.WriteString("**Interests:** " + strings.Join(interests, ", ") + "\n\n")
	}

	if len(cortex.Goals) > 0 {
		goals := cortex.Goals
		if len(goals) > maxRenderedGoals {
			goals = goals[:maxRenderedGoals]
		}
		b.WriteString("**Goals:**\n")
		for _, goal := range goals {
			b.WriteString("- " + goal + "\n")
		}
		b.WriteString("\n")
	}

	if len(cortex.Relationships) > 0 {
		b.WriteString("**Important People:**\n")
		names := sortedKeys(cortex.Relationships)
		if len(names) > maxRenderedPeople {
			names = names[:maxRenderedPeople]
		}
		for _, name := range names {
			b.WriteString("- " + name + ": " + cortex.Relationships[name] + "\n")
		}
		b.WriteString("\n")
	}

	if len(cortex.Preferences) > 0 {
		b.WriteString("**Preferences:**\n")
		for _, pref := range cappedValues(cortex.Preferences, maxRenderedPreferences) {
			b.WriteString("- " + pref + "\n")
		}
		b.WriteString("\n")
	}

	if b.Len() == 0 {
		return ""
	}
	return "## User Profile\n\n" + b.String()
}

// cappedValues returns up to max values from the map, ordered by key so
// the output never depends on map iteration order.
func cappedValues(m map[string]string, max int) []string {
	keys := sortedKeys(m)
	if len(keys) > max {
		keys = keys[:max]
	}
	values := make([]string, 0, len(keys))
	for _, k := range keys {
		values = append(values, m[k])
	}
	return values
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
