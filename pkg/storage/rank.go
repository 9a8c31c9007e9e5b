package storage

import (
	"fmt"
	"math"
	"sort"
	"strings"
	"time"
)

// DefaultContextMinImportance is the importance floor for memories that
// may enter a prompt context.
const DefaultContextMinImportance = 0.5

// recencyHalfDays controls the exponential recency decay. A memory from
// 30 days ago scores about 0.37 on recency.
const recencyHalfDays = 30.0

// ScoredMemory pairs a memory with its retrieval scores.
type ScoredMemory struct {
	Memory    *Memory
	Relevance float64
	Recency   float64
}

// Combined blends relevance and recency, weighted toward relevance.
func (s ScoredMemory) Combined() float64 {
	return 0.7*s.Relevance + 0.3*s.Recency
}

// Rank scores an owner's memories against the given keywords and returns
// the top matches, at most limit of them.
//
// Relevance counts keyword hits weighted by where they land: a content
// substring match counts 3, a topic match 2, an entity match 1, then the
// total is normalized by the best possible score. No keywords means full
// relevance for every memory. Recency decays exponentially over 30 days.
// Memories below minImportance are excluded entirely. Ties on the
// combined score break by importance (desc), then recency (desc).
func Rank(memories []*Memory, keywords []string, limit int, minImportance float64, now time.Time) []ScoredMemory {
	lowered := make([]string, 0, len(keywords))
	for _, kw := range keywords {
		kw = strings.ToLower(strings.TrimSpace(kw))
		if kw != "" {
			lowered = append(lowered, kw)
		}
	}

	scored := make([]ScoredMemory, 0, len(memories))
	for _, m := range memories {
		if m.Importance < minImportance {
			continue
		}
		days := now.Sub(m.CreatedAt).Hours() / 24
		if days < 0 {
			days = 0
		}
		scored = append(scored, ScoredMemory{
			Memory:    m,
			Relevance: relevance(m, lowered),
			Recency:   math.Exp(-days / recencyHalfDays),
		})
	}

	sort.SliceStable(scored, func(i, j int) bool {
		ci, cj := scored[i].Combined(), scored[j].Combined()
		if ci != cj {
			return ci > cj
		}
		if scored[i].Memory.Importance != scored[j].Memory.Importance {
			return scored[i].Memory.Importance > scored[j].Memory.Importance
		}
		return scored[i].Memory.CreatedAt.After(scored[j].Memory.CreatedAt)
	})

	if limit > 0 && len(scored) > limit {
		scored = scored[:limit]
	}
	return scored
}

func relevance(m *Memory, keywords []string) float64 {
	if len(keywords) == 0 {
		return 1.0
	}

	content := strings.ToLower(m.Content)
	topics := make(map[string]bool, len(m.Topics))
	for _, t := range m.Topics {
		topics[strings.ToLower(t)] = true
	}
	entities := make(map[string]bool, len(m.Entities))
	for _, e := range m.Entities {
		entities[strings.ToLower(e)] = true
	}

	matches := 0
	for _, kw := range keywords {
		if strings.Contains(content, kw) {
			matches += 3
		}
		if topics[kw] {
			matches += 2
		}
		if entities[kw] {
			matches += 1
		}
	}
	return float64(matches) / float64(len(keywords)*3)
}

// RenderContext renders scored memories as a deterministic text block
// suitable for prompt injection. Returns "" when there is nothing to
// render.
func RenderContext(scored []ScoredMemory, now time.Time) string {
	if len(scored) == 0 {
		return ""
	}

	var b strings.Builder
	b.WriteString("## Relevant Past Conversations\n\n")
	for i, s := range scored {
		m := s.Memory
		fmt.Fprintf(&b, "%d. [%s] %s\n", i+1, m.Type, m.Content)
		if len(m.Topics) > 0 {
			fmt.Fprintf(&b, "   Topics: %s\n", strings.Join(m.Topics, ", "))
		}
		fmt.Fprintf(&b, "   (%s)\n\n", relativeTime(m.CreatedAt, now))
	}
	return b.String()
}

func relativeTime(t, now time.Time) string {
	d := now.Sub(t)
	switch {
	case d < time.Minute:
		return "just now"
	case d < time.Hour:
		return fmt.Sprintf("%d minutes ago", int(d.Minutes()))
	case d < 24*time.Hour:
		return fmt.Sprintf("%d hours ago", int(d.Hours()))
	case d < 7*24*time.Hour:
		return fmt.Sprintf("%d days ago", int(d.Hours()/24))
	case d < 30*24*time.Hour:
		return fmt.Sprintf("%d weeks ago", int(d.Hours()/24/7))
	case d < 365*24*time.Hour:
		return fmt.Sprintf("%d months ago", int(d.Hours()/24/30))
	default:
		return fmt.Sprintf("%d years ago", int(d.Hours()/24/365))
	}
}
