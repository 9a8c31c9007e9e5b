package storage

import (
	"sort"
	"time"
)

// RetentionPolicy governs how long memories of each type are kept.
//
// A memory becomes eviction-eligible only when all of the following hold:
//   - its type's retention window is >= 0 (a window of -1 means never expires)
//   - its age exceeds that window
//   - its importance is below MinImportanceToRetain
//   - it is not pinned
//
// Independently of expiry, an owner's collection is capped at
// MaxMemoriesPerOwner; the excess is evicted lowest-importance first,
// oldest first among equal importance. Pinned memories count toward the
// cap but are never selected for eviction.
type RetentionPolicy struct {
	// RetentionDays maps each memory type to its window in days.
	// -1 means memories of that type never expire.
	RetentionDays map[MemoryType]int `json:"retention_days"`

	// MinImportanceToRetain protects memories at or above this
	// importance from expiry-based eviction.
	MinImportanceToRetain float64 `json:"min_importance_to_retain"`

	// MaxMemoriesPerOwner caps the collection size per owner.
	// 0 disables the cap.
	MaxMemoriesPerOwner int `json:"max_memories_per_owner"`

	// AutoCleanupEnabled gates expiry-based eviction during Cleanup.
	AutoCleanupEnabled bool `json:"auto_cleanup_enabled"`
}

// DefaultRetentionPolicy returns the stock policy.
//
// Windows follow the original product defaults: identity-level knowledge
// (personal details, preferences, relationships, achievements, skills)
// never expires, transient signals (emotions, questions) age out in a
// month, everything else sits in between.
func DefaultRetentionPolicy() *RetentionPolicy {
	return &RetentionPolicy{
		RetentionDays: map[MemoryType]int{
			TypeFact:         365,
			TypePersonal:     -1,
			TypePreference:   -1,
			TypeExperience:   180,
			TypeGoal:         90,
			TypeRelationship: -1,
			TypeInterest:     180,
			TypeLearning:     90,
			TypeEmotion:      30,
			TypeStory:        180,
			TypeAchievement:  -1,
			TypeProblem:      60,
			TypeQuestion:     30,
			TypeSkill:        -1,
		},
		MinImportanceToRetain: 0.3,
		MaxMemoriesPerOwner:   10000,
		AutoCleanupEnabled:    true,
	}
}

// Window returns the retention window for the given type.
// Unknown types never expire.
func (p *RetentionPolicy) Window(t MemoryType) int {
	if days, ok := p.RetentionDays[t]; ok {
		return days
	}
	return -1
}

// ExpiresAt derives the expiry instant for a memory, or nil if the
// memory's type never expires.
func (p *RetentionPolicy) ExpiresAt(m *Memory) *time.Time {
	days := p.Window(m.Type)
	if days < 0 {
		return nil
	}
	t := m.CreatedAt.Add(time.Duration(days) * 24 * time.Hour)
	return &t
}

// EvictionEligible reports whether a memory has aged out under the
// policy at the given instant.
func (p *RetentionPolicy) EvictionEligible(m *Memory, now time.Time) bool {
	if m.Pinned {
		return false
	}
	days := p.Window(m.Type)
	if days < 0 {
		return false
	}
	if m.Age(now) <= time.Duration(days)*24*time.Hour {
		return false
	}
	return m.Importance < p.MinImportanceToRetain
}

// Plan computes the ids to evict from an owner's memory set.
//
// Expired memories are selected first (only when AutoCleanupEnabled);
// then, if the survivors still exceed MaxMemoriesPerOwner, unpinned
// memories are evicted by ascending importance, oldest first among equal
// importance, until the collection fits the cap.
func (p *RetentionPolicy) Plan(memories []*Memory, now time.Time) []string {
	evict := make(map[string]bool)

	if p.AutoCleanupEnabled {
		for _, m := range memories {
			if p.EvictionEligible(m, now) {
				evict[m.ID] = true
			}
		}
	}

	if p.MaxMemoriesPerOwner > 0 {
		var survivors []*Memory
		for _, m := range memories {
			if !evict[m.ID] {
				survivors = append(survivors, m)
			}
		}

		excess := len(survivors) - p.MaxMemoriesPerOwner
		if excess > 0 {
			candidates := make([]*Memory, 0, len(survivors))
			for _, m := range survivors {
				if !m.Pinned {
					candidates = append(candidates, m)
				}
			}
			sort.SliceStable(candidates, func(i, j int) bool {
				if candidates[i].Importance != candidates[j].Importance {
					return candidates[i].Importance < candidates[j].Importance
				}
				return candidates[i].CreatedAt.Before(candidates[j].CreatedAt)
			})
			if excess > len(candidates) {
				excess = len(candidates)
			}
			for _, m := range candidates[:excess] {
				evict[m.ID] = true
			}
		}
	}

	ids := make([]string, 0, len(evict))
	for _, m := range memories {
		if evict[m.ID] {
			ids = append(ids, m.ID)
		}
	}
	return ids
}
