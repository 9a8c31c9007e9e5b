package storage

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

var testNow = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func mem(id string, typ MemoryType, importance float64, age time.Duration) *Memory {
	return &Memory{
		ID:         id,
		OwnerID:    "owner-1",
		Content:    "content " + id,
		Type:       typ,
		Importance: importance,
		CreatedAt:  testNow.Add(-age),
	}
}

func TestDefaultRetentionPolicyWindows(t *testing.T) {
	p := DefaultRetentionPolicy()

	// Every memory type has an explicit window.
	for _, typ := range MemoryTypes {
		_, ok := p.RetentionDays[typ]
		assert.True(t, ok, "missing window for %s", typ)
	}

	assert.Equal(t, 30, p.Window(TypeEmotion))
	assert.Equal(t, -1, p.Window(TypePreference))
	assert.Equal(t, -1, p.Window("no-such-type"))
	assert.Equal(t, 0.3, p.MinImportanceToRetain)
	assert.Equal(t, 10000, p.MaxMemoriesPerOwner)
	assert.True(t, p.AutoCleanupEnabled)
}

func TestEvictionEligible(t *testing.T) {
	p := DefaultRetentionPolicy()

	tests := []struct {
		name string
		m    *Memory
		want bool
	}{
		{"aged out, low importance", mem("a", TypeEmotion, 0.1, 31*24*time.Hour), true},
		{"within window", mem("b", TypeEmotion, 0.1, 29*24*time.Hour), false},
		{"important enough to keep", mem("c", TypeEmotion, 0.5, 31*24*time.Hour), false},
		{"never-expiring type", mem("d", TypePreference, 0.1, 400*24*time.Hour), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, p.EvictionEligible(tt.m, testNow))
		})
	}

	pinned := mem("e", TypeEmotion, 0.1, 31*24*time.Hour)
	pinned.Pinned = true
	assert.False(t, p.EvictionEligible(pinned, testNow), "pinned memories never expire")
}

func TestExpiresAt(t *testing.T) {
	p := DefaultRetentionPolicy()

	m := mem("a", TypeEmotion, 0.5, 0)
	expires := p.ExpiresAt(m)
	assert.NotNil(t, expires)
	assert.Equal(t, m.CreatedAt.Add(30*24*time.Hour), *expires)

	assert.Nil(t, p.ExpiresAt(mem("b", TypeSkill, 0.5, 0)))
}

func TestPlanExpiry(t *testing.T) {
	p := DefaultRetentionPolicy()

	memories := []*Memory{
		mem("old-weak", TypeEmotion, 0.1, 31*24*time.Hour),
		mem("old-strong", TypeEmotion, 0.8, 31*24*time.Hour),
		mem("fresh", TypeEmotion, 0.1, time.Hour),
	}
	assert.Equal(t, []string{"old-weak"}, p.Plan(memories, testNow))
}

func TestPlanExpiryDisabled(t *testing.T) {
	p := DefaultRetentionPolicy()
	p.AutoCleanupEnabled = false

	memories := []*Memory{
		mem("old-weak", TypeEmotion, 0.1, 31*24*time.Hour),
	}
	assert.Empty(t, p.Plan(memories, testNow))
}

func TestPlanCapacityEviction(t *testing.T) {
	p := DefaultRetentionPolicy()
	p.MaxMemoriesPerOwner = 2

	memories := []*Memory{
		mem("keep-high", TypeFact, 0.9, time.Hour),
		mem("evict-low", TypeFact, 0.2, time.Hour),
		mem("keep-mid", TypeFact, 0.5, time.Hour),
	}
	assert.Equal(t, []string{"evict-low"}, p.Plan(memories, testNow))
}

func TestPlanCapacityOldestFirstAmongEqualImportance(t *testing.T) {
	p := DefaultRetentionPolicy()
	p.MaxMemoriesPerOwner = 2

	memories := []*Memory{
		mem("newer", TypeFact, 0.5, time.Hour),
		mem("oldest", TypeFact, 0.5, 72*time.Hour),
		mem("middle", TypeFact, 0.5, 24*time.Hour),
	}
	assert.Equal(t, []string{"oldest"}, p.Plan(memories, testNow))
}

func TestPlanCapacitySkipsPinned(t *testing.T) {
	p := DefaultRetentionPolicy()
	p.MaxMemoriesPerOwner = 1

	pinned := mem("pinned-low", TypeFact, 0.1, time.Hour)
	pinned.Pinned = true
	memories := []*Memory{
		pinned,
		mem("unpinned-mid", TypeFact, 0.5, time.Hour),
		mem("unpinned-high", TypeFact, 0.9, time.Hour),
	}

	// Pinned counts toward the cap but only unpinned ones are evicted.
	assert.Equal(t, []string{"unpinned-mid", "unpinned-high"}, p.Plan(memories, testNow))
}
