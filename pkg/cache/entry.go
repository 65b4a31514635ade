package cache

import "time"

// DefaultPriority is the eviction resistance assigned to entries inserted without an explicit priority.
const DefaultPriority = 1

// Entry is a single cached item plus the metadata the engine needs to account for and evict it.
// The value is opaque to the engine; only its estimated byte size and type tag matter.
type Entry struct {
	Key         string    // Unique across the whole engine, not scoped per type.
	Value       any       // Opaque cached payload.
	Type        Type      // One of the five fixed content types.
	CreatedAt   time.Time // Set on insert, reset when the value is replaced.
	AccessedAt  time.Time // Last access time; drives LRU ordering.
	AccessCount int64     // Number of hits recorded against this entry.
	MemorySize  int64     // Estimated payload size in bytes; never negative.
	Priority    int       // Higher values resist eviction under score-based ranking.

	// seq is a store-assigned recency counter used to break last-access timestamp ties deterministically.
	// It is bumped on insert and on every touch.
	seq uint64
}

// Age returns how long ago the entry was created, relative to now.
func (e *Entry) Age(now time.Time) time.Duration {
	return now.Sub(e.CreatedAt)
}

// Idle returns how long ago the entry was last accessed, relative to now.
func (e *Entry) Idle(now time.Time) time.Duration {
	return now.Sub(e.AccessedAt)
}
