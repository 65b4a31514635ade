// The entry store is the single keyed collection behind the cache engine. There are no type-scoped sub-maps:
// per-type queries filter the one collection, and LRU ordering is re-derived by sorting on demand rather than
// maintained as a secondary index. Every method holds the store lock for its whole duration.

package cache

import (
	"slices"
	"sync"
	"time"

	"github.com/pagelight/doccache/pkg/utils"
)

// EntryStore is a thread-safe keyed collection of cache entries. It owns all entries exclusively; callers get
// value copies and mutate entries only through store methods, so all entry mutation happens under the store lock.
type EntryStore struct {
	mux         sync.Mutex
	entries     map[string]*Entry
	totalMemory int64  // Invariant: equals the sum of MemorySize over all live entries.
	seq         uint64 // Monotonic recency counter; breaks last-access ties in LRU sorts.
}

// NewEntryStore creates an empty entry store.
func NewEntryStore() *EntryStore {
	return &EntryStore{entries: make(map[string]*Entry)}
}

// Insert upserts the entry by key and always succeeds. Replacing an existing key first subtracts the old
// entry's size from the memory total, so the sum invariant holds across value replacement.
func (s *EntryStore) Insert(entry Entry) bool {
	if entry.MemorySize < 0 {
		utils.RaiseInvariant("store", "negative_entry_size",
			"Refusing to account a negative entry size.", "key", entry.Key, "size", entry.MemorySize)
		entry.MemorySize = 0
	}

	s.mux.Lock()
	defer s.mux.Unlock()

	if old, exists := s.entries[entry.Key]; exists {
		s.totalMemory -= old.MemorySize
	}
	s.seq++
	entry.seq = s.seq
	stored := entry
	s.entries[entry.Key] = &stored
	s.totalMemory += entry.MemorySize
	return true
}

// Get returns a copy of the entry for the key, if present.
func (s *EntryStore) Get(key string) (Entry, bool) {
	s.mux.Lock()
	defer s.mux.Unlock()

	entry, found := s.entries[key]
	if !found {
		return Entry{}, false
	}
	return *entry, true
}

// Touch records an access against the key: it refreshes the last-access timestamp, bumps the access counter
// and the recency sequence, and returns a copy of the updated entry.
func (s *EntryStore) Touch(key string) (Entry, bool) {
	s.mux.Lock()
	defer s.mux.Unlock()

	entry, found := s.entries[key]
	if !found {
		return Entry{}, false
	}
	s.seq++
	entry.seq = s.seq
	entry.AccessedAt = time.Now()
	entry.AccessCount++
	return *entry, true
}

// Contains reports whether the key is present.
func (s *EntryStore) Contains(key string) bool {
	s.mux.Lock()
	defer s.mux.Unlock()
	_, found := s.entries[key]
	return found
}

// Remove deletes the key and reports whether an entry existed.
func (s *EntryStore) Remove(key string) bool {
	_, removed := s.take(key)
	return removed
}

// take deletes the key and returns a copy of the removed entry, so eviction paths can account for the exact
// size that was actually freed.
func (s *EntryStore) take(key string) (Entry, bool) {
	s.mux.Lock()
	defer s.mux.Unlock()
	return s.removeLocked(key)
}

// removeLocked deletes the key while the store lock is already held.
func (s *EntryStore) removeLocked(key string) (Entry, bool) {
	entry, found := s.entries[key]
	if !found {
		return Entry{}, false
	}
	delete(s.entries, key)
	s.totalMemory -= entry.MemorySize
	if s.totalMemory < 0 {
		utils.RaiseInvariant("store", "negative_total_memory",
			"Memory accounting went negative after a removal.", "key", key, "total", s.totalMemory)
		s.totalMemory = 0
	}
	return *entry, true
}

// Clear removes all entries.
func (s *EntryStore) Clear() {
	s.mux.Lock()
	defer s.mux.Unlock()
	s.entries = make(map[string]*Entry)
	s.totalMemory = 0
}

// Keys returns a snapshot of all keys, in no particular order.
func (s *EntryStore) Keys() []string {
	s.mux.Lock()
	defer s.mux.Unlock()

	keys := make([]string, 0, len(s.entries))
	for key := range s.entries {
		keys = append(keys, key)
	}
	return keys
}

// EntriesByType returns an unordered snapshot of all entries carrying the given type tag.
func (s *EntryStore) EntriesByType(t Type) []Entry {
	s.mux.Lock()
	defer s.mux.Unlock()

	var entries []Entry
	for _, entry := range s.entries {
		if entry.Type == t {
			entries = append(entries, *entry)
		}
	}
	return entries
}

// EntriesByLRU returns a snapshot of all entries sorted ascending by last-access time, oldest first.
// Identical timestamps are ordered by the store's recency sequence; that ordering is stable within a single
// call but is not a documented guarantee across calls.
func (s *EntryStore) EntriesByLRU() []Entry {
	s.mux.Lock()
	defer s.mux.Unlock()
	return s.entriesByLRULocked()
}

func (s *EntryStore) entriesByLRULocked() []Entry {
	entries := make([]Entry, 0, len(s.entries))
	for _, entry := range s.entries {
		entries = append(entries, *entry)
	}
	slices.SortFunc(entries, compareByRecency)
	return entries
}

// compareByRecency orders entries ascending by last-access time, breaking timestamp ties by recency sequence.
func compareByRecency(a, b Entry) int {
	if c := a.AccessedAt.Compare(b.AccessedAt); c != 0 {
		return c
	}
	if a.seq < b.seq {
		return -1
	} else if a.seq > b.seq {
		return 1
	}
	return 0
}

// LeastRecentlyUsed returns a copy of the globally oldest entry by last-access time, if any.
func (s *EntryStore) LeastRecentlyUsed() (Entry, bool) {
	s.mux.Lock()
	defer s.mux.Unlock()

	var oldest *Entry
	for _, entry := range s.entries {
		if oldest == nil || compareByRecency(*entry, *oldest) < 0 {
			oldest = entry
		}
	}
	if oldest == nil {
		return Entry{}, false
	}
	return *oldest, true
}

// EntryCount returns the number of live entries.
func (s *EntryStore) EntryCount() int {
	s.mux.Lock()
	defer s.mux.Unlock()
	return len(s.entries)
}

// TotalMemoryUsage returns the sum of all live entries' estimated sizes.
func (s *EntryStore) TotalMemoryUsage() int64 {
	s.mux.Lock()
	defer s.mux.Unlock()
	return s.totalMemory
}

// EntryCountByType returns the number of live entries carrying the given type tag.
func (s *EntryStore) EntryCountByType(t Type) int {
	s.mux.Lock()
	defer s.mux.Unlock()

	count := 0
	for _, entry := range s.entries {
		if entry.Type == t {
			count++
		}
	}
	return count
}

// MemoryUsageByType returns the summed estimated size of all live entries carrying the given type tag.
func (s *EntryStore) MemoryUsageByType(t Type) int64 {
	s.mux.Lock()
	defer s.mux.Unlock()

	var usage int64
	for _, entry := range s.entries {
		if entry.Type == t {
			usage += entry.MemorySize
		}
	}
	return usage
}

// RemoveExpiredEntries removes every entry whose age (now minus creation time) strictly exceeds maxAge and
// returns the number removed. A non-positive maxAge disables the check entirely.
func (s *EntryStore) RemoveExpiredEntries(maxAge time.Duration) int {
	if maxAge <= 0 {
		return 0
	}

	s.mux.Lock()
	defer s.mux.Unlock()

	now := time.Now()
	var expired []string
	for key, entry := range s.entries {
		if entry.Age(now) > maxAge {
			expired = append(expired, key)
		}
	}
	for _, key := range expired {
		s.removeLocked(key)
	}
	return len(expired)
}

// EvictToTargetMemory removes entries in ascending last-access order until total usage drops to the target,
// and returns the bytes actually freed. The target test runs before each removal, so the final usage may land
// below the target by up to one entry's size. A usage already at or under the target is a no-op.
func (s *EntryStore) EvictToTargetMemory(target int64) int64 {
	s.mux.Lock()
	defer s.mux.Unlock()

	if s.totalMemory <= target {
		return 0
	}

	var freed int64
	for _, candidate := range s.entriesByLRULocked() {
		if s.totalMemory <= target {
			break
		}
		if removed, ok := s.removeLocked(candidate.Key); ok {
			freed += removed.MemorySize
		}
	}
	return freed
}

// EvictLRUEntries removes exactly min(count, EntryCount()) entries in ascending last-access order and returns
// the bytes freed.
func (s *EntryStore) EvictLRUEntries(count int) int64 {
	if count <= 0 {
		return 0
	}

	s.mux.Lock()
	defer s.mux.Unlock()

	var freed int64
	for i, candidate := range s.entriesByLRULocked() {
		if i >= count {
			break
		}
		if removed, ok := s.removeLocked(candidate.Key); ok {
			freed += removed.MemorySize
		}
	}
	return freed
}
