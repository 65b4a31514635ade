package cache

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newTestEntry builds an entry with sensible defaults for store-level tests.
func newTestEntry(key string, typ Type, size int64) Entry {
	now := time.Now()
	return Entry{Key: key, Value: key, Type: typ, CreatedAt: now, AccessedAt: now,
		MemorySize: size, Priority: DefaultPriority}
}

func TestEntryStore_InsertAndGet(t *testing.T) {
	store := NewEntryStore()

	require.True(t, store.Insert(newTestEntry("page:1", PageText, 100)))
	entry, found := store.Get("page:1")
	require.True(t, found, "Should find the inserted key")
	assert.Equal(t, PageText, entry.Type)
	assert.Equal(t, int64(100), entry.MemorySize)

	_, found = store.Get("nonexistent")
	assert.False(t, found, "Should not find a non-existent key")
}

func TestEntryStore_UpsertReplacesSizeAccounting(t *testing.T) {
	store := NewEntryStore()

	store.Insert(newTestEntry("render:1", PdfRender, 300))
	assert.Equal(t, int64(300), store.TotalMemoryUsage())

	// Replacing the value must swap the accounted size, not accumulate it.
	store.Insert(newTestEntry("render:1", PdfRender, 120))
	assert.Equal(t, int64(120), store.TotalMemoryUsage())
	assert.Equal(t, 1, store.EntryCount(), "Upsert should not duplicate the key")
}

func TestEntryStore_MemorySumInvariant(t *testing.T) {
	store := NewEntryStore()

	// An arbitrary sequence of inserts, replacements and removals must keep the total equal to the sum of
	// the live entries' sizes.
	var expected int64
	sizes := map[string]int64{}
	for i := 0; i < 50; i++ {
		key := fmt.Sprintf("key:%d", i%20) // Forces replacements.
		size := int64(10 + i)
		store.Insert(newTestEntry(key, Thumbnail, size))
		sizes[key] = size
	}
	for i := 0; i < 7; i++ {
		key := fmt.Sprintf("key:%d", i)
		require.True(t, store.Remove(key))
		delete(sizes, key)
	}
	for _, size := range sizes {
		expected += size
	}
	assert.Equal(t, expected, store.TotalMemoryUsage())
	assert.Equal(t, len(sizes), store.EntryCount())
}

func TestEntryStore_Touch(t *testing.T) {
	store := NewEntryStore()
	store.Insert(newTestEntry("hl:1", SearchHighlight, 10))

	before, _ := store.Get("hl:1")
	touched, found := store.Touch("hl:1")
	require.True(t, found)
	assert.Equal(t, int64(1), touched.AccessCount)
	assert.False(t, touched.AccessedAt.Before(before.AccessedAt), "Touch should refresh the access time")

	_, found = store.Touch("missing")
	assert.False(t, found)
}

func TestEntryStore_ContainsAndRemove(t *testing.T) {
	store := NewEntryStore()
	store.Insert(newTestEntry("thumb:1", Thumbnail, 40))

	assert.True(t, store.Contains("thumb:1"))
	assert.True(t, store.Remove("thumb:1"), "Removing a present key should report true")
	assert.False(t, store.Remove("thumb:1"), "Removing an absent key should report false")
	assert.False(t, store.Contains("thumb:1"))
	assert.Zero(t, store.TotalMemoryUsage())
}

func TestEntryStore_Clear(t *testing.T) {
	store := NewEntryStore()
	store.Insert(newTestEntry("a", PageText, 10))
	store.Insert(newTestEntry("b", Thumbnail, 20))

	store.Clear()
	assert.Zero(t, store.EntryCount())
	assert.Zero(t, store.TotalMemoryUsage())
	assert.Empty(t, store.Keys())
}

func TestEntryStore_TypeScopedQueries(t *testing.T) {
	store := NewEntryStore()
	store.Insert(newTestEntry("a", PageText, 10))
	store.Insert(newTestEntry("b", PageText, 15))
	store.Insert(newTestEntry("c", Thumbnail, 40))

	assert.Equal(t, 2, store.EntryCountByType(PageText))
	assert.Equal(t, int64(25), store.MemoryUsageByType(PageText))
	assert.Equal(t, 1, store.EntryCountByType(Thumbnail))
	assert.Len(t, store.EntriesByType(PageText), 2)
	assert.Empty(t, store.EntriesByType(PdfRender), "A type with no entries should yield an empty snapshot")
}

func TestEntryStore_LRUOrdering(t *testing.T) {
	store := NewEntryStore()
	base := time.Now()
	for i, key := range []string{"A", "B", "C"} {
		entry := newTestEntry(key, SearchResult, 10)
		entry.AccessedAt = base.Add(time.Duration(i) * time.Millisecond)
		store.Insert(entry)
	}

	ordered := store.EntriesByLRU()
	require.Len(t, ordered, 3)
	assert.Equal(t, "A", ordered[0].Key, "The oldest access should sort first")
	assert.Equal(t, "C", ordered[2].Key)

	oldest, found := store.LeastRecentlyUsed()
	require.True(t, found)
	assert.Equal(t, "A", oldest.Key)
}

func TestEntryStore_LRUTieBreakIsInsertionOrder(t *testing.T) {
	store := NewEntryStore()
	shared := time.Now()
	for _, key := range []string{"first", "second", "third"} {
		entry := newTestEntry(key, SearchResult, 10)
		entry.AccessedAt = shared // Identical timestamps on purpose.
		store.Insert(entry)
	}

	ordered := store.EntriesByLRU()
	require.Len(t, ordered, 3)
	assert.Equal(t, []string{"first", "second", "third"},
		[]string{ordered[0].Key, ordered[1].Key, ordered[2].Key})
}

func TestEntryStore_EvictLRUEntries(t *testing.T) {
	store := NewEntryStore()
	base := time.Now()
	for i, key := range []string{"A", "B", "C"} {
		entry := newTestEntry(key, SearchResult, 10)
		entry.AccessedAt = base.Add(time.Duration(i) * time.Millisecond)
		store.Insert(entry)
	}

	freed := store.EvictLRUEntries(1)
	assert.Equal(t, int64(10), freed)
	assert.False(t, store.Contains("A"), "The least recently used entry should be evicted first")
	assert.True(t, store.Contains("B"))
	assert.True(t, store.Contains("C"))

	// Requesting more than the resident count removes exactly the resident count.
	freed = store.EvictLRUEntries(10)
	assert.Equal(t, int64(20), freed)
	assert.Zero(t, store.EntryCount())

	assert.Zero(t, store.EvictLRUEntries(3), "Evicting from an empty store should be a no-op")
}

func TestEntryStore_EvictToTargetMemory(t *testing.T) {
	store := NewEntryStore()
	base := time.Now()
	for i := 0; i < 5; i++ {
		entry := newTestEntry(fmt.Sprintf("e:%d", i), PdfRender, 100)
		entry.AccessedAt = base.Add(time.Duration(i) * time.Millisecond)
		store.Insert(entry)
	}

	t.Run("no-op when under target", func(t *testing.T) {
		assert.Zero(t, store.EvictToTargetMemory(500))
		assert.Equal(t, int64(500), store.TotalMemoryUsage())
	})

	t.Run("evicts oldest first until at or under target", func(t *testing.T) {
		freed := store.EvictToTargetMemory(250)
		// The target test runs before each removal: 500 > 250 evicts e:0, 400 > 250 evicts e:1,
		// 300 > 250 evicts e:2, then 200 <= 250 stops. Overshoot below the target by one entry is allowed.
		assert.Equal(t, int64(300), freed)
		assert.Equal(t, int64(200), store.TotalMemoryUsage())
		assert.False(t, store.Contains("e:0"))
		assert.False(t, store.Contains("e:2"))
		assert.True(t, store.Contains("e:3"))
	})
}

func TestEntryStore_RemoveExpiredEntries(t *testing.T) {
	store := NewEntryStore()

	fresh := newTestEntry("fresh", PageText, 10)
	store.Insert(fresh)
	stale := newTestEntry("stale", PageText, 10)
	stale.CreatedAt = time.Now().Add(-time.Hour)
	store.Insert(stale)

	t.Run("non-positive max age disables the check", func(t *testing.T) {
		assert.Zero(t, store.RemoveExpiredEntries(0))
		assert.Zero(t, store.RemoveExpiredEntries(-time.Minute))
		assert.Equal(t, 2, store.EntryCount())
	})

	t.Run("removes exactly the entries strictly older than max age", func(t *testing.T) {
		removed := store.RemoveExpiredEntries(30 * time.Minute)
		assert.Equal(t, 1, removed)
		assert.False(t, store.Contains("stale"))
		assert.True(t, store.Contains("fresh"))
	})
}
