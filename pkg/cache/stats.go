// The statistics tracker keeps independent per-type counters for the cache engine: hits, misses, memory and
// entry-count snapshots, eviction totals, and a bounded recent-access log. It is deliberately decoupled from
// the entry store; the coordinator re-derives and pushes snapshots after every store mutation.

package cache

import "sync"

// accessLogCapacity bounds the per-type recent-access log to the most recent distinct keys.
const accessLogCapacity = 1000

// Stats is a point-in-time snapshot of one type's counters.
type Stats struct {
	MemoryUsage int64   // Last pushed memory usage snapshot, in bytes.
	EntryCount  int     // Last pushed entry count snapshot.
	HitRatio    float64 // Hits / (hits + misses); 0.0 with no samples.
	Hits        int64
	Misses      int64
}

// Tracker tracks per-type and global cache statistics. All methods are lock-protected and never fail.
type Tracker struct {
	mux          sync.Mutex
	hits         map[Type]int64
	misses       map[Type]int64
	memory       map[Type]int64
	entries      map[Type]int
	evictions    map[Type]int64
	evictedBytes map[Type]int64
	accessCounts map[Type]int64
	recent       map[Type]*accessLog
}

// NewTracker creates an empty statistics tracker.
func NewTracker() *Tracker {
	return &Tracker{
		hits:         make(map[Type]int64),
		misses:       make(map[Type]int64),
		memory:       make(map[Type]int64),
		entries:      make(map[Type]int),
		evictions:    make(map[Type]int64),
		evictedBytes: make(map[Type]int64),
		accessCounts: make(map[Type]int64),
		recent:       make(map[Type]*accessLog),
	}
}

// RecordHit increments the hit counter for the type.
func (t *Tracker) RecordHit(typ Type) {
	t.mux.Lock()
	defer t.mux.Unlock()
	t.hits[typ]++
}

// RecordMiss increments the miss counter for the type.
func (t *Tracker) RecordMiss(typ Type) {
	t.mux.Lock()
	defer t.mux.Unlock()
	t.misses[typ]++
}

// HitRatio returns hits/(hits+misses) for the type, or 0.0 when there are no samples.
func (t *Tracker) HitRatio(typ Type) float64 {
	t.mux.Lock()
	defer t.mux.Unlock()
	return ratio(t.hits[typ], t.misses[typ])
}

// GlobalHitRatio returns the hit ratio over all types combined, or 0.0 when there are no samples.
func (t *Tracker) GlobalHitRatio() float64 {
	t.mux.Lock()
	defer t.mux.Unlock()

	var hits, misses int64
	for _, h := range t.hits {
		hits += h
	}
	for _, m := range t.misses {
		misses += m
	}
	return ratio(hits, misses)
}

func ratio(hits, misses int64) float64 {
	if hits+misses == 0 {
		return 0.0
	}
	return float64(hits) / float64(hits+misses)
}

// RecordMemoryUsage sets (not accumulates) the memory usage snapshot for the type.
func (t *Tracker) RecordMemoryUsage(typ Type, bytes int64) {
	t.mux.Lock()
	defer t.mux.Unlock()
	t.memory[typ] = bytes
}

// RecordEntryCount sets the entry count snapshot for the type.
func (t *Tracker) RecordEntryCount(typ Type, count int) {
	t.mux.Lock()
	defer t.mux.Unlock()
	t.entries[typ] = count
}

// RecordEviction increments the eviction counter and accumulates the freed bytes for the type.
func (t *Tracker) RecordEviction(typ Type, bytesFreed int64) {
	t.mux.Lock()
	defer t.mux.Unlock()
	t.evictions[typ]++
	t.evictedBytes[typ] += bytesFreed
}

// RecordAccess increments the access counter for the type and moves the key to the front of the bounded
// recent-access log, deduplicating re-accesses.
func (t *Tracker) RecordAccess(typ Type, key string) {
	t.mux.Lock()
	defer t.mux.Unlock()

	t.accessCounts[typ]++
	log, exists := t.recent[typ]
	if !exists {
		log = newAccessLog(accessLogCapacity)
		t.recent[typ] = log
	}
	log.Record(key)
}

// RecentAccesses returns a most-recent-first snapshot of the keys accessed for the type.
func (t *Tracker) RecentAccesses(typ Type) []string {
	t.mux.Lock()
	defer t.mux.Unlock()

	log, exists := t.recent[typ]
	if !exists {
		return nil
	}
	return log.Keys()
}

// AccessCount returns the total number of accesses recorded for the type.
func (t *Tracker) AccessCount(typ Type) int64 {
	t.mux.Lock()
	defer t.mux.Unlock()
	return t.accessCounts[typ]
}

// EvictionCount returns how many evictions were recorded for the type.
func (t *Tracker) EvictionCount(typ Type) int64 {
	t.mux.Lock()
	defer t.mux.Unlock()
	return t.evictions[typ]
}

// EvictedBytes returns the cumulative bytes freed by evictions recorded for the type.
func (t *Tracker) EvictedBytes(typ Type) int64 {
	t.mux.Lock()
	defer t.mux.Unlock()
	return t.evictedBytes[typ]
}

// Reset clears every counter for every type.
func (t *Tracker) Reset() {
	t.mux.Lock()
	defer t.mux.Unlock()
	t.hits = make(map[Type]int64)
	t.misses = make(map[Type]int64)
	t.memory = make(map[Type]int64)
	t.entries = make(map[Type]int)
	t.evictions = make(map[Type]int64)
	t.evictedBytes = make(map[Type]int64)
	t.accessCounts = make(map[Type]int64)
	t.recent = make(map[Type]*accessLog)
}

// ResetType clears every counter for one type.
func (t *Tracker) ResetType(typ Type) {
	t.mux.Lock()
	defer t.mux.Unlock()
	delete(t.hits, typ)
	delete(t.misses, typ)
	delete(t.memory, typ)
	delete(t.entries, typ)
	delete(t.evictions, typ)
	delete(t.evictedBytes, typ)
	delete(t.accessCounts, typ)
	delete(t.recent, typ)
}

// Snapshot returns the current stats snapshot for the type.
func (t *Tracker) Snapshot(typ Type) Stats {
	t.mux.Lock()
	defer t.mux.Unlock()
	return t.snapshotLocked(typ)
}

func (t *Tracker) snapshotLocked(typ Type) Stats {
	return Stats{
		MemoryUsage: t.memory[typ],
		EntryCount:  t.entries[typ],
		HitRatio:    ratio(t.hits[typ], t.misses[typ]),
		Hits:        t.hits[typ],
		Misses:      t.misses[typ],
	}
}

// All returns a snapshot per type, built from the union of all types seen in the hit, miss and memory maps.
// A type with zero recorded activity is absent rather than zero-filled.
func (t *Tracker) All() map[Type]Stats {
	t.mux.Lock()
	defer t.mux.Unlock()

	seen := make(map[Type]struct{})
	for typ := range t.hits {
		seen[typ] = struct{}{}
	}
	for typ := range t.misses {
		seen[typ] = struct{}{}
	}
	for typ := range t.memory {
		seen[typ] = struct{}{}
	}

	all := make(map[Type]Stats, len(seen))
	for typ := range seen {
		all[typ] = t.snapshotLocked(typ)
	}
	return all
}

// TotalMemoryUsage returns the sum of all per-type memory usage snapshots.
func (t *Tracker) TotalMemoryUsage() int64 {
	t.mux.Lock()
	defer t.mux.Unlock()

	var total int64
	for _, bytes := range t.memory {
		total += bytes
	}
	return total
}
