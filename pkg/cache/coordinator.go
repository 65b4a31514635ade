// The coordinator is the single mutation entry point of the cache engine. It keeps the entry store and the
// statistics tracker consistent, drives the eviction policies (manual, LRU, expiry, memory pressure, adaptive)
// and fans notifications out to registered observers. Each collaborator carries its own lock scoped to a
// single method call; no lock spans a whole coordinator operation. A concurrent reader can therefore observe
// store state that is ahead of or behind tracker state. That trade-off favors throughput; consistency between
// the two is guaranteed only once a coordinator call has returned.

package cache

import (
	"cmp"
	"log/slog"
	"slices"
	"time"

	"github.com/pagelight/doccache/pkg/utils"
)

// memoryEvictionTargetRatio is the fraction of the total limit that limit enforcement evicts down to.
const memoryEvictionTargetRatio = 0.9

// Weights of the predictive eviction score. Entries with the lowest score evict first.
const (
	priorityScoreWeight = 10.0 // Each priority level outweighs ten recorded hits.
	reaccessScoreBonus  = 5.0  // Keys the doorkeeper has seen again are worth keeping.
)

// SizeEstimator estimates the resident byte size of an opaque cache value.
type SizeEstimator func(value any) int64

// MemorySizer lets cached values report their own resident size to the default estimator.
type MemorySizer interface {
	MemorySize() int64
}

// defaultUnknownValueSize is charged for values the default estimator cannot size.
const defaultUnknownValueSize = 512

// DefaultSizeEstimator sizes byte slices and strings by length and defers to values implementing MemorySizer;
// anything else is charged a fixed conservative cost.
func DefaultSizeEstimator(value any) int64 {
	switch v := value.(type) {
	case nil:
		return 0
	case []byte:
		return int64(len(v))
	case string:
		return int64(len(v))
	case MemorySizer:
		return v.MemorySize()
	default:
		return defaultUnknownValueSize
	}
}

// Options configures a coordinator. Zero values select the defaults.
type Options struct {
	Config       *Config       // nil selects NewDefaultConfig().
	EstimateSize SizeEstimator // nil selects DefaultSizeEstimator.
}

// Coordinator wires the entry store, the statistics tracker and the configuration store together and owns the
// observer registries. Construct one at application start and hand it to every consumer; there is no ambient
// process-wide instance.
type Coordinator struct {
	store        *EntryStore
	stats        *Tracker
	config       *Config
	door         *doorkeeper
	estimateSize SizeEstimator

	dataObservers     observerList
	statsObservers    observerList
	configObservers   observerList
	pressureObservers observerList
}

// NewCoordinator creates a cache coordinator with an empty store.
func NewCoordinator(opts Options) *Coordinator {
	if opts.Config == nil {
		opts.Config = NewDefaultConfig()
	}
	if opts.EstimateSize == nil {
		opts.EstimateSize = DefaultSizeEstimator
	}
	return &Coordinator{
		store:        NewEntryStore(),
		stats:        NewTracker(),
		config:       opts.Config,
		door:         newDoorkeeper(),
		estimateSize: opts.EstimateSize,
	}
}

// Config returns the coordinator's configuration store.
func (c *Coordinator) Config() *Config {
	return c.config
}

// Observer registration. Registering the same observer twice is a no-op; callers must unregister an observer
// before destroying it.

func (c *Coordinator) RegisterDataObserver(o DataObserver)     { c.dataObservers.register(o) }
func (c *Coordinator) UnregisterDataObserver(o DataObserver)   { c.dataObservers.unregister(o) }
func (c *Coordinator) RegisterStatsObserver(o StatsObserver)   { c.statsObservers.register(o) }
func (c *Coordinator) UnregisterStatsObserver(o StatsObserver) { c.statsObservers.unregister(o) }
func (c *Coordinator) RegisterConfigObserver(o ConfigObserver) { c.configObservers.register(o) }
func (c *Coordinator) UnregisterConfigObserver(o ConfigObserver) {
	c.configObservers.unregister(o)
}
func (c *Coordinator) RegisterMemoryPressureObserver(o MemoryPressureObserver) {
	c.pressureObservers.register(o)
}
func (c *Coordinator) UnregisterMemoryPressureObserver(o MemoryPressureObserver) {
	c.pressureObservers.unregister(o)
}

// Insert caches the value under the key with the default priority. See InsertWithPriority.
func (c *Coordinator) Insert(key string, value any, typ Type) bool {
	return c.InsertWithPriority(key, value, typ, DefaultPriority)
}

// InsertWithPriority caches the value under the key. It returns false only when the type is disabled in the
// configuration; the engine is otherwise soft-bounded and never rejects an over-limit insert. Every successful
// insert refreshes the type's statistics, notifies data observers, and checks the general pressure threshold,
// so an insert can synchronously cascade into the warning/critical pressure path.
func (c *Coordinator) InsertWithPriority(key string, value any, typ Type, priority int) bool {
	if !c.config.EnabledFor(typ) {
		slog.Debug("Rejected an insert for a disabled cache type.", "type", typ.String(), "key", key)
		return false
	}

	size := c.estimateSize(value)
	if size < 0 {
		utils.RaiseInvariant("coordinator", "negative_size_estimate",
			"Size estimator returned a negative size.", "key", key, "size", size)
		size = 0
	}

	now := time.Now()
	c.store.Insert(Entry{
		Key:        key,
		Value:      value,
		Type:       typ,
		CreatedAt:  now,
		AccessedAt: now,
		MemorySize: size,
		Priority:   priority,
	})
	c.refreshStats(typ)
	c.notifyData(func(o DataObserver) { o.OnUpdated(typ, key) })

	if limit := c.config.TotalMemoryLimit(); limit > 0 {
		ratio := float64(c.store.TotalMemoryUsage()) / float64(limit)
		if ratio >= c.config.PressureThreshold() {
			c.HandleMemoryPressure()
		}
	}
	return true
}

// Get returns the cached value for the key if it is present under the requested type. A key present under a
// different type tag counts as a miss for the requested type, not a hit for the actual one. A hit refreshes
// the entry's access metadata and pushes the type's statistics snapshot to statistics observers.
func (c *Coordinator) Get(key string, typ Type) (any, bool) {
	entry, found := c.store.Get(key)
	if !found || entry.Type != typ {
		c.stats.RecordMiss(typ)
		lookupsMetric.WithLabelValues(typ.String(), "miss").Inc()
		return nil, false
	}

	entry, found = c.store.Touch(key)
	if !found { // Raced with a concurrent removal; the lookup still counts as a miss.
		c.stats.RecordMiss(typ)
		lookupsMetric.WithLabelValues(typ.String(), "miss").Inc()
		return nil, false
	}
	c.stats.RecordHit(typ)
	c.stats.RecordAccess(typ, key)
	c.door.Record(key)
	lookupsMetric.WithLabelValues(typ.String(), "hit").Inc()
	snapshot := c.stats.Snapshot(typ)
	c.notifyStats(func(o StatsObserver) { o.OnStatsUpdated(typ, snapshot) })
	return entry.Value, true
}

// Contains reports whether the key is cached under the requested type, with no side effects on statistics or
// access metadata.
func (c *Coordinator) Contains(key string, typ Type) bool {
	entry, found := c.store.Get(key)
	return found && entry.Type == typ
}

// Remove deletes the key if it is cached under the requested type, refreshes statistics and notifies data
// observers with the manual-removal reason.
func (c *Coordinator) Remove(key string, typ Type) bool {
	entry, found := c.store.Get(key)
	if !found || entry.Type != typ {
		return false
	}
	removed, taken := c.store.take(key)
	if !taken {
		return false
	}
	evictedEntriesMetric.WithLabelValues(typ.String(), metricReasonManual).Inc()
	evictedBytesMetric.WithLabelValues(typ.String(), metricReasonManual).Add(float64(removed.MemorySize))
	c.refreshStats(typ)
	c.notifyData(func(o DataObserver) { o.OnEvicted(typ, key, ReasonManualRemoval) })
	return true
}

// Clear removes every entry of one type (enumerate-then-remove, not an atomic bulk operation), zeroes that
// type's statistics and notifies data observers. Clearing an already-empty type succeeds trivially.
func (c *Coordinator) Clear(typ Type) {
	for _, entry := range c.store.EntriesByType(typ) {
		c.store.Remove(entry.Key)
	}
	c.stats.ResetType(typ)
	memoryUsageMetric.WithLabelValues(typ.String()).Set(0)
	entryCountMetric.WithLabelValues(typ.String()).Set(0)
	c.notifyData(func(o DataObserver) { o.OnCleared(typ) })
}

// ClearAll empties the entry store, resets all statistics and notifies a clear for every known type.
func (c *Coordinator) ClearAll() {
	c.store.Clear()
	c.stats.Reset()
	for _, typ := range AllTypes() {
		memoryUsageMetric.WithLabelValues(typ.String()).Set(0)
		entryCountMetric.WithLabelValues(typ.String()).Set(0)
		c.notifyData(func(o DataObserver) { o.OnCleared(typ) })
	}
}

// EnforceMemoryLimits evicts globally-least-recently-used entries down to 90% of the total limit whenever
// usage exceeds the limit. The entry store does not report which types the evicted entries belonged to, so
// the bulk summary notification is tagged with the first enumerated type regardless of what was actually
// evicted, and the freed bytes are recorded against that type.
func (c *Coordinator) EnforceMemoryLimits() {
	limit := c.config.TotalMemoryLimit()
	if limit <= 0 {
		return
	}
	usage := c.store.TotalMemoryUsage()
	if usage <= limit {
		return
	}

	target := int64(float64(limit) * memoryEvictionTargetRatio)
	freed := c.store.EvictToTargetMemory(target)
	if freed == 0 {
		return
	}

	trigger := allTypes[0]
	slog.Info("Enforced the total cache memory limit.",
		"usage", usage, "limit", limit, "target", target, "freed", freed)
	c.stats.RecordEviction(trigger, freed)
	evictedBytesMetric.WithLabelValues(trigger.String(), metricReasonMemoryLimit).Add(float64(freed))
	c.refreshStats(AllTypes()...)
	c.notifyData(func(o DataObserver) { o.OnEvicted(trigger, "" /*bulk summary*/, ReasonMemoryLimit) })
}

// HandleMemoryPressure compares the current usage ratio against the warning and critical thresholds. The two
// checks are independent; crossing the critical threshold fires both tiers in one call. The warning tier is
// notify-only. The critical tier enforces the total limit (when memory-pressure eviction is enabled) and, when
// a single enforcement pass leaves usage above the limit and emergency eviction is enabled, evicts further
// down to the warning fraction of the limit.
func (c *Coordinator) HandleMemoryPressure() {
	limit := c.config.TotalMemoryLimit()
	usage := c.store.TotalMemoryUsage()
	var ratio float64
	if limit > 0 {
		ratio = float64(usage) / float64(limit)
	}

	if ratio >= c.config.WarningThreshold() {
		pressureEventsMetric.WithLabelValues("warning").Inc()
		slog.Warn("Cache memory pressure crossed the warning threshold.", "ratio", ratio, "usage", usage,
			"limit", limit)
		c.notifyPressure(func(o MemoryPressureObserver) { o.OnMemoryPressureDetected(ratio) })
		c.notifyPressure(func(o MemoryPressureObserver) { o.OnMemoryLimitExceeded(usage, limit) })
	}

	if ratio >= c.config.CriticalThreshold() {
		pressureEventsMetric.WithLabelValues("critical").Inc()
		slog.Warn("Cache memory pressure crossed the critical threshold.", "ratio", ratio, "usage", usage,
			"limit", limit)
		c.notifyPressure(func(o MemoryPressureObserver) { o.OnMemoryLimitExceeded(usage, limit) })
		if !c.config.MemoryPressureEvictionEnabled() {
			return
		}
		c.EnforceMemoryLimits()
		if c.config.EmergencyEvictionEnabled() {
			c.performEmergencyEviction(limit)
		}
	}
}

// performEmergencyEviction runs when a regular enforcement pass left usage above the limit. It evicts down to
// the warning fraction of the limit to regain headroom.
func (c *Coordinator) performEmergencyEviction(limit int64) {
	usage := c.store.TotalMemoryUsage()
	if usage <= limit {
		return
	}
	target := int64(float64(limit) * c.config.WarningThreshold())
	freed := c.store.EvictToTargetMemory(target)
	if freed == 0 {
		return
	}
	trigger := allTypes[0]
	slog.Warn("Emergency eviction freed cache memory.", "usage", usage, "target", target, "freed", freed)
	c.stats.RecordEviction(trigger, freed)
	evictedBytesMetric.WithLabelValues(trigger.String(), metricReasonEmergency).Add(float64(freed))
	c.refreshStats(AllTypes()...)
	c.notifyData(func(o DataObserver) { o.OnEvicted(trigger, "" /*bulk summary*/, ReasonEmergency) })
}

// EvictFromType removes entries of one type in eviction order until at least bytesToFree bytes are freed,
// recording each removal and notifying data observers per key plus one bulk summary. The freed check runs
// before each removal, so the result may overshoot the request by up to one entry's size. A disabled LRU
// eviction flag turns this into a no-op.
func (c *Coordinator) EvictFromType(typ Type, bytesToFree int64) int64 {
	if bytesToFree <= 0 {
		return 0
	}
	if !c.config.LRUEvictionEnabled() {
		slog.Debug("Skipped a type eviction because LRU eviction is disabled.", "type", typ.String())
		return 0
	}

	candidates := c.store.EntriesByType(typ)
	c.sortForEviction(typ, candidates)

	var freed int64
	for _, candidate := range candidates {
		if freed >= bytesToFree {
			break
		}
		removed, taken := c.store.take(candidate.Key)
		if !taken { // Raced with a concurrent removal.
			continue
		}
		freed += removed.MemorySize
		c.stats.RecordEviction(typ, removed.MemorySize)
		evictedEntriesMetric.WithLabelValues(typ.String(), metricReasonLRU).Inc()
		evictedBytesMetric.WithLabelValues(typ.String(), metricReasonLRU).Add(float64(removed.MemorySize))
		c.notifyData(func(o DataObserver) { o.OnEvicted(typ, removed.Key, ReasonLRUEviction) })
	}
	if freed > 0 {
		c.refreshStats(typ)
		c.notifyData(func(o DataObserver) { o.OnEvicted(typ, "" /*bulk summary*/, ReasonLRUEviction) })
	}
	return freed
}

// EvictExpired removes every entry older than maxAge and returns the count removed. The store does not report
// which types were affected, so a nonzero removal refreshes the statistics of all types unconditionally. A
// non-positive maxAge disables the check.
func (c *Coordinator) EvictExpired(maxAge time.Duration) int {
	removed := c.store.RemoveExpiredEntries(maxAge)
	if removed == 0 {
		return 0
	}
	slog.Info("Expired cache entries were removed.", "count", removed, "maxAge", maxAge)
	// Expiry, like limit enforcement, cannot attribute removals per type.
	evictedEntriesMetric.WithLabelValues(allTypes[0].String(), metricReasonExpired).Add(float64(removed))
	c.refreshStats(AllTypes()...)
	return removed
}

// PerformAdaptiveEviction walks the types in their fixed enumeration order and, for each type over its own
// limit, evicts exactly the excess. There is no cross-type budget sharing: a type under its limit never
// donates headroom to one over its limit.
func (c *Coordinator) PerformAdaptiveEviction() {
	for _, typ := range AllTypes() {
		limit := c.config.CacheLimit(typ)
		if limit <= 0 {
			continue
		}
		if usage := c.store.MemoryUsageByType(typ); usage > limit {
			c.EvictFromType(typ, usage-limit)
		}
	}
}

// ReportSystemMemoryPressure forwards a host-level memory pressure observation to memory-pressure observers.
// The ratio is produced by an external monitor, not by the engine's own accounting.
func (c *Coordinator) ReportSystemMemoryPressure(ratio float64) {
	pressureEventsMetric.WithLabelValues("system").Inc()
	slog.Warn("Host memory pressure was reported to the cache engine.", "ratio", ratio)
	c.notifyPressure(func(o MemoryPressureObserver) { o.OnSystemMemoryPressureDetected(ratio) })
}

// GetStats returns the statistics snapshot for one type.
func (c *Coordinator) GetStats(typ Type) Stats {
	return c.stats.Snapshot(typ)
}

// GetAllStats returns a snapshot per type with recorded activity.
func (c *Coordinator) GetAllStats() map[Type]Stats {
	return c.stats.All()
}

// GlobalHitRatio returns the hit ratio across all types.
func (c *Coordinator) GlobalHitRatio() float64 {
	return c.stats.GlobalHitRatio()
}

// TotalMemoryUsage returns the total estimated resident bytes.
func (c *Coordinator) TotalMemoryUsage() int64 {
	return c.store.TotalMemoryUsage()
}

// MemoryUsageRatio returns usage divided by the total limit, or 0 when no limit is configured.
func (c *Coordinator) MemoryUsageRatio() float64 {
	limit := c.config.TotalMemoryLimit()
	if limit <= 0 {
		return 0
	}
	return float64(c.store.TotalMemoryUsage()) / float64(limit)
}

// EntryCount returns the number of live entries across all types.
func (c *Coordinator) EntryCount() int {
	return c.store.EntryCount()
}

// Keys returns a snapshot of all cached keys.
func (c *Coordinator) Keys() []string {
	return c.store.Keys()
}

// RecentAccesses returns a most-recent-first snapshot of the keys accessed for the type.
func (c *Coordinator) RecentAccesses(typ Type) []string {
	return c.stats.RecentAccesses(typ)
}

// SetGlobalConfig imports a flat configuration record atomically and notifies configuration observers.
func (c *Coordinator) SetGlobalConfig(flat FlatConfig) {
	c.config.FromFlat(flat)
	c.notifyConfig(func(o ConfigObserver) { o.OnGlobalConfigChanged() })
}

// GetGlobalConfig exports the current configuration as a flat record.
func (c *Coordinator) GetGlobalConfig() FlatConfig {
	return c.config.ToFlat()
}

// SetCacheLimit sets one type's memory limit and notifies configuration observers.
func (c *Coordinator) SetCacheLimit(typ Type, bytes int64) {
	c.config.SetCacheLimit(typ, bytes)
	c.notifyConfig(func(o ConfigObserver) { o.OnConfigChanged(typ) })
}

// GetCacheLimit returns one type's memory limit.
func (c *Coordinator) GetCacheLimit(typ Type) int64 {
	return c.config.CacheLimit(typ)
}

// refreshStats re-derives the given types' entry counts and memory usage from the entry store, pushes them
// into the statistics tracker and the Prometheus gauges, and notifies statistics observers once per type plus
// one global update.
func (c *Coordinator) refreshStats(types ...Type) {
	for _, typ := range types {
		usage := c.store.MemoryUsageByType(typ)
		count := c.store.EntryCountByType(typ)
		c.stats.RecordMemoryUsage(typ, usage)
		c.stats.RecordEntryCount(typ, count)
		memoryUsageMetric.WithLabelValues(typ.String()).Set(float64(usage))
		entryCountMetric.WithLabelValues(typ.String()).Set(float64(count))
		snapshot := c.stats.Snapshot(typ)
		c.notifyStats(func(o StatsObserver) { o.OnStatsUpdated(typ, snapshot) })
	}
	total := c.store.TotalMemoryUsage()
	ratio := c.stats.GlobalHitRatio()
	c.notifyStats(func(o StatsObserver) { o.OnGlobalStatsUpdated(total, ratio) })
}

// sortForEviction orders eviction candidates in place. With predictive eviction enabled the candidates are
// ranked by eviction score; otherwise the type's configured strategy decides, defaulting to LRU for
// unrecognized labels.
func (c *Coordinator) sortForEviction(typ Type, entries []Entry) {
	if c.config.PredictiveEvictionEnabled() {
		now := time.Now()
		slices.SortFunc(entries, func(a, b Entry) int {
			return cmp.Compare(c.evictionScore(a, now), c.evictionScore(b, now))
		})
		return
	}
	switch c.config.EvictionStrategy(typ) {
	case StrategyLFU:
		slices.SortFunc(entries, func(a, b Entry) int {
			if a.AccessCount != b.AccessCount {
				return cmp.Compare(a.AccessCount, b.AccessCount)
			}
			return compareByRecency(a, b)
		})
	case StrategyFIFO:
		slices.SortFunc(entries, func(a, b Entry) int {
			if v := a.CreatedAt.Compare(b.CreatedAt); v != 0 {
				return v
			}
			return compareByRecency(a, b)
		})
	default: // StrategyLRU and anything unrecognized.
		slices.SortFunc(entries, compareByRecency)
	}
}

// evictionScore ranks an entry's resistance to eviction. Higher priority, more hits, a doorkeeper re-access
// and recent use all raise the score; the entries with the lowest scores evict first.
func (c *Coordinator) evictionScore(e Entry, now time.Time) float64 {
	score := float64(e.Priority) * priorityScoreWeight
	score += float64(e.AccessCount)
	if c.door.Seen(e.Key) {
		score += reaccessScoreBonus
	}
	score -= e.Idle(now).Minutes()
	return score
}

// Observer fan-out helpers. The cache-coordination flag gates all notifications; the coordinator never blocks
// on observer completion and assumes callbacks do not re-enter its own operations.

func (c *Coordinator) notifyData(fn func(DataObserver)) {
	if !c.config.CacheCoordinationEnabled() {
		return
	}
	for _, o := range c.dataObservers.snapshot() {
		fn(o.(DataObserver))
	}
}

func (c *Coordinator) notifyStats(fn func(StatsObserver)) {
	if !c.config.CacheCoordinationEnabled() {
		return
	}
	for _, o := range c.statsObservers.snapshot() {
		fn(o.(StatsObserver))
	}
}

func (c *Coordinator) notifyConfig(fn func(ConfigObserver)) {
	if !c.config.CacheCoordinationEnabled() {
		return
	}
	for _, o := range c.configObservers.snapshot() {
		fn(o.(ConfigObserver))
	}
}

func (c *Coordinator) notifyPressure(fn func(MemoryPressureObserver)) {
	if !c.config.CacheCoordinationEnabled() {
		return
	}
	for _, o := range c.pressureObservers.snapshot() {
		fn(o.(MemoryPressureObserver))
	}
}
