// The configuration store holds the engine's limits, thresholds and feature flags. It is a pure value holder:
// nothing here validates cross-field consistency (a per-type limit may exceed the global total; over-commitment
// is only discovered empirically by limit enforcement). All getters and setters are safe from any goroutine.

package cache

import (
	"sync"
	"time"
)

// Per-type eviction strategy labels.
const (
	StrategyLRU  = "lru"  // Ascending last-access time (default).
	StrategyLFU  = "lfu"  // Ascending access count, ties by last-access time.
	StrategyFIFO = "fifo" // Ascending creation time.
)

// Default limits and thresholds. Type limits deliberately sum to less than the global total, leaving
// headroom for transient overcommit before limit enforcement kicks in.
const (
	DefaultTotalMemoryLimit          = 512 << 20 // 512 MiB.
	DefaultSearchResultLimit         = 100 << 20
	DefaultPageTextLimit             = 50 << 20
	DefaultSearchHighlightLimit      = 25 << 20
	DefaultPdfRenderLimit            = 256 << 20
	DefaultThumbnailLimit            = 64 << 20
	DefaultPressureThreshold         = 0.85 // General threshold checked on every insert.
	DefaultWarningThreshold          = 0.75
	DefaultCriticalThreshold         = 0.90
	DefaultSystemMemoryThreshold     = 0.90
	DefaultCleanupInterval           = 30 * time.Second
	DefaultSystemMemoryCheckInterval = 10 * time.Second
)

// featureFlags groups the engine's global on/off switches.
type featureFlags struct {
	lruEviction            bool
	memoryPressureEviction bool
	cacheCoordination      bool
	adaptiveMemory         bool
	preloading             bool
	systemMemoryMonitoring bool
	predictiveEviction     bool
	memoryCompression      bool // Reserved; never read by the engine.
	emergencyEviction      bool
}

// Config is the engine's thread-safe configuration record.
type Config struct {
	mux sync.RWMutex

	totalLimit int64
	typeLimits map[Type]int64
	strategies map[Type]string
	enabled    map[Type]bool
	flags      featureFlags

	pressureThreshold     float64 // Checked after every insert; stored as a fraction of the total limit.
	warningThreshold      float64
	criticalThreshold     float64
	systemMemoryThreshold float64

	cleanupInterval     time.Duration
	systemCheckInterval time.Duration
	maxEntryAge         time.Duration // Non-positive disables age-based expiry.
}

// NewDefaultConfig creates a configuration record with the engine's default limits, thresholds and flags.
func NewDefaultConfig() *Config {
	return &Config{
		totalLimit: DefaultTotalMemoryLimit,
		typeLimits: map[Type]int64{
			SearchResult:    DefaultSearchResultLimit,
			PageText:        DefaultPageTextLimit,
			SearchHighlight: DefaultSearchHighlightLimit,
			PdfRender:       DefaultPdfRenderLimit,
			Thumbnail:       DefaultThumbnailLimit,
		},
		strategies: map[Type]string{
			SearchResult:    StrategyLRU,
			PageText:        StrategyLRU,
			SearchHighlight: StrategyLRU,
			PdfRender:       StrategyLRU,
			Thumbnail:       StrategyLRU,
		},
		enabled: map[Type]bool{
			SearchResult:    true,
			PageText:        true,
			SearchHighlight: true,
			PdfRender:       true,
			Thumbnail:       true,
		},
		flags: featureFlags{
			lruEviction:            true,
			memoryPressureEviction: true,
			cacheCoordination:      true,
			adaptiveMemory:         true,
			preloading:             false,
			systemMemoryMonitoring: true,
			predictiveEviction:     false,
			memoryCompression:      false,
			emergencyEviction:      false,
		},
		pressureThreshold:     DefaultPressureThreshold,
		warningThreshold:      DefaultWarningThreshold,
		criticalThreshold:     DefaultCriticalThreshold,
		systemMemoryThreshold: DefaultSystemMemoryThreshold,
		cleanupInterval:       DefaultCleanupInterval,
		systemCheckInterval:   DefaultSystemMemoryCheckInterval,
	}
}

// TotalMemoryLimit returns the global memory limit in bytes.
func (c *Config) TotalMemoryLimit() int64 {
	c.mux.RLock()
	defer c.mux.RUnlock()
	return c.totalLimit
}

// SetTotalMemoryLimit sets the global memory limit in bytes.
func (c *Config) SetTotalMemoryLimit(bytes int64) {
	c.mux.Lock()
	defer c.mux.Unlock()
	c.totalLimit = bytes
}

// CacheLimit returns the memory limit for one type, in bytes.
func (c *Config) CacheLimit(typ Type) int64 {
	c.mux.RLock()
	defer c.mux.RUnlock()
	return c.typeLimits[typ]
}

// SetCacheLimit sets the memory limit for one type. Limits larger than the global total are accepted without
// validation.
func (c *Config) SetCacheLimit(typ Type, bytes int64) {
	c.mux.Lock()
	defer c.mux.Unlock()
	c.typeLimits[typ] = bytes
}

// EvictionStrategy returns the eviction strategy label for one type.
func (c *Config) EvictionStrategy(typ Type) string {
	c.mux.RLock()
	defer c.mux.RUnlock()
	return c.strategies[typ]
}

// SetEvictionStrategy sets the eviction strategy label for one type.
func (c *Config) SetEvictionStrategy(typ Type, strategy string) {
	c.mux.Lock()
	defer c.mux.Unlock()
	c.strategies[typ] = strategy
}

// EnabledFor reports whether caching is enabled for the type.
func (c *Config) EnabledFor(typ Type) bool {
	c.mux.RLock()
	defer c.mux.RUnlock()
	return c.enabled[typ]
}

// SetEnabledFor enables or disables caching for one type. Disabled types reject inserts and report misses.
func (c *Config) SetEnabledFor(typ Type, enabled bool) {
	c.mux.Lock()
	defer c.mux.Unlock()
	c.enabled[typ] = enabled
}

// PressureThreshold returns the general memory-pressure fraction checked after every insert.
func (c *Config) PressureThreshold() float64 {
	c.mux.RLock()
	defer c.mux.RUnlock()
	return c.pressureThreshold
}

// SetPressureThreshold sets the general memory-pressure fraction.
func (c *Config) SetPressureThreshold(fraction float64) {
	c.mux.Lock()
	defer c.mux.Unlock()
	c.pressureThreshold = fraction
}

// WarningThreshold returns the warning-tier pressure fraction.
func (c *Config) WarningThreshold() float64 {
	c.mux.RLock()
	defer c.mux.RUnlock()
	return c.warningThreshold
}

// SetWarningThreshold sets the warning-tier pressure fraction.
func (c *Config) SetWarningThreshold(fraction float64) {
	c.mux.Lock()
	defer c.mux.Unlock()
	c.warningThreshold = fraction
}

// CriticalThreshold returns the critical-tier pressure fraction.
func (c *Config) CriticalThreshold() float64 {
	c.mux.RLock()
	defer c.mux.RUnlock()
	return c.criticalThreshold
}

// SetCriticalThreshold sets the critical-tier pressure fraction.
func (c *Config) SetCriticalThreshold(fraction float64) {
	c.mux.Lock()
	defer c.mux.Unlock()
	c.criticalThreshold = fraction
}

// SystemMemoryThreshold returns the host-memory pressure fraction used by the system memory monitor.
func (c *Config) SystemMemoryThreshold() float64 {
	c.mux.RLock()
	defer c.mux.RUnlock()
	return c.systemMemoryThreshold
}

// SetSystemMemoryThreshold sets the host-memory pressure fraction.
func (c *Config) SetSystemMemoryThreshold(fraction float64) {
	c.mux.Lock()
	defer c.mux.Unlock()
	c.systemMemoryThreshold = fraction
}

// CleanupInterval returns the period of the background maintenance loop.
func (c *Config) CleanupInterval() time.Duration {
	c.mux.RLock()
	defer c.mux.RUnlock()
	return c.cleanupInterval
}

// SetCleanupInterval sets the period of the background maintenance loop.
func (c *Config) SetCleanupInterval(interval time.Duration) {
	c.mux.Lock()
	defer c.mux.Unlock()
	c.cleanupInterval = interval
}

// SystemMemoryCheckInterval returns the period of the system memory monitor.
func (c *Config) SystemMemoryCheckInterval() time.Duration {
	c.mux.RLock()
	defer c.mux.RUnlock()
	return c.systemCheckInterval
}

// SetSystemMemoryCheckInterval sets the period of the system memory monitor.
func (c *Config) SetSystemMemoryCheckInterval(interval time.Duration) {
	c.mux.Lock()
	defer c.mux.Unlock()
	c.systemCheckInterval = interval
}

// MaxEntryAge returns the age after which the maintenance loop expires entries. Non-positive disables expiry.
func (c *Config) MaxEntryAge() time.Duration {
	c.mux.RLock()
	defer c.mux.RUnlock()
	return c.maxEntryAge
}

// SetMaxEntryAge sets the expiry age for the maintenance loop.
func (c *Config) SetMaxEntryAge(age time.Duration) {
	c.mux.Lock()
	defer c.mux.Unlock()
	c.maxEntryAge = age
}

// Feature flag accessors. Each pair reads or writes one global switch.

func (c *Config) LRUEvictionEnabled() bool {
	c.mux.RLock()
	defer c.mux.RUnlock()
	return c.flags.lruEviction
}

func (c *Config) SetLRUEvictionEnabled(enabled bool) {
	c.mux.Lock()
	defer c.mux.Unlock()
	c.flags.lruEviction = enabled
}

func (c *Config) MemoryPressureEvictionEnabled() bool {
	c.mux.RLock()
	defer c.mux.RUnlock()
	return c.flags.memoryPressureEviction
}

func (c *Config) SetMemoryPressureEvictionEnabled(enabled bool) {
	c.mux.Lock()
	defer c.mux.Unlock()
	c.flags.memoryPressureEviction = enabled
}

func (c *Config) CacheCoordinationEnabled() bool {
	c.mux.RLock()
	defer c.mux.RUnlock()
	return c.flags.cacheCoordination
}

func (c *Config) SetCacheCoordinationEnabled(enabled bool) {
	c.mux.Lock()
	defer c.mux.Unlock()
	c.flags.cacheCoordination = enabled
}

func (c *Config) AdaptiveMemoryEnabled() bool {
	c.mux.RLock()
	defer c.mux.RUnlock()
	return c.flags.adaptiveMemory
}

func (c *Config) SetAdaptiveMemoryEnabled(enabled bool) {
	c.mux.Lock()
	defer c.mux.Unlock()
	c.flags.adaptiveMemory = enabled
}

func (c *Config) PreloadingEnabled() bool {
	c.mux.RLock()
	defer c.mux.RUnlock()
	return c.flags.preloading
}

func (c *Config) SetPreloadingEnabled(enabled bool) {
	c.mux.Lock()
	defer c.mux.Unlock()
	c.flags.preloading = enabled
}

func (c *Config) SystemMemoryMonitoringEnabled() bool {
	c.mux.RLock()
	defer c.mux.RUnlock()
	return c.flags.systemMemoryMonitoring
}

func (c *Config) SetSystemMemoryMonitoringEnabled(enabled bool) {
	c.mux.Lock()
	defer c.mux.Unlock()
	c.flags.systemMemoryMonitoring = enabled
}

func (c *Config) PredictiveEvictionEnabled() bool {
	c.mux.RLock()
	defer c.mux.RUnlock()
	return c.flags.predictiveEviction
}

func (c *Config) SetPredictiveEvictionEnabled(enabled bool) {
	c.mux.Lock()
	defer c.mux.Unlock()
	c.flags.predictiveEviction = enabled
}

func (c *Config) MemoryCompressionEnabled() bool {
	c.mux.RLock()
	defer c.mux.RUnlock()
	return c.flags.memoryCompression
}

func (c *Config) SetMemoryCompressionEnabled(enabled bool) {
	c.mux.Lock()
	defer c.mux.Unlock()
	c.flags.memoryCompression = enabled
}

func (c *Config) EmergencyEvictionEnabled() bool {
	c.mux.RLock()
	defer c.mux.RUnlock()
	return c.flags.emergencyEviction
}

func (c *Config) SetEmergencyEvictionEnabled(enabled bool) {
	c.mux.Lock()
	defer c.mux.Unlock()
	c.flags.emergencyEviction = enabled
}
