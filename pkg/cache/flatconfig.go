// FlatConfig is the flat, language-agnostic twin of the configuration record, used for import and export.
// Threshold fractions are represented as whole-percent integers and durations as millisecond integers at this
// boundary; the conversion back and forth is lossless for whole-percent fractions, including 0.0 and 1.0.

package cache

import (
	"fmt"
	"math"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/pagelight/doccache/pkg/utils"
)

// FlatConfig is the serializable configuration record. Per-type maps are keyed by the stable type names
// returned by Type.String.
type FlatConfig struct {
	TotalMemoryLimitBytes int64             `yaml:"total_memory_limit_bytes"`
	TypeLimitsBytes       map[string]int64  `yaml:"type_limits_bytes"`
	TypeStrategies        map[string]string `yaml:"type_strategies"`
	TypeEnabled           map[string]bool   `yaml:"type_enabled"`

	LRUEvictionEnabled            bool `yaml:"lru_eviction_enabled"`
	MemoryPressureEvictionEnabled bool `yaml:"memory_pressure_eviction_enabled"`
	CacheCoordinationEnabled      bool `yaml:"cache_coordination_enabled"`
	AdaptiveMemoryEnabled         bool `yaml:"adaptive_memory_enabled"`
	PreloadingEnabled             bool `yaml:"preloading_enabled"`
	SystemMemoryMonitoringEnabled bool `yaml:"system_memory_monitoring_enabled"`
	PredictiveEvictionEnabled     bool `yaml:"predictive_eviction_enabled"`
	MemoryCompressionEnabled      bool `yaml:"memory_compression_enabled"` // Reserved; carried but unused.
	EmergencyEvictionEnabled      bool `yaml:"emergency_eviction_enabled"`

	PressureThresholdPercent     int `yaml:"pressure_threshold_percent"`
	WarningThresholdPercent      int `yaml:"warning_threshold_percent"`
	CriticalThresholdPercent     int `yaml:"critical_threshold_percent"`
	SystemMemoryThresholdPercent int `yaml:"system_memory_threshold_percent"`

	CleanupIntervalMs           int64 `yaml:"cleanup_interval_ms"`
	SystemMemoryCheckIntervalMs int64 `yaml:"system_memory_check_interval_ms"`
	MaxEntryAgeMs               int64 `yaml:"max_entry_age_ms"`
}

// fractionToPercent converts an internal 0.0–1.0 fraction to a whole-percent integer.
func fractionToPercent(fraction float64) int {
	return int(math.Round(fraction * 100))
}

// percentToFraction converts a whole-percent integer back to the internal fraction representation.
func percentToFraction(percent int) float64 {
	return float64(percent) / 100.0
}

// ToFlat exports the configuration record as a flat structure under a single lock acquisition.
func (c *Config) ToFlat() FlatConfig {
	c.mux.RLock()
	defer c.mux.RUnlock()

	flat := FlatConfig{
		TotalMemoryLimitBytes: c.totalLimit,
		TypeLimitsBytes:       make(map[string]int64, len(c.typeLimits)),
		TypeStrategies:        make(map[string]string, len(c.strategies)),
		TypeEnabled:           make(map[string]bool, len(c.enabled)),

		LRUEvictionEnabled:            c.flags.lruEviction,
		MemoryPressureEvictionEnabled: c.flags.memoryPressureEviction,
		CacheCoordinationEnabled:      c.flags.cacheCoordination,
		AdaptiveMemoryEnabled:         c.flags.adaptiveMemory,
		PreloadingEnabled:             c.flags.preloading,
		SystemMemoryMonitoringEnabled: c.flags.systemMemoryMonitoring,
		PredictiveEvictionEnabled:     c.flags.predictiveEviction,
		MemoryCompressionEnabled:      c.flags.memoryCompression,
		EmergencyEvictionEnabled:      c.flags.emergencyEviction,

		PressureThresholdPercent:     fractionToPercent(c.pressureThreshold),
		WarningThresholdPercent:      fractionToPercent(c.warningThreshold),
		CriticalThresholdPercent:     fractionToPercent(c.criticalThreshold),
		SystemMemoryThresholdPercent: fractionToPercent(c.systemMemoryThreshold),

		CleanupIntervalMs:           c.cleanupInterval.Milliseconds(),
		SystemMemoryCheckIntervalMs: c.systemCheckInterval.Milliseconds(),
		MaxEntryAgeMs:               c.maxEntryAge.Milliseconds(),
	}
	for typ, limit := range c.typeLimits {
		flat.TypeLimitsBytes[typ.String()] = limit
	}
	for typ, strategy := range c.strategies {
		flat.TypeStrategies[typ.String()] = strategy
	}
	for typ, enabled := range c.enabled {
		flat.TypeEnabled[typ.String()] = enabled
	}
	return flat
}

// FromFlat overwrites every configuration field from the flat structure under a single lock acquisition, so a
// partially applied configuration is never externally observable. Unknown type names in the per-type maps are
// invariant violations and are skipped.
func (c *Config) FromFlat(flat FlatConfig) {
	c.mux.Lock()
	defer c.mux.Unlock()

	c.totalLimit = flat.TotalMemoryLimitBytes
	for name, limit := range flat.TypeLimitsBytes {
		typ, err := ParseType(name)
		if err != nil {
			utils.RaiseInvariant("config", "unknown_type_limit", "Skipping a limit for an unknown cache type.",
				"type", name)
			continue
		}
		c.typeLimits[typ] = limit
	}
	for name, strategy := range flat.TypeStrategies {
		typ, err := ParseType(name)
		if err != nil {
			utils.RaiseInvariant("config", "unknown_type_strategy",
				"Skipping a strategy for an unknown cache type.", "type", name)
			continue
		}
		c.strategies[typ] = strategy
	}
	for name, enabled := range flat.TypeEnabled {
		typ, err := ParseType(name)
		if err != nil {
			utils.RaiseInvariant("config", "unknown_type_enabled",
				"Skipping an enabled flag for an unknown cache type.", "type", name)
			continue
		}
		c.enabled[typ] = enabled
	}

	c.flags = featureFlags{
		lruEviction:            flat.LRUEvictionEnabled,
		memoryPressureEviction: flat.MemoryPressureEvictionEnabled,
		cacheCoordination:      flat.CacheCoordinationEnabled,
		adaptiveMemory:         flat.AdaptiveMemoryEnabled,
		preloading:             flat.PreloadingEnabled,
		systemMemoryMonitoring: flat.SystemMemoryMonitoringEnabled,
		predictiveEviction:     flat.PredictiveEvictionEnabled,
		memoryCompression:      flat.MemoryCompressionEnabled,
		emergencyEviction:      flat.EmergencyEvictionEnabled,
	}

	c.pressureThreshold = percentToFraction(flat.PressureThresholdPercent)
	c.warningThreshold = percentToFraction(flat.WarningThresholdPercent)
	c.criticalThreshold = percentToFraction(flat.CriticalThresholdPercent)
	c.systemMemoryThreshold = percentToFraction(flat.SystemMemoryThresholdPercent)

	c.cleanupInterval = time.Duration(flat.CleanupIntervalMs) * time.Millisecond
	c.systemCheckInterval = time.Duration(flat.SystemMemoryCheckIntervalMs) * time.Millisecond
	c.maxEntryAge = time.Duration(flat.MaxEntryAgeMs) * time.Millisecond
}

// LoadFlatConfig reads a flat configuration record from a YAML file.
func LoadFlatConfig(path string) (FlatConfig, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return FlatConfig{}, fmt.Errorf("failed to read config file: %w", err)
	}
	var flat FlatConfig
	if err := yaml.Unmarshal(content, &flat); err != nil {
		return FlatConfig{}, fmt.Errorf("failed to parse config file: %w", err)
	}
	return flat, nil
}

// SaveFlatConfig writes a flat configuration record to a YAML file.
func SaveFlatConfig(path string, flat FlatConfig) error {
	content, err := yaml.Marshal(flat)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := os.WriteFile(path, content, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}
