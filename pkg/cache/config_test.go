package cache

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pagelight/doccache/pkg/utils"
)

func TestConfig_Defaults(t *testing.T) {
	config := NewDefaultConfig()

	assert.Equal(t, int64(DefaultTotalMemoryLimit), config.TotalMemoryLimit())
	assert.Equal(t, int64(DefaultPdfRenderLimit), config.CacheLimit(PdfRender))
	assert.Equal(t, int64(DefaultThumbnailLimit), config.CacheLimit(Thumbnail))
	for _, typ := range AllTypes() {
		assert.True(t, config.EnabledFor(typ), "Every type should be enabled by default")
		assert.Equal(t, StrategyLRU, config.EvictionStrategy(typ))
	}
	assert.InDelta(t, DefaultPressureThreshold, config.PressureThreshold(), 1e-9)
	assert.InDelta(t, DefaultWarningThreshold, config.WarningThreshold(), 1e-9)
	assert.InDelta(t, DefaultCriticalThreshold, config.CriticalThreshold(), 1e-9)
	assert.Equal(t, DefaultCleanupInterval, config.CleanupInterval())
	assert.Zero(t, config.MaxEntryAge(), "Age-based expiry should be disabled by default")
	assert.True(t, config.LRUEvictionEnabled())
	assert.True(t, config.CacheCoordinationEnabled())
	assert.False(t, config.PredictiveEvictionEnabled())
	assert.False(t, config.EmergencyEvictionEnabled())
	assert.False(t, config.PreloadingEnabled())
}

func TestConfig_SettersAndGetters(t *testing.T) {
	config := NewDefaultConfig()

	config.SetTotalMemoryLimit(1 << 30)
	assert.Equal(t, int64(1<<30), config.TotalMemoryLimit())

	config.SetCacheLimit(Thumbnail, 1234)
	assert.Equal(t, int64(1234), config.CacheLimit(Thumbnail))

	config.SetEvictionStrategy(PageText, StrategyLFU)
	assert.Equal(t, StrategyLFU, config.EvictionStrategy(PageText))

	config.SetEnabledFor(SearchResult, false)
	assert.False(t, config.EnabledFor(SearchResult))
	assert.True(t, config.EnabledFor(PageText), "Disabling one type must not disable another")

	config.SetMaxEntryAge(time.Hour)
	assert.Equal(t, time.Hour, config.MaxEntryAge())

	config.SetPredictiveEvictionEnabled(true)
	assert.True(t, config.PredictiveEvictionEnabled())

	config.SetWarningThreshold(0.5)
	assert.InDelta(t, 0.5, config.WarningThreshold(), 1e-9)
}

func TestConfig_PerTypeLimitMayExceedTotal(t *testing.T) {
	config := NewDefaultConfig()

	// The configuration store is a pure value holder and accepts over-committed limits.
	config.SetTotalMemoryLimit(100)
	config.SetCacheLimit(PdfRender, 1000)
	assert.Equal(t, int64(1000), config.CacheLimit(PdfRender))
}

func TestConfig_FlatRoundTrip(t *testing.T) {
	config := NewDefaultConfig()
	config.SetTotalMemoryLimit(1 << 28)
	config.SetCacheLimit(Thumbnail, 1 << 20)
	config.SetEvictionStrategy(PdfRender, StrategyFIFO)
	config.SetEnabledFor(SearchHighlight, false)
	config.SetPredictiveEvictionEnabled(true)
	config.SetEmergencyEvictionEnabled(true)
	config.SetWarningThreshold(0.6)
	config.SetMaxEntryAge(90 * time.Second)

	restored := NewDefaultConfig()
	restored.FromFlat(config.ToFlat())

	assert.Equal(t, config.ToFlat(), restored.ToFlat(), "Export, import and re-export should be lossless")
	assert.Equal(t, int64(1<<28), restored.TotalMemoryLimit())
	assert.Equal(t, StrategyFIFO, restored.EvictionStrategy(PdfRender))
	assert.False(t, restored.EnabledFor(SearchHighlight))
	assert.True(t, restored.PredictiveEvictionEnabled())
	assert.InDelta(t, 0.6, restored.WarningThreshold(), 1e-9)
	assert.Equal(t, 90*time.Second, restored.MaxEntryAge())
}

func TestConfig_FlatRoundTripBoundaryFractions(t *testing.T) {
	config := NewDefaultConfig()
	config.SetWarningThreshold(0.0)
	config.SetCriticalThreshold(1.0)

	flat := config.ToFlat()
	assert.Equal(t, 0, flat.WarningThresholdPercent)
	assert.Equal(t, 100, flat.CriticalThresholdPercent)

	restored := NewDefaultConfig()
	restored.FromFlat(flat)
	assert.InDelta(t, 0.0, restored.WarningThreshold(), 1e-9)
	assert.InDelta(t, 1.0, restored.CriticalThreshold(), 1e-9)
}

func TestConfig_FromFlatSkipsUnknownTypeNames(t *testing.T) {
	config := NewDefaultConfig()
	flat := config.ToFlat()
	flat.TypeLimitsBytes["bogus_type"] = 42

	before := utils.GetMetricValue("config" /*module*/, "unknown_type_limit" /*invariantType*/)
	config.FromFlat(flat)
	after := utils.GetMetricValue("config" /*module*/, "unknown_type_limit" /*invariantType*/)

	assert.Equal(t, before+1, after, "The unknown name should be counted as an invariant violation")
	for _, typ := range AllTypes() {
		assert.Positive(t, config.CacheLimit(typ), "Known type limits must survive the import")
	}
}

func TestConfig_FlatFileRoundTrip(t *testing.T) {
	config := NewDefaultConfig()
	config.SetTotalMemoryLimit(777)
	config.SetCleanupInterval(5 * time.Second)

	path := filepath.Join(t.TempDir(), "doccache.yaml")
	require.NoError(t, SaveFlatConfig(path, config.ToFlat()))

	loaded, err := LoadFlatConfig(path)
	require.NoError(t, err)
	assert.Equal(t, config.ToFlat(), loaded)

	_, err = LoadFlatConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err, "Loading a missing file should fail")
}
