package main

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/pagelight/doccache/pkg/cache"
)

func TestWarmupPayloadSize(t *testing.T) {
	size := warmupPayloadSize("warmup/thumbnail/0")
	assert.Equal(t, size, warmupPayloadSize("warmup/thumbnail/0"),
		"Payload sizes must be stable across runs")
	assert.GreaterOrEqual(t, size, warmupBaseSize)
	assert.Less(t, size, warmupBaseSize+warmupSizeSpread)
}

func TestPreloadWarmupEntries(t *testing.T) {
	coordinator := cache.NewCoordinator(cache.Options{})

	preloadWarmupEntries(coordinator)
	assert.Equal(t, len(cache.AllTypes())*warmupEntriesPerType, coordinator.EntryCount())
	for _, typ := range cache.AllTypes() {
		assert.True(t, coordinator.Contains("warmup/"+typ.String()+"/0", typ))
	}
}

func TestPreloadWarmupEntries_SkipsDisabledTypes(t *testing.T) {
	coordinator := cache.NewCoordinator(cache.Options{})
	coordinator.Config().SetEnabledFor(cache.PdfRender, false)

	preloadWarmupEntries(coordinator)
	assert.Equal(t, (len(cache.AllTypes())-1)*warmupEntriesPerType, coordinator.EntryCount())
	assert.False(t, coordinator.Contains("warmup/pdf_render/0", cache.PdfRender))
}
