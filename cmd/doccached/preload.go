package main

import (
	"fmt"
	"log/slog"

	"github.com/cespare/xxhash/v2"

	"github.com/pagelight/doccache/pkg/cache"
)

const (
	warmupEntriesPerType = 32
	warmupBaseSize       = 1 << 10 // Smallest warmup payload, 1 KiB.
	warmupSizeSpread     = 4 << 10 // Payload sizes vary deterministically within this range.
)

// warmupPayloadSize derives a stable pseudo-random payload size from the key, so repeated daemon runs produce
// identical warmup footprints and dashboards stay comparable across restarts.
func warmupPayloadSize(key string) int {
	return warmupBaseSize + int(xxhash.Sum64String(key)%warmupSizeSpread)
}

// preloadWarmupEntries seeds deterministic placeholder entries for every cache type, so eviction behavior and
// dashboards can be validated before real document traffic arrives.
func preloadWarmupEntries(coordinator *cache.Coordinator) {
	inserted := 0
	for _, typ := range cache.AllTypes() {
		for i := 0; i < warmupEntriesPerType; i++ {
			key := fmt.Sprintf("warmup/%s/%d", typ.String(), i)
			if coordinator.Insert(key, make([]byte, warmupPayloadSize(key)), typ) {
				inserted++
			}
		}
	}
	slog.Info("Preloaded warmup entries.", "count", inserted,
		"memoryUsage", coordinator.TotalMemoryUsage())
}
