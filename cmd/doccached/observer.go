package main

import (
	"log/slog"

	"github.com/pagelight/doccache/pkg/cache"
)

// eventLogger surfaces cache engine notifications as structured logs. It stands in for the document viewer's
// UI layer, which consumes the same observer contracts to refresh views and surface pressure warnings.
type eventLogger struct{}

func newEventLogger() *eventLogger {
	return &eventLogger{}
}

func (l *eventLogger) OnUpdated(typ cache.Type, key string) {
	slog.Debug("Cache entry updated.", "type", typ.String(), "key", key)
}

func (l *eventLogger) OnCleared(typ cache.Type) {
	slog.Info("Cache type cleared.", "type", typ.String())
}

func (l *eventLogger) OnEvicted(typ cache.Type, key string, reason string) {
	if key == "" { // Bulk eviction summary.
		slog.Info("Cache eviction occurred.", "type", typ.String(), "reason", reason)
		return
	}
	slog.Debug("Cache entry evicted.", "type", typ.String(), "key", key, "reason", reason)
}

func (l *eventLogger) OnConfigChanged(typ cache.Type) {
	slog.Info("Cache configuration changed.", "type", typ.String())
}

func (l *eventLogger) OnGlobalConfigChanged() {
	slog.Info("Global cache configuration changed.")
}

func (l *eventLogger) OnMemoryLimitExceeded(usage, limit int64) {
	slog.Warn("Cache memory limit exceeded.", "usage", usage, "limit", limit)
}

func (l *eventLogger) OnMemoryPressureDetected(ratio float64) {
	slog.Warn("Cache memory pressure detected.", "ratio", ratio)
}

func (l *eventLogger) OnSystemMemoryPressureDetected(ratio float64) {
	slog.Warn("System memory pressure detected.", "ratio", ratio)
}

var (
	_ cache.DataObserver           = (*eventLogger)(nil)
	_ cache.ConfigObserver         = (*eventLogger)(nil)
	_ cache.MemoryPressureObserver = (*eventLogger)(nil)
)
