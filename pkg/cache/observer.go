// Observers are how the UI and monitoring layers watch the cache without participating in its locking. The
// coordinator owns four independent observer registries; registration is idempotent, unregistration explicit,
// and callbacks are invoked synchronously on the caller's goroutine, so they must be fast and must not call
// back into the coordinator.

package cache

import "sync"

// DataObserver is notified of entry-level changes. Bulk eviction summaries arrive as OnEvicted calls with an
// empty key.
type DataObserver interface {
	OnUpdated(typ Type, key string)
	OnCleared(typ Type)
	OnEvicted(typ Type, key string, reason string)
}

// StatsObserver is notified once per type on every coordinator-level statistics refresh, plus a global update.
type StatsObserver interface {
	OnStatsUpdated(typ Type, stats Stats)
	OnGlobalStatsUpdated(totalMemory int64, globalHitRatio float64)
}

// ConfigObserver is notified of configuration changes.
type ConfigObserver interface {
	OnConfigChanged(typ Type)
	OnGlobalConfigChanged()
}

// MemoryPressureObserver is notified of cache-level and host-level memory pressure.
type MemoryPressureObserver interface {
	OnMemoryLimitExceeded(usage, limit int64)
	OnMemoryPressureDetected(ratio float64)
	OnSystemMemoryPressureDetected(ratio float64)
}

// Eviction reason texts passed to DataObserver.OnEvicted.
const (
	ReasonManualRemoval = "manual removal"
	ReasonLRUEviction   = "LRU eviction"
	ReasonMemoryLimit   = "memory limit eviction"
	ReasonEmergency     = "emergency eviction"
)

// observerList is an owned registry of observer handles. Registering the same observer twice is a no-op;
// iteration works on a snapshot so callbacks may register or unregister observers of other categories.
// The element type is any because Go interfaces cannot instantiate a comparable type parameter; the
// coordinator's typed register methods keep each list homogeneous.
type observerList struct {
	mux       sync.Mutex
	observers []any
}

// register adds the observer if it is not already present.
func (l *observerList) register(observer any) {
	if observer == nil {
		return
	}
	l.mux.Lock()
	defer l.mux.Unlock()
	for _, existing := range l.observers {
		if existing == observer {
			return
		}
	}
	l.observers = append(l.observers, observer)
}

// unregister removes the observer if present.
func (l *observerList) unregister(observer any) {
	l.mux.Lock()
	defer l.mux.Unlock()
	for i, existing := range l.observers {
		if existing == observer {
			l.observers = append(l.observers[:i], l.observers[i+1:]...)
			return
		}
	}
}

// snapshot returns a copy of the registered observers for lock-free iteration.
func (l *observerList) snapshot() []any {
	l.mux.Lock()
	defer l.mux.Unlock()
	observers := make([]any, len(l.observers))
	copy(observers, l.observers)
	return observers
}
