package cache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRunJanitor_ExpiresOldEntries(t *testing.T) {
	config := NewDefaultConfig()
	config.SetCleanupInterval(10 * time.Millisecond)
	config.SetMaxEntryAge(30 * time.Minute)
	coordinator := NewCoordinator(Options{Config: config})

	coordinator.Insert("fresh", "text", PageText)
	stale := Entry{Key: "stale", Value: "old", Type: PageText,
		CreatedAt: time.Now().Add(-time.Hour), AccessedAt: time.Now(), MemorySize: 3,
		Priority: DefaultPriority}
	coordinator.store.Insert(stale)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go RunJanitor(ctx, coordinator)

	require.Eventually(t, func() bool { return !coordinator.Contains("stale", PageText) },
		time.Second /*waitFor*/, 5*time.Millisecond /*tick*/, "The janitor should expire the stale entry")
	assert.True(t, coordinator.Contains("fresh", PageText))
}

func TestRunJanitor_RebalancesTypesOverTheirLimits(t *testing.T) {
	config := NewDefaultConfig()
	config.SetCleanupInterval(10 * time.Millisecond)
	config.SetPressureThreshold(2.0) // Keep the insert path from evicting before the janitor runs.
	config.SetCacheLimit(Thumbnail, 100)
	coordinator := NewCoordinator(Options{Config: config})

	coordinator.Insert("t:0", make([]byte, 40), Thumbnail)
	coordinator.Insert("t:1", make([]byte, 40), Thumbnail)
	coordinator.Insert("t:2", make([]byte, 40), Thumbnail)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go RunJanitor(ctx, coordinator)

	require.Eventually(t, func() bool { return coordinator.GetStats(Thumbnail).MemoryUsage <= 100 },
		time.Second /*waitFor*/, 5*time.Millisecond /*tick*/)
	assert.False(t, coordinator.Contains("t:0", Thumbnail), "The oldest entry pays for the excess")
}

func TestRunJanitor_StopsOnContextCancel(t *testing.T) {
	config := NewDefaultConfig()
	config.SetCleanupInterval(time.Hour) // The loop should exit without ever ticking.
	coordinator := NewCoordinator(Options{Config: config})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		RunJanitor(ctx, coordinator)
		close(done)
	}()

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("The janitor did not stop after the context was cancelled")
	}
}

func TestRunSystemMemoryMonitor_StopsOnContextCancel(t *testing.T) {
	config := NewDefaultConfig()
	config.SetSystemMemoryCheckInterval(time.Hour)
	coordinator := NewCoordinator(Options{Config: config})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		RunSystemMemoryMonitor(ctx, coordinator)
		close(done)
	}()

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("The system memory monitor did not stop after the context was cancelled")
	}
}

func TestCheckSystemMemory_ReportsAboveTheThreshold(t *testing.T) {
	config := NewDefaultConfig()
	config.SetSystemMemoryThreshold(0.0) // Any nonzero heap usage crosses a zero threshold.
	coordinator := NewCoordinator(Options{Config: config})
	recorder := newObserverRecorder()
	coordinator.RegisterMemoryPressureObserver(recorder)

	checkSystemMemory(coordinator)
	require.Len(t, recorder.systemRatios, 1)
	assert.Positive(t, recorder.systemRatios[0])
}

func TestCheckSystemMemory_QuietBelowTheThreshold(t *testing.T) {
	config := NewDefaultConfig()
	config.SetSystemMemoryThreshold(1.1) // Heap-in-use can never exceed the memory obtained from the OS.
	coordinator := NewCoordinator(Options{Config: config})
	recorder := newObserverRecorder()
	coordinator.RegisterMemoryPressureObserver(recorder)

	checkSystemMemory(coordinator)
	assert.Empty(t, recorder.systemRatios)
}
