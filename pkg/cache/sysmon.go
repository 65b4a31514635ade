// The system memory monitor watches the process's heap against what the Go runtime has obtained from the OS
// and feeds host-tier pressure observations into the coordinator. It is the out-of-band counterpart of the
// engine's own usage/limit accounting: the engine only ever learns about host pressure through
// ReportSystemMemoryPressure.

package cache

import (
	"context"
	"log/slog"
	"runtime"
	"time"
)

// RunSystemMemoryMonitor samples runtime memory statistics at the configured check interval until the context
// is cancelled. When heap-in-use crosses the configured fraction of the memory obtained from the OS it reports
// system pressure and, when emergency eviction is enabled, enforces the cache's total limit to shed load.
func RunSystemMemoryMonitor(ctx context.Context, coordinator *Coordinator) {
	slog.Info("System memory monitor started.",
		"interval", coordinator.Config().SystemMemoryCheckInterval())
	timer := time.NewTimer(coordinator.Config().SystemMemoryCheckInterval())
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			slog.Info("System memory monitor stopped.")
			return
		case <-timer.C:
			config := coordinator.Config()
			if config.SystemMemoryMonitoringEnabled() {
				checkSystemMemory(coordinator)
			}
			timer.Reset(config.SystemMemoryCheckInterval())
		}
	}
}

// checkSystemMemory performs one sampling pass.
func checkSystemMemory(coordinator *Coordinator) {
	var stats runtime.MemStats
	runtime.ReadMemStats(&stats)
	if stats.Sys == 0 {
		return
	}

	ratio := float64(stats.HeapInuse) / float64(stats.Sys)
	if ratio < coordinator.Config().SystemMemoryThreshold() {
		return
	}

	coordinator.ReportSystemMemoryPressure(ratio)
	if coordinator.Config().EmergencyEvictionEnabled() {
		coordinator.EnforceMemoryLimits()
	}
}
