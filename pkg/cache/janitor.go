// The engine itself is fully synchronous; periodic upkeep is the caller's job. RunJanitor is that caller: a
// background loop that expires old entries, rebalances types over their own limits and re-checks memory
// pressure at the configured cleanup interval.

package cache

import (
	"context"
	"log/slog"
	"time"
)

// RunJanitor drives the coordinator's periodic eviction policies until the context is cancelled. The interval
// is re-read from the configuration on every cycle, so interval changes take effect on the next tick.
func RunJanitor(ctx context.Context, coordinator *Coordinator) {
	slog.Info("Cache janitor started.", "interval", coordinator.Config().CleanupInterval())
	timer := time.NewTimer(coordinator.Config().CleanupInterval())
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			slog.Info("Cache janitor stopped.")
			return
		case <-timer.C:
			config := coordinator.Config()
			if maxAge := config.MaxEntryAge(); maxAge > 0 {
				coordinator.EvictExpired(maxAge)
			}
			if config.AdaptiveMemoryEnabled() {
				coordinator.PerformAdaptiveEviction()
			}
			coordinator.HandleMemoryPressure()
			timer.Reset(config.CleanupInterval())
		}
	}
}
