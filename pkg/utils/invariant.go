// Package utils carries the cross-cutting plumbing of doccache: logging setup, build info and invariants.
//
// Invariants are conditions the code guarantees about itself; a violated invariant is a bug, not an
// environmental failure. Think of what you'd `panic()` on, except the cache engine must keep serving a
// document viewer, so a violation records an error log and bumps a monitoring counter instead of crashing.
// It remains the caller's job to handle the erroneous case, typically by clamping the value or returning
// early. Do not raise invariants for conditions caused by external factors such as an unreadable config file.

package utils

import (
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	promclient "github.com/prometheus/client_model/go"
)

var invariantsMetric = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "doccache_invariants_total",
	Help: "The total number of invariant violations",
}, []string{
	"module", // The module in which this invariant occurred.
	"type",   // The type of the invariant that occurred.
})

// RaiseInvariant records an invariant violation: an error log plus a counter increment. In test mode it
// panics so tests fail loudly on bugs that production would absorb.
func RaiseInvariant(module, invariantType, msg string, args ...any) {
	invariantsMetric.WithLabelValues(module, invariantType).Inc()
	slog.With("invariant", invariantType, "module", module).Error(msg, args...)
	if IsTestMode {
		panic("invariant violated: " + invariantType)
	}
}

// GetMetricValue returns the current value of the invariant metric with the given module and type labels.
func GetMetricValue(module, invariantType string) int {
	var metric = &promclient.Metric{}
	if err := invariantsMetric.WithLabelValues(module, invariantType).Write(metric); err != nil {
		slog.Error(err.Error())
		return 0
	}
	return int(metric.Counter.GetValue())
}
