// Spins up the doccached daemon: the document cache engine plus everything needed to operate it — the
// background janitor, the system memory monitor, a Prometheus metrics endpoint and the read-only inspection
// port speaking the Redis protocol.

package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"

	"github.com/pagelight/doccache/pkg/cache"
	"github.com/pagelight/doccache/pkg/port"
	"github.com/pagelight/doccache/pkg/utils"
)

var (
	printVersion = flag.Bool("print_version", false, "Print the version and exit.")
	flatConfig   = flag.String("flat_config", "",
		"Optional path to a YAML file holding a flat cache configuration record.")
	metricsAddress = flag.String("metrics_address", ":9190", "The ip:port to serve Prometheus metrics on.")
)

func main() {
	flag.Parse()
	utils.InitLogging()

	if *printVersion {
		slog.Info("Doccached build info.", "version", utils.Version, "commit", utils.Commit,
			"build", utils.BuildTime)
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	signals := make(chan os.Signal, 1)
	signal.Notify(signals, os.Interrupt, os.Kill)

	go func() { // Listen for OS interrupts in the background.
		sig := <-signals
		slog.Info("Received termination signal, cancelling daemon context.", "signal", sig)
		cancel()
	}()

	config := cache.NewDefaultConfig()
	if *flatConfig != "" {
		flat, err := cache.LoadFlatConfig(*flatConfig)
		if err != nil {
			slog.Error("Failed to load the flat config file.", "error", err)
			os.Exit(1)
		}
		config.FromFlat(flat)
		slog.Info("Applied the flat config file.", "path", *flatConfig)
	}

	coordinator := cache.NewCoordinator(cache.Options{Config: config})
	events := newEventLogger()
	coordinator.RegisterDataObserver(events)
	coordinator.RegisterConfigObserver(events)
	coordinator.RegisterMemoryPressureObserver(events)

	if config.PreloadingEnabled() {
		preloadWarmupEntries(coordinator)
	}

	group, groupCtx := errgroup.WithContext(ctx)
	group.Go(func() error { return port.RunInspectionServer(groupCtx, coordinator) })
	group.Go(func() error { return runMetricsServer(groupCtx) })
	group.Go(func() error { cache.RunJanitor(groupCtx, coordinator); return nil })
	group.Go(func() error { cache.RunSystemMemoryMonitor(groupCtx, coordinator); return nil })

	if err := group.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		slog.Error("Doccached stopped.", "err", err)
		os.Exit(1)
	}
}

// runMetricsServer serves the default Prometheus registry over HTTP until the context is cancelled.
func runMetricsServer(ctx context.Context) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	server := &http.Server{Addr: *metricsAddress, Handler: mux}

	serverErrSignal := make(chan error, 1)
	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErrSignal <- err
		}
		close(serverErrSignal)
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancelShutdown()
		return server.Shutdown(shutdownCtx)
	case err := <-serverErrSignal:
		if err == nil {
			return nil
		}
		return fmt.Errorf("metrics server stopped unexpectedly: %w", err)
	}
}
