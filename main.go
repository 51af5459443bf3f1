package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/coreos/go-systemd/v22/daemon"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/prometheus/exporter-toolkit/web"
	"golang.org/x/sync/errgroup"

	"mikrotik-exporter/internal/api"
	"mikrotik-exporter/internal/config"
	"mikrotik-exporter/internal/metrics"
	"mikrotik-exporter/internal/pool"
	"mikrotik-exporter/internal/routeros"
	"mikrotik-exporter/internal/scheduler"
)

func main() {
	cfg, err := config.Load(nil)
	if err != nil {
		slog.Error("invalid configuration", "err", err)
		os.Exit(1)
	}

	logger := config.SetupLogging(&cfg.LogLevel, &cfg.LogFormat)
	logger.Info("starting mikrotik-exporter", "routers", len(cfg.Routers), "collection_interval", cfg.CollectionInterval)

	registry := metrics.New()

	reg := prometheus.NewRegistry()
	reg.MustRegister(registry)
	reg.MustRegister(collectors.NewGoCollector())
	reg.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	connPool := pool.New(routeros.Connect)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	group, groupCtx := errgroup.WithContext(ctx)

	for _, router := range cfg.Routers {
		s := scheduler.New(router, connPool, registry, cfg.CollectionInterval, logger)

		group.Go(func() error {
			s.Run(groupCtx)
			return nil
		})
	}

	group.Go(func() error {
		return watchdogLoop(groupCtx, logger)
	})

	group.Go(func() error {
		return poolStatsLoop(groupCtx, connPool, registry)
	})

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	mux.Handle("/health", api.HealthHandler(cfg.Routers, connPool))

	server := &http.Server{Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	group.Go(func() error {
		return runServer(groupCtx, server, cfg.ServerAddr, logger)
	})

	if _, err := daemon.SdNotify(false, daemon.SdNotifyReady); err != nil {
		logger.Warn("systemd notify ready failed", "err", err)
	}

	if err := group.Wait(); err != nil {
		logger.Error("exporter exited with error", "err", err)
		os.Exit(1)
	}

	connPool.Close()
	logger.Info("shutdown complete")
}

func runServer(ctx context.Context, server *http.Server, addr string, logger *slog.Logger) error {
	listenAddrs := []string{addr}
	flagConfig := &web.FlagConfig{
		WebListenAddresses: &listenAddrs,
		WebSystemdSocket:   boolPtr(false),
		WebConfigFile:      stringPtr(""),
	}

	errCh := make(chan error, 1)

	go func() {
		errCh <- web.ListenAndServe(server, flagConfig, logger)
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		return server.Shutdown(shutdownCtx)
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}

		return nil
	}
}

// watchdogLoop pings systemd's watchdog at half its configured interval,
// a no-op when the exporter isn't run under systemd.
func watchdogLoop(ctx context.Context, logger *slog.Logger) error {
	interval, err := daemon.SdWatchdogEnabled(false)
	if err != nil || interval == 0 {
		return nil
	}

	ticker := time.NewTicker(interval / 2)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if _, err := daemon.SdNotify(false, daemon.SdNotifyWatchdog); err != nil {
				logger.Warn("systemd watchdog notify failed", "err", err)
			}
		}
	}
}

// poolStatsLoop periodically mirrors the pool's aggregate size/active
// counts into the registry (connection_pool_size / connection_pool_active,
// spec §4.5 have no labels and no natural per-tick owner).
func poolStatsLoop(ctx context.Context, p *pool.Pool, registry *metrics.Registry) error {
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			registry.SetPoolStats(p.Size(), p.Active())
		}
	}
}

func boolPtr(b bool) *bool       { return &b }
func stringPtr(s string) *string { return &s }
