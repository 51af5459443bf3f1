// Package scheduler runs one cooperative tick loop per router (spec
// §4.6): acquire a connection, run the collectors in a fixed order,
// update the Registry atomically, and report outcomes to the Pool.
package scheduler

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"mikrotik-exporter/internal/collector"
	"mikrotik-exporter/internal/config"
	"mikrotik-exporter/internal/metrics"
	"mikrotik-exporter/internal/pool"
	"mikrotik-exporter/internal/roserr"
	"mikrotik-exporter/internal/routeros"
)

// Scheduler drives one router's tick loop.
type Scheduler struct {
	router   config.RouterSpec
	pool     *pool.Pool
	registry *metrics.Registry
	log      *slog.Logger

	interval     time.Duration
	queryTimeout time.Duration
	dialTimeout  time.Duration

	interfaceCollector *collector.InterfaceCollector
	resourceCollector  *collector.SystemResourceCollector
	identityCollector  *collector.SystemIdentityCollector
	conntrackCollector *collector.ConntrackCollector
	wireguardCollector *collector.WireGuardPeerCollector
}

// New constructs a Scheduler for one router.
func New(router config.RouterSpec, p *pool.Pool, registry *metrics.Registry, interval time.Duration, log *slog.Logger) *Scheduler {
	return &Scheduler{
		router:             router,
		pool:               p,
		registry:           registry,
		log:                log.With("router", router.Name),
		interval:           interval,
		queryTimeout:       config.DefaultQueryTimeout,
		dialTimeout:        config.DefaultDialTimeout,
		interfaceCollector: collector.NewInterfaceCollector(),
		resourceCollector:  collector.NewSystemResourceCollector(),
		identityCollector:  collector.NewSystemIdentityCollector(),
		conntrackCollector: collector.NewConntrackCollector(),
		wireguardCollector: collector.NewWireGuardPeerCollector(),
	}
}

// Run loops at a fixed cadence until ctx is canceled (spec §4.6 step 8:
// schedule relative to tick_start, not tick completion; a slow tick
// does not push later ticks out further).
func (s *Scheduler) Run(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.tick(ctx)

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.tick(ctx)
		}
	}
}

func (s *Scheduler) tick(ctx context.Context) {
	tickStart := time.Now()

	err := s.pool.WithConnection(s.router.Name, s.router.Address, s.router.Username, s.router.Password, s.dialTimeout,
		func(conn *routeros.Connection) error {
			return s.runCollectors(ctx, conn)
		})

	s.registry.SetCollectionCycleDuration(s.router.Name, millisSince(tickStart))

	switch {
	case err == nil:
		s.pool.ReportSuccess(s.router.Name)
		s.registry.RecordScrapeSuccess(s.router.Name, millisSince(tickStart), float64(time.Now().Unix()))
	default:
		var backoffErr *roserr.BackoffError
		if !errors.As(err, &backoffErr) {
			s.pool.ReportFailure(s.router.Name)
		}

		s.registry.RecordScrapeError(s.router.Name)
		s.log.Warn("tick failed", "err", err)
	}

	s.registry.SetConsecutiveErrors(s.router.Name, s.pool.ConsecutiveErrors(s.router.Name))
}

// runCollectors runs every collector in the fixed order (spec §4.6 step
// 4); an individual collector failure is logged and does not stop the
// remaining collectors. Registry updates are withheld until every
// collector has returned (spec §4.6 step 5: the registry is updated
// "on full success"), so a partial tick leaves the prior complete
// snapshot in place instead of mixing fresh rows from the collectors
// that succeeded with a stale row from the one that didn't.
func (s *Scheduler) runCollectors(_ context.Context, conn *routeros.Connection) error {
	var (
		ifaceStats []collector.InterfaceStat
		resource   *collector.SystemResource
		identity   *collector.SystemIdentity
		conntrack  []collector.ConntrackCount
		wgPeers    []collector.WireGuardPeer
	)

	partial := false

	var err error

	if ifaceStats, err = s.interfaceCollector.Collect(conn, s.queryTimeout); err != nil {
		s.log.Warn("interface collector failed", "err", err)
		partial = true
	}

	if resource, err = s.resourceCollector.Collect(conn, s.queryTimeout); err != nil {
		s.log.Warn("system resource collector failed", "err", err)
		partial = true
	}

	if identity, err = s.identityCollector.Collect(conn, s.queryTimeout); err != nil {
		s.log.Warn("system identity collector failed", "err", err)
		partial = true
	}

	if conntrack, err = s.conntrackCollector.Collect(conn, s.queryTimeout); err != nil {
		s.log.Warn("conntrack collector failed", "err", err)
		partial = true
	}

	if wgPeers, err = s.wireguardCollector.Collect(conn, s.queryTimeout); err != nil {
		s.log.Warn("wireguard collector failed", "err", err)
		partial = true
	}

	if partial {
		return errPartialTick
	}

	s.registry.UpdateInterfaces(s.router.Name, ifaceStats)
	s.registry.UpdateSystemResource(s.router.Name, resource)
	s.registry.UpdateSystemIdentity(s.router.Name, identity)
	s.registry.UpdateConntrack(s.router.Name, conntrack)
	s.registry.UpdateWireGuard(s.router.Name, wgPeers)

	return nil
}

func millisSince(t time.Time) float64 {
	return float64(time.Since(t)) / float64(time.Millisecond)
}
