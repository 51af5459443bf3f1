// Package metrics owns the Metrics Registry (spec §4.5): per-router
// label-row maps fed by the Scheduler, rendered as Prometheus metrics
// through prometheus.Collector. Content-derived label families
// (interfaces, conntrack tuples, WireGuard peers, system_info) are
// replaced wholesale per router on each successful tick, so a renamed
// interface or a removed peer never leaves a stale series behind.
package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"

	"mikrotik-exporter/internal/collector"
)

const namespace = "mikrotik"

// Registry is a prometheus.Collector backed by data the Scheduler pushes
// in; Collect never talks to a router, it only renders whatever the
// Scheduler last wrote. Content-derived rows change only on a successful
// tick; the service rows are written on every tick.
type Registry struct {
	mu sync.RWMutex

	interfaces map[string]map[string]interfaceRow
	resources  map[string]resourceRow
	identities map[string]identityRow
	conntrack  map[string]map[conntrackKey]int
	wireguard  map[string]map[wireguardKey]wireguardRow
	service    map[string]serviceRow

	poolSize   int
	poolActive int

	descs descriptors
}

type descriptors struct {
	interfaceRxBytes   *prometheus.Desc
	interfaceTxBytes   *prometheus.Desc
	interfaceRxPackets *prometheus.Desc
	interfaceTxPackets *prometheus.Desc
	interfaceRxErrors  *prometheus.Desc
	interfaceTxErrors  *prometheus.Desc
	interfaceRunning   *prometheus.Desc

	systemCPULoad     *prometheus.Desc
	systemFreeMemory  *prometheus.Desc
	systemTotalMemory *prometheus.Desc
	systemUptime      *prometheus.Desc
	systemInfo        *prometheus.Desc

	connectionTrackingCount *prometheus.Desc

	wireguardPeerRxBytes         *prometheus.Desc
	wireguardPeerTxBytes         *prometheus.Desc
	wireguardPeerLatestHandshake *prometheus.Desc

	scrapeSuccess                      *prometheus.Desc
	scrapeErrors                       *prometheus.Desc
	scrapeDurationMilliseconds         *prometheus.Desc
	scrapeLastSuccessTimestampSeconds  *prometheus.Desc
	connectionConsecutiveErrors        *prometheus.Desc
	collectionCycleDurationMilliseconds *prometheus.Desc

	connectionPoolSize   *prometheus.Desc
	connectionPoolActive *prometheus.Desc
}

func desc(name, help string, labels ...string) *prometheus.Desc {
	return prometheus.NewDesc(prometheus.BuildFQName(namespace, "", name), help, labels, nil)
}

// New constructs an empty Registry; register it with a
// prometheus.Registerer at startup.
func New() *Registry {
	routerIface := []string{"router", "interface"}
	router := []string{"router"}
	wgLabels := []string{"router", "interface", "name", "allowed_address", "endpoint"}

	return &Registry{
		interfaces: map[string]map[string]interfaceRow{},
		resources:  map[string]resourceRow{},
		identities: map[string]identityRow{},
		conntrack:  map[string]map[conntrackKey]int{},
		wireguard:  map[string]map[wireguardKey]wireguardRow{},
		service:    map[string]serviceRow{},
		descs: descriptors{
			interfaceRxBytes:   desc("interface_rx_bytes", "Received bytes, per interface.", routerIface...),
			interfaceTxBytes:   desc("interface_tx_bytes", "Transmitted bytes, per interface.", routerIface...),
			interfaceRxPackets: desc("interface_rx_packets", "Received packets, per interface.", routerIface...),
			interfaceTxPackets: desc("interface_tx_packets", "Transmitted packets, per interface.", routerIface...),
			interfaceRxErrors:  desc("interface_rx_errors", "Receive errors, per interface.", routerIface...),
			interfaceTxErrors:  desc("interface_tx_errors", "Transmit errors, per interface.", routerIface...),
			interfaceRunning:   desc("interface_running", "1 if the interface is running.", routerIface...),

			systemCPULoad:     desc("system_cpu_load", "CPU load percentage.", router...),
			systemFreeMemory:  desc("system_free_memory_bytes", "Free memory in bytes.", router...),
			systemTotalMemory: desc("system_total_memory_bytes", "Total memory in bytes.", router...),
			systemUptime:      desc("system_uptime_seconds", "System uptime in seconds.", router...),
			systemInfo:        desc("system_info", "Constant 1, labeled with board and version.", "router", "version", "board"),

			connectionTrackingCount: desc("connection_tracking_count", "Connection-tracking entries per tuple.",
				"router", "src_address", "protocol", "ip_version"),

			wireguardPeerRxBytes:         desc("wireguard_peer_rx_bytes", "WireGuard peer received bytes.", wgLabels...),
			wireguardPeerTxBytes:         desc("wireguard_peer_tx_bytes", "WireGuard peer transmitted bytes.", wgLabels...),
			wireguardPeerLatestHandshake: desc("wireguard_peer_latest_handshake", "Seconds since the last WireGuard handshake.", wgLabels...),

			scrapeSuccess:                       desc("scrape_success", "Successful scrape count.", router...),
			scrapeErrors:                        desc("scrape_errors", "Failed scrape count.", router...),
			scrapeDurationMilliseconds:          desc("scrape_duration_milliseconds", "Duration of the last successful scrape.", router...),
			scrapeLastSuccessTimestampSeconds:   desc("scrape_last_success_timestamp_seconds", "Unix timestamp of the last successful scrape.", router...),
			connectionConsecutiveErrors:         desc("connection_consecutive_errors", "Consecutive connection failures.", router...),
			collectionCycleDurationMilliseconds: desc("collection_cycle_duration_milliseconds", "Duration of the last collection tick.", router...),

			connectionPoolSize:   desc("connection_pool_size", "Number of routers known to the connection pool."),
			connectionPoolActive: desc("connection_pool_active", "Number of routers with a live connection."),
		},
	}
}

// UpdateInterfaces replaces router's entire interface row-set (spec
// §4.5's stale-label discipline): an interface missing from stats is
// dropped, along with its counter rows.
func (r *Registry) UpdateInterfaces(router string, stats []collector.InterfaceStat) {
	rows := make(map[string]interfaceRow, len(stats))

	for _, s := range stats {
		rows[s.Name] = interfaceRow{
			running:   s.Running,
			rxBytes:   s.RxBytes,
			txBytes:   s.TxBytes,
			rxPackets: s.RxPackets,
			txPackets: s.TxPackets,
			rxErrors:  s.RxErrors,
			txErrors:  s.TxErrors,
		}
	}

	r.mu.Lock()
	r.interfaces[router] = rows
	r.mu.Unlock()
}

// UpdateSystemResource replaces router's CPU/memory/uptime gauges.
func (r *Registry) UpdateSystemResource(router string, res *collector.SystemResource) {
	row := resourceRow{
		cpuLoad:     res.CPULoad,
		freeMemory:  res.FreeMemory,
		totalMemory: res.TotalMemory,
	}

	if res.UptimeErr == nil {
		row.uptimeSeconds = res.UptimeSeconds
		row.hasUptime = true
	}

	r.mu.Lock()
	r.resources[router] = row
	r.mu.Unlock()
}

// UpdateSystemIdentity replaces router's system_info row.
func (r *Registry) UpdateSystemIdentity(router string, id *collector.SystemIdentity) {
	r.mu.Lock()
	r.identities[router] = identityRow{version: id.Version, board: id.Board}
	r.mu.Unlock()
}

// UpdateConntrack replaces router's entire conntrack tuple set.
func (r *Registry) UpdateConntrack(router string, counts []collector.ConntrackCount) {
	rows := make(map[conntrackKey]int, len(counts))

	for _, c := range counts {
		rows[conntrackKey{srcAddress: c.SrcAddress, protocol: c.Protocol, ipVersion: c.IPVersion}] = c.Count
	}

	r.mu.Lock()
	r.conntrack[router] = rows
	r.mu.Unlock()
}

// UpdateWireGuard replaces router's entire peer set, keyed by
// allowed-address (spec §4.4: never public key).
func (r *Registry) UpdateWireGuard(router string, peers []collector.WireGuardPeer) {
	rows := make(map[wireguardKey]wireguardRow, len(peers))

	for _, p := range peers {
		key := wireguardKey{iface: p.Interface, name: p.Name, allowedAddress: p.AllowedAddress, endpoint: p.Endpoint}
		row := wireguardRow{rxBytes: p.RxBytes, txBytes: p.TxBytes}

		if p.HandshakeErr == nil {
			row.handshakeSeconds = p.LastHandshakeSecs
			row.hasHandshake = true
		}

		rows[key] = row
	}

	r.mu.Lock()
	r.wireguard[router] = rows
	r.mu.Unlock()
}

// RecordScrapeSuccess increments scrape_success and stamps the
// success-timestamp and duration gauges.
func (r *Registry) RecordScrapeSuccess(router string, durationMillis float64, unixSeconds float64) {
	r.mu.Lock()
	defer r.mu.Unlock()

	row := r.service[router]
	row.scrapeSuccess++
	row.scrapeDurationMillis = durationMillis
	row.scrapeLastSuccessTimestamp = unixSeconds
	r.service[router] = row
}

// RecordScrapeError increments scrape_errors.
func (r *Registry) RecordScrapeError(router string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	row := r.service[router]
	row.scrapeErrors++
	r.service[router] = row
}

// SetConsecutiveErrors mirrors the pool's consecutive_errors for router.
func (r *Registry) SetConsecutiveErrors(router string, n int) {
	r.mu.Lock()
	defer r.mu.Unlock()

	row := r.service[router]
	row.consecutiveErrors = float64(n)
	r.service[router] = row
}

// SetCollectionCycleDuration records collection_cycle_duration_milliseconds,
// which is set on every tick regardless of outcome (spec §4.6 step 7).
func (r *Registry) SetCollectionCycleDuration(router string, millis float64) {
	r.mu.Lock()
	defer r.mu.Unlock()

	row := r.service[router]
	row.collectionCycleMillis = millis
	r.service[router] = row
}

// SetPoolStats records connection_pool_size / connection_pool_active.
func (r *Registry) SetPoolStats(size, active int) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.poolSize = size
	r.poolActive = active
}
