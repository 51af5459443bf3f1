// Package collector turns RouterOS query results into strongly-shaped
// records (spec §4.4). Each collector is a pure transformation: it never
// lets the raw AttrMap escape past its own boundary (spec §9).
package collector

import (
	"time"

	"mikrotik-exporter/internal/routeros"
)

// Querier is the subset of *routeros.Connection each collector needs,
// so collectors can be tested against a fake without a real socket.
type Querier interface {
	Query(command string, attrs []string, timeout time.Duration) ([]routeros.AttrMap, error)
}

// InterfaceStat is one row of /interface/print stats output.
type InterfaceStat struct {
	Name      string
	Running   bool
	RxBytes   uint64
	TxBytes   uint64
	RxPackets uint64
	TxPackets uint64
	RxErrors  uint64
	TxErrors  uint64
}

// SystemResource is the parsed /system/resource/print row.
type SystemResource struct {
	CPULoad       uint8
	FreeMemory    uint64
	TotalMemory   uint64
	UptimeSeconds float64
	// UptimeErr is set when the uptime field failed to parse; the rest
	// of the record is still valid (spec §4.4.1).
	UptimeErr error
}

// SystemIdentity is the router's board name and installed RouterOS
// version.
type SystemIdentity struct {
	Board   string
	Version string
}

// ConntrackCount is one aggregated connection-tracking row, grouped by
// (src_address, protocol, ip_version) per spec §4.4.
type ConntrackCount struct {
	SrcAddress string
	Protocol   string
	IPVersion  string
	Count      int
}

// WireGuardPeer is one row of /interface/wireguard/peers/print, keyed by
// AllowedAddress rather than public key (spec §4.4, to avoid leaking
// secret-adjacent material as a Prometheus label).
type WireGuardPeer struct {
	Interface         string
	AllowedAddress    string
	Name              string
	Endpoint          string
	RxBytes           uint64
	TxBytes           uint64
	LastHandshakeSecs float64
	// HandshakeErr is set when last-handshake failed to parse; the rest
	// of the record is still valid.
	HandshakeErr error
}
