package collector

import (
	"fmt"
	"time"
)

// WireGuardPeerCollector fetches per-peer traffic counters and handshake
// age from /interface/wireguard/peers/print (spec §4.4). Peers are keyed
// by allowed-address rather than public key, so no key material ever
// reaches a metric label.
type WireGuardPeerCollector struct{}

func NewWireGuardPeerCollector() *WireGuardPeerCollector { return &WireGuardPeerCollector{} }

func (c *WireGuardPeerCollector) Collect(q Querier, timeout time.Duration) ([]WireGuardPeer, error) {
	rows, err := q.Query("/interface/wireguard/peers/print",
		[]string{"=.proplist=interface,allowed-address,name,current-endpoint-address,current-endpoint-port,rx,tx,last-handshake"},
		timeout)
	if err != nil {
		return nil, fmt.Errorf("wireguard peers print: %w", err)
	}

	peers := make([]WireGuardPeer, 0, len(rows))

	for _, row := range rows {
		allowedAddress := row["allowed-address"]
		if allowedAddress == "" {
			continue
		}

		rxBytes, err := parseUint64(row, "rx")
		if err != nil {
			continue
		}

		txBytes, err := parseUint64(row, "tx")
		if err != nil {
			continue
		}

		peer := WireGuardPeer{
			Interface:      row["interface"],
			AllowedAddress: allowedAddress,
			Name:           row["name"],
			Endpoint:       wireguardEndpoint(row),
			RxBytes:        rxBytes,
			TxBytes:        txBytes,
		}

		if handshake := row["last-handshake"]; handshake == "" || handshake == "never" {
			peer.HandshakeErr = fmt.Errorf("no handshake recorded")
		} else if secs, err := ParseDuration(handshake); err != nil {
			peer.HandshakeErr = err
		} else {
			peer.LastHandshakeSecs = secs
		}

		peers = append(peers, peer)
	}

	return peers, nil
}

func wireguardEndpoint(row map[string]string) string {
	addr := row["current-endpoint-address"]
	if addr == "" {
		return ""
	}

	port := row["current-endpoint-port"]
	if port == "" {
		return addr
	}

	return addr + ":" + port
}
