package collector

import (
	"fmt"
	"strings"
	"time"
)

// ConntrackCollector fetches IPv4 and IPv6 connection-tracking tables and
// aggregates rows by (src_address, protocol, ip_version), emitting a count
// per tuple rather than per-row (spec §4.4).
type ConntrackCollector struct{}

func NewConntrackCollector() *ConntrackCollector { return &ConntrackCollector{} }

func (c *ConntrackCollector) Collect(q Querier, timeout time.Duration) ([]ConntrackCount, error) {
	counts := map[ConntrackCount]int{}

	if err := c.collectTable(q, "/ip/firewall/connection/print", "4", counts, timeout); err != nil {
		return nil, err
	}

	if err := c.collectTable(q, "/ipv6/firewall/connection/print", "6", counts, timeout); err != nil {
		return nil, err
	}

	result := make([]ConntrackCount, 0, len(counts))
	for key, n := range counts {
		key.Count = n
		result = append(result, key)
	}

	return result, nil
}

func (c *ConntrackCollector) collectTable(q Querier, command, ipVersion string, counts map[ConntrackCount]int, timeout time.Duration) error {
	rows, err := q.Query(command, []string{"=.proplist=src-address,protocol"}, timeout)
	if err != nil {
		return fmt.Errorf("%s: %w", command, err)
	}

	for _, row := range rows {
		protocol := row["protocol"]
		if protocol == "" {
			continue
		}

		addr := connectionSrcAddress(row["src-address"])
		if addr == "" {
			continue
		}

		key := ConntrackCount{SrcAddress: addr, Protocol: protocol, IPVersion: ipVersion}
		counts[key]++
	}

	return nil
}

// connectionSrcAddress strips the trailing ":port" RouterOS appends to
// connection-table addresses, handling both dotted IPv4 ("1.2.3.4:80")
// and bracketed IPv6 ("[fe80::1]:80") forms.
func connectionSrcAddress(addr string) string {
	if addr == "" {
		return ""
	}

	if strings.HasPrefix(addr, "[") {
		if end := strings.IndexByte(addr, ']'); end != -1 {
			return addr[1:end]
		}

		return addr
	}

	if idx := strings.LastIndexByte(addr, ':'); idx != -1 {
		return addr[:idx]
	}

	return addr
}
