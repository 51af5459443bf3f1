package collector

import (
	"fmt"
	"time"
)

// InterfaceCollector fetches per-interface counters and running state
// (spec §4.4).
type InterfaceCollector struct{}

func NewInterfaceCollector() *InterfaceCollector { return &InterfaceCollector{} }

func (c *InterfaceCollector) Collect(q Querier, timeout time.Duration) ([]InterfaceStat, error) {
	rows, err := q.Query("/interface/print", []string{"stats"}, timeout)
	if err != nil {
		return nil, fmt.Errorf("interface print: %w", err)
	}

	stats := make([]InterfaceStat, 0, len(rows))

	for _, row := range rows {
		rxBytes, err := parseUint64(row, "rx-byte")
		if err != nil {
			continue
		}

		txBytes, err := parseUint64(row, "tx-byte")
		if err != nil {
			continue
		}

		rxPackets, err := parseUint64(row, "rx-packet")
		if err != nil {
			continue
		}

		txPackets, err := parseUint64(row, "tx-packet")
		if err != nil {
			continue
		}

		rxErrors, err := parseUint64(row, "rx-error")
		if err != nil {
			continue
		}

		txErrors, err := parseUint64(row, "tx-error")
		if err != nil {
			continue
		}

		if row["name"] == "" {
			continue
		}

		stats = append(stats, InterfaceStat{
			Name:      row["name"],
			Running:   parseBool(row, "running"),
			RxBytes:   rxBytes,
			TxBytes:   txBytes,
			RxPackets: rxPackets,
			TxPackets: txPackets,
			RxErrors:  rxErrors,
			TxErrors:  txErrors,
		})
	}

	return stats, nil
}
