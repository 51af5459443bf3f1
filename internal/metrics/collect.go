package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Describe implements prometheus.Collector.
func (r *Registry) Describe(ch chan<- *prometheus.Desc) {
	d := r.descs

	ch <- d.interfaceRxBytes
	ch <- d.interfaceTxBytes
	ch <- d.interfaceRxPackets
	ch <- d.interfaceTxPackets
	ch <- d.interfaceRxErrors
	ch <- d.interfaceTxErrors
	ch <- d.interfaceRunning

	ch <- d.systemCPULoad
	ch <- d.systemFreeMemory
	ch <- d.systemTotalMemory
	ch <- d.systemUptime
	ch <- d.systemInfo

	ch <- d.connectionTrackingCount

	ch <- d.wireguardPeerRxBytes
	ch <- d.wireguardPeerTxBytes
	ch <- d.wireguardPeerLatestHandshake

	ch <- d.scrapeSuccess
	ch <- d.scrapeErrors
	ch <- d.scrapeDurationMilliseconds
	ch <- d.scrapeLastSuccessTimestampSeconds
	ch <- d.connectionConsecutiveErrors
	ch <- d.collectionCycleDurationMilliseconds

	ch <- d.connectionPoolSize
	ch <- d.connectionPoolActive
}

// Collect implements prometheus.Collector. It never touches a router;
// it renders whatever the Scheduler last wrote (spec §4.5's "rendered
// as Prometheus text on demand" over an in-memory snapshot).
func (r *Registry) Collect(ch chan<- prometheus.Metric) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	d := r.descs

	for router, rows := range r.interfaces {
		for iface, row := range rows {
			labels := []string{router, iface}

			ch <- prometheus.MustNewConstMetric(d.interfaceRxBytes, prometheus.CounterValue, float64(row.rxBytes), labels...)
			ch <- prometheus.MustNewConstMetric(d.interfaceTxBytes, prometheus.CounterValue, float64(row.txBytes), labels...)
			ch <- prometheus.MustNewConstMetric(d.interfaceRxPackets, prometheus.CounterValue, float64(row.rxPackets), labels...)
			ch <- prometheus.MustNewConstMetric(d.interfaceTxPackets, prometheus.CounterValue, float64(row.txPackets), labels...)
			ch <- prometheus.MustNewConstMetric(d.interfaceRxErrors, prometheus.CounterValue, float64(row.rxErrors), labels...)
			ch <- prometheus.MustNewConstMetric(d.interfaceTxErrors, prometheus.CounterValue, float64(row.txErrors), labels...)
			ch <- prometheus.MustNewConstMetric(d.interfaceRunning, prometheus.GaugeValue, boolToFloat(row.running), labels...)
		}
	}

	for router, row := range r.resources {
		labels := []string{router}

		ch <- prometheus.MustNewConstMetric(d.systemCPULoad, prometheus.GaugeValue, float64(row.cpuLoad), labels...)
		ch <- prometheus.MustNewConstMetric(d.systemFreeMemory, prometheus.GaugeValue, float64(row.freeMemory), labels...)
		ch <- prometheus.MustNewConstMetric(d.systemTotalMemory, prometheus.GaugeValue, float64(row.totalMemory), labels...)

		if row.hasUptime {
			ch <- prometheus.MustNewConstMetric(d.systemUptime, prometheus.GaugeValue, row.uptimeSeconds, labels...)
		}
	}

	for router, row := range r.identities {
		ch <- prometheus.MustNewConstMetric(d.systemInfo, prometheus.GaugeValue, 1, router, row.version, row.board)
	}

	for router, rows := range r.conntrack {
		for key, count := range rows {
			ch <- prometheus.MustNewConstMetric(d.connectionTrackingCount, prometheus.GaugeValue,
				float64(count), router, key.srcAddress, key.protocol, key.ipVersion)
		}
	}

	for router, rows := range r.wireguard {
		for key, row := range rows {
			labels := []string{router, key.iface, key.name, key.allowedAddress, key.endpoint}

			ch <- prometheus.MustNewConstMetric(d.wireguardPeerRxBytes, prometheus.GaugeValue, float64(row.rxBytes), labels...)
			ch <- prometheus.MustNewConstMetric(d.wireguardPeerTxBytes, prometheus.GaugeValue, float64(row.txBytes), labels...)

			if row.hasHandshake {
				ch <- prometheus.MustNewConstMetric(d.wireguardPeerLatestHandshake, prometheus.GaugeValue, row.handshakeSeconds, labels...)
			}
		}
	}

	for router, row := range r.service {
		labels := []string{router}

		ch <- prometheus.MustNewConstMetric(d.scrapeSuccess, prometheus.CounterValue, float64(row.scrapeSuccess), labels...)
		ch <- prometheus.MustNewConstMetric(d.scrapeErrors, prometheus.CounterValue, float64(row.scrapeErrors), labels...)
		ch <- prometheus.MustNewConstMetric(d.scrapeDurationMilliseconds, prometheus.GaugeValue, row.scrapeDurationMillis, labels...)
		ch <- prometheus.MustNewConstMetric(d.scrapeLastSuccessTimestampSeconds, prometheus.GaugeValue, row.scrapeLastSuccessTimestamp, labels...)
		ch <- prometheus.MustNewConstMetric(d.connectionConsecutiveErrors, prometheus.GaugeValue, row.consecutiveErrors, labels...)
		ch <- prometheus.MustNewConstMetric(d.collectionCycleDurationMilliseconds, prometheus.GaugeValue, row.collectionCycleMillis, labels...)
	}

	ch <- prometheus.MustNewConstMetric(d.connectionPoolSize, prometheus.GaugeValue, float64(r.poolSize))
	ch <- prometheus.MustNewConstMetric(d.connectionPoolActive, prometheus.GaugeValue, float64(r.poolActive))
}

func boolToFloat(b bool) float64 {
	if b {
		return 1
	}

	return 0
}
