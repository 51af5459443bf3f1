package metrics

import (
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"

	"mikrotik-exporter/internal/collector"
)

func TestInterfaceRowsReplacedWholesalePerTick(t *testing.T) {
	r := New()

	r.UpdateInterfaces("r1", []collector.InterfaceStat{
		{Name: "ether1", Running: true, RxBytes: 100},
		{Name: "ether2", Running: false, RxBytes: 50},
	})

	count := testutil.CollectAndCount(r, "mikrotik_interface_rx_bytes")
	require.Equal(t, 2, count)

	// ether2 renamed away; its row must vanish, not linger.
	r.UpdateInterfaces("r1", []collector.InterfaceStat{
		{Name: "ether1", Running: true, RxBytes: 150},
	})

	count = testutil.CollectAndCount(r, "mikrotik_interface_rx_bytes")
	require.Equal(t, 1, count)
}

func TestCounterPublishesRawValueOnReset(t *testing.T) {
	r := New()

	r.UpdateInterfaces("r1", []collector.InterfaceStat{{Name: "ether1", RxBytes: 9000}})

	expected := `
		# HELP mikrotik_interface_rx_bytes Received bytes, per interface.
		# TYPE mikrotik_interface_rx_bytes counter
		mikrotik_interface_rx_bytes{interface="ether1",router="r1"} 9000
	`
	require.NoError(t, testutil.CollectAndCompare(r, strings.NewReader(expected), "mikrotik_interface_rx_bytes"))

	// Router rebooted: raw counter value dropped. Spec §4.5: publish the
	// new value directly, never subtract.
	r.UpdateInterfaces("r1", []collector.InterfaceStat{{Name: "ether1", RxBytes: 12}})

	expected = `
		# HELP mikrotik_interface_rx_bytes Received bytes, per interface.
		# TYPE mikrotik_interface_rx_bytes counter
		mikrotik_interface_rx_bytes{interface="ether1",router="r1"} 12
	`
	require.NoError(t, testutil.CollectAndCompare(r, strings.NewReader(expected), "mikrotik_interface_rx_bytes"))
}

func TestSystemInfoAndConntrackLabels(t *testing.T) {
	r := New()

	r.UpdateSystemIdentity("r1", &collector.SystemIdentity{Board: "RB4011", Version: "7.14"})
	r.UpdateConntrack("r1", []collector.ConntrackCount{
		{SrcAddress: "10.0.0.1", Protocol: "tcp", IPVersion: "4", Count: 3},
	})

	expectedInfo := `
		# HELP mikrotik_system_info Constant 1, labeled with board and version.
		# TYPE mikrotik_system_info gauge
		mikrotik_system_info{board="RB4011",router="r1",version="7.14"} 1
	`
	require.NoError(t, testutil.CollectAndCompare(r, strings.NewReader(expectedInfo), "mikrotik_system_info"))

	expectedConntrack := `
		# HELP mikrotik_connection_tracking_count Connection-tracking entries per tuple.
		# TYPE mikrotik_connection_tracking_count gauge
		mikrotik_connection_tracking_count{ip_version="4",protocol="tcp",router="r1",src_address="10.0.0.1"} 3
	`
	require.NoError(t, testutil.CollectAndCompare(r, strings.NewReader(expectedConntrack), "mikrotik_connection_tracking_count"))
}

func TestServiceCountersAccumulate(t *testing.T) {
	r := New()

	r.RecordScrapeSuccess("r1", 12.5, 1000)
	r.RecordScrapeSuccess("r1", 8, 1030)
	r.RecordScrapeError("r1")

	expected := `
		# HELP mikrotik_scrape_success Successful scrape count.
		# TYPE mikrotik_scrape_success counter
		mikrotik_scrape_success{router="r1"} 2
		# HELP mikrotik_scrape_errors Failed scrape count.
		# TYPE mikrotik_scrape_errors counter
		mikrotik_scrape_errors{router="r1"} 1
	`
	require.NoError(t, testutil.CollectAndCompare(r, strings.NewReader(expected),
		"mikrotik_scrape_success", "mikrotik_scrape_errors"))
}

func TestPoolStatsHaveNoLabels(t *testing.T) {
	r := New()
	r.SetPoolStats(3, 2)

	expected := `
		# HELP mikrotik_connection_pool_size Number of routers known to the connection pool.
		# TYPE mikrotik_connection_pool_size gauge
		mikrotik_connection_pool_size 3
		# HELP mikrotik_connection_pool_active Number of routers with a live connection.
		# TYPE mikrotik_connection_pool_active gauge
		mikrotik_connection_pool_active 2
	`
	require.NoError(t, testutil.CollectAndCompare(r, strings.NewReader(expected),
		"mikrotik_connection_pool_size", "mikrotik_connection_pool_active"))
}
