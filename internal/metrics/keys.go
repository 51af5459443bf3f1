package metrics

// interfaceRow is the latest tick's reading for one router/interface
// pair. Counters hold the raw wire value directly (spec §4.5: "the
// registry stores them directly"); a reset is never subtracted out.
type interfaceRow struct {
	running   bool
	rxBytes   uint64
	txBytes   uint64
	rxPackets uint64
	txPackets uint64
	rxErrors  uint64
	txErrors  uint64
}

type resourceRow struct {
	cpuLoad       uint8
	freeMemory    uint64
	totalMemory   uint64
	uptimeSeconds float64
	hasUptime     bool
}

type identityRow struct {
	version string
	board   string
}

type conntrackKey struct {
	srcAddress string
	protocol   string
	ipVersion  string
}

type wireguardKey struct {
	iface          string
	name           string
	allowedAddress string
	endpoint       string
}

type wireguardRow struct {
	rxBytes          uint64
	txBytes          uint64
	handshakeSeconds float64
	hasHandshake     bool
}

type serviceRow struct {
	scrapeSuccess              uint64
	scrapeErrors               uint64
	scrapeDurationMillis       float64
	scrapeLastSuccessTimestamp float64
	consecutiveErrors          float64
	collectionCycleMillis      float64
}
