package collector

import (
	"fmt"
	"time"
)

// SystemResourceCollector fetches CPU, memory, and uptime from
// /system/resource/print (spec §4.4).
type SystemResourceCollector struct{}

func NewSystemResourceCollector() *SystemResourceCollector { return &SystemResourceCollector{} }

func (c *SystemResourceCollector) Collect(q Querier, timeout time.Duration) (*SystemResource, error) {
	rows, err := q.Query("/system/resource/print",
		[]string{"=.proplist=cpu-load,free-memory,total-memory,uptime"},
		timeout)
	if err != nil {
		return nil, fmt.Errorf("system resource print: %w", err)
	}

	if len(rows) == 0 {
		return nil, fmt.Errorf("system resource print: no rows returned")
	}

	row := rows[0]

	cpuLoad, err := parseUint8(row, "cpu-load")
	if err != nil {
		return nil, err
	}

	freeMemory, err := parseUint64(row, "free-memory")
	if err != nil {
		return nil, err
	}

	totalMemory, err := parseUint64(row, "total-memory")
	if err != nil {
		return nil, err
	}

	res := &SystemResource{
		CPULoad:     cpuLoad,
		FreeMemory:  freeMemory,
		TotalMemory: totalMemory,
	}

	uptime, err := ParseDuration(row["uptime"])
	if err != nil {
		res.UptimeErr = err
	} else {
		res.UptimeSeconds = uptime
	}

	return res, nil
}
