package collector

import (
	"fmt"
	"time"
)

// SystemIdentityCollector fetches the router's board name and installed
// RouterOS version (spec §4.4): board name from /system/routerboard/print,
// version from /system/resource/print.
type SystemIdentityCollector struct{}

func NewSystemIdentityCollector() *SystemIdentityCollector { return &SystemIdentityCollector{} }

func (c *SystemIdentityCollector) Collect(q Querier, timeout time.Duration) (*SystemIdentity, error) {
	boardRows, err := q.Query("/system/routerboard/print", []string{"=.proplist=model"}, timeout)
	if err != nil {
		return nil, fmt.Errorf("system routerboard print: %w", err)
	}

	resourceRows, err := q.Query("/system/resource/print", []string{"=.proplist=version"}, timeout)
	if err != nil {
		return nil, fmt.Errorf("system resource print: %w", err)
	}

	if len(resourceRows) == 0 {
		return nil, fmt.Errorf("system resource print: no rows returned")
	}

	id := &SystemIdentity{Version: resourceRows[0]["version"]}

	if len(boardRows) > 0 {
		id.Board = boardRows[0]["model"]
	}

	return id, nil
}
