package scheduler

import "errors"

// errPartialTick marks a tick where at least one collector failed but
// others still ran; it triggers report_failure. The failing collector
// has already logged its own error by the time tick logs this one.
var errPartialTick = errors.New("partial tick: one or more collectors failed")
