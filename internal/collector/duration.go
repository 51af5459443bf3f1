package collector

import (
	"fmt"
	"regexp"
	"strconv"

	"mikrotik-exporter/internal/roserr"
)

// durationRegex matches one <number><unit> token. "ms" is tried before
// "m" so "500ms" isn't split into "500m" followed by a stray "s".
var durationRegex = regexp.MustCompile(`(\d+(?:\.\d+)?)(ms|us|w|d|h|m|s)`)

var unitSeconds = map[string]float64{
	"w":  604800,
	"d":  86400,
	"h":  3600,
	"m":  60,
	"s":  1,
	"ms": 1e-3,
	"us": 1e-6,
}

// ParseDuration parses a RouterOS duration string ("1w2d3h4m5s", "2.5s",
// "500ms") into a non-negative number of seconds, per spec §4.4.1.
func ParseDuration(s string) (float64, error) {
	if s == "" {
		return 0, &roserr.ProtocolError{Detail: "empty duration"}
	}

	matches := durationRegex.FindAllStringSubmatchIndex(s, -1)
	if matches == nil {
		return 0, &roserr.ProtocolError{Detail: fmt.Sprintf("unparseable duration %q", s)}
	}

	var (
		total   float64
		covered int
	)

	for _, m := range matches {
		if m[0] != covered {
			return 0, &roserr.ProtocolError{Detail: fmt.Sprintf("unparseable duration %q", s)}
		}

		numStr := s[m[2]:m[3]]
		unit := s[m[4]:m[5]]

		value, err := strconv.ParseFloat(numStr, 64)
		if err != nil {
			return 0, &roserr.ProtocolError{Detail: fmt.Sprintf("unparseable duration %q: %v", s, err)}
		}

		total += value * unitSeconds[unit]
		covered = m[1]
	}

	if covered != len(s) {
		return 0, &roserr.ProtocolError{Detail: fmt.Sprintf("unparseable duration %q", s)}
	}

	return total, nil
}
