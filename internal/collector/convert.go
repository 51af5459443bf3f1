package collector

import (
	"strconv"

	"mikrotik-exporter/internal/roserr"
)

func parseUint64(attrs map[string]string, name string) (uint64, error) {
	v, ok := attrs[name]
	if !ok || v == "" {
		return 0, &roserr.ProtocolError{Detail: "missing attribute " + name}
	}

	n, err := strconv.ParseUint(v, 10, 64)
	if err != nil {
		return 0, &roserr.ProtocolError{Detail: "invalid uint attribute " + name, Err: err}
	}

	return n, nil
}

func parseUint8(attrs map[string]string, name string) (uint8, error) {
	v, ok := attrs[name]
	if !ok || v == "" {
		return 0, &roserr.ProtocolError{Detail: "missing attribute " + name}
	}

	n, err := strconv.ParseUint(v, 10, 8)
	if err != nil {
		return 0, &roserr.ProtocolError{Detail: "invalid uint8 attribute " + name, Err: err}
	}

	return uint8(n), nil
}

func parseBool(attrs map[string]string, name string) bool {
	return attrs[name] == "true"
}
