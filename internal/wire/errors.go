package wire

import "fmt"

// ProtocolError reports a framing violation in the RouterOS API byte
// stream. ReadLength returns it for an invalid length-prefix byte; words
// that are not attributes (`=KEY=VALUE`) are kept as positional words
// rather than rejected.
type ProtocolError struct {
	Detail string
}

func (e ProtocolError) Error() string {
	return fmt.Sprintf("routeros protocol error: %s", e.Detail)
}
