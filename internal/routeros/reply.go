package routeros

import (
	"errors"
	"fmt"
	"net"

	"mikrotik-exporter/internal/roserr"
	"mikrotik-exporter/internal/wire"
)

// reply accumulates one round-trip's sentences: every !re row plus the
// terminating !done, or the !trap/!fatal that ended it.
type reply struct {
	re   []*wire.Sentence
	done *wire.Sentence
	trap *wire.Sentence
}

// roundTrip writes one sentence and reads sentences until !done or
// !fatal. A !trap is recorded but does not stop the read loop — the
// stream must still be drained to !done before the connection is
// reusable (spec §4.2).
func (c *Connection) roundTrip(words ...string) (*reply, error) {
	if err := c.w.WriteSentence(words...); err != nil {
		return nil, classifyIOError("write sentence", err)
	}

	rep := &reply{}

	for {
		sen, err := c.r.ReadSentence()
		if err != nil {
			return nil, classifyIOError("read sentence", err)
		}

		switch sen.Word {
		case "!re":
			rep.re = append(rep.re, sen)
		case "!done":
			rep.done = sen

			return rep, nil
		case "!trap":
			rep.trap = sen
		case "!fatal":
			return nil, &roserr.FatalError{Message: sen.Map["message"]}
		case "":
			// Empty sentences are ignored per the API docs.
		default:
			return nil, &roserr.ProtocolError{Detail: fmt.Sprintf("unexpected reply tag %q", sen.Word)}
		}
	}
}

func classifyIOError(op string, err error) error {
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return &roserr.Timeout{Op: op}
	}

	if _, ok := err.(wire.ProtocolError); ok { //nolint:errorlint
		return &roserr.ProtocolError{Detail: op, Err: err}
	}

	return &roserr.NetworkError{Op: op, Err: err}
}
