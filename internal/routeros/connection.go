// Package routeros implements one authenticated TCP session to one
// RouterOS device: challenge/response login, sentence-level query/reply,
// and the connection state machine described by spec §4.2.
package routeros

import (
	"crypto/md5" //nolint:gosec // RouterOS's own challenge scheme, not ours to choose
	"encoding/hex"
	"fmt"
	"io"
	"net"
	"sync"
	"time"

	"mikrotik-exporter/internal/roserr"
	"mikrotik-exporter/internal/wire"
)

// ConnectionState is the lifecycle state of a Connection (spec §3).
type ConnectionState int32

const (
	StateDisconnected ConnectionState = iota
	StateConnecting
	StateAuthenticated
	StateBroken
)

func (s ConnectionState) String() string {
	switch s {
	case StateDisconnected:
		return "disconnected"
	case StateConnecting:
		return "connecting"
	case StateAuthenticated:
		return "authenticated"
	case StateBroken:
		return "broken"
	default:
		return "unknown"
	}
}

// AttrMap is the per-sentence mapping from attribute name to raw string
// value, as read off the wire. Collectors convert it into typed records;
// it must never leak further than that boundary (design note in spec §9).
type AttrMap map[string]string

// Connection is one authenticated TCP session to one router. It is not
// safe for concurrent Query calls; the pool serializes access per
// router.
type Connection struct {
	conn net.Conn
	r    *wire.Reader
	w    *wire.Writer

	mu    sync.Mutex
	state ConnectionState
}

// Connect opens a TCP connection to address and performs login,
// transitioning to StateAuthenticated on success.
func Connect(address, username, password string, timeout time.Duration) (*Connection, error) {
	c := &Connection{state: StateConnecting}

	dialer := net.Dialer{Timeout: timeout}

	conn, err := dialer.Dial("tcp", address)
	if err != nil {
		c.state = StateBroken

		if netErr, ok := err.(net.Error); ok && netErr.Timeout() { //nolint:errorlint
			return nil, &roserr.Timeout{Op: "connect"}
		}

		return nil, &roserr.NetworkError{Op: "dial", Err: err}
	}

	c.conn = conn
	c.r = wire.NewReader(conn)
	c.w = wire.NewWriter(conn)

	if err := c.setDeadline(timeout); err != nil {
		c.fail()

		return nil, err
	}

	if err := c.login(username, password); err != nil {
		c.fail()

		return nil, err
	}

	c.clearDeadline()
	c.state = StateAuthenticated

	return c, nil
}

func (c *Connection) setDeadline(timeout time.Duration) error {
	if timeout <= 0 {
		return nil
	}

	if err := c.conn.SetDeadline(time.Now().Add(timeout)); err != nil {
		return &roserr.NetworkError{Op: "set deadline", Err: err}
	}

	return nil
}

func (c *Connection) clearDeadline() {
	_ = c.conn.SetDeadline(time.Time{})
}

func (c *Connection) fail() {
	c.state = StateBroken

	if c.conn != nil {
		_ = c.conn.Close()
	}
}

// login implements the two RouterOS login variants (spec §4.2).
func (c *Connection) login(username, password string) error {
	reply, err := c.roundTrip("/login")
	if err != nil {
		return err
	}

	if reply.trap != nil {
		return &roserr.AuthError{Detail: reply.trap.Map["message"]}
	}

	challenge, hasChallenge := reply.done.Map["ret"]
	if !hasChallenge {
		// Post-6.43 single-stage login: no challenge was offered, send
		// credentials directly.
		reply, err = c.roundTrip("/login", "=name="+username, "=password="+password)
		if err != nil {
			return err
		}

		if reply.trap != nil {
			return &roserr.AuthError{Detail: reply.trap.Map["message"]}
		}

		if reply.done == nil {
			return &roserr.AuthError{Detail: "no !done reply to plain-credentials login"}
		}

		return nil
	}

	chBytes, err := hex.DecodeString(challenge)
	if err != nil {
		return &roserr.AuthError{Detail: fmt.Sprintf("malformed challenge: %v", err)}
	}

	response := challengeResponse(chBytes, password)

	reply, err = c.roundTrip("/login", "=name="+username, "=response="+response)
	if err != nil {
		return err
	}

	if reply.trap != nil {
		return &roserr.AuthError{Detail: reply.trap.Map["message"]}
	}

	if reply.done == nil {
		return &roserr.AuthError{Detail: "no !done reply to challenge-response login"}
	}

	return nil
}

func challengeResponse(challenge []byte, password string) string {
	h := md5.New() //nolint:gosec
	h.Write([]byte{0})
	io.WriteString(h, password) //nolint:errcheck
	h.Write(challenge)

	return "00" + hex.EncodeToString(h.Sum(nil))
}

// Query writes one sentence and reads reply sentences until !done or
// !fatal. It returns the ordered list of AttrMap for every !re.
func (c *Connection) Query(command string, attrs []string, timeout time.Duration) ([]AttrMap, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state != StateAuthenticated {
		return nil, &roserr.ProtocolError{Detail: "query on non-authenticated connection"}
	}

	if err := c.setDeadline(timeout); err != nil {
		c.fail()

		return nil, err
	}

	defer c.clearDeadline()

	words := append([]string{command}, attrs...)

	reply, err := c.roundTrip(words...)
	if err != nil {
		c.fail()

		return nil, err
	}

	if reply.trap != nil {
		return nil, &roserr.TrapError{Message: reply.trap.Map["message"], Category: reply.trap.Map["category"]}
	}

	rows := make([]AttrMap, 0, len(reply.re))
	for _, sen := range reply.re {
		rows = append(rows, AttrMap(sen.Map))
	}

	return rows, nil
}

// State returns the connection's current lifecycle state.
func (c *Connection) State() ConnectionState {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.state
}

// Close is idempotent; a closed Connection may not be reused.
func (c *Connection) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state == StateDisconnected {
		return nil
	}

	c.state = StateDisconnected

	if c.conn == nil {
		return nil
	}

	if err := c.conn.Close(); err != nil {
		return fmt.Errorf("close connection: %w", err)
	}

	return nil
}
