// Package pool implements the Connection Pool (spec §4.3): at most one
// live authenticated Connection per router, with consecutive-error
// tracking and exponential backoff before reconnect.
package pool

import (
	"math/rand"
	"sync"
	"sync/atomic"
	"time"

	"github.com/jpillora/backoff"

	"mikrotik-exporter/internal/roserr"
	"mikrotik-exporter/internal/routeros"
)

const (
	backoffBase = 5 * time.Second
	backoffCap  = 300 * time.Second
	jitterFrac  = 0.20
)

// Dialer opens an authenticated Connection; production code wires
// routeros.Connect, tests wire a fake.
type Dialer func(address, username, password string, timeout time.Duration) (*routeros.Connection, error)

// entry is the per-router pool state (spec §3's PoolEntry). Two locks
// guard disjoint fields on purpose: leaseMu serializes dialing and is
// held for the duration of a leased fn call (up to all five collectors'
// worth of queries), while stateMu guards only the error/backoff
// bookkeeping so /health and the pool-stats gauges never wait behind an
// in-flight tick (spec §5).
type entry struct {
	address  string
	username string
	password string

	leaseMu    sync.Mutex
	conn       *routeros.Connection
	connActive atomic.Bool

	stateMu           sync.Mutex
	consecutiveErrors int
	nextAttemptAt     time.Time
	backoff           *backoff.Backoff
}

// Pool holds at most one live Connection per router name.
type Pool struct {
	dial Dialer

	mu      sync.Mutex
	entries map[string]*entry
}

// New constructs an empty Pool. dial is injected so tests can avoid real
// sockets; production callers pass routeros.Connect.
func New(dial Dialer) *Pool {
	return &Pool{dial: dial, entries: map[string]*entry{}}
}

func (p *Pool) entryFor(router, address, username, password string) *entry {
	p.mu.Lock()
	defer p.mu.Unlock()

	e, ok := p.entries[router]
	if !ok {
		e = &entry{
			address:  address,
			username: username,
			password: password,
			backoff:  &backoff.Backoff{Min: backoffBase, Max: backoffCap, Factor: 2},
		}
		p.entries[router] = e
	}

	return e
}

func (p *Pool) lookup(router string) (*entry, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()

	e, ok := p.entries[router]

	return e, ok
}

// WithConnection leases router's connection, dialing one if needed, and
// invokes fn with it. If the backoff window has not elapsed it fails
// immediately with BackoffError without attempting to dial. A dial or
// fn failure is left for the caller to report via ReportFailure, which
// is the sole place consecutive_errors and next_attempt_at are
// advanced — WithConnection never touches them itself, so a single
// failed attempt is never counted twice.
func (p *Pool) WithConnection(router, address, username, password string, dialTimeout time.Duration, fn func(*routeros.Connection) error) error {
	e := p.entryFor(router, address, username, password)

	e.leaseMu.Lock()
	defer e.leaseMu.Unlock()

	if e.conn == nil {
		e.stateMu.Lock()
		blocked := time.Now().Before(e.nextAttemptAt)
		e.stateMu.Unlock()

		if blocked {
			return &roserr.BackoffError{Router: router}
		}

		conn, err := p.dial(e.address, e.username, e.password, dialTimeout)
		if err != nil {
			return err
		}

		e.conn = conn
		e.connActive.Store(true)
	}

	return fn(e.conn)
}

// ReportSuccess resets the router's consecutive-error count and backoff.
func (p *Pool) ReportSuccess(router string) {
	e, ok := p.lookup(router)
	if !ok {
		return
	}

	e.stateMu.Lock()
	defer e.stateMu.Unlock()

	e.consecutiveErrors = 0
	e.backoff.Reset()
}

// ReportFailure marks the router's connection Broken, drops it,
// increments consecutive_errors, and computes the next backoff window.
// This is the only place those fields change, whether the failure was a
// dial failure (no connection was ever leased) or a query failure on an
// already-leased one.
func (p *Pool) ReportFailure(router string) {
	e, ok := p.lookup(router)
	if !ok {
		return
	}

	e.leaseMu.Lock()
	if e.conn != nil {
		_ = e.conn.Close()
		e.conn = nil
		e.connActive.Store(false)
	}
	e.leaseMu.Unlock()

	e.stateMu.Lock()
	defer e.stateMu.Unlock()

	e.consecutiveErrors++
	e.nextAttemptAt = time.Now().Add(jitter(e.backoff.Duration()))
}

// jitter applies ±20% uniform jitter on top of the library's computed
// exponential delay (spec §4.3's backoff formula is exact; the library
// only supplies the base*2^(n-1) progression, not this jitter shape).
func jitter(d time.Duration) time.Duration {
	if d <= 0 {
		return 0
	}

	delta := float64(d) * jitterFrac
	offset := (rand.Float64()*2 - 1) * delta //nolint:gosec // timing jitter, not security sensitive

	return d + time.Duration(offset)
}

// ConsecutiveErrors reports the router's current error streak, for
// surfacing in connection_consecutive_errors and /health. It only takes
// stateMu, so it never blocks behind an in-flight tick's leaseMu.
func (p *Pool) ConsecutiveErrors(router string) int {
	e, ok := p.lookup(router)
	if !ok {
		return 0
	}

	e.stateMu.Lock()
	defer e.stateMu.Unlock()

	return e.consecutiveErrors
}

// Size reports the number of routers the pool has ever seen.
func (p *Pool) Size() int {
	p.mu.Lock()
	defer p.mu.Unlock()

	return len(p.entries)
}

// Active reports the number of routers currently holding a live
// connection. It reads connActive rather than taking leaseMu, so it
// never blocks behind an in-flight tick either.
func (p *Pool) Active() int {
	p.mu.Lock()
	routers := make([]*entry, 0, len(p.entries))
	for _, e := range p.entries {
		routers = append(routers, e)
	}
	p.mu.Unlock()

	n := 0

	for _, e := range routers {
		if e.connActive.Load() {
			n++
		}
	}

	return n
}

// Close closes every live connection the pool holds, for shutdown.
func (p *Pool) Close() {
	p.mu.Lock()
	routers := make([]*entry, 0, len(p.entries))
	for _, e := range p.entries {
		routers = append(routers, e)
	}
	p.mu.Unlock()

	for _, e := range routers {
		e.leaseMu.Lock()
		if e.conn != nil {
			_ = e.conn.Close()
			e.conn = nil
			e.connActive.Store(false)
		}
		e.leaseMu.Unlock()
	}
}
