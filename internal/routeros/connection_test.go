package routeros

import (
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"mikrotik-exporter/internal/roserr"
	"mikrotik-exporter/internal/wire"
)

// fakeRouter is a minimal RouterOS server used to drive Connect/Query
// through a real TCP socket, the same style as the teacher's
// routeros/tests package (there built on net.Pipe; here on a loopback
// listener since Connect dials a TCP address).
type fakeRouter struct {
	ln net.Listener
}

func startFakeRouter(t *testing.T) (*fakeRouter, <-chan net.Conn) {
	t.Helper()

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	conns := make(chan net.Conn, 1)

	go func() {
		conn, err := ln.Accept()
		if err == nil {
			conns <- conn
		}
	}()

	return &fakeRouter{ln: ln}, conns
}

func (f *fakeRouter) addr() string {
	return f.ln.Addr().String()
}

func (f *fakeRouter) close() {
	_ = f.ln.Close()
}

func TestConnectChallengeLogin(t *testing.T) {
	router, conns := startFakeRouter(t)
	defer router.close()

	done := make(chan struct{})

	go func() {
		defer close(done)

		conn := <-conns
		defer conn.Close()

		r := wire.NewReader(conn)
		w := wire.NewWriter(conn)

		sen, err := r.ReadSentence()
		require.NoError(t, err)
		require.Equal(t, "/login", sen.Word)

		require.NoError(t, w.WriteSentence("!done", "=ret=00112233445566778899aabbccddeeff"))

		sen, err = r.ReadSentence()
		require.NoError(t, err)
		require.Equal(t, "/login", sen.Word)
		require.Equal(t, "admin", sen.Map["name"])
		require.Contains(t, sen.Map, "response")

		require.NoError(t, w.WriteSentence("!done"))
	}()

	c, err := Connect(router.addr(), "admin", "test", 2*time.Second)
	require.NoError(t, err)
	require.Equal(t, StateAuthenticated, c.State())

	<-done
	c.Close()
}

func TestConnectPlainCredentialsLogin(t *testing.T) {
	router, conns := startFakeRouter(t)
	defer router.close()

	go func() {
		conn := <-conns
		defer conn.Close()

		r := wire.NewReader(conn)
		w := wire.NewWriter(conn)

		_, err := r.ReadSentence()
		require.NoError(t, err)

		require.NoError(t, w.WriteSentence("!done"))

		sen, err := r.ReadSentence()
		require.NoError(t, err)
		require.Equal(t, "admin", sen.Map["name"])
		require.Equal(t, "test", sen.Map["password"])

		require.NoError(t, w.WriteSentence("!done"))
	}()

	c, err := Connect(router.addr(), "admin", "test", 2*time.Second)
	require.NoError(t, err)
	require.Equal(t, StateAuthenticated, c.State())
	c.Close()
}

func TestConnectAuthRejected(t *testing.T) {
	router, conns := startFakeRouter(t)
	defer router.close()

	go func() {
		conn := <-conns
		defer conn.Close()

		r := wire.NewReader(conn)
		w := wire.NewWriter(conn)

		_, _ = r.ReadSentence()
		_ = w.WriteSentence("!trap", "=message=invalid user name or password")
		_ = w.WriteSentence("!done")
	}()

	_, err := Connect(router.addr(), "admin", "wrong", 2*time.Second)
	require.Error(t, err)

	var authErr *roserr.AuthError
	require.ErrorAs(t, err, &authErr)
}

func TestQueryTrapMidStreamKeepsConnectionUsable(t *testing.T) {
	router, conns := startFakeRouter(t)
	defer router.close()

	go func() {
		conn := <-conns
		defer conn.Close()

		r := wire.NewReader(conn)
		w := wire.NewWriter(conn)

		_, _ = r.ReadSentence()
		_ = w.WriteSentence("!done")

		_, _ = r.ReadSentence()
		_ = w.WriteSentence("!done")

		_, _ = r.ReadSentence()
		_ = w.WriteSentence("!re", "=name=ether1", "=rx-byte=100")
		_ = w.WriteSentence("!trap", "=message=no such command")
		_ = w.WriteSentence("!done")

		_, _ = r.ReadSentence()
		_ = w.WriteSentence("!done")
	}()

	c, err := Connect(router.addr(), "admin", "test", 2*time.Second)
	require.NoError(t, err)

	rows, err := c.Query("/bogus/print", nil, time.Second)
	require.Error(t, err)
	require.Nil(t, rows)

	var trapErr *roserr.TrapError
	require.ErrorAs(t, err, &trapErr)
	require.Equal(t, "no such command", trapErr.Message)

	require.Equal(t, StateAuthenticated, c.State())

	rows, err = c.Query("/interface/print", nil, time.Second)
	require.NoError(t, err)
	require.Len(t, rows, 0)

	c.Close()
}

func TestQueryReturnsRows(t *testing.T) {
	router, conns := startFakeRouter(t)
	defer router.close()

	go func() {
		conn := <-conns
		defer conn.Close()

		r := wire.NewReader(conn)
		w := wire.NewWriter(conn)

		_, _ = r.ReadSentence()
		_ = w.WriteSentence("!done")

		_, _ = r.ReadSentence()
		_ = w.WriteSentence("!done")

		sen, _ := r.ReadSentence()
		require.Equal(t, "/interface/print", sen.Word)

		_ = w.WriteSentence("!re", "=name=ether1", "=rx-byte=1000")
		_ = w.WriteSentence("!re", "=name=ether2", "=rx-byte=2000")
		_ = w.WriteSentence("!done")
	}()

	c, err := Connect(router.addr(), "admin", "test", 2*time.Second)
	require.NoError(t, err)

	rows, err := c.Query("/interface/print", nil, time.Second)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	require.Equal(t, "ether1", rows[0]["name"])
	require.Equal(t, "ether2", rows[1]["name"])

	c.Close()
}

func TestCloseIsIdempotent(t *testing.T) {
	router, conns := startFakeRouter(t)
	defer router.close()

	go func() {
		conn := <-conns
		defer conn.Close()

		r := wire.NewReader(conn)
		w := wire.NewWriter(conn)

		_, _ = r.ReadSentence()
		_ = w.WriteSentence("!done")

		_, _ = r.ReadSentence()
		_ = w.WriteSentence("!done")
	}()

	c, err := Connect(router.addr(), "admin", "test", 2*time.Second)
	require.NoError(t, err)

	require.NoError(t, c.Close())
	require.NoError(t, c.Close())
}
