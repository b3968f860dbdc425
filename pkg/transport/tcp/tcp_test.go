package tcp

import (
	"bufio"
	"io"
	"net"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/marmos91/wwwserver/internal/ratelimiter"
	"github.com/marmos91/wwwserver/pkg/transport"
)

const waitFor = 2 * time.Second

func newTestListener(t *testing.T, cfg Config) *Listener {
	t.Helper()
	cfg.Address = "127.0.0.1:0"
	l, err := Listen(cfg)
	require.NoError(t, err)
	t.Cleanup(func() { _ = l.Close() })
	return l
}

func dial(t *testing.T, l *Listener) net.Conn {
	t.Helper()
	conn, err := net.Dial("tcp", l.Addr().String())
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func accept(t *testing.T, l *Listener) transport.Client {
	t.Helper()
	var c transport.Client
	require.Eventually(t, func() bool {
		var ok bool
		c, ok = l.Accept()
		return ok
	}, waitFor, 5*time.Millisecond)
	t.Cleanup(func() { _ = c.Close() })
	return c
}

func drain(c transport.Client) string {
	var sb strings.Builder
	for {
		b, err := c.ReadByte()
		if err != nil {
			return sb.String()
		}
		sb.WriteByte(b)
	}
}

func TestAcceptIsNonBlocking(t *testing.T) {
	l := newTestListener(t, Config{})

	c, ok := l.Accept()
	assert.False(t, ok)
	assert.Nil(t, c)
	assert.NotZero(t, l.Port())
}

func TestReadLineAvailability(t *testing.T) {
	l := newTestListener(t, Config{})
	conn := dial(t, l)
	c := accept(t, l)

	assert.False(t, c.HasLine())
	_, err := c.ReadByte()
	assert.ErrorIs(t, err, transport.ErrNoData)

	_, err = conn.Write([]byte("GET / HTTP/1.1"))
	require.NoError(t, err)
	require.Eventually(t, func() bool { return c.Buffered() == 14 }, waitFor, 5*time.Millisecond)
	assert.False(t, c.HasLine(), "no terminator yet")

	_, err = conn.Write([]byte("\r"))
	require.NoError(t, err)
	require.Eventually(t, func() bool { return c.Buffered() == 15 }, waitFor, 5*time.Millisecond)
	assert.False(t, c.HasLine(), "a trailing CR may be the first half of CRLF")

	_, err = conn.Write([]byte("\n"))
	require.NoError(t, err)
	require.Eventually(t, c.HasLine, waitFor, 5*time.Millisecond)

	b, err := c.PeekByte()
	require.NoError(t, err)
	assert.Equal(t, byte('G'), b)
	assert.Equal(t, "GET / HTTP/1.1\r\n", drain(c))
	assert.True(t, c.Connected())
}

func TestFullBufferCountsAsLine(t *testing.T) {
	l := newTestListener(t, Config{ReadBufferSize: 4})
	conn := dial(t, l)
	c := accept(t, l)

	_, err := conn.Write([]byte("abcdefgh"))
	require.NoError(t, err)
	require.Eventually(t, func() bool { return c.Buffered() == 4 }, waitFor, 5*time.Millisecond)
	assert.True(t, c.HasLine())

	var got strings.Builder
	require.Eventually(t, func() bool {
		got.WriteString(drain(c))
		return got.Len() == 8
	}, waitFor, 5*time.Millisecond)
	assert.Equal(t, "abcdefgh", got.String())
}

func TestPeerCloseKeepsBufferedBytes(t *testing.T) {
	l := newTestListener(t, Config{})
	conn := dial(t, l)
	c := accept(t, l)

	_, err := conn.Write([]byte("tail"))
	require.NoError(t, err)
	require.NoError(t, conn.Close())

	require.Eventually(t, c.HasLine, waitFor, 5*time.Millisecond)
	assert.True(t, c.Connected(), "unread bytes keep the client connected")
	assert.Equal(t, "tail", drain(c))
	assert.False(t, c.Connected())
}

func TestWriteReachesPeer(t *testing.T) {
	l := newTestListener(t, Config{WriteTimeout: time.Second})
	conn := dial(t, l)
	c := accept(t, l)

	n, err := c.Write([]byte("HTTP/1.1 200 OK\r\n"))
	require.NoError(t, err)
	assert.Equal(t, 17, n)

	line, err := bufio.NewReader(conn).ReadString('\n')
	require.NoError(t, err)
	assert.Equal(t, "HTTP/1.1 200 OK\r\n", line)
}

func TestCloseClient(t *testing.T) {
	l := newTestListener(t, Config{})
	conn := dial(t, l)
	c := accept(t, l)

	require.NoError(t, c.Close())
	assert.NoError(t, c.Close(), "close is idempotent")
	assert.False(t, c.Connected())

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(waitFor)))
	_, err := conn.Read(make([]byte, 1))
	assert.ErrorIs(t, err, io.EOF)
}

func TestAdmissionRejects(t *testing.T) {
	admission := ratelimiter.New(ratelimiter.Config{Rate: 0.001, Burst: 1})
	l := newTestListener(t, Config{Admission: admission, Backlog: 4})

	dial(t, l)
	accept(t, l)

	rejected := dial(t, l)
	require.NoError(t, rejected.SetReadDeadline(time.Now().Add(waitFor)))
	_, err := rejected.Read(make([]byte, 1))
	assert.Error(t, err, "rejected connections are closed")

	_, ok := l.Accept()
	assert.False(t, ok)
}

func TestWakeSignalled(t *testing.T) {
	l := newTestListener(t, Config{})
	conn := dial(t, l)

	select {
	case <-l.Wake():
	case <-time.After(waitFor):
		t.Fatal("no wake on accept")
	}
	accept(t, l)

	// Drop a wake that may have been left over.
	select {
	case <-l.Wake():
	default:
	}

	_, err := conn.Write([]byte("x"))
	require.NoError(t, err)
	select {
	case <-l.Wake():
	case <-time.After(waitFor):
		t.Fatal("no wake on data")
	}
}

func TestListenerCloseClosesQueued(t *testing.T) {
	l, err := Listen(Config{Address: "127.0.0.1:0"})
	require.NoError(t, err)

	conn, err := net.Dial("tcp", l.Addr().String())
	require.NoError(t, err)
	defer conn.Close()

	require.Eventually(t, func() bool { return len(l.pending) == 1 }, waitFor, 5*time.Millisecond)
	require.NoError(t, l.Close())
	assert.NoError(t, l.Close())

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(waitFor)))
	_, err = conn.Read(make([]byte, 1))
	assert.Error(t, err)
}
