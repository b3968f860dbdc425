package tcp

import (
	"errors"
	"io"
	"net"
	"sync"
	"time"

	"github.com/marmos91/wwwserver/internal/logger"
	"github.com/marmos91/wwwserver/pkg/transport"
)

// Client is an accepted TCP connection with a bounded inbound buffer.
//
// A reader goroutine fills the buffer from the socket and parks when it is
// full, so the peer is throttled by TCP flow control rather than by the
// engine blocking. All methods are safe for concurrent use.
type Client struct {
	conn         net.Conn
	writeTimeout time.Duration
	wake         chan<- struct{}

	mu     sync.Mutex
	room   *sync.Cond
	ring   []byte
	head   int
	size   int
	eof    bool
	broken bool
	closed bool

	closeOnce sync.Once
	done      chan struct{}
}

var _ transport.Client = (*Client)(nil)

func newClient(conn net.Conn, bufSize int, writeTimeout time.Duration, wake chan<- struct{}) *Client {
	c := &Client{
		conn:         conn,
		writeTimeout: writeTimeout,
		wake:         wake,
		ring:         make([]byte, bufSize),
		done:         make(chan struct{}),
	}
	c.room = sync.NewCond(&c.mu)
	go c.readLoop()
	return c
}

// readLoop copies socket bytes into the ring until EOF, an error or Close.
func (c *Client) readLoop() {
	defer close(c.done)

	chunk := make([]byte, len(c.ring))
	for {
		c.mu.Lock()
		for c.size == len(c.ring) && !c.closed {
			c.room.Wait()
		}
		if c.closed {
			c.mu.Unlock()
			return
		}
		free := len(c.ring) - c.size
		c.mu.Unlock()

		n, err := c.conn.Read(chunk[:free])

		c.mu.Lock()
		c.push(chunk[:n])
		if err != nil {
			c.eof = true
			if !c.closed && !isClosedErr(err) {
				logger.Debug("tcp read from %v: %v", c.conn.RemoteAddr(), err)
			}
		}
		c.mu.Unlock()

		notify(c.wake)
		if err != nil {
			return
		}
	}
}

// push appends p to the ring. The caller holds mu and guarantees room.
func (c *Client) push(p []byte) {
	for _, b := range p {
		c.ring[(c.head+c.size)%len(c.ring)] = b
		c.size++
	}
}

func (c *Client) at(i int) byte {
	return c.ring[(c.head+i)%len(c.ring)]
}

// Write sends p to the peer, bounded by the write timeout. A failed write
// marks the connection unusable.
func (c *Client) Write(p []byte) (int, error) {
	if c.writeTimeout > 0 {
		if err := c.conn.SetWriteDeadline(time.Now().Add(c.writeTimeout)); err != nil {
			return 0, err
		}
	}
	n, err := c.conn.Write(p)
	if err != nil {
		c.mu.Lock()
		c.broken = true
		c.mu.Unlock()
	}
	return n, err
}

func (c *Client) Connected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return !c.closed && !c.broken && (!c.eof || c.size > 0)
}

func (c *Client) Buffered() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.size
}

// HasLine reports whether a line can be consumed. A CR that is the last
// buffered byte only completes a line once the byte after it is known, so
// that a CRLF split across two reads is not taken for two lines.
func (c *Client) HasLine() bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.size == len(c.ring) || (c.eof && c.size > 0) {
		return true
	}
	for i := 0; i < c.size; i++ {
		switch c.at(i) {
		case '\n':
			return true
		case '\r':
			if i < c.size-1 {
				return true
			}
		}
	}
	return false
}

func (c *Client) ReadByte() (byte, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.size == 0 {
		return 0, transport.ErrNoData
	}
	b := c.at(0)
	c.head = (c.head + 1) % len(c.ring)
	c.size--
	if c.size == len(c.ring)-1 {
		c.room.Signal()
	}
	return b, nil
}

func (c *Client) PeekByte() (byte, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.size == 0 {
		return 0, transport.ErrNoData
	}
	return c.at(0), nil
}

func (c *Client) LocalAddr() net.Addr  { return c.conn.LocalAddr() }
func (c *Client) RemoteAddr() net.Addr { return c.conn.RemoteAddr() }

// Close closes the socket and stops the reader. Safe to call more than once.
func (c *Client) Close() error {
	var err error
	c.closeOnce.Do(func() {
		c.mu.Lock()
		c.closed = true
		c.room.Broadcast()
		c.mu.Unlock()

		err = c.conn.Close()
	})
	return err
}

// isClosedErr reports the errors a normal shutdown of either side produces.
func isClosedErr(err error) bool {
	return errors.Is(err, io.EOF) || errors.Is(err, net.ErrClosed)
}

// notify performs a non-blocking send on a wake channel.
func notify(wake chan<- struct{}) {
	if wake == nil {
		return
	}
	select {
	case wake <- struct{}{}:
	default:
	}
}
