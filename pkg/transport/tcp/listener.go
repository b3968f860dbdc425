// Package tcp implements the transport interfaces over TCP sockets.
//
// Blocking socket calls run in goroutines owned by this package: one accept
// loop per Listener and one reader per Client. The request engine only ever
// sees the non-blocking side.
package tcp

import (
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/marmos91/wwwserver/internal/logger"
	"github.com/marmos91/wwwserver/internal/ratelimiter"
	"github.com/marmos91/wwwserver/pkg/metrics"
	"github.com/marmos91/wwwserver/pkg/transport"
)

// Config holds listener parameters. Zero values select the defaults.
type Config struct {
	// Address is the listen address, e.g. ":80" or "127.0.0.1:0".
	Address string
	// ReadBufferSize is the inbound buffer per client. Default 1024.
	ReadBufferSize int
	// WriteTimeout bounds each write to a client. Default 5s.
	WriteTimeout time.Duration
	// Backlog is how many admitted connections may wait for the engine.
	// Default 1.
	Backlog int
	// Admission, when set, decides whether an accepted connection is kept.
	Admission *ratelimiter.Admission
	// Metrics defaults to a no-op implementation.
	Metrics metrics.WWWMetrics
}

func (c *Config) applyDefaults() {
	if c.ReadBufferSize <= 0 {
		c.ReadBufferSize = 1024
	}
	if c.WriteTimeout == 0 {
		c.WriteTimeout = 5 * time.Second
	}
	if c.Backlog <= 0 {
		c.Backlog = 1
	}
	if c.Metrics == nil {
		c.Metrics = metrics.NewNoopWWWMetrics()
	}
}

// Listener accepts TCP connections in the background and queues them for
// the engine.
type Listener struct {
	cfg     Config
	ln      net.Listener
	pending chan *Client
	wake    chan struct{}

	closeOnce sync.Once
	done      chan struct{}
	wg        sync.WaitGroup
}

var _ transport.Listener = (*Listener)(nil)

// Listen opens the socket and starts the accept loop.
func Listen(cfg Config) (*Listener, error) {
	cfg.applyDefaults()

	ln, err := net.Listen("tcp", cfg.Address)
	if err != nil {
		return nil, fmt.Errorf("listen on %s: %w", cfg.Address, err)
	}

	l := &Listener{
		cfg:     cfg,
		ln:      ln,
		pending: make(chan *Client, cfg.Backlog),
		wake:    make(chan struct{}, 1),
		done:    make(chan struct{}),
	}

	l.wg.Add(1)
	go l.acceptLoop()
	return l, nil
}

func (l *Listener) acceptLoop() {
	defer l.wg.Done()

	for {
		conn, err := l.ln.Accept()
		if err != nil {
			select {
			case <-l.done:
				return
			default:
			}
			logger.Debug("tcp accept: %v", err)
			// Avoid spinning on persistent errors such as fd exhaustion.
			time.Sleep(10 * time.Millisecond)
			continue
		}

		if l.cfg.Admission != nil && !l.cfg.Admission.Admit(conn.RemoteAddr()) {
			logger.Debug("tcp connection from %v rejected by admission", conn.RemoteAddr())
			l.cfg.Metrics.RecordConnectionRejected()
			_ = conn.Close()
			continue
		}

		c := newClient(conn, l.cfg.ReadBufferSize, l.cfg.WriteTimeout, l.wake)
		select {
		case l.pending <- c:
			l.cfg.Metrics.RecordConnectionAccepted()
			notify(l.wake)
		case <-l.done:
			_ = c.Close()
			return
		}
	}
}

// Accept returns a queued connection without blocking.
func (l *Listener) Accept() (transport.Client, bool) {
	select {
	case c := <-l.pending:
		return c, true
	default:
		return nil, false
	}
}

// Wake is signalled whenever a connection is queued or a client receives
// bytes. Schedulers can wait on it between ticks instead of polling.
func (l *Listener) Wake() <-chan struct{} {
	return l.wake
}

// Addr returns the bound address.
func (l *Listener) Addr() net.Addr {
	return l.ln.Addr()
}

// Port returns the bound TCP port, useful when listening on port 0.
func (l *Listener) Port() int {
	if addr, ok := l.ln.Addr().(*net.TCPAddr); ok {
		return addr.Port
	}
	return 0
}

// Close stops accepting and closes every connection still queued.
// Connections already handed out are owned by the caller.
func (l *Listener) Close() error {
	var err error
	l.closeOnce.Do(func() {
		close(l.done)
		err = l.ln.Close()
		l.wg.Wait()

		for {
			select {
			case c := <-l.pending:
				_ = c.Close()
			default:
				return
			}
		}
	})
	return err
}
