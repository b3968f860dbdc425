package www

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/marmos91/wwwserver/internal/logger"
	wwwproto "github.com/marmos91/wwwserver/internal/protocol/www"
	"github.com/marmos91/wwwserver/internal/ratelimiter"
	"github.com/marmos91/wwwserver/pkg/metrics"
	"github.com/marmos91/wwwserver/pkg/store/confstore"
	"github.com/marmos91/wwwserver/pkg/store/medium"
	"github.com/marmos91/wwwserver/pkg/transport/tcp"
)

// WWWAdapter implements the adapter.Adapter interface for the web server.
//
// The adapter owns the TCP listener, the request engine and the goroutine
// that ticks it. The engine serves one client at a time; other connections
// wait in the listener until it returns to idle.
//
// Tick loop:
// Each iteration calls ProcessRequest once with the adapter's scratch
// buffer. When the engine reports that it is stalled (no client, no complete
// line, drain delay running) the loop sleeps until the listener signals
// activity or TickInterval elapses.
//
// Shutdown flow:
//  1. Context cancelled or Stop() called
//  2. Listener closed (no new connections, queued ones dropped)
//  3. The request in flight keeps ticking for up to ShutdownTimeout
//  4. After the timeout the client is disconnected
//
// Thread safety:
// All exported methods are safe for concurrent use. The engine itself is
// only touched by the tick goroutine.
type WWWAdapter struct {
	config  WWWConfig
	metrics metrics.WWWMetrics

	site  confstore.Store
	files medium.Medium

	listener *tcp.Listener
	port     atomic.Int32

	// requestCtx is passed to every tick and cancelled when the in-flight
	// request is abandoned.
	requestCtx     context.Context
	cancelRequests context.CancelFunc

	shutdownOnce sync.Once
	shutdown     chan struct{}
	ready        chan struct{}
	stopped      chan struct{}

	statsMu sync.Mutex
	stats   wwwproto.Stats
}

// WWWConfig holds configuration parameters for the web server.
//
// Default values (applied by New if zero):
//   - BufferSize: 512
//   - TickInterval: 1ms
//   - DrainDelay: 2s
//   - ReadBufferSize: 1024
//   - WriteTimeout: 5s
//   - ShutdownTimeout: 5s
//   - MetricsLogInterval: 5m
//
// Admission limiting is off unless AcceptRate or PerHostRate is set.
type WWWConfig struct {
	// Enabled controls whether the web adapter is active.
	Enabled bool `mapstructure:"enabled"`

	// BindAddress is the interface to listen on. Empty means all interfaces.
	BindAddress string `mapstructure:"bind_address"`

	// Port is the TCP port to listen on. 0 lets the kernel pick one; the
	// bound port is available from Port() once Ready() is closed.
	Port int `mapstructure:"port" validate:"min=0,max=65535"`

	// BufferSize is the scratch buffer handed to the engine on every tick.
	// It bounds the longest request or header line and the file chunk size.
	BufferSize int `mapstructure:"buffer_size" validate:"omitempty,min=3"`

	// TickInterval is how long the loop sleeps when the engine has nothing
	// to do and no activity is signalled.
	TickInterval time.Duration `mapstructure:"tick_interval" validate:"min=0"`

	// DrainDelay is how long a finished connection stays open so the client
	// can read the whole response.
	DrainDelay time.Duration `mapstructure:"drain_delay" validate:"min=0"`

	// ReadBufferSize is the inbound buffer per client connection.
	ReadBufferSize int `mapstructure:"read_buffer_size" validate:"min=0"`

	// WriteTimeout bounds each write to a client.
	WriteTimeout time.Duration `mapstructure:"write_timeout" validate:"min=0"`

	// AcceptRate is the sustained number of connections admitted per second.
	// 0 means unlimited.
	AcceptRate float64 `mapstructure:"accept_rate" validate:"min=0"`

	// AcceptBurst is the number of connections admitted back to back.
	AcceptBurst int `mapstructure:"accept_burst" validate:"min=0"`

	// PerHostRate limits admissions per remote host. 0 disables it.
	PerHostRate float64 `mapstructure:"per_host_rate" validate:"min=0"`

	// PerHostBurst is the per-host burst.
	PerHostBurst int `mapstructure:"per_host_burst" validate:"min=0"`

	// ShutdownTimeout is how long the request in flight may take to finish
	// once shutdown starts.
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout" validate:"required,gt=0"`

	// MetricsLogInterval is the interval at which engine statistics are
	// logged. 0 disables periodic logging.
	MetricsLogInterval time.Duration `mapstructure:"metrics_log_interval" validate:"min=0"`
}

// applyDefaults fills in zero values with sensible defaults.
func (c *WWWConfig) applyDefaults() {
	// Note: Enabled defaults are handled in pkg/config/defaults.go
	// to allow explicit false values from configuration files.

	if c.BufferSize == 0 {
		c.BufferSize = 512
	}
	if c.TickInterval == 0 {
		c.TickInterval = time.Millisecond
	}
	if c.DrainDelay == 0 {
		c.DrainDelay = wwwproto.DefaultDrainDelay
	}
	if c.ReadBufferSize == 0 {
		c.ReadBufferSize = 1024
	}
	if c.WriteTimeout == 0 {
		c.WriteTimeout = 5 * time.Second
	}
	if c.ShutdownTimeout == 0 {
		c.ShutdownTimeout = 5 * time.Second
	}
	if c.MetricsLogInterval == 0 {
		c.MetricsLogInterval = 5 * time.Minute
	}
}

// validate checks that the configuration is usable.
func (c *WWWConfig) validate() error {
	if c.Port < 0 || c.Port > 65535 {
		return fmt.Errorf("invalid port %d: must be 0-65535", c.Port)
	}
	if c.BufferSize < wwwproto.MinBufferSize {
		return fmt.Errorf("invalid BufferSize %d: must be >= %d", c.BufferSize, wwwproto.MinBufferSize)
	}
	if c.ReadBufferSize < c.BufferSize {
		return fmt.Errorf("invalid ReadBufferSize %d: must be >= BufferSize %d", c.ReadBufferSize, c.BufferSize)
	}
	if c.TickInterval < 0 || c.DrainDelay < 0 || c.WriteTimeout < 0 {
		return fmt.Errorf("invalid timing: tick_interval, drain_delay and write_timeout must be >= 0")
	}
	if c.AcceptRate < 0 || c.PerHostRate < 0 {
		return fmt.Errorf("invalid admission rate: must be >= 0")
	}
	if c.ShutdownTimeout <= 0 {
		return fmt.Errorf("invalid ShutdownTimeout %v: must be > 0", c.ShutdownTimeout)
	}
	return nil
}

// New creates a WWWAdapter with the specified configuration.
//
// The adapter is created in a stopped state. Call SetStores() to inject
// the site store and medium, then call Serve() to start accepting
// connections.
//
// Panics if config validation fails.
func New(config WWWConfig, wwwMetrics metrics.WWWMetrics) *WWWAdapter {
	config.applyDefaults()
	if err := config.validate(); err != nil {
		panic(fmt.Sprintf("invalid WWW config: %v", err))
	}

	if wwwMetrics == nil {
		wwwMetrics = metrics.NewNoopWWWMetrics()
	}

	requestCtx, cancelRequests := context.WithCancel(context.Background())

	a := &WWWAdapter{
		config:         config,
		metrics:        wwwMetrics,
		requestCtx:     requestCtx,
		cancelRequests: cancelRequests,
		shutdown:       make(chan struct{}),
		ready:          make(chan struct{}),
		stopped:        make(chan struct{}),
		stats:          wwwproto.Stats{TaskWorstCaseState: wwwproto.StateNone},
	}
	a.port.Store(int32(config.Port))
	return a
}

// SetStores injects the shared site store and medium.
func (a *WWWAdapter) SetStores(site confstore.Store, files medium.Medium) {
	a.site = site
	a.files = files
	logger.Debug("WWW stores configured")
}

func (a *WWWAdapter) admission() *ratelimiter.Admission {
	if a.config.AcceptRate <= 0 && a.config.PerHostRate <= 0 {
		return nil
	}
	return ratelimiter.New(ratelimiter.Config{
		Rate:         a.config.AcceptRate,
		Burst:        a.config.AcceptBurst,
		PerHostRate:  a.config.PerHostRate,
		PerHostBurst: a.config.PerHostBurst,
	})
}

// Serve binds the listener and runs the tick loop until the context is
// cancelled or Stop() is called.
func (a *WWWAdapter) Serve(ctx context.Context) error {
	defer close(a.stopped)

	if a.site == nil || a.files == nil {
		return errors.New("WWW adapter: SetStores must be called before Serve")
	}

	addr := net.JoinHostPort(a.config.BindAddress, strconv.Itoa(a.config.Port))
	listener, err := tcp.Listen(tcp.Config{
		Address:        addr,
		ReadBufferSize: a.config.ReadBufferSize,
		WriteTimeout:   a.config.WriteTimeout,
		Admission:      a.admission(),
		Metrics:        a.metrics,
	})
	if err != nil {
		return fmt.Errorf("failed to create WWW listener on %s: %w", addr, err)
	}
	a.listener = listener
	a.port.Store(int32(listener.Port()))
	close(a.ready)

	logger.Info("WWW server listening on %s", listener.Addr())
	logger.Debug("WWW config: buffer_size=%d tick_interval=%v drain_delay=%v read_buffer_size=%d write_timeout=%v",
		a.config.BufferSize, a.config.TickInterval, a.config.DrainDelay, a.config.ReadBufferSize, a.config.WriteTimeout)

	go func() {
		select {
		case <-ctx.Done():
			logger.Info("WWW shutdown signal received: %v", ctx.Err())
			a.initiateShutdown()
		case <-a.shutdown:
		}
	}()

	engine := wwwproto.New(wwwproto.Options{
		Listener:   listener,
		Store:      a.site,
		Medium:     a.files,
		Metrics:    a.metrics,
		DrainDelay: a.config.DrainDelay,
	})

	return a.run(engine)
}

// run ticks the engine until shutdown, then lets the request in flight
// finish.
func (a *WWWAdapter) run(engine *wwwproto.Engine) error {
	buf := make([]byte, a.config.BufferSize)
	timer := time.NewTimer(a.config.TickInterval)
	defer timer.Stop()
	lastLog := time.Now()

	// Cleared once the deadline is armed; a closed channel would end every wait.
	shutdown := a.shutdown
	var deadline <-chan time.Time
	for {
		if deadline == nil {
			select {
			case <-shutdown:
				if engine.State() == wwwproto.StateNoClient {
					logger.Info("WWW graceful shutdown complete")
					return nil
				}
				logger.Info("WWW graceful shutdown: waiting for request in flight (timeout: %v)", a.config.ShutdownTimeout)
				deadline = time.After(a.config.ShutdownTimeout)
				shutdown = nil
			default:
			}
		} else if engine.State() == wwwproto.StateNoClient {
			logger.Info("WWW graceful shutdown complete")
			return nil
		}

		engine.ProcessRequest(a.requestCtx, buf)
		a.publishStats(engine.Stats())

		if a.config.MetricsLogInterval > 0 && time.Since(lastLog) >= a.config.MetricsLogInterval {
			lastLog = time.Now()
			a.logStats()
		}

		if !engine.Stalled() {
			continue
		}

		if !timer.Stop() {
			select {
			case <-timer.C:
			default:
			}
		}
		timer.Reset(a.config.TickInterval)
		select {
		case <-a.listener.Wake():
		case <-timer.C:
		case <-shutdown:
		case <-deadline:
			logger.Warn("WWW shutdown timeout exceeded after %v: disconnecting client", a.config.ShutdownTimeout)
			a.cancelRequests()
			engine.Disconnect()
			a.publishStats(engine.Stats())
			return fmt.Errorf("WWW shutdown timeout: request in flight abandoned")
		}
	}
}

// initiateShutdown closes the listener and signals the tick loop. Safe to
// call multiple times.
func (a *WWWAdapter) initiateShutdown() {
	a.shutdownOnce.Do(func() {
		logger.Debug("WWW shutdown initiated")
		close(a.shutdown)

		if a.listener != nil {
			if err := a.listener.Close(); err != nil {
				logger.Debug("Error closing WWW listener: %v", err)
			}
		}
	})
}

// Stop initiates graceful shutdown and waits for the tick loop to exit or
// for ctx to expire.
func (a *WWWAdapter) Stop(ctx context.Context) error {
	// Serve may still be binding; wait for it so the listener is closed.
	select {
	case <-a.ready:
	case <-a.stopped:
	case <-ctx.Done():
		a.initiateShutdown()
		return ctx.Err()
	}
	a.initiateShutdown()

	select {
	case <-a.stopped:
		return nil
	case <-ctx.Done():
		logger.Warn("WWW shutdown context cancelled: %v", ctx.Err())
		return ctx.Err()
	}
}

func (a *WWWAdapter) publishStats(s wwwproto.Stats) {
	a.statsMu.Lock()
	a.stats = s
	a.statsMu.Unlock()
}

// Stats returns the engine statistics as of the last tick.
func (a *WWWAdapter) Stats() wwwproto.Stats {
	a.statsMu.Lock()
	defer a.statsMu.Unlock()
	return a.stats
}

func (a *WWWAdapter) logStats() {
	s := a.Stats()
	logger.Info("WWW metrics: requests=%d worst_request=%v worst_tick=%v worst_tick_state=%s",
		s.RequestCount,
		time.Duration(s.RequestTimeWorstCase)*time.Microsecond,
		time.Duration(s.TaskTimeWorstCase)*time.Microsecond,
		s.TaskWorstCaseState)
}

// Ready is closed once the listener is bound.
func (a *WWWAdapter) Ready() <-chan struct{} {
	return a.ready
}

// Port returns the bound port once Serve has started, the configured one
// before.
func (a *WWWAdapter) Port() int {
	return int(a.port.Load())
}

// Protocol returns "WWW".
func (a *WWWAdapter) Protocol() string {
	return "WWW"
}
