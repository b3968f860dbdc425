// Package www implements the tick-driven request engine of the server.
//
// An Engine serves one client at a time. The owner calls ProcessRequest once
// per tick with a scratch buffer; each call performs the bounded work of a
// single connection state (read one line, try one configuration prefix, send
// one file chunk) and returns the new state. Nothing blocks waiting for the
// client: a missing line is simply retried on the next tick.
//
// Routing is driven by a site configuration. Sections are named after URL
// paths and are searched from the request URL up to "/":
//
//	[/]
//	handler = default
//
//	[/secure]
//	handler = forbidden
//	error document 403 = /errors/403.html
//
//	[/old]
//	handler = moved permanently
//	location = /new/
//
//	[mime types]
//	html = text/html
//	default = application/octet-stream
package www

import (
	"time"

	"github.com/google/uuid"

	"github.com/marmos91/wwwserver/internal/clock"
	"github.com/marmos91/wwwserver/internal/logger"
	"github.com/marmos91/wwwserver/pkg/metrics"
	"github.com/marmos91/wwwserver/pkg/store/confstore"
	"github.com/marmos91/wwwserver/pkg/store/medium"
	"github.com/marmos91/wwwserver/pkg/transport"
)

// DefaultDrainDelay is how long a finished connection is held open so the
// client can read the rest of the response.
const DefaultDrainDelay = 2 * time.Second

// Options wires an Engine to its collaborators.
type Options struct {
	Listener transport.Listener
	Store    confstore.Store
	Medium   medium.Medium

	// Clock defaults to a system clock.
	Clock clock.Clock
	// Metrics defaults to a no-op implementation.
	Metrics metrics.WWWMetrics
	// DrainDelay defaults to DefaultDrainDelay. Negative means no delay.
	DrainDelay time.Duration
}

// Engine is the per-server connection context and state machine. It is not
// safe for concurrent use; all calls must come from the tick goroutine.
type Engine struct {
	listener transport.Listener
	store    confstore.Store
	medium   medium.Medium
	clock    clock.Clock
	metrics  metrics.WWWMetrics
	drain    uint32

	state State
	// fileOffset is the resume offset of StateSendingFile.
	fileOffset int64
	// closingSince is when StateClosingConnection was entered.
	closingSince uint32

	method        Method
	url           []byte
	query         []byte
	handler       Handler
	status        Status
	authenticated bool

	file   medium.File
	client transport.Client
	connID string
	lookup lookup

	stats   Stats
	stalled bool
}

// New creates an Engine in StateNoClient.
func New(opts Options) *Engine {
	if opts.Clock == nil {
		opts.Clock = clock.NewSystem()
	}
	if opts.Metrics == nil {
		opts.Metrics = metrics.NewNoopWWWMetrics()
	}
	switch {
	case opts.DrainDelay == 0:
		opts.DrainDelay = DefaultDrainDelay
	case opts.DrainDelay < 0:
		opts.DrainDelay = 0
	}

	e := &Engine{
		listener: opts.Listener,
		store:    opts.Store,
		medium:   opts.Medium,
		clock:    opts.Clock,
		metrics:  opts.Metrics,
		drain:    clock.Micros(opts.DrainDelay),
		url:      make([]byte, 0, MaxURLLen),
		query:    make([]byte, 0, MaxQueryLen),
		stats:    Stats{TaskWorstCaseState: StateNone},
	}
	e.disconnect()
	return e
}

// State returns the current connection state.
func (e *Engine) State() State {
	return e.state
}

// Stats returns a snapshot of the request statistics.
func (e *Engine) Stats() Stats {
	return e.stats
}

// Stalled reports whether the last tick found nothing to do: no client
// waiting, no complete line from the client, or the drain delay still
// running. Schedulers use it to sleep until the next tick instead of
// calling straight back.
func (e *Engine) Stalled() bool {
	return e.stalled
}

// URL returns the current request target. Its meaning depends on the state:
// the requested path, a redirect target or an error document path.
func (e *Engine) URL() string {
	return string(e.url)
}

// Query returns the request query string without the '?'.
func (e *Engine) Query() string {
	return string(e.query)
}

// Method returns the request method, MethodUnset before the request line.
func (e *Engine) Method() Method {
	return e.method
}

// Handler returns the handler selected for the current request.
func (e *Engine) Handler() Handler {
	return e.handler
}

// Status returns the status that is or will be reported.
func (e *Engine) Status() Status {
	return e.status
}

// Authenticated reports whether an Authorization header was seen.
func (e *Engine) Authenticated() bool {
	return e.authenticated
}

// Disconnect drops the current client, if any, and returns to StateNoClient.
func (e *Engine) Disconnect() {
	e.disconnect()
}

// disconnect releases the client and the open file and resets every
// per-connection field.
func (e *Engine) disconnect() {
	if e.client != nil {
		if err := e.client.Close(); err != nil {
			logger.Debug("conn=%s close: %v", e.connID, err)
		}
		e.metrics.RecordConnectionClosed()
		e.client = nil
	}
	e.closeFile()

	e.state = StateNoClient
	e.fileOffset = 0
	e.closingSince = 0
	e.method = MethodUnset
	e.url = e.url[:0]
	e.query = e.query[:0]
	e.handler = HandlerDefault
	e.status = StatusOK
	e.authenticated = false
	e.connID = ""
	e.lookup = lookup{}
}

func (e *Engine) accept() bool {
	client, ok := e.listener.Accept()
	if !ok || client == nil {
		return false
	}
	e.client = client
	e.connID = uuid.NewString()
	logger.Debug("conn=%s accepted from %v", e.connID, client.RemoteAddr())
	return true
}

func (e *Engine) closeFile() {
	if e.file == nil {
		return
	}
	if err := e.file.Close(); err != nil {
		logger.Debug("conn=%s close file: %v", e.connID, err)
	}
	e.file = nil
}

// setURL replaces the URL, truncating to MaxURLLen.
func (e *Engine) setURL(b []byte) {
	e.url = append(e.url[:0], b[:min(len(b), MaxURLLen)]...)
}

func (e *Engine) setURLString(s string) {
	e.url = append(e.url[:0], s[:min(len(s), MaxURLLen)]...)
}
