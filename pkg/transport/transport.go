// Package transport defines the non-blocking connection interfaces the
// request engine is driven through.
//
// None of the methods block. A listener either has a connection ready or it
// does not; a client either has buffered bytes or it does not. Implementations
// do their waiting elsewhere, typically in goroutines that fill bounded
// buffers.
package transport

import (
	"errors"
	"io"
	"net"
)

// ErrNoData indicates that no inbound byte is buffered right now.
var ErrNoData = errors.New("transport: no data available")

// Client is one accepted connection.
type Client interface {
	// Write sends bytes to the peer. Writes are bounded by a deadline, never
	// by the peer's willingness to read.
	io.Writer

	// Connected reports whether the connection is usable. It stays true while
	// unread inbound bytes remain, even after the peer has closed.
	Connected() bool

	// Buffered returns the number of inbound bytes ready to read.
	Buffered() int

	// HasLine reports whether a complete line can be consumed now: a line
	// terminator is buffered, the inbound buffer is full, or the peer has
	// closed with bytes still buffered.
	HasLine() bool

	// ReadByte consumes one inbound byte or returns ErrNoData.
	ReadByte() (byte, error)

	// PeekByte returns the next inbound byte without consuming it, or
	// ErrNoData.
	PeekByte() (byte, error)

	LocalAddr() net.Addr
	RemoteAddr() net.Addr

	Close() error
}

// Listener hands out accepted connections.
type Listener interface {
	// Accept returns a pending connection, or false when none is waiting.
	Accept() (Client, bool)
}
