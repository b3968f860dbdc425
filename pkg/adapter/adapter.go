package adapter

import (
	"context"

	"github.com/marmos91/wwwserver/pkg/store/confstore"
	"github.com/marmos91/wwwserver/pkg/store/medium"
)

// Adapter represents a protocol server that can be managed by Server.
//
// Every adapter shares the same site configuration store and storage medium,
// so all of them serve the same site.
//
// Lifecycle:
//  1. Creation: Adapter is created with protocol-specific configuration
//  2. Store injection: SetStores() provides the shared site store and medium
//  3. Startup: Serve() starts the protocol server and blocks until shutdown
//  4. Shutdown: Stop() initiates graceful shutdown with timeout
//
// Thread safety:
// Implementations must be safe for concurrent use. SetStores() is called
// once before Serve(), but Stop() may be called concurrently with Serve().
type Adapter interface {
	// Serve starts the protocol server and blocks until the context is cancelled
	// or an unrecoverable error occurs.
	//
	// When the context is cancelled, Serve must initiate graceful shutdown:
	//   - Stop accepting new connections
	//   - Let the request in flight finish (with timeout)
	//   - Clean up resources
	//
	// If Serve returns before context cancellation, Server treats it as
	// a fatal error and stops all other adapters.
	//
	// Returns:
	//   - nil on graceful shutdown
	//   - error if startup fails or shutdown is not graceful
	Serve(ctx context.Context) error

	// SetStores injects the shared site configuration store and the medium
	// files are served from.
	//
	// Called exactly once by Server before Serve(), no synchronization needed.
	SetStores(site confstore.Store, files medium.Medium)

	// Stop initiates graceful shutdown of the protocol server.
	//
	// Implementations must:
	//   - Be safe to call multiple times (idempotent)
	//   - Be safe to call concurrently with Serve()
	//   - Respect the context timeout for shutdown operations
	//   - Clean up all resources (listeners, connections, goroutines)
	Stop(ctx context.Context) error

	// Protocol returns the human-readable protocol name for logging and metrics.
	//
	// The returned value should be constant for the lifecycle of the adapter.
	Protocol() string

	// Port returns the TCP port the adapter is listening on. Before Serve()
	// has bound the socket it returns the configured port, which may be 0.
	Port() int
}
