// Package server runs protocol adapters over a shared site store and medium.
package server

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/marmos91/wwwserver/internal/logger"
	"github.com/marmos91/wwwserver/pkg/adapter"
	"github.com/marmos91/wwwserver/pkg/store/confstore"
	"github.com/marmos91/wwwserver/pkg/store/medium"
)

// DefaultStopTimeout bounds the Stop() calls issued during shutdown.
const DefaultStopTimeout = 30 * time.Second

// Server manages the lifecycle of protocol adapters that share one site
// configuration store and one medium.
//
// Lifecycle:
//  1. Creation: New() with the shared stores
//  2. Registration: AddAdapter() for each protocol
//  3. Startup: Serve() starts all adapters concurrently
//  4. Shutdown: Context cancellation triggers graceful shutdown of all adapters
//
// Thread safety:
// Server is safe for concurrent use. Serve() may only be called once.
//
// Example usage:
//
//	srv := server.New(site, files)
//	srv.AddAdapter(www.New(wwwConfig, nil))
//
//	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
//	defer cancel()
//
//	if err := srv.Serve(ctx); err != nil && !errors.Is(err, context.Canceled) {
//	    log.Fatal(err)
//	}
type Server struct {
	site  confstore.Store
	files medium.Medium

	// stopTimeout bounds the Stop() calls made while shutting down.
	stopTimeout time.Duration

	// mu protects adapters and served
	mu       sync.RWMutex
	adapters []adapter.Adapter
	served   bool
}

// New creates a Server over the provided stores.
//
// Panics if either store is nil (indicates programmer error).
func New(site confstore.Store, files medium.Medium) *Server {
	if site == nil {
		panic("site store cannot be nil")
	}
	if files == nil {
		panic("medium cannot be nil")
	}

	return &Server{
		site:        site,
		files:       files,
		stopTimeout: DefaultStopTimeout,
		adapters:    make([]adapter.Adapter, 0, 2),
	}
}

// SetStopTimeout changes how long shutdown waits for each round of Stop()
// calls. Non-positive values restore the default.
func (s *Server) SetStopTimeout(d time.Duration) {
	if d <= 0 {
		d = DefaultStopTimeout
	}
	s.mu.Lock()
	s.stopTimeout = d
	s.mu.Unlock()
}

// AddAdapter registers a protocol adapter and injects the shared stores.
//
// Each adapter must implement a different protocol and listen on a different
// port. Port 0 (kernel-assigned) never conflicts.
//
// Panics if adapter is nil or Serve() has already been called.
func (s *Server) AddAdapter(a adapter.Adapter) error {
	if a == nil {
		panic("adapter cannot be nil")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.served {
		panic("cannot add adapter after Serve() has been called")
	}

	protocol := a.Protocol()
	port := a.Port()

	for _, existing := range s.adapters {
		if existing.Protocol() == protocol {
			return fmt.Errorf("adapter for protocol %s already registered", protocol)
		}
		if port != 0 && existing.Port() == port {
			return fmt.Errorf("port %d already in use by %s adapter", port, existing.Protocol())
		}
	}

	a.SetStores(s.site, s.files)
	s.adapters = append(s.adapters, a)

	logger.Info("Registered %s adapter on port %d", protocol, port)

	return nil
}

// Serve starts all registered adapters and blocks until the context is
// cancelled or an adapter fails.
//
// On shutdown all adapters receive Stop() in reverse registration order and
// Serve waits for every adapter's Serve() to return.
//
// Returns:
//   - ctx.Err() if shutdown was triggered by context cancellation
//   - the first adapter error if an adapter failed
//
// Panics if called more than once.
func (s *Server) Serve(ctx context.Context) error {
	s.mu.Lock()
	if s.served {
		s.mu.Unlock()
		panic("Serve() has already been called on this server instance")
	}
	s.served = true
	if len(s.adapters) == 0 {
		s.mu.Unlock()
		return fmt.Errorf("no adapters registered; call AddAdapter() before Serve()")
	}
	adapters := make([]adapter.Adapter, len(s.adapters))
	copy(adapters, s.adapters)
	stopTimeout := s.stopTimeout
	s.mu.Unlock()

	logger.Info("Starting server with %d adapter(s)", len(adapters))

	// Buffered so failing adapters never block
	errChan := make(chan adapterError, len(adapters))
	var wg sync.WaitGroup

	for _, adp := range adapters {
		wg.Add(1)
		go func(a adapter.Adapter) {
			defer wg.Done()

			protocol := a.Protocol()
			logger.Info("Starting %s adapter on port %d", protocol, a.Port())

			err := a.Serve(ctx)
			switch {
			case err == nil:
				logger.Info("%s adapter stopped", protocol)
			case errors.Is(err, context.Canceled) || ctx.Err() != nil:
				logger.Debug("%s adapter stopped during shutdown: %v", protocol, err)
			default:
				logger.Error("%s adapter failed: %v", protocol, err)
			}
			// Any return means the adapter is gone; shut the others down too.
			errChan <- adapterError{protocol: protocol, err: err}
		}(adp)
	}

	var shutdownErr error
	select {
	case <-ctx.Done():
		logger.Info("Shutdown signal received (reason: %v)", ctx.Err())
		shutdownErr = ctx.Err()

	case adapterErr := <-errChan:
		if adapterErr.err == nil {
			adapterErr.err = errors.New("stopped unexpectedly")
		}
		logger.Error("Adapter %s failed: %v - initiating shutdown of all adapters",
			adapterErr.protocol, adapterErr.err)
		shutdownErr = fmt.Errorf("%s adapter error: %w", adapterErr.protocol, adapterErr.err)
	}
	s.stopAllAdapters(adapters, stopTimeout)

	logger.Debug("Waiting for all adapters to complete shutdown")
	wg.Wait()

	logger.Info("Server stopped")

	return shutdownErr
}

// adapterError pairs an adapter protocol name with the result of its Serve().
type adapterError struct {
	protocol string
	err      error
}

// stopAllAdapters calls Stop() on every adapter in reverse registration
// order. Errors are logged and do not prevent the remaining adapters from
// being stopped.
func (s *Server) stopAllAdapters(adapters []adapter.Adapter, timeout time.Duration) {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	logger.Info("Initiating graceful shutdown of %d adapter(s)", len(adapters))

	for i := len(adapters) - 1; i >= 0; i-- {
		adp := adapters[i]
		protocol := adp.Protocol()

		logger.Debug("Stopping %s adapter (port %d)", protocol, adp.Port())

		if err := adp.Stop(ctx); err != nil && !errors.Is(err, context.Canceled) {
			logger.Error("Error stopping %s adapter: %v", protocol, err)
		} else {
			logger.Debug("%s adapter stopped", protocol)
		}
	}
}

// Adapters returns a copy of the registered adapters.
func (s *Server) Adapters() []adapter.Adapter {
	s.mu.RLock()
	defer s.mu.RUnlock()

	adapters := make([]adapter.Adapter, len(s.adapters))
	copy(adapters, s.adapters)
	return adapters
}
