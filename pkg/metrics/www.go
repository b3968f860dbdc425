package metrics

import "time"

// WWWMetrics observes the request engine and its transport.
//
// Every method is called from the engine's tick goroutine except the
// connection methods, which the transport calls from its accept goroutine.
type WWWMetrics interface {
	// RecordRequest records a finished request. method, status and handler
	// are the names used on the wire and in the site configuration.
	RecordRequest(method, status, handler string, duration time.Duration)

	// RecordTick records the time spent in one engine tick, labelled with
	// the state the tick started in.
	RecordTick(state string, duration time.Duration)

	// RecordBytesSent records response bytes written to the client.
	RecordBytesSent(bytes int64)

	// RecordConnectionAccepted counts a connection handed to the engine.
	RecordConnectionAccepted()

	// RecordConnectionRejected counts a connection refused by admission.
	RecordConnectionRejected()

	// RecordConnectionClosed counts a connection released by the engine.
	RecordConnectionClosed()
}

// NewNoopWWWMetrics returns a WWWMetrics that discards everything.
func NewNoopWWWMetrics() WWWMetrics {
	return noopWWWMetrics{}
}

type noopWWWMetrics struct{}

func (noopWWWMetrics) RecordRequest(method, status, handler string, duration time.Duration) {}
func (noopWWWMetrics) RecordTick(state string, duration time.Duration)                      {}
func (noopWWWMetrics) RecordBytesSent(bytes int64)                                          {}
func (noopWWWMetrics) RecordConnectionAccepted()                                            {}
func (noopWWWMetrics) RecordConnectionRejected()                                            {}
func (noopWWWMetrics) RecordConnectionClosed()                                              {}
