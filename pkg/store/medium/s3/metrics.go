package s3

import "time"

// S3Metrics provides observability for the requests the medium makes.
//
// Metrics are optional. A nil Config.Metrics disables collection.
type S3Metrics interface {
	// ObserveOperation records one API call with its duration and outcome.
	// operation is "HeadObject", "GetObject" or "ListObjectsV2".
	ObserveOperation(operation string, duration time.Duration, err error)

	// RecordBytes records bytes read from object bodies.
	RecordBytes(operation string, bytes int64)
}

// noopMetrics is the default no-op metrics implementation
type noopMetrics struct{}

func (noopMetrics) ObserveOperation(operation string, duration time.Duration, err error) {}
func (noopMetrics) RecordBytes(operation string, bytes int64)                            {}

// observe reports an operation that started at start. Not-found answers are
// expected lookups and are not counted as errors.
func (m *Medium) observe(operation string, start time.Time, err error) {
	if isNotFound(err) {
		err = nil
	}
	m.metrics.ObserveOperation(operation, time.Since(start), err)
}
