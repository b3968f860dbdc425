// Package clock provides the free-running microsecond counter used to time
// requests and ticks.
//
// The counter is 32 bits wide and wraps roughly every 71.6 minutes, so
// intervals must always be computed with Elapsed rather than by plain
// subtraction of two readings.
package clock

import (
	"math"
	"sync"
	"time"
)

// Clock returns the current value of a wrapping microsecond counter.
type Clock interface {
	Micros() uint32
}

// Elapsed returns the number of microseconds between start and end,
// accounting for a single wraparound of the counter.
func Elapsed(start, end uint32) uint32 {
	if end < start {
		return (math.MaxUint32 - start) + 1 + end
	}
	return end - start
}

// Duration converts a microsecond count into a time.Duration.
func Duration(micros uint32) time.Duration {
	return time.Duration(micros) * time.Microsecond
}

// Micros converts d into a microsecond count, saturating at MaxUint32.
func Micros(d time.Duration) uint32 {
	us := d.Microseconds()
	switch {
	case us <= 0:
		return 0
	case us >= math.MaxUint32:
		return math.MaxUint32
	default:
		return uint32(us)
	}
}

// System is a Clock backed by the monotonic clock of the process.
type System struct {
	epoch time.Time
}

// NewSystem returns a System clock that reads zero now.
func NewSystem() *System {
	return &System{epoch: time.Now()}
}

// Micros truncates the elapsed time since construction to 32 bits.
func (s *System) Micros() uint32 {
	return uint32(time.Since(s.epoch).Microseconds())
}

// Manual is a Clock that only moves when told to. Safe for concurrent use.
type Manual struct {
	mu  sync.Mutex
	now uint32
}

// NewManual returns a Manual clock reading start.
func NewManual(start uint32) *Manual {
	return &Manual{now: start}
}

func (m *Manual) Micros() uint32 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.now
}

// Set moves the clock to an absolute reading.
func (m *Manual) Set(micros uint32) {
	m.mu.Lock()
	m.now = micros
	m.mu.Unlock()
}

// Advance moves the clock forward, wrapping like the hardware counter.
func (m *Manual) Advance(micros uint32) {
	m.mu.Lock()
	m.now += micros
	m.mu.Unlock()
}
