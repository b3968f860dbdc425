package www

import "github.com/marmos91/wwwserver/internal/clock"

// Stats are the engine's lifetime counters. Times are in microseconds of the
// wrapping engine clock.
type Stats struct {
	// RequestCount is the number of requests answered in full. Clients that
	// go away before the response is complete are not counted.
	RequestCount uint32
	// RequestTimeWorstCase is the longest accept-to-disconnect time.
	RequestTimeWorstCase uint32
	// TaskTimeWorstCase is the longest single tick.
	TaskTimeWorstCase uint32
	// TaskWorstCaseState is the state the longest tick started in.
	TaskWorstCaseState State
	// RequestStarted is when the request in flight was accepted.
	RequestStarted uint32
}

// record accounts for one tick that ran from start to end in state initial.
// finished marks the tick that released a fully answered request; the
// request duration is then returned.
func (s *Stats) record(start, end uint32, initial State, finished bool) (uint32, bool) {
	if d := clock.Elapsed(start, end); d > s.TaskTimeWorstCase {
		s.TaskTimeWorstCase = d
		s.TaskWorstCaseState = initial
	}

	switch {
	case initial == StateNoClient:
		s.RequestStarted = start
	case finished:
		s.RequestCount++
		d := clock.Elapsed(s.RequestStarted, end)
		if d > s.RequestTimeWorstCase {
			s.RequestTimeWorstCase = d
		}
		return d, true
	}
	return 0, false
}
