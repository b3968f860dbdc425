// Package confstore defines the site configuration store consulted by the
// request engine.
//
// A site configuration is a set of named sections, each holding key/value
// pairs. Sections are named after URL paths ("/", "/docs", "/docs/a.html")
// plus a few special sections such as "mime types". The engine walks from the
// most specific section to the root, asking for one key at a time.
//
// Lookups are resumable. A backend that cannot answer in bounded time returns
// StatusInProgress and records its position in the caller-owned ReadState;
// the caller re-invokes GetValue with the same ReadState on a later tick. A
// zero ReadState starts a new lookup.
package confstore

import "context"

// Status is the outcome of one GetValue step.
type Status int

const (
	// StatusInProgress means more calls are needed to finish the lookup.
	StatusInProgress Status = iota
	// StatusFound means the value was written to the caller's buffer.
	StatusFound
	// StatusKeyNotFound means the section exists but has no such key.
	StatusKeyNotFound
	// StatusSectionNotFound means the section does not exist.
	StatusSectionNotFound
)

func (s Status) String() string {
	switch s {
	case StatusInProgress:
		return "in progress"
	case StatusFound:
		return "found"
	case StatusKeyNotFound:
		return "key not found"
	case StatusSectionNotFound:
		return "section not found"
	default:
		return "unknown"
	}
}

// Done reports whether the lookup has finished, with or without a value.
func (s Status) Done() bool {
	return s != StatusInProgress
}

// ReadState is the resumable position of a lookup. Backends own the meaning
// of the fields; callers only reset it to the zero value between lookups.
type ReadState struct {
	// Offset is a backend-defined cursor, a byte offset for file stores.
	Offset int64
	// InSection is set once the requested section header has been seen.
	InSection bool
}

// Reset prepares the state for a new lookup.
func (s *ReadState) Reset() {
	*s = ReadState{}
}

// Store is a site configuration backend.
type Store interface {
	// GetValue performs one step of looking up key in section. On
	// StatusFound the value occupies buf[:n]. buf doubles as the backend's
	// working space, so its previous contents are not preserved.
	GetValue(ctx context.Context, section, key string, buf []byte, st *ReadState) (Status, int, error)

	// Close releases backend resources.
	Close() error
}

// Validator is implemented by stores that can check their source up front.
type Validator interface {
	// Validate checks that every entry of the store can be read with a
	// working buffer of len(buf) bytes.
	Validate(ctx context.Context, buf []byte) error
}

// Lookup runs GetValue to completion. It is meant for callers outside the
// tick loop, such as tools and tests.
func Lookup(ctx context.Context, s Store, section, key string, buf []byte) (Status, int, error) {
	var st ReadState
	for {
		if err := ctx.Err(); err != nil {
			return StatusInProgress, 0, err
		}
		status, n, err := s.GetValue(ctx, section, key, buf, &st)
		if err != nil || status.Done() {
			return status, n, err
		}
	}
}
