// Package ini implements a confstore.Store over an INI file that is scanned
// one line per GetValue call.
//
// Nothing is cached: every lookup rescans the file from the top, and each
// call reads exactly one line, so a lookup never holds the caller for longer
// than a single small read. Section and key names are compared exactly.
package ini

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/marmos91/wwwserver/pkg/store/confstore"
)

// Store reads an INI file from disk.
type Store struct {
	path string

	mu     sync.Mutex
	file   *os.File
	closed bool
}

// New opens the INI file at path.
func New(path string) (*Store, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w: %v", path, confstore.ErrSourceMissing, err)
	}
	return &Store{path: path, file: f}, nil
}

// Path returns the file the store reads.
func (s *Store) Path() string {
	return s.path
}

// GetValue reads the next line of the file and advances st.
func (s *Store) GetValue(ctx context.Context, section, key string, buf []byte, st *confstore.ReadState) (confstore.Status, int, error) {
	if err := ctx.Err(); err != nil {
		return confstore.StatusInProgress, 0, err
	}

	line, next, err := s.readLine(buf, st.Offset)
	if errors.Is(err, io.EOF) {
		if st.InSection {
			return confstore.StatusKeyNotFound, 0, nil
		}
		return confstore.StatusSectionNotFound, 0, nil
	}
	if err != nil {
		return confstore.StatusInProgress, 0, err
	}
	st.Offset = next

	kind, name, value := confstore.ParseLine(line)
	switch kind {
	case confstore.LineSection:
		if st.InSection {
			// The section ended without the key.
			return confstore.StatusKeyNotFound, 0, nil
		}
		if string(name) == section {
			st.InSection = true
		}
	case confstore.LineKeyValue:
		if st.InSection && string(name) == key {
			n := copy(buf, value)
			return confstore.StatusFound, n, nil
		}
	}

	return confstore.StatusInProgress, 0, nil
}

// readLine reads the line starting at offset into buf. It returns the line
// without its terminator and the offset of the following line. io.EOF is
// returned only when no bytes remain.
func (s *Store) readLine(buf []byte, offset int64) ([]byte, int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil, 0, confstore.ErrClosed
	}
	if len(buf) == 0 {
		return nil, 0, confstore.ErrBufferTooSmall
	}

	n, err := s.file.ReadAt(buf, offset)
	if err != nil && !errors.Is(err, io.EOF) {
		return nil, 0, fmt.Errorf("read %s at %d: %w", s.path, offset, err)
	}
	if n == 0 {
		return nil, 0, io.EOF
	}

	if i := bytes.IndexByte(buf[:n], '\n'); i >= 0 {
		return bytes.TrimSuffix(buf[:i], []byte{'\r'}), offset + int64(i) + 1, nil
	}
	if errors.Is(err, io.EOF) {
		// Last line without a terminator.
		return bytes.TrimSuffix(buf[:n], []byte{'\r'}), offset + int64(n), nil
	}
	return nil, 0, fmt.Errorf("line at offset %d of %s: %w", offset, s.path, confstore.ErrBufferTooSmall)
}

// Validate scans the whole file and reports the first line that does not fit
// in buf or cannot be parsed.
func (s *Store) Validate(ctx context.Context, buf []byte) error {
	var offset int64
	for lineNo := 1; ; lineNo++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		line, next, err := s.readLine(buf, offset)
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("line %d: %w", lineNo, err)
		}
		if kind, _, _ := confstore.ParseLine(line); kind == confstore.LineInvalid {
			return fmt.Errorf("%s line %d: %w", s.path, lineNo, confstore.ErrSyntax)
		}
		offset = next
	}
}

// Close closes the underlying file.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}
	s.closed = true
	return s.file.Close()
}
