// Package memory implements an in-memory medium.Medium.
package memory

import (
	"context"
	"fmt"
	"io"
	"sort"
	"strings"
	"sync"

	"github.com/marmos91/wwwserver/pkg/store/medium"
)

// Medium is an in-memory file tree. Parent directories are created
// implicitly. Safe for concurrent use; open files see a snapshot.
type Medium struct {
	mu    sync.RWMutex
	files map[string][]byte
	dirs  map[string]struct{}
}

// New creates an empty tree containing only the root directory.
func New() *Medium {
	return &Medium{
		files: make(map[string][]byte),
		dirs:  map[string]struct{}{"/": {}},
	}
}

// WriteFile stores data at name, replacing any previous content.
func (m *Medium) WriteFile(name string, data []byte) {
	name = medium.Clean(name)

	m.mu.Lock()
	defer m.mu.Unlock()
	m.files[name] = append([]byte(nil), data...)
	m.mkdirParents(name)
}

// Mkdir creates a directory and its parents.
func (m *Medium) Mkdir(name string) {
	name = medium.Clean(name)

	m.mu.Lock()
	defer m.mu.Unlock()
	m.dirs[name] = struct{}{}
	m.mkdirParents(name)
}

// Remove deletes a file or an empty directory marker.
func (m *Medium) Remove(name string) {
	name = medium.Clean(name)

	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.files, name)
	if name != "/" {
		delete(m.dirs, name)
	}
}

func (m *Medium) mkdirParents(name string) {
	for {
		i := strings.LastIndexByte(name, '/')
		if i <= 0 {
			return
		}
		name = name[:i]
		m.dirs[name] = struct{}{}
	}
}

func (m *Medium) Open(ctx context.Context, name string) (medium.File, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	name = medium.Clean(name)

	m.mu.RLock()
	defer m.mu.RUnlock()

	if data, ok := m.files[name]; ok {
		return &file{name: medium.Base(name), data: data}, nil
	}
	if _, ok := m.dirs[name]; ok {
		return &file{name: medium.Base(name), dir: true, entries: m.children(name)}, nil
	}
	return nil, fmt.Errorf("%s: %w", name, medium.ErrNotFound)
}

func (m *Medium) children(dir string) []medium.DirEntry {
	prefix := dir
	if prefix != "/" {
		prefix += "/"
	}

	var entries []medium.DirEntry
	for name, data := range m.files {
		if child, ok := directChild(prefix, name); ok {
			entries = append(entries, medium.DirEntry{Name: child, Size: int64(len(data))})
		}
	}
	for name := range m.dirs {
		if child, ok := directChild(prefix, name); ok {
			entries = append(entries, medium.DirEntry{Name: child, IsDir: true})
		}
	}

	sort.Slice(entries, func(i, j int) bool { return entries[i].Name < entries[j].Name })
	return entries
}

func directChild(prefix, name string) (string, bool) {
	if name == "/" || !strings.HasPrefix(name, prefix) {
		return "", false
	}
	rest := name[len(prefix):]
	if rest == "" || strings.Contains(rest, "/") {
		return "", false
	}
	return rest, true
}

func (m *Medium) Exists(ctx context.Context, name string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	name = medium.Clean(name)

	m.mu.RLock()
	defer m.mu.RUnlock()
	_, isFile := m.files[name]
	_, isDir := m.dirs[name]
	return isFile || isDir, nil
}

func (m *Medium) Close() error {
	return nil
}

type file struct {
	name    string
	dir     bool
	data    []byte
	pos     int64
	entries []medium.DirEntry
	next    int
	closed  bool
}

func (f *file) Name() string { return f.name }
func (f *file) IsDir() bool  { return f.dir }
func (f *file) Size() int64  { return int64(len(f.data)) }

func (f *file) Seek(offset int64) error {
	switch {
	case f.closed:
		return medium.ErrClosed
	case f.dir:
		return medium.ErrIsDirectory
	case offset < 0 || offset > f.Size():
		return fmt.Errorf("seek %s to %d: %w", f.name, offset, medium.ErrInvalidOffset)
	}
	f.pos = offset
	return nil
}

func (f *file) Read(ctx context.Context, p []byte) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	switch {
	case f.closed:
		return 0, medium.ErrClosed
	case f.dir:
		return 0, medium.ErrIsDirectory
	}
	n := copy(p, f.data[f.pos:])
	f.pos += int64(n)
	return n, nil
}

func (f *file) Available() bool {
	return !f.closed && !f.dir && f.pos < f.Size()
}

func (f *file) Rewind(ctx context.Context) error {
	if !f.dir {
		return medium.ErrNotDirectory
	}
	f.next = 0
	return ctx.Err()
}

func (f *file) NextEntry(ctx context.Context) (medium.DirEntry, error) {
	if err := ctx.Err(); err != nil {
		return medium.DirEntry{}, err
	}
	switch {
	case f.closed:
		return medium.DirEntry{}, medium.ErrClosed
	case !f.dir:
		return medium.DirEntry{}, medium.ErrNotDirectory
	case f.next >= len(f.entries):
		return medium.DirEntry{}, io.EOF
	}
	e := f.entries[f.next]
	f.next++
	return e, nil
}

func (f *file) Close() error {
	f.closed = true
	return nil
}
