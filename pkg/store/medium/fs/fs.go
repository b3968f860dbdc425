// Package fs serves a medium.Medium from a local directory.
package fs

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/marmos91/wwwserver/pkg/store/medium"
)

// Medium exposes the tree below root. Paths are confined to root.
type Medium struct {
	root string
}

// New creates a Medium rooted at root, which must be an existing directory.
func New(root string) (*Medium, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("resolve root %s: %w", root, err)
	}
	info, err := os.Stat(abs)
	if err != nil {
		return nil, fmt.Errorf("stat root %s: %w", abs, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("root %s: %w", abs, medium.ErrNotDirectory)
	}
	return &Medium{root: abs}, nil
}

// Root returns the absolute directory being served.
func (m *Medium) Root() string {
	return m.root
}

func (m *Medium) resolve(name string) string {
	return filepath.Join(m.root, filepath.FromSlash(medium.Clean(name)))
}

func (m *Medium) Open(ctx context.Context, name string) (medium.File, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	full := m.resolve(name)
	f, err := os.Open(full)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%s: %w", name, medium.ErrNotFound)
		}
		return nil, fmt.Errorf("open %s: %w", name, err)
	}

	info, err := f.Stat()
	if err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("stat %s: %w", name, err)
	}

	return &file{
		f:    f,
		path: full,
		name: medium.Base(name),
		info: info,
	}, nil
}

func (m *Medium) Exists(ctx context.Context, name string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	_, err := os.Stat(m.resolve(name))
	if err == nil {
		return true, nil
	}
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	return false, err
}

func (m *Medium) Close() error {
	return nil
}

type file struct {
	f      *os.File
	path   string
	name   string
	info   os.FileInfo
	pos    int64
	closed bool
}

func (f *file) Name() string { return f.name }
func (f *file) IsDir() bool  { return f.info.IsDir() }

func (f *file) Size() int64 {
	if f.info.IsDir() {
		return 0
	}
	return f.info.Size()
}

func (f *file) Seek(offset int64) error {
	if f.closed {
		return medium.ErrClosed
	}
	if f.IsDir() {
		return medium.ErrIsDirectory
	}
	if offset < 0 || offset > f.Size() {
		return fmt.Errorf("seek %s to %d: %w", f.name, offset, medium.ErrInvalidOffset)
	}
	if _, err := f.f.Seek(offset, io.SeekStart); err != nil {
		return fmt.Errorf("seek %s: %w", f.name, err)
	}
	f.pos = offset
	return nil
}

func (f *file) Read(ctx context.Context, p []byte) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	if f.closed {
		return 0, medium.ErrClosed
	}
	if f.IsDir() {
		return 0, medium.ErrIsDirectory
	}

	n, err := f.f.Read(p)
	f.pos += int64(n)
	if errors.Is(err, io.EOF) {
		return n, nil
	}
	return n, err
}

func (f *file) Available() bool {
	return !f.closed && !f.IsDir() && f.pos < f.Size()
}

// Rewind reopens the directory so enumeration starts over.
func (f *file) Rewind(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if f.closed {
		return medium.ErrClosed
	}
	if !f.IsDir() {
		return medium.ErrNotDirectory
	}

	reopened, err := os.Open(f.path)
	if err != nil {
		return fmt.Errorf("rewind %s: %w", f.name, err)
	}
	_ = f.f.Close()
	f.f = reopened
	return nil
}

func (f *file) NextEntry(ctx context.Context) (medium.DirEntry, error) {
	if err := ctx.Err(); err != nil {
		return medium.DirEntry{}, err
	}
	if f.closed {
		return medium.DirEntry{}, medium.ErrClosed
	}
	if !f.IsDir() {
		return medium.DirEntry{}, medium.ErrNotDirectory
	}

	entries, err := f.f.ReadDir(1)
	if err != nil {
		return medium.DirEntry{}, err
	}
	entry := medium.DirEntry{Name: entries[0].Name(), IsDir: entries[0].IsDir()}
	if !entry.IsDir {
		if info, err := entries[0].Info(); err == nil {
			entry.Size = info.Size()
		}
	}
	return entry, nil
}

func (f *file) Close() error {
	if f.closed {
		return nil
	}
	f.closed = true
	return f.f.Close()
}
