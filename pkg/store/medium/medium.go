// Package medium defines the file storage the request engine serves from.
//
// Paths are slash-separated and rooted at "/". A File is either a regular
// file, read sequentially from a seekable offset, or a directory whose entries
// are enumerated one at a time.
package medium

import (
	"context"
	"errors"
	"path"
	"strings"
)

var (
	// ErrNotFound indicates the path does not exist.
	ErrNotFound = errors.New("medium: not found")

	// ErrNotDirectory indicates a directory operation on a regular file.
	ErrNotDirectory = errors.New("medium: not a directory")

	// ErrIsDirectory indicates a read on a directory.
	ErrIsDirectory = errors.New("medium: is a directory")

	// ErrInvalidOffset indicates a seek outside the file.
	ErrInvalidOffset = errors.New("medium: invalid offset")

	// ErrClosed indicates use of a closed file or medium.
	ErrClosed = errors.New("medium: closed")
)

// DirEntry describes one child of a directory.
type DirEntry struct {
	Name  string
	IsDir bool
	Size  int64
}

// File is an open file or directory.
type File interface {
	// Name returns the base name, "/" for the root.
	Name() string
	IsDir() bool
	// Size is the length in bytes of a regular file, zero for directories.
	Size() int64

	// Seek positions the next Read at offset bytes from the start.
	Seek(offset int64) error
	// Read reads up to len(p) bytes from the current position. It returns
	// 0, nil at the end of the file.
	Read(ctx context.Context, p []byte) (int, error)
	// Available reports whether bytes remain after the current position.
	Available() bool

	// Rewind restarts directory enumeration.
	Rewind(ctx context.Context) error
	// NextEntry returns the next directory entry, or io.EOF when none remain.
	NextEntry(ctx context.Context) (DirEntry, error)

	Close() error
}

// Medium is a tree of files.
type Medium interface {
	// Open opens the file or directory at name. Missing paths return an
	// error wrapping ErrNotFound.
	Open(ctx context.Context, name string) (File, error)
	// Exists reports whether name exists.
	Exists(ctx context.Context, name string) (bool, error)
	Close() error
}

// Clean normalizes name into an absolute slash path that cannot escape the
// root: "a/../../b" becomes "/b".
func Clean(name string) string {
	return path.Clean("/" + name)
}

// Base returns the last element of a cleaned path, "/" for the root.
func Base(name string) string {
	name = Clean(name)
	if name == "/" {
		return "/"
	}
	return name[strings.LastIndexByte(name, '/')+1:]
}
