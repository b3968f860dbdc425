package confstore

import "errors"

var (
	// ErrBufferTooSmall indicates a line or value does not fit the buffer.
	ErrBufferTooSmall = errors.New("buffer too small")

	// ErrSourceMissing indicates the backing file or database cannot be opened.
	ErrSourceMissing = errors.New("configuration source missing")

	// ErrSyntax indicates a line that is neither a section, a key/value pair,
	// a comment nor blank.
	ErrSyntax = errors.New("configuration syntax error")

	// ErrClosed indicates use of a store after Close.
	ErrClosed = errors.New("store closed")
)
