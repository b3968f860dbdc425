package www

import "errors"

var (
	// ErrNoData means the client has not sent a complete line yet.
	ErrNoData = errors.New("no data available")

	// ErrBufferTooShort means a line did not fit the buffer, or the buffer
	// is below MinBufferSize.
	ErrBufferTooShort = errors.New("buffer too short")

	ErrBadRequest               = errors.New("bad request")
	ErrRequestURITooLong        = errors.New("request URI too long")
	ErrFileMissing              = errors.New("file missing")
	ErrDirectoryNoTrailingSlash = errors.New("directory without trailing slash")
	ErrFileError                = errors.New("file error")
	ErrUnknownState             = errors.New("unknown state")
)
