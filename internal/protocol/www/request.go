package www

import (
	"bytes"
	"errors"
)

var headerAuthorization = []byte("Authorization")

// parseRequestLine reads "METHOD SP TARGET[?QUERY] SP ..." and fills in the
// method, URL and query string.
func (e *Engine) parseRequestLine(buf []byte) error {
	n, err := ReadLine(e.client, buf)
	if errors.Is(err, ErrNoData) {
		return ErrNoData
	}
	if err != nil {
		return ErrRequestURITooLong
	}
	line := buf[:n]

	sp := SplitAndTerminate(line, ' ')
	if sp < 0 {
		return ErrBadRequest
	}
	method, ok := LookupMethod(line[:sp])
	if !ok {
		return ErrBadRequest
	}
	e.method = method

	target := line[sp+1:]
	if end := SplitAndTerminate(target, ' '); end >= 0 {
		target = target[:end]
	}
	var query []byte
	if q := SplitAndTerminate(target, '?'); q >= 0 {
		target, query = target[:q], target[q+1:]
	}

	if len(target) == 0 || target[0] != '/' {
		e.url = e.url[:0]
		return ErrBadRequest
	}
	if len(target) > MaxURLLen || len(query) > MaxQueryLen {
		e.url = e.url[:0]
		return ErrRequestURITooLong
	}

	e.setURL(target)
	e.query = append(e.query[:0], query...)
	return nil
}

// readHeader consumes one header line. It returns true at the blank line
// that ends the headers. Lines longer than the buffer are accepted truncated.
func (e *Engine) readHeader(buf []byte) (bool, error) {
	n, err := ReadLine(e.client, buf)
	if errors.Is(err, ErrNoData) {
		return false, err
	}
	if n == 0 && err == nil {
		return true, nil
	}

	line := buf[:n]
	if colon := SplitAndTerminate(line, ':'); colon >= 0 {
		if bytes.EqualFold(bytes.TrimSpace(line[:colon]), headerAuthorization) {
			e.authenticated = true
		}
	}
	return false, nil
}
