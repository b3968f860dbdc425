package www

import (
	"context"
	"errors"
	"fmt"
	"net/url"

	"github.com/marmos91/wwwserver/internal/logger"
	"github.com/marmos91/wwwserver/pkg/store/medium"
)

const (
	msgLocationTooLong     = "Location URL too long"
	msgLocationNotFound    = "Redirection specified but location not found"
	msgUnknownHandlerState = "Unknown handler in state SendingStatusCode"
	msgUnknownHandler      = "Unknown handler in defaultHandler()"
)

// setHandler drives the "handler" lookup. It returns true once the handler
// is settled. A value that names no handler keeps the default; no value at
// all makes the request forbidden.
func (e *Engine) setHandler(ctx context.Context, buf []byte) bool {
	result, n := e.resolve(ctx, keyHandler, buf)
	switch result {
	case lookupPending:
		return false
	case lookupFound:
		if h, ok := LookupHandler(buf[:n]); ok {
			e.handler = h
		} else {
			logger.Debug("conn=%s unknown handler %q for %s", e.connID, buf[:n], e.url)
		}
	default:
		e.handler = HandlerForbidden
	}
	logger.Debug("conn=%s %s %s handler=%s", e.connID, e.method, e.url, e.handler)
	return true
}

// urlToFilename opens the path named by the URL, percent-decoded when it is
// validly escaped. Directories must be requested with a trailing slash and
// are served as listings.
func (e *Engine) urlToFilename(ctx context.Context) error {
	e.closeFile()

	name := string(e.url)
	if decoded, err := url.PathUnescape(name); err == nil {
		name = decoded
	}

	f, err := e.medium.Open(ctx, name)
	if errors.Is(err, medium.ErrNotFound) {
		return ErrFileMissing
	}
	if err != nil {
		return fmt.Errorf("%w: open %s: %v", ErrFileError, e.url, err)
	}
	e.file = f

	if f.IsDir() {
		if e.url[len(e.url)-1] != '/' {
			return ErrDirectoryNoTrailingSlash
		}
		e.handler = HandlerDirectoryListing
	}
	return nil
}

// redirectToDirectory appends the missing trailing slash and turns the
// request into a permanent redirect.
func (e *Engine) redirectToDirectory() {
	e.closeFile()
	if len(e.url) >= MaxURLLen {
		e.status = StatusRequestURITooLong
		return
	}
	e.url = append(e.url, '/')
	e.status = StatusMovedPermanently
}

// findLocation drives the "location" lookup and replaces the URL with the
// redirect target. It returns true when done.
func (e *Engine) findLocation(ctx context.Context, buf []byte) bool {
	result, n := e.resolve(ctx, keyLocation, buf)
	switch result {
	case lookupPending:
		return false
	case lookupFound:
		if n <= MaxURLLen {
			e.setURL(buf[:n])
		} else {
			e.status = StatusInternalServerError
			e.setURLString(msgLocationTooLong)
		}
	default:
		e.setURLString(msgLocationNotFound)
	}
	return true
}

// findErrorDocument drives the lookup of the custom page for the current
// status. When the page exists it is opened and its path becomes the URL;
// otherwise the URL is cleared so a page is generated. It returns true when
// done.
func (e *Engine) findErrorDocument(ctx context.Context, buf []byte) bool {
	result, n := e.resolve(ctx, e.status.ErrorDocumentKey(), buf)
	switch result {
	case lookupPending:
		return false
	case lookupFound:
		if n <= MaxURLLen && e.openErrorDocument(ctx, buf[:n]) {
			return true
		}
	}
	e.closeFile()
	e.url = e.url[:0]
	return true
}

func (e *Engine) openErrorDocument(ctx context.Context, path []byte) bool {
	f, err := e.medium.Open(ctx, string(path))
	if err != nil {
		if !errors.Is(err, medium.ErrNotFound) {
			logger.Warn("conn=%s open error document %s: %v", e.connID, path, err)
		}
		return false
	}
	if f.IsDir() {
		_ = f.Close()
		return false
	}

	e.closeFile()
	e.file = f
	e.setURL(path)
	return true
}
