package www

import (
	"context"
	"errors"

	"github.com/marmos91/wwwserver/internal/clock"
	"github.com/marmos91/wwwserver/internal/logger"
)

// ProcessRequest performs the work of the current state and returns the new
// state. buf is scratch space for this call only; it is not retained. A buf
// shorter than MinBufferSize does no work.
func (e *Engine) ProcessRequest(ctx context.Context, buf []byte) State {
	start := e.clock.Micros()
	initial := e.state
	e.stalled = false

	if len(buf) < MinBufferSize {
		logger.Error("scratch buffer of %d bytes is below the minimum of %d", len(buf), MinBufferSize)
		e.stalled = true
		return e.state
	}

	if e.state != StateNoClient && (e.client == nil || !e.client.Connected()) {
		e.state = StateDisconnecting
	}

	// Captured before Disconnecting resets them.
	method, status, handler := e.method, e.status, e.handler

	e.step(ctx, buf)

	if e.state != initial {
		e.fileOffset = 0
		e.closingSince = 0
		if e.state == StateClosingConnection {
			e.closingSince = e.clock.Micros()
		}
	}

	if e.state == StateNoClient && initial == StateNoClient {
		return e.state
	}

	// A request is complete once its response has been sent: the tick that
	// ran Disconnecting, or a peer close noticed while draining.
	finished := e.state == StateNoClient &&
		(initial == StateDisconnecting || initial == StateClosingConnection)

	end := e.clock.Micros()
	e.metrics.RecordTick(initial.String(), clock.Duration(clock.Elapsed(start, end)))
	if d, done := e.stats.record(start, end, initial, finished); done {
		e.metrics.RecordRequest(method.String(), status.String(), handler.String(), clock.Duration(d))
	}
	return e.state
}

// step runs one state.
func (e *Engine) step(ctx context.Context, buf []byte) {
	switch e.state {
	case StateNoClient:
		if !e.accept() {
			e.stalled = true
			return
		}
		e.state = StateReadingMethod

	case StateReadingMethod:
		err := e.parseRequestLine(buf)
		switch {
		case errors.Is(err, ErrNoData):
			e.stalled = true
		case errors.Is(err, ErrRequestURITooLong):
			e.status = StatusRequestURITooLong
			e.state = StateSendingStatusCode
		case err != nil:
			e.status = StatusBadRequest
			e.state = StateSendingStatusCode
		default:
			e.state = StateGettingHandlerSetup
		}

	case StateGettingHandlerSetup:
		e.beginLookup()
		e.state = StateGettingHandler
		e.gettingHandler(ctx, buf)

	case StateGettingHandler:
		e.gettingHandler(ctx, buf)

	case StateReadingHeaders:
		end, err := e.readHeader(buf)
		switch {
		case errors.Is(err, ErrNoData):
			e.stalled = true
		case end && e.handler == HandlerStatus:
			// The status page is generated, there is no file to map.
			e.state = StateSendingStatusCode
		case end:
			e.state = StateURLToFilename
		}

	case StateURLToFilename:
		err := e.urlToFilename(ctx)
		switch {
		case err == nil:
			e.state = StateSendingStatusCode
		case errors.Is(err, ErrFileMissing):
			e.status = StatusNotFound
			e.state = StateFindingErrorDocumentSetup
		case errors.Is(err, ErrDirectoryNoTrailingSlash):
			e.state = StateRedirectingToDirectory
		default:
			logger.Warn("conn=%s %v", e.connID, err)
			e.status = StatusInternalServerError
			e.state = StateSendingStatusCode
		}

	case StateRedirectingToDirectory:
		e.redirectToDirectory()
		e.state = StateSendingStatusCode

	case StateFindingLocationSetup:
		e.beginLookup()
		e.state = StateFindingLocation
		e.findingLocation(ctx, buf)

	case StateFindingLocation:
		e.findingLocation(ctx, buf)

	case StateFindingErrorDocumentSetup:
		e.beginLookup()
		e.state = StateFindingErrorDocument
		e.findingErrorDocument(ctx, buf)

	case StateFindingErrorDocument:
		e.findingErrorDocument(ctx, buf)

	case StateSendingStatusCode:
		e.sendingStatusCode()

	case StateRunningDefaultHandler:
		e.state = e.runDefaultHandler()

	case StateSendingFileMimeTypeSetup:
		e.lookup.store.Reset()
		e.state = StateSendingFileMimeType
		e.sendingFileMimeType(ctx, buf)

	case StateSendingFileMimeType:
		e.sendingFileMimeType(ctx, buf)

	case StateSendingDefaultMimeTypeSetup:
		e.lookup.store.Reset()
		e.state = StateSendingDefaultMimeType
		e.sendingDefaultMimeType(ctx, buf)

	case StateSendingDefaultMimeType:
		e.sendingDefaultMimeType(ctx, buf)

	case StateSendingFile:
		done, err := e.sendFile(ctx, buf)
		if err != nil {
			logger.Warn("conn=%s %v", e.connID, err)
		}
		if done {
			e.state = StateClosingConnection
		}

	case StateSendingDirectoryListingHeader:
		e.sendDirectoryListingHeader(ctx)
		e.state = StateSendingDirectoryListingBody

	case StateSendingDirectoryListingBody:
		if e.sendDirectoryListingBody(ctx) {
			e.state = StateSendingDirectoryListingFooter
		}

	case StateSendingDirectoryListingFooter:
		e.sendDirectoryListingFooter()
		e.state = StateClosingConnection

	case StateRunningStatusHandler:
		e.sendStatus()
		e.state = StateClosingConnection

	case StateClosingConnection:
		if clock.Elapsed(e.closingSince, e.clock.Micros()) < e.drain {
			e.stalled = true
			return
		}
		e.state = StateDisconnecting

	case StateDisconnecting:
		logger.Debug("conn=%s closed", e.connID)
		e.disconnect()

	default:
		logger.Error("conn=%s %v: %d", e.connID, ErrUnknownState, int(e.state))
		e.status = StatusBadRequest
		e.state = StateSendingStatusCode
	}
}

func (e *Engine) gettingHandler(ctx context.Context, buf []byte) {
	if !e.setHandler(ctx, buf) {
		return
	}
	switch e.handler {
	case HandlerDefault, HandlerStatus:
		e.state = StateReadingHeaders
	case HandlerMovedPermanently:
		e.status = StatusMovedPermanently
		e.state = StateFindingLocationSetup
	case HandlerTemporaryRedirect:
		e.status = StatusTemporaryRedirect
		e.state = StateFindingLocationSetup
	default:
		// forbidden, and cgi which is not implemented
		e.status = StatusForbidden
		e.state = StateFindingErrorDocumentSetup
	}
}

func (e *Engine) findingLocation(ctx context.Context, buf []byte) {
	if e.findLocation(ctx, buf) {
		e.state = StateSendingStatusCode
	}
}

func (e *Engine) findingErrorDocument(ctx context.Context, buf []byte) {
	if e.findErrorDocument(ctx, buf) {
		e.state = StateSendingStatusCode
	}
}

// sendingStatusCode validates the handler before anything is written, so an
// unknown handler is reported with its own status line.
func (e *Engine) sendingStatusCode() {
	switch e.handler {
	case HandlerDefault, HandlerDirectoryListing, HandlerForbidden,
		HandlerMovedPermanently, HandlerTemporaryRedirect, HandlerCGI:
		e.sendStatusCode()
		e.state = StateRunningDefaultHandler
	case HandlerStatus:
		e.sendStatusCode()
		e.state = StateRunningStatusHandler
	default:
		e.status = StatusInternalServerError
		e.setURLString(msgUnknownHandlerState)
		e.sendStatusCode()
		e.state = StateRunningDefaultHandler
	}
}

func (e *Engine) sendingFileMimeType(ctx context.Context, buf []byte) {
	switch e.sendFileMimeType(ctx, false, buf) {
	case lookupPending:
	case lookupFound:
		e.state = StateSendingFile
	default:
		e.state = StateSendingDefaultMimeTypeSetup
	}
}

// sendingDefaultMimeType moves on to the file whether or not a default type
// is configured.
func (e *Engine) sendingDefaultMimeType(ctx context.Context, buf []byte) {
	if e.sendFileMimeType(ctx, true, buf) != lookupPending {
		e.state = StateSendingFile
	}
}
