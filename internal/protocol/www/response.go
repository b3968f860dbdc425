package www

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"html"
	"io"
	"net"
	"net/url"
	"strconv"
	"strings"

	"github.com/marmos91/wwwserver/internal/logger"
)

const (
	crlf = "\r\n"

	htmlToTitle   = "<html><head><title>"
	titleToH1     = "</title></head>\n<body><h1>"
	closeH1       = "</h1>"
	closeBodyHTML = "</body></html>"
	textHTML      = "text/html"

	statusPageTitle = "Web server status"
)

func (e *Engine) write(b []byte) {
	n, err := e.client.Write(b)
	if n > 0 {
		e.metrics.RecordBytesSent(int64(n))
	}
	if err != nil {
		logger.Debug("conn=%s write: %v", e.connID, err)
	}
}

func (e *Engine) print(s string) {
	n, err := io.WriteString(e.client, s)
	if n > 0 {
		e.metrics.RecordBytesSent(int64(n))
	}
	if err != nil {
		logger.Debug("conn=%s write: %v", e.connID, err)
	}
}

func (e *Engine) println(s string) {
	e.print(s + crlf)
}

// sendStatusCode writes the status line and the Connection header.
func (e *Engine) sendStatusCode() {
	e.println("HTTP/1.1 " + e.status.String())
	e.println("Connection: close")
}

// locationBase returns "http://<local address>[:<port>]" for redirects to
// server-relative paths. The port is omitted when it is 80.
func (e *Engine) locationBase() string {
	addr := e.client.LocalAddr()
	tcp, ok := addr.(*net.TCPAddr)
	if !ok {
		if addr == nil {
			return "http://localhost"
		}
		return "http://" + addr.String()
	}

	host := tcp.IP.String()
	if tcp.IP == nil || tcp.IP.IsUnspecified() {
		host = "localhost"
	} else if strings.Contains(host, ":") {
		host = "[" + host + "]"
	}
	if tcp.Port != 80 {
		host += ":" + strconv.Itoa(tcp.Port)
	}
	return "http://" + host
}

// runDefaultHandler finishes redirects and generated error pages, or picks
// the state that sends the file or listing. It returns the next state.
func (e *Engine) runDefaultHandler() State {
	if e.status == StatusMovedPermanently || e.status == StatusTemporaryRedirect {
		location := "Location: "
		if len(e.url) > 0 && e.url[0] == '/' {
			location += e.locationBase()
		}
		e.println(location + string(e.url))
		e.print(crlf)
		return StateClosingConnection
	}

	if len(e.url) == 0 || e.status == StatusInternalServerError || e.file == nil {
		e.sendError("")
		return StateClosingConnection
	}

	switch e.handler {
	case HandlerDefault, HandlerForbidden, HandlerMovedPermanently, HandlerTemporaryRedirect, HandlerCGI:
		if e.file.IsDir() {
			e.sendError("")
			return StateClosingConnection
		}
		return StateSendingFileMimeTypeSetup
	case HandlerDirectoryListing:
		return StateSendingDirectoryListingHeader
	default:
		e.url = e.url[:0]
		e.status = StatusInternalServerError
		e.sendError(msgUnknownHandler)
		return StateClosingConnection
	}
}

// sendFileMimeType performs one step of looking up the Content-Type, by the
// URL's extension or, with useDefault, the "default" entry, and writes the
// header when found.
func (e *Engine) sendFileMimeType(ctx context.Context, useDefault bool, buf []byte) lookupResult {
	key := keyDefault
	if !useDefault {
		dot := bytes.LastIndexByte(e.url, '.')
		if dot < 0 {
			return lookupNotFound
		}
		key = string(e.url[dot+1:])
	}

	result, n := e.getValue(ctx, sectionMimeTypes, key, buf)
	if result == lookupFound {
		e.println("Content-Type: " + string(buf[:n]))
	}
	return result
}

// sendFile sends the next chunk of the open file, starting at fileOffset.
// The first chunk is preceded by Content-Length and the end of the headers;
// HEAD requests stop there. It returns true when the transfer is over.
func (e *Engine) sendFile(ctx context.Context, buf []byte) (bool, error) {
	if err := e.file.Seek(e.fileOffset); err != nil {
		e.print(crlf)
		e.println("Seek failed for " + string(e.url))
		return true, fmt.Errorf("%w: seek %s to %d: %v", ErrFileError, e.url, e.fileOffset, err)
	}

	if e.fileOffset == 0 {
		e.println("Content-Length: " + strconv.FormatInt(e.file.Size(), 10))
		e.print(crlf)
		if e.method == MethodHEAD {
			return true, nil
		}
	}

	n, err := e.file.Read(ctx, buf)
	if n > 0 {
		e.write(buf[:n])
		e.fileOffset += int64(n)
	}
	if err != nil {
		return true, fmt.Errorf("%w: read %s at %d: %v", ErrFileError, e.url, e.fileOffset, err)
	}
	if n == 0 && e.file.Available() {
		return true, fmt.Errorf("%w: read %s at %d: no progress", ErrFileError, e.url, e.fileOffset)
	}
	return !e.file.Available(), nil
}

func (e *Engine) printHTMLPageHeader(title string) {
	title = html.EscapeString(title)
	e.println("Content-Type: " + textHTML)
	e.print(crlf)
	e.println(htmlToTitle + title + titleToH1 + title + closeH1)
}

func (e *Engine) printHTMLPageFooter() {
	e.println(closeBodyHTML)
}

// sendDirectoryListingHeader opens the listing page and rewinds the
// directory.
func (e *Engine) sendDirectoryListingHeader(ctx context.Context) {
	e.printHTMLPageHeader(string(e.url))
	e.println("<p>")
	if string(e.url) != rootSection {
		e.println(`<a href="..">..</a><br />`)
	}
	if err := e.file.Rewind(ctx); err != nil {
		logger.Warn("conn=%s rewind %s: %v", e.connID, e.url, err)
	}
}

// sendDirectoryListingBody writes one entry. It returns true when the
// directory is exhausted.
func (e *Engine) sendDirectoryListingBody(ctx context.Context) bool {
	entry, err := e.file.NextEntry(ctx)
	if errors.Is(err, io.EOF) {
		return true
	}
	if err != nil {
		logger.Warn("conn=%s list %s: %v", e.connID, e.url, err)
		return true
	}

	href := html.EscapeString(url.PathEscape(entry.Name))
	display := html.EscapeString(strings.ToLower(entry.Name))
	if entry.IsDir {
		href += "/"
		display += "/"
	}
	e.println(`<a href="` + href + `">` + display + `</a><br />`)
	return false
}

func (e *Engine) sendDirectoryListingFooter() {
	e.println("</p><hr />")
	e.printHTMLPageFooter()
}

// sendStatus writes the statistics page.
func (e *Engine) sendStatus() {
	s := e.stats
	e.printHTMLPageHeader(statusPageTitle)
	e.print(fmt.Sprintf("<p>Total requests: %d<br />\n", s.RequestCount))
	e.print(fmt.Sprintf("Worst case request time: %duS<br />\n", s.RequestTimeWorstCase))
	e.print(fmt.Sprintf("Worst case task time: %duS<br />\n", s.TaskTimeWorstCase))
	e.print(fmt.Sprintf("Worst case task state: %d (%s)", int(s.TaskWorstCaseState), s.TaskWorstCaseState))
	e.println("</p>")
	e.printHTMLPageFooter()
}

// sendError writes a generated page for the current status, showing the URL
// and message when present.
func (e *Engine) sendError(message string) {
	e.printHTMLPageHeader(e.status.String())
	if len(e.url) > 0 {
		e.println("<p>" + html.EscapeString(string(e.url)) + "</p>")
	}
	if message != "" {
		e.println("<p>" + html.EscapeString(message) + "</p>")
	}
	e.printHTMLPageFooter()
}
