package www

// Bounds of the per-connection strings. Anything longer is an error, never a
// silent truncation.
const (
	MaxURLLen   = 40
	MaxQueryLen = 20

	// MinBufferSize is the smallest scratch buffer the engine will use.
	MinBufferSize = 3
)

// Method is an index into the supported method table.
type Method int

const (
	MethodUnset Method = iota - 1
	MethodHEAD
	MethodGET
	MethodPUT
	MethodDELETE
)

var methodNames = [...]string{
	MethodHEAD:   "HEAD",
	MethodGET:    "GET",
	MethodPUT:    "PUT",
	MethodDELETE: "DELETE",
}

// LookupMethod matches name case-sensitively.
func LookupMethod(name []byte) (Method, bool) {
	for i, m := range methodNames {
		if m == string(name) {
			return Method(i), true
		}
	}
	return MethodUnset, false
}

func (m Method) String() string {
	if m < 0 || int(m) >= len(methodNames) {
		return "UNSET"
	}
	return methodNames[m]
}

// Status is an index into the status tables. The order is shared by the
// reason phrase table and the error document key table.
type Status int

const (
	StatusOK Status = iota
	StatusMovedPermanently
	StatusTemporaryRedirect
	StatusBadRequest
	StatusForbidden
	StatusNotFound
	StatusRequestURITooLong
	StatusInternalServerError
)

var responseText = [...]string{
	StatusOK:                  "200 OK",
	StatusMovedPermanently:    "301 Moved Permanently",
	StatusTemporaryRedirect:   "307 Temporary Redirect",
	StatusBadRequest:          "400 Bad Request",
	StatusForbidden:           "403 Forbidden",
	StatusNotFound:            "404 Not Found",
	StatusRequestURITooLong:   "414 Request-URI Too Long",
	StatusInternalServerError: "500 Internal Server Error",
}

var errorDocumentKeys = [...]string{
	StatusOK:                  "error document 200",
	StatusMovedPermanently:    "error document 301",
	StatusTemporaryRedirect:   "error document 307",
	StatusBadRequest:          "error document 400",
	StatusForbidden:           "error document 403",
	StatusNotFound:            "error document 404",
	StatusRequestURITooLong:   "error document 414",
	StatusInternalServerError: "error document 500",
}

// String returns the code and reason phrase, e.g. "404 Not Found".
func (s Status) String() string {
	if s < 0 || int(s) >= len(responseText) {
		return responseText[StatusInternalServerError]
	}
	return responseText[s]
}

// ErrorDocumentKey is the site configuration key naming the custom page for s.
func (s Status) ErrorDocumentKey() string {
	if s < 0 || int(s) >= len(errorDocumentKeys) {
		return errorDocumentKeys[StatusInternalServerError]
	}
	return errorDocumentKeys[s]
}

// Handler selects how a request is fulfilled.
type Handler int

const (
	HandlerDefault Handler = iota
	HandlerForbidden
	HandlerMovedPermanently
	HandlerTemporaryRedirect
	HandlerStatus
	HandlerCGI
	// HandlerDirectoryListing is chosen internally and has no configuration name.
	HandlerDirectoryListing
)

var handlerNames = [...]string{
	HandlerDefault:           "default",
	HandlerForbidden:         "forbidden",
	HandlerMovedPermanently:  "moved permanently",
	HandlerTemporaryRedirect: "temporary redirect",
	HandlerStatus:            "status",
	HandlerCGI:               "cgi",
}

// LookupHandler matches a configured handler name exactly. The internal
// directory listing handler cannot be selected this way.
func LookupHandler(name []byte) (Handler, bool) {
	for i, h := range handlerNames {
		if h == string(name) {
			return Handler(i), true
		}
	}
	return HandlerDefault, false
}

func (h Handler) String() string {
	switch {
	case h == HandlerDirectoryListing:
		return "directory listing"
	case h < 0 || int(h) >= len(handlerNames):
		return "unknown"
	default:
		return handlerNames[h]
	}
}

// Site configuration names.
const (
	keyHandler       = "handler"
	keyLocation      = "location"
	keyDefault       = "default"
	sectionMimeTypes = "mime types"
	rootSection      = "/"
)
