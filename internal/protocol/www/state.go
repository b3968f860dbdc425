package www

// State is a connection state. Each tick performs the work of one state.
type State int

const (
	// StateNone only appears in Stats before the first tick.
	StateNone State = iota - 1

	StateNoClient
	StateReadingMethod
	StateGettingHandlerSetup
	StateGettingHandler
	StateReadingHeaders
	StateURLToFilename
	StateRedirectingToDirectory
	StateFindingLocationSetup
	StateFindingLocation
	StateFindingErrorDocumentSetup
	StateFindingErrorDocument
	StateSendingStatusCode
	StateRunningDefaultHandler
	StateSendingFileMimeTypeSetup
	StateSendingFileMimeType
	StateSendingDefaultMimeTypeSetup
	StateSendingDefaultMimeType
	StateSendingFile
	StateSendingDirectoryListingHeader
	StateSendingDirectoryListingBody
	StateSendingDirectoryListingFooter
	StateRunningStatusHandler
	StateClosingConnection
	StateDisconnecting
)

var stateNames = [...]string{
	StateNoClient:                      "NoClient",
	StateReadingMethod:                 "ReadingMethod",
	StateGettingHandlerSetup:           "GettingHandlerSetup",
	StateGettingHandler:                "GettingHandler",
	StateReadingHeaders:                "ReadingHeaders",
	StateURLToFilename:                 "URLToFilename",
	StateRedirectingToDirectory:        "RedirectingToDirectory",
	StateFindingLocationSetup:          "FindingLocationSetup",
	StateFindingLocation:               "FindingLocation",
	StateFindingErrorDocumentSetup:     "FindingErrorDocumentSetup",
	StateFindingErrorDocument:          "FindingErrorDocument",
	StateSendingStatusCode:             "SendingStatusCode",
	StateRunningDefaultHandler:         "RunningDefaultHandler",
	StateSendingFileMimeTypeSetup:      "SendingFileMimeTypeSetup",
	StateSendingFileMimeType:           "SendingFileMimeType",
	StateSendingDefaultMimeTypeSetup:   "SendingDefaultMimeTypeSetup",
	StateSendingDefaultMimeType:        "SendingDefaultMimeType",
	StateSendingFile:                   "SendingFile",
	StateSendingDirectoryListingHeader: "SendingDirectoryListingHeader",
	StateSendingDirectoryListingBody:   "SendingDirectoryListingBody",
	StateSendingDirectoryListingFooter: "SendingDirectoryListingFooter",
	StateRunningStatusHandler:          "RunningStatusHandler",
	StateClosingConnection:             "ClosingConnection",
	StateDisconnecting:                 "Disconnecting",
}

func (s State) String() string {
	if s == StateNone {
		return "None"
	}
	if s < 0 || int(s) >= len(stateNames) {
		return "Unknown"
	}
	return stateNames[s]
}

// Known reports whether s is one of the defined connection states.
func (s State) Known() bool {
	return s >= StateNoClient && s <= StateDisconnecting
}
