// Package ioerr defines the IOSTAT code set and the error-handler
// surface that the record engine signals through. It has no
// dependency on the engine itself so that both the engine and its
// concrete frame can depend on it without a cycle.
package ioerr

import "fmt"

// Iostat is the numeric status a statement leaves behind, mirroring
// Fortran's IOSTAT= values. Zero means success.
type Iostat int

const (
	Ok Iostat = iota
	// Generic marks a signaled error that has no specific IOSTAT code
	// of its own (the original runtime simply passes a message with
	// no numeric code in these cases).
	Generic
	End
	RecordReadOverrun
	RecordWriteOverrun
	WriteAfterEndfile
	OpenAlreadyConnected
	OpenBadRecl
	BackspaceNonSequential
	BackspaceAtFirstRecord
	BadUnformattedRecord
	ShortRead
	MissingTerminator
	EndfileDirect
	EndfileUnwritable
	RewindNonSequential
	ReadFromWriteOnly
	WriteToReadOnly
	BadAsynchronous
	TooManyAsyncOps
	FormattedChildOnUnformattedParent
	UnformattedChildOnFormattedParent
	ChildOutputToInputParent
	ChildInputFromOutputParent
)

var names = map[Iostat]string{
	Ok:                                 "ok",
	Generic:                            "error",
	End:                                "end of file",
	RecordReadOverrun:                  "record read overrun",
	RecordWriteOverrun:                 "record write overrun",
	WriteAfterEndfile:                  "write after endfile",
	OpenAlreadyConnected:               "file already connected to another unit",
	OpenBadRecl:                        "invalid or mismatched record length",
	BackspaceNonSequential:             "backspace on direct-access file or unformatted stream",
	BackspaceAtFirstRecord:             "backspace at first record",
	BadUnformattedRecord:               "malformed unformatted record",
	ShortRead:                          "short read",
	MissingTerminator:                  "missing record terminator",
	EndfileDirect:                      "endfile on direct-access file",
	EndfileUnwritable:                  "endfile on read-only file",
	RewindNonSequential:                "rewind on non-sequential file",
	ReadFromWriteOnly:                  "read from write-only unit",
	WriteToReadOnly:                    "write to read-only unit",
	BadAsynchronous:                    "asynchronous I/O not permitted on this unit",
	TooManyAsyncOps:                    "too many outstanding asynchronous operations",
	FormattedChildOnUnformattedParent:  "formatted child I/O on unformatted parent",
	UnformattedChildOnFormattedParent:  "unformatted child I/O on formatted parent",
	ChildOutputToInputParent:           "output child I/O on input parent",
	ChildInputFromOutputParent:         "input child I/O on output parent",
}

func (s Iostat) String() string {
	if n, ok := names[s]; ok {
		return n
	}
	return fmt.Sprintf("iostat(%d)", int(s))
}

// Error wraps a signaled IOSTAT and message so it can travel as a Go
// error while still exposing the underlying code to callers that want
// to branch on it (an ERR=/IOSTAT= equivalent).
type Error struct {
	Code    Iostat
	Message string
}

func (e *Error) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return e.Code.String()
}

// Iostat reports the code this error carries.
func (e *Error) Iostat() Iostat { return e.Code }

// CrashError marks a programmer bug (impossible internal state, child
// I/O stack misuse) rather than a recoverable I/O condition. Handler.Crash
// panics with one of these; process-shutdown paths avoid the panic by
// using a NewSwallowingHandler, whose Crash does not panic.
type CrashError struct {
	Message string
}

func (e *CrashError) Error() string { return e.Message }

// Handler is the injected error-reporting surface the engine signals
// through. It is intentionally narrow: SignalError for recoverable I/O
// errors, SignalEnd for end-of-file, Crash for programmer bugs.
type Handler interface {
	// SignalError records a recoverable error. format/args follow
	// fmt.Sprintf when args are given; with no args, format is used
	// as the literal message.
	SignalError(code Iostat, format string, args ...any)
	// SignalEnd records end-of-file without marking InError.
	SignalEnd()
	// Crash reports a programmer bug. Implementations panic.
	Crash(format string, args ...any)
	// GetIoStat returns the most recently signaled code, Ok if none.
	GetIoStat() Iostat
	// InError reports whether SignalError has been called; SignalEnd
	// alone does not count.
	InError() bool
	// HasIoStat reports whether the caller is tracking IOSTAT= at all.
	// Nothing in this module consults it; DefaultHandler always
	// reports true.
	HasIoStat() bool
}

// DefaultHandler is a minimal, non-nested Handler suitable for library
// callers that don't supply a statement-layer handler of their own.
type DefaultHandler struct {
	code       Iostat
	message    string
	inError    bool
	swallow    bool
	terminator string
}

// NewHandler returns a Handler that panics with a *CrashError on Crash.
func NewHandler() *DefaultHandler {
	return &DefaultHandler{terminator: "extfile"}
}

// NewSwallowingHandler returns a Handler that records errors but never
// panics on Crash, used for crash-time cleanup paths that must not
// themselves crash (FlushOutputOnCrash).
func NewSwallowingHandler(terminator string) *DefaultHandler {
	return &DefaultHandler{terminator: terminator, swallow: true}
}

func (h *DefaultHandler) SignalError(code Iostat, format string, args ...any) {
	h.code = code
	h.message = format
	if len(args) > 0 {
		h.message = fmt.Sprintf(format, args...)
	}
	h.inError = true
}

func (h *DefaultHandler) SignalEnd() {
	h.code = End
	h.message = ""
}

// Err returns the most recently signaled error as a Go error, or nil
// if the handler is clean (Ok) or only holds an end-of-file
// condition, which isn't itself an error.
func (h *DefaultHandler) Err() error {
	if !h.inError {
		return nil
	}
	return &Error{Code: h.code, Message: h.message}
}

func (h *DefaultHandler) Crash(format string, args ...any) {
	msg := format
	if len(args) > 0 {
		msg = fmt.Sprintf(format, args...)
	}
	if h.swallow {
		h.inError = true
		return
	}
	panic(&CrashError{Message: fmt.Sprintf("%s: %s", h.terminator, msg)})
}

func (h *DefaultHandler) GetIoStat() Iostat { return h.code }

func (h *DefaultHandler) InError() bool { return h.inError }

func (h *DefaultHandler) HasIoStat() bool { return true }
