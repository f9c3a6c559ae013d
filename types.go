// Package extfile implements the core of an external file unit: a
// per-unit record-oriented I/O engine in the style of a Fortran
// runtime, multiplexing fixed-length direct records, variable-length
// unformatted sequential records, variable-length formatted records,
// and unformatted stream access over a buffered frame.
package extfile

import "github.com/MikeHolman/extfile/ioerr"

// Access selects the record model a unit is connected with.
type Access int

const (
	Sequential Access = iota
	Direct
	Stream
)

// Direction is the data-transfer direction a unit is bound to.
type Direction int

const (
	Undetermined Direction = iota
	Input
	Output
)

// OpenStatus corresponds to Fortran's STATUS= on OPEN.
type OpenStatus int

const (
	StatusUnknown OpenStatus = iota
	StatusOld
	StatusNew
	StatusReplace
	StatusScratch
)

// CloseStatus corresponds to Fortran's STATUS= on CLOSE.
type CloseStatus int

const (
	CloseKeep CloseStatus = iota
	CloseDelete
)

// Action corresponds to Fortran's ACTION= on OPEN.
type Action int

const (
	ActionReadWrite Action = iota
	ActionRead
	ActionWrite
)

// Position corresponds to Fortran's POSITION= on OPEN.
type Position int

const (
	PositionAsIs Position = iota
	PositionRewind
	PositionAppend
)

// Convert selects an explicit endian conversion policy, mirroring
// Fortran's nonstandard CONVERT= on OPEN.
type Convert int

const (
	ConvertUnknown Convert = iota
	ConvertNative
	ConvertSwap
	ConvertLittleEndian
	ConvertBigEndian
)

// currentRecordNumber sentinels. Both are chosen so ordinary
// increments and decrements never wrap: arithmetic on a
// currentRecordNumber must be treated as opaque once it holds one of
// these, never converted to a physical file offset.
const (
	// sentinelAppendEndfile stands in for an unknown endfile record
	// number on a Position=Append open of a non-stream file (any
	// sequential file, or a direct file whose size couldn't be
	// determined), leaving room to still decrement via BACKSPACE.
	sentinelAppendEndfile int64 = (1 << 63) - 1 - 2
	// sentinelStreamPos is assigned to currentRecordNumber after
	// SetStreamPos, since repositioning on a stream file forgets which
	// record index we're in but must still support both directions.
	sentinelStreamPos int64 = (1 << 63) / 2
)

// Frame is the buffered window over a file that the engine reads and
// writes through. It never touches the OS file handle directly; it is
// driven entirely by the methods below. See package frame for a
// concrete implementation.
type Frame interface {
	// ReadFrame ensures the window starts at offset and contains at
	// least requiredBytes if the file has that many, returning the
	// number of bytes actually available from offset onward (which may
	// be less than requiredBytes at EOF).
	ReadFrame(offset int64, requiredBytes int64, handler ioerr.Handler) int64
	// WriteFrame ensures a writable window starting at offset of at
	// least requiredBytes.
	WriteFrame(offset int64, requiredBytes int64, handler ioerr.Handler)
	// Frame returns the current window's backing bytes.
	Frame() []byte
	// FrameLength returns the current window's length.
	FrameLength() int64
	// FrameAt returns the file offset the current window starts at.
	FrameAt() int64
	// Flush forces any buffered writes out to the OS file.
	Flush(handler ioerr.Handler)
	// Truncate truncates the underlying file at offset.
	Truncate(offset int64, handler ioerr.Handler)
	// TruncateFrame truncates the in-memory window at offset (file-relative).
	TruncateFrame(offset int64, handler ioerr.Handler)
	// Open connects the frame to path. access is passed through so the
	// concrete frame can apply access-specific OS hints (e.g. a
	// sequential-readahead advisory).
	Open(path []byte, access Access, status OpenStatus, action *Action, position Position, handler ioerr.Handler)
	// Close disconnects the frame from its file.
	Close(status CloseStatus, handler ioerr.Handler)
	// KnownSize returns the file's size, if determinable.
	KnownSize() (int64, bool)
	// IsConnected reports whether the frame has an open file.
	IsConnected() bool
	// MayPosition reports whether the file supports seeking.
	MayPosition() bool
	// MayRead reports whether the connection permits reads.
	MayRead() bool
	// MayWrite reports whether the connection permits writes.
	MayWrite() bool
	// MayAsynchronous reports whether the connection supports
	// asynchronous operation IDs.
	MayAsynchronous() bool
	// IsTerminal reports whether the file is an interactive terminal.
	IsTerminal() bool
	// IsWindowsTextFile reports whether the file was opened in
	// Windows CRLF text-translation mode.
	IsWindowsTextFile() bool
	// Predefine binds the frame to an already-open OS file descriptor
	// (used to bootstrap units 0/5/6).
	Predefine(fd int)
	// BeginRecord notifies the frame that the engine has begun a new
	// logical record at the current position.
	BeginRecord()
}
