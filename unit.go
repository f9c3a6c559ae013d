package extfile

import (
	"sync"

	"github.com/MikeHolman/extfile/ioerr"
)

// Unit is a connected external file plus all positional and formatting
// state needed to drive record-oriented I/O against it. The zero
// value is not usable; construct with NewUnit.
type Unit struct {
	// lock is held by the statement layer for the duration of one I/O
	// statement; the engine itself never takes it, matching the
	// "per-unit discipline" of §5: operations within a statement are
	// strictly ordered by the caller, not by the engine.
	lock sync.Mutex

	unitNumber int
	path       []byte

	access    Access
	direction Direction

	isUnformatted Optional[bool]
	openRecl      Optional[int64]
	recordLength  Optional[int64]

	endfileRecordNumber Optional[int64]
	currentRecordNumber int64

	frameOffsetInFile   int64
	recordOffsetInFrame int64
	positionInRecord    int64

	furthestPositionInRecord int64

	// leftTabLimit is known iff a non-advancing output is in progress;
	// its value is the record position I/O must not retreat past.
	leftTabLimit Optional[int64]

	beganReadingRecord        bool
	impliedEndfile            bool
	unterminatedRecord        bool
	pinnedFrame               bool
	directAccessRecWasSet     bool
	swapEndianness            bool
	createdForInternalChildIo bool
	windowsTextFile           bool

	asyncIDs asyncIDPool

	child *ChildIO

	frame Frame

	// flushDefaultsHook, when set, is invoked before reading the first
	// bytes of a new formatted record so that a default-input read can
	// flush pending default-output/error-output first, keeping
	// prompts visible. The unit table wires this on unit 5 only.
	flushDefaultsHook func(ioerr.Handler)
}

// SetFlushDefaultsHook installs the hook BeginReadingRecord invokes
// before a formatted read, used by the unit table to flush the
// default output and error units when reading from default input.
func (u *Unit) SetFlushDefaultsHook(fn func(ioerr.Handler)) {
	u.flushDefaultsHook = fn
}

// NewUnit constructs a Unit bound to the given unit number and frame.
// It is otherwise unconnected: call OpenUnit or OpenAnonymousUnit
// before driving any record I/O.
func NewUnit(unitNumber int, frame Frame) *Unit {
	return &Unit{
		unitNumber:          unitNumber,
		frame:               frame,
		currentRecordNumber: 1,
		asyncIDs:            newAsyncIDPool(),
	}
}

// Lock acquires the per-unit lock for the duration of one I/O
// statement. The caller (the statement layer) is responsible for
// pairing every Lock with an Unlock.
func (u *Unit) Lock() { u.lock.Lock() }

// Unlock releases the per-unit lock.
func (u *Unit) Unlock() { u.lock.Unlock() }

// UnitNumber returns the unit's number.
func (u *Unit) UnitNumber() int { return u.unitNumber }

// Path returns the connected file's path, or nil if anonymous/unset.
func (u *Unit) Path() []byte { return u.path }

func (u *Unit) setPath(path []byte) {
	if len(path) == 0 {
		u.path = nil
		return
	}
	u.path = append([]byte(nil), path...)
}

// AccessMode returns the unit's access mode.
func (u *Unit) AccessMode() Access { return u.access }

// SetAccess sets the unit's access mode. Must be called (by the OPEN
// statement handler, e.g. from ACCESS=) before OpenUnit/OpenAnonymousUnit.
func (u *Unit) SetAccess(access Access) { u.access = access }

// SetRecl sets the fixed record length for Direct access (RECL=).
// Must be called before OpenUnit when AccessMode is Direct.
func (u *Unit) SetRecl(recl int64) { u.openRecl.Set(recl) }

// Recl returns the fixed record length, if known.
func (u *Unit) Recl() Optional[int64] { return u.openRecl }

// SetUnformatted records whether the unit's records are unformatted
// (FORM='UNFORMATTED') or formatted. Must be called before any data
// transfer; OpenUnit does not infer it.
func (u *Unit) SetUnformatted(unformatted bool) { u.isUnformatted.Set(unformatted) }

// Unformatted reports whether the unit is known to be formatted or
// unformatted.
func (u *Unit) Unformatted() Optional[bool] { return u.isUnformatted }

// SetCreatedForInternalChildIo marks a unit created solely to host
// internal-file or similar child I/O, as opposed to a user-addressable
// external unit.
func (u *Unit) SetCreatedForInternalChildIo(v bool) { u.createdForInternalChildIo = v }

// CreatedForInternalChildIo reports whether SetCreatedForInternalChildIo(true) was called.
func (u *Unit) CreatedForInternalChildIo() bool { return u.createdForInternalChildIo }

// CurrentRecordNumber returns the 1-based number of the record the
// unit is currently positioned at.
func (u *Unit) CurrentRecordNumber() int64 { return u.currentRecordNumber }

// EndfileRecordNumber returns the record number of the endfile marker,
// if one has been written or observed.
func (u *Unit) EndfileRecordNumber() Optional[int64] { return u.endfileRecordNumber }

// LeftTabLimit reports whether a non-advancing I/O is in progress.
func (u *Unit) LeftTabLimit() Optional[int64] { return u.leftTabLimit }

// FrameConn returns the unit's underlying buffered frame.
func (u *Unit) FrameConn() Frame { return u.frame }

// CurrentDirection returns the unit's data-transfer direction.
func (u *Unit) CurrentDirection() Direction { return u.direction }

// SetDirection switches the unit's transfer direction, failing if the
// underlying connection doesn't permit it.
func (u *Unit) SetDirection(direction Direction, handler ioerr.Handler) ioerr.Iostat {
	if direction == Input {
		if !u.frame.MayRead() {
			handler.SignalError(ioerr.ReadFromWriteOnly, "unit %d is write-only", u.unitNumber)
			return ioerr.ReadFromWriteOnly
		}
		u.direction = Input
		return ioerr.Ok
	}
	if !u.frame.MayWrite() {
		handler.SignalError(ioerr.WriteToReadOnly, "unit %d is read-only", u.unitNumber)
		return ioerr.WriteToReadOnly
	}
	u.direction = Output
	return ioerr.Ok
}

// IsRecordFile reports whether the unit is record-oriented (Sequential
// or Direct), as opposed to unformatted Stream access.
func (u *Unit) IsRecordFile() bool {
	return u.access != Stream
}

// IsAfterEndfile reports whether the unit's current record position
// is at or past a recorded endfile marker.
func (u *Unit) IsAfterEndfile() bool {
	efn, known := u.endfileRecordNumber.Get()
	return known && u.currentRecordNumber >= efn
}

// IsAtEOF reports whether the frame's position is at the physical end
// of the connected file.
func (u *Unit) IsAtEOF() bool {
	size, known := u.frame.KnownSize()
	if !known {
		return false
	}
	return u.frameOffsetInFile+u.recordOffsetInFrame >= size
}

// EffectiveRecordLength returns the known record length for Direct
// access (openRecl) or the current variable record (recordLength),
// whichever applies.
func (u *Unit) EffectiveRecordLength() Optional[int64] {
	if u.access == Direct {
		return u.openRecl
	}
	return u.recordLength
}

// BeginRecord resets the per-record cursor fields; it does not touch
// record framing (recordOffsetInFrame, recordLength) or the
// current-record counter, which callers manage themselves around it.
func (u *Unit) BeginRecord() {
	u.positionInRecord = 0
	u.furthestPositionInRecord = 0
	u.frame.BeginRecord()
}

// checkDirectAccess verifies that REC= was supplied for a Direct
// transfer, signaling an error and returning false otherwise. REC= is
// consumed by each call that checks it (every Emit, and
// BeginReadingRecord): a Direct unit must have SetDirectRec called
// again before the next one, so a second Emit into the same record
// without a new SetDirectRec fails.
func (u *Unit) checkDirectAccess(handler ioerr.Handler) bool {
	if u.access != Direct {
		return true
	}
	if !u.directAccessRecWasSet {
		handler.SignalError(ioerr.Generic, "no REC= was specified for a data transfer with ACCESS='DIRECT' on unit %d", u.unitNumber)
		return false
	}
	u.directAccessRecWasSet = false
	return true
}

// hitEndOnRead signals end-of-file and, for record files other than
// Direct, remembers the endfile record number so a following
// BACKSPACE still lands correctly.
func (u *Unit) hitEndOnRead(handler ioerr.Handler) {
	handler.SignalEnd()
	if u.IsRecordFile() && u.access != Direct {
		u.endfileRecordNumber.Set(u.currentRecordNumber)
	}
}

// readHeaderOrFooter reads the 4-byte length word at the given
// frame-relative offset, applying the unit's endian-swap policy.
func (u *Unit) readHeaderOrFooter(frameOffset int64) int32 {
	buf := u.frame.Frame()[frameOffset : frameOffset+4]
	var word [4]byte
	copy(word[:], buf)
	if u.swapEndianness {
		swapEndianness(word[:], 4, 4)
	}
	return int32(word[0]) | int32(word[1])<<8 | int32(word[2])<<16 | int32(word[3])<<24
}

func writeHeaderOrFooterInto(dst []byte, value int32, swap bool) {
	dst[0] = byte(value)
	dst[1] = byte(value >> 8)
	dst[2] = byte(value >> 16)
	dst[3] = byte(value >> 24)
	if swap {
		swapEndianness(dst[:4], 4, 4)
	}
}
