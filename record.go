package extfile

import (
	"github.com/MikeHolman/extfile/diag"
	"github.com/MikeHolman/extfile/ioerr"
	"go.uber.org/zap"
)

const headerFooterBytes = 4

// Emit writes bytes to the current output record at positionInRecord,
// padding any gap since furthestPositionInRecord with spaces, and
// byte-swapping the written range if the unit's CONVERT= policy calls
// for it.
func (u *Unit) Emit(data []byte, elementBytes int, handler ioerr.Handler) bool {
	if u.access == Sequential && u.isUnformatted.GetOr(false) &&
		u.positionInRecord == 0 && u.furthestPositionInRecord == 0 {
		// First bytes of an unformatted sequential record: reserve the
		// length header that AdvanceRecord fills in.
		u.positionInRecord = headerFooterBytes
		u.furthestPositionInRecord = headerFooterBytes
	}
	bytesLen := int64(len(data))
	furthestAfter := u.furthestPositionInRecord
	if u.positionInRecord+bytesLen > furthestAfter {
		furthestAfter = u.positionInRecord + bytesLen
	}

	if recl, ok := u.openRecl.Get(); ok {
		extra := int64(0)
		header := int64(0)
		if u.access == Sequential {
			if u.isUnformatted.GetOr(false) {
				header = headerFooterBytes
				extra = 2 * header
			} else {
				if isWindowsHost && !u.windowsTextFile {
					extra++ // CR
				}
				extra++ // LF
			}
		}
		if furthestAfter > extra+recl {
			handler.SignalError(ioerr.RecordWriteOverrun,
				"attempt to write %d bytes to position %d in a fixed-size record of %d bytes",
				bytesLen, u.positionInRecord-header, recl)
			return false
		}
	}

	if u.recordLength.IsKnown() {
		// Stale from a prior BACKSPACE or non-advancing input before
		// switching to output on the same unit.
		u.recordLength.Clear()
		u.beganReadingRecord = false
	}

	if u.IsAfterEndfile() {
		handler.SignalError(ioerr.WriteAfterEndfile, "write after endfile on unit %d", u.unitNumber)
		return false
	}
	if !u.checkDirectAccess(handler) {
		return false
	}

	u.frame.WriteFrame(u.frameOffsetInFile, u.recordOffsetInFrame+furthestAfter, handler)
	frameBuf := u.frame.Frame()
	if u.positionInRecord > u.furthestPositionInRecord {
		pad := frameBuf[u.recordOffsetInFrame+u.furthestPositionInRecord : u.recordOffsetInFrame+u.positionInRecord]
		for i := range pad {
			pad[i] = ' '
		}
	}
	to := frameBuf[u.recordOffsetInFrame+u.positionInRecord : u.recordOffsetInFrame+u.positionInRecord+bytesLen]
	copy(to, data)
	if u.swapEndianness {
		swapEndianness(to, len(to), elementBytes)
	}
	u.positionInRecord += bytesLen
	u.furthestPositionInRecord = furthestAfter
	return true
}

// Receive reads bytes from the current input record at
// positionInRecord, byte-swapping if required.
func (u *Unit) Receive(data []byte, elementBytes int, handler ioerr.Handler) bool {
	if u.direction != Input {
		handler.Crash("Receive called on a unit not positioned for input")
		return false
	}
	bytesLen := int64(len(data))
	furthestAfter := u.furthestPositionInRecord
	if u.positionInRecord+bytesLen > furthestAfter {
		furthestAfter = u.positionInRecord + bytesLen
	}
	if recl, ok := u.recordLength.Get(); ok && furthestAfter > recl {
		handler.SignalError(ioerr.RecordReadOverrun,
			"attempt to read %d bytes at position %d in a record of %d bytes",
			bytesLen, u.positionInRecord, recl)
		return false
	}
	need := u.recordOffsetInFrame + furthestAfter
	got := u.frame.ReadFrame(u.frameOffsetInFile, need, handler)
	if got < need {
		u.hitEndOnRead(handler)
		return false
	}
	from := u.frame.Frame()[u.recordOffsetInFrame+u.positionInRecord : u.recordOffsetInFrame+u.positionInRecord+bytesLen]
	copy(data, from)
	if u.swapEndianness {
		swapEndianness(data, len(data), elementBytes)
	}
	u.positionInRecord += bytesLen
	u.furthestPositionInRecord = furthestAfter
	return true
}

// GetNextInputBytes returns a window into the frame for streaming
// formatted input, capped by the record's remaining bytes when the
// record length is known.
func (u *Unit) GetNextInputBytes(handler ioerr.Handler) []byte {
	if u.direction != Input {
		handler.Crash("GetNextInputBytes called on a unit not positioned for input")
		return nil
	}
	length := int64(1)
	if recl, ok := u.EffectiveRecordLength().Get(); ok {
		if u.positionInRecord >= recl {
			return nil
		}
		length = recl - u.positionInRecord
	}
	return u.frameNextInput(handler, length)
}

// frameNextInput grows the frame on demand to supply the next `bytes`
// bytes of formatted input, discovering the record length as it goes
// for files whose records aren't already length-prefixed.
func (u *Unit) frameNextInput(handler ioerr.Handler, bytesWanted int64) []byte {
	recl, haveRecl := u.recordLength.Get()
	if haveRecl && u.positionInRecord+bytesWanted > recl {
		return nil
	}
	at := u.recordOffsetInFrame + u.positionInRecord
	need := at + bytesWanted
	got := u.frame.ReadFrame(u.frameOffsetInFile, need, handler)
	u.SetVariableFormattedRecordLength()
	if got >= need {
		return u.frame.Frame()[at : at+bytesWanted]
	}
	u.hitEndOnRead(handler)
	return nil
}

// SetVariableFormattedRecordLength discovers a formatted record's
// length by scanning the frame for its terminating newline, returning
// true once the length is known (or was already known, or the access
// is Direct where length is fixed).
func (u *Unit) SetVariableFormattedRecordLength() bool {
	if u.recordLength.IsKnown() || u.access == Direct {
		return true
	}
	frameLen := u.frame.FrameLength()
	if frameLen <= u.recordOffsetInFrame {
		return false
	}
	record := u.frame.Frame()[u.recordOffsetInFrame:]
	nlAt := indexByte(record, '\n')
	if nlAt < 0 {
		return false
	}
	length := int64(nlAt)
	if length > 0 && record[length-1] == '\r' {
		length--
	}
	u.recordLength.Set(length)
	return true
}

func indexByte(b []byte, c byte) int {
	for i, v := range b {
		if v == c {
			return i
		}
	}
	return -1
}

// BeginReadingRecord starts reading the current record, dispatching by
// access mode and formatting. It is idempotent within one record.
func (u *Unit) BeginReadingRecord(handler ioerr.Handler) bool {
	if !u.beganReadingRecord {
		u.beganReadingRecord = true
		if u.access == Direct {
			if u.checkDirectAccess(handler) {
				recl, _ := u.openRecl.Get()
				need := u.recordOffsetInFrame + recl
				got := u.frame.ReadFrame(u.frameOffsetInFile, need, handler)
				if got >= need {
					u.recordLength.Set(recl)
				} else {
					u.recordLength.Clear()
					u.hitEndOnRead(handler)
				}
			}
		} else {
			u.recordLength.Clear()
			if u.IsAtEOF() {
				handler.SignalEnd()
			} else if u.isUnformatted.GetOr(false) {
				if u.access == Sequential {
					u.beginSequentialVariableUnformattedInputRecord(handler)
				}
			} else {
				u.beginVariableFormattedInputRecord(handler)
			}
		}
	}
	return !handler.InError()
}

// beginSequentialVariableUnformattedInputRecord reads the 4-byte
// length prefix, the payload, and the 4-byte length suffix, verifying
// that prefix and suffix agree.
func (u *Unit) beginSequentialVariableUnformattedInputRecord(handler ioerr.Handler) {
	var header, footer int32
	need := u.recordOffsetInFrame + headerFooterBytes
	got := u.frame.ReadFrame(u.frameOffsetInFile, need, handler)

	var diagFormat string
	if got < need {
		if got == u.recordOffsetInFrame {
			u.hitEndOnRead(handler)
		} else {
			diagFormat = "unformatted variable-length sequential file input failed at record #%d (file offset %d): truncated record header"
		}
	} else {
		header = u.readHeaderOrFooter(u.recordOffsetInFrame)
		recordLen := int64(headerFooterBytes) + int64(header)
		u.recordLength.Set(recordLen)
		need = u.recordOffsetInFrame + recordLen + headerFooterBytes
		got = u.frame.ReadFrame(u.frameOffsetInFile, need, handler)
		if got < need {
			diagFormat = "unformatted variable-length sequential file input failed at record #%d (file offset %d): hit EOF reading record with length %d bytes"
		} else {
			footer = u.readHeaderOrFooter(u.recordOffsetInFrame + recordLen)
			if footer != header {
				diagFormat = "unformatted variable-length sequential file input failed at record #%d (file offset %d): record header has length %d that does not match record footer (%d)"
			}
		}
	}
	if diagFormat != "" {
		diag.Logger().Warn("unformatted record corruption",
			zap.Int("unit", u.unitNumber),
			zap.Int64("record", u.currentRecordNumber),
			zap.Int64("offset", u.frameOffsetInFile),
			zap.Int32("header", header),
			zap.Int32("footer", footer))
		handler.SignalError(ioerr.BadUnformattedRecord, diagFormat,
			u.currentRecordNumber, u.frameOffsetInFile, header, footer)
	}
	u.positionInRecord = headerFooterBytes
}

// beginVariableFormattedInputRecord grows the frame byte by byte until
// a newline terminates the record, or EOF is hit.
func (u *Unit) beginVariableFormattedInputRecord(handler ioerr.Handler) {
	if u.flushDefaultsHook != nil {
		u.flushDefaultsHook(handler)
	}
	var length int64
	for {
		need := length + 1
		got := u.frame.ReadFrame(u.frameOffsetInFile, u.recordOffsetInFrame+need, handler) - u.recordOffsetInFrame
		length = got
		if length < need {
			if length > 0 {
				u.recordLength.Set(length)
				u.unterminatedRecord = true
			} else {
				u.hitEndOnRead(handler)
			}
			return
		}
		if u.SetVariableFormattedRecordLength() {
			return
		}
	}
}

// FinishReadingRecord completes the current input record, advancing
// frame offsets past it (and, for unformatted sequential files,
// retaining the footer in the frame for an efficient BACKSPACE).
func (u *Unit) FinishReadingRecord(handler ioerr.Handler) {
	u.beganReadingRecord = false
	_, haveRecl := u.recordLength.Get()
	if handler.GetIoStat() == ioerr.End || (u.IsRecordFile() && !haveRecl) {
		u.currentRecordNumber++
	} else if u.IsRecordFile() {
		recl, _ := u.recordLength.Get()
		u.recordOffsetInFrame += recl
		if u.access != Direct {
			unformatted := u.isUnformatted.GetOr(false)
			u.recordLength.Clear()
			if unformatted {
				u.frameOffsetInFile += u.recordOffsetInFrame
				u.recordOffsetInFrame = headerFooterBytes
			} else {
				frameBuf := u.frame.Frame()
				frameLen := u.frame.FrameLength()
				if frameLen > u.recordOffsetInFrame && frameBuf[u.recordOffsetInFrame] == '\r' {
					u.recordOffsetInFrame++
				}
				if frameLen > u.recordOffsetInFrame && frameBuf[u.recordOffsetInFrame] == '\n' {
					u.recordOffsetInFrame++
				}
				if !u.pinnedFrame || u.frame.MayPosition() {
					u.frameOffsetInFile += u.recordOffsetInFrame
					u.recordOffsetInFrame = 0
				}
			}
		}
		u.currentRecordNumber++
	} else {
		if u.positionInRecord > u.furthestPositionInRecord {
			u.furthestPositionInRecord = u.positionInRecord
		}
		u.frameOffsetInFile += u.recordOffsetInFrame + u.furthestPositionInRecord
	}
	u.BeginRecord()
}

// AdvanceRecord ends the current record (input: finish then begin the
// next; output: terminate the record with its footer/newline/padding)
// and starts the next one.
func (u *Unit) AdvanceRecord(handler ioerr.Handler) bool {
	if u.direction == Input {
		u.FinishReadingRecord(handler)
		return u.BeginReadingRecord(handler)
	}

	ok := true
	unformatted := u.isUnformatted.GetOr(false)
	u.positionInRecord = u.furthestPositionInRecord

	switch {
	case u.access == Direct:
		if recl, haveRecl := u.openRecl.Get(); haveRecl && u.furthestPositionInRecord < recl {
			u.frame.WriteFrame(u.frameOffsetInFile, u.recordOffsetInFrame+recl, handler)
			pad := u.frame.Frame()[u.recordOffsetInFrame+u.furthestPositionInRecord : u.recordOffsetInFrame+recl]
			fill := byte(' ')
			if unformatted {
				fill = 0
			}
			for i := range pad {
				pad[i] = fill
			}
			u.furthestPositionInRecord = recl
		}
	case unformatted:
		if u.access == Sequential {
			if u.furthestPositionInRecord == 0 {
				// empty record: reserve its header as Emit would have.
				u.furthestPositionInRecord = headerFooterBytes
				u.positionInRecord = headerFooterBytes
			}
			length := int32(u.furthestPositionInRecord - headerFooterBytes)
			lengthBytes := make([]byte, headerFooterBytes)
			writeHeaderOrFooterInto(lengthBytes, length, u.swapEndianness)
			ok = ok && u.Emit(lengthBytes, headerFooterBytes, handler)
			u.positionInRecord = 0
			ok = ok && u.Emit(lengthBytes, headerFooterBytes, handler)
		}
		// unformatted stream: nothing to terminate.
	case handler.GetIoStat() != ioerr.Ok && u.furthestPositionInRecord == 0:
		// Error in formatted variable-length record with nothing
		// emitted yet: silently succeed, matching historical Fortran
		// compiler behavior rather than cascading the error.
		return true
	default:
		lineEnding := "\n"
		if isWindowsHost && !u.windowsTextFile {
			lineEnding = "\r\n"
		}
		ok = ok && u.Emit([]byte(lineEnding), 1, handler)
	}

	u.leftTabLimit.Clear()
	if u.IsAfterEndfile() {
		return false
	}
	u.CommitWrites()
	u.currentRecordNumber++
	if u.access != Direct {
		u.impliedEndfile = u.IsRecordFile()
		if u.IsAtEOF() {
			u.endfileRecordNumber.Clear()
		}
	}
	return ok
}

// CommitWrites folds the current record's bytes into
// frameOffsetInFile and begins a new record there.
func (u *Unit) CommitWrites() {
	recl, haveRecl := u.recordLength.Get()
	n := u.furthestPositionInRecord
	if haveRecl {
		n = recl
	}
	u.frameOffsetInFile += u.recordOffsetInFrame + n
	u.recordOffsetInFrame = 0
	u.BeginRecord()
}
