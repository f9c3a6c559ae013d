package extfile

import (
	"bytes"
	"fmt"
	"os"
	"strings"

	"github.com/MikeHolman/extfile/ioerr"
)

// OpenUnit connects the unit to a file, handling the already-connected
// and implied-close cases described in §4.4. newPath may be nil for
// an OPEN that doesn't name a new FILE=. It reports whether the call
// performed an implied CLOSE of the unit's previous connection.
func (u *Unit) OpenUnit(status *OpenStatus, action *Action, position Position, newPath []byte, convert Convert, handler ioerr.Handler) bool {
	if convert == ConvertUnknown {
		convert = defaultConversion()
	}
	u.swapEndianness = resolveSwapEndianness(convert)

	impliedClose := false
	if u.frame.IsConnected() {
		isSamePath := len(newPath) > 0 && len(u.path) > 0 && bytes.Equal(u.path, newPath)
		if status != nil && *status != StatusOld && isSamePath {
			handler.SignalError(ioerr.Generic, "OPEN statement for connected unit %d may not have explicit STATUS= other than 'OLD'", u.unitNumber)
			return impliedClose
		}
		if len(newPath) == 0 || isSamePath {
			return impliedClose
		}
		u.DoImpliedEndfile(handler)
		u.FlushOutput(handler)
		u.frame.TruncateFrame(0, handler)
		u.frame.Close(CloseKeep, handler)
		impliedClose = true
	}

	u.setPath(newPath)
	u.frame.Open(newPath, u.access, openStatusOrUnknown(status), action, position, handler)
	u.windowsTextFile = u.frame.IsWindowsTextFile()

	totalBytes, haveSize := u.frame.KnownSize()
	if u.access == Direct {
		recl, haveRecl := u.openRecl.Get()
		switch {
		case !haveRecl:
			handler.SignalError(ioerr.OpenBadRecl, "OPEN(UNIT=%d,ACCESS='DIRECT'): record length is not known", u.unitNumber)
		case recl <= 0:
			handler.SignalError(ioerr.OpenBadRecl, "OPEN(UNIT=%d,ACCESS='DIRECT',RECL=%d): record length is invalid", u.unitNumber, recl)
		case haveSize && totalBytes%recl != 0:
			handler.SignalError(ioerr.OpenBadRecl, "OPEN(UNIT=%d,ACCESS='DIRECT',RECL=%d): record length is not an even divisor of the file size %d", u.unitNumber, recl, totalBytes)
		}
		u.recordLength = u.openRecl
	}

	u.endfileRecordNumber.Clear()
	u.currentRecordNumber = 1
	if haveSize && u.access == Direct {
		if recl, ok := u.openRecl.Get(); ok && recl > 0 {
			u.endfileRecordNumber.Set(1 + totalBytes/recl)
		}
	}
	if position == PositionAppend {
		if haveSize {
			u.frameOffsetInFile = totalBytes
		}
		if u.access != Stream {
			if !u.endfileRecordNumber.IsKnown() {
				u.endfileRecordNumber.Set(sentinelAppendEndfile)
			}
			efn, _ := u.endfileRecordNumber.Get()
			u.currentRecordNumber = efn
		}
	}
	return impliedClose
}

func openStatusOrUnknown(status *OpenStatus) OpenStatus {
	if status == nil {
		return StatusUnknown
	}
	return *status
}

// OpenAnonymousUnit opens a unit that wasn't explicitly OPENed,
// synthesizing the conventional "fort.<unit>" path in the working
// directory.
func (u *Unit) OpenAnonymousUnit(status *OpenStatus, action *Action, position Position, convert Convert, handler ioerr.Handler) bool {
	path := []byte(fmt.Sprintf("fort.%d", u.unitNumber))
	return u.OpenUnit(status, action, position, path, convert, handler)
}

// CloseUnit finishes any implied endfile, flushes output, and closes
// the underlying connection.
func (u *Unit) CloseUnit(status CloseStatus, handler ioerr.Handler) {
	u.DoImpliedEndfile(handler)
	u.FlushOutput(handler)
	u.frame.Close(status, handler)
}

// Rewind repositions to the start of the file; forbidden on Direct
// access.
func (u *Unit) Rewind(handler ioerr.Handler) {
	if u.access == Direct {
		handler.SignalError(ioerr.RewindNonSequential, "REWIND(UNIT=%d) on direct-access file", u.unitNumber)
		return
	}
	u.SetPosition(0, handler)
	u.currentRecordNumber = 1
	u.leftTabLimit.Clear()
}

// Endfile writes an explicit endfile marker; forbidden on Direct
// access and on read-only units, and a no-op if already positioned
// after an endfile.
func (u *Unit) Endfile(handler ioerr.Handler) {
	if u.access == Direct {
		handler.SignalError(ioerr.EndfileDirect, "ENDFILE(UNIT=%d) on direct-access file", u.unitNumber)
		return
	}
	if !u.frame.MayWrite() {
		handler.SignalError(ioerr.EndfileUnwritable, "ENDFILE(UNIT=%d) on read-only file", u.unitNumber)
		return
	}
	if u.IsAfterEndfile() {
		return
	}
	u.DoEndfile(handler)
	if u.IsRecordFile() && u.access != Direct {
		efn, _ := u.endfileRecordNumber.Get()
		u.currentRecordNumber = efn + 1
	}
}

// DoImpliedEndfile completes a partial non-advancing output record
// and, if an implied endfile is pending and positioning is permitted,
// actually writes it.
func (u *Unit) DoImpliedEndfile(handler ioerr.Handler) {
	if !u.impliedEndfile && u.direction == Output && u.IsRecordFile() &&
		u.access != Direct && u.leftTabLimit.IsKnown() {
		u.AdvanceRecord(handler)
	}
	if u.impliedEndfile {
		u.impliedEndfile = false
		if u.access != Direct && u.IsRecordFile() && u.frame.MayPosition() {
			u.DoEndfile(handler)
		}
	}
}

// DoEndfile performs the mechanics of truncating the file at the
// current position and beginning a fresh record there.
func (u *Unit) DoEndfile(handler ioerr.Handler) {
	if u.IsRecordFile() && u.access != Direct {
		if u.positionInRecord > u.furthestPositionInRecord {
			u.furthestPositionInRecord = u.positionInRecord
		}
		if u.leftTabLimit.IsKnown() {
			u.leftTabLimit.Clear()
			u.currentRecordNumber++
		}
		u.endfileRecordNumber.Set(u.currentRecordNumber)
	}
	u.frameOffsetInFile += u.recordOffsetInFrame + u.furthestPositionInRecord
	u.recordOffsetInFrame = 0
	u.FlushOutput(handler)
	u.frame.Truncate(u.frameOffsetInFile, handler)
	u.frame.TruncateFrame(u.frameOffsetInFile, handler)
	u.BeginRecord()
	u.impliedEndfile = false
}

// FlushOutput flushes buffered writes, first advancing
// frameOffsetInFile past the buffered window on a non-positionable
// file so the flush never attempts an impossible seek.
func (u *Unit) FlushOutput(handler ioerr.Handler) {
	if !u.frame.MayPosition() {
		frameAt := u.frame.FrameAt()
		frameLen := u.frame.FrameLength()
		if u.frameOffsetInFile >= frameAt && u.frameOffsetInFile < frameAt+frameLen {
			u.CommitWrites()
			u.leftTabLimit.Clear()
		}
	}
	u.frame.Flush(handler)
}

// FlushIfTerminal flushes output immediately when the connection is
// an interactive terminal, so output isn't buffered past a statement
// boundary a user is waiting on.
func (u *Unit) FlushIfTerminal(handler ioerr.Handler) {
	if u.frame.IsTerminal() {
		u.FlushOutput(handler)
	}
}

// defaultConversion resolves the environment's default endian
// conversion policy from EXTFILE_CONVERT (unset or unrecognized means
// native). Exposed as a var so tests can override it without mutating
// the process environment.
var defaultConversion = func() Convert {
	switch strings.ToUpper(os.Getenv("EXTFILE_CONVERT")) {
	case "SWAP":
		return ConvertSwap
	case "LITTLE_ENDIAN":
		return ConvertLittleEndian
	case "BIG_ENDIAN":
		return ConvertBigEndian
	default:
		return ConvertNative
	}
}
