package extfile

import (
	"github.com/MikeHolman/extfile/diag"
	"github.com/MikeHolman/extfile/ioerr"
	"go.uber.org/zap"
)

// BackspaceRecord repositions to the start of the current record (or
// the previous one, if already at a record's start). Forbidden on
// Direct access and on unformatted stream files.
func (u *Unit) BackspaceRecord(handler ioerr.Handler) {
	if u.access == Direct || !u.IsRecordFile() {
		handler.SignalError(ioerr.BackspaceNonSequential, "BACKSPACE(UNIT=%d) on direct-access file or unformatted stream", u.unitNumber)
		return
	}
	switch {
	case u.IsAfterEndfile():
		efn, _ := u.endfileRecordNumber.Get()
		u.currentRecordNumber = efn
	case u.leftTabLimit.IsKnown():
		u.leftTabLimit.Clear()
	default:
		u.DoImpliedEndfile(handler)
		if u.frameOffsetInFile+u.recordOffsetInFrame > 0 {
			u.currentRecordNumber--
			if recl, isDirect := u.openRecl.Get(); isDirect && u.access == Direct {
				u.backspaceFixedRecord(recl, handler)
			} else if u.isUnformatted.GetOr(false) {
				u.backspaceVariableUnformattedRecord(handler)
			} else {
				u.backspaceVariableFormattedRecord(handler)
			}
		}
	}
	u.BeginRecord()
}

func (u *Unit) backspaceFixedRecord(recl int64, handler ioerr.Handler) {
	if u.frameOffsetInFile < recl {
		handler.SignalError(ioerr.BackspaceAtFirstRecord, "BACKSPACE(UNIT=%d) at first record", u.unitNumber)
		return
	}
	u.frameOffsetInFile -= recl
}

func (u *Unit) backspaceVariableUnformattedRecord(handler ioerr.Handler) {
	u.frameOffsetInFile += u.recordOffsetInFrame
	u.recordOffsetInFrame = 0
	if u.frameOffsetInFile <= headerFooterBytes {
		handler.SignalError(ioerr.BackspaceAtFirstRecord, "BACKSPACE(UNIT=%d) at first record", u.unitNumber)
		return
	}
	got := u.frame.ReadFrame(u.frameOffsetInFile-headerFooterBytes, headerFooterBytes, handler)
	if got < headerFooterBytes {
		handler.SignalError(ioerr.ShortRead, "short read backspacing unit %d", u.unitNumber)
		return
	}
	// ReadFrame above guarantees the window now starts exactly at
	// frameOffsetInFile-headerFooterBytes, so the footer word we just
	// fetched sits at frame-relative offset 0.
	prevLength := int64(u.readHeaderOrFooter(0))
	if u.frameOffsetInFile < prevLength+2*headerFooterBytes {
		handler.SignalError(ioerr.BadUnformattedRecord, "malformed unformatted record backspacing unit %d", u.unitNumber)
		return
	}
	u.frameOffsetInFile -= prevLength + 2*headerFooterBytes
	need := u.recordOffsetInFrame + headerFooterBytes + prevLength
	got = u.frame.ReadFrame(u.frameOffsetInFile, need, handler)
	if got < need {
		handler.SignalError(ioerr.ShortRead, "short read backspacing unit %d", u.unitNumber)
		return
	}
	header := int64(u.readHeaderOrFooter(u.recordOffsetInFrame))
	if header != prevLength {
		diag.Logger().Warn("unformatted record corruption on backspace",
			zap.Int("unit", u.unitNumber),
			zap.Int64("offset", u.frameOffsetInFile),
			zap.Int64("header", header),
			zap.Int64("footerLength", prevLength))
		handler.SignalError(ioerr.BadUnformattedRecord, "malformed unformatted record backspacing unit %d", u.unitNumber)
		return
	}
	u.recordLength.Set(prevLength)
}

// findLastNewline scans str backward from its end for '\n'. There's
// no portable memrchr and strrchr would stop at an embedded NUL, so
// this is done by hand.
func findLastNewline(str []byte) int {
	for i := len(str) - 1; i >= 0; i-- {
		if str[i] == '\n' {
			return i
		}
	}
	return -1
}

func (u *Unit) backspaceVariableFormattedRecord(handler ioerr.Handler) {
	prevNL := u.frameOffsetInFile + u.recordOffsetInFrame - 1
	if prevNL < 0 {
		handler.SignalError(ioerr.BackspaceAtFirstRecord, "BACKSPACE(UNIT=%d) at first record", u.unitNumber)
		return
	}
	var recordLen int64
	for {
		if u.frameOffsetInFile < prevNL {
			limit := prevNL - u.frameOffsetInFile
			frameBuf := u.frame.Frame()
			if limit > int64(len(frameBuf)) {
				limit = int64(len(frameBuf))
			}
			window := frameBuf[:limit]
			if p := findLastNewline(window); p >= 0 {
				u.recordOffsetInFrame = int64(p) + 1
				recordLen = prevNL - (u.frameOffsetInFile + u.recordOffsetInFrame)
				break
			}
		}
		if u.frameOffsetInFile == 0 {
			u.recordOffsetInFrame = 0
			recordLen = prevNL
			break
		}
		step := u.frameOffsetInFile
		if step > 1024 {
			step = 1024
		}
		u.frameOffsetInFile -= step
		need := prevNL + 1 - u.frameOffsetInFile
		got := u.frame.ReadFrame(u.frameOffsetInFile, need, handler)
		if got < need {
			handler.SignalError(ioerr.ShortRead, "short read backspacing unit %d", u.unitNumber)
			return
		}
	}
	if u.frame.Frame()[u.recordOffsetInFrame+recordLen] != '\n' {
		handler.SignalError(ioerr.MissingTerminator, "missing record terminator backspacing unit %d", u.unitNumber)
		return
	}
	if recordLen > 0 && u.frame.Frame()[u.recordOffsetInFrame+recordLen-1] == '\r' {
		recordLen--
	}
	u.recordLength.Set(recordLen)
}
