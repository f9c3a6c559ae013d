package extfile

import "github.com/MikeHolman/extfile/ioerr"

// SetPosition repositions the unit's frame to an absolute byte offset,
// finishing any pending implied endfile first and starting a fresh
// record there. For Direct access it marks REC= as having been
// supplied, since SetDirectRec is the only other caller.
func (u *Unit) SetPosition(pos int64, handler ioerr.Handler) {
	u.DoImpliedEndfile(handler)
	u.frameOffsetInFile = pos
	u.recordOffsetInFrame = 0
	if u.access == Direct {
		u.directAccessRecWasSet = true
	}
	u.BeginRecord()
}

// SetStreamPos implements POS= for unformatted stream access. oneBased
// positions are 1-based byte offsets; after repositioning the current
// record number is set to a value that permits reading in either
// direction without becoming inconsistent with a later BACKSPACE.
func (u *Unit) SetStreamPos(oneBased int64, handler ioerr.Handler) bool {
	if u.access != Stream {
		handler.SignalError(ioerr.Generic, "POS= may only be used on an unformatted stream unit %d", u.unitNumber)
		return false
	}
	if oneBased < 1 {
		handler.SignalError(ioerr.Generic, "POS=%d is invalid on unit %d", oneBased, u.unitNumber)
		return false
	}
	u.SetPosition(oneBased-1, handler)
	u.currentRecordNumber = sentinelStreamPos
	u.endfileRecordNumber.Clear()
	return true
}

// SetDirectRec implements REC= for Direct access, positioning to the
// given 1-based fixed-length record.
func (u *Unit) SetDirectRec(oneBased int64, handler ioerr.Handler) bool {
	if u.access != Direct {
		handler.SignalError(ioerr.Generic, "REC= may only be used on a direct-access unit %d", u.unitNumber)
		return false
	}
	recl, haveRecl := u.openRecl.Get()
	if !haveRecl {
		handler.SignalError(ioerr.OpenBadRecl, "REC= used on unit %d before RECL= was established", u.unitNumber)
		return false
	}
	if oneBased < 1 {
		handler.SignalError(ioerr.Generic, "REC=%d is invalid on unit %d", oneBased, u.unitNumber)
		return false
	}
	u.currentRecordNumber = oneBased
	u.SetPosition((oneBased-1)*recl, handler)
	return true
}
