package extfile

import "github.com/MikeHolman/extfile/ioerr"

// ParentIoStatement is the minimal view of the statement layer's
// current I/O statement that a ChildIO needs: whether it is
// formatted, and which direction it transfers in. The full statement
// state machine lives above this engine and is out of scope; this is
// the narrow slice the engine must consult to validate nested I/O.
type ParentIoStatement interface {
	IsUnformatted() bool
	Direction() Direction
}

// ChildIO is one frame of the nested-I/O stack: a unit may have a
// statement (internal file I/O, or a formatted I/O nested inside a
// user-defined derived-type I/O procedure) that itself drives child
// data transfers against the same unit. The stack has exclusive
// ownership: pushing a new child transfers ownership of the previous
// top into the new node's previous pointer.
type ChildIO struct {
	parent   ParentIoStatement
	previous *ChildIO
}

// PushChildIo starts a new nested I/O context on top of the unit's
// child-I/O stack, returning it.
func (u *Unit) PushChildIo(parent ParentIoStatement) *ChildIO {
	child := &ChildIO{parent: parent, previous: u.child}
	u.child = child
	return child
}

// PopChildIo pops child off the unit's stack. child must be the
// current top; popping anything else is a programmer bug.
func (u *Unit) PopChildIo(child *ChildIO, handler ioerr.Handler) {
	if u.child != child {
		handler.Crash("ChildIo being popped is not top of stack")
		return
	}
	u.child = child.previous
}

// Parent returns the statement this child I/O context nests under.
func (c *ChildIO) Parent() ParentIoStatement { return c.parent }

// CheckFormattingAndDirection reports an error code if a nested
// transfer's formatting or direction disagrees with its parent
// statement's.
func (c *ChildIO) CheckFormattingAndDirection(unformatted bool, direction Direction) ioerr.Iostat {
	parentIsInput := c.parent.Direction() != Output
	parentIsUnformatted := c.parent.IsUnformatted()
	if unformatted != parentIsUnformatted {
		if unformatted {
			return ioerr.UnformattedChildOnFormattedParent
		}
		return ioerr.FormattedChildOnUnformattedParent
	}
	if parentIsInput != (direction == Input) {
		if parentIsInput {
			return ioerr.ChildOutputToInputParent
		}
		return ioerr.ChildInputFromOutputParent
	}
	return ioerr.Ok
}
