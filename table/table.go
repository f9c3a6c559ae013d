// Package table implements the process-wide unit table (C3): the
// keyed store of every connected external file unit, bootstrap of the
// predefined units, and the two locks ("tableLock" and
// "createOpenLock") that are the engine's only shared mutable state.
package table

import (
	"bytes"
	"sync"

	"github.com/MikeHolman/extfile"
	"github.com/MikeHolman/extfile/diag"
	"github.com/MikeHolman/extfile/frame"
	"github.com/MikeHolman/extfile/ioerr"
	"go.uber.org/multierr"
	"go.uber.org/zap"
)

// Predefined unit numbers, bound at bootstrap to OS file descriptors
// 0/1/2.
const (
	DefaultInput  = 5
	DefaultOutput = 6
	DefaultError  = 0
)

// Table is the process-wide store of connected units. The zero value
// is not usable; obtain the singleton with Get.
type Table struct {
	// tableLock covers lookup, create, destroy, close-all, and flush-all.
	tableLock sync.Mutex
	// createOpenLock serializes the compound "create if absent, open if
	// newly created" operation for anonymous/by-number lookups so two
	// callers can't both decide they're the one that must open it.
	createOpenLock sync.Mutex

	units       map[int]*extfile.Unit
	nextAnonNum int
}

var (
	singleton     *Table
	bootstrapOnce sync.Once
)

// Get returns the process-wide table, bootstrapping it (and the
// predefined units 0/5/6) on first call.
func Get() *Table {
	bootstrapOnce.Do(func() {
		singleton = &Table{
			units:       make(map[int]*extfile.Unit),
			nextAnonNum: -1,
		}
		singleton.bootstrapPredefined()
	})
	return singleton
}

func (t *Table) bootstrapPredefined() {
	stdin := newPredefined(DefaultInput, 0, extfile.Input)
	stdout := newPredefined(DefaultOutput, 1, extfile.Output)
	stderr := newPredefined(DefaultError, 2, extfile.Output)

	t.units[DefaultInput] = stdin
	t.units[DefaultOutput] = stdout
	t.units[DefaultError] = stderr

	stdin.SetFlushDefaultsHook(func(handler ioerr.Handler) {
		stdout.FlushOutput(handler)
		stderr.FlushOutput(handler)
	})
}

func newPredefined(unitNumber, fd int, direction extfile.Direction) *extfile.Unit {
	f := frame.New()
	f.Predefine(fd)
	u := extfile.NewUnit(unitNumber, f)
	u.SetAccess(extfile.Sequential)
	u.SetUnformatted(false)
	h := ioerr.NewHandler()
	u.SetDirection(direction, h)
	return u
}

// LookUp returns the unit currently bound to num, if any.
func (t *Table) LookUp(num int) (*extfile.Unit, bool) {
	t.tableLock.Lock()
	defer t.tableLock.Unlock()
	u, ok := t.units[num]
	return u, ok
}

// LookUpByPath returns a unit other than excludeNum currently
// connected to path, used to detect the "file already open on another
// unit" condition before OPEN proceeds.
func (t *Table) LookUpByPath(path []byte, excludeNum int) (*extfile.Unit, bool) {
	if len(path) == 0 {
		return nil, false
	}
	t.tableLock.Lock()
	defer t.tableLock.Unlock()
	for num, u := range t.units {
		if num == excludeNum {
			continue
		}
		if bytes.Equal(u.Path(), path) {
			return u, true
		}
	}
	return nil, false
}

// LookUpOrCreate returns the unit bound to num, creating and
// registering an unconnected one if absent. The second return value
// reports whether the unit already existed.
func (t *Table) LookUpOrCreate(num int) (*extfile.Unit, bool) {
	t.tableLock.Lock()
	defer t.tableLock.Unlock()
	if u, ok := t.units[num]; ok {
		return u, true
	}
	u := extfile.NewUnit(num, frame.New())
	t.units[num] = u
	return u, false
}

// LookUpForClose returns the unit bound to num for a CLOSE statement;
// unlike LookUpOrCreate it does not create one.
func (t *Table) LookUpForClose(num int) (*extfile.Unit, bool) {
	return t.LookUp(num)
}

// NewUnit allocates a unit with a freshly chosen number disjoint from
// any number a caller could have opened explicitly (OPEN's NEWUNIT=).
func (t *Table) NewUnit() *extfile.Unit {
	t.tableLock.Lock()
	defer t.tableLock.Unlock()
	num := t.nextAnonNum
	t.nextAnonNum--
	u := extfile.NewUnit(num, frame.New())
	u.SetCreatedForInternalChildIo(false)
	t.units[num] = u
	return u
}

// DestroyClosed removes a closed unit from the table. Predefined
// units 0/5/6 are never destroyed this way, only by CloseAll.
func (t *Table) DestroyClosed(u *extfile.Unit) {
	num := u.UnitNumber()
	if num == DefaultInput || num == DefaultOutput || num == DefaultError {
		return
	}
	t.tableLock.Lock()
	defer t.tableLock.Unlock()
	delete(t.units, num)
}

// OpenUnit performs the compound "find-or-create, then open" operation
// for an explicit-number OPEN, including the cross-unit path-collision
// check that a single Unit can't perform on its own (it has no
// visibility into the rest of the table).
func (t *Table) OpenUnit(num int, status *extfile.OpenStatus, action *extfile.Action, position extfile.Position, path []byte, convert extfile.Convert, handler ioerr.Handler) *extfile.Unit {
	t.createOpenLock.Lock()
	defer t.createOpenLock.Unlock()

	if other, found := t.LookUpByPath(path, num); found {
		handler.SignalError(ioerr.OpenAlreadyConnected,
			"OPEN: file already connected to unit %d", other.UnitNumber())
		return nil
	}

	u, _ := t.LookUpOrCreate(num)
	u.Lock()
	defer u.Unlock()
	u.OpenUnit(status, action, position, path, convert, handler)
	return u
}

// CloseAll closes every unit in the table, aggregating per-unit
// failures with multierr so one unit's failure doesn't stop the rest
// from being attempted. Used both for an explicit shutdown call (Go
// has no atexit) and by FlushOutputOnCrash's sibling path.
func (t *Table) CloseAll(handler ioerr.Handler) error {
	t.tableLock.Lock()
	units := make([]*extfile.Unit, 0, len(t.units))
	for _, u := range t.units {
		units = append(units, u)
	}
	t.tableLock.Unlock()

	var err error
	for _, u := range units {
		perUnit := ioerr.NewSwallowingHandler("extfile: close")
		u.Lock()
		u.CloseUnit(extfile.CloseKeep, perUnit)
		u.Unlock()
		if e := perUnit.Err(); e != nil {
			err = multierr.Append(err, e)
		}
	}
	t.tableLock.Lock()
	t.units = make(map[int]*extfile.Unit)
	t.tableLock.Unlock()
	if err != nil {
		handler.SignalError(ioerr.Generic, "%v", err)
	}
	return err
}

// FlushAll flushes every unit's buffered output, aggregating failures
// the same way CloseAll does.
func (t *Table) FlushAll(handler ioerr.Handler) error {
	t.tableLock.Lock()
	units := make([]*extfile.Unit, 0, len(t.units))
	for _, u := range t.units {
		units = append(units, u)
	}
	t.tableLock.Unlock()

	var err error
	for _, u := range units {
		perUnit := ioerr.NewSwallowingHandler("extfile: flush")
		u.Lock()
		u.FlushOutput(perUnit)
		u.Unlock()
		if e := perUnit.Err(); e != nil {
			err = multierr.Append(err, e)
		}
	}
	if err != nil {
		handler.SignalError(ioerr.Generic, "%v", err)
	}
	return err
}

// FlushOutputOnCrash flushes the default output and error units under
// the table lock using a handler that swallows further errors, so a
// flush failure while the process is already crashing can't itself
// crash. Grounded on the original runtime's free function of the same
// name; callers invoke this from a recover() at the program's outer
// boundary, never from inside ordinary statement execution.
func FlushOutputOnCrash() {
	t := Get()
	t.tableLock.Lock()
	defer t.tableLock.Unlock()
	stdout, hasStdout := t.units[DefaultOutput]
	stderr, hasStderr := t.units[DefaultError]

	handler := ioerr.NewSwallowingHandler("extfile: crash flush")
	if hasStdout {
		stdout.Lock()
		stdout.FlushOutput(handler)
		stdout.Unlock()
	}
	if hasStderr {
		stderr.Lock()
		stderr.FlushOutput(handler)
		stderr.Unlock()
	}
	if handler.InError() {
		diag.Logger().Warn("crash-time flush failed", zap.Error(handler.Err()))
	}
}

// Shutdown closes every unit in the table. Go has no atexit: hosts
// embedding this engine (a CLI's main, a test harness's cleanup) are
// expected to call Shutdown explicitly, e.g. via defer, rather than
// relying on process-exit hooks the runtime doesn't offer.
func Shutdown() error {
	handler := ioerr.NewSwallowingHandler("extfile: shutdown")
	err := Get().CloseAll(handler)
	if handler.InError() {
		diag.Logger().Warn("shutdown close failed", zap.Error(handler.Err()))
	}
	return err
}
