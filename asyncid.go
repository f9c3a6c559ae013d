package extfile

import "github.com/MikeHolman/extfile/ioerr"

// asyncIDPoolWidth is the number of asynchronous operation IDs a unit
// can have outstanding at once. ID 0 is reserved to mean "wait on all
// outstanding IDs" and is never itself allocated.
const asyncIDPoolWidth = 64

// asyncIDPool is a bitset allocator: bit i set means ID i is free.
type asyncIDPool struct {
	available uint64
}

func newAsyncIDPool() asyncIDPool {
	// every bit but 0 starts free.
	return asyncIDPool{available: ^uint64(1)}
}

// leastAvailable returns the lowest set bit's index, or -1 if none.
func (p *asyncIDPool) leastAvailable() int {
	if p.available == 0 {
		return -1
	}
	// count trailing zeros by shifting right until the lowest set bit
	// reaches position 0; avoids importing math/bits for one call site.
	v := p.available
	idx := 0
	for v&1 == 0 {
		v >>= 1
		idx++
	}
	return idx
}

// allocate picks the least available ID, reserves it, and returns it.
func (p *asyncIDPool) allocate() (int, bool) {
	id := p.leastAvailable()
	if id < 0 {
		return 0, false
	}
	p.available &^= 1 << uint(id)
	return id, true
}

// wait releases id back to the pool; id 0 releases every ID then
// re-reserves 0. Waiting on an already-free ID or an out-of-range ID
// fails.
func (p *asyncIDPool) wait(id int) bool {
	if id < 0 || id >= asyncIDPoolWidth {
		return false
	}
	if p.available&(1<<uint(id)) != 0 {
		return false // already free
	}
	if id == 0 {
		p.available = ^uint64(0)
		p.available &^= 1
	} else {
		p.available |= 1 << uint(id)
	}
	return true
}

// GetAsynchronousID allocates a new asynchronous operation ID, failing
// with BadAsynchronous if the frame doesn't support async I/O, or
// TooManyAsyncOps if the pool is exhausted.
func (u *Unit) GetAsynchronousID(handler ioerr.Handler) int {
	if !u.frame.MayAsynchronous() {
		handler.SignalError(ioerr.BadAsynchronous, "asynchronous I/O not permitted on unit %d", u.unitNumber)
		return -1
	}
	id, ok := u.asyncIDs.allocate()
	if !ok {
		handler.SignalError(ioerr.TooManyAsyncOps, "too many outstanding asynchronous operations on unit %d", u.unitNumber)
		return -1
	}
	return id
}

// Wait releases an asynchronous operation ID. Operations themselves
// always run synchronously at this layer; Wait exists only so the IDs
// handed out by GetAsynchronousID can be retired.
func (u *Unit) Wait(id int) bool {
	return u.asyncIDs.wait(id)
}
