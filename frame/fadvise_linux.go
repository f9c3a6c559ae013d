package frame

import (
	"os"

	"golang.org/x/sys/unix"
)

// adviseSequential hints to the kernel that a sequential-access file
// will be read in order, enabling more aggressive readahead.
func adviseSequential(f *os.File) {
	_ = unix.Fadvise(int(f.Fd()), 0, 0, unix.FADV_SEQUENTIAL)
}
