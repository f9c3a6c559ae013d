//go:build !linux

package frame

import "os"

// adviseSequential is a no-op off Linux; posix_fadvise has no portable
// equivalent on the other platforms the module targets.
func adviseSequential(f *os.File) {}
