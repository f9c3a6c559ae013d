//go:build !windows

package frame

import "os"

// isWindowsTextFile is always false off Windows: CRLF translation is
// a Windows-only concern.
func isWindowsTextFile(f *os.File) bool { return false }
