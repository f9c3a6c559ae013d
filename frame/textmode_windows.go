package frame

import (
	"os"

	"golang.org/x/sys/windows"
)

// isWindowsTextFile reports whether f is a console handle, which
// Windows always line-translates on read/write, matching the
// runtime's CRLF behavior for text-mode units.
func isWindowsTextFile(f *os.File) bool {
	var mode uint32
	return windows.GetConsoleMode(windows.Handle(f.Fd()), &mode) == nil
}
