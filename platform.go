package extfile

import "runtime"

// isWindowsHost gates the CRLF and carriage-return-overhead behavior
// that only applies when compiled for Windows; it is a compile-time
// constant in the original runtime (#ifdef _WIN32) and a runtime
// check here since Go doesn't preprocess per-OS source by default
// without build-tagged files, and this flag is read far more often
// than it would be worth splitting into _windows.go/_other.go.
var isWindowsHost = runtime.GOOS == "windows"
