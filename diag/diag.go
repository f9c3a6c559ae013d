// Package diag holds the process-wide diagnostics logger shared by
// the record engine (package extfile) and the table package,
// following the lazily-initialized package logger pattern.
package diag

import (
	"sync"

	"go.uber.org/zap"
)

var (
	logger     *zap.Logger
	loggerOnce sync.Once
)

// Logger returns the package's logger, defaulting to a no-op logger
// until SetLogger is called.
func Logger() *zap.Logger {
	loggerOnce.Do(func() {
		if logger == nil {
			logger = zap.NewNop()
		}
	})
	return logger
}

// SetLogger installs l as the package logger. Call before driving any
// I/O if diagnostics should go somewhere other than /dev/null.
func SetLogger(l *zap.Logger) {
	logger = l
}
