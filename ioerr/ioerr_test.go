package ioerr

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDefaultHandlerSignalError(t *testing.T) {
	h := NewHandler()
	require.False(t, h.InError())
	require.True(t, h.HasIoStat())

	h.SignalError(BadUnformattedRecord, "bad record at offset %d", 42)
	require.True(t, h.InError())
	require.Equal(t, BadUnformattedRecord, h.GetIoStat())

	err := h.Err()
	require.Error(t, err)
	require.Equal(t, "bad record at offset 42", err.Error())

	var ioErr *Error
	require.ErrorAs(t, err, &ioErr)
	require.Equal(t, BadUnformattedRecord, ioErr.Iostat())
}

func TestDefaultHandlerSignalEndIsNotAnError(t *testing.T) {
	h := NewHandler()
	h.SignalEnd()
	require.False(t, h.InError())
	require.Equal(t, End, h.GetIoStat())
	require.NoError(t, h.Err())
}

func TestDefaultHandlerCrashPanics(t *testing.T) {
	h := NewHandler()
	require.Panics(t, func() {
		h.Crash("unreachable state reached")
	})
}

func TestSwallowingHandlerNeverPanics(t *testing.T) {
	h := NewSwallowingHandler("test")
	require.NotPanics(t, func() {
		h.Crash("unreachable state reached")
	})
	require.True(t, h.InError())
}

func TestIostatString(t *testing.T) {
	require.Equal(t, "end of file", End.String())
	require.Contains(t, Iostat(9999).String(), "iostat(9999)")
}
