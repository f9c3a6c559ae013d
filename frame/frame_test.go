package frame

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/MikeHolman/extfile"
	"github.com/MikeHolman/extfile/ioerr"
	"github.com/stretchr/testify/require"
)

func TestOpenWriteReadRoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "data.bin")

	f := New()
	h := ioerr.NewHandler()
	f.Open([]byte(path), extfile.Sequential, extfile.StatusUnknown, nil, extfile.PositionAsIs, h)
	require.False(t, h.InError())
	require.True(t, f.IsConnected())
	require.True(t, f.MayRead())
	require.True(t, f.MayWrite())

	f.WriteFrame(0, 5, h)
	copy(f.Frame(), []byte("hello"))
	f.Flush(h)
	require.False(t, h.InError())

	size, ok := f.KnownSize()
	require.True(t, ok)
	require.EqualValues(t, 5, size)

	f.Close(extfile.CloseKeep, h)
	require.False(t, h.InError())

	f2 := New()
	f2.Open([]byte(path), extfile.Sequential, extfile.StatusOld, nil, extfile.PositionAsIs, h)
	got := f2.ReadFrame(0, 5, h)
	require.EqualValues(t, 5, got)
	require.Equal(t, "hello", string(f2.Frame()))
	f2.Close(extfile.CloseKeep, h)
}

func TestCloseDeleteRemovesFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "scratchy.bin")

	f := New()
	h := ioerr.NewHandler()
	f.Open([]byte(path), extfile.Sequential, extfile.StatusUnknown, nil, extfile.PositionAsIs, h)
	f.Close(extfile.CloseDelete, h)

	_, err := os.Stat(path)
	require.True(t, os.IsNotExist(err))
}

func TestScratchFileRemovedOnClose(t *testing.T) {
	f := New()
	h := ioerr.NewHandler()
	f.Open(nil, extfile.Sequential, extfile.StatusScratch, nil, extfile.PositionAsIs, h)
	require.False(t, h.InError())
	require.True(t, f.IsConnected())

	f.WriteFrame(0, 4, h)
	copy(f.Frame(), []byte("data"))
	f.Flush(h)

	path := f.path
	f.Close(extfile.CloseKeep, h)

	_, err := os.Stat(path)
	require.True(t, os.IsNotExist(err))
}

func TestTruncateFrameShrinksWindow(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "trunc.bin")
	f := New()
	h := ioerr.NewHandler()
	f.Open([]byte(path), extfile.Sequential, extfile.StatusUnknown, nil, extfile.PositionAsIs, h)

	f.WriteFrame(0, 10, h)
	f.TruncateFrame(4, h)
	require.EqualValues(t, 4, f.FrameLength())
}

func TestPredefineBindsFd(t *testing.T) {
	f := New()
	f.Predefine(1)
	require.True(t, f.IsConnected())
	require.True(t, f.MayWrite())
	require.False(t, f.MayPosition())
}
