package extfile

import (
	"testing"

	"github.com/MikeHolman/extfile/ioerr"
	"github.com/stretchr/testify/require"
)

func TestOpenUnitFirstConnection(t *testing.T) {
	u := NewUnit(1, newFakeFrame())
	h := ioerr.NewHandler()

	impliedClose := u.OpenUnit(nil, nil, PositionAsIs, []byte("a.dat"), ConvertNative, h)
	require.False(t, impliedClose)
	require.False(t, h.InError())
	require.Equal(t, "a.dat", string(u.Path()))
	require.True(t, u.frame.IsConnected())
}

func TestOpenUnitSamePathIsNoop(t *testing.T) {
	u := NewUnit(1, newFakeFrame())
	h := ioerr.NewHandler()
	u.OpenUnit(nil, nil, PositionAsIs, []byte("a.dat"), ConvertNative, h)

	impliedClose := u.OpenUnit(nil, nil, PositionAsIs, []byte("a.dat"), ConvertNative, h)
	require.False(t, impliedClose)
	require.False(t, h.InError())
}

func TestOpenUnitDifferentPathImpliesClose(t *testing.T) {
	u := NewUnit(1, newFakeFrame())
	h := ioerr.NewHandler()
	u.OpenUnit(nil, nil, PositionAsIs, []byte("a.dat"), ConvertNative, h)

	impliedClose := u.OpenUnit(nil, nil, PositionAsIs, []byte("b.dat"), ConvertNative, h)
	require.True(t, impliedClose)
	require.False(t, h.InError())
	require.Equal(t, "b.dat", string(u.Path()))
}

func TestOpenUnitExplicitStatusOnConnectedSamePathRejected(t *testing.T) {
	u := NewUnit(1, newFakeFrame())
	h := ioerr.NewHandler()
	u.OpenUnit(nil, nil, PositionAsIs, []byte("a.dat"), ConvertNative, h)

	status := StatusNew
	u.OpenUnit(&status, nil, PositionAsIs, []byte("a.dat"), ConvertNative, h)
	require.True(t, h.InError())
}

func TestOpenUnitAppendOnExistingFilePositionsAtEnd(t *testing.T) {
	u := NewUnit(1, newFakeFrame())
	u.frame.(*fakeFrame).file = make([]byte, 100)
	h := ioerr.NewHandler()

	status := StatusOld
	u.OpenUnit(&status, nil, PositionAppend, []byte("existing.dat"), ConvertNative, h)
	require.False(t, h.InError())

	require.EqualValues(t, 100, u.frameOffsetInFile)
	efn, ok := u.endfileRecordNumber.Get()
	require.True(t, ok)
	require.Equal(t, sentinelAppendEndfile, efn)
	require.Equal(t, sentinelAppendEndfile, u.currentRecordNumber)
}

func TestOpenUnitAppendOnEmptyFileSetsSentinelEndfile(t *testing.T) {
	u := NewUnit(1, newFakeFrame())
	h := ioerr.NewHandler()

	u.OpenUnit(nil, nil, PositionAppend, []byte("new.dat"), ConvertNative, h)
	require.False(t, h.InError())

	require.EqualValues(t, 0, u.frameOffsetInFile)
	efn, ok := u.endfileRecordNumber.Get()
	require.True(t, ok)
	require.Equal(t, sentinelAppendEndfile, efn)
}

func TestEndfileDisallowedOnDirect(t *testing.T) {
	u := NewUnit(1, newFakeFrame())
	u.SetAccess(Direct)
	u.SetRecl(8)
	h := ioerr.NewHandler()
	u.OpenUnit(nil, nil, PositionAsIs, []byte("d.dat"), ConvertNative, h)

	u.Endfile(h)
	require.Equal(t, ioerr.EndfileDirect, h.GetIoStat())
}

func TestRewindDisallowedOnDirect(t *testing.T) {
	u := NewUnit(1, newFakeFrame())
	u.SetAccess(Direct)
	h := ioerr.NewHandler()

	u.Rewind(h)
	require.Equal(t, ioerr.RewindNonSequential, h.GetIoStat())
}
