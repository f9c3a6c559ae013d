package extfile

import (
	"testing"

	"github.com/MikeHolman/extfile/ioerr"
	"github.com/stretchr/testify/require"
)

func TestSetStreamPosRepositionsAndForgetsRecordNumber(t *testing.T) {
	u := newTestUnit(Stream, true)
	h := ioerr.NewHandler()

	require.True(t, u.SetStreamPos(5, h))
	require.False(t, h.InError())
	require.EqualValues(t, 4, u.frameOffsetInFile)
	require.Equal(t, sentinelStreamPos, u.currentRecordNumber)
	require.False(t, u.endfileRecordNumber.IsKnown())
}

func TestSetStreamPosRejectsNonStream(t *testing.T) {
	u := newTestUnit(Sequential, true)
	h := ioerr.NewHandler()

	require.False(t, u.SetStreamPos(1, h))
	require.True(t, h.InError())
}

func TestSetStreamPosRejectsZero(t *testing.T) {
	u := newTestUnit(Stream, true)
	h := ioerr.NewHandler()

	require.False(t, u.SetStreamPos(0, h))
	require.True(t, h.InError())
}

func TestSetDirectRecRequiresRecl(t *testing.T) {
	u := newTestUnit(Direct, true)
	h := ioerr.NewHandler()

	require.False(t, u.SetDirectRec(1, h))
	require.Equal(t, ioerr.OpenBadRecl, h.GetIoStat())
}

func TestSetDirectRecComputesOffset(t *testing.T) {
	u := newTestUnit(Direct, true)
	u.SetRecl(16)
	h := ioerr.NewHandler()

	require.True(t, u.SetDirectRec(3, h))
	require.False(t, h.InError())
	require.EqualValues(t, 32, u.frameOffsetInFile)
	require.EqualValues(t, 3, u.currentRecordNumber)
	require.True(t, u.directAccessRecWasSet)
}
