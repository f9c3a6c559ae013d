package directrecord

import (
	"io"
	"testing"

	"github.com/stretchr/testify/require"
)

type memRWA struct {
	buf []byte
}

func (m *memRWA) ReadAt(dst []byte, off int64) (int, error) {
	if off >= int64(len(m.buf)) {
		return 0, io.EOF
	}
	n := copy(dst, m.buf[off:])
	if n < len(dst) {
		return n, io.EOF
	}
	return n, nil
}

func (m *memRWA) WriteAt(data []byte, off int64) (int, error) {
	end := off + int64(len(data))
	if end > int64(len(m.buf)) {
		grown := make([]byte, end)
		copy(grown, m.buf)
		m.buf = grown
	}
	copy(m.buf[off:], data)
	return len(data), nil
}

func TestRecordReadWriteWithinBounds(t *testing.T) {
	lower := &memRWA{buf: make([]byte, 32)}
	rec := New(lower, 8, 8)

	n, err := rec.WriteAt([]byte("ABCDEFGH"), 0)
	require.NoError(t, err)
	require.Equal(t, 8, n)
	require.Equal(t, []byte("ABCDEFGH"), lower.buf[8:16])

	dst := make([]byte, 8)
	n, err = rec.ReadAt(dst, 0)
	require.NoError(t, err)
	require.Equal(t, 8, n)
	require.Equal(t, "ABCDEFGH", string(dst))
}

func TestRecordWriteTruncatesAtBoundaryAndReportsEOF(t *testing.T) {
	lower := &memRWA{buf: make([]byte, 32)}
	rec := New(lower, 0, 4)

	n, err := rec.WriteAt([]byte("ABCDEFGH"), 0)
	require.Equal(t, io.EOF, err)
	require.Equal(t, 4, n)
	require.Equal(t, []byte("ABCD"), lower.buf[:4])
	require.Equal(t, byte(0), lower.buf[4])
}

func TestRecordReadPastEndOfRecordIsEOF(t *testing.T) {
	lower := &memRWA{buf: make([]byte, 32)}
	for i := range lower.buf {
		lower.buf[i] = 'x'
	}
	rec := New(lower, 0, 4)

	dst := make([]byte, 1)
	_, err := rec.ReadAt(dst, 4)
	require.Equal(t, io.EOF, err)
}

func TestRecordOffsetWriteWithinRecord(t *testing.T) {
	lower := &memRWA{buf: make([]byte, 16)}
	rec := New(lower, 4, 8)

	n, err := rec.WriteAt([]byte("XY"), 2)
	require.NoError(t, err)
	require.Equal(t, 2, n)
	require.Equal(t, []byte("XY"), lower.buf[6:8])
}

func TestSizeReportsFixedLength(t *testing.T) {
	rec := New(&memRWA{}, 0, 128)
	require.EqualValues(t, 128, rec.Size())
}
