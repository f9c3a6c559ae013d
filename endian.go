package extfile

import "encoding/binary"

// hostLittleEndian reports whether the host is little-endian, used to
// decide whether an explicit ConvertLittleEndian or ConvertBigEndian
// request needs a byte swap.
var hostLittleEndian = binary.NativeEndian.Uint16([]byte{1, 0}) == 1

// swapEndianness reverses the bytes within each successive
// elementBytes-sized element of data, up to bytes total. It is a
// no-op when elementBytes <= 1. bytes need not be a multiple of
// elementBytes; any trailing partial element is left untouched.
func swapEndianness(data []byte, bytes int, elementBytes int) {
	if elementBytes <= 1 {
		return
	}
	half := elementBytes / 2
	for j := 0; j+elementBytes <= bytes; j += elementBytes {
		for k := 0; k < half; k++ {
			data[j+k], data[j+elementBytes-1-k] = data[j+elementBytes-1-k], data[j+k]
		}
	}
}

// resolveSwapEndianness computes whether Emit/Receive must byte-swap,
// from an OPEN-time CONVERT= request and the host's native endianness.
func resolveSwapEndianness(convert Convert) bool {
	switch convert {
	case ConvertSwap:
		return true
	case ConvertLittleEndian:
		return !hostLittleEndian
	case ConvertBigEndian:
		return hostLittleEndian
	default:
		return false
	}
}
