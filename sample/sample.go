// Package sample converts float32 sample blocks to and from the raw byte
// layout audio sinks consume: native-endian IEEE 754 float32, one after the
// other.
//
// This is the only place in the module that reinterprets memory. The
// conversion copies the in-memory image of the samples; values are never
// converted, clamped or rounded.
package sample

import (
	"encoding/binary"
	"fmt"
	"unsafe"
)

// Float32Size is the byte width of one encoded sample.
const Float32Size = 4

func init() {
	if unsafe.Sizeof(float32(0)) != Float32Size {
		panic("sample: float32 is not 4 bytes wide")
	}
}

// BlockSize returns the encoded size in bytes of n samples.
func BlockSize(n int) int {
	return n * Float32Size
}

// NativeLittleEndian reports whether the encoded layout is little-endian.
func NativeLittleEndian() bool {
	var b [2]byte
	binary.NativeEndian.PutUint16(b[:], 1)
	return b[0] == 1
}

// bytesOf returns the memory of s as bytes.
func bytesOf(s []float32) []byte {
	return unsafe.Slice((*byte)(unsafe.Pointer(unsafe.SliceData(s))), len(s)*Float32Size)
}

// Encode copies the byte image of src into dst and returns
// dst[:len(src)*Float32Size].
//
// dst shorter than that is a programming error and panics.
func Encode(src []float32, dst []byte) []byte {
	n := BlockSize(len(src))
	if len(dst) < n {
		panic(fmt.Sprintf("sample: encode destination holds %d bytes, %d samples need %d", len(dst), len(src), n))
	}
	copy(dst, bytesOf(src))
	return dst[:n]
}

// Decode is the inverse of Encode: it copies whole samples from src into dst
// and returns dst[:len(src)/Float32Size].
//
// src must hold a whole number of samples and dst must have room for them;
// anything else panics.
func Decode(src []byte, dst []float32) []float32 {
	if len(src)%Float32Size != 0 {
		panic(fmt.Sprintf("sample: decode source of %d bytes is not a whole number of samples", len(src)))
	}
	n := len(src) / Float32Size
	if len(dst) < n {
		panic(fmt.Sprintf("sample: decode destination holds %d samples, need %d", len(dst), n))
	}
	copy(bytesOf(dst[:n]), src)
	return dst[:n]
}
