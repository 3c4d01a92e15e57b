// Package record defines the fixed-width on-disk record format shared by
// every sort component: one 64-bit signed integer, native byte order.
//
// The format is not portable across hosts of differing endianness — a file
// written on a little-endian host and sorted on a big-endian host will not
// compare correctly. This mirrors the upstream behavior this package
// replaces and is a deliberate, documented limitation, not an oversight.
package record

import (
	"fmt"
	"unsafe"
)

// Size is the on-disk width of a single record, in bytes.
const Size = 8

// Run describes a contiguous, non-decreasing subrange of a file by record
// offset and length. Runs always partition [0, total) for the file they
// describe: no gaps, no overlaps.
type Run struct {
	Offset int64 // first record index covered by the run
	Length int64 // number of records in the run
}

// End returns the exclusive record index one past the run.
func (r Run) End() int64 { return r.Offset + r.Length }

// ByteOffset returns the byte offset of record index n.
func ByteOffset(n int64) int64 { return n * Size }

// TotalRecords returns the record count of a file of the given byte size.
// The caller must have already validated that fileSize is a multiple of
// Size; TotalRecords itself does not re-check.
func TotalRecords(fileSize int64) int64 { return fileSize / Size }

// CheckAligned reports an error if fileSize is not a whole number of
// records.
func CheckAligned(fileSize int64) error {
	if fileSize%Size != 0 {
		return fmt.Errorf("file size %d is not a multiple of %d bytes", fileSize, Size)
	}
	return nil
}

// AsInt64s reinterprets a byte slice as a slice of native-endian int64
// records, with no copy and no endianness conversion. The caller must
// ensure len(b) is a multiple of Size and that b outlives the returned
// slice (it is typically backed by a memory mapping).
func AsInt64s(b []byte) []int64 {
	if len(b) == 0 {
		return nil
	}
	if len(b)%Size != 0 {
		panic(fmt.Sprintf("record: byte slice length %d is not a multiple of %d", len(b), Size))
	}
	return unsafe.Slice((*int64)(unsafe.Pointer(&b[0])), len(b)/Size)
}
