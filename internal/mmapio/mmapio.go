// Package mmapio maps arbitrary, non-page-aligned byte ranges of a file
// into memory, hiding the page-alignment arithmetic the OS mmap syscalls
// require.
//
// Every Map call must be paired with exactly one Unmap of the returned
// Mapping, on every exit path of the caller — success or failure. Mappings
// are not safe for concurrent use from multiple goroutines against the same
// file region; the sort core this package serves is single-threaded and
// holds at most two mappings at a time, a source and a destination window
// (see internal/rungen and internal/merge).
package mmapio

import "os"

// Access selects the protection/sharing mode of a mapping.
type Access int

const (
	// ReadOnly maps the range for reads only.
	ReadOnly Access = iota
	// ReadWrite maps the range read/write, shared with the underlying file
	// (writes are visible to other mappings of the same range and are
	// eventually written back by the OS).
	ReadWrite
)

// defaultPageSize is used only if the OS reports a non-positive page size,
// which does not happen on any currently supported platform; it exists
// because the spec calls for the fallback explicitly.
const defaultPageSize = 4096

// Mapping is a page-aligned-under-the-hood view of a byte range of a file.
//
// Bytes addresses exactly the requested [offset, offset+length) range of
// the file; callers read and write through Bytes only. The raw, page-aligned
// bounds needed to release the mapping are kept internally and are not
// exported — release a Mapping with Unmap, never by hand.
type Mapping struct {
	Bytes []byte

	raw rawMapping // platform-specific raw handle, page-aligned bounds
}

// pageSize returns the OS page size, falling back to 4096 if the OS
// reports an invalid value.
func pageSize() int64 {
	if ps := int64(os.Getpagesize()); ps > 0 {
		return ps
	}
	return defaultPageSize
}

// alignDown rounds off down to the nearest multiple of pageSize.
func alignDown(off, pageSize int64) int64 {
	return off &^ (pageSize - 1)
}

// Map maps byteLength bytes of f starting at byteOffset, returning a
// Mapping whose Bytes field addresses exactly that range.
//
// A zero-length request returns the zero Mapping (nil Bytes); Unmap on it
// is a no-op. A failed mapping is always reported as an error — there is no
// partial-progress case to recover from.
func Map(f *os.File, byteOffset, byteLength int64, access Access) (Mapping, error) {
	if byteLength == 0 {
		return Mapping{}, nil
	}
	ps := pageSize()
	alignedOffset := alignDown(byteOffset, ps)
	prefix := byteOffset - alignedOffset
	alignedLen := byteLength + prefix

	raw, err := mapRaw(f, alignedOffset, alignedLen, access)
	if err != nil {
		return Mapping{}, err
	}
	return Mapping{
		Bytes: raw.bytes()[prefix : prefix+byteLength],
		raw:   raw,
	}, nil
}

// Unmap releases a Mapping previously returned by Map. It is a no-op on the
// zero Mapping.
func Unmap(m Mapping) error {
	if m.raw.length() == 0 {
		return nil
	}
	return unmapRaw(m.raw)
}
