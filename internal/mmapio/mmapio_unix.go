//go:build !windows

package mmapio

import (
	"os"

	"golang.org/x/sys/unix"
)

// rawMapping is the page-aligned region returned by the OS mmap syscall,
// before the caller's unaligned offset is sliced back out of it.
type rawMapping struct {
	data []byte
}

func (r rawMapping) bytes() []byte { return r.data }
func (r rawMapping) length() int   { return len(r.data) }

func mapRaw(f *os.File, alignedOffset, alignedLen int64, access Access) (rawMapping, error) {
	prot := unix.PROT_READ
	if access == ReadWrite {
		prot |= unix.PROT_WRITE
	}
	data, err := unix.Mmap(int(f.Fd()), alignedOffset, int(alignedLen), prot, unix.MAP_SHARED)
	if err != nil {
		return rawMapping{}, err
	}
	return rawMapping{data: data}, nil
}

func unmapRaw(r rawMapping) error {
	return unix.Munmap(r.data)
}
