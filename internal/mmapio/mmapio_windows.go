//go:build windows

package mmapio

import (
	"os"
	"unsafe"

	"golang.org/x/sys/windows"
)

// rawMapping holds the Windows file-mapping handle and mapped view
// alongside the page-aligned byte slice, since both must be released on
// Unmap (UnmapViewOfFile and CloseHandle).
type rawMapping struct {
	handle windows.Handle
	data   []byte
}

func (r rawMapping) bytes() []byte { return r.data }
func (r rawMapping) length() int   { return len(r.data) }

func mapRaw(f *os.File, alignedOffset, alignedLen int64, access Access) (rawMapping, error) {
	var protect, desiredAccess uint32
	if access == ReadWrite {
		protect = windows.PAGE_READWRITE
		desiredAccess = windows.FILE_MAP_WRITE
	} else {
		protect = windows.PAGE_READONLY
		desiredAccess = windows.FILE_MAP_READ
	}

	fi, err := f.Stat()
	if err != nil {
		return rawMapping{}, err
	}
	mappingSize := alignedOffset + alignedLen
	if s := fi.Size(); s > mappingSize {
		mappingSize = s
	}

	h, err := windows.CreateFileMapping(windows.Handle(f.Fd()), nil, protect,
		uint32(mappingSize>>32), uint32(mappingSize&0xffffffff), nil)
	if err != nil {
		return rawMapping{}, err
	}

	addr, err := windows.MapViewOfFile(h, desiredAccess,
		uint32(alignedOffset>>32), uint32(alignedOffset&0xffffffff), uintptr(alignedLen))
	if err != nil {
		windows.CloseHandle(h)
		return rawMapping{}, err
	}

	data := unsafe.Slice((*byte)(unsafe.Pointer(addr)), int(alignedLen))
	return rawMapping{handle: h, data: data}, nil
}

func unmapRaw(r rawMapping) error {
	var addr uintptr
	if len(r.data) > 0 {
		addr = uintptr(unsafe.Pointer(&r.data[0]))
	}
	err := windows.UnmapViewOfFile(addr)
	closeErr := windows.CloseHandle(r.handle)
	if err != nil {
		return err
	}
	return closeErr
}
