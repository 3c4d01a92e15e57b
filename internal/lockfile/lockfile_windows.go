//go:build windows

package lockfile

import (
	"os"

	"golang.org/x/sys/windows"
)

type windowsLock struct {
	handle windows.Handle
}

func lockPlatform(f *os.File) (Unlocker, error) {
	h := windows.Handle(f.Fd())
	ol := new(windows.Overlapped)
	err := windows.LockFileEx(h, windows.LOCKFILE_EXCLUSIVE_LOCK|windows.LOCKFILE_FAIL_IMMEDIATELY,
		0, 1, 0, ol)
	if err != nil {
		return nil, err
	}
	return windowsLock{handle: h}, nil
}

func (l windowsLock) Unlock() error {
	ol := new(windows.Overlapped)
	return windows.UnlockFileEx(l.handle, 0, 1, 0, ol)
}
