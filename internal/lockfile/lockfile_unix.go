//go:build !windows

package lockfile

import (
	"os"

	"golang.org/x/sys/unix"
)

// maxEINTRRetries bounds retrying a flock call interrupted by a signal
// (SIGWINCH, SIGCHLD, and similar can interrupt any blocking syscall).
// Hitting this cap would mean thousands of signals arrived during a single
// flock call, which indicates a problem elsewhere in the process.
const maxEINTRRetries = 10000

type unixLock struct {
	fd int
}

func lockPlatform(f *os.File) (Unlocker, error) {
	fd := int(f.Fd())
	if err := flockRetryEINTR(fd, unix.LOCK_EX|unix.LOCK_NB); err != nil {
		return nil, err
	}
	return unixLock{fd: fd}, nil
}

func (l unixLock) Unlock() error {
	return flockRetryEINTR(l.fd, unix.LOCK_UN)
}

// flockRetryEINTR wraps unix.Flock, retrying on EINTR rather than surfacing
// a spurious failure to the caller.
func flockRetryEINTR(fd int, how int) error {
	var err error
	for i := 0; i < maxEINTRRetries; i++ {
		err = unix.Flock(fd, how)
		if err != unix.EINTR {
			return err
		}
	}
	return err
}
