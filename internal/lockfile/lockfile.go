// Package lockfile provides an advisory, exclusive, whole-file lock used to
// enforce the sorter's assumption that it is the only writer touching the
// file pair for the duration of a sort.
//
// The lock is advisory: a process that does not also try to acquire it can
// still read or write the file underneath the sorter. Lock does not wait:
// if another holder has the lock, it returns an error at once. Because
// internal/sortcore logs that error and sorts anyway, the lock does not
// serialize concurrent sorts of the same file either.
package lockfile

import "os"

// Lock attempts to take an exclusive advisory lock on f. The returned
// Unlocker must be released exactly once, typically via defer, regardless
// of how the caller's function returns.
//
// Lock failure is reported but treated as non-fatal by callers (see
// internal/sortcore): advisory locks are best-effort on some filesystems,
// notably network filesystems, and the spec does not make them a hard
// prerequisite for correctness.
func Lock(f *os.File) (Unlocker, error) {
	return lockPlatform(f)
}

// Unlocker releases a lock acquired by Lock.
type Unlocker interface {
	Unlock() error
}
