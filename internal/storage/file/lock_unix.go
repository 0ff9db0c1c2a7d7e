//go:build unix

package file

import "syscall"

func (l *fileLock) lock() error {
	// Blocking exclusive lock; no LOCK_NB.
	return syscall.Flock(int(l.f.Fd()), syscall.LOCK_EX)
}

func (l *fileLock) unlock() error {
	return syscall.Flock(int(l.f.Fd()), syscall.LOCK_UN)
}
