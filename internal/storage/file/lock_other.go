//go:build !unix

package file

// Without flock only the in-process mutex in Store guards updates.

func (l *fileLock) lock() error   { return nil }
func (l *fileLock) unlock() error { return nil }
