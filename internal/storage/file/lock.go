// Cross-process locking for read-modify-write cycles.
//
// Each key has a sidecar ".lock" file. Update takes an exclusive flock on it
// for the whole cycle, so two processes appending to the same catalog file
// are serialised. The in-process mutex covers platforms without flock.
package file

import "os"

type fileLock struct {
	f *os.File
}

func acquire(f *os.File) (*fileLock, error) {
	l := &fileLock{f: f}
	if err := l.lock(); err != nil {
		return nil, err
	}
	return l, nil
}

// release unlocks and closes the lock handle.
func (l *fileLock) release() error {
	uerr := l.unlock()
	cerr := l.f.Close()
	if uerr != nil {
		return uerr
	}
	return cerr
}
