package persistence

import "os"

// FileLock is an exclusive advisory lock held on "<path>.lock".
//
// It serializes rebuilders of the same artifact across processes. Readers
// never take it: they rely on the atomic rename in SaveToFile.
type FileLock struct {
	f *os.File
}

// Lock blocks until the exclusive lock for path is acquired.
func Lock(path string) (*FileLock, error) {
	f, err := os.OpenFile(path+".lock", os.O_CREATE|os.O_RDWR, 0o644)
	if err != nil {
		return nil, err
	}
	if err := lockFile(f); err != nil {
		_ = f.Close()
		return nil, err
	}
	return &FileLock{f: f}, nil
}

// Unlock releases the lock. It is safe to call on a nil lock.
func (l *FileLock) Unlock() error {
	if l == nil || l.f == nil {
		return nil
	}
	err := unlockFile(l.f)
	if cerr := l.f.Close(); err == nil {
		err = cerr
	}
	l.f = nil
	return err
}
