//go:build unix

package coldstate

import (
	"fmt"
	"os"

	"golang.org/x/sys/unix"
)

// FileLock holds an exclusive, advisory flock on a sentinel file inside
// the database directory, giving Open its AlreadyOpen semantics: a
// second process (or a second handle in this process) opening the same
// directory fails fast instead of silently racing the first on the log
// file, per spec §6.
type FileLock struct {
	f *os.File
}

// AcquireFileLock creates (if needed) and locks path. It returns
// ErrAlreadyOpen if another holder already has the lock.
func AcquireFileLock(path string) (*FileLock, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_RDWR, 0o644)
	if err != nil {
		return nil, err
	}

	if err := unix.Flock(int(f.Fd()), unix.LOCK_EX|unix.LOCK_NB); err != nil {
		f.Close()
		if err == unix.EWOULDBLOCK {
			return nil, ErrAlreadyOpen
		}
		return nil, fmt.Errorf("coldstate: flock %s: %w", path, err)
	}

	return &FileLock{f: f}, nil
}

// Release unlocks and closes the sentinel file.
func (l *FileLock) Release() error {
	if err := unix.Flock(int(l.f.Fd()), unix.LOCK_UN); err != nil {
		l.f.Close()
		return err
	}
	return l.f.Close()
}
