//go:build unix

package lock

import (
	"errors"
	"os"

	"golang.org/x/sys/unix"
)

const flockSupported = true

// tryLock takes a non-blocking exclusive flock on f. The lock is released
// when f is closed.
func tryLock(f *os.File) (bool, error) {
	for {
		err := unix.Flock(int(f.Fd()), unix.LOCK_EX|unix.LOCK_NB)
		switch {
		case err == nil:
			return true, nil
		case errors.Is(err, unix.EINTR):
			continue
		case errors.Is(err, unix.EWOULDBLOCK):
			return false, nil
		default:
			return false, err
		}
	}
}
