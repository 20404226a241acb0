// Package flock provides advisory file locking for cross-process
// coordination on a collection's storage directory.
//
// Locks are advisory: every vecmem process must go through this package for
// the exclusive-writer discipline to hold. Acquisition blocks by default; a
// bounded wait can be requested, surfacing ErrTimeout on expiry.
package flock

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"golang.org/x/sys/unix"
	"golang.org/x/time/rate"
)

// ErrTimeout indicates that a bounded wait for a lock expired.
var ErrTimeout = errors.New("lock acquisition timed out")

// retryInterval paces non-blocking acquisition attempts during a bounded wait.
const retryInterval = 10 * time.Millisecond

// Mode selects between shared (reader) and exclusive (writer) locking.
type Mode int

const (
	// ModeShared allows concurrent readers.
	ModeShared Mode = iota
	// ModeExclusive allows a single writer.
	ModeExclusive
)

func (m Mode) String() string {
	if m == ModeExclusive {
		return "exclusive"
	}
	return "shared"
}

// Lock holds an advisory lock on a file.
type Lock struct {
	f    *os.File
	path string
	mode Mode
}

// Acquire opens (creating if needed) the lock file at path and acquires it
// in the given mode.
//
// With timeout <= 0 the call blocks until the lock is granted. With a
// positive timeout, acquisition is retried at a fixed pace until the
// deadline, then fails with ErrTimeout.
func Acquire(ctx context.Context, path string, mode Mode, timeout time.Duration) (*Lock, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_RDWR, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open lock file: %w", err)
	}

	how := unix.LOCK_SH
	if mode == ModeExclusive {
		how = unix.LOCK_EX
	}

	if timeout <= 0 {
		if err := flockBlocking(ctx, f, how); err != nil {
			_ = f.Close()
			return nil, err
		}
		return &Lock{f: f, path: path, mode: mode}, nil
	}

	deadline := time.Now().Add(timeout)
	limiter := rate.NewLimiter(rate.Every(retryInterval), 1)
	for {
		err := unix.Flock(int(f.Fd()), how|unix.LOCK_NB)
		if err == nil {
			return &Lock{f: f, path: path, mode: mode}, nil
		}
		if !errors.Is(err, unix.EWOULDBLOCK) {
			_ = f.Close()
			return nil, fmt.Errorf("flock %s: %w", path, err)
		}
		if time.Now().After(deadline) {
			_ = f.Close()
			return nil, fmt.Errorf("%w: %s (%s)", ErrTimeout, path, mode)
		}
		if err := limiter.Wait(ctx); err != nil {
			_ = f.Close()
			return nil, err
		}
	}
}

// flockBlocking performs a blocking flock, retrying on EINTR and honoring
// context cancellation between attempts.
func flockBlocking(ctx context.Context, f *os.File, how int) error {
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		err := unix.Flock(int(f.Fd()), how)
		if err == nil {
			return nil
		}
		if !errors.Is(err, unix.EINTR) {
			return fmt.Errorf("flock %s: %w", f.Name(), err)
		}
	}
}

// Path returns the lock file path.
func (l *Lock) Path() string { return l.path }

// Mode returns the mode the lock was acquired in.
func (l *Lock) Mode() Mode { return l.mode }

// Release drops the lock and closes the underlying file.
func (l *Lock) Release() error {
	if l.f == nil {
		return nil
	}
	err := unix.Flock(int(l.f.Fd()), unix.LOCK_UN)
	if cerr := l.f.Close(); err == nil {
		err = cerr
	}
	l.f = nil
	return err
}
