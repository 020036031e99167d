package depot

import (
	"github.com/pkg/errors"
	"github.com/theckman/go-flock"
)

// EnvLock is the per-environment exclusive file lock every mutating
// environment op acquires before computing a new (Project, Manifest)
// pair (spec.md §4.4 step (a)).
type EnvLock struct {
	fl *flock.Flock
}

// LockEnvironment acquires an exclusive lock on a sidecar ".lock" file
// next to the environment's manifest path, blocking until it's available.
func LockEnvironment(manifestPath string) (*EnvLock, error) {
	fl := flock.NewFlock(manifestPath + ".lock")
	if err := fl.Lock(); err != nil {
		return nil, errors.Wrapf(err, "locking environment %s", manifestPath)
	}
	return &EnvLock{fl: fl}, nil
}

// Unlock releases the lock.
func (l *EnvLock) Unlock() error {
	return errors.Wrap(l.fl.Unlock(), "unlocking environment")
}
