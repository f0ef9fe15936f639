// Package lock keeps sync cycles from overlapping.
package lock

import (
	"context"
	"errors"
	"sync"
)

// Lock errors.
var (
	ErrLocked     = errors.New("cycle is locked")
	ErrLockLost   = errors.New("lock lost")
	ErrInvalidTTL = errors.New("invalid lock ttl: must be positive")
)

// Locker - non-blocking cycle lock.
type Locker interface {
	// Acquire returns ErrLocked when the lock is held elsewhere.
	// held is canceled with ErrLockLost as the cause once the lock can no longer be kept.
	Acquire(ctx context.Context) (held context.Context, release func(), err error)
}

// Local - in-process lock.
type Local struct {
	mu sync.Mutex
}

// NewLocal - in-process lock.
func NewLocal() *Local {
	return &Local{}
}

func (l *Local) Acquire(ctx context.Context) (context.Context, func(), error) {
	if err := ctx.Err(); err != nil {
		return nil, nil, err
	}

	if !l.mu.TryLock() {
		return nil, nil, ErrLocked
	}

	var once sync.Once

	return ctx, func() { once.Do(l.mu.Unlock) }, nil
}
