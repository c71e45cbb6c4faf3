// Package keylock serializes critical sections per key.
package keylock

import (
	"context"
	"sync"
	"time"

	dErrors "escrowd/pkg/domain-errors"
)

// Locker runs fn while holding exclusive access to key.
type Locker interface {
	WithLock(ctx context.Context, key string, fn func(ctx context.Context) error) error
}

// numShards bounds memory while keeping contention between unrelated keys low.
const numShards = 128

// DefaultTimeout is the maximum duration of a locked section when the caller
// set no deadline.
const DefaultTimeout = 5 * time.Second

// Sharded distributes keys across a fixed set of mutexes by FNV-1a hash.
// Distinct keys may share a shard; the same key always maps to one shard.
type Sharded struct {
	shards  [numShards]sync.Mutex
	timeout time.Duration
}

// NewSharded creates an in-process locker. A zero timeout uses DefaultTimeout.
func NewSharded(timeout time.Duration) *Sharded {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Sharded{timeout: timeout}
}

func (s *Sharded) WithLock(ctx context.Context, key string, fn func(ctx context.Context) error) error {
	if err := ctx.Err(); err != nil {
		return dErrors.Wrap(err, dErrors.CodeTimeout, "lock aborted: context cancelled")
	}
	if _, hasDeadline := ctx.Deadline(); !hasDeadline {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	shard := &s.shards[hash(key)%numShards]
	shard.Lock()
	defer shard.Unlock()

	// Check again after acquiring lock
	if err := ctx.Err(); err != nil {
		return dErrors.Wrap(err, dErrors.CodeTimeout, "lock aborted: context cancelled")
	}
	return fn(ctx)
}

func hash(s string) uint32 {
	const (
		fnvOffset = 2166136261
		fnvPrime  = 16777619
	)
	h := uint32(fnvOffset)
	for i := 0; i < len(s); i++ {
		h ^= uint32(s[i])
		h *= fnvPrime
	}
	return h
}
