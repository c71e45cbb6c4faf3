package keylock

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dErrors "escrowd/pkg/domain-errors"
)

func TestSharded_SerializesSameKey(t *testing.T) {
	locker := NewSharded(0)
	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		inside  int
		maxSeen int
	)

	for range 50 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := locker.WithLock(context.Background(), "escrow:1", func(context.Context) error {
				mu.Lock()
				inside++
				if inside > maxSeen {
					maxSeen = inside
				}
				mu.Unlock()

				time.Sleep(time.Millisecond)

				mu.Lock()
				inside--
				mu.Unlock()
				return nil
			})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()
	assert.Equal(t, 1, maxSeen)
}

func TestSharded_CancelledContext(t *testing.T) {
	locker := NewSharded(time.Second)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	called := false
	err := locker.WithLock(ctx, "escrow:1", func(context.Context) error {
		called = true
		return nil
	})
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeTimeout))
	assert.False(t, called)
}

func TestSharded_AppliesDefaultDeadline(t *testing.T) {
	locker := NewSharded(time.Minute)
	err := locker.WithLock(context.Background(), "k", func(ctx context.Context) error {
		_, ok := ctx.Deadline()
		assert.True(t, ok)
		return nil
	})
	require.NoError(t, err)
}

func TestSharded_PropagatesError(t *testing.T) {
	locker := NewSharded(0)
	want := dErrors.New(dErrors.CodeInvalidState, "not active")
	err := locker.WithLock(context.Background(), "k", func(context.Context) error { return want })
	assert.ErrorIs(t, err, want)
}
