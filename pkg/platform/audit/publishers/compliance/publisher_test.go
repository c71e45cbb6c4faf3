package compliance

import (
	"context"
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	audit "escrowd/pkg/platform/audit"
	"escrowd/pkg/platform/audit/store/memory"
)

type failingStore struct{}

func (failingStore) Append(context.Context, audit.Event) error {
	return errors.New("disk full")
}

func (failingStore) ListBySubject(context.Context, string) ([]audit.Event, error) {
	return nil, nil
}

func TestPublisher_Emit(t *testing.T) {
	ctx := context.Background()

	t.Run("persists event with timestamp", func(t *testing.T) {
		store := memory.NewInMemoryStore()
		metrics := NewMetrics(prometheus.NewRegistry())
		pub := New(store, WithMetrics(metrics))

		err := pub.Emit(ctx, audit.ComplianceEvent{
			Subject:  "7",
			Action:   audit.EventEscrowReleased,
			Decision: "allow",
			ActorID:  "0xabc",
		})
		require.NoError(t, err)

		events, err := store.ListBySubject(ctx, "7")
		require.NoError(t, err)
		require.Len(t, events, 1)
		assert.Equal(t, audit.CategoryCompliance, events[0].Category)
		assert.False(t, events[0].Timestamp.IsZero())
		assert.Equal(t, float64(1), testutil.ToFloat64(metrics.EventsEmitted))
	})

	t.Run("fails closed when store errors", func(t *testing.T) {
		metrics := NewMetrics(prometheus.NewRegistry())
		pub := New(failingStore{}, WithMetrics(metrics))

		err := pub.Emit(ctx, audit.ComplianceEvent{Subject: "7", Action: audit.EventEscrowRefunded})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "disk full")
		assert.Equal(t, float64(1), testutil.ToFloat64(metrics.PersistFailures))
	})

	t.Run("rejects events without subject or action", func(t *testing.T) {
		pub := New(memory.NewInMemoryStore())
		assert.Error(t, pub.Emit(ctx, audit.ComplianceEvent{Action: audit.EventEscrowCreated}))
		assert.Error(t, pub.Emit(ctx, audit.ComplianceEvent{Subject: "1"}))
	})

	t.Run("rejects operational events", func(t *testing.T) {
		store := memory.NewInMemoryStore()
		pub := New(store)
		err := pub.Emit(ctx, audit.ComplianceEvent{Subject: "1", Action: audit.EventComplianceChecked})
		assert.ErrorContains(t, err, "not a compliance event")

		events, err := store.ListBySubject(ctx, "1")
		require.NoError(t, err)
		assert.Empty(t, events)
	})
}
