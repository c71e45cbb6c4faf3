package memory

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	audit "escrowd/pkg/platform/audit"
)

func TestInMemoryStore(t *testing.T) {
	ctx := context.Background()
	store := NewInMemoryStore()
	base := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

	require.NoError(t, store.Append(ctx, audit.Event{Subject: "1", Action: string(audit.EventEscrowCreated), Timestamp: base}))
	require.NoError(t, store.Append(ctx, audit.Event{Subject: "2", Action: string(audit.EventComplianceChecked), Timestamp: base.Add(time.Minute)}))
	require.NoError(t, store.Append(ctx, audit.Event{Subject: "1", Action: string(audit.EventEscrowReleased), Timestamp: base.Add(2 * time.Minute)}))

	t.Run("lists by subject in append order", func(t *testing.T) {
		events, err := store.ListBySubject(ctx, "1")
		require.NoError(t, err)
		require.Len(t, events, 2)
		assert.Equal(t, string(audit.EventEscrowCreated), events[0].Action)
		assert.Equal(t, audit.CategoryCompliance, events[0].Category)
	})

	t.Run("derives category from action", func(t *testing.T) {
		events, err := store.ListBySubject(ctx, "2")
		require.NoError(t, err)
		require.Len(t, events, 1)
		assert.Equal(t, audit.CategoryOperations, events[0].Category)
	})

	t.Run("recent is newest first and limited", func(t *testing.T) {
		events, err := store.ListRecent(ctx, 2)
		require.NoError(t, err)
		require.Len(t, events, 2)
		assert.Equal(t, string(audit.EventEscrowReleased), events[0].Action)
	})

	t.Run("clear empties the store", func(t *testing.T) {
		store.Clear()
		events, err := store.ListRecent(ctx, 10)
		require.NoError(t, err)
		assert.Empty(t, events)
	})
}
