package clickhouse

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"securemint-lab/internal/domain"
	"securemint-lab/internal/storage"
)

func testEvents() []domain.SimulationEvent {
	ts := time.Date(2024, 1, 1, 1, 0, 0, 0, time.UTC)
	inv := domain.InvariantStatus{
		SupplyBacked: true, NoMintWhilePaused: true,
		NoMintWithStaleOracle: true, EpochMintWithinCap: true, AllPassed: true,
	}
	return []domain.SimulationEvent{
		domain.NewEvent(ts, domain.MintDetails{Amount: 1000, BackingRatio: 1.05}, inv),
		domain.NewEvent(ts.Add(time.Hour), domain.BurnDetails{Amount: 500, Rate: 0.01, BackingRatio: 1.06}, inv),
		domain.NewEvent(ts.Add(2*time.Hour), domain.MintDetails{Amount: 2000, BackingRatio: 1.04}, inv),
		domain.NewEvent(ts.Add(2*time.Hour), domain.InvariantCheckDetails{Status: inv}, inv),
	}
}

func TestEventStore_InsertBulkAndGetByRunID(t *testing.T) {
	conn, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewEventStore(conn)
	ctx := context.Background()

	events := testEvents()
	require.NoError(t, store.InsertBulk(ctx, "run-ch-1", events))

	got, err := store.GetByRunID(ctx, "run-ch-1")
	require.NoError(t, err)
	require.Len(t, got, len(events))

	for i := range events {
		assert.Equal(t, events[i].Kind, got[i].Kind, "kind at %d", i)
		assert.Equal(t, events[i].Details, got[i].Details, "details at %d", i)
		assert.Equal(t, events[i].Invariants, got[i].Invariants, "invariants at %d", i)
		assert.True(t, events[i].Timestamp.Equal(got[i].Timestamp), "timestamp at %d", i)
	}
}

func TestEventStore_SecondLogRejected(t *testing.T) {
	conn, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewEventStore(conn)
	ctx := context.Background()

	require.NoError(t, store.InsertBulk(ctx, "run-ch-1", testEvents()))

	err := store.InsertBulk(ctx, "run-ch-1", testEvents())
	assert.ErrorIs(t, err, storage.ErrDuplicateKey)
}

func TestEventStore_GetByKind(t *testing.T) {
	conn, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewEventStore(conn)
	ctx := context.Background()
	require.NoError(t, store.InsertBulk(ctx, "run-ch-1", testEvents()))

	mints, err := store.GetByKind(ctx, "run-ch-1", domain.EventMint)
	require.NoError(t, err)
	require.Len(t, mints, 2)

	first := mints[0].Details.(domain.MintDetails)
	second := mints[1].Details.(domain.MintDetails)
	assert.Equal(t, 1000.0, first.Amount)
	assert.Equal(t, 2000.0, second.Amount)
}

func TestEventStore_UnknownRunIsEmpty(t *testing.T) {
	conn, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewEventStore(conn)
	got, err := store.GetByRunID(context.Background(), "missing")
	require.NoError(t, err)
	assert.Empty(t, got)
}
