package sync

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rotacerta/rota-certa/internal/localstore"
	"github.com/rotacerta/rota-certa/internal/models"
)

// fakeRemote is an in-memory stand-in for the cloud document database.
type fakeRemote struct {
	docs    map[localstore.Entity]map[string]json.RawMessage
	nextID  int
	failing bool
	pushes  int
}

func newFakeRemote() *fakeRemote {
	return &fakeRemote{docs: make(map[localstore.Entity]map[string]json.RawMessage)}
}

func (f *fakeRemote) Push(_ context.Context, entity localstore.Entity, rec localstore.Record) (string, error) {
	f.pushes++
	if f.failing {
		return "", errors.New("network unreachable")
	}
	if f.docs[entity] == nil {
		f.docs[entity] = make(map[string]json.RawMessage)
	}
	if rec.Deleted {
		delete(f.docs[entity], rec.RemoteID)
		return rec.RemoteID, nil
	}
	id := rec.RemoteID
	if id == "" {
		f.nextID++
		id = fmt.Sprintf("srv-%d", f.nextID)
	}
	f.docs[entity][id] = rec.Payload
	return id, nil
}

func (f *fakeRemote) Pull(_ context.Context, entity localstore.Entity) ([]localstore.Record, error) {
	if f.failing {
		return nil, errors.New("network unreachable")
	}
	var out []localstore.Record
	for id, payload := range f.docs[entity] {
		out = append(out, localstore.Record{RemoteID: id, Payload: payload})
	}
	return out, nil
}

func newTestDriver(t *testing.T) (*Driver, *localstore.Store, *fakeRemote) {
	t.Helper()
	store, err := localstore.Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	fake := newFakeRemote()
	return NewDriver(store, fake, DefaultConfig(), nil), store, fake
}

func mustAdd(t *testing.T, store *localstore.Store, entity localstore.Entity, localID string, fields map[string]any) {
	t.Helper()
	b, err := json.Marshal(fields)
	require.NoError(t, err)
	require.NoError(t, store.Add(context.Background(), entity, localstore.Record{LocalID: localID, Payload: b}))
}

func TestFlushOnce_PushesPendingAndAttachesServerIDs(t *testing.T) {
	driver, store, fake := newTestDriver(t)
	ctx := context.Background()

	mustAdd(t, store, localstore.EntityTrips, "t-1", map[string]any{"name": "Rota Sul"})
	mustAdd(t, store, localstore.EntityVisits, "vi-1", map[string]any{"tripId": "t-1"})

	require.NoError(t, driver.FlushOnce(ctx))

	trip, err := store.Get(ctx, localstore.EntityTrips, "t-1")
	require.NoError(t, err)
	assert.Equal(t, models.SyncSynced, trip.Status)
	assert.NotEmpty(t, trip.RemoteID)

	visit, err := store.Get(ctx, localstore.EntityVisits, "vi-1")
	require.NoError(t, err)
	assert.Equal(t, models.SyncSynced, visit.Status)

	assert.Len(t, fake.docs[localstore.EntityTrips], 1)
	assert.Len(t, fake.docs[localstore.EntityVisits], 1)
}

func TestFlushOnce_FailureMarksErrorAndRetrySucceeds(t *testing.T) {
	driver, store, fake := newTestDriver(t)
	ctx := context.Background()

	mustAdd(t, store, localstore.EntityTrips, "t-1", map[string]any{"name": "Rota Sul"})

	fake.failing = true
	err := driver.FlushOnce(ctx)
	require.Error(t, err)

	rec, err := store.Get(ctx, localstore.EntityTrips, "t-1")
	require.NoError(t, err)
	assert.Equal(t, models.SyncError, rec.Status)
	assert.Empty(t, rec.RemoteID)

	// Error records stay in the pending queue and succeed on retry.
	fake.failing = false
	require.NoError(t, driver.FlushOnce(ctx))
	rec, err = store.Get(ctx, localstore.EntityTrips, "t-1")
	require.NoError(t, err)
	assert.Equal(t, models.SyncSynced, rec.Status)
	assert.NotEmpty(t, rec.RemoteID)
}

func TestFlushOnce_DeletePropagatesAndPurges(t *testing.T) {
	driver, store, fake := newTestDriver(t)
	ctx := context.Background()

	mustAdd(t, store, localstore.EntityExpenses, "e-1", map[string]any{"tripId": "t-1"})
	require.NoError(t, driver.FlushOnce(ctx))
	require.Len(t, fake.docs[localstore.EntityExpenses], 1)

	require.NoError(t, store.MarkForDeletion(ctx, localstore.EntityExpenses, "e-1"))
	require.NoError(t, driver.FlushOnce(ctx))

	assert.Empty(t, fake.docs[localstore.EntityExpenses], "remote document removed")
	_, err := store.Get(ctx, localstore.EntityExpenses, "e-1")
	assert.ErrorIs(t, err, localstore.ErrNotFound, "tombstone purged after confirmation")
}

func TestFlushOnce_NeverSyncedDeleteIsNoOpSuccess(t *testing.T) {
	driver, store, fake := newTestDriver(t)
	ctx := context.Background()

	mustAdd(t, store, localstore.EntityExpenses, "e-1", map[string]any{"tripId": "t-1"})
	require.NoError(t, store.MarkForDeletion(ctx, localstore.EntityExpenses, "e-1"))
	require.NoError(t, driver.FlushOnce(ctx))

	assert.Empty(t, fake.docs[localstore.EntityExpenses])
	_, err := store.Get(ctx, localstore.EntityExpenses, "e-1")
	assert.ErrorIs(t, err, localstore.ErrNotFound)
}

func TestPullAll_HydratesWithoutClobberingLocalEdits(t *testing.T) {
	driver, store, fake := newTestDriver(t)
	ctx := context.Background()

	fake.docs[localstore.EntityVehicles] = map[string]json.RawMessage{
		"srv-1": json.RawMessage(`{"model":"Fiorino","licensePlate":"ABC1D23"}`),
		"srv-2": json.RawMessage(`{"model":"Kangoo","licensePlate":"XYZ9K88"}`),
	}
	require.NoError(t, driver.PullAll(ctx))

	vehicles, err := store.GetAll(ctx, localstore.EntityVehicles)
	require.NoError(t, err)
	require.Len(t, vehicles, 2)
	for _, rec := range vehicles {
		assert.Equal(t, models.SyncSynced, rec.Status)
		assert.NotEmpty(t, rec.LocalID)
	}

	// A local pending edit must survive a subsequent pull.
	target, err := store.GetByRemoteID(ctx, localstore.EntityVehicles, "srv-1")
	require.NoError(t, err)
	require.NoError(t, store.Update(ctx, localstore.EntityVehicles, target.LocalID,
		[]byte(`{"model":"Fiorino Furgão","licensePlate":"ABC1D23"}`)))
	require.NoError(t, driver.PullAll(ctx))

	after, err := store.Get(ctx, localstore.EntityVehicles, target.LocalID)
	require.NoError(t, err)
	assert.Equal(t, models.SyncPending, after.Status)
	assert.Contains(t, string(after.Payload), "Furgão")
}

func TestNudge_DoesNotBlock(t *testing.T) {
	driver, _, _ := newTestDriver(t)
	driver.Nudge()
	driver.Nudge()
	driver.Nudge()
}
