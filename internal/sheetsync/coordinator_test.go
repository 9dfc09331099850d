package sheetsync_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/cory-johannsen/pokesheet/internal/game/sheet"
	"github.com/cory-johannsen/pokesheet/internal/sheetsync"
	"github.com/cory-johannsen/pokesheet/internal/storage/memstore"
)

const debounce = 20 * time.Millisecond

// model stands in for the edited sheet; Snapshot reads its state at call time.
type model struct {
	mu    sync.Mutex
	level int
	empty bool
}

func (m *model) set(level int) {
	m.mu.Lock()
	m.level = level
	m.mu.Unlock()
}

func (m *model) Snapshot() (sheet.Record, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.empty {
		return sheet.Record{}, false
	}
	return sheet.Record{SpeciesID: 1, Level: m.level}, true
}

func newCoordinator(t *testing.T) (*sheetsync.Coordinator, *memstore.Store, *model) {
	t.Helper()
	store := memstore.New()
	m := &model{level: 1}
	c := sheetsync.NewCoordinator(store, m, debounce, zaptest.NewLogger(t))
	t.Cleanup(c.Close)
	return c, store, m
}

func storedLevel(t *testing.T, store *memstore.Store, owner, identity string) int {
	t.Helper()
	rec, found, err := store.LoadSheet(context.Background(), owner, identity)
	require.NoError(t, err)
	if !found {
		return 0
	}
	return rec.Level
}

func TestNewIdentity_UniqueUUIDs(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		id := sheetsync.NewIdentity()
		_, err := uuid.Parse(id)
		require.NoError(t, err)
		require.False(t, seen[id])
		seen[id] = true
	}
}

func TestLoad_MissingIsNotAnError(t *testing.T) {
	c, _, _ := newCoordinator(t)
	_, found, err := c.Load(context.Background(), "ash", "nope")
	require.NoError(t, err)
	assert.False(t, found)
}

func TestSaveLoadDelete(t *testing.T) {
	c, _, _ := newCoordinator(t)
	ctx := context.Background()
	require.NoError(t, c.Save(ctx, "ash", "id-1", sheet.Record{SpeciesID: 25, Level: 7}))
	require.NoError(t, c.Save(ctx, "ash", "id-1", sheet.Record{SpeciesID: 25, Level: 8}))

	rec, found, err := c.Load(ctx, "ash", "id-1")
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, 8, rec.Level)

	_, found, err = c.Load(ctx, "misty", "id-1")
	require.NoError(t, err)
	assert.False(t, found, "records are scoped per owner")

	require.NoError(t, c.Delete(ctx, "ash", "id-1"))
	require.NoError(t, c.Delete(ctx, "ash", "id-1"))
	_, found, err = c.Load(ctx, "ash", "id-1")
	require.NoError(t, err)
	assert.False(t, found)
}

func TestStoreFailures_WrapStorageFailure(t *testing.T) {
	c, store, _ := newCoordinator(t)
	ctx := context.Background()
	boom := errors.New("disk on fire")

	store.FailNext(boom)
	_, _, err := c.Load(ctx, "ash", "id")
	assert.ErrorIs(t, err, sheetsync.ErrStorageFailure)
	assert.ErrorIs(t, err, boom)

	store.FailNext(boom)
	assert.ErrorIs(t, c.Save(ctx, "ash", "id", sheet.Record{}), sheetsync.ErrStorageFailure)

	store.FailNext(boom)
	assert.ErrorIs(t, c.Delete(ctx, "ash", "id"), sheetsync.ErrStorageFailure)
}

func TestCurrentContext_RequiresSetContext(t *testing.T) {
	c, _, _ := newCoordinator(t)
	_, _, err := c.LoadCurrent(context.Background())
	assert.ErrorIs(t, err, sheetsync.ErrNoContext)
	assert.ErrorIs(t, c.SaveCurrent(context.Background()), sheetsync.ErrNoContext)
	_, _, ok := c.Context()
	assert.False(t, ok)

	c.TriggerAutoSave()
	assert.False(t, c.Pending(), "trigger without context is ignored")
}

func TestSaveCurrent_WritesSnapshot(t *testing.T) {
	c, store, m := newCoordinator(t)
	ctx := context.Background()
	require.NoError(t, c.SetContext(ctx, "ash", "id-1"))
	m.set(12)
	require.NoError(t, c.SaveCurrent(ctx))
	assert.Equal(t, 12, storedLevel(t, store, "ash", "id-1"))

	rec, found, err := c.LoadCurrent(ctx)
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, 12, rec.Level)
}

func TestAutoSave_CoalescesToLatestValue(t *testing.T) {
	c, store, m := newCoordinator(t)
	require.NoError(t, c.SetContext(context.Background(), "ash", "id-1"))

	for i := 1; i <= 10; i++ {
		m.set(i)
		c.TriggerAutoSave()
	}
	require.True(t, c.Pending())
	require.Eventually(t, func() bool { return store.Saves() == 1 }, time.Second, 2*time.Millisecond)
	time.Sleep(3 * debounce)
	assert.Equal(t, 1, store.Saves())
	assert.Equal(t, 10, storedLevel(t, store, "ash", "id-1"))
	assert.False(t, c.Pending())
}

func TestAutoSave_ReadsStateAtFireTime(t *testing.T) {
	c, store, m := newCoordinator(t)
	require.NoError(t, c.SetContext(context.Background(), "ash", "id-1"))
	c.TriggerAutoSave()
	m.set(42)
	require.Eventually(t, func() bool { return store.Saves() == 1 }, time.Second, 2*time.Millisecond)
	assert.Equal(t, 42, storedLevel(t, store, "ash", "id-1"))
}

func TestAutoSave_RetriesAfterFailure(t *testing.T) {
	c, store, m := newCoordinator(t)
	var failures atomic.Int32
	c.OnSaveError(func(err error) {
		assert.ErrorIs(t, err, sheetsync.ErrStorageFailure)
		failures.Add(1)
	})
	require.NoError(t, c.SetContext(context.Background(), "ash", "id-1"))

	store.FailNext(errors.New("transient"))
	m.set(5)
	c.TriggerAutoSave()
	require.Eventually(t, func() bool { return store.Saves() == 1 }, time.Second, 2*time.Millisecond)
	assert.Equal(t, int32(1), failures.Load())
	assert.Equal(t, 5, storedLevel(t, store, "ash", "id-1"))
}

func TestAutoSave_NothingToSnapshot(t *testing.T) {
	c, store, m := newCoordinator(t)
	m.empty = true
	require.NoError(t, c.SetContext(context.Background(), "ash", "id-1"))
	c.TriggerAutoSave()
	require.Eventually(t, func() bool { return !c.Pending() }, time.Second, 2*time.Millisecond)
	assert.Equal(t, 0, store.Saves())
}

func TestSetContext_FlushesPreviousContext(t *testing.T) {
	c, store, m := newCoordinator(t)
	ctx := context.Background()
	require.NoError(t, c.SetContext(ctx, "ash", "old"))
	m.set(9)
	c.TriggerAutoSave()

	require.NoError(t, c.SetContext(ctx, "ash", "new"))
	assert.Equal(t, 9, storedLevel(t, store, "ash", "old"))
	assert.False(t, c.Pending())

	owner, identity, ok := c.Context()
	require.True(t, ok)
	assert.Equal(t, "ash", owner)
	assert.Equal(t, "new", identity)

	time.Sleep(3 * debounce)
	assert.Equal(t, 0, storedLevel(t, store, "ash", "new"), "the flushed save is not replayed")
}

func TestSetContext_FlushFailureKeepsContext(t *testing.T) {
	c, store, m := newCoordinator(t)
	ctx := context.Background()
	require.NoError(t, c.SetContext(ctx, "ash", "old"))
	m.set(3)
	c.TriggerAutoSave()

	store.FailNext(errors.New("down"))
	err := c.SetContext(ctx, "ash", "new")
	require.ErrorIs(t, err, sheetsync.ErrStorageFailure)
	_, identity, _ := c.Context()
	assert.Equal(t, "old", identity)
	assert.True(t, c.Pending())

	require.Eventually(t, func() bool { return storedLevel(t, store, "ash", "old") == 3 }, time.Second, 2*time.Millisecond)
}

func TestFlush(t *testing.T) {
	c, store, m := newCoordinator(t)
	ctx := context.Background()
	require.NoError(t, c.Flush(ctx))
	require.NoError(t, c.SetContext(ctx, "ash", "id-1"))
	m.set(4)
	c.TriggerAutoSave()
	require.NoError(t, c.Flush(ctx))
	assert.Equal(t, 1, store.Saves())
	assert.Equal(t, 4, storedLevel(t, store, "ash", "id-1"))
	time.Sleep(3 * debounce)
	assert.Equal(t, 1, store.Saves())
}

func TestForget_CancelsPendingSave(t *testing.T) {
	c, store, _ := newCoordinator(t)
	require.NoError(t, c.SetContext(context.Background(), "ash", "id-1"))
	c.TriggerAutoSave()

	c.Forget("ash", "other")
	assert.True(t, c.Pending())

	c.Forget("ash", "id-1")
	assert.False(t, c.Pending())
	_, _, ok := c.Context()
	assert.False(t, ok)
	time.Sleep(3 * debounce)
	assert.Equal(t, 0, store.Saves())
}

func TestClose_IgnoresLaterTriggers(t *testing.T) {
	c, store, _ := newCoordinator(t)
	require.NoError(t, c.SetContext(context.Background(), "ash", "id-1"))
	c.TriggerAutoSave()
	c.Close()
	c.TriggerAutoSave()
	assert.False(t, c.Pending())
	time.Sleep(3 * debounce)
	assert.Equal(t, 0, store.Saves())
}
