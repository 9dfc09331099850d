package memstore_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cory-johannsen/pokesheet/internal/game/sheet"
	"github.com/cory-johannsen/pokesheet/internal/roster"
	"github.com/cory-johannsen/pokesheet/internal/sheetsync"
	"github.com/cory-johannsen/pokesheet/internal/storage/memstore"
)

var (
	_ sheetsync.Store = (*memstore.Store)(nil)
	_ roster.Store    = (*memstore.Store)(nil)
)

func TestSheets_RoundTripReturnsFreshCopies(t *testing.T) {
	s := memstore.New()
	ctx := context.Background()
	rec := sheet.Record{SpeciesID: 1, Level: 5, StatusEffects: []string{"burned"}}
	require.NoError(t, s.SaveSheet(ctx, "ash", "id-1", rec))

	got, found, err := s.LoadSheet(ctx, "ash", "id-1")
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, 5, got.Level)
	got.StatusEffects[0] = "changed"

	again, _, err := s.LoadSheet(ctx, "ash", "id-1")
	require.NoError(t, err)
	assert.Equal(t, []string{"burned"}, again.StatusEffects)
	assert.Equal(t, 1, s.Saves())
	assert.Equal(t, 1, s.Sheets())
}

func TestSheets_OwnersAreIsolated(t *testing.T) {
	s := memstore.New()
	ctx := context.Background()
	require.NoError(t, s.SaveSheet(ctx, "ash", "id-1", sheet.Record{SpeciesID: 1}))
	_, found, err := s.LoadSheet(ctx, "misty", "id-1")
	require.NoError(t, err)
	assert.False(t, found)
}

func TestDeleteMissingIsNotAnError(t *testing.T) {
	s := memstore.New()
	assert.NoError(t, s.DeleteSheet(context.Background(), "ash", "nope"))
	assert.NoError(t, s.ClearSlot(context.Background(), "ash", 3))
}

func TestFailNext_QueuesInOrder(t *testing.T) {
	s := memstore.New()
	ctx := context.Background()
	first, second := errors.New("first"), errors.New("second")
	s.FailNext(first)
	s.FailNext(second)
	assert.ErrorIs(t, s.SaveSheet(ctx, "ash", "id", sheet.Record{}), first)
	_, _, err := s.LoadSheet(ctx, "ash", "id")
	assert.ErrorIs(t, err, second)
	assert.NoError(t, s.SaveSheet(ctx, "ash", "id", sheet.Record{}))
	assert.Equal(t, 1, s.Saves())
}

func TestSwapSlots_MovesMissingAsEmpty(t *testing.T) {
	s := memstore.New()
	ctx := context.Background()
	require.NoError(t, s.PutSlot(ctx, roster.Slot{Owner: "ash", Position: 0, Identity: "a", SpeciesID: 1}))
	require.NoError(t, s.SwapSlots(ctx, "ash", 0, 2))

	slots, err := s.Slots(ctx, "ash")
	require.NoError(t, err)
	require.Len(t, slots, 1)
	assert.Equal(t, roster.Slot{Owner: "ash", Position: 2, Identity: "a", SpeciesID: 1}, slots[0])
}
