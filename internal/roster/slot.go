// Package roster manages an owner's positional roster slots. A slot references
// at most one sheet by identity and holds no sheet data of its own.
package roster

import (
	"context"
	"errors"
)

// ErrSlotOutOfRange is returned for a position outside [0, size).
var ErrSlotOutOfRange = errors.New("roster: slot position out of range")

// ErrSlotEmpty is returned when an operation needs a species-bearing slot.
var ErrSlotEmpty = errors.New("roster: slot is empty")

// ErrSlotChanged is returned when a reserved slot was modified before Commit.
var ErrSlotChanged = errors.New("roster: slot changed since it was reserved")

// Slot is one roster position. A slot with SpeciesID == 0 is empty.
type Slot struct {
	Owner     string
	Position  int
	Identity  string
	SpeciesID int
}

// Empty reports whether the slot holds no species.
func (s Slot) Empty() bool { return s.SpeciesID == 0 }

// Store persists roster slots. Implementations must be safe for concurrent use.
type Store interface {
	// Slots returns every stored slot of owner in any order.
	Slots(ctx context.Context, owner string) ([]Slot, error)
	// PutSlot inserts or replaces the slot at (slot.Owner, slot.Position).
	PutSlot(ctx context.Context, slot Slot) error
	// SwapSlots exchanges the identity and species of positions a and b
	// atomically. Missing slots are treated as empty.
	SwapSlots(ctx context.Context, owner string, a, b int) error
	// ClearSlot removes the slot at position. Clearing a missing slot is not an error.
	ClearSlot(ctx context.Context, owner string, position int) error
}
