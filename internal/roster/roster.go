package roster

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"go.uber.org/zap"

	"github.com/cory-johannsen/pokesheet/internal/sheetsync"
)

// SheetDeleter removes persisted sheet records. sheetsync.Store satisfies it.
type SheetDeleter interface {
	DeleteSheet(ctx context.Context, owner, identity string) error
}

// Roster is a fixed-size, per-owner list of slots. Identities are minted when a
// slot first receives a species and move with the sheet when slots are swapped.
//
// Roster is safe for concurrent use.
type Roster struct {
	store  Store
	sheets SheetDeleter
	size   int
	mint   sheetsync.Minter
	logger *zap.Logger
	mu     sync.Mutex
}

// New creates a Roster with size slots per owner.
//
// Precondition: store, sheets and logger must be non-nil; size >= 1.
// A nil mint selects sheetsync.NewIdentity.
func New(store Store, sheets SheetDeleter, size int, mint sheetsync.Minter, logger *zap.Logger) *Roster {
	if mint == nil {
		mint = sheetsync.NewIdentity
	}
	return &Roster{store: store, sheets: sheets, size: size, mint: mint, logger: logger}
}

// Size returns the number of slots per owner.
func (r *Roster) Size() int { return r.size }

func (r *Roster) checkPosition(pos int) error {
	if pos < 0 || pos >= r.size {
		return fmt.Errorf("%w: %d not in [0, %d)", ErrSlotOutOfRange, pos, r.size)
	}
	return nil
}

func storageErr(op string, err error) error {
	return fmt.Errorf("%w: roster %s: %w", sheetsync.ErrStorageFailure, op, err)
}

// Slot returns the slot at pos. A species-bearing slot without an identity is
// repaired by minting and persisting one.
func (r *Roster) Slot(ctx context.Context, owner string, pos int) (Slot, error) {
	if err := r.checkPosition(pos); err != nil {
		return Slot{}, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.slotLocked(ctx, owner, pos)
}

func (r *Roster) slotLocked(ctx context.Context, owner string, pos int) (Slot, error) {
	all, err := r.store.Slots(ctx, owner)
	if err != nil {
		return Slot{}, storageErr("reading slots", err)
	}
	slot := Slot{Owner: owner, Position: pos}
	for _, s := range all {
		if s.Position == pos {
			slot = s
			break
		}
	}
	return r.repairLocked(ctx, slot)
}

func (r *Roster) repairLocked(ctx context.Context, slot Slot) (Slot, error) {
	if slot.Empty() || slot.Identity != "" {
		return slot, nil
	}
	slot.Identity = r.mint()
	if err := r.store.PutSlot(ctx, slot); err != nil {
		return Slot{}, storageErr("repairing slot", err)
	}
	r.logger.Warn("minted missing slot identity",
		zap.String("owner", slot.Owner),
		zap.Int("position", slot.Position),
		zap.String("identity", slot.Identity),
	)
	return slot, nil
}

// Reserve resolves the identity of slot pos without changing its species. An
// empty slot gets a freshly minted identity that is not stored until Commit.
func (r *Roster) Reserve(ctx context.Context, owner string, pos int) (Slot, error) {
	if err := r.checkPosition(pos); err != nil {
		return Slot{}, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.reserveLocked(ctx, owner, pos)
}

func (r *Roster) reserveLocked(ctx context.Context, owner string, pos int) (Slot, error) {
	slot, err := r.slotLocked(ctx, owner, pos)
	if err != nil {
		return Slot{}, err
	}
	if slot.Identity == "" {
		slot.Identity = r.mint()
		r.logger.Debug("minted slot identity",
			zap.String("owner", owner),
			zap.Int("position", pos),
			zap.String("identity", slot.Identity),
		)
	}
	return slot, nil
}

// Commit stores speciesID in the slot reserved by Reserve. It fails with
// ErrSlotChanged when the slot no longer holds the reserved identity.
//
// Precondition: speciesID > 0.
func (r *Roster) Commit(ctx context.Context, reserved Slot, speciesID int) (Slot, error) {
	if err := r.checkPosition(reserved.Position); err != nil {
		return Slot{}, err
	}
	if speciesID <= 0 {
		return Slot{}, fmt.Errorf("roster: species id must be > 0, got %d", speciesID)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.commitLocked(ctx, reserved, speciesID)
}

func (r *Roster) commitLocked(ctx context.Context, reserved Slot, speciesID int) (Slot, error) {
	cur, err := r.slotLocked(ctx, reserved.Owner, reserved.Position)
	if err != nil {
		return Slot{}, err
	}
	if cur.Identity != "" && cur.Identity != reserved.Identity || cur.Empty() != reserved.Empty() {
		return Slot{}, fmt.Errorf("%w: position %d", ErrSlotChanged, reserved.Position)
	}
	if cur.Identity == reserved.Identity && cur.SpeciesID == speciesID {
		return cur, nil
	}
	slot := reserved
	slot.SpeciesID = speciesID
	if err := r.store.PutSlot(ctx, slot); err != nil {
		return Slot{}, storageErr("assigning slot", err)
	}
	return slot, nil
}

// Restore writes a slot returned by Reserve back as it was, removing it when it
// was empty.
func (r *Roster) Restore(ctx context.Context, prev Slot) error {
	if err := r.checkPosition(prev.Position); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if prev.Empty() {
		if err := r.store.ClearSlot(ctx, prev.Owner, prev.Position); err != nil {
			return storageErr("restoring slot", err)
		}
		return nil
	}
	if err := r.store.PutSlot(ctx, prev); err != nil {
		return storageErr("restoring slot", err)
	}
	return nil
}

// Assign places speciesID in slot pos. The slot keeps its identity when it
// already has one; otherwise a new identity is minted and stored with it.
//
// Precondition: speciesID > 0.
func (r *Roster) Assign(ctx context.Context, owner string, pos, speciesID int) (Slot, error) {
	if err := r.checkPosition(pos); err != nil {
		return Slot{}, err
	}
	if speciesID <= 0 {
		return Slot{}, fmt.Errorf("roster: species id must be > 0, got %d", speciesID)
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	slot, err := r.reserveLocked(ctx, owner, pos)
	if err != nil {
		return Slot{}, err
	}
	return r.commitLocked(ctx, slot, speciesID)
}

// Find returns the slot holding identity.
func (r *Roster) Find(ctx context.Context, owner, identity string) (Slot, bool, error) {
	all, err := r.store.Slots(ctx, owner)
	if err != nil {
		return Slot{}, false, storageErr("reading slots", err)
	}
	for _, s := range all {
		if s.Identity == identity && identity != "" {
			return s, true, nil
		}
	}
	return Slot{}, false, nil
}

// Swap exchanges the contents of positions a and b. Identities travel with
// their sheets, so both sheets stay reachable by identity.
func (r *Roster) Swap(ctx context.Context, owner string, a, b int) error {
	if err := r.checkPosition(a); err != nil {
		return err
	}
	if err := r.checkPosition(b); err != nil {
		return err
	}
	if a == b {
		return nil
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.store.SwapSlots(ctx, owner, a, b); err != nil {
		return storageErr("swapping slots", err)
	}
	return nil
}

// Clear deletes the persisted sheet of slot pos and then empties the slot.
// It returns the slot as it was before clearing.
func (r *Roster) Clear(ctx context.Context, owner string, pos int) (Slot, error) {
	if err := r.checkPosition(pos); err != nil {
		return Slot{}, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	slot, err := r.slotLocked(ctx, owner, pos)
	if err != nil {
		return Slot{}, err
	}
	if slot.Empty() {
		return Slot{}, fmt.Errorf("%w: position %d", ErrSlotEmpty, pos)
	}
	if err := r.sheets.DeleteSheet(ctx, owner, slot.Identity); err != nil {
		return Slot{}, storageErr("deleting sheet", err)
	}
	if err := r.store.ClearSlot(ctx, owner, pos); err != nil {
		return Slot{}, storageErr("clearing slot", err)
	}
	return slot, nil
}

// List returns all size slots of owner ordered by position, empty ones included.
func (r *Roster) List(ctx context.Context, owner string) ([]Slot, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	all, err := r.store.Slots(ctx, owner)
	if err != nil {
		return nil, storageErr("reading slots", err)
	}
	out := make([]Slot, r.size)
	for i := range out {
		out[i] = Slot{Owner: owner, Position: i}
	}
	sort.Slice(all, func(i, j int) bool { return all[i].Position < all[j].Position })
	for _, s := range all {
		if s.Position < 0 || s.Position >= r.size {
			continue
		}
		repaired, err := r.repairLocked(ctx, s)
		if err != nil {
			return nil, err
		}
		out[s.Position] = repaired
	}
	return out, nil
}
