// Package memstore is an in-memory implementation of the sheet and roster stores.
// Records are kept in their encoded form so every load decodes a fresh copy.
package memstore

import (
	"context"
	"sync"

	"github.com/cory-johannsen/pokesheet/internal/game/sheet"
	"github.com/cory-johannsen/pokesheet/internal/roster"
)

type sheetKey struct {
	owner    string
	identity string
}

type slotKey struct {
	owner    string
	position int
}

// Store is safe for concurrent use.
type Store struct {
	mu       sync.Mutex
	sheets   map[sheetKey][]byte
	slots    map[slotKey]roster.Slot
	failures []error
	saves    int
}

// New returns an empty Store.
func New() *Store {
	return &Store{
		sheets: make(map[sheetKey][]byte),
		slots:  make(map[slotKey]roster.Slot),
	}
}

// FailNext makes the next store call return err. Repeated calls queue failures.
func (s *Store) FailNext(err error) {
	s.mu.Lock()
	s.failures = append(s.failures, err)
	s.mu.Unlock()
}

// Saves returns the number of successful SaveSheet calls.
func (s *Store) Saves() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.saves
}

// Sheets returns the number of stored records.
func (s *Store) Sheets() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sheets)
}

// failLocked pops a queued failure. Caller holds mu.
func (s *Store) failLocked() error {
	if len(s.failures) == 0 {
		return nil
	}
	err := s.failures[0]
	s.failures = s.failures[1:]
	return err
}

// LoadSheet implements sheetsync.Store.
func (s *Store) LoadSheet(_ context.Context, owner, identity string) (sheet.Record, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.failLocked(); err != nil {
		return sheet.Record{}, false, err
	}
	data, ok := s.sheets[sheetKey{owner, identity}]
	if !ok {
		return sheet.Record{}, false, nil
	}
	rec, err := sheet.DecodeRecord(data)
	if err != nil {
		return sheet.Record{}, false, err
	}
	return rec, true, nil
}

// SaveSheet implements sheetsync.Store.
func (s *Store) SaveSheet(_ context.Context, owner, identity string, rec sheet.Record) error {
	data, err := rec.Marshal()
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.failLocked(); err != nil {
		return err
	}
	s.sheets[sheetKey{owner, identity}] = data
	s.saves++
	return nil
}

// DeleteSheet implements sheetsync.Store.
func (s *Store) DeleteSheet(_ context.Context, owner, identity string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.failLocked(); err != nil {
		return err
	}
	delete(s.sheets, sheetKey{owner, identity})
	return nil
}

// Slots implements roster.Store.
func (s *Store) Slots(_ context.Context, owner string) ([]roster.Slot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.failLocked(); err != nil {
		return nil, err
	}
	var out []roster.Slot
	for k, slot := range s.slots {
		if k.owner == owner {
			out = append(out, slot)
		}
	}
	return out, nil
}

// PutSlot implements roster.Store.
func (s *Store) PutSlot(_ context.Context, slot roster.Slot) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.failLocked(); err != nil {
		return err
	}
	s.slots[slotKey{slot.Owner, slot.Position}] = slot
	return nil
}

// SwapSlots implements roster.Store.
func (s *Store) SwapSlots(_ context.Context, owner string, a, b int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.failLocked(); err != nil {
		return err
	}
	ka, kb := slotKey{owner, a}, slotKey{owner, b}
	sa, okA := s.slots[ka]
	sb, okB := s.slots[kb]
	delete(s.slots, ka)
	delete(s.slots, kb)
	if okB {
		sb.Position = a
		s.slots[ka] = sb
	}
	if okA {
		sa.Position = b
		s.slots[kb] = sa
	}
	return nil
}

// ClearSlot implements roster.Store.
func (s *Store) ClearSlot(_ context.Context, owner string, position int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.failLocked(); err != nil {
		return err
	}
	delete(s.slots, slotKey{owner, position})
	return nil
}
