package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/cory-johannsen/pokesheet/internal/roster"
)

// ErrIdentityInUse is returned when a slot is written with an identity another
// slot of the same owner already holds.
var ErrIdentityInUse = errors.New("identity already assigned to another slot")

// swapParking is the scratch position used while two slots trade places.
const swapParking = -1

// RosterRepository persists roster slots in the roster_slots table.
type RosterRepository struct {
	db *pgxpool.Pool
}

// NewRosterRepository creates a RosterRepository backed by the given pool.
//
// Precondition: db must be a valid, open connection pool.
func NewRosterRepository(db *pgxpool.Pool) *RosterRepository {
	return &RosterRepository{db: db}
}

// Slots implements roster.Store.
func (r *RosterRepository) Slots(ctx context.Context, owner string) ([]roster.Slot, error) {
	rows, err := r.db.Query(ctx, `
		SELECT position, identity, species_id
		FROM roster_slots WHERE owner_id = $1 ORDER BY position ASC`,
		owner,
	)
	if err != nil {
		return nil, fmt.Errorf("listing roster slots: %w", err)
	}
	defer rows.Close()

	slots := make([]roster.Slot, 0)
	for rows.Next() {
		s := roster.Slot{Owner: owner}
		if err := rows.Scan(&s.Position, &s.Identity, &s.SpeciesID); err != nil {
			return nil, fmt.Errorf("scanning roster slot row: %w", err)
		}
		slots = append(slots, s)
	}
	return slots, rows.Err()
}

// PutSlot implements roster.Store.
//
// Postcondition: Returns ErrIdentityInUse when the identity is held by another position.
func (r *RosterRepository) PutSlot(ctx context.Context, slot roster.Slot) error {
	_, err := r.db.Exec(ctx, `
		INSERT INTO roster_slots (owner_id, position, identity, species_id)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (owner_id, position) DO UPDATE
		SET identity = EXCLUDED.identity, species_id = EXCLUDED.species_id`,
		slot.Owner, slot.Position, slot.Identity, slot.SpeciesID,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrIdentityInUse
		}
		return fmt.Errorf("saving roster slot: %w", err)
	}
	return nil
}

// SwapSlots implements roster.Store. The rows move in one transaction, parking
// slot a at swapParking while b takes its place.
func (r *RosterRepository) SwapSlots(ctx context.Context, owner string, a, b int) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("beginning swap transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	moves := [][2]int{{a, swapParking}, {b, a}, {swapParking, b}}
	for _, m := range moves {
		if _, err := tx.Exec(ctx, `
			UPDATE roster_slots SET position = $3
			WHERE owner_id = $1 AND position = $2`,
			owner, m[0], m[1],
		); err != nil {
			return fmt.Errorf("moving roster slot %d to %d: %w", m[0], m[1], err)
		}
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("committing swap: %w", err)
	}
	return nil
}

// ClearSlot implements roster.Store.
func (r *RosterRepository) ClearSlot(ctx context.Context, owner string, position int) error {
	_, err := r.db.Exec(ctx, `DELETE FROM roster_slots WHERE owner_id = $1 AND position = $2`, owner, position)
	if err != nil {
		return fmt.Errorf("clearing roster slot: %w", err)
	}
	return nil
}
