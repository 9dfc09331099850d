package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/cory-johannsen/pokesheet/internal/game/sheet"
)

// SheetRepository persists sheet records in the sheets table. The record is
// stored as jsonb in its canonical encoding.
type SheetRepository struct {
	db *pgxpool.Pool
}

// NewSheetRepository creates a SheetRepository backed by the given pool.
//
// Precondition: db must be a valid, open connection pool.
func NewSheetRepository(db *pgxpool.Pool) *SheetRepository {
	return &SheetRepository{db: db}
}

// LoadSheet implements sheetsync.Store.
//
// Postcondition: Returns found == false with a nil error when no row exists.
func (r *SheetRepository) LoadSheet(ctx context.Context, owner, identity string) (sheet.Record, bool, error) {
	var data []byte
	err := r.db.QueryRow(ctx, `
		SELECT record FROM sheets WHERE owner_id = $1 AND identity = $2`,
		owner, identity,
	).Scan(&data)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return sheet.Record{}, false, nil
		}
		return sheet.Record{}, false, fmt.Errorf("querying sheet: %w", err)
	}
	rec, err := sheet.DecodeRecord(data)
	if err != nil {
		return sheet.Record{}, false, err
	}
	return rec, true, nil
}

// SaveSheet implements sheetsync.Store by upserting on (owner_id, identity).
func (r *SheetRepository) SaveSheet(ctx context.Context, owner, identity string, rec sheet.Record) error {
	data, err := rec.Marshal()
	if err != nil {
		return err
	}
	_, err = r.db.Exec(ctx, `
		INSERT INTO sheets (owner_id, identity, species_id, record, updated_at)
		VALUES ($1, $2, $3, $4, NOW())
		ON CONFLICT (owner_id, identity) DO UPDATE
		SET species_id = EXCLUDED.species_id,
		    record     = EXCLUDED.record,
		    updated_at = NOW()`,
		owner, identity, rec.SpeciesID, data,
	)
	if err != nil {
		return fmt.Errorf("saving sheet: %w", err)
	}
	return nil
}

// DeleteSheet implements sheetsync.Store. Deleting a missing row is not an error.
func (r *SheetRepository) DeleteSheet(ctx context.Context, owner, identity string) error {
	_, err := r.db.Exec(ctx, `DELETE FROM sheets WHERE owner_id = $1 AND identity = $2`, owner, identity)
	if err != nil {
		return fmt.Errorf("deleting sheet: %w", err)
	}
	return nil
}

// CountByOwner returns the number of sheets stored for owner.
func (r *SheetRepository) CountByOwner(ctx context.Context, owner string) (int, error) {
	var n int
	if err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM sheets WHERE owner_id = $1`, owner).Scan(&n); err != nil {
		return 0, fmt.Errorf("counting sheets: %w", err)
	}
	return n, nil
}
