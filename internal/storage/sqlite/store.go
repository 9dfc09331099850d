// Package sqlite provides a single-file SQLite store for sheets and roster slots.
package sqlite

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	msqlite "modernc.org/sqlite"
	sqlite3lib "modernc.org/sqlite/lib"

	"github.com/cory-johannsen/pokesheet/internal/game/sheet"
	"github.com/cory-johannsen/pokesheet/internal/roster"
)

//go:embed schema.sql
var schema string

// ErrIdentityInUse is returned when a slot is written with an identity another
// slot of the same owner already holds.
var ErrIdentityInUse = errors.New("identity already assigned to another slot")

// swapParking is the scratch position used while two slots trade places.
const swapParking = -1

// Store persists sheet records and roster slots in SQLite. It implements both
// sheetsync.Store and roster.Store.
type Store struct {
	db *sql.DB
}

// Open opens (creating if needed) the database at path and applies the schema.
//
// Precondition: path must be non-empty.
func Open(path string) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, errors.New("sqlite path is required")
	}
	dsn := "file:" + filepath.Clean(path) +
		"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=synchronous(NORMAL)&_pragma=foreign_keys(1)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("apply sqlite schema: %w", err)
	}
	return &Store{db: db}, nil
}

// Close closes the database handle.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Health pings the database within timeout.
func (s *Store) Health(ctx context.Context, timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	return s.db.PingContext(ctx)
}

// LoadSheet implements sheetsync.Store.
func (s *Store) LoadSheet(ctx context.Context, owner, identity string) (sheet.Record, bool, error) {
	var data string
	err := s.db.QueryRowContext(ctx,
		`SELECT record FROM sheets WHERE owner_id = ? AND identity = ?`,
		owner, identity,
	).Scan(&data)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return sheet.Record{}, false, nil
		}
		return sheet.Record{}, false, fmt.Errorf("query sheet: %w", err)
	}
	rec, err := sheet.DecodeRecord([]byte(data))
	if err != nil {
		return sheet.Record{}, false, err
	}
	return rec, true, nil
}

// SaveSheet implements sheetsync.Store.
func (s *Store) SaveSheet(ctx context.Context, owner, identity string, rec sheet.Record) error {
	data, err := rec.Marshal()
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO sheets (owner_id, identity, species_id, record, updated_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT (owner_id, identity) DO UPDATE
		SET species_id = excluded.species_id,
		    record     = excluded.record,
		    updated_at = excluded.updated_at`,
		owner, identity, rec.SpeciesID, string(data), time.Now().UTC().UnixMilli(),
	)
	if err != nil {
		return fmt.Errorf("save sheet: %w", err)
	}
	return nil
}

// DeleteSheet implements sheetsync.Store.
func (s *Store) DeleteSheet(ctx context.Context, owner, identity string) error {
	if _, err := s.db.ExecContext(ctx,
		`DELETE FROM sheets WHERE owner_id = ? AND identity = ?`, owner, identity,
	); err != nil {
		return fmt.Errorf("delete sheet: %w", err)
	}
	return nil
}

// Slots implements roster.Store.
func (s *Store) Slots(ctx context.Context, owner string) ([]roster.Slot, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT position, identity, species_id FROM roster_slots WHERE owner_id = ? ORDER BY position`,
		owner,
	)
	if err != nil {
		return nil, fmt.Errorf("list roster slots: %w", err)
	}
	defer rows.Close()

	slots := make([]roster.Slot, 0)
	for rows.Next() {
		slot := roster.Slot{Owner: owner}
		if err := rows.Scan(&slot.Position, &slot.Identity, &slot.SpeciesID); err != nil {
			return nil, fmt.Errorf("scan roster slot: %w", err)
		}
		slots = append(slots, slot)
	}
	return slots, rows.Err()
}

// PutSlot implements roster.Store.
func (s *Store) PutSlot(ctx context.Context, slot roster.Slot) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO roster_slots (owner_id, position, identity, species_id)
		VALUES (?, ?, ?, ?)
		ON CONFLICT (owner_id, position) DO UPDATE
		SET identity = excluded.identity, species_id = excluded.species_id`,
		slot.Owner, slot.Position, slot.Identity, slot.SpeciesID,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrIdentityInUse
		}
		return fmt.Errorf("put roster slot: %w", err)
	}
	return nil
}

// SwapSlots implements roster.Store in a single transaction.
func (s *Store) SwapSlots(ctx context.Context, owner string, a, b int) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin swap: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	for _, m := range [][2]int{{a, swapParking}, {b, a}, {swapParking, b}} {
		if _, err := tx.ExecContext(ctx,
			`UPDATE roster_slots SET position = ? WHERE owner_id = ? AND position = ?`,
			m[1], owner, m[0],
		); err != nil {
			return fmt.Errorf("move roster slot %d to %d: %w", m[0], m[1], err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit swap: %w", err)
	}
	return nil
}

// ClearSlot implements roster.Store.
func (s *Store) ClearSlot(ctx context.Context, owner string, position int) error {
	if _, err := s.db.ExecContext(ctx,
		`DELETE FROM roster_slots WHERE owner_id = ? AND position = ?`, owner, position,
	); err != nil {
		return fmt.Errorf("clear roster slot: %w", err)
	}
	return nil
}

func isUniqueViolation(err error) bool {
	var sqliteErr *msqlite.Error
	if !errors.As(err, &sqliteErr) {
		return false
	}
	code := sqliteErr.Code()
	return code == sqlite3lib.SQLITE_CONSTRAINT_UNIQUE || code == sqlite3lib.SQLITE_CONSTRAINT_PRIMARYKEY
}
