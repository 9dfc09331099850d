// Package sheetsync maps (owner, identity) pairs to persisted sheet records and
// keeps the addressed sheet saved through a debounced auto-save.
package sheetsync

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"github.com/cory-johannsen/pokesheet/internal/game/sheet"
)

// ErrStorageFailure wraps every error returned by a Store.
var ErrStorageFailure = errors.New("sheetsync: storage failure")

// ErrNoContext is returned by operations on the addressed context before SetContext.
var ErrNoContext = errors.New("sheetsync: no addressed context")

// Store persists sheet records keyed by owner and identity.
// Implementations must be safe for concurrent use.
type Store interface {
	// LoadSheet returns the record for (owner, identity). A missing record is
	// reported as found == false with a nil error.
	LoadSheet(ctx context.Context, owner, identity string) (rec sheet.Record, found bool, err error)
	// SaveSheet overwrites the record for (owner, identity).
	SaveSheet(ctx context.Context, owner, identity string, rec sheet.Record) error
	// DeleteSheet removes the record for (owner, identity). Deleting a missing
	// record is not an error.
	DeleteSheet(ctx context.Context, owner, identity string) error
}

// Snapshotter supplies the current state of the addressed sheet at save time.
// ok is false when there is nothing to save.
type Snapshotter interface {
	Snapshot() (rec sheet.Record, ok bool)
}

// SnapshotFunc adapts a function to Snapshotter.
type SnapshotFunc func() (sheet.Record, bool)

// Snapshot calls f.
func (f SnapshotFunc) Snapshot() (sheet.Record, bool) { return f() }

// Minter produces new identity tokens.
type Minter func() string

// NewIdentity mints a random, globally unique identity token.
func NewIdentity() string {
	return uuid.NewString()
}
