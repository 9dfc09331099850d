package sheetsync

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/cory-johannsen/pokesheet/internal/game/sheet"
)

// SaveTimeout bounds each auto-save write.
const SaveTimeout = 5 * time.Second

// Coordinator addresses one (owner, identity) context at a time and persists
// the sheet behind it.
//
// Lock order: saveMu, then the Snapshotter's own lock; mu is held only briefly
// and never while calling out.
type Coordinator struct {
	store    Store
	source   Snapshotter
	debounce time.Duration
	logger   *zap.Logger

	// saveMu serializes every write of the addressed context with context changes.
	saveMu sync.Mutex

	mu          sync.Mutex
	owner       string
	identity    string
	addressed   bool
	pending     bool
	gen         uint64
	timer       *time.Timer
	closed      bool
	onSaveError func(error)
}

// NewCoordinator creates a Coordinator.
//
// Precondition: store, source and logger must be non-nil; debounce > 0.
func NewCoordinator(store Store, source Snapshotter, debounce time.Duration, logger *zap.Logger) *Coordinator {
	return &Coordinator{
		store:    store,
		source:   source,
		debounce: debounce,
		logger:   logger,
	}
}

// OnSaveError registers fn to be called with every failed auto-save.
func (c *Coordinator) OnSaveError(fn func(error)) {
	c.mu.Lock()
	c.onSaveError = fn
	c.mu.Unlock()
}

// SetContext addresses (owner, identity). A pending auto-save of the previous
// context is written first; if that write fails the context is not changed and
// the pending save stays armed.
//
// Precondition: owner and identity must be non-empty.
func (c *Coordinator) SetContext(ctx context.Context, owner, identity string) error {
	c.saveMu.Lock()
	defer c.saveMu.Unlock()

	if err := c.flushLocked(ctx); err != nil {
		return err
	}
	c.mu.Lock()
	c.owner, c.identity, c.addressed = owner, identity, true
	c.mu.Unlock()
	c.logger.Debug("sheet context addressed",
		zap.String("owner", owner),
		zap.String("identity", identity),
	)
	return nil
}

// Context returns the addressed context.
func (c *Coordinator) Context() (owner, identity string, ok bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.owner, c.identity, c.addressed
}

// Load returns the record stored for (owner, identity).
func (c *Coordinator) Load(ctx context.Context, owner, identity string) (sheet.Record, bool, error) {
	rec, found, err := c.store.LoadSheet(ctx, owner, identity)
	if err != nil {
		c.logger.Warn("loading sheet failed",
			zap.String("owner", owner),
			zap.String("identity", identity),
			zap.Error(err),
		)
		return sheet.Record{}, false, fmt.Errorf("%w: loading %s/%s: %w", ErrStorageFailure, owner, identity, err)
	}
	return rec, found, nil
}

// Save overwrites the record stored for (owner, identity).
func (c *Coordinator) Save(ctx context.Context, owner, identity string, rec sheet.Record) error {
	if err := c.store.SaveSheet(ctx, owner, identity, rec); err != nil {
		c.logger.Warn("saving sheet failed",
			zap.String("owner", owner),
			zap.String("identity", identity),
			zap.Error(err),
		)
		return fmt.Errorf("%w: saving %s/%s: %w", ErrStorageFailure, owner, identity, err)
	}
	return nil
}

// Delete removes the record stored for (owner, identity).
func (c *Coordinator) Delete(ctx context.Context, owner, identity string) error {
	if err := c.store.DeleteSheet(ctx, owner, identity); err != nil {
		c.logger.Warn("deleting sheet failed",
			zap.String("owner", owner),
			zap.String("identity", identity),
			zap.Error(err),
		)
		return fmt.Errorf("%w: deleting %s/%s: %w", ErrStorageFailure, owner, identity, err)
	}
	return nil
}

// LoadCurrent is Load for the addressed context.
func (c *Coordinator) LoadCurrent(ctx context.Context) (sheet.Record, bool, error) {
	owner, identity, ok := c.Context()
	if !ok {
		return sheet.Record{}, false, ErrNoContext
	}
	return c.Load(ctx, owner, identity)
}

// SaveCurrent snapshots the source and saves it under the addressed context,
// cancelling any pending auto-save.
func (c *Coordinator) SaveCurrent(ctx context.Context) error {
	c.saveMu.Lock()
	defer c.saveMu.Unlock()

	c.mu.Lock()
	owner, identity, ok := c.owner, c.identity, c.addressed
	wasPending := c.pending
	c.disarmLocked()
	c.mu.Unlock()
	if !ok {
		return ErrNoContext
	}
	if err := c.saveSnapshot(ctx, owner, identity); err != nil {
		if wasPending {
			c.mu.Lock()
			c.armLocked()
			c.mu.Unlock()
		}
		return err
	}
	return nil
}

// TriggerAutoSave schedules a save of the addressed context after the debounce
// interval. Calls within the interval coalesce into one write; the write uses the
// source state at fire time. Without an addressed context the call is ignored.
func (c *Coordinator) TriggerAutoSave() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.addressed || c.closed {
		return
	}
	c.armLocked()
}

// Pending reports whether an auto-save is scheduled.
func (c *Coordinator) Pending() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.pending
}

// Flush performs a pending auto-save immediately.
func (c *Coordinator) Flush(ctx context.Context) error {
	c.saveMu.Lock()
	defer c.saveMu.Unlock()
	return c.flushLocked(ctx)
}

// Forget cancels a pending auto-save and unaddresses the context when it
// addresses (owner, identity).
func (c *Coordinator) Forget(owner, identity string) {
	c.saveMu.Lock()
	defer c.saveMu.Unlock()
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.addressed || c.owner != owner || c.identity != identity {
		return
	}
	c.disarmLocked()
	c.owner, c.identity, c.addressed = "", "", false
}

// Close cancels any pending auto-save, waits for an in-flight one, and ignores
// later triggers.
func (c *Coordinator) Close() {
	c.saveMu.Lock()
	defer c.saveMu.Unlock()
	c.mu.Lock()
	defer c.mu.Unlock()
	c.disarmLocked()
	c.closed = true
}

// armLocked (re)starts the debounce timer. Caller holds mu.
func (c *Coordinator) armLocked() {
	if c.timer != nil {
		c.timer.Stop()
	}
	c.pending = true
	c.gen++
	gen := c.gen
	c.timer = time.AfterFunc(c.debounce, func() { c.fire(gen) })
}

// disarmLocked cancels the debounce timer. Caller holds mu.
func (c *Coordinator) disarmLocked() {
	if c.timer != nil {
		c.timer.Stop()
		c.timer = nil
	}
	c.pending = false
	c.gen++
}

func (c *Coordinator) fire(gen uint64) {
	cb, err := c.fireLocked(gen)
	if err != nil && cb != nil {
		cb(err)
	}
}

func (c *Coordinator) fireLocked(gen uint64) (func(error), error) {
	c.saveMu.Lock()
	defer c.saveMu.Unlock()

	c.mu.Lock()
	if gen != c.gen || !c.pending || c.closed {
		c.mu.Unlock()
		return nil, nil
	}
	owner, identity := c.owner, c.identity
	c.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), SaveTimeout)
	defer cancel()
	err := c.saveSnapshot(ctx, owner, identity)

	c.mu.Lock()
	defer c.mu.Unlock()
	if err == nil {
		if gen == c.gen {
			c.pending = false
			c.timer = nil
		}
		return nil, nil
	}
	if gen == c.gen && !c.closed {
		c.armLocked()
		c.logger.Info("auto-save will retry",
			zap.String("identity", identity),
			zap.Duration("after", c.debounce),
			zap.Error(err),
		)
	}
	return c.onSaveError, err
}

// flushLocked writes a pending auto-save now. Caller holds saveMu.
func (c *Coordinator) flushLocked(ctx context.Context) error {
	c.mu.Lock()
	if !c.pending || !c.addressed {
		c.mu.Unlock()
		return nil
	}
	owner, identity := c.owner, c.identity
	c.disarmLocked()
	c.mu.Unlock()

	if err := c.saveSnapshot(ctx, owner, identity); err != nil {
		c.mu.Lock()
		if !c.closed {
			c.armLocked()
		}
		c.mu.Unlock()
		return err
	}
	return nil
}

func (c *Coordinator) saveSnapshot(ctx context.Context, owner, identity string) error {
	rec, ok := c.source.Snapshot()
	if !ok {
		return nil
	}
	start := time.Now()
	if err := c.Save(ctx, owner, identity, rec); err != nil {
		return err
	}
	c.logger.Debug("sheet saved",
		zap.String("owner", owner),
		zap.String("identity", identity),
		zap.Duration("elapsed", time.Since(start)),
	)
	return nil
}
