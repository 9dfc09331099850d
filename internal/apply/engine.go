// Package apply implements the sheet apply protocol: resolving a roster slot to
// a sheet identity, fetching species data, and placing either a fresh or a
// hydrated sheet into the model before it is rendered.
package apply

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/cory-johannsen/pokesheet/internal/game/dice"
	"github.com/cory-johannsen/pokesheet/internal/game/sheet"
	"github.com/cory-johannsen/pokesheet/internal/game/species"
	"github.com/cory-johannsen/pokesheet/internal/roster"
	"github.com/cory-johannsen/pokesheet/internal/sheetsync"
)

// ErrBusy is returned when a selection is already being applied.
var ErrBusy = errors.New("apply: a selection is already in progress")

// ErrStaleSelection is returned when fetched data no longer matches the slot it was requested for.
var ErrStaleSelection = errors.New("apply: selection is stale")

// Deps are the collaborators of an Engine. Audio, Player and Notifier are optional.
type Deps struct {
	Provider   species.Provider
	Classifier species.Classifier
	Roster     *roster.Roster
	Store      sheetsync.Store
	View       View
	Audio      AudioLoader
	Player     AudioPlayer
	Notifier   Notifier
	Roller     sheet.Roller
	Options    sheet.Options
	Debounce   time.Duration
	Logger     *zap.Logger
}

// Result describes an applied selection.
type Result struct {
	Slot             roster.Slot
	Identity         string
	HasExistingSheet bool
	DroppedSkillKeys []string
	Record           sheet.Record
}

// Engine owns one sheet model and applies selections to it one at a time.
//
// Lock order: the coordinator's save lock, then mu. The engine never holds mu
// while calling into the coordinator.
type Engine struct {
	deps  Deps
	coord *sheetsync.Coordinator
	busy  atomic.Bool
	// selection counts applied selections; a cue resolving after a later
	// selection is not played.
	selection atomic.Uint64

	mu    sync.Mutex
	model *sheet.Sheet
}

// New creates an Engine with an empty model and its own coordinator.
//
// Precondition: Provider, Classifier, Roster, Store, View, Roller and Logger are non-nil; Debounce > 0.
func New(deps Deps) *Engine {
	e := &Engine{deps: deps, model: sheet.New(deps.Options)}
	e.coord = sheetsync.NewCoordinator(deps.Store, e, deps.Debounce, deps.Logger)
	e.coord.OnSaveError(func(err error) {
		e.notify(NoticeSaveFailed, "auto-save failed; retrying", err)
	})
	e.model.Subscribe(func(c sheet.Change) {
		if c.Persistent() {
			e.coord.TriggerAutoSave()
		}
	})
	return e
}

// Coordinator returns the engine's persistence coordinator.
func (e *Engine) Coordinator() *sheetsync.Coordinator { return e.coord }

// Snapshot implements sheetsync.Snapshotter.
func (e *Engine) Snapshot() (sheet.Record, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.model.HasSpecies() {
		return sheet.Record{}, false
	}
	return e.model.Record(), true
}

// Busy reports whether a selection is being applied.
func (e *Engine) Busy() bool { return e.busy.Load() }

type cueResult struct {
	cue Cue
	err error
}

// Select applies species speciesID to roster slot pos of owner.
//
// The slot's identity is resolved (minted if absent) and its record loaded. Species
// data is fetched next, and only then is the species written into the slot; any
// failure up to this point leaves the previous sheet, roster, context and view
// untouched. The context is then switched, the model is either
// reset and freshly created or hydrated from the record, and finally rendered.
// Fresh sheets are saved immediately.
//
// Postcondition: Returns ErrBusy without side effects while another selection runs.
func (e *Engine) Select(ctx context.Context, owner string, pos, speciesID int) (Result, error) {
	if !e.busy.CompareAndSwap(false, true) {
		return Result{}, ErrBusy
	}
	defer e.busy.Store(false)
	start := time.Now()

	reserved, err := e.deps.Roster.Reserve(ctx, owner, pos)
	if err != nil {
		if errors.Is(err, sheetsync.ErrStorageFailure) {
			e.notify(NoticeStorageFailure, "could not read the roster", err)
		}
		return Result{}, err
	}

	// Pending edits of the addressed sheet are written before any record is read,
	// so reselecting the addressed slot sees them.
	if err := e.coord.Flush(ctx); err != nil {
		e.notify(NoticeStorageFailure, "could not save the current sheet", err)
		return Result{}, err
	}
	rec, found, err := e.coord.Load(ctx, owner, reserved.Identity)
	if err != nil {
		e.notify(NoticeStorageFailure, "could not load the sheet", err)
		return Result{}, err
	}
	existing := found && rec.SpeciesID == speciesID
	if found && !existing {
		e.deps.Logger.Info("discarding record of another species",
			zap.String("identity", reserved.Identity),
			zap.Int("record_species", rec.SpeciesID),
			zap.Int("selected_species", speciesID),
		)
	}

	cues := e.preload(ctx, speciesID)

	sp, err := species.Fetch(ctx, e.deps.Provider, speciesID)
	if err != nil {
		e.notify(NoticeDataUnavailable, "species data is unavailable", err)
		return Result{}, err
	}
	slot, err := e.commit(ctx, reserved, speciesID, sp)
	if err != nil {
		return Result{}, err
	}
	class := e.classify(sp)

	if err := e.coord.SetContext(ctx, owner, slot.Identity); err != nil {
		e.notify(NoticeStorageFailure, "could not save the previous sheet", err)
		if rerr := e.deps.Roster.Restore(ctx, reserved); rerr != nil {
			e.deps.Logger.Warn("restoring roster slot", zap.Error(rerr))
		}
		return Result{}, err
	}

	e.mu.Lock()
	var report sheet.HydrateReport
	if existing {
		report = e.model.Hydrate(sp, class, rec)
	} else {
		e.model.CreateFresh(sp, class)
	}
	renderErr := e.deps.View.Render(e.model)
	if renderErr == nil && existing {
		renderErr = e.deps.View.ApplyRecord(rec)
	}
	applied := e.model.Record()
	e.mu.Unlock()

	if renderErr != nil {
		e.notify(NoticeRenderFailed, "could not display the sheet", renderErr)
		return Result{}, fmt.Errorf("apply: rendering sheet %s: %w", slot.Identity, renderErr)
	}
	e.deps.View.BindAutoSave(e.coord.TriggerAutoSave)
	sel := e.selection.Add(1)

	if !existing {
		if err := e.coord.SaveCurrent(ctx); err != nil {
			e.notify(NoticeSaveFailed, "could not save the new sheet", err)
			e.coord.TriggerAutoSave()
		}
	}
	if len(report.DroppedSkillKeys) > 0 || len(report.DroppedCustomCategories) > 0 {
		e.deps.Logger.Info("dropped unknown skill keys",
			zap.String("identity", slot.Identity),
			zap.Strings("skills", report.DroppedSkillKeys),
			zap.Strings("custom_categories", report.DroppedCustomCategories),
		)
	}
	e.play(cues, sel)

	e.deps.Logger.Debug("selection applied",
		zap.String("owner", owner),
		zap.Int("slot", pos),
		zap.String("identity", slot.Identity),
		zap.Bool("existing", existing),
		zap.Duration("elapsed", time.Since(start)),
	)
	return Result{
		Slot:             slot,
		Identity:         slot.Identity,
		HasExistingSheet: existing,
		DroppedSkillKeys: report.DroppedSkillKeys,
		Record:           applied,
	}, nil
}

// commit writes speciesID into the reserved slot once the fetched data is known
// to match it. A mismatch or a slot changed meanwhile is a stale selection.
func (e *Engine) commit(ctx context.Context, reserved roster.Slot, speciesID int, sp *species.Species) (roster.Slot, error) {
	if sp.ID != speciesID {
		err := fmt.Errorf("%w: slot %d fetched species %d, want %d", ErrStaleSelection, reserved.Position, sp.ID, speciesID)
		e.notify(NoticeStale, "the selection changed while loading", err)
		return roster.Slot{}, err
	}
	slot, err := e.deps.Roster.Commit(ctx, reserved, speciesID)
	switch {
	case errors.Is(err, roster.ErrSlotChanged):
		err = fmt.Errorf("%w: %w", ErrStaleSelection, err)
		e.notify(NoticeStale, "the selection changed while loading", err)
		return roster.Slot{}, err
	case err != nil:
		e.notify(NoticeStorageFailure, "could not update the roster", err)
		return roster.Slot{}, err
	}
	return slot, nil
}

func (e *Engine) classify(sp *species.Species) dice.Class {
	class, err := e.deps.Classifier.Classify(sp)
	if err != nil {
		e.deps.Logger.Warn("dice class unavailable",
			zap.Int("species", sp.ID),
			zap.Error(err),
		)
		return ""
	}
	return class
}

// preload resolves the species cue in the background. The channel is buffered so
// an abandoned selection never blocks the loader.
func (e *Engine) preload(ctx context.Context, speciesID int) <-chan cueResult {
	if e.deps.Audio == nil || e.deps.Player == nil {
		return nil
	}
	out := make(chan cueResult, 1)
	go func() {
		cue, err := e.deps.Audio.Preload(context.WithoutCancel(ctx), speciesID)
		out <- cueResult{cue: cue, err: err}
	}()
	return out
}

// play plays the cue once it resolves, unless a later selection was applied first.
func (e *Engine) play(cues <-chan cueResult, sel uint64) {
	if cues == nil {
		return
	}
	go func() {
		r := <-cues
		if r.err != nil {
			e.deps.Logger.Warn("audio cue unavailable", zap.Error(r.err))
			return
		}
		if e.selection.Load() != sel {
			return
		}
		e.deps.Player.Play(r.cue)
	}()
}

// Edit runs fn against the model under the model lock and reports fn's result.
// An accepted edit re-renders the view.
//
// Postcondition: Returns ErrBusy while a selection runs and ErrNoContext before any selection.
func (e *Engine) Edit(fn func(s *sheet.Sheet) bool) (bool, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.editableLocked(); err != nil {
		return false, err
	}
	if !fn(e.model) {
		return false, nil
	}
	e.renderLocked()
	return true, nil
}

// renderLocked redraws the view from the model. Caller holds mu.
func (e *Engine) renderLocked() {
	if err := e.deps.View.Render(e.model); err != nil {
		e.notify(NoticeRenderFailed, "could not display the sheet", err)
	}
}

func (e *Engine) editableLocked() error {
	if e.busy.Load() {
		return ErrBusy
	}
	if _, _, ok := e.coord.Context(); !ok || !e.model.HasSpecies() {
		return sheetsync.ErrNoContext
	}
	return nil
}

// Inspect runs fn against the model under the model lock without mutating it.
func (e *Engine) Inspect(fn func(s *sheet.Sheet)) {
	e.mu.Lock()
	defer e.mu.Unlock()
	fn(e.model)
}

// LevelUp levels the addressed sheet once with the engine's roller.
func (e *Engine) LevelUp() (sheet.LevelUpReport, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.editableLocked(); err != nil {
		return sheet.LevelUpReport{}, err
	}
	report, err := e.model.LevelUp(e.deps.Roller)
	if err != nil {
		return sheet.LevelUpReport{}, err
	}
	e.renderLocked()
	return report, nil
}

const experienceWidget = "experienceInput"

// HandleInput applies a raw view edit of an input widget to the model.
func (e *Engine) HandleInput(widget, raw string) bool {
	ok, err := e.Edit(func(s *sheet.Sheet) bool {
		switch widget {
		case sheet.FieldNickname, sheet.FieldItem:
			return s.SetTextField(widget, raw)
		case experienceWidget:
			n, err := strconv.Atoi(raw)
			if err != nil {
				return false
			}
			return s.SetExperience(n)
		}
		return false
	})
	return err == nil && ok
}

// Swap exchanges two roster slots of owner. Identities travel with their sheets,
// so the addressed context is unaffected.
func (e *Engine) Swap(ctx context.Context, owner string, a, b int) error {
	if !e.busy.CompareAndSwap(false, true) {
		return ErrBusy
	}
	defer e.busy.Store(false)
	if err := e.deps.Roster.Swap(ctx, owner, a, b); err != nil {
		if errors.Is(err, sheetsync.ErrStorageFailure) {
			e.notify(NoticeStorageFailure, "could not swap roster slots", err)
		}
		return err
	}
	return nil
}

// Clear deletes the sheet of slot pos and empties the slot. Clearing the
// addressed slot unaddresses the context and empties the model.
func (e *Engine) Clear(ctx context.Context, owner string, pos int) (roster.Slot, error) {
	if !e.busy.CompareAndSwap(false, true) {
		return roster.Slot{}, ErrBusy
	}
	defer e.busy.Store(false)

	slot, err := e.deps.Roster.Slot(ctx, owner, pos)
	if err != nil {
		return roster.Slot{}, err
	}
	curOwner, curIdentity, addressed := e.coord.Context()
	addressed = addressed && !slot.Empty() && curOwner == owner && curIdentity == slot.Identity
	if addressed {
		e.coord.Forget(owner, slot.Identity)
	}

	cleared, err := e.deps.Roster.Clear(ctx, owner, pos)
	if err != nil {
		if addressed {
			if rerr := e.coord.SetContext(ctx, owner, slot.Identity); rerr != nil {
				e.deps.Logger.Warn("re-addressing sheet after failed clear", zap.Error(rerr))
			}
		}
		if errors.Is(err, sheetsync.ErrStorageFailure) {
			e.notify(NoticeStorageFailure, "could not clear the slot", err)
		}
		return roster.Slot{}, err
	}

	if addressed {
		e.mu.Lock()
		e.model.Clear()
		e.renderLocked()
		e.mu.Unlock()
	}
	return cleared, nil
}

// Close flushes any pending auto-save and stops the coordinator.
func (e *Engine) Close(ctx context.Context) error {
	err := e.coord.Flush(ctx)
	e.coord.Close()
	return err
}

func (e *Engine) notify(kind NoticeKind, msg string, err error) {
	e.deps.Logger.Warn(msg, zap.String("notice", string(kind)), zap.Error(err))
	if e.deps.Notifier != nil {
		e.deps.Notifier.Notify(Notice{Kind: kind, Message: msg, Err: err})
	}
}
