package sheetserver

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/cory-johannsen/pokesheet/internal/apply"
	"github.com/cory-johannsen/pokesheet/internal/game/sheet"
	"github.com/cory-johannsen/pokesheet/internal/game/species"
	"github.com/cory-johannsen/pokesheet/internal/game/status"
	"github.com/cory-johannsen/pokesheet/internal/roster"
	"github.com/cory-johannsen/pokesheet/internal/sheetsync"
	"github.com/cory-johannsen/pokesheet/internal/view"
)

// Deps are shared by every workspace. Statuses is optional; when set,
// toggleStatus only accepts catalogued ids.
type Deps struct {
	Provider   species.Provider
	Classifier species.Classifier
	Roster     *roster.Roster
	Store      sheetsync.Store
	Statuses   *status.Registry
	Roller     sheet.Roller
	Options    sheet.Options
	Debounce   time.Duration
	Logger     *zap.Logger
}

// Workspace is the sheet model, coordinator and view of one owner.
type Workspace struct {
	Owner  string
	Engine *apply.Engine
	View   *view.View

	mu      sync.Mutex
	notices []apply.Notice
}

func (w *Workspace) notify(n apply.Notice) {
	w.mu.Lock()
	w.notices = append(w.notices, n)
	w.mu.Unlock()
}

// DrainNotices returns and forgets every notice raised since the last drain.
func (w *Workspace) DrainNotices() []apply.Notice {
	w.mu.Lock()
	defer w.mu.Unlock()
	out := w.notices
	w.notices = nil
	return out
}

// Workspaces creates one Workspace per owner on first use.
type Workspaces struct {
	deps Deps

	mu      sync.Mutex
	byOwner map[string]*Workspace
	closed  bool
}

// NewWorkspaces returns an empty manager.
//
// Precondition: Provider, Classifier, Roster, Store, Roller and Logger are non-nil; Debounce > 0.
func NewWorkspaces(deps Deps) *Workspaces {
	return &Workspaces{deps: deps, byOwner: make(map[string]*Workspace)}
}

// ErrClosed is returned by Get after Close.
var ErrClosed = errors.New("sheetserver: workspaces closed")

// Get returns the workspace of owner, creating it if needed.
func (m *Workspaces) Get(owner string) (*Workspace, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return nil, ErrClosed
	}
	if ws, ok := m.byOwner[owner]; ok {
		return ws, nil
	}
	logger := m.deps.Logger.With(zap.String("owner", owner))
	ws := &Workspace{Owner: owner, View: view.New(logger)}
	ws.Engine = apply.New(apply.Deps{
		Provider:   m.deps.Provider,
		Classifier: m.deps.Classifier,
		Roster:     m.deps.Roster,
		Store:      m.deps.Store,
		View:       ws.View,
		Notifier:   apply.NotifierFunc(ws.notify),
		Roller:     m.deps.Roller,
		Options:    m.deps.Options,
		Debounce:   m.deps.Debounce,
		Logger:     logger,
	})
	ws.View.SetEditor(ws.Engine.HandleInput)
	m.byOwner[owner] = ws
	logger.Debug("workspace created")
	return ws, nil
}

// Len returns the number of live workspaces.
func (m *Workspaces) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.byOwner)
}

func (m *Workspaces) snapshot() []*Workspace {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*Workspace, 0, len(m.byOwner))
	for _, ws := range m.byOwner {
		out = append(out, ws)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Owner < out[j].Owner })
	return out
}

// FlushAll writes every pending auto-save.
func (m *Workspaces) FlushAll(ctx context.Context) error {
	var errs []error
	for _, ws := range m.snapshot() {
		if err := ws.Engine.Coordinator().Flush(ctx); err != nil {
			errs = append(errs, fmt.Errorf("flushing workspace %s: %w", ws.Owner, err))
		}
	}
	return errors.Join(errs...)
}

// Close flushes and stops every workspace. Get fails afterwards.
func (m *Workspaces) Close(ctx context.Context) error {
	m.mu.Lock()
	m.closed = true
	m.mu.Unlock()
	var errs []error
	for _, ws := range m.snapshot() {
		if err := ws.Engine.Close(ctx); err != nil {
			errs = append(errs, fmt.Errorf("closing workspace %s: %w", ws.Owner, err))
		}
	}
	return errors.Join(errs...)
}
