package apply_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest"

	"github.com/cory-johannsen/pokesheet/internal/apply"
	"github.com/cory-johannsen/pokesheet/internal/game/dice"
	"github.com/cory-johannsen/pokesheet/internal/game/sheet"
	"github.com/cory-johannsen/pokesheet/internal/game/species"
	"github.com/cory-johannsen/pokesheet/internal/game/stats"
	"github.com/cory-johannsen/pokesheet/internal/roster"
	"github.com/cory-johannsen/pokesheet/internal/storage/memstore"
)

const debounce = 20 * time.Millisecond

func bulbasaur() *species.Species {
	return &species.Species{
		ID:              1,
		Name:            "bulbasaur",
		BaseStats:       stats.Block{HP: 45, Attack: 49, Defense: 49, SpAttack: 65, SpDefense: 65, Speed: 45},
		EvolutionStage:  1,
		EvolutionStages: 3,
		Moves:           []species.Move{{Name: "tackle"}, {Name: "vine-whip"}},
	}
}

func charmander() *species.Species {
	return &species.Species{
		ID:              4,
		Name:            "charmander",
		BaseStats:       stats.Block{HP: 39, Attack: 52, Defense: 43, SpAttack: 60, SpDefense: 50, Speed: 65},
		EvolutionStage:  1,
		EvolutionStages: 3,
		Moves:           []species.Move{{Name: "scratch"}, {Name: "ember"}},
	}
}

// events is an ordered, concurrency-safe log shared by the fakes.
type events struct {
	mu  sync.Mutex
	log []string
}

func (e *events) add(format string, args ...any) {
	e.mu.Lock()
	e.log = append(e.log, fmt.Sprintf(format, args...))
	e.mu.Unlock()
}

func (e *events) all() []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]string(nil), e.log...)
}

// gatedProvider serves static species and can block, fail, or misreport a fetch.
type gatedProvider struct {
	inner species.Provider

	mu      sync.Mutex
	gate    chan struct{}
	entered chan struct{}
	fail    error
	swapTo  *species.Species
}

func (p *gatedProvider) block() (entered, release chan struct{}) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.gate = make(chan struct{})
	p.entered = make(chan struct{}, 1)
	return p.entered, p.gate
}

func (p *gatedProvider) Species(ctx context.Context, id int) (*species.Species, error) {
	p.mu.Lock()
	gate, entered, fail, swapTo := p.gate, p.entered, p.fail, p.swapTo
	p.gate, p.entered = nil, nil
	p.mu.Unlock()
	if entered != nil {
		entered <- struct{}{}
	}
	if gate != nil {
		<-gate
	}
	if fail != nil {
		return nil, fail
	}
	if swapTo != nil {
		out := *swapTo
		return &out, nil
	}
	return p.inner.Species(ctx, id)
}

func (p *gatedProvider) Moves(ctx context.Context, id int) ([]species.Move, error) {
	return p.inner.Moves(ctx, id)
}

// recordingView logs renders with the model state it observed.
type recordingView struct {
	ev    *events
	binds int
	fail  error
}

func (v *recordingView) Render(s *sheet.Sheet) error {
	if v.fail != nil {
		return v.fail
	}
	v.ev.add("render %s L%d xp%d", s.SpeciesName(), s.Level(), s.Experience())
	return nil
}

func (v *recordingView) ApplyRecord(rec sheet.Record) error {
	v.ev.add("apply nick=%s", rec.TextFields.Nickname)
	return nil
}

func (v *recordingView) BindAutoSave(func()) { v.binds++ }

type audio struct {
	ev *events
}

func (a audio) Preload(_ context.Context, id int) (apply.Cue, error) {
	return apply.Cue{SpeciesID: id, Source: fmt.Sprintf("cries/%d.ogg", id)}, nil
}

func (a audio) Play(c apply.Cue) { a.ev.add("play %d", c.SpeciesID) }

type notices struct {
	mu   sync.Mutex
	list []apply.Notice
}

func (n *notices) Notify(x apply.Notice) {
	n.mu.Lock()
	n.list = append(n.list, x)
	n.mu.Unlock()
}

func (n *notices) kinds() []apply.NoticeKind {
	n.mu.Lock()
	defer n.mu.Unlock()
	out := make([]apply.NoticeKind, 0, len(n.list))
	for _, x := range n.list {
		out = append(out, x.Kind)
	}
	return out
}

type harness struct {
	engine   *apply.Engine
	store    *memstore.Store
	roster   *roster.Roster
	provider *gatedProvider
	view     *recordingView
	ev       *events
	notices  *notices
}

func newHarness(t *testing.T, rolls ...int) *harness {
	t.Helper()
	if len(rolls) == 0 {
		rolls = []int{0}
	}
	logger := zaptest.NewLogger(t)
	store := memstore.New()
	ev := &events{}
	h := &harness{
		store:    store,
		roster:   roster.New(store, store, 6, nil, logger),
		provider: &gatedProvider{inner: species.NewStaticProvider(bulbasaur(), charmander())},
		view:     &recordingView{ev: ev},
		ev:       ev,
		notices:  &notices{},
	}
	h.engine = apply.New(apply.Deps{
		Provider:   h.provider,
		Classifier: species.DefaultThresholds(),
		Roster:     h.roster,
		Store:      store,
		View:       h.view,
		Audio:      audio{ev: ev},
		Player:     audio{ev: ev},
		Notifier:   h.notices,
		Roller:     dice.NewLoggedRoller(dice.NewSequenceSource(rolls...), zap.NewNop()),
		Debounce:   debounce,
		Logger:     logger,
	})
	t.Cleanup(func() { _ = h.engine.Close(context.Background()) })
	return h
}

func (h *harness) stored(t *testing.T, identity string) (sheet.Record, bool) {
	t.Helper()
	rec, found, err := h.store.LoadSheet(context.Background(), "ash", identity)
	require.NoError(t, err)
	return rec, found
}

var errUpstream = errors.New("upstream unavailable")
