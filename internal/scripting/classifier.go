package scripting

import (
	"context"
	"fmt"
	"sync"

	lua "github.com/yuin/gopher-lua"
	"go.uber.org/zap"

	"github.com/cory-johannsen/pokesheet/internal/game/dice"
	"github.com/cory-johannsen/pokesheet/internal/game/species"
	"github.com/cory-johannsen/pokesheet/internal/game/stats"
)

// ClassifierHook is the global Lua function a classifier script must define.
// It receives one species table and returns a dice class string such as "2d8".
const ClassifierHook = "dice_class"

// LuaClassifier implements species.Classifier by calling a Lua script.
//
// LuaClassifier is safe for concurrent use; calls into the VM are serialized.
type LuaClassifier struct {
	mu        sync.Mutex
	L         *lua.LState
	cancel    context.CancelFunc
	instLimit int
	logger    *zap.Logger
}

// LoadClassifier creates a sandboxed VM, registers helper modules, and executes
// the script at path.
//
// Precondition: path must name a readable Lua file; logger must be non-nil.
// Postcondition: Returns a classifier whose script defines ClassifierHook, or an error.
func LoadClassifier(path string, instLimit int, logger *zap.Logger) (*LuaClassifier, error) {
	L, cancel := NewSandboxedState(instLimit)
	RegisterModules(L)
	if err := L.DoFile(path); err != nil {
		cancel()
		L.Close()
		return nil, fmt.Errorf("scripting: loading classifier %q: %w", path, err)
	}
	return newClassifier(L, cancel, instLimit, logger, path)
}

// NewClassifierFromSource is LoadClassifier for an in-memory script.
func NewClassifierFromSource(src string, instLimit int, logger *zap.Logger) (*LuaClassifier, error) {
	L, cancel := NewSandboxedState(instLimit)
	RegisterModules(L)
	if err := L.DoString(src); err != nil {
		cancel()
		L.Close()
		return nil, fmt.Errorf("scripting: loading classifier source: %w", err)
	}
	return newClassifier(L, cancel, instLimit, logger, "<source>")
}

func newClassifier(L *lua.LState, cancel context.CancelFunc, instLimit int, logger *zap.Logger, name string) (*LuaClassifier, error) {
	if L.GetGlobal(ClassifierHook).Type() != lua.LTFunction {
		cancel()
		L.Close()
		return nil, fmt.Errorf("scripting: classifier %s does not define %s", name, ClassifierHook)
	}
	return &LuaClassifier{L: L, cancel: cancel, instLimit: instLimit, logger: logger}, nil
}

// Classify implements species.Classifier.
//
// Precondition: sp must be non-nil.
// Postcondition: Returns a class that resolves to a plain NdS expression, or an
// error if the script fails, exceeds its budget, or returns an invalid class.
func (c *LuaClassifier) Classify(sp *species.Species) (dice.Class, error) {
	if sp == nil {
		return "", fmt.Errorf("scripting: classify: species must not be nil")
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	c.cancel()
	c.cancel = Rearm(c.L, c.instLimit)

	if err := c.L.CallByParam(lua.P{
		Fn:      c.L.GetGlobal(ClassifierHook),
		NRet:    1,
		Protect: true,
	}, speciesTable(c.L, sp)); err != nil {
		c.logger.Warn("scripting: classifier runtime error",
			zap.Int("species_id", sp.ID),
			zap.Error(err),
		)
		return "", fmt.Errorf("scripting: classify species %d: %w", sp.ID, err)
	}
	ret := c.L.Get(-1)
	c.L.Pop(1)

	s, ok := ret.(lua.LString)
	if !ok {
		return "", fmt.Errorf("scripting: classify species %d: %s returned %s, want string", sp.ID, ClassifierHook, ret.Type())
	}
	class := dice.Class(s)
	if _, err := class.Expression(); err != nil {
		return "", fmt.Errorf("scripting: classify species %d: %w", sp.ID, err)
	}
	c.logger.Debug("dice class assigned",
		zap.Int("species_id", sp.ID),
		zap.String("class", class.String()),
	)
	return class, nil
}

// Close releases the VM.
func (c *LuaClassifier) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cancel()
	c.L.Close()
}

func speciesTable(L *lua.LState, sp *species.Species) *lua.LTable {
	t := L.NewTable()
	L.SetField(t, "id", lua.LNumber(sp.ID))
	L.SetField(t, "name", lua.LString(sp.Name))
	L.SetField(t, "bst", lua.LNumber(sp.BST()))
	L.SetField(t, "legendary", lua.LBool(sp.Legendary))
	L.SetField(t, "mythical", lua.LBool(sp.Mythical))
	L.SetField(t, "evolution_stage", lua.LNumber(sp.EvolutionStage))
	L.SetField(t, "evolution_stages", lua.LNumber(sp.EvolutionStages))
	base := L.NewTable()
	for _, s := range stats.All {
		L.SetField(base, string(s), lua.LNumber(sp.BaseStats.Get(s)))
	}
	L.SetField(t, "base_stats", base)
	return t
}
