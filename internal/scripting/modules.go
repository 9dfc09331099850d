package scripting

import (
	lua "github.com/yuin/gopher-lua"

	"github.com/cory-johannsen/pokesheet/internal/game/dice"
)

// RegisterModules registers the helper tables scripts may call into L:
//
//	dice.valid(class)  -> bool
//	dice.parse(class)  -> count, sides   (nil, message on failure)
//
// Precondition: L must be from NewSandboxedState.
// Postcondition: the dice global is defined in L.
func RegisterModules(L *lua.LState) {
	mod := L.NewTable()
	L.SetField(mod, "valid", L.NewFunction(luaDiceValid))
	L.SetField(mod, "parse", L.NewFunction(luaDiceParse))
	L.SetGlobal("dice", mod)
}

func luaDiceValid(L *lua.LState) int {
	c := dice.Class(L.CheckString(1))
	L.Push(lua.LBool(c.Valid()))
	return 1
}

func luaDiceParse(L *lua.LState) int {
	e, err := dice.Class(L.CheckString(1)).Expression()
	if err != nil {
		L.Push(lua.LNil)
		L.Push(lua.LString(err.Error()))
		return 2
	}
	L.Push(lua.LNumber(e.Count))
	L.Push(lua.LNumber(e.Sides))
	return 2
}
