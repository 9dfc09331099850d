package sheetserver

import (
	"github.com/cory-johannsen/pokesheet/internal/game/sheet"
)

// Mutate ops.
const (
	OpSetLevel              = "setLevel"
	OpSetExperience         = "setExperience"
	OpSetCurrentHP          = "setCurrentHp"
	OpSetAccuracy           = "setAccuracy"
	OpSetEvasion            = "setEvasion"
	OpSetStatOverride       = "setStatOverride"
	OpSetPrimaryStat        = "setPrimaryStat"
	OpSetSecondaryStat      = "setSecondaryStat"
	OpSetSkill              = "setSkill"
	OpAddCustomSkill        = "addCustomSkill"
	OpRemoveCustomSkill     = "removeCustomSkill"
	OpUpdateCustomSkill     = "updateCustomSkill"
	OpModifyTemporaryStat   = "modifyTemporaryStat"
	OpResetTemporaryStat    = "resetTemporaryStat"
	OpResetTemporaryStats   = "resetTemporaryStats"
	OpSetWounds             = "setWounds"
	OpToggleStatus          = "toggleStatus"
	OpAddFriendshipMark     = "addFriendshipMark"
	OpRemoveFriendshipMark  = "removeFriendshipMark"
	OpEquipMove             = "equipMove"
	OpSetMoveDescription    = "setMoveDescription"
	OpUnequipMove           = "unequipMove"
	OpSetText               = "setText"
	OpSetDiceClass          = "setDiceClass"
	OpRecomputeDerivedStats = "recomputeDerivedStats"
	// OpInput sends {name: widget, text: raw} through the view like a keystroke.
	OpInput = "input"
)

// mutation decodes its arguments and returns the edit to run under the model lock.
type mutation func(s *Server, a args) (func(*sheet.Sheet) bool, error)

// intOp adapts a setter taking one integer "value".
func intOp(set func(sh *sheet.Sheet, n int) bool) mutation {
	return func(_ *Server, a args) (func(*sheet.Sheet) bool, error) {
		n, err := a.number("value")
		if err != nil {
			return nil, err
		}
		return func(sh *sheet.Sheet) bool { return set(sh, n) }, nil
	}
}

// slotOp adapts a setter addressing one equipped-move "slot".
func slotOp(set func(sh *sheet.Sheet, slot int, text string) bool, textKey string) mutation {
	return func(_ *Server, a args) (func(*sheet.Sheet) bool, error) {
		slot, err := a.number("slot")
		if err != nil {
			return nil, err
		}
		var text string
		if textKey != "" {
			if text, err = a.str(textKey); err != nil {
				return nil, err
			}
		}
		return func(sh *sheet.Sheet) bool { return set(sh, slot, text) }, nil
	}
}

var mutations = map[string]mutation{
	OpSetLevel: func(_ *Server, a args) (func(*sheet.Sheet) bool, error) {
		n, err := a.number("value")
		if err != nil {
			return nil, err
		}
		recompute, err := a.flag("recompute")
		if err != nil {
			return nil, err
		}
		return func(sh *sheet.Sheet) bool { return sh.SetLevel(n, recompute) }, nil
	},
	OpSetExperience: intOp((*sheet.Sheet).SetExperience),
	OpSetCurrentHP:  intOp((*sheet.Sheet).SetCurrentHP),
	OpSetAccuracy:   intOp((*sheet.Sheet).SetAccuracy),
	OpSetEvasion:    intOp((*sheet.Sheet).SetEvasion),
	OpSetWounds:     intOp((*sheet.Sheet).SetWounds),
	OpSetStatOverride: func(_ *Server, a args) (func(*sheet.Sheet) bool, error) {
		st, err := a.stat("stat")
		if err != nil {
			return nil, err
		}
		n, err := a.number("value")
		if err != nil {
			return nil, err
		}
		return func(sh *sheet.Sheet) bool { return sh.SetStatOverride(st, n) }, nil
	},
	OpSetPrimaryStat: func(_ *Server, a args) (func(*sheet.Sheet) bool, error) {
		st, err := a.stat("stat")
		if err != nil {
			return nil, err
		}
		return func(sh *sheet.Sheet) bool { return sh.SetPrimaryStat(st) }, nil
	},
	OpSetSecondaryStat: func(_ *Server, a args) (func(*sheet.Sheet) bool, error) {
		st, err := a.stat("stat")
		if err != nil {
			return nil, err
		}
		return func(sh *sheet.Sheet) bool { return sh.SetSecondaryStat(st) }, nil
	},
	OpSetSkill: func(_ *Server, a args) (func(*sheet.Sheet) bool, error) {
		name, err := a.str("name")
		if err != nil {
			return nil, err
		}
		n, err := a.number("value")
		if err != nil {
			return nil, err
		}
		return func(sh *sheet.Sheet) bool { return sh.SetSkillValue(name, n) }, nil
	},
	OpAddCustomSkill: func(_ *Server, a args) (func(*sheet.Sheet) bool, error) {
		category, err := a.str("category")
		if err != nil {
			return nil, err
		}
		name, err := a.str("name")
		if err != nil {
			return nil, err
		}
		n, err := a.number("value")
		if err != nil {
			return nil, err
		}
		return func(sh *sheet.Sheet) bool { return sh.AddCustomSkill(category, name, n) }, nil
	},
	OpRemoveCustomSkill: func(_ *Server, a args) (func(*sheet.Sheet) bool, error) {
		category, err := a.str("category")
		if err != nil {
			return nil, err
		}
		index, err := a.number("index")
		if err != nil {
			return nil, err
		}
		return func(sh *sheet.Sheet) bool { return sh.RemoveCustomSkill(category, index) }, nil
	},
	OpUpdateCustomSkill: func(_ *Server, a args) (func(*sheet.Sheet) bool, error) {
		category, err := a.str("category")
		if err != nil {
			return nil, err
		}
		index, err := a.number("index")
		if err != nil {
			return nil, err
		}
		var patch sheet.CustomSkillPatch
		if a.has("name") {
			name, err := a.str("name")
			if err != nil {
				return nil, err
			}
			patch.Name = &name
		}
		if a.has("value") {
			n, err := a.number("value")
			if err != nil {
				return nil, err
			}
			patch.Value = &n
		}
		return func(sh *sheet.Sheet) bool { return sh.UpdateCustomSkill(category, index, patch) }, nil
	},
	OpModifyTemporaryStat: func(_ *Server, a args) (func(*sheet.Sheet) bool, error) {
		st, err := a.stat("stat")
		if err != nil {
			return nil, err
		}
		delta, err := a.number("value")
		if err != nil {
			return nil, err
		}
		return func(sh *sheet.Sheet) bool { return sh.ModifyTemporaryStat(st, delta) }, nil
	},
	OpResetTemporaryStat: func(_ *Server, a args) (func(*sheet.Sheet) bool, error) {
		st, err := a.stat("stat")
		if err != nil {
			return nil, err
		}
		return func(sh *sheet.Sheet) bool { return sh.ResetTemporaryStat(st) }, nil
	},
	OpResetTemporaryStats: func(*Server, args) (func(*sheet.Sheet) bool, error) {
		return func(sh *sheet.Sheet) bool {
			sh.ResetAllTemporaryStats()
			return true
		}, nil
	},
	OpToggleStatus: func(s *Server, a args) (func(*sheet.Sheet) bool, error) {
		id, err := a.str("name")
		if err != nil {
			return nil, err
		}
		if id == "" {
			return nil, invalidArgument("status effect id must not be empty")
		}
		if s.deps.Statuses != nil && !s.deps.Statuses.Known(id) {
			return nil, invalidArgument("unknown status effect %q", id)
		}
		// The toggle reports membership, not acceptance.
		return func(sh *sheet.Sheet) bool {
			sh.ToggleStatusEffect(id)
			return true
		}, nil
	},
	OpAddFriendshipMark: func(_ *Server, a args) (func(*sheet.Sheet) bool, error) {
		mark, err := a.str("name")
		if err != nil {
			return nil, err
		}
		return func(sh *sheet.Sheet) bool { return sh.AddFriendshipMark(mark) }, nil
	},
	OpRemoveFriendshipMark: func(*Server, args) (func(*sheet.Sheet) bool, error) {
		return (*sheet.Sheet).RemoveFriendshipMark, nil
	},
	OpEquipMove:          slotOp((*sheet.Sheet).EquipMove, "name"),
	OpSetMoveDescription: slotOp((*sheet.Sheet).SetMoveDescription, "text"),
	OpUnequipMove: slotOp(func(sh *sheet.Sheet, slot int, _ string) bool {
		return sh.UnequipMove(slot)
	}, ""),
	OpSetText: func(_ *Server, a args) (func(*sheet.Sheet) bool, error) {
		field, err := a.str("name")
		if err != nil {
			return nil, err
		}
		text, err := a.str("text")
		if err != nil {
			return nil, err
		}
		return func(sh *sheet.Sheet) bool { return sh.SetTextField(field, text) }, nil
	},
	OpSetDiceClass: func(_ *Server, a args) (func(*sheet.Sheet) bool, error) {
		c, err := classOf(a)
		if err != nil {
			return nil, err
		}
		return func(sh *sheet.Sheet) bool { return sh.SetCustomDiceClass(c) }, nil
	},
	OpRecomputeDerivedStats: func(*Server, args) (func(*sheet.Sheet) bool, error) {
		return func(sh *sheet.Sheet) bool {
			sh.RecomputeDerivedStats()
			return true
		}, nil
	},
}
