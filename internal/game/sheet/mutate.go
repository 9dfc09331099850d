package sheet

import (
	"strings"

	"github.com/cory-johannsen/pokesheet/internal/game/dice"
	"github.com/cory-johannsen/pokesheet/internal/game/stats"
)

// Every setter below reports whether the value was accepted. A rejected value
// leaves the sheet unchanged and publishes nothing.

// SetLevel sets the level. With recompute the derived values are rebuilt.
//
// Precondition: 1 <= n <= MaxLevel().
func (s *Sheet) SetLevel(n int, recompute bool) bool {
	if n < 1 || n > s.maxLevel {
		return false
	}
	s.level = n
	if recompute {
		s.recompute()
	}
	s.publish(Change{Kind: ChangeLevel})
	return true
}

// SetExperience sets the current experience. It never levels the sheet.
func (s *Sheet) SetExperience(n int) bool {
	if n < 0 {
		return false
	}
	s.experience = n
	s.publish(Change{Kind: ChangeExperience})
	return true
}

// SetCurrentHP sets current hit points within [0, computedStats.hp].
func (s *Sheet) SetCurrentHP(n int) bool {
	if n < 0 || n > s.computed.HP {
		return false
	}
	s.currentHP = n
	s.publish(Change{Kind: ChangeHP})
	return true
}

// SetAccuracy overrides the GENA value.
func (s *Sheet) SetAccuracy(n int) bool {
	if n < stats.AccuracyMin || n > stats.AccuracyMax {
		return false
	}
	s.accuracy = n
	s.publish(Change{Kind: ChangeAccuracy})
	return true
}

// SetEvasion overrides the PA value.
func (s *Sheet) SetEvasion(n int) bool {
	if n < stats.EvasionMin || n > stats.EvasionMax {
		return false
	}
	s.evasion = n
	s.publish(Change{Kind: ChangeEvasion})
	return true
}

// SetStatOverride hand-edits one computed stat. Lowering hp below currentHp
// lowers currentHp with it.
func (s *Sheet) SetStatOverride(stat stats.Stat, v int) bool {
	if !stat.Valid() || v < 0 {
		return false
	}
	s.computed.Set(stat, v)
	if stat == stats.HP && s.currentHP > v {
		s.currentHP = v
	}
	s.publish(Change{Kind: ChangeStats, Stat: stat})
	return true
}

// SetStatChoices assigns both stat choices. When they are equal the secondary is
// rotated to the next stat in stats.CycleOrder.
func (s *Sheet) SetStatChoices(primary, secondary stats.Stat) bool {
	if !primary.Valid() || !secondary.Valid() {
		return false
	}
	if secondary == primary {
		secondary = stats.Next(primary)
	}
	s.primary, s.secondary = primary, secondary
	s.publish(Change{Kind: ChangeChoice})
	return true
}

// SetPrimaryStat assigns the primary choice, rotating the secondary on collision.
func (s *Sheet) SetPrimaryStat(p stats.Stat) bool {
	return s.SetStatChoices(p, s.secondary)
}

// SetSecondaryStat assigns the secondary choice, rotating it on collision.
func (s *Sheet) SetSecondaryStat(sec stats.Stat) bool {
	return s.SetStatChoices(s.primary, sec)
}

// SetSkillValue sets a category or skill value. name is matched against the
// vocabulary by canonical form. Setting the body-skill category recomputes movement.
func (s *Sheet) SetSkillValue(name string, v int) bool {
	key, ok := DefaultVocabulary.Resolve(name)
	if !ok || v < SkillMin || v > SkillMax {
		return false
	}
	s.skills[key] = v
	if key == BodySkill {
		s.recomputeMovement()
	}
	s.publish(Change{Kind: ChangeSkill, Field: key})
	return true
}

// SkillValue returns the value of a category or skill, 0 when unset or unknown.
func (s *Sheet) SkillValue(name string) int {
	key, ok := DefaultVocabulary.Resolve(name)
	if !ok {
		return 0
	}
	return s.skills[key]
}

// AddCustomSkill appends a player-defined skill to category.
func (s *Sheet) AddCustomSkill(category, name string, value int) bool {
	cat, ok := DefaultVocabulary.ResolveCategory(category)
	name = strings.TrimSpace(name)
	if !ok || name == "" || value < SkillMin || value > SkillMax {
		return false
	}
	s.custom[cat] = append(s.custom[cat], CustomSkill{Name: name, Value: value})
	s.publish(Change{Kind: ChangeCustomSkill, Field: cat})
	return true
}

// RemoveCustomSkill removes the custom skill at index in category.
func (s *Sheet) RemoveCustomSkill(category string, index int) bool {
	cat, ok := DefaultVocabulary.ResolveCategory(category)
	if !ok || index < 0 || index >= len(s.custom[cat]) {
		return false
	}
	list := s.custom[cat]
	s.custom[cat] = append(list[:index:index], list[index+1:]...)
	if len(s.custom[cat]) == 0 {
		delete(s.custom, cat)
	}
	s.publish(Change{Kind: ChangeCustomSkill, Field: cat})
	return true
}

// UpdateCustomSkill patches the custom skill at index in category. The whole
// patch is rejected if any field is invalid.
func (s *Sheet) UpdateCustomSkill(category string, index int, patch CustomSkillPatch) bool {
	cat, ok := DefaultVocabulary.ResolveCategory(category)
	if !ok || index < 0 || index >= len(s.custom[cat]) {
		return false
	}
	next := s.custom[cat][index]
	if patch.Name != nil {
		name := strings.TrimSpace(*patch.Name)
		if name == "" {
			return false
		}
		next.Name = name
	}
	if patch.Value != nil {
		if *patch.Value < SkillMin || *patch.Value > SkillMax {
			return false
		}
		next.Value = *patch.Value
	}
	s.custom[cat][index] = next
	s.publish(Change{Kind: ChangeCustomSkill, Field: cat})
	return true
}

// ModifyTemporaryStat adds delta to the temporary modifier of a modifiable stat.
func (s *Sheet) ModifyTemporaryStat(stat stats.Stat, delta int) bool {
	if !stat.IsModifiable() {
		return false
	}
	s.temp.Set(stat, s.temp.Get(stat)+delta)
	s.publish(Change{Kind: ChangeTemporary, Stat: stat})
	return true
}

// ResetTemporaryStat zeroes the temporary modifier of stat.
func (s *Sheet) ResetTemporaryStat(stat stats.Stat) bool {
	if !stat.IsModifiable() {
		return false
	}
	s.temp.Set(stat, 0)
	s.publish(Change{Kind: ChangeTemporary, Stat: stat})
	return true
}

// ResetAllTemporaryStats zeroes every temporary modifier.
func (s *Sheet) ResetAllTemporaryStats() {
	s.temp = stats.Modifiers{}
	s.publish(Change{Kind: ChangeTemporary})
}

// TemporaryModifier returns the temporary delta for stat; always 0 for hp and speed.
func (s *Sheet) TemporaryModifier(stat stats.Stat) int {
	return s.temp.Get(stat)
}

// EffectiveStat returns computedStats[stat] plus its temporary modifier.
//
// Precondition: stat.Valid().
func (s *Sheet) EffectiveStat(stat stats.Stat) int {
	return s.computed.Get(stat) + s.temp.Get(stat)
}

// EffectiveStats returns EffectiveStat for all six stats.
func (s *Sheet) EffectiveStats() stats.Block {
	var out stats.Block
	for _, st := range stats.All {
		out.Set(st, s.EffectiveStat(st))
	}
	return out
}

// SetWounds sets the wound count within [WoundsMin, WoundsMax].
func (s *Sheet) SetWounds(n int) bool {
	if n < WoundsMin || n > WoundsMax {
		return false
	}
	s.wounds = n
	s.publish(Change{Kind: ChangeWounds})
	return true
}

// ToggleStatusEffect flips membership of id and returns the new membership.
// An empty id is ignored and reports false.
func (s *Sheet) ToggleStatusEffect(id string) bool {
	id = strings.TrimSpace(id)
	if id == "" {
		return false
	}
	_, present := s.statuses[id]
	if present {
		delete(s.statuses, id)
	} else {
		s.statuses[id] = struct{}{}
	}
	s.publish(Change{Kind: ChangeStatus, Field: id})
	return !present
}

// HasStatusEffect reports whether id is active.
func (s *Sheet) HasStatusEffect(id string) bool {
	_, ok := s.statuses[strings.TrimSpace(id)]
	return ok
}

// AddFriendshipMark appends a mark.
func (s *Sheet) AddFriendshipMark(mark string) bool {
	if strings.TrimSpace(mark) == "" {
		return false
	}
	s.marks = append(s.marks, mark)
	s.publish(Change{Kind: ChangeFriendship})
	return true
}

// RemoveFriendshipMark removes the last mark.
func (s *Sheet) RemoveFriendshipMark() bool {
	if len(s.marks) == 0 {
		return false
	}
	s.marks = s.marks[:len(s.marks)-1]
	s.publish(Change{Kind: ChangeFriendship})
	return true
}

// EquipMove places the named move in slot. When the species has a move list the
// name must appear in it.
func (s *Sheet) EquipMove(slot int, name string) bool {
	name = strings.TrimSpace(name)
	if slot < 0 || slot >= MoveSlots || name == "" {
		return false
	}
	if len(s.moves) > 0 && !s.knowsMove(name) {
		return false
	}
	s.equipped[slot] = &EquippedMove{Name: name}
	s.publish(Change{Kind: ChangeMoves, Field: name})
	return true
}

func (s *Sheet) knowsMove(name string) bool {
	for _, m := range s.moves {
		if m.Name == name {
			return true
		}
	}
	return false
}

// SetMoveDescription sets the text override of an equipped move. Empty text
// removes the override.
func (s *Sheet) SetMoveDescription(slot int, text string) bool {
	if slot < 0 || slot >= MoveSlots || s.equipped[slot] == nil {
		return false
	}
	s.equipped[slot].CustomDescription = text
	s.publish(Change{Kind: ChangeMoves, Field: s.equipped[slot].Name})
	return true
}

// UnequipMove empties slot.
func (s *Sheet) UnequipMove(slot int) bool {
	if slot < 0 || slot >= MoveSlots || s.equipped[slot] == nil {
		return false
	}
	s.equipped[slot] = nil
	s.publish(Change{Kind: ChangeMoves})
	return true
}

// SetTextField sets the nickname or item text.
func (s *Sheet) SetTextField(field, value string) bool {
	switch field {
	case FieldNickname:
		s.text.Nickname = value
	case FieldItem:
		s.text.Item = value
	default:
		return false
	}
	s.publish(Change{Kind: ChangeText, Field: field})
	return true
}

// SetCustomDiceClass overrides the species dice class. An empty class removes
// the override.
func (s *Sheet) SetCustomDiceClass(c dice.Class) bool {
	if c != "" && !c.Valid() {
		return false
	}
	if c != "" {
		c = dice.Class(c.String())
	}
	s.customClass = c
	s.publish(Change{Kind: ChangeDiceClass})
	return true
}

// RequiredExperience returns level².
func (s *Sheet) RequiredExperience() int {
	return s.level * s.level
}

// CanLevelUp reports whether the level is below the cap and experience covers
// RequiredExperience.
func (s *Sheet) CanLevelUp() bool {
	return s.level < s.maxLevel && s.experience >= s.RequiredExperience()
}
