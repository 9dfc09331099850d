// Package sheet holds the derived-state model of one Pokémon character sheet:
// species-derived stats, level and experience, skills, moves, wounds, status
// effects, temporary modifiers and friendship marks. It also implements the
// level-up algorithm and the persisted record format.
package sheet

import (
	"sort"

	"github.com/cory-johannsen/pokesheet/internal/game/dice"
	"github.com/cory-johannsen/pokesheet/internal/game/species"
	"github.com/cory-johannsen/pokesheet/internal/game/stats"
)

// MoveSlots is the fixed number of equipped-move slots.
const MoveSlots = 4

// DefaultMaxLevel is used when Options.MaxLevel is zero.
const DefaultMaxLevel = 100

// Wound bounds.
const (
	WoundsMin = 0
	WoundsMax = 10
)

// Default stat choices for a fresh sheet.
const (
	DefaultPrimary   = stats.Attack
	DefaultSecondary = stats.Defense
)

// Text field names accepted by SetTextField.
const (
	FieldNickname = "nickname"
	FieldItem     = "item"
)

// Options configures a Sheet.
type Options struct {
	// Formulas derives stats; nil selects stats.DefaultFormulas.
	Formulas stats.Formulas
	// MaxLevel bounds the level; zero selects DefaultMaxLevel.
	MaxLevel int
}

// CustomSkill is one player-defined (name, value) pair.
type CustomSkill struct {
	Name  string `json:"name"`
	Value int    `json:"value"`
}

// CustomSkillPatch carries the fields UpdateCustomSkill replaces. Nil fields are kept.
type CustomSkillPatch struct {
	Name  *string
	Value *int
}

// EquippedMove is a move reference with an optional player-supplied text override.
type EquippedMove struct {
	Name              string `json:"name"`
	CustomDescription string `json:"customDescription,omitempty"`
}

// TextFields holds free text echoed back into input widgets.
type TextFields struct {
	Nickname string `json:"nickname,omitempty"`
	Item     string `json:"item,omitempty"`
}

// Sheet is the in-memory source of truth for one sheet while it is being edited.
//
// Sheet is not safe for concurrent use; callers serialize access.
type Sheet struct {
	formulas stats.Formulas
	maxLevel int

	speciesID   int
	speciesName string
	moves       []species.Move
	diceClass   dice.Class
	customClass dice.Class

	level      int
	experience int
	base       stats.Block
	computed   stats.Block
	currentHP  int
	accuracy   int
	evasion    int
	movement   int

	primary   stats.Stat
	secondary stats.Stat

	skills   map[string]int
	custom   map[string][]CustomSkill
	wounds   int
	statuses map[string]struct{}
	temp     stats.Modifiers
	marks    []string
	equipped [MoveSlots]*EquippedMove
	text     TextFields

	bus bus
}

// New returns an empty sheet with no species assigned.
func New(opts Options) *Sheet {
	s := &Sheet{formulas: opts.Formulas, maxLevel: opts.MaxLevel}
	if s.formulas == nil {
		s.formulas = stats.DefaultFormulas{}
	}
	if s.maxLevel <= 0 {
		s.maxLevel = DefaultMaxLevel
	}
	s.clear()
	return s
}

// CreateFresh builds a new sheet for sp at level 1 with freshly derived stats.
//
// Precondition: sp must be non-nil.
func CreateFresh(sp *species.Species, class dice.Class, opts Options) *Sheet {
	s := New(opts)
	s.CreateFresh(sp, class)
	return s
}

// Hydrate builds a sheet for sp from a persisted record.
//
// Precondition: sp must be non-nil.
func Hydrate(sp *species.Species, class dice.Class, rec Record, opts Options) (*Sheet, HydrateReport) {
	s := New(opts)
	report := s.Hydrate(sp, class, rec)
	return s, report
}

// HydrateReport lists persisted data Hydrate could not place.
type HydrateReport struct {
	DroppedSkillKeys        []string
	DroppedCustomCategories []string
}

// clear resets every field to the empty-sheet state.
func (s *Sheet) clear() {
	s.speciesID = 0
	s.speciesName = ""
	s.moves = nil
	s.diceClass = ""
	s.level = 1
	s.experience = 0
	s.base = stats.Block{}
	s.computed = stats.Block{}
	s.currentHP = 0
	s.accuracy = stats.AccuracyMin
	s.evasion = stats.EvasionMin
	s.movement = 1
	s.primary = DefaultPrimary
	s.secondary = DefaultSecondary
	s.resetTransient()
}

func (s *Sheet) resetTransient() {
	s.customClass = ""
	s.skills = make(map[string]int)
	s.custom = make(map[string][]CustomSkill)
	s.wounds = 0
	s.statuses = make(map[string]struct{})
	s.temp = stats.Modifiers{}
	s.marks = nil
	s.equipped = [MoveSlots]*EquippedMove{}
	s.text = TextFields{}
}

func (s *Sheet) applySpecies(sp *species.Species, class dice.Class) {
	s.speciesID = sp.ID
	s.speciesName = sp.Name
	s.base = sp.BaseStats
	s.moves = append([]species.Move(nil), sp.Moves...)
	s.diceClass = class
}

// CreateFresh replaces the whole sheet with a level-1 sheet for sp. Derived values
// come from the formulas and currentHp is set to the new maximum.
//
// Precondition: sp must be non-nil.
// Postcondition: computedStats.hp == formula(base.hp, 1) × 3 and currentHp == computedStats.hp.
func (s *Sheet) CreateFresh(sp *species.Species, class dice.Class) {
	s.clear()
	s.applySpecies(sp, class)
	s.recompute()
	s.currentHP = s.computed.HP
	s.publish(Change{Kind: ChangeFresh})
}

// Hydrate replaces the whole sheet with sp's species data and the persisted values
// of rec. computedStats, accuracy, evasion, movement and currentHp come from rec
// and are never recomputed. Records without stats get stats derived at rec's level;
// a decoded record missing one of the other four gets its formula value, and a
// missing currentHp is the maximum.
//
// Precondition: sp must be non-nil.
func (s *Sheet) Hydrate(sp *species.Species, class dice.Class, rec Record) HydrateReport {
	n, report := rec.Normalize(s.maxLevel)

	s.clear()
	s.applySpecies(sp, class)
	s.level = n.Level
	s.experience = n.CurrentExperience
	if n.Stats != nil {
		s.computed = *n.Stats
	} else {
		s.computed = stats.Compute(s.formulas, s.base, s.level)
	}
	s.skills = n.SkillValues
	s.custom = n.CustomSkills
	s.currentHP = stats.Clamp(n.CurrentHP, 0, s.computed.HP)
	if n.missing(derivedCurrentHP) {
		s.currentHP = s.computed.HP
	}
	bst := s.base.Total()
	s.accuracy = n.AccuracyValue
	if n.missing(derivedAccuracy) {
		s.accuracy = s.formulas.Accuracy(bst, s.base.Speed)
	}
	s.evasion = n.EvasionValue
	if n.missing(derivedEvasion) {
		s.evasion = s.formulas.Evasion(bst, s.base.Speed)
	}
	s.movement = n.MovementValue
	if n.missing(derivedMovement) {
		s.recomputeMovement()
	}
	s.primary = n.PrimaryStatChoice
	s.secondary = n.SecondaryStatChoice
	s.wounds = n.Wounds
	for _, id := range n.StatusEffects {
		s.statuses[id] = struct{}{}
	}
	s.temp = n.TemporaryModifiers
	s.marks = n.FriendshipMarks
	for i := 0; i < MoveSlots; i++ {
		s.equipped[i] = n.EquippedMoves[i]
	}
	s.text = n.TextFields
	s.customClass = n.DiceClass

	s.publish(Change{Kind: ChangeHydrated})
	return report
}

// SetSpecies stores sp's base stats, moves and the dice class. With recompute the
// derived values are rebuilt and currentHp set to the new maximum; without it the
// derived values are left exactly as they are.
//
// Precondition: sp must be non-nil.
func (s *Sheet) SetSpecies(sp *species.Species, class dice.Class, recompute bool) {
	s.applySpecies(sp, class)
	if recompute {
		s.recompute()
		s.currentHP = s.computed.HP
	}
	s.publish(Change{Kind: ChangeSpecies})
}

// RecomputeDerivedStats rebuilds computedStats, accuracy, evasion and movement from
// base stats and level. currentHp is only lowered when it exceeds the new maximum.
func (s *Sheet) RecomputeDerivedStats() {
	s.recompute()
	s.publish(Change{Kind: ChangeStats})
}

func (s *Sheet) recompute() {
	s.computed = stats.Compute(s.formulas, s.base, s.level)
	bst := s.base.Total()
	s.accuracy = s.formulas.Accuracy(bst, s.base.Speed)
	s.evasion = s.formulas.Evasion(bst, s.base.Speed)
	s.recomputeMovement()
	if s.currentHP > s.computed.HP {
		s.currentHP = s.computed.HP
	}
}

func (s *Sheet) recomputeMovement() {
	s.movement = s.formulas.Movement(s.base.Speed, s.base.Total(), s.skills[BodySkill])
}

// ResetTransient returns friendship marks, skill values, custom skills, status
// effects, temporary modifiers, wounds, equipped moves, text fields and the custom
// dice-class override to their defaults.
func (s *Sheet) ResetTransient() {
	s.resetTransient()
	s.publish(Change{Kind: ChangeReset})
}

// Clear returns the sheet to the empty, species-less state.
func (s *Sheet) Clear() {
	s.clear()
	s.publish(Change{Kind: ChangeCleared})
}

// HasSpecies reports whether a species is assigned.
func (s *Sheet) HasSpecies() bool { return s.speciesID != 0 }

// SpeciesID returns the assigned species id, or 0.
func (s *Sheet) SpeciesID() int { return s.speciesID }

// SpeciesName returns the assigned species name.
func (s *Sheet) SpeciesName() string { return s.speciesName }

// Moves returns the learnable moves of the assigned species.
func (s *Sheet) Moves() []species.Move { return append([]species.Move(nil), s.moves...) }

// MaxLevel returns the level cap.
func (s *Sheet) MaxLevel() int { return s.maxLevel }

// Level returns the current level.
func (s *Sheet) Level() int { return s.level }

// Experience returns the current experience.
func (s *Sheet) Experience() int { return s.experience }

// BaseStats returns the species base stats.
func (s *Sheet) BaseStats() stats.Block { return s.base }

// ComputedStats returns the derived stat block, excluding temporary modifiers.
func (s *Sheet) ComputedStats() stats.Block { return s.computed }

// CurrentHP returns the current hit points.
func (s *Sheet) CurrentHP() int { return s.currentHP }

// Accuracy returns the GENA value.
func (s *Sheet) Accuracy() int { return s.accuracy }

// Evasion returns the PA value.
func (s *Sheet) Evasion() int { return s.evasion }

// Movement returns the movement value.
func (s *Sheet) Movement() int { return s.movement }

// PrimaryStat returns the primary stat choice.
func (s *Sheet) PrimaryStat() stats.Stat { return s.primary }

// SecondaryStat returns the secondary stat choice.
func (s *Sheet) SecondaryStat() stats.Stat { return s.secondary }

// Wounds returns the wound count.
func (s *Sheet) Wounds() int { return s.wounds }

// TextFields returns the free-text fields.
func (s *Sheet) TextFields() TextFields { return s.text }

// SpeciesDiceClass returns the class assigned by the classifier.
func (s *Sheet) SpeciesDiceClass() dice.Class { return s.diceClass }

// DiceClass returns the class used for level-ups: the custom override when set,
// the species class otherwise.
func (s *Sheet) DiceClass() dice.Class {
	if s.customClass != "" {
		return s.customClass
	}
	return s.diceClass
}

// SkillValues returns a copy of the skill value map.
func (s *Sheet) SkillValues() map[string]int {
	out := make(map[string]int, len(s.skills))
	for k, v := range s.skills {
		out[k] = v
	}
	return out
}

// CustomSkills returns a copy of the custom skills of category.
func (s *Sheet) CustomSkills(category string) []CustomSkill {
	c, ok := DefaultVocabulary.ResolveCategory(category)
	if !ok {
		return nil
	}
	return append([]CustomSkill(nil), s.custom[c]...)
}

// StatusEffects returns the active status ids in sorted order.
func (s *Sheet) StatusEffects() []string {
	out := make([]string, 0, len(s.statuses))
	for id := range s.statuses {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

// FriendshipMarks returns a copy of the friendship marks.
func (s *Sheet) FriendshipMarks() []string {
	return append([]string(nil), s.marks...)
}

// EquippedMoves returns a copy of the equipped-move slots; empty slots are nil.
func (s *Sheet) EquippedMoves() [MoveSlots]*EquippedMove {
	var out [MoveSlots]*EquippedMove
	for i, m := range s.equipped {
		if m != nil {
			cp := *m
			out[i] = &cp
		}
	}
	return out
}
