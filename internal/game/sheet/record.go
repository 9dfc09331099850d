package sheet

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/cory-johannsen/pokesheet/internal/game/dice"
	"github.com/cory-johannsen/pokesheet/internal/game/stats"
)

// Record is the persisted form of a Sheet. Its JSON encoding is the storage
// contract; every backend stores the encoded bytes verbatim.
type Record struct {
	SpeciesID           int                      `json:"speciesId"`
	Level               int                      `json:"level"`
	CurrentExperience   int                      `json:"currentExperience"`
	Stats               *stats.Block             `json:"stats,omitempty"`
	CurrentHP           int                      `json:"currentHp"`
	AccuracyValue       int                      `json:"accuracyValue"`
	EvasionValue        int                      `json:"evasionValue"`
	MovementValue       int                      `json:"movementValue"`
	PrimaryStatChoice   stats.Stat               `json:"primaryStatChoice"`
	SecondaryStatChoice stats.Stat               `json:"secondaryStatChoice"`
	SkillValues         map[string]int           `json:"skillValues"`
	CustomSkills        map[string][]CustomSkill `json:"customSkills"`
	Wounds              int                      `json:"wounds"`
	StatusEffects       []string                 `json:"statusEffects"`
	TemporaryModifiers  stats.Modifiers          `json:"temporaryModifiers"`
	FriendshipMarks     []string                 `json:"friendshipMarks"`
	EquippedMoves       []*EquippedMove          `json:"equippedMoves"`
	TextFields          TextFields               `json:"textFields"`
	DiceClass           dice.Class               `json:"diceClass,omitempty"`

	// absent lists derived values missing from the decoded document.
	absent derivedField
}

// derivedField is a set of persisted values Hydrate derives when absent.
type derivedField uint8

const (
	derivedCurrentHP derivedField = 1 << iota
	derivedAccuracy
	derivedEvasion
	derivedMovement
)

var derivedKeys = map[string]derivedField{
	"currentHp":     derivedCurrentHP,
	"accuracyValue": derivedAccuracy,
	"evasionValue":  derivedEvasion,
	"movementValue": derivedMovement,
}

func (r Record) missing(f derivedField) bool { return r.absent&f != 0 }

// Record serialises the sheet. Status effects are sorted and skill keys are in
// canonical form.
func (s *Sheet) Record() Record {
	computed := s.computed
	rec := Record{
		SpeciesID:           s.speciesID,
		Level:               s.level,
		CurrentExperience:   s.experience,
		Stats:               &computed,
		CurrentHP:           s.currentHP,
		AccuracyValue:       s.accuracy,
		EvasionValue:        s.evasion,
		MovementValue:       s.movement,
		PrimaryStatChoice:   s.primary,
		SecondaryStatChoice: s.secondary,
		SkillValues:         s.SkillValues(),
		CustomSkills:        make(map[string][]CustomSkill, len(s.custom)),
		Wounds:              s.wounds,
		StatusEffects:       s.StatusEffects(),
		TemporaryModifiers:  s.temp,
		FriendshipMarks:     append([]string{}, s.marks...),
		EquippedMoves:       make([]*EquippedMove, MoveSlots),
		TextFields:          s.text,
		DiceClass:           s.customClass,
	}
	for cat, list := range s.custom {
		rec.CustomSkills[cat] = append([]CustomSkill(nil), list...)
	}
	for i, m := range s.EquippedMoves() {
		rec.EquippedMoves[i] = m
	}
	return rec
}

// Marshal encodes r as JSON.
func (r Record) Marshal() ([]byte, error) {
	data, err := json.Marshal(r)
	if err != nil {
		return nil, fmt.Errorf("encoding sheet record: %w", err)
	}
	return data, nil
}

// DecodeRecord parses a persisted record. Unknown fields are ignored and absent
// fields decode to their zero value; call Normalize to apply defaults. An absent
// or null currentHp, accuracyValue, evasionValue or movementValue is remembered
// so Hydrate derives it.
func DecodeRecord(data []byte) (Record, error) {
	var r Record
	if err := json.Unmarshal(data, &r); err != nil {
		return Record{}, fmt.Errorf("decoding sheet record: %w", err)
	}
	var keys map[string]json.RawMessage
	if err := json.Unmarshal(data, &keys); err != nil {
		return Record{}, fmt.Errorf("decoding sheet record: %w", err)
	}
	for key, f := range derivedKeys {
		if raw, ok := keys[key]; !ok || string(raw) == "null" {
			r.absent |= f
		}
	}
	return r, nil
}

// Clone returns a deep copy of r.
func (r Record) Clone() Record {
	out := r
	if r.Stats != nil {
		st := *r.Stats
		out.Stats = &st
	}
	if r.SkillValues != nil {
		out.SkillValues = make(map[string]int, len(r.SkillValues))
		for k, v := range r.SkillValues {
			out.SkillValues[k] = v
		}
	}
	if r.CustomSkills != nil {
		out.CustomSkills = make(map[string][]CustomSkill, len(r.CustomSkills))
		for k, v := range r.CustomSkills {
			out.CustomSkills[k] = append([]CustomSkill(nil), v...)
		}
	}
	out.StatusEffects = append([]string(nil), r.StatusEffects...)
	out.FriendshipMarks = append([]string(nil), r.FriendshipMarks...)
	if r.EquippedMoves != nil {
		out.EquippedMoves = make([]*EquippedMove, len(r.EquippedMoves))
		for i, m := range r.EquippedMoves {
			if m != nil {
				cp := *m
				out.EquippedMoves[i] = &cp
			}
		}
	}
	return out
}

// Normalize returns a copy of r with defaults applied to absent or out-of-range
// values, skill keys resolved against the vocabulary, and every collection
// non-nil. Keys that resolve to nothing are dropped and listed in the report.
//
// Precondition: maxLevel >= 1.
func (r Record) Normalize(maxLevel int) (Record, HydrateReport) {
	n := r.Clone()
	var report HydrateReport

	n.Level = stats.Clamp(n.Level, 1, maxLevel)
	if n.CurrentExperience < 0 {
		n.CurrentExperience = 0
	}
	if n.Stats != nil {
		for _, st := range stats.All {
			if n.Stats.Get(st) < 0 {
				n.Stats.Set(st, 0)
			}
		}
		n.CurrentHP = stats.Clamp(n.CurrentHP, 0, n.Stats.HP)
	} else if n.CurrentHP < 0 {
		n.CurrentHP = 0
	}
	n.AccuracyValue = stats.Clamp(n.AccuracyValue, stats.AccuracyMin, stats.AccuracyMax)
	n.EvasionValue = stats.Clamp(n.EvasionValue, stats.EvasionMin, stats.EvasionMax)
	if n.MovementValue < 1 {
		n.MovementValue = 1
	}

	if !n.PrimaryStatChoice.Valid() {
		n.PrimaryStatChoice = DefaultPrimary
	}
	if !n.SecondaryStatChoice.Valid() {
		n.SecondaryStatChoice = DefaultSecondary
	}
	if n.SecondaryStatChoice == n.PrimaryStatChoice {
		n.SecondaryStatChoice = stats.Next(n.PrimaryStatChoice)
	}

	n.SkillValues, report.DroppedSkillKeys = normalizeSkills(r.SkillValues)
	n.CustomSkills, report.DroppedCustomCategories = normalizeCustom(r.CustomSkills)

	n.Wounds = stats.Clamp(n.Wounds, WoundsMin, WoundsMax)
	n.StatusEffects = normalizeStatuses(r.StatusEffects)

	marks := make([]string, 0, len(n.FriendshipMarks))
	for _, m := range n.FriendshipMarks {
		if strings.TrimSpace(m) != "" {
			marks = append(marks, m)
		}
	}
	n.FriendshipMarks = marks

	moves := make([]*EquippedMove, MoveSlots)
	for i := 0; i < MoveSlots && i < len(n.EquippedMoves); i++ {
		if m := n.EquippedMoves[i]; m != nil && strings.TrimSpace(m.Name) != "" {
			moves[i] = m
		}
	}
	n.EquippedMoves = moves

	if n.DiceClass != "" {
		if n.DiceClass.Valid() {
			n.DiceClass = dice.Class(n.DiceClass.String())
		} else {
			n.DiceClass = ""
		}
	}
	return n, report
}

// normalizeSkills resolves keys in sorted source order so that duplicates created
// by differing encodings collapse deterministically, exact matches taking precedence.
func normalizeSkills(in map[string]int) (map[string]int, []string) {
	out := make(map[string]int, len(in))
	exact := make(map[string]bool, len(in))
	var dropped []string
	keys := make([]string, 0, len(in))
	for k := range in {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		resolved, ok := DefaultVocabulary.Resolve(k)
		if !ok {
			dropped = append(dropped, k)
			continue
		}
		isExact := Canonical(k) == resolved
		if exact[resolved] && !isExact {
			continue
		}
		out[resolved] = stats.Clamp(in[k], SkillMin, SkillMax)
		exact[resolved] = exact[resolved] || isExact
	}
	return out, dropped
}

func normalizeCustom(in map[string][]CustomSkill) (map[string][]CustomSkill, []string) {
	out := make(map[string][]CustomSkill, len(in))
	var dropped []string
	cats := make([]string, 0, len(in))
	for c := range in {
		cats = append(cats, c)
	}
	sort.Strings(cats)
	for _, c := range cats {
		cat, ok := DefaultVocabulary.ResolveCategory(c)
		if !ok {
			dropped = append(dropped, c)
			continue
		}
		for _, cs := range in[c] {
			name := strings.TrimSpace(cs.Name)
			if name == "" {
				continue
			}
			out[cat] = append(out[cat], CustomSkill{Name: name, Value: stats.Clamp(cs.Value, SkillMin, SkillMax)})
		}
	}
	return out, dropped
}

func normalizeStatuses(in []string) []string {
	seen := make(map[string]bool, len(in))
	out := make([]string, 0, len(in))
	for _, id := range in {
		id = strings.TrimSpace(id)
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}
