package sheet

import (
	"errors"
	"fmt"

	"github.com/cory-johannsen/pokesheet/internal/game/dice"
	"github.com/cory-johannsen/pokesheet/internal/game/stats"
)

// ErrNotEligible is returned by LevelUp when CanLevelUp is false.
var ErrNotEligible = errors.New("sheet: not eligible to level up")

// ErrNoDiceClass is returned by LevelUp when the sheet has no resolvable dice class.
var ErrNoDiceClass = errors.New("sheet: no dice class assigned")

// Roller is the randomness LevelUp consumes. *dice.Roller satisfies it.
type Roller interface {
	Roll(expr dice.Expression) dice.RollResult
	Pick(n int) int
}

// StatRoll records one applied level-up roll.
type StatRoll struct {
	Stat stats.Stat
	Raw  int // dice total before hp scaling
	Dice []int
	Old  int
	New  int
}

// Increment returns the amount actually added to the stat.
func (r StatRoll) Increment() int { return r.New - r.Old }

// LevelUpReport describes one completed level-up.
type LevelUpReport struct {
	Level               int
	RemainingExperience int
	NextRequired        int
	Rolls               [2]StatRoll
	// UsedSecondary is true when the random stat landed on the primary choice and
	// the second roll went to the secondary choice.
	UsedSecondary bool
}

// LevelUp consumes RequiredExperience, raises the level by one, and grows two
// distinct stats:
//  1. two rolls are drawn with the dice class;
//  2. roll #1 goes to a stat R picked uniformly from the six;
//  3. roll #2 goes to the primary choice, or to the secondary when R is the primary.
//
// hp grows by roll × stats.HPMultiplier. currentHp is restored to the new maximum.
//
// Precondition: roller must be non-nil.
// Postcondition: on ErrNotEligible or ErrNoDiceClass the sheet is unchanged.
func (s *Sheet) LevelUp(roller Roller) (LevelUpReport, error) {
	if !s.CanLevelUp() {
		return LevelUpReport{}, ErrNotEligible
	}
	class := s.DiceClass()
	if class == "" {
		return LevelUpReport{}, ErrNoDiceClass
	}
	expr, err := class.Expression()
	if err != nil {
		return LevelUpReport{}, fmt.Errorf("%w: %w", ErrNoDiceClass, err)
	}

	s.experience -= s.RequiredExperience()
	s.level++

	first := roller.Roll(expr)
	second := roller.Roll(expr)

	r := stats.All[roller.Pick(len(stats.All))]
	target := s.primary
	usedSecondary := r == s.primary
	if usedSecondary {
		target = s.secondary
	}

	report := LevelUpReport{UsedSecondary: usedSecondary}
	report.Rolls[0] = s.applyRoll(r, first)
	report.Rolls[1] = s.applyRoll(target, second)
	s.currentHP = s.computed.HP

	report.Level = s.level
	report.RemainingExperience = s.experience
	report.NextRequired = s.RequiredExperience()
	s.publish(Change{Kind: ChangeLevelUp})
	return report, nil
}

func (s *Sheet) applyRoll(stat stats.Stat, roll dice.RollResult) StatRoll {
	raw := roll.Total()
	inc := raw
	if stat == stats.HP {
		inc *= stats.HPMultiplier
	}
	old := s.computed.Get(stat)
	return StatRoll{
		Stat: stat,
		Raw:  raw,
		Dice: roll.Dice,
		Old:  old,
		New:  s.computed.Add(stat, inc),
	}
}

// LevelUpAll levels up while eligible and returns one report per level gained.
//
// Postcondition: returns ErrNotEligible with no reports when no level-up was possible.
func (s *Sheet) LevelUpAll(roller Roller) ([]LevelUpReport, error) {
	var reports []LevelUpReport
	for s.CanLevelUp() {
		r, err := s.LevelUp(roller)
		if err != nil {
			return reports, err
		}
		reports = append(reports, r)
	}
	if len(reports) == 0 {
		return nil, ErrNotEligible
	}
	return reports, nil
}
