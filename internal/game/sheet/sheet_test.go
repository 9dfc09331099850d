package sheet_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/text/unicode/norm"
	"pgregory.net/rapid"

	"github.com/cory-johannsen/pokesheet/internal/game/dice"
	"github.com/cory-johannsen/pokesheet/internal/game/sheet"
	"github.com/cory-johannsen/pokesheet/internal/game/species"
	"github.com/cory-johannsen/pokesheet/internal/game/stats"
)

func TestNew_EmptySheet(t *testing.T) {
	s := sheet.New(sheet.Options{})
	assert.False(t, s.HasSpecies())
	assert.Equal(t, 1, s.Level())
	assert.Equal(t, sheet.DefaultMaxLevel, s.MaxLevel())
	assert.Equal(t, stats.Attack, s.PrimaryStat())
	assert.Equal(t, stats.Defense, s.SecondaryStat())
	assert.Empty(t, s.StatusEffects())
}

func TestCreateFresh_DerivesStats(t *testing.T) {
	s := fresh()
	f := stats.DefaultFormulas{}
	assert.Equal(t, 1, s.SpeciesID())
	assert.Equal(t, "bulbasaur", s.SpeciesName())
	assert.Equal(t, 1, s.Level())
	assert.Equal(t, 0, s.Experience())
	assert.Equal(t, f.Stat(45, 1)*3, s.ComputedStats().HP)
	assert.Equal(t, s.ComputedStats().HP, s.CurrentHP())
	assert.Equal(t, 6, s.Accuracy())
	assert.Equal(t, 5, s.Evasion())
	assert.Equal(t, 3, s.Movement())
	assert.Equal(t, dice.Class("2d8"), s.DiceClass())
	assert.Len(t, s.Moves(), 2)
}

func TestCreateFresh_ReplacesPreviousState(t *testing.T) {
	s := fresh()
	require.True(t, s.SetWounds(4))
	require.True(t, s.AddFriendshipMark("♥"))
	require.True(t, s.SetSkillValue("Mente", 2))
	s.CreateFresh(mewtwo(), "2d12")
	assert.Equal(t, 0, s.Wounds())
	assert.Empty(t, s.FriendshipMarks())
	assert.Equal(t, 0, s.SkillValue("Mente"))
	assert.Equal(t, 150, s.SpeciesID())
	assert.Equal(t, 9, s.Accuracy())
}

func TestRecomputeDerivedStats_Property(t *testing.T) {
	f := stats.DefaultFormulas{}
	rapid.Check(t, func(rt *rapid.T) {
		sp := &species.Species{ID: 1, Name: "x"}
		for _, st := range stats.All {
			sp.BaseStats.Set(st, rapid.IntRange(1, 255).Draw(rt, string(st)))
		}
		level := rapid.IntRange(1, 100).Draw(rt, "level")

		s := sheet.CreateFresh(sp, "1d6", sheet.Options{})
		require.True(rt, s.SetLevel(level, true))
		assert.Equal(rt, f.Stat(sp.BaseStats.HP, level)*3, s.ComputedStats().HP)

		s2 := sheet.New(sheet.Options{})
		s2.SetSpecies(sp, "1d6", true)
		assert.Equal(rt, f.Stat(sp.BaseStats.HP, 1)*3, s2.ComputedStats().HP)
		assert.Equal(rt, s2.ComputedStats().HP, s2.CurrentHP())
	})
}

func TestRecomputeDerivedStats_NeverRaisesCurrentHP(t *testing.T) {
	s := fresh()
	require.True(t, s.SetCurrentHP(3))
	require.True(t, s.SetLevel(50, true))
	s.RecomputeDerivedStats()
	assert.Equal(t, 3, s.CurrentHP())
}

func TestSetSpecies_WithoutRecomputeKeepsDerived(t *testing.T) {
	s := fresh()
	require.True(t, s.SetStatOverride(stats.Attack, 77))
	before := s.ComputedStats()
	acc, eva, mov := s.Accuracy(), s.Evasion(), s.Movement()

	s.SetSpecies(mewtwo(), "2d12", false)
	assert.Equal(t, before, s.ComputedStats())
	assert.Equal(t, acc, s.Accuracy())
	assert.Equal(t, eva, s.Evasion())
	assert.Equal(t, mov, s.Movement())
	assert.Equal(t, mewtwo().BaseStats, s.BaseStats())
}

func TestSetLevel_Bounds(t *testing.T) {
	s := sheet.CreateFresh(bulbasaur(), "2d8", sheet.Options{MaxLevel: 20})
	assert.False(t, s.SetLevel(0, true))
	assert.False(t, s.SetLevel(21, true))
	assert.True(t, s.SetLevel(20, false))
	assert.Equal(t, 20, s.Level())
	assert.Equal(t, stats.DefaultFormulas{}.Stat(45, 1)*3, s.ComputedStats().HP, "no recompute requested")
}

func TestSetExperience_NeverLevels(t *testing.T) {
	s := fresh()
	assert.False(t, s.SetExperience(-1))
	assert.True(t, s.SetExperience(10_000))
	assert.Equal(t, 1, s.Level())
	assert.True(t, s.CanLevelUp())
}

func TestRequiredExperience_IsLevelSquared(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		level := rapid.IntRange(1, 100).Draw(rt, "level")
		s := fresh()
		require.True(rt, s.SetLevel(level, false))
		assert.Equal(rt, level*level, s.RequiredExperience())
	})
}

func TestCanLevelUp_FalseAtMaxLevel(t *testing.T) {
	s := sheet.CreateFresh(bulbasaur(), "2d8", sheet.Options{MaxLevel: 10})
	require.True(t, s.SetLevel(10, false))
	require.True(t, s.SetExperience(1000))
	assert.False(t, s.CanLevelUp())
}

func TestSetCurrentHP_Bounds(t *testing.T) {
	s := fresh()
	maxHP := s.ComputedStats().HP
	assert.False(t, s.SetCurrentHP(-1))
	assert.False(t, s.SetCurrentHP(maxHP+1))
	assert.True(t, s.SetCurrentHP(0))
	assert.True(t, s.SetCurrentHP(maxHP))
}

func TestAccuracyEvasionOverrides(t *testing.T) {
	s := fresh()
	assert.False(t, s.SetAccuracy(0))
	assert.False(t, s.SetAccuracy(13))
	assert.True(t, s.SetAccuracy(12))
	assert.False(t, s.SetEvasion(0))
	assert.True(t, s.SetEvasion(1))
	assert.Equal(t, 12, s.Accuracy())
	assert.Equal(t, 1, s.Evasion())
}

func TestSetStatOverride_LowersCurrentHP(t *testing.T) {
	s := fresh()
	assert.False(t, s.SetStatOverride(stats.HP, -1))
	assert.False(t, s.SetStatOverride("luck", 3))
	require.True(t, s.SetStatOverride(stats.HP, 4))
	assert.Equal(t, 4, s.CurrentHP())
}

func TestStatChoices_RotateOnCollision(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		x := rapid.SampledFrom(stats.All[:]).Draw(rt, "x")
		s := fresh()
		require.True(rt, s.SetStatChoices(x, x))
		assert.Equal(rt, x, s.PrimaryStat())
		assert.Equal(rt, stats.Next(x), s.SecondaryStat())
		assert.NotEqual(rt, s.PrimaryStat(), s.SecondaryStat())
	})
}

func TestStatChoices_SingleSetters(t *testing.T) {
	s := fresh()
	require.True(t, s.SetPrimaryStat(stats.Defense))
	assert.Equal(t, stats.Defense, s.PrimaryStat())
	assert.Equal(t, stats.SpAttack, s.SecondaryStat())

	require.True(t, s.SetSecondaryStat(stats.Defense))
	assert.Equal(t, stats.SpAttack, s.SecondaryStat())

	require.True(t, s.SetSecondaryStat(stats.HP))
	assert.Equal(t, stats.HP, s.SecondaryStat())
	assert.False(t, s.SetPrimaryStat("luck"))
}

func TestSetSkillValue_BoundsAndCanonicalKeys(t *testing.T) {
	s := fresh()
	assert.False(t, s.SetSkillValue("Mente", 10))
	assert.False(t, s.SetSkillValue("Mente", -10))
	assert.False(t, s.SetSkillValue("Culinária", 1))
	assert.True(t, s.SetSkillValue(norm.NFD.String("Lógica"), -9))
	assert.Equal(t, -9, s.SkillValue("Lógica"))
	assert.Equal(t, -9, s.SkillValue("logica"))
	_, nfdStored := s.SkillValues()[norm.NFD.String("Lógica")]
	assert.False(t, nfdStored)
}

func TestSetSkillValue_BodySkillRecomputesMovement(t *testing.T) {
	s := fresh()
	require.Equal(t, 3, s.Movement())
	require.True(t, s.SetSkillValue("Físico", 9))
	assert.Equal(t, 6, s.Movement())
	require.True(t, s.SetSkillValue("Atletismo", 9))
	assert.Equal(t, 6, s.Movement(), "individual skills do not feed movement")
}

func TestCustomSkills_CRUD(t *testing.T) {
	s := fresh()
	assert.False(t, s.AddCustomSkill("Culinária", "bake", 1))
	assert.False(t, s.AddCustomSkill("Atletismo", "climb", 1), "skills are not categories")
	assert.False(t, s.AddCustomSkill("Mente", " ", 1))
	assert.False(t, s.AddCustomSkill("Mente", "chess", 12))
	require.True(t, s.AddCustomSkill("Mente", "chess", 3))
	require.True(t, s.AddCustomSkill("mente", "go", 1))
	assert.Equal(t, []sheet.CustomSkill{{Name: "chess", Value: 3}, {Name: "go", Value: 1}}, s.CustomSkills("Mente"))

	name, bad, good := "xadrez", 40, -2
	assert.False(t, s.UpdateCustomSkill("Mente", 2, sheet.CustomSkillPatch{Name: &name}))
	assert.False(t, s.UpdateCustomSkill("Mente", 0, sheet.CustomSkillPatch{Name: &name, Value: &bad}))
	assert.Equal(t, "chess", s.CustomSkills("Mente")[0].Name, "rejected patch leaves state unchanged")
	require.True(t, s.UpdateCustomSkill("Mente", 0, sheet.CustomSkillPatch{Name: &name, Value: &good}))
	assert.Equal(t, sheet.CustomSkill{Name: "xadrez", Value: -2}, s.CustomSkills("Mente")[0])

	assert.False(t, s.RemoveCustomSkill("Mente", -1))
	require.True(t, s.RemoveCustomSkill("Mente", 0))
	assert.Equal(t, []sheet.CustomSkill{{Name: "go", Value: 1}}, s.CustomSkills("Mente"))
	require.True(t, s.RemoveCustomSkill("Mente", 0))
	assert.Empty(t, s.CustomSkills("Mente"))
}

func TestTemporaryModifiers(t *testing.T) {
	s := fresh()
	atk := s.ComputedStats().Attack
	assert.False(t, s.ModifyTemporaryStat(stats.HP, 2))
	assert.False(t, s.ModifyTemporaryStat(stats.Speed, 2))
	require.True(t, s.ModifyTemporaryStat(stats.Attack, 2))
	require.True(t, s.ModifyTemporaryStat(stats.Attack, 1))
	assert.Equal(t, 3, s.TemporaryModifier(stats.Attack))
	assert.Equal(t, atk+3, s.EffectiveStat(stats.Attack))
	assert.Equal(t, atk, s.ComputedStats().Attack, "modifiers never fold into computed stats")
	assert.Equal(t, s.ComputedStats().HP, s.EffectiveStat(stats.HP))

	require.True(t, s.ModifyTemporaryStat(stats.SpDefense, -2))
	require.True(t, s.ResetTemporaryStat(stats.Attack))
	assert.Equal(t, 0, s.TemporaryModifier(stats.Attack))
	assert.Equal(t, -2, s.TemporaryModifier(stats.SpDefense))
	s.ResetAllTemporaryStats()
	assert.Equal(t, s.ComputedStats(), s.EffectiveStats())
}

func TestSetWounds_Example(t *testing.T) {
	s := fresh()
	assert.False(t, s.SetWounds(11))
	assert.False(t, s.SetWounds(-1))
	assert.True(t, s.SetWounds(0))
	assert.True(t, s.SetWounds(10))
	assert.Equal(t, 10, s.Wounds())
}

func TestToggleStatusEffect_TwiceRestores(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		s := fresh()
		initial := rapid.SliceOfDistinct(rapid.StringMatching(`[a-z]{1,8}`), func(v string) string { return v }).Draw(rt, "initial")
		for _, id := range initial {
			s.ToggleStatusEffect(id)
		}
		id := rapid.StringMatching(`[a-z]{1,8}`).Draw(rt, "id")
		was := s.HasStatusEffect(id)
		assert.Equal(rt, !was, s.ToggleStatusEffect(id))
		assert.Equal(rt, was, s.ToggleStatusEffect(id))
		assert.Equal(rt, was, s.HasStatusEffect(id))
	})
}

func TestFriendshipMarks_RemoveFromEnd(t *testing.T) {
	s := fresh()
	assert.False(t, s.RemoveFriendshipMark())
	assert.False(t, s.AddFriendshipMark(""))
	require.True(t, s.AddFriendshipMark("a"))
	require.True(t, s.AddFriendshipMark("b"))
	require.True(t, s.RemoveFriendshipMark())
	assert.Equal(t, []string{"a"}, s.FriendshipMarks())
}

func TestEquippedMoves(t *testing.T) {
	s := fresh()
	assert.False(t, s.EquipMove(sheet.MoveSlots, "tackle"))
	assert.False(t, s.EquipMove(0, "hyper-beam"), "unknown to species")
	require.True(t, s.EquipMove(0, "tackle"))
	require.True(t, s.SetMoveDescription(0, "hits hard"))
	assert.False(t, s.SetMoveDescription(1, "empty slot"))

	moves := s.EquippedMoves()
	require.NotNil(t, moves[0])
	assert.Equal(t, sheet.EquippedMove{Name: "tackle", CustomDescription: "hits hard"}, *moves[0])
	assert.Nil(t, moves[1])

	moves[0].Name = "mutated"
	assert.Equal(t, "tackle", s.EquippedMoves()[0].Name)

	require.True(t, s.UnequipMove(0))
	assert.False(t, s.UnequipMove(0))

	bare := sheet.CreateFresh(&species.Species{ID: 9, Name: "bare"}, "1d6", sheet.Options{})
	assert.True(t, bare.EquipMove(2, "anything"), "species without move data accepts any name")
}

func TestTextFields(t *testing.T) {
	s := fresh()
	assert.False(t, s.SetTextField("notes", "x"))
	require.True(t, s.SetTextField(sheet.FieldNickname, "Bulba"))
	require.True(t, s.SetTextField(sheet.FieldItem, "Leftovers"))
	assert.Equal(t, sheet.TextFields{Nickname: "Bulba", Item: "Leftovers"}, s.TextFields())
}

func TestCustomDiceClass(t *testing.T) {
	s := fresh()
	assert.False(t, s.SetCustomDiceClass("lots"))
	require.True(t, s.SetCustomDiceClass("1×d12"))
	assert.Equal(t, dice.Class("1d12"), s.DiceClass())
	assert.Equal(t, dice.Class("2d8"), s.SpeciesDiceClass())
	require.True(t, s.SetCustomDiceClass(""))
	assert.Equal(t, dice.Class("2d8"), s.DiceClass())
}

func TestResetTransient(t *testing.T) {
	s := fresh()
	require.True(t, s.AddFriendshipMark("a"))
	require.True(t, s.SetSkillValue("Foco", 2))
	require.True(t, s.AddCustomSkill("Mente", "chess", 1))
	s.ToggleStatusEffect("burn")
	require.True(t, s.ModifyTemporaryStat(stats.Defense, 1))
	require.True(t, s.SetWounds(3))
	require.True(t, s.EquipMove(1, "tackle"))
	require.True(t, s.SetTextField(sheet.FieldNickname, "n"))
	require.True(t, s.SetCustomDiceClass("1d4"))
	require.True(t, s.SetLevel(7, true))

	s.ResetTransient()
	assert.Empty(t, s.FriendshipMarks())
	assert.Empty(t, s.SkillValues())
	assert.Empty(t, s.CustomSkills("Mente"))
	assert.Empty(t, s.StatusEffects())
	assert.Equal(t, 0, s.TemporaryModifier(stats.Defense))
	assert.Equal(t, 0, s.Wounds())
	assert.Nil(t, s.EquippedMoves()[1])
	assert.Equal(t, sheet.TextFields{}, s.TextFields())
	assert.Equal(t, dice.Class("2d8"), s.DiceClass())
	assert.Equal(t, 7, s.Level(), "level is not transient")
}

func TestClear(t *testing.T) {
	s := fresh()
	s.Clear()
	assert.False(t, s.HasSpecies())
	assert.Equal(t, stats.Block{}, s.ComputedStats())
}

func TestBus_PublishesAcceptedChangesOnly(t *testing.T) {
	s := fresh()
	var got []sheet.Change
	unsubscribe := s.Subscribe(func(c sheet.Change) { got = append(got, c) })

	require.False(t, s.SetWounds(99))
	assert.Empty(t, got)

	require.True(t, s.SetWounds(2))
	require.True(t, s.ModifyTemporaryStat(stats.Attack, 1))
	require.True(t, s.SetSkillValue("fisico", 1))
	require.Len(t, got, 3)
	assert.Equal(t, sheet.Change{Kind: sheet.ChangeWounds}, got[0])
	assert.Equal(t, sheet.Change{Kind: sheet.ChangeTemporary, Stat: stats.Attack}, got[1])
	assert.Equal(t, sheet.Change{Kind: sheet.ChangeSkill, Field: "Físico"}, got[2])

	unsubscribe()
	unsubscribe()
	require.True(t, s.SetWounds(3))
	assert.Len(t, got, 3)
}

func TestBus_UnsubscribeDuringPublish(t *testing.T) {
	s := fresh()
	var calls []string
	var unsubA func()
	unsubA = s.Subscribe(func(sheet.Change) {
		calls = append(calls, "a")
		unsubA()
	})
	s.Subscribe(func(sheet.Change) { calls = append(calls, "b") })
	require.True(t, s.SetWounds(1))
	require.True(t, s.SetWounds(2))
	assert.Equal(t, []string{"a", "b", "b"}, calls)
}

func TestChange_Persistent(t *testing.T) {
	assert.True(t, sheet.Change{Kind: sheet.ChangeWounds}.Persistent())
	assert.True(t, sheet.Change{Kind: sheet.ChangeFresh}.Persistent())
	assert.False(t, sheet.Change{Kind: sheet.ChangeHydrated}.Persistent())
	assert.False(t, sheet.Change{Kind: sheet.ChangeCleared}.Persistent())
}
