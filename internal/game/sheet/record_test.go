package sheet_test

import (
	"encoding/json"
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/text/unicode/norm"
	"pgregory.net/rapid"

	"github.com/cory-johannsen/pokesheet/internal/game/dice"
	"github.com/cory-johannsen/pokesheet/internal/game/sheet"
	"github.com/cory-johannsen/pokesheet/internal/game/stats"
)

func TestRecord_JSONShape(t *testing.T) {
	s := fresh()
	require.True(t, s.EquipMove(1, "tackle"))
	data, err := s.Record().Marshal()
	require.NoError(t, err)

	var raw map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(data, &raw))
	keys := make([]string, 0, len(raw))
	for k := range raw {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	assert.Equal(t, []string{
		"accuracyValue", "currentExperience", "currentHp", "customSkills",
		"equippedMoves", "evasionValue", "friendshipMarks", "level", "movementValue",
		"primaryStatChoice", "secondaryStatChoice", "skillValues", "speciesId", "stats",
		"statusEffects", "temporaryModifiers", "textFields", "wounds",
	}, keys)

	assert.JSONEq(t, `[null,{"name":"tackle"},null,null]`, string(raw["equippedMoves"]))
	assert.JSONEq(t, `{"attack":0,"defense":0,"spAttack":0,"spDefense":0}`, string(raw["temporaryModifiers"]))
	assert.JSONEq(t, `{}`, string(raw["textFields"]))

	var st map[string]int
	require.NoError(t, json.Unmarshal(raw["stats"], &st))
	assert.Len(t, st, 6)
	assert.Contains(t, st, "spAttack")
}

func TestRecord_DiceClassOmittedUnlessCustom(t *testing.T) {
	s := fresh()
	require.True(t, s.SetCustomDiceClass("1d12"))
	data, err := s.Record().Marshal()
	require.NoError(t, err)
	assert.Contains(t, string(data), `"diceClass":"1d12"`)
}

func TestDecodeRecord_ToleratesUnknownAndAbsentFields(t *testing.T) {
	rec, err := sheet.DecodeRecord([]byte(`{"speciesId":1,"level":5,"futureField":{"x":1}}`))
	require.NoError(t, err)
	assert.Nil(t, rec.Stats)

	s, report := sheet.Hydrate(bulbasaur(), "2d8", rec, sheet.Options{})
	assert.Empty(t, report.DroppedSkillKeys)
	assert.Equal(t, 5, s.Level())
	assert.Equal(t, stats.Compute(stats.DefaultFormulas{}, bulbasaur().BaseStats, 5), s.ComputedStats())
	assert.Equal(t, stats.Attack, s.PrimaryStat())
	assert.Equal(t, stats.Defense, s.SecondaryStat())
	base := bulbasaur().BaseStats
	assert.Equal(t, stats.DefaultFormulas{}.Accuracy(base.Total(), base.Speed), s.Accuracy())
	assert.Equal(t, s.ComputedStats().HP, s.CurrentHP())
	assert.Empty(t, s.StatusEffects())
}

func TestDecodeRecord_Malformed(t *testing.T) {
	_, err := sheet.DecodeRecord([]byte(`{"level":`))
	assert.Error(t, err)
}

func TestNormalize_DefaultsOutOfRangeValues(t *testing.T) {
	rec := sheet.Record{
		Level:               500,
		CurrentExperience:   -5,
		Stats:               &stats.Block{HP: 30, Attack: -4},
		CurrentHP:           99,
		AccuracyValue:       40,
		EvasionValue:        -2,
		PrimaryStatChoice:   "luck",
		SecondaryStatChoice: stats.Attack,
		Wounds:              11,
		StatusEffects:       []string{"burn", " burn ", "", "sleep"},
		EquippedMoves:       []*sheet.EquippedMove{{Name: "tackle"}, {Name: " "}, nil, nil, {Name: "extra"}},
		DiceClass:           "2×d8",
	}
	n, _ := rec.Normalize(100)
	assert.Equal(t, 100, n.Level)
	assert.Equal(t, 0, n.CurrentExperience)
	assert.Equal(t, 0, n.Stats.Attack)
	assert.Equal(t, 30, n.CurrentHP)
	assert.Equal(t, stats.AccuracyMax, n.AccuracyValue)
	assert.Equal(t, stats.EvasionMin, n.EvasionValue)
	assert.Equal(t, 1, n.MovementValue)
	assert.Equal(t, stats.Attack, n.PrimaryStatChoice)
	assert.Equal(t, stats.Defense, n.SecondaryStatChoice)
	assert.Equal(t, 10, n.Wounds)
	assert.Equal(t, []string{"burn", "sleep"}, n.StatusEffects)
	require.Len(t, n.EquippedMoves, sheet.MoveSlots)
	assert.Equal(t, "tackle", n.EquippedMoves[0].Name)
	assert.Nil(t, n.EquippedMoves[1])
	assert.Equal(t, "2d8", string(n.DiceClass))

	assert.Equal(t, -4, rec.Stats.Attack, "Normalize does not mutate its receiver")
}

func TestHydrate_CanonicalisesSkillKeys(t *testing.T) {
	rec := fresh().Record()
	rec.SkillValues = map[string]int{
		norm.NFD.String("Físico"):      4,
		norm.NFD.String("Resistência"): -3,
		"memoria":                      2,
		"Culinária":                    1,
	}
	rec.CustomSkills = map[string][]sheet.CustomSkill{
		norm.NFD.String("Expressão"): {{Name: "canto", Value: 5}},
		"Cozinha":                    {{Name: "bolo", Value: 1}},
	}

	s, report := sheet.Hydrate(bulbasaur(), "2d8", rec, sheet.Options{})
	assert.Equal(t, []string{"Culinária"}, report.DroppedSkillKeys)
	assert.Equal(t, []string{"Cozinha"}, report.DroppedCustomCategories)
	assert.Equal(t, map[string]int{"Físico": 4, "Resistência": -3, "Memória": 2}, s.SkillValues())
	assert.Equal(t, []sheet.CustomSkill{{Name: "canto", Value: 5}}, s.CustomSkills("Expressão"))
	assert.Equal(t, rec.MovementValue, s.Movement(), "hydrate never recomputes movement")
}

func TestHydrate_ExactKeyBeatsNearMatch(t *testing.T) {
	rec := fresh().Record()
	rec.SkillValues = map[string]int{"Foco": 3, "foco": -3, "FOCO": -1}
	s, _ := sheet.Hydrate(bulbasaur(), "2d8", rec, sheet.Options{})
	assert.Equal(t, 3, s.SkillValue("Foco"))
}

func TestHydrate_Property_NeverRecomputes(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		var persisted stats.Block
		for _, st := range stats.All {
			persisted.Set(st, rapid.IntRange(0, 999).Draw(rt, string(st)))
		}
		rec := fresh().Record()
		rec.Level = rapid.IntRange(1, 100).Draw(rt, "level")
		rec.Stats = &persisted
		rec.CurrentHP = rapid.IntRange(0, persisted.HP).Draw(rt, "hp")
		rec.AccuracyValue = rapid.IntRange(1, 12).Draw(rt, "acc")
		rec.EvasionValue = rapid.IntRange(1, 12).Draw(rt, "eva")
		rec.MovementValue = rapid.IntRange(1, 20).Draw(rt, "mov")

		s, _ := sheet.Hydrate(mewtwo(), "2d12", rec, sheet.Options{})
		assert.Equal(rt, persisted, s.ComputedStats())
		assert.Equal(rt, rec.CurrentHP, s.CurrentHP())
		assert.Equal(rt, rec.AccuracyValue, s.Accuracy())
		assert.Equal(rt, rec.EvasionValue, s.Evasion())
		assert.Equal(rt, rec.MovementValue, s.Movement())
		assert.Equal(rt, mewtwo().BaseStats, s.BaseStats())
	})
}

func TestHydrate_AbsentDerivedValuesUseFormulas(t *testing.T) {
	rec, err := sheet.DecodeRecord([]byte(`{"speciesId":150,"level":10}`))
	require.NoError(t, err)
	s, _ := sheet.Hydrate(mewtwo(), "2d12", rec, sheet.Options{})

	want := sheet.CreateFresh(mewtwo(), "2d12", sheet.Options{})
	require.True(t, want.SetLevel(10, true))
	assert.Equal(t, want.ComputedStats(), s.ComputedStats())
	assert.Equal(t, s.ComputedStats().HP, s.CurrentHP(), "absent currentHp is full")
	assert.Equal(t, want.Accuracy(), s.Accuracy())
	assert.Equal(t, want.Evasion(), s.Evasion())
	assert.Equal(t, want.Movement(), s.Movement())
}

func TestHydrate_PresentZeroIsKept(t *testing.T) {
	rec, err := sheet.DecodeRecord([]byte(`{"speciesId":150,"level":10,"currentHp":0,"movementValue":null}`))
	require.NoError(t, err)
	s, _ := sheet.Hydrate(mewtwo(), "2d12", rec, sheet.Options{})
	assert.Equal(t, 0, s.CurrentHP())

	want := sheet.CreateFresh(mewtwo(), "2d12", sheet.Options{})
	require.True(t, want.SetLevel(10, true))
	assert.Equal(t, want.Movement(), s.Movement(), "null counts as absent")
}

var skillNames = sheet.DefaultVocabulary.Keys()

func TestRecord_Property_RoundTrip(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		s := fresh()
		require.True(rt, s.SetLevel(rapid.IntRange(1, 100).Draw(rt, "level"), rapid.Bool().Draw(rt, "recompute")))
		require.True(rt, s.SetExperience(rapid.IntRange(0, 20000).Draw(rt, "exp")))
		require.True(rt, s.SetStatChoices(
			rapid.SampledFrom(stats.All[:]).Draw(rt, "primary"),
			rapid.SampledFrom(stats.All[:]).Draw(rt, "secondary"),
		))
		for i, n := 0, rapid.IntRange(0, 6).Draw(rt, "skills"); i < n; i++ {
			name := rapid.SampledFrom(skillNames).Draw(rt, "skill")
			if rapid.Bool().Draw(rt, "nfd") {
				name = norm.NFD.String(name)
			}
			require.True(rt, s.SetSkillValue(name, rapid.IntRange(sheet.SkillMin, sheet.SkillMax).Draw(rt, "value")))
		}
		cats := []string{"Físico", "Percepção", "Mente", "Expressão"}
		for i, n := 0, rapid.IntRange(0, 3).Draw(rt, "custom"); i < n; i++ {
			require.True(rt, s.AddCustomSkill(
				rapid.SampledFrom(cats).Draw(rt, "cat"),
				rapid.StringMatching(`[a-zçã]{1,10}`).Draw(rt, "cname"),
				rapid.IntRange(sheet.SkillMin, sheet.SkillMax).Draw(rt, "cvalue"),
			))
		}
		require.True(rt, s.SetWounds(rapid.IntRange(0, 10).Draw(rt, "wounds")))
		for i, n := 0, rapid.IntRange(0, 4).Draw(rt, "statuses"); i < n; i++ {
			s.ToggleStatusEffect(rapid.StringMatching(`[a-z]{1,6}`).Draw(rt, "status"))
		}
		for _, st := range stats.Modifiable {
			s.ModifyTemporaryStat(st, rapid.IntRange(-6, 6).Draw(rt, "temp"))
		}
		for i, n := 0, rapid.IntRange(0, 5).Draw(rt, "marks"); i < n; i++ {
			require.True(rt, s.AddFriendshipMark(rapid.SampledFrom([]string{"♥", "★", "x"}).Draw(rt, "mark")))
		}
		for slot := 0; slot < sheet.MoveSlots; slot++ {
			if rapid.Bool().Draw(rt, "equip") {
				require.True(rt, s.EquipMove(slot, rapid.SampledFrom([]string{"tackle", "vine-whip"}).Draw(rt, "move")))
				if rapid.Bool().Draw(rt, "desc") {
					require.True(rt, s.SetMoveDescription(slot, rapid.StringMatching(`[a-z ]{1,12}`).Draw(rt, "text")))
				}
			}
		}
		if rapid.Bool().Draw(rt, "nickname") {
			require.True(rt, s.SetTextField(sheet.FieldNickname, rapid.StringMatching(`[A-Za-zé]{1,10}`).Draw(rt, "nick")))
		}
		if rapid.Bool().Draw(rt, "customClass") {
			require.True(rt, s.SetCustomDiceClass(rapid.SampledFrom([]dice.Class{"1d4", "2×d6", "3xd8"}).Draw(rt, "class")))
		}
		require.True(rt, s.SetCurrentHP(rapid.IntRange(0, s.ComputedStats().HP).Draw(rt, "currentHp")))

		want := s.Record()
		data, err := want.Marshal()
		require.NoError(rt, err)
		decoded, err := sheet.DecodeRecord(data)
		require.NoError(rt, err)
		reloaded, report := sheet.Hydrate(bulbasaur(), "2d8", decoded, sheet.Options{})
		assert.Empty(rt, report.DroppedSkillKeys)
		assert.Equal(rt, want, reloaded.Record())
		for k := range reloaded.SkillValues() {
			assert.True(rt, norm.NFC.IsNormalString(k))
		}
	})
}
