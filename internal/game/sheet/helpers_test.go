package sheet_test

import (
	"go.uber.org/zap"

	"github.com/cory-johannsen/pokesheet/internal/game/dice"
	"github.com/cory-johannsen/pokesheet/internal/game/sheet"
	"github.com/cory-johannsen/pokesheet/internal/game/species"
	"github.com/cory-johannsen/pokesheet/internal/game/stats"
)

func bulbasaur() *species.Species {
	return &species.Species{
		ID:              1,
		Name:            "bulbasaur",
		BaseStats:       stats.Block{HP: 45, Attack: 49, Defense: 49, SpAttack: 65, SpDefense: 65, Speed: 45},
		EvolutionStage:  1,
		EvolutionStages: 3,
		Moves: []species.Move{
			{Name: "tackle", Type: "normal", Power: 40, Accuracy: 100, PP: 35, LearnMethod: "level-up", LevelLearned: 1},
			{Name: "vine-whip", Type: "grass", Power: 45, Accuracy: 100, PP: 25, LearnMethod: "level-up", LevelLearned: 3},
		},
	}
}

func mewtwo() *species.Species {
	return &species.Species{
		ID:        150,
		Name:      "mewtwo",
		BaseStats: stats.Block{HP: 106, Attack: 110, Defense: 90, SpAttack: 154, SpDefense: 90, Speed: 130},
		Legendary: true,
	}
}

func fresh() *sheet.Sheet {
	return sheet.CreateFresh(bulbasaur(), "2d8", sheet.Options{})
}

func zapNop() *zap.Logger { return zap.NewNop() }

func roller(values ...int) *dice.Roller {
	return dice.NewLoggedRoller(dice.NewSequenceSource(values...), zap.NewNop())
}
