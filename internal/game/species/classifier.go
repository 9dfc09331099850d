package species

import (
	"errors"

	"github.com/cory-johannsen/pokesheet/internal/game/dice"
)

// Classifier assigns a species its level-up dice class.
// The engine treats the result as opaque; it only resolves it with dice.Class.Expression.
type Classifier interface {
	Classify(sp *Species) (dice.Class, error)
}

// ClassifierFunc adapts a function to Classifier.
type ClassifierFunc func(sp *Species) (dice.Class, error)

// Classify calls f.
func (f ClassifierFunc) Classify(sp *Species) (dice.Class, error) { return f(sp) }

// ThresholdClassifier is the built-in classifier. Rules are checked in order:
// mythical, legendary, high BST, then evolution stage.
type ThresholdClassifier struct {
	Mythical     dice.Class
	Legendary    dice.Class
	HighBST      int
	HighBSTClass dice.Class
	FinalStage   dice.Class
	MiddleStage  dice.Class
	FirstStage   dice.Class
	SingleStage  dice.Class
}

// DefaultThresholds returns the stock classification table.
func DefaultThresholds() ThresholdClassifier {
	return ThresholdClassifier{
		Mythical:     "3d8",
		Legendary:    "2d12",
		HighBST:      540,
		HighBSTClass: "2d10",
		FinalStage:   "2d8",
		MiddleStage:  "2d6",
		FirstStage:   "1d10",
		SingleStage:  "2d6",
	}
}

// Classify implements Classifier.
//
// Precondition: sp must be non-nil.
// Postcondition: Returns a class that parses as a plain NdS expression.
func (t ThresholdClassifier) Classify(sp *Species) (dice.Class, error) {
	if sp == nil {
		return "", errors.New("classify: species must not be nil")
	}
	var c dice.Class
	switch {
	case sp.Mythical:
		c = t.Mythical
	case sp.Legendary:
		c = t.Legendary
	case t.HighBST > 0 && sp.BST() >= t.HighBST:
		c = t.HighBSTClass
	case sp.EvolutionStages <= 1:
		c = t.SingleStage
	case sp.EvolutionStage >= sp.EvolutionStages:
		c = t.FinalStage
	case sp.EvolutionStage <= 1:
		c = t.FirstStage
	default:
		c = t.MiddleStage
	}
	if _, err := c.Expression(); err != nil {
		return "", err
	}
	return c, nil
}
