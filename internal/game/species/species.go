// Package species defines the shape of species and move data the sheet engine
// consumes, the provider contract that supplies it, and the dice-class classifier.
package species

import (
	"context"
	"errors"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/cory-johannsen/pokesheet/internal/game/stats"
)

// ErrSpeciesNotFound is returned by a Provider when no species has the requested id.
var ErrSpeciesNotFound = errors.New("species not found")

// ErrExternalDataUnavailable wraps any failure to obtain species or move data.
var ErrExternalDataUnavailable = errors.New("external species data unavailable")

// Move is one entry of a species' learnable move list.
type Move struct {
	Name         string `yaml:"name"`
	Type         string `yaml:"type"`
	Power        int    `yaml:"power"`
	Accuracy     int    `yaml:"accuracy"`
	PP           int    `yaml:"pp"`
	LearnMethod  string `yaml:"learn_method"`
	LevelLearned int    `yaml:"level_learned"`
}

// Species is the static data for one species.
//
// Invariant: BaseStats is fixed per species and every value is >= 0.
type Species struct {
	ID              int         `yaml:"id"`
	Name            string      `yaml:"name"`
	BaseStats       stats.Block `yaml:"base_stats"`
	Legendary       bool        `yaml:"legendary"`
	Mythical        bool        `yaml:"mythical"`
	EvolutionStage  int         `yaml:"evolution_stage"`
	EvolutionStages int         `yaml:"evolution_stages"`
	Moves           []Move      `yaml:"moves"`
}

// BST returns the sum of the six base stats.
func (s *Species) BST() int {
	return s.BaseStats.Total()
}

// HasMove reports whether name appears in the species move list.
func (s *Species) HasMove(name string) bool {
	for _, m := range s.Moves {
		if m.Name == name {
			return true
		}
	}
	return false
}

// Validate checks the invariants a provider must uphold.
func (s *Species) Validate() error {
	if s.ID <= 0 {
		return fmt.Errorf("species %q: id must be > 0, got %d", s.Name, s.ID)
	}
	if s.Name == "" {
		return fmt.Errorf("species %d: name must not be empty", s.ID)
	}
	if !s.BaseStats.NonNegative() {
		return fmt.Errorf("species %d: base stats must be non-negative", s.ID)
	}
	if s.EvolutionStages < 0 || s.EvolutionStage < 0 || s.EvolutionStage > s.EvolutionStages {
		return fmt.Errorf("species %d: evolution stage %d/%d out of range", s.ID, s.EvolutionStage, s.EvolutionStages)
	}
	return nil
}

// Provider supplies species and move data by species id.
// Implementations must be safe for concurrent use.
type Provider interface {
	// Species returns the species with the given id, or ErrSpeciesNotFound.
	Species(ctx context.Context, id int) (*Species, error)
	// Moves returns the learnable moves of the species with the given id.
	Moves(ctx context.Context, id int) ([]Move, error)
}

// Fetch retrieves species and move data in parallel and merges them into one
// Species value owned by the caller.
//
// Postcondition: Returns a species whose Moves come from p.Moves, or an error
// wrapping ErrExternalDataUnavailable (and ErrSpeciesNotFound when applicable).
func Fetch(ctx context.Context, p Provider, id int) (*Species, error) {
	var (
		sp    *Species
		moves []Move
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		s, err := p.Species(gctx, id)
		if err != nil {
			return fmt.Errorf("fetching species %d: %w", id, err)
		}
		sp = s
		return nil
	})
	g.Go(func() error {
		m, err := p.Moves(gctx, id)
		if err != nil {
			return fmt.Errorf("fetching moves for species %d: %w", id, err)
		}
		moves = m
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrExternalDataUnavailable, err)
	}

	out := *sp
	out.Moves = append([]Move(nil), moves...)
	return &out, nil
}
