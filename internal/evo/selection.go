package evo

import (
	"fmt"
	"math/rand"
)

const defaultBouts = 3

// Selector chooses a parent from an evaluated population.
type Selector interface {
	Name() string
	PickParent(rng *rand.Rand, population []Genome) (Genome, error)
}

// TournamentSelector draws Bouts genomes uniformly with replacement and
// keeps the first one with the strictly highest fitness.
type TournamentSelector struct {
	Bouts int
}

func (TournamentSelector) Name() string {
	return "tournament"
}

func (s TournamentSelector) Validate() error {
	if s.Bouts < 0 {
		return configError("bouts", "must be >= 0, got %d", s.Bouts)
	}
	return nil
}

func (s TournamentSelector) PickParent(rng *rand.Rand, population []Genome) (Genome, error) {
	if rng == nil {
		return Genome{}, fmt.Errorf("random source is required")
	}
	if len(population) == 0 {
		return Genome{}, fmt.Errorf("tournament over empty population")
	}

	bouts := s.Bouts
	if bouts <= 0 {
		bouts = defaultBouts
	}

	best := population[rng.Intn(len(population))]
	if !best.Evaluated {
		return Genome{}, ErrUnevaluatedGenome
	}
	for i := 1; i < bouts; i++ {
		candidate := population[rng.Intn(len(population))]
		if !candidate.Evaluated {
			return Genome{}, ErrUnevaluatedGenome
		}
		if candidate.Fitness > best.Fitness {
			best = candidate
		}
	}
	return best, nil
}
