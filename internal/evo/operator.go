package evo

import "math/rand"

// Crossover recombines two parents into two unevaluated children.
type Crossover interface {
	Name() string
	Cross(rng *rand.Rand, parent1, parent2 Genome) (Genome, Genome, error)
}

// Mutator returns a varied, unevaluated copy of a genome.
type Mutator interface {
	Name() string
	Mutate(rng *rand.Rand, genome Genome) Genome
}

type validator interface {
	Validate() error
}

func validateRate(field string, rate float64) error {
	if rate < 0 || rate > 1 || rate != rate {
		return configError(field, "must be in [0, 1], got %v", rate)
	}
	return nil
}
