package evo

import (
	"fmt"
	"math/rand"

	"onemax/internal/bitset"
)

const DefaultCrossoverRate = 0.98

// OnePointCrossover swaps the suffixes of both parents after a cut point
// drawn from [1, length-1], so each child carries bits from both parents.
type OnePointCrossover struct {
	Rate float64
}

func (OnePointCrossover) Name() string {
	return "one_point"
}

func (c OnePointCrossover) Validate() error {
	return validateRate("crossover rate", c.Rate)
}

func (c OnePointCrossover) Cross(rng *rand.Rand, parent1, parent2 Genome) (Genome, Genome, error) {
	if err := checkParents(rng, parent1, parent2); err != nil {
		return Genome{}, Genome{}, err
	}
	length := parent1.Len()
	if length < 2 || rng.Float64() >= c.Rate {
		return copyParents(parent1, parent2)
	}
	cut := rng.Intn(length-1) + 1
	child1 := NewGenome(parent1.Bits.Splice(parent2.Bits, cut))
	child2 := NewGenome(parent2.Bits.Splice(parent1.Bits, cut))
	return child1, child2, nil
}

// UniformCrossover picks every position from either parent with equal
// probability; the second child receives the opposite choices.
type UniformCrossover struct {
	Rate float64
}

func (UniformCrossover) Name() string {
	return "uniform"
}

func (c UniformCrossover) Validate() error {
	return validateRate("crossover rate", c.Rate)
}

func (c UniformCrossover) Cross(rng *rand.Rand, parent1, parent2 Genome) (Genome, Genome, error) {
	if err := checkParents(rng, parent1, parent2); err != nil {
		return Genome{}, Genome{}, err
	}
	if rng.Float64() >= c.Rate {
		return copyParents(parent1, parent2)
	}
	length := parent1.Len()
	bits1 := bitset.New(length)
	bits2 := bitset.New(length)
	for i := 0; i < length; i++ {
		if rng.Float64() < 0.5 {
			bits1.CopyBit(parent1.Bits, i)
			bits2.CopyBit(parent2.Bits, i)
		} else {
			bits1.CopyBit(parent2.Bits, i)
			bits2.CopyBit(parent1.Bits, i)
		}
	}
	return NewGenome(bits1), NewGenome(bits2), nil
}

func checkParents(rng *rand.Rand, parent1, parent2 Genome) error {
	if rng == nil {
		return fmt.Errorf("random source is required")
	}
	if parent1.Len() != parent2.Len() {
		return fmt.Errorf("parent length mismatch: %d != %d", parent1.Len(), parent2.Len())
	}
	return nil
}

func copyParents(parent1, parent2 Genome) (Genome, Genome, error) {
	return NewGenome(parent1.Bits.Clone()), NewGenome(parent2.Bits.Clone()), nil
}
