package evo

import "math/rand"

// PointMutation flips every bit independently with probability Rate.
type PointMutation struct {
	Rate float64
}

func (PointMutation) Name() string {
	return "point"
}

func (m PointMutation) Validate() error {
	return validateRate("mutation rate", m.Rate)
}

func (m PointMutation) Mutate(rng *rand.Rand, genome Genome) Genome {
	bits := genome.Bits.Clone()
	for i := 0; i < bits.Len(); i++ {
		if rng.Float64() < m.Rate {
			bits.Flip(i)
		}
	}
	return NewGenome(bits)
}

// DefaultMutationRate is one expected flip per genome.
func DefaultMutationRate(length int) float64 {
	if length <= 0 {
		return 0
	}
	return 1.0 / float64(length)
}
