package evo

import (
	"fmt"
	"math/rand"

	"onemax/internal/bitset"
)

// Genome is a fixed-length bit-string candidate. Fitness is meaningful only
// while Evaluated is set; operators always return unevaluated genomes.
type Genome struct {
	Bits      bitset.BitSet
	Fitness   int
	Evaluated bool
}

// NewGenome wraps bits in an unevaluated genome.
func NewGenome(bits bitset.BitSet) Genome {
	return Genome{Bits: bits}
}

// ParseGenome builds an unevaluated genome from a '0'/'1' string.
func ParseGenome(s string) (Genome, error) {
	bits, err := bitset.FromString(s)
	if err != nil {
		return Genome{}, err
	}
	return NewGenome(bits), nil
}

// RandomGenome draws each bit independently as 1 with probability 0.5.
func RandomGenome(rng *rand.Rand, length int) Genome {
	bits := bitset.New(length)
	for i := 0; i < length; i++ {
		if rng.Float64() < 0.5 {
			bits.Set(i)
		}
	}
	return NewGenome(bits)
}

func (g Genome) Len() int {
	return g.Bits.Len()
}

// Clone returns a copy that shares no storage with g.
func (g Genome) Clone() Genome {
	return Genome{Bits: g.Bits.Clone(), Fitness: g.Fitness, Evaluated: g.Evaluated}
}

func (g Genome) String() string {
	return fmt.Sprintf("f=%d, s=%s", g.Fitness, g.Bits)
}
