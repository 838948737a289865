package evo

import "onemax/internal/bitset"

// Evaluator scores bit-strings for maximization.
type Evaluator interface {
	Name() string
	Evaluate(bits bitset.BitSet) int
	// Optimum returns the best achievable score for the given length.
	Optimum(length int) int
}

// OneMax counts set bits.
type OneMax struct{}

func (OneMax) Name() string {
	return "onemax"
}

func (OneMax) Evaluate(bits bitset.BitSet) int {
	return bits.Count()
}

func (OneMax) Optimum(length int) int {
	return length
}

// DeceptiveTrap scores consecutive blocks of K bits. A block of all ones
// scores K, any other block scores K-1 minus its ones, so local search is
// drawn toward all zeros. Trailing bits that do not fill a block are ignored.
type DeceptiveTrap struct {
	K int
}

func (DeceptiveTrap) Name() string {
	return "trap"
}

func (dt DeceptiveTrap) Evaluate(bits bitset.BitSet) int {
	k := dt.K
	if k <= 0 {
		return 0
	}
	fitness := 0
	for i := 0; i < bits.Len()/k; i++ {
		ones := 0
		for j := 0; j < k; j++ {
			if bits.Has(i*k + j) {
				ones++
			}
		}
		if ones == k {
			fitness += k
		} else {
			fitness += k - ones - 1
		}
	}
	return fitness
}

func (dt DeceptiveTrap) Optimum(length int) int {
	if dt.K <= 0 {
		return 0
	}
	return (length / dt.K) * dt.K
}

// Evaluate scores g and returns it marked as evaluated.
func Evaluate(ev Evaluator, g Genome) Genome {
	g.Fitness = ev.Evaluate(g.Bits)
	g.Evaluated = true
	return g
}

func evaluatePopulation(ev Evaluator, population []Genome) {
	for i := range population {
		population[i] = Evaluate(ev, population[i])
	}
}
