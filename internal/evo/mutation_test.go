package evo

import (
	"math"
	"math/rand"
	"testing"
)

func TestPointMutationLimits(t *testing.T) {
	rng := rand.New(rand.NewSource(2))
	cases := []struct {
		input string
		rate  float64
		want  string
	}{
		{"0000000000", 0, "0000000000"},
		{"1111111111", 0, "1111111111"},
		{"0000000000", 1, "1111111111"},
		{"1111111111", 1, "0000000000"},
		{"1011001110", 1, "0100110001"},
	}
	for _, tc := range cases {
		in := mustGenome(t, tc.input)
		out := PointMutation{Rate: tc.rate}.Mutate(rng, in)
		if out.Bits.String() != tc.want {
			t.Errorf("mutate(%s, %v) = %s, want %s", tc.input, tc.rate, out.Bits, tc.want)
		}
		if out.Evaluated || out.Fitness != 0 {
			t.Errorf("mutated genome must be unevaluated: %+v", out)
		}
		if in.Bits.String() != tc.input {
			t.Errorf("mutation changed its input: %s", in.Bits)
		}
	}
}

func TestPointMutationRatio(t *testing.T) {
	rng := rand.New(rand.NewSource(13))
	in := mustGenome(t, "0000000000")
	changes := 0
	for i := 0; i < 200; i++ {
		changes += PointMutation{Rate: 0.5}.Mutate(rng, in).Bits.Count()
	}
	ratio := float64(changes) / (200 * 10)
	if math.Abs(ratio-0.5) > 0.06 {
		t.Fatalf("flip ratio = %.3f, want ~0.5", ratio)
	}
}

func TestDefaultMutationRate(t *testing.T) {
	if got := DefaultMutationRate(64); got != 1.0/64 {
		t.Fatalf("default rate = %v, want 1/64", got)
	}
	if got := DefaultMutationRate(0); got != 0 {
		t.Fatalf("default rate for empty genome = %v, want 0", got)
	}
}
