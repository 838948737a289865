package evo

import (
	"errors"
	"reflect"
	"testing"
)

func TestResolveBuiltinProblems(t *testing.T) {
	resetProblemRegistryForTests()
	t.Cleanup(resetProblemRegistryForTests)

	if got := ListProblems(); !reflect.DeepEqual(got, []string{"onemax", "trap"}) {
		t.Fatalf("unexpected problems: %v", got)
	}
	ev, err := ResolveProblem("onemax", ProblemParams{})
	if err != nil {
		t.Fatalf("resolve onemax: %v", err)
	}
	if ev.Name() != "onemax" {
		t.Fatalf("unexpected evaluator: %s", ev.Name())
	}
	ev, err = ResolveProblem("trap", ProblemParams{TrapK: 5})
	if err != nil {
		t.Fatalf("resolve trap: %v", err)
	}
	if trap, ok := ev.(DeceptiveTrap); !ok || trap.K != 5 {
		t.Fatalf("unexpected trap evaluator: %#v", ev)
	}
	if _, err := ResolveProblem("trap", ProblemParams{}); !errors.Is(err, ErrInvalidConfig) {
		t.Fatalf("expected invalid config for missing trap k, got %v", err)
	}
}

func TestRegisterProblemDuplicate(t *testing.T) {
	resetProblemRegistryForTests()
	t.Cleanup(resetProblemRegistryForTests)

	err := RegisterProblem("onemax", func(ProblemParams) (Evaluator, error) { return OneMax{}, nil })
	if !errors.Is(err, ErrProblemExists) {
		t.Fatalf("expected duplicate error, got %v", err)
	}
}

func TestResolveProblemNotFound(t *testing.T) {
	if _, err := ResolveProblem("leading_ones", ProblemParams{}); !errors.Is(err, ErrProblemNotFound) {
		t.Fatalf("expected not found error, got %v", err)
	}
}

func TestUnknownNamesAreConfigErrors(t *testing.T) {
	cases := []struct {
		name  string
		err   error
		cause error
		field string
	}{
		{"problem", func() error { _, err := ResolveProblem("leading_ones", ProblemParams{}); return err }(), ErrProblemNotFound, "problem"},
		{"crossover", func() error { _, err := CrossoverFromName("two_point", 0.9); return err }(), ErrCrossoverKind, "crossover kind"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if !errors.Is(tc.err, ErrInvalidConfig) {
				t.Fatalf("expected invalid config, got %v", tc.err)
			}
			if !errors.Is(tc.err, tc.cause) {
				t.Fatalf("expected cause %v, got %v", tc.cause, tc.err)
			}
			var cfgErr *ConfigError
			if !errors.As(tc.err, &cfgErr) || cfgErr.Field != tc.field {
				t.Fatalf("expected config error on %q, got %v", tc.field, tc.err)
			}
		})
	}
}
