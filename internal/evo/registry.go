package evo

import (
	"errors"
	"fmt"
	"sort"
	"sync"
)

var (
	ErrProblemExists   = errors.New("problem already registered")
	ErrProblemNotFound = errors.New("problem not found")
	ErrCrossoverKind   = errors.New("unknown crossover kind")
)

// ProblemParams carries the knobs a problem factory may read.
type ProblemParams struct {
	TrapK int
}

type ProblemFactory func(params ProblemParams) (Evaluator, error)

var problemRegistry = struct {
	mu sync.RWMutex
	m  map[string]ProblemFactory
}{
	m: make(map[string]ProblemFactory),
}

func init() {
	registerBuiltinProblems()
}

func registerBuiltinProblems() {
	_ = RegisterProblem("onemax", func(ProblemParams) (Evaluator, error) {
		return OneMax{}, nil
	})
	_ = RegisterProblem("trap", func(params ProblemParams) (Evaluator, error) {
		if params.TrapK <= 0 {
			return nil, configError("trap k", "must be > 0, got %d", params.TrapK)
		}
		return DeceptiveTrap{K: params.TrapK}, nil
	})
}

// RegisterProblem makes a fitness function selectable by name.
func RegisterProblem(name string, factory ProblemFactory) error {
	if name == "" {
		return errors.New("problem name is required")
	}
	if factory == nil {
		return errors.New("problem factory is required")
	}

	problemRegistry.mu.Lock()
	defer problemRegistry.mu.Unlock()

	if _, exists := problemRegistry.m[name]; exists {
		return fmt.Errorf("%w: %s", ErrProblemExists, name)
	}
	problemRegistry.m[name] = factory
	return nil
}

func ResolveProblem(name string, params ProblemParams) (Evaluator, error) {
	problemRegistry.mu.RLock()
	factory, ok := problemRegistry.m[name]
	problemRegistry.mu.RUnlock()

	if !ok {
		return nil, &ConfigError{Field: "problem", Reason: fmt.Sprintf("%q is not registered", name), Err: ErrProblemNotFound}
	}
	return factory(params)
}

func ListProblems() []string {
	problemRegistry.mu.RLock()
	defer problemRegistry.mu.RUnlock()

	names := make([]string, 0, len(problemRegistry.m))
	for name := range problemRegistry.m {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// CrossoverFromName maps a CLI/config name to a crossover operator.
func CrossoverFromName(name string, rate float64) (Crossover, error) {
	switch name {
	case "", "one_point":
		return OnePointCrossover{Rate: rate}, nil
	case "uniform":
		return UniformCrossover{Rate: rate}, nil
	default:
		return nil, &ConfigError{Field: "crossover kind", Reason: fmt.Sprintf("%q is not one of one_point, uniform", name), Err: ErrCrossoverKind}
	}
}

func resetProblemRegistryForTests() {
	problemRegistry.mu.Lock()
	problemRegistry.m = make(map[string]ProblemFactory)
	problemRegistry.mu.Unlock()
	registerBuiltinProblems()
}
