package evo

import (
	"context"
	"fmt"
	"math/rand"

	"onemax/internal/model"
)

const (
	DefaultGenerations    = 100
	DefaultBouts          = defaultBouts
	DefaultPopulationSize = 100
	DefaultGenomeLength   = 64
)

// GenerationReport is handed to the Observer after every bred generation.
type GenerationReport struct {
	Generation  int
	BestSoFar   Genome
	Diagnostics model.GenerationDiagnostics
}

type Observer func(report GenerationReport)

type MonitorConfig struct {
	Evaluator      Evaluator
	Selector       Selector
	Crossover      Crossover
	Mutation       Mutator
	GenomeLength   int
	PopulationSize int
	// Generations bounds the number of breeding iterations; zero evaluates
	// the initial population only.
	Generations int
	Seed        int64
	// Rand overrides the Seed-derived source when set.
	Rand     *rand.Rand
	Observer Observer
}

// DefaultMonitorConfig returns the classic one-max settings: 64 bits,
// 100 genomes, 100 generations, 3-bout tournaments, 0.98 one-point
// crossover and 1/64 point mutation.
func DefaultMonitorConfig() MonitorConfig {
	return MonitorConfig{
		Evaluator:      OneMax{},
		Selector:       TournamentSelector{Bouts: DefaultBouts},
		Crossover:      OnePointCrossover{Rate: DefaultCrossoverRate},
		Mutation:       PointMutation{Rate: DefaultMutationRate(DefaultGenomeLength)},
		GenomeLength:   DefaultGenomeLength,
		PopulationSize: DefaultPopulationSize,
		Generations:    DefaultGenerations,
		Seed:           1,
	}
}

type RunResult struct {
	Best           Genome
	Generations    int
	Evaluations    int
	OptimumReached bool
	// BestByGeneration holds best-so-far fitness, starting at generation 0.
	BestByGeneration []int
	Diagnostics      []model.GenerationDiagnostics
}

// PopulationMonitor runs a generational genetic algorithm. It owns its
// population, best-so-far genome and random source; it is not safe for
// concurrent use.
type PopulationMonitor struct {
	cfg     MonitorConfig
	rng     *rand.Rand
	optimum int
}

func NewPopulationMonitor(cfg MonitorConfig) (*PopulationMonitor, error) {
	if cfg.GenomeLength <= 0 {
		return nil, configError("genome length", "must be > 0, got %d", cfg.GenomeLength)
	}
	if cfg.PopulationSize <= 0 {
		return nil, configError("population size", "must be > 0, got %d", cfg.PopulationSize)
	}
	if cfg.Generations < 0 {
		return nil, configError("generations", "must be >= 0, got %d", cfg.Generations)
	}
	if cfg.Evaluator == nil {
		cfg.Evaluator = OneMax{}
	}
	if cfg.Selector == nil {
		cfg.Selector = TournamentSelector{Bouts: DefaultBouts}
	}
	if cfg.Crossover == nil {
		cfg.Crossover = OnePointCrossover{Rate: DefaultCrossoverRate}
	}
	if cfg.Mutation == nil {
		cfg.Mutation = PointMutation{Rate: DefaultMutationRate(cfg.GenomeLength)}
	}
	for _, component := range []any{cfg.Selector, cfg.Crossover, cfg.Mutation} {
		if v, ok := component.(validator); ok {
			if err := v.Validate(); err != nil {
				return nil, err
			}
		}
	}
	optimum := cfg.Evaluator.Optimum(cfg.GenomeLength)
	if optimum <= 0 {
		return nil, configError("genome length", "%d leaves %s without a reachable optimum", cfg.GenomeLength, cfg.Evaluator.Name())
	}

	rng := cfg.Rand
	if rng == nil {
		rng = rand.New(rand.NewSource(cfg.Seed))
	}
	return &PopulationMonitor{cfg: cfg, rng: rng, optimum: optimum}, nil
}

// Config returns the effective configuration with defaults applied.
func (m *PopulationMonitor) Config() MonitorConfig {
	return m.cfg
}

// Run evolves until the optimum is found or the generation bound is reached.
func (m *PopulationMonitor) Run(ctx context.Context) (RunResult, error) {
	population := make([]Genome, m.cfg.PopulationSize)
	for i := range population {
		population[i] = RandomGenome(m.rng, m.cfg.GenomeLength)
	}
	evaluatePopulation(m.cfg.Evaluator, population)
	evaluations := len(population)

	best := population[fittestIndex(population)].Clone()
	bestHistory := make([]int, 0, m.cfg.Generations+1)
	diagnostics := make([]model.GenerationDiagnostics, 0, m.cfg.Generations+1)
	bestHistory = append(bestHistory, best.Fitness)
	diagnostics = append(diagnostics, summarizeGeneration(population, 0, best.Fitness))

	gen := 0
	for gen < m.cfg.Generations && best.Fitness < m.optimum {
		if err := ctx.Err(); err != nil {
			return RunResult{}, err
		}

		children, err := m.nextGeneration(population)
		if err != nil {
			return RunResult{}, fmt.Errorf("generation %d: %w", gen+1, err)
		}
		evaluatePopulation(m.cfg.Evaluator, children)
		evaluations += len(children)

		if top := children[fittestIndex(children)]; top.Fitness > best.Fitness {
			best = top.Clone()
		}
		population = children
		gen++

		diag := summarizeGeneration(population, gen, best.Fitness)
		bestHistory = append(bestHistory, best.Fitness)
		diagnostics = append(diagnostics, diag)
		if m.cfg.Observer != nil {
			m.cfg.Observer(GenerationReport{Generation: gen, BestSoFar: best.Clone(), Diagnostics: diag})
		}
	}

	return RunResult{
		Best:             best,
		Generations:      gen,
		Evaluations:      evaluations,
		OptimumReached:   best.Fitness >= m.optimum,
		BestByGeneration: bestHistory,
		Diagnostics:      diagnostics,
	}, nil
}

func (m *PopulationMonitor) nextGeneration(population []Genome) ([]Genome, error) {
	size := m.cfg.PopulationSize
	children := make([]Genome, 0, size)
	for len(children) < size {
		parent1, err := m.cfg.Selector.PickParent(m.rng, population)
		if err != nil {
			return nil, fmt.Errorf("select parent: %w", err)
		}
		parent2, err := m.cfg.Selector.PickParent(m.rng, population)
		if err != nil {
			return nil, fmt.Errorf("select parent: %w", err)
		}
		child1, child2, err := m.cfg.Crossover.Cross(m.rng, parent1, parent2)
		if err != nil {
			return nil, fmt.Errorf("%s crossover: %w", m.cfg.Crossover.Name(), err)
		}
		children = append(children, m.cfg.Mutation.Mutate(m.rng, child1))
		if len(children) < size {
			children = append(children, m.cfg.Mutation.Mutate(m.rng, child2))
		}
	}
	return children, nil
}

// fittestIndex returns the first genome with the highest fitness.
func fittestIndex(population []Genome) int {
	best := 0
	for i := 1; i < len(population); i++ {
		if population[i].Fitness > population[best].Fitness {
			best = i
		}
	}
	return best
}
