package platform

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"onemax/internal/evo"
	"onemax/internal/model"
	"onemax/internal/storage"
)

type Config struct {
	Store storage.Store
	// Now is the clock used to stamp run records; defaults to time.Now.
	Now func() time.Time
}

type EvolutionConfig struct {
	RunID          string
	Problem        string
	TrapK          int
	GenomeLength   int
	PopulationSize int
	Generations    int
	Bouts          int
	CrossoverKind  string
	CrossoverRate  float64
	// MutationRate < 0 selects one expected flip per genome (1/GenomeLength).
	MutationRate float64
	Seed         int64
	Observer     evo.Observer
}

type EvolutionResult struct {
	Run    model.RunRecord
	Result evo.RunResult
}

// Polis owns the store and the set of runs currently evolving. Each run is
// independent; the polis only serializes bookkeeping.
type Polis struct {
	store storage.Store
	now   func() time.Time

	mu      sync.RWMutex
	started bool
	runs    map[string]context.CancelFunc
}

func NewPolis(cfg Config) *Polis {
	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	return &Polis{
		store: cfg.Store,
		now:   now,
		runs:  make(map[string]context.CancelFunc),
	}
}

func (p *Polis) Init(ctx context.Context) error {
	if p.store == nil {
		return fmt.Errorf("store is required")
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.started {
		return nil
	}
	if err := p.store.Init(ctx); err != nil {
		return err
	}
	p.started = true
	return nil
}

// Reset stops every active run, clears the store and initializes it again.
func (p *Polis) Reset(ctx context.Context) error {
	if p.store == nil {
		return fmt.Errorf("store is required")
	}
	p.Stop()
	if err := p.store.Reset(ctx); err != nil {
		return err
	}
	return p.Init(ctx)
}

// Stop cancels all active runs and marks the polis uninitialized.
func (p *Polis) Stop() {
	p.mu.Lock()
	defer p.mu.Unlock()
	for runID, cancel := range p.runs {
		cancel()
		delete(p.runs, runID)
	}
	p.started = false
}

func (p *Polis) Started() bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.started
}

// RunEvolution builds a monitor from cfg, evolves it to termination and
// persists the run summary, best-fitness history and diagnostics.
func (p *Polis) RunEvolution(ctx context.Context, cfg EvolutionConfig) (EvolutionResult, error) {
	if cfg.RunID == "" {
		return EvolutionResult{}, fmt.Errorf("run id is required")
	}
	if cfg.Problem == "" {
		cfg.Problem = "onemax"
	}
	monitorCfg, err := MonitorConfigFor(cfg)
	if err != nil {
		return EvolutionResult{}, err
	}
	monitor, err := evo.NewPopulationMonitor(monitorCfg)
	if err != nil {
		return EvolutionResult{}, err
	}

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	if err := p.registerRun(cfg.RunID, cancel); err != nil {
		return EvolutionResult{}, err
	}
	defer p.unregisterRun(cfg.RunID)

	started := p.now()
	result, err := monitor.Run(runCtx)
	if err != nil {
		return EvolutionResult{}, fmt.Errorf("run %s: %w", cfg.RunID, err)
	}
	elapsed := p.now().Sub(started)

	effective := monitor.Config()
	record := model.RunRecord{
		VersionedRecord: storage.Versioned(),
		ID:              cfg.RunID,
		CreatedAtUTC:    started.UTC().Format(time.RFC3339Nano),
		Problem:         cfg.Problem,
		GenomeLength:    effective.GenomeLength,
		PopulationSize:  effective.PopulationSize,
		MaxGenerations:  effective.Generations,
		Bouts:           selectorBouts(effective.Selector),
		CrossoverKind:   effective.Crossover.Name(),
		CrossoverRate:   crossoverRate(effective.Crossover),
		MutationRate:    mutationRate(effective.Mutation),
		Seed:            effective.Seed,
		GenerationsRun:  result.Generations,
		Evaluations:     result.Evaluations,
		OptimumReached:  result.OptimumReached,
		BestFitness:     result.Best.Fitness,
		BestBits:        result.Best.Bits.String(),
		ElapsedMillis:   elapsed.Milliseconds(),
	}
	if err := p.store.SaveRun(ctx, record); err != nil {
		return EvolutionResult{}, fmt.Errorf("save run %s: %w", cfg.RunID, err)
	}
	if err := p.store.SaveFitnessHistory(ctx, cfg.RunID, result.BestByGeneration); err != nil {
		return EvolutionResult{}, fmt.Errorf("save fitness history %s: %w", cfg.RunID, err)
	}
	if err := p.store.SaveGenerationDiagnostics(ctx, cfg.RunID, result.Diagnostics); err != nil {
		return EvolutionResult{}, fmt.Errorf("save diagnostics %s: %w", cfg.RunID, err)
	}
	return EvolutionResult{Run: record, Result: result}, nil
}

// MonitorConfigFor resolves named components into a monitor configuration.
// It does not touch the store, so benchmarks reuse it for unpersisted runs.
func MonitorConfigFor(cfg EvolutionConfig) (evo.MonitorConfig, error) {
	problem := cfg.Problem
	if problem == "" {
		problem = "onemax"
	}
	evaluator, err := evo.ResolveProblem(problem, evo.ProblemParams{TrapK: cfg.TrapK})
	if err != nil {
		return evo.MonitorConfig{}, err
	}
	crossover, err := evo.CrossoverFromName(cfg.CrossoverKind, cfg.CrossoverRate)
	if err != nil {
		return evo.MonitorConfig{}, err
	}
	var mutation evo.Mutator
	if cfg.MutationRate >= 0 {
		mutation = evo.PointMutation{Rate: cfg.MutationRate}
	}
	return evo.MonitorConfig{
		Evaluator:      evaluator,
		Selector:       evo.TournamentSelector{Bouts: cfg.Bouts},
		Crossover:      crossover,
		Mutation:       mutation,
		GenomeLength:   cfg.GenomeLength,
		PopulationSize: cfg.PopulationSize,
		Generations:    cfg.Generations,
		Seed:           cfg.Seed,
		Observer:       cfg.Observer,
	}, nil
}

// StopRun cancels an active run; it terminates before its next generation.
func (p *Polis) StopRun(runID string) error {
	if runID == "" {
		return fmt.Errorf("run id is required")
	}
	p.mu.RLock()
	cancel, ok := p.runs[runID]
	p.mu.RUnlock()
	if !ok {
		return fmt.Errorf("run not active: %s", runID)
	}
	cancel()
	return nil
}

func (p *Polis) ActiveRuns() []string {
	p.mu.RLock()
	defer p.mu.RUnlock()

	ids := make([]string, 0, len(p.runs))
	for id := range p.runs {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

func (p *Polis) registerRun(runID string, cancel context.CancelFunc) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.started {
		return fmt.Errorf("polis is not initialized")
	}
	if _, exists := p.runs[runID]; exists {
		return fmt.Errorf("run already active: %s", runID)
	}
	p.runs[runID] = cancel
	return nil
}

func (p *Polis) unregisterRun(runID string) {
	p.mu.Lock()
	delete(p.runs, runID)
	p.mu.Unlock()
}

func selectorBouts(s evo.Selector) int {
	if t, ok := s.(evo.TournamentSelector); ok {
		if t.Bouts <= 0 {
			return evo.DefaultBouts
		}
		return t.Bouts
	}
	return 0
}

func crossoverRate(c evo.Crossover) float64 {
	switch op := c.(type) {
	case evo.OnePointCrossover:
		return op.Rate
	case evo.UniformCrossover:
		return op.Rate
	}
	return 0
}

func mutationRate(m evo.Mutator) float64 {
	if op, ok := m.(evo.PointMutation); ok {
		return op.Rate
	}
	return 0
}
