package platform

import (
	"context"
	"errors"
	"testing"
	"time"

	"onemax/internal/evo"
	"onemax/internal/storage"
)

func TestPolisInitAndStop(t *testing.T) {
	p := NewPolis(Config{Store: storage.NewMemoryStore()})
	if p.Started() {
		t.Fatal("polis should not be started before init")
	}
	if err := p.Init(context.Background()); err != nil {
		t.Fatalf("init failed: %v", err)
	}
	if err := p.Init(context.Background()); err != nil {
		t.Fatalf("second init should be idempotent: %v", err)
	}
	if !p.Started() {
		t.Fatal("polis should be started after init")
	}
	p.Stop()
	if p.Started() {
		t.Fatal("expected polis stopped after stop call")
	}
}

func TestPolisInitRequiresStore(t *testing.T) {
	if err := NewPolis(Config{}).Init(context.Background()); err == nil {
		t.Fatal("expected missing store error")
	}
}

func TestRunEvolutionRequiresInit(t *testing.T) {
	p := NewPolis(Config{Store: storage.NewMemoryStore()})
	_, err := p.RunEvolution(context.Background(), EvolutionConfig{
		RunID:          "run-1",
		GenomeLength:   8,
		PopulationSize: 4,
		Generations:    1,
		CrossoverRate:  0.98,
		MutationRate:   -1,
	})
	if err == nil {
		t.Fatal("expected not initialized error")
	}
}

func TestRunEvolutionPersistsSummary(t *testing.T) {
	ctx := context.Background()
	store := storage.NewMemoryStore()
	clock := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	p := NewPolis(Config{Store: store, Now: func() time.Time {
		clock = clock.Add(250 * time.Millisecond)
		return clock
	}})
	if err := p.Init(ctx); err != nil {
		t.Fatalf("init: %v", err)
	}

	out, err := p.RunEvolution(ctx, EvolutionConfig{
		RunID:          "run-persist",
		GenomeLength:   16,
		PopulationSize: 20,
		Generations:    30,
		Bouts:          3,
		CrossoverRate:  0.98,
		MutationRate:   -1,
		Seed:           7,
	})
	if err != nil {
		t.Fatalf("run evolution: %v", err)
	}

	run, ok, err := store.GetRun(ctx, "run-persist")
	if err != nil || !ok {
		t.Fatalf("get run: ok=%t err=%v", ok, err)
	}
	if run.Problem != "onemax" || run.CrossoverKind != "one_point" {
		t.Fatalf("unexpected run record: %+v", run)
	}
	if run.MutationRate != 1.0/16 {
		t.Fatalf("expected default mutation 1/16, got %f", run.MutationRate)
	}
	if run.Bouts != 3 || run.Seed != 7 || run.MaxGenerations != 30 {
		t.Fatalf("unexpected run settings: %+v", run)
	}
	if run.BestFitness != out.Result.Best.Fitness || run.BestBits != out.Result.Best.Bits.String() {
		t.Fatalf("record best %d/%s differs from result %s", run.BestFitness, run.BestBits, out.Result.Best)
	}
	if run.ElapsedMillis != 250 {
		t.Fatalf("expected elapsed 250ms from fixed clock, got %d", run.ElapsedMillis)
	}
	if run.SchemaVersion != storage.CurrentSchemaVersion {
		t.Fatalf("expected versioned record, got %+v", run.VersionedRecord)
	}

	history, ok, err := store.GetFitnessHistory(ctx, "run-persist")
	if err != nil || !ok {
		t.Fatalf("get fitness history: ok=%t err=%v", ok, err)
	}
	if len(history) != out.Result.Generations+1 {
		t.Fatalf("expected %d history entries, got %d", out.Result.Generations+1, len(history))
	}
	diagnostics, ok, err := store.GetGenerationDiagnostics(ctx, "run-persist")
	if err != nil || !ok {
		t.Fatalf("get diagnostics: ok=%t err=%v", ok, err)
	}
	if len(diagnostics) != len(history) {
		t.Fatalf("expected diagnostics per generation, got %d", len(diagnostics))
	}
	if len(p.ActiveRuns()) != 0 {
		t.Fatalf("expected no active runs after completion, got %v", p.ActiveRuns())
	}
}

func TestRunEvolutionRejectsInvalidConfig(t *testing.T) {
	ctx := context.Background()
	p := NewPolis(Config{Store: storage.NewMemoryStore()})
	if err := p.Init(ctx); err != nil {
		t.Fatalf("init: %v", err)
	}
	_, err := p.RunEvolution(ctx, EvolutionConfig{
		RunID:          "bad",
		GenomeLength:   0,
		PopulationSize: 10,
		Generations:    5,
		MutationRate:   -1,
	})
	if !errors.Is(err, evo.ErrInvalidConfig) {
		t.Fatalf("expected invalid config, got %v", err)
	}
	_, err = p.RunEvolution(ctx, EvolutionConfig{
		RunID:          "bad-kind",
		GenomeLength:   8,
		PopulationSize: 10,
		CrossoverKind:  "two_point",
		MutationRate:   -1,
	})
	if !errors.Is(err, evo.ErrCrossoverKind) || !errors.Is(err, evo.ErrInvalidConfig) {
		t.Fatalf("expected crossover kind error, got %v", err)
	}
	_, err = p.RunEvolution(ctx, EvolutionConfig{
		RunID:          "bad-problem",
		Problem:        "sphere",
		GenomeLength:   8,
		PopulationSize: 10,
		MutationRate:   -1,
	})
	if !errors.Is(err, evo.ErrProblemNotFound) || !errors.Is(err, evo.ErrInvalidConfig) {
		t.Fatalf("expected problem not found, got %v", err)
	}
}

func TestStopRunCancelsActiveRun(t *testing.T) {
	ctx := context.Background()
	store := storage.NewMemoryStore()
	p := NewPolis(Config{Store: store})
	if err := p.Init(ctx); err != nil {
		t.Fatalf("init: %v", err)
	}

	var active []string
	_, err := p.RunEvolution(ctx, EvolutionConfig{
		RunID:          "run-stop",
		GenomeLength:   64,
		PopulationSize: 4,
		Generations:    100,
		CrossoverRate:  0,
		MutationRate:   0,
		Seed:           3,
		Observer: func(report evo.GenerationReport) {
			if report.Generation == 1 {
				active = p.ActiveRuns()
				if err := p.StopRun("run-stop"); err != nil {
					t.Errorf("stop run: %v", err)
				}
			}
		},
	})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected canceled run, got %v", err)
	}
	if len(active) != 1 || active[0] != "run-stop" {
		t.Fatalf("expected run-stop active during observer, got %v", active)
	}
	if _, ok, _ := store.GetRun(ctx, "run-stop"); ok {
		t.Fatal("canceled run should not be persisted")
	}
	if err := p.StopRun("run-stop"); err == nil {
		t.Fatal("expected error stopping finished run")
	}
}

func TestPolisResetClearsStore(t *testing.T) {
	ctx := context.Background()
	store := storage.NewMemoryStore()
	p := NewPolis(Config{Store: store})
	if err := p.Init(ctx); err != nil {
		t.Fatalf("init: %v", err)
	}
	if _, err := p.RunEvolution(ctx, EvolutionConfig{
		RunID:          "run-reset",
		GenomeLength:   8,
		PopulationSize: 10,
		Generations:    5,
		CrossoverRate:  0.98,
		MutationRate:   -1,
	}); err != nil {
		t.Fatalf("run evolution: %v", err)
	}
	if err := p.Reset(ctx); err != nil {
		t.Fatalf("reset: %v", err)
	}
	if !p.Started() {
		t.Fatal("expected polis started after reset")
	}
	runs, err := store.ListRuns(ctx, 0)
	if err != nil {
		t.Fatalf("list runs: %v", err)
	}
	if len(runs) != 0 {
		t.Fatalf("expected empty store after reset, got %d runs", len(runs))
	}
}
