package main

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"syscall"
	"testing"

	"onemax/internal/evo"
	"onemax/internal/stats"
	onemaxapi "onemax/pkg/onemax"
)

func chdirTemp(t *testing.T) string {
	t.Helper()
	origWD, err := os.Getwd()
	if err != nil {
		t.Fatalf("getwd: %v", err)
	}
	workdir := t.TempDir()
	if err := os.Chdir(workdir); err != nil {
		t.Fatalf("chdir tempdir: %v", err)
	}
	t.Cleanup(func() {
		_ = os.Chdir(origWD)
	})
	return workdir
}

func TestRunDefaultPrintsGenerationsAndSolution(t *testing.T) {
	var out bytes.Buffer
	if err := runDefault(context.Background(), &out, 1); err != nil {
		t.Fatalf("run default: %v", err)
	}
	lines := strings.Split(strings.TrimRight(out.String(), "\n"), "\n")
	if len(lines) < 1 || len(lines) > evo.DefaultGenerations+1 {
		t.Fatalf("unexpected line count %d", len(lines))
	}
	for i, line := range lines[:len(lines)-1] {
		if !strings.HasPrefix(line, " > gen ") || !strings.Contains(line, ", best: ") {
			t.Fatalf("line %d has unexpected format: %q", i, line)
		}
	}
	last := lines[len(lines)-1]
	if !strings.HasPrefix(last, "done! Solution: f=") || !strings.Contains(last, ", s=") {
		t.Fatalf("unexpected final line: %q", last)
	}
	bits := last[strings.Index(last, ", s=")+len(", s="):]
	if len(bits) != evo.DefaultGenomeLength {
		t.Fatalf("expected %d-bit solution, got %q", evo.DefaultGenomeLength, bits)
	}
}

func TestRunDefaultHonorsCanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	var out bytes.Buffer
	if err := runDefault(ctx, &out, 1); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected canceled, got %v", err)
	}
}

func TestRunCommandCreatesArtifactsAndHistory(t *testing.T) {
	chdirTemp(t)
	ctx := context.Background()

	args := []string{
		"run",
		"--store", "memory",
		"--run-id", "cli-run",
		"--bits", "16",
		"--pop", "30",
		"--gens", "40",
		"--seed", "11",
		"--quiet",
	}
	if err := run(ctx, args); err != nil {
		t.Fatalf("run command: %v", err)
	}

	entries, err := stats.ListRunIndex(benchmarksDir)
	if err != nil {
		t.Fatalf("list run index: %v", err)
	}
	if len(entries) != 1 || entries[0].RunID != "cli-run" {
		t.Fatalf("unexpected run index: %+v", entries)
	}
	for _, file := range []string{"config.json", "fitness_history.json", "fitness_series.csv", "generation_diagnostics.json", "best_genome.json"} {
		path := filepath.Join(benchmarksDir, "cli-run", file)
		if _, err := os.Stat(path); err != nil {
			t.Fatalf("expected artifact %s: %v", path, err)
		}
	}
	cfg, ok, err := stats.ReadRunConfig(benchmarksDir, "cli-run")
	if err != nil || !ok {
		t.Fatalf("read run config ok=%t err=%v", ok, err)
	}
	if cfg.GenomeLength != 16 || cfg.PopulationSize != 30 || cfg.MutationRate != 1.0/16 {
		t.Fatalf("unexpected run config: %+v", cfg)
	}

	for _, args := range [][]string{
		{"runs"},
		{"runs", "--store", "memory", "--json"},
		{"show", "--store", "memory", "--latest"},
		{"show", "--store", "memory", "--run-id", "cli-run", "--json"},
		{"fitness", "--store", "memory", "--latest"},
		{"diagnostics", "--store", "memory", "--run-id", "cli-run", "--json"},
		{"export", "--latest"},
	} {
		if err := run(ctx, args); err != nil {
			t.Fatalf("%v: %v", args, err)
		}
	}
	if _, err := os.Stat(filepath.Join(exportsDir, "cli-run", "fitness_series.csv")); err != nil {
		t.Fatalf("expected exported series: %v", err)
	}
}

func TestRunCommandRejectsInvalidConfig(t *testing.T) {
	chdirTemp(t)
	err := run(context.Background(), []string{"run", "--store", "memory", "--pop", "0", "--quiet"})
	if !errors.Is(err, evo.ErrInvalidConfig) {
		t.Fatalf("expected invalid config, got %v", err)
	}
	err = run(context.Background(), []string{"run", "--store", "memory", "--crossover-kind", "two_point", "--quiet"})
	if !errors.Is(err, evo.ErrCrossoverKind) || !errors.Is(err, evo.ErrInvalidConfig) {
		t.Fatalf("expected crossover kind error, got %v", err)
	}
}

func TestBenchmarkCommandWritesSummary(t *testing.T) {
	chdirTemp(t)
	args := []string{
		"benchmark",
		"--id", "bench-cli",
		"--runs", "4",
		"--workers", "2",
		"--bits", "12",
		"--pop", "20",
		"--gens", "50",
	}
	if err := run(context.Background(), args); err != nil {
		t.Fatalf("benchmark command: %v", err)
	}
	summary, ok, err := stats.ReadBenchmarkSummary(benchmarksDir, "bench-cli")
	if err != nil || !ok {
		t.Fatalf("read benchmark summary ok=%t err=%v", ok, err)
	}
	if summary.Runs != 4 || summary.Config.GenomeLength != 12 {
		t.Fatalf("unexpected summary: %+v", summary)
	}
}

func TestCommandArgumentErrors(t *testing.T) {
	chdirTemp(t)
	ctx := context.Background()
	cases := [][]string{
		{"bogus"},
		{"fitness"},
		{"fitness", "--run-id", "x", "--latest"},
		{"diagnostics"},
		{"export"},
		{"runs", "--limit", "0"},
		{"show"},
		{"show", "--store", "memory", "--run-id", "missing"},
		{"evaluate"},
		{"evaluate", "10x1"},
		{"evaluate", "1010", "0101"},
		{"benchmark", "--runs", "0"},
		{"run", "--no-such-flag"},
	}
	for _, args := range cases {
		if err := run(ctx, args); err == nil {
			t.Fatalf("expected error for %v", args)
		}
	}
	if err := run(ctx, []string{"bogus"}); !strings.Contains(err.Error(), "usage: onemaxctl") {
		t.Fatalf("expected usage text, got %v", err)
	}
}

func TestInitResetAndProblems(t *testing.T) {
	chdirTemp(t)
	ctx := context.Background()
	for _, args := range [][]string{
		{"init", "--store", "memory"},
		{"reset", "--store", "memory"},
		{"problems"},
	} {
		if err := run(ctx, args); err != nil {
			t.Fatalf("%v: %v", args, err)
		}
	}
}

func TestEvaluateCommand(t *testing.T) {
	ctx := context.Background()
	for _, args := range [][]string{
		{"evaluate", "1111"},
		{"evaluate", "--problem", "trap", "--trap-k", "2", "110000"},
	} {
		if err := run(ctx, args); err != nil {
			t.Fatalf("%v: %v", args, err)
		}
	}
	err := run(ctx, []string{"evaluate", "--problem", "leading_ones", "1111"})
	if !errors.Is(err, evo.ErrProblemNotFound) || !errors.Is(err, evo.ErrInvalidConfig) {
		t.Fatalf("expected unknown problem error, got %v", err)
	}
}

func TestStopOnSignalStopsActiveRuns(t *testing.T) {
	chdirTemp(t)
	ctx := context.Background()
	client, err := newClient("memory", "")
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	defer func() {
		_ = client.Close()
	}()

	sigCh := make(chan os.Signal, 1)
	stop := stopOnSignal(ctx, client, sigCh)
	defer stop()

	req := onemaxapi.DefaultRunRequest()
	req.RunID = "signalled"
	req.Bits = 256
	req.Population = 20
	req.Generations = 100_000
	sent := false
	req.Observer = func(evo.GenerationReport) {
		if !sent {
			sent = true
			sigCh <- syscall.SIGINT
		}
	}
	if _, err := client.Run(ctx, req); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected run stopped by signal, got %v", err)
	}
	if got := client.ActiveRuns(); len(got) != 0 {
		t.Fatalf("expected no active runs, got %v", got)
	}
}

func TestStopOnSignalReleasesWithoutSignal(t *testing.T) {
	chdirTemp(t)
	client, err := newClient("memory", "")
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	defer func() {
		_ = client.Close()
	}()
	stop := stopOnSignal(context.Background(), client, make(chan os.Signal))
	stop()
}
