package onemax

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/sourcegraph/conc/pool"
	"gonum.org/v1/gonum/stat"

	"onemax/internal/evo"
	"onemax/internal/model"
	"onemax/internal/platform"
	"onemax/internal/stats"
	"onemax/internal/storage"
)

const (
	defaultBenchmarksDir = "benchmarks"
	defaultExportsDir    = "exports"
	defaultDBPath        = "onemax.db"
)

type Options struct {
	StoreKind     string
	DBPath        string
	BenchmarksDir string
	ExportsDir    string
}

type Client struct {
	store storage.Store
	polis *platform.Polis

	benchmarksDir string
	exportsDir    string
}

type RunRequest struct {
	RunID         string
	Problem       string
	TrapK         int
	Bits          int
	Population    int
	Generations   int
	Bouts         int
	CrossoverKind string
	CrossoverRate float64
	// MutationRate < 0 selects 1/Bits.
	MutationRate float64
	Seed         int64
	Observer     evo.Observer
}

// DefaultRunRequest returns the classic settings: 64 bits, 100 genomes,
// 100 generations, 3-bout tournaments, 0.98 one-point crossover and 1/64
// point mutation.
func DefaultRunRequest() RunRequest {
	return RunRequest{
		Problem:       "onemax",
		Bits:          evo.DefaultGenomeLength,
		Population:    evo.DefaultPopulationSize,
		Generations:   evo.DefaultGenerations,
		Bouts:         evo.DefaultBouts,
		CrossoverKind: "one_point",
		CrossoverRate: evo.DefaultCrossoverRate,
		MutationRate:  -1,
		Seed:          1,
	}
}

type RunSummary struct {
	RunID            string
	ArtifactsDir     string
	Best             string
	BestFitness      int
	BestByGeneration []int
	GenerationsRun   int
	Evaluations      int
	OptimumReached   bool
	Elapsed          time.Duration
}

type RunsRequest struct {
	Limit int
}

type RunItem struct {
	RunID          string
	CreatedAtUTC   string
	Problem        string
	Bits           int
	Population     int
	Generations    int
	Seed           int64
	GenerationsRun int
	OptimumReached bool
	BestFitness    int
}

type ExportRequest struct {
	RunID  string
	Latest bool
	OutDir string
}

type ExportSummary struct {
	RunID     string
	Directory string
}

type ShowRequest struct {
	RunID  string
	Latest bool
}

type RunDetails struct {
	RunID     string                  `json:"run_id"`
	Record    *model.RunRecord        `json:"record,omitempty"`
	Config    *stats.RunConfig        `json:"config,omitempty"`
	Benchmark *stats.BenchmarkSummary `json:"benchmark,omitempty"`
}

type FitnessHistoryRequest struct {
	RunID  string
	Latest bool
	Limit  int
}

type DiagnosticsRequest struct {
	RunID  string
	Latest bool
	Limit  int
}

type BenchmarkRequest struct {
	// ID names the benchmark artifact directory; generated when empty.
	ID string
	// Run is the template for every run; run i uses seed Run.Seed+i.
	Run     RunRequest
	Runs    int
	Workers int
}

type BenchmarkResult struct {
	ID           string
	ArtifactsDir string
	Summary      stats.BenchmarkSummary
}

func New(opts Options) (*Client, error) {
	storeKind := opts.StoreKind
	if storeKind == "" {
		storeKind = storage.DefaultStoreKind()
	}
	dbPath := opts.DBPath
	if dbPath == "" {
		dbPath = defaultDBPath
	}
	benchmarksDir := opts.BenchmarksDir
	if benchmarksDir == "" {
		benchmarksDir = defaultBenchmarksDir
	}
	exportsDir := opts.ExportsDir
	if exportsDir == "" {
		exportsDir = defaultExportsDir
	}

	store, err := storage.NewStore(storeKind, dbPath)
	if err != nil {
		return nil, err
	}

	return &Client{
		store:         store,
		benchmarksDir: benchmarksDir,
		exportsDir:    exportsDir,
	}, nil
}

func (c *Client) Close() error {
	return storage.CloseIfSupported(c.store)
}

func (c *Client) Init(ctx context.Context) error {
	_, err := c.ensurePolis(ctx)
	return err
}

func (c *Client) Reset(ctx context.Context) error {
	p, err := c.ensurePolis(ctx)
	if err != nil {
		return err
	}
	return p.Reset(ctx)
}

func (c *Client) Run(ctx context.Context, req RunRequest) (RunSummary, error) {
	p, err := c.ensurePolis(ctx)
	if err != nil {
		return RunSummary{}, err
	}
	runID := req.RunID
	if runID == "" {
		runID = uuid.NewString()
	}

	out, err := p.RunEvolution(ctx, evolutionConfig(runID, req))
	if err != nil {
		return RunSummary{}, err
	}
	record := out.Run

	runDir, err := stats.WriteRunArtifacts(c.benchmarksDir, stats.RunArtifacts{
		Config:                runConfigFromRecord(record, req.TrapK),
		BestByGeneration:      out.Result.BestByGeneration,
		GenerationDiagnostics: out.Result.Diagnostics,
		GenerationsRun:        record.GenerationsRun,
		OptimumReached:        record.OptimumReached,
		Best:                  stats.BestGenome{Fitness: record.BestFitness, Bits: record.BestBits},
	})
	if err != nil {
		return RunSummary{}, fmt.Errorf("write artifacts %s: %w", runID, err)
	}
	if err := stats.AppendRunIndex(c.benchmarksDir, stats.RunIndexEntry{
		RunID:          runID,
		Problem:        record.Problem,
		GenomeLength:   record.GenomeLength,
		PopulationSize: record.PopulationSize,
		Generations:    record.MaxGenerations,
		Seed:           record.Seed,
		GenerationsRun: record.GenerationsRun,
		OptimumReached: record.OptimumReached,
		BestFitness:    record.BestFitness,
		CreatedAtUTC:   record.CreatedAtUTC,
	}); err != nil {
		return RunSummary{}, fmt.Errorf("index run %s: %w", runID, err)
	}

	return RunSummary{
		RunID:            runID,
		ArtifactsDir:     runDir,
		Best:             record.BestBits,
		BestFitness:      record.BestFitness,
		BestByGeneration: append([]int(nil), out.Result.BestByGeneration...),
		GenerationsRun:   record.GenerationsRun,
		Evaluations:      record.Evaluations,
		OptimumReached:   record.OptimumReached,
		Elapsed:          time.Duration(record.ElapsedMillis) * time.Millisecond,
	}, nil
}

// Runs lists runs newest first. Run records held by the store are preferred;
// when the store has none (the in-memory store of a fresh process) the
// on-disk run index is listed instead.
func (c *Client) Runs(ctx context.Context, req RunsRequest) ([]RunItem, error) {
	if req.Limit <= 0 {
		req.Limit = 20
	}

	if _, err := c.ensurePolis(ctx); err != nil {
		return nil, err
	}
	records, err := c.store.ListRuns(ctx, req.Limit)
	if err != nil {
		return nil, err
	}
	if len(records) > 0 {
		out := make([]RunItem, 0, len(records))
		for _, r := range records {
			out = append(out, RunItem{
				RunID:          r.ID,
				CreatedAtUTC:   r.CreatedAtUTC,
				Problem:        r.Problem,
				Bits:           r.GenomeLength,
				Population:     r.PopulationSize,
				Generations:    r.MaxGenerations,
				Seed:           r.Seed,
				GenerationsRun: r.GenerationsRun,
				OptimumReached: r.OptimumReached,
				BestFitness:    r.BestFitness,
			})
		}
		return out, nil
	}

	entries, err := stats.ListRunIndex(c.benchmarksDir)
	if err != nil {
		return nil, err
	}
	if len(entries) > req.Limit {
		entries = entries[:req.Limit]
	}

	out := make([]RunItem, 0, len(entries))
	for _, e := range entries {
		out = append(out, RunItem{
			RunID:          e.RunID,
			CreatedAtUTC:   e.CreatedAtUTC,
			Problem:        e.Problem,
			Bits:           e.GenomeLength,
			Population:     e.PopulationSize,
			Generations:    e.Generations,
			Seed:           e.Seed,
			GenerationsRun: e.GenerationsRun,
			OptimumReached: e.OptimumReached,
			BestFitness:    e.BestFitness,
		})
	}
	return out, nil
}

// Show collects what is known about a run or benchmark id: the stored run
// record, the artifact config and, for benchmarks, the summary.
func (c *Client) Show(ctx context.Context, req ShowRequest) (RunDetails, error) {
	runID, err := c.resolveRunID(req.RunID, req.Latest, "show")
	if err != nil {
		return RunDetails{}, err
	}
	if _, err := c.ensurePolis(ctx); err != nil {
		return RunDetails{}, err
	}

	details := RunDetails{RunID: runID}
	record, ok, err := c.store.GetRun(ctx, runID)
	if err != nil {
		return RunDetails{}, err
	}
	if ok {
		details.Record = &record
	}
	cfg, ok, err := stats.ReadRunConfig(c.benchmarksDir, runID)
	if err != nil {
		return RunDetails{}, err
	}
	if ok {
		details.Config = &cfg
	}
	summary, ok, err := stats.ReadBenchmarkSummary(c.benchmarksDir, runID)
	if err != nil {
		return RunDetails{}, err
	}
	if ok {
		details.Benchmark = &summary
	}
	if details.Record == nil && details.Config == nil {
		return RunDetails{}, fmt.Errorf("run not found for run id: %s", runID)
	}
	return details, nil
}

// StopRun cancels a run evolving in this client; it returns before the next
// generation is bred.
func (c *Client) StopRun(ctx context.Context, runID string) error {
	p, err := c.ensurePolis(ctx)
	if err != nil {
		return err
	}
	return p.StopRun(runID)
}

// ActiveRuns lists ids of runs currently evolving in this client.
func (c *Client) ActiveRuns() []string {
	if c.polis == nil {
		return nil
	}
	return c.polis.ActiveRuns()
}

func (c *Client) Export(_ context.Context, req ExportRequest) (ExportSummary, error) {
	runID, err := c.resolveRunID(req.RunID, req.Latest, "export")
	if err != nil {
		return ExportSummary{}, err
	}
	outDir := req.OutDir
	if outDir == "" {
		outDir = c.exportsDir
	}
	dir, err := stats.ExportRunArtifacts(c.benchmarksDir, runID, outDir)
	if err != nil {
		return ExportSummary{}, err
	}
	return ExportSummary{RunID: runID, Directory: dir}, nil
}

// FitnessHistory returns best-so-far fitness per generation, starting at
// generation 0. Runs missing from the store are read back from artifacts.
func (c *Client) FitnessHistory(ctx context.Context, req FitnessHistoryRequest) ([]int, error) {
	if req.Limit < 0 {
		return nil, errors.New("limit must be >= 0")
	}
	runID, err := c.resolveRunID(req.RunID, req.Latest, "fitness history")
	if err != nil {
		return nil, err
	}

	if _, err := c.ensurePolis(ctx); err != nil {
		return nil, err
	}
	history, ok, err := c.store.GetFitnessHistory(ctx, runID)
	if err != nil {
		return nil, err
	}
	if !ok {
		history, ok, err = stats.ReadFitnessSeries(c.benchmarksDir, runID)
		if err != nil {
			return nil, err
		}
	}
	if !ok {
		return nil, fmt.Errorf("fitness history not found for run id: %s", runID)
	}
	if req.Limit > 0 && len(history) > req.Limit {
		history = history[:req.Limit]
	}
	return append([]int(nil), history...), nil
}

func (c *Client) Diagnostics(ctx context.Context, req DiagnosticsRequest) ([]model.GenerationDiagnostics, error) {
	if req.Limit < 0 {
		return nil, errors.New("limit must be >= 0")
	}
	runID, err := c.resolveRunID(req.RunID, req.Latest, "diagnostics")
	if err != nil {
		return nil, err
	}

	if _, err := c.ensurePolis(ctx); err != nil {
		return nil, err
	}
	diagnostics, ok, err := c.store.GetGenerationDiagnostics(ctx, runID)
	if err != nil {
		return nil, err
	}
	if !ok {
		diagnostics, ok, err = stats.ReadGenerationDiagnostics(c.benchmarksDir, runID)
		if err != nil {
			return nil, err
		}
	}
	if !ok {
		return nil, fmt.Errorf("diagnostics not found for run id: %s", runID)
	}
	if req.Limit > 0 && len(diagnostics) > req.Limit {
		diagnostics = diagnostics[:req.Limit]
	}
	return append([]model.GenerationDiagnostics(nil), diagnostics...), nil
}

// Benchmark executes independent seeded runs on a bounded worker pool and
// summarizes how reliably the configuration reaches the optimum. Benchmark
// runs are not persisted individually; only the summary is written.
func (c *Client) Benchmark(ctx context.Context, req BenchmarkRequest) (BenchmarkResult, error) {
	if req.Runs <= 0 {
		return BenchmarkResult{}, errors.New("benchmark runs must be > 0")
	}
	workers := req.Workers
	if workers <= 0 {
		workers = 1
	}
	id := req.ID
	if id == "" {
		id = "benchmark-" + uuid.NewString()
	}

	template := evolutionConfig(id, req.Run)
	template.Observer = nil
	results := make([]evo.RunResult, req.Runs)

	p := pool.New().WithContext(ctx).WithMaxGoroutines(workers).WithCancelOnError()
	for i := 0; i < req.Runs; i++ {
		i := i
		p.Go(func(ctx context.Context) error {
			cfg := template
			cfg.Seed = template.Seed + int64(i)
			monitorCfg, err := platform.MonitorConfigFor(cfg)
			if err != nil {
				return err
			}
			monitor, err := evo.NewPopulationMonitor(monitorCfg)
			if err != nil {
				return err
			}
			result, err := monitor.Run(ctx)
			if err != nil {
				return fmt.Errorf("benchmark run %d (seed %d): %w", i, cfg.Seed, err)
			}
			results[i] = result
			return nil
		})
	}
	if err := p.Wait(); err != nil {
		return BenchmarkResult{}, err
	}

	monitorCfg, err := platform.MonitorConfigFor(template)
	if err != nil {
		return BenchmarkResult{}, err
	}
	config := stats.RunConfig{
		RunID:          id,
		Problem:        template.Problem,
		TrapK:          template.TrapK,
		GenomeLength:   template.GenomeLength,
		PopulationSize: template.PopulationSize,
		Generations:    template.Generations,
		Bouts:          template.Bouts,
		CrossoverKind:  monitorCfg.Crossover.Name(),
		CrossoverRate:  template.CrossoverRate,
		MutationRate:   template.MutationRate,
		Seed:           template.Seed,
	}
	if config.Problem == "" {
		config.Problem = "onemax"
	}
	if config.Bouts <= 0 {
		config.Bouts = evo.DefaultBouts
	}
	if config.MutationRate < 0 {
		config.MutationRate = evo.DefaultMutationRate(config.GenomeLength)
	}
	summary := summarizeBenchmark(config, results)

	runDir := filepath.Join(c.benchmarksDir, id)
	if err := stats.WriteBenchmarkSummary(runDir, summary); err != nil {
		return BenchmarkResult{}, fmt.Errorf("write benchmark summary %s: %w", id, err)
	}
	return BenchmarkResult{ID: id, ArtifactsDir: runDir, Summary: summary}, nil
}

func summarizeBenchmark(config stats.RunConfig, results []evo.RunResult) stats.BenchmarkSummary {
	summary := stats.BenchmarkSummary{Config: config, Runs: len(results)}
	if len(results) == 0 {
		return summary
	}
	best := make([]float64, len(results))
	generations := make([]float64, len(results))
	evaluations := make([]float64, len(results))
	summary.WorstBestFitness = results[0].Best.Fitness
	for i, r := range results {
		if r.OptimumReached {
			summary.Successes++
		}
		best[i] = float64(r.Best.Fitness)
		generations[i] = float64(r.Generations)
		evaluations[i] = float64(r.Evaluations)
		if r.Best.Fitness < summary.WorstBestFitness {
			summary.WorstBestFitness = r.Best.Fitness
		}
		if r.Generations > summary.SlowestGenerations {
			summary.SlowestGenerations = r.Generations
		}
	}
	summary.SuccessRate = float64(summary.Successes) / float64(len(results))
	summary.BestFitnessMean, summary.BestFitnessStd = meanStdDev(best)
	summary.GenerationsMean, summary.GenerationsStd = meanStdDev(generations)
	summary.EvaluationsMean = stat.Mean(evaluations, nil)
	return summary
}

func meanStdDev(values []float64) (float64, float64) {
	if len(values) < 2 {
		return stat.Mean(values, nil), 0
	}
	return stat.MeanStdDev(values, nil)
}

func (c *Client) resolveRunID(runID string, latest bool, what string) (string, error) {
	if runID != "" && latest {
		return "", errors.New("use either run id or latest")
	}
	if latest {
		entries, err := stats.ListRunIndex(c.benchmarksDir)
		if err != nil {
			return "", err
		}
		if len(entries) == 0 {
			return "", errors.New("no runs available")
		}
		runID = entries[0].RunID
	}
	if runID == "" {
		return "", fmt.Errorf("%s requires run id or latest", what)
	}
	return runID, nil
}

func (c *Client) ensurePolis(ctx context.Context) (*platform.Polis, error) {
	if c.polis != nil {
		if c.polis.Started() {
			return c.polis, nil
		}
		if err := c.polis.Init(ctx); err != nil {
			return nil, err
		}
		return c.polis, nil
	}
	p := platform.NewPolis(platform.Config{Store: c.store})
	if err := p.Init(ctx); err != nil {
		return nil, err
	}
	c.polis = p
	return c.polis, nil
}

func evolutionConfig(runID string, req RunRequest) platform.EvolutionConfig {
	return platform.EvolutionConfig{
		RunID:          runID,
		Problem:        req.Problem,
		TrapK:          req.TrapK,
		GenomeLength:   req.Bits,
		PopulationSize: req.Population,
		Generations:    req.Generations,
		Bouts:          req.Bouts,
		CrossoverKind:  req.CrossoverKind,
		CrossoverRate:  req.CrossoverRate,
		MutationRate:   req.MutationRate,
		Seed:           req.Seed,
		Observer:       req.Observer,
	}
}

func runConfigFromRecord(record model.RunRecord, trapK int) stats.RunConfig {
	cfg := stats.RunConfig{
		RunID:          record.ID,
		Problem:        record.Problem,
		GenomeLength:   record.GenomeLength,
		PopulationSize: record.PopulationSize,
		Generations:    record.MaxGenerations,
		Bouts:          record.Bouts,
		CrossoverKind:  record.CrossoverKind,
		CrossoverRate:  record.CrossoverRate,
		MutationRate:   record.MutationRate,
		Seed:           record.Seed,
	}
	if record.Problem == "trap" {
		cfg.TrapK = trapK
	}
	return cfg
}
