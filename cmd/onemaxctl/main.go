package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"math"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/dustin/go-humanize"

	"onemax/internal/evo"
	"onemax/internal/storage"
	onemaxapi "onemax/pkg/onemax"
)

const (
	benchmarksDir = "benchmarks"
	exportsDir    = "exports"
	defaultDBPath = "onemax.db"
)

func main() {
	if err := run(context.Background(), os.Args[1:]); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return runDefault(ctx, os.Stdout, time.Now().UnixNano())
	}

	switch args[0] {
	case "init":
		return runInit(ctx, args[1:])
	case "reset":
		return runReset(ctx, args[1:])
	case "run":
		return runRun(ctx, args[1:])
	case "benchmark":
		return runBenchmark(ctx, args[1:])
	case "runs":
		return runRuns(ctx, args[1:])
	case "fitness":
		return runFitness(ctx, args[1:])
	case "diagnostics":
		return runDiagnostics(ctx, args[1:])
	case "export":
		return runExport(ctx, args[1:])
	case "show":
		return runShow(ctx, args[1:])
	case "evaluate":
		return runEvaluate(ctx, args[1:])
	case "problems":
		return runProblems(ctx, args[1:])
	default:
		return usageError(fmt.Sprintf("unknown command: %s", args[0]))
	}
}

// runDefault evolves the classic 64-bit problem without touching any store
// or artifact directory.
func runDefault(ctx context.Context, w io.Writer, seed int64) error {
	cfg := evo.DefaultMonitorConfig()
	cfg.Seed = seed
	cfg.Observer = generationPrinter(w)
	monitor, err := evo.NewPopulationMonitor(cfg)
	if err != nil {
		return err
	}
	result, err := monitor.Run(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintf(w, "done! Solution: %s\n", result.Best)
	return nil
}

func generationPrinter(w io.Writer) evo.Observer {
	return func(report evo.GenerationReport) {
		fmt.Fprintf(w, " > gen %d, best: %d, %s\n", report.Generation, report.BestSoFar.Fitness, report.BestSoFar.Bits)
	}
}

func runInit(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("init", flag.ContinueOnError)
	storeKind := fs.String("store", storage.DefaultStoreKind(), "store backend: memory|sqlite")
	dbPath := fs.String("db-path", defaultDBPath, "sqlite database path")
	if err := fs.Parse(args); err != nil {
		return err
	}

	client, err := newClient(*storeKind, *dbPath)
	if err != nil {
		return err
	}
	defer func() {
		_ = client.Close()
	}()
	if err := client.Init(ctx); err != nil {
		return err
	}

	fmt.Printf("initialized store=%s\n", *storeKind)
	return nil
}

func runReset(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("reset", flag.ContinueOnError)
	storeKind := fs.String("store", storage.DefaultStoreKind(), "store backend: memory|sqlite")
	dbPath := fs.String("db-path", defaultDBPath, "sqlite database path")
	if err := fs.Parse(args); err != nil {
		return err
	}

	client, err := newClient(*storeKind, *dbPath)
	if err != nil {
		return err
	}
	defer func() {
		_ = client.Close()
	}()
	if err := client.Reset(ctx); err != nil {
		return err
	}

	fmt.Printf("reset store=%s\n", *storeKind)
	return nil
}

func runRun(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("run", flag.ContinueOnError)
	flags := bindRunFlags(fs)
	runID := fs.String("run-id", "", "explicit run id (optional)")
	storeKind := fs.String("store", storage.DefaultStoreKind(), "store backend: memory|sqlite")
	dbPath := fs.String("db-path", defaultDBPath, "sqlite database path")
	quiet := fs.Bool("quiet", false, "suppress per-generation lines")
	if err := fs.Parse(args); err != nil {
		return err
	}

	req, err := flags.request(fs)
	if err != nil {
		return err
	}
	if *runID != "" {
		req.RunID = *runID
	}
	if !*quiet {
		req.Observer = generationPrinter(os.Stdout)
	}

	client, err := newClient(*storeKind, *dbPath)
	if err != nil {
		return err
	}
	defer func() {
		_ = client.Close()
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)
	stop := stopOnSignal(ctx, client, sigCh)
	defer stop()

	summary, err := client.Run(ctx, req)
	if err != nil {
		return err
	}

	fmt.Printf("done! Solution: f=%d, s=%s\n", summary.BestFitness, summary.Best)
	fmt.Printf("run_id=%s optimum_reached=%t generations=%d evaluations=%s elapsed=%s artifacts=%s\n",
		summary.RunID,
		summary.OptimumReached,
		summary.GenerationsRun,
		humanize.Comma(int64(summary.Evaluations)),
		summary.Elapsed,
		filepath.Clean(summary.ArtifactsDir),
	)
	return nil
}

func runBenchmark(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("benchmark", flag.ContinueOnError)
	flags := bindRunFlags(fs)
	id := fs.String("id", "", "benchmark id (optional)")
	runs := fs.Int("runs", 20, "number of independent seeded runs")
	workers := fs.Int("workers", 4, "concurrent runs")
	jsonOut := fs.Bool("json", false, "emit benchmark summary as JSON")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *runs <= 0 {
		return errors.New("runs must be > 0")
	}

	req, err := flags.request(fs)
	if err != nil {
		return err
	}

	client, err := newClient("memory", "")
	if err != nil {
		return err
	}
	defer func() {
		_ = client.Close()
	}()

	result, err := client.Benchmark(ctx, onemaxapi.BenchmarkRequest{
		ID:      *id,
		Run:     req,
		Runs:    *runs,
		Workers: *workers,
	})
	if err != nil {
		return err
	}
	if *jsonOut {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(result.Summary)
	}

	s := result.Summary
	fmt.Printf("benchmark_id=%s runs=%d successes=%d success_rate=%.2f best_mean=%.3f best_std=%.3f worst_best=%d gens_mean=%.2f gens_std=%.2f slowest_gens=%d evaluations_mean=%s artifacts=%s\n",
		result.ID,
		s.Runs,
		s.Successes,
		s.SuccessRate,
		s.BestFitnessMean,
		s.BestFitnessStd,
		s.WorstBestFitness,
		s.GenerationsMean,
		s.GenerationsStd,
		s.SlowestGenerations,
		humanize.Comma(int64(math.Round(s.EvaluationsMean))),
		filepath.Clean(result.ArtifactsDir),
	)
	return nil
}

func runRuns(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("runs", flag.ContinueOnError)
	limit := fs.Int("limit", 20, "max runs to list")
	storeKind := fs.String("store", storage.DefaultStoreKind(), "store backend: memory|sqlite")
	dbPath := fs.String("db-path", defaultDBPath, "sqlite database path")
	jsonOut := fs.Bool("json", false, "emit runs list as JSON")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *limit <= 0 {
		return errors.New("limit must be > 0")
	}

	client, err := newClient(*storeKind, *dbPath)
	if err != nil {
		return err
	}
	defer func() {
		_ = client.Close()
	}()

	items, err := client.Runs(ctx, onemaxapi.RunsRequest{Limit: *limit})
	if err != nil {
		return err
	}
	if len(items) == 0 {
		fmt.Println("no runs found")
		return nil
	}
	if *jsonOut {
		type runsItem struct {
			RunID          string `json:"run_id"`
			CreatedAtUTC   string `json:"created_at_utc"`
			Problem        string `json:"problem"`
			Bits           int    `json:"bits"`
			Population     int    `json:"population_size"`
			Generations    int    `json:"generations"`
			Seed           int64  `json:"seed"`
			GenerationsRun int    `json:"generations_run"`
			OptimumReached bool   `json:"optimum_reached"`
			BestFitness    int    `json:"best_fitness"`
		}
		out := make([]runsItem, 0, len(items))
		for _, item := range items {
			out = append(out, runsItem(item))
		}
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(out)
	}

	for _, item := range items {
		fmt.Printf("run_id=%s created=%s problem=%s bits=%d pop=%d gens=%d/%d seed=%d optimum_reached=%t best_fitness=%d\n",
			item.RunID,
			createdAge(item.CreatedAtUTC),
			item.Problem,
			item.Bits,
			item.Population,
			item.GenerationsRun,
			item.Generations,
			item.Seed,
			item.OptimumReached,
			item.BestFitness,
		)
	}
	return nil
}

func runFitness(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("fitness", flag.ContinueOnError)
	runID := fs.String("run-id", "", "run id")
	latest := fs.Bool("latest", false, "show fitness history for the most recent run from run index")
	limit := fs.Int("limit", 0, "max generations to print (<=0 for all)")
	jsonOut := fs.Bool("json", false, "emit fitness history as JSON")
	storeKind := fs.String("store", storage.DefaultStoreKind(), "store backend: memory|sqlite")
	dbPath := fs.String("db-path", defaultDBPath, "sqlite database path")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if err := checkRunSelector("fitness", *runID, *latest); err != nil {
		return err
	}
	if *limit < 0 {
		*limit = 0
	}

	client, err := newClient(*storeKind, *dbPath)
	if err != nil {
		return err
	}
	defer func() {
		_ = client.Close()
	}()

	history, err := client.FitnessHistory(ctx, onemaxapi.FitnessHistoryRequest{
		RunID:  *runID,
		Latest: *latest,
		Limit:  *limit,
	})
	if err != nil {
		return err
	}
	if len(history) == 0 {
		fmt.Println("no fitness history")
		return nil
	}
	if *jsonOut {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(history)
	}

	for gen, best := range history {
		fmt.Printf("generation=%d best_fitness=%d\n", gen, best)
	}
	return nil
}

func runDiagnostics(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("diagnostics", flag.ContinueOnError)
	runID := fs.String("run-id", "", "run id")
	latest := fs.Bool("latest", false, "show diagnostics for the most recent run from run index")
	limit := fs.Int("limit", 0, "max generations to print (<=0 for all)")
	jsonOut := fs.Bool("json", false, "emit diagnostics as JSON")
	storeKind := fs.String("store", storage.DefaultStoreKind(), "store backend: memory|sqlite")
	dbPath := fs.String("db-path", defaultDBPath, "sqlite database path")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if err := checkRunSelector("diagnostics", *runID, *latest); err != nil {
		return err
	}
	if *limit < 0 {
		*limit = 0
	}

	client, err := newClient(*storeKind, *dbPath)
	if err != nil {
		return err
	}
	defer func() {
		_ = client.Close()
	}()

	diagnostics, err := client.Diagnostics(ctx, onemaxapi.DiagnosticsRequest{
		RunID:  *runID,
		Latest: *latest,
		Limit:  *limit,
	})
	if err != nil {
		return err
	}
	if len(diagnostics) == 0 {
		fmt.Println("no diagnostics")
		return nil
	}
	if *jsonOut {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(diagnostics)
	}

	for _, d := range diagnostics {
		fmt.Printf("generation=%d best=%d best_so_far=%d mean=%.3f stddev=%.3f min=%d distinct=%d\n",
			d.Generation,
			d.BestFitness,
			d.BestSoFar,
			d.MeanFitness,
			d.StdDevFitness,
			d.MinFitness,
			d.DistinctGenomes,
		)
	}
	return nil
}

func runExport(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("export", flag.ContinueOnError)
	runID := fs.String("run-id", "", "run id")
	latest := fs.Bool("latest", false, "export the most recent run from run index")
	outDir := fs.String("out", exportsDir, "export output directory")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if err := checkRunSelector("export", *runID, *latest); err != nil {
		return err
	}

	client, err := newClient("memory", "")
	if err != nil {
		return err
	}
	defer func() {
		_ = client.Close()
	}()

	exported, err := client.Export(ctx, onemaxapi.ExportRequest{
		RunID:  *runID,
		Latest: *latest,
		OutDir: *outDir,
	})
	if err != nil {
		return err
	}

	fmt.Printf("exported run_id=%s to=%s\n", exported.RunID, filepath.Clean(exported.Directory))
	return nil
}

func runShow(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("show", flag.ContinueOnError)
	runID := fs.String("run-id", "", "run or benchmark id")
	latest := fs.Bool("latest", false, "use latest run")
	storeKind := fs.String("store", storage.DefaultStoreKind(), "store backend: memory|sqlite")
	dbPath := fs.String("db-path", defaultDBPath, "sqlite database path")
	jsonOut := fs.Bool("json", false, "emit run details as JSON")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if err := checkRunSelector("show", *runID, *latest); err != nil {
		return err
	}

	client, err := newClient(*storeKind, *dbPath)
	if err != nil {
		return err
	}
	defer func() {
		_ = client.Close()
	}()

	details, err := client.Show(ctx, onemaxapi.ShowRequest{RunID: *runID, Latest: *latest})
	if err != nil {
		return err
	}
	if *jsonOut {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(details)
	}

	fmt.Printf("run_id=%s\n", details.RunID)
	if cfg := details.Config; cfg != nil {
		fmt.Printf("config problem=%s bits=%d pop=%d gens=%d bouts=%d crossover=%s crossover_rate=%.2f mutation_rate=%.4f seed=%d\n",
			cfg.Problem,
			cfg.GenomeLength,
			cfg.PopulationSize,
			cfg.Generations,
			cfg.Bouts,
			cfg.CrossoverKind,
			cfg.CrossoverRate,
			cfg.MutationRate,
			cfg.Seed,
		)
	}
	if r := details.Record; r != nil {
		fmt.Printf("record created=%s generations=%d/%d optimum_reached=%t best_fitness=%d best=%s evaluations=%s\n",
			createdAge(r.CreatedAtUTC),
			r.GenerationsRun,
			r.MaxGenerations,
			r.OptimumReached,
			r.BestFitness,
			r.BestBits,
			humanize.Comma(int64(r.Evaluations)),
		)
	}
	if b := details.Benchmark; b != nil {
		fmt.Printf("benchmark runs=%d successes=%d success_rate=%.2f best_mean=%.3f gens_mean=%.2f\n",
			b.Runs,
			b.Successes,
			b.SuccessRate,
			b.BestFitnessMean,
			b.GenerationsMean,
		)
	}
	return nil
}

// runEvaluate scores a literal bit string against a registered problem.
func runEvaluate(_ context.Context, args []string) error {
	fs := flag.NewFlagSet("evaluate", flag.ContinueOnError)
	problem := fs.String("problem", "onemax", "fitness problem: "+strings.Join(evo.ListProblems(), "|"))
	trapK := fs.Int("trap-k", 0, "block size for the trap problem")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 1 {
		return errors.New("evaluate requires exactly one bit string argument")
	}

	ev, err := evo.ResolveProblem(*problem, evo.ProblemParams{TrapK: *trapK})
	if err != nil {
		return err
	}
	g, err := evo.ParseGenome(fs.Arg(0))
	if err != nil {
		return err
	}
	g = evo.Evaluate(ev, g)
	fmt.Printf("problem=%s bits=%d fitness=%d optimum=%d optimal=%t\n",
		ev.Name(),
		g.Len(),
		g.Fitness,
		ev.Optimum(g.Len()),
		g.Fitness == ev.Optimum(g.Len()),
	)
	return nil
}

// stopOnSignal stops every run active in client when a signal arrives on
// sigCh. The returned func releases the watcher.
func stopOnSignal(ctx context.Context, client *onemaxapi.Client, sigCh <-chan os.Signal) func() {
	done := make(chan struct{})
	finished := make(chan struct{})
	go func() {
		defer close(finished)
		select {
		case <-sigCh:
			for _, id := range client.ActiveRuns() {
				if err := client.StopRun(ctx, id); err != nil {
					fmt.Fprintf(os.Stderr, "stop run %s: %v\n", id, err)
					continue
				}
				fmt.Fprintf(os.Stderr, "stopping run %s\n", id)
			}
		case <-done:
		case <-ctx.Done():
		}
	}()
	return func() {
		close(done)
		<-finished
	}
}

func runProblems(_ context.Context, args []string) error {
	fs := flag.NewFlagSet("problems", flag.ContinueOnError)
	if err := fs.Parse(args); err != nil {
		return err
	}
	fmt.Println(strings.Join(evo.ListProblems(), "\n"))
	return nil
}

func newClient(storeKind, dbPath string) (*onemaxapi.Client, error) {
	return onemaxapi.New(onemaxapi.Options{
		StoreKind:     storeKind,
		DBPath:        dbPath,
		BenchmarksDir: benchmarksDir,
		ExportsDir:    exportsDir,
	})
}

func checkRunSelector(command, runID string, latest bool) error {
	if runID != "" && latest {
		return errors.New("use either --run-id or --latest, not both")
	}
	if runID == "" && !latest {
		return fmt.Errorf("%s requires --run-id or --latest", command)
	}
	return nil
}

func createdAge(createdAtUTC string) string {
	created, err := time.Parse(time.RFC3339Nano, createdAtUTC)
	if err != nil {
		return createdAtUTC
	}
	return strings.ReplaceAll(humanize.Time(created), " ", "_")
}

func usageError(msg string) error {
	return fmt.Errorf("%s\nusage: onemaxctl [init|reset|run|benchmark|runs|show|fitness|diagnostics|export|evaluate|problems] [flags]", msg)
}
