package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"

	"onemax/internal/evo"
	onemaxapi "onemax/pkg/onemax"
)

// runFlags are shared by run and benchmark.
type runFlags struct {
	configPath    *string
	problem       *string
	trapK         *int
	bits          *int
	population    *int
	generations   *int
	bouts         *int
	crossoverKind *string
	crossover     *float64
	mutation      *float64
	seed          *int64
}

func bindRunFlags(fs *flag.FlagSet) *runFlags {
	defaults := onemaxapi.DefaultRunRequest()
	return &runFlags{
		configPath:    fs.String("config", "", "optional run config JSON path"),
		problem:       fs.String("problem", defaults.Problem, "fitness problem: onemax|trap"),
		trapK:         fs.Int("trap-k", 4, "block size for problem=trap"),
		bits:          fs.Int("bits", defaults.Bits, "genome length in bits"),
		population:    fs.Int("pop", defaults.Population, "population size"),
		generations:   fs.Int("gens", defaults.Generations, "maximum generations"),
		bouts:         fs.Int("bouts", defaults.Bouts, "tournament size"),
		crossoverKind: fs.String("crossover-kind", defaults.CrossoverKind, "crossover operator: one_point|uniform"),
		crossover:     fs.Float64("crossover", defaults.CrossoverRate, "crossover probability"),
		mutation:      fs.Float64("mutation", defaults.MutationRate, "per-bit mutation probability (<0 for 1/bits)"),
		seed:          fs.Int64("seed", defaults.Seed, "rng seed"),
	}
}

// request builds the run request from the config file, if any, with flags
// explicitly set on the command line taking precedence.
func (f *runFlags) request(fs *flag.FlagSet) (onemaxapi.RunRequest, error) {
	setFlags := make(map[string]bool)
	fs.Visit(func(fl *flag.Flag) {
		setFlags[fl.Name] = true
	})

	values := map[string]any{
		"problem":        *f.problem,
		"trap-k":         *f.trapK,
		"bits":           *f.bits,
		"pop":            *f.population,
		"gens":           *f.generations,
		"bouts":          *f.bouts,
		"crossover-kind": *f.crossoverKind,
		"crossover":      *f.crossover,
		"mutation":       *f.mutation,
		"seed":           *f.seed,
	}

	if *f.configPath == "" {
		req := onemaxapi.DefaultRunRequest()
		overrideFromFlags(&req, allSet(values), values)
		return req, nil
	}
	req, err := loadRunRequestFromConfig(*f.configPath)
	if err != nil {
		return onemaxapi.RunRequest{}, fmt.Errorf("load config: %w", err)
	}
	overrideFromFlags(&req, setFlags, values)
	return req, nil
}

func loadRunRequestFromConfig(path string) (onemaxapi.RunRequest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return onemaxapi.RunRequest{}, err
	}
	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		return onemaxapi.RunRequest{}, err
	}

	req := onemaxapi.DefaultRunRequest()
	if v, ok := asString(raw["run_id"]); ok {
		req.RunID = v
	}
	if v, ok := asString(raw["problem"]); ok {
		req.Problem = v
	}
	if v, ok := asInt(raw["trap_k"]); ok {
		req.TrapK = v
	}
	if v, ok := asInt(raw["bits"]); ok {
		req.Bits = v
	}
	if v, ok := asInt(raw["population"]); ok {
		req.Population = v
	}
	if v, ok := asInt(raw["generations"]); ok {
		req.Generations = v
	}
	if v, ok := asInt(raw["bouts"]); ok {
		req.Bouts = v
	}
	if v, ok := asString(raw["crossover_kind"]); ok {
		req.CrossoverKind = v
	}
	if v, ok := asFloat64(raw["crossover_rate"]); ok {
		req.CrossoverRate = v
	}
	if v, ok := asFloat64(raw["mutation_rate"]); ok {
		req.MutationRate = v
	}
	if v, ok := asInt64(raw["seed"]); ok {
		req.Seed = v
	}
	if req.Problem == "trap" && req.TrapK == 0 {
		req.TrapK = 4
	}
	return req, nil
}

func overrideFromFlags(req *onemaxapi.RunRequest, set map[string]bool, flagValue map[string]any) {
	for name := range set {
		v, ok := flagValue[name]
		if !ok {
			continue
		}
		switch name {
		case "problem":
			req.Problem = v.(string)
		case "trap-k":
			req.TrapK = v.(int)
		case "bits":
			req.Bits = v.(int)
		case "pop":
			req.Population = v.(int)
		case "gens":
			req.Generations = v.(int)
		case "bouts":
			req.Bouts = v.(int)
		case "crossover-kind":
			req.CrossoverKind = v.(string)
		case "crossover":
			req.CrossoverRate = v.(float64)
		case "mutation":
			req.MutationRate = v.(float64)
		case "seed":
			req.Seed = v.(int64)
		}
	}
	if req.Problem != "trap" {
		req.TrapK = 0
	}
	if req.Bouts == 0 {
		req.Bouts = evo.DefaultBouts
	}
}

func allSet(values map[string]any) map[string]bool {
	set := make(map[string]bool, len(values))
	for name := range values {
		set[name] = true
	}
	return set
}

func asString(v any) (string, bool) {
	s, ok := v.(string)
	return s, ok
}

func asInt(v any) (int, bool) {
	switch x := v.(type) {
	case int:
		return x, true
	case float64:
		return int(x), true
	default:
		return 0, false
	}
}

func asInt64(v any) (int64, bool) {
	switch x := v.(type) {
	case int64:
		return x, true
	case int:
		return int64(x), true
	case float64:
		return int64(x), true
	default:
		return 0, false
	}
}

func asFloat64(v any) (float64, bool) {
	switch x := v.(type) {
	case float64:
		return x, true
	case int:
		return float64(x), true
	default:
		return 0, false
	}
}
