package model

// VersionedRecord captures schema and codec evolution for persistent data.
type VersionedRecord struct {
	SchemaVersion int `json:"schema_version"`
	CodecVersion  int `json:"codec_version"`
}

// RunRecord is the persisted summary of one evolution run. Populations are
// never persisted; only the best genome found and run settings are kept.
type RunRecord struct {
	VersionedRecord
	ID             string  `json:"id"`
	CreatedAtUTC   string  `json:"created_at_utc"`
	Problem        string  `json:"problem"`
	GenomeLength   int     `json:"genome_length"`
	PopulationSize int     `json:"population_size"`
	MaxGenerations int     `json:"max_generations"`
	Bouts          int     `json:"bouts"`
	CrossoverKind  string  `json:"crossover_kind"`
	CrossoverRate  float64 `json:"crossover_rate"`
	MutationRate   float64 `json:"mutation_rate"`
	Seed           int64   `json:"seed"`
	GenerationsRun int     `json:"generations_run"`
	Evaluations    int     `json:"evaluations"`
	OptimumReached bool    `json:"optimum_reached"`
	BestFitness    int     `json:"best_fitness"`
	BestBits       string  `json:"best_bits"`
	ElapsedMillis  int64   `json:"elapsed_ms"`
}

// GenerationDiagnostics summarizes one evaluated population.
type GenerationDiagnostics struct {
	Generation      int     `json:"generation"`
	BestFitness     int     `json:"best_fitness"`
	BestSoFar       int     `json:"best_so_far"`
	MeanFitness     float64 `json:"mean_fitness"`
	StdDevFitness   float64 `json:"stddev_fitness"`
	MinFitness      int     `json:"min_fitness"`
	DistinctGenomes int     `json:"distinct_genomes"`
}
