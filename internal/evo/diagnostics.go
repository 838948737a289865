package evo

import (
	"gonum.org/v1/gonum/stat"

	"onemax/internal/model"
)

func summarizeGeneration(population []Genome, generation, bestSoFar int) model.GenerationDiagnostics {
	if len(population) == 0 {
		return model.GenerationDiagnostics{Generation: generation, BestSoFar: bestSoFar}
	}

	fitness := make([]float64, len(population))
	minFitness := population[0].Fitness
	maxFitness := population[0].Fitness
	distinct := make(map[string]struct{}, len(population))
	for i, g := range population {
		fitness[i] = float64(g.Fitness)
		if g.Fitness < minFitness {
			minFitness = g.Fitness
		}
		if g.Fitness > maxFitness {
			maxFitness = g.Fitness
		}
		distinct[g.Bits.String()] = struct{}{}
	}
	mean, std := stat.MeanStdDev(fitness, nil)
	if len(fitness) == 1 {
		std = 0
	}

	return model.GenerationDiagnostics{
		Generation:      generation,
		BestFitness:     maxFitness,
		BestSoFar:       bestSoFar,
		MeanFitness:     mean,
		StdDevFitness:   std,
		MinFitness:      minFitness,
		DistinctGenomes: len(distinct),
	}
}
