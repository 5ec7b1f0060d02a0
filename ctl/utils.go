package ctl

import (
	"log"

	"gonum.org/v1/gonum/floats"
)

//HandleError interrupts the execution when the error is not nil.
func HandleError(err error) {
	if err != nil {
		log.Fatal(err)
	}
}

//NormalizeToDistribution rescales weighted counts so they sum to one. A zero
//histogram comes back as all zeros.
func NormalizeToDistribution(counts []float64) []float64 {
	out := make([]float64, len(counts))
	total := floats.Sum(counts)
	if total <= 0 {
		return out
	}
	for i, c := range counts {
		out[i] = c / total
	}
	return out
}

//ArgMax returns the index of the maximal element; the first one wins ties.
func ArgMax(values []float64) int {
	return floats.MaxIdx(values)
}
