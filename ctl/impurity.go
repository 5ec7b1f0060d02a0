package ctl

import (
	"math"

	"gonum.org/v1/gonum/floats"
)

//LabelImpurity measures the disorder of a weighted label histogram. Impurity
//returns the plain measure, ImpurityWeighted returns the measure scaled by the
//total weight of the histogram so that partition scores can be added together
//before dividing by the total weight of the parent.
type LabelImpurity interface {
	Impurity(weightedCounts []float64) float64
	ImpurityWeighted(weightedCounts []float64) float64
}

//GiniIndex is the Gini impurity 1 - sum_c p_c^2.
type GiniIndex struct{}

func (GiniIndex) Impurity(counts []float64) float64 {
	total := floats.Sum(counts)
	if total <= 0 {
		return 0
	}
	score := 1.0
	for _, c := range counts {
		p := c / total
		score -= p * p
	}
	return score
}

func (GiniIndex) ImpurityWeighted(counts []float64) float64 {
	total := floats.Sum(counts)
	if total <= 0 {
		return 0
	}
	score := total
	for _, c := range counts {
		score -= c * c / total
	}
	return score
}

//Entropy is the Shannon entropy of the label distribution, in nats.
type Entropy struct{}

func (Entropy) Impurity(counts []float64) float64 {
	total := floats.Sum(counts)
	if total <= 0 {
		return 0
	}
	score := 0.0
	for _, c := range counts {
		if c > 0 {
			p := c / total
			score -= p * math.Log(p)
		}
	}
	return score
}

func (e Entropy) ImpurityWeighted(counts []float64) float64 {
	return e.Impurity(counts) * floats.Sum(counts)
}
