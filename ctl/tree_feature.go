package ctl

import (
	"log"
	"sort"

	"gonum.org/v1/gonum/floats"
)

//InvertedValue is one distinct value of a feature together with the ascending
//example ids holding that value and the weighted label histogram accumulated
//over those examples.
type InvertedValue struct {
	Value       float64
	indices     []int
	labelCounts []float64
}

//Indices returns the ascending example ids holding this value. The slice is
//owned by the entry and must not be mutated.
func (v *InvertedValue) Indices() []int {
	return v.indices
}

//WeightedLabelCounts returns the per-label weighted counts of this entry.
func (v *InvertedValue) WeightedLabelCounts() []float64 {
	return v.labelCounts
}

func (v *InvertedValue) observe(exampleIndex, label int, weight float64) {
	v.indices = append(v.indices, exampleIndex)
	v.labelCounts[label] += weight
}

//TreeFeature is the inverted index for one feature: every distinct observed
//value with the examples holding it. After Sort the entries are ordered by
//strictly ascending value and together partition the node's example-id set.
type TreeFeature struct {
	ID int

	entries   []*InvertedValue
	numLabels int

	// labels and weights are read-only views over the whole training set,
	// indexed by the original example id. They are shared by every
	// TreeFeature derived from the same dataset.
	labels  []int
	weights []float64

	valueIndex map[float64]int
	sorted     bool
}

//NewTreeFeature creates an empty inverted index for one feature.
func NewTreeFeature(id, numLabels int, labels []int, weights []float64) *TreeFeature {
	return &TreeFeature{
		ID:         id,
		numLabels:  numLabels,
		labels:     labels,
		weights:    weights,
		valueIndex: make(map[float64]int),
	}
}

//ObserveValue records one (value, example) observation during data inversion.
//Examples arrive in ascending id order, so the per-entry index lists stay
//sorted without any extra work; observations of an already seen value merge
//into its existing entry.
func (f *TreeFeature) ObserveValue(value float64, exampleIndex int) {
	if f.sorted {
		log.Panicf("feature %d observed value %g after sorting", f.ID, value)
	}
	pos, ok := f.valueIndex[value]
	if !ok {
		pos = len(f.entries)
		f.entries = append(f.entries, &InvertedValue{Value: value, labelCounts: make([]float64, f.numLabels)})
		f.valueIndex[value] = pos
	}
	f.entries[pos].observe(exampleIndex, f.labels[exampleIndex], f.weights[exampleIndex])
}

//Sort orders the entries by ascending value. Called once per feature at the
//end of data inversion; equal values were already merged during observation,
//so the entry values are distinct.
func (f *TreeFeature) Sort() {
	sort.SliceStable(f.entries, func(i, j int) bool {
		return f.entries[i].Value < f.entries[j].Value
	})
	f.valueIndex = nil
	f.sorted = true
}

//Entries returns the inverted values of this feature in ascending value order.
func (f *TreeFeature) Entries() []*InvertedValue {
	return f.entries
}

//Len returns the number of distinct values of this feature.
func (f *TreeFeature) Len() int {
	return len(f.entries)
}

//WeightedLabelCounts sums the label histograms of all entries, giving the
//weighted label counts of every example covered by this feature.
func (f *TreeFeature) WeightedLabelCounts() []float64 {
	counts := make([]float64, f.numLabels)
	for _, entry := range f.entries {
		floats.Add(counts, entry.labelCounts)
	}
	return counts
}

func (f *TreeFeature) buildEntry(value float64, indices []int) *InvertedValue {
	entry := &InvertedValue{
		Value:       value,
		indices:     append([]int(nil), indices...),
		labelCounts: make([]float64, f.numLabels),
	}
	for _, idx := range indices {
		entry.labelCounts[f.labels[idx]] += f.weights[idx]
	}
	return entry
}

//Split partitions the feature against a pre-sorted set of example ids routed
//to the left child. Per-entry index order is preserved, so no resorting is
//needed: a single two-pointer walk against leftIndices classifies every id.
//The receiver is left untouched; entries that end up empty on a side are
//dropped from that side.
func (f *TreeFeature) Split(leftIndices, buf1, buf2 *IntBuffer) (left, right *TreeFeature) {
	left = &TreeFeature{ID: f.ID, numLabels: f.numLabels, labels: f.labels, weights: f.weights, sorted: true}
	right = &TreeFeature{ID: f.ID, numLabels: f.numLabels, labels: f.labels, weights: f.weights, sorted: true}

	set := leftIndices.Contents()
	for _, entry := range f.entries {
		buf1.Reset()
		buf2.Reset()
		j := 0
		for _, idx := range entry.indices {
			for j < len(set) && set[j] < idx {
				j++
			}
			if j < len(set) && set[j] == idx {
				buf1.Append(idx)
			} else {
				buf2.Append(idx)
			}
		}
		if buf1.Size > 0 {
			left.entries = append(left.entries, f.buildEntry(entry.Value, buf1.Contents()))
		}
		if buf2.Size > 0 {
			right.entries = append(right.entries, f.buildEntry(entry.Value, buf2.Contents()))
		}
	}
	return left, right
}
