package ctl

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/floats"
)

func buildTestFeature() *TreeFeature {
	labels := []int{0, 1, 0, 1}
	weights := []float64{1, 1, 1, 1}

	f := NewTreeFeature(0, 2, labels, weights)
	f.ObserveValue(3.0, 0)
	f.ObserveValue(1.0, 1)
	f.ObserveValue(1.0, 2)
	f.ObserveValue(2.0, 3)
	f.Sort()
	return f
}

func TestTreeFeatureSortAndCompact(t *testing.T) {
	f := buildTestFeature()

	entries := f.Entries()
	require.Len(t, entries, 3)

	assert.Equal(t, 1.0, entries[0].Value)
	assert.Equal(t, []int{1, 2}, entries[0].Indices())
	assert.Equal(t, []float64{1, 1}, entries[0].WeightedLabelCounts())

	assert.Equal(t, 2.0, entries[1].Value)
	assert.Equal(t, []int{3}, entries[1].Indices())
	assert.Equal(t, []float64{0, 1}, entries[1].WeightedLabelCounts())

	assert.Equal(t, 3.0, entries[2].Value)
	assert.Equal(t, []int{0}, entries[2].Indices())
	assert.Equal(t, []float64{1, 0}, entries[2].WeightedLabelCounts())

	assert.Equal(t, []float64{2, 2}, f.WeightedLabelCounts())
}

func TestTreeFeatureObserveAfterSortPanics(t *testing.T) {
	f := buildTestFeature()
	require.Panics(t, func() { f.ObserveValue(4.0, 4) })
}

func TestTreeFeatureSplit(t *testing.T) {
	f := buildTestFeature()

	leftIndices := NewIntBuffer(4)
	leftIndices.Append(0)
	leftIndices.Append(2)
	buf1 := NewIntBuffer(4)
	buf2 := NewIntBuffer(4)

	left, right := f.Split(leftIndices, buf1, buf2)

	require.Len(t, left.Entries(), 2)
	assert.Equal(t, 1.0, left.Entries()[0].Value)
	assert.Equal(t, []int{2}, left.Entries()[0].Indices())
	assert.Equal(t, 3.0, left.Entries()[1].Value)
	assert.Equal(t, []int{0}, left.Entries()[1].Indices())
	assert.Equal(t, []float64{2, 0}, left.WeightedLabelCounts())

	require.Len(t, right.Entries(), 2)
	assert.Equal(t, 1.0, right.Entries()[0].Value)
	assert.Equal(t, []int{1}, right.Entries()[0].Indices())
	assert.Equal(t, 2.0, right.Entries()[1].Value)
	assert.Equal(t, []int{3}, right.Entries()[1].Indices())
	assert.Equal(t, []float64{0, 2}, right.WeightedLabelCounts())

	// the receiver must stay intact
	assert.Len(t, f.Entries(), 3)
	assert.Equal(t, []float64{2, 2}, f.WeightedLabelCounts())
}

func TestTreeFeatureSplitPartitionCompleteness(t *testing.T) {
	f := buildTestFeature()

	leftIndices := NewIntBuffer(4)
	leftIndices.Append(1)
	leftIndices.Append(3)

	left, right := f.Split(leftIndices, NewIntBuffer(4), NewIntBuffer(4))

	seen := map[int]int{}
	for _, side := range []*TreeFeature{left, right} {
		for _, entry := range side.Entries() {
			prev := -1
			for _, idx := range entry.Indices() {
				assert.Greater(t, idx, prev)
				prev = idx
				seen[idx]++
			}
		}
	}
	require.Len(t, seen, 4)
	for idx, count := range seen {
		assert.Equalf(t, 1, count, "example %d routed %d times", idx, count)
	}

	total := make([]float64, 2)
	floats.Add(total, left.WeightedLabelCounts())
	floats.Add(total, right.WeightedLabelCounts())
	assert.Equal(t, f.WeightedLabelCounts(), total)
}
