package ctl

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"
)

func TestIDMap(t *testing.T) {
	m := NewIDMap([]string{"alpha", "beta"})

	assert.Equal(t, 2, m.Size())
	assert.Equal(t, "alpha", m.Name(0))
	assert.Equal(t, 1, m.ID("beta"))
	assert.Equal(t, -1, m.ID("gamma"))
	assert.Equal(t, []string{"alpha", "beta"}, m.Names())

	assert.Panics(t, func() { NewIDMap([]string{"x", "x"}) })
}

func TestNewDatasetFromDenseDropsZeros(t *testing.T) {
	features := mat.NewDense(2, 3, []float64{
		0, 2.5, 0,
		1, 0, 3,
	})
	dataset := NewDatasetFromDense(features, []int{1, 0}, nil)

	assert.Equal(t, 3, dataset.Features.Size())
	assert.Equal(t, 2, dataset.Labels.Size())
	require.Len(t, dataset.Examples, 2)

	assert.Equal(t, []int{1}, dataset.Examples[0].FeatureIDs)
	assert.Equal(t, []float64{2.5}, dataset.Examples[0].Values)
	assert.Equal(t, 1, dataset.Examples[0].Label)
	assert.Equal(t, 1.0, dataset.Examples[0].Weight)

	assert.Equal(t, []int{0, 2}, dataset.Examples[1].FeatureIDs)
	assert.Equal(t, []float64{1, 3}, dataset.Examples[1].Values)

	assert.InDelta(t, 2.0, dataset.TotalWeight(), 1e-12)
}

func TestNewDatasetFromDenseWeights(t *testing.T) {
	features := mat.NewDense(2, 1, []float64{1, 2})
	dataset := NewDatasetFromDense(features, []int{0, 1}, []float64{0.5, 2})

	assert.Equal(t, 0.5, dataset.Examples[0].Weight)
	assert.Equal(t, 2.0, dataset.Examples[1].Weight)
	assert.InDelta(t, 2.5, dataset.TotalWeight(), 1e-12)
}

func TestNewDatasetFromDenseValidation(t *testing.T) {
	features := mat.NewDense(2, 1, []float64{1, 2})

	assert.Panics(t, func() { NewDatasetFromDense(features, []int{0}, nil) })
	assert.Panics(t, func() { NewDatasetFromDense(features, []int{0, -1}, nil) })
	assert.Panics(t, func() { NewDatasetFromDense(features, []int{0, 1}, []float64{1}) })
}

func TestNpyRoundTrip(t *testing.T) {
	dir := t.TempDir()
	fileNameFeatures := filepath.Join(dir, "features.npy")
	fileNameLabels := filepath.Join(dir, "labels.npy")

	features := mat.NewDense(3, 2, []float64{
		1, 0,
		0, 2,
		3, 4,
	})
	labels := mat.NewDense(3, 1, []float64{0, 1, 1})

	require.NoError(t, WriteNpy(fileNameFeatures, features))
	require.NoError(t, WriteNpy(fileNameLabels, labels))

	dataset, err := LoadNpyDataset(fileNameFeatures, fileNameLabels)
	require.NoError(t, err)

	require.Len(t, dataset.Examples, 3)
	assert.Equal(t, 2, dataset.Features.Size())
	assert.Equal(t, 2, dataset.Labels.Size())
	assert.Equal(t, []int{1}, dataset.Examples[1].FeatureIDs)
	assert.Equal(t, []float64{2}, dataset.Examples[1].Values)
	assert.Equal(t, 1, dataset.Examples[2].Label)
}

func TestReadNpyLabelsRejectsNonIntegers(t *testing.T) {
	fileName := filepath.Join(t.TempDir(), "labels.npy")
	require.NoError(t, WriteNpy(fileName, mat.NewDense(2, 1, []float64{0, 1.5})))

	_, err := ReadNpyLabels(fileName)
	assert.Error(t, err)
}

func TestReadNpyMissingFile(t *testing.T) {
	_, err := ReadNpy(filepath.Join(t.TempDir(), "absent.npy"))
	assert.Error(t, err)
}
