package ctl

import (
	"fmt"
	"log"
	"os"

	"github.com/pkg/errors"
	"github.com/sbinet/npyio"
	"gonum.org/v1/gonum/mat"
)

//IDMap is an immutable mapping between names and dense ids, fixed at dataset
//construction time. The same type serves features and labels.
type IDMap struct {
	names []string
	ids   map[string]int
}

//NewIDMap builds an id map from a list of distinct names.
func NewIDMap(names []string) *IDMap {
	m := &IDMap{names: append([]string(nil), names...), ids: make(map[string]int, len(names))}
	for i, name := range m.names {
		if _, ok := m.ids[name]; ok {
			log.Panicf("duplicate name %q in id map", name)
		}
		m.ids[name] = i
	}
	return m
}

//Size returns the number of mapped names.
func (m *IDMap) Size() int {
	return len(m.names)
}

//Name returns the name of an id.
func (m *IDMap) Name(id int) string {
	return m.names[id]
}

//ID returns the id of a name, or -1 when the name is unknown.
func (m *IDMap) ID(name string) int {
	if id, ok := m.ids[name]; ok {
		return id
	}
	return -1
}

//Names returns a copy of all names in id order.
func (m *IDMap) Names() []string {
	return append([]string(nil), m.names...)
}

//Example is one weighted training example in sparse form. FeatureIDs are
//strictly ascending and parallel to Values; zero-valued features are omitted.
type Example struct {
	FeatureIDs []int
	Values     []float64
	Weight     float64
	Label      int
}

//Dataset owns the training examples together with their immutable feature and
//label id maps.
type Dataset struct {
	Features *IDMap
	Labels   *IDMap
	Examples []Example
}

//TotalWeight sums the example weights.
func (dataset Dataset) TotalWeight() float64 {
	total := 0.0
	for _, example := range dataset.Examples {
		total += example.Weight
	}
	return total
}

//NewDatasetFromDense converts a dense feature matrix and integer labels into
//the sparse weighted representation, dropping exact zeros. A nil weights slice
//means unit weights. Feature and label names are generated as f_<id> and
//class_<id>.
func NewDatasetFromDense(features *mat.Dense, labels []int, weights []float64) Dataset {
	h, w := features.Dims()
	if len(labels) != h {
		log.Panicf("feature rows %d do not match label rows %d", h, len(labels))
	}
	if weights != nil && len(weights) != h {
		log.Panicf("feature rows %d do not match weight rows %d", h, len(weights))
	}

	numLabels := 0
	for p, l := range labels {
		if l < 0 {
			log.Panicf("negative label id %d at row %d", l, p)
		}
		if l+1 > numLabels {
			numLabels = l + 1
		}
	}

	featureNames := make([]string, w)
	for i := range featureNames {
		featureNames[i] = fmt.Sprintf("f_%d", i)
	}
	labelNames := make([]string, numLabels)
	for i := range labelNames {
		labelNames[i] = fmt.Sprintf("class_%d", i)
	}

	examples := make([]Example, h)
	for p := 0; p < h; p++ {
		example := Example{Weight: 1.0, Label: labels[p]}
		if weights != nil {
			example.Weight = weights[p]
		}
		for q, val := range features.RawRowView(p) {
			if val != 0 {
				example.FeatureIDs = append(example.FeatureIDs, q)
				example.Values = append(example.Values, val)
			}
		}
		examples[p] = example
	}

	return Dataset{Features: NewIDMap(featureNames), Labels: NewIDMap(labelNames), Examples: examples}
}

//ReadNpy reads the content of an npy file into a dense matrix.
func ReadNpy(fileName string) (*mat.Dense, error) {
	f, err := os.Open(fileName)
	if err != nil {
		return nil, errors.Wrapf(err, "open %s", fileName)
	}
	defer func() { HandleError(f.Close()) }()

	r, err := npyio.NewReader(f)
	if err != nil {
		return nil, errors.Wrapf(err, "read npy header of %s", fileName)
	}

	denseMat := &mat.Dense{}
	if err := r.Read(denseMat); err != nil {
		return nil, errors.Wrapf(err, "read npy payload of %s", fileName)
	}
	return denseMat, nil
}

//WriteNpy writes a dense matrix to an npy file.
func WriteNpy(fileName string, m *mat.Dense) error {
	dest, err := os.Create(fileName)
	if err != nil {
		return errors.Wrapf(err, "create %s", fileName)
	}
	defer func() { HandleError(dest.Close()) }()

	return errors.Wrapf(npyio.Write(dest, m), "write npy %s", fileName)
}

//ReadNpyLabels reads an h-by-1 npy column of non-negative integer label ids.
func ReadNpyLabels(fileName string) ([]int, error) {
	m, err := ReadNpy(fileName)
	if err != nil {
		return nil, err
	}
	h, w := m.Dims()
	if w != 1 {
		return nil, errors.Errorf("label file %s must have one column, got %d", fileName, w)
	}
	labels := make([]int, h)
	for p := 0; p < h; p++ {
		val := m.At(p, 0)
		labels[p] = int(val)
		if float64(labels[p]) != val || val < 0 {
			return nil, errors.Errorf("label at row %d of %s is not a non-negative integer: %g", p, fileName, val)
		}
	}
	return labels, nil
}

//LoadNpyDataset reads a dense feature matrix and a label column from two npy
//files and unites them into one Dataset.
func LoadNpyDataset(fileNameFeatures, fileNameLabels string) (Dataset, error) {
	log.Print("\ttry to load features <", fileNameFeatures, ">")
	features, err := ReadNpy(fileNameFeatures)
	if err != nil {
		return Dataset{}, err
	}
	log.Print("\ttry to load labels <", fileNameLabels, ">")
	labels, err := ReadNpyLabels(fileNameLabels)
	if err != nil {
		return Dataset{}, err
	}
	h, _ := features.Dims()
	if len(labels) != h {
		return Dataset{}, errors.Errorf("feature rows %d do not match label rows %d", h, len(labels))
	}
	return NewDatasetFromDense(features, labels, nil), nil
}
