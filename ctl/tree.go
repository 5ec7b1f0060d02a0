package ctl

import (
	"encoding/json"
	"math"
	"os"
	"sort"

	"github.com/pkg/errors"
	"gonum.org/v1/gonum/mat"
)

//TreeNode is one record of a materialized tree. The tree is stored in an
//array: LeftIndex and RightIndex are -1 when the node is a leaf, in which case
//LeafIndex points into the Leaves array instead. The root is always record 0.
type TreeNode struct {
	NodeID      int
	FeatureID   int // -1 on leaves
	Threshold   float64
	Impurity    float64
	LeftIndex   int
	RightIndex  int
	LeafIndex   int // -1 on split nodes
	NumExamples int
}

//IsLeaf returns whether this record is a leaf.
func (node TreeNode) IsLeaf() bool {
	return node.LeafIndex != -1
}

//Leaf carries the prediction of one leaf: the normalized label distribution,
//the leaf impurity and the arg-max label id.
type Leaf struct {
	LeafID       int
	Distribution []float64
	Impurity     float64
	MaxLabel     int
	NumExamples  int
}

//Score returns the leaf's score for one label id.
func (leaf Leaf) Score(label int) float64 {
	return leaf.Distribution[label]
}

//Tree is an immutable classification tree materialized from a grown
//TrainingNode. It carries no training scratch state and is the only
//persistable artifact of training.
type Tree struct {
	Nodes        []TreeNode
	Leaves       []Leaf
	FeatureNames []string
	LabelNames   []string
}

//route walks the tree from the root using the supplied feature lookup.
func (tree Tree) route(value func(featureID int) float64) Leaf {
	ind := 0
	for !tree.Nodes[ind].IsLeaf() {
		if value(tree.Nodes[ind].FeatureID) < tree.Nodes[ind].Threshold {
			ind = tree.Nodes[ind].LeftIndex
		} else {
			ind = tree.Nodes[ind].RightIndex
		}
	}
	return tree.Leaves[tree.Nodes[ind].LeafIndex]
}

//PredictRow routes one dense feature row to its leaf.
func (tree Tree) PredictRow(row []float64) Leaf {
	return tree.route(func(id int) float64 { return row[id] })
}

//PredictExample routes one sparse example to its leaf; feature ids absent from
//the example read as zero.
func (tree Tree) PredictExample(example Example) Leaf {
	return tree.route(func(id int) float64 {
		pos := sort.SearchInts(example.FeatureIDs, id)
		if pos < len(example.FeatureIDs) && example.FeatureIDs[pos] == id {
			return example.Values[pos]
		}
		return 0
	})
}

//LabelScores returns a leaf's distribution as a label-name to score map.
func (tree Tree) LabelScores(leaf Leaf) map[string]float64 {
	scores := make(map[string]float64, len(leaf.Distribution))
	for i, score := range leaf.Distribution {
		scores[tree.LabelNames[i]] = score
	}
	return scores
}

//PredictProba fills a matrix of per-class scores, one row per row of features.
func (tree Tree) PredictProba(features *mat.Dense) *mat.Dense {
	h, _ := features.Dims()
	prediction := mat.NewDense(h, len(tree.LabelNames), nil)
	for p := 0; p < h; p++ {
		prediction.SetRow(p, tree.PredictRow(features.RawRowView(p)).Distribution)
	}
	return prediction
}

//PredictLabels returns the arg-max label id for every row of features.
func (tree Tree) PredictLabels(features *mat.Dense) []int {
	h, _ := features.Dims()
	labels := make([]int, h)
	for p := 0; p < h; p++ {
		labels[p] = tree.PredictRow(features.RawRowView(p)).MaxLabel
	}
	return labels
}

//Evaluate reports the accuracy and the mean negative log-likelihood of the
//tree on a labelled dense dataset.
func (tree Tree) Evaluate(features *mat.Dense, labels []int) (accuracy, logLoss float64) {
	const floorProb = 1e-15

	h, _ := features.Dims()
	correct := 0
	total := 0.0
	for p := 0; p < h; p++ {
		leaf := tree.PredictRow(features.RawRowView(p))
		score := floorProb
		if labels[p] < len(leaf.Distribution) {
			if leaf.MaxLabel == labels[p] {
				correct++
			}
			if s := leaf.Score(labels[p]); s > score {
				score = s
			}
		}
		total -= math.Log(score)
	}
	return float64(correct) / float64(h), total / float64(h)
}

//Depth returns the number of splits on the longest root-to-leaf path.
func (tree Tree) Depth() int {
	var walk func(ind int) int
	walk = func(ind int) int {
		if tree.Nodes[ind].IsLeaf() {
			return 0
		}
		left := walk(tree.Nodes[ind].LeftIndex)
		right := walk(tree.Nodes[ind].RightIndex)
		if right > left {
			left = right
		}
		return left + 1
	}
	return walk(0)
}

//Save writes the tree as indented JSON.
func (tree Tree) Save(filename string) error {
	dest, err := os.Create(filename)
	if err != nil {
		return errors.Wrapf(err, "create model file %s", filename)
	}
	defer func() { HandleError(dest.Close()) }()

	treeBytes, err := json.MarshalIndent(tree, "", "  ")
	if err != nil {
		return errors.Wrap(err, "encode tree")
	}
	_, err = dest.Write(treeBytes)
	return errors.Wrapf(err, "write model file %s", filename)
}

//LoadTree reads a tree saved by Save.
func LoadTree(filename string) (Tree, error) {
	source, err := os.Open(filename)
	if err != nil {
		return Tree{}, errors.Wrapf(err, "open model file %s", filename)
	}
	defer func() { HandleError(source.Close()) }()

	var tree Tree
	if err := json.NewDecoder(source).Decode(&tree); err != nil {
		return Tree{}, errors.Wrapf(err, "decode model file %s", filename)
	}
	return tree, nil
}
