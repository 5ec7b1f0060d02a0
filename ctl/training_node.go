package ctl

import (
	"log"
	"math/rand"

	"github.com/pkg/errors"
	"gonum.org/v1/gonum/floats"
)

//minPartitionImpurity is the floor a candidate partition side must clear:
//both sides of a split must carry more than this much weighted impurity.
//Note that a perfectly pure side has weighted impurity zero and is rejected
//here even when it holds substantial weight.
const minPartitionImpurity = 1e-10

//ErrNotSerializable is returned from any attempt to serialize a TrainingNode.
var ErrNotSerializable = errors.New("TrainingNode is a transient construction artifact; persist the materialized Tree instead")

//SplitInfo identifies the split chosen for a node.
type SplitInfo struct {
	FeatureID int
	Threshold float64
}

//TrainingNode is a decision tree node used at training time. It owns one
//TreeFeature per feature for the examples currently routed to it; the
//per-feature data is released the moment a split decision becomes final,
//because ownership of the example subsets moves to the two children.
type TrainingNode struct {
	Depth       int
	NumExamples int

	data                []*TreeFeature
	impurity            LabelImpurity
	weightedLabelCounts []float64
	impurityScore       float64

	split       *SplitInfo
	left, right *TrainingNode
}

//NewTrainingNode inverts the dataset and creates the root node of a new tree.
func NewTrainingNode(impurity LabelImpurity, dataset Dataset) *TrainingNode {
	return newTrainingNode(impurity, InvertDataset(dataset), len(dataset.Examples), 0)
}

func newTrainingNode(impurity LabelImpurity, data []*TreeFeature, numExamples, depth int) *TrainingNode {
	counts := data[0].WeightedLabelCounts()
	return &TrainingNode{
		Depth:               depth,
		NumExamples:         numExamples,
		data:                data,
		impurity:            impurity,
		weightedLabelCounts: counts,
		impurityScore:       impurity.Impurity(counts),
	}
}

//Impurity returns the impurity of the node's label distribution.
func (node *TrainingNode) Impurity() float64 {
	return node.impurityScore
}

//WeightedLabelCounts returns the node's weighted label histogram. The slice is
//owned by the node and must not be mutated.
func (node *TrainingNode) WeightedLabelCounts() []float64 {
	return node.weightedLabelCounts
}

//Split returns the split chosen for this node, or nil while it is a leaf.
func (node *TrainingNode) Split() *SplitInfo {
	return node.split
}

//Children returns the two children produced by a successful split.
func (node *TrainingNode) Children() (left, right *TrainingNode) {
	return node.left, node.right
}

//Release drops the per-feature data of a node that will not be split, for
//example a frontier node cut off by the depth limit.
func (node *TrainingNode) Release() {
	node.data = nil
}

//MarshalJSON always fails: a TrainingNode must never be persisted.
func (node *TrainingNode) MarshalJSON() ([]byte, error) {
	return nil, errors.WithStack(ErrNotSerializable)
}

//BuildTree searches the candidate features for the best binary split of this
//node and, when the impurity decrease clears scaledMinImpurityDecrease, splits
//the node into two children at depth+1. It returns the children, or nothing
//when the node stays a leaf. The per-feature data is released either way.
func (node *TrainingNode) BuildTree(featureIDs []int, rng *rand.Rand, useRandomSplitPoints bool, scaledMinImpurityDecrease float64, scratch *MergeScratch) []*TrainingNode {
	if useRandomSplitPoints {
		return node.buildRandomTree(featureIDs, rng, scaledMinImpurityDecrease, scratch)
	}
	return node.buildGreedyTree(featureIDs, scaledMinImpurityDecrease, scratch)
}

//buildGreedyTree sweeps every candidate feature's entries in ascending value
//order, maintaining the running below/above histograms incrementally, and
//tracks the global minimum of (wLeft + wRight) / totalWeight over all
//boundaries. Strict less-than tracking means the first boundary encountered
//wins ties.
func (node *TrainingNode) buildGreedyTree(featureIDs []int, scaledMinImpurityDecrease float64, scratch *MergeScratch) []*TrainingNode {
	bestID := -1
	bestSplitValue := 0.0
	bestScore := node.impurityScore

	lessThanCounts := make([]float64, len(node.weightedLabelCounts))
	greaterThanCounts := make([]float64, len(node.weightedLabelCounts))
	weightSum := floats.Sum(node.weightedLabelCounts)

	for _, id := range featureIDs {
		entries := node.data[id].Entries()
		for i := range lessThanCounts {
			lessThanCounts[i] = 0
		}
		copy(greaterThanCounts, node.weightedLabelCounts)

		// searching for the intervals between distinct values
		for j := 0; j+1 < len(entries); j++ {
			entry := entries[j]
			floats.Add(lessThanCounts, entry.WeightedLabelCounts())
			floats.Sub(greaterThanCounts, entry.WeightedLabelCounts())
			lessThanScore := node.impurity.ImpurityWeighted(lessThanCounts)
			greaterThanScore := node.impurity.ImpurityWeighted(greaterThanCounts)
			if lessThanScore > minPartitionImpurity && greaterThanScore > minPartitionImpurity {
				score := (lessThanScore + greaterThanScore) / weightSum
				if score < bestScore {
					bestID = id
					bestScore = score
					bestSplitValue = (entry.Value + entries[j+1].Value) / 2.0
				}
			}
		}
	}

	return node.finishSplit(bestID, bestSplitValue, bestScore, weightSum, scaledMinImpurityDecrease, scratch)
}

//buildRandomTree draws one boundary uniformly per candidate feature instead of
//sweeping them all, and scores that single boundary with the same formula as
//the greedy search. A feature with a single distinct value cannot be split and
//is skipped.
func (node *TrainingNode) buildRandomTree(featureIDs []int, rng *rand.Rand, scaledMinImpurityDecrease float64, scratch *MergeScratch) []*TrainingNode {
	bestID := -1
	bestSplitValue := 0.0
	bestScore := node.impurityScore

	lessThanCounts := make([]float64, len(node.weightedLabelCounts))
	greaterThanCounts := make([]float64, len(node.weightedLabelCounts))
	weightSum := floats.Sum(node.weightedLabelCounts)

	for _, id := range featureIDs {
		entries := node.data[id].Entries()
		if len(entries) < 2 {
			continue
		}

		for i := range lessThanCounts {
			lessThanCounts[i] = 0
		}
		copy(greaterThanCounts, node.weightedLabelCounts)

		splitIdx := rng.Intn(len(entries) - 1)
		for j := 0; j <= splitIdx; j++ {
			floats.Add(lessThanCounts, entries[j].WeightedLabelCounts())
			floats.Sub(greaterThanCounts, entries[j].WeightedLabelCounts())
		}
		lessThanScore := node.impurity.ImpurityWeighted(lessThanCounts)
		greaterThanScore := node.impurity.ImpurityWeighted(greaterThanCounts)
		if lessThanScore > minPartitionImpurity && greaterThanScore > minPartitionImpurity {
			score := (lessThanScore + greaterThanScore) / weightSum
			if score < bestScore {
				bestID = id
				bestScore = score
				bestSplitValue = (entries[splitIdx].Value + entries[splitIdx+1].Value) / 2.0
			}
		}
	}

	return node.finishSplit(bestID, bestSplitValue, bestScore, weightSum, scaledMinImpurityDecrease, scratch)
}

func (node *TrainingNode) finishSplit(bestID int, bestSplitValue, bestScore, weightSum, scaledMinImpurityDecrease float64, scratch *MergeScratch) []*TrainingNode {
	var output []*TrainingNode
	impurityDecrease := weightSum * (node.impurityScore - bestScore)
	if bestID != -1 && impurityDecrease >= scaledMinImpurityDecrease {
		output = node.splitAtBest(bestID, bestSplitValue, scratch)
	}
	node.data = nil
	return output
}

//splitAtBest materializes the chosen split. The authoritative left example-id
//set is accumulated by merging the index lists of the winning feature's
//entries below the threshold, ping-ponging between two scratch buffers; then
//every feature column is partitioned against that set.
func (node *TrainingNode) splitAtBest(bestID int, bestSplitValue float64, scratch *MergeScratch) []*TrainingNode {
	node.split = &SplitInfo{FeatureID: bestID, Threshold: bestSplitValue}

	lessThanIndices := scratch.first
	lessThanIndices.Reset()
	buffer := scratch.second
	buffer.Reset()
	for _, entry := range node.data[bestID].Entries() {
		if entry.Value >= bestSplitValue {
			break
		}
		MergeIndexBuffers(lessThanIndices, entry.Indices(), buffer)
		lessThanIndices, buffer = buffer, lessThanIndices
	}

	leftData := make([]*TreeFeature, len(node.data))
	rightData := make([]*TreeFeature, len(node.data))
	for i, feature := range node.data {
		leftData[i], rightData[i] = feature.Split(lessThanIndices, buffer, scratch.third)
	}

	node.left = newTrainingNode(node.impurity, leftData, lessThanIndices.Size, node.Depth+1)
	node.right = newTrainingNode(node.impurity, rightData, node.NumExamples-lessThanIndices.Size, node.Depth+1)
	return []*TrainingNode{node.left, node.right}
}

//ConvertTree materializes the grown subtree rooted at this node into the
//immutable inference representation. The feature and label maps provide the
//names carried by the resulting tree.
func (node *TrainingNode) ConvertTree(features, labels *IDMap) Tree {
	tree := Tree{FeatureNames: features.Names(), LabelNames: labels.Names()}
	node.flatten(&tree)
	return tree
}

//flatten appends this node's record and, recursively, its children's records
//to the array-backed tree and returns the node's index.
func (node *TrainingNode) flatten(tree *Tree) int {
	nodeID := len(tree.Nodes)
	tree.Nodes = append(tree.Nodes, TreeNode{
		NodeID:      nodeID,
		FeatureID:   -1,
		LeftIndex:   -1,
		RightIndex:  -1,
		LeafIndex:   -1,
		Impurity:    node.impurityScore,
		NumExamples: node.NumExamples,
	})

	if node.split != nil {
		tree.Nodes[nodeID].FeatureID = node.split.FeatureID
		tree.Nodes[nodeID].Threshold = node.split.Threshold
		leftIndex := node.left.flatten(tree)
		rightIndex := node.right.flatten(tree)
		tree.Nodes[nodeID].LeftIndex = leftIndex
		tree.Nodes[nodeID].RightIndex = rightIndex
	} else {
		leafID := len(tree.Leaves)
		tree.Leaves = append(tree.Leaves, Leaf{
			LeafID:       leafID,
			Distribution: NormalizeToDistribution(node.weightedLabelCounts),
			Impurity:     node.impurityScore,
			MaxLabel:     ArgMax(node.weightedLabelCounts),
			NumExamples:  node.NumExamples,
		})
		tree.Nodes[nodeID].LeafIndex = leafID
	}
	return nodeID
}

//InvertDataset transforms the row-major example set into one inverted index
//per feature. Sparse examples omit zero values, so every feature id strictly
//between two observed ids is recorded as an explicit zero observation. Feature
//ids that are unordered or repeated within one example mean the sparse-vector
//contract was broken upstream; that is fatal.
func InvertDataset(dataset Dataset) []*TreeFeature {
	numFeatures := dataset.Features.Size()
	numLabels := dataset.Labels.Size()
	numExamples := len(dataset.Examples)
	if numFeatures == 0 || numExamples == 0 {
		log.Panicf("cannot invert a dataset with %d features and %d examples", numFeatures, numExamples)
	}

	labels := make([]int, numExamples)
	weights := make([]float64, numExamples)
	for i, example := range dataset.Examples {
		if example.Label < 0 || example.Label >= numLabels {
			log.Panicf("label id %d of example %d is outside [0, %d)", example.Label, i, numLabels)
		}
		labels[i] = example.Label
		weights[i] = example.Weight
	}

	data := make([]*TreeFeature, numFeatures)
	for i := range data {
		data[i] = NewTreeFeature(i, numLabels, labels, weights)
	}

	for i, example := range dataset.Examples {
		lastID := 0
		for k, curID := range example.FeatureIDs {
			if curID >= numFeatures {
				log.Panicf("feature id %d of example %d is outside the feature map of size %d", curID, i, numFeatures)
			}
			if curID < lastID {
				if curID == lastID-1 {
					log.Panicf("feature id %d is repeated in example %d", curID, i)
				}
				log.Panicf("feature ids are not ordered in example %d: id %d follows id %d", i, curID, lastID-1)
			}
			for j := lastID; j < curID; j++ {
				data[j].ObserveValue(0.0, i)
			}
			data[curID].ObserveValue(example.Values[k], i)
			lastID = curID + 1
		}
		for j := lastID; j < numFeatures; j++ {
			data[j].ObserveValue(0.0, i)
		}
	}

	for _, feature := range data {
		feature.Sort()
	}

	return data
}
