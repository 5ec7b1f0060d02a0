package ctl

import (
	"log"
	"math"
	"math/rand"
	"sort"
	"sync"

	"golang.org/x/sync/errgroup"
)

//CARTTrainer grows a single binary classification tree over a breadth-first
//frontier of TrainingNodes. Frontier nodes hold wholly disjoint example
//subsets and disjoint feature columns, so the splits of one depth level run in
//parallel without any cross-node synchronization.
type CARTTrainer struct {
	MaxDepth                int
	MinImpurityDecrease     float64
	FractionFeaturesInSplit float64
	UseRandomSplitPoints    bool
	Impurity                LabelImpurity
	Seed                    int64
	ThreadsNum              int

	scratchPool sync.Pool
}

//NewCARTTrainer returns a trainer with the usual defaults: greedy CART over
//all features with the Gini impurity.
func NewCARTTrainer() *CARTTrainer {
	return &CARTTrainer{
		MaxDepth:                6,
		FractionFeaturesInSplit: 1.0,
		Impurity:                GiniIndex{},
		Seed:                    12345,
		ThreadsNum:              1,
	}
}

func (trainer *CARTTrainer) scratch() *MergeScratch {
	if s, ok := trainer.scratchPool.Get().(*MergeScratch); ok {
		return s
	}
	return NewMergeScratch()
}

//sampleFeatureIDs draws k distinct feature ids in ascending order, keeping the
//tie-break order of the greedy search deterministic for a fixed seed.
func sampleFeatureIDs(rng *rand.Rand, numFeatures, k int) []int {
	if k >= numFeatures {
		ids := make([]int, numFeatures)
		for i := range ids {
			ids[i] = i
		}
		return ids
	}
	ids := rng.Perm(numFeatures)[:k]
	sort.Ints(ids)
	return ids
}

//Train grows one tree on the dataset and materializes it. The configured
//MinImpurityDecrease is scaled by the total example weight before being handed
//to the nodes.
func (trainer *CARTTrainer) Train(dataset Dataset) Tree {
	if trainer.FractionFeaturesInSplit <= 0 || trainer.FractionFeaturesInSplit > 1 {
		log.Panicf("fraction of features per split must be in (0, 1], got %g", trainer.FractionFeaturesInSplit)
	}
	if trainer.MaxDepth < 0 {
		log.Panicf("max depth must be non-negative, got %d", trainer.MaxDepth)
	}
	impurity := trainer.Impurity
	if impurity == nil {
		impurity = GiniIndex{}
	}
	threads := trainer.ThreadsNum
	if threads < 1 {
		threads = 1
	}

	root := NewTrainingNode(impurity, dataset)
	scaledMinImpurityDecrease := trainer.MinImpurityDecrease * dataset.TotalWeight()

	numFeatures := dataset.Features.Size()
	numSampled := int(math.Ceil(trainer.FractionFeaturesInSplit * float64(numFeatures)))

	rng := rand.New(rand.NewSource(trainer.Seed))

	type splitTask struct {
		node       *TrainingNode
		featureIDs []int
		seed       int64
	}

	frontier := []*TrainingNode{root}
	for depth := 0; len(frontier) > 0 && depth < trainer.MaxDepth; depth++ {
		// Feature subsets and child seeds are drawn from the master rng
		// before the parallel fan-out, so the grown tree does not depend
		// on scheduling.
		tasks := make([]splitTask, len(frontier))
		for i, node := range frontier {
			tasks[i] = splitTask{
				node:       node,
				featureIDs: sampleFeatureIDs(rng, numFeatures, numSampled),
				seed:       rng.Int63(),
			}
		}

		children := make([][]*TrainingNode, len(tasks))
		var group errgroup.Group
		group.SetLimit(threads)
		for i := range tasks {
			i := i
			group.Go(func() error {
				scratch := trainer.scratch()
				defer trainer.scratchPool.Put(scratch)
				nodeRng := rand.New(rand.NewSource(tasks[i].seed))
				children[i] = tasks[i].node.BuildTree(tasks[i].featureIDs, nodeRng, trainer.UseRandomSplitPoints, scaledMinImpurityDecrease, scratch)
				return nil
			})
		}
		HandleError(group.Wait())

		frontier = frontier[:0]
		for _, pair := range children {
			frontier = append(frontier, pair...)
		}
	}

	// Nodes cut off by the depth limit keep their feature columns until here.
	for _, node := range frontier {
		node.Release()
	}

	return root.ConvertTree(dataset.Features, dataset.Labels)
}
