package main

import (
	"encoding/json"
	"flag"
	"log"
	"os"

	"github.com/tarstars/cart_grove/ctl"
	"gonum.org/v1/gonum/mat"
)

func decodeConfig(srcConfig string, out interface{}) {
	file, err := os.Open(srcConfig)
	ctl.HandleError(err)
	defer func() { ctl.HandleError(file.Close()) }()

	decoder := json.NewDecoder(file)
	ctl.HandleError(decoder.Decode(out))
}

//TestConfig names one labelled dataset whose accuracy is reported after
//training.
type TestConfig struct {
	Description      string `json:"description"`
	FileNameFeatures string `json:"filename_features"`
	FileNameLabels   string `json:"filename_labels"`
}

type TrainConfig struct {
	FileNameFeatures        string       `json:"filename_features"`
	FileNameLabels          string       `json:"filename_labels"`
	Tests                   []TestConfig `json:"tests"`
	FileNameModel           string       `json:"filename_model"`
	MaxDepth                int          `json:"max_depth"`
	MinImpurityDecrease     float64      `json:"min_impurity_decrease"`
	FractionFeaturesInSplit float64      `json:"fraction_features_in_split"`
	RandomSplitPoints       bool         `json:"random_split_points"`
	ImpurityKind            string       `json:"impurity"`
	Seed                    int64        `json:"seed"`
	ThreadsNum              int          `json:"threads_num"`
}

func impurityByName(name string) ctl.LabelImpurity {
	switch name {
	case "", "gini":
		return ctl.GiniIndex{}
	case "entropy":
		return ctl.Entropy{}
	}
	log.Fatalf("unknown impurity %q, want gini or entropy", name)
	return nil
}

func train(srcConfig string) {
	var trainConfig TrainConfig
	decodeConfig(srcConfig, &trainConfig)

	log.Println("load train")
	dataset, err := ctl.LoadNpyDataset(trainConfig.FileNameFeatures, trainConfig.FileNameLabels)
	ctl.HandleError(err)

	trainer := ctl.NewCARTTrainer()
	if trainConfig.MaxDepth > 0 {
		trainer.MaxDepth = trainConfig.MaxDepth
	}
	if trainConfig.FractionFeaturesInSplit > 0 {
		trainer.FractionFeaturesInSplit = trainConfig.FractionFeaturesInSplit
	}
	if trainConfig.Seed != 0 {
		trainer.Seed = trainConfig.Seed
	}
	if trainConfig.ThreadsNum > 0 {
		trainer.ThreadsNum = trainConfig.ThreadsNum
	}
	trainer.MinImpurityDecrease = trainConfig.MinImpurityDecrease
	trainer.UseRandomSplitPoints = trainConfig.RandomSplitPoints
	trainer.Impurity = impurityByName(trainConfig.ImpurityKind)

	tree := trainer.Train(dataset)
	log.Printf("grown tree: %d nodes, %d leaves, depth %d", len(tree.Nodes), len(tree.Leaves), tree.Depth())

	for _, testConfig := range trainConfig.Tests {
		features, err := ctl.ReadNpy(testConfig.FileNameFeatures)
		ctl.HandleError(err)
		labels, err := ctl.ReadNpyLabels(testConfig.FileNameLabels)
		ctl.HandleError(err)
		accuracy, logLoss := tree.Evaluate(features, labels)
		log.Print("accuracy for ", testConfig.Description, " = ", accuracy, ", logloss = ", logLoss)
	}

	ctl.HandleError(tree.Save(trainConfig.FileNameModel))
}

type PredictConfig struct {
	FileNameFeatures   string `json:"filename_features"`
	FileNameModel      string `json:"filename_model"`
	FileNamePrediction string `json:"filename_prediction"`
	FileNameScores     string `json:"filename_scores"`
}

func predict(srcConfig string) {
	var predictConfig PredictConfig
	decodeConfig(srcConfig, &predictConfig)

	tree, err := ctl.LoadTree(predictConfig.FileNameModel)
	ctl.HandleError(err)

	features, err := ctl.ReadNpy(predictConfig.FileNameFeatures)
	ctl.HandleError(err)

	labels := tree.PredictLabels(features)
	prediction := mat.NewDense(len(labels), 1, nil)
	for p, label := range labels {
		prediction.Set(p, 0, float64(label))
	}
	ctl.HandleError(ctl.WriteNpy(predictConfig.FileNamePrediction, prediction))

	if predictConfig.FileNameScores != "" {
		ctl.HandleError(ctl.WriteNpy(predictConfig.FileNameScores, tree.PredictProba(features)))
	}
}

type RenderConfig struct {
	FileNameModel  string `json:"filename_model"`
	FigureType     string `json:"figure_type"`
	FileNameFigure string `json:"filename_figure"`
}

func render(srcConfig string) {
	var renderConfig RenderConfig
	decodeConfig(srcConfig, &renderConfig)

	tree, err := ctl.LoadTree(renderConfig.FileNameModel)
	ctl.HandleError(err)

	tree.RenderTree(renderConfig.FileNameFigure, renderConfig.FigureType)
}

func main() {
	mode := flag.String("mode", "train", "one of train, predict, render")
	config := flag.String("config", "", "path to the json config of the chosen mode")
	flag.Parse()

	if *config == "" {
		log.Fatal("a -config file is required")
	}

	switch *mode {
	case "train":
		train(*config)
	case "predict":
		predict(*config)
	case "render":
		render(*config)
	default:
		log.Fatalf("unknown mode %q", *mode)
	}
}
