package cmd

import (
	"time"

	"github.com/spf13/cobra"

	"github.com/decisionpatterns/arborist/forest"
	"github.com/decisionpatterns/arborist/predblock"
	"github.com/decisionpatterns/arborist/rowrank"
	"github.com/decisionpatterns/arborist/split"
	"github.com/decisionpatterns/arborist/tree"
)

var (
	trainInput    string
	trainOutput   string
	trainResponse string
	trainSeed     int64
)

var trainCmd = &cobra.Command{
	Use:   "train",
	Short: "Train a forest from a CSV matrix and write it to a .rf file",
	Example: `  arborist train -i train.csv -r quality -o model.rf
  arborist train -i train.csv -r species -o model.rf --config rf.yaml`,
	RunE: runTrain,
}

func init() {
	rootCmd.AddCommand(trainCmd)

	trainCmd.Flags().StringVarP(&trainInput, "input", "i", "", "input CSV path (required)")
	trainCmd.Flags().StringVarP(&trainOutput, "output", "o", "model.rf", "output model path")
	trainCmd.Flags().StringVarP(&trainResponse, "response", "r", "", "response column name (required)")
	trainCmd.Flags().Int64Var(&trainSeed, "seed", 0, "RNG seed (0 derives one from the current time)")
	trainCmd.MarkFlagRequired("input")
	trainCmd.MarkFlagRequired("response")
}

func runTrain(cmd *cobra.Command, args []string) error {
	log := GetLogger()
	cfg := GetConfig()

	log.Info("loading %s (response=%s)", trainInput, trainResponse)
	ds, err := loadDataset(trainInput, trainResponse)
	if err != nil {
		return err
	}
	log.Info("%d rows, %d numeric predictors, %d factor predictors", ds.NRow, len(ds.NumCols), len(ds.FacCols))

	block, err := predblock.TrainImmutables(ds.NumCols, ds.FacCols, ds.FacCard, ds.NRow)
	if err != nil {
		return err
	}
	rr, err := rowrank.Build(ds.NumCols, ds.NRow)
	if err != nil {
		return err
	}

	resp := split.Response{Y: ds.Y, YCtg: ds.YCtg, CtgWidth: ds.CtgWidth}

	nSamp := cfg.Train.NSamp
	if nSamp <= 0 {
		nSamp = ds.NRow
	}
	seed := trainSeed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}

	log.Info("training %d trees (nSamp=%d, withReplacement=%v)", cfg.Train.NTree, nSamp, cfg.Train.WithReplacement)
	out, err := forest.Train(forest.TrainInput{
		Block:   block,
		RowRank: rr,
		Resp:    resp,
		SplitCfg: split.Config{
			SmallFactorCeiling: cfg.Train.SmallFactorCeiling,
			MaxWidth:           cfg.Train.MaxWidth,
			PredFixed:          cfg.Train.PredFixed,
			Workers:            cfg.Runtime.Workers,
		},
		TreeCfg: tree.Params{
			NSamp:           nSamp,
			WithReplacement: cfg.Train.WithReplacement,
			MinNode:         cfg.Train.MinNode,
			MinRatio:        cfg.Train.MinRatio,
			TotLevels:       cfg.Train.TotLevels,
		},
		NTree:      cfg.Train.NTree,
		TrainBlock: cfg.Train.TrainBlock,
		Workers:    cfg.Runtime.Workers,
		Seed:       seed,
	})
	if err != nil {
		return err
	}
	log.Info("trained %d trees, %d global nodes", out.Forest.NTree(), len(out.Forest.Nodes))

	pf := buildPreFormat(ds)
	if err := saveModel(trainOutput, pf, out.Forest); err != nil {
		return err
	}
	log.Info("wrote model to %s", trainOutput)
	return nil
}

// buildPreFormat derives the portable column-identity artifact from a
// loaded dataset so a later predict session can validate drift.
func buildPreFormat(ds *Dataset) predblock.PreFormat {
	predMap := make(map[int]string)
	levelMap := make(map[int][]string)
	nNum := len(ds.NumCols)
	for j, levels := range ds.FacLevels {
		p := nNum + j
		predMap[p] = ds.PredNames[p]
		levelMap[p] = levels
	}
	return predblock.PreFormat{
		ColNames: ds.PredNames,
		BlockNum: nNum,
		BlockFac: len(ds.FacCols),
		NPredFac: len(ds.FacCols),
		NRow:     ds.NRow,
		FacCard:  ds.FacCard,
		Signature: predblock.Signature{
			PredMap: predMap,
			Level:   levelMap,
		},
	}
}
