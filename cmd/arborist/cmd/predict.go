package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/decisionpatterns/arborist/grading"
	"github.com/decisionpatterns/arborist/predblock"
	"github.com/decisionpatterns/arborist/predict"
)

var (
	predictModel    string
	predictInput    string
	predictResponse string
)

var predictCmd = &cobra.Command{
	Use:   "predict",
	Short: "Score a CSV against a trained .rf model",
	Example: `  arborist predict -m model.rf -i holdout.csv
  arborist predict -m model.rf -i holdout.csv -r quality   # also prints a confusion matrix`,
	RunE: runPredict,
}

func init() {
	rootCmd.AddCommand(predictCmd)

	predictCmd.Flags().StringVarP(&predictModel, "model", "m", "", "trained .rf model path (required)")
	predictCmd.Flags().StringVarP(&predictInput, "input", "i", "", "input CSV path (required)")
	predictCmd.Flags().StringVarP(&predictResponse, "response", "r", "", "optional response column; if present, its values score a confusion matrix for classification forests")
	predictCmd.MarkFlagRequired("model")
	predictCmd.MarkFlagRequired("input")
}

func runPredict(cmd *cobra.Command, args []string) error {
	log := GetLogger()
	cfg := GetConfig()

	pf, f, err := loadModel(predictModel)
	if err != nil {
		return err
	}
	log.Info("loaded model: %d trees, %d predictors, ctgWidth=%d", f.NTree(), len(pf.ColNames), f.CtgWidth)

	ds, drifted, err := loadPredictDataset(predictInput, predictResponse, pf)
	if err != nil {
		return err
	}
	for _, p := range drifted {
		log.Warn("predictor %d (%s) saw a factor level never observed during training", p, pf.Signature.PredMap[p])
	}

	block, err := predblock.PredictImmutables(ds.NumCols, ds.FacCols, ds.FacCard, ds.NRow)
	if err != nil {
		return err
	}

	var yTest []uint32
	if predictResponse != "" && f.CtgWidth > 0 {
		yTest = ds.YCtg
	}

	in := predict.Input{
		Forest:   f,
		Block:    block,
		RowBlock: cfg.Runtime.RowBlock,
		Workers:  cfg.Runtime.Workers,
	}
	out, err := predict.Predict(in, yTest)
	if err != nil {
		return err
	}

	if out.Regression != nil {
		printRegression(*out.Regression)
	} else {
		printClassification(*out.Classification, ds.YLevels)
		if f.CtgWidth == 2 && yTest != nil && out.Classification.Prob != nil {
			printAUC(*out.Classification, yTest)
		}
	}
	return nil
}

// printAUC reports the area under the ROC curve for a binary forest,
// scored on class 1's predicted probability against the supplied labels.
func printAUC(out predict.ClassificationOutput, yTest []uint32) {
	score := make([]float64, len(out.Prob))
	for row, p := range out.Prob {
		score[row] = p[1]
	}
	fmt.Printf("\nAUC: %.4f\n", grading.AUC(yTest, score))
}

func printRegression(out predict.RegressionOutput) {
	fmt.Println("row,yPred")
	for row, v := range out.YPred {
		fmt.Printf("%d,%g\n", row, v)
	}
}

func printClassification(out predict.ClassificationOutput, labels []string) {
	name := func(c uint32) string {
		if int(c) < len(labels) {
			return labels[c]
		}
		return fmt.Sprintf("%d", c)
	}

	fmt.Println("row,yPred,census,prob")
	for row, c := range out.YPred {
		fmt.Printf("%d,%s,%v,%v\n", row, name(c), out.Census[row], out.Prob[row])
	}

	if out.Conf == nil {
		return
	}
	fmt.Println("\nconfusion matrix (rows=true, cols=predicted):")
	for c, row := range out.Conf {
		fmt.Printf("%s: %v  (error=%.4f)\n", name(uint32(c)), row, out.Error[c])
	}
}
