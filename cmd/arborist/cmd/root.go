package cmd

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/decisionpatterns/arborist/internal/rfconfig"
	"github.com/decisionpatterns/arborist/internal/rflog"
)

var (
	configPath string
	verbose    bool

	logger rflog.Logger
	config rfconfig.Config
)

var rootCmd = &cobra.Command{
	Use:   "arborist",
	Short: "Train and score random forests from CSV matrices",
	Long: `arborist is a command-line front end for the random-forest training
and prediction engine. It loads a CSV design matrix, builds the predictor
block and rank table the engine needs, and drives training or scoring
from the command line.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		level := rflog.LevelInfo
		if verbose {
			level = rflog.LevelDebug
		}
		logger = rflog.New(level, os.Stdout)

		cfg, err := rfconfig.Load(configPath)
		if err != nil {
			return err
		}
		config = cfg
		return nil
	},
}

// Execute runs the root command, exiting the process on error.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "path to a YAML hyperparameter config (defaults used for anything unset)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")

	rootCmd.Example = `  arborist train -i train.csv -r quality -o model.rf
  arborist predict -m model.rf -i holdout.csv`
}

// GetLogger returns the logger configured by the root command's
// PersistentPreRunE.
func GetLogger() rflog.Logger { return logger }

// GetConfig returns the hyperparameter config loaded by the root command's
// PersistentPreRunE.
func GetConfig() rfconfig.Config { return config }
