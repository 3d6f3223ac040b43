// Package rfconfig loads and validates training hyperparameters and runtime
// tuning knobs for the engine.
package rfconfig

import (
	"bytes"
	"fmt"
	"os"

	"github.com/spf13/viper"
)

// Config holds the hyperparameters and runtime tuning knobs for a training
// session plus the constants referenced throughout the split driver and
// runset arenas.
type Config struct {
	Train   TrainConfig   `mapstructure:"train"`
	Runtime RuntimeConfig `mapstructure:"runtime"`
}

// TrainConfig is the per-session hyperparameter set.
type TrainConfig struct {
	NTree           int     `mapstructure:"n_tree"`
	NSamp           int     `mapstructure:"n_samp"`
	WithReplacement bool    `mapstructure:"with_replacement"`
	TrainBlock      int     `mapstructure:"train_block"`
	MinNode         int     `mapstructure:"min_node"`
	MinRatio        float64 `mapstructure:"min_ratio"`
	TotLevels       int     `mapstructure:"tot_levels"`
	PredFixed       int     `mapstructure:"pred_fixed"`
	// SmallFactorCeiling is the cardinality at/below which the split
	// driver enumerates LH subsets exhaustively.
	SmallFactorCeiling int `mapstructure:"small_factor_ceiling"`
	// MaxWidth caps the number of factor runs considered exhaustively for
	// wide multi-class splits; excess runs are subsampled.
	MaxWidth int `mapstructure:"max_width"`
	// QBin is the number of equal-width rank buckets for quantile
	// prediction. The CLI does not pass it to the prediction driver.
	QBin int `mapstructure:"q_bin"`
}

// RuntimeConfig tunes the concurrency model.
type RuntimeConfig struct {
	// Workers bounds the worker pool used for tree-block, pair, and
	// row-block parallelism. Zero means "let rfparallel choose".
	Workers int `mapstructure:"workers"`
	// RowBlock is the row-blocking size used by the prediction driver to
	// bound working-set size for cache occupancy.
	RowBlock int `mapstructure:"row_block"`
	// SlopFactor is an arena growth factor for trees whose node count
	// overshoots an estimate. It is validated but not read by the tree
	// builder, which grows its node slices without a preset budget.
	SlopFactor float64 `mapstructure:"slop_factor"`
}

// Default returns the engine defaults, matching a call with no options in
// the style of the decision-tree reference's NewClassifier defaults.
func Default() Config {
	return Config{
		Train: TrainConfig{
			NTree:              500,
			NSamp:               0, // 0 means "use all rows", resolved by caller
			WithReplacement:     true,
			TrainBlock:          8,
			MinNode:             1,
			MinRatio:            0.0,
			TotLevels:           0, // 0 means "unbounded"
			PredFixed:           0, // 0 means "use all predictors"
			SmallFactorCeiling:  10,
			MaxWidth:            64,
			QBin:                1000,
		},
		Runtime: RuntimeConfig{
			Workers:    0,
			RowBlock:   4096,
			SlopFactor: 1.5,
		},
	}
}

// Load reads configuration from the given YAML file path, falling back to
// Default() values for anything unset. An empty path uses defaults only.
func Load(configPath string) (Config, error) {
	v := viper.New()
	setDefaults(v)

	if configPath != "" {
		v.SetConfigFile(configPath)
		if err := v.ReadInConfig(); err != nil {
			if os.IsNotExist(err) {
				return fromViper(v)
			}
			if _, ok := err.(viper.ConfigFileNotFoundError); ok {
				return fromViper(v)
			}
			return Config{}, fmt.Errorf("rfconfig: reading %s: %w", configPath, err)
		}
	}

	v.AutomaticEnv()
	return fromViper(v)
}

// LoadFromReader loads configuration of the given type (yaml, json, ...)
// from raw bytes, useful for tests.
func LoadFromReader(configType string, content []byte) (Config, error) {
	v := viper.New()
	setDefaults(v)
	v.SetConfigType(configType)
	if err := v.ReadConfig(bytes.NewReader(content)); err != nil {
		return Config{}, fmt.Errorf("rfconfig: parsing %s config: %w", configType, err)
	}
	return fromViper(v)
}

func fromViper(v *viper.Viper) (Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("rfconfig: unmarshal: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("rfconfig: %w", err)
	}
	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	d := Default()
	v.SetDefault("train.n_tree", d.Train.NTree)
	v.SetDefault("train.n_samp", d.Train.NSamp)
	v.SetDefault("train.with_replacement", d.Train.WithReplacement)
	v.SetDefault("train.train_block", d.Train.TrainBlock)
	v.SetDefault("train.min_node", d.Train.MinNode)
	v.SetDefault("train.min_ratio", d.Train.MinRatio)
	v.SetDefault("train.tot_levels", d.Train.TotLevels)
	v.SetDefault("train.pred_fixed", d.Train.PredFixed)
	v.SetDefault("train.small_factor_ceiling", d.Train.SmallFactorCeiling)
	v.SetDefault("train.max_width", d.Train.MaxWidth)
	v.SetDefault("train.q_bin", d.Train.QBin)
	v.SetDefault("runtime.workers", d.Runtime.Workers)
	v.SetDefault("runtime.row_block", d.Runtime.RowBlock)
	v.SetDefault("runtime.slop_factor", d.Runtime.SlopFactor)
}

// Validate checks that the configuration describes a legal training session.
func (c Config) Validate() error {
	if c.Train.NTree < 0 {
		return fmt.Errorf("train.n_tree must be >= 0, got %d", c.Train.NTree)
	}
	if c.Train.TrainBlock <= 0 {
		return fmt.Errorf("train.train_block must be > 0, got %d", c.Train.TrainBlock)
	}
	if c.Train.MinNode <= 0 {
		return fmt.Errorf("train.min_node must be > 0, got %d", c.Train.MinNode)
	}
	if c.Train.MinRatio < 0 || c.Train.MinRatio > 1 {
		return fmt.Errorf("train.min_ratio must be in [0, 1], got %f", c.Train.MinRatio)
	}
	if c.Train.MaxWidth <= 0 {
		return fmt.Errorf("train.max_width must be > 0, got %d", c.Train.MaxWidth)
	}
	if c.Train.SmallFactorCeiling <= 0 {
		return fmt.Errorf("train.small_factor_ceiling must be > 0, got %d", c.Train.SmallFactorCeiling)
	}
	if c.Runtime.RowBlock <= 0 {
		return fmt.Errorf("runtime.row_block must be > 0, got %d", c.Runtime.RowBlock)
	}
	if c.Runtime.SlopFactor <= 1.0 {
		return fmt.Errorf("runtime.slop_factor must be > 1.0, got %f", c.Runtime.SlopFactor)
	}
	return nil
}
