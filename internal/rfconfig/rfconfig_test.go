package rfconfig

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault_Validates(t *testing.T) {
	assert.NoError(t, Default().Validate())
}

func TestLoad_MissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, Default().Train.NTree, cfg.Train.NTree)
	assert.Equal(t, Default().Runtime.RowBlock, cfg.Runtime.RowBlock)
}

func TestLoadFromReader_Overrides(t *testing.T) {
	yaml := []byte(`
train:
  n_tree: 50
  max_width: 8
runtime:
  workers: 4
`)
	cfg, err := LoadFromReader("yaml", yaml)
	require.NoError(t, err)
	assert.Equal(t, 50, cfg.Train.NTree)
	assert.Equal(t, 8, cfg.Train.MaxWidth)
	assert.Equal(t, 4, cfg.Runtime.Workers)
	// unset fields keep their defaults
	assert.Equal(t, Default().Train.MinNode, cfg.Train.MinNode)
}

func TestValidate_RejectsBadValues(t *testing.T) {
	cases := []struct {
		name string
		mut  func(*Config)
	}{
		{"negative n_tree", func(c *Config) { c.Train.NTree = -1 }},
		{"zero train_block", func(c *Config) { c.Train.TrainBlock = 0 }},
		{"zero min_node", func(c *Config) { c.Train.MinNode = 0 }},
		{"out of range min_ratio", func(c *Config) { c.Train.MinRatio = 1.5 }},
		{"zero max_width", func(c *Config) { c.Train.MaxWidth = 0 }},
		{"zero row_block", func(c *Config) { c.Runtime.RowBlock = 0 }},
		{"slop factor too small", func(c *Config) { c.Runtime.SlopFactor = 1.0 }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := Default()
			tc.mut(&cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}
