package split

import (
	"math/rand"
	"testing"

	"github.com/decisionpatterns/arborist/predblock"
	"github.com/decisionpatterns/arborist/rowrank"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFind_NumericRegressionSplitsAtMidpoint(t *testing.T) {
	num := [][]float64{{1, 2, 3, 4, 10, 11, 12, 13}}
	block, err := predblock.TrainImmutables(num, nil, nil, 8)
	require.NoError(t, err)
	rr, err := rowrank.Build(num, 8)
	require.NoError(t, err)

	node := NodeRows{
		Rows:   []uint32{0, 1, 2, 3, 4, 5, 6, 7},
		SCount: []uint32{1, 1, 1, 1, 1, 1, 1, 1},
	}
	resp := Response{Y: []float64{1, 2, 3, 4, 10, 11, 12, 13}}
	cfg := Config{PredFixed: 1}

	cand, ok := Find(block, rr, node, resp, cfg, rand.New(rand.NewSource(1)))
	require.True(t, ok)
	assert.Equal(t, 0, cand.PredIdx)
	assert.Greater(t, cand.SplitVal, 4.0)
	assert.Less(t, cand.SplitVal, 10.0)
}

func TestFind_FactorBinaryClassificationSplits(t *testing.T) {
	fac := [][]uint32{{0, 0, 1, 1, 2, 2}}
	block, err := predblock.TrainImmutables(nil, fac, []int{3}, 6)
	require.NoError(t, err)
	rr, err := rowrank.Build(nil, 6)
	require.NoError(t, err)

	node := NodeRows{
		Rows:   []uint32{0, 1, 2, 3, 4, 5},
		SCount: []uint32{1, 1, 1, 1, 1, 1},
	}
	resp := Response{YCtg: []uint32{0, 0, 1, 1, 0, 1}, CtgWidth: 2}
	cfg := Config{PredFixed: 1, SmallFactorCeiling: 8}

	cand, ok := Find(block, rr, node, resp, cfg, rand.New(rand.NewSource(2)))
	require.True(t, ok)
	assert.True(t, cand.IsFactor)
	assert.Greater(t, cand.Info, 0.0)
}

func TestFind_NoSplitWhenSingleRow(t *testing.T) {
	num := [][]float64{{1}}
	block, err := predblock.TrainImmutables(num, nil, nil, 1)
	require.NoError(t, err)
	rr, err := rowrank.Build(num, 1)
	require.NoError(t, err)

	node := NodeRows{Rows: []uint32{0}, SCount: []uint32{1}}
	resp := Response{Y: []float64{5}}
	cfg := Config{PredFixed: 1}

	_, ok := Find(block, rr, node, resp, cfg, rand.New(rand.NewSource(3)))
	assert.False(t, ok)
}
