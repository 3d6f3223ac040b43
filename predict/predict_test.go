package predict

import (
	"testing"

	"github.com/decisionpatterns/arborist/forest"
	"github.com/decisionpatterns/arborist/predblock"
	"github.com/decisionpatterns/arborist/tree"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegression_SingleTreeMeanLeaf(t *testing.T) {
	f := forest.New(4, 1, 0)
	f.Append(&tree.Built{
		Nodes: []tree.Node{
			{PredIdx: 0, SplitVal: 2.5, LH: 1, RH: 2},
			{PredIdx: -1, LH: -1, RH: -1},
			{PredIdx: -1, LH: -1, RH: -1},
		},
		SCount:  []uint32{4, 2, 2},
		LeafVal: []float64{0, 1.0, 5.0},
	})

	block, err := predblock.PredictImmutables([][]float64{{1, 2, 3, 4}}, nil, nil, 4)
	require.NoError(t, err)

	out, err := Regression(Input{Forest: f, Block: block})
	require.NoError(t, err)
	assert.Equal(t, []float64{1, 1, 5, 5}, out.YPred)
}

func TestClassification_ArgmaxAndCensus(t *testing.T) {
	f := forest.New(2, 1, 2)
	f.Append(&tree.Built{
		Nodes:      []tree.Node{{PredIdx: -1, LH: -1, RH: -1}},
		SCount:     []uint32{2},
		LeafWeight: []float64{3, 1}, // mostly category 0
	})

	block, err := predblock.PredictImmutables([][]float64{{0, 0}}, nil, nil, 2)
	require.NoError(t, err)

	out, err := Classification(Input{Forest: f, Block: block}, 2, nil)
	require.NoError(t, err)
	assert.Equal(t, uint32(0), out.YPred[0])
	require.Len(t, out.Prob[0], 2)
	assert.InDelta(t, 0.75, out.Prob[0][0], 1e-9)
}

func TestClassification_ConfusionMatrix(t *testing.T) {
	f := forest.New(2, 1, 2)
	f.Append(&tree.Built{
		Nodes:      []tree.Node{{PredIdx: -1, LH: -1, RH: -1}},
		SCount:     []uint32{2},
		LeafWeight: []float64{1, 3}, // mostly category 1
	})
	block, err := predblock.PredictImmutables([][]float64{{0, 0}}, nil, nil, 2)
	require.NoError(t, err)

	out, err := Classification(Input{Forest: f, Block: block}, 2, []uint32{1, 0})
	require.NoError(t, err)
	require.NotNil(t, out.Conf)
	assert.Equal(t, uint32(1), out.Conf[1][1]) // true=1, pred=1
	assert.Equal(t, uint32(1), out.Conf[0][1]) // true=0, pred=1 (error)
	assert.Equal(t, 1.0, out.Error[0])
	assert.Equal(t, 0.0, out.Error[1])
}

func TestPredict_DispatchesOnCtgWidth(t *testing.T) {
	reg := forest.New(4, 1, 0)
	reg.Append(&tree.Built{
		Nodes:   []tree.Node{{PredIdx: -1, LH: -1, RH: -1}},
		SCount:  []uint32{4},
		LeafVal: []float64{2.0},
	})
	block, err := predblock.PredictImmutables([][]float64{{1, 2, 3, 4}}, nil, nil, 4)
	require.NoError(t, err)

	out, err := Predict(Input{Forest: reg, Block: block}, nil)
	require.NoError(t, err)
	require.NotNil(t, out.Regression)
	assert.Nil(t, out.Classification)
	assert.Equal(t, []float64{2, 2, 2, 2}, out.Regression.YPred)

	ctg := forest.New(2, 1, 2)
	ctg.Append(&tree.Built{
		Nodes:      []tree.Node{{PredIdx: -1, LH: -1, RH: -1}},
		SCount:     []uint32{2},
		LeafWeight: []float64{3, 1},
	})
	block2, err := predblock.PredictImmutables([][]float64{{0, 0}}, nil, nil, 2)
	require.NoError(t, err)

	out2, err := Predict(Input{Forest: ctg, Block: block2}, nil)
	require.NoError(t, err)
	require.NotNil(t, out2.Classification)
	assert.Nil(t, out2.Regression)
	assert.Equal(t, uint32(0), out2.Classification.YPred[0])
}

func TestJitterVote_SplitsFractional(t *testing.T) {
	votes := make([]float64, 3)
	JitterVote(votes, 1.25)
	assert.InDelta(t, 1.25, votes[1], 1e-9)
	assert.Equal(t, 0.0, votes[0])
	assert.Equal(t, 0.0, votes[2])
}
