package forest

import (
	"bytes"
	"testing"

	"github.com/decisionpatterns/arborist/tree"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func twoTreeBuilt() (*tree.Built, *tree.Built) {
	t1 := &tree.Built{
		Nodes: []tree.Node{
			{PredIdx: 0, SplitVal: 2.5, LH: 1, RH: 2},
			{PredIdx: -1, LH: -1, RH: -1},
			{PredIdx: -1, LH: -1, RH: -1},
		},
		SCount:  []uint32{3, 1, 2},
		LeafVal: []float64{0, 1.0, 5.0},
	}
	t2 := &tree.Built{
		Nodes: []tree.Node{
			{PredIdx: -1, LH: -1, RH: -1},
		},
		SCount:  []uint32{4},
		LeafVal: []float64{3.0},
	}
	return t1, t2
}

func TestAppend_OffsetsAreGlobal(t *testing.T) {
	f := New(10, 2, 0)
	a, b := twoTreeBuilt()
	f.Append(a)
	f.Append(b)

	require.Equal(t, 2, f.NTree())
	assert.Equal(t, uint32(0), f.Origin[0])
	assert.Equal(t, uint32(3), f.Origin[1])
	assert.Len(t, f.Nodes, 4)

	root := f.Nodes[0]
	assert.Equal(t, int32(1), root.LH)
	assert.Equal(t, int32(2), root.RH)

	assert.Equal(t, 3, f.LeafPos(1, 0))
	assert.Equal(t, 3.0, f.LeafVal[f.LeafPos(1, 0)])
}

func TestSaveLoad_RoundTrips(t *testing.T) {
	f := New(10, 2, 0)
	a, b := twoTreeBuilt()
	f.Append(a)
	f.Append(b)

	var buf bytes.Buffer
	require.NoError(t, f.Save(&buf))

	got, err := Load(&buf)
	require.NoError(t, err)
	assert.Equal(t, f.Nodes, got.Nodes)
	assert.Equal(t, f.LeafVal, got.LeafVal)
	assert.Equal(t, f.Origin, got.Origin)
}

func TestIsFactorBitSet(t *testing.T) {
	f := New(5, 1, 0)
	f.FacSplit = []uint64{0b1010}
	assert.True(t, f.IsFactorBitSet(0, 1))
	assert.False(t, f.IsFactorBitSet(0, 0))
	assert.True(t, f.IsFactorBitSet(0, 3))
}
