package predblock

import (
	"testing"

	"github.com/decisionpatterns/arborist/internal/rferr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTrainImmutables_BasicQueries(t *testing.T) {
	num := [][]float64{{1, 2, 3, 4}}
	fac := [][]uint32{{0, 1, 0, 2}}
	b, err := TrainImmutables(num, fac, []int{3}, 4)
	require.NoError(t, err)

	assert.Equal(t, 4, b.NRow())
	assert.Equal(t, 2, b.NPred())
	assert.False(t, b.IsFactor(0))
	assert.True(t, b.IsFactor(1))
	assert.Equal(t, 0, b.NumFirst())
	assert.Equal(t, 1, b.NumSup())
	assert.Equal(t, 1, b.FacFirst())
	assert.Equal(t, 2, b.FacSup())
	assert.Equal(t, 3, b.CardMax())

	card, err := b.FacCard(1)
	require.NoError(t, err)
	assert.Equal(t, 3, card)
}

func TestDormantBlock_QueriesFail(t *testing.T) {
	b, err := TrainImmutables([][]float64{{1, 2}}, nil, nil, 2)
	require.NoError(t, err)
	b.DeImmutables()

	_, err = b.NumCol(0)
	assert.True(t, rferr.Of(err, rferr.NotInitialized))
}

func TestArityError_EmptyRows(t *testing.T) {
	_, err := TrainImmutables([][]float64{{}}, nil, nil, 0)
	assert.True(t, rferr.Of(err, rferr.ArityError))
}

func TestArityError_NoPredictors(t *testing.T) {
	_, err := TrainImmutables(nil, nil, nil, 5)
	assert.True(t, rferr.Of(err, rferr.ArityError))
}

func TestInvariant_FactorCodeOutOfRangeRejected(t *testing.T) {
	_, err := TrainImmutables(nil, [][]uint32{{0, 5}}, []int{2}, 2)
	require.Error(t, err)
}

func TestNumColOnFactorPredictor_Errors(t *testing.T) {
	b, err := TrainImmutables([][]float64{{1, 2}}, [][]uint32{{0, 1}}, []int{2}, 2)
	require.NoError(t, err)
	_, err = b.NumCol(1)
	assert.Error(t, err)
}
