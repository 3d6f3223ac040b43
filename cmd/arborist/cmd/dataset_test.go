package cmd

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/decisionpatterns/arborist/predblock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeCSV(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "data.csv")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestLoadDataset_NumericAndFactorColumns(t *testing.T) {
	path := writeCSV(t, "age,color!,quality\n1,red,5\n2,blue,7\n3,red,6\n")

	ds, err := loadDataset(path, "quality")
	require.NoError(t, err)
	assert.Equal(t, 3, ds.NRow)
	assert.Equal(t, []string{"age", "color"}, ds.PredNames)
	assert.Equal(t, []float64{1, 2, 3}, ds.NumCols[0])
	assert.Equal(t, []uint32{0, 1, 0}, ds.FacCols[0])
	assert.Equal(t, []string{"red", "blue"}, ds.FacLevels[0])
	assert.Equal(t, []float64{5, 7, 6}, ds.Y) // row order preserved, not sorted
}

func TestLoadDataset_ClassificationResponse(t *testing.T) {
	path := writeCSV(t, "x,species\n1,setosa\n2,virginica\n3,setosa\n")

	ds, err := loadDataset(path, "species")
	require.NoError(t, err)
	assert.Equal(t, 2, ds.CtgWidth)
	assert.Equal(t, []uint32{0, 1, 0}, ds.YCtg)
	assert.Equal(t, []string{"setosa", "virginica"}, ds.YLevels)
}

func TestLoadPredictDataset_EncodesAgainstTrainLevels(t *testing.T) {
	path := writeCSV(t, "age,color!\n1,blue\n2,green\n")
	pf := predblock.PreFormat{
		BlockNum: 1,
		Signature: predblock.Signature{
			Level: map[int][]string{1: {"red", "blue"}},
		},
	}

	ds, drifted, err := loadPredictDataset(path, "", pf)
	require.NoError(t, err)
	assert.Equal(t, []uint32{1, predblock.ProxyLevel(2)}, ds.FacCols[0])
	assert.Equal(t, []int{1}, drifted)
}
