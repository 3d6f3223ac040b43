package rheap

import (
	"math/rand"
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func buildHeap(keys []float64) ([]Pair, int) {
	arr := make([]Pair, len(keys))
	n := 0
	for i, k := range keys {
		n = Insert(arr, n, k, uint32(i))
	}
	return arr, n
}

func TestDepopulate_AscendingOrder(t *testing.T) {
	keys := []float64{5, 1, 4, 2, 8, 0, 9, 3}
	arr, n := buildHeap(keys)

	out := make([]uint32, len(keys))
	remaining := Depopulate(arr, out, n, len(keys))
	assert.Equal(t, 0, remaining)

	sortedKeys := append([]float64(nil), keys...)
	sort.Float64s(sortedKeys)
	for i, slot := range out {
		assert.Equal(t, sortedKeys[i], keys[slot])
	}
}

func TestDepopulate_PartialPop(t *testing.T) {
	keys := []float64{7, 3, 9, 1, 5}
	arr, n := buildHeap(keys)

	out := make([]uint32, 2)
	remaining := Depopulate(arr, out, n, 2)
	assert.Equal(t, 3, remaining)

	assert.Equal(t, keys[out[0]], 1.0)
	assert.Equal(t, keys[out[1]], 3.0)
}

func TestDepopulate_ZeroMeansAll(t *testing.T) {
	keys := []float64{2, 1, 3}
	arr, n := buildHeap(keys)
	out := make([]uint32, len(keys))
	remaining := Depopulate(arr, out, n, 0)
	assert.Equal(t, 0, remaining)
	assert.Equal(t, uint32(1), out[0]) // key 1 is smallest
}

func TestDepopulate_PopExceedsSizePanics(t *testing.T) {
	keys := []float64{1, 2}
	arr, n := buildHeap(keys)
	out := make([]uint32, 5)
	assert.Panics(t, func() {
		Depopulate(arr, out, n, 5)
	})
}

func TestHeap_PropertyRandom(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	for trial := 0; trial < 20; trial++ {
		size := rng.Intn(50) + 1
		keys := make([]float64, size)
		for i := range keys {
			keys[i] = rng.Float64() * 100
		}
		arr, n := buildHeap(keys)

		out := make([]uint32, size)
		remaining := Depopulate(arr, out, n, size)
		require.Equal(t, 0, remaining)

		for i := 1; i < size; i++ {
			assert.LessOrEqual(t, keys[out[i-1]], keys[out[i]])
		}
	}
}
