package runset

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNodeTotal_MatchesAccumulatedRuns(t *testing.T) {
	specs := []PairSpec{{SafeCount: 4, Variant: Regression}}
	_, sets := BuildArena(specs, 0, 8, rand.New(rand.NewSource(1)))
	rs := sets[0]

	runs := []Run{
		{Start: 0, End: 2, SCount: 2, Sum: 4},
		{Start: 2, End: 5, SCount: 3, Sum: 9},
		{Start: 5, End: 6, SCount: 1, Sum: 2},
	}
	for _, r := range runs {
		rs.Accumulate(r, nil)
	}

	sCount, sum := rs.NodeTotal()
	assert.Equal(t, uint32(6), sCount)
	assert.Equal(t, 15.0, sum)
}

func TestCtgSum_SumsToRunSum(t *testing.T) {
	specs := []PairSpec{{SafeCount: 3, Variant: BinaryCtg}}
	_, sets := BuildArena(specs, 2, 8, rand.New(rand.NewSource(1)))
	rs := sets[0]

	rs.Accumulate(Run{SCount: 2, Sum: 2}, []float64{2, 0})
	rs.Accumulate(Run{SCount: 2, Sum: 2}, []float64{0, 2})
	rs.Accumulate(Run{SCount: 2, Sum: 2}, []float64{1, 1})

	for k := 0; k < rs.RunCount(); k++ {
		r := rs.Run(k)
		ctg := rs.CtgSum(k)
		var total float64
		for _, v := range ctg {
			total += v
		}
		assert.Equal(t, r.Sum, total)
	}
}

// Scenario (b): single factor predictor, binary classification, 6 rows
// with factor levels [A,A,B,B,C,C] and yCtg = [0,0,1,1,0,1].
func TestScenario_BinaryFactorRunSet(t *testing.T) {
	specs := []PairSpec{{SafeCount: 3, Variant: BinaryCtg}}
	_, sets := BuildArena(specs, 2, 8, rand.New(rand.NewSource(1)))
	rs := sets[0]

	// Runs collapse in level (row) order: A, B, C.
	rs.Accumulate(Run{Start: 0, End: 2, SCount: 2, Sum: 2}, []float64{2, 0}) // A: yCtg 0,0
	rs.Accumulate(Run{Start: 2, End: 4, SCount: 2, Sum: 2}, []float64{0, 2}) // B: yCtg 1,1
	rs.Accumulate(Run{Start: 4, End: 6, SCount: 2, Sum: 2}, []float64{1, 1}) // C: yCtg 0,1
	require.Equal(t, 3, rs.RunCount())

	rs.HeapBinary()
	require.Equal(t, 3, rs.heapLen)

	n := rs.DePop(3)
	require.Equal(t, 3, n)

	// Ascending key order: A (0.0), C (0.5), B (1.0).
	s0, _, _ := rs.Bounds(0)
	s1, _, _ := rs.Bounds(1)
	s2, _, _ := rs.Bounds(2)
	assert.Equal(t, uint32(0), s0) // A
	assert.Equal(t, uint32(4), s1) // C
	assert.Equal(t, uint32(2), s2) // B
}

func TestDeWide_IdentityWhenUnderMaxWidth(t *testing.T) {
	specs := []PairSpec{{SafeCount: 2, Variant: WideMultiCtg}}
	_, sets := BuildArena(specs, 4, 8, rand.New(rand.NewSource(1)))
	rs := sets[0]
	rs.Accumulate(Run{SCount: 1, Sum: 1}, []float64{1, 0, 0, 0})
	rs.Accumulate(Run{SCount: 1, Sum: 1}, []float64{0, 1, 0, 0})

	assert.Equal(t, 2, rs.DeWide())
	assert.Equal(t, 2, rs.RunCount())
}

// Scenario (e): fixed draws rvWide = [0.9, 0.1, 0.5, 0.3, 0.7], maxWidth=3
// select original slots {1, 3, 2} in that order.
func TestDeWide_DeterministicSubsample(t *testing.T) {
	specs := []PairSpec{{SafeCount: 5, Variant: WideMultiCtg}}
	arena, sets := BuildArena(specs, 0, 3, rand.New(rand.NewSource(99)))
	rs := sets[0]
	copy(arena.RvWide, []float64{0.9, 0.1, 0.5, 0.3, 0.7})

	for k := 0; k < 5; k++ {
		rs.Accumulate(Run{Start: uint32(k), End: uint32(k + 1), SCount: 1, Sum: 1}, nil)
	}

	got := rs.DeWide()
	require.Equal(t, 3, got)
	assert.Equal(t, uint32(1), rs.Run(0).Start)
	assert.Equal(t, uint32(3), rs.Run(1).Start)
	assert.Equal(t, uint32(2), rs.Run(2).Start)
}

func TestDeWide_PropertyRandom(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	for trial := 0; trial < 20; trial++ {
		n := rng.Intn(30) + 1
		maxWidth := rng.Intn(10) + 1
		specs := []PairSpec{{SafeCount: n, Variant: WideMultiCtg}}
		arena, sets := BuildArena(specs, 0, maxWidth, rand.New(rand.NewSource(int64(trial))))
		rs := sets[0]
		_ = arena
		for k := 0; k < n; k++ {
			rs.Accumulate(Run{Start: uint32(k), End: uint32(k + 1), SCount: 1, Sum: 1}, nil)
		}

		got := rs.DeWide()
		want := n
		if n > maxWidth {
			want = maxWidth
		}
		assert.Equal(t, want, got)

		seen := map[uint32]bool{}
		for k := 0; k < rs.RunCount(); k++ {
			start := rs.Run(k).Start
			assert.False(t, seen[start], "duplicate slot after DeWide")
			seen[start] = true
		}
	}
}

func TestLHBits_AccumulatesLHCounts(t *testing.T) {
	specs := []PairSpec{{SafeCount: 3, Variant: Regression}}
	_, sets := BuildArena(specs, 0, 8, rand.New(rand.NewSource(1)))
	rs := sets[0]
	rs.Accumulate(Run{Start: 0, End: 2, SCount: 2, Sum: 4}, nil)
	rs.Accumulate(Run{Start: 2, End: 5, SCount: 3, Sum: 9}, nil)
	rs.Accumulate(Run{Start: 5, End: 6, SCount: 1, Sum: 2}, nil)

	// EffCount()-1 == 2 bits available (runs 0 and 1); run 2 always rides
	// along implicitly.
	runsLH, idxCount, sampCt := rs.LHBits(1) // bit 0 set: run 0 to LH
	assert.Equal(t, 1, runsLH)
	assert.Equal(t, uint32(2), idxCount)
	assert.Equal(t, uint32(2), sampCt)
}

func TestLHSlots_UsesMostRecentDePopOrder(t *testing.T) {
	specs := []PairSpec{{SafeCount: 3, Variant: Regression}}
	_, sets := BuildArena(specs, 0, 8, rand.New(rand.NewSource(1)))
	rs := sets[0]
	rs.Accumulate(Run{Start: 0, End: 2, SCount: 2, Sum: 10}, nil) // mean 5
	rs.Accumulate(Run{Start: 2, End: 3, SCount: 1, Sum: 1}, nil)  // mean 1
	rs.Accumulate(Run{Start: 3, End: 4, SCount: 1, Sum: 3}, nil)  // mean 3

	rs.HeapMean()
	rs.DePop(0)

	runsLH, idxCount, sampCt := rs.LHSlots(1) // first two in ascending-mean order: mean 1, mean 3
	assert.Equal(t, 2, runsLH)
	assert.Equal(t, uint32(2), idxCount) // run(mean1) 1 row + run(mean3) 1 row
	assert.Equal(t, uint32(2), sampCt)
}
