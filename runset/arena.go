// Package runset implements RunSet / Run: the per-(node, factor-predictor)
// accumulator of factor runs used by the split driver to score candidate
// LH/RH partitions.
//
// An Arena owns three flat, typed slices for one level of one tree (the
// run nodes, the heap pairs, and the output slot list) plus the per-run
// category-sum strip. Each RunSet is a view into that arena described by
// an offset/length pair — there is no pointer aliasing or cached-pointer
// reset step, only index arithmetic bounded by the arena's one-level
// lifetime.
package runset

import (
	"math/rand"

	"github.com/decisionpatterns/arborist/rheap"
)

// Run is one contiguous block of rows sharing a factor level (or tied
// rank range for a numeric predictor), with aggregated sample count and
// response sum.
type Run struct {
	Start, End uint32
	SCount     uint32
	Sum        float64
	Rank       uint32
	// Level is the caller-assigned identity of this run (e.g. the raw
	// factor level code it collapsed), carried through DeWide's
	// compaction so callers can always map a surviving run back to what
	// it represents.
	Level uint32
}

// Variant selects which heap-priming strategy and arena sizing formula
// applies to a (node, predictor) pair.
type Variant int

const (
	// Regression pairs always get a heap (heapMean) sized to safeCount.
	Regression Variant = iota
	// BinaryCtg pairs always get a heap (heapBinary) sized to safeCount.
	BinaryCtg
	// WideMultiCtg pairs only get a heap (heapRandom, for deWide
	// subsampling) when safeCount exceeds maxWidth.
	WideMultiCtg
)

// PairSpec describes one (node, predictor) pair's upper bound and
// classification variant, used to size a level's arenas up front.
type PairSpec struct {
	SafeCount int
	Variant   Variant
}

func (s PairSpec) heapRuns(maxWidth int) int {
	switch s.Variant {
	case Regression, BinaryCtg:
		return s.SafeCount
	case WideMultiCtg:
		if s.SafeCount > maxWidth {
			return s.SafeCount
		}
	}
	return 0
}

func (s PairSpec) outRuns(maxWidth int) int {
	if s.Variant == WideMultiCtg && s.SafeCount > maxWidth {
		return maxWidth
	}
	return s.SafeCount
}

// Arena owns the three flat arenas for one level plus the per-run
// category-sum strip and (for wide multi-class subsampling) the uniform
// draws used by heapRandom.
type Arena struct {
	Run    []Run
	Heap   []rheap.Pair
	Out    []uint32
	CtgSum []float64 // flattened (Σ safeCount) x ctgWidth, zero-filled
	RvWide []float64 // flattened Σ heapRuns-of-WideMultiCtg-pairs uniform draws

	ctgWidth int
	maxWidth int
}

// runOff/heapOff/outOff/rvOff record where each pair's view
// begins within the shared arenas.
type offsets struct {
	runOff, heapOff, outOff, rvOff int
}

// BuildArena allocates a level's arenas for the given pairs and returns a
// RunSet view for each, in the same order as specs. rng is used to fill
// RvWide for WideMultiCtg pairs whose safeCount exceeds maxWidth;
// pass a seeded *rand.Rand for deterministic tests.
func BuildArena(specs []PairSpec, ctgWidth, maxWidth int, rng *rand.Rand) (*Arena, []*RunSet) {
	var totalRun, totalHeap, totalOut, totalRv int
	offs := make([]offsets, len(specs))
	for i, s := range specs {
		offs[i] = offsets{runOff: totalRun, heapOff: totalHeap, outOff: totalOut, rvOff: totalRv}
		totalRun += s.SafeCount
		h := s.heapRuns(maxWidth)
		totalHeap += h
		totalOut += s.outRuns(maxWidth)
		if s.Variant == WideMultiCtg {
			totalRv += h
		}
	}

	a := &Arena{
		Run:      make([]Run, totalRun),
		Heap:     make([]rheap.Pair, totalHeap),
		Out:      make([]uint32, totalOut),
		ctgWidth: ctgWidth,
		maxWidth: maxWidth,
	}
	if ctgWidth > 0 {
		a.CtgSum = make([]float64, totalRun*ctgWidth)
	}
	if totalRv > 0 {
		a.RvWide = make([]float64, totalRv)
		for i := range a.RvWide {
			a.RvWide[i] = rng.Float64()
		}
	}

	sets := make([]*RunSet, len(specs))
	for i, s := range specs {
		sets[i] = &RunSet{
			arena:     a,
			off:       offs[i],
			safeCount: s.SafeCount,
			variant:   s.Variant,
			outCapVal: s.outRuns(maxWidth),
		}
	}
	return a, sets
}

// CtgWidth returns the category width the arena was built with (0 for a
// purely regression level).
func (a *Arena) CtgWidth() int { return a.ctgWidth }

// MaxWidth returns the sampled-without-replacement cap configured for
// this arena.
func (a *Arena) MaxWidth() int { return a.maxWidth }
