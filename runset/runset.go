package runset

import (
	"github.com/decisionpatterns/arborist/rheap"
)

// RunSet is a view into an Arena describing the runs accumulated for one
// (node, predictor) pair during a level's restage pass.
type RunSet struct {
	arena     *Arena
	off       offsets
	safeCount int
	variant   Variant
	outCapVal int

	runCount int // runs actually written this level, <= safeCount
	heapLen  int // entries currently live in the heap view
	outLen   int // entries currently live in the out-slot view

	runsLH     int
	lhIdxCount uint32
	lhSampCt   uint32
}

// Accumulate appends one completed run (and, for classification levels,
// its per-category sum row) to the set. It is the only mutator called
// during the restage sweep that builds runs from sorted rows.
func (rs *RunSet) Accumulate(run Run, ctgSums []float64) {
	if rs.runCount >= rs.safeCount {
		panic("runset: Accumulate exceeds safeCount")
	}
	slot := rs.off.runOff + rs.runCount
	rs.arena.Run[slot] = run
	if w := rs.arena.ctgWidth; w > 0 {
		copy(rs.arena.CtgSum[slot*w:slot*w+w], ctgSums)
	}
	rs.runCount++
}

// RunCount returns the number of runs currently held (after any DeWide
// compaction).
func (rs *RunSet) RunCount() int { return rs.runCount }

// Variant reports which heap-priming strategy this pair was built with.
func (rs *RunSet) Variant() Variant { return rs.variant }

// SafeCount returns the upper bound on runs this pair was sized for.
func (rs *RunSet) SafeCount() int { return rs.safeCount }

// Run returns the k-th run in accumulation (pre-heap) order.
func (rs *RunSet) Run(k int) Run { return rs.arena.Run[rs.off.runOff+k] }

// CtgSum returns the per-category sum row for the k-th run. It is nil
// for non-classification levels.
func (rs *RunSet) CtgSum(k int) []float64 {
	w := rs.arena.ctgWidth
	if w == 0 {
		return nil
	}
	base := (rs.off.runOff + k) * w
	return rs.arena.CtgSum[base : base+w]
}

// NodeTotal sums SCount and Sum across every held run — used by the
// "Σ slot (sCount,sum) == node total" invariant check in tests.
func (rs *RunSet) NodeTotal() (sCount uint32, sum float64) {
	for k := 0; k < rs.runCount; k++ {
		r := rs.Run(k)
		sCount += r.SCount
		sum += r.Sum
	}
	return
}

// DeWide subsamples the accumulated runs down to at most the arena's
// maxWidth, without replacement, using the arena's precomputed uniform
// draws keyed by original run slot. When runCount is already <= maxWidth
// it is the identity and changes nothing. The surviving runs are
// compacted to the front of the run
// (and, if present, ctgSum) region in ascending-draw order, so repeated
// calls with the same arena seed are exactly reproducible.
func (rs *RunSet) DeWide() int {
	max := rs.arena.maxWidth
	if rs.runCount <= max {
		return rs.runCount
	}

	n := rs.runCount
	for k := 0; k < n; k++ {
		rs.arena.Heap[rs.off.heapOff+k] = rheap.Pair{
			Key:  rs.arena.RvWide[rs.off.rvOff+k],
			Slot: uint32(k),
		}
	}
	rs.heapLen = n

	rs.heapLen = rheap.Depopulate(
		rs.arena.Heap[rs.off.heapOff:rs.off.heapOff+rs.heapLen],
		rs.arena.Out[rs.off.outOff:rs.off.outOff+max],
		rs.heapLen, max,
	)
	popped := max

	w := rs.arena.ctgWidth
	selRun := make([]Run, popped)
	var selCtg []float64
	if w > 0 {
		selCtg = make([]float64, popped*w)
	}
	for i := 0; i < popped; i++ {
		src := int(rs.arena.Out[rs.off.outOff+i])
		selRun[i] = rs.arena.Run[rs.off.runOff+src]
		if w > 0 {
			copy(selCtg[i*w:i*w+w], rs.arena.CtgSum[(rs.off.runOff+src)*w:(rs.off.runOff+src)*w+w])
		}
	}
	copy(rs.arena.Run[rs.off.runOff:rs.off.runOff+popped], selRun)
	if w > 0 {
		copy(rs.arena.CtgSum[rs.off.runOff*w:(rs.off.runOff+popped)*w], selCtg)
	}
	rs.runCount = popped
	rs.outLen = 0
	return rs.runCount
}

// HeapMean primes the heap for the numeric / regression case: key is the
// run's mean response, ascending.
func (rs *RunSet) HeapMean() {
	for k := 0; k < rs.runCount; k++ {
		r := rs.Run(k)
		mean := 0.0
		if r.SCount > 0 {
			mean = r.Sum / float64(r.SCount)
		}
		rs.arena.Heap[rs.off.heapOff+k] = rheap.Pair{Key: mean, Slot: uint32(k)}
	}
	rs.heapLen = rs.runCount
}

// HeapBinary primes the heap for the two-category classification case:
// key is the run's share of weight in category 1, ascending.
func (rs *RunSet) HeapBinary() {
	for k := 0; k < rs.runCount; k++ {
		r := rs.Run(k)
		ctg := rs.CtgSum(k)
		key := 0.0
		if r.Sum > 0 {
			key = ctg[1] / r.Sum
		}
		rs.arena.Heap[rs.off.heapOff+k] = rheap.Pair{Key: key, Slot: uint32(k)}
	}
	rs.heapLen = rs.runCount
}

// HeapRandom primes the heap with the arena's uniform draws, the same
// keys DeWide uses for its subsampling (DeWide primes its heap itself
// and does not call HeapRandom).
func (rs *RunSet) HeapRandom() {
	for k := 0; k < rs.runCount; k++ {
		rs.arena.Heap[rs.off.heapOff+k] = rheap.Pair{Key: rs.arena.RvWide[rs.off.rvOff+k], Slot: uint32(k)}
	}
	rs.heapLen = rs.runCount
}

// DePop drains pop entries (0 means all) from the primed heap into the
// out-slot list in ascending-key order, returning the count actually
// drained. Call Bounds/LHSlots afterward to read the result back.
func (rs *RunSet) DePop(pop int) int {
	before := rs.heapLen
	rs.heapLen = rheap.Depopulate(
		rs.arena.Heap[rs.off.heapOff:rs.off.heapOff+rs.heapLen],
		rs.arena.Out[rs.off.outOff:rs.off.outOff+rs.outCap()],
		rs.heapLen, pop,
	)
	rs.outLen = before - rs.heapLen
	return rs.outLen
}

func (rs *RunSet) outCap() int { return rs.outCapVal }

// EffCount is the number of runs currently eligible for subset
// enumeration: runCount after any DeWide compaction.
func (rs *RunSet) EffCount() int { return rs.runCount }

// LHBits assigns, for the small-cardinality exhaustive-enumeration case,
// bit k of mask (k in [0, EffCount()-1)) to LH when set and RH when
// clear; the top run (slot EffCount()-1) always rides along with
// whichever side the mask implies it should by omission, keeping the
// mask space at 2^(EffCount()-1) rather than 2^EffCount and avoiding
// enumerating every subset's complement twice. It accumulates and
// returns the LH run count, row-index count, and weighted sample count.
func (rs *RunSet) LHBits(mask uint32) (runsLH int, lhIdxCount uint32, lhSampCt uint32) {
	for k := 0; k < rs.EffCount()-1; k++ {
		if mask&(1<<uint(k)) == 0 {
			continue
		}
		r := rs.Run(k)
		runsLH++
		lhIdxCount += r.End - r.Start
		lhSampCt += r.SCount
	}
	rs.runsLH, rs.lhIdxCount, rs.lhSampCt = runsLH, lhIdxCount, lhSampCt
	return
}

// LHSlots assigns the first cut+1 entries of the most recent DePop
// ordering to LH (everything else to RH) — the heap-ordered-cut case
// used for factor predictors under regression and binary classification.
func (rs *RunSet) LHSlots(cut int) (runsLH int, lhIdxCount uint32, lhSampCt uint32) {
	runsLH = cut + 1
	for i := 0; i < runsLH; i++ {
		slot := int(rs.arena.Out[rs.off.outOff+i])
		r := rs.Run(slot)
		lhIdxCount += r.End - r.Start
		lhSampCt += r.SCount
	}
	rs.runsLH, rs.lhIdxCount, rs.lhSampCt = runsLH, lhIdxCount, lhSampCt
	return
}

// OutSlot returns the original run slot assigned to the outSlot-th
// position of the most recent DePop/DeWide ordering.
func (rs *RunSet) OutSlot(outSlot int) int {
	return int(rs.arena.Out[rs.off.outOff+outSlot])
}

// Bounds returns the row-index span and representative rank of the run
// assigned to the outSlot-th position of the most recent DePop ordering
// — the indirection the split driver uses to recover actual row ranges
// from a heap-sorted cut point.
func (rs *RunSet) Bounds(outSlot int) (start, end, rank uint32) {
	slot := rs.arena.Out[rs.off.outOff+outSlot]
	r := rs.Run(int(slot))
	return r.Start, r.End, r.Rank
}
