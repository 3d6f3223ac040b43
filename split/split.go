// Package split implements the per-level argmax split search: for each
// live node and each sampled predictor, find the best left/right
// partition of that node's rows, scored by variance reduction
// (regression) or Gini gain (classification).
package split

import (
	"context"
	"math/rand"
	"sort"

	"github.com/decisionpatterns/arborist/internal/rfparallel"
	"github.com/decisionpatterns/arborist/predblock"
	"github.com/decisionpatterns/arborist/rowrank"
	"github.com/decisionpatterns/arborist/runset"
)

// Config holds the knobs that govern predictor sampling and factor
// handling for one training session.
type Config struct {
	// SmallFactorCeiling is the cardinality at or below which a factor
	// predictor's levels are collapsed into runs and every non-empty LH
	// subset is enumerated exhaustively.
	SmallFactorCeiling int
	// MaxWidth caps the number of runs considered for a wide
	// multi-class factor predictor; runs beyond it are subsampled by
	// runset.RunSet.DeWide.
	MaxWidth int
	// PredFixed, if > 0, is the fixed number of predictors sampled per
	// node. If 0, PredProb (a per-predictor Bernoulli inclusion
	// probability) governs sampling instead.
	PredFixed int
	PredProb  []float64
	// RegMono holds, per predictor, a monotonicity constraint in
	// {-1, 0, +1}; regression splits whose LH mean violates the sign
	// are discarded. Ignored for classification.
	RegMono []int8
	// Workers bounds the (node, predictor) pair fan-out within one
	// level. 0 lets rfparallel pick a GOMAXPROCS-derived default.
	Workers int
}

// NodeRows is the row set owned by one live node: original row indices
// and their per-row in-bag sample count (multiplicities from bagging).
type NodeRows struct {
	Rows   []uint32
	SCount []uint32
}

// Candidate is the winning split for one (node, predictor) pair.
type Candidate struct {
	PredIdx    int
	IsFactor   bool
	SplitVal   float64  // numeric predictor: the cut value (<= goes LH)
	Bitset     []uint64 // factor predictor: levels going LH
	LHIdxCount uint32
	LHSampCt   uint32
	Info       float64 // gain/variance-reduction score, higher is better
}

// Response carries the per-row target values for one tree's training
// pass: exactly one of Y (regression) or (YCtg, CtgWidth) (classification)
// is populated.
type Response struct {
	Y        []float64
	YCtg     []uint32
	CtgWidth int
}

func (r Response) isClassification() bool { return r.CtgWidth > 0 }

// Find searches every sampled predictor for node and returns the
// argmax split, or ok=false if no predictor yields a valid partition
// (e.g. every candidate is a degenerate singleton run). Predictors fan
// out across rfparallel.For's bounded workers (each pair writing
// into a pre-sized per-predictor slot, mirroring forest.Train's
// tree-index-keyed splice); the argmax reduction then runs sequentially
// over the completed slots.
func Find(block *predblock.Block, rr *rowrank.RowRank, node NodeRows, resp Response, cfg Config, rng *rand.Rand) (best Candidate, ok bool) {
	best.Info = -1
	preds := samplePredictors(block.NPred(), cfg, rng)
	if len(preds) == 0 {
		return best, false
	}

	// Factor splits draw randomness (DeWide subsampling); math/rand.Rand
	// is not safe for concurrent use, so each pair gets its own
	// deterministically-seeded child rng, drawn sequentially up front.
	seeds := make([]int64, len(preds))
	for i := range seeds {
		seeds[i] = rng.Int63()
	}

	type slot struct {
		cand  Candidate
		found bool
	}
	results := make([]slot, len(preds))
	rfparallel.For(context.Background(), len(preds), cfg.Workers, func(_ context.Context, i int) {
		p := preds[i]
		if block.IsFactor(p) {
			childRng := rand.New(rand.NewSource(seeds[i]))
			results[i].cand, results[i].found = findFactorSplit(block, rr, node, resp, cfg, p, childRng)
		} else {
			results[i].cand, results[i].found = findNumericSplit(block, rr, node, resp, cfg, p)
		}
	})

	for _, r := range results {
		if r.found && r.cand.Info > best.Info {
			best = r.cand
			ok = true
		}
	}
	return best, ok
}

func samplePredictors(nPred int, cfg Config, rng *rand.Rand) []int {
	if cfg.PredFixed > 0 {
		all := make([]int, nPred)
		for i := range all {
			all[i] = i
		}
		rng.Shuffle(nPred, func(i, j int) { all[i], all[j] = all[j], all[i] })
		k := cfg.PredFixed
		if k > nPred {
			k = nPred
		}
		return all[:k]
	}
	var chosen []int
	for p := 0; p < nPred; p++ {
		prob := 1.0
		if p < len(cfg.PredProb) {
			prob = cfg.PredProb[p]
		}
		if rng.Float64() < prob {
			chosen = append(chosen, p)
		}
	}
	return chosen
}

// findNumericSplit walks the node's rows in the predictor's rank order
// and sweeps rank boundaries, maintaining a running LH (sCount, sum)
// and (for classification) LH category sums.
func findNumericSplit(block *predblock.Block, rr *rowrank.RowRank, node NodeRows, resp Response, cfg Config, p int) (Candidate, bool) {
	numCol := p - block.NumFirst()
	type ranked struct {
		row  uint32
		rank uint32
	}
	ord := make([]ranked, len(node.Rows))
	rowIdx := make(map[uint32]int, len(node.Rows))
	for i, row := range node.Rows {
		ord[i] = ranked{row: row, rank: rr.RankOfRow(numCol, row)}
		rowIdx[row] = i
	}
	if len(ord) < 2 {
		return Candidate{}, false
	}
	sort.Slice(ord, func(i, j int) bool { return ord[i].rank < ord[j].rank })

	col, err := block.NumCol(p)
	if err != nil {
		return Candidate{}, false
	}

	totalSCount, totalSum, ctgWidth := nodeTotals(node, resp)
	if totalSCount == 0 {
		return Candidate{}, false
	}

	var lhSCount uint32
	var lhSum float64
	lhCtg := make([]float64, ctgWidth)
	ctgTotal := make([]float64, ctgWidth)
	if resp.isClassification() {
		for i, row := range node.Rows {
			ctgTotal[resp.YCtg[row]] += float64(node.SCount[i])
		}
	}

	best := Candidate{PredIdx: p, Info: -1}
	found := false
	for k := 0; k < len(ord)-1; k++ {
		i := rowIdx[ord[k].row]
		sc := node.SCount[i]
		lhSCount += sc
		if resp.isClassification() {
			lhCtg[resp.YCtg[ord[k].row]] += float64(sc)
		} else {
			lhSum += float64(sc) * resp.Y[ord[k].row]
		}
		if col[ord[k].row] == col[ord[k+1].row] {
			continue // never split inside a tie block
		}
		rhSCount := totalSCount - lhSCount
		if lhSCount == 0 || rhSCount == 0 {
			continue
		}

		var info float64
		if resp.isClassification() {
			info = giniGain(lhCtg, ctgTotal, lhSCount, totalSCount)
		} else {
			rhSum := totalSum - lhSum
			info = varianceReduction(lhSum, lhSCount, rhSum, rhSCount, totalSum, totalSCount)
			if mono := monoSign(cfg, p); mono != 0 {
				lhMean := lhSum / float64(lhSCount)
				rhMean := rhSum / float64(rhSCount)
				if float64(mono)*(rhMean-lhMean) < 0 {
					continue
				}
			}
		}
		if info > best.Info {
			best = Candidate{
				PredIdx:    p,
				SplitVal:   (col[ord[k].row] + col[ord[k+1].row]) / 2,
				LHIdxCount: uint32(k + 1),
				LHSampCt:   lhSCount,
				Info:       info,
			}
			found = true
		}
	}
	return best, found
}

func monoSign(cfg Config, p int) int8 {
	if p < len(cfg.RegMono) {
		return cfg.RegMono[p]
	}
	return 0
}

func nodeTotals(node NodeRows, resp Response) (sCount uint32, sum float64, ctgWidth int) {
	ctgWidth = resp.CtgWidth
	for i, row := range node.Rows {
		sCount += node.SCount[i]
		if !resp.isClassification() {
			sum += float64(node.SCount[i]) * resp.Y[row]
		}
	}
	return
}

// findFactorSplit collapses the node's rows into per-level runs, then
// resolves the partition by whichever strategy the run count calls for.
func findFactorSplit(block *predblock.Block, rr *rowrank.RowRank, node NodeRows, resp Response, cfg Config, p int, rng *rand.Rand) (Candidate, bool) {
	card, err := block.FacCard(p)
	if err != nil {
		return Candidate{}, false
	}
	facCol, err := block.FacCol(p)
	if err != nil {
		return Candidate{}, false
	}

	runs, ctgSums, totalSCount, totalSum := collapseRuns(node, resp, facCol, card)
	if len(runs) <= 1 {
		return Candidate{}, false // singleton run: elided from consideration
	}

	spec := []runset.PairSpec{{SafeCount: len(runs), Variant: variantFor(resp, len(runs), cfg.MaxWidth)}}
	arena, sets := runset.BuildArena(spec, resp.CtgWidth, cfg.MaxWidth, rng)
	_ = arena
	rs := sets[0]
	for i, r := range runs {
		var ctg []float64
		if resp.isClassification() {
			ctg = ctgSums[i]
		}
		rs.Accumulate(r, ctg)
	}

	switch {
	case card <= cfg.SmallFactorCeiling:
		return enumerateSubsets(rs, p, card, totalSCount, totalSum, resp)
	case resp.CtgWidth == 2 || !resp.isClassification():
		if resp.isClassification() {
			rs.HeapBinary()
		} else {
			rs.HeapMean()
		}
		rs.DePop(0)
		return scanSlotCuts(rs, p, card, totalSCount, totalSum, resp)
	default:
		rs.DeWide()
		return enumerateSubsets(rs, p, card, totalSCount, totalSum, resp)
	}
}

func variantFor(resp Response, runCount, maxWidth int) runset.Variant {
	switch {
	case !resp.isClassification():
		return runset.Regression
	case resp.CtgWidth == 2:
		return runset.BinaryCtg
	default:
		return runset.WideMultiCtg
	}
}

type factorBucket struct {
	sCount uint32
	sum    float64
	ctg    []float64
}

func collapseRuns(node NodeRows, resp Response, facCol []uint32, card int) (runs []runset.Run, ctgSums [][]float64, totalSCount uint32, totalSum float64) {
	buckets := make([]*factorBucket, card)
	for i, row := range node.Rows {
		lvl := facCol[row]
		if buckets[lvl] == nil {
			b := &factorBucket{}
			if resp.isClassification() {
				b.ctg = make([]float64, resp.CtgWidth)
			}
			buckets[lvl] = b
		}
		b := buckets[lvl]
		sc := node.SCount[i]
		b.sCount += sc
		totalSCount += sc
		if resp.isClassification() {
			b.ctg[resp.YCtg[row]] += float64(sc)
		} else {
			b.sum += float64(sc) * resp.Y[row]
			totalSum += float64(sc) * resp.Y[row]
		}
	}
	for lvl, b := range buckets {
		if b == nil || b.sCount == 0 {
			continue
		}
		sum := b.sum
		if resp.isClassification() {
			for _, v := range b.ctg {
				sum += v
			}
		}
		runs = append(runs, runset.Run{SCount: b.sCount, Sum: sum, Level: uint32(lvl)})
		if resp.isClassification() {
			ctgSums = append(ctgSums, b.ctg)
		}
	}
	return
}

func enumerateSubsets(rs *runset.RunSet, p, card int, totalSCount uint32, totalSum float64, resp Response) (Candidate, bool) {
	n := rs.EffCount()
	if n < 2 {
		return Candidate{}, false
	}
	best := Candidate{PredIdx: p, IsFactor: true, Info: -1}
	found := false
	nMasks := uint32(1) << uint(n-1)
	for mask := uint32(1); mask < nMasks; mask++ {
		runsLH, lhIdxCount, lhSampCt := rs.LHBits(mask)
		if runsLH == 0 || lhSampCt == 0 || lhSampCt == totalSCount {
			continue
		}
		info := scoreLHMask(rs, mask, n, totalSCount, totalSum, resp)
		if info > best.Info {
			best = Candidate{
				PredIdx:    p,
				IsFactor:   true,
				Bitset:     maskToBitset(rs, mask, n, card),
				LHIdxCount: lhIdxCount,
				LHSampCt:   lhSampCt,
				Info:       info,
			}
			found = true
		}
	}
	return best, found
}

func scanSlotCuts(rs *runset.RunSet, p, card int, totalSCount uint32, totalSum float64, resp Response) (Candidate, bool) {
	n := rs.EffCount()
	if n < 2 {
		return Candidate{}, false
	}
	best := Candidate{PredIdx: p, IsFactor: true, Info: -1}
	found := false
	for cut := 0; cut <= n-2; cut++ {
		runsLH, lhIdxCount, lhSampCt := rs.LHSlots(cut)
		if lhSampCt == 0 || lhSampCt == totalSCount {
			continue
		}
		info := scoreLHSlots(rs, runsLH, totalSCount, totalSum, resp)
		if info > best.Info {
			best = Candidate{
				PredIdx:    p,
				IsFactor:   true,
				Bitset:     slotsToBitset(rs, runsLH, card),
				LHIdxCount: lhIdxCount,
				LHSampCt:   lhSampCt,
				Info:       info,
			}
			found = true
		}
	}
	return best, found
}

func scoreLHMask(rs *runset.RunSet, mask uint32, n int, totalSCount uint32, totalSum float64, resp Response) float64 {
	var lhSCount uint32
	var lhSum float64
	lhCtg := make([]float64, resp.CtgWidth)
	ctgTotal := make([]float64, resp.CtgWidth)
	for k := 0; k < n; k++ {
		r := rs.Run(k)
		if resp.isClassification() {
			ctg := rs.CtgSum(k)
			for c := range ctg {
				ctgTotal[c] += ctg[c]
			}
			if k < n-1 && mask&(1<<uint(k)) != 0 {
				for c := range ctg {
					lhCtg[c] += ctg[c]
				}
				lhSCount += r.SCount
			}
		} else {
			if k < n-1 && mask&(1<<uint(k)) != 0 {
				lhSum += r.Sum
				lhSCount += r.SCount
			}
		}
	}
	if resp.isClassification() {
		return giniGain(lhCtg, ctgTotal, lhSCount, totalSCount)
	}
	rhSum := totalSum - lhSum
	rhSCount := totalSCount - lhSCount
	return varianceReduction(lhSum, lhSCount, rhSum, rhSCount, totalSum, totalSCount)
}

func scoreLHSlots(rs *runset.RunSet, runsLH int, totalSCount uint32, totalSum float64, resp Response) float64 {
	var lhSCount uint32
	var lhSum float64
	lhCtg := make([]float64, resp.CtgWidth)
	ctgTotal := make([]float64, resp.CtgWidth)
	for k := 0; k < rs.EffCount(); k++ {
		if resp.isClassification() {
			ctg := rs.CtgSum(k)
			for c := range ctg {
				ctgTotal[c] += ctg[c]
			}
		}
	}
	for i := 0; i < runsLH; i++ {
		slot := rs.OutSlot(i)
		r := rs.Run(slot)
		lhSCount += r.SCount
		if resp.isClassification() {
			ctg := rs.CtgSum(slot)
			for c := range ctg {
				lhCtg[c] += ctg[c]
			}
		} else {
			lhSum += r.Sum
		}
	}
	if resp.isClassification() {
		return giniGain(lhCtg, ctgTotal, lhSCount, totalSCount)
	}
	rhSum := totalSum - lhSum
	rhSCount := totalSCount - lhSCount
	return varianceReduction(lhSum, lhSCount, rhSum, rhSCount, totalSum, totalSCount)
}

func giniGain(lhCtg, total []float64, lhSCount, totalSCount uint32) float64 {
	if lhSCount == 0 || totalSCount == lhSCount {
		return -1
	}
	var rhCtg = make([]float64, len(total))
	for c := range total {
		rhCtg[c] = total[c] - lhCtg[c]
	}
	rhSCount := totalSCount - lhSCount
	parent := gini(total, float64(totalSCount))
	lh := gini(lhCtg, float64(lhSCount))
	rh := gini(rhCtg, float64(rhSCount))
	wLH := float64(lhSCount) / float64(totalSCount)
	wRH := float64(rhSCount) / float64(totalSCount)
	return parent - wLH*lh - wRH*rh
}

func gini(ctg []float64, total float64) float64 {
	if total == 0 {
		return 0
	}
	g := 1.0
	for _, c := range ctg {
		p := c / total
		g -= p * p
	}
	return g
}

func varianceReduction(lhSum float64, lhSCount uint32, rhSum float64, rhSCount uint32, totalSum float64, totalSCount uint32) float64 {
	if lhSCount == 0 || rhSCount == 0 {
		return -1
	}
	parentMean := totalSum / float64(totalSCount)
	lhMean := lhSum / float64(lhSCount)
	rhMean := rhSum / float64(rhSCount)
	// Reduction in weighted squared-error, using sums of values rather
	// than sums of squares (sufficient because only relative ordering
	// of candidate splits matters, and all share the same parent term).
	return float64(lhSCount)*lhMean*lhMean + float64(rhSCount)*rhMean*rhMean - float64(totalSCount)*parentMean*parentMean
}

// maskToBitset translates a run-index subset mask into a bitset over raw
// factor level codes (via each run's Level), which is what the tree
// builder needs at predict time to test a row's level directly.
func maskToBitset(rs *runset.RunSet, mask uint32, n, card int) []uint64 {
	words := (card + 63) / 64
	bits := make([]uint64, words)
	for k := 0; k < n-1; k++ {
		if mask&(1<<uint(k)) != 0 {
			lvl := rs.Run(k).Level
			bits[lvl/64] |= 1 << uint(lvl%64)
		}
	}
	return bits
}

func slotsToBitset(rs *runset.RunSet, runsLH, card int) []uint64 {
	words := (card + 63) / 64
	bits := make([]uint64, words)
	for i := 0; i < runsLH; i++ {
		slot := rs.OutSlot(i)
		lvl := rs.Run(slot).Level
		bits[lvl/64] |= 1 << uint(lvl%64)
	}
	return bits
}
