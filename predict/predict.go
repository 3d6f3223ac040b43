// Package predict implements the prediction driver: walks rows through a
// trained forest in fixed-size blocks, aggregating votes or leaf means
// into regression, classification, and quantile outputs.
package predict

import (
	"context"
	"math"
	"sort"

	"github.com/decisionpatterns/arborist/bitmatrix"
	"github.com/decisionpatterns/arborist/forest"
	"github.com/decisionpatterns/arborist/internal/rfparallel"
	"github.com/decisionpatterns/arborist/predblock"
)

// RowBlockDefault is the row-batch size used when a caller doesn't
// override it; chosen to keep a block's working set cache-resident.
const RowBlockDefault = 2048

// Input bundles everything one prediction pass needs.
type Input struct {
	Forest   *forest.Forest
	Block    *predblock.Block
	Bag      *bitmatrix.Matrix // optional: row x tree, set bit suppresses that tree's vote for that row (out-of-bag scoring)
	RowBlock int               // 0 uses RowBlockDefault
	QuantVec []float64         // regression only: requested quantile levels in [0, 1]
	YRanked  []float64         // regression only: sorted unique response values backing QuantVec buckets
	QBin     int               // regression only: number of rank buckets for quantile aggregation
	Workers  int               // bounds row-block fan-out; 0 lets rfparallel pick a GOMAXPROCS-derived default
}

func (in Input) rowBlock() int {
	if in.RowBlock > 0 {
		return in.RowBlock
	}
	return RowBlockDefault
}

// rowBlocks splits [0, nRow) into blockSize-wide row blocks for
// rfparallel.For to fan out across — one For index per block, each
// writing to disjoint rows of the output arrays.
func rowBlocks(nRow, blockSize int) [][2]int {
	var blocks [][2]int
	for start := 0; start < nRow; start += blockSize {
		end := start + blockSize
		if end > nRow {
			end = nRow
		}
		blocks = append(blocks, [2]int{start, end})
	}
	return blocks
}

// RegressionOutput is the result of Regression.
type RegressionOutput struct {
	YPred []float64
	QPred [][]float64 // per row, one value per QuantVec entry; nil unless QuantVec set
}

// ClassificationOutput is the result of Classification.
type ClassificationOutput struct {
	YPred  []uint32
	Census [][]uint32  // per row, per category vote count
	Prob   [][]float64 // per row, per category probability; nil unless the forest carries LeafWeight
	Conf   [][]uint32  // ctgWidth x ctgWidth confusion matrix; nil unless yTest supplied
	Error  []float64   // per true category, off-diagonal error rate; nil unless yTest supplied
}

// Output is the single return value of Predict: exactly one of Regression
// or Classification is populated, selected by the forest's CtgWidth.
type Output struct {
	Regression     *RegressionOutput
	Classification *ClassificationOutput
}

// Predict dispatches to Regression or Classification based on
// in.Forest.CtgWidth, wrapping whichever ran in an Output. yTest is only
// consulted for classification, to fill in a confusion matrix.
func Predict(in Input, yTest []uint32) (Output, error) {
	if in.Forest.CtgWidth == 0 {
		out, err := Regression(in)
		if err != nil {
			return Output{}, err
		}
		return Output{Regression: &out}, nil
	}
	out, err := Classification(in, in.Forest.CtgWidth, yTest)
	if err != nil {
		return Output{}, err
	}
	return Output{Classification: &out}, nil
}

// descend walks row through tree t starting at the forest's root for
// that tree, returning the leaf's global node index.
func descend(f *forest.Forest, block *predblock.Block, t int, row uint32) int {
	idx := int(f.Origin[t])
	for {
		n := f.Nodes[idx]
		if n.PredIdx == -1 {
			return idx
		}
		var goesLH bool
		if n.IsFactor {
			col, _ := block.FacCol(int(n.PredIdx))
			goesLH = f.IsFactorBitSet(n.FacBitOff, col[row])
		} else {
			col, _ := block.NumCol(int(n.PredIdx))
			goesLH = col[row] <= n.SplitVal
		}
		if goesLH {
			idx = int(n.LH)
		} else {
			idx = int(n.RH)
		}
	}
}

func suppressed(bag *bitmatrix.Matrix, row uint32, t int) bool {
	if bag == nil {
		return false
	}
	return bag.Get(int(row), t)
}

// Regression scores every row of in.Block as the mean leaf value across
// all contributing (non-suppressed) trees.
func Regression(in Input) (RegressionOutput, error) {
	f, block := in.Forest, in.Block
	nRow := block.NRow()
	out := RegressionOutput{YPred: make([]float64, nRow)}

	wantQuantiles := len(in.QuantVec) > 0 && len(in.YRanked) > 0 && in.QBin > 0
	if wantQuantiles {
		out.QPred = make([][]float64, nRow)
	}

	blocks := rowBlocks(nRow, in.rowBlock())
	rfparallel.For(context.Background(), len(blocks), in.Workers, func(_ context.Context, i int) {
		start, end := blocks[i][0], blocks[i][1]
		for row := start; row < end; row++ {
			var sum float64
			var n int
			var ranks []int
			for t := 0; t < f.NTree(); t++ {
				if suppressed(in.Bag, uint32(row), t) {
					continue
				}
				leafIdx := descend(f, block, t, uint32(row))
				sum += f.LeafVal[leafIdx]
				n++
				if wantQuantiles {
					ranks = append(ranks, bucketOf(f.LeafVal[leafIdx], in.YRanked, in.QBin))
				}
			}
			if n == 0 {
				continue // no contributing trees for this row; leave yPred at zero
			}
			out.YPred[row] = sum / float64(n)
			if wantQuantiles {
				out.QPred[row] = quantilesFromRanks(ranks, in.YRanked, in.QBin, in.QuantVec)
			}
		}
	})
	return out, nil
}

func bucketOf(val float64, yRanked []float64, qBin int) int {
	i := sort.SearchFloat64s(yRanked, val)
	if i >= len(yRanked) {
		i = len(yRanked) - 1
	}
	bucket := i * qBin / maxOne(len(yRanked))
	if bucket >= qBin {
		bucket = qBin - 1
	}
	return bucket
}

func maxOne(n int) int {
	if n < 1 {
		return 1
	}
	return n
}

// quantilesFromRanks buckets the contributing trees' leaf ranks into
// qBin equal-width bins, accumulates counts, then for each requested
// quantile returns the yRanked value at the cumulative-count threshold.
func quantilesFromRanks(ranks []int, yRanked []float64, qBin int, quantVec []float64) []float64 {
	counts := make([]int, qBin)
	for _, r := range ranks {
		counts[r]++
	}
	total := len(ranks)
	out := make([]float64, len(quantVec))
	for qi, q := range quantVec {
		threshold := q * float64(total)
		var cum int
		bin := qBin - 1
		for b, c := range counts {
			cum += c
			if float64(cum) >= threshold {
				bin = b
				break
			}
		}
		idx := bin * len(yRanked) / qBin
		if idx >= len(yRanked) {
			idx = len(yRanked) - 1
		}
		out[qi] = yRanked[idx]
	}
	return out
}

// JitterVote folds a fractional leaf score into a category vote: the
// floor contributes a whole vote to its own category and the fractional
// remainder is added on top, per row/category accumulator. It is the
// single shared implementation used by every classification scoring
// path so fractional vote semantics never drift between callers.
func JitterVote(votes []float64, val float64) {
	cat := int(math.Floor(val))
	if cat < 0 {
		cat = 0
	}
	if cat >= len(votes) {
		cat = len(votes) - 1
	}
	votes[cat] += 1 + (val - math.Floor(val))
}

// Classification scores every row by jittered leaf-score voting,
// optionally computing per-category probabilities (if the forest
// carries LeafWeight) and a confusion matrix (if yTest is supplied).
func Classification(in Input, ctgWidth int, yTest []uint32) (ClassificationOutput, error) {
	f, block := in.Forest, in.Block
	nRow := block.NRow()
	out := ClassificationOutput{
		YPred:  make([]uint32, nRow),
		Census: make([][]uint32, nRow),
	}
	hasWeights := len(f.LeafWeight) > 0
	if hasWeights {
		out.Prob = make([][]float64, nRow)
	}

	blocks := rowBlocks(nRow, in.rowBlock())
	rfparallel.For(context.Background(), len(blocks), in.Workers, func(_ context.Context, i int) {
		start, end := blocks[i][0], blocks[i][1]
		for row := start; row < end; row++ {
			votes := make([]float64, ctgWidth)
			census := make([]uint32, ctgWidth)
			prob := make([]float64, ctgWidth)
			var probTotal float64
			for t := 0; t < f.NTree(); t++ {
				if suppressed(in.Bag, uint32(row), t) {
					continue
				}
				leafIdx := descend(f, block, t, uint32(row))
				val := leafVotingScore(f, leafIdx, ctgWidth)
				JitterVote(votes, val)
				census[int(val)]++
				if hasWeights {
					base := leafIdx * ctgWidth
					for c := 0; c < ctgWidth; c++ {
						prob[c] += f.LeafWeight[base+c]
						probTotal += f.LeafWeight[base+c]
					}
				}
			}
			out.YPred[row] = argmaxCategory(votes)
			out.Census[row] = census
			if hasWeights && probTotal > 0 {
				for c := range prob {
					prob[c] /= probTotal
				}
				out.Prob[row] = prob
			}
		}
	})

	if yTest != nil {
		out.Conf, out.Error = confusionMatrix(out.YPred, yTest, ctgWidth)
	}
	return out, nil
}

// leafVotingScore picks the category the leaf's dominant weight favors,
// with a fractional component derived from the share of weight outside
// that category so
// JitterVote can break near-ties smoothly rather than always rounding
// to the same category.
func leafVotingScore(f *forest.Forest, leafIdx, ctgWidth int) float64 {
	base := leafIdx * ctgWidth
	if base+ctgWidth > len(f.LeafWeight) {
		return 0
	}
	best, total := 0, 0.0
	for c := 0; c < ctgWidth; c++ {
		total += f.LeafWeight[base+c]
		if f.LeafWeight[base+c] > f.LeafWeight[base+best] {
			best = c
		}
	}
	if total == 0 {
		return 0
	}
	frac := 1 - f.LeafWeight[base+best]/total
	return float64(best) + frac*0.999999 // keep strictly within [best, best+1)
}

func argmaxCategory(votes []float64) uint32 {
	best := 0
	for c := 1; c < len(votes); c++ {
		if votes[c] > votes[best] {
			best = c
		}
	}
	return uint32(best)
}

// confusionMatrix builds conf[c][p] += 1 for each row with true category
// c and predicted category p, and error[c] as its off-diagonal share.
func confusionMatrix(yPred []uint32, yTest []uint32, ctgWidth int) ([][]uint32, []float64) {
	conf := make([][]uint32, ctgWidth)
	for c := range conf {
		conf[c] = make([]uint32, ctgWidth)
	}
	for row, c := range yTest {
		conf[c][yPred[row]]++
	}
	errRate := make([]float64, ctgWidth)
	for c := range conf {
		var rowSum, offDiag uint32
		for p, v := range conf[c] {
			rowSum += v
			if p != c {
				offDiag += v
			}
		}
		if rowSum > 0 {
			errRate[c] = float64(offDiag) / float64(rowSum)
		}
	}
	return conf, errRate
}
