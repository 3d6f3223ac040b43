// Package tree builds one decision tree: draws an in-bag sample, splits
// level by level until a halting rule fires, and emits a flat,
// append-ready node array for the forest to splice in.
package tree

import (
	"math/rand"

	"github.com/decisionpatterns/arborist/predblock"
	"github.com/decisionpatterns/arborist/rowrank"
	"github.com/decisionpatterns/arborist/split"
)

// Params are the per-tree halting and bagging rules.
type Params struct {
	NSamp           int
	WithReplacement bool
	MinNode         int
	MinRatio        float64 // LH/RH size ratio floor; 0 disables the check
	TotLevels       int     // 0 means unbounded
}

// Node is one tree node in build order (root first, breadth-first).
// A leaf has PredIdx == -1.
type Node struct {
	PredIdx   int32
	IsFactor  bool
	SplitVal  float64
	FacBitOff uint32 // offset into the tree-local FacSplit words, valid iff IsFactor
	LH, RH    int32  // child indices into this tree's Nodes, -1 for leaves
}

// Built is one tree's output, still in tree-local index space; Forest.Append
// translates it into the global arrays.
type Built struct {
	Nodes      []Node
	FacSplit   []uint64
	SCount     []uint32  // per node, total in-bag sample count reaching it
	LeafVal    []float64 // per node, regression leaf mean (0 for branches)
	LeafWeight []float64 // per node * ctgWidth, classification per-category weight
	InBagRows  map[uint32]uint32 // row -> in-bag multiplicity, for the bag mask
	PredInfo   []float64         // per predictor, this tree's accumulated split-gain importance
}

type nodeRows = split.NodeRows

// Build grows one tree against the given predictor block, rank table and
// response, using rng for both the bagging draw and any randomized split
// decisions (wide-factor subsampling, predictor sampling).
func Build(block *predblock.Block, rr *rowrank.RowRank, resp split.Response, splitCfg split.Config, p Params, rng *rand.Rand) *Built {
	bag := drawBag(block.NRow(), p.NSamp, p.WithReplacement, rng)

	b := &Built{InBagRows: bag, PredInfo: make([]float64, block.NPred())}
	root := rowsFromBag(bag)
	queue := []queued{{rows: root, level: 0}}

	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]

		idx := int32(len(b.Nodes))
		b.Nodes = append(b.Nodes, Node{PredIdx: -1, LH: -1, RH: -1})
		b.SCount = append(b.SCount, 0)
		b.LeafVal = append(b.LeafVal, 0)
		if resp.CtgWidth > 0 {
			b.LeafWeight = append(b.LeafWeight, make([]float64, resp.CtgWidth)...)
		}

		b.SCount[idx] = totalSCount(cur.rows)

		if halt(cur, p) {
			makeLeaf(b, idx, cur.rows, resp)
			continue
		}

		cand, ok := split.Find(block, rr, cur.rows, resp, splitCfg, rng)
		if !ok {
			makeLeaf(b, idx, cur.rows, resp)
			continue
		}

		lhRows, rhRows := partition(block, cur.rows, cand)
		if !ratioOK(len(lhRows.Rows), len(rhRows.Rows), p.MinRatio) {
			makeLeaf(b, idx, cur.rows, resp)
			continue
		}

		b.PredInfo[cand.PredIdx] += cand.Info

		n := &b.Nodes[idx]
		n.PredIdx = int32(cand.PredIdx)
		n.IsFactor = cand.IsFactor
		n.SplitVal = cand.SplitVal
		if cand.IsFactor {
			n.FacBitOff = uint32(len(b.FacSplit))
			b.FacSplit = append(b.FacSplit, cand.Bitset...)
		}

		lhIdx := int32(len(b.Nodes)) + int32(len(queue))
		rhIdx := lhIdx + 1
		n.LH, n.RH = lhIdx, rhIdx
		queue = append(queue, queued{rows: lhRows, level: cur.level + 1}, queued{rows: rhRows, level: cur.level + 1})
	}
	return b
}

type queued struct {
	rows  nodeRows
	level int
}

func halt(cur queued, p Params) bool {
	if len(cur.rows.Rows) < 2*maxInt(p.MinNode, 1) {
		return true
	}
	if p.TotLevels > 0 && cur.level >= p.TotLevels {
		return true
	}
	return false
}

func ratioOK(lh, rh int, minRatio float64) bool {
	if lh == 0 || rh == 0 {
		return false
	}
	if minRatio <= 0 {
		return true
	}
	ratio := float64(lh) / float64(rh)
	if ratio > 1 {
		ratio = 1 / ratio
	}
	return ratio >= minRatio
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}

func makeLeaf(b *Built, idx int32, rows nodeRows, resp split.Response) {
	if resp.CtgWidth > 0 {
		base := int(idx) * resp.CtgWidth
		for i, row := range rows.Rows {
			b.LeafWeight[base+int(resp.YCtg[row])] += float64(rows.SCount[i])
		}
		return
	}
	var sCount uint32
	var sum float64
	for i, row := range rows.Rows {
		sCount += rows.SCount[i]
		sum += float64(rows.SCount[i]) * resp.Y[row]
	}
	if sCount > 0 {
		b.LeafVal[idx] = sum / float64(sCount)
	}
}

func totalSCount(rows nodeRows) uint32 {
	var sCount uint32
	for _, c := range rows.SCount {
		sCount += c
	}
	return sCount
}

func partition(block *predblock.Block, rows nodeRows, cand split.Candidate) (lh, rh nodeRows) {
	for i, row := range rows.Rows {
		goesLH := false
		if cand.IsFactor {
			col, _ := block.FacCol(cand.PredIdx)
			lvl := col[row]
			goesLH = lvl < uint32(len(cand.Bitset))*64 && cand.Bitset[lvl/64]&(1<<uint(lvl%64)) != 0
		} else {
			col, _ := block.NumCol(cand.PredIdx)
			goesLH = col[row] <= cand.SplitVal
		}
		if goesLH {
			lh.Rows = append(lh.Rows, row)
			lh.SCount = append(lh.SCount, rows.SCount[i])
		} else {
			rh.Rows = append(rh.Rows, row)
			rh.SCount = append(rh.SCount, rows.SCount[i])
		}
	}
	return
}

// drawBag samples NSamp rows from [0, nRow) with or without replacement,
// returning each sampled row's in-bag multiplicity.
func drawBag(nRow, nSamp int, withReplacement bool, rng *rand.Rand) map[uint32]uint32 {
	bag := make(map[uint32]uint32, nSamp)
	if withReplacement {
		for i := 0; i < nSamp; i++ {
			row := uint32(rng.Intn(nRow))
			bag[row]++
		}
		return bag
	}
	perm := rng.Perm(nRow)
	if nSamp > nRow {
		nSamp = nRow
	}
	for _, row := range perm[:nSamp] {
		bag[uint32(row)] = 1
	}
	return bag
}

func rowsFromBag(bag map[uint32]uint32) nodeRows {
	var nr nodeRows
	for row, c := range bag {
		nr.Rows = append(nr.Rows, row)
		nr.SCount = append(nr.SCount, c)
	}
	return nr
}
