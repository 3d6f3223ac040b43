// Package rowrank computes, for each numeric predictor, a permutation of
// row indices sorted by that predictor's value, plus its inverse.
// Built once per training session by Build; it is not persisted, so each
// session recomputes it from the numeric columns.
package rowrank

import (
	"sort"

	"github.com/decisionpatterns/arborist/internal/rferr"
)

// Pair is one (row, rank) entry in a predictor's rank order.
type Pair struct {
	Row  uint32
	Rank uint32
}

// Rank holds the rank order and its inverse for one numeric predictor.
type Rank struct {
	// Ranks[i] is the i-th (row, rank) pair in ascending value order;
	// tied rows carry the same Rank, occupy contiguous positions and keep
	// their original row order (dense, stable rank).
	Ranks []Pair
	// Inv[row] is the position of that row within Ranks; Inv is the
	// inverse permutation of Ranks.
	Inv []uint32
}

// RowRank is the full per-session rank table: one Rank per numeric
// predictor.
type RowRank struct {
	nRow int
	cols []*Rank
}

// Build computes RowRank for every numeric predictor column in feNum
// (column-major, feNum[p] has length nRow). Sorting is stable so ties
// keep input row order and share contiguous rank positions (dense rank).
func Build(feNum [][]float64, nRow int) (*RowRank, error) {
	if nRow == 0 {
		return nil, rferr.New(rferr.ArityError, "rowrank: nRow == 0")
	}

	cols := make([]*Rank, len(feNum))
	for p, col := range feNum {
		if len(col) != nRow {
			return nil, rferr.Newf(rferr.Internal, "rowrank: predictor %d has %d rows, want %d", p, len(col), nRow)
		}
		cols[p] = buildOne(col, nRow)
	}
	return &RowRank{nRow: nRow, cols: cols}, nil
}

func buildOne(col []float64, nRow int) *Rank {
	order := make([]int, nRow)
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(i, j int) bool {
		return col[order[i]] < col[order[j]]
	})

	ranks := make([]Pair, nRow)
	inv := make([]uint32, nRow)
	var dense uint32
	for pos, row := range order {
		if pos > 0 && col[row] != col[order[pos-1]] {
			dense++
		}
		ranks[pos] = Pair{Row: uint32(row), Rank: dense}
		inv[row] = uint32(pos)
	}
	return &Rank{Ranks: ranks, Inv: inv}
}

// NRow returns the row count this RowRank was built for.
func (rr *RowRank) NRow() int { return rr.nRow }

// NumPred returns the number of numeric predictors tracked.
func (rr *RowRank) NumPred() int { return len(rr.cols) }

// Col returns the rank table for numeric predictor p.
func (rr *RowRank) Col(p int) *Rank { return rr.cols[p] }

// RowAtRank returns the original row index at rank position k for
// predictor p.
func (rr *RowRank) RowAtRank(p, k int) uint32 { return rr.cols[p].Ranks[k].Row }

// RankOfRow returns the rank position of row for predictor p (the inverse
// permutation lookup).
func (rr *RowRank) RankOfRow(p int, row uint32) uint32 { return rr.cols[p].Inv[row] }

// IsBijection reports whether the rank table for predictor p is a valid
// permutation of [0, nRow) — used by property tests.
func (r *Rank) IsBijection(nRow int) bool {
	if len(r.Ranks) != nRow || len(r.Inv) != nRow {
		return false
	}
	seen := make([]bool, nRow)
	for _, pr := range r.Ranks {
		if int(pr.Row) >= nRow || seen[pr.Row] {
			return false
		}
		seen[pr.Row] = true
	}
	for i := range seen {
		if !seen[i] {
			return false
		}
	}
	return true
}
