package forest

import (
	"context"
	"math/rand"

	"github.com/decisionpatterns/arborist/bitmatrix"
	"github.com/decisionpatterns/arborist/internal/rferr"
	"github.com/decisionpatterns/arborist/internal/rfparallel"
	"github.com/decisionpatterns/arborist/predblock"
	"github.com/decisionpatterns/arborist/rowrank"
	"github.com/decisionpatterns/arborist/split"
	"github.com/decisionpatterns/arborist/tree"
)

// TrainInput bundles everything one training session needs: the
// immutable predictor view, its rank table, the per-row response, the
// split and per-tree growth configuration, and the session-level
// hyperparameters that govern parallelism and reproducibility.
type TrainInput struct {
	Block   *predblock.Block
	RowRank *rowrank.RowRank
	Resp    split.Response

	SplitCfg split.Config
	TreeCfg  tree.Params

	NTree      int
	TrainBlock int // trees grown per parallel block; 0 grows all nTree at once
	Workers    int // 0 lets rfparallel pick a GOMAXPROCS-derived default
	Seed       int64
}

// TrainOutput is a trained forest plus the in-bag bitmatrix recording
// which rows were sampled into which tree, needed for out-of-bag
// prediction and error estimation.
type TrainOutput struct {
	Forest *Forest
	InBag  *bitmatrix.Matrix // NRow x NTree, bit set iff that row was sampled into that tree's bag
}

// Train grows NTree trees in parallel blocks of TrainBlock (tree-block
// parallelism, spec's outer granularity) and splices each tree's nodes
// into the forest in tree-index order — deterministic regardless of
// which goroutine finished first, since the per-tree results land in a
// pre-sized slice before the sequential splice pass runs.
func Train(in TrainInput) (*TrainOutput, error) {
	if in.NTree <= 0 {
		return nil, rferr.New(rferr.ArityError, "forest: nTree == 0")
	}

	f := New(in.Block.NRow(), in.Block.NPred(), in.Resp.CtgWidth)
	results := make([]*tree.Built, in.NTree)

	blockSize := in.TrainBlock
	if blockSize <= 0 {
		blockSize = in.NTree
	}
	ctx := context.Background()
	for start := 0; start < in.NTree; start += blockSize {
		end := start + blockSize
		if end > in.NTree {
			end = in.NTree
		}
		n := end - start
		rfparallel.For(ctx, n, in.Workers, func(_ context.Context, i int) {
			treeIdx := start + i
			rng := rand.New(rand.NewSource(in.Seed + int64(treeIdx)))
			results[treeIdx] = tree.Build(in.Block, in.RowRank, in.Resp, in.SplitCfg, in.TreeCfg, rng)
		})
	}

	inBag := bitmatrix.New(in.Block.NRow(), in.NTree)
	for t, built := range results {
		f.Append(built)
		for row := range built.InBagRows {
			inBag.Set(int(row), t)
		}
		for p, v := range built.PredInfo {
			f.PredInfo[p] += v
		}
	}
	f.InBag = inBag
	return &TrainOutput{Forest: f, InBag: inBag}, nil
}
