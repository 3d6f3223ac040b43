// Package forest owns the append-only global node arrays that back a
// trained ensemble: tree blocks splice their local node arrays in here
// once built, and gob encoding lets a trained Forest round-trip to disk.
package forest

import (
	"encoding/gob"
	"io"
	"sync"

	"github.com/decisionpatterns/arborist/bitmatrix"
	"github.com/decisionpatterns/arborist/internal/rferr"
	"github.com/decisionpatterns/arborist/tree"
)

// Node is one global, append-only tree node. A leaf has PredIdx == -1.
type Node struct {
	PredIdx   int32
	IsFactor  bool
	SplitVal  float64
	FacBitOff uint32 // absolute offset into FacSplit, valid iff IsFactor
	LH, RH    int32  // absolute indices into Nodes, -1 for leaves
}

// Forest is the full trained ensemble plus enough bookkeeping to
// reconstruct per-tree leaf payloads during prediction.
type Forest struct {
	Nodes    []Node
	Origin   []uint32 // per tree, index into Nodes where its root sits
	FacOff   []uint32 // per tree, index into FacSplit where its bitset words start
	FacSplit []uint64
	PredInfo []float64 // per predictor, accumulated split-gain importance

	NRow     int
	CtgWidth int // 0 for regression

	SCount     []uint32  // per node, in-bag sample count reaching it
	LeafVal    []float64 // per node, regression leaf mean
	LeafWeight []float64 // per node * CtgWidth, classification per-category weight

	InBag *bitmatrix.Matrix // NRow x nTree, bit set iff that row is in that tree's bag

	mu sync.Mutex
}

// New creates an empty forest sized for the given row count, predictor
// count and category width (0 for regression).
func New(nRow, nPred, ctgWidth int) *Forest {
	return &Forest{
		NRow:     nRow,
		CtgWidth: ctgWidth,
		PredInfo: make([]float64, nPred),
	}
}

// NTree returns the number of trees spliced in so far.
func (f *Forest) NTree() int { return len(f.Origin) }

// Append splices one built tree's local arrays into the forest's global
// arrays, recording its origin and fac-split offset. Safe to call
// concurrently from a tree-block worker pool; tree index order in
// Origin follows append order, not completion order (callers that need
// tree-index-stable output should append in a fixed order themselves).
func (f *Forest) Append(built *tree.Built) {
	f.mu.Lock()
	defer f.mu.Unlock()

	origin := uint32(len(f.Nodes))
	facOff := uint32(len(f.FacSplit))
	f.Origin = append(f.Origin, origin)
	f.FacOff = append(f.FacOff, facOff)

	for _, n := range built.Nodes {
		g := Node{
			PredIdx:  n.PredIdx,
			IsFactor: n.IsFactor,
			SplitVal: n.SplitVal,
		}
		if n.IsFactor {
			g.FacBitOff = facOff + n.FacBitOff
		}
		if n.LH >= 0 {
			g.LH = int32(origin) + n.LH
		} else {
			g.LH = -1
		}
		if n.RH >= 0 {
			g.RH = int32(origin) + n.RH
		} else {
			g.RH = -1
		}
		f.Nodes = append(f.Nodes, g)
	}
	f.FacSplit = append(f.FacSplit, built.FacSplit...)
	f.SCount = append(f.SCount, built.SCount...)
	if f.CtgWidth == 0 {
		f.LeafVal = append(f.LeafVal, built.LeafVal...)
	} else {
		f.LeafWeight = append(f.LeafWeight, built.LeafWeight...)
	}

}

// LeafPos returns the global node index for the leafIdx-th node of
// tree t — the index at which LeafVal/LeafWeight/SCount are valid.
func (f *Forest) LeafPos(t int, leafIdx int) int {
	return int(f.Origin[t]) + leafIdx
}

// IsFactorBitSet reports whether level lvl of a factor split is routed
// to LH, reading from the word at the split's FacBitOff.
func (f *Forest) IsFactorBitSet(bitOff uint32, lvl uint32) bool {
	word := f.FacSplit[int(bitOff)+int(lvl/64)]
	return word&(1<<uint(lvl%64)) != 0
}

// Save gob-encodes the forest to w.
func (f *Forest) Save(w io.Writer) error {
	enc := gob.NewEncoder(w)
	if err := enc.Encode(f.Nodes); err != nil {
		return rferr.Wrap(rferr.Internal, "forest: encode nodes", err)
	}
	if err := enc.Encode(f.Origin); err != nil {
		return rferr.Wrap(rferr.Internal, "forest: encode origin", err)
	}
	if err := enc.Encode(f.FacOff); err != nil {
		return rferr.Wrap(rferr.Internal, "forest: encode facOff", err)
	}
	if err := enc.Encode(f.FacSplit); err != nil {
		return rferr.Wrap(rferr.Internal, "forest: encode facSplit", err)
	}
	if err := enc.Encode(f.PredInfo); err != nil {
		return rferr.Wrap(rferr.Internal, "forest: encode predInfo", err)
	}
	if err := enc.Encode(f.NRow); err != nil {
		return rferr.Wrap(rferr.Internal, "forest: encode nRow", err)
	}
	if err := enc.Encode(f.CtgWidth); err != nil {
		return rferr.Wrap(rferr.Internal, "forest: encode ctgWidth", err)
	}
	if err := enc.Encode(f.SCount); err != nil {
		return rferr.Wrap(rferr.Internal, "forest: encode sCount", err)
	}
	if err := enc.Encode(f.LeafVal); err != nil {
		return rferr.Wrap(rferr.Internal, "forest: encode leafVal", err)
	}
	return enc.Encode(f.LeafWeight)
}

// Load gob-decodes a forest previously written by Save. The in-bag
// bitmatrix is not part of the wire format — it is session-scoped
// training state, not a predictable artifact — so callers that need to
// reproduce bagged-row suppression at predict time must supply it
// separately.
func Load(r io.Reader) (*Forest, error) {
	dec := gob.NewDecoder(r)
	f := &Forest{}
	fields := []interface{}{
		&f.Nodes, &f.Origin, &f.FacOff, &f.FacSplit, &f.PredInfo,
		&f.NRow, &f.CtgWidth, &f.SCount, &f.LeafVal, &f.LeafWeight,
	}
	for _, field := range fields {
		if err := dec.Decode(field); err != nil {
			return nil, rferr.Wrap(rferr.Internal, "forest: decode", err)
		}
	}
	return f, nil
}
