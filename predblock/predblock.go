// Package predblock implements the process-wide immutable view of the
// design matrix during one training or prediction session.
//
// Installing immutables does not mutate any package-level state — each
// Block is an independent handle, so concurrent sessions (e.g. one
// training, one predicting, in separate goroutines) are trivially safe as
// long as they don't share a *Block.
package predblock

import (
	"github.com/decisionpatterns/arborist/internal/rferr"
)

// Mode records which of {Train, Predict} immutables are live.
type Mode int

const (
	// Dormant means no immutables have been installed yet.
	Dormant Mode = iota
	TrainMode
	PredictMode
)

// Block is a predictor-block session handle. Exactly one of
// {Train, Predict} immutables may be live at a time.
type Block struct {
	mode Mode

	nRow      int
	nPredNum  int
	nPredFac  int
	cardMax   int
	facCard   []int // len == nPredFac, facCard[j] for factor predictor nPredNum+j

	// Numeric columns, column-major: numCols[p][row], p in [0, nPredNum).
	numCols [][]float64
	// Factor columns, column-major: facCols[j][row], j in [0, nPredFac).
	facCols [][]uint32
}

// TrainImmutables installs the training-time view of the design matrix.
// feNum is column-major numeric data (feNum[p] has length nRow); feFac is
// column-major factor codes; feCard[j] is the cardinality of factor column
// j. Installing while a session is already live is a programming error.
func TrainImmutables(feNum [][]float64, feFac [][]uint32, feCard []int, nRow int) (*Block, error) {
	return newBlock(TrainMode, feNum, feFac, feCard, nRow)
}

// PredictImmutables installs the predict-time view. The wire format is
// transposed (feNumT[nPredNum][nRow]), which is exactly the column-major
// shape Block already expects, so the conversion is a no-op at this
// layer; the transpose happens in the external ingestion collaborator.
func PredictImmutables(feNumT [][]float64, feFacT [][]uint32, feCard []int, nRow int) (*Block, error) {
	return newBlock(PredictMode, feNumT, feFacT, feCard, nRow)
}

func newBlock(mode Mode, num [][]float64, fac [][]uint32, facCard []int, nRow int) (*Block, error) {
	if nRow == 0 {
		return nil, rferr.New(rferr.ArityError, "predblock: nRow == 0")
	}
	if len(num)+len(fac) == 0 {
		return nil, rferr.New(rferr.ArityError, "predblock: nPred == 0")
	}
	if len(fac) != len(facCard) {
		return nil, rferr.Newf(rferr.Internal, "predblock: len(fac)=%d != len(facCard)=%d", len(fac), len(facCard))
	}

	cardMax := 0
	for _, c := range facCard {
		if c < 1 {
			return nil, rferr.Newf(rferr.Internal, "predblock: factor cardinality must be >= 1, got %d", c)
		}
		if c > cardMax {
			cardMax = c
		}
	}
	for j, col := range fac {
		for _, code := range col {
			if int(code) >= facCard[j] {
				return nil, rferr.Newf(rferr.Internal, "predblock: factor %d code %d >= cardinality %d", j, code, facCard[j])
			}
		}
	}

	b := &Block{
		mode:     mode,
		nRow:     nRow,
		nPredNum: len(num),
		nPredFac: len(fac),
		cardMax:  cardMax,
		facCard:  append([]int(nil), facCard...),
		numCols:  num,
		facCols:  fac,
	}
	return b, nil
}

// DeImmutables releases the session. It is a no-op beyond marking the
// block dormant; callers should simply drop the reference afterward, but
// calling this makes subsequent query calls fail loudly instead of
// silently returning stale data.
func (b *Block) DeImmutables() {
	b.mode = Dormant
}

func (b *Block) requireLive() error {
	if b.mode == Dormant {
		return rferr.New(rferr.NotInitialized, "predblock: query on dormant block")
	}
	return nil
}

// NRow returns the row count.
func (b *Block) NRow() int { return b.nRow }

// NPred returns the total predictor count (numeric + factor).
func (b *Block) NPred() int { return b.nPredNum + b.nPredFac }

// NumFirst / NumSup / FacFirst / FacSup return the boundary indices of the
// numeric prefix [NumFirst, NumSup) and factor suffix [FacFirst, FacSup).
func (b *Block) NumFirst() int { return 0 }
func (b *Block) NumSup() int   { return b.nPredNum }
func (b *Block) FacFirst() int { return b.nPredNum }
func (b *Block) FacSup() int   { return b.nPredNum + b.nPredFac }

// CardMax returns the maximum factor cardinality across all factor
// predictors.
func (b *Block) CardMax() int { return b.cardMax }

// IsFactor reports whether predictor p is a factor predictor.
func (b *Block) IsFactor(p int) bool {
	return p >= b.nPredNum
}

// BlockIdx maps a global predictor index to its column index within its
// typed block (numeric or factor).
func (b *Block) BlockIdx(p int, isFactor bool) int {
	if isFactor {
		return p - b.nPredNum
	}
	return p
}

// FacCard returns the cardinality of factor predictor p (global index).
func (b *Block) FacCard(p int) (int, error) {
	if err := b.requireLive(); err != nil {
		return 0, err
	}
	if !b.IsFactor(p) {
		return 0, rferr.Newf(rferr.Internal, "predblock: predictor %d is not a factor", p)
	}
	return b.facCard[b.BlockIdx(p, true)], nil
}

// NumCol returns the dense numeric column for predictor p.
func (b *Block) NumCol(p int) ([]float64, error) {
	if err := b.requireLive(); err != nil {
		return nil, err
	}
	if b.IsFactor(p) {
		return nil, rferr.Newf(rferr.Internal, "predblock: predictor %d is a factor, not numeric", p)
	}
	return b.numCols[p], nil
}

// FacCol returns the factor-code column for predictor p.
func (b *Block) FacCol(p int) ([]uint32, error) {
	if err := b.requireLive(); err != nil {
		return nil, err
	}
	if !b.IsFactor(p) {
		return nil, rferr.Newf(rferr.Internal, "predblock: predictor %d is numeric, not a factor", p)
	}
	return b.facCols[b.BlockIdx(p, true)], nil
}

// Mode reports whether this block is dormant, training, or predicting.
func (b *Block) Mode() Mode { return b.mode }
