package predblock

import (
	"github.com/decisionpatterns/arborist/internal/rferr"
)

// Signature identifies the factor-predictor universe of a training
// session so a later predict session can detect drift.
type Signature struct {
	// PredMap maps each factor predictor's global index to its column
	// name, establishing identity independent of column order.
	PredMap map[int]string
	// Level maps each factor predictor's global index to its ordered
	// level names as observed during training.
	Level map[int][]string
}

// PreFormat is the portable record of a training session's column layout
// and factor signature, enough to validate a later predict-time matrix
// against it. It does not carry the rank tables: RowRank is rebuilt from
// the data in every training session.
type PreFormat struct {
	ColNames  []string
	RowNames  []string
	BlockNum  int
	BlockFac  int
	NPredFac  int
	NRow      int
	FacCard   []int
	Signature Signature
}

// ProxyLevel is the code assigned to a predict-time factor level that was
// never observed during training: trainLevels + 1.
func ProxyLevel(trainLevels int) uint32 {
	return uint32(trainLevels + 1)
}

// CheckSignature compares a predict-time signature against the training
// signature. A PredMap mismatch (different factor predictors entirely) is
// fatal (SignatureMismatch). A Level mismatch for a predictor that exists
// in both (new levels observed at predict time) is a non-fatal warning:
// the caller gets the list of predictors with unobserved levels and must
// apply ProxyLevel-based remapping itself.
func CheckSignature(train, predictTime Signature) (driftedPredictors []int, err error) {
	if len(train.PredMap) != len(predictTime.PredMap) {
		return nil, rferr.Newf(rferr.SignatureMismatch,
			"factor predictor count differs: train=%d predict=%d", len(train.PredMap), len(predictTime.PredMap))
	}
	for p, name := range train.PredMap {
		otherName, ok := predictTime.PredMap[p]
		if !ok || otherName != name {
			return nil, rferr.Newf(rferr.SignatureMismatch,
				"factor predictor %d identity differs: train=%q predict=%q", p, name, otherName)
		}
	}

	for p, trainLevels := range train.Level {
		predictLevels, ok := predictTime.Level[p]
		if !ok {
			continue
		}
		if !sameLevelSet(trainLevels, predictLevels) {
			driftedPredictors = append(driftedPredictors, p)
		}
	}
	return driftedPredictors, nil
}

func sameLevelSet(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	seen := make(map[string]bool, len(a))
	for _, v := range a {
		seen[v] = true
	}
	for _, v := range b {
		if !seen[v] {
			return false
		}
	}
	return true
}
