// Package grading scores classifier output against known outcomes.
package grading

import "sort"

// AUC returns the area under the ROC curve for a binary classifier: actual
// holds the true 0/1 labels and score holds the predicted probability of
// class 1, aligned by index. It panics if actual holds anything besides
// 0/1, or if every label is the same class (the curve is undefined).
func AUC(actual []uint32, score []float64) float64 {
	if len(actual) != len(score) {
		panic("grading: actual and score must be the same length")
	}
	fps, tps := rocCurve(actual, score)
	return trapz(fps, tps)
}

// rocCurve walks the rows in descending score order, emitting one
// (falsePositiveRate, truePositiveRate) point per distinct score value.
func rocCurve(actual []uint32, score []float64) (fps, tps []float64) {
	n := len(actual)
	order := make([]int, n)
	for i := range order {
		order[i] = i
	}
	sort.Slice(order, func(i, j int) bool { return score[order[i]] > score[order[j]] })

	var totalPos, totalNeg int
	for _, a := range actual {
		switch a {
		case 1:
			totalPos++
		case 0:
			totalNeg++
		default:
			panic("grading: AUC requires binary 0/1 labels")
		}
	}
	if totalPos == 0 || totalNeg == 0 {
		panic("grading: AUC requires both classes present")
	}

	fps = append(fps, 0)
	tps = append(tps, 0)

	var fp, tp int
	for i, idx := range order {
		if actual[idx] == 1 {
			tp++
		} else {
			fp++
		}
		if i+1 < n && score[order[i+1]] == score[idx] {
			continue // tie: fold into the next point rather than double-counting
		}
		fps = append(fps, float64(fp)/float64(totalNeg))
		tps = append(tps, float64(tp)/float64(totalPos))
	}
	return fps, tps
}

// trapz integrates ys dxs over points already in ascending xs order.
func trapz(xs, ys []float64) float64 {
	var area float64
	for i := 1; i < len(xs); i++ {
		area += (xs[i] - xs[i-1]) * (ys[i] + ys[i-1]) / 2
	}
	return area
}
