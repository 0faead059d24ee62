package crop

import (
	"math"
	"sort"

	"github.com/hyperjump/agrovision/pkg/utils"
)

// ConfidenceK is the steepness of the confidence curve.
const ConfidenceK = 3.5

// Confidence maps a probability to a display percentage with
// (1 - e^(-k*p)) * 100, rounded to two decimals. It stretches the gap between
// close probabilities; results do not sum to 100 across classes.
func Confidence(p float64) float64 {
	return utils.Round2((1 - math.Exp(-ConfidenceK*p)) * 100)
}

// TopK returns the indices of the k largest probabilities in descending order.
// Equal probabilities keep the classifier's index order.
func TopK(probs []float32, k int) []int {
	idx := make([]int, len(probs))
	for i := range idx {
		idx[i] = i
	}
	sort.SliceStable(idx, func(a, b int) bool {
		return probs[idx[a]] > probs[idx[b]]
	})
	if k < len(idx) {
		idx = idx[:k]
	}
	return idx
}
