// Package drift implements the concept-drift detectors that run over a
// ruletree.RuleTree's match statistics: a Hellinger-distance detector
// comparing live samples against a fixed training baseline
// (DriftDetector), and a Hoeffding-bound block-merging detector that
// tracks a moving baseline (SeedDriftDetector).
package drift

import "math"

// variance treats a stream of n Bernoulli trials with `count` successes
// as a population of [0,1] values and returns its variance.
func variance(count, n float64) float64 {
	mean := count / n
	return (count*math.Pow(1-mean, 2) + (n-count)*math.Pow(0-mean, 2)) / n
}

// HoeffdingBound reports whether the null hypothesis "these two sample
// means come from the same distribution" cannot be rejected at the given
// confidence level, using a Hoeffding-bound test on the difference of the
// two means.
func HoeffdingBound(aMean float64, aLen int, bMean float64, bLen int, confidence float64) bool {
	al, bl := float64(aLen), float64(bLen)
	n := aMean + bMean
	v := variance(n, al+bl)
	m := 1 / ((1 / al) + (1 / bl))
	deltaPrime := math.Log(2 * math.Log(al+bl) / confidence)
	epsilon := math.Sqrt((2/m)*v*deltaPrime) + (2/(3*m))*deltaPrime
	// For small sample sizes epsilon can exceed 1; since both means lie in
	// [0,1] their difference never does, so equality is simply never
	// rejected until enough data has accumulated.
	return math.Abs(aMean-bMean) < epsilon
}
