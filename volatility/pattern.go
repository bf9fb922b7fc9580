// Package volatility models the distribution of inter-drift-detection
// intervals as a network of learned "patterns" (clusters of similar
// intervals), and uses that network to predict how confident a drift
// detector should be in a given transaction window.
package volatility

import (
	"math"
	"sort"

	"github.com/cpearce/prochange/drift"
	mstats "github.com/montanaflynn/stats"
)

// SimilarityTestConfidence is the minimum similarity p-value required to
// assign a drift interval to an existing pattern rather than starting a
// new one: below it, the KS test rejects "drawn from the same
// distribution" and the interval seeds a fresh pattern.
const SimilarityTestConfidence = 0.05

// MaxPatternSetSize bounds the number of distinct patterns retained; the
// least-recently-hit pattern is evicted once this is exceeded.
const MaxPatternSetSize = 100

// MaxNumPatternSamples bounds how many interval samples a single pattern
// retains.
const MaxNumPatternSamples = 100

// UseChiSquaredSimilarity selects the chi-square test instead of the
// Kolmogorov-Smirnov test for deciding which pattern a new interval
// belongs to.
const UseChiSquaredSimilarity = false

// outliersIQR drops values outside 1.5 * IQR of the first and third
// quartiles of ys.
func outliersIQR(ys []float64) []float64 {
	q, err := mstats.Quartile(append([]float64{}, ys...))
	if err != nil {
		panic("volatility: quartile computation failed: " + err.Error())
	}
	iqr := q.Q3 - q.Q1
	lower := q.Q1 - iqr*1.5
	upper := q.Q3 + iqr*1.5
	out := make([]float64, 0, len(ys))
	for _, y := range ys {
		if y >= lower && y <= upper {
			out = append(out, y)
		}
	}
	return out
}

// Pattern is one learned cluster of inter-drift intervals ("volatility
// window"), plus its outgoing transition counts to other patterns.
type Pattern struct {
	ID                 int
	samples            []float64
	connections        map[int]int
	lastHitTransaction int
}

func newPattern(id int) *Pattern {
	return &Pattern{ID: id, connections: make(map[int]int)}
}

// Mean returns the rolling mean of the pattern's retained samples.
func (p *Pattern) Mean() float64 {
	var rm drift.RollingMean
	for _, s := range p.samples {
		rm.AddSample(s)
	}
	return rm.Mean()
}

// AddSample appends driftInterval to the pattern's samples, then drops
// outliers (once there are enough samples to make that meaningful) and
// caps the retained sample count.
func (p *Pattern) AddSample(driftInterval float64) {
	p.samples = append(p.samples, driftInterval)
	if len(p.samples) > 5 {
		filtered := outliersIQR(p.samples)
		if len(filtered) == 0 {
			panic("volatility: outlier filtering emptied a non-empty pattern")
		}
		p.samples = filtered
	}
	if len(p.samples) > MaxNumPatternSamples {
		p.samples = p.samples[1:]
	}
}

// ksTest returns the two-sample Kolmogorov-Smirnov test p-value comparing
// the single-value sample {driftInterval} against the pattern's retained
// samples.
func (p *Pattern) ksTest(driftInterval float64) float64 {
	if len(p.samples) == 0 {
		panic("volatility: ksTest called on a pattern with no samples")
	}
	_, pValue := twoSampleKS([]float64{driftInterval}, p.samples)
	return pValue
}

// chiSquare broadcasts a single observed value against every retained
// sample, treating each sample as that observation's expected value.
func (p *Pattern) chiSquare(driftInterval float64) float64 {
	samples := p.samples
	if len(samples) == 1 {
		samples = []float64{samples[0], samples[0]}
	}
	var stat float64
	for _, expected := range samples {
		if expected == 0 {
			continue
		}
		d := driftInterval - expected
		stat += (d * d) / expected
	}
	df := float64(len(samples) - 1)
	if df <= 0 {
		return 1.0
	}
	return chiSquareSF(stat, df)
}

// Similarity returns how likely driftInterval is to have been drawn from
// the same distribution as this pattern's retained samples.
func (p *Pattern) Similarity(driftInterval float64) float64 {
	if UseChiSquaredSimilarity {
		return p.chiSquare(driftInterval)
	}
	return p.ksTest(driftInterval)
}

// mostCommonConnections returns up to n target pattern ids, sorted by
// descending transition count with ties broken by ascending pattern id for
// a fully deterministic ordering.
func (p *Pattern) mostCommonConnections(n int) []int {
	type kv struct {
		id    int
		count int
	}
	list := make([]kv, 0, len(p.connections))
	for id, count := range p.connections {
		list = append(list, kv{id, count})
	}
	sort.Slice(list, func(i, j int) bool {
		if list[i].count != list[j].count {
			return list[i].count > list[j].count
		}
		return list[i].id < list[j].id
	})
	if len(list) > n {
		list = list[:n]
	}
	out := make([]int, len(list))
	for i, e := range list {
		out[i] = e.id
	}
	return out
}

// twoSampleKS computes the two-sample Kolmogorov-Smirnov statistic D and
// its asymptotic p-value.
func twoSampleKS(a, b []float64) (float64, float64) {
	sa := append([]float64{}, a...)
	sb := append([]float64{}, b...)
	sort.Float64s(sa)
	sort.Float64s(sb)

	na, nb := float64(len(sa)), float64(len(sb))
	i, j := 0, 0
	var cdfA, cdfB, d float64
	for i < len(sa) || j < len(sb) {
		var x float64
		switch {
		case j >= len(sb) || (i < len(sa) && sa[i] <= sb[j]):
			x = sa[i]
		default:
			x = sb[j]
		}
		for i < len(sa) && sa[i] == x {
			i++
		}
		for j < len(sb) && sb[j] == x {
			j++
		}
		cdfA = float64(i) / na
		cdfB = float64(j) / nb
		if diff := math.Abs(cdfA - cdfB); diff > d {
			d = diff
		}
	}

	n := na * nb / (na + nb)
	p := kolmogorovSF((math.Sqrt(n) + 0.12 + 0.11/math.Sqrt(n)) * d)
	return d, p
}

// kolmogorovSF evaluates the asymptotic Kolmogorov distribution's survival
// function (the standard series used to turn a KS statistic into a
// p-value).
func kolmogorovSF(x float64) float64 {
	if x < 0.2 {
		return 1.0
	}
	var sum float64
	for k := 1; k <= 100; k++ {
		term := math.Exp(-2 * float64(k) * float64(k) * x * x)
		if k%2 == 1 {
			sum += term
		} else {
			sum -= term
		}
	}
	p := 2 * sum
	if p < 0 {
		p = 0
	}
	if p > 1 {
		p = 1
	}
	return p
}
