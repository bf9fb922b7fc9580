package drift

import (
	"math"

	"github.com/cpearce/prochange/item"
	"github.com/cpearce/prochange/ruletree"
)

// Algorithm identifies which drift-detection strategy a pipeline stage is
// configured to run. VRChange and ProChange both run the Hellinger
// distance detector; VRChange with a fixed drift confidence, ProChange
// with the adaptive volatility detector. The canonical flag value for the
// fixed-confidence detector is "vrchange".
type Algorithm string

const (
	VRChangeAlgorithm  Algorithm = "vrchange"
	ProChangeAlgorithm Algorithm = "prochange"
	SeedAlgorithm      Algorithm = "seed"
	ProSeedAlgorithm   Algorithm = "proseed"
)

// SampleInterval is the number of transactions read between successive
// Hellinger-distance samples.
const SampleInterval = 32

// SampleThreshold is the number of distance samples collected before
// testing against the training baseline.
const SampleThreshold = 30

var sqrt2 = math.Sqrt(2)

// hellinger returns the Hellinger distance between discrete distributions
// p and q (equal-length, non-negative vectors): norm(sqrt(p)-sqrt(q)) /
// sqrt(2).
func hellinger(p, q []float64) float64 {
	if len(p) != len(q) {
		panic("drift: hellinger requires equal-length vectors")
	}
	var sumSq float64
	for i := range p {
		d := math.Sqrt(p[i]) - math.Sqrt(q[i])
		sumSq += d * d
	}
	return math.Sqrt(sumSq) / sqrt2
}

// DriftType names which signal triggered a Drift report.
type DriftType string

const (
	RuleMatchVectorDrift DriftType = "rule-match-vector"
	RagBagDrift          DriftType = "rag-bag"
	SeedDrift            DriftType = "seed"
	ProSeedDrift         DriftType = "proseed"
)

// Drift reports a detected change point.
type Drift struct {
	Type           DriftType
	HellingerValue float64
	Confidence     float64
	Mean           float64
}

// VolatilityConfidenceSource supplies the adaptive drift-confidence signal
// a DriftDetector needs once it has collected enough samples. Declared
// locally (rather than importing package volatility) to avoid a cyclic
// package dependency; package volatility's VolatilityDetector satisfies
// this interface.
type VolatilityConfidenceSource interface {
	DriftConfidence(transactionNum int) float64
}

// DriftDetector compares a fixed training-window baseline against a live
// test window using the Hellinger distance between rule-match vectors
// (and separately, rag-bag rates), flagging drift when a fresh sample
// falls outside a rolling-mean-derived confidence band.
type DriftDetector struct {
	volatility VolatilityConfidenceSource

	trainingRuleTree *ruletree.RuleTree
	testRuleTree     *ruletree.RuleTree
	trainingMatchVec []float64

	numTestTransactions int
	ruleVecMean         RollingMean
	ragBagMean          RollingMean
}

// NewDriftDetector returns a DriftDetector that consults volatility for
// its adaptive confidence term.
func NewDriftDetector(volatility VolatilityConfidenceSource) *DriftDetector {
	return &DriftDetector{volatility: volatility}
}

// Train builds the training and test rule trees from a training window of
// transactions and the rule set mined from it.
func (d *DriftDetector) Train(interner *item.Interner, window []item.ItemSet, rules []ruletree.Rule) {
	d.trainingRuleTree = ruletree.New(interner, len(window))
	for _, r := range rules {
		d.trainingRuleTree.Insert(item.NewItemSet(r.Antecedent...), item.NewItemSet(r.Consequent))
	}
	for _, transaction := range window {
		d.trainingRuleTree.RecordMatches(transaction)
	}
	d.testRuleTree = d.trainingRuleTree.CloneForTest()
	d.trainingMatchVec = d.trainingRuleTree.MatchVector()

	d.numTestTransactions = 0
	d.ruleVecMean = RollingMean{}
	d.ragBagMean = RollingMean{}
}

// CheckForDrift records transaction against the live test window, and
// every SampleInterval transactions tests whether the rule-match-vector
// or rag-bag distance from the training baseline has moved outside its
// rolling confidence band. Returns nil when no drift is detected this
// call.
func (d *DriftDetector) CheckForDrift(transaction item.ItemSet, transactionNum int) *Drift {
	d.testRuleTree.RecordMatches(transaction)
	d.numTestTransactions++
	if d.numTestTransactions < SampleInterval {
		return nil
	}
	d.numTestTransactions = 0

	var driftConfidence float64
	if d.ruleVecMean.N()+1 > SampleThreshold || d.ragBagMean.N()+1 > SampleThreshold {
		gamma := d.volatility.DriftConfidence(transactionNum)
		driftConfidence = 2.5 - gamma
	}

	distance := hellinger(d.trainingMatchVec, d.testRuleTree.MatchVector())
	d.ruleVecMean.AddSample(distance)
	if d.ruleVecMean.N() > SampleThreshold {
		conf := d.ruleVecMean.StdDev() * driftConfidence
		mean := d.ruleVecMean.Mean()
		if distance > mean+conf || distance < mean-conf {
			return &Drift{Type: RuleMatchVectorDrift, HellingerValue: distance, Confidence: conf, Mean: mean}
		}
	}

	ragBag := hellinger(
		[]float64{d.trainingRuleTree.RagBag()},
		[]float64{d.testRuleTree.RagBag()},
	)
	d.ragBagMean.AddSample(ragBag)
	if d.ragBagMean.N() > SampleThreshold {
		conf := d.ragBagMean.StdDev() * driftConfidence
		mean := d.ragBagMean.Mean()
		if ragBag > mean+conf || ragBag < mean-conf {
			return &Drift{Type: RagBagDrift, HellingerValue: ragBag, Confidence: conf, Mean: mean}
		}
	}

	return nil
}
