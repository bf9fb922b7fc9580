// Package pipeline wires together mining, rule generation, and drift
// detection into the end-to-end streaming workflow: mine a training
// window, generate rules from it, then watch the rest of the stream for
// drift, re-mining a fresh window whenever drift is detected.
package pipeline

import (
	"github.com/sirupsen/logrus"

	"github.com/cpearce/prochange/drift"
	"github.com/cpearce/prochange/fptree"
	"github.com/cpearce/prochange/item"
	"github.com/cpearce/prochange/rules"
	"github.com/cpearce/prochange/ruletree"
)

// Algorithm selects which drift-detection strategy a Pipeline run uses.
type Algorithm = drift.Algorithm

const (
	VRChangeAlgorithm  = drift.VRChangeAlgorithm
	ProChangeAlgorithm = drift.ProChangeAlgorithm
	SeedAlgorithm      = drift.SeedAlgorithm
	ProSeedAlgorithm   = drift.ProSeedAlgorithm
)

// Detector is satisfied by both drift.DriftDetector and
// drift.SeedDriftDetector: train against a window and its mined rules,
// then check each subsequent transaction for drift.
type Detector interface {
	Train(interner *item.Interner, window []item.ItemSet, rules []ruletree.Rule)
	CheckForDrift(transaction item.ItemSet, transactionNum int) *drift.Drift
}

// VolatilityDetector is satisfied by volatility.VolatilityDetector and
// volatility.FixedConfidenceVolatilityDetector.
type VolatilityDetector interface {
	Add(transactionNum int)
	DriftConfidence(transactionNum int) float64
	ExpectedDriftPosition(transactionNum int) (int, bool)
}

// Config holds the parameters of one end-to-end run.
type Config struct {
	TrainingWindowSize int
	MinSupport         float64
	MinConfidence      float64
	MinLift            float64
	MaximalItemsets    bool
}

// Cohort is one mined training window, its rules, and the drift event (if
// any) that ended its monitoring period.
type Cohort struct {
	CohortNum        int
	WindowStart      int
	WindowEnd        int
	Itemsets         []item.ItemSet
	Rules            []rules.Rule
	Drift            *drift.Drift
	DriftTransaction int // 0 if the stream ended before drift was detected
}

// NewDetector returns the Detector implementation for algo.
func NewDetector(algo Algorithm, volatility VolatilityDetector) Detector {
	switch algo {
	case VRChangeAlgorithm, ProChangeAlgorithm:
		return drift.NewDriftDetector(volatility)
	case SeedAlgorithm:
		return drift.NewSeedDriftDetector(nil)
	case ProSeedAlgorithm:
		if volatility == nil {
			return drift.NewSeedDriftDetector(nil)
		}
		return drift.NewSeedDriftDetector(volatility)
	default:
		panic("pipeline: unknown drift algorithm " + string(algo))
	}
}

// Run drives the mine-train-monitor workflow over transactions (already
// interned), calling onCohort once per training window that yields rules
// and its monitoring period. Windows that yield no rules are skipped
// without a callback.
func Run(
	interner *item.Interner,
	transactions <-chan []item.Item,
	cfg Config,
	algo Algorithm,
	volatility VolatilityDetector,
	onCohort func(Cohort),
) {
	transactionNum := 0
	cohortNum := 1

	for {
		window, exhausted := take(transactions, cfg.TrainingWindowSize)
		if len(window) == 0 {
			return
		}

		windowStart := transactionNum
		transactionNum += len(window)
		windowEnd := transactionNum

		itemsets, counts, numTransactions := fptree.MineTransactions(interner, window, cfg.MinSupport, cfg.MaximalItemsets)
		if numTransactions != len(window) {
			panic("pipeline: mined transaction count does not match window size")
		}
		generated := rules.GenerateRules(interner, itemsets, counts, numTransactions, cfg.MinConfidence, cfg.MinLift)
		if len(generated) == 0 {
			// There is nothing to monitor for drift without rules; move on
			// to the next training window.
			logrus.Infof("No rules generated for window [%d,%d], skipping", windowStart, windowEnd)
			if exhausted {
				return
			}
			continue
		}

		ruleTreeRules := make([]ruletree.Rule, len(generated))
		for i, r := range generated {
			var consequent item.Item
			for it := range r.Consequent {
				consequent = it
			}
			ruleTreeRules[i] = ruletree.Rule{Antecedent: r.Antecedent.Slice(), Consequent: consequent}
		}

		windowAsItemSets := make([]item.ItemSet, len(window))
		for i, t := range window {
			windowAsItemSets[i] = item.NewItemSet(t...)
		}

		detector := NewDetector(algo, volatility)
		detector.Train(interner, windowAsItemSets, ruleTreeRules)

		cohort := Cohort{
			CohortNum:   cohortNum,
			WindowStart: windowStart,
			WindowEnd:   windowEnd,
			Itemsets:    itemsets,
			Rules:       generated,
		}
		cohortNum++

		streamEnded := true
		for transaction := range transactions {
			transactionNum++
			d := detector.CheckForDrift(item.NewItemSet(transaction...), transactionNum)
			if d != nil {
				cohort.Drift = d
				cohort.DriftTransaction = transactionNum
				if volatility != nil {
					volatility.Add(transactionNum)
				}
				streamEnded = false
				break
			}
		}
		onCohort(cohort)

		if streamEnded || exhausted {
			return
		}
	}
}

// take reads up to n transactions from ch, reporting whether ch closed
// before n were read.
func take(ch <-chan []item.Item, n int) (transactions [][]item.Item, exhausted bool) {
	for i := 0; i < n; i++ {
		t, ok := <-ch
		if !ok {
			return transactions, true
		}
		transactions = append(transactions, t)
	}
	return transactions, false
}
