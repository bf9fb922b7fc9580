package drift

import (
	"github.com/cpearce/prochange/item"
	"github.com/cpearce/prochange/ruletree"
)

// BlockCompareConfidence is the Hoeffding-bound confidence used when
// deciding whether to merge the current block into the previous one.
const BlockCompareConfidence = 0.1

// TrainingCompareConfidence is the Hoeffding-bound confidence used when
// comparing the (possibly merged) previous block against the training
// baseline.
const TrainingCompareConfidence = 0.05

// GuardedZoneSize is how close, in transactions, the current transaction
// must be to a volatility-predicted drift point for the ProSeed variant
// to force a block drop instead of a merge.
const GuardedZoneSize = 1000

// VolatilityPositionSource supplies the next expected drift position for
// the ProSeed variant. Declared locally (rather than importing package
// volatility) to avoid a cyclic package dependency, mirroring
// VolatilityConfidenceSource in driftdetector.go; package volatility's
// VolatilityDetector satisfies this interface.
type VolatilityPositionSource interface {
	ExpectedDriftPosition(transactionNum int) (int, bool)
}

// SeedDriftDetector detects drift by comparing blocks of live rule-miss
// rates against each other (merging similar adjacent blocks, dropping
// dissimilar ones) and against a fixed training baseline, using the
// Hoeffding bound rather than a rolling Hellinger distance.
//
// When volatility is non-nil this is the ProSeed variant: within
// GuardedZoneSize transactions of a predicted drift point, the block
// comparison is skipped and a drop is forced, trading away the merge's
// smoothing to stay sensitive near an expected change point.
type SeedDriftDetector struct {
	volatility VolatilityPositionSource

	trainingRuleTree *ruletree.RuleTree
	previousRuleTree *ruletree.RuleTree
	currentRuleTree  *ruletree.RuleTree

	trainingMean float64
	trainingLen  int

	numTestTransactions int
}

// NewSeedDriftDetector returns a SeedDriftDetector. Pass a non-nil
// volatility to run the ProSeed variant; pass nil for plain Seed.
func NewSeedDriftDetector(volatility VolatilityPositionSource) *SeedDriftDetector {
	return &SeedDriftDetector{volatility: volatility}
}

func makeTestTree(training *ruletree.RuleTree) *ruletree.RuleTree {
	tree := training.CloneForTest()
	tree.ClearRuleMatchCounts()
	return tree
}

// Train builds the training rule tree from a training window of
// transactions and the rule set mined from it, and initializes empty
// previous/current blocks.
func (d *SeedDriftDetector) Train(interner *item.Interner, window []item.ItemSet, rules []ruletree.Rule) {
	d.trainingRuleTree = ruletree.New(interner, 0)
	for _, r := range rules {
		d.trainingRuleTree.Insert(item.NewItemSet(r.Antecedent...), item.NewItemSet(r.Consequent))
	}
	for _, transaction := range window {
		d.trainingRuleTree.RecordMatches(transaction)
	}

	d.previousRuleTree = makeTestTree(d.trainingRuleTree)
	d.currentRuleTree = makeTestTree(d.trainingRuleTree)

	d.trainingMean, d.trainingLen = d.trainingRuleTree.RuleMissRate()
	d.numTestTransactions = 0
}

// CheckForDrift appends transaction to the current block, and every
// SampleInterval transactions merges or drops blocks and tests the
// (possibly merged) previous block against the training baseline.
func (d *SeedDriftDetector) CheckForDrift(transaction item.ItemSet, transactionNum int) *Drift {
	d.currentRuleTree.RecordMatches(transaction)

	d.numTestTransactions++
	if d.numTestTransactions < SampleInterval {
		return nil
	}
	d.numTestTransactions = 0

	if d.previousRuleTree.TransactionCount() == 0 {
		// First block: nothing to compare against yet.
		d.previousRuleTree.TakeAndAddMatches(d.currentRuleTree)
		return nil
	}

	if d.inGuardedZone(transactionNum) {
		d.previousRuleTree.TakeAndOverwriteMatches(d.currentRuleTree)
	} else {
		prevMean, prevLen := d.previousRuleTree.RuleMissRate()
		currMean, currLen := d.currentRuleTree.RuleMissRate()
		if HoeffdingBound(prevMean, prevLen, currMean, currLen, BlockCompareConfidence) {
			d.previousRuleTree.TakeAndAddMatches(d.currentRuleTree)
		} else {
			d.previousRuleTree.TakeAndOverwriteMatches(d.currentRuleTree)
		}
	}

	prevMean, prevLen := d.previousRuleTree.RuleMissRate()
	if !HoeffdingBound(d.trainingMean, d.trainingLen, prevMean, prevLen, TrainingCompareConfidence) {
		if d.volatility != nil {
			return &Drift{Type: ProSeedDrift}
		}
		return &Drift{Type: SeedDrift}
	}

	return nil
}

// inGuardedZone reports whether transactionNum falls within
// GuardedZoneSize transactions of the volatility detector's next
// predicted drift point. Always false for plain Seed (volatility nil)
// or before any drift history exists.
func (d *SeedDriftDetector) inGuardedZone(transactionNum int) bool {
	if d.volatility == nil {
		return false
	}
	position, ok := d.volatility.ExpectedDriftPosition(transactionNum)
	if !ok {
		return false
	}
	delta := position - transactionNum
	if delta < 0 {
		delta = -delta
	}
	return delta <= GuardedZoneSize
}
