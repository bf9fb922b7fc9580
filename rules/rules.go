// Package rules generates association rules from mined frequent itemsets.
package rules

import (
	"github.com/cpearce/prochange/fptree"
	"github.com/cpearce/prochange/item"
)

// Rule is one (antecedent, consequent, confidence, lift, support) tuple,
// where support is the support of antecedent ∪ consequent.
type Rule struct {
	Antecedent item.ItemSet
	Consequent item.ItemSet
	Confidence float64
	Lift       float64
	Support    float64
}

// powerset returns every non-empty subset of items, including items
// itself. Called with the itemset's consequent item already removed, so
// the full-size subset here is the itemset's remainder, not the whole
// itemset.
func powerset(items []item.Item) [][]item.Item {
	n := len(items)
	var out [][]item.Item
	for mask := 1; mask < (1 << n); mask++ {
		var subset []item.Item
		for i := 0; i < n; i++ {
			if mask&(1<<i) != 0 {
				subset = append(subset, items[i])
			}
		}
		out = append(out, subset)
	}
	return out
}

// GenerateRules returns the set of (antecedent, consequent, confidence,
// lift, support) tuples derivable from itemsets, filtered by minConfidence
// and minLift. Every rule has a single-item consequent, with each
// non-empty subset of the itemset's other items as its antecedent; rules
// with multi-item consequents are not generated.
func GenerateRules(
	interner *item.Interner,
	itemsets []item.ItemSet,
	counts *fptree.ItemsetCounts,
	numTransactions int,
	minConfidence, minLift float64,
) []Rule {
	support := func(is item.ItemSet) float64 {
		c, ok := counts.Get(is)
		if !ok {
			panic("rules: itemset not present in counts table")
		}
		return float64(c) / float64(numTransactions)
	}

	seen := make(map[string]struct{})
	var out []Rule

	for _, itemset := range itemsets {
		if len(itemset) < 2 {
			continue
		}
		items := itemset.Slice()
		for _, consequentItem := range items {
			consequent := item.NewItemSet(consequentItem)
			remainder := itemset.Minus(consequent)
			remainderItems := remainder.Slice()
			for _, antecedentItems := range powerset(remainderItems) {
				antecedent := item.NewItemSet(antecedentItems...)
				union := antecedent.Union(consequent)
				sup := support(union)
				confidence := sup / support(antecedent)
				if confidence < minConfidence {
					continue
				}
				lift := confidence / support(consequent)
				if lift < minLift {
					continue
				}
				key := antecedent.Key(interner) + "=>" + consequent.Key(interner)
				if _, dup := seen[key]; dup {
					continue
				}
				seen[key] = struct{}{}
				out = append(out, Rule{
					Antecedent: antecedent,
					Consequent: consequent,
					Confidence: confidence,
					Lift:       lift,
					Support:    sup,
				})
			}
		}
	}
	return out
}
