// Package ruletree indexes a fixed set of association rules for
// per-transaction match counting in O(|transaction| * |antecedent
// prefix|), and derives the metrics concept-drift detectors consume
// (match vectors, rag-bag rate, rule-miss rate).
package ruletree

import (
	"sort"
	"strings"

	"github.com/cpearce/prochange/item"
)

// ruleKey canonically identifies one (antecedent, consequent) rule. The
// antecedent is stored as its interner-sorted, comma-joined name string so
// that two logically identical antecedents always produce the same key
// regardless of insertion order.
type ruleKey struct {
	antecedent string
	consequent string
}

// node is one level of the antecedent-prefix trie. antecedentChildren
// indexes the next antecedent item (lexicographically ordered, since
// antecedents are sorted before insertion); consequentChildren holds the
// consequent items attached at this node.
type node struct {
	antecedentChildren map[item.Item]*node
	consequentChildren map[item.Item]struct{}
}

func newNode() *node {
	return &node{
		antecedentChildren: make(map[item.Item]*node),
		consequentChildren: make(map[item.Item]struct{}),
	}
}

func (n *node) insert(antecedent []item.Item, consequent item.Item) {
	if len(antecedent) == 0 {
		n.consequentChildren[consequent] = struct{}{}
		return
	}
	head, rest := antecedent[0], antecedent[1:]
	child, ok := n.antecedentChildren[head]
	if !ok {
		child = newNode()
		n.antecedentChildren[head] = child
	}
	child.insert(rest, consequent)
}

// match is a single (antecedent path, consequent) hit found while
// traversing a sorted itemset.
type match struct {
	antecedent []item.Item
	consequent item.Item
}

// matches appends a hit for every rule reachable from n whose antecedent
// and consequent both occur in itemset, given that itemset is sorted and
// path is the antecedent accumulated so far. Each recursive call sees only
// the items after the last antecedent item, so a consequent is only found
// when it sorts after every item of its antecedent; a rule whose
// consequent sorts before one of its antecedent items is not matched.
func (n *node) matches(itemset []item.Item, path []item.Item, out *[]match) {
	for i, it := range itemset {
		if child, ok := n.antecedentChildren[it]; ok {
			nextPath := append(append([]item.Item{}, path...), it)
			child.matches(itemset[i+1:], nextPath, out)
		}
		if _, ok := n.consequentChildren[it]; ok {
			*out = append(*out, match{antecedent: append([]item.Item{}, path...), consequent: it})
		}
	}
}

func (n *node) rules(prefix []item.Item, interner *item.Interner, out map[ruleKey]Rule) {
	for c := range n.consequentChildren {
		ant := append([]item.Item{}, prefix...)
		out[keyOf(interner, ant, c)] = Rule{Antecedent: append([]item.Item{}, ant...), Consequent: c}
	}
	for it, child := range n.antecedentChildren {
		child.rules(append(append([]item.Item{}, prefix...), it), interner, out)
	}
}

// Rule is a bare (antecedent, consequent) pair as indexed by a RuleTree;
// confidence, lift, and support live in package rules instead.
type Rule struct {
	Antecedent []item.Item
	Consequent item.Item
}

func keyOf(interner *item.Interner, antecedent []item.Item, consequent item.Item) ruleKey {
	names := make([]string, len(antecedent))
	for i, it := range antecedent {
		names[i] = interner.Name(it)
	}
	sort.Strings(names)
	return ruleKey{antecedent: strings.Join(names, ","), consequent: interner.Name(consequent)}
}

// RuleTree is a two-layer prefix index over rules, plus the counters
// needed to derive match vectors, rag-bag rate and rule-miss rate.
type RuleTree struct {
	interner         *item.Interner
	root             *node
	matchCounter     map[ruleKey]int
	ragBagCount      int
	transactionCount int

	// windowSize > 0 enables the sliding-window variant: transactions
	// older than windowSize are evicted via removeMatches.
	windowSize int
	window     [][]item.Item
}

// New returns an empty RuleTree. windowSize == 0 disables the sliding
// window (counters accumulate for the tree's whole lifetime).
func New(interner *item.Interner, windowSize int) *RuleTree {
	return &RuleTree{
		interner:     interner,
		root:         newNode(),
		matchCounter: make(map[ruleKey]int),
		windowSize:   windowSize,
	}
}

// Insert adds one rule (antecedent -> single-item consequent) to the
// index.
func (t *RuleTree) Insert(antecedent item.ItemSet, consequent item.ItemSet) {
	if len(antecedent) == 0 {
		panic("ruletree: antecedent must be non-empty")
	}
	if len(consequent) != 1 {
		panic("ruletree: consequent must contain exactly one item")
	}
	var c item.Item
	for it := range consequent {
		c = it
	}
	ant := antecedent.Slice()
	t.interner.SortItems(ant)
	t.root.insert(ant, c)
	t.matchCounter[keyOf(t.interner, ant, c)] = 0
}

func sortedItems(interner *item.Interner, itemset item.ItemSet) []item.Item {
	items := itemset.Slice()
	interner.SortItems(items)
	return items
}

// RecordMatches records rule hits for itemset (a transaction). If no rule
// matches, the rag-bag counter is incremented. When a sliding window is
// configured, the oldest recorded transaction is evicted (via
// RemoveMatches) once the window exceeds its configured size.
func (t *RuleTree) RecordMatches(itemset item.ItemSet) {
	sorted := sortedItems(t.interner, itemset)
	var found []match
	t.root.matches(sorted, nil, &found)
	for _, m := range found {
		t.matchCounter[keyOf(t.interner, m.antecedent, m.consequent)]++
	}
	if len(found) == 0 {
		t.ragBagCount++
	}
	t.transactionCount++

	if t.windowSize > 0 {
		t.window = append(t.window, sorted)
		if len(t.window) > t.windowSize {
			oldest := t.window[0]
			t.window = t.window[1:]
			t.removeMatchesSorted(oldest)
		}
	}
}

// RemoveMatches is the symmetric inverse of RecordMatches, used when
// manually evicting a transaction from counters outside of the built-in
// sliding-window path (e.g. block-based drift detectors discarding a
// block).
func (t *RuleTree) RemoveMatches(itemset item.ItemSet) {
	t.removeMatchesSorted(sortedItems(t.interner, itemset))
}

func (t *RuleTree) removeMatchesSorted(sorted []item.Item) {
	var found []match
	t.root.matches(sorted, nil, &found)
	for _, m := range found {
		t.matchCounter[keyOf(t.interner, m.antecedent, m.consequent)]--
	}
	if len(found) == 0 {
		t.ragBagCount--
	}
	t.transactionCount--
}

// RagBag returns rag_bag_count / transaction_count.
func (t *RuleTree) RagBag() float64 {
	return float64(t.ragBagCount) / float64(t.transactionCount)
}

// TransactionCount returns the number of transactions recorded (net of any
// sliding-window evictions).
func (t *RuleTree) TransactionCount() int { return t.transactionCount }

// MatchVector returns rule-match counts normalized by transaction count,
// in a deterministic key order stable across RuleTrees that were built by
// inserting the same set of rules (e.g. a training tree and its
// CloneForTest copy).
func (t *RuleTree) MatchVector() []float64 {
	keys := make([]ruleKey, 0, len(t.matchCounter))
	for k := range t.matchCounter {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].antecedent != keys[j].antecedent {
			return keys[i].antecedent < keys[j].antecedent
		}
		return keys[i].consequent < keys[j].consequent
	})
	out := make([]float64, len(keys))
	for i, k := range keys {
		out[i] = float64(t.matchCounter[k]) / float64(t.transactionCount)
	}
	return out
}

// RuleMissRate returns ((transaction_count - rag_bag_count) /
// transaction_count, transaction_count). Only valid for a non-sliding-
// window RuleTree.
func (t *RuleTree) RuleMissRate() (float64, int) {
	if t.windowSize > 0 {
		panic("ruletree: RuleMissRate is not valid with a sliding window")
	}
	return float64(t.transactionCount-t.ragBagCount) / float64(t.transactionCount), t.transactionCount
}

// ClearRuleMatchCounts zeroes all counters without altering the rule
// topology. Only valid for a non-sliding-window RuleTree.
func (t *RuleTree) ClearRuleMatchCounts() {
	if t.windowSize > 0 {
		panic("ruletree: ClearRuleMatchCounts is not valid with a sliding window")
	}
	for k := range t.matchCounter {
		t.matchCounter[k] = 0
	}
	t.transactionCount = 0
	t.ragBagCount = 0
}

// TakeAndAddMatches adds other's counters into t and clears other's.
func (t *RuleTree) TakeAndAddMatches(other *RuleTree) {
	for k, v := range other.matchCounter {
		t.matchCounter[k] += v
	}
	t.transactionCount += other.transactionCount
	t.ragBagCount += other.ragBagCount
	other.ClearRuleMatchCounts()
}

// TakeAndOverwriteMatches replaces t's counters with other's.
func (t *RuleTree) TakeAndOverwriteMatches(other *RuleTree) {
	t.ClearRuleMatchCounts()
	t.TakeAndAddMatches(other)
}

// MatchCountOf returns the raw match count recorded for one rule.
func (t *RuleTree) MatchCountOf(antecedent []item.Item, consequent item.Item) int {
	return t.matchCounter[keyOf(t.interner, antecedent, consequent)]
}

// Rules returns the set of (antecedent, consequent) pairs indexed by t.
func (t *RuleTree) Rules() []Rule {
	out := make(map[ruleKey]Rule)
	t.root.rules(nil, t.interner, out)
	result := make([]Rule, 0, len(out))
	for _, r := range out {
		result = append(result, r)
	}
	return result
}

// CloneForTest returns a new RuleTree with the same rule topology as t but
// with all counters reset to zero. This is the constructor DriftDetector
// and SeedDriftDetector use to build their test/in-flight trees from a
// trained tree.
func (t *RuleTree) CloneForTest() *RuleTree {
	clone := New(t.interner, t.windowSize)
	for _, r := range t.Rules() {
		clone.Insert(item.NewItemSet(r.Antecedent...), item.NewItemSet(r.Consequent))
	}
	return clone
}

// IsEmpty reports whether the tree indexes no rules at all.
func (t *RuleTree) IsEmpty() bool {
	return len(t.matchCounter) == 0
}
