package fptree

import (
	"sort"

	"github.com/cpearce/prochange/item"
)

// ConstructConditionalTree builds the conditional (projected) tree of all
// patterns in tree which contain it: for every header node of it, the
// root-to-parent path of that node is inserted with the node's multiplicity.
func ConstructConditionalTree(interner *item.Interner, tree *FPTree, it item.Item) *FPTree {
	conditional := New(interner)
	for node := range tree.header[it] {
		// path_to_root(node.parent) in root-to-leaf order.
		rev := PathToRoot(node.Parent)
		path := make([]item.Item, len(rev))
		for i, x := range rev {
			path[len(rev)-1-i] = x
		}
		conditional.Insert(path, node.Count)
	}
	return conditional
}

// ItemsetCounts maps a canonical itemset key (item.ItemSet.Key) to both
// the itemset itself and its support count, so that rule generation can
// recover the members of each mined itemset.
type ItemsetCounts struct {
	interner *item.Interner
	counts   map[string]int
	sets     map[string]item.ItemSet
}

func newItemsetCounts(interner *item.Interner) *ItemsetCounts {
	return &ItemsetCounts{
		interner: interner,
		counts:   make(map[string]int),
		sets:     make(map[string]item.ItemSet),
	}
}

func (c *ItemsetCounts) set(is item.ItemSet, count int) {
	key := is.Key(c.interner)
	c.counts[key] = count
	c.sets[key] = is
}

// Get returns the support count for itemset is, and whether it was mined.
func (c *ItemsetCounts) Get(is item.ItemSet) (int, bool) {
	v, ok := c.counts[is.Key(c.interner)]
	return v, ok
}

// Itemsets returns the set of all mined itemsets.
func (c *ItemsetCounts) Itemsets() []item.ItemSet {
	out := make([]item.ItemSet, 0, len(c.sets))
	for _, is := range c.sets {
		out = append(out, is)
	}
	return out
}

// Len returns the number of distinct itemsets recorded.
func (c *ItemsetCounts) Len() int { return len(c.counts) }

// fpGrowth is the recursive core of FP-Growth, running single-threaded
// with a deterministic item-iteration order so mining results are
// reproducible across runs.
func fpGrowth(
	interner *item.Interner,
	tree *FPTree,
	minCount float64,
	path []item.Item,
	pathCount int,
	itemsets map[string]item.ItemSet,
	counts *ItemsetCounts,
	maximalOnly bool,
) {
	if tree.HasSinglePath() {
		emitSinglePath(interner, tree, minCount, path, pathCount, itemsets, counts, maximalOnly)
		return
	}

	items := tree.Items()
	sort.Slice(items, func(i, j int) bool {
		ci, cj := tree.ItemCount(items[i]), tree.ItemCount(items[j])
		if ci != cj {
			return ci < cj
		}
		return interner.Less(items[i], items[j])
	})

	for _, it := range items {
		count := tree.ItemCount(it)
		if float64(count) < minCount {
			continue
		}

		newPath := append(append([]item.Item{}, path...), it)
		newPathCount := pathCount
		if count < newPathCount {
			newPathCount = count
		}

		itemset := item.NewItemSet(newPath...)
		counts.set(itemset, newPathCount)

		conditional := ConstructConditionalTree(interner, tree, it)
		before := len(itemsets)
		fpGrowth(interner, conditional, minCount, newPath, newPathCount, itemsets, counts, maximalOnly)

		if !maximalOnly || len(itemsets) == before {
			itemsets[itemset.Key(interner)] = itemset
		}
	}
}

// emitSinglePath handles the single-path shortcut: when a (conditional)
// tree has no branching, every non-empty subset of its frequent items is
// itself a frequent itemset, with support equal to the minimum item count
// among the subset's members (further capped by the inherited pathCount,
// exactly as the general recursive case computes
// newPathCount = min(pathCount, itemCount[x])). Since every such subset's
// support already clears minCount (each member does individually), the
// only subset with no frequent superset on this path is the full set of
// frequent items, so maximalOnly emits that one combination rather than
// every subset.
func emitSinglePath(
	interner *item.Interner,
	tree *FPTree,
	minCount float64,
	path []item.Item,
	pathCount int,
	itemsets map[string]item.ItemSet,
	counts *ItemsetCounts,
	maximalOnly bool,
) {
	// Walk the chain directly; a node may carry a non-zero EndCount
	// without being the terminal node (shorter transactions ending
	// partway down a longer common prefix), so we can't rely on Paths().
	var items []item.Item
	n := tree.Root
	for len(n.Children) == 1 {
		for _, c := range n.Children {
			n = c
		}
		items = append(items, *n.Item)
	}

	type entry struct {
		it    item.Item
		count int
	}
	var frequent []entry
	for _, it := range items {
		c := tree.ItemCount(it)
		if float64(c) >= minCount {
			frequent = append(frequent, entry{it, c})
		}
	}

	numFrequent := len(frequent)
	if numFrequent == 0 {
		return
	}

	for mask := 1; mask < (1 << numFrequent); mask++ {
		var combo []item.Item
		comboMin := -1
		for i := 0; i < numFrequent; i++ {
			if mask&(1<<i) != 0 {
				combo = append(combo, frequent[i].it)
				if comboMin == -1 || frequent[i].count < comboMin {
					comboMin = frequent[i].count
				}
			}
		}
		full := append(append([]item.Item{}, path...), combo...)
		fullCount := comboMin
		if pathCount < fullCount {
			fullCount = pathCount
		}
		itemset := item.NewItemSet(full...)
		counts.set(itemset, fullCount)

		if !maximalOnly || len(combo) == numFrequent {
			itemsets[itemset.Key(interner)] = itemset
		}
	}
}

// Mine runs FP-Growth over tree, returning every frequent itemset whose
// support is >= minSupport (expressed as a fraction of numTransactions),
// plus a table of support counts for every itemset encountered during
// mining (a superset of the output when maximalItemsetsOnly is set, since
// rule generation needs the support of non-maximal subsets too). If
// maximalItemsetsOnly is set, only maximal frequent itemsets (those with
// no frequent superset) are returned as output.
func Mine(interner *item.Interner, tree *FPTree, minSupport float64, maximalItemsetsOnly bool) ([]item.ItemSet, *ItemsetCounts, int) {
	numTransactions := tree.NumTransactions()
	minCount := minSupport * float64(numTransactions)
	itemsets := make(map[string]item.ItemSet)
	counts := newItemsetCounts(interner)
	fpGrowth(interner, tree, minCount, nil, numTransactions, itemsets, counts, maximalItemsetsOnly)
	out := make([]item.ItemSet, 0, len(itemsets))
	for _, is := range itemsets {
		out = append(out, is)
	}
	return out, counts, numTransactions
}

// ConstructInitialTree builds the initial FPTree for a batch of
// transactions: computes item frequency, filters out infrequent items
// (they cannot contribute to any frequent itemset), sorts each
// transaction by decreasing frequency with a deterministic tiebreak, and
// inserts it.
func ConstructInitialTree(interner *item.Interner, transactions [][]item.Item, minSupport float64) (*FPTree, int) {
	frequency, numTransactions := CountItemFrequency(transactions)
	minCount := float64(numTransactions) * minSupport
	tree := New(interner)
	for _, txn := range transactions {
		filtered := make([]item.Item, 0, len(txn))
		for _, it := range txn {
			if float64(frequency[it]) >= minCount {
				filtered = append(filtered, it)
			}
		}
		tree.Insert(SortTransaction(interner, filtered, frequency), 1)
	}
	return tree, numTransactions
}

// CountItemFrequency returns the occurrence count of each item across
// transactions, and the number of transactions seen.
func CountItemFrequency(transactions [][]item.Item) (map[item.Item]int, int) {
	frequency := make(map[item.Item]int)
	n := 0
	for _, txn := range transactions {
		n++
		for _, it := range txn {
			frequency[it]++
		}
	}
	return frequency, n
}

// MineTransactions is the batch entry point: builds the initial tree from
// raw transactions and mines it.
func MineTransactions(interner *item.Interner, transactions [][]item.Item, minSupport float64, maximalItemsetsOnly bool) ([]item.ItemSet, *ItemsetCounts, int) {
	tree, _ := ConstructInitialTree(interner, transactions, minSupport)
	return Mine(interner, tree, minSupport, maximalItemsetsOnly)
}
