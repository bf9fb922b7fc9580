// Package fptree implements the compressed frequent-pattern tree (FP-tree)
// and the FP-Growth mining algorithm that runs over it.
//
// An FPTree is arena-free in the sense that nodes are ordinary
// heap-allocated *FPNode values; parent back-links and header entries are
// plain pointers to those same nodes, which are stable for the lifetime
// of the node.
package fptree

import (
	"sort"

	"github.com/cpearce/prochange/item"
)

// FPNode is one element of an FPTree. The root is a sentinel with Item
// == nil.
type FPNode struct {
	Item     *item.Item
	Count    int
	EndCount int
	Children map[item.Item]*FPNode
	Parent   *FPNode
}

func newNode(it *item.Item, count int, parent *FPNode) *FPNode {
	return &FPNode{
		Item:     it,
		Count:    count,
		Children: make(map[item.Item]*FPNode),
		Parent:   parent,
	}
}

// IsRoot reports whether n is the tree's root sentinel.
func (n *FPNode) IsRoot() bool { return n.Parent == nil }

// IsLeaf reports whether any stored transaction path terminates at n.
func (n *FPNode) IsLeaf() bool { return n.EndCount > 0 }

// FPTree is a compressed prefix tree over item sequences, with an item ->
// node-set header index and running item/ transaction counts.
type FPTree struct {
	interner        *item.Interner
	Root            *FPNode
	header          map[item.Item]map[*FPNode]struct{}
	itemCount       map[item.Item]int
	numTransactions int
	leaves          map[*FPNode]struct{}
}

// New returns an empty FPTree. interner supplies the deterministic
// lexicographic tiebreak used by Sort and FP-Growth's header iteration.
func New(interner *item.Interner) *FPTree {
	return &FPTree{
		interner:  interner,
		Root:      newNode(nil, 0, nil),
		header:    make(map[item.Item]map[*FPNode]struct{}),
		itemCount: make(map[item.Item]int),
		leaves:    make(map[*FPNode]struct{}),
	}
}

// NumTransactions returns the sum of EndCount over all nodes.
func (t *FPTree) NumTransactions() int { return t.numTransactions }

// ItemCount returns the multiset occurrence count of it across all stored
// paths.
func (t *FPTree) ItemCount(it item.Item) int { return t.itemCount[it] }

// ItemCounts returns a copy of the tree's full item->count multiset,
// suitable for use as a stable sorting snapshot (e.g. AdaptiveWindow's
// per-bucket frequency snapshot).
func (t *FPTree) ItemCounts() map[item.Item]int {
	out := make(map[item.Item]int, len(t.itemCount))
	for k, v := range t.itemCount {
		out[k] = v
	}
	return out
}

// Items returns the set of items present in the tree's header, in
// unspecified order.
func (t *FPTree) Items() []item.Item {
	out := make([]item.Item, 0, len(t.header))
	for it := range t.header {
		out = append(out, it)
	}
	return out
}

// Header returns the set of nodes carrying item it.
func (t *FPTree) Header(it item.Item) []*FPNode {
	nodes := t.header[it]
	out := make([]*FPNode, 0, len(nodes))
	for n := range nodes {
		out = append(out, n)
	}
	return out
}

// Insert adds a path (transaction) to the tree count times. Precondition:
// count > 0.
func (t *FPTree) Insert(path []item.Item, count int) {
	if count <= 0 {
		panic("fptree: Insert requires count > 0")
	}
	node := t.Root
	t.numTransactions += count
	for _, it := range path {
		it := it
		t.itemCount[it] += count
		child, ok := node.Children[it]
		if !ok {
			child = newNode(&it, count, node)
			node.Children[it] = child
			if t.header[it] == nil {
				t.header[it] = make(map[*FPNode]struct{})
			}
			t.header[it][child] = struct{}{}
		} else {
			child.Count += count
		}
		node = child
	}
	node.EndCount += count
	if !node.IsRoot() {
		t.leaves[node] = struct{}{}
	}
}

// Remove removes a path from the tree count times. The path must already
// exist with at least count multiplicity; violating this is a programming
// error and panics.
func (t *FPTree) Remove(path []item.Item, count int) {
	if len(path) == 0 {
		panic("fptree: Remove requires a non-empty path")
	}
	if count <= 0 {
		panic("fptree: Remove requires count > 0")
	}
	node := t.Root
	for _, it := range path {
		child, ok := node.Children[it]
		if !ok {
			panic("fptree: Remove on a missing path")
		}
		if child.Count < count {
			panic("fptree: Remove count underflow")
		}
		child.Count -= count
		t.itemCount[*child.Item] -= count
		if child.Count == 0 {
			delete(node.Children, it)
			delete(t.header[*child.Item], child)
			if len(t.header[*child.Item]) == 0 {
				delete(t.header, *child.Item)
			}
		}
		node = child
	}
	if node.EndCount < count {
		panic("fptree: Remove end-count underflow")
	}
	node.EndCount -= count
	if node.EndCount == 0 {
		delete(t.leaves, node)
	}
	t.numTransactions -= count
	if t.numTransactions < 0 {
		panic("fptree: num_transactions underflow")
	}
}

// PathToRoot returns the items from n up to (excluding) the root, ordered
// leaf-to-root.
func PathToRoot(n *FPNode) []item.Item {
	var path []item.Item
	for !n.IsRoot() {
		path = append(path, *n.Item)
		n = n.Parent
	}
	return path
}

// PathCount pairs a root-to-leaf path with the number of stored
// transactions terminating there.
type PathCount struct {
	Path  []item.Item
	Count int
}

// Paths returns a snapshot of (path, end_count) for every leaf, in
// root-to-leaf order. The snapshot is taken up front so that callers may
// freely mutate the tree (e.g. Sort) while iterating it.
func (t *FPTree) Paths() []PathCount {
	out := make([]PathCount, 0, len(t.leaves))
	for leaf := range t.leaves {
		rev := PathToRoot(leaf)
		path := make([]item.Item, len(rev))
		for i, it := range rev {
			path[len(rev)-1-i] = it
		}
		out = append(out, PathCount{Path: path, Count: leaf.EndCount})
	}
	return out
}

// HasSinglePath walks root -> only-child until a node has zero or more
// than one child, reporting whether that terminal node has no children
// (i.e. whether the whole tree is one unbranched chain).
func (t *FPTree) HasSinglePath() bool {
	n := t.Root
	for len(n.Children) == 1 {
		for _, c := range n.Children {
			n = c
		}
	}
	return len(n.Children) == 0
}

// SortTransaction orders items by non-increasing frequency (per the
// frequency map, which may be nil to mean "lexicographic only"), with a
// deterministic lexicographic tiebreak. Sorting lexicographically first,
// then stably by frequency, guarantees two items with equal frequency
// always end up in the same relative order.
func SortTransaction(interner *item.Interner, transaction []item.Item, frequency map[item.Item]int) []item.Item {
	out := make([]item.Item, len(transaction))
	copy(out, transaction)
	interner.SortItems(out)
	if frequency == nil {
		return out
	}
	sort.SliceStable(out, func(i, j int) bool {
		return frequency[out[i]] > frequency[out[j]]
	})
	return out
}

// Sort re-orders all stored paths so that, globally, nodes with higher
// ItemCount appear closer to the root: snapshot the leaves, and for each,
// remove and re-insert its path under the current item-count ordering if
// it differs.
func (t *FPTree) Sort() {
	for _, pc := range t.Paths() {
		if len(pc.Path) == 0 {
			continue
		}
		sorted := SortTransaction(t.interner, pc.Path, t.itemCount)
		if sameOrder(pc.Path, sorted) {
			continue
		}
		t.Remove(pc.Path, pc.Count)
		t.Insert(sorted, pc.Count)
	}
}

func sameOrder(a, b []item.Item) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// IsSorted reports whether, for every non-root node n, ItemCount(n.Item)
// <= ItemCount(n.Parent.Item).
func (t *FPTree) IsSorted() bool {
	for leaf := range t.leaves {
		n := leaf
		for !n.Parent.IsRoot() {
			if t.itemCount[*n.Item] > t.itemCount[*n.Parent.Item] {
				return false
			}
			n = n.Parent
		}
	}
	return true
}
