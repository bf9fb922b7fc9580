// Package cptree implements the CP-tree streaming miner: a single FPTree
// fed by a fixed-size FIFO sliding window, periodically re-sorted and
// mined at window boundaries.
package cptree

import (
	"github.com/cpearce/prochange/fptree"
	"github.com/cpearce/prochange/item"
)

// Result is one mining pass over the window, reported when the window
// boundary (or a final flush) is reached.
type Result struct {
	// WindowStart is the 1-based index of the first transaction (in
	// arrival order) still present in the window when this result was
	// produced.
	WindowStart int
	// WindowLength is the number of transactions the window held.
	WindowLength int
	Itemsets     []item.ItemSet
	Counts       *fptree.ItemsetCounts
}

// Miner is the incremental CP-tree stream miner. Construct with New, feed
// transactions with Add (which returns a Result at each window boundary),
// and call Flush at end of stream to mine a trailing partial window.
type Miner struct {
	interner     *item.Interner
	tree         *fptree.FPTree
	minSupport   float64
	sortInterval int
	windowSize   int

	window    [][]item.Item // FIFO, oldest first, values as originally inserted
	frequency map[item.Item]int
	numSeen   int
	sorted    bool // true if the tree is known-sorted as of the most recent insert/remove
}

// New returns a Miner with an empty tree. sortInterval and windowSize must
// both be >= 1.
func New(interner *item.Interner, minSupport float64, sortInterval, windowSize int) *Miner {
	if sortInterval < 1 {
		panic("cptree: sortInterval must be >= 1")
	}
	if windowSize < 1 {
		panic("cptree: windowSize must be >= 1")
	}
	return &Miner{
		interner:     interner,
		tree:         fptree.New(interner),
		minSupport:   minSupport,
		sortInterval: sortInterval,
		windowSize:   windowSize,
	}
}

// Add inserts one transaction into the stream, evicting the oldest window
// member if the window is now over capacity, periodically resorting the
// tree, and mining at window boundaries. It returns a non-nil *Result
// exactly when a window boundary was reached (every windowSize
// transactions).
func (m *Miner) Add(transaction []item.Item) *Result {
	m.numSeen++
	sorted := fptree.SortTransaction(m.interner, transaction, m.frequency)
	m.tree.Insert(sorted, 1)
	m.window = append(m.window, sorted)
	m.sorted = false

	if len(m.window) > m.windowSize {
		oldest := m.window[0]
		m.window = m.window[1:]
		// The window stores transactions under the order they were
		// sorted at insertion time, which may now be stale if the tree
		// has since been resorted under a different frequency snapshot.
		// Re-derive the current order before removing so the path we
		// delete matches what Insert/Sort actually left in the tree.
		toRemove := fptree.SortTransaction(m.interner, oldest, m.frequency)
		m.tree.Remove(toRemove, 1)
	}

	if m.numSeen%m.sortInterval == 0 {
		m.resort()
	}

	if m.numSeen%m.windowSize == 0 {
		return m.mineNow()
	}
	return nil
}

// Flush mines whatever is currently in the window if the last transaction
// fed to Add did not already land on a window boundary, so a trailing
// partial window is not silently dropped at end of stream. Returns nil if
// there is nothing new to mine, or if the last Add call already mined
// this window.
func (m *Miner) Flush() *Result {
	if len(m.window) == 0 {
		return nil
	}
	if m.numSeen%m.windowSize == 0 {
		// Add's boundary check already mined this exact state.
		return nil
	}
	return m.mineNow()
}

func (m *Miner) resort() {
	if m.sorted {
		return
	}
	m.tree.Sort()
	m.frequency = m.tree.ItemCounts()
	m.sorted = true
}

func (m *Miner) mineNow() *Result {
	m.resort()
	itemsets, counts, _ := fptree.Mine(m.interner, m.tree, m.minSupport, false)
	return &Result{
		WindowStart:  m.numSeen - len(m.window) + 1,
		WindowLength: len(m.window),
		Itemsets:     itemsets,
		Counts:       counts,
	}
}

// NumSeen returns the total number of transactions fed to Add so far.
func (m *Miner) NumSeen() int { return m.numSeen }

// WindowLength returns the current number of transactions held in the
// sliding window.
func (m *Miner) WindowLength() int { return len(m.window) }

// Tree exposes the miner's live FPTree, e.g. for a pipeline stage that
// needs the current item-count distribution without waiting for the next
// mining pass.
func (m *Miner) Tree() *fptree.FPTree { return m.tree }
