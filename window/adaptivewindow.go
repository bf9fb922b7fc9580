// Package window implements an exponential-histogram-shaped adaptive
// sliding window: an ordered list of buckets, each holding its own FPTree,
// whose sizes are kept to a non-increasing sequence of powers of two with
// bounded run-length.
package window

import (
	"github.com/cpearce/prochange/fptree"
	"github.com/cpearce/prochange/item"
)

// Bucket owns one FPTree plus the item-frequency snapshot it was last
// resorted under.
type Bucket struct {
	tree     *fptree.FPTree
	snapshot map[item.Item]int // nil until the bucket has been resorted at least once
}

func newBucket(interner *item.Interner) *Bucket {
	return &Bucket{tree: fptree.New(interner)}
}

// Tree exposes the bucket's FPTree for mining/querying.
func (b *Bucket) Tree() *fptree.FPTree { return b.tree }

// Size returns the number of transactions stored in the bucket.
func (b *Bucket) Size() int { return b.tree.NumTransactions() }

func (b *Bucket) add(interner *item.Interner, transaction []item.Item) {
	b.tree.Insert(fptree.SortTransaction(interner, transaction, b.snapshot), 1)
}

// append merges other into b: every stored path in other is re-sorted
// under b's current snapshot and inserted, then b's tree is fully
// resorted and a fresh snapshot taken from the merged item counts.
func (b *Bucket) append(interner *item.Interner, other *Bucket) {
	for _, pc := range other.tree.Paths() {
		sorted := fptree.SortTransaction(interner, pc.Path, b.snapshot)
		b.tree.Insert(sorted, pc.Count)
	}
	b.tree.Sort()
	b.snapshot = b.tree.ItemCounts()
}

// AdaptiveWindow is an ordered list of sealed buckets plus one pending
// bucket accumulating transactions until it reaches bucketCapacity.
// bucketCapacity and mergeThreshold are independent parameters.
type AdaptiveWindow struct {
	interner       *item.Interner
	bucketCapacity int
	mergeThreshold int
	buckets        []*Bucket
	pending        *Bucket
}

// New returns an empty AdaptiveWindow. bucketCapacity must be >= 1.
func New(interner *item.Interner, bucketCapacity, mergeThreshold int) *AdaptiveWindow {
	if bucketCapacity < 1 {
		panic("window: bucketCapacity must be >= 1")
	}
	return &AdaptiveWindow{
		interner:       interner,
		bucketCapacity: bucketCapacity,
		mergeThreshold: mergeThreshold,
		pending:        newBucket(interner),
	}
}

// Add inserts transaction into the pending bucket, sealing it onto the
// bucket list (and enforcing the exponential-histogram invariant) once it
// reaches bucketCapacity.
func (w *AdaptiveWindow) Add(transaction []item.Item) {
	w.pending.add(w.interner, transaction)
	if w.pending.Size() == w.bucketCapacity {
		w.buckets = append(w.buckets, w.pending)
		w.pending = newBucket(w.interner)
		w.enforceInvariant()
	}
}

// enforceInvariant repeatedly scans left-to-right for runs of
// consecutive, equally-sized buckets longer than mergeThreshold, merging
// the two oldest buckets in the first offending run, until no run
// violates the bound.
func (w *AdaptiveWindow) enforceInvariant() {
	for {
		merged := false
		start := 0
		for start < len(w.buckets) {
			end := start
			for end+1 < len(w.buckets) && w.buckets[end+1].Size() == w.buckets[start].Size() {
				end++
			}
			runLen := end - start + 1
			if runLen > w.mergeThreshold {
				w.buckets[start].append(w.interner, w.buckets[start+1])
				w.buckets = append(w.buckets[:start+1], w.buckets[start+2:]...)
				merged = true
				break
			}
			start = end + 1
		}
		if !merged {
			return
		}
	}
}

// Len returns the number of sealed buckets.
func (w *AdaptiveWindow) Len() int { return len(w.buckets) }

// Bucket returns the sealed bucket at index, oldest-first.
func (w *AdaptiveWindow) Bucket(index int) *Bucket { return w.buckets[index] }

// Sizes returns the sealed-bucket size sequence, oldest-first.
func (w *AdaptiveWindow) Sizes() []int {
	out := make([]int, len(w.buckets))
	for i, b := range w.buckets {
		out[i] = b.Size()
	}
	return out
}

// Set replaces the sealed bucket at index.
func (w *AdaptiveWindow) Set(index int, b *Bucket) { w.buckets[index] = b }

// Truncate drops the oldest `count` sealed buckets.
func (w *AdaptiveWindow) Truncate(count int) {
	w.buckets = append([]*Bucket{}, w.buckets[count:]...)
}

// Pending returns the in-progress bucket that has not yet reached
// bucketCapacity.
func (w *AdaptiveWindow) Pending() *Bucket { return w.pending }
