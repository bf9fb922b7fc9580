package pipeline

import (
	"math"

	"github.com/cpearce/prochange/drift"
	"github.com/cpearce/prochange/item"
)

// localBucket is a plain transaction batch with a running item-frequency
// count, distinct from window.Bucket (which carries a full FPTree): local
// drift detection only needs raw item counts, not mining structure.
type localBucket struct {
	transactions [][]item.Item
	itemCount    map[item.Item]int
}

func newLocalBucket(transaction []item.Item) *localBucket {
	b := &localBucket{itemCount: make(map[item.Item]int)}
	b.add(transaction)
	return b
}

func (b *localBucket) add(transaction []item.Item) {
	b.transactions = append(b.transactions, transaction)
	for _, it := range transaction {
		b.itemCount[it]++
	}
}

func (b *localBucket) size() int { return len(b.transactions) }

func (b *localBucket) append(other *localBucket) {
	for _, t := range other.transactions {
		b.add(t)
	}
}

// LocalDriftBucketList is an exponential-histogram-shaped list of
// localBuckets, merging the two oldest buckets in any contiguous
// power-of-two-sized run once that run exceeds maxCapacity buckets. This
// merge condition differs from window.AdaptiveWindow's (capacity here is
// a run-length bound on power-of-two-sized buckets specifically,
// independent of a separate bucket-sealing size), so the two are kept as
// distinct implementations rather than shared code.
type LocalDriftBucketList struct {
	maxCapacity int
	buckets     []*localBucket
}

// NewLocalDriftBucketList returns an empty bucket list. maxCapacity must
// be >= 1.
func NewLocalDriftBucketList(maxCapacity int) *LocalDriftBucketList {
	if maxCapacity < 1 {
		panic("pipeline: LocalDriftBucketList maxCapacity must be >= 1")
	}
	return &LocalDriftBucketList{maxCapacity: maxCapacity}
}

// Add appends transaction as a new singleton bucket, then merges
// contiguous power-of-two-sized runs longer than maxCapacity.
func (l *LocalDriftBucketList) Add(transaction []item.Item) {
	l.buckets = append(l.buckets, newLocalBucket(transaction))

	start := 0
	for start < len(l.buckets) {
		size := l.buckets[start].size()
		if !isPowerOfTwo(size) {
			start++
			continue
		}
		end := start
		for end+1 < len(l.buckets) && l.buckets[end+1].size() == size {
			end++
		}
		if end-start < l.maxCapacity {
			start = end + 1
			continue
		}
		l.buckets[start].append(l.buckets[start+1])
		l.buckets = append(l.buckets[:start+1], l.buckets[start+2:]...)
		// Rescan from the oldest bucket: the merged bucket may now extend a
		// run that begins before it, or start another qualifying run.
		start = 0
	}
}

func isPowerOfTwo(n int) bool {
	if n <= 0 {
		return false
	}
	return n&(n-1) == 0
}

// Len returns the number of buckets currently held.
func (l *LocalDriftBucketList) Len() int { return len(l.buckets) }

// Truncate drops the oldest `count` buckets.
func (l *LocalDriftBucketList) Truncate(count int) {
	l.buckets = append([]*localBucket{}, l.buckets[count:]...)
}

// FindLocalDrift scans for the first split point within the bucket list
// at which any item's frequency on one side differs from the other side
// by more than localCut, and returns that cut index, or -1 if no such
// point exists.
func FindLocalDrift(l *LocalDriftBucketList, localCut int) int {
	for cut := 1; cut < len(l.buckets); cut++ {
		prev := make(map[item.Item]int)
		for _, b := range l.buckets[:cut] {
			for it, c := range b.itemCount {
				prev[it] += c
			}
		}
		curr := make(map[item.Item]int)
		for _, b := range l.buckets[cut:] {
			for it, c := range b.itemCount {
				curr[it] += c
			}
		}
		for it, c := range curr {
			if int(math.Abs(float64(prev[it]-c))) > localCut {
				return cut
			}
		}
		for it, c := range prev {
			if _, seen := curr[it]; !seen && c > localCut {
				return cut
			}
		}
	}
	return -1
}

// CutPointConfig parameterizes a CutPointDetector.
type CutPointConfig struct {
	// WindowLen is the number of transactions accumulated before a bucket
	// is sealed onto the list.
	WindowLen int
	// MergeThreshold bounds how many consecutive equal-sized sealed
	// buckets may exist before the two oldest in the run are merged.
	MergeThreshold int
	// MinCutLen is the minimum number of transactions required on each
	// side of a candidate cut point.
	MinCutLen int
	// CutConfidence is the Hoeffding-bound confidence used when comparing
	// item frequencies either side of a candidate cut.
	CutConfidence float64
}

// CutPointDetector finds retrospective cut points in a transaction
// stream: it keeps sealed buckets of per-item frequency counts in
// exponential-histogram shape, and at each seal tests every candidate cut
// for an item whose occurrence rate differs significantly between the two
// sides, per the Hoeffding bound. On a cut, everything older than the cut
// is discarded.
type CutPointDetector struct {
	cfg     CutPointConfig
	buckets []*localBucket
	pending *localBucket
	numSeen int
}

// NewCutPointDetector returns an empty CutPointDetector.
func NewCutPointDetector(cfg CutPointConfig) *CutPointDetector {
	if cfg.WindowLen < 1 {
		panic("pipeline: CutPointConfig.WindowLen must be >= 1")
	}
	if cfg.MergeThreshold < 1 {
		panic("pipeline: CutPointConfig.MergeThreshold must be >= 1")
	}
	return &CutPointDetector{
		cfg:     cfg,
		pending: &localBucket{itemCount: make(map[item.Item]int)},
	}
}

// Add feeds one transaction to the detector. It returns (transactionNum,
// true) when sealing the bucket this transaction completed revealed a cut
// point; the prefix before the cut is dropped before returning.
func (c *CutPointDetector) Add(transaction []item.Item) (int, bool) {
	c.numSeen++
	c.pending.add(transaction)
	if c.pending.size() < c.cfg.WindowLen {
		return 0, false
	}
	c.buckets = append(c.buckets, c.pending)
	c.pending = &localBucket{itemCount: make(map[item.Item]int)}
	c.mergeRuns()

	cut := c.findCut()
	if cut < 0 {
		return 0, false
	}
	c.buckets = append([]*localBucket{}, c.buckets[cut:]...)
	return c.numSeen, true
}

// mergeRuns restores the exponential-histogram shape: whenever more than
// MergeThreshold consecutive sealed buckets share a size, the two oldest
// in the run are merged, and the scan restarts until no run violates the
// bound.
func (c *CutPointDetector) mergeRuns() {
	for {
		merged := false
		start := 0
		for start < len(c.buckets) {
			end := start
			for end+1 < len(c.buckets) && c.buckets[end+1].size() == c.buckets[start].size() {
				end++
			}
			if end-start+1 > c.cfg.MergeThreshold {
				c.buckets[start].append(c.buckets[start+1])
				c.buckets = append(c.buckets[:start+1], c.buckets[start+2:]...)
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

// findCut returns the first bucket index at which some item's occurrence
// rate on the two sides differs enough for the Hoeffding bound to reject
// equality, or -1 when no such cut exists.
func (c *CutPointDetector) findCut() int {
	for cut := 1; cut < len(c.buckets); cut++ {
		prevCount, prevN := sideCounts(c.buckets[:cut])
		currCount, currN := sideCounts(c.buckets[cut:])
		if prevN < c.cfg.MinCutLen || currN < c.cfg.MinCutLen {
			continue
		}
		for it, count := range currCount {
			prevRate := float64(prevCount[it]) / float64(prevN)
			currRate := float64(count) / float64(currN)
			if !drift.HoeffdingBound(prevRate, prevN, currRate, currN, c.cfg.CutConfidence) {
				return cut
			}
		}
		for it, count := range prevCount {
			if _, seen := currCount[it]; seen {
				continue
			}
			prevRate := float64(count) / float64(prevN)
			if !drift.HoeffdingBound(prevRate, prevN, 0, currN, c.cfg.CutConfidence) {
				return cut
			}
		}
	}
	return -1
}

func sideCounts(buckets []*localBucket) (map[item.Item]int, int) {
	counts := make(map[item.Item]int)
	n := 0
	for _, b := range buckets {
		n += b.size()
		for it, c := range b.itemCount {
			counts[it] += c
		}
	}
	return counts, n
}

// NumBuckets returns the number of sealed buckets currently held.
func (c *CutPointDetector) NumBuckets() int { return len(c.buckets) }

// DetectLocalDrift feeds transactions through a LocalDriftBucketList,
// calling onLocalDrift(cutIndex) and truncating the bucket list's prefix
// up to that cut every time local drift is found. localCut is an
// absolute item-count delta threshold, not a fraction.
func DetectLocalDrift(
	transactions <-chan []item.Item,
	localCut int,
	maxCapacity int,
	onLocalDrift func(cutIndex int),
) {
	buckets := NewLocalDriftBucketList(maxCapacity)
	for transaction := range transactions {
		buckets.Add(transaction)
		if cut := FindLocalDrift(buckets, localCut); cut >= 0 {
			if onLocalDrift != nil {
				onLocalDrift(cut)
			}
			buckets.Truncate(cut)
		}
	}
}
