package volatility

import (
	lru "github.com/hashicorp/golang-lru/v2"
)

// PatternNetwork clusters observed inter-drift intervals into Patterns
// and records a transition count between consecutively-hit patterns, so
// that future drift timing can be predicted from the pattern most
// recently hit.
//
// The pattern set itself is capacity-bounded via an LRU cache (keyed by
// pattern id); the eviction callback removes the evicted pattern's
// inbound transition edges from every surviving pattern.
type PatternNetwork struct {
	lastDriftTransactionNum int
	patterns                *lru.Cache[int, *Pattern]
	nextPatternID           int
	lastDriftPatternID      int
	hasLastDriftPattern     bool
}

// NewPatternNetwork returns an empty PatternNetwork.
func NewPatternNetwork() *PatternNetwork {
	n := &PatternNetwork{nextPatternID: 1}
	cache, err := lru.NewWithEvict[int, *Pattern](MaxPatternSetSize, func(evictedID int, _ *Pattern) {
		n.removeConnectionsTo(evictedID)
	})
	if err != nil {
		panic("volatility: failed to construct pattern LRU: " + err.Error())
	}
	n.patterns = cache
	return n
}

func (n *PatternNetwork) removeConnectionsTo(id int) {
	for _, key := range n.patterns.Keys() {
		if p, ok := n.patterns.Peek(key); ok {
			delete(p.connections, id)
		}
	}
}

// Add records a new drift at transactionNum: computes the interval since
// the last recorded drift, assigns it to the most similar existing
// pattern (or starts a new pattern if none is similar enough), and
// updates the transition edge from the previously hit pattern.
func (n *PatternNetwork) Add(transactionNum int) {
	driftInterval := float64(transactionNum - n.lastDriftTransactionNum)
	n.lastDriftTransactionNum = transactionNum

	var maxPVal float64
	var maxPValID int
	for _, id := range n.patterns.Keys() {
		p, ok := n.patterns.Peek(id)
		if !ok {
			continue
		}
		pVal := p.Similarity(driftInterval)
		if pVal > maxPVal {
			maxPVal = pVal
			maxPValID = id
		}
	}

	var id int
	if maxPVal > SimilarityTestConfidence {
		id = maxPValID
	} else {
		id = n.nextPatternID
		n.nextPatternID++
		n.patterns.Add(id, newPattern(id))
	}

	p, _ := n.patterns.Get(id) // Get (not Peek) to mark this pattern as recently used.
	p.AddSample(driftInterval)

	if n.hasLastDriftPattern {
		if prev, ok := n.patterns.Peek(n.lastDriftPatternID); ok {
			prev.connections[id]++
		}
	}
	n.lastDriftPatternID = id
	n.hasLastDriftPattern = true
	p.lastHitTransaction = transactionNum
}

// expectedDrift pairs a predicted future drift position with the pattern
// interval that produced it.
type expectedDrift struct {
	position int
	interval float64
}

// LikelyConnectionsAt returns up to numConnections predicted future drift
// points, derived from the sampleSize most common transitions out of the
// most-recently-hit pattern, ordered by proximity to transactionNum.
func (n *PatternNetwork) LikelyConnectionsAt(sampleSize, numConnections, transactionNum int) []expectedDrift {
	if !n.hasLastDriftPattern {
		return nil
	}
	last, ok := n.patterns.Peek(n.lastDriftPatternID)
	if !ok || len(last.connections) == 0 {
		return nil
	}

	ids := last.mostCommonConnections(sampleSize)
	type distanced struct {
		distance int
		drift    expectedDrift
	}
	var candidates []distanced
	for _, id := range ids {
		p, ok := n.patterns.Peek(id)
		if !ok {
			continue
		}
		interval := p.Mean()
		position := n.lastDriftTransactionNum + int(interval)
		distance := transactionNum - position
		if distance < 0 {
			distance = -distance
		}
		candidates = append(candidates, distanced{distance, expectedDrift{position, interval}})
	}
	if len(candidates) == 0 {
		return nil
	}
	// Stable insertion sort by distance, preserving the original order
	// among equal distances.
	for i := 1; i < len(candidates); i++ {
		for j := i; j > 0 && candidates[j].distance < candidates[j-1].distance; j-- {
			candidates[j], candidates[j-1] = candidates[j-1], candidates[j]
		}
	}
	if len(candidates) > numConnections {
		candidates = candidates[:numConnections]
	}
	out := make([]expectedDrift, len(candidates))
	for i, c := range candidates {
		out[i] = c.drift
	}
	return out
}
