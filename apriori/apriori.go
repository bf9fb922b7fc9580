// Package apriori implements a naive Apriori itemset miner and the
// inverted-index support structure it runs over. It exists solely as a
// test oracle for the FP-Growth implementation in package fptree; it is
// not on the streaming hot path.
package apriori

import (
	"github.com/cpearce/prochange/item"
)

// InvertedIndex maps each item to the set of transaction indices it
// appears in, and answers support queries by posting-list intersection.
type InvertedIndex struct {
	postings        map[item.Item]map[int]struct{}
	numTransactions int
}

// New returns an empty InvertedIndex.
func New() *InvertedIndex {
	return &InvertedIndex{postings: make(map[item.Item]map[int]struct{})}
}

// Add appends one transaction (a de-duplicated set of items) to the index.
func (idx *InvertedIndex) Add(transaction item.ItemSet) {
	idx.numTransactions++
	for it := range transaction {
		if idx.postings[it] == nil {
			idx.postings[it] = make(map[int]struct{})
		}
		idx.postings[it][idx.numTransactions] = struct{}{}
	}
}

// Load adds every transaction in transactions to the index.
func (idx *InvertedIndex) Load(transactions []item.ItemSet) {
	for _, t := range transactions {
		idx.Add(t)
	}
}

// Items returns the distinct items seen by the index, in unspecified
// order.
func (idx *InvertedIndex) Items() []item.Item {
	out := make([]item.Item, 0, len(idx.postings))
	for it := range idx.postings {
		out = append(out, it)
	}
	return out
}

// NumTransactions returns the number of transactions added to the index.
func (idx *InvertedIndex) NumTransactions() int { return idx.numTransactions }

// Support returns |intersection of postings for itemset| / numTransactions.
func (idx *InvertedIndex) Support(itemset item.ItemSet) float64 {
	items := itemset.Slice()
	if len(items) == 0 {
		return 0
	}
	var inter map[int]struct{}
	for i, it := range items {
		postings := idx.postings[it]
		if i == 0 {
			inter = make(map[int]struct{}, len(postings))
			for k := range postings {
				inter[k] = struct{}{}
			}
			continue
		}
		next := make(map[int]struct{})
		for k := range inter {
			if _, ok := postings[k]; ok {
				next[k] = struct{}{}
			}
		}
		inter = next
	}
	return float64(len(inter)) / float64(idx.numTransactions)
}

// containsAllSubsets reports whether every (k-1)-subset of candidate is a
// member of candidates (the Apriori "all subsets frequent" prune test).
func containsAllSubsets(interner *item.Interner, candidate item.ItemSet, candidates map[string]struct{}) bool {
	for it := range candidate {
		sub := candidate.Minus(item.NewItemSet(it))
		if _, ok := candidates[sub.Key(interner)]; !ok {
			return false
		}
	}
	return true
}

// Apriori runs level-wise frequent itemset mining over idx, returning
// every itemset whose support is >= minSupport: level-0 is frequent
// singletons; each subsequent level's candidates are unions of two
// same-size frequent itemsets differing in exactly one item, retained
// only if every (k-1)-subset is itself frequent and the union's support
// clears minSupport.
func Apriori(interner *item.Interner, idx *InvertedIndex, minSupport float64) []item.ItemSet {
	candidateKeys := make(map[string]struct{})
	candidateSets := make(map[string]item.ItemSet)
	for _, it := range idx.Items() {
		single := item.NewItemSet(it)
		if idx.Support(single) >= minSupport {
			key := single.Key(interner)
			candidateKeys[key] = struct{}{}
			candidateSets[key] = single
		}
	}

	var results []item.ItemSet
	for k := range candidateSets {
		results = append(results, candidateSets[k])
	}

	for len(candidateSets) > 0 {
		generation := make(map[string]item.ItemSet)
		list := make([]item.ItemSet, 0, len(candidateSets))
		for _, s := range candidateSets {
			list = append(list, s)
		}
		for i := range list {
			for j := range list {
				a, b := list[i], list[j]
				diff := a.Minus(b)
				if len(diff) != 1 {
					continue
				}
				union := a.Union(b)
				key := union.Key(interner)
				if _, already := generation[key]; already {
					continue
				}
				if idx.Support(union) >= minSupport && containsAllSubsets(interner, union, candidateKeys) {
					generation[key] = union
				}
			}
		}
		results = append(results, valuesOf(generation)...)
		candidateSets = generation
		candidateKeys = make(map[string]struct{}, len(generation))
		for k := range generation {
			candidateKeys[k] = struct{}{}
		}
	}

	return results
}

func valuesOf(m map[string]item.ItemSet) []item.ItemSet {
	out := make([]item.ItemSet, 0, len(m))
	for _, v := range m {
		out = append(out, v)
	}
	return out
}
