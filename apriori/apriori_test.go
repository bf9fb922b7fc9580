package apriori

import (
	"testing"

	"github.com/cpearce/prochange/item"
)

func loadDataset(interner *item.Interner, rows [][]string) *InvertedIndex {
	idx := New()
	for _, row := range rows {
		items := make([]item.Item, len(row))
		for i, name := range row {
			items[i] = interner.Intern(name)
		}
		idx.Add(item.NewItemSet(items...))
	}
	return idx
}

func sixTransactionDataset() [][]string {
	return [][]string{
		{"a", "b", "c", "d", "e", "f"},
		{"g", "h", "i", "j", "k", "l"},
		{"z", "x"},
		{"z", "x"},
		{"z", "x", "y"},
		{"z", "x", "y", "i"},
	}
}

func TestSupportMatchesSixTransactionDataset(t *testing.T) {
	interner := item.NewInterner()
	idx := loadDataset(interner, sixTransactionDataset())

	z, x, y := interner.Intern("z"), interner.Intern("x"), interner.Intern("y")
	i := interner.Intern("i")

	if got, want := idx.Support(item.NewItemSet(z, x, y)), 2.0/6.0; got != want {
		t.Fatalf("support({z,x,y}) = %v, want %v", got, want)
	}
	if got, want := idx.Support(item.NewItemSet(i)), 2.0/6.0; got != want {
		t.Fatalf("support({i}) = %v, want %v", got, want)
	}
	if got, want := idx.Support(item.NewItemSet(z, x)), 4.0/6.0; got != want {
		t.Fatalf("support({z,x}) = %v, want %v", got, want)
	}
}

func TestAprioriFindsFrequentItemsetsAboveMinSupport(t *testing.T) {
	interner := item.NewInterner()
	idx := loadDataset(interner, sixTransactionDataset())

	results := Apriori(interner, idx, 2.0/6.0)

	keys := make(map[string]struct{}, len(results))
	for _, is := range results {
		keys[is.Key(interner)] = struct{}{}
	}

	for _, want := range []string{"i", "x", "y", "z", "x,y", "x,z", "y,z", "x,y,z"} {
		if _, ok := keys[want]; !ok {
			t.Errorf("expected frequent itemset %q in Apriori output, got %v", want, keys)
		}
	}

	for _, absent := range []string{"a", "b", "g", "h"} {
		if _, ok := keys[absent]; ok {
			t.Errorf("itemset %q has support 1/6 and should not be frequent", absent)
		}
	}
}

func TestAprioriEmptyDatasetYieldsNoItemsets(t *testing.T) {
	interner := item.NewInterner()
	idx := New()
	results := Apriori(interner, idx, 0.5)
	if len(results) != 0 {
		t.Fatalf("expected no itemsets from an empty index, got %d", len(results))
	}
}

func TestInvertedIndexSupportOfUnseenItemIsZero(t *testing.T) {
	interner := item.NewInterner()
	idx := loadDataset(interner, sixTransactionDataset())
	unseen := interner.Intern("unseen")
	if got := idx.Support(item.NewItemSet(unseen)); got != 0 {
		t.Fatalf("support of an unseen item = %v, want 0", got)
	}
}
