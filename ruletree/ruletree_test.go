package ruletree

import (
	"testing"

	"github.com/cpearce/prochange/item"
)

func TestRecordMatchesCountsRuleHitsAndRagBag(t *testing.T) {
	interner := item.NewInterner()
	a, b, c := interner.Intern("a"), interner.Intern("b"), interner.Intern("c")

	tree := New(interner, 0)
	tree.Insert(item.NewItemSet(a), item.NewItemSet(b))

	tree.RecordMatches(item.NewItemSet(a, b))    // matches a => b
	tree.RecordMatches(item.NewItemSet(a, b, c)) // matches a => b
	tree.RecordMatches(item.NewItemSet(c))       // no rule matches, rag-bag

	if got := tree.MatchCountOf([]item.Item{a}, b); got != 2 {
		t.Fatalf("match count for a => b = %d, want 2", got)
	}
	if got, want := tree.RagBag(), 1.0/3.0; got != want {
		t.Fatalf("RagBag() = %v, want %v", got, want)
	}
	if got := tree.TransactionCount(); got != 3 {
		t.Fatalf("TransactionCount() = %d, want 3", got)
	}
}

func TestRuleMissRatePanicsWithSlidingWindow(t *testing.T) {
	interner := item.NewInterner()
	tree := New(interner, 2)
	defer func() {
		if recover() == nil {
			t.Fatalf("expected RuleMissRate to panic for a sliding-window tree")
		}
	}()
	tree.RuleMissRate()
}

func TestRuleMissRateReflectsRagBagFraction(t *testing.T) {
	interner := item.NewInterner()
	a, b, c := interner.Intern("a"), interner.Intern("b"), interner.Intern("c")
	tree := New(interner, 0)
	tree.Insert(item.NewItemSet(a), item.NewItemSet(b))

	tree.RecordMatches(item.NewItemSet(a, b))
	tree.RecordMatches(item.NewItemSet(c))

	mean, n := tree.RuleMissRate()
	if n != 2 {
		t.Fatalf("RuleMissRate n = %d, want 2", n)
	}
	if got, want := mean, 0.5; got != want {
		t.Fatalf("RuleMissRate mean = %v, want %v", got, want)
	}
}

func TestSlidingWindowEvictsOldestTransaction(t *testing.T) {
	interner := item.NewInterner()
	a, b := interner.Intern("a"), interner.Intern("b")
	tree := New(interner, 2)
	tree.Insert(item.NewItemSet(a), item.NewItemSet(b))

	tree.RecordMatches(item.NewItemSet(a, b))
	tree.RecordMatches(item.NewItemSet(a))
	tree.RecordMatches(item.NewItemSet(a))

	if got := tree.TransactionCount(); got != 2 {
		t.Fatalf("TransactionCount() = %d, want 2 (oldest should have been evicted)", got)
	}
	if got := tree.MatchCountOf([]item.Item{a}, b); got != 0 {
		t.Fatalf("match count for a => b = %d, want 0 once the matching transaction ages out", got)
	}
}

func TestCloneForTestResetsCountersButKeepsTopology(t *testing.T) {
	interner := item.NewInterner()
	a, b := interner.Intern("a"), interner.Intern("b")
	tree := New(interner, 0)
	tree.Insert(item.NewItemSet(a), item.NewItemSet(b))
	tree.RecordMatches(item.NewItemSet(a, b))

	clone := tree.CloneForTest()
	if clone.IsEmpty() {
		t.Fatalf("clone should retain the original rule topology")
	}
	if got := clone.MatchCountOf([]item.Item{a}, b); got != 0 {
		t.Fatalf("clone match count = %d, want 0", got)
	}
	if got := clone.TransactionCount(); got != 0 {
		t.Fatalf("clone transaction count = %d, want 0", got)
	}
}

func TestTakeAndAddMatchesMergesAndClearsOther(t *testing.T) {
	interner := item.NewInterner()
	a, b := interner.Intern("a"), interner.Intern("b")

	dst := New(interner, 0)
	dst.Insert(item.NewItemSet(a), item.NewItemSet(b))
	dst.RecordMatches(item.NewItemSet(a, b))

	src := New(interner, 0)
	src.Insert(item.NewItemSet(a), item.NewItemSet(b))
	src.RecordMatches(item.NewItemSet(a, b))
	src.RecordMatches(item.NewItemSet(a, b))

	dst.TakeAndAddMatches(src)

	if got := dst.MatchCountOf([]item.Item{a}, b); got != 3 {
		t.Fatalf("merged match count = %d, want 3", got)
	}
	if got := dst.TransactionCount(); got != 3 {
		t.Fatalf("merged transaction count = %d, want 3", got)
	}
	if got := src.TransactionCount(); got != 0 {
		t.Fatalf("source tree should be cleared after TakeAndAddMatches, got transaction count %d", got)
	}
}

func TestMatchVectorIsStableAcrossEquivalentTrees(t *testing.T) {
	interner := item.NewInterner()
	a, b, c := interner.Intern("a"), interner.Intern("b"), interner.Intern("c")

	t1 := New(interner, 0)
	t1.Insert(item.NewItemSet(a), item.NewItemSet(b))
	t1.Insert(item.NewItemSet(a, b), item.NewItemSet(c))

	t2 := t1.CloneForTest()

	t1.RecordMatches(item.NewItemSet(a, b))
	t2.RecordMatches(item.NewItemSet(a, b))

	v1, v2 := t1.MatchVector(), t2.MatchVector()
	if len(v1) != len(v2) {
		t.Fatalf("match vector lengths differ: %d vs %d", len(v1), len(v2))
	}
	for i := range v1 {
		if v1[i] != v2[i] {
			t.Fatalf("match vectors diverge at index %d: %v vs %v", i, v1, v2)
		}
	}
}

func TestInsertRejectsEmptyAntecedentOrMultiItemConsequent(t *testing.T) {
	interner := item.NewInterner()
	a, b := interner.Intern("a"), interner.Intern("b")
	tree := New(interner, 0)

	func() {
		defer func() {
			if recover() == nil {
				t.Errorf("expected Insert to panic on an empty antecedent")
			}
		}()
		tree.Insert(item.NewItemSet(), item.NewItemSet(b))
	}()

	func() {
		defer func() {
			if recover() == nil {
				t.Errorf("expected Insert to panic on a multi-item consequent")
			}
		}()
		tree.Insert(item.NewItemSet(a), item.NewItemSet(a, b))
	}()
}
