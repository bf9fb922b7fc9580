package rules

import (
	"testing"

	"github.com/cpearce/prochange/fptree"
	"github.com/cpearce/prochange/item"
)

func sixTransactionDataset(interner *item.Interner) [][]item.Item {
	rows := [][]string{
		{"a", "b", "c", "d", "e", "f"},
		{"g", "h", "i", "j", "k", "l"},
		{"z", "x"},
		{"z", "x"},
		{"z", "x", "y"},
		{"z", "x", "y", "i"},
	}
	out := make([][]item.Item, len(rows))
	for i, row := range rows {
		txn := make([]item.Item, len(row))
		for j, name := range row {
			txn[j] = interner.Intern(name)
		}
		out[i] = txn
	}
	return out
}

func TestGenerateRulesXYImpliesZ(t *testing.T) {
	interner := item.NewInterner()
	transactions := sixTransactionDataset(interner)
	itemsets, counts, numTransactions := fptree.MineTransactions(interner, transactions, 0, false)

	generated := GenerateRules(interner, itemsets, counts, numTransactions, 0, 0)

	x, y, z := interner.Intern("x"), interner.Intern("y"), interner.Intern("z")
	var found *Rule
	for i := range generated {
		r := &generated[i]
		if len(r.Antecedent) == 2 && r.Antecedent.Contains(x) && r.Antecedent.Contains(y) &&
			len(r.Consequent) == 1 && r.Consequent.Contains(z) {
			found = r
			break
		}
	}
	if found == nil {
		t.Fatalf("expected rule {x,y} => {z} in %d generated rules", len(generated))
	}
	if found.Confidence != 1 {
		t.Errorf("confidence = %v, want 1", found.Confidence)
	}
	if found.Lift != 1.5 {
		t.Errorf("lift = %v, want 1.5", found.Lift)
	}
	if got, want := found.Support, 1.0/3.0; got != want {
		t.Errorf("support = %v, want %v", got, want)
	}
}

func TestGenerateRulesFiltersByMinConfidenceAndMinLift(t *testing.T) {
	interner := item.NewInterner()
	transactions := sixTransactionDataset(interner)
	itemsets, counts, numTransactions := fptree.MineTransactions(interner, transactions, 0, false)

	strict := GenerateRules(interner, itemsets, counts, numTransactions, 0.99, 1.4)
	lenient := GenerateRules(interner, itemsets, counts, numTransactions, 0, 0)

	if len(strict) >= len(lenient) {
		t.Fatalf("expected stricter thresholds to produce fewer rules: strict=%d lenient=%d", len(strict), len(lenient))
	}
	for _, r := range strict {
		if r.Confidence < 0.99 {
			t.Errorf("rule %v has confidence %v below the 0.99 floor", r, r.Confidence)
		}
		if r.Lift < 1.4 {
			t.Errorf("rule %v has lift %v below the 1.4 floor", r, r.Lift)
		}
	}
}

func TestGenerateRulesSkipsSingletonItemsets(t *testing.T) {
	interner := item.NewInterner()
	a := interner.Intern("a")
	itemsets := []item.ItemSet{item.NewItemSet(a)}
	transactions := [][]item.Item{{a}, {a}}
	_, counts, numTransactions := fptree.MineTransactions(interner, transactions, 0, false)

	generated := GenerateRules(interner, itemsets, counts, numTransactions, 0, 0)
	if len(generated) != 0 {
		t.Fatalf("a singleton itemset cannot produce a rule, got %d", len(generated))
	}
}
