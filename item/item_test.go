package item

import "testing"

func TestInternTrimsAndIsStable(t *testing.T) {
	n := NewInterner()
	a := n.Intern("  apple ")
	b := n.Intern("apple")
	if a != b {
		t.Fatalf("expected interning to trim whitespace and collapse to same item")
	}
	if n.Name(a) != "apple" {
		t.Fatalf("expected trimmed name, got %q", n.Name(a))
	}
}

func TestInternMonotonicIDs(t *testing.T) {
	n := NewInterner()
	a := n.Intern("a")
	b := n.Intern("b")
	c := n.Intern("a")
	if a.ID() != c.ID() {
		t.Fatalf("re-interning same name must return same id")
	}
	if a.ID() == b.ID() {
		t.Fatalf("distinct names must get distinct ids")
	}
}

func TestItemSetEqualityByMembership(t *testing.T) {
	n := NewInterner()
	a, b, c := n.Intern("a"), n.Intern("b"), n.Intern("c")
	s1 := NewItemSet(a, b, c)
	s2 := NewItemSet(c, b, a)
	if s1.Key(n) != s2.Key(n) {
		t.Fatalf("itemsets with same members in different order must have equal key")
	}
}

func TestItemSetUnionMinus(t *testing.T) {
	n := NewInterner()
	a, b, c := n.Intern("a"), n.Intern("b"), n.Intern("c")
	ab := NewItemSet(a, b)
	bc := NewItemSet(b, c)
	u := ab.Union(bc)
	if len(u) != 3 {
		t.Fatalf("expected union of size 3, got %d", len(u))
	}
	m := ab.Minus(NewItemSet(b))
	if len(m) != 1 || !m.Contains(a) {
		t.Fatalf("expected minus to leave only a")
	}
}

func TestSortItemsDeterministicTiebreak(t *testing.T) {
	n := NewInterner()
	c, a, b := n.Intern("c"), n.Intern("a"), n.Intern("b")
	items := []Item{c, a, b}
	n.SortItems(items)
	got := []string{n.Name(items[0]), n.Name(items[1]), n.Name(items[2])}
	want := []string{"a", "b", "c"}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("expected sorted order %v, got %v", want, got)
		}
	}
}
