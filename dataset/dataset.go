// Package dataset reads CSV transaction files into interned itemsets and
// writes mined itemsets and rules back out as CSV.
package dataset

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/pkg/errors"

	"github.com/cpearce/prochange/fptree"
	"github.com/cpearce/prochange/item"
	"github.com/cpearce/prochange/rules"
)

// ReadTransactions reads a CSV file of comma-separated item names, one
// transaction per line, interning every item with interner and
// de-duplicating each line into a set.
func ReadTransactions(interner *item.Interner, path string) ([][]item.Item, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, "dataset: opening %q", path)
	}
	defer file.Close()

	var out [][]item.Item
	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := scanner.Text()
		if strings.TrimSpace(line) == "" {
			continue
		}
		fields := strings.Split(line, ",")
		seen := make(map[item.Item]struct{}, len(fields))
		var txn []item.Item
		for _, f := range fields {
			it := interner.Intern(f)
			if _, dup := seen[it]; dup {
				continue
			}
			seen[it] = struct{}{}
			txn = append(txn, it)
		}
		out = append(out, txn)
	}
	if err := scanner.Err(); err != nil {
		return nil, errors.Wrapf(err, "dataset: reading %q", path)
	}
	return out, nil
}

// CountItemFrequency reads the dataset once, interning every item and
// tallying its occurrence count, without holding the whole file's
// transactions in memory at once.
func CountItemFrequency(interner *item.Interner, path string) (map[item.Item]int, int, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, 0, errors.Wrapf(err, "dataset: opening %q", path)
	}
	defer file.Close()

	frequency := make(map[item.Item]int)
	numTransactions := 0
	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := scanner.Text()
		if strings.TrimSpace(line) == "" {
			continue
		}
		numTransactions++
		seen := make(map[item.Item]struct{})
		for _, f := range strings.Split(line, ",") {
			it := interner.Intern(f)
			if _, dup := seen[it]; dup {
				continue
			}
			seen[it] = struct{}{}
			frequency[it]++
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, 0, errors.Wrapf(err, "dataset: reading %q", path)
	}
	return frequency, numTransactions, nil
}

// WriteItemsets writes one "itemset,support" line per mined itemset.
func WriteItemsets(interner *item.Interner, itemsets []item.ItemSet, counts *fptree.ItemsetCounts, numTransactions int, path string) error {
	output, err := os.Create(path)
	if err != nil {
		return errors.Wrapf(err, "dataset: creating %q", path)
	}
	defer output.Close()

	w := bufio.NewWriter(output)
	fmt.Fprintln(w, "Itemset,Support")
	n := float64(numTransactions)
	for _, is := range itemsets {
		count, ok := counts.Get(is)
		if !ok {
			return errors.Errorf("dataset: itemset %v missing from support table", is)
		}
		fmt.Fprintf(w, "%s,%f\n", itemsetString(interner, is), float64(count)/n)
	}
	return errors.Wrap(w.Flush(), "dataset: flushing itemsets file")
}

// WriteRules writes one "antecedent -> consequent,confidence,lift,support"
// line per rule.
func WriteRules(interner *item.Interner, rs []rules.Rule, path string) error {
	output, err := os.Create(path)
	if err != nil {
		return errors.Wrapf(err, "dataset: creating %q", path)
	}
	defer output.Close()

	w := bufio.NewWriter(output)
	fmt.Fprintln(w, "Antecedent->Consequent,Confidence,Lift,Support")
	for _, r := range rs {
		fmt.Fprintf(
			w,
			"%s -> %s,%.4f,%.4f,%.4f\n",
			itemsetString(interner, r.Antecedent),
			itemsetString(interner, r.Consequent),
			r.Confidence,
			r.Lift,
			r.Support,
		)
	}
	return errors.Wrap(w.Flush(), "dataset: flushing rules file")
}

func itemsetString(interner *item.Interner, is item.ItemSet) string {
	items := is.Slice()
	interner.SortItems(items)
	names := make([]string, len(items))
	for i, it := range items {
		names[i] = interner.Name(it)
	}
	return strings.Join(names, " ")
}
