package dataset

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/cpearce/prochange/fptree"
	"github.com/cpearce/prochange/item"
	"github.com/cpearce/prochange/rules"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeTempCSV(t *testing.T, contents string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "transactions.csv")
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o644))
	return path
}

func TestReadTransactionsDedupsAndTrims(t *testing.T) {
	interner := item.NewInterner()
	path := writeTempCSV(t, "bread,milk,bread\nmilk, diapers\n")

	got, err := ReadTransactions(interner, path)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Len(t, got[0], 2) // bread, milk (dedup'd)
	assert.Len(t, got[1], 2) // milk, diapers
}

func TestReadTransactionsSkipsBlankLines(t *testing.T) {
	interner := item.NewInterner()
	path := writeTempCSV(t, "a,b\n\nc,d\n")

	got, err := ReadTransactions(interner, path)
	require.NoError(t, err)
	require.Len(t, got, 2)
}

func TestCountItemFrequencyTalliesItemsAndTransactions(t *testing.T) {
	interner := item.NewInterner()
	path := writeTempCSV(t, "a,b\na,c\na,b,c\n")

	frequency, numTransactions, err := CountItemFrequency(interner, path)
	require.NoError(t, err)
	assert.Equal(t, 3, numTransactions)
	assert.Equal(t, 3, frequency[interner.Intern("a")])
	assert.Equal(t, 2, frequency[interner.Intern("b")])
	assert.Equal(t, 2, frequency[interner.Intern("c")])
}

func TestWriteItemsetsAndRulesProduceExpectedHeaders(t *testing.T) {
	interner := item.NewInterner()
	a := interner.Intern("a")
	b := interner.Intern("b")

	itemsets := []item.ItemSet{item.NewItemSet(a, b)}
	transactions := [][]item.Item{{a, b}, {a, b}}
	_, counts, numTransactions := fptree.MineTransactions(interner, transactions, 0.5, false)

	itemsetsPath := filepath.Join(t.TempDir(), "itemsets.csv")
	require.NoError(t, WriteItemsets(interner, itemsets, counts, numTransactions, itemsetsPath))
	content, err := os.ReadFile(itemsetsPath)
	require.NoError(t, err)
	assert.Contains(t, string(content), "Itemset,Support")
	assert.Contains(t, string(content), "a b,1.000000")

	rulesPath := filepath.Join(t.TempDir(), "rules.csv")
	rs := []rules.Rule{{
		Antecedent: item.NewItemSet(a),
		Consequent: item.NewItemSet(b),
		Confidence: 1.0,
		Lift:       1.0,
		Support:    1.0,
	}}
	require.NoError(t, WriteRules(interner, rs, rulesPath))
	rulesContent, err := os.ReadFile(rulesPath)
	require.NoError(t, err)
	assert.Contains(t, string(rulesContent), "Antecedent->Consequent,Confidence,Lift,Support")
	assert.Contains(t, string(rulesContent), "a -> b,1.0000,1.0000,1.0000")
}
