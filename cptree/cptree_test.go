package cptree

import (
	"testing"

	"github.com/cpearce/prochange/item"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func txn(interner *item.Interner, names ...string) []item.Item {
	out := make([]item.Item, len(names))
	for i, n := range names {
		out[i] = interner.Intern(n)
	}
	return out
}

func TestMinerMinesAtWindowBoundary(t *testing.T) {
	interner := item.NewInterner()
	m := New(interner, 0.5, 2, 4)

	var results []*Result
	stream := [][]string{
		{"a", "b"}, {"a"}, {"a", "b"}, {"a"},
		{"b"}, {"b"}, {"b"}, {"b"},
	}
	for _, s := range stream {
		if r := m.Add(txn(interner, s...)); r != nil {
			results = append(results, r)
		}
	}
	require.Len(t, results, 2)
	assert.Equal(t, 4, results[0].WindowLength)
	assert.Equal(t, 1, results[0].WindowStart)
	assert.Equal(t, 4, results[1].WindowLength)
	assert.Equal(t, 5, results[1].WindowStart)
}

func TestMinerWindowSizeNeverExceedsConfigured(t *testing.T) {
	interner := item.NewInterner()
	m := New(interner, 0.1, 3, 5)
	for i := 0; i < 23; i++ {
		m.Add(txn(interner, "a", "b", "c"))
		require.LessOrEqual(t, m.WindowLength(), 5)
	}
}

func TestFlushMinesTrailingPartialWindow(t *testing.T) {
	interner := item.NewInterner()
	m := New(interner, 0.1, 10, 10)
	for i := 0; i < 7; i++ {
		m.Add(txn(interner, "a"))
	}
	// Not a window boundary (7 % 10 != 0): Add never returned a result.
	r := m.Flush()
	require.NotNil(t, r)
	assert.Equal(t, 7, r.WindowLength)
}

func TestFlushIsNilWhenLastAddAlreadyMined(t *testing.T) {
	interner := item.NewInterner()
	m := New(interner, 0.1, 2, 2)
	var last *Result
	for i := 0; i < 4; i++ {
		last = m.Add(txn(interner, "a"))
	}
	require.NotNil(t, last)
	assert.Nil(t, m.Flush())
}

func TestMinerFindsExpectedFrequentItemsets(t *testing.T) {
	interner := item.NewInterner()
	m := New(interner, 0.4, 4, 4)

	var result *Result
	stream := [][]string{
		{"bread", "milk"},
		{"bread", "diapers", "beer", "eggs"},
		{"milk", "diapers", "beer", "cola"},
		{"bread", "milk", "diapers", "beer"},
	}
	for _, s := range stream {
		if r := m.Add(txn(interner, s...)); r != nil {
			result = r
		}
	}
	require.NotNil(t, result)

	bread := interner.Intern("bread")
	milk := interner.Intern("milk")
	diapers := interner.Intern("diapers")
	beer := interner.Intern("beer")

	found := func(is item.ItemSet) bool {
		for _, out := range result.Itemsets {
			if len(out) != len(is) {
				continue
			}
			match := true
			for it := range is {
				if !out.Contains(it) {
					match = false
					break
				}
			}
			if match {
				return true
			}
		}
		return false
	}

	assert.True(t, found(item.NewItemSet(bread)))
	assert.True(t, found(item.NewItemSet(milk)))
	assert.True(t, found(item.NewItemSet(diapers)))
	assert.True(t, found(item.NewItemSet(beer)))
	assert.True(t, found(item.NewItemSet(diapers, beer)))
}
