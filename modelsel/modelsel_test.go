package modelsel

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncodeSortedCodes(t *testing.T) {
	got := Encode([]string{"Üsküdar", "Kadıköy", "Üsküdar", "Beşiktaş"})
	// Sorted label order: Beşiktaş < Kadıköy < Üsküdar.
	assert.Equal(t, []int{2, 1, 2, 0}, got)
}

func TestQuantileLabels(t *testing.T) {
	y := []float64{10, 20, 30, 40, 50, 60, 70, 80, 90, 100}
	labels := QuantileLabels(y, 5)
	require.Len(t, labels, len(y))

	// Five bins of two values each.
	counts := map[int]int{}
	for _, l := range labels {
		counts[l]++
	}
	assert.Len(t, counts, 5)
	for l, c := range counts {
		assert.Equal(t, 2, c, "bin %d", l)
	}

	// Labels are monotone in y.
	for i := 1; i < len(y); i++ {
		assert.GreaterOrEqual(t, labels[i], labels[i-1])
	}
}

func TestQuantileLabelsCollapsesDuplicateEdges(t *testing.T) {
	y := []float64{5, 5, 5, 5, 5, 5, 5, 5, 100, 200}
	labels := QuantileLabels(y, 5)
	seen := map[int]bool{}
	for _, l := range labels {
		seen[l] = true
	}
	assert.LessOrEqual(t, len(seen), 5)
	assert.Equal(t, labels[0], labels[7]) // identical values share a bin
}

func TestStratifiedKFold(t *testing.T) {
	labels := make([]int, 30)
	for i := range labels {
		labels[i] = i % 3
	}

	folds := StratifiedKFold{NSplits: 5, Shuffle: true, Seed: 42}.Split(labels)
	require.Len(t, folds, 5)

	seen := make([]bool, len(labels))
	for _, f := range folds {
		assert.Len(t, f.Test, 6)
		assert.Len(t, f.Train, 24)
		for _, i := range f.Test {
			assert.False(t, seen[i], "row %d in two test folds", i)
			seen[i] = true
		}

		// Each label keeps its share within the fold.
		counts := map[int]int{}
		for _, i := range f.Test {
			counts[labels[i]]++
		}
		for l, c := range counts {
			assert.Equal(t, 2, c, "label %d", l)
		}
	}
	for i, s := range seen {
		assert.True(t, s, "row %d never tested", i)
	}
}

func TestStratifiedKFoldDeterminism(t *testing.T) {
	labels := []int{0, 0, 0, 0, 1, 1, 1, 1, 2, 2, 2, 2}
	a := StratifiedKFold{NSplits: 3, Shuffle: true, Seed: 7}.Split(labels)
	b := StratifiedKFold{NSplits: 3, Shuffle: true, Seed: 7}.Split(labels)
	assert.Equal(t, a, b)
}

func TestStratifiedSplit(t *testing.T) {
	labels := make([]int, 40)
	for i := range labels {
		labels[i] = i % 2
	}

	train, test := StratifiedSplit(labels, 0.25, 42)
	assert.Len(t, test, 10)
	assert.Len(t, train, 30)

	// Partition: every row in exactly one side.
	seen := make(map[int]int)
	for _, i := range train {
		seen[i]++
	}
	for _, i := range test {
		seen[i]++
	}
	require.Len(t, seen, 40)
	for i, c := range seen {
		assert.Equal(t, 1, c, "row %d", i)
	}

	// Both labels represented proportionally in the test set.
	counts := map[int]int{}
	for _, i := range test {
		counts[labels[i]]++
	}
	assert.Equal(t, 5, counts[0])
	assert.Equal(t, 5, counts[1])
}

func TestStratifiedSplitSmallGroupGetsOneTestRow(t *testing.T) {
	labels := []int{0, 0, 0, 0, 0, 0, 0, 0, 1, 1}
	_, test := StratifiedSplit(labels, 0.1, 1)
	counts := map[int]int{}
	for _, i := range test {
		counts[labels[i]]++
	}
	assert.Equal(t, 1, counts[0])
	assert.Equal(t, 1, counts[1])
}
