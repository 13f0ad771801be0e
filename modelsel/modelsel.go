// Package modelsel provides the data-splitting utilities the pipeline
// relies on for leakage-safe statistics: label encoding, quantile
// discretization of a continuous target, stratified k-fold assignment and
// a stratified train/test split. All randomness is driven by explicit
// seeds through math/rand/v2 PCG sources.
package modelsel

import (
	"math"
	"math/rand/v2"
	"sort"
)

// Fold holds the train and test row indices of one cross-validation fold.
type Fold struct {
	Train []int
	Test  []int
}

// Encode maps string labels to dense integer codes, assigned in sorted
// label order for determinism.
func Encode(labels []string) []int {
	uniq := make(map[string]bool, len(labels))
	for _, l := range labels {
		uniq[l] = true
	}
	names := make([]string, 0, len(uniq))
	for l := range uniq {
		names = append(names, l)
	}
	sort.Strings(names)
	code := make(map[string]int, len(names))
	for i, l := range names {
		code[l] = i
	}
	out := make([]int, len(labels))
	for i, l := range labels {
		out[i] = code[l]
	}
	return out
}

// QuantileLabels discretizes y into at most q quantile bins, returning a
// 0-based bin label per value. Duplicate bin edges are collapsed, so fewer
// than q distinct labels may result.
func QuantileLabels(y []float64, q int) []int {
	sorted := append([]float64(nil), y...)
	sort.Float64s(sorted)
	edges := make([]float64, 0, q-1)
	for i := 1; i < q; i++ {
		p := float64(i) / float64(q)
		h := p * float64(len(sorted)-1)
		lo := int(math.Floor(h))
		v := sorted[lo]
		if lo+1 < len(sorted) {
			v += (h - float64(lo)) * (sorted[lo+1] - sorted[lo])
		}
		if len(edges) == 0 || v > edges[len(edges)-1] {
			edges = append(edges, v)
		}
	}
	out := make([]int, len(y))
	for i, v := range y {
		out[i] = sort.SearchFloat64s(edges, v)
		if out[i] < len(edges) && v == edges[out[i]] {
			out[i]++ // right-closed bins, as the quantile cut convention
		}
	}
	return out
}

// StratifiedKFold assigns rows to k folds keeping each label's share of
// rows balanced across folds.
type StratifiedKFold struct {
	NSplits int
	Shuffle bool
	Seed    uint64
}

// Split produces the folds for the given per-row labels.
func (s StratifiedKFold) Split(labels []int) []Fold {
	k := s.NSplits
	if k < 2 {
		k = 2
	}
	byLabel := groupByLabel(labels)
	assignment := make([]int, len(labels))
	rng := rand.New(rand.NewPCG(s.Seed, s.Seed+1))
	next := 0
	for _, idxs := range byLabel {
		if s.Shuffle {
			rng.Shuffle(len(idxs), func(i, j int) { idxs[i], idxs[j] = idxs[j], idxs[i] })
		}
		for _, idx := range idxs {
			assignment[idx] = next % k
			next++
		}
	}
	folds := make([]Fold, k)
	for i := range labels {
		f := assignment[i]
		for j := 0; j < k; j++ {
			if j == f {
				folds[j].Test = append(folds[j].Test, i)
			} else {
				folds[j].Train = append(folds[j].Train, i)
			}
		}
	}
	return folds
}

// StratifiedSplit partitions rows into train and test sets of roughly
// (1-testSize)/testSize proportions within every label group. The returned
// index slices are sorted.
func StratifiedSplit(labels []int, testSize float64, seed uint64) (train, test []int) {
	rng := rand.New(rand.NewPCG(seed, seed+1))
	for _, idxs := range groupByLabel(labels) {
		rng.Shuffle(len(idxs), func(i, j int) { idxs[i], idxs[j] = idxs[j], idxs[i] })
		nTest := int(math.Round(float64(len(idxs)) * testSize))
		if nTest == 0 && len(idxs) > 1 {
			nTest = 1
		}
		test = append(test, idxs[:nTest]...)
		train = append(train, idxs[nTest:]...)
	}
	sort.Ints(train)
	sort.Ints(test)
	return train, test
}

// groupByLabel returns per-label index slices ordered by label code.
func groupByLabel(labels []int) [][]int {
	byLabel := make(map[int][]int)
	for i, l := range labels {
		byLabel[l] = append(byLabel[l], i)
	}
	codes := make([]int, 0, len(byLabel))
	for c := range byLabel {
		codes = append(codes, c)
	}
	sort.Ints(codes)
	out := make([][]int, 0, len(codes))
	for _, c := range codes {
		out = append(out, byLabel[c])
	}
	return out
}
