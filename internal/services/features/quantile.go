package features

import (
	"fmt"
	"math"
	"math/bits"
	"sort"

	"CandleScan/internal/domain/models"
)

// ExpandingQuantile returns, for every index i, the p-quantile of values[0..i].
// The quantile is the linear interpolation at rank (n-1)*p of the sorted
// prefix, so the value at i never depends on later elements.
func ExpandingQuantile(values []float64, p float64) ([]float64, error) {
	out, err := ExpandingQuantiles(values, p)
	if err != nil {
		return nil, err
	}
	return out[0], nil
}

// ExpandingQuantiles computes several levels in one pass. out[j][i] is the
// levels[j]-quantile of values[0..i].
//
// Prefix order statistics are kept in a Fenwick tree over the compressed
// value domain, which makes each level O(n log n).
func ExpandingQuantiles(values []float64, levels ...float64) ([][]float64, error) {
	for _, p := range levels {
		if math.IsNaN(p) || p < 0 || p > 1 {
			return nil, fmt.Errorf("%w: %v", models.ErrInvalidQuantile, p)
		}
	}
	for i, v := range values {
		if math.IsNaN(v) {
			return nil, fmt.Errorf("%w at index %d", models.ErrNaNValue, i)
		}
	}
	out := make([][]float64, len(levels))
	for j := range out {
		out[j] = make([]float64, len(values))
	}
	if len(values) == 0 {
		return out, nil
	}

	domain := uniqueSorted(values)
	tree := newFenwick(len(domain))
	for i, v := range values {
		tree.add(sort.SearchFloat64s(domain, v), 1)
		n := i + 1
		for j, p := range levels {
			h := float64(n-1) * p
			lo := math.Floor(h)
			hi := math.Ceil(h)
			vlo := domain[tree.kth(int(lo)+1)]
			if hi == lo {
				out[j][i] = vlo
				continue
			}
			vhi := domain[tree.kth(int(hi)+1)]
			out[j][i] = vlo + (vhi-vlo)*(h-lo)
		}
	}
	return out, nil
}

func uniqueSorted(values []float64) []float64 {
	s := make([]float64, len(values))
	copy(s, values)
	sort.Float64s(s)
	u := s[:0]
	for i, v := range s {
		if i == 0 || v != s[i-1] {
			u = append(u, v)
		}
	}
	return u
}

// fenwick counts occurrences per compressed rank.
type fenwick struct {
	tree []int
	step int
}

func newFenwick(n int) *fenwick {
	step := 0
	if n > 0 {
		step = 1 << (bits.Len(uint(n)) - 1)
	}
	return &fenwick{tree: make([]int, n+1), step: step}
}

func (f *fenwick) add(rank, delta int) {
	for i := rank + 1; i < len(f.tree); i += i & -i {
		f.tree[i] += delta
	}
}

// kth returns the 0-based rank holding the k-th smallest element (k >= 1).
func (f *fenwick) kth(k int) int {
	pos := 0
	for step := f.step; step > 0; step >>= 1 {
		next := pos + step
		if next < len(f.tree) && f.tree[next] < k {
			pos = next
			k -= f.tree[next]
		}
	}
	return pos
}
