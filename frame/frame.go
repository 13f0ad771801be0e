// Package frame provides an ordered mapping from feature name to numeric
// column. The column order is significant: the ordered name list fixed at
// training time is persisted with the model and every inference-time frame
// is realigned to it before prediction.
package frame

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/mat"

	kperrors "konutpricer/pkg/errors"
)

// Frame holds named float64 columns of equal length, in insertion order.
type Frame struct {
	rows  int
	names []string
	index map[string]int
	cols  [][]float64
}

// New creates an empty Frame with the given row count.
func New(rows int) *Frame {
	return &Frame{
		rows:  rows,
		index: make(map[string]int),
	}
}

// Rows returns the number of rows.
func (f *Frame) Rows() int { return f.rows }

// Cols returns the number of columns.
func (f *Frame) Cols() int { return len(f.names) }

// Names returns the column names in order. The caller must not mutate it.
func (f *Frame) Names() []string { return f.names }

// AddColumn appends a named column. Adding a duplicate name or a column of
// the wrong length is an error.
func (f *Frame) AddColumn(name string, values []float64) error {
	if _, ok := f.index[name]; ok {
		return kperrors.NewValueError("Frame.AddColumn", "duplicate column "+name)
	}
	if len(values) != f.rows {
		return kperrors.NewDimensionError("Frame.AddColumn", f.rows, len(values), 0)
	}
	f.index[name] = len(f.names)
	f.names = append(f.names, name)
	f.cols = append(f.cols, values)
	return nil
}

// Column returns the values for name, or false when absent.
func (f *Frame) Column(name string) ([]float64, bool) {
	i, ok := f.index[name]
	if !ok {
		return nil, false
	}
	return f.cols[i], true
}

// At returns the value at row i of the named column, or 0 when absent.
func (f *Frame) At(i int, name string) float64 {
	j, ok := f.index[name]
	if !ok {
		return 0
	}
	return f.cols[j][i]
}

// Matrix materializes the frame as a dense row-major matrix.
func (f *Frame) Matrix() *mat.Dense {
	if f.rows == 0 || len(f.names) == 0 {
		return mat.NewDense(1, 1, nil) // avoid zero-dim panics; callers check Cols first
	}
	m := mat.NewDense(f.rows, len(f.names), nil)
	for j, col := range f.cols {
		for i := 0; i < f.rows; i++ {
			m.Set(i, j, col[i])
		}
	}
	return m
}

// Concat joins frames column-wise. All frames must have equal row counts;
// duplicate names keep the first occurrence.
func Concat(frames ...*Frame) (*Frame, error) {
	if len(frames) == 0 {
		return nil, kperrors.NewValueError("frame.Concat", "no frames given")
	}
	out := New(frames[0].rows)
	for _, fr := range frames {
		if fr.rows != out.rows {
			return nil, kperrors.NewDimensionError("frame.Concat", out.rows, fr.rows, 0)
		}
		for j, name := range fr.names {
			if _, ok := out.index[name]; ok {
				continue
			}
			if err := out.AddColumn(name, fr.cols[j]); err != nil {
				return nil, err
			}
		}
	}
	return out, nil
}

// Align reorders the frame to exactly match schema: columns absent from the
// frame are zero-filled, columns absent from the schema are dropped.
func (f *Frame) Align(schema []string) *Frame {
	out := New(f.rows)
	for _, name := range schema {
		if j, ok := f.index[name]; ok {
			_ = out.AddColumn(name, f.cols[j])
			continue
		}
		_ = out.AddColumn(name, make([]float64, f.rows))
	}
	return out
}

// ReplaceNonFinite substitutes every NaN or infinite value with the median
// of the finite values in its column, or 0 when a column has none.
func (f *Frame) ReplaceNonFinite() {
	for j := range f.cols {
		col := f.cols[j]
		finite := make([]float64, 0, len(col))
		for _, v := range col {
			if !math.IsNaN(v) && !math.IsInf(v, 0) {
				finite = append(finite, v)
			}
		}
		if len(finite) == len(col) {
			continue
		}
		med := 0.0
		if len(finite) > 0 {
			sort.Float64s(finite)
			med = medianSorted(finite)
		}
		for i, v := range col {
			if math.IsNaN(v) || math.IsInf(v, 0) {
				col[i] = med
			}
		}
	}
}

func medianSorted(sorted []float64) float64 {
	n := len(sorted)
	if n == 0 {
		return 0
	}
	if n%2 == 1 {
		return sorted[n/2]
	}
	return (sorted[n/2-1] + sorted[n/2]) / 2
}
