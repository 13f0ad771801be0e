package frame

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAddColumnAndLookup(t *testing.T) {
	f := New(3)
	require.NoError(t, f.AddColumn("area", []float64{90, 120, 75}))
	require.NoError(t, f.AddColumn("rooms", []float64{3, 4, 2}))

	assert.Equal(t, 3, f.Rows())
	assert.Equal(t, 2, f.Cols())
	assert.Equal(t, []string{"area", "rooms"}, f.Names())

	col, ok := f.Column("area")
	require.True(t, ok)
	assert.Equal(t, []float64{90, 120, 75}, col)

	_, ok = f.Column("absent")
	assert.False(t, ok)

	assert.Equal(t, 4.0, f.At(1, "rooms"))
	assert.Equal(t, 0.0, f.At(0, "absent"))
}

func TestAddColumnRejectsDuplicatesAndBadLength(t *testing.T) {
	f := New(2)
	require.NoError(t, f.AddColumn("x", []float64{1, 2}))
	assert.Error(t, f.AddColumn("x", []float64{3, 4}))
	assert.Error(t, f.AddColumn("y", []float64{1, 2, 3}))
}

func TestMatrixIsRowMajorCopy(t *testing.T) {
	f := New(2)
	require.NoError(t, f.AddColumn("a", []float64{1, 2}))
	require.NoError(t, f.AddColumn("b", []float64{3, 4}))

	m := f.Matrix()
	r, c := m.Dims()
	assert.Equal(t, 2, r)
	assert.Equal(t, 2, c)
	assert.Equal(t, 1.0, m.At(0, 0))
	assert.Equal(t, 3.0, m.At(0, 1))
	assert.Equal(t, 4.0, m.At(1, 1))
}

func TestConcatKeepsFirstDuplicate(t *testing.T) {
	a := New(2)
	require.NoError(t, a.AddColumn("x", []float64{1, 2}))
	b := New(2)
	require.NoError(t, b.AddColumn("x", []float64{9, 9}))
	require.NoError(t, b.AddColumn("y", []float64{5, 6}))

	out, err := Concat(a, b)
	require.NoError(t, err)
	assert.Equal(t, []string{"x", "y"}, out.Names())
	x, _ := out.Column("x")
	assert.Equal(t, []float64{1, 2}, x)
}

func TestConcatRejectsRowMismatch(t *testing.T) {
	a := New(2)
	b := New(3)
	_, err := Concat(a, b)
	assert.Error(t, err)
}

func TestAlignReordersAndZeroFills(t *testing.T) {
	f := New(2)
	require.NoError(t, f.AddColumn("b", []float64{3, 4}))
	require.NoError(t, f.AddColumn("a", []float64{1, 2}))
	require.NoError(t, f.AddColumn("dropped", []float64{7, 8}))

	out := f.Align([]string{"a", "b", "missing"})
	assert.Equal(t, []string{"a", "b", "missing"}, out.Names())
	a, _ := out.Column("a")
	assert.Equal(t, []float64{1, 2}, a)
	missing, _ := out.Column("missing")
	assert.Equal(t, []float64{0, 0}, missing)
	_, ok := out.Column("dropped")
	assert.False(t, ok)
}

func TestReplaceNonFinite(t *testing.T) {
	f := New(5)
	require.NoError(t, f.AddColumn("x", []float64{1, math.NaN(), 3, math.Inf(1), 5}))
	require.NoError(t, f.AddColumn("allBad", []float64{math.NaN(), math.NaN(), math.NaN(), math.NaN(), math.NaN()}))

	f.ReplaceNonFinite()

	x, _ := f.Column("x")
	assert.Equal(t, []float64{1, 3, 3, 3, 5}, x) // median of {1,3,5}

	bad, _ := f.Column("allBad")
	assert.Equal(t, []float64{0, 0, 0, 0, 0}, bad)
}
