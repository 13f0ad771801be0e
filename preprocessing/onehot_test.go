package preprocessing

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOneHotEncoderDropFirst(t *testing.T) {
	data := [][]string{
		{"Kadıköy", "Moda"},
		{"Üsküdar", "Kuzguncuk"},
		{"Beşiktaş", "Moda"},
	}
	enc := NewOneHotEncoder([]string{"district", "neighborhood"}, true)
	out, err := enc.FitTransform(data)
	require.NoError(t, err)

	// Sorted categories: Beşiktaş < Kadıköy < Üsküdar; the first is dropped.
	assert.Equal(t, []string{
		"district_Kadıköy", "district_Üsküdar",
		"neighborhood_Moda",
	}, out.Names())

	col, ok := out.Column("district_Kadıköy")
	require.True(t, ok)
	assert.Equal(t, []float64{1, 0, 0}, col)

	col, ok = out.Column("district_Üsküdar")
	require.True(t, ok)
	assert.Equal(t, []float64{0, 1, 0}, col)

	// Beşiktaş is the reference level: all indicator columns zero.
	for _, name := range out.Names() {
		if name == "neighborhood_Moda" {
			continue
		}
		c, _ := out.Column(name)
		assert.Equal(t, 0.0, c[2])
	}
}

func TestOneHotEncoderKeepAll(t *testing.T) {
	enc := NewOneHotEncoder([]string{"district"}, false)
	out, err := enc.FitTransform([][]string{{"A"}, {"B"}})
	require.NoError(t, err)
	assert.Equal(t, []string{"district_A", "district_B"}, out.Names())
}

func TestOneHotEncoderUnseenCategory(t *testing.T) {
	enc := NewOneHotEncoder([]string{"district"}, true)
	_, err := enc.FitTransform([][]string{{"A"}, {"B"}, {"C"}})
	require.NoError(t, err)

	out, err := enc.Transform([][]string{{"Z"}})
	require.NoError(t, err)
	for _, name := range out.Names() {
		c, _ := out.Column(name)
		assert.Equal(t, []float64{0}, c)
	}
}

func TestOneHotEncoderErrors(t *testing.T) {
	enc := NewOneHotEncoder([]string{"district"}, true)
	_, err := enc.Transform([][]string{{"A"}})
	assert.Error(t, err) // not fitted

	assert.Error(t, enc.Fit(nil))
	assert.Error(t, enc.Fit([][]string{{"A", "extra"}}))
}
