package cleaning

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeName(t *testing.T) {
	assert.Equal(t, "Moda", NormalizeName("  moda "))
	assert.Equal(t, "Kadıköy", NormalizeName("kadıköy"))
}

func TestFoldStripsDiacritics(t *testing.T) {
	assert.Equal(t, "Uskudar", Fold("Üsküdar"))
	assert.Equal(t, "Besiktas", Fold("Beşiktaş"))
	assert.Equal(t, "Moda", Fold("Moda"))
}

func TestCanonicalDistrict(t *testing.T) {
	cases := map[string]string{
		"uskudar":  "Üsküdar",
		"Üsküdar":  "Üsküdar",
		"BESIKTAS": "Beşiktaş",
		"sisli":    "Şişli",
		"Kadıköy":  "Kadıköy",
	}
	for in, want := range cases {
		assert.Equal(t, want, CanonicalDistrict(in), "input %q", in)
	}
}

func TestFoldIndexPrefersMostFrequentSpelling(t *testing.T) {
	idx := BuildFoldIndex([]string{"Çengelköy", "Çengelköy", "Cengelkoy"})

	got, ok := idx.Resolve("cengelkoy")
	assert.True(t, ok)
	assert.Equal(t, "Çengelköy", got)

	_, ok = idx.Resolve("nonexistent")
	assert.False(t, ok)
}

func TestFoldIndexTieBreaksLexicographically(t *testing.T) {
	idx := BuildFoldIndex([]string{"Abc", "Àbc"})
	got, ok := idx.Resolve("abc")
	assert.True(t, ok)
	assert.Equal(t, "Abc", got)
}
