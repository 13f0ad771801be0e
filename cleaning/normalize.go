package cleaning

import (
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// districtAliases maps the diacritic-folded spelling of a district to its
// canonical form. These are contract constants: the persisted group lookups
// use the canonical spellings.
var districtAliases = map[string]string{
	"Uskudar":  "Üsküdar",
	"Besiktas": "Beşiktaş",
	"Sisli":    "Şişli",
}

var (
	titleCaser  = cases.Title(language.Und)
	foldRemover = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
)

// NormalizeName trims and title-cases a district or neighborhood string.
func NormalizeName(s string) string {
	return titleCaser.String(strings.TrimSpace(s))
}

// Fold strips diacritics so spellings that differ only by accents compare
// equal ("Üsküdar" and "Uskudar" both fold to "Uskudar").
func Fold(s string) string {
	out, _, err := transform.String(foldRemover, s)
	if err != nil {
		return s
	}
	return out
}

// CanonicalDistrict normalizes s and maps known diacritic-less variants to
// their canonical spelling.
func CanonicalDistrict(s string) string {
	t := NormalizeName(s)
	if c, ok := districtAliases[Fold(t)]; ok {
		return c
	}
	return t
}

// FoldIndex resolves arbitrary spellings to the canonical ones observed in
// the cleaned dataset, keyed by diacritic-folded form.
type FoldIndex map[string]string

// BuildFoldIndex picks one canonical spelling per folded key: the most
// frequent spelling, ties broken by lexicographic order.
func BuildFoldIndex(names []string) FoldIndex {
	counts := make(map[string]map[string]int)
	for _, n := range names {
		k := Fold(n)
		if counts[k] == nil {
			counts[k] = make(map[string]int)
		}
		counts[k][n]++
	}
	idx := make(FoldIndex, len(counts))
	for k, variants := range counts {
		best := ""
		bestCount := -1
		for v, c := range variants {
			if c > bestCount || (c == bestCount && v < best) {
				best, bestCount = v, c
			}
		}
		idx[k] = best
	}
	return idx
}

// Resolve maps s to the canonical spelling sharing its folded form. The
// second return reports whether the spelling is known.
func (idx FoldIndex) Resolve(s string) (string, bool) {
	c, ok := idx[Fold(NormalizeName(s))]
	return c, ok
}
