package catalog

import (
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Brand is the business line a category, product, customer or order belongs to
type Brand string

const (
	BrandBride     Brand = "bride"
	BrandSleepwear Brand = "sleepwear"

	// DefaultBrand applies when no keyword matches
	DefaultBrand = BrandSleepwear
)

// String returns the string representation
func (b Brand) String() string {
	return string(b)
}

// brandKeywords are matched against folded names, first rule wins
var brandKeywords = []struct {
	brand    Brand
	keywords []string
}{
	{BrandBride, []string{"bride", "bridal", "novia", "boda", "wedding"}},
}

// InferBrand classifies free-text names by keyword. The first text that
// carries a known keyword decides; otherwise DefaultBrand is returned.
func InferBrand(texts ...string) Brand {
	for _, text := range texts {
		if b, ok := matchBrand(text); ok {
			return b
		}
	}
	return DefaultBrand
}

func matchBrand(text string) (Brand, bool) {
	folded := Fold(text)
	if folded == "" {
		return "", false
	}
	for _, rule := range brandKeywords {
		for _, kw := range rule.keywords {
			if strings.Contains(folded, kw) {
				return rule.brand, true
			}
		}
	}
	return "", false
}

// Fold lowercases s and strips diacritics ("Colección Novia" -> "coleccion novia")
func Fold(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, s)
	if err != nil {
		out = s
	}
	return cases.Lower(language.Und).String(strings.TrimSpace(out))
}

// Slugify turns a name into a URL-safe slug
func Slugify(name string) string {
	folded := Fold(name)
	var b strings.Builder
	dash := false
	for _, r := range folded {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
			dash = false
		case b.Len() > 0 && !dash:
			b.WriteByte('-')
			dash = true
		}
	}
	return strings.TrimRight(b.String(), "-")
}
