// Package identity derives the canonical key that links a listed item to the
// artifact file it produces.
package identity

import (
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

var lower = cases.Lower(language.Und)

// Normalize folds accents, lowercases, and keeps only ASCII letters and digits.
// "My Project!" and "my-project.zip" both start with "myproject".
func Normalize(name string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	folded, _, err := transform.String(t, name)
	if err != nil {
		folded = name
	}
	folded = lower.String(folded)

	var b strings.Builder
	b.Grow(len(folded))
	for _, r := range folded {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// Matches reports whether a file name plausibly belongs to the item key.
// Containment is loose: "app" matches "myapp.zip" as well.
func Matches(fileName, key string) bool {
	if key == "" {
		return false
	}
	return strings.Contains(Normalize(fileName), key)
}
