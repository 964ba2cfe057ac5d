package bind

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// ASCIIAlnum keeps the ASCII letters and digits of s and drops everything else.
func ASCIIAlnum(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if r < utf8.RuneSelf && (unicode.IsLetter(r) || unicode.IsDigit(r)) {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// FoldASCII strips diacritics before applying ASCIIAlnum, so "Crème" becomes
// "Creme" instead of "Crme".
func FoldASCII(s string) string {
	// Chains hold buffers and are not safe for concurrent use.
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)))
	folded, _, err := transform.String(t, s)
	if err != nil {
		folded = s
	}
	return ASCIIAlnum(folded)
}
