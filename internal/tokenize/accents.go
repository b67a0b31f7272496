package tokenize

import (
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// foldTransformer decomposes accented runes (NFD), drops the combining marks
// (Mn = nonspacing mark), then recomposes, turning "café" into "cafe".
var foldTransformer = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// FoldAccents strips diacritics from s, leaving the base letters. Every
// nonspacing combining mark is removed, whatever its script; other runes
// pass through unchanged.
func FoldAccents(s string) string {
	out, _, err := transform.String(foldTransformer, s)
	if err != nil {
		return s
	}
	return out
}
