package tokenize

import "strings"

// builtinStopwords maps a recognized language name to its stopword list.
// Only "english" ships with real data; any other recognized name resolves
// to an empty set (no filtering) rather than failing, matching how a
// caller-supplied custom list of words is the first-class mechanism and a
// language name is a convenience alias on top of it.
var builtinStopwords = map[string][]string{
	"english": {
		"a", "an", "and", "are", "as", "at", "be", "but", "by", "for", "if",
		"in", "into", "is", "it", "no", "not", "of", "on", "or", "such",
		"that", "the", "their", "then", "there", "these", "they", "this",
		"to", "was", "will", "with", "i", "you", "he", "she", "we", "do",
		"does", "did", "have", "has", "had", "can", "could", "should",
		"would", "from", "about", "which", "who", "whom", "been", "being",
	},
}

// ResolveStopwords builds the lookup set used by Tokenize from either an
// explicit word list, a recognized language name, or neither (no filtering).
// A non-empty custom list always wins over a language reference.
func ResolveStopwords(custom []string, languageRef string) map[string]struct{} {
	if len(custom) > 0 {
		set := make(map[string]struct{}, len(custom))
		for _, w := range custom {
			w = strings.TrimSpace(w)
			if w != "" {
				set[w] = struct{}{}
			}
		}
		return set
	}
	if languageRef == "" {
		return nil
	}
	words, ok := builtinStopwords[strings.ToLower(languageRef)]
	if !ok || len(words) == 0 {
		return nil
	}
	set := make(map[string]struct{}, len(words))
	for _, w := range words {
		set[w] = struct{}{}
	}
	return set
}
