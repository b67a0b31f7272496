// Package tokenize implements the normalization pipeline that turns a text
// field into an ordered stream of terms: optional ASCII folding, optional
// lowercasing, ignore-class deletion by regex, whitespace splitting,
// stopword filtering, and stemming.
//
// The same Settings must be used at index time and at query time — any
// drift between the two silently breaks recall, so callers read settings
// back from the settings store (internal/settings) rather than constructing
// them ad hoc per call.
package tokenize

import (
	"fmt"
	"regexp"
	"strings"
	"sync"
)

// Settings is the resolved, ready-to-run form of an index's tokenization
// configuration (see internal/settings.Settings for the persisted form).
type Settings struct {
	StripAccents bool
	Lower        bool
	IgnoreRegex  string
	Stopwords    map[string]struct{} // nil means no stopword filtering
	Stemmer      Stemmer
}

// regexCache avoids recompiling the ignore-class regex on every call; index
// and query paths run the same settings repeatedly within a single process.
var regexCache sync.Map // string -> *regexp.Regexp

func compileIgnore(pattern string) (*regexp.Regexp, error) {
	if v, ok := regexCache.Load(pattern); ok {
		return v.(*regexp.Regexp), nil
	}
	re, err := regexp.Compile(pattern)
	if err != nil {
		return nil, fmt.Errorf("tokenize: invalid ignore regex %q: %w", pattern, err)
	}
	regexCache.Store(pattern, re)
	return re, nil
}

// Tokenize runs the full pipeline over text and returns the ordered term
// sequence. Order is preserved and duplicates are kept, since downstream
// term-frequency counting depends on repetition.
func Tokenize(text string, s Settings) ([]string, error) {
	if text == "" {
		return nil, nil
	}

	if s.StripAccents {
		text = FoldAccents(text)
	}
	if s.Lower {
		text = strings.ToLower(text)
	}

	pattern := s.IgnoreRegex
	if pattern == "" {
		pattern = DefaultIgnoreRegex
	}
	re, err := compileIgnore(pattern)
	if err != nil {
		return nil, err
	}
	text = re.ReplaceAllString(text, " ")

	fields := strings.Fields(text)
	out := make([]string, 0, len(fields))
	for _, f := range fields {
		if f == "" {
			continue
		}
		if s.Stopwords != nil {
			if _, stop := s.Stopwords[f]; stop {
				continue
			}
		}
		term := f
		if s.Stemmer != nil {
			term = s.Stemmer.Stem(term)
		}
		if term == "" {
			continue
		}
		out = append(out, term)
	}
	return out, nil
}

// DefaultIgnoreRegex matches any run of characters that is not a lowercase
// ASCII letter, treating it as a separator. Applied after lowercasing.
const DefaultIgnoreRegex = `(\.|[^a-z])+`

// TermFrequencies counts occurrences of each term in order, returning the
// document length (token count after normalization) alongside the counts.
func TermFrequencies(terms []string) (length int, tf map[string]int32) {
	tf = make(map[string]int32, len(terms))
	for _, t := range terms {
		tf[t]++
	}
	return len(terms), tf
}
