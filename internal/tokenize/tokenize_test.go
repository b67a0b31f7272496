package tokenize

import (
	"reflect"
	"testing"
)

func TestTokenize(t *testing.T) {
	porter, err := NewStemmer("porter")
	if err != nil {
		t.Fatalf("NewStemmer(porter): %v", err)
	}

	tests := []struct {
		name    string
		text    string
		s       Settings
		want    []string
		wantErr bool
	}{
		{
			name: "lowercase and split",
			text: "The Quick Brown Fox",
			s:    Settings{Lower: true, IgnoreRegex: DefaultIgnoreRegex},
			want: []string{"the", "quick", "brown", "fox"},
		},
		{
			name: "empty text",
			text: "",
			s:    Settings{Lower: true, IgnoreRegex: DefaultIgnoreRegex},
			want: nil,
		},
		{
			name: "strips accents before folding to lowercase ascii",
			text: "café naïve",
			s:    Settings{StripAccents: true, Lower: true, IgnoreRegex: DefaultIgnoreRegex},
			want: []string{"cafe", "naive"},
		},
		{
			name: "stopwords filtered",
			text: "the cat sat on the mat",
			s: Settings{
				Lower:       true,
				IgnoreRegex: DefaultIgnoreRegex,
				Stopwords:   ResolveStopwords(nil, "english"),
			},
			want: []string{"cat", "sat", "mat"},
		},
		{
			name: "stemming reduces plural forms",
			text: "running runners ran",
			s:    Settings{Lower: true, IgnoreRegex: DefaultIgnoreRegex, Stemmer: porter},
			want: []string{"run", "runner", "ran"},
		},
		{
			name:    "invalid regex errors",
			text:    "hello",
			s:       Settings{IgnoreRegex: "(unterminated"},
			wantErr: true,
		},
		{
			name: "punctuation only yields no tokens",
			text: "...---...",
			s:    Settings{Lower: true, IgnoreRegex: DefaultIgnoreRegex},
			want: []string{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Tokenize(tt.text, tt.s)
			if (err != nil) != tt.wantErr {
				t.Fatalf("Tokenize() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr {
				return
			}
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("Tokenize() = %#v, want %#v", got, tt.want)
			}
		})
	}
}

func TestTermFrequencies(t *testing.T) {
	terms := []string{"a", "b", "a", "c", "a"}
	length, tf := TermFrequencies(terms)
	if length != 5 {
		t.Errorf("length = %d, want 5", length)
	}
	want := map[string]int32{"a": 3, "b": 1, "c": 1}
	if !reflect.DeepEqual(tf, want) {
		t.Errorf("tf = %#v, want %#v", tf, want)
	}
}

func TestNewStemmerUnknownName(t *testing.T) {
	if _, err := NewStemmer("klingon"); err == nil {
		t.Fatal("expected error for unknown stemmer name")
	}
	if _, err := NewStemmer("turkish"); err != nil {
		t.Fatalf("recognized-but-unimplemented stemmer should validate, got %v", err)
	}
}

func TestResolveStopwordsPrefersCustomList(t *testing.T) {
	set := ResolveStopwords([]string{"foo", "bar"}, "english")
	if _, ok := set["foo"]; !ok {
		t.Fatal("expected custom stopword list to take precedence")
	}
	if _, ok := set["the"]; ok {
		t.Fatal("english builtin list should not leak in when a custom list is given")
	}
}
