package text

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

var (
	tokenPattern = regexp.MustCompile(`[\p{L}\p{N}_]+(?:['’\-][\p{L}\p{N}_]+)*|[^\s\p{L}\p{N}_]`)
	wordPattern  = regexp.MustCompile(`[\p{L}\p{N}_]+`)
)

// Tokenize splits text into words and single punctuation marks. Contractions,
// possessives and hyphenated words stay in one token.
func Tokenize(s string) []string {
	return tokenPattern.FindAllString(s, -1)
}

// WordTokens returns the lowercase word-character runs of s.
func WordTokens(s string) []string {
	return wordPattern.FindAllString(strings.ToLower(s), -1)
}

// IndexTokens returns lowercase word runs of at least two characters.
func IndexTokens(s string) []string {
	words := WordTokens(s)
	out := words[:0]
	for _, w := range words {
		if utf8.RuneCountInString(w) >= 2 {
			out = append(out, w)
		}
	}
	return out
}

// HasWordChar reports whether token contains a letter, digit or underscore.
func HasWordChar(token string) bool {
	return wordPattern.MatchString(token)
}

func WordCount(s string) int {
	return len(strings.Fields(s))
}
