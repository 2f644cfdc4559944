package chunking

import (
	"strings"
	"unicode"
)

// Splitter groups sentences into windows of at most MaxTokens
// whitespace-separated tokens.
type Splitter struct {
	MaxTokens int
}

func NewSplitter(maxTokens int) *Splitter {
	if maxTokens <= 0 {
		maxTokens = 200
	}
	return &Splitter{MaxTokens: maxTokens}
}

// Split returns the candidate windows of text. A window is closed when the
// next sentence would push it over the budget; a sentence longer than the
// budget is cut into budget-sized pieces. The last window is always kept.
func (s *Splitter) Split(text string) []string {
	var windows []string
	var current []string
	for _, sentence := range SplitSentences(text) {
		words := strings.Fields(sentence)
		for start := 0; start < len(words); start += s.MaxTokens {
			end := start + s.MaxTokens
			if end > len(words) {
				end = len(words)
			}
			piece := words[start:end]
			if len(current) > 0 && len(current)+len(piece) > s.MaxTokens {
				windows = append(windows, strings.Join(current, " "))
				current = nil
			}
			current = append(current, piece...)
		}
	}
	if len(current) > 0 {
		windows = append(windows, strings.Join(current, " "))
	}
	return windows
}

var abbreviations = map[string]bool{
	"mr": true, "mrs": true, "ms": true, "dr": true, "st": true, "prof": true,
	"inc": true, "ltd": true, "jr": true, "sr": true, "co": true, "vs": true,
	"etc": true, "no": true, "mt": true,
}

var topLevelDomains = map[string]bool{
	"com": true, "net": true, "org": true, "io": true, "gov": true, "edu": true,
}

// SplitSentences breaks text at whitespace that follows "." or "?", unless
// the dot belongs to a title, an initialism such as "U.S." or "Ph.D.", or a
// host name that the sentence continues after.
func SplitSentences(text string) []string {
	runes := []rune(text)
	var out []string
	start := 0
	for i, r := range runes {
		if !unicode.IsSpace(r) || i == 0 {
			continue
		}
		prev := runes[i-1]
		if prev != '.' && prev != '?' {
			continue
		}
		if prev == '.' && protectedDot(runes[:i], runes[i+1:]) {
			continue
		}
		if sentence := strings.TrimSpace(string(runes[start:i])); sentence != "" {
			out = append(out, sentence)
		}
		start = i + 1
	}
	if sentence := strings.TrimSpace(string(runes[start:])); sentence != "" {
		out = append(out, sentence)
	}
	return out
}

// protectedDot reports whether the dot ending before is not a sentence end.
func protectedDot(before, after []rune) bool {
	n := len(before)
	// Initialisms: "U.S." "e.g." "Ph.D."
	if n >= 4 && isWordRune(before[n-4]) && before[n-3] == '.' && isWordRune(before[n-2]) {
		return true
	}
	// Short titles: "Mr." "Dr."
	if n >= 3 && unicode.IsUpper(before[n-3]) && unicode.IsLower(before[n-2]) &&
		(n == 3 || !isWordRune(before[n-4])) {
		return true
	}

	word := lastWord(before)
	if abbreviations[strings.ToLower(word)] {
		return true
	}
	if dot := strings.LastIndexByte(word, '.'); dot > 0 && topLevelDomains[strings.ToLower(word[dot+1:])] {
		return startsLower(after)
	}
	return false
}

// lastWord returns the word before the final dot of before.
func lastWord(before []rune) string {
	end := len(before) - 1
	start := end
	for start > 0 && !unicode.IsSpace(before[start-1]) {
		start--
	}
	return strings.Trim(string(before[start:end]), `"'()[]`)
}

func startsLower(after []rune) bool {
	for _, r := range after {
		if unicode.IsSpace(r) {
			continue
		}
		return unicode.IsLower(r)
	}
	return false
}

func isWordRune(r rune) bool {
	return r == '_' || unicode.IsLetter(r) || unicode.IsDigit(r)
}
