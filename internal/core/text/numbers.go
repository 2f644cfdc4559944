package text

import "unicode"

var numberWords = map[string]struct{}{
	"zero": {}, "one": {}, "two": {}, "three": {}, "four": {}, "five": {},
	"six": {}, "seven": {}, "eight": {}, "nine": {}, "ten": {}, "eleven": {},
	"twelve": {}, "thirteen": {}, "fourteen": {}, "fifteen": {}, "sixteen": {},
	"seventeen": {}, "eighteen": {}, "nineteen": {}, "twenty": {}, "thirty": {},
	"forty": {}, "fifty": {}, "sixty": {}, "seventy": {}, "eighty": {},
	"ninety": {}, "hundred": {}, "thousand": {}, "million": {}, "billion": {},
	"trillion": {},
}

// Negations that answer a "how many" question.
var quantityWords = map[string]struct{}{
	"never": {},
	"none":  {},
}

// NumberDetector recognizes text that can carry a numerical answer.
type NumberDetector struct{}

func NewNumberDetector() NumberDetector {
	return NumberDetector{}
}

// HasNumber reports whether s contains a digit, a number word, "never" or "none".
func (NumberDetector) HasNumber(s string) bool {
	for _, r := range s {
		if unicode.IsDigit(r) {
			return true
		}
	}
	for _, w := range WordTokens(s) {
		if _, ok := numberWords[w]; ok {
			return true
		}
		if _, ok := quantityWords[w]; ok {
			return true
		}
	}
	return false
}
