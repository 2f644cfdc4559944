package usecase

import (
	"strings"

	"github.com/kirillkom/factoid-qa/internal/core/domain"
	"github.com/kirillkom/factoid-qa/internal/core/text"
)

// SegmentRules decides where POS segmentation breaks a tagged token stream
// into grams. The four tag sets are expected to be disjoint.
type SegmentRules struct {
	// Remove ends the current gram and drops the token.
	Remove []string
	// Isolate ends the current gram and emits the token as its own gram.
	Isolate []string
	// Right appends the token and then ends the gram.
	Right []string
	// Left ends the current gram and starts the next one with the token.
	Left []string
}

var verbTagList = []string{"VB", "VBD", "VBG", "VBN", "VBP", "VBZ"}

var DefaultSegmentRules = SegmentRules{
	Remove:  []string{"WDT"},
	Isolate: append([]string{"NNP"}, verbTagList...),
}

// FallbackSegmentRules are tried in order when the default segmentation
// produces a degenerate query.
var FallbackSegmentRules = []SegmentRules{
	{Remove: []string{"DT", "IN"}, Isolate: verbTagList},
	{Remove: []string{"DT", "IN"}, Left: verbTagList},
	{Remove: []string{"DT", "IN"}, Right: verbTagList},
	{Remove: []string{"DT", "IN"}, Isolate: []string{"NN"}, Right: verbTagList},
}

// segment builds the gram list for one rule configuration. It has no side
// effects so every fallback attempt can be evaluated independently.
func segment(tags []domain.TaggedToken, rules SegmentRules, quotes []string, stop text.StopWords) []string {
	remove := tagSet(rules.Remove...)
	isolate := tagSet(rules.Isolate...)
	right := tagSet(rules.Right...)
	left := tagSet(rules.Left...)

	var grams []string
	acc := ""
	flush := func() {
		if acc != "" {
			grams = append(grams, cleanGram(acc))
		}
		acc = ""
	}

	last := len(tags) - 1
	prevTag := ""
	for i, tt := range tags {
		if tt.Token == quotedToken {
			continue
		}
		switch {
		case remove[tt.Tag]:
			flush()
		case isolate[tt.Tag] && !(tt.Tag == "NN" && adjectiveTags[prevTag]):
			flush()
			if i == last-1 && tags[last].Tag == "IN" {
				// Keep a trailing preposition attached: "was built in".
				acc = tt.Token
			} else {
				grams = append(grams, cleanGram(tt.Token))
			}
		case right[tt.Tag]:
			acc = appendToken(acc, tt)
			flush()
		case left[tt.Tag]:
			flush()
			acc = tt.Token
		default:
			acc = appendToken(acc, tt)
		}
		prevTag = tt.Tag
	}
	flush()
	grams = append(grams, quotes...)

	out := make([]string, 0, len(grams))
	for _, gram := range grams {
		gram = restoreDots(gram)
		if stop.AllStopWords(gram) {
			continue
		}
		if strings.HasSuffix(gram, " the") {
			gram = strings.TrimSuffix(gram, " the")
		} else if strings.HasSuffix(gram, " a") {
			gram = strings.TrimSuffix(gram, " a")
		}
		out = append(out, gram)
	}
	return out
}

// segmentWithFallback retries segmentation with the fallback rules while
// degenerate holds, returning the last attempt.
func segmentWithFallback(
	tags []domain.TaggedToken,
	quotes []string,
	stop text.StopWords,
	degenerate func([]string) bool,
) []string {
	grams := segment(tags, DefaultSegmentRules, quotes, stop)
	for _, rules := range FallbackSegmentRules {
		if !degenerate(grams) {
			break
		}
		grams = segment(tags, rules, quotes, stop)
	}
	return grams
}

// Possessive endings attach to the previous word without a space.
func appendToken(acc string, tt domain.TaggedToken) string {
	if tt.Tag == "POS" {
		return acc + tt.Token
	}
	return acc + " " + tt.Token
}

func cleanGram(s string) string {
	return strings.TrimSpace(strings.ReplaceAll(s, ".", ""))
}

func isSingleGramQuery(grams []string) bool {
	for _, gram := range grams {
		if text.WordCount(gram) > 1 {
			return false
		}
	}
	return true
}

func aboveGramLimit(grams []string) bool {
	for _, gram := range grams {
		if text.WordCount(gram) > domain.MaxGramSize {
			return true
		}
	}
	return false
}
