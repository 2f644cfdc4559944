// Package text holds the language resources shared by the answering
// pipeline: stop words, tokenizers, number detection and verb conjugation.
package text

import "strings"

var englishStopWords = strings.Fields(`
i me my myself we our ours ourselves you you're you've you'll you'd your yours
yourself yourselves he him his himself she she's her hers herself it it's its
itself they them their theirs themselves what which who whom this that that'll
these those am is are was were be been being have has had having do does did
doing a an the and but if or because as until while of at by for with about
against between into through during before after above below to from up down
in out on off over under again further then once here there when where why how
all any both each few more most other some such no nor not only own same so
than too very s t can will just don don't should should've now d ll m o re ve
y ain aren aren't couldn couldn't didn didn't doesn doesn't hadn hadn't hasn
hasn't haven haven't isn isn't ma mightn mightn't mustn mustn't needn needn't
shan shan't shouldn shouldn't wasn wasn't weren weren't won won't wouldn
wouldn't`)

// Question words and conversational fillers that carry no search value.
var domainStopWords = []string{
	"Where", "Who", "Whose", "What", "Why", "How", "and", "I", "A", "And", "So",
	"arnt", "This", "When", "It", "many", "Many", "so", "cant", "Yes", "yes",
	"No", "no", "These", "these", "is", "are", "Do", "Are", "About", "For",
	"Is", `"`,
}

// StopWords is a case-sensitive stop-word set.
type StopWords map[string]struct{}

func NewStopWords(words []string, retained ...string) StopWords {
	out := make(StopWords, len(words))
	for _, w := range words {
		out[w] = struct{}{}
	}
	for _, w := range retained {
		delete(out, w)
	}
	return out
}

func (s StopWords) Contains(word string) bool {
	_, ok := s[word]
	return ok
}

// AllStopWords reports whether every whitespace-separated word of text is a
// stop word. Empty text counts as all stop words.
func (s StopWords) AllStopWords(text string) bool {
	for _, w := range strings.Fields(text) {
		if !s.Contains(w) {
			return false
		}
	}
	return true
}

// Filter drops stop words from tokens.
func (s StopWords) Filter(tokens []string) []string {
	out := make([]string, 0, len(tokens))
	for _, token := range tokens {
		if !s.Contains(token) {
			out = append(out, token)
		}
	}
	return out
}

// QueryStopWords is used when building search queries. Function words that
// change the meaning of a gram ("built in", "number of") are retained.
func QueryStopWords() StopWords {
	words := append(append([]string{}, englishStopWords...), domainStopWords...)
	words = append(words, "whom")
	return NewStopWords(words, "own", "too", "won", "in", "of", "have", "has", "had")
}

// ScoringStopWords is used when matching query terms against paragraphs.
func ScoringStopWords() StopWords {
	words := append(append([]string{}, englishStopWords...), domainStopWords...)
	return NewStopWords(words, "own", "too")
}
