package domain

import "strings"

// MaxGramSize bounds the number of words in a single gram.
const MaxGramSize = 5

type QueryKind string

const (
	FullQuery  QueryKind = "full"
	POSBased   QueryKind = "pos"
	OneGram    QueryKind = "one_gram"
	QuotedText QueryKind = "quoted"
)

// Rank returns the fixed priority of a query kind. Lower is better.
func (k QueryKind) Rank() int {
	switch k {
	case FullQuery:
		return 0
	case POSBased:
		return 1
	case OneGram:
		return 2
	case QuotedText:
		return 3
	default:
		return 4
	}
}

type SearchQuery struct {
	Grams []string  `json:"grams"`
	Kind  QueryKind `json:"kind"`
	Rank  int       `json:"rank"`
}

func NewSearchQuery(kind QueryKind, grams []string) SearchQuery {
	return SearchQuery{Grams: grams, Kind: kind, Rank: kind.Rank()}
}

func (q SearchQuery) SameGrams(other SearchQuery) bool {
	return SameGrams(q.Grams, other.Grams)
}

func (q SearchQuery) String() string {
	return strings.Join(q.Grams, " | ")
}

func SameGrams(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
