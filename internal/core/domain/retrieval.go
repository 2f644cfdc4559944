package domain

import "sort"

type ObjectTag struct {
	Label string  `json:"label"`
	URI   string  `json:"uri,omitempty"`
	Score float64 `json:"score"`
}

// RetrievedObject is a document returned by a search or knowledge-graph backend.
type RetrievedObject struct {
	ID            string      `json:"id,omitempty"`
	Title         string      `json:"title,omitempty"`
	Text          string      `json:"text"`
	URL           string      `json:"url,omitempty"`
	HumanLanguage string      `json:"human_language,omitempty"`
	Tags          []ObjectTag `json:"tags,omitempty"`
	Score         float64     `json:"score,omitempty"`
}

// SortedTags returns the object tags ordered by descending score.
func (o RetrievedObject) SortedTags() []ObjectTag {
	out := make([]ObjectTag, len(o.Tags))
	copy(out, o.Tags)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Score > out[j].Score
	})
	return out
}

type SearchResponse struct {
	Hits    int               `json:"hits"`
	Objects []RetrievedObject `json:"objects"`
}

type RankedObject struct {
	Object    RetrievedObject `json:"object"`
	QueryRank int             `json:"query_rank"`
	Grams     []string        `json:"grams"`
}

type RetrievalResult struct {
	Objects           []RankedObject `json:"objects"`
	KnowledgeContexts []string       `json:"knowledge_contexts,omitempty"`
	BestQuery         []string       `json:"best_query,omitempty"`
	BestHits          int            `json:"best_hits"`
	Terms             TermSet        `json:"-"`
}

func (r RetrievalResult) RetrievedObjects() []RetrievedObject {
	out := make([]RetrievedObject, 0, len(r.Objects))
	for _, obj := range r.Objects {
		out = append(out, obj.Object)
	}
	return out
}

// TermSet holds lowercase significant query terms.
type TermSet map[string]struct{}

func NewTermSet(terms ...string) TermSet {
	out := make(TermSet, len(terms))
	for _, term := range terms {
		out[term] = struct{}{}
	}
	return out
}

func (s TermSet) Contains(term string) bool {
	_, ok := s[term]
	return ok
}

func (s TermSet) Sorted() []string {
	out := make([]string, 0, len(s))
	for term := range s {
		out = append(out, term)
	}
	sort.Strings(out)
	return out
}
