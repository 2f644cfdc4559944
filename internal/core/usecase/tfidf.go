package usecase

import (
	"math"

	"github.com/kirillkom/factoid-qa/internal/core/text"
)

// tfidfModel holds smoothed inverse document frequencies fitted on the
// candidate windows of one question.
type tfidfModel struct {
	idf  map[string]float64
	stop text.StopWords
}

func fitTFIDF(docs []string, stop text.StopWords) tfidfModel {
	df := make(map[string]int)
	for _, doc := range docs {
		seen := make(map[string]bool)
		for _, term := range text.IndexTokens(doc) {
			if stop.Contains(term) || seen[term] {
				continue
			}
			seen[term] = true
			df[term]++
		}
	}

	n := float64(len(docs))
	idf := make(map[string]float64, len(df))
	for term, count := range df {
		idf[term] = math.Log((1+n)/(1+float64(count))) + 1
	}
	return tfidfModel{idf: idf, stop: stop}
}

// weights returns the L2-normalized tf-idf vector of doc. The norm is summed
// in first-occurrence order, so identical term layouts get identical weights.
func (m tfidfModel) weights(doc string) map[string]float64 {
	tf := make(map[string]float64)
	var order []string
	for _, term := range text.IndexTokens(doc) {
		if _, ok := m.idf[term]; !ok {
			continue
		}
		if tf[term] == 0 {
			order = append(order, term)
		}
		tf[term]++
	}

	var norm float64
	out := make(map[string]float64, len(tf))
	for _, term := range order {
		w := tf[term] * m.idf[term]
		out[term] = w
		norm += w * w
	}
	if norm == 0 {
		return out
	}
	norm = math.Sqrt(norm)
	for term := range out {
		out[term] /= norm
	}
	return out
}
