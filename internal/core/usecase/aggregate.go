package usecase

import (
	"sort"

	"github.com/kirillkom/factoid-qa/internal/core/domain"
	"github.com/kirillkom/factoid-qa/internal/core/text"
)

type AnswerAggregator struct {
	numbers text.NumberDetector
}

func NewAnswerAggregator() *AnswerAggregator {
	return &AnswerAggregator{numbers: text.NewNumberDetector()}
}

// Aggregate sums the probabilities of predictions with identical text and
// ranks the groups by combined probability. Ties keep first-seen order.
// With numericGate set, predictions without a number are discarded first.
func (a *AnswerAggregator) Aggregate(preds []domain.AnswerPrediction, numericGate bool) []domain.AggregatedAnswer {
	index := make(map[string]int)
	var out []domain.AggregatedAnswer
	for _, pred := range preds {
		if numericGate && !a.numbers.HasNumber(pred.Text) {
			continue
		}
		if i, ok := index[pred.Text]; ok {
			out[i].Probability += pred.Probability
			continue
		}
		index[pred.Text] = len(out)
		out = append(out, domain.AggregatedAnswer{Text: pred.Text, Probability: pred.Probability})
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Probability > out[j].Probability
	})
	return out
}
