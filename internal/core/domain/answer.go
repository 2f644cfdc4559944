package domain

const (
	AnswerParagraphMaxSize     = 200
	AnswerParagraphsMaxAmount  = 20
	DefaultMaxRetrievedObjects = 30
)

type CandidateParagraph struct {
	Score float64 `json:"score"`
	Text  string  `json:"text"`
}

type AnswerPrediction struct {
	Text        string  `json:"text"`
	Probability float64 `json:"probability"`
}

type AggregatedAnswer struct {
	Text        string  `json:"text"`
	Probability float64 `json:"probability"`
}

type AnswerReport struct {
	Question          Question             `json:"question"`
	Queries           []SearchQuery        `json:"queries"`
	BestQuery         []string             `json:"best_query,omitempty"`
	Objects           int                  `json:"retrieved_objects"`
	KnowledgeContexts []string             `json:"knowledge_contexts,omitempty"`
	Candidates        []CandidateParagraph `json:"candidates"`
	Predictions       []AnswerPrediction   `json:"predictions,omitempty"`
	Answers           []AggregatedAnswer   `json:"answers"`
	Degraded          []string             `json:"degraded,omitempty"`

	// Windows holds every scored window in generation order, including the
	// ones left out of Candidates.
	Windows []CandidateParagraph `json:"-"`
}

func (r *AnswerReport) TopAnswer() (AggregatedAnswer, bool) {
	if r == nil || len(r.Answers) == 0 {
		return AggregatedAnswer{}, false
	}
	return r.Answers[0], true
}
