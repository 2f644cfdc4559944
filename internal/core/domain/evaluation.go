package domain

import "time"

type EvaluationCase struct {
	Question      string `json:"question"`
	LabeledAnswer string `json:"labeled_answer"`
}

type EvaluationResult struct {
	Case       EvaluationCase `json:"case"`
	Answer     string         `json:"answer,omitempty"`
	Score      float64        `json:"score"`
	Correct    bool           `json:"correct"`
	BestQuery  []string       `json:"best_query,omitempty"`
	Candidates []string       `json:"candidates,omitempty"`
	Error      string         `json:"error,omitempty"`
	Duration   time.Duration  `json:"duration"`
	Stats      *CaseStats     `json:"stats,omitempty"`
}

// CaseStats records where a labeled answer surfaced along the pipeline.
// FirstAnswerParagraphIndex is -1 when no selected candidate holds it.
type CaseStats struct {
	PositiveScoreContainsAnswer bool `json:"positive_score_contains_answer"`
	ZeroScoreContainsAnswer     bool `json:"zero_score_contains_answer"`
	ParagraphsContainAnswer     bool `json:"paragraphs_contain_answer"`
	FirstAnswerParagraphIndex   int  `json:"first_answer_paragraph_index"`
	KnowledgeContainsAnswer     bool `json:"knowledge_contains_answer"`
	TopThreeContainsAnswer      bool `json:"top_three_contains_answer"`
	AllAnswersContainAnswer     bool `json:"all_answers_contain_answer"`
}

// EvaluationStats aggregates CaseStats over the labeled, successfully
// answered cases.
type EvaluationStats struct {
	Labeled                 int `json:"labeled"`
	PositiveScoreWithAnswer int `json:"positive_score_with_answer"`
	ZeroScoreWithAnswer     int `json:"zero_score_with_answer"`
	ParagraphsWithAnswer    int `json:"paragraphs_with_answer"`
	SelectedWithAnswer      int `json:"selected_with_answer"`
	KnowledgeWithAnswer     int `json:"knowledge_with_answer"`
	TopThreeWithAnswer      int `json:"top_three_with_answer"`
	AllAnswersWithAnswer    int `json:"all_answers_with_answer"`
	// FirstAnswerIndex counts cases by the index of the first selected
	// candidate that holds the answer.
	FirstAnswerIndex map[int]int `json:"first_answer_index,omitempty"`
}

func (s *EvaluationStats) Add(c CaseStats) {
	s.Labeled++
	if c.PositiveScoreContainsAnswer {
		s.PositiveScoreWithAnswer++
	}
	if c.ZeroScoreContainsAnswer {
		s.ZeroScoreWithAnswer++
	}
	if c.ParagraphsContainAnswer {
		s.ParagraphsWithAnswer++
	}
	if c.FirstAnswerParagraphIndex >= 0 {
		s.SelectedWithAnswer++
		if s.FirstAnswerIndex == nil {
			s.FirstAnswerIndex = make(map[int]int)
		}
		s.FirstAnswerIndex[c.FirstAnswerParagraphIndex]++
	}
	if c.KnowledgeContainsAnswer {
		s.KnowledgeWithAnswer++
	}
	if c.TopThreeContainsAnswer {
		s.TopThreeWithAnswer++
	}
	if c.AllAnswersContainAnswer {
		s.AllAnswersWithAnswer++
	}
}

// PrecisionAt is the share of labeled cases whose answer appears in one of
// the first k selected candidates.
func (s EvaluationStats) PrecisionAt(k int) float64 {
	if s.Labeled == 0 {
		return 0
	}
	hits := 0
	for idx, n := range s.FirstAnswerIndex {
		if idx < k {
			hits += n
		}
	}
	return float64(hits) / float64(s.Labeled)
}

type EvaluationReport struct {
	Results  []EvaluationResult `json:"results"`
	Total    int                `json:"total"`
	Correct  int                `json:"correct"`
	NoAnswer int                `json:"no_answer"`
	Failed   int                `json:"failed"`
	Stats    EvaluationStats    `json:"stats"`
}

func (r EvaluationReport) Accuracy() float64 {
	if r.Total == 0 {
		return 0
	}
	return float64(r.Correct) / float64(r.Total)
}
