package usecase

import (
	"context"
	"errors"
	"testing"

	"github.com/kirillkom/factoid-qa/internal/core/domain"
)

func TestEvaluatorReportsAccuracy(t *testing.T) {
	answerer := &answererFake{
		reports: map[string]*domain.AnswerReport{
			"When was the Eiffel Tower built?": eiffelReport(),
			"Who is Barack Obama?": {
				Answers: []domain.AggregatedAnswer{{Text: "44th president of the United States", Probability: 0.6}},
			},
		},
		errs: map[string]error{"broken": errors.New("tagger down")},
	}
	cases := []domain.EvaluationCase{
		{Question: "When was the Eiffel Tower built?", LabeledAnswer: "1889"},
		{Question: "Who is Barack Obama?", LabeledAnswer: "a chef"},
		{Question: "What is the answer?", LabeledAnswer: "42"},
		{Question: "broken", LabeledAnswer: "x"},
	}

	report, err := NewEvaluator(answerer, nil).Evaluate(context.Background(), cases, 2)
	if err != nil {
		t.Fatalf("Evaluate returned error: %v", err)
	}
	if report.Total != 4 || report.Correct != 1 || report.NoAnswer != 1 || report.Failed != 1 {
		t.Fatalf("unexpected report counts %+v", report)
	}
	if report.Accuracy() != 0.25 {
		t.Fatalf("expected accuracy 0.25, got %f", report.Accuracy())
	}
	if answerer.calls != 4 {
		t.Fatalf("expected every case to be answered, got %d", answerer.calls)
	}
	for i, r := range report.Results {
		if r.Case != cases[i] {
			t.Fatalf("result %d out of order: %+v", i, r.Case)
		}
	}
	if report.Results[0].Answer != "1889" || !report.Results[0].Correct || report.Results[0].Score != 0.8 {
		t.Fatalf("unexpected first result %+v", report.Results[0])
	}
}

func TestEvaluatorEmptyInput(t *testing.T) {
	report, err := NewEvaluator(&answererFake{}, nil).Evaluate(context.Background(), nil, 0)
	if err != nil || report.Total != 0 || len(report.Results) != 0 {
		t.Fatalf("unexpected report %+v err=%v", report, err)
	}
}

func TestEvaluatorLocatesLabeledAnswer(t *testing.T) {
	tower := &domain.AnswerReport{
		KnowledgeContexts: []string{"The Eiffel Tower is a wrought-iron lattice tower in Paris."},
		Windows: []domain.CandidateParagraph{
			{Score: 0, Text: "Gustave Eiffel died in 1923."},
			{Score: 1.2, Text: "The tower opened to the public in 1889."},
			{Score: 1.5, Text: "The Eiffel Tower is 330 metres tall."},
		},
		Candidates: []domain.CandidateParagraph{
			{Score: 1.5, Text: "The Eiffel Tower is 330 metres tall."},
			{Score: 1.2, Text: "The tower opened to the public in 1889."},
		},
		Answers: []domain.AggregatedAnswer{
			{Text: "330 metres", Probability: 0.7},
			{Text: "Paris", Probability: 0.5},
			{Text: "Gustave", Probability: 0.4},
			{Text: "1889", Probability: 0.3},
		},
	}
	moon := &domain.AnswerReport{
		KnowledgeContexts: []string{"Neil Armstrong was an American astronaut."},
		Windows:           []domain.CandidateParagraph{{Score: 0, Text: "Apollo 11 landed in 1969; Neil Armstrong stepped out first."}},
		Candidates:        []domain.CandidateParagraph{{Score: 0, Text: "Apollo 11 landed in 1969; Neil Armstrong stepped out first."}},
		Answers:           []domain.AggregatedAnswer{{Text: "Buzz Aldrin", Probability: 0.6}, {Text: "Neil Armstrong", Probability: 0.5}},
	}
	answerer := &answererFake{reports: map[string]*domain.AnswerReport{
		"When did the Eiffel Tower open?": tower,
		"Who walked on the moon first?":   moon,
		"Unlabeled?":                      tower,
	}}
	cases := []domain.EvaluationCase{
		{Question: "When did the Eiffel Tower open?", LabeledAnswer: "1889"},
		{Question: "Who walked on the moon first?", LabeledAnswer: "neil armstrong"},
		{Question: "Unlabeled?"},
	}

	report, err := NewEvaluator(answerer, nil).Evaluate(context.Background(), cases, 1)
	if err != nil {
		t.Fatalf("Evaluate returned error: %v", err)
	}

	if len(report.Results[0].Candidates) != 2 || report.Results[0].Candidates[1] != "The tower opened to the public in 1889." {
		t.Fatalf("expected candidate texts on the result, got %q", report.Results[0].Candidates)
	}
	first := report.Results[0].Stats
	want := domain.CaseStats{
		PositiveScoreContainsAnswer: true,
		ParagraphsContainAnswer:     true,
		FirstAnswerParagraphIndex:   1,
		AllAnswersContainAnswer:     true,
	}
	if first == nil || *first != want {
		t.Fatalf("unexpected stats for labeled case: %+v", first)
	}
	second := report.Results[1].Stats
	if second == nil || !second.ZeroScoreContainsAnswer || second.PositiveScoreContainsAnswer ||
		second.FirstAnswerParagraphIndex != 0 || !second.KnowledgeContainsAnswer || !second.TopThreeContainsAnswer {
		t.Fatalf("unexpected stats for second case: %+v", second)
	}
	if report.Results[2].Stats != nil {
		t.Fatalf("unlabeled cases must not carry stats, got %+v", report.Results[2].Stats)
	}

	stats := report.Stats
	if stats.Labeled != 2 || stats.ParagraphsWithAnswer != 2 || stats.PositiveScoreWithAnswer != 1 ||
		stats.ZeroScoreWithAnswer != 1 || stats.SelectedWithAnswer != 2 || stats.KnowledgeWithAnswer != 1 ||
		stats.TopThreeWithAnswer != 1 || stats.AllAnswersWithAnswer != 2 {
		t.Fatalf("unexpected aggregate stats %+v", stats)
	}
	if stats.PrecisionAt(1) != 0.5 || stats.PrecisionAt(2) != 1 {
		t.Fatalf("unexpected precision at 1/2: %v %v", stats.PrecisionAt(1), stats.PrecisionAt(2))
	}
}
