package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/panjf2000/ants/v2"

	"github.com/kirillkom/factoid-qa/internal/core/domain"
	"github.com/kirillkom/factoid-qa/internal/core/ports"
)

const defaultEvaluationConcurrency = 4

type Evaluator struct {
	answerer ports.QuestionAnswerer
	logger   *slog.Logger
}

func NewEvaluator(answerer ports.QuestionAnswerer, logger *slog.Logger) *Evaluator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Evaluator{answerer: answerer, logger: logger.With("component", "evaluator")}
}

type evaluationTask struct {
	idx     int
	ctx     context.Context
	c       domain.EvaluationCase
	results []domain.EvaluationResult
	wg      *sync.WaitGroup
}

// Evaluate answers every case on a bounded worker pool. Results keep the
// order of cases regardless of completion order.
func (e *Evaluator) Evaluate(ctx context.Context, cases []domain.EvaluationCase, concurrency int) (domain.EvaluationReport, error) {
	if concurrency <= 0 {
		concurrency = defaultEvaluationConcurrency
	}
	report := domain.EvaluationReport{Total: len(cases)}
	if len(cases) == 0 {
		return report, nil
	}

	pool, err := ants.NewPoolWithFunc(concurrency, func(args any) {
		task, ok := args.(*evaluationTask)
		if !ok {
			panic("evaluation pool args type error")
		}
		defer task.wg.Done()
		task.results[task.idx] = e.evaluateCase(task.ctx, task.c)
	})
	if err != nil {
		return report, fmt.Errorf("create evaluation pool: %w", err)
	}
	defer pool.Release()

	results := make([]domain.EvaluationResult, len(cases))
	var wg sync.WaitGroup
	for i, c := range cases {
		if ctx.Err() != nil {
			results[i] = domain.EvaluationResult{Case: c, Error: ctx.Err().Error()}
			continue
		}
		wg.Add(1)
		task := &evaluationTask{idx: i, ctx: ctx, c: c, results: results, wg: &wg}
		if err := pool.Invoke(task); err != nil {
			wg.Done()
			results[i] = domain.EvaluationResult{Case: c, Error: err.Error()}
		}
	}
	wg.Wait()

	report.Results = results
	for _, r := range results {
		switch {
		case r.Error != "":
			report.Failed++
		case r.Answer == "":
			report.NoAnswer++
		}
		if r.Correct {
			report.Correct++
		}
		if r.Stats != nil {
			report.Stats.Add(*r.Stats)
		}
	}
	e.logger.Info("evaluation_completed",
		"total", report.Total,
		"correct", report.Correct,
		"no_answer", report.NoAnswer,
		"failed", report.Failed,
		"paragraphs_with_answer", report.Stats.ParagraphsWithAnswer,
		"selected_with_answer", report.Stats.SelectedWithAnswer,
	)
	if err := ctx.Err(); err != nil && !errors.Is(err, context.DeadlineExceeded) {
		return report, err
	}
	return report, nil
}

func (e *Evaluator) evaluateCase(ctx context.Context, c domain.EvaluationCase) domain.EvaluationResult {
	started := time.Now()
	result := domain.EvaluationResult{Case: c}
	report, err := e.answerer.Answer(ctx, c.Question)
	result.Duration = time.Since(started)
	if err != nil {
		e.logger.Warn("evaluation_case_failed", "question", c.Question, "error", err)
		result.Error = err.Error()
		return result
	}
	result.BestQuery = report.BestQuery
	for _, c := range report.Candidates {
		result.Candidates = append(result.Candidates, c.Text)
	}
	if top, ok := report.TopAnswer(); ok {
		result.Answer = top.Text
		result.Score = top.Probability
		result.Correct = MatchesLabel(top.Text, c.LabeledAnswer)
	}
	if strings.TrimSpace(c.LabeledAnswer) != "" {
		stats := answerStats(report, c.LabeledAnswer)
		result.Stats = &stats
	}
	return result
}

const topAnswersChecked = 3

// answerStats locates the labeled answer in the scored windows, the
// shortlist, the knowledge-graph contexts and the aggregated answers.
func answerStats(report *domain.AnswerReport, label string) domain.CaseStats {
	stats := domain.CaseStats{FirstAnswerParagraphIndex: -1}
	for _, w := range report.Windows {
		if !containsLabel(w.Text, label) {
			continue
		}
		if w.Score > 0 {
			stats.PositiveScoreContainsAnswer = true
		} else {
			stats.ZeroScoreContainsAnswer = true
		}
	}
	stats.ParagraphsContainAnswer = stats.PositiveScoreContainsAnswer || stats.ZeroScoreContainsAnswer

	for i, c := range report.Candidates {
		if containsLabel(c.Text, label) {
			stats.FirstAnswerParagraphIndex = i
			break
		}
	}
	for _, kc := range report.KnowledgeContexts {
		if containsLabel(kc, label) {
			stats.KnowledgeContainsAnswer = true
			break
		}
	}
	for i, a := range report.Answers {
		if MatchesLabel(a.Text, label) {
			stats.AllAnswersContainAnswer = true
			if i < topAnswersChecked {
				stats.TopThreeContainsAnswer = true
			}
			break
		}
	}
	return stats
}

func containsLabel(text, label string) bool {
	label = strings.ToLower(strings.TrimSpace(label))
	return label != "" && strings.Contains(strings.ToLower(text), label)
}
