package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/kirillkom/factoid-qa/internal/core/domain"
	"github.com/kirillkom/factoid-qa/internal/core/ports"
)

const (
	stagePreprocess  = "preprocess"
	stageReformulate = "reformulate"
	stageRetrieve    = "retrieve"
	stageCandidates  = "candidates"
	stageExtract     = "extract"
	stageAggregate   = "aggregate"
)

type QuestionAnswerUseCase struct {
	classifier  ports.QuestionClassifier
	reformulate ports.QueryReformulator
	retriever   *DocumentRetriever
	candidates  *CandidateGenerator
	extractor   ports.AnswerExtractor
	aggregator  *AnswerAggregator
	observer    ports.PipelineObserver
	logger      *slog.Logger
}

func NewQuestionAnswerUseCase(
	classifier ports.QuestionClassifier,
	reformulate ports.QueryReformulator,
	retriever *DocumentRetriever,
	candidates *CandidateGenerator,
	extractor ports.AnswerExtractor,
	aggregator *AnswerAggregator,
	observer ports.PipelineObserver,
	logger *slog.Logger,
) *QuestionAnswerUseCase {
	if aggregator == nil {
		aggregator = NewAnswerAggregator()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &QuestionAnswerUseCase{
		classifier:  classifier,
		reformulate: reformulate,
		retriever:   retriever,
		candidates:  candidates,
		extractor:   extractor,
		aggregator:  aggregator,
		observer:    observer,
		logger:      logger.With("component", "question_answerer"),
	}
}

// Answer runs the whole pipeline for one question. Collaborator failures
// degrade the report instead of failing it; only invalid input and context
// cancellation are returned as errors.
func (uc *QuestionAnswerUseCase) Answer(ctx context.Context, question string) (*domain.AnswerReport, error) {
	started := time.Now()
	report := &domain.AnswerReport{}

	var err error
	uc.stage(stagePreprocess, func() {
		report.Question, err = uc.classifier.Classify(ctx, question)
	})
	if err != nil {
		return nil, err
	}
	q := report.Question
	if uc.observer != nil {
		uc.observer.ObserveQuestion(q.Type)
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	uc.stage(stageReformulate, func() {
		report.Queries = uc.reformulate.Reformulate(ctx, q)
	})
	if uc.observer != nil {
		uc.observer.ObserveQueries(report.Queries)
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var retrieval domain.RetrievalResult
	uc.stage(stageRetrieve, func() {
		retrieval = uc.retriever.Retrieve(ctx, q, report.Queries)
	})
	report.BestQuery = retrieval.BestQuery
	report.Objects = len(retrieval.Objects)
	report.KnowledgeContexts = retrieval.KnowledgeContexts
	if uc.observer != nil {
		uc.observer.ObserveRetrieval(len(retrieval.Objects), len(retrieval.KnowledgeContexts))
	}
	if len(retrieval.Objects) == 0 && len(retrieval.KnowledgeContexts) == 0 {
		report.Degraded = append(report.Degraded, "no documents retrieved")
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	uc.stage(stageCandidates, func() {
		report.Windows = uc.candidates.ScoreWindows(retrieval.RetrievedObjects(), retrieval.Terms, q.NumericAnswerExpected)
		report.Candidates = uc.candidates.Select(report.Windows)
	})
	if uc.observer != nil {
		uc.observer.ObserveCandidates(len(report.Candidates))
	}

	passages := make([]string, 0, len(retrieval.KnowledgeContexts)+len(report.Candidates))
	passages = append(passages, retrieval.KnowledgeContexts...)
	for _, c := range report.Candidates {
		passages = append(passages, c.Text)
	}

	uc.stage(stageExtract, func() {
		err = uc.extract(ctx, report, passages)
	})
	if err != nil {
		return nil, err
	}

	uc.stage(stageAggregate, func() {
		report.Answers = uc.aggregator.Aggregate(report.Predictions, q.NumericAnswerExpected)
	})

	uc.logger.Info("question_answered",
		"type", q.Type,
		"queries", len(report.Queries),
		"objects", report.Objects,
		"candidates", len(report.Candidates),
		"answers", len(report.Answers),
		"degraded", len(report.Degraded),
		"duration_ms", time.Since(started).Milliseconds(),
	)
	return report, nil
}

func (uc *QuestionAnswerUseCase) extract(ctx context.Context, report *domain.AnswerReport, passages []string) error {
	if uc.extractor == nil || len(passages) == 0 {
		return nil
	}
	question := strings.TrimSpace(report.Question.Raw)
	failures := 0
	var lastErr error
	for _, passage := range passages {
		if err := ctx.Err(); err != nil {
			return err
		}
		preds, err := uc.extractor.Extract(ctx, passage, question)
		if err != nil {
			if errors.Is(err, context.Canceled) {
				return err
			}
			failures++
			lastErr = err
			uc.logger.Warn("answer_extraction_failed", "error", err)
			if uc.observer != nil {
				uc.observer.ObserveExtractionFailure()
			}
			continue
		}
		report.Predictions = append(report.Predictions, preds...)
	}
	if failures > 0 {
		report.Degraded = append(report.Degraded,
			fmt.Sprintf("answer extraction failed for %d of %d passages: %v", failures, len(passages), lastErr))
	}
	return nil
}

func (uc *QuestionAnswerUseCase) stage(name string, fn func()) {
	started := time.Now()
	fn()
	if uc.observer != nil {
		uc.observer.ObserveStage(name, time.Since(started).Seconds())
	}
}
