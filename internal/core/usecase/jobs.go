package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/kirillkom/factoid-qa/internal/core/domain"
	"github.com/kirillkom/factoid-qa/internal/core/ports"
)

const (
	defaultJobListLimit = 20
	maxJobListLimit     = 100
)

type QuestionJobUseCase struct {
	repo     ports.QuestionJobRepository
	queue    ports.JobQueue
	answerer ports.QuestionAnswerer
}

func NewQuestionJobUseCase(
	repo ports.QuestionJobRepository,
	queue ports.JobQueue,
	answerer ports.QuestionAnswerer,
) *QuestionJobUseCase {
	return &QuestionJobUseCase{
		repo:     repo,
		queue:    queue,
		answerer: answerer,
	}
}

func (uc *QuestionJobUseCase) Submit(ctx context.Context, question, labeledAnswer string) (*domain.QuestionJob, error) {
	question = strings.TrimSpace(question)
	if question == "" {
		return nil, domain.WrapError(domain.ErrInvalidInput, "submit question", errors.New("question is required"))
	}
	now := time.Now().UTC()
	job := &domain.QuestionJob{
		ID:            uuid.NewString(),
		Question:      question,
		LabeledAnswer: strings.TrimSpace(labeledAnswer),
		Status:        domain.JobQueued,
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	if err := uc.repo.Create(ctx, job); err != nil {
		return nil, fmt.Errorf("create question job: %w", err)
	}
	if err := uc.queue.PublishQuestionJob(ctx, job.ID); err != nil {
		return nil, fmt.Errorf("publish question job: %w", err)
	}
	return job, nil
}

func (uc *QuestionJobUseCase) Get(ctx context.Context, id string) (*domain.QuestionJob, error) {
	job, err := uc.repo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("fetch question job: %w", err)
	}
	return job, nil
}

func (uc *QuestionJobUseCase) ListRecent(ctx context.Context, limit int) ([]domain.QuestionJob, error) {
	if limit <= 0 {
		limit = defaultJobListLimit
	}
	if limit > maxJobListLimit {
		limit = maxJobListLimit
	}
	jobs, err := uc.repo.ListRecent(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("list question jobs: %w", err)
	}
	return jobs, nil
}

func (uc *QuestionJobUseCase) ProcessByID(ctx context.Context, jobID string) error {
	job, err := uc.repo.GetByID(ctx, jobID)
	if err != nil {
		return fmt.Errorf("fetch question job: %w", err)
	}
	if err := uc.repo.UpdateStatus(ctx, jobID, domain.JobProcessing, ""); err != nil {
		return fmt.Errorf("set status=processing: %w", err)
	}

	report, err := uc.answerer.Answer(ctx, job.Question)
	if err != nil {
		return uc.fail(ctx, jobID, fmt.Errorf("answer question: %w", err))
	}

	result := domain.JobResult{
		QuestionType: report.Question.Type,
		Queries:      report.Queries,
		BestQuery:    report.BestQuery,
		Answers:      report.Answers,
	}
	if job.LabeledAnswer != "" {
		top, _ := report.TopAnswer()
		correct := MatchesLabel(top.Text, job.LabeledAnswer)
		result.Correct = &correct
	}

	if err := uc.repo.SaveResult(ctx, jobID, result); err != nil {
		return uc.fail(ctx, jobID, fmt.Errorf("save job result: %w", err))
	}
	if err := uc.repo.UpdateStatus(ctx, jobID, domain.JobDone, ""); err != nil {
		return fmt.Errorf("set status=done: %w", err)
	}
	return nil
}

func (uc *QuestionJobUseCase) fail(ctx context.Context, jobID string, processErr error) error {
	if failErr := uc.repo.UpdateStatus(ctx, jobID, domain.JobFailed, processErr.Error()); failErr != nil {
		return fmt.Errorf("%w; mark failed status: %v", processErr, failErr)
	}
	return processErr
}

// MatchesLabel reports whether an answer agrees with a labeled answer:
// equal ignoring case and surrounding space, or one containing the other.
func MatchesLabel(answer, label string) bool {
	a := strings.ToLower(strings.TrimSpace(answer))
	l := strings.ToLower(strings.TrimSpace(label))
	if a == "" || l == "" {
		return false
	}
	return a == l || strings.Contains(a, l) || strings.Contains(l, a)
}
