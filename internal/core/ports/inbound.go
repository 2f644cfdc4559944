package ports

import (
	"context"

	"github.com/kirillkom/factoid-qa/internal/core/domain"
)

// QuestionClassifier is the inbound contract for question preprocessing.
type QuestionClassifier interface {
	Classify(ctx context.Context, raw string) (domain.Question, error)
}

// QueryReformulator turns a classified question into ranked search queries.
type QueryReformulator interface {
	Reformulate(ctx context.Context, q domain.Question) []domain.SearchQuery
}

// QuestionAnswerer runs the full answering pipeline synchronously.
type QuestionAnswerer interface {
	Answer(ctx context.Context, question string) (*domain.AnswerReport, error)
}

// QuestionJobService is the inbound contract for asynchronous answering.
type QuestionJobService interface {
	Submit(ctx context.Context, question, labeledAnswer string) (*domain.QuestionJob, error)
	Get(ctx context.Context, id string) (*domain.QuestionJob, error)
	ListRecent(ctx context.Context, limit int) ([]domain.QuestionJob, error)
}

// QuestionJobProcessor is the inbound contract for the queue worker.
type QuestionJobProcessor interface {
	ProcessByID(ctx context.Context, jobID string) error
}
