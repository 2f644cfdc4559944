package ports

import (
	"context"

	"github.com/kirillkom/factoid-qa/internal/core/domain"
)

// Tagger returns POS tags and, when requested, NER tags for pre-tokenized text.
type Tagger interface {
	Tag(ctx context.Context, tokens []string, withNER bool) (domain.TagResult, error)
}

// DocumentSearcher executes one gram query against a search backend.
type DocumentSearcher interface {
	Search(ctx context.Context, grams []string) (domain.SearchResponse, error)
}

// ArticleFetcher extracts the article behind a knowledge-graph URI. An
// empty slice means the URI resolved to nothing usable.
type ArticleFetcher interface {
	FetchArticle(ctx context.Context, uri string) ([]domain.RetrievedObject, error)
}

// KnowledgeGraph looks up descriptive objects for a named entity.
type KnowledgeGraph interface {
	Lookup(ctx context.Context, entity domain.NamedEntity) ([]domain.RetrievedObject, error)
}

// AnswerExtractor predicts answer spans for a question within one passage.
// Calls are served one at a time in submission order.
type AnswerExtractor interface {
	Open(ctx context.Context) error
	Extract(ctx context.Context, passage, question string) ([]domain.AnswerPrediction, error)
	Close() error
}

// Chunker splits one document text into bounded candidate windows.
type Chunker interface {
	Split(text string) []string
}

// QuestionJobRepository persists asynchronous question jobs.
type QuestionJobRepository interface {
	Create(ctx context.Context, job *domain.QuestionJob) error
	GetByID(ctx context.Context, id string) (*domain.QuestionJob, error)
	UpdateStatus(ctx context.Context, id string, status domain.JobStatus, errMessage string) error
	SaveResult(ctx context.Context, id string, result domain.JobResult) error
	ListRecent(ctx context.Context, limit int) ([]domain.QuestionJob, error)
}

// JobQueue publishes and consumes question job IDs.
type JobQueue interface {
	PublishQuestionJob(ctx context.Context, jobID string) error
	SubscribeQuestionJobs(ctx context.Context, handler func(context.Context, string) error) error
}

// PipelineObserver receives pipeline measurements. Implementations must be
// safe for concurrent use.
type PipelineObserver interface {
	ObserveQuestion(questionType domain.QuestionType)
	ObserveQueries(queries []domain.SearchQuery)
	ObserveRetrieval(objects int, knowledgeContexts int)
	ObserveCandidates(count int)
	ObserveExtractionFailure()
	ObserveStage(stage string, seconds float64)
}
