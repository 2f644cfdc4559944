package domain

import "time"

type JobStatus string

const (
	JobQueued     JobStatus = "queued"
	JobProcessing JobStatus = "processing"
	JobDone       JobStatus = "done"
	JobFailed     JobStatus = "failed"
)

// QuestionJob is an asynchronously answered question.
type QuestionJob struct {
	ID            string             `json:"id"`
	Question      string             `json:"question"`
	LabeledAnswer string             `json:"labeled_answer,omitempty"`
	Status        JobStatus          `json:"status"`
	QuestionType  QuestionType       `json:"question_type,omitempty"`
	Queries       []SearchQuery      `json:"queries,omitempty"`
	BestQuery     []string           `json:"best_query,omitempty"`
	Answers       []AggregatedAnswer `json:"answers,omitempty"`
	Correct       *bool              `json:"correct,omitempty"`
	Error         string             `json:"error,omitempty"`
	CreatedAt     time.Time          `json:"created_at"`
	UpdatedAt     time.Time          `json:"updated_at"`
}

type JobResult struct {
	QuestionType QuestionType
	Queries      []SearchQuery
	BestQuery    []string
	Answers      []AggregatedAnswer
	Correct      *bool
}
