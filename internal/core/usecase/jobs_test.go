package usecase

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/kirillkom/factoid-qa/internal/core/domain"
)

type jobStatusCall struct {
	status domain.JobStatus
	errMsg string
}

type jobRepoFake struct {
	jobs        map[string]*domain.QuestionJob
	createErr   error
	saveErr     error
	statusCalls []jobStatusCall
	saved       *domain.JobResult
	listLimit   int
}

func newJobRepoFake() *jobRepoFake {
	return &jobRepoFake{jobs: make(map[string]*domain.QuestionJob)}
}

func (f *jobRepoFake) Create(_ context.Context, job *domain.QuestionJob) error {
	if f.createErr != nil {
		return f.createErr
	}
	copyJob := *job
	f.jobs[job.ID] = &copyJob
	return nil
}

func (f *jobRepoFake) GetByID(_ context.Context, id string) (*domain.QuestionJob, error) {
	job, ok := f.jobs[id]
	if !ok {
		return nil, domain.ErrJobNotFound
	}
	copyJob := *job
	return &copyJob, nil
}

func (f *jobRepoFake) UpdateStatus(_ context.Context, id string, status domain.JobStatus, errMessage string) error {
	f.statusCalls = append(f.statusCalls, jobStatusCall{status: status, errMsg: errMessage})
	if job, ok := f.jobs[id]; ok {
		job.Status = status
		job.Error = errMessage
	}
	return nil
}

func (f *jobRepoFake) SaveResult(_ context.Context, _ string, result domain.JobResult) error {
	if f.saveErr != nil {
		return f.saveErr
	}
	f.saved = &result
	return nil
}

func (f *jobRepoFake) ListRecent(_ context.Context, limit int) ([]domain.QuestionJob, error) {
	f.listLimit = limit
	out := make([]domain.QuestionJob, 0, len(f.jobs))
	for _, job := range f.jobs {
		out = append(out, *job)
	}
	return out, nil
}

type jobQueueFake struct {
	published []string
	err       error
}

func (f *jobQueueFake) PublishQuestionJob(_ context.Context, jobID string) error {
	if f.err != nil {
		return f.err
	}
	f.published = append(f.published, jobID)
	return nil
}

func (f *jobQueueFake) SubscribeQuestionJobs(context.Context, func(context.Context, string) error) error {
	return nil
}

type answererFake struct {
	mu      sync.Mutex
	reports map[string]*domain.AnswerReport
	errs    map[string]error
	calls   int
}

func (f *answererFake) Answer(_ context.Context, question string) (*domain.AnswerReport, error) {
	f.mu.Lock()
	f.calls++
	f.mu.Unlock()
	if err := f.errs[question]; err != nil {
		return nil, err
	}
	if report, ok := f.reports[question]; ok {
		return report, nil
	}
	return &domain.AnswerReport{}, nil
}

func eiffelReport() *domain.AnswerReport {
	return &domain.AnswerReport{
		Question:  domain.Question{Type: domain.ComplexFact},
		Queries:   []domain.SearchQuery{domain.NewSearchQuery(domain.FullQuery, []string{"Eiffel Tower was built in"})},
		BestQuery: []string{"Eiffel Tower was built in"},
		Answers:   []domain.AggregatedAnswer{{Text: "1889", Probability: 0.8}, {Text: "1887", Probability: 0.4}},
	}
}

func TestQuestionJobSubmitPersistsAndPublishes(t *testing.T) {
	repo := newJobRepoFake()
	queue := &jobQueueFake{}
	uc := NewQuestionJobUseCase(repo, queue, &answererFake{})

	job, err := uc.Submit(context.Background(), "  When was the Eiffel Tower built?  ", "1889")
	if err != nil {
		t.Fatalf("Submit returned error: %v", err)
	}
	if job.ID == "" || job.Status != domain.JobQueued {
		t.Fatalf("unexpected job %+v", job)
	}
	if job.Question != "When was the Eiffel Tower built?" {
		t.Fatalf("question must be trimmed, got %q", job.Question)
	}
	if _, ok := repo.jobs[job.ID]; !ok {
		t.Fatalf("job was not persisted")
	}
	if len(queue.published) != 1 || queue.published[0] != job.ID {
		t.Fatalf("job id was not published: %v", queue.published)
	}
}

func TestQuestionJobSubmitErrors(t *testing.T) {
	uc := NewQuestionJobUseCase(newJobRepoFake(), &jobQueueFake{}, &answererFake{})
	if _, err := uc.Submit(context.Background(), " ", ""); !errors.Is(err, domain.ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}

	queueErr := errors.New("nats down")
	uc = NewQuestionJobUseCase(newJobRepoFake(), &jobQueueFake{err: queueErr}, &answererFake{})
	if _, err := uc.Submit(context.Background(), "Who is Barack Obama?", ""); !errors.Is(err, queueErr) {
		t.Fatalf("expected queue error, got %v", err)
	}
}

func TestQuestionJobProcessByIDSuccess(t *testing.T) {
	repo := newJobRepoFake()
	repo.jobs["job-1"] = &domain.QuestionJob{ID: "job-1", Question: "When was the Eiffel Tower built?", LabeledAnswer: "1889", Status: domain.JobQueued}
	answerer := &answererFake{reports: map[string]*domain.AnswerReport{"When was the Eiffel Tower built?": eiffelReport()}}
	uc := NewQuestionJobUseCase(repo, &jobQueueFake{}, answerer)

	if err := uc.ProcessByID(context.Background(), "job-1"); err != nil {
		t.Fatalf("ProcessByID returned error: %v", err)
	}
	if len(repo.statusCalls) != 2 || repo.statusCalls[0].status != domain.JobProcessing || repo.statusCalls[1].status != domain.JobDone {
		t.Fatalf("unexpected status transitions %+v", repo.statusCalls)
	}
	if repo.saved == nil || repo.saved.Correct == nil || !*repo.saved.Correct {
		t.Fatalf("expected correct result to be saved, got %+v", repo.saved)
	}
	if repo.saved.QuestionType != domain.ComplexFact || len(repo.saved.Answers) != 2 {
		t.Fatalf("unexpected saved result %+v", repo.saved)
	}
}

func TestQuestionJobProcessByIDWithoutLabel(t *testing.T) {
	repo := newJobRepoFake()
	repo.jobs["job-2"] = &domain.QuestionJob{ID: "job-2", Question: "When was the Eiffel Tower built?"}
	answerer := &answererFake{reports: map[string]*domain.AnswerReport{"When was the Eiffel Tower built?": eiffelReport()}}
	uc := NewQuestionJobUseCase(repo, &jobQueueFake{}, answerer)

	if err := uc.ProcessByID(context.Background(), "job-2"); err != nil {
		t.Fatalf("ProcessByID returned error: %v", err)
	}
	if repo.saved == nil || repo.saved.Correct != nil {
		t.Fatalf("correctness must stay unset without a label, got %+v", repo.saved)
	}
}

func TestQuestionJobProcessByIDMarksFailed(t *testing.T) {
	repo := newJobRepoFake()
	repo.jobs["job-3"] = &domain.QuestionJob{ID: "job-3", Question: "broken"}
	answerer := &answererFake{errs: map[string]error{"broken": errors.New("pipeline exploded")}}
	uc := NewQuestionJobUseCase(repo, &jobQueueFake{}, answerer)

	err := uc.ProcessByID(context.Background(), "job-3")
	if err == nil {
		t.Fatalf("expected error")
	}
	last := repo.statusCalls[len(repo.statusCalls)-1]
	if last.status != domain.JobFailed || !strings.Contains(last.errMsg, "pipeline exploded") {
		t.Fatalf("expected failed status with message, got %+v", last)
	}
}

func TestQuestionJobProcessByIDUnknownJob(t *testing.T) {
	uc := NewQuestionJobUseCase(newJobRepoFake(), &jobQueueFake{}, &answererFake{})
	if err := uc.ProcessByID(context.Background(), "missing"); !errors.Is(err, domain.ErrJobNotFound) {
		t.Fatalf("expected ErrJobNotFound, got %v", err)
	}
}

func TestQuestionJobListRecentClampsLimit(t *testing.T) {
	repo := newJobRepoFake()
	uc := NewQuestionJobUseCase(repo, &jobQueueFake{}, &answererFake{})

	for _, tc := range []struct{ in, want int }{{0, 20}, {-3, 20}, {7, 7}, {1000, 100}} {
		if _, err := uc.ListRecent(context.Background(), tc.in); err != nil {
			t.Fatalf("ListRecent returned error: %v", err)
		}
		if repo.listLimit != tc.want {
			t.Fatalf("ListRecent(%d) used limit %d, want %d", tc.in, repo.listLimit, tc.want)
		}
	}
}

func TestMatchesLabel(t *testing.T) {
	cases := []struct {
		answer, label string
		want          bool
	}{
		{"1889", "1889", true},
		{"Paris ", "paris", true},
		{"in 1889", "1889", true},
		{"Gustave", "Gustave Eiffel", true},
		{"1887", "1889", false},
		{"", "1889", false},
		{"1889", "", false},
	}
	for _, tc := range cases {
		if got := MatchesLabel(tc.answer, tc.label); got != tc.want {
			t.Fatalf("MatchesLabel(%q, %q) = %v, want %v", tc.answer, tc.label, got, tc.want)
		}
	}
}
