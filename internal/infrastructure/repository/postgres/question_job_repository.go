package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/kirillkom/factoid-qa/internal/core/domain"
)

const schemaLockID int64 = 2026101701

type QuestionJobRepository struct {
	db *sql.DB
}

func NewQuestionJobRepository(db *sql.DB) *QuestionJobRepository {
	return &QuestionJobRepository{db: db}
}

func OpenDB(dsn string) (*sql.DB, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("sql open: %w", err)
	}
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(10)
	db.SetConnMaxLifetime(30 * time.Minute)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("db ping: %w", err)
	}
	return db, nil
}

func (r *QuestionJobRepository) EnsureSchema(ctx context.Context) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin schema tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	// Serialize bootstrap DDL across api/worker startups.
	if _, err := tx.ExecContext(ctx, `SELECT pg_advisory_xact_lock($1)`, schemaLockID); err != nil {
		return fmt.Errorf("acquire schema lock: %w", err)
	}

	const query = `
CREATE TABLE IF NOT EXISTS question_jobs (
	id TEXT PRIMARY KEY,
	question TEXT NOT NULL,
	labeled_answer TEXT NOT NULL DEFAULT '',
	status TEXT NOT NULL,
	question_type TEXT NOT NULL DEFAULT '',
	queries JSONB NOT NULL DEFAULT '[]'::jsonb,
	best_query JSONB NOT NULL DEFAULT '[]'::jsonb,
	answers JSONB NOT NULL DEFAULT '[]'::jsonb,
	correct BOOLEAN,
	error_message TEXT NOT NULL DEFAULT '',
	created_at TIMESTAMPTZ NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_question_jobs_status ON question_jobs(status);
CREATE INDEX IF NOT EXISTS idx_question_jobs_created_at ON question_jobs(created_at DESC);
`
	if _, err := tx.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("execute schema ddl: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit schema tx: %w", err)
	}
	return nil
}

func (r *QuestionJobRepository) Create(ctx context.Context, job *domain.QuestionJob) error {
	_, err := r.db.ExecContext(ctx, `
INSERT INTO question_jobs (
	id, question, labeled_answer, status, error_message, created_at, updated_at
) VALUES ($1,$2,$3,$4,$5,$6,$7)
`,
		job.ID, job.Question, job.LabeledAnswer, string(job.Status), job.Error, job.CreatedAt, job.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert question job: %w", err)
	}
	return nil
}

const selectJobColumns = `SELECT id, question, labeled_answer, status, question_type, queries, best_query, answers, correct, error_message, created_at, updated_at
FROM question_jobs`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanJob(row rowScanner) (*domain.QuestionJob, error) {
	var (
		job                         domain.QuestionJob
		status, questionType        string
		queriesRaw, bestRaw, ansRaw []byte
		correct                     sql.NullBool
	)
	err := row.Scan(
		&job.ID, &job.Question, &job.LabeledAnswer, &status, &questionType,
		&queriesRaw, &bestRaw, &ansRaw, &correct, &job.Error, &job.CreatedAt, &job.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	job.Status = domain.JobStatus(status)
	job.QuestionType = domain.QuestionType(questionType)
	if correct.Valid {
		v := correct.Bool
		job.Correct = &v
	}
	if err := unmarshalColumn(queriesRaw, &job.Queries); err != nil {
		return nil, fmt.Errorf("unmarshal queries: %w", err)
	}
	if err := unmarshalColumn(bestRaw, &job.BestQuery); err != nil {
		return nil, fmt.Errorf("unmarshal best query: %w", err)
	}
	if err := unmarshalColumn(ansRaw, &job.Answers); err != nil {
		return nil, fmt.Errorf("unmarshal answers: %w", err)
	}
	return &job, nil
}

func unmarshalColumn(raw []byte, out any) error {
	if len(raw) == 0 {
		return nil
	}
	return json.Unmarshal(raw, out)
}

func (r *QuestionJobRepository) GetByID(ctx context.Context, id string) (*domain.QuestionJob, error) {
	row := r.db.QueryRowContext(ctx, selectJobColumns+`
WHERE id = $1
`, id)

	job, err := scanJob(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.WrapError(domain.ErrJobNotFound, "get question job", fmt.Errorf("id=%s", id))
		}
		return nil, fmt.Errorf("scan question job: %w", err)
	}
	return job, nil
}

func (r *QuestionJobRepository) ListRecent(ctx context.Context, limit int) ([]domain.QuestionJob, error) {
	rows, err := r.db.QueryContext(ctx, selectJobColumns+`
ORDER BY created_at DESC
LIMIT $1
`, limit)
	if err != nil {
		return nil, fmt.Errorf("query question jobs: %w", err)
	}
	defer rows.Close()

	jobs := make([]domain.QuestionJob, 0, limit)
	for rows.Next() {
		job, err := scanJob(rows)
		if err != nil {
			return nil, fmt.Errorf("scan question job: %w", err)
		}
		jobs = append(jobs, *job)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate question jobs: %w", err)
	}
	return jobs, nil
}

func (r *QuestionJobRepository) UpdateStatus(ctx context.Context, id string, status domain.JobStatus, errMessage string) error {
	res, err := r.db.ExecContext(ctx, `
UPDATE question_jobs
SET status = $2, error_message = $3, updated_at = $4
WHERE id = $1
`, id, string(status), errMessage, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("update question job status: %w", err)
	}
	return requireAffected(res, "update question job status", id)
}

func (r *QuestionJobRepository) SaveResult(ctx context.Context, id string, result domain.JobResult) error {
	queries, err := json.Marshal(nonNil(result.Queries))
	if err != nil {
		return fmt.Errorf("marshal queries: %w", err)
	}
	best, err := json.Marshal(nonNil(result.BestQuery))
	if err != nil {
		return fmt.Errorf("marshal best query: %w", err)
	}
	answers, err := json.Marshal(nonNil(result.Answers))
	if err != nil {
		return fmt.Errorf("marshal answers: %w", err)
	}
	var correct sql.NullBool
	if result.Correct != nil {
		correct = sql.NullBool{Bool: *result.Correct, Valid: true}
	}

	res, err := r.db.ExecContext(ctx, `
UPDATE question_jobs
SET question_type = $2, queries = $3, best_query = $4, answers = $5, correct = $6, updated_at = $7
WHERE id = $1
`, id, string(result.QuestionType), queries, best, answers, correct, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("save question job result: %w", err)
	}
	return requireAffected(res, "save question job result", id)
}

func requireAffected(res sql.Result, op, id string) error {
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s rows affected: %w", op, err)
	}
	if affected == 0 {
		return domain.WrapError(domain.ErrJobNotFound, op, fmt.Errorf("id=%s", id))
	}
	return nil
}

func nonNil[T any](in []T) []T {
	if in == nil {
		return []T{}
	}
	return in
}
