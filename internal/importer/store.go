package importer

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/skillhub/backend/internal/models"
)

var ErrJobNotFound = errors.New("import job not found")

// JobStore persists ImportJob records. A job row is created once by the
// initiator and mutated only by the processor that owns the run.
type JobStore struct {
	db *sql.DB
}

func NewJobStore(db *sql.DB) *JobStore {
	return &JobStore{db: db}
}

const jobColumns = `id, template_id, admin_id, file_name, storage_path, status,
	        total_rows, processed_rows, successful_rows, failed_rows,
	        error_report_path, started_at, completed_at, created_at`

func (s *JobStore) CreateJob(ctx context.Context, job *models.ImportJob) error {
	err := s.db.QueryRowContext(ctx,
		`INSERT INTO import_jobs (id, template_id, admin_id, file_name, storage_path, status, total_rows)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)
		 RETURNING created_at`,
		job.ID, job.TemplateID, job.AdminID, job.FileName, job.StoragePath, job.Status, job.TotalRows,
	).Scan(&job.CreatedAt)
	if err != nil {
		return fmt.Errorf("create import job: %w", err)
	}
	return nil
}

func (s *JobStore) GetJob(ctx context.Context, id string) (*models.ImportJob, error) {
	var job models.ImportJob
	err := s.db.QueryRowContext(ctx,
		fmt.Sprintf(`SELECT %s FROM import_jobs WHERE id = $1`, jobColumns),
		id,
	).Scan(&job.ID, &job.TemplateID, &job.AdminID, &job.FileName, &job.StoragePath, &job.Status,
		&job.TotalRows, &job.ProcessedRows, &job.SuccessfulRows, &job.FailedRows,
		&job.ErrorReportPath, &job.StartedAt, &job.CompletedAt, &job.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, ErrJobNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get import job: %w", err)
	}
	return &job, nil
}

func (s *JobStore) ListJobsByTemplate(ctx context.Context, templateID int64) ([]models.ImportJob, error) {
	rows, err := s.db.QueryContext(ctx,
		fmt.Sprintf(`SELECT %s FROM import_jobs WHERE template_id = $1 ORDER BY created_at DESC`, jobColumns),
		templateID,
	)
	if err != nil {
		return nil, fmt.Errorf("list import jobs: %w", err)
	}
	defer rows.Close()

	var jobs []models.ImportJob
	for rows.Next() {
		var job models.ImportJob
		if err := rows.Scan(&job.ID, &job.TemplateID, &job.AdminID, &job.FileName, &job.StoragePath, &job.Status,
			&job.TotalRows, &job.ProcessedRows, &job.SuccessfulRows, &job.FailedRows,
			&job.ErrorReportPath, &job.StartedAt, &job.CompletedAt, &job.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan import job: %w", err)
		}
		jobs = append(jobs, job)
	}
	return jobs, rows.Err()
}

// MarkInProgress moves a job into in_progress and stamps started_at. It
// succeeds for pending jobs and for in_progress jobs being reprocessed after
// a lapsed lease; terminal jobs are left untouched.
func (s *JobStore) MarkInProgress(ctx context.Context, id string) (bool, error) {
	res, err := s.db.ExecContext(ctx,
		`UPDATE import_jobs SET status = $2, started_at = NOW()
		 WHERE id = $1 AND status IN ($3, $2)`,
		id, models.ImportInProgress, models.ImportPending,
	)
	if err != nil {
		return false, fmt.Errorf("mark in progress: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// UpdateTotalRows refines total_rows from the true parse count.
func (s *JobStore) UpdateTotalRows(ctx context.Context, id string, total int) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE import_jobs SET total_rows = $2 WHERE id = $1`,
		id, total,
	)
	if err != nil {
		return fmt.Errorf("update total rows: %w", err)
	}
	return nil
}

// UpdateProgress checkpoints the row counters mid-run. Last writer wins.
func (s *JobStore) UpdateProgress(ctx context.Context, id string, p models.ImportProgress) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE import_jobs
		 SET processed_rows = $2, successful_rows = $3, failed_rows = $4
		 WHERE id = $1`,
		id, p.ProcessedRows, p.SuccessfulRows, p.FailedRows,
	)
	if err != nil {
		return fmt.Errorf("update progress: %w", err)
	}
	return nil
}

// Complete writes the terminal status, final counters, report path, and
// completed_at in one atomic update. Only in_progress jobs can complete.
func (s *JobStore) Complete(ctx context.Context, id string, status models.ImportStatus, p models.ImportProgress, reportPath *string) error {
	if !models.ImportInProgress.CanTransition(status) {
		return fmt.Errorf("invalid completion status %q", status)
	}
	res, err := s.db.ExecContext(ctx,
		`UPDATE import_jobs
		 SET status = $2, processed_rows = $3, successful_rows = $4, failed_rows = $5,
		     error_report_path = $6, completed_at = NOW()
		 WHERE id = $1 AND status = $7`,
		id, status, p.ProcessedRows, p.SuccessfulRows, p.FailedRows, reportPath, models.ImportInProgress,
	)
	if err != nil {
		return fmt.Errorf("complete import job: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("job %s not in progress", id)
	}
	return nil
}

// Fail forces a job into the failed terminal state.
func (s *JobStore) Fail(ctx context.Context, id string) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE import_jobs SET status = $2, completed_at = NOW()
		 WHERE id = $1 AND status IN ($3, $4)`,
		id, models.ImportFailed, models.ImportPending, models.ImportInProgress,
	)
	if err != nil {
		return fmt.Errorf("fail import job: %w", err)
	}
	return nil
}

// FailStalled fails jobs stuck in_progress longer than maxAge. Run from the
// recurring sweep to recover jobs orphaned by a crashed worker whose task was
// never redelivered.
func (s *JobStore) FailStalled(ctx context.Context, maxAge time.Duration) (int64, error) {
	res, err := s.db.ExecContext(ctx,
		`UPDATE import_jobs SET status = $1, completed_at = NOW()
		 WHERE status = $2 AND started_at < NOW() - ($3 * INTERVAL '1 second')`,
		models.ImportFailed, models.ImportInProgress, int(maxAge.Seconds()),
	)
	if err != nil {
		return 0, fmt.Errorf("fail stalled jobs: %w", err)
	}
	return res.RowsAffected()
}

func (s *JobStore) TemplateExists(ctx context.Context, templateID int64) (bool, error) {
	var exists bool
	err := s.db.QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM question_templates WHERE id = $1)`,
		templateID,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check template: %w", err)
	}
	return exists, nil
}

// QuestionStore persists validated question records, one row at a time.
type QuestionStore struct {
	db *sql.DB
}

func NewQuestionStore(db *sql.DB) *QuestionStore {
	return &QuestionStore{db: db}
}

func (s *QuestionStore) CreateQuestion(ctx context.Context, q *models.Question) error {
	err := s.db.QueryRowContext(ctx,
		`INSERT INTO questions
		 (template_id, level, question_text, option_a, option_b, option_c, option_d,
		  correct_option, explanation, active)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		 RETURNING id, created_at`,
		q.TemplateID, q.Level, q.Text, q.OptionA, q.OptionB, q.OptionC, q.OptionD,
		q.CorrectOption, nullString(q.Explanation), q.Active,
	).Scan(&q.ID, &q.CreatedAt)
	if err != nil {
		return fmt.Errorf("create question: %w", err)
	}
	return nil
}

func nullString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
