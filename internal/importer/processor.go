package importer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"os"

	"github.com/skillhub/backend/internal/models"
	"github.com/skillhub/backend/internal/storage"
)

type processorJobStore interface {
	GetJob(ctx context.Context, id string) (*models.ImportJob, error)
	MarkInProgress(ctx context.Context, id string) (bool, error)
	UpdateTotalRows(ctx context.Context, id string, total int) error
	UpdateProgress(ctx context.Context, id string, p models.ImportProgress) error
	Complete(ctx context.Context, id string, status models.ImportStatus, p models.ImportProgress, reportPath *string) error
	Fail(ctx context.Context, id string) error
}

type questionCreator interface {
	CreateQuestion(ctx context.Context, q *models.Question) error
}

// Processor runs one import job to a terminal state: download, parse,
// validate and persist row by row, checkpoint progress, and finalize with an
// error report when any rows failed.
type Processor struct {
	jobs      processorJobStore
	questions questionCreator
	blobs     storage.Store
	logger    *log.Logger

	// CheckpointEvery is the progress-write interval in rows. Tunable; 50 is
	// frequent enough for pollers without hammering the job table.
	CheckpointEvery int
}

func NewProcessor(jobs processorJobStore, questions questionCreator, blobs storage.Store, logger *log.Logger) *Processor {
	if logger == nil {
		logger = log.New(os.Stderr, "[importer] ", log.LstdFlags)
	}
	return &Processor{
		jobs:            jobs,
		questions:       questions,
		blobs:           blobs,
		logger:          logger,
		CheckpointEvery: 50,
	}
}

// HandleTask is the queue handler for the import queue. Payloads that cannot
// reference a live job are acknowledged rather than redelivered forever.
func (p *Processor) HandleTask(ctx context.Context, payload []byte) error {
	var task TaskPayload
	if err := json.Unmarshal(payload, &task); err != nil {
		p.logger.Printf("dropping malformed task payload: %v", err)
		return nil
	}
	return p.Process(ctx, task.JobID)
}

// Process runs the job with the given id. All outcomes are communicated via
// job mutation: pipeline errors force the job to failed and are swallowed, so
// the queue never redelivers a job that failed deterministically. An error is
// returned only when the job could not be loaded or claimed at all.
func (p *Processor) Process(ctx context.Context, jobID string) error {
	job, err := p.jobs.GetJob(ctx, jobID)
	if errors.Is(err, ErrJobNotFound) {
		p.logger.Printf("job=%s not found, ignoring stale task", jobID)
		return nil
	}
	if err != nil {
		return err
	}

	if job.Status.Terminal() {
		p.logger.Printf("job=%s already %s, ignoring redelivery", jobID, job.Status)
		return nil
	}

	started, err := p.jobs.MarkInProgress(ctx, jobID)
	if err != nil {
		return err
	}
	if !started {
		p.logger.Printf("job=%s could not be claimed, skipping", jobID)
		return nil
	}

	if err := p.run(ctx, job); err != nil {
		p.logger.Printf("job=%s failed: %v", jobID, err)
		if failErr := p.jobs.Fail(ctx, jobID); failErr != nil {
			p.logger.Printf("job=%s could not be marked failed: %v", jobID, failErr)
		}
	}
	return nil
}

// run executes download through finalize. Any error it returns is a pipeline
// error, terminal for the job; row-level failures are handled inside the loop
// and never surface here.
func (p *Processor) run(ctx context.Context, job *models.ImportJob) error {
	rc, err := p.blobs.Open(ctx, job.StoragePath)
	if err != nil {
		return fmt.Errorf("download %s: %w", job.StoragePath, err)
	}
	data, err := io.ReadAll(rc)
	rc.Close()
	if err != nil {
		return fmt.Errorf("read %s: %w", job.StoragePath, err)
	}

	parser, err := ParserFor(job.FileName)
	if err != nil {
		return err
	}
	rows, err := parser.Parse(data)
	if err != nil {
		return fmt.Errorf("parse %s: %w", job.FileName, err)
	}

	if len(rows) != job.TotalRows {
		if err := p.jobs.UpdateTotalRows(ctx, job.ID, len(rows)); err != nil {
			return err
		}
	}

	var progress models.ImportProgress
	var rowErrors []models.RowError

	for i, row := range rows {
		rowNumber := i + 1

		question, rowErr := ValidateRow(job.TemplateID, row)
		if rowErr != nil {
			rowErrors = append(rowErrors, models.RowError{
				RowNumber: rowNumber,
				Reason:    rowErr.Error(),
				Raw:       row,
			})
			progress.FailedRows++
		} else {
			if err := p.questions.CreateQuestion(ctx, question); err != nil {
				return fmt.Errorf("persist row %d: %w", rowNumber, err)
			}
			progress.SuccessfulRows++
		}
		progress.ProcessedRows++

		if rowNumber%p.CheckpointEvery == 0 {
			if err := p.jobs.UpdateProgress(ctx, job.ID, progress); err != nil {
				// Checkpoints are best-effort; the final update is authoritative.
				p.logger.Printf("job=%s checkpoint at row %d failed: %v", job.ID, rowNumber, err)
			}
		}
	}

	var reportPath *string
	if len(rowErrors) > 0 {
		report, err := RenderErrorReport(rowErrors)
		if err != nil {
			return err
		}
		key := fmt.Sprintf("imports/%d/errors-%s.csv", job.TemplateID, job.ID)
		path, err := p.blobs.Upload(ctx, key, report)
		if err != nil {
			return fmt.Errorf("upload error report: %w", err)
		}
		reportPath = &path
	}

	status := models.ImportCompleted
	if progress.FailedRows > 0 {
		status = models.ImportCompletedWithErrors
	}
	if err := p.jobs.Complete(ctx, job.ID, status, progress, reportPath); err != nil {
		return err
	}

	p.logger.Printf("job=%s %s: %d/%d rows ok, %d failed",
		job.ID, status, progress.SuccessfulRows, progress.ProcessedRows, progress.FailedRows)
	return nil
}
