package importer

import (
	"context"
	"errors"
	"fmt"
	"log"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/skillhub/backend/internal/models"
	"github.com/skillhub/backend/internal/storage"
)

const (
	// QueueName carries one task per import job.
	QueueName = "question-import"
	// SweepQueueName carries the recurring stalled-job sweep.
	SweepQueueName = "question-import-sweep"
	// SweepSchedule is the cron spec for the recurring sweep.
	SweepSchedule = "*/10 * * * *"
)

// TaskPayload is the queue message referencing one import job.
type TaskPayload struct {
	JobID       string `json:"job_id"`
	StoragePath string `json:"storage_path"`
	ParentID    int64  `json:"parent_id"`
}

// Intake errors, surfaced to the caller synchronously. No job is created for
// any of them.
var (
	ErrUnsupportedFileType = errors.New("unsupported file type")
	ErrEmptyFile           = errors.New("file contains no data rows")
	ErrUnreadableFile      = errors.New("file could not be read")
	ErrTemplateNotFound    = errors.New("question template not found")
)

// allowedMIMETypes is the upload allow-list: delimited text and the two
// binary spreadsheet variants.
var allowedMIMETypes = map[string]bool{
	"text/csv":        true,
	"application/csv": true,
	"application/vnd.ms-excel": true,
	"application/vnd.openxmlformats-officedocument.spreadsheetml.sheet": true,
	"application/vnd.ms-excel.sheet.binary.macroEnabled.12":             true,
}

var allowedExtensions = map[string]bool{".csv": true, ".xlsx": true, ".xls": true}

type serviceJobStore interface {
	CreateJob(ctx context.Context, job *models.ImportJob) error
	GetJob(ctx context.Context, id string) (*models.ImportJob, error)
	ListJobsByTemplate(ctx context.Context, templateID int64) ([]models.ImportJob, error)
	TemplateExists(ctx context.Context, templateID int64) (bool, error)
	FailStalled(ctx context.Context, maxAge time.Duration) (int64, error)
}

type enqueuer interface {
	Enqueue(ctx context.Context, queueName string, payload interface{}) error
}

// Service is the request-time entry point for imports: it validates the
// upload, uploads the bytes, creates the job record, and enqueues exactly one
// processing task.
type Service struct {
	jobs  serviceJobStore
	blobs storage.Store
	queue enqueuer

	// StaleAfter is how long a job may sit in_progress before the sweep
	// declares it failed.
	StaleAfter time.Duration
}

func NewService(jobs serviceJobStore, blobs storage.Store, queue enqueuer) *Service {
	return &Service{
		jobs:       jobs,
		blobs:      blobs,
		queue:      queue,
		StaleAfter: time.Hour,
	}
}

// StartImport validates the upload and hands it to the pipeline. Upload and
// job creation happen before enqueue so a worker picking up the task can
// always resolve the job and its file.
func (s *Service) StartImport(ctx context.Context, templateID, adminID int64, fileName string, fileBytes []byte, mimeType string) (*models.StartImportResponse, error) {
	if !acceptedUpload(fileName, mimeType) {
		return nil, ErrUnsupportedFileType
	}

	exists, err := s.jobs.TemplateExists(ctx, templateID)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, ErrTemplateNotFound
	}

	totalRows, err := CountDataRows(fileName, fileBytes)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnreadableFile, err)
	}
	if totalRows == 0 {
		return nil, ErrEmptyFile
	}

	key := storageKey(templateID, fileName)
	path, err := s.blobs.Upload(ctx, key, fileBytes)
	if err != nil {
		return nil, fmt.Errorf("upload import file: %w", err)
	}

	job := &models.ImportJob{
		ID:          uuid.NewString(),
		TemplateID:  templateID,
		AdminID:     adminID,
		FileName:    fileName,
		StoragePath: path,
		Status:      models.ImportPending,
		TotalRows:   totalRows,
	}
	if err := s.jobs.CreateJob(ctx, job); err != nil {
		return nil, err
	}

	if err := s.queue.Enqueue(ctx, QueueName, TaskPayload{
		JobID:       job.ID,
		StoragePath: path,
		ParentID:    templateID,
	}); err != nil {
		return nil, fmt.Errorf("enqueue import task: %w", err)
	}

	return &models.StartImportResponse{
		JobID:    job.ID,
		FileName: fileName,
		Status:   models.ImportPending,
		Message:  fmt.Sprintf("Import queued with %d rows", totalRows),
	}, nil
}

func (s *Service) GetJob(ctx context.Context, id string) (*models.ImportJob, error) {
	return s.jobs.GetJob(ctx, id)
}

func (s *Service) ListJobsByTemplate(ctx context.Context, templateID int64) ([]models.ImportJobSummary, error) {
	jobs, err := s.jobs.ListJobsByTemplate(ctx, templateID)
	if err != nil {
		return nil, err
	}

	summaries := make([]models.ImportJobSummary, 0, len(jobs))
	for _, job := range jobs {
		summary := models.ImportJobSummary{
			ID:             job.ID,
			FileName:       job.FileName,
			Status:         job.Status,
			TotalRows:      job.TotalRows,
			ProcessedRows:  job.ProcessedRows,
			SuccessfulRows: job.SuccessfulRows,
			FailedRows:     job.FailedRows,
			StartedAt:      job.StartedAt,
			CompletedAt:    job.CompletedAt,
			CreatedAt:      job.CreatedAt,
		}
		if job.ErrorReportPath != nil {
			summary.ErrorReportURL = ErrorReportURL(job.ID)
		}
		summaries = append(summaries, summary)
	}
	return summaries, nil
}

// ErrorReportURL is the public download location for a job's error report.
func ErrorReportURL(jobID string) string {
	return "/api/v1/import-jobs/" + jobID + "/error-report"
}

// HandleSweepTask is the queue handler for the recurring stalled-job sweep.
func (s *Service) HandleSweepTask(ctx context.Context, _ []byte) error {
	n, err := s.jobs.FailStalled(ctx, s.StaleAfter)
	if err != nil {
		return err
	}
	if n > 0 {
		log.Printf("[importer] sweep failed %d stalled job(s)", n)
	}
	return nil
}

func acceptedUpload(fileName, mimeType string) bool {
	if allowedMIMETypes[strings.ToLower(strings.TrimSpace(mimeType))] {
		return true
	}
	return allowedExtensions[strings.ToLower(filepath.Ext(fileName))]
}

// storageKey builds a collision-resistant object key from the parent id,
// upload time, and original name.
func storageKey(templateID int64, fileName string) string {
	return fmt.Sprintf("imports/%d/%d-%s", templateID, time.Now().UnixNano(), sanitizeFileName(fileName))
}

func sanitizeFileName(name string) string {
	name = filepath.Base(name)
	var b strings.Builder
	for _, c := range name {
		switch {
		case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z', c >= '0' && c <= '9', c == '.', c == '-', c == '_':
			b.WriteRune(c)
		default:
			b.WriteRune('_')
		}
	}
	return b.String()
}
