package services

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/Lllllllleong/contractextraction/internal/models"
	"github.com/Lllllllleong/contractextraction/internal/pipeline"
)

// ObjectStore moves contracts and results in and out of object storage.
type ObjectStore interface {
	Download(ctx context.Context, bucket, object, destPath string) error
	SaveResult(ctx context.Context, objectName string, content []byte) (string, error)
}

// JobTracker persists the status of ingested contracts.
type JobTracker interface {
	// FindByHash returns the ID and status of the job created for fileHash,
	// or an empty ID when there is none.
	FindByHash(ctx context.Context, fileHash string) (jobID, status string, err error)
	Create(ctx context.Context, fileHash, filename string) (string, error)
	// Restart moves a failed job back to PROCESSING for another attempt.
	Restart(ctx context.Context, jobID string) error
	SetStage(ctx context.Context, jobID, stage string) error
	Complete(ctx context.Context, jobID string, record *models.ExtractedRecord, pageCount int, resultURI string) error
	SetWorkflowExecution(ctx context.Context, jobID, executionID string) error
	Fail(ctx context.Context, jobID, errDetails string) error
}

// WorkflowStarter hands extracted contracts to a downstream workflow.
type WorkflowStarter interface {
	Trigger(ctx context.Context, argument any) (string, error)
}

// IngestService extracts contracts uploaded to a GCS bucket.
type IngestService struct {
	processor Processor
	objects   ObjectStore
	jobs      JobTracker
	workflow  WorkflowStarter // optional
}

// NewIngestService creates an IngestService. workflow may be nil.
func NewIngestService(processor Processor, objects ObjectStore, jobs JobTracker, workflow WorkflowStarter) *IngestService {
	return &IngestService{processor: processor, objects: objects, jobs: jobs, workflow: workflow}
}

// Process handles one GCS finalize event. Validation failures are recorded on
// the job and not returned, so the event is not redelivered for a document
// that can never succeed. Processing failures are returned; the redelivered
// event finds the FAILED job and restarts it.
func (s *IngestService) Process(ctx context.Context, e models.GCSEvent) error {
	logCtx := slog.With("gcsBucket", e.Bucket, "gcsObject", e.Name)
	if !strings.EqualFold(path.Ext(e.Name), ".pdf") {
		logCtx.Info("Ignoring non-PDF object.")
		return nil
	}
	logCtx.Info("Processing new GCS object.")

	tempDir, err := os.MkdirTemp("", "contract-ingest-*")
	if err != nil {
		return fmt.Errorf("failed to create temp dir: %w", err)
	}
	defer os.RemoveAll(tempDir)

	sourcePath := filepath.Join(tempDir, path.Base(e.Name))
	if err := s.objects.Download(ctx, e.Bucket, e.Name, sourcePath); err != nil {
		logCtx.Error("Failed to download source PDF", "error", err)
		return err
	}

	fileHash, err := calculateFileHash(sourcePath)
	if err != nil {
		logCtx.Error("Failed to calculate file hash", "error", err)
		return fmt.Errorf("failed to calculate file hash: %w", err)
	}
	logCtx = logCtx.With("fileHash", fileHash)

	jobID, status, err := s.jobs.FindByHash(ctx, fileHash)
	if err != nil {
		logCtx.Error("Failed to check for duplicate", "error", err)
		return err
	}
	switch {
	case jobID == "":
		jobID, err = s.jobs.Create(ctx, fileHash, e.Name)
		if err != nil {
			logCtx.Error("Failed to create job document", "error", err)
			return err
		}
	case status == models.JobStatusFailed:
		// A redelivered event for a failed job runs the pipeline again.
		if err := s.jobs.Restart(ctx, jobID); err != nil {
			logCtx.Error("Failed to restart failed job", "existingDocId", jobID, "error", err)
			return err
		}
		logCtx.Info("Retrying previously failed file.", "existingDocId", jobID)
	default:
		logCtx.Info("Duplicate file detected. Skipping.", "existingDocId", jobID, "status", status)
		return nil
	}
	logCtx = logCtx.With("documentId", jobID)

	res, err := s.processor.Process(ctx, sourcePath, pipeline.WithObserver(func(stage pipeline.Stage) {
		if err := s.jobs.SetStage(ctx, jobID, string(stage)); err != nil {
			logCtx.Warn("Failed to record pipeline stage.", "stage", stage, "error", err)
		}
	}))
	if err != nil {
		failErr := s.handleError(ctx, logCtx, jobID, "contract extraction failed", err)
		if models.IsValidation(err) {
			return nil
		}
		return failErr
	}

	payload, err := json.Marshal(res.Record)
	if err != nil {
		return s.handleError(ctx, logCtx, jobID, "failed to encode extracted record", err)
	}
	resultURI, err := s.objects.SaveResult(ctx, fmt.Sprintf("%s/record.json", jobID), payload)
	if err != nil {
		return s.handleError(ctx, logCtx, jobID, "failed to save extracted record", err)
	}
	if err := s.jobs.Complete(ctx, jobID, res.Record, res.PageCount, resultURI); err != nil {
		return s.handleError(ctx, logCtx, jobID, "failed to update job to DONE", err)
	}
	logCtx.Info("Contract extracted.", "documentType", res.DocumentType, "resultUri", resultURI)

	if s.workflow == nil {
		return nil
	}
	executionID, err := s.workflow.Trigger(ctx, models.WorkflowArgument{
		DocumentID:   jobID,
		DocumentType: res.DocumentType,
		ResultURI:    resultURI,
		Fields:       res.Record.Map(),
	})
	if err != nil {
		return s.handleError(ctx, logCtx, jobID, "failed to trigger workflow execution", err)
	}
	if err := s.jobs.SetWorkflowExecution(ctx, jobID, executionID); err != nil {
		logCtx.Warn("Failed to record workflow execution.", "executionId", executionID, "error", err)
	}
	logCtx.Info("Hand-off to workflow complete.", "executionId", executionID)
	return nil
}

func (s *IngestService) handleError(ctx context.Context, logCtx *slog.Logger, jobID, message string, originalErr error) error {
	fullError := fmt.Sprintf("%s: %v", message, originalErr)
	logCtx.Error(message, "error", originalErr)
	if err := s.jobs.Fail(ctx, jobID, fullError); err != nil {
		logCtx.Error("CRITICAL: Failed to update job status to FAILED after a processing error.", "updateError", err)
	}
	return fmt.Errorf("%s: %w", message, originalErr)
}

func calculateFileHash(filePath string) (string, error) {
	file, err := os.Open(filePath)
	if err != nil {
		return "", err
	}
	defer file.Close()
	hash := sha256.New()
	if _, err := io.Copy(hash, file); err != nil {
		return "", err
	}
	return hex.EncodeToString(hash.Sum(nil)), nil
}
