package gcp

import (
	"context"
	"fmt"
	"time"

	"cloud.google.com/go/firestore"
	"github.com/Lllllllleong/contractextraction/internal/models"
)

// NewFirestoreClient creates and returns a new Firestore client for the given project ID.
// It centralizes client creation for all services.
func NewFirestoreClient(ctx context.Context, projectID string) (*firestore.Client, error) {
	if projectID == "" {
		return nil, fmt.Errorf("projectID must be provided to create a firestore client")
	}

	client, err := firestore.NewClient(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("failed to create Firestore client: %w", err)
	}

	return client, nil
}

// JobStore tracks ingested contracts in a Firestore collection.
type JobStore struct {
	client     *firestore.Client
	collection string
}

// NewJobStore returns a JobStore over collection.
func NewJobStore(client *firestore.Client, collection string) *JobStore {
	return &JobStore{client: client, collection: collection}
}

// FindByHash returns the ID and status of a job already created for
// fileHash. The ID is empty when no job exists.
func (s *JobStore) FindByHash(ctx context.Context, fileHash string) (string, string, error) {
	docs, err := s.client.Collection(s.collection).Where("fileHash", "==", fileHash).Limit(1).Documents(ctx).GetAll()
	if err != nil {
		return "", "", fmt.Errorf("failed to query for duplicates: %w", err)
	}
	if len(docs) == 0 {
		return "", "", nil
	}
	var job models.ExtractionJob
	if err := docs[0].DataTo(&job); err != nil {
		return "", "", fmt.Errorf("failed to decode job %s: %w", docs[0].Ref.ID, err)
	}
	return docs[0].Ref.ID, job.Status, nil
}

// Create stores a new job in PROCESSING state and returns its ID.
func (s *JobStore) Create(ctx context.Context, fileHash, filename string) (string, error) {
	job := models.ExtractionJob{
		FileHash:         fileHash,
		OriginalFilename: filename,
		Status:           models.JobStatusProcessing,
		CreatedAt:        time.Now(),
	}
	ref, _, err := s.client.Collection(s.collection).Add(ctx, job)
	if err != nil {
		return "", fmt.Errorf("failed to create job document: %w", err)
	}
	return ref.ID, nil
}

// Restart moves a failed job back to PROCESSING and clears its error.
func (s *JobStore) Restart(ctx context.Context, jobID string) error {
	_, err := s.client.Collection(s.collection).Doc(jobID).Update(ctx, []firestore.Update{
		{Path: "status", Value: models.JobStatusProcessing},
		{Path: "errorDetails", Value: firestore.Delete},
		{Path: "stage", Value: firestore.Delete},
	})
	return err
}

// SetStage records the pipeline stage a job has reached.
func (s *JobStore) SetStage(ctx context.Context, jobID, stage string) error {
	_, err := s.client.Collection(s.collection).Doc(jobID).Update(ctx, []firestore.Update{
		{Path: "stage", Value: stage},
	})
	return err
}

// Complete stores the extraction result of a job.
func (s *JobStore) Complete(ctx context.Context, jobID string, record *models.ExtractedRecord, pageCount int, resultURI string) error {
	_, err := s.client.Collection(s.collection).Doc(jobID).Update(ctx, []firestore.Update{
		{Path: "status", Value: models.JobStatusDone},
		{Path: "documentType", Value: string(record.Type)},
		{Path: "pageCount", Value: pageCount},
		{Path: "fields", Value: record.Map()},
		{Path: "resultUri", Value: resultURI},
	})
	return err
}

// SetWorkflowExecution records the downstream workflow execution of a job.
func (s *JobStore) SetWorkflowExecution(ctx context.Context, jobID, executionID string) error {
	_, err := s.client.Collection(s.collection).Doc(jobID).Update(ctx, []firestore.Update{
		{Path: "workflowExecutionId", Value: executionID},
	})
	return err
}

// Fail marks a job as failed with errDetails.
func (s *JobStore) Fail(ctx context.Context, jobID, errDetails string) error {
	_, err := s.client.Collection(s.collection).Doc(jobID).Update(ctx, []firestore.Update{
		{Path: "status", Value: models.JobStatusFailed},
		{Path: "errorDetails", Value: errDetails},
	})
	return err
}
