package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"sync"

	"cloud.google.com/go/storage"
	"github.com/GoogleCloudPlatform/functions-framework-go/functions"
	"github.com/Lllllllleong/contractextraction/internal/gcp"
	"github.com/Lllllllleong/contractextraction/internal/models"
	"github.com/Lllllllleong/contractextraction/internal/services"
	cloudevents "github.com/cloudevents/sdk-go/v2"
)

var (
	ingestInstance *services.IngestService
	once           sync.Once
	initErr        error
)

func init() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	functions.CloudEvent("IngestContract", ingestContract)
}

// main is required by the Go Functions Framework.
func main() {}

func ingestContract(ctx context.Context, e cloudevents.Event) error {
	once.Do(func() {
		ingestInstance, initErr = newIngestService(context.Background())
	})
	if initErr != nil {
		slog.Error("Critical error during function initialization", "error", initErr)
		return initErr
	}

	var gcsEvent models.GCSEvent
	if err := json.Unmarshal(e.Data(), &gcsEvent); err != nil {
		slog.Error("Failed to unmarshal event data", "error", err, "data", string(e.Data()))
		return fmt.Errorf("json.Unmarshal: %w", err)
	}

	// The error is already logged with context within Process.
	return ingestInstance.Process(ctx, gcsEvent)
}

func newIngestService(ctx context.Context) (*services.IngestService, error) {
	cfg := services.LoadConfig()
	if cfg.ProjectID == "" || cfg.ResultsBucket == "" {
		return nil, fmt.Errorf("missing required environment variables: PROJECT_ID and RESULTS_BUCKET must be set")
	}

	rt, err := services.NewRuntime(ctx, cfg, slog.Default())
	if err != nil {
		return nil, err
	}
	storageClient, err := storage.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to create storage client: %w", err)
	}
	firestoreClient, err := gcp.NewFirestoreClient(ctx, cfg.ProjectID)
	if err != nil {
		return nil, err
	}

	var workflow services.WorkflowStarter
	if cfg.WorkflowID != "" {
		trigger, err := gcp.NewWorkflowTrigger(ctx, cfg.ProjectID, cfg.WorkflowLocation, cfg.WorkflowID)
		if err != nil {
			return nil, err
		}
		workflow = trigger
	} else {
		slog.Info("WORKFLOW_ID not set. Extracted contracts will not be handed off.")
	}

	return services.NewIngestService(
		rt.Pipeline,
		gcp.NewObjectStore(storageClient, cfg.ResultsBucket),
		gcp.NewJobStore(firestoreClient, cfg.CollectionName),
		workflow,
	), nil
}
