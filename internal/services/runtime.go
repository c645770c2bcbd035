package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/Lllllllleong/contractextraction/internal/classify"
	"github.com/Lllllllleong/contractextraction/internal/extraction"
	"github.com/Lllllllleong/contractextraction/internal/gcp"
	"github.com/Lllllllleong/contractextraction/internal/ocr"
	"github.com/Lllllllleong/contractextraction/internal/ocr/tesseract"
	"github.com/Lllllllleong/contractextraction/internal/ocr/vertex"
	"github.com/Lllllllleong/contractextraction/internal/pipeline"
	"github.com/Lllllllleong/contractextraction/internal/rasterize"
)

// Runtime bundles a configured Pipeline with the clients it owns.
type Runtime struct {
	Pipeline *pipeline.Pipeline
	closers  []io.Closer
}

// NewRuntime wires the pipeline stages selected by cfg.
func NewRuntime(ctx context.Context, cfg Config, logger *slog.Logger) (*Runtime, error) {
	if logger == nil {
		logger = slog.Default()
	}
	rt := &Runtime{}

	engine, err := rt.newEngine(ctx, cfg)
	if err != nil {
		return nil, err
	}

	rt.Pipeline = pipeline.New(
		rasterize.New(rasterize.NewFitzRenderer(), logger),
		ocr.NewRecognizer(engine, ocr.Options{
			Language:    cfg.OCRLanguage,
			Concurrency: cfg.OCRConcurrency,
			Logger:      logger,
		}),
		classify.NewDefault(),
		extraction.DefaultRegistry(),
		pipeline.Options{
			StagingRoot: cfg.StagingRoot,
			Render:      cfg.Render,
			Logger:      logger,
		},
	)
	logger.Info("Extraction pipeline initialized.", "ocrEngine", engine.Name(), "stagingRoot", cfg.StagingRoot)
	return rt, nil
}

func (rt *Runtime) newEngine(ctx context.Context, cfg Config) (ocr.Engine, error) {
	switch cfg.OCREngine {
	case "", "tesseract":
		return tesseract.New(), nil
	case "vertex":
		vertexClient, err := gcp.NewVertexClient(ctx, cfg.ProjectID, cfg.VertexAIRegion, cfg.VertexOCRModel)
		if err != nil {
			return nil, fmt.Errorf("failed to create vertex client: %w", err)
		}
		rt.closers = append(rt.closers, vertexClient)
		return vertex.New(vertexClient.OCRModel), nil
	default:
		return nil, fmt.Errorf("unknown OCR engine %q", cfg.OCREngine)
	}
}

// Close releases the clients owned by the runtime.
func (rt *Runtime) Close() error {
	var errs []error
	for _, c := range rt.closers {
		if err := c.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
