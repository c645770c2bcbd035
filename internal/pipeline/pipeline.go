// Package pipeline sequences rasterization, text recognition, classification
// and rule-based extraction for one uploaded contract.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/Lllllllleong/contractextraction/internal/extraction"
	"github.com/Lllllllleong/contractextraction/internal/models"
	"github.com/Lllllllleong/contractextraction/internal/rasterize"
	"github.com/google/uuid"
)

// Stage is a step of a pipeline run.
type Stage string

const (
	StageStart         Stage = "START"
	StageRasterized    Stage = "RASTERIZED"
	StageTextExtracted Stage = "TEXT_EXTRACTED"
	StageClassified    Stage = "CLASSIFIED"
	StageExtracted     Stage = "EXTRACTED"
	StageDone          Stage = "DONE"
	StageFailed        Stage = "FAILED"
)

// Rasterizer converts a PDF into page images inside cfg.OutputDir.
type Rasterizer interface {
	Rasterize(ctx context.Context, pdfPath string, cfg rasterize.Config, runID string) (*rasterize.Result, error)
}

// TextRecognizer runs OCR over page images in order.
type TextRecognizer interface {
	Recognize(ctx context.Context, images []models.PageImage) (models.RecognizedText, error)
}

// Classifier tags text with a document type.
type Classifier interface {
	Classify(text string) models.DocumentType
}

// ExtractorRegistry resolves the rule set for a document type.
type ExtractorRegistry interface {
	Lookup(docType models.DocumentType) (extraction.Extractor, error)
}

// Options configures a Pipeline.
type Options struct {
	// StagingRoot holds one directory per run for page images.
	StagingRoot string
	// Render is applied to every run; its OutputDir is replaced per run.
	Render rasterize.Config
	Logger *slog.Logger
}

// Pipeline runs the extraction stages. It keeps no state between runs apart
// from the staging root on disk.
type Pipeline struct {
	rasterizer Rasterizer
	recognizer TextRecognizer
	classifier Classifier
	registry   ExtractorRegistry
	opts       Options
	logger     *slog.Logger
	newRunID   func() string
}

// New assembles a Pipeline from its stages.
func New(rasterizer Rasterizer, recognizer TextRecognizer, classifier Classifier, registry ExtractorRegistry, opts Options) *Pipeline {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	if opts.StagingRoot == "" {
		opts.StagingRoot = filepath.Join("uploads", "images")
	}
	return &Pipeline{
		rasterizer: rasterizer,
		recognizer: recognizer,
		classifier: classifier,
		registry:   registry,
		opts:       opts,
		logger:     logger,
		newRunID:   uuid.NewString,
	}
}

// Result is the outcome of a successful run.
type Result struct {
	RunID        string
	DocumentType models.DocumentType
	PageCount    int
	Text         models.RecognizedText
	Record       *models.ExtractedRecord // nil for text-only runs
}

// RunOption adjusts a single run.
type RunOption func(*runOptions)

type runOptions struct {
	observer func(Stage)
	textOnly bool
}

// WithObserver reports every stage the run reaches, including StageFailed.
func WithObserver(fn func(Stage)) RunOption {
	return func(o *runOptions) { o.observer = fn }
}

// TextOnly stops after classification and returns the recognized text
// without applying extraction rules. Unrecognized documents are not an error.
func TextOnly() RunOption {
	return func(o *runOptions) { o.textOnly = true }
}

type run struct {
	id      string
	logger  *slog.Logger
	options runOptions
}

func (r *run) reach(stage Stage) {
	r.logger.Info("Pipeline stage reached.", "stage", stage)
	if r.options.observer != nil {
		r.options.observer(stage)
	}
}

// Process extracts the fields of the contract at pdfPath. Page images are
// staged in a per-run directory that is removed before Process returns,
// whatever the outcome.
func (p *Pipeline) Process(ctx context.Context, pdfPath string, opts ...RunOption) (*Result, error) {
	r := &run{id: p.newRunID()}
	for _, opt := range opts {
		opt(&r.options)
	}
	r.logger = p.logger.With("runId", r.id, "documentPath", pdfPath)

	res, err := p.process(ctx, pdfPath, r)
	if err != nil {
		r.logger.Error("Pipeline run failed.", "error", err)
		r.reach(StageFailed)
		return nil, err
	}
	r.reach(StageDone)
	return res, nil
}

func (p *Pipeline) process(ctx context.Context, pdfPath string, r *run) (*Result, error) {
	r.reach(StageStart)

	text, pageCount, err := p.recognize(ctx, pdfPath, r)
	if err != nil {
		return nil, err
	}

	docType := p.classifier.Classify(text.String())
	r.logger = r.logger.With("documentType", docType)
	r.reach(StageClassified)

	res := &Result{RunID: r.id, DocumentType: docType, PageCount: pageCount, Text: text}
	if r.options.textOnly {
		return res, nil
	}

	extractor, err := p.registry.Lookup(docType)
	if err != nil {
		return nil, err
	}
	res.Record = extractor.Extract(text.String())
	r.reach(StageExtracted)
	return res, nil
}

// recognize rasterizes and OCRs the document inside the run's staging
// directory and always removes that directory on the way out.
func (p *Pipeline) recognize(ctx context.Context, pdfPath string, r *run) (models.RecognizedText, int, error) {
	stagingDir := p.stagingDir(pdfPath, r.id)
	defer p.cleanup(stagingDir, r.logger)

	cfg := p.opts.Render
	cfg.OutputDir = stagingDir
	raster, err := p.rasterizer.Rasterize(ctx, pdfPath, cfg, r.id)
	if err != nil {
		return models.RecognizedText{}, 0, asPipelineError("rasterization failed", err)
	}
	if raster == nil || len(raster.Images) == 0 {
		return models.RecognizedText{}, 0, models.ValidationError(models.MsgConversionFailed, nil)
	}
	r.logger = r.logger.With("pageCount", raster.PageCount)
	r.reach(StageRasterized)

	text, err := p.recognizer.Recognize(ctx, raster.Images)
	if err != nil {
		return models.RecognizedText{}, 0, asPipelineError("text recognition failed", err)
	}
	r.reach(StageTextExtracted)
	return text, raster.PageCount, nil
}

// stagingDir names the run directory after the document and the run id so
// concurrent runs on same-named files never share a directory.
func (p *Pipeline) stagingDir(pdfPath, runID string) string {
	base := strings.TrimSuffix(filepath.Base(pdfPath), filepath.Ext(pdfPath))
	return filepath.Join(p.opts.StagingRoot, fmt.Sprintf("%s-%s", base, runID))
}

// asPipelineError keeps typed errors and wraps anything else as a
// processing failure.
func asPipelineError(message string, err error) error {
	var pe *models.PipelineError
	if errors.As(err, &pe) {
		return err
	}
	return models.ProcessingError(message, err)
}

func (p *Pipeline) cleanup(dir string, logger *slog.Logger) {
	if err := os.RemoveAll(dir); err != nil {
		logger.Error("Failed to remove staging directory.", "path", dir, "error", err)
		return
	}
	logger.Debug("Removed staging directory.", "path", dir)
}
