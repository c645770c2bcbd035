package services

import (
	"path/filepath"
	"strings"

	"github.com/Lllllllleong/contractextraction/internal/gcp"
	"github.com/Lllllllleong/contractextraction/internal/rasterize"
)

// Config holds all configuration for the extraction services.
type Config struct {
	UploadDir   string
	StagingRoot string
	Render      rasterize.Config

	OCREngine      string
	OCRLanguage    string
	OCRConcurrency int

	ProjectID      string
	VertexAIRegion string
	VertexOCRModel string

	ResultsBucket    string
	CollectionName   string
	WorkflowID       string
	WorkflowLocation string

	// StrictPDFValidation rejects uploads that fail structural validation
	// instead of only logging them.
	StrictPDFValidation bool
}

// LoadConfig reads the configuration from the environment.
func LoadConfig() Config {
	uploadDir := gcp.GetEnv("UPLOAD_DIR", "uploads")
	render := rasterize.DefaultConfig("")
	render.Density = float64(gcp.GetEnvInt("RENDER_DENSITY", int(render.Density)))
	render.Width = gcp.GetEnvInt("RENDER_WIDTH", render.Width)
	render.Height = gcp.GetEnvInt("RENDER_HEIGHT", render.Height)
	render.Format = rasterize.ParseFormat(gcp.GetEnv("RENDER_FORMAT", string(render.Format)))
	render.MaxPages = gcp.GetEnvInt("MAX_PAGES", render.MaxPages)

	return Config{
		UploadDir:   uploadDir,
		StagingRoot: gcp.GetEnv("IMAGE_STAGING_ROOT", filepath.Join(uploadDir, "images")),
		Render:      render,

		OCREngine:      strings.ToLower(gcp.GetEnv("OCR_ENGINE", "tesseract")),
		OCRLanguage:    gcp.GetEnv("OCR_LANGUAGE", "eng"),
		OCRConcurrency: gcp.GetEnvInt("OCR_CONCURRENCY", 1),

		ProjectID:      gcp.GetEnv("PROJECT_ID", ""),
		VertexAIRegion: gcp.GetEnv("VERTEX_AI_REGION", "us-central1"),
		VertexOCRModel: gcp.GetEnv("VERTEX_OCR_MODEL", "gemini-1.5-pro"),

		ResultsBucket:    gcp.GetEnv("RESULTS_BUCKET", ""),
		CollectionName:   gcp.GetEnv("FIRESTORE_COLLECTION", "contracts"),
		WorkflowID:       gcp.GetEnv("WORKFLOW_ID", ""),
		WorkflowLocation: gcp.GetEnv("WORKFLOW_LOCATION", "us-central1"),

		StrictPDFValidation: gcp.GetEnv("STRICT_PDF_VALIDATION", "false") == "true",
	}
}
