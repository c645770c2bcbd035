// Package rasterize converts PDF documents into ordered page images.
package rasterize

import (
	"context"
	"fmt"
	"image"
	"image/jpeg"
	"image/png"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/Lllllllleong/contractextraction/internal/models"
	"golang.org/x/image/draw"
)

// Format is the encoding used for page images.
type Format string

const (
	FormatPNG  Format = "png"
	FormatJPEG Format = "jpeg"
)

// ParseFormat maps a configuration value to a Format. Unknown values yield PNG.
func ParseFormat(s string) Format {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "jpg", "jpeg":
		return FormatJPEG
	default:
		return FormatPNG
	}
}

func (f Format) ext() string {
	if f == FormatJPEG {
		return "jpg"
	}
	return "png"
}

// Config controls how pages are rendered and written.
type Config struct {
	Density    float64 // dots per inch
	OutputDir  string
	Width      int // target box; the page is scaled to fit inside it
	Height     int
	Format     Format
	FilePrefix string
	MaxPages   int
}

// DefaultConfig returns the rendering settings used for contract scans.
func DefaultConfig(outputDir string) Config {
	return Config{
		Density:    300,
		OutputDir:  outputDir,
		Width:      2000,
		Height:     2000,
		Format:     FormatPNG,
		FilePrefix: "page",
		MaxPages:   200,
	}
}

// Result lists the page images written for one document.
type Result struct {
	Images    []models.PageImage
	PageCount int
}

// Paths returns the image paths in page order.
func (r *Result) Paths() []string {
	paths := make([]string, 0, len(r.Images))
	for _, img := range r.Images {
		paths = append(paths, img.Path)
	}
	return paths
}

// Renderer opens documents for page rendering.
type Renderer interface {
	Open(pdfPath string) (Document, error)
}

// Document renders pages of an opened PDF.
type Document interface {
	// RenderPage renders the 1-based page index. Indexes past the last page
	// return an error or a nil image.
	RenderPage(index int, density float64) (image.Image, error)
	Close() error
}

// Rasterizer probes a document page by page until rendering stops yielding
// images.
type Rasterizer struct {
	renderer Renderer
	logger   *slog.Logger
}

// New creates a Rasterizer. A nil logger uses slog.Default().
func New(renderer Renderer, logger *slog.Logger) *Rasterizer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Rasterizer{renderer: renderer, logger: logger}
}

// Rasterize renders pdfPath into cfg.OutputDir, starting at page 1 and
// stopping at the first page that cannot be converted or at cfg.MaxPages.
// A document that cannot be opened or whose first page fails produces an
// empty result, not an error. Errors are returned only when the output
// directory cannot be created or ctx is done.
func (r *Rasterizer) Rasterize(ctx context.Context, pdfPath string, cfg Config, runID string) (*Result, error) {
	logCtx := r.logger.With("documentPath", pdfPath, "runId", runID)

	if err := os.MkdirAll(cfg.OutputDir, 0o755); err != nil {
		return nil, models.ProcessingError("failed to create image staging directory", err)
	}

	result := &Result{}
	doc, err := r.renderer.Open(pdfPath)
	if err != nil {
		logCtx.Warn("Could not open PDF for rendering.", "error", err)
		return result, nil
	}
	defer doc.Close()

	for index := 1; ; index++ {
		if cfg.MaxPages > 0 && index > cfg.MaxPages {
			logCtx.Warn("Reached maximum page count, stopping conversion.", "maxPages", cfg.MaxPages)
			break
		}
		if err := ctx.Err(); err != nil {
			return nil, models.ProcessingError("rasterization cancelled", err)
		}

		path, err := r.convertPage(doc, index, cfg)
		if err != nil {
			logCtx.Debug("Page conversion stopped.", "page", index, "error", err)
			break
		}
		result.Images = append(result.Images, models.PageImage{Index: index, Path: path, RunID: runID})
	}

	result.PageCount = len(result.Images)
	logCtx.Info("PDF rasterized.", "pageCount", result.PageCount)
	return result, nil
}

func (r *Rasterizer) convertPage(doc Document, index int, cfg Config) (string, error) {
	img, err := doc.RenderPage(index, cfg.Density)
	if err != nil {
		return "", err
	}
	if img == nil {
		return "", fmt.Errorf("page %d: no image rendered", index)
	}

	img = fitInside(img, cfg.Width, cfg.Height)

	prefix := cfg.FilePrefix
	if prefix == "" {
		prefix = "page"
	}
	path := filepath.Join(cfg.OutputDir, fmt.Sprintf("%s.%d.%s", prefix, index, cfg.Format.ext()))
	if err := writeImage(path, img, cfg.Format); err != nil {
		return "", fmt.Errorf("page %d: %w", index, err)
	}
	return path, nil
}

// fitInside scales img to the largest size that fits in a width x height box
// while keeping its aspect ratio. Non-positive bounds leave img unchanged.
func fitInside(img image.Image, width, height int) image.Image {
	b := img.Bounds()
	if width <= 0 || height <= 0 || b.Dx() == 0 || b.Dy() == 0 {
		return img
	}
	scale := min(float64(width)/float64(b.Dx()), float64(height)/float64(b.Dy()))
	w := max(1, int(float64(b.Dx())*scale+0.5))
	h := max(1, int(float64(b.Dy())*scale+0.5))
	if w == b.Dx() && h == b.Dy() {
		return img
	}
	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.CatmullRom.Scale(dst, dst.Bounds(), img, b, draw.Src, nil)
	return dst
}

func writeImage(path string, img image.Image, format Format) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create image file: %w", err)
	}
	if format == FormatJPEG {
		err = jpeg.Encode(f, img, &jpeg.Options{Quality: 90})
	} else {
		err = png.Encode(f, img)
	}
	if closeErr := f.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		_ = os.Remove(path)
		return fmt.Errorf("failed to encode image: %w", err)
	}
	return nil
}
