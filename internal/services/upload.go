package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/Lllllllleong/contractextraction/internal/models"
	"github.com/Lllllllleong/contractextraction/internal/pipeline"
	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
)

const maxUploadBytes = 32 << 20

// Processor runs the extraction pipeline on a local PDF.
type Processor interface {
	Process(ctx context.Context, pdfPath string, opts ...pipeline.RunOption) (*pipeline.Result, error)
}

// UploadService accepts multipart PDF uploads, runs the pipeline and writes
// the response envelope.
type UploadService struct {
	processor Processor
	uploadDir string
	strict    bool
	validate  func(path string) error
}

// NewUploadService creates an UploadService storing uploads under uploadDir.
func NewUploadService(processor Processor, uploadDir string, strictValidation bool) *UploadService {
	return &UploadService{
		processor: processor,
		uploadDir: uploadDir,
		strict:    strictValidation,
		validate:  validatePDF,
	}
}

// ServeHTTP handles POST requests carrying the PDF in the "file" form field.
func (s *UploadService) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeResponse(w, http.StatusMethodNotAllowed, models.Response{Status: "error", Message: "method not allowed"})
		return
	}

	path, err := s.saveUpload(w, r)
	if path != "" {
		defer func() {
			if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
				slog.Error("Failed to remove uploaded file.", "path", path, "error", err)
			}
		}()
	}
	if err != nil {
		writeError(w, err)
		return
	}

	res, err := s.processor.Process(r.Context(), path)
	if err != nil {
		writeError(w, err)
		return
	}
	writeResponse(w, http.StatusOK, models.Response{
		Status:  "success",
		Message: models.MsgProcessed,
		Data:    res.Record,
	})
}

// saveUpload stores the uploaded file and returns its path. The path is
// returned even on validation failure so the caller can remove the file.
func (s *UploadService) saveUpload(w http.ResponseWriter, r *http.Request) (string, error) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
	file, header, err := r.FormFile("file")
	if err != nil {
		return "", models.ValidationError(models.MsgFileMissing, err)
	}
	defer file.Close()

	if strings.ToLower(filepath.Ext(header.Filename)) != ".pdf" {
		return "", models.ValidationError(models.MsgInvalidFile, nil)
	}

	if err := os.MkdirAll(s.uploadDir, 0o755); err != nil {
		return "", models.ProcessingError("failed to create upload directory", err)
	}
	dst, err := os.CreateTemp(s.uploadDir, "*-"+filepath.Base(header.Filename))
	if err != nil {
		return "", models.ProcessingError("failed to store upload", err)
	}
	path := dst.Name()
	_, err = io.Copy(dst, file)
	if closeErr := dst.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		return path, models.ProcessingError("failed to store upload", err)
	}

	if err := s.validate(path); err != nil {
		if s.strict {
			return path, models.ValidationError(models.MsgInvalidFile, err)
		}
		slog.Warn("Uploaded PDF failed structural validation, continuing.", "filename", header.Filename, "error", err)
	}
	return path, nil
}

func validatePDF(path string) error {
	cfg := model.NewDefaultConfiguration()
	cfg.ValidationMode = model.ValidationRelaxed
	if err := api.ValidateFile(path, cfg); err != nil {
		return fmt.Errorf("pdf validation: %w", err)
	}
	return nil
}

func writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	message := err.Error()
	var pe *models.PipelineError
	if errors.As(err, &pe) && pe.Kind == models.KindValidation {
		status = http.StatusBadRequest
		message = pe.Message
	}
	writeResponse(w, status, models.Response{Status: "error", Message: message})
}

func writeResponse(w http.ResponseWriter, status int, body models.Response) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		slog.Error("Failed to write response.", "error", err)
	}
}
