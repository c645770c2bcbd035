package models

import (
	"errors"
	"fmt"
)

// ErrorKind separates caller-correctable failures from internal ones.
type ErrorKind string

const (
	KindValidation ErrorKind = "validation"
	KindProcessing ErrorKind = "processing"
)

// Messages surfaced to callers.
const (
	MsgConversionFailed    = "failed to convert PDF to images"
	MsgUnsupportedDocument = "unsupported document type"
	MsgFileMissing         = "PDF file is required"
	MsgInvalidFile         = "Only PDF files are allowed"
	MsgProcessed           = "PDF successfully processed"
)

// PipelineError is the typed error returned by the extraction pipeline.
type PipelineError struct {
	Kind    ErrorKind
	Message string
	Err     error
}

func (e *PipelineError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *PipelineError) Unwrap() error {
	return e.Err
}

// ValidationError creates a caller-correctable pipeline error.
func ValidationError(message string, err error) *PipelineError {
	return &PipelineError{Kind: KindValidation, Message: message, Err: err}
}

// ProcessingError creates an error for an unexpected failure inside the pipeline.
func ProcessingError(message string, err error) *PipelineError {
	return &PipelineError{Kind: KindProcessing, Message: message, Err: err}
}

// IsValidation reports whether err carries a validation PipelineError.
func IsValidation(err error) bool {
	var pe *PipelineError
	return errors.As(err, &pe) && pe.Kind == KindValidation
}

// IsProcessing reports whether err carries a processing PipelineError.
func IsProcessing(err error) bool {
	var pe *PipelineError
	return errors.As(err, &pe) && pe.Kind == KindProcessing
}
