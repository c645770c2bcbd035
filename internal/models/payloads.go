package models

// These structs define the JSON payloads exchanged with callers of the
// extraction functions.

// GCSEvent is the payload of a GCS object finalize event.
type GCSEvent struct {
	Bucket string `json:"bucket"`
	Name   string `json:"name"`
}

// Response is the envelope returned by the HTTP upload function.
type Response struct {
	Status  string           `json:"status"`
	Message string           `json:"message"`
	Data    *ExtractedRecord `json:"data,omitempty"`
}

// WorkflowArgument is the payload handed to the downstream workflow after a
// contract has been extracted.
type WorkflowArgument struct {
	DocumentID   string            `json:"documentId"`
	DocumentType DocumentType      `json:"documentType"`
	ResultURI    string            `json:"resultUri"`
	Fields       map[string]string `json:"fields"`
}
