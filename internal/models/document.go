package models

import (
	"bytes"
	"encoding/json"
	"time"
)

// DocumentType tags which extraction rule set applies to a recognized document.
type DocumentType string

const (
	StandardFormContract DocumentType = "STANDARD_FORM_CONTRACT"
	PurchaseSaleContract DocumentType = "PURCHASE_SALE_CONTRACT"
	UnrecognizedDocument DocumentType = "UNRECOGNIZED"
)

// NotFound is the canonical value for a field whose rule did not match.
const NotFound = "Not Found"

// PageImage is one rasterized page owned by the run that produced it.
type PageImage struct {
	Index int    // 1-based, contiguous
	Path  string
	RunID string
}

// RecognizedText is the page-ordered OCR output of a document.
type RecognizedText struct {
	Pages []string
}

// String returns the concatenated text of all pages in page order.
func (t RecognizedText) String() string {
	var b bytes.Buffer
	for _, p := range t.Pages {
		b.WriteString(p)
	}
	return b.String()
}

// Field is a single extracted value.
type Field struct {
	Name  string
	Value string
}

// ExtractedRecord holds the fields extracted for one document. Field order is
// the order declared by the rule set and is kept when encoded as JSON.
type ExtractedRecord struct {
	Type   DocumentType
	Fields []Field
}

// Get returns the value of the named field.
func (r *ExtractedRecord) Get(name string) (string, bool) {
	for _, f := range r.Fields {
		if f.Name == name {
			return f.Value, true
		}
	}
	return "", false
}

// Set stores a field value, replacing an existing one of the same name.
func (r *ExtractedRecord) Set(name, value string) {
	for i := range r.Fields {
		if r.Fields[i].Name == name {
			r.Fields[i].Value = value
			return
		}
	}
	r.Fields = append(r.Fields, Field{Name: name, Value: value})
}

// Keys returns the field names in declared order.
func (r *ExtractedRecord) Keys() []string {
	keys := make([]string, 0, len(r.Fields))
	for _, f := range r.Fields {
		keys = append(keys, f.Name)
	}
	return keys
}

// Map returns the fields as a plain map.
func (r *ExtractedRecord) Map() map[string]string {
	m := make(map[string]string, len(r.Fields))
	for _, f := range r.Fields {
		m[f.Name] = f.Value
	}
	return m
}

// MarshalJSON encodes the record as a JSON object keyed by field name.
func (r ExtractedRecord) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, f := range r.Fields {
		if i > 0 {
			buf.WriteByte(',')
		}
		k, err := json.Marshal(f.Name)
		if err != nil {
			return nil, err
		}
		v, err := json.Marshal(f.Value)
		if err != nil {
			return nil, err
		}
		buf.Write(k)
		buf.WriteByte(':')
		buf.Write(v)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// ExtractionJob is the Firestore record tracking one ingested contract.
type ExtractionJob struct {
	FileHash            string            `firestore:"fileHash,omitempty"`
	OriginalFilename    string            `firestore:"originalFilename,omitempty"`
	Status              string            `firestore:"status,omitempty"`
	Stage               string            `firestore:"stage,omitempty"`
	ErrorDetails        string            `firestore:"errorDetails,omitempty"`
	DocumentType        string            `firestore:"documentType,omitempty"`
	PageCount           int               `firestore:"pageCount,omitempty"`
	Fields              map[string]string `firestore:"fields,omitempty"`
	ResultURI           string            `firestore:"resultUri,omitempty"`
	WorkflowExecutionID string            `firestore:"workflowExecutionId,omitempty"`
	CreatedAt           time.Time         `firestore:"createdAt,omitempty"`
}

// Job statuses written to Firestore.
const (
	JobStatusProcessing = "PROCESSING"
	JobStatusDone       = "DONE"
	JobStatusFailed     = "FAILED"
)
