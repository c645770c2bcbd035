package extraction

import (
	"fmt"
	"slices"

	"github.com/Lllllllleong/contractextraction/internal/models"
)

// Extractor builds an ExtractedRecord for one document type.
type Extractor interface {
	Type() models.DocumentType
	// Fields lists the record keys in output order.
	Fields() []string
	Extract(text string) *models.ExtractedRecord
}

// RuleSet is a declarative Extractor: rules are evaluated independently and in
// order, and any field a rule cannot extract is set to Fallback.
type RuleSet struct {
	DocumentType models.DocumentType
	Fallback     string
	Rules        []Rule
}

func (s *RuleSet) Type() models.DocumentType { return s.DocumentType }

func (s *RuleSet) Fields() []string {
	var fields []string
	for _, r := range s.Rules {
		fields = append(fields, r.Fields()...)
	}
	return fields
}

// Extract evaluates every rule against text.
func (s *RuleSet) Extract(text string) *models.ExtractedRecord {
	record := &models.ExtractedRecord{Type: s.DocumentType}
	for _, r := range s.Rules {
		record.Fields = append(record.Fields, r.Apply(text, s.Fallback)...)
	}
	return record
}

// Validate checks rule shapes and that no field is produced twice.
func (s *RuleSet) Validate() error {
	if s.DocumentType == "" || s.DocumentType == models.UnrecognizedDocument {
		return fmt.Errorf("rule set has invalid document type %q", s.DocumentType)
	}
	if len(s.Rules) == 0 {
		return fmt.Errorf("rule set %s has no rules", s.DocumentType)
	}
	var seen []string
	for _, r := range s.Rules {
		if err := r.validate(); err != nil {
			return fmt.Errorf("rule set %s: %w", s.DocumentType, err)
		}
		for _, f := range r.Fields() {
			if slices.Contains(seen, f) {
				return fmt.Errorf("rule set %s: field %q produced twice", s.DocumentType, f)
			}
			seen = append(seen, f)
		}
	}
	return nil
}

// Registry maps document types to their extractors.
type Registry struct {
	extractors map[models.DocumentType]Extractor
}

// NewRegistry registers extractors; two extractors for one type is an error.
func NewRegistry(extractors ...Extractor) (*Registry, error) {
	r := &Registry{extractors: make(map[models.DocumentType]Extractor, len(extractors))}
	for _, e := range extractors {
		if rs, ok := e.(*RuleSet); ok {
			if err := rs.Validate(); err != nil {
				return nil, err
			}
		}
		if _, dup := r.extractors[e.Type()]; dup {
			return nil, fmt.Errorf("duplicate extractor for %s", e.Type())
		}
		r.extractors[e.Type()] = e
	}
	return r, nil
}

// DefaultRegistry returns the registry of built-in contract templates.
func DefaultRegistry() *Registry {
	r, err := NewRegistry(StandardFormRules(), PurchaseSaleRules())
	if err != nil {
		panic(err)
	}
	return r
}

// Lookup returns the extractor for docType. Unknown types, including
// UNRECOGNIZED, fail with a validation error.
func (r *Registry) Lookup(docType models.DocumentType) (Extractor, error) {
	e, ok := r.extractors[docType]
	if !ok {
		return nil, models.ValidationError(models.MsgUnsupportedDocument, fmt.Errorf("no extraction rules for %q", docType))
	}
	return e, nil
}

// Types lists registered document types in sorted order.
func (r *Registry) Types() []models.DocumentType {
	types := make([]models.DocumentType, 0, len(r.extractors))
	for t := range r.extractors {
		types = append(types, t)
	}
	slices.Sort(types)
	return types
}
