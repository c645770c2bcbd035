// Package classify tags recognized contract text with a document type.
package classify

import (
	"strings"

	"github.com/Lllllllleong/contractextraction/internal/models"
)

// Signature pairs a phrase with the document type it identifies.
type Signature struct {
	Phrase string
	Type   models.DocumentType
}

// DefaultSignatures lists the built-in templates in priority order.
var DefaultSignatures = []Signature{
	{Phrase: "standard form contract for purchase and sale of real estate", Type: models.StandardFormContract},
	{Phrase: "purchase and sale contract for real property", Type: models.PurchaseSaleContract},
}

// Classifier matches text against an ordered signature table. The first
// matching signature wins.
type Classifier struct {
	signatures []Signature
}

// New creates a Classifier. Phrases are matched case-insensitively; the table
// order is the match priority.
func New(signatures []Signature) *Classifier {
	normalized := make([]Signature, 0, len(signatures))
	for _, s := range signatures {
		normalized = append(normalized, Signature{Phrase: strings.ToLower(s.Phrase), Type: s.Type})
	}
	return &Classifier{signatures: normalized}
}

// NewDefault creates a Classifier for the built-in templates.
func NewDefault() *Classifier {
	return New(DefaultSignatures)
}

// Classify returns the document type of text, or models.UnrecognizedDocument.
func (c *Classifier) Classify(text string) models.DocumentType {
	content := strings.ToLower(text)
	for _, s := range c.signatures {
		if s.Phrase != "" && strings.Contains(content, s.Phrase) {
			return s.Type
		}
	}
	return models.UnrecognizedDocument
}
