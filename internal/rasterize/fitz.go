package rasterize

import (
	"fmt"
	"image"

	"github.com/gen2brain/go-fitz"
)

// FitzRenderer renders PDF pages with MuPDF.
type FitzRenderer struct{}

// NewFitzRenderer creates a MuPDF-backed renderer.
func NewFitzRenderer() *FitzRenderer {
	return &FitzRenderer{}
}

// Open opens a PDF for rendering.
func (FitzRenderer) Open(pdfPath string) (Document, error) {
	doc, err := fitz.New(pdfPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open PDF: %w", err)
	}
	return &fitzDocument{doc: doc}, nil
}

type fitzDocument struct {
	doc *fitz.Document
}

func (d *fitzDocument) RenderPage(index int, density float64) (image.Image, error) {
	img, err := d.doc.ImageDPI(index-1, density)
	if err != nil {
		return nil, err
	}
	return img, nil
}

func (d *fitzDocument) Close() error {
	return d.doc.Close()
}
