// Package tesseract provides a Tesseract-backed OCR engine.
package tesseract

import (
	"context"
	"fmt"
	"strings"

	"github.com/Lllllllleong/contractextraction/internal/ocr"
	"github.com/otiai10/gosseract/v2"
)

// Engine implements ocr.Engine with a gosseract client per session.
type Engine struct {
	clientFactory func() *gosseract.Client
}

// New constructs a Tesseract engine.
func New() *Engine {
	return &Engine{clientFactory: gosseract.NewClient}
}

func (e *Engine) Name() string { return "tesseract" }

// Acquire creates a client configured for language. The client is closed if
// configuration fails.
func (e *Engine) Acquire(ctx context.Context, language string) (ocr.Session, error) {
	c := e.clientFactory()
	if err := c.SetLanguage(language); err != nil {
		c.Close()
		return nil, fmt.Errorf("set language: %w", err)
	}
	return &session{client: c}, nil
}

type session struct {
	client *gosseract.Client
}

func (s *session) Recognize(ctx context.Context, imagePath string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if err := s.client.SetImage(imagePath); err != nil {
		return "", fmt.Errorf("set image: %w", err)
	}
	text, err := s.client.Text()
	if err != nil {
		return "", fmt.Errorf("recognize text: %w", err)
	}
	// Keep pages separated when concatenated.
	if text != "" && !strings.HasSuffix(text, "\n") {
		text += "\n"
	}
	return text, nil
}

func (s *session) Close() error {
	return s.client.Close()
}
