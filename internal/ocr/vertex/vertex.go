// Package vertex transcribes page images with a Gemini model on Vertex AI.
package vertex

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"cloud.google.com/go/vertexai/genai"
	"github.com/Lllllllleong/contractextraction/internal/ocr"
)

const transcribePrompt = `Transcribe all text visible in this scanned contract page exactly as written.
Preserve line breaks. Do not summarize, translate, or add commentary. The expected language is %s.
Return only the transcribed text.`

// Engine implements ocr.Engine on top of a configured generative model.
type Engine struct {
	model *genai.GenerativeModel
}

// New wraps model as an OCR engine.
func New(model *genai.GenerativeModel) *Engine {
	return &Engine{model: model}
}

func (e *Engine) Name() string { return "vertex" }

// Acquire returns a session bound to language. The underlying client is owned
// by the caller of New.
func (e *Engine) Acquire(ctx context.Context, language string) (ocr.Session, error) {
	if e.model == nil {
		return nil, fmt.Errorf("vertex OCR model is not configured")
	}
	return &session{model: e.model, prompt: fmt.Sprintf(transcribePrompt, language)}, nil
}

type session struct {
	model  *genai.GenerativeModel
	prompt string
}

func (s *session) Recognize(ctx context.Context, imagePath string) (string, error) {
	data, err := os.ReadFile(imagePath)
	if err != nil {
		return "", fmt.Errorf("read image: %w", err)
	}
	resp, err := s.model.GenerateContent(ctx, genai.ImageData(imageFormat(imagePath), data), genai.Text(s.prompt))
	if err != nil {
		return "", fmt.Errorf("failed to generate content from gemini: %w", err)
	}
	return responseText(resp), nil
}

func (s *session) Close() error { return nil }

func imageFormat(path string) string {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".jpg", ".jpeg":
		return "jpeg"
	default:
		return "png"
	}
}

func responseText(resp *genai.GenerateContentResponse) string {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return ""
	}
	var b strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if txt, ok := part.(genai.Text); ok {
			b.WriteString(string(txt))
		}
	}
	text := strings.TrimSpace(b.String())
	text = strings.TrimPrefix(text, "```text")
	text = strings.TrimPrefix(text, "```")
	text = strings.TrimSuffix(text, "```")
	text = strings.TrimSpace(text)
	if text == "" {
		return ""
	}
	return text + "\n"
}
