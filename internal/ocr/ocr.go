// Package ocr runs optical character recognition over rasterized pages.
//
// Engines are pluggable: an Engine hands out Sessions, each bound to one
// engine instance, and the Recognizer guarantees every Session it acquires is
// closed before Recognize returns.
package ocr

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/Lllllllleong/contractextraction/internal/models"
	"golang.org/x/sync/errgroup"
)

// Engine starts OCR sessions.
type Engine interface {
	Name() string
	// Acquire starts one engine instance configured for language.
	Acquire(ctx context.Context, language string) (Session, error)
}

// Session recognizes images with a single engine instance. Sessions are not
// safe for concurrent use.
type Session interface {
	Recognize(ctx context.Context, imagePath string) (string, error)
	Close() error
}

// Options configures a Recognizer.
type Options struct {
	Language string
	// Concurrency is the number of sessions used in parallel. Values below 2
	// process pages sequentially on the single session acquired for the call.
	// Higher values acquire one session per worker, so a call holds up to
	// Concurrency engine instances at once.
	Concurrency int
	Logger      *slog.Logger
}

// Recognizer turns an ordered list of page images into page-ordered text.
type Recognizer struct {
	engine      Engine
	language    string
	concurrency int
	logger      *slog.Logger
}

// NewRecognizer creates a Recognizer for engine.
func NewRecognizer(engine Engine, opts Options) *Recognizer {
	if opts.Language == "" {
		opts.Language = "eng"
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return &Recognizer{
		engine:      engine,
		language:    opts.Language,
		concurrency: opts.Concurrency,
		logger:      opts.Logger,
	}
}

// Recognize runs OCR over images and returns their text in input order,
// independent of the order in which pages finish.
func (r *Recognizer) Recognize(ctx context.Context, images []models.PageImage) (models.RecognizedText, error) {
	pages := make([]string, len(images))
	if len(images) == 0 {
		return models.RecognizedText{Pages: pages}, nil
	}

	var err error
	if r.concurrency < 2 || len(images) == 1 {
		err = r.recognizeSequential(ctx, images, pages)
	} else {
		err = r.recognizeParallel(ctx, images, pages)
	}
	if err != nil {
		return models.RecognizedText{}, models.ProcessingError("text recognition failed", err)
	}
	return models.RecognizedText{Pages: pages}, nil
}

func (r *Recognizer) recognizeSequential(ctx context.Context, images []models.PageImage, pages []string) error {
	session, err := r.acquire(ctx)
	if err != nil {
		return err
	}
	defer r.release(session)

	for i, img := range images {
		if err := ctx.Err(); err != nil {
			return err
		}
		text, err := session.Recognize(ctx, img.Path)
		if err != nil {
			return fmt.Errorf("page %d: %w", img.Index, err)
		}
		r.logger.Debug("Page recognized.", "engine", r.engine.Name(), "page", img.Index, "chars", len(text))
		pages[i] = text
	}
	return nil
}

// recognizeParallel fans pages out to a bounded set of workers, each owning
// its own session. Results land in pages by input position.
func (r *Recognizer) recognizeParallel(ctx context.Context, images []models.PageImage, pages []string) error {
	workers := min(r.concurrency, len(images))
	jobs := make(chan int)

	eg, gctx := errgroup.WithContext(ctx)
	eg.Go(func() error {
		defer close(jobs)
		for i := range images {
			select {
			case jobs <- i:
			case <-gctx.Done():
				return gctx.Err()
			}
		}
		return nil
	})

	for w := 0; w < workers; w++ {
		eg.Go(func() error {
			session, err := r.acquire(gctx)
			if err != nil {
				return err
			}
			defer r.release(session)

			for i := range jobs {
				img := images[i]
				text, err := session.Recognize(gctx, img.Path)
				if err != nil {
					return fmt.Errorf("page %d: %w", img.Index, err)
				}
				r.logger.Debug("Page recognized.", "engine", r.engine.Name(), "page", img.Index, "chars", len(text))
				pages[i] = text
			}
			return nil
		})
	}
	return eg.Wait()
}

func (r *Recognizer) acquire(ctx context.Context) (Session, error) {
	session, err := r.engine.Acquire(ctx, r.language)
	if err != nil {
		return nil, fmt.Errorf("failed to start %s engine: %w", r.engine.Name(), err)
	}
	return session, nil
}

func (r *Recognizer) release(session Session) {
	if err := session.Close(); err != nil {
		r.logger.Error("Failed to release OCR engine.", "engine", r.engine.Name(), "error", err)
	}
}
