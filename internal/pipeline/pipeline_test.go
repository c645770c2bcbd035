package pipeline

import (
	"context"
	"errors"
	"fmt"
	"image"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/Lllllllleong/contractextraction/internal/classify"
	"github.com/Lllllllleong/contractextraction/internal/extraction"
	"github.com/Lllllllleong/contractextraction/internal/models"
	"github.com/Lllllllleong/contractextraction/internal/ocr"
	"github.com/Lllllllleong/contractextraction/internal/rasterize"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type pagesRenderer struct {
	pages int
}

func (r pagesRenderer) Open(string) (rasterize.Document, error) {
	return pagesDocument{pages: r.pages}, nil
}

type pagesDocument struct {
	pages int
}

func (d pagesDocument) RenderPage(index int, _ float64) (image.Image, error) {
	if index > d.pages {
		return nil, fmt.Errorf("page %d missing", index)
	}
	return image.NewGray(image.Rect(0, 0, 10, 10)), nil
}

func (d pagesDocument) Close() error { return nil }

// cancellingRenderer renders pages normally and cancels the run when page
// cancelAt is requested, recording how many page images were already staged.
type cancellingRenderer struct {
	pages    int
	cancelAt int
	cancel   context.CancelFunc
	root     string
	staged   *int
}

func (r cancellingRenderer) Open(string) (rasterize.Document, error) {
	return cancellingDocument{r}, nil
}

type cancellingDocument struct {
	cancellingRenderer
}

func (d cancellingDocument) RenderPage(index int, _ float64) (image.Image, error) {
	if index > d.pages {
		return nil, fmt.Errorf("page %d missing", index)
	}
	if index == d.cancelAt {
		matches, _ := filepath.Glob(filepath.Join(d.root, "*", "page.*.png"))
		*d.staged = len(matches)
		d.cancel()
	}
	return image.NewGray(image.Rect(0, 0, 10, 10)), nil
}

func (d cancellingDocument) Close() error { return nil }

// pageEngine returns fixed text per page file name.
type pageEngine struct {
	texts    []string
	failPage int
	released atomic.Int32
}

func (e *pageEngine) Name() string { return "pages" }

func (e *pageEngine) Acquire(context.Context, string) (ocr.Session, error) {
	return &pageSession{engine: e}, nil
}

type pageSession struct {
	engine *pageEngine
}

func (s *pageSession) Recognize(_ context.Context, path string) (string, error) {
	if _, err := os.Stat(path); err != nil {
		return "", err
	}
	var index int
	if _, err := fmt.Sscanf(filepath.Base(path), "page.%d.png", &index); err != nil {
		return "", err
	}
	if index == s.engine.failPage {
		return "", errors.New("tesseract crashed")
	}
	return s.engine.texts[index-1], nil
}

func (s *pageSession) Close() error {
	s.engine.released.Add(1)
	return nil
}

type fixture struct {
	pipeline *Pipeline
	engine   *pageEngine
	root     string
}

func newFixture(t *testing.T, pageTexts ...string) *fixture {
	t.Helper()
	root := filepath.Join(t.TempDir(), "images")
	engine := &pageEngine{texts: pageTexts}
	render := rasterize.DefaultConfig("")
	render.Width, render.Height = 0, 0

	p := New(
		rasterize.New(pagesRenderer{pages: len(pageTexts)}, nil),
		ocr.NewRecognizer(engine, ocr.Options{Language: "eng"}),
		classify.NewDefault(),
		extraction.DefaultRegistry(),
		Options{StagingRoot: root, Render: render},
	)
	return &fixture{pipeline: p, engine: engine, root: root}
}

func (f *fixture) assertStagingEmpty(t *testing.T) {
	t.Helper()
	entries, err := os.ReadDir(f.root)
	if errors.Is(err, os.ErrNotExist) {
		return
	}
	require.NoError(t, err)
	assert.Empty(t, entries, "staging directories must not outlive a run")
}

func TestProcessStandardFormContract(t *testing.T) {
	f := newFixture(t,
		"Standard Form Contract for Purchase and Sale of Real Estate\n",
		"Closing on 04/01/2024.\n",
	)

	var stages []Stage
	res, err := f.pipeline.Process(context.Background(), "/uploads/contract.pdf", WithObserver(func(s Stage) {
		stages = append(stages, s)
	}))
	require.NoError(t, err)

	assert.Equal(t, models.StandardFormContract, res.DocumentType)
	assert.Equal(t, 2, res.PageCount)
	dates, ok := res.Record.Get(extraction.FieldKeyDates)
	require.True(t, ok)
	assert.Equal(t, "04/01/2024", dates)
	assert.Len(t, res.Record.Fields, 5)
	assert.Equal(t, []Stage{StageStart, StageRasterized, StageTextExtracted, StageClassified, StageExtracted, StageDone}, stages)
	f.assertStagingEmpty(t)
}

func TestProcessZeroPagesIsValidationFailure(t *testing.T) {
	f := newFixture(t)

	var stages []Stage
	res, err := f.pipeline.Process(context.Background(), "/uploads/corrupt.pdf", WithObserver(func(s Stage) {
		stages = append(stages, s)
	}))
	require.Error(t, err)
	assert.Nil(t, res)
	assert.True(t, models.IsValidation(err))
	assert.Equal(t, models.MsgConversionFailed, err.Error())
	assert.Equal(t, []Stage{StageStart, StageFailed}, stages)
	assert.Zero(t, f.engine.released.Load(), "OCR must not start without images")
	f.assertStagingEmpty(t)
}

func TestProcessUnsupportedDocumentType(t *testing.T) {
	f := newFixture(t, "Residential lease agreement\n")

	res, err := f.pipeline.Process(context.Background(), "/uploads/lease.pdf")
	require.Error(t, err)
	assert.Nil(t, res)
	assert.True(t, models.IsValidation(err))
	assert.Contains(t, err.Error(), models.MsgUnsupportedDocument)
	f.assertStagingEmpty(t)
}

func TestProcessRecognitionFailureCleansUp(t *testing.T) {
	f := newFixture(t, "one\n", "two\n", "three\n")
	f.engine.failPage = 2

	_, err := f.pipeline.Process(context.Background(), "/uploads/contract.pdf")
	require.Error(t, err)
	assert.True(t, models.IsProcessing(err))
	assert.Contains(t, err.Error(), "tesseract crashed")
	assert.EqualValues(t, 1, f.engine.released.Load())
	f.assertStagingEmpty(t)
}

func TestProcessRasterizationFailure(t *testing.T) {
	f := newFixture(t, "one\n")
	// A file where the staging root should be makes directory creation fail.
	require.NoError(t, os.MkdirAll(filepath.Dir(f.root), 0o755))
	require.NoError(t, os.WriteFile(f.root, []byte("x"), 0o644))

	_, err := f.pipeline.Process(context.Background(), "/uploads/contract.pdf")
	require.Error(t, err)
	assert.True(t, models.IsProcessing(err))
}

func TestProcessPartialRasterizationCleansUp(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	root := filepath.Join(t.TempDir(), "images")
	engine := &pageEngine{texts: []string{"one\n", "two\n", "three\n"}}
	render := rasterize.DefaultConfig("")
	render.Width, render.Height = 0, 0

	var staged int
	renderer := cancellingRenderer{pages: 3, cancelAt: 2, cancel: cancel, root: root, staged: &staged}
	p := New(
		rasterize.New(renderer, nil),
		ocr.NewRecognizer(engine, ocr.Options{}),
		classify.NewDefault(),
		extraction.DefaultRegistry(),
		Options{StagingRoot: root, Render: render},
	)
	f := &fixture{pipeline: p, engine: engine, root: root}

	var stages []Stage
	_, err := p.Process(ctx, "/uploads/contract.pdf", WithObserver(func(s Stage) {
		stages = append(stages, s)
	}))
	require.Error(t, err)
	assert.True(t, models.IsProcessing(err))
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, staged, "page 1 must be on disk before the run is cancelled")
	assert.Equal(t, []Stage{StageStart, StageFailed}, stages)
	assert.Zero(t, engine.released.Load(), "OCR must not start")
	f.assertStagingEmpty(t)
}

func TestProcessTextOnly(t *testing.T) {
	f := newFixture(t, "Just some text\n")

	res, err := f.pipeline.Process(context.Background(), "/uploads/notes.pdf", TextOnly())
	require.NoError(t, err)
	assert.Equal(t, models.UnrecognizedDocument, res.DocumentType)
	assert.Nil(t, res.Record)
	assert.Equal(t, "Just some text\n", res.Text.String())
	f.assertStagingEmpty(t)
}

func TestConcurrentRunsWithSameFileName(t *testing.T) {
	f := newFixture(t,
		"PURCHASE AND SALE CONTRACT FOR REAL PROPERTY\n",
		"between Robert Miles (\"Seller\") and Anita Patel (\"Buyer\")\n",
	)

	var wg sync.WaitGroup
	errs := make([]error, 8)
	runIDs := make([]string, 8)
	for i := range errs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			res, err := f.pipeline.Process(context.Background(), "/tmp/a/contract.pdf")
			errs[i] = err
			if err == nil {
				runIDs[i] = res.RunID
			}
		}(i)
	}
	wg.Wait()

	seen := map[string]bool{}
	for i, err := range errs {
		require.NoError(t, err)
		assert.False(t, seen[runIDs[i]], "run ids must be unique")
		seen[runIDs[i]] = true
	}
	f.assertStagingEmpty(t)
}

func TestStagingDirIsNamespacedByRun(t *testing.T) {
	p := New(nil, nil, nil, nil, Options{StagingRoot: "/stage"})
	assert.Equal(t, filepath.Join("/stage", "contract-abc"), p.stagingDir("/uploads/contract.pdf", "abc"))
}
