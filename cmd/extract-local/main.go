package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/Lllllllleong/contractextraction/internal/pipeline"
	"github.com/Lllllllleong/contractextraction/internal/services"
	"github.com/joho/godotenv"
)

var (
	outputPath string
	textOnly   bool
	verbose    bool
)

func init() {
	flag.StringVar(&outputPath, "output", "", "Output file path (default: stdout)")
	flag.StringVar(&outputPath, "o", "", "Output file path (shorthand)")
	flag.BoolVar(&textOnly, "text", false, "Print the recognized text instead of extracted fields")
	flag.BoolVar(&verbose, "verbose", false, "Enable debug logging")
	flag.Usage = usage
}

func main() {
	flag.Parse()
	if flag.NArg() < 1 {
		fmt.Fprintf(os.Stderr, "Error: PDF file path required\n\n")
		usage()
		os.Exit(1)
	}
	pdfPath := flag.Arg(0)

	_ = godotenv.Load() // Ignore error if .env doesn't exist

	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, pdfPath, logger); err != nil {
		fmt.Fprintf(os.Stderr, "Extraction failed: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, pdfPath string, logger *slog.Logger) error {
	rt, err := services.NewRuntime(ctx, services.LoadConfig(), logger)
	if err != nil {
		return err
	}
	defer rt.Close()

	opts := []pipeline.RunOption{pipeline.WithObserver(func(stage pipeline.Stage) {
		logger.Debug("Pipeline stage reached.", "stage", stage)
	})}
	if textOnly {
		opts = append(opts, pipeline.TextOnly())
	}

	res, err := rt.Pipeline.Process(ctx, pdfPath, opts...)
	if err != nil {
		return err
	}

	var output []byte
	if textOnly {
		output = []byte(res.Text.String())
	} else {
		output, err = json.MarshalIndent(res.Record, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to encode record: %w", err)
		}
		output = append(output, '\n')
	}

	if outputPath == "" {
		_, err = os.Stdout.Write(output)
		return err
	}
	return os.WriteFile(outputPath, output, 0o644)
}

func usage() {
	fmt.Fprintf(os.Stderr, `extract-local - Extract contract fields from a PDF on the local machine

Usage:
  extract-local [options] <pdf-file>

Options:
  -o, --output <file>   Output file path (default: stdout)
  --text                Print the recognized text instead of extracted fields
  --verbose             Enable debug logging

Environment Variables:
  OCR_ENGINE            tesseract (default) or vertex
  OCR_CONCURRENCY       Number of pages recognized in parallel (default 1)
  IMAGE_STAGING_ROOT    Directory for rendered page images (default uploads/images)

`)
}
