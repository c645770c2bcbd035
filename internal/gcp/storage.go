package gcp

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"cloud.google.com/go/storage"
	"google.golang.org/api/googleapi"
)

// GetEnv is a helper to read an environment variable or return a default value.
func GetEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

// GetEnvInt reads an integer environment variable. Missing or malformed
// values return fallback.
func GetEnvInt(key string, fallback int) int {
	value, ok := os.LookupEnv(key)
	if !ok || strings.TrimSpace(value) == "" {
		return fallback
	}
	n, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil {
		slog.Warn("Ignoring malformed integer environment variable.", "key", key, "value", value, "default", fallback)
		return fallback
	}
	return n
}

// DownloadObject streams a GCS object to destPath.
func DownloadObject(ctx context.Context, client *storage.Client, bucket, object, destPath string) error {
	gcsReader, err := client.Bucket(bucket).Object(object).NewReader(ctx)
	if err != nil {
		return fmt.Errorf("failed to get GCS object reader for gs://%s/%s: %w", bucket, object, err)
	}
	defer gcsReader.Close()
	localFile, err := os.Create(destPath)
	if err != nil {
		return fmt.Errorf("failed to create local file at %s: %w", destPath, err)
	}
	defer localFile.Close()
	if _, err := io.Copy(localFile, gcsReader); err != nil {
		return fmt.Errorf("failed to copy GCS object to local file: %w", err)
	}
	return nil
}

// ObjectStore reads uploaded contracts from GCS and writes extraction results
// to the results bucket.
type ObjectStore struct {
	client        *storage.Client
	resultsBucket string
}

// NewObjectStore returns an ObjectStore writing results to resultsBucket.
func NewObjectStore(client *storage.Client, resultsBucket string) *ObjectStore {
	return &ObjectStore{client: client, resultsBucket: resultsBucket}
}

// Download copies gs://bucket/object to destPath.
func (s *ObjectStore) Download(ctx context.Context, bucket, object, destPath string) error {
	return DownloadObject(ctx, s.client, bucket, object, destPath)
}

// SaveResult writes content as a JSON object in the results bucket and
// returns its gs:// URI.
func (s *ObjectStore) SaveResult(ctx context.Context, objectName string, content []byte) (string, error) {
	if err := SaveToGCSAtomically(ctx, s.client.Bucket(s.resultsBucket), objectName, content, "application/json"); err != nil {
		return "", err
	}
	return fmt.Sprintf("gs://%s/%s", s.resultsBucket, objectName), nil
}

// SaveToGCSAtomically writes content to a GCS object only if it doesn't already exist.
// An existing object is not treated as a failure.
func SaveToGCSAtomically(ctx context.Context, bucket *storage.BucketHandle, objectName string, content []byte, contentType string) error {
	writer := bucket.Object(objectName).If(storage.Conditions{DoesNotExist: true}).NewWriter(ctx)
	writer.ContentType = contentType

	if _, err := writer.Write(content); err != nil {
		_ = writer.Close()
		return fmt.Errorf("failed to write to GCS: %w", err)
	}

	if err := writer.Close(); err != nil {
		if isPreconditionFailed(err) {
			slog.Info("Object already exists, skipping write.", "gcsObject", objectName)
			return nil
		}
		return fmt.Errorf("failed to finalize GCS write: %w", err)
	}
	return nil
}

func isPreconditionFailed(err error) bool {
	var gerr *googleapi.Error
	if errors.As(err, &gerr) {
		return gerr.Code == 412
	}
	return false
}
