package filestore

import (
	"bytes"
	"context"
	"log/slog"
	"path"
	"strings"

	"cloud.google.com/go/storage"

	"github.com/Lllllllleong/pdftomarkdown/internal/gcp"
	"github.com/Lllllllleong/pdftomarkdown/internal/models"
)

// GCSStore is a Store backed by a Cloud Storage bucket. The source and result
// directories become object name prefixes; there is nothing to create.
type GCSStore struct {
	bucket       *storage.BucketHandle
	bucketName   string
	sourcePrefix string
	resultPrefix string
}

// NewGCSStore creates a bucket-backed store.
func NewGCSStore(client *storage.Client, bucketName, sourceDir, resultDir string) *GCSStore {
	return &GCSStore{
		bucket:       client.Bucket(bucketName),
		bucketName:   bucketName,
		sourcePrefix: strings.Trim(sourceDir, "/"),
		resultPrefix: strings.Trim(resultDir, "/"),
	}
}

// SourceObject returns the object name holding the PDF for logicalName.
func (s *GCSStore) SourceObject(logicalName string) string {
	return path.Join(s.sourcePrefix, models.SourceName(logicalName))
}

// ResultObject returns the object name the Markdown for logicalName is written to.
func (s *GCSStore) ResultObject(logicalName string) string {
	return path.Join(s.resultPrefix, models.ResultName(logicalName))
}

// Fetch downloads the source object into a temporary file.
func (s *GCSStore) Fetch(ctx context.Context, logicalName string) FetchResult {
	objectName := s.SourceObject(logicalName)
	logCtx := slog.With("fileName", logicalName, "gcsBucket", s.bucketName, "gcsObject", objectName)

	reader, err := s.bucket.Object(objectName).NewReader(ctx)
	if err != nil {
		logCtx.Error("Failed to get GCS object reader.", "error", err)
		if gcp.IsNotFound(err) {
			return fetchFailed(OutcomeNotFound, err)
		}
		return fetchFailed(OutcomeIOError, err)
	}
	defer reader.Close()

	localPath, err := copyToTemp(reader)
	if err != nil {
		logCtx.Error("Failed to copy GCS object to local file.", "error", err)
		return fetchFailed(OutcomeIOError, err)
	}

	logCtx.Info("Downloaded PDF object from GCS.", "path", localPath)
	return FetchResult{Path: localPath, Outcome: OutcomeOK}
}

// Put writes the Markdown object, replacing any previous version.
func (s *GCSStore) Put(ctx context.Context, logicalName string, content []byte) StoreResult {
	objectName := s.ResultObject(logicalName)
	logCtx := slog.With("fileName", logicalName, "gcsBucket", s.bucketName, "gcsObject", objectName)

	if err := gcp.WriteObject(ctx, s.bucket, objectName, bytes.NewReader(content)); err != nil {
		logCtx.Error("Failed to store markdown in GCS.", "error", err)
		return storeFailed(OutcomeIOError, err)
	}

	logCtx.Info("Stored markdown object in GCS.", "bytes", len(content))
	return StoreResult{Outcome: OutcomeOK}
}

// LogicalName maps an object name back to the logical file name. It reports
// false for objects outside the source prefix or without a .pdf suffix.
func (s *GCSStore) LogicalName(objectName string) (string, bool) {
	dir, file := path.Split(objectName)
	if strings.Trim(dir, "/") != s.sourcePrefix || !strings.HasSuffix(file, ".pdf") {
		return "", false
	}
	name := strings.TrimSuffix(file, ".pdf")
	return name, name != ""
}

// BucketName returns the bucket this store reads and writes.
func (s *GCSStore) BucketName() string {
	return s.bucketName
}
