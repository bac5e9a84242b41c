// Package filestore reads source PDFs from and writes Markdown results to a
// remote file store. Failures are reported as result values, never as errors:
// the job runner decides what a missing file or a rejected write means.
package filestore

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/Lllllllleong/pdftomarkdown/internal/models"
)

// Outcome classifies the result of a store operation.
type Outcome int

const (
	OutcomeOK Outcome = iota
	OutcomeNotFound
	OutcomeIOError
)

func (o Outcome) String() string {
	switch o {
	case OutcomeOK:
		return "ok"
	case OutcomeNotFound:
		return "not_found"
	case OutcomeIOError:
		return "io_error"
	default:
		return fmt.Sprintf("outcome(%d)", int(o))
	}
}

// FetchResult is the local copy of a fetched document. Path is only set when
// Outcome is OutcomeOK; the caller owns the file and must remove it.
type FetchResult struct {
	Path    string
	Outcome Outcome
	Err     error
}

// Found reports whether a local file was produced.
func (r FetchResult) Found() bool {
	return r.Outcome == OutcomeOK && r.Path != ""
}

// Error returns the failure as a classified error, or nil when a file was
// produced.
func (r FetchResult) Error() error {
	switch {
	case r.Found():
		return nil
	case r.Outcome == OutcomeNotFound:
		return models.NotFoundError("source PDF not found", r.Err)
	default:
		return models.StorageError("failed to fetch source PDF", r.Err)
	}
}

// StoreResult reports whether a write was accepted.
type StoreResult struct {
	Outcome Outcome
	Err     error
}

// OK reports whether the write was accepted.
func (r StoreResult) OK() bool {
	return r.Outcome == OutcomeOK
}

// Error returns the failure as a classified error, or nil for an accepted write.
func (r StoreResult) Error() error {
	if r.OK() {
		return nil
	}
	return models.StorageError("failed to store markdown", r.Err)
}

// Store is a remote file store keyed by logical file name.
type Store interface {
	// Fetch downloads <name>.pdf from the source directory into a temporary file.
	Fetch(ctx context.Context, logicalName string) FetchResult
	// Put writes <name>.md into the result directory, creating it if needed.
	Put(ctx context.Context, logicalName string, content []byte) StoreResult
}

func fetchFailed(outcome Outcome, err error) FetchResult {
	return FetchResult{Outcome: outcome, Err: err}
}

func storeFailed(outcome Outcome, err error) StoreResult {
	return StoreResult{Outcome: outcome, Err: err}
}

// copyToTemp copies r into a new temporary .pdf file. On failure nothing is
// left on disk.
func copyToTemp(r io.Reader) (string, error) {
	tmp, err := os.CreateTemp("", "pdftomd-*.pdf")
	if err != nil {
		return "", fmt.Errorf("failed to create temp file: %w", err)
	}
	path := tmp.Name()

	if _, err := io.Copy(tmp, r); err != nil {
		tmp.Close()
		removeQuietly(path)
		return "", fmt.Errorf("failed to copy to temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		removeQuietly(path)
		return "", fmt.Errorf("failed to close temp file: %w", err)
	}
	return path, nil
}

func removeQuietly(path string) {
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		slog.Warn("Failed to remove temp file.", "path", path, "error", err)
	}
}
