// Package converter turns a local PDF file into Markdown text. Unlike the file
// store, converters fail loudly: every problem is returned as an error.
package converter

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/Lllllllleong/pdftomarkdown/internal/models"
)

// Converter extracts Markdown from the PDF at path.
type Converter interface {
	Convert(ctx context.Context, path string) (string, error)
}

// backend is the conversion step that runs after the PDF has been inspected.
type backend interface {
	name() string
	extract(ctx context.Context, path string, pageCount int) (string, error)
}

// validating runs pdfcpu validation before handing the file to a backend.
type validating struct {
	backend backend
}

func (v *validating) Convert(ctx context.Context, path string) (string, error) {
	logCtx := slog.With("path", path, "converter", v.backend.name())

	pageCount, err := Inspect(path)
	if err != nil {
		logCtx.Error("PDF failed validation.", "error", err)
		return "", err
	}
	logCtx.Info("Converting PDF to markdown.", "pageCount", pageCount)

	markdown, err := v.backend.extract(ctx, path, pageCount)
	if err != nil {
		logCtx.Error("Conversion failed.", "error", err)
		if models.KindOf(err) == models.KindConversion {
			return "", err
		}
		return "", models.ConversionError(fmt.Sprintf("%s conversion failed", v.backend.name()), err)
	}
	logCtx.Info("Conversion complete.", "bytes", len(markdown))
	return markdown, nil
}
