package converter

import (
	"context"
	"fmt"
	"strings"

	"github.com/gen2brain/go-fitz"

	"github.com/Lllllllleong/pdftomarkdown/internal/models"
)

type fitzBackend struct{}

// NewFitz returns a converter that extracts the text layer with MuPDF.
func NewFitz() Converter {
	return &validating{backend: fitzBackend{}}
}

func (fitzBackend) name() string { return "fitz" }

func (fitzBackend) extract(ctx context.Context, path string, pageCount int) (string, error) {
	doc, err := fitz.New(path)
	if err != nil {
		return "", models.ConversionError("failed to open PDF", err)
	}
	defer doc.Close()

	pageCount = doc.NumPage()

	pages := make([]string, 0, pageCount)
	for i := 0; i < pageCount; i++ {
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		default:
		}

		text, err := doc.Text(i)
		if err != nil {
			return "", models.ConversionError(fmt.Sprintf("failed to extract text from page %d", i+1), err)
		}
		pages = append(pages, normalizeText(text))
	}

	return joinPages(metadataValue(doc.Metadata()["title"]), pages), nil
}

// metadataValue trims the NUL padding go-fitz leaves on metadata values.
func metadataValue(raw string) string {
	value, _, _ := strings.Cut(raw, "\x00")
	return strings.TrimSpace(value)
}
