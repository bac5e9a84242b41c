package converter

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"cloud.google.com/go/vertexai/genai"

	"github.com/Lllllllleong/pdftomarkdown/internal/gcp"
	"github.com/Lllllllleong/pdftomarkdown/internal/models"
)

// generator is satisfied by *genai.GenerativeModel.
type generator interface {
	GenerateContent(ctx context.Context, parts ...genai.Part) (*genai.GenerateContentResponse, error)
}

type vertexBackend struct {
	model generator
}

// NewVertex returns a converter that asks Gemini to translate the whole PDF.
func NewVertex(client *gcp.VertexClient) Converter {
	return &validating{backend: vertexBackend{model: client.ConverterModel}}
}

func (vertexBackend) name() string { return "vertex" }

func (b vertexBackend) extract(ctx context.Context, path string, pageCount int) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", models.ConversionError("failed to read PDF", err)
	}

	resp, err := b.model.GenerateContent(ctx,
		genai.Blob{MIMEType: "application/pdf", Data: data},
		genai.Text(gcp.ConverterUserPrompt),
	)
	if err != nil {
		return "", models.ConversionError("failed to generate content from gemini", err)
	}

	markdown := extractMarkdown(resp)
	if isRefusal(markdown) {
		return "", models.ConversionError(fmt.Sprintf("gemini response indicates refusal for %d page document", pageCount), nil)
	}
	return markdown, nil
}

// extractMarkdown concatenates the text parts of the first candidate.
func extractMarkdown(resp *genai.GenerateContentResponse) string {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil || len(resp.Candidates[0].Content.Parts) == 0 {
		return ""
	}

	var b strings.Builder
	var textParts int
	for _, part := range resp.Candidates[0].Content.Parts {
		if txt, ok := part.(genai.Text); ok {
			b.WriteString(string(txt))
			textParts++
		}
	}
	if textParts > 1 {
		slog.Warn("Gemini response contained multiple text parts; they have been concatenated.", "textParts", textParts)
	}
	return stripFences(b.String())
}
