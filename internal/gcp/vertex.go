package gcp

import (
	"context"
	"fmt"

	"cloud.google.com/go/vertexai/genai"
)

// --- Converter Model Prompts ---
const ConverterSystemPrompt = "You are a document parser and markdown translator. Your task is to parse the content of a PDF document and translate it into markdown format. Accuracy, detail, and information preservation are of utmost importance."
const ConverterUserPrompt = `You will be provided with a PDF document:

Follow these instructions to parse the document and translate its content into markdown format:

Text: Parse all text content directly into markdown text.
Lists: Parse all lists into markdown lists, maintaining the original structure and formatting.
Images: Replace each image with a descriptive text that accurately describes the image's content.
Tables: Parse all tables into markdown tables. If a table contains merged cells, normalize the table by copying the content from the parent cells into the normalized child cells.
Headers and Footers: Ignore any irrelevant content in the header and footer, such as the publishing company's name, logo, address, or page numbers.

Return ONLY the Markdown content. Do not include any preambles or surround the output with backtick fences.`

// VertexClient holds the pre-configured generative model used for conversion.
type VertexClient struct {
	ConverterModel *genai.GenerativeModel
	baseClient     *genai.Client
}

// NewVertexClient creates a new client holding the conversion model.
func NewVertexClient(ctx context.Context, projectID, region, modelName string) (*VertexClient, error) {
	if projectID == "" || region == "" {
		return nil, fmt.Errorf("NewVertexClient: projectID and region cannot be empty")
	}
	if modelName == "" {
		modelName = "gemini-1.5-pro"
	}

	baseClient, err := genai.NewClient(ctx, projectID, region)
	if err != nil {
		return nil, fmt.Errorf("genai.NewClient: %w", err)
	}

	converterModel := baseClient.GenerativeModel(modelName)
	converterModel.SystemInstruction = &genai.Content{
		Parts: []genai.Part{genai.Text(ConverterSystemPrompt)},
	}
	converterModel.GenerationConfig = genai.GenerationConfig{
		Temperature: genai.Ptr[float32](0.0),
	}

	return &VertexClient{
		ConverterModel: converterModel,
		baseClient:     baseClient,
	}, nil
}

func (c *VertexClient) Close() error {
	if c.baseClient != nil {
		return c.baseClient.Close()
	}
	return nil
}
