package converter

import (
	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"

	"github.com/Lllllllleong/pdftomarkdown/internal/models"
)

// Inspect validates the PDF in relaxed mode and returns its page count.
func Inspect(path string) (int, error) {
	cfg := model.NewDefaultConfiguration()
	cfg.ValidationMode = model.ValidationRelaxed
	if err := api.ValidateFile(path, cfg); err != nil {
		return 0, models.ConversionError("invalid PDF", err)
	}

	pageCount, err := api.PageCountFile(path)
	if err != nil {
		return 0, models.ConversionError("failed to get page count", err)
	}
	if pageCount == 0 {
		return 0, models.ConversionError("PDF has no pages", nil)
	}
	return pageCount, nil
}
