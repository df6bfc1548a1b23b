package extract

import (
	"context"

	"github.com/joseph-ayodele/docinsight/internal/ocr"
)

type OCRAdapter struct {
	e ocr.Extractor
}

func NewOCRAdapter(e ocr.Extractor) *OCRAdapter {
	return &OCRAdapter{e: e}
}

func (a *OCRAdapter) Extract(ctx context.Context, content []byte) (Result, error) {
	r, err := a.e.Extract(ctx, content)
	return Result{
		Text:     r.Text,
		Pages:    r.Pages,
		Format:   r.Format,
		Method:   r.Method,
		Language: r.Language,
		Warnings: r.Warnings,
	}, err
}
