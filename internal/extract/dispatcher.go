package extract

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/joseph-ayodele/docinsight/constants"
	"github.com/joseph-ayodele/docinsight/internal/common"
)

// Dispatcher picks the extractor for a declared content type and normalizes its output.
type Dispatcher struct {
	pdf    TextExtractor
	image  TextExtractor
	logger *slog.Logger
}

func NewDispatcher(pdf, image TextExtractor, logger *slog.Logger) *Dispatcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Dispatcher{pdf: pdf, image: image, logger: logger}
}

// Extract returns normalized text or an EXTRACTION_FAILED AppError. Unknown
// content types fail without touching either extractor.
func (d *Dispatcher) Extract(ctx context.Context, content []byte, ct constants.ContentType) (Result, error) {
	start := time.Now()
	reqID := common.RequestIDFromContext(ctx)

	format, ok := ct.Format()
	if !ok {
		d.logger.Warn("extract.unsupported_type", "request_id", reqID, "content_type", ct)
		return Result{}, common.NewAppError(common.CodeExtractionFailed,
			fmt.Sprintf("unsupported content type %q", ct), common.ErrUnsupportedType)
	}

	var ex TextExtractor
	switch format {
	case constants.FormatPDF:
		ex = d.pdf
	case constants.FormatImage:
		ex = d.image
	}

	d.logger.Debug("extract.start", "request_id", reqID, "content_type", ct, "bytes", len(content))
	res, err := ex.Extract(ctx, content)
	res.Duration = time.Since(start)
	if err != nil {
		d.logger.Error("extract.failed",
			"request_id", reqID,
			"content_type", ct,
			"duration_ms", res.Duration.Milliseconds(),
			"error", err,
		)
		return Result{}, common.NewAppError(common.CodeExtractionFailed, string(format)+" extraction failed", err)
	}

	res.Format = format
	res.Text = Normalize(res.Text)
	if res.Text == "" && format == constants.FormatPDF && res.Pages > 0 {
		// Image-only PDFs land here; there is no OCR fallback.
		d.logger.Warn("extract.pdf_without_text", "request_id", reqID, "pages", res.Pages)
	}
	for _, w := range res.Warnings {
		d.logger.Debug("extract.warning", "request_id", reqID, "warning", strings.TrimSpace(w))
	}

	d.logger.Info("extract.done",
		"request_id", reqID,
		"method", res.Method,
		"pages", res.Pages,
		"chars", len(res.Text),
		"duration_ms", res.Duration.Milliseconds(),
	)
	return res, nil
}
