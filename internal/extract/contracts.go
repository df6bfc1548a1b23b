package extract

import (
	"context"
	"time"

	"github.com/joseph-ayodele/docinsight/constants"
)

// TextExtractor is one format-specific strategy: document bytes -> raw text.
type TextExtractor interface {
	Extract(ctx context.Context, content []byte) (Result, error)
}

// Result is extractor output. After the Dispatcher returns it, Text is
// normalized: trimmed, non-empty lines in source order joined by "\n".
type Result struct {
	Text     string
	Pages    int
	Format   constants.Format
	Method   string // "pdf-text" | "pdftotext" | "image-ocr"
	Language string
	Duration time.Duration
	Warnings []string
}
