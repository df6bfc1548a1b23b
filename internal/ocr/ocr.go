package ocr

import (
	"context"
	"log/slog"
	"time"

	"github.com/joseph-ayodele/docinsight/constants"
)

type Config struct {
	Pdftotext string // binary name or absolute path; if empty -> "pdftotext"
	Tesseract string // binary name or absolute path; if empty -> "tesseract"

	TesseractLang string // default "eng"
	TessdataDir   string

	PSM int // e.g., 6 is good for uniform block of text; 0 keeps the engine default
	OEM int // 1 = LSTM; leave 0 to use default

	// PDFBackend selects "native" (in-process parser) or "pdftotext" (poppler).
	PDFBackend string

	// Timeout bounds one external command; 0 means only the caller's context applies.
	Timeout time.Duration
}

// ExtractionResult is raw extractor output. Text is not normalized yet.
type ExtractionResult struct {
	Text     string
	Pages    int
	Format   constants.Format
	Method   string // "pdf-text" | "pdftotext" | "image-ocr"
	Language string
	Warnings []string
}

// Extractor turns document bytes into raw text.
type Extractor interface {
	Extract(ctx context.Context, content []byte) (ExtractionResult, error)
}

func (c Config) withDefaults() Config {
	if c.Pdftotext == "" {
		c.Pdftotext = "pdftotext"
	}
	if c.Tesseract == "" {
		c.Tesseract = "tesseract"
	}
	if c.TesseractLang == "" {
		c.TesseractLang = "eng"
	}
	if c.PDFBackend == "" {
		c.PDFBackend = "native"
	}
	return c
}

func orDefault(logger *slog.Logger) *slog.Logger {
	if logger == nil {
		return slog.Default()
	}
	return logger
}

func withTimeout(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if d <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, d)
}
