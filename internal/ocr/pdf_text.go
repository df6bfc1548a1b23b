package ocr

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/ledongthuc/pdf"
	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"

	"github.com/joseph-ayodele/docinsight/constants"
)

var disablePdfcpuConfigDir sync.Once

// ErrNoPages is returned for documents that parse but contain no pages.
var ErrNoPages = errors.New("pdf has no pages")

// PDFExtractor reads the text layer of a PDF. Pages that carry only images
// contribute no text; there is no OCR fallback for scanned documents.
type PDFExtractor struct {
	cfg    Config
	runner Runner
	logger *slog.Logger
}

func NewPDFExtractor(cfg Config, logger *slog.Logger) *PDFExtractor {
	disablePdfcpuConfigDir.Do(api.DisableConfigDir)
	return &PDFExtractor{cfg: cfg.withDefaults(), runner: execRunner{}, logger: orDefault(logger)}
}

// WithRunner swaps the command runner used by the pdftotext backend.
func (e *PDFExtractor) WithRunner(r Runner) *PDFExtractor {
	e.runner = r
	return e
}

func (e *PDFExtractor) Extract(ctx context.Context, content []byte) (ExtractionResult, error) {
	res := ExtractionResult{Format: constants.FormatPDF}

	pages, err := e.preflight(content)
	if err != nil {
		return res, err
	}
	res.Pages = pages

	switch e.cfg.PDFBackend {
	case "pdftotext":
		res.Method = "pdftotext"
		text, warn, err := e.pdfToText(ctx, content)
		res.Warnings = warn
		if err != nil {
			return res, err
		}
		res.Text = text
	default:
		res.Method = "pdf-text"
		text, err := readTextLayer(content)
		if err != nil {
			return res, err
		}
		res.Text = text
	}

	if strings.TrimSpace(res.Text) == "" {
		res.Warnings = append(res.Warnings, "no text layer found; document may be scanned")
	}
	return res, nil
}

// preflight validates structure with pdfcpu and returns the page count.
// Encrypted documents without an empty user password fail here.
func (e *PDFExtractor) preflight(content []byte) (int, error) {
	conf := model.NewDefaultConfiguration()
	conf.ValidationMode = model.ValidationRelaxed

	n, err := api.PageCount(bytes.NewReader(content), conf)
	if err != nil {
		return 0, fmt.Errorf("pdf preflight: %w", err)
	}
	if n == 0 {
		return 0, ErrNoPages
	}
	e.logger.Debug("pdf preflight ok", "pages", n, "bytes", len(content))
	return n, nil
}

// readTextLayer extracts page text in page order. The parser panics on some
// malformed inputs, so panics are turned into errors.
func readTextLayer(content []byte) (text string, err error) {
	defer func() {
		if r := recover(); r != nil {
			text = ""
			err = fmt.Errorf("pdf parse panic: %v", r)
		}
	}()

	r, err := pdf.NewReader(bytes.NewReader(content), int64(len(content)))
	if err != nil {
		return "", fmt.Errorf("pdf open: %w", err)
	}

	var b strings.Builder
	for i := 1; i <= r.NumPage(); i++ {
		p := r.Page(i)
		if p.V.IsNull() {
			continue
		}
		pageText, err := p.GetPlainText(nil)
		if err != nil {
			return "", fmt.Errorf("pdf page %d: %w", i, err)
		}
		if b.Len() > 0 {
			b.WriteString("\n")
		}
		b.WriteString(pageText)
	}
	return b.String(), nil
}

func (e *PDFExtractor) pdfToText(ctx context.Context, content []byte) (string, []string, error) {
	ctx, cancel := withTimeout(ctx, e.cfg.Timeout)
	defer cancel()

	// pdftotext -enc UTF-8 -eol unix - -
	out, errb, err := e.runner.Run(ctx, e.cfg.Pdftotext, bytes.NewReader(content), e.logger, "-enc", "UTF-8", "-eol", "unix", "-", "-")
	if err != nil {
		return "", nonEmpty(string(errb)), fmt.Errorf("pdftotext: %w", err)
	}
	// form feeds separate pages
	return strings.ReplaceAll(string(out), "\f", "\n"), nil, nil
}
