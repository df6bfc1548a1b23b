package ocr

import (
	"bytes"
	"context"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"log/slog"
	"strconv"
	"strings"

	"github.com/joseph-ayodele/docinsight/constants"
)

// ImageExtractor runs tesseract once per call. No engine state outlives a call.
type ImageExtractor struct {
	cfg    Config
	runner Runner
	logger *slog.Logger
}

func NewImageExtractor(cfg Config, logger *slog.Logger) *ImageExtractor {
	return &ImageExtractor{cfg: cfg.withDefaults(), runner: execRunner{}, logger: orDefault(logger)}
}

// WithRunner swaps the command runner, mainly for tests.
func (e *ImageExtractor) WithRunner(r Runner) *ImageExtractor {
	e.runner = r
	return e
}

func (e *ImageExtractor) Extract(ctx context.Context, content []byte) (ExtractionResult, error) {
	res := ExtractionResult{Format: constants.FormatImage, Method: "image-ocr", Language: e.cfg.TesseractLang}

	// Reject corrupt or foreign encodings before paying for a tesseract process.
	imgCfg, kind, err := image.DecodeConfig(bytes.NewReader(content))
	if err != nil {
		return res, fmt.Errorf("decode image header: %w", err)
	}
	if imgCfg.Width == 0 || imgCfg.Height == 0 {
		return res, fmt.Errorf("empty %s image", kind)
	}
	e.logger.Debug("image accepted for ocr", "kind", kind, "width", imgCfg.Width, "height", imgCfg.Height)

	txt, warn, err := e.tesseractOCR(ctx, content)
	res.Warnings = warn
	if err != nil {
		return res, err
	}
	res.Text = txt
	res.Pages = 1
	return res, nil
}

func (e *ImageExtractor) tesseractOCR(ctx context.Context, content []byte) (string, []string, error) {
	// tesseract stdin stdout -l <lang>
	args := []string{"stdin", "stdout", "-l", e.cfg.TesseractLang}
	if e.cfg.PSM > 0 {
		args = append(args, "--psm", strconv.Itoa(e.cfg.PSM))
	}
	if e.cfg.OEM > 0 {
		args = append(args, "--oem", strconv.Itoa(e.cfg.OEM))
	}
	if e.cfg.TessdataDir != "" {
		args = append(args, "--tessdata-dir", e.cfg.TessdataDir)
	}

	ctx, cancel := withTimeout(ctx, e.cfg.Timeout)
	defer cancel()

	out, errb, err := e.runner.Run(ctx, e.cfg.Tesseract, bytes.NewReader(content), e.logger, args...)
	if err != nil {
		return "", nonEmpty(string(errb)), fmt.Errorf("tesseract: %w", err)
	}
	return string(out), nil, nil
}

func nonEmpty(s string) []string {
	if s = strings.TrimSpace(s); s == "" {
		return nil
	}
	return []string{truncate(s, 8<<10)}
}
