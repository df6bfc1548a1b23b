package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/google/gops/agent"

	"github.com/joseph-ayodele/docinsight/internal/common"
	"github.com/joseph-ayodele/docinsight/internal/extract"
	"github.com/joseph-ayodele/docinsight/internal/llm/gemini"
	"github.com/joseph-ayodele/docinsight/internal/ocr"
	"github.com/joseph-ayodele/docinsight/internal/pipeline"
	"github.com/joseph-ayodele/docinsight/internal/upload"
)

// app is the wired pipeline shared by every command.
type app struct {
	cfg       *common.Config
	logger    *slog.Logger
	store     *upload.Store
	client    *gemini.Client
	directory *gemini.DirectoryCache
	processor *pipeline.Processor
}

func loadApp() (*app, error) {
	cfg, err := common.LoadConfig(v)
	if err != nil {
		return nil, err
	}
	logger, err := newLogger(cfg.Log, os.Stderr)
	if err != nil {
		return nil, err
	}
	slog.SetDefault(logger)
	return newApp(cfg, logger), nil
}

func newApp(cfg *common.Config, logger *slog.Logger) *app {
	if logger == nil {
		logger = slog.Default()
	}
	ocrCfg := ocr.Config{
		Pdftotext:     cfg.OCR.PdftotextPath,
		Tesseract:     cfg.OCR.TesseractPath,
		TesseractLang: cfg.OCR.Language,
		TessdataDir:   cfg.OCR.TessdataDir,
		PSM:           cfg.OCR.PSM,
		OEM:           cfg.OCR.OEM,
		PDFBackend:    cfg.OCR.PDFBackend,
		Timeout:       cfg.OCR.Timeout,
	}
	dispatcher := extract.NewDispatcher(
		extract.NewOCRAdapter(ocr.NewPDFExtractor(ocrCfg, logger)),
		extract.NewOCRAdapter(ocr.NewImageExtractor(ocrCfg, logger)),
		logger,
	)

	client := gemini.NewClient(gemini.Config{
		BaseURL:         cfg.LLM.BaseURL,
		Temperature:     cfg.LLM.Temperature,
		MaxOutputTokens: cfg.LLM.MaxOutputTokens,
		Timeout:         cfg.LLM.Timeout,
	}, logger)
	directory := gemini.NewDirectoryCache(client, cfg.LLM.DirectoryTTL, logger)

	enrich := pipeline.NewEnrichStage(logger, pipeline.EnrichConfig{
		Credential:   cfg.LLM.APIKey,
		Preferences:  cfg.LLM.ModelPreferences,
		VendorMarker: cfg.LLM.VendorMarker,
		Timeout:      cfg.LLM.EnrichTimeout,
	}, directory, client)
	if !cfg.LLM.Enabled() {
		logger.Warn("Gemini API key not configured, AI enrichment will be skipped")
	}

	store := upload.NewStore(cfg.Upload, logger)
	return &app{
		cfg:       cfg,
		logger:    logger,
		store:     store,
		client:    client,
		directory: directory,
		processor: pipeline.NewProcessor(logger, store, dispatcher, enrich),
	}
}

// newLogger builds the process logger from the log section.
func newLogger(cfg common.LogConfig, w io.Writer) (*slog.Logger, error) {
	var level slog.Level
	if cfg.Level != "" {
		if err := level.UnmarshalText([]byte(cfg.Level)); err != nil {
			return nil, common.NewAppError(common.CodeConfig, fmt.Sprintf("invalid LOG_LEVEL %q", cfg.Level), err)
		}
	}
	opts := &slog.HandlerOptions{Level: level}
	switch cfg.Format {
	case "json":
		return slog.New(slog.NewJSONHandler(w, opts)), nil
	case "text", "":
		return slog.New(slog.NewTextHandler(w, opts)), nil
	}
	return nil, common.NewAppError(common.CodeConfig, fmt.Sprintf("invalid LOG_FORMAT %q", cfg.Format), common.ErrInvalidInput)
}

// startGops starts the diagnostics agent when enabled; the returned func stops it.
func startGops(enabled bool, logger *slog.Logger) func() {
	if !enabled {
		return func() {}
	}
	if err := agent.Listen(agent.Options{ShutdownCleanup: true}); err != nil {
		logger.Warn("gops agent failed to start", "error", err)
		return func() {}
	}
	logger.Info("gops agent listening")
	return agent.Close
}
