package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/joseph-ayodele/docinsight/internal/common"
	"github.com/joseph-ayodele/docinsight/internal/llm"
)

// EnrichConfig holds the enrichment inputs that come from configuration.
type EnrichConfig struct {
	Credential   string
	Preferences  []string
	VendorMarker string
	Timeout      time.Duration // 0 means no stage deadline beyond the caller's
}

// invalidator is implemented by directory caches that can drop a credential's entry.
type invalidator interface {
	Invalidate(credential string)
}

// EnrichStage runs discovery, selection, generation and sanitizing for one text.
type EnrichStage struct {
	Logger    *slog.Logger
	Cfg       EnrichConfig
	Directory llm.ModelDirectory
	Enricher  llm.Enricher
}

func NewEnrichStage(logger *slog.Logger, cfg EnrichConfig, dir llm.ModelDirectory, enricher llm.Enricher) *EnrichStage {
	if logger == nil {
		logger = slog.Default()
	}
	return &EnrichStage{Logger: logger, Cfg: cfg, Directory: dir, Enricher: enricher}
}

// Enabled reports whether a credential is configured.
func (s *EnrichStage) Enabled() bool {
	return s != nil && s.Cfg.Credential != ""
}

// Run returns the enrichment for text or a typed AppError. It never panics;
// a panic in a collaborator is returned as an ENRICHMENT_REQUEST_FAILED error.
func (s *EnrichStage) Run(ctx context.Context, text string) (out *llm.EnrichmentResult, err error) {
	defer func() {
		if r := recover(); r != nil {
			out = nil
			err = common.NewAppError(common.CodeEnrichmentRequestFailed, "enrichment panicked", fmt.Errorf("%w: %v", common.ErrInternal, r))
		}
	}()

	ctx, cancel := common.WithTimeout(ctx, s.Cfg.Timeout)
	defer cancel()

	models, err := s.Directory.ListCapableModels(ctx, s.Cfg.Credential)
	if err != nil {
		s.invalidateOnAuth(err)
		return nil, err
	}

	model, ok := llm.SelectModel(models, s.Cfg.Preferences, s.Cfg.VendorMarker)
	if !ok {
		// The directory may be stale; the next request rediscovers.
		s.invalidate()
		return nil, common.NewAppError(common.CodeNoCapableModel,
			fmt.Sprintf("no preferred model among %d capable models", len(models)), nil)
	}
	s.Logger.Debug("enrich.model_selected", "request_id", common.RequestIDFromContext(ctx), "model", model)

	raw, err := s.Enricher.Enrich(ctx, text, model, s.Cfg.Credential)
	if err != nil {
		s.invalidateOnAuth(err)
		return nil, err
	}

	insight, err := llm.Sanitize(raw, s.Logger)
	if err != nil {
		return nil, err
	}
	return &llm.EnrichmentResult{Raw: raw, Insight: *insight, Model: model}, nil
}

func (s *EnrichStage) invalidateOnAuth(err error) {
	if errors.Is(err, common.ErrUnauthorized) {
		s.invalidate()
	}
}

func (s *EnrichStage) invalidate() {
	if inv, ok := s.Directory.(invalidator); ok {
		inv.Invalidate(s.Cfg.Credential)
	}
}
