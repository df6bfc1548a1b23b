package gemini

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/joseph-ayodele/docinsight/internal/common"
	"github.com/joseph-ayodele/docinsight/internal/llm"
)

// ListCapableModels makes one directory call and keeps only models that
// support generateContent. An empty result is valid.
func (c *Client) ListCapableModels(ctx context.Context, credential string) ([]llm.ModelDescriptor, error) {
	rid := uuid.New().String()
	start := time.Now()

	endpoint := c.cfg.BaseURL + "/models?" + url.Values{"key": {credential}, "pageSize": {"1000"}}.Encode()
	raw, status, err := llm.GetJSON(ctx, c.http, endpoint, nil, c.logger)
	if err != nil {
		c.logger.Error("llm.models.http_error",
			"req_id", rid, "status", status, "error", err,
			"elapsed_ms", time.Since(start).Milliseconds(),
		)
		return nil, common.NewAppError(common.CodeProviderUnavailable, "list models", classify(err))
	}

	var resp listModelsResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		c.logger.Error("llm.models.decode_error", "req_id", rid, "error", err, "raw_bytes", len(raw))
		return nil, common.NewAppError(common.CodeProviderUnavailable, "decode model directory", err)
	}
	if resp.NextPageToken != "" {
		c.logger.Debug("llm.models.more_pages_ignored", "req_id", rid)
	}

	capable := make([]llm.ModelDescriptor, 0, len(resp.Models))
	for _, m := range resp.Models {
		if m.Supports(llm.GenerateContentMethod) {
			capable = append(capable, m)
		}
	}

	c.logger.Info("llm.models.ok",
		"req_id", rid,
		"listed", len(resp.Models),
		"capable", len(capable),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return capable, nil
}

// Enrich sends the structured prompt to modelID and returns the raw text the
// model produced. Every failure is an AppError; nothing panics past here.
func (c *Client) Enrich(ctx context.Context, text, modelID, credential string) (string, error) {
	rid := uuid.New().String()
	start := time.Now()
	model := strings.TrimPrefix(modelID, "models/")

	c.logger.Info("llm.enrich.start",
		"req_id", rid,
		"model", model,
		"temp", c.cfg.Temperature,
		"text_len", len(text),
	)

	body := generateRequest{
		Contents: []content{{Parts: []part{{Text: llm.BuildPrompt(text)}}}},
		GenerationConfig: generationConfig{
			Temperature:      c.cfg.Temperature,
			MaxOutputTokens:  c.cfg.MaxOutputTokens,
			ResponseMimeType: "application/json",
			ResponseSchema:   llm.ResponseSchema(),
		},
	}

	endpoint := c.cfg.BaseURL + "/models/" + url.PathEscape(model) + ":generateContent?" + url.Values{"key": {credential}}.Encode()
	raw, status, err := llm.SendJSON(ctx, c.http, endpoint, body, nil, c.logger)
	if err != nil {
		c.logger.Error("llm.enrich.http_error",
			"req_id", rid, "model", model, "status", status, "error", err,
			"provider_error", providerMessage(raw),
			"elapsed_ms", time.Since(start).Milliseconds(),
		)
		return "", common.NewAppError(common.CodeEnrichmentRequestFailed, "generateContent", classify(err))
	}

	var resp generateResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		c.logger.Error("llm.enrich.decode_error",
			"req_id", rid, "error", err, "raw_bytes", len(raw),
			"elapsed_ms", time.Since(start).Milliseconds(),
		)
		return "", common.NewAppError(common.CodeEnrichmentRequestFailed, "decode generateContent response", err)
	}

	out := strings.TrimSpace(resp.text())
	if out == "" {
		var reason string
		if resp.PromptFeedback != nil {
			reason = resp.PromptFeedback.BlockReason
		}
		c.logger.Warn("llm.enrich.empty_output",
			"req_id", rid, "candidates", len(resp.Candidates), "block_reason", reason,
			"elapsed_ms", time.Since(start).Milliseconds(),
		)
		return "", common.NewAppError(common.CodeMalformedEnrichmentOutput, "model returned no text", common.ErrEmptyOutput)
	}

	c.logger.Info("llm.enrich.ok",
		"req_id", rid,
		"model", model,
		"output_len", len(out),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return out, nil
}

// classify marks credential rejections so the directory cache can drop the
// entry. The API answers an invalid key with 400 on some endpoints.
func classify(err error) error {
	var se *llm.StatusError
	if errors.As(err, &se) {
		switch se.Status {
		case http.StatusUnauthorized, http.StatusForbidden:
			return fmt.Errorf("%w: %w", common.ErrUnauthorized, err)
		case http.StatusBadRequest:
			if strings.Contains(strings.ToLower(providerMessage(se.Body)), "api key") {
				return fmt.Errorf("%w: %w", common.ErrUnauthorized, err)
			}
		}
	}
	return err
}

func providerMessage(raw []byte) string {
	var env struct {
		Error *apiError `json:"error"`
	}
	if len(raw) == 0 || json.Unmarshal(raw, &env) != nil || env.Error == nil {
		return ""
	}
	return env.Error.Message
}
