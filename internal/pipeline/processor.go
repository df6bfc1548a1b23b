package pipeline

import (
	"context"
	"io"
	"log/slog"
	"time"

	"github.com/joseph-ayodele/docinsight/constants"
	"github.com/joseph-ayodele/docinsight/internal/common"
	"github.com/joseph-ayodele/docinsight/internal/extract"
	"github.com/joseph-ayodele/docinsight/internal/llm"
	"github.com/joseph-ayodele/docinsight/internal/upload"
)

// DocumentStore is the part of the upload store the processor needs.
type DocumentStore interface {
	Save(ctx context.Context, filename string, ct constants.ContentType, r io.Reader) (upload.Document, error)
	Read(ctx context.Context, doc upload.Document) ([]byte, error)
	Release(ctx context.Context, doc upload.Document) error
}

// Extractor turns document bytes into normalized text.
type Extractor interface {
	Extract(ctx context.Context, content []byte, ct constants.ContentType) (extract.Result, error)
}

// Result is the outcome of one document. Enrichment is nil whenever any
// enrichment step failed or was skipped.
type Result struct {
	RequestID   string                `json:"request_id"`
	DocumentID  string                `json:"document_id"`
	Filename    string                `json:"filename"`
	ContentType constants.ContentType `json:"content_type"`
	SHA256Hex   string                `json:"sha256"`
	State       constants.State       `json:"state"`
	Extraction  extract.Result        `json:"-"`
	Enrichment  *llm.EnrichmentResult `json:"-"`
	Duration    time.Duration         `json:"-"`
}

// Processor coordinates extraction then optional enrichment.
type Processor struct {
	Logger    *slog.Logger
	Store     DocumentStore
	Extractor Extractor
	Enrich    *EnrichStage // nil or credential-less disables enrichment
}

func NewProcessor(logger *slog.Logger, store DocumentStore, ex Extractor, enrich *EnrichStage) *Processor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Processor{Logger: logger, Store: store, Extractor: ex, Enrich: enrich}
}

// Process runs one stored document through the pipeline. The document is
// released once its bytes are in memory, and exactly once on every exit
// path, panics included. Only
// extraction and storage failures are returned; enrichment failures are
// logged and leave Result.Enrichment nil.
func (p *Processor) Process(ctx context.Context, doc upload.Document) (Result, error) {
	start := time.Now()
	ctx, reqID := common.EnsureRequestID(ctx)
	released := false
	release := func() {
		if !released {
			released = true
			p.release(ctx, doc)
		}
	}
	defer release()

	res := Result{
		RequestID:   reqID,
		DocumentID:  doc.ID,
		Filename:    doc.Filename,
		ContentType: doc.ContentType,
		SHA256Hex:   doc.SHA256Hex,
		State:       constants.StateReceived,
	}
	p.transition(reqID, &res, constants.StateExtracting)

	content, err := p.Store.Read(ctx, doc)
	if err != nil {
		p.fail(reqID, &res, err)
		return res, err
	}
	release()

	ext, err := p.Extractor.Extract(ctx, content, doc.ContentType)
	if err != nil {
		p.fail(reqID, &res, err)
		return res, err
	}
	res.Extraction = ext

	switch {
	case !p.Enrich.Enabled():
		p.Logger.Debug("pipeline.enrich.skipped", "request_id", reqID, "reason", "no credential")
	case ext.Text == "":
		p.Logger.Info("pipeline.enrich.skipped", "request_id", reqID, "reason", "empty text")
	default:
		p.transition(reqID, &res, constants.StateEnriching)
		enrichment, err := p.Enrich.Run(ctx, ext.Text)
		if err != nil {
			p.Logger.Warn("pipeline.enrich.degraded",
				"request_id", reqID,
				"code", common.CodeOf(err),
				"error", err,
			)
		} else {
			res.Enrichment = enrichment
		}
	}

	p.transition(reqID, &res, constants.StateCompleted)
	res.Duration = time.Since(start)
	p.Logger.Info("pipeline.done",
		"request_id", reqID,
		"document_id", doc.ID,
		"chars", len(ext.Text),
		"enriched", res.Enrichment != nil,
		"elapsed_ms", res.Duration.Milliseconds(),
	)
	return res, nil
}

// ProcessBytes stores content and then processes it.
func (p *Processor) ProcessBytes(ctx context.Context, filename string, ct constants.ContentType, r io.Reader) (Result, error) {
	doc, err := p.Store.Save(ctx, filename, ct, r)
	if err != nil {
		return Result{Filename: filename, ContentType: ct, State: constants.StateFailed}, err
	}
	return p.Process(ctx, doc)
}

func (p *Processor) release(ctx context.Context, doc upload.Document) {
	if err := p.Store.Release(ctx, doc); err != nil {
		p.Logger.Warn("pipeline.release_failed", "request_id", common.RequestIDFromContext(ctx), "document_id", doc.ID, "error", err)
	}
}

func (p *Processor) transition(reqID string, res *Result, to constants.State) {
	p.Logger.Debug("pipeline.state", "request_id", reqID, "from", res.State, "to", to)
	res.State = to
}

func (p *Processor) fail(reqID string, res *Result, err error) {
	p.transition(reqID, res, constants.StateFailed)
	p.Logger.Error("pipeline.failed", "request_id", reqID, "code", common.CodeOf(err), "error", err)
}
