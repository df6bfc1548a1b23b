package server

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"

	"github.com/joseph-ayodele/docinsight/constants"
	"github.com/joseph-ayodele/docinsight/internal/common"
	"github.com/joseph-ayodele/docinsight/internal/llm"
	"github.com/joseph-ayodele/docinsight/internal/pipeline"
)

// multipartOverhead is the slack allowed on top of the file limit for
// boundaries and part headers.
const multipartOverhead = 1 << 20

// Analyzer runs one uploaded document through the pipeline.
type Analyzer interface {
	ProcessBytes(ctx context.Context, filename string, ct constants.ContentType, r io.Reader) (pipeline.Result, error)
}

// AnalyzeHandler serves POST /api/analyze.
type AnalyzeHandler struct {
	analyzer Analyzer
	maxBytes int64
	logger   *slog.Logger
}

func NewAnalyzeHandler(a Analyzer, maxBytes int64, logger *slog.Logger) *AnalyzeHandler {
	if logger == nil {
		logger = slog.Default()
	}
	if maxBytes <= 0 {
		maxBytes = constants.MaxUploadBytes
	}
	return &AnalyzeHandler{analyzer: a, maxBytes: maxBytes, logger: logger}
}

type analyzeResponse struct {
	Success bool                   `json:"success"`
	Text    string                 `json:"text"`
	AI      *llm.StructuredInsight `json:"ai"`
	Model   *string                `json:"model"`
}

type errorResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
}

func (h *AnalyzeHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	reqID := common.RequestIDFromContext(ctx)
	r.Body = http.MaxBytesReader(w, r.Body, h.maxBytes+multipartOverhead)
	defer func() {
		if r.MultipartForm != nil {
			_ = r.MultipartForm.RemoveAll()
		}
	}()

	file, header, err := h.formFile(r)
	if err != nil {
		h.fail(w, reqID, err)
		return
	}
	if file != nil {
		defer file.Close()
	}

	var name, declared string
	var size int64
	if header != nil {
		name, declared, size = header.Filename, header.Header.Get("Content-Type"), header.Size
	}
	err = common.NewValidator().
		Field("file", name, common.RequiredMsg("No file uploaded")).
		Field("content_type", declared, common.OneOf(allowedType, "Invalid file type")).
		Field("size", size, common.MaxSize(h.maxBytes, "File too large")).
		Err()
	if err != nil {
		h.fail(w, reqID, err)
		return
	}
	ct, _ := constants.ParseContentType(declared)

	h.logger.Info("analyze.received",
		"request_id", reqID,
		"content_type", ct,
		"bytes", header.Size,
	)
	res, err := h.analyzer.ProcessBytes(ctx, header.Filename, ct, file)
	if err != nil {
		h.fail(w, reqID, err)
		return
	}

	out := analyzeResponse{Success: true, Text: res.Extraction.Text}
	if res.Enrichment != nil {
		insight := res.Enrichment.Insight
		model := res.Enrichment.Model
		out.AI, out.Model = &insight, &model
	}
	SendJSON(w, http.StatusOK, out)
}

func allowedType(s string) bool {
	_, ok := constants.ParseContentType(s)
	return ok
}

// formFile returns the "file" part, mapping transport failures to upload
// errors. A well-formed form without the part yields nil, nil, nil.
func (h *AnalyzeHandler) formFile(r *http.Request) (multipart.File, *multipart.FileHeader, error) {
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		var mbe *http.MaxBytesError
		if errors.As(err, &mbe) {
			return nil, nil, common.NewAppError(common.CodeInvalidUpload, "File too large", common.ErrTooLarge)
		}
		return nil, nil, common.NewAppError(common.CodeInvalidUpload, "No file uploaded", err)
	}
	file, header, err := r.FormFile("file")
	if errors.Is(err, http.ErrMissingFile) {
		return nil, nil, nil
	}
	if err != nil {
		return nil, nil, common.NewAppError(common.CodeInvalidUpload, "No file uploaded", err)
	}
	return file, header, nil
}

func (h *AnalyzeHandler) fail(w http.ResponseWriter, reqID string, err error) {
	status, msg := statusFor(err)
	if status >= http.StatusInternalServerError {
		h.logger.Error("analyze.failed", "request_id", reqID, "status", status, "code", common.CodeOf(err), "error", err)
	} else {
		h.logger.Warn("analyze.rejected", "request_id", reqID, "status", status, "code", common.CodeOf(err), "error", err)
	}
	SendJSON(w, status, errorResponse{Success: false, Error: msg})
}

// statusFor maps an error to its HTTP status and client-safe message.
func statusFor(err error) (int, string) {
	var ae *common.AppError
	errors.As(err, &ae)
	switch common.CodeOf(err) {
	case common.CodeInvalidUpload:
		if errors.Is(err, common.ErrTooLarge) {
			return http.StatusRequestEntityTooLarge, "File too large"
		}
		return http.StatusBadRequest, ae.Message
	case common.CodeExtractionFailed:
		return http.StatusUnprocessableEntity, "Text extraction failed: " + ae.Message
	default:
		return http.StatusInternalServerError, common.ClientMessage(err)
	}
}
