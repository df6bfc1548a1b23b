package common

import (
	"errors"
	"fmt"
	"log/slog"
)

// AppError represents application-specific errors
type AppError struct {
	Code    string
	Message string
	Cause   error
}

func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Cause
}

// Error codes carried by AppError.
const (
	CodeExtractionFailed          = "EXTRACTION_FAILED"
	CodeProviderUnavailable       = "PROVIDER_UNAVAILABLE"
	CodeNoCapableModel            = "NO_CAPABLE_MODEL"
	CodeEnrichmentRequestFailed   = "ENRICHMENT_REQUEST_FAILED"
	CodeMalformedEnrichmentOutput = "MALFORMED_ENRICHMENT_OUTPUT"
	CodeInvalidUpload             = "INVALID_UPLOAD"
	CodeStorage                   = "STORAGE_ERROR"
	CodeConfig                    = "CONFIG_ERROR"
)

// Common application errors
var (
	ErrInvalidInput    = errors.New("invalid input")
	ErrUnauthorized    = errors.New("unauthorized")
	ErrInternal        = errors.New("internal error")
	ErrValidation      = errors.New("validation failed")
	ErrUnsupportedType = errors.New("unsupported content type")
	ErrTooLarge        = errors.New("payload too large")
	ErrEmptyOutput     = errors.New("empty output")
)

// Error constructors
func NewAppError(code, message string, cause error) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
		Cause:   cause,
	}
}

// CodeOf returns the code of the outermost AppError in err's chain, or "".
func CodeOf(err error) string {
	var ae *AppError
	if errors.As(err, &ae) {
		return ae.Code
	}
	return ""
}

// clientMessages are the only texts that leave the process for server-side failures.
var clientMessages = map[string]string{
	CodeExtractionFailed:          "text extraction failed",
	CodeProviderUnavailable:       "AI provider temporarily unavailable",
	CodeNoCapableModel:            "no capable AI model available",
	CodeEnrichmentRequestFailed:   "AI request failed",
	CodeMalformedEnrichmentOutput: "AI returned an unreadable response",
	CodeStorage:                   "upload storage failed",
}

// ClientMessage returns a message that is safe to show to API callers.
// Provider payloads, URLs and credentials never appear in it.
func ClientMessage(err error) string {
	if err == nil {
		return ""
	}
	var ae *AppError
	if errors.As(err, &ae) {
		if ae.Code == CodeInvalidUpload {
			return ae.Message
		}
		if msg, ok := clientMessages[ae.Code]; ok {
			slog.Debug("sanitizing error for client", "original", err.Error(), "sanitized", msg)
			return msg
		}
	}
	slog.Error("internal error (sanitized for client)", "error", err)
	return "internal error"
}
