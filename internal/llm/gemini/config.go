package gemini

import (
	"log/slog"
	"net/http"
	"time"
)

// DefaultBaseURL is the public generative-language REST endpoint.
const DefaultBaseURL = "https://generativelanguage.googleapis.com/v1beta"

// Config for the Gemini client. The credential is not part of it; callers pass
// it per call so one client serves every key.
type Config struct {
	BaseURL         string        // default DefaultBaseURL
	Temperature     float32       // 0..2
	MaxOutputTokens int           // default 2048
	Timeout         time.Duration // http client timeout, bounds every call
}

type Client struct {
	cfg    Config
	http   *http.Client
	logger *slog.Logger
}

func NewClient(cfg Config, logger *slog.Logger) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.MaxOutputTokens <= 0 {
		cfg.MaxOutputTokens = 2048
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 45 * time.Second
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		cfg:    cfg,
		http:   &http.Client{Timeout: cfg.Timeout},
		logger: logger,
	}
}

// WithHTTPClient replaces the transport, keeping the configured timeout when h has none.
func (c *Client) WithHTTPClient(h *http.Client) *Client {
	if h.Timeout <= 0 {
		h.Timeout = c.cfg.Timeout
	}
	c.http = h
	return c
}
