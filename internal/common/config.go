package common

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all application configuration
type Config struct {
	Server ServerConfig
	Upload UploadConfig
	OCR    OCRConfig
	LLM    LLMConfig
	Log    LogConfig
}

// ServerConfig holds server-related configuration
type ServerConfig struct {
	HTTPAddr        string
	GRPCAddr        string // empty disables the gRPC health endpoint
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration
	Gops            bool
}

// UploadConfig holds transient upload storage configuration
type UploadConfig struct {
	BaseURL  string
	MaxBytes int64
}

// OCRConfig holds text extraction configuration
type OCRConfig struct {
	TesseractPath string
	Language      string
	TessdataDir   string
	PSM           int
	OEM           int
	PDFBackend    string
	PdftotextPath string
	Timeout       time.Duration
}

// PDF backends.
const (
	PDFBackendNative    = "native"
	PDFBackendPdftotext = "pdftotext"
)

// LLMConfig holds enrichment provider configuration
type LLMConfig struct {
	APIKey           string
	BaseURL          string
	Temperature      float32
	MaxOutputTokens  int
	Timeout          time.Duration
	EnrichTimeout    time.Duration
	DirectoryTTL     time.Duration
	ModelPreferences []string
	VendorMarker     string
}

// Enabled reports whether a credential is configured.
func (c LLMConfig) Enabled() bool {
	return strings.TrimSpace(c.APIKey) != ""
}

// LogConfig holds logging configuration
type LogConfig struct {
	Level  string
	Format string
}

// DefaultModelPreferences is the ordered list of model-name fragments tried by the selector.
var DefaultModelPreferences = []string{
	"gemini-2.5-flash",
	"gemini-2.5-flash-lite",
	"gemini-flash",
	"gemini-pro",
	"gemini-1.5-flash",
}

// envBindings keeps the flat env names; the nested keys are what a YAML config file uses.
var envBindings = map[string][]string{
	"server.http_addr":        {"PORT", "HTTP_ADDR"},
	"server.grpc_addr":        {"GRPC_ADDR"},
	"server.read_timeout":     {"HTTP_READ_TIMEOUT"},
	"server.write_timeout":    {"HTTP_WRITE_TIMEOUT"},
	"server.shutdown_timeout": {"SHUTDOWN_TIMEOUT"},
	"server.gops":             {"GOPS_ENABLED"},
	"upload.base_url":         {"UPLOAD_BASE_URL"},
	"upload.max_bytes":        {"UPLOAD_MAX_BYTES"},
	"ocr.tesseract_path":      {"TESSERACT_PATH"},
	"ocr.language":            {"OCR_LANGUAGE"},
	"ocr.tessdata_dir":        {"TESSDATA_PREFIX"},
	"ocr.psm":                 {"OCR_PSM"},
	"ocr.oem":                 {"OCR_OEM"},
	"ocr.pdf_backend":         {"OCR_PDF_BACKEND"},
	"ocr.pdftotext_path":      {"PDFTOTEXT_PATH"},
	"ocr.timeout":             {"OCR_TIMEOUT"},
	"llm.api_key":             {"GEMINI_API_KEY", "GOOGLE_API_KEY"},
	"llm.base_url":            {"GEMINI_BASE_URL"},
	"llm.temperature":         {"GEMINI_TEMPERATURE"},
	"llm.max_output_tokens":   {"GEMINI_MAX_OUTPUT_TOKENS"},
	"llm.timeout":             {"GEMINI_TIMEOUT"},
	"llm.enrich_timeout":      {"ENRICH_TIMEOUT"},
	"llm.directory_ttl":       {"GEMINI_DIRECTORY_TTL"},
	"llm.model_preferences":   {"GEMINI_MODEL_PREFERENCES"},
	"llm.vendor_marker":       {"GEMINI_VENDOR_MARKER"},
	"log.level":               {"LOG_LEVEL"},
	"log.format":              {"LOG_FORMAT"},
}

// SetDefaults registers default values on v.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("server.http_addr", "5000")
	v.SetDefault("server.grpc_addr", "")
	v.SetDefault("server.read_timeout", 30*time.Second)
	v.SetDefault("server.write_timeout", 2*time.Minute)
	v.SetDefault("server.shutdown_timeout", 15*time.Second)
	v.SetDefault("server.gops", false)

	v.SetDefault("upload.base_url", "file://"+filepath.Join(os.TempDir(), "docinsight-uploads"))
	v.SetDefault("upload.max_bytes", 10<<20)

	v.SetDefault("ocr.tesseract_path", "tesseract")
	v.SetDefault("ocr.language", "eng")
	v.SetDefault("ocr.tessdata_dir", "")
	v.SetDefault("ocr.psm", 0)
	v.SetDefault("ocr.oem", 0)
	v.SetDefault("ocr.pdf_backend", PDFBackendNative)
	v.SetDefault("ocr.pdftotext_path", "pdftotext")
	v.SetDefault("ocr.timeout", 60*time.Second)

	v.SetDefault("llm.api_key", "")
	v.SetDefault("llm.base_url", "https://generativelanguage.googleapis.com/v1beta")
	v.SetDefault("llm.temperature", 0.6)
	v.SetDefault("llm.max_output_tokens", 2048)
	v.SetDefault("llm.timeout", 45*time.Second)
	v.SetDefault("llm.enrich_timeout", 90*time.Second)
	v.SetDefault("llm.directory_ttl", time.Duration(0))
	v.SetDefault("llm.model_preferences", DefaultModelPreferences)
	v.SetDefault("llm.vendor_marker", "gemini")

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")
}

// BindEnv binds every config key to its environment variable names. When a key
// has several names the first one set wins.
func BindEnv(v *viper.Viper) error {
	for key, names := range envBindings {
		args := append([]string{key}, names...)
		if err := v.BindEnv(args...); err != nil {
			return fmt.Errorf("bind env %s: %w", key, err)
		}
	}
	return nil
}

// LoadConfig builds a Config from v. A nil v reads only defaults and the environment.
func LoadConfig(v *viper.Viper) (*Config, error) {
	if v == nil {
		v = viper.New()
		SetDefaults(v)
		if err := BindEnv(v); err != nil {
			return nil, NewAppError(CodeConfig, "binding environment", err)
		}
	}

	cfg := &Config{
		Server: ServerConfig{
			HTTPAddr:        normalizeAddr(v.GetString("server.http_addr")),
			GRPCAddr:        normalizeAddr(v.GetString("server.grpc_addr")),
			ReadTimeout:     v.GetDuration("server.read_timeout"),
			WriteTimeout:    v.GetDuration("server.write_timeout"),
			ShutdownTimeout: v.GetDuration("server.shutdown_timeout"),
			Gops:            v.GetBool("server.gops"),
		},
		Upload: UploadConfig{
			BaseURL:  strings.TrimRight(v.GetString("upload.base_url"), "/"),
			MaxBytes: v.GetInt64("upload.max_bytes"),
		},
		OCR: OCRConfig{
			TesseractPath: v.GetString("ocr.tesseract_path"),
			Language:      v.GetString("ocr.language"),
			TessdataDir:   v.GetString("ocr.tessdata_dir"),
			PSM:           v.GetInt("ocr.psm"),
			OEM:           v.GetInt("ocr.oem"),
			PDFBackend:    strings.ToLower(v.GetString("ocr.pdf_backend")),
			PdftotextPath: v.GetString("ocr.pdftotext_path"),
			Timeout:       v.GetDuration("ocr.timeout"),
		},
		LLM: LLMConfig{
			APIKey:           strings.TrimSpace(v.GetString("llm.api_key")),
			BaseURL:          strings.TrimRight(v.GetString("llm.base_url"), "/"),
			Temperature:      float32(v.GetFloat64("llm.temperature")),
			MaxOutputTokens:  v.GetInt("llm.max_output_tokens"),
			Timeout:          v.GetDuration("llm.timeout"),
			EnrichTimeout:    v.GetDuration("llm.enrich_timeout"),
			DirectoryTTL:     v.GetDuration("llm.directory_ttl"),
			ModelPreferences: stringList(v, "llm.model_preferences"),
			VendorMarker:     strings.ToLower(strings.TrimSpace(v.GetString("llm.vendor_marker"))),
		},
		Log: LogConfig{
			Level:  strings.ToLower(v.GetString("log.level")),
			Format: strings.ToLower(v.GetString("log.format")),
		},
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// stringList accepts either a YAML list or a comma separated env value.
func stringList(v *viper.Viper, key string) []string {
	var raw []string
	if s, ok := v.Get(key).(string); ok {
		raw = strings.Split(s, ",")
	} else {
		raw = v.GetStringSlice(key)
	}
	out := make([]string, 0, len(raw))
	for _, item := range raw {
		if item = strings.ToLower(strings.TrimSpace(item)); item != "" {
			out = append(out, item)
		}
	}
	return out
}

// normalizeAddr turns a bare port such as "5000" into ":5000".
func normalizeAddr(addr string) string {
	addr = strings.TrimSpace(addr)
	if addr == "" || strings.Contains(addr, ":") {
		return addr
	}
	return ":" + addr
}

// Validate validates the loaded configuration. A missing credential is not an
// error; it disables enrichment.
func (c *Config) Validate() error {
	if c.Server.HTTPAddr == "" {
		return NewAppError(CodeConfig, "PORT is required", ErrInvalidInput)
	}
	if c.Upload.BaseURL == "" {
		return NewAppError(CodeConfig, "UPLOAD_BASE_URL is required", ErrInvalidInput)
	}
	if c.Upload.MaxBytes <= 0 {
		return NewAppError(CodeConfig, "UPLOAD_MAX_BYTES must be positive", ErrInvalidInput)
	}
	switch c.OCR.PDFBackend {
	case PDFBackendNative, PDFBackendPdftotext:
	default:
		return NewAppError(CodeConfig, fmt.Sprintf("unknown OCR_PDF_BACKEND %q", c.OCR.PDFBackend), ErrInvalidInput)
	}
	if c.OCR.Language == "" {
		return NewAppError(CodeConfig, "OCR_LANGUAGE is required", ErrInvalidInput)
	}
	if c.LLM.Temperature < 0 || c.LLM.Temperature > 2 {
		return NewAppError(CodeConfig, "GEMINI_TEMPERATURE must be within [0,2]", ErrInvalidInput)
	}
	if c.LLM.MaxOutputTokens <= 0 {
		return NewAppError(CodeConfig, "GEMINI_MAX_OUTPUT_TOKENS must be positive", ErrInvalidInput)
	}
	if len(c.LLM.ModelPreferences) == 0 && c.LLM.VendorMarker == "" {
		return NewAppError(CodeConfig, "model preferences or vendor marker required", ErrInvalidInput)
	}
	if c.LLM.DirectoryTTL < 0 {
		return NewAppError(CodeConfig, "GEMINI_DIRECTORY_TTL must not be negative", ErrInvalidInput)
	}
	return nil
}
