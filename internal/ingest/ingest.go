package ingest

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joseph-ayodele/docinsight/constants"
)

// Source is one local file the batch commands can analyze.
type Source struct {
	Path        string
	ContentType constants.ContentType
	Size        int64
	ModTime     time.Time
}

// Stats summarizes a collection pass.
type Stats struct {
	Scanned uint32
	Matched uint32
	Skipped uint32 // supported extension but unusable (too large, unreadable)
	Failed  uint32
}

// CollectOptions filter what Collect returns.
type CollectOptions struct {
	SkipHidden bool
	MaxBytes   int64 // 0 means constants.MaxUploadBytes
}

// Collect expands paths (files or directories, walked recursively) into
// supported sources in walk order. Unsupported extensions are ignored;
// per-file problems are counted and logged, never fatal.
func Collect(paths []string, opts CollectOptions, logger *slog.Logger) ([]Source, Stats, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if len(paths) == 0 {
		return nil, Stats{}, errors.New("at least one path is required")
	}
	maxBytes := opts.MaxBytes
	if maxBytes <= 0 {
		maxBytes = constants.MaxUploadBytes
	}

	var out []Source
	var stats Stats
	for _, root := range paths {
		root = strings.TrimSpace(root)
		if root == "" {
			continue
		}
		err := filepath.WalkDir(root, func(path string, d fs.DirEntry, walkErr error) error {
			stats.Scanned++
			if walkErr != nil {
				logger.Warn("ingest.walk_error", "path", path, "error", walkErr)
				stats.Failed++
				return nil
			}
			if opts.SkipHidden && path != root && IsHidden(path) {
				if d.IsDir() {
					return filepath.SkipDir
				}
				return nil
			}
			if d.IsDir() {
				return nil
			}
			ct, ok := DetectContentType(path)
			if !ok {
				return nil
			}
			stats.Matched++

			info, err := d.Info()
			if err != nil {
				logger.Warn("ingest.stat_error", "path", path, "error", err)
				stats.Failed++
				return nil
			}
			if info.Size() > maxBytes {
				logger.Warn("ingest.too_large", "path", path, "bytes", info.Size(), "limit", maxBytes)
				stats.Skipped++
				return nil
			}
			out = append(out, Source{Path: path, ContentType: ct, Size: info.Size(), ModTime: info.ModTime()})
			return nil
		})
		if err != nil {
			return out, stats, fmt.Errorf("walk %s: %w", root, err)
		}
	}
	logger.Info("ingest.collected",
		"sources", len(out),
		"scanned", stats.Scanned,
		"matched", stats.Matched,
		"skipped", stats.Skipped,
		"failed", stats.Failed,
	)
	return out, stats, nil
}

// SourceFromPath stats a single supported file.
func SourceFromPath(path string) (Source, error) {
	ct, ok := DetectContentType(path)
	if !ok {
		return Source{}, fmt.Errorf("%s: %w", path, errUnsupportedExt)
	}
	info, err := os.Stat(path)
	if err != nil {
		return Source{}, err
	}
	if info.IsDir() {
		return Source{}, fmt.Errorf("%s: is a directory", path)
	}
	return Source{Path: path, ContentType: ct, Size: info.Size(), ModTime: info.ModTime()}, nil
}

var errUnsupportedExt = errors.New("unsupported or missing extension")

// DetectContentType maps a file's extension to its declared content type.
func DetectContentType(path string) (constants.ContentType, bool) {
	return constants.ContentTypeFromExt(filepath.Ext(path))
}

// IsHidden checks if a file or directory is hidden (starts with '.').
func IsHidden(path string) bool {
	base := filepath.Base(path)
	return strings.HasPrefix(base, ".") && base != "." && base != ".."
}
